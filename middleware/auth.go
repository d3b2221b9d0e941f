package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"pdf-study-platform/internal/auth"
	"pdf-study-platform/internal/config"
	"pdf-study-platform/internal/logger"
	"pdf-study-platform/utils"
)

type AuthMiddleware struct {
	config *config.Config
	rdb    *redis.Client
}

func NewAuthMiddleware(cfg *config.Config, rdb *redis.Client) *AuthMiddleware {
	return &AuthMiddleware{
		config: cfg,
		rdb:    rdb,
	}
}

func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		// Try to get access token from Authorization header
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			tokenString = utils.ExtractTokenFromHeader(authHeader)
		}

		// If no header token, try access_token cookie
		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}

		if tokenString == "" {
			utils.RespondWithUnauthorized(c, "Authentication token is required")
			c.Abort()
			return
		}

		claims, err := auth.ValidateAccessToken(tokenString, a.rdb)
		if err != nil {
			// Try to auto-refresh using refresh token
			if refreshToken, cookieErr := c.Cookie("refresh_token"); cookieErr == nil && refreshToken != "" {
				refreshClaims, refreshErr := auth.ValidateRefreshToken(refreshToken, a.rdb)
				if refreshErr == nil {
					// Rotate: old refresh token is revoked before the new pair
					if revokeErr := auth.RevokeToken(refreshClaims.ID, true, a.rdb); revokeErr != nil {
						logger.Warn("Failed to revoke rotated refresh token",
							"user_id", refreshClaims.UserID, "error", revokeErr)
					}

					tokenPair, issueErr := auth.IssueTokenPair(refreshClaims.UserID, refreshClaims.Username, a.rdb)
					if issueErr == nil {
						a.setTokenCookies(c, tokenPair)

						freshClaims, valErr := auth.ValidateAccessToken(tokenPair.AccessToken, a.rdb)
						if valErr == nil {
							claims = freshClaims
						}
					}
				}
			}

			if claims == nil {
				utils.RespondWithError(c, http.StatusUnauthorized, "session_expired",
					"Your session has expired. Please log in again.", nil)
				c.Abort()
				return
			}
		}

		// Store user info in context
		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("claims", claims)

		c.Next()
	})
}

func (a *AuthMiddleware) setTokenCookies(c *gin.Context, tokenPair *auth.TokenPair) {
	secure := a.config.GinMode == "release"
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("access_token", tokenPair.AccessToken, int(1*time.Hour.Seconds()), "/", "", secure, true)
	c.SetCookie("refresh_token", tokenPair.RefreshToken, int(7*24*time.Hour.Seconds()), "/", "", secure, true)
}

// SetTokenCookies exposes cookie issuance for the auth routes.
func (a *AuthMiddleware) SetTokenCookies(c *gin.Context, tokenPair *auth.TokenPair) {
	a.setTokenCookies(c, tokenPair)
}

// GetUserID returns the authenticated user's ID from the request context.
func GetUserID(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return ""
}

// GetUsername returns the authenticated username from the request context.
func GetUsername(c *gin.Context) string {
	if username, exists := c.Get("username"); exists {
		if u, ok := username.(string); ok {
			return u
		}
	}
	return ""
}
