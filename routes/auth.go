package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"pdf-study-platform/internal/auth"
	"pdf-study-platform/internal/config"
	"pdf-study-platform/internal/logger"
	"pdf-study-platform/middleware"
	"pdf-study-platform/models"
	"pdf-study-platform/utils"
)

func SetupAuthRoutes(router *gin.Engine, cfg *config.Config, mongoClient *mongo.Client, rdb *redis.Client, authMiddleware *middleware.AuthMiddleware) {
	authGroup := router.Group("/auth")

	db := mongoClient.Database(cfg.DBName)
	usersCollection := db.Collection("users")

	authGroup.POST("/register", func(c *gin.Context) {
		var req models.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		// Check if username already exists
		var existingUser models.User
		if err := usersCollection.FindOne(context.Background(), bson.M{"username": req.Username}).Decode(&existingUser); err == nil {
			utils.RespondWithConflict(c, "Username already exists")
			return
		}

		hashedPassword, err := utils.HashPassword(req.Password, cfg.BcryptCost)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to process password", nil)
			return
		}

		now := time.Now()
		user := models.User{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hashedPassword,
			Role:         "user",
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		result, err := usersCollection.InsertOne(context.Background(), user)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				utils.RespondWithConflict(c, "Username already exists")
				return
			}
			utils.RespondWithInternalError(c, "Failed to create user", nil)
			return
		}

		userID := result.InsertedID.(primitive.ObjectID).Hex()
		tokenPair, err := auth.IssueTokenPair(userID, req.Username, rdb)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to generate tokens", nil)
			return
		}

		authMiddleware.SetTokenCookies(c, tokenPair)
		logger.Info("User registered", "user_id", userID, "username", req.Username)

		c.JSON(http.StatusCreated, models.TokenPairResponse{
			AccessToken:  tokenPair.AccessToken,
			RefreshToken: tokenPair.RefreshToken,
			AccessExp:    tokenPair.AccessExp,
			RefreshExp:   tokenPair.RefreshExp,
			User: models.UserInfo{
				ID:       userID,
				Username: req.Username,
				Email:    req.Email,
				Role:     user.Role,
			},
		})
	})

	authGroup.POST("/login", func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := usersCollection.FindOne(context.Background(), bson.M{"username": req.Username}).Decode(&user); err != nil {
			utils.RespondWithUnauthorized(c, "Invalid username or password")
			return
		}

		if !utils.CheckPassword(req.Password, user.PasswordHash) {
			utils.RespondWithUnauthorized(c, "Invalid username or password")
			return
		}

		tokenPair, err := auth.IssueTokenPair(user.ID.Hex(), user.Username, rdb)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to generate tokens", nil)
			return
		}

		authMiddleware.SetTokenCookies(c, tokenPair)
		logger.Info("User logged in", "user_id", user.ID.Hex(), "username", user.Username)

		c.JSON(http.StatusOK, models.TokenPairResponse{
			AccessToken:  tokenPair.AccessToken,
			RefreshToken: tokenPair.RefreshToken,
			AccessExp:    tokenPair.AccessExp,
			RefreshExp:   tokenPair.RefreshExp,
			User: models.UserInfo{
				ID:       user.ID.Hex(),
				Username: user.Username,
				Email:    user.Email,
				Role:     user.Role,
			},
		})
	})

	authGroup.POST("/refresh", func(c *gin.Context) {
		refreshToken, err := c.Cookie("refresh_token")
		if err != nil || refreshToken == "" {
			var body struct {
				RefreshToken string `json:"refresh_token" binding:"required"`
			}
			if bindErr := c.ShouldBindJSON(&body); bindErr != nil {
				utils.RespondWithUnauthorized(c, "Refresh token is required")
				return
			}
			refreshToken = body.RefreshToken
		}

		claims, err := auth.ValidateRefreshToken(refreshToken, rdb)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid or expired refresh token")
			return
		}

		// Rotate: the presented refresh token is single use
		if err := auth.RevokeToken(claims.ID, true, rdb); err != nil {
			logger.Warn("Failed to revoke rotated refresh token", "error", err)
		}

		tokenPair, err := auth.IssueTokenPair(claims.UserID, claims.Username, rdb)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to generate tokens", nil)
			return
		}

		authMiddleware.SetTokenCookies(c, tokenPair)

		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokenPair.AccessToken,
			"refresh_token": tokenPair.RefreshToken,
			"access_exp":    tokenPair.AccessExp,
			"refresh_exp":   tokenPair.RefreshExp,
		})
	})

	authGroup.POST("/logout", authMiddleware.RequireAuth(), func(c *gin.Context) {
		if claimsVal, exists := c.Get("claims"); exists {
			if claims, ok := claimsVal.(*auth.Claims); ok {
				if err := auth.RevokeToken(claims.ID, false, rdb); err != nil {
					logger.Warn("Failed to revoke access token", "error", err)
				}
			}
		}
		if refreshToken, err := c.Cookie("refresh_token"); err == nil && refreshToken != "" {
			if claims, valErr := auth.ValidateRefreshToken(refreshToken, rdb); valErr == nil {
				if err := auth.RevokeToken(claims.ID, true, rdb); err != nil {
					logger.Warn("Failed to revoke refresh token", "error", err)
				}
			}
		}

		c.SetCookie("access_token", "", -1, "/", "", false, true)
		c.SetCookie("refresh_token", "", -1, "/", "", false, true)

		c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
	})

	authGroup.GET("/me", authMiddleware.RequireAuth(), func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		objID, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid user identity")
			return
		}

		var user models.User
		if err := usersCollection.FindOne(context.Background(), bson.M{"_id": objID}).Decode(&user); err != nil {
			utils.RespondWithNotFound(c, "User not found")
			return
		}

		c.JSON(http.StatusOK, models.UserInfo{
			ID:       user.ID.Hex(),
			Username: user.Username,
			Email:    user.Email,
			Role:     user.Role,
		})
	})
}
