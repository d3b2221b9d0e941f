package utils

import (
	"strings"
)

// ExtractTokenFromHeader pulls the bearer token out of an Authorization
// header. Returns "" when the header is missing or malformed.
func ExtractTokenFromHeader(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return parts[1]
}
