package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"group_savings/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client for the revocation list
	"github.com/sirupsen/logrus"   // Structured logging
)

// Context keys set by JWTAuthMiddleware
const (
	UserIDKey = "userID" // Profile ID of the caller
	ClaimsKey = "claims" // Parsed *utils.Claims
)

// JWTAuthMiddleware validates JWT tokens, rejects revoked ones and extracts user information
func JWTAuthMiddleware(secret string, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string and parse it
		claims, err := utils.ParseJWT(tokenStr, secret)       // Parse the JWT token
		if err != nil {
			// If parsing fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		revoked, err := utils.IsTokenRevoked(c.Request.Context(), rdb, claims.ID) // Check sign-out list
		if err != nil {
			// Redis unavailable: accept the token rather than lock everyone out
			logrus.WithError(err).Warn("Token revocation check failed")
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has been revoked"})
			return
		}
		c.Set(UserIDKey, claims.UserID) // Store userID in context
		c.Set(ClaimsKey, claims)        // Store claims for sign-out
		c.Next()                        // Proceed to the next handler
	}
}

// CurrentUserID returns the caller's profile ID set by JWTAuthMiddleware
func CurrentUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
