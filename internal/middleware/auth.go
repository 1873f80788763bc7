package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"tourguard/api/internal/policy"
)

// Context keys set by the auth middleware
const (
	ContextUserID = "user_id"
	ContextCaller = "caller"
)

// AuthMiddleware validates the Bearer JWT and resolves the caller's role
// from their profile. The role in the token is ignored: roles can change
// after issue, and the policy layer is keyed on the current profile row.
func AuthMiddleware(secret string, resolver *policy.RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		rawID, exists := claims["user_id"]
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		userID := uint(rawID.(float64))

		caller, err := resolver.CallerFor(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve caller"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextCaller, caller)
		c.Next()
	}
}

// CallerFrom extracts the resolved caller placed by AuthMiddleware.
func CallerFrom(c *gin.Context) policy.Caller {
	if v, exists := c.Get(ContextCaller); exists {
		if caller, ok := v.(policy.Caller); ok {
			return caller
		}
	}
	return policy.Caller{}
}

// RequireElevated blocks callers without the admin or police role.
// A caller whose profile is missing has no role and is denied.
func RequireElevated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CallerFrom(c).Elevated() {
			c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			c.Abort()
			return
		}
		c.Next()
	}
}
