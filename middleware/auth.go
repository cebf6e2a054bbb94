package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"card-trader/auth"
)

const (
	userIDKey   = "userID"
	usernameKey = "username"
)

type Authenticator interface {
	Authenticate(token string) (primitive.ObjectID, *auth.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's id on the context for UserID.
func RequireAuth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		userID, claims, err := authn.Authenticate(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(userIDKey, userID)
		c.Set(usernameKey, claims.Username)
		c.Next()
	}
}

// UserID returns the authenticated caller set by RequireAuth.
func UserID(c *gin.Context) (primitive.ObjectID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	return id, ok
}

func Username(c *gin.Context) string {
	return c.GetString(usernameKey)
}
