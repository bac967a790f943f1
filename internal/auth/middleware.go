package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OwnerIDKey is the gin context key under which the middleware stores the
// verified owner id.
const OwnerIDKey = "owner_id"

func Middleware(provider Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if ownerID, err := provider.ValidateToken(token); err == nil {
				c.Set(OwnerIDKey, ownerID)
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
}
