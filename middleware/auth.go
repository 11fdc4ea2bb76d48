package middleware

import (
	"strings"

	"debt-splitter/config"
	"debt-splitter/utils"

	"github.com/gin-gonic/gin"
)

// AuthRequired accepts "Authorization: Bearer <jwt>" and stores the caller's
// user ID and username in the gin context.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			utils.Unauthorized(c, "Missing or malformed authorization header")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(config.AppConfig.JWTSecret, strings.TrimSpace(token))
		if err != nil {
			utils.Unauthorized(c, "Could not validate credentials")
			c.Abort()
			return
		}

		c.Set(utils.ContextUserID, claims.UserID)
		c.Set(utils.ContextUsername, claims.Username)
		c.Next()
	}
}
