package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// tokenFromRequest accepts the operator token either as a Bearer header or
// as a ?token= query parameter (websocket clients cannot set headers from
// browsers).
func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}

func (h *Handler) operatorMiddleware(c *gin.Context) {
	token := tokenFromRequest(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing bearer token",
		})
		return
	}

	username, err := h.services.ParseToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	c.Set("operator", username)
	c.Next()
}
