package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// NoStore marks API responses as uncacheable. Handlers that serve immutable
// artefacts, such as certificate previews, may overwrite the header.
func NoStore(prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, prefix) {
			c.Header("Cache-Control", "no-store")
			c.Header("Pragma", "no-cache")
		}
		c.Next()
	}
}
