package content

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes attaches lesson content endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth []gin.HandlerFunc) {
	content := router.Group("/courses/:courseId/content")

	content.GET("", append(auth, handler.Get)...)
	content.GET("/overview", append(auth, handler.Overview)...)
	content.POST("/regenerate", append(auth, handler.Regenerate)...)
}
