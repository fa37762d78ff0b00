package progress

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes attaches progress endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth []gin.HandlerFunc) {
	progress := router.Group("/progress")

	progress.GET("", append(auth, handler.Get)...)
	progress.POST("", append(auth, handler.Update)...)
}
