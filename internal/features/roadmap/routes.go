package roadmap

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes attaches roadmap editing endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth []gin.HandlerFunc) {
	sessions := router.Group("/roadmap-sessions")

	sessions.POST("", append(auth, handler.Create)...)
	sessions.GET("/:sessionId", append(auth, handler.Get)...)
	sessions.POST("/:sessionId/commands", append(auth, handler.Apply)...)
	sessions.POST("/:sessionId/finalize", append(auth, handler.Finalize)...)
	sessions.DELETE("/:sessionId", append(auth, handler.Delete)...)
}
