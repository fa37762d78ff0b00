package generation

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes attaches the generation endpoints. auth should include any
// stricter rate limiting the caller wants on model calls.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth []gin.HandlerFunc) {
	generate := router.Group("/generate")

	generate.POST("", append(auth, handler.Generate)...)
	generate.POST("/roadmap", append(auth, handler.Roadmap)...)
	generate.POST("/lesson-content", append(auth, handler.LessonContent)...)
}
