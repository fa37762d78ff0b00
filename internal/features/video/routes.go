package video

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes attaches video curation endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth []gin.HandlerFunc) {
	videos := router.Group("/courses/:courseId/videos")

	videos.GET("", append(auth, handler.List)...)
	videos.PUT("", append(auth, handler.Finish)...)
	videos.GET("/plan", append(auth, handler.Plan)...)
	videos.GET("/candidates", append(auth, handler.Candidates)...)
	videos.POST("/select", append(auth, handler.Select)...)
	videos.POST("/skip", append(auth, handler.Skip)...)
	videos.POST("/custom", append(auth, handler.Custom)...)
	videos.POST("/deselect", append(auth, handler.Deselect)...)
}
