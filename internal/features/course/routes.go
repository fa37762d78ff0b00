package course

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes attaches course endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth []gin.HandlerFunc) {
	courses := router.Group("/courses")

	courses.GET("", append(auth, handler.List)...)
	courses.DELETE("", append(auth, handler.Delete)...)
	courses.GET("/:courseId", append(auth, handler.GetByID)...)
	courses.PUT("/:courseId/roadmap", append(auth, handler.ReplaceRoadmap)...)
	courses.DELETE("/:courseId", append(auth, handler.Delete)...)
}
