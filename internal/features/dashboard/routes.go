package dashboard

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches dashboard endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth []gin.HandlerFunc) {
	dashboard := router.Group("/dashboard")
	{
		dashboard.GET("/courses", append(auth, handler.Courses)...)
	}
}
