package user

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches user endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth []gin.HandlerFunc) {
	users := router.Group("/users")
	{
		users.GET("/me", append(auth, handler.Me)...)
		users.PUT("/me", append(auth, handler.UpdateMe)...)
	}
}
