package auth

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches authentication endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth []gin.HandlerFunc) {
	group := router.Group("/auth")
	{
		group.POST("/register", handler.Register)
		group.POST("/login", handler.Login)
		group.POST("/logout", append(auth, handler.Logout)...)
		group.POST("/refresh-token", handler.RefreshToken)
		group.POST("/request-password-reset", handler.RequestPasswordReset)
		group.POST("/reset-password", handler.ResetPassword)
		// camelCase aliases
		group.POST("/refreshToken", handler.RefreshToken)
		group.POST("/requestPasswordReset", handler.RequestPasswordReset)
		group.POST("/resetPassword", handler.ResetPassword)
	}
}
