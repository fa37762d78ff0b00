package certificate

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes attaches certificate endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth []gin.HandlerFunc) {
	certificates := router.Group("/certificates")

	certificates.GET("", append(auth, handler.List)...)
	certificates.POST("", append(auth, handler.Issue)...)
	certificates.POST("/eligibility", append(auth, handler.Eligibility)...)
	certificates.POST("/:certificateId/send", append(auth, handler.Send)...)
	certificates.POST("/:certificateId/resend", append(auth, handler.Resend)...)
	certificates.GET("/:certificateId/preview", append(auth, handler.Preview)...)
	certificates.GET("/:certificateId/pdf", append(auth, handler.Download)...)
}
