package certificate

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/middleware"
	"github.com/leap-learning/leap-server/pkg/apperrors"
	"github.com/leap-learning/leap-server/pkg/email"
	"github.com/leap-learning/leap-server/pkg/pagination"
	"github.com/leap-learning/leap-server/pkg/request"
	"github.com/leap-learning/leap-server/pkg/response"
)

const maxPreviewWidth = 2000

// Handler processes certificate HTTP requests.
type Handler struct {
	db      *gorm.DB
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a certificate handler instance.
func NewHandler(db *gorm.DB, service *Service, logger *slog.Logger) *Handler {
	return &Handler{db: db, service: service, logger: logger}
}

type courseRequest struct {
	CourseID string `json:"courseId" binding:"required"`
}

type issueRequest struct {
	CourseID  string `json:"courseId" binding:"required"`
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
	Reissue   bool   `json:"reissue"`
}

type sendRequest struct {
	PDFBase64 string `json:"pdfBase64"`
}

// IssueResponse is returned when a certificate is created.
type IssueResponse struct {
	CertificateID string      `json:"certificateId"`
	PDFBase64     string      `json:"pdfBase64"`
	Certificate   Certificate `json:"certificate"`
}

// Eligibility reports whether the caller may request a certificate.
func (h *Handler) Eligibility(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}
	var body courseRequest
	if appErr := request.BindJSON(c, &body); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}
	courseID, appErr := request.ParseUUID("courseId", body.CourseID)
	if appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	completion, err := h.service.CheckEligibility(c.Request.Context(), usr.ID, courseID)
	if err != nil {
		h.respondError(c, err, "Failed to check eligibility")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"success": true, "completion": completion}, "Eligible for certificate!", nil)
}

// Issue creates a certificate for a completed course and returns its PDF.
func (h *Handler) Issue(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}
	var body issueRequest
	if appErr := request.BindJSON(c, &body); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}
	courseID, appErr := request.ParseUUID("courseId", body.CourseID)
	if appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	in := IssueInput{
		UserID:    usr.ID,
		CourseID:  courseID,
		UserName:  firstNonBlank(body.UserName, usr.FullName),
		UserEmail: firstNonBlank(body.UserEmail, usr.Email),
		Reissue:   body.Reissue,
	}
	issued, err := h.service.Issue(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err, "Failed to generate certificate")
		return
	}

	response.Created(c, IssueResponse{
		CertificateID: issued.Certificate.ID.String(),
		PDFBase64:     base64.StdEncoding.EncodeToString(issued.PDF),
		Certificate:   issued.Certificate,
	}, "Certificate generated successfully!")
}

// Send emails a pending certificate to its owner.
func (h *Handler) Send(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}
	certificateID, appErr := request.ParamUUID(c, "certificateId")
	if appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	var body sendRequest
	if c.Request.ContentLength != 0 {
		if appErr := request.BindJSON(c, &body); appErr != nil {
			response.AppError(h.logger, c, appErr)
			return
		}
	}
	var pdf []byte
	if raw := strings.TrimSpace(body.PDFBase64); raw != "" {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			response.AppError(h.logger, c, ErrInvalidPDF)
			return
		}
		pdf = decoded
	}

	cert, err := h.service.Send(c.Request.Context(), usr.ID, certificateID, pdf)
	if err != nil {
		h.respondError(c, err, "Failed to send certificate")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"messageId": cert.MessageID, "certificate": cert}, "Certificate sent successfully!", nil)
}

// Resend delivers a failed certificate again.
func (h *Handler) Resend(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}
	certificateID, appErr := request.ParamUUID(c, "certificateId")
	if appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	cert, err := h.service.Resend(c.Request.Context(), usr.ID, certificateID)
	if err != nil {
		h.respondError(c, err, "Failed to resend certificate")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"messageId": cert.MessageID, "certificate": cert}, "Certificate sent successfully!", nil)
}

// List returns the caller's certificates.
func (h *Handler) List(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}
	params := pagination.Extract(c)
	certs, total, err := ListByUser(h.db.WithContext(c.Request.Context()), usr.ID, params)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to list certificates", err)
		return
	}
	response.Success(c, http.StatusOK, certs, "", pagination.MetadataFrom(total, params))
}

// Preview returns a PNG rendering of a certificate.
func (h *Handler) Preview(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}
	certificateID, appErr := request.ParamUUID(c, "certificateId")
	if appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}
	width := 0
	if raw := c.Query("width"); raw != "" {
		w, err := strconv.Atoi(raw)
		if err != nil || w <= 0 || w > maxPreviewWidth {
			response.AppError(h.logger, c, apperrors.Validation("width must be between 1 and "+strconv.Itoa(maxPreviewWidth)))
			return
		}
		width = w
	}

	img, err := h.service.Preview(c.Request.Context(), usr.ID, certificateID, width)
	if err != nil {
		h.respondError(c, err, "Failed to render preview")
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", img)
}

// Download returns the certificate PDF.
func (h *Handler) Download(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}
	certificateID, appErr := request.ParamUUID(c, "certificateId")
	if appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	cert, pdf, err := h.service.PDF(c.Request.Context(), usr.ID, certificateID)
	if err != nil {
		h.respondError(c, err, "Failed to render certificate")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+email.CertificateFilename(cert.CourseName)+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrDeliveryFailed):
		response.ErrorWithLog(h.logger, c, http.StatusBadGateway, "Failed to send certificate", err)
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			response.AppError(h.logger, c, appErr)
			return
		}
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
