package certificate

import (
	"errors"
	"net/http"

	"github.com/leap-learning/leap-server/pkg/apperrors"
)

var (
	ErrCertificateNotFound = apperrors.NotFound("Certificate not found")
	ErrAlreadyIssued       = apperrors.New("A certificate for this course was already sent", http.StatusConflict, apperrors.ErrConflict, nil)
	ErrInvalidTransition   = apperrors.New("Certificate is not in a state that allows this action", http.StatusConflict, apperrors.ErrConflict, nil)
	ErrEmailRequired       = apperrors.Validation("A valid email address is required")
	ErrInvalidPDF          = apperrors.Validation("pdfBase64 is not a valid PDF")
	ErrDeliveryFailed      = errors.New("certificate delivery failed")
	ErrMailerNotConfigured = errors.New("email delivery is not configured")
)
