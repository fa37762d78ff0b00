package certificate

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/progress"
	"github.com/leap-learning/leap-server/pkg/certpdf"
	"github.com/leap-learning/leap-server/pkg/email"
	"github.com/leap-learning/leap-server/pkg/metrics"
	"github.com/leap-learning/leap-server/pkg/socketio"
	"github.com/leap-learning/leap-server/pkg/tracing"
	"github.com/leap-learning/leap-server/pkg/types"
)

// Mailer delivers email. Both email providers implement it.
type Mailer interface {
	Send(ctx context.Context, msg email.Message) (string, error)
}

// unconfiguredMailer stands in when no provider is set up, so delivery fails
// through the normal pending to failed path.
type unconfiguredMailer struct{}

func (unconfiguredMailer) Send(context.Context, email.Message) (string, error) {
	return "", ErrMailerNotConfigured
}

// Service issues certificates and drives their delivery state.
type Service struct {
	db       *gorm.DB
	mailer   Mailer
	notifier socketio.Notifier
	issuer   string
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a certificate service. mailer and notifier may be nil.
func NewService(db *gorm.DB, mailer Mailer, notifier socketio.Notifier, issuer string, logger *slog.Logger) *Service {
	if mailer == nil {
		mailer = unconfiguredMailer{}
	}
	if notifier == nil {
		notifier = socketio.Nop{}
	}
	if strings.TrimSpace(issuer) == "" {
		issuer = "LEAP"
	}
	return &Service{
		db:       db,
		mailer:   mailer,
		notifier: notifier,
		issuer:   issuer,
		logger:   logger,
		now:      time.Now,
	}
}

// IssueInput identifies who a certificate is issued to.
type IssueInput struct {
	UserID    uuid.UUID
	CourseID  uuid.UUID
	UserName  string
	UserEmail string
	Reissue   bool
}

// Issued is a freshly created certificate with its rendered PDF.
type Issued struct {
	Certificate Certificate
	PDF         []byte
}

// CheckEligibility recomputes completion from stored progress.
func (s *Service) CheckEligibility(ctx context.Context, userID, courseID uuid.UUID) (progress.Completion, error) {
	_, completion, err := progress.Eligibility(s.db.WithContext(ctx), userID, courseID)
	return completion, err
}

// Issue checks eligibility, creates a pending certificate and renders its PDF.
// Nothing is stored when the course is not complete. A second certificate for
// a course that already has a sent one needs Reissue.
func (s *Service) Issue(ctx context.Context, in IssueInput) (Issued, error) {
	recipient, err := mail.ParseAddress(strings.TrimSpace(in.UserEmail))
	if err != nil {
		return Issued{}, ErrEmailRequired
	}

	db := s.db.WithContext(ctx)
	crs, _, err := progress.Eligibility(db, in.UserID, in.CourseID)
	if err != nil {
		return Issued{}, err
	}

	if !in.Reissue {
		sent, err := HasSent(db, in.UserID, in.CourseID)
		if err != nil {
			return Issued{}, err
		}
		if sent {
			return Issued{}, ErrAlreadyIssued
		}
	}

	name := strings.TrimSpace(in.UserName)
	if name == "" {
		name = recipient.Name
	}
	if name == "" {
		name = recipient.Address
	}

	cert := Certificate{
		UserID:     in.UserID,
		CourseID:   crs.ID,
		CourseName: crs.Name,
		UserName:   name,
		UserEmail:  recipient.Address,
		Status:     types.CertificatePending,
	}
	if err := db.Create(&cert).Error; err != nil {
		return Issued{}, err
	}
	metrics.RecordCertificateTransition(string(types.CertificatePending))

	pdf, err := s.render(cert)
	if err != nil {
		s.fail(ctx, cert, err)
		return Issued{}, fmt.Errorf("render certificate: %w", err)
	}

	s.logger.InfoContext(ctx, "certificate issued",
		slog.String("certificateId", cert.ID.String()),
		slog.String("courseId", cert.CourseID.String()),
		slog.String("userId", cert.UserID.String()),
	)
	s.publish(cert)
	return Issued{Certificate: cert, PDF: pdf}, nil
}

// Send emails a pending certificate. pdf may be nil, in which case it is
// rendered again. Any delivery error leaves the certificate failed.
func (s *Service) Send(ctx context.Context, userID, certificateID uuid.UUID, pdf []byte) (Certificate, error) {
	cert, err := GetOwned(s.db.WithContext(ctx), certificateID, userID)
	if err != nil {
		return Certificate{}, err
	}
	if cert.Status != types.CertificatePending {
		return cert, ErrInvalidTransition
	}
	if len(pdf) > 0 && !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		return cert, ErrInvalidPDF
	}
	return s.deliver(ctx, cert, pdf)
}

// Resend moves a failed certificate back to pending and delivers it again.
func (s *Service) Resend(ctx context.Context, userID, certificateID uuid.UUID) (Certificate, error) {
	db := s.db.WithContext(ctx)
	cert, err := GetOwned(db, certificateID, userID)
	if err != nil {
		return Certificate{}, err
	}
	return s.retry(ctx, cert)
}

// RedeliverFailed retries up to limit failed certificates and returns how many
// were sent.
func (s *Service) RedeliverFailed(ctx context.Context, limit int) (int, error) {
	failed, err := ListByStatus(s.db.WithContext(ctx), types.CertificateFailed, limit)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, cert := range failed {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if _, err := s.retry(ctx, cert); err != nil {
			s.logger.WarnContext(ctx, "certificate redelivery failed",
				slog.String("certificateId", cert.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		sent++
	}
	return sent, nil
}

// Preview renders a PNG of an owned certificate.
func (s *Service) Preview(ctx context.Context, userID, certificateID uuid.UUID, width int) ([]byte, error) {
	cert, err := GetOwned(s.db.WithContext(ctx), certificateID, userID)
	if err != nil {
		return nil, err
	}
	return certpdf.RenderPreview(s.document(cert), width)
}

// PDF renders the PDF of an owned certificate again.
func (s *Service) PDF(ctx context.Context, userID, certificateID uuid.UUID) (Certificate, []byte, error) {
	cert, err := GetOwned(s.db.WithContext(ctx), certificateID, userID)
	if err != nil {
		return Certificate{}, nil, err
	}
	pdf, err := s.render(cert)
	return cert, pdf, err
}

func (s *Service) retry(ctx context.Context, cert Certificate) (Certificate, error) {
	if err := Transition(s.db.WithContext(ctx), cert.ID, cert.Status, types.CertificatePending, map[string]interface{}{
		"failure_reason": "",
	}); err != nil {
		return cert, err
	}
	cert.Status = types.CertificatePending
	cert.FailureReason = ""
	metrics.RecordCertificateTransition(string(types.CertificatePending))
	return s.deliver(ctx, cert, nil)
}

func (s *Service) deliver(ctx context.Context, cert Certificate, pdf []byte) (out Certificate, err error) {
	ctx, span := tracing.Start(ctx, "certificate.deliver", attribute.String("certificate.id", cert.ID.String()))
	defer func() { tracing.End(span, err) }()

	if len(pdf) == 0 {
		rendered, err := s.render(cert)
		if err != nil {
			return s.fail(ctx, cert, err), fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
		}
		pdf = rendered
	}

	msg, err := email.CertificateMessage(email.CertificateDetails{
		CertificateID: cert.ID.String(),
		UserName:      cert.UserName,
		UserEmail:     cert.UserEmail,
		CourseName:    cert.CourseName,
		Issued:        cert.CreatedAt,
		PDF:           pdf,
	})
	if err != nil {
		return s.fail(ctx, cert, err), fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	messageID, err := s.mailer.Send(ctx, msg)
	if err != nil {
		return s.fail(ctx, cert, err), fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	sentAt := s.now().UTC()
	// The mail is out, so the status must be recorded even if the caller left.
	if err := Transition(s.db.WithContext(context.WithoutCancel(ctx)), cert.ID, types.CertificatePending, types.CertificateSent, map[string]interface{}{
		"sent_at":    sentAt,
		"message_id": messageID,
	}); err != nil {
		return cert, err
	}
	cert.Status = types.CertificateSent
	cert.SentAt = &sentAt
	cert.MessageID = messageID
	metrics.RecordCertificateTransition(string(types.CertificateSent))

	s.logger.InfoContext(ctx, "certificate sent",
		slog.String("certificateId", cert.ID.String()),
		slog.String("messageId", messageID),
	)
	s.publish(cert)
	return cert, nil
}

// fail records a delivery error on a pending certificate and returns it updated.
func (s *Service) fail(ctx context.Context, cert Certificate, cause error) Certificate {
	reason := cause.Error()
	if err := Transition(s.db.WithContext(context.WithoutCancel(ctx)), cert.ID, types.CertificatePending, types.CertificateFailed, map[string]interface{}{
		"failure_reason": reason,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to record certificate failure",
			slog.String("certificateId", cert.ID.String()),
			slog.String("error", err.Error()),
		)
		return cert
	}
	cert.Status = types.CertificateFailed
	cert.FailureReason = reason
	metrics.RecordCertificateTransition(string(types.CertificateFailed))

	s.logger.WarnContext(ctx, "certificate delivery failed",
		slog.String("certificateId", cert.ID.String()),
		slog.String("error", reason),
	)
	s.publish(cert)
	return cert
}

func (s *Service) document(cert Certificate) certpdf.Certificate {
	return certpdf.Certificate{
		ID:         cert.ID.String(),
		UserName:   cert.UserName,
		CourseName: cert.CourseName,
		Issuer:     s.issuer,
		IssuedAt:   cert.CreatedAt,
	}
}

func (s *Service) render(cert Certificate) ([]byte, error) {
	return certpdf.Render(s.document(cert))
}

func (s *Service) publish(cert Certificate) {
	s.notifier.Notify(cert.UserID, socketio.EventCertificateStatus, map[string]any{
		"certificateId": cert.ID.String(),
		"courseId":      cert.CourseID.String(),
		"status":        cert.Status,
	})
}
