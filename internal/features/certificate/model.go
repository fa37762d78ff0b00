package certificate

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/pkg/pagination"
	"github.com/leap-learning/leap-server/pkg/types"
)

// Certificate is an issued completion certificate and its delivery state.
type Certificate struct {
	types.BaseModel

	UserID        uuid.UUID               `gorm:"type:uuid;not null;index:idx_certificates_user_course,priority:1;column:user_id" json:"userId"`
	CourseID      uuid.UUID               `gorm:"type:uuid;not null;index:idx_certificates_user_course,priority:2;index;column:course_id" json:"courseId"`
	CourseName    string                  `gorm:"type:varchar(200);not null;column:course_name" json:"courseName"`
	UserName      string                  `gorm:"type:varchar(120);not null;column:user_name" json:"userName"`
	UserEmail     string                  `gorm:"type:varchar(255);not null;column:user_email" json:"userEmail"`
	Status        types.CertificateStatus `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	MessageID     string                  `gorm:"type:varchar(255);column:message_id" json:"messageId,omitempty"`
	FailureReason string                  `gorm:"type:text;column:failure_reason" json:"failureReason,omitempty"`
	SentAt        *time.Time              `gorm:"column:sent_at" json:"sentAt,omitempty"`
}

// TableName overrides the default table name.
func (Certificate) TableName() string { return "certificates" }

// Get retrieves a certificate by ID.
func Get(db *gorm.DB, id uuid.UUID) (Certificate, error) {
	var cert Certificate
	if err := db.First(&cert, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return cert, ErrCertificateNotFound
		}
		return cert, err
	}
	return cert, nil
}

// GetOwned retrieves a certificate issued to userID. Other users' certificates
// are reported as missing.
func GetOwned(db *gorm.DB, id, userID uuid.UUID) (Certificate, error) {
	cert, err := Get(db, id)
	if err != nil {
		return cert, err
	}
	if cert.UserID != userID {
		return Certificate{}, ErrCertificateNotFound
	}
	return cert, nil
}

// ListByUser returns a user's certificates, newest first.
func ListByUser(db *gorm.DB, userID uuid.UUID, params pagination.Params) ([]Certificate, int64, error) {
	query := db.Model(&Certificate{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var certs []Certificate
	err := query.
		Order("created_at DESC").
		Offset(params.Skip).
		Limit(params.Limit).
		Find(&certs).Error
	return certs, total, err
}

// ListByStatus returns up to limit certificates in a status, oldest first.
func ListByStatus(db *gorm.DB, status types.CertificateStatus, limit int) ([]Certificate, error) {
	var certs []Certificate
	err := db.Where("status = ?", status).Order("created_at ASC").Limit(limit).Find(&certs).Error
	return certs, err
}

// HasSent reports whether a user already received a certificate for a course.
func HasSent(db *gorm.DB, userID, courseID uuid.UUID) (bool, error) {
	var count int64
	err := db.Model(&Certificate{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, types.CertificateSent).
		Count(&count).Error
	return count > 0, err
}

// Transition moves a certificate from one status to another. The update is
// conditional on the current status so concurrent callers cannot both win.
func Transition(db *gorm.DB, id uuid.UUID, from, to types.CertificateStatus, fields map[string]interface{}) error {
	if !CanTransition(from, to) {
		return ErrInvalidTransition
	}
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}

	result := db.Model(&Certificate{}).Where("id = ? AND status = ?", id, from).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := Get(db, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

// FailStalePending marks certificates that entered pending before cutoff as
// failed. updated_at is used so a resend of an old certificate is not cut short.
func FailStalePending(db *gorm.DB, cutoff time.Time, reason string) (int64, error) {
	result := db.Model(&Certificate{}).
		Where("status = ? AND updated_at < ?", types.CertificatePending, cutoff).
		Updates(map[string]interface{}{
			"status":         types.CertificateFailed,
			"failure_reason": reason,
		})
	return result.RowsAffected, result.Error
}
