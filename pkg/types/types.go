package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CourseLevel is the difficulty a course was generated for.
type CourseLevel string

const (
	LevelIntroductory CourseLevel = "Introductory"
	LevelBeginner     CourseLevel = "Beginner"
	LevelIntermediate CourseLevel = "Intermediate"
	LevelAdvanced     CourseLevel = "Advanced"
)

// ParseCourseLevel matches a level case-insensitively.
func ParseCourseLevel(value string) (CourseLevel, bool) {
	for _, level := range []CourseLevel{LevelIntroductory, LevelBeginner, LevelIntermediate, LevelAdvanced} {
		if strings.EqualFold(strings.TrimSpace(value), string(level)) {
			return level, true
		}
	}
	return "", false
}

// CertificateStatus is the delivery state of an issued certificate.
type CertificateStatus string

const (
	// CertificateRequested is never stored. It names the state before a row exists.
	CertificateRequested CertificateStatus = "requested"
	CertificatePending   CertificateStatus = "pending"
	CertificateSent      CertificateStatus = "sent"
	CertificateFailed    CertificateStatus = "failed"
)

// VideoKind describes how a lesson's video slot was filled.
type VideoKind string

const (
	VideoKindVideo   VideoKind = "video"
	VideoKindCustom  VideoKind = "custom"
	VideoKindSkipped VideoKind = "skipped"
)

// BaseModel contains common fields for all models
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// TimestampModel contains only timestamp fields (for models with custom IDs)
type TimestampModel struct {
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}
