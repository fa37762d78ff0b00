package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

// StalePendingCertificateJob fails certificates that stayed pending longer
// than the timeout, so a resend has a failed record to act on. Time in pending
// is measured from the last status change.
type StalePendingCertificateJob struct {
	db      *gorm.DB
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewStalePendingCertificateJob creates a new stale pending certificate job.
func NewStalePendingCertificateJob(db *gorm.DB, timeout time.Duration, logger *slog.Logger) *StalePendingCertificateJob {
	return &StalePendingCertificateJob{db: db, timeout: timeout, logger: logger, now: time.Now}
}

// Name returns the job name.
func (j *StalePendingCertificateJob) Name() string {
	return "certificate_stale_pending"
}

// Execute marks old pending certificates as failed.
func (j *StalePendingCertificateJob) Execute(ctx context.Context) error {
	now := j.now()
	cutoff := now.Add(-j.timeout)
	reason := fmt.Sprintf("delivery not confirmed within %s", j.timeout)

	result := j.db.WithContext(ctx).
		Exec(`UPDATE certificates
			  SET status = 'failed', failure_reason = ?, updated_at = ?
			  WHERE status = 'pending' AND updated_at < ?`, reason, now, cutoff)
	if result.Error != nil {
		return fmt.Errorf("failed to expire pending certificates: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		j.logger.Info("expired pending certificates", "count", result.RowsAffected)
	}
	return nil
}

// Redeliverer retries failed certificate deliveries.
type Redeliverer interface {
	RedeliverFailed(ctx context.Context, limit int) (int, error)
}

// FailedCertificateRedeliveryJob resends certificates whose delivery failed.
type FailedCertificateRedeliveryJob struct {
	redeliverer Redeliverer
	batch       int
	logger      *slog.Logger
}

// NewFailedCertificateRedeliveryJob creates a new redelivery job.
func NewFailedCertificateRedeliveryJob(redeliverer Redeliverer, batch int, logger *slog.Logger) *FailedCertificateRedeliveryJob {
	if batch <= 0 {
		batch = 50
	}
	return &FailedCertificateRedeliveryJob{redeliverer: redeliverer, batch: batch, logger: logger}
}

// Name returns the job name.
func (j *FailedCertificateRedeliveryJob) Name() string {
	return "certificate_redelivery"
}

// Execute resends one batch of failed certificates.
func (j *FailedCertificateRedeliveryJob) Execute(ctx context.Context) error {
	sent, err := j.redeliverer.RedeliverFailed(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("failed to redeliver certificates: %w", err)
	}
	if sent > 0 {
		j.logger.Info("redelivered certificates", "count", sent)
	}
	return nil
}
