package jobs

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper drops idle rate limit buckets.
type Sweeper interface {
	Sweep(now time.Time) int
}

// RateLimitSweepJob keeps per-key limiter state bounded.
type RateLimitSweepJob struct {
	sweeper Sweeper
	logger  *slog.Logger
	now     func() time.Time
}

// NewRateLimitSweepJob creates a sweep job for the given limiter.
func NewRateLimitSweepJob(sweeper Sweeper, logger *slog.Logger) *RateLimitSweepJob {
	return &RateLimitSweepJob{sweeper: sweeper, logger: logger, now: time.Now}
}

// Name returns the job name.
func (j *RateLimitSweepJob) Name() string {
	return "rate_limit_sweep"
}

// Execute runs one sweep.
func (j *RateLimitSweepJob) Execute(context.Context) error {
	remaining := j.sweeper.Sweep(j.now())
	j.logger.Debug("rate limit buckets swept", "remaining", remaining)
	return nil
}
