package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leap-learning/leap-server/internal/testutil"
	"github.com/leap-learning/leap-server/pkg/logger"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Execute(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestSchedulerRunsJobs(t *testing.T) {
	s := NewScheduler(logger.Discard())
	job := &countingJob{}
	s.AddJob(job, 10*time.Millisecond)

	s.Start()
	assert.Eventually(t, func() bool { return job.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()
	time.Sleep(20 * time.Millisecond)

	stopped := job.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, job.runs.Load())
}

func TestRunOnce(t *testing.T) {
	s := NewScheduler(logger.Discard())
	job := &countingJob{err: errors.New("boom")}
	s.AddJob(job, time.Hour)

	assert.EqualError(t, s.RunOnce("counting"), "boom")
	assert.Equal(t, int32(1), job.runs.Load())
	assert.Error(t, s.RunOnce("missing"))
}

type certificateRow struct {
	ID            string `gorm:"primaryKey"`
	Status        string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (certificateRow) TableName() string { return "certificates" }

func TestStalePendingCertificateJob(t *testing.T) {
	db := testutil.NewDB(t, &certificateRow{})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create([]certificateRow{
		{ID: "old", Status: "pending", CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour)},
		{ID: "fresh", Status: "pending", CreatedAt: now.Add(-time.Minute), UpdatedAt: now.Add(-time.Minute)},
		{ID: "resent", Status: "pending", CreatedAt: now.Add(-48 * time.Hour), UpdatedAt: now.Add(-time.Minute)},
		{ID: "done", Status: "sent", CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour)},
	}).Error)

	job := NewStalePendingCertificateJob(db, 15*time.Minute, logger.Discard())
	job.now = func() time.Time { return now }
	require.NoError(t, job.Execute(context.Background()))

	statuses := map[string]string{}
	var rows []certificateRow
	require.NoError(t, db.Find(&rows).Error)
	for _, r := range rows {
		statuses[r.ID] = r.Status
	}
	assert.Equal(t, map[string]string{"old": "failed", "fresh": "pending", "resent": "pending", "done": "sent"}, statuses)
}

type fakeRedeliverer struct {
	limit int
	sent  int
	err   error
}

func (f *fakeRedeliverer) RedeliverFailed(_ context.Context, limit int) (int, error) {
	f.limit = limit
	return f.sent, f.err
}

func TestFailedCertificateRedeliveryJob(t *testing.T) {
	r := &fakeRedeliverer{sent: 2}
	job := NewFailedCertificateRedeliveryJob(r, 0, logger.Discard())
	require.NoError(t, job.Execute(context.Background()))
	assert.Equal(t, 50, r.limit)

	r.err = errors.New("db down")
	assert.Error(t, job.Execute(context.Background()))
}

type fakeSweeper struct {
	at time.Time
}

func (f *fakeSweeper) Sweep(now time.Time) int {
	f.at = now
	return 3
}

func TestRateLimitSweepJob(t *testing.T) {
	sweeper := &fakeSweeper{}
	job := NewRateLimitSweepJob(sweeper, logger.Discard())
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	require.NoError(t, job.Execute(t.Context()))
	assert.Equal(t, fixed, sweeper.at)
	assert.Equal(t, "rate_limit_sweep", job.Name())
}
