package database

import (
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/pkg/metrics"
)

// ReconnectPlugin watches statement errors and re-establishes the pool after connection loss.
// The failed statement still returns its error; the next one runs on a healthy pool.
type ReconnectPlugin struct {
	logger         *slog.Logger
	maxRetries     int
	retryDelay     time.Duration
	reconnectCount atomic.Int64
	reconnecting   atomic.Bool
}

// NewReconnectPlugin creates a new reconnect plugin.
func NewReconnectPlugin(logger *slog.Logger) *ReconnectPlugin {
	return &ReconnectPlugin{
		logger:     logger,
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
	}
}

// Name returns the plugin name.
func (p *ReconnectPlugin) Name() string {
	return "reconnect_plugin"
}

// Initialize hooks the plugin after every statement type.
func (p *ReconnectPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		name string
		reg  func(string, func(*gorm.DB)) error
	}{
		{"reconnect:after_query", cb.Query().After("gorm:query").Register},
		{"reconnect:after_create", cb.Create().After("gorm:create").Register},
		{"reconnect:after_update", cb.Update().After("gorm:update").Register},
		{"reconnect:after_delete", cb.Delete().After("gorm:delete").Register},
		{"reconnect:after_row", cb.Row().After("gorm:row").Register},
		{"reconnect:after_raw", cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		if err := h.reg(h.name, p.afterStatement); err != nil {
			return err
		}
	}
	return nil
}

func (p *ReconnectPlugin) afterStatement(db *gorm.DB) {
	if db.Error == nil || !shouldReconnect(db.Error) {
		return
	}
	if !p.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer p.reconnecting.Store(false)

	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	p.logger.Warn("database connection lost, attempting to reconnect", slog.String("error", db.Error.Error()))
	if p.attemptReconnect(sqlDB) {
		metrics.RecordDBReconnect()
		return
	}
	p.logger.Error("database reconnection failed after retries")
}

// shouldReconnect determines if an error warrants a reconnection attempt.
func shouldReconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"network is unreachable",
		"connection timed out",
		"bad connection",
		"invalid connection",
		"closed network connection",
		"connection lost",
		"server closed",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// attemptReconnect pings with a linearly growing delay until the pool answers.
func (p *ReconnectPlugin) attemptReconnect(sqlDB *sql.DB) bool {
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		time.Sleep(p.retryDelay * time.Duration(attempt))

		if err := sqlDB.Ping(); err == nil {
			total := p.reconnectCount.Add(1)
			p.logger.Info("database reconnection successful", slog.Int64("total_reconnects", total))
			return true
		}

		p.logger.Warn("reconnection attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", p.maxRetries),
		)
	}
	return false
}

// ReconnectCount returns the total number of successful reconnections.
func (p *ReconnectPlugin) ReconnectCount() int64 {
	return p.reconnectCount.Load()
}
