package content

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/roadmap"
	"github.com/leap-learning/leap-server/pkg/cache"
	"github.com/leap-learning/leap-server/pkg/memory"
	"github.com/leap-learning/leap-server/pkg/metrics"
)

// Tiers a lookup can be answered from, in lookup order.
const (
	TierStore     = "store"
	TierSession   = "session"
	TierDurable   = "durable"
	TierGenerated = "generated"
)

// Entry is a cache hit.
type Entry struct {
	Text string `json:"text"`
	Tier string `json:"source"`
}

// Cache is the single entry point for lesson content. It owns the persisted
// store, the in-process session tier and the durable tier, and every write
// invalidates stale tier entries before storing the new text.
type Cache struct {
	db         *gorm.DB
	session    *memory.Cache
	durable    cache.Client
	durableTTL time.Duration
	logger     *slog.Logger
}

// CacheConfig sets tier lifetimes.
type CacheConfig struct {
	SessionTTL time.Duration
	DurableTTL time.Duration
}

// NewCache builds the content cache. durable may be nil to run without that tier.
func NewCache(db *gorm.DB, durable cache.Client, cfg CacheConfig, logger *slog.Logger) *Cache {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.DurableTTL <= 0 {
		cfg.DurableTTL = 7 * 24 * time.Hour
	}
	return &Cache{
		db:         db,
		session:    memory.New(cfg.SessionTTL),
		durable:    durable,
		durableTTL: cfg.DurableTTL,
		logger:     logger,
	}
}

// Close stops the session tier sweeper.
func (c *Cache) Close() {
	c.session.Close()
}

func coursePrefix(courseID uuid.UUID) string {
	return memory.Key("lesson", courseID.String()) + ":"
}

func tierKey(courseID uuid.UUID, key roadmap.LessonKey) string {
	return coursePrefix(courseID) + key.String()
}

// Lookup checks the store, then the session tier, then the durable tier.
// A miss everywhere returns ErrContentNotFound.
func (c *Cache) Lookup(ctx context.Context, courseID uuid.UUID, key roadmap.LessonKey) (Entry, error) {
	row, err := Find(c.db.WithContext(ctx), courseID, key)
	switch {
	case err == nil:
		metrics.RecordCacheLookup(TierStore, true)
		return Entry{Text: row.Content, Tier: TierStore}, nil
	case !errors.Is(err, ErrContentNotFound):
		return Entry{}, err
	}
	metrics.RecordCacheLookup(TierStore, false)

	tk := tierKey(courseID, key)
	if text, ok := memory.GetAs[string](c.session, tk); ok {
		metrics.RecordCacheLookup(TierSession, true)
		return Entry{Text: text, Tier: TierSession}, nil
	}
	metrics.RecordCacheLookup(TierSession, false)

	if c.durable != nil {
		text, err := c.durable.Get(ctx, tk)
		switch {
		case err == nil:
			metrics.RecordCacheLookup(TierDurable, true)
			c.session.Set(tk, text)
			return Entry{Text: text, Tier: TierDurable}, nil
		case errors.Is(err, cache.ErrMiss):
			metrics.RecordCacheLookup(TierDurable, false)
		default:
			if ctx.Err() != nil {
				return Entry{}, ctx.Err()
			}
			c.logger.WarnContext(ctx, "durable content cache read failed",
				slog.String("courseId", courseID.String()),
				slog.String("lesson", key.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	return Entry{}, ErrContentNotFound
}

// Store writes text to the store and every tier after dropping what they held.
// Only a store failure is returned; tier failures are logged.
func (c *Cache) Store(ctx context.Context, courseID uuid.UUID, key roadmap.LessonKey, text string) error {
	tk := tierKey(courseID, key)
	c.dropTiers(ctx, courseID, key)

	if _, err := Save(c.db.WithContext(ctx), courseID, key, text); err != nil {
		return err
	}

	c.session.Set(tk, text)
	if c.durable != nil {
		if err := c.durable.Set(ctx, tk, text, c.durableTTL); err != nil {
			c.logger.WarnContext(ctx, "durable content cache write failed",
				slog.String("courseId", courseID.String()),
				slog.String("lesson", key.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// Invalidate removes one lesson from every tier and from the store.
func (c *Cache) Invalidate(ctx context.Context, courseID uuid.UUID, key roadmap.LessonKey) error {
	c.dropTiers(ctx, courseID, key)
	return Remove(c.db.WithContext(ctx), courseID, key)
}

// InvalidateCourse removes every lesson of a course from the tiers and the store.
func (c *Cache) InvalidateCourse(ctx context.Context, courseID uuid.UUID) error {
	prefix := coursePrefix(courseID)
	c.session.DeletePrefix(prefix)
	if c.durable != nil {
		if _, err := c.durable.DeletePrefix(ctx, prefix); err != nil {
			return err
		}
	}
	return c.db.WithContext(ctx).Where("course_id = ?", courseID).Delete(&LessonContent{}).Error
}

func (c *Cache) dropTiers(ctx context.Context, courseID uuid.UUID, key roadmap.LessonKey) {
	tk := tierKey(courseID, key)
	c.session.Delete(tk)
	if c.durable == nil {
		return
	}
	if err := c.durable.Delete(ctx, tk); err != nil {
		c.logger.WarnContext(ctx, "durable content cache delete failed",
			slog.String("courseId", courseID.String()),
			slog.String("lesson", key.String()),
			slog.String("error", err.Error()),
		)
	}
}
