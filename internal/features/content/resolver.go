package content

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/leap-learning/leap-server/internal/features/course"
	"github.com/leap-learning/leap-server/internal/features/generation"
	"github.com/leap-learning/leap-server/internal/features/roadmap"
	"github.com/leap-learning/leap-server/pkg/socketio"
)

// Generator produces the text of one lesson.
type Generator interface {
	GenerateLesson(ctx context.Context, req generation.LessonRequest) (string, error)
}

// Viewer identifies who is reading: the user and their viewer session.
type Viewer struct {
	UserID    uuid.UUID
	SessionID string
}

// session is the lock key. The client-chosen session id is scoped to the user
// so two users cannot share a slot.
func (v Viewer) session() string {
	if s := strings.TrimSpace(v.SessionID); s != "" {
		return v.UserID.String() + ":" + s
	}
	return v.UserID.String()
}

// Resolver finds lesson content, generating it on a miss. Generation is
// serialized per viewer session.
type Resolver struct {
	cache     *Cache
	generator Generator
	notifier  socketio.Notifier
	locks     *sessionLocks
	logger    *slog.Logger
}

// NewResolver creates a resolver. notifier may be nil.
func NewResolver(cache *Cache, generator Generator, notifier socketio.Notifier, logger *slog.Logger) *Resolver {
	if notifier == nil {
		notifier = socketio.Nop{}
	}
	return &Resolver{
		cache:     cache,
		generator: generator,
		notifier:  notifier,
		locks:     newSessionLocks(),
		logger:    logger,
	}
}

// Resolve returns the content of a lesson from the first tier that has it, or
// generates and stores it. A cancelled request never writes its result.
func (r *Resolver) Resolve(ctx context.Context, viewer Viewer, c course.Course, key roadmap.LessonKey) (Entry, error) {
	if err := checkLesson(c, key); err != nil {
		return Entry{}, err
	}

	entry, err := r.cache.Lookup(ctx, c.ID, key)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, ErrContentNotFound) {
		return Entry{}, err
	}

	release, err := r.locks.acquire(ctx, viewer.session())
	if err != nil {
		return Entry{}, err
	}
	defer release()

	// Another request of this session may have produced it while we waited.
	entry, err = r.cache.Lookup(ctx, c.ID, key)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, ErrContentNotFound) {
		return Entry{}, err
	}

	return r.generate(ctx, viewer, c, key)
}

// Regenerate drops any stored content for the lesson and generates it again.
func (r *Resolver) Regenerate(ctx context.Context, viewer Viewer, c course.Course, key roadmap.LessonKey) (Entry, error) {
	if err := checkLesson(c, key); err != nil {
		return Entry{}, err
	}

	release, err := r.locks.acquire(ctx, viewer.session())
	if err != nil {
		return Entry{}, err
	}
	defer release()

	if err := r.cache.Invalidate(ctx, c.ID, key); err != nil {
		return Entry{}, err
	}
	return r.generate(ctx, viewer, c, key)
}

func (r *Resolver) generate(ctx context.Context, viewer Viewer, c course.Course, key roadmap.LessonKey) (Entry, error) {
	text, err := r.generator.GenerateLesson(ctx, generation.LessonRequest{
		CourseName:        c.Name,
		CourseDescription: c.Description,
		Level:             string(c.Level),
		ChapterTitle:      key.Chapter,
		SubtopicName:      key.Subtopic,
	})
	if err != nil {
		return Entry{}, err
	}
	if ctx.Err() != nil {
		r.logger.InfoContext(ctx, "lesson generation abandoned",
			slog.String("courseId", c.ID.String()),
			slog.String("lesson", key.String()),
		)
		return Entry{}, ctx.Err()
	}

	if err := r.cache.Store(ctx, c.ID, key, text); err != nil {
		return Entry{}, err
	}

	r.notifier.Notify(viewer.UserID, socketio.EventLessonContentReady, map[string]any{
		"courseId":     c.ID,
		"chapterTitle": key.Chapter,
		"subtopicName": key.Subtopic,
	})
	r.logger.InfoContext(ctx, "lesson content generated",
		slog.String("courseId", c.ID.String()),
		slog.String("lesson", key.String()),
		slog.Int("length", len(text)),
	)
	return Entry{Text: text, Tier: TierGenerated}, nil
}

func checkLesson(c course.Course, key roadmap.LessonKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	rm, err := c.Chapters()
	if err != nil {
		return err
	}
	if !rm.Contains(key) {
		return ErrUnknownLesson
	}
	return nil
}

// sessionLocks hands out one slot per viewer session.
type sessionLocks struct {
	mu    sync.Mutex
	slots map[string]*sessionSlot
}

type sessionSlot struct {
	ch   chan struct{}
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{slots: make(map[string]*sessionSlot)}
}

// acquire waits for the session's slot or for ctx to end.
func (l *sessionLocks) acquire(ctx context.Context, session string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[session]
	if !ok {
		slot = &sessionSlot{ch: make(chan struct{}, 1)}
		l.slots[session] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(session, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.drop(session, slot)
		})
	}, nil
}

func (l *sessionLocks) drop(session string, slot *sessionSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, session)
	}
}

func (l *sessionLocks) active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
