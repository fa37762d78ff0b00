package roadmap

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leap-learning/leap-server/pkg/memory"
	"github.com/leap-learning/leap-server/pkg/types"
)

// Draft is what a finalized session hands to the persistence layer.
type Draft struct {
	OwnerID       uuid.UUID
	OwnerName     string
	OwnerImage    string
	Topic         string
	Description   string
	Level         types.CourseLevel
	Duration      string
	IncludeVideos bool
	Roadmap       Roadmap
}

// Persister stores finalized roadmaps and loads existing ones for re-editing.
type Persister interface {
	CreateCourse(ctx context.Context, draft Draft) (uuid.UUID, error)
	ReplaceRoadmap(ctx context.Context, courseID, ownerID uuid.UUID, rm Roadmap) error
	LoadDraft(ctx context.Context, courseID, ownerID uuid.UUID) (Draft, error)
}

// Generator produces an initial roadmap for a topic and level.
type Generator interface {
	GenerateRoadmap(ctx context.Context, topic string, level types.CourseLevel) (Roadmap, error)
}

// Options describe a new editing session.
type Options struct {
	Topic         string
	Description   string
	Level         types.CourseLevel
	Duration      string
	IncludeVideos bool
	CourseID      *uuid.UUID
	Initial       Roadmap
	OwnerName     string
	OwnerImage    string
}

// Session is one user's in-progress roadmap edit. It is passed explicitly to
// every operation and owns its editor; all access goes through its mutex.
type Session struct {
	mu sync.Mutex

	ID            string
	UserID        uuid.UUID
	Topic         string
	Description   string
	Level         types.CourseLevel
	Duration      string
	IncludeVideos bool
	OwnerName     string
	OwnerImage    string
	CourseID      *uuid.UUID
	CreatedAt     time.Time

	editor   *Editor
	snapshot Roadmap
	version  int
}

// View is the serializable state of a session.
type View struct {
	ID            string            `json:"sessionId"`
	Topic         string            `json:"topic"`
	Description   string            `json:"description,omitempty"`
	Level         types.CourseLevel `json:"level"`
	IncludeVideos bool              `json:"includeVideos"`
	CourseID      *uuid.UUID        `json:"courseId,omitempty"`
	Chapters      Roadmap           `json:"chapters"`
	Expanded      []string          `json:"expanded"`
	Editing       *EditState        `json:"editing,omitempty"`
	TotalLessons  int               `json:"totalLessons"`
	Version       int               `json:"version"`
}

// NewSession builds a session around a fresh editor.
func NewSession(userID uuid.UUID, opts Options) *Session {
	s := &Session{
		ID:            uuid.NewString(),
		UserID:        userID,
		Topic:         strings.TrimSpace(opts.Topic),
		Description:   strings.TrimSpace(opts.Description),
		Level:         opts.Level,
		Duration:      opts.Duration,
		IncludeVideos: opts.IncludeVideos,
		OwnerName:     opts.OwnerName,
		OwnerImage:    opts.OwnerImage,
		CourseID:      opts.CourseID,
		CreatedAt:     time.Now().UTC(),
		editor:        NewEditor(opts.Initial),
	}
	s.snapshot = s.editor.Chapters()
	s.editor.Subscribe(func(rm Roadmap) {
		s.snapshot = rm
		s.version++
	})
	return s
}

// Apply runs one command and returns the resulting view.
func (s *Session) Apply(cmd Command) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editor.Apply(cmd); err != nil {
		return s.viewLocked(), err
	}
	return s.viewLocked(), nil
}

// View returns the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	return View{
		ID:            s.ID,
		Topic:         s.Topic,
		Description:   s.Description,
		Level:         s.Level,
		IncludeVideos: s.IncludeVideos,
		CourseID:      s.CourseID,
		Chapters:      s.snapshot.Clone(),
		Expanded:      s.editor.Expanded(),
		Editing:       s.editor.Editing(),
		TotalLessons:  s.snapshot.TotalLessons(),
		Version:       s.version,
	}
}

// Finalize persists the current snapshot. A new course is created on the first
// call; later calls replace the roadmap of that course. On error the session is
// left untouched so the user can retry.
func (s *Session) Finalize(ctx context.Context, p Persister) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rm := s.snapshot.Compact()
	if err := rm.Validate(); err != nil {
		return uuid.Nil, err
	}

	if s.CourseID != nil {
		if err := p.ReplaceRoadmap(ctx, *s.CourseID, s.UserID, rm); err != nil {
			return uuid.Nil, fmt.Errorf("replace roadmap: %w", err)
		}
		return *s.CourseID, nil
	}

	id, err := p.CreateCourse(ctx, Draft{
		OwnerID:       s.UserID,
		OwnerName:     s.OwnerName,
		OwnerImage:    s.OwnerImage,
		Topic:         s.Topic,
		Description:   s.Description,
		Level:         s.Level,
		Duration:      s.Duration,
		IncludeVideos: s.IncludeVideos,
		Roadmap:       rm,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("create course: %w", err)
	}
	s.CourseID = &id
	return id, nil
}

// SessionStore keeps sessions in a TTL cache. Each access refreshes the TTL.
type SessionStore struct {
	cache *memory.Cache
}

// NewSessionStore creates a store whose idle sessions expire after ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{cache: memory.New(ttl)}
}

func sessionKey(id string) string {
	return memory.Key("roadmap-session", id)
}

// Create starts and stores a session.
func (st *SessionStore) Create(userID uuid.UUID, opts Options) *Session {
	s := NewSession(userID, opts)
	st.cache.Set(sessionKey(s.ID), s)
	return s
}

// Get returns the session if it exists and belongs to userID.
func (st *SessionStore) Get(userID uuid.UUID, id string) (*Session, error) {
	s, ok := memory.GetAs[*Session](st.cache, sessionKey(id))
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.UserID != userID {
		return nil, ErrSessionForbidden
	}
	st.cache.Touch(sessionKey(id))
	return s, nil
}

// Delete discards a session owned by userID.
func (st *SessionStore) Delete(userID uuid.UUID, id string) error {
	if _, err := st.Get(userID, id); err != nil {
		return err
	}
	st.cache.Delete(sessionKey(id))
	return nil
}

// Close stops the store's background sweeper.
func (st *SessionStore) Close() {
	st.cache.Close()
}
