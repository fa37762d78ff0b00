package roadmap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leap-learning/leap-server/pkg/types"
)

type fakePersister struct {
	created  []Draft
	replaced []Roadmap
	drafts   map[uuid.UUID]Draft
	failNext error
}

func (f *fakePersister) CreateCourse(_ context.Context, d Draft) (uuid.UUID, error) {
	if err := f.takeFailure(); err != nil {
		return uuid.Nil, err
	}
	f.created = append(f.created, d)
	return uuid.New(), nil
}

func (f *fakePersister) ReplaceRoadmap(_ context.Context, _, _ uuid.UUID, rm Roadmap) error {
	if err := f.takeFailure(); err != nil {
		return err
	}
	f.replaced = append(f.replaced, rm)
	return nil
}

func (f *fakePersister) LoadDraft(_ context.Context, courseID, _ uuid.UUID) (Draft, error) {
	d, ok := f.drafts[courseID]
	if !ok {
		return Draft{}, errors.New("course not found")
	}
	return d, nil
}

func (f *fakePersister) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func newTestSession(initial Roadmap) *Session {
	return NewSession(uuid.New(), Options{
		Topic:   "Go",
		Level:   types.LevelBeginner,
		Initial: initial,
	})
}

func TestSessionVersionTracksCommittedChanges(t *testing.T) {
	s := newTestSession(sample())
	assert.Equal(t, 0, s.View().Version)

	view, err := s.Apply(Command{Op: OpAddChapter})
	require.NoError(t, err)
	assert.Equal(t, 1, view.Version)
	assert.Equal(t, 6, view.TotalLessons)
	assert.Len(t, view.Chapters, 4)

	// Opening an edit is not a committed change.
	view, err = s.Apply(Command{Op: OpStartEditChapter, Chapter: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, view.Version)
	require.NotNil(t, view.Editing)
	assert.Equal(t, EditChapter, view.Editing.Kind)
}

func TestSessionApplyErrorKeepsState(t *testing.T) {
	s := newTestSession(sample())
	view, err := s.Apply(Command{Op: OpDeleteChapter, Chapter: 10})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Len(t, view.Chapters, 3)
}

func TestFinalizeCreatesThenReplaces(t *testing.T) {
	p := &fakePersister{}
	s := newTestSession(sample())

	id, err := s.Finalize(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, p.created, 1)
	assert.Equal(t, "Go", p.created[0].Topic)
	assert.Equal(t, 6, p.created[0].Roadmap.TotalLessons())

	_, err = s.Apply(Command{Op: OpDeleteChapter, Chapter: 0})
	require.NoError(t, err)

	again, err := s.Finalize(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Len(t, p.created, 1)
	require.Len(t, p.replaced, 1)
	assert.Len(t, p.replaced[0], 2)
}

func TestFinalizeFailureLeavesSessionRetryable(t *testing.T) {
	p := &fakePersister{failNext: errors.New("db down")}
	s := newTestSession(sample())
	before := s.View()

	_, err := s.Finalize(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create course")

	after := s.View()
	assert.Equal(t, before.Chapters, after.Chapters)
	assert.Nil(t, after.CourseID)

	id, err := s.Finalize(context.Background(), p)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	require.Len(t, p.created, 1)
}

func TestFinalizeDropsPlaceholdersAndValidates(t *testing.T) {
	p := &fakePersister{}
	s := newTestSession(Roadmap{{ID: "1", Title: "Intro", Subtopics: []string{"Setup"}}})
	_, err := s.Apply(Command{Op: OpAddFirstSubtopic, Chapter: 0})
	require.NoError(t, err)

	_, err = s.Finalize(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"Setup"}, p.created[0].Roadmap[0].Subtopics)

	dup := newTestSession(Roadmap{{Title: "A"}, {Title: "A"}})
	_, err = dup.Finalize(context.Background(), p)
	assert.ErrorIs(t, err, ErrInvalidRoadmap)
}

func TestSessionStoreOwnership(t *testing.T) {
	store := NewSessionStore(time.Minute)
	defer store.Close()

	owner, stranger := uuid.New(), uuid.New()
	s := store.Create(owner, Options{Topic: "Go", Level: types.LevelAdvanced})

	got, err := store.Get(owner, s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = store.Get(stranger, s.ID)
	assert.ErrorIs(t, err, ErrSessionForbidden)
	assert.ErrorIs(t, store.Delete(stranger, s.ID), ErrSessionForbidden)

	require.NoError(t, store.Delete(owner, s.ID))
	_, err = store.Get(owner, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
