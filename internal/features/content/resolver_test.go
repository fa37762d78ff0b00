package content

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/course"
	"github.com/leap-learning/leap-server/internal/features/generation"
	"github.com/leap-learning/leap-server/internal/features/roadmap"
	"github.com/leap-learning/leap-server/internal/testutil"
	"github.com/leap-learning/leap-server/pkg/cache"
	"github.com/leap-learning/leap-server/pkg/logger"
	"github.com/leap-learning/leap-server/pkg/socketio"
	"github.com/leap-learning/leap-server/pkg/types"
)

type fakeGenerator struct {
	mu       sync.Mutex
	requests []generation.LessonRequest
	err      error

	// When gate is set, each call signals entered and blocks until gate yields.
	entered chan struct{}
	gate    chan struct{}

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (g *fakeGenerator) GenerateLesson(_ context.Context, req generation.LessonRequest) (string, error) {
	n := g.inflight.Add(1)
	defer g.inflight.Add(-1)
	for {
		cur := g.maxInflight.Load()
		if n <= cur || g.maxInflight.CompareAndSwap(cur, n) {
			break
		}
	}

	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if g.gate != nil {
		g.entered <- struct{}{}
		<-g.gate
	}
	if g.err != nil {
		return "", g.err
	}
	return `\section{` + req.SubtopicName + `}` + "\nBody of " + req.SubtopicName, nil
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

type resolverFixture struct {
	db        *gorm.DB
	cache     *Cache
	generator *fakeGenerator
	notifier  *socketio.Recorder
	resolver  *Resolver
	owner     uuid.UUID
	course    course.Course
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	db := testutil.NewDB(t, &course.Course{}, &LessonContent{})
	c := NewCache(db, cache.NewMemoryCache(), CacheConfig{}, logger.Discard())
	t.Cleanup(c.Close)

	owner := uuid.New()
	crs, err := course.Create(db, course.CreateInput{
		CreatedBy:   owner,
		Name:        "Python Basics",
		Description: "Learn python from scratch",
		Level:       types.LevelBeginner,
		Roadmap: roadmap.Roadmap{
			{ID: "1", Title: "Intro", Subtopics: []string{"Setup", "Hello World"}},
			{ID: "2", Title: "Types", Subtopics: []string{"Ints"}},
		},
	})
	require.NoError(t, err)

	gen := &fakeGenerator{}
	rec := &socketio.Recorder{}
	return &resolverFixture{
		db:        db,
		cache:     c,
		generator: gen,
		notifier:  rec,
		resolver:  NewResolver(c, gen, rec, logger.Discard()),
		owner:     owner,
		course:    crs,
	}
}

func (f *resolverFixture) viewer(session string) Viewer {
	return Viewer{UserID: f.owner, SessionID: session}
}

func TestResolveGeneratesOnceThenHitsStore(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()
	key := roadmap.LessonKey{Chapter: "Intro", Subtopic: "Setup"}

	entry, err := f.resolver.Resolve(ctx, f.viewer("s1"), f.course, key)
	require.NoError(t, err)
	assert.Equal(t, TierGenerated, entry.Tier)
	assert.Contains(t, entry.Text, "Body of Setup")

	entry, err = f.resolver.Resolve(ctx, f.viewer("s2"), f.course, key)
	require.NoError(t, err)
	assert.Equal(t, TierStore, entry.Tier)
	assert.Equal(t, 1, f.generator.calls())

	req := f.generator.requests[0]
	assert.Equal(t, "Python Basics", req.CourseName)
	assert.Equal(t, "Learn python from scratch", req.CourseDescription)
	assert.Equal(t, "Beginner", req.Level)
	assert.Equal(t, "Intro", req.ChapterTitle)
	assert.Equal(t, "Setup", req.SubtopicName)

	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, socketio.EventLessonContentReady, events[0].Event)
	assert.Equal(t, f.owner, events[0].UserID)
}

func TestResolveOverviewUsesChapterAsSubtopic(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	_, err := f.resolver.Resolve(ctx, f.viewer(""), f.course, roadmap.OverviewKey("Types"))
	require.NoError(t, err)

	row, err := Find(f.db, f.course.ID, roadmap.LessonKey{Chapter: "Types", Subtopic: "Types"})
	require.NoError(t, err)
	assert.Contains(t, row.Content, "Body of Types")
}

func TestResolveRejectsUnknownLesson(t *testing.T) {
	f := newResolverFixture(t)

	_, err := f.resolver.Resolve(context.Background(), f.viewer("s"), f.course, roadmap.LessonKey{Chapter: "Intro", Subtopic: "Missing"})
	assert.ErrorIs(t, err, ErrUnknownLesson)
	_, err = f.resolver.Resolve(context.Background(), f.viewer("s"), f.course, roadmap.OverviewKey("Missing"))
	assert.ErrorIs(t, err, ErrUnknownLesson)
	assert.Zero(t, f.generator.calls())
}

func TestResolveSerializesGenerationPerSession(t *testing.T) {
	f := newResolverFixture(t)
	f.generator.entered = make(chan struct{}, 2)
	f.generator.gate = make(chan struct{})
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := f.resolver.Resolve(ctx, f.viewer("same"), f.course, roadmap.LessonKey{Chapter: "Intro", Subtopic: "Setup"})
		assert.NoError(t, err)
	}()
	<-f.generator.entered

	go func() {
		defer wg.Done()
		_, err := f.resolver.Resolve(ctx, f.viewer("same"), f.course, roadmap.LessonKey{Chapter: "Types", Subtopic: "Ints"})
		assert.NoError(t, err)
	}()

	select {
	case <-f.generator.entered:
		t.Fatal("second generation started while the first was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	f.generator.gate <- struct{}{}
	<-f.generator.entered
	f.generator.gate <- struct{}{}
	wg.Wait()

	assert.Equal(t, int32(1), f.generator.maxInflight.Load())
	assert.Equal(t, 2, f.generator.calls())
	assert.Zero(t, f.resolver.locks.active())
}

func TestViewerSessionIsScopedToUser(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()

	assert.NotEqual(t, Viewer{UserID: alice, SessionID: "tab"}.session(), Viewer{UserID: bob, SessionID: "tab"}.session())
	assert.NotEqual(t, Viewer{UserID: alice, SessionID: "tab"}.session(), Viewer{UserID: alice, SessionID: "other"}.session())
	assert.Equal(t, Viewer{UserID: alice, SessionID: " tab "}.session(), Viewer{UserID: alice, SessionID: "tab"}.session())
	assert.Equal(t, alice.String(), Viewer{UserID: alice}.session())
}

func TestResolveSharedSessionHeaderDoesNotSerializeUsers(t *testing.T) {
	f := newResolverFixture(t)
	f.generator.entered = make(chan struct{}, 2)
	f.generator.gate = make(chan struct{})
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := f.resolver.Resolve(ctx, f.viewer("shared"), f.course, roadmap.LessonKey{Chapter: "Intro", Subtopic: "Setup"})
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		other := Viewer{UserID: uuid.New(), SessionID: "shared"}
		_, err := f.resolver.Resolve(ctx, other, f.course, roadmap.LessonKey{Chapter: "Types", Subtopic: "Ints"})
		assert.NoError(t, err)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-f.generator.entered:
		case <-time.After(time.Second):
			t.Fatal("generation for another user waited on a foreign session")
		}
	}
	f.generator.gate <- struct{}{}
	f.generator.gate <- struct{}{}
	wg.Wait()

	assert.Equal(t, int32(2), f.generator.maxInflight.Load())
}

func TestResolveSameLessonTwiceGeneratesOnce(t *testing.T) {
	f := newResolverFixture(t)
	f.generator.entered = make(chan struct{}, 2)
	f.generator.gate = make(chan struct{})
	ctx := context.Background()
	key := roadmap.LessonKey{Chapter: "Intro", Subtopic: "Hello World"}

	results := make(chan Entry, 2)
	for i := 0; i < 2; i++ {
		go func() {
			entry, err := f.resolver.Resolve(ctx, f.viewer("same"), f.course, key)
			assert.NoError(t, err)
			results <- entry
		}()
	}

	<-f.generator.entered
	f.generator.gate <- struct{}{}

	tiers := []string{(<-results).Tier, (<-results).Tier}
	assert.ElementsMatch(t, []string{TierGenerated, TierStore}, tiers)
	assert.Equal(t, 1, f.generator.calls())
}

func TestResolveDropsResultAfterCancellation(t *testing.T) {
	f := newResolverFixture(t)
	f.generator.entered = make(chan struct{}, 1)
	f.generator.gate = make(chan struct{})
	key := roadmap.LessonKey{Chapter: "Intro", Subtopic: "Setup"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.resolver.Resolve(ctx, f.viewer("s"), f.course, key)
		done <- err
	}()

	<-f.generator.entered
	cancel()
	f.generator.gate <- struct{}{}

	assert.ErrorIs(t, <-done, context.Canceled)
	_, err := Find(f.db, f.course.ID, key)
	assert.ErrorIs(t, err, ErrContentNotFound)
	_, err = f.cache.Lookup(context.Background(), f.course.ID, key)
	assert.ErrorIs(t, err, ErrContentNotFound)
	assert.Empty(t, f.notifier.Events())
}

func TestResolveWaitingRequestHonoursCancellation(t *testing.T) {
	f := newResolverFixture(t)
	f.generator.entered = make(chan struct{}, 1)
	f.generator.gate = make(chan struct{})

	go func() {
		_, _ = f.resolver.Resolve(context.Background(), f.viewer("s"), f.course, roadmap.LessonKey{Chapter: "Intro", Subtopic: "Setup"})
	}()
	<-f.generator.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.resolver.Resolve(ctx, f.viewer("s"), f.course, roadmap.LessonKey{Chapter: "Types", Subtopic: "Ints"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	f.generator.gate <- struct{}{}
	assert.Eventually(t, func() bool { return f.resolver.locks.active() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, f.generator.calls())
}

func TestResolvePropagatesGenerationErrors(t *testing.T) {
	f := newResolverFixture(t)
	f.generator.err = generation.AsAppError(generation.ErrOverloaded)

	_, err := f.resolver.Resolve(context.Background(), f.viewer("s"), f.course, roadmap.LessonKey{Chapter: "Intro", Subtopic: "Setup"})
	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrOverloaded)

	_, err = Find(f.db, f.course.ID, roadmap.LessonKey{Chapter: "Intro", Subtopic: "Setup"})
	assert.ErrorIs(t, err, ErrContentNotFound)
}

func TestRegenerateOverwrites(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()
	key := roadmap.LessonKey{Chapter: "Intro", Subtopic: "Setup"}

	require.NoError(t, f.cache.Store(ctx, f.course.ID, key, "stale text"))

	entry, err := f.resolver.Regenerate(ctx, f.viewer("s"), f.course, key)
	require.NoError(t, err)
	assert.Equal(t, TierGenerated, entry.Tier)

	entry, err = f.cache.Lookup(ctx, f.course.ID, key)
	require.NoError(t, err)
	assert.Contains(t, entry.Text, "Body of Setup")
	assert.Equal(t, 1, f.generator.calls())
}
