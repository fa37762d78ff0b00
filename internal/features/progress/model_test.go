package progress

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/course"
	"github.com/leap-learning/leap-server/internal/features/roadmap"
	"github.com/leap-learning/leap-server/internal/testutil"
	"github.com/leap-learning/leap-server/pkg/types"
)

type fixture struct {
	db     *gorm.DB
	owner  uuid.UUID
	course course.Course
}

func newFixture(t *testing.T, rm roadmap.Roadmap) *fixture {
	t.Helper()
	db := testutil.NewDB(t, &course.Course{}, &Entry{})
	owner := uuid.New()
	crs, err := course.Create(db, course.CreateInput{
		CreatedBy: owner,
		Name:      "X",
		Level:     types.LevelBeginner,
		Roadmap:   rm,
	})
	require.NoError(t, err)
	return &fixture{db: db, owner: owner, course: crs}
}

func TestSetWatchedUpserts(t *testing.T) {
	f := newFixture(t, intro())
	key := roadmap.NewLessonKey("Intro", "Why X")

	entry, err := SetWatched(f.db, f.owner, f.course.ID, key, true)
	require.NoError(t, err)
	require.NotNil(t, entry.WatchedAt)

	_, err = SetWatched(f.db, f.owner, f.course.ID, key, false)
	require.NoError(t, err)

	entries, err := List(f.db, f.owner, f.course.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].IsWatched)
	assert.Nil(t, entries[0].WatchedAt)

	_, err = SetWatched(f.db, f.owner, f.course.ID, key, true)
	require.NoError(t, err)
	watched, err := Map(f.db, f.owner, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, map[roadmap.LessonKey]bool{key: true}, watched)
}

func TestMapIsPerUser(t *testing.T) {
	f := newFixture(t, intro())
	other := uuid.New()

	_, err := SetWatched(f.db, other, f.course.ID, roadmap.NewLessonKey("Intro", "Why X"), true)
	require.NoError(t, err)

	watched, err := Map(f.db, f.owner, f.course.ID)
	require.NoError(t, err)
	assert.Empty(t, watched)
}

func TestWatchedByCourse(t *testing.T) {
	f := newFixture(t, intro())
	second, err := course.Create(f.db, course.CreateInput{
		CreatedBy: f.owner,
		Name:      "Y",
		Level:     types.LevelAdvanced,
		Roadmap:   intro(),
	})
	require.NoError(t, err)

	_, err = SetWatched(f.db, f.owner, f.course.ID, roadmap.NewLessonKey("Intro", "Why X"), true)
	require.NoError(t, err)
	_, err = SetWatched(f.db, f.owner, second.ID, roadmap.NewLessonKey("Intro", "Why X"), false)
	require.NoError(t, err)

	byCourse, err := WatchedByCourse(f.db, f.owner, []uuid.UUID{f.course.ID, second.ID})
	require.NoError(t, err)
	assert.Len(t, byCourse[f.course.ID], 1)
	assert.Empty(t, byCourse[second.ID])

	empty, err := WatchedByCourse(f.db, f.owner, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEligibility(t *testing.T) {
	f := newFixture(t, intro())

	_, completion, err := Eligibility(f.db, f.owner, f.course.ID)
	assert.ErrorIs(t, err, ErrNotComplete)
	assert.Equal(t, 0, completion.Percent)

	_, err = SetWatched(f.db, f.owner, f.course.ID, roadmap.NewLessonKey("Intro", "What is X"), true)
	require.NoError(t, err)
	_, completion, err = Eligibility(f.db, f.owner, f.course.ID)
	assert.ErrorIs(t, err, ErrNotComplete)
	assert.Equal(t, 50, completion.Percent)

	_, err = SetWatched(f.db, f.owner, f.course.ID, roadmap.NewLessonKey("Intro", "Why X"), true)
	require.NoError(t, err)
	crs, completion, err := Eligibility(f.db, f.owner, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, completion.Percent)
	assert.Equal(t, f.course.ID, crs.ID)
}

func TestEligibilityErrors(t *testing.T) {
	f := newFixture(t, roadmap.Roadmap{{ID: "1", Title: "Empty"}})

	_, _, err := Eligibility(f.db, f.owner, f.course.ID)
	assert.ErrorIs(t, err, ErrNoLessons)

	_, _, err = Eligibility(f.db, uuid.New(), f.course.ID)
	assert.ErrorIs(t, err, course.ErrCourseForbidden)

	_, _, err = Eligibility(f.db, f.owner, uuid.New())
	assert.ErrorIs(t, err, course.ErrCourseNotFound)
}
