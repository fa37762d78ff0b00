package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/certificate"
	"github.com/leap-learning/leap-server/internal/features/course"
	"github.com/leap-learning/leap-server/internal/features/progress"
	"github.com/leap-learning/leap-server/internal/features/roadmap"
	"github.com/leap-learning/leap-server/internal/middleware"
	"github.com/leap-learning/leap-server/internal/testutil"
	"github.com/leap-learning/leap-server/pkg/logger"
	"github.com/leap-learning/leap-server/pkg/types"
)

type fixture struct {
	db       *gorm.DB
	owner    uuid.UUID
	done     course.Course
	started  course.Course
	untapped course.Course
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t, &course.Course{}, &progress.Entry{}, &certificate.Certificate{})
	f := &fixture{db: db, owner: uuid.New()}

	mk := func(name string) course.Course {
		crs, err := course.Create(db, course.CreateInput{
			CreatedBy: f.owner,
			Name:      name,
			Level:     types.LevelBeginner,
			Roadmap:   roadmap.Roadmap{{ID: "1", Title: "Intro", Subtopics: []string{"A", "B"}}},
		})
		require.NoError(t, err)
		return crs
	}
	f.done = mk("Done")
	f.started = mk("Started")
	f.untapped = mk("Untapped")

	for _, sub := range []string{"A", "B"} {
		_, err := progress.SetWatched(db, f.owner, f.done.ID, roadmap.NewLessonKey("Intro", sub), true)
		require.NoError(t, err)
	}
	_, err := progress.SetWatched(db, f.owner, f.started.ID, roadmap.NewLessonKey("Intro", "A"), true)
	require.NoError(t, err)
	require.NoError(t, db.Create(&certificate.Certificate{
		UserID: f.owner, CourseID: f.done.ID, CourseName: "Done", Status: types.CertificateSent,
	}).Error)
	return f
}

func names(cards []CourseCard) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.Name)
	}
	return out
}

func TestParseFilter(t *testing.T) {
	for raw, want := range map[string]Filter{
		"":            FilterAll,
		"all":         FilterAll,
		"Completed":   FilterCompleted,
		"in-progress": FilterInProgress,
	} {
		got, err := ParseFilter(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseFilter("done")
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestCoursesFilters(t *testing.T) {
	f := newFixture(t)

	all, summary, err := Courses(f.db, f.owner, FilterAll)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Done", "Started", "Untapped"}, names(all))
	assert.Equal(t, Summary{Total: 3, InProgress: 2, Completed: 1, Certificates: 1}, summary)

	completed, _, err := Courses(f.db, f.owner, FilterCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "Done", completed[0].Name)
	assert.Equal(t, 100, completed[0].Completion.Percent)
	assert.True(t, completed[0].Certified)

	inProgress, _, err := Courses(f.db, f.owner, FilterInProgress)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Started", "Untapped"}, names(inProgress))
	for _, card := range inProgress {
		assert.False(t, card.Certified)
		if card.Name == "Started" {
			assert.Equal(t, 50, card.Completion.Percent)
		}
	}
}

func TestCoursesIsPerUser(t *testing.T) {
	f := newFixture(t)

	cards, summary, err := Courses(f.db, uuid.New(), FilterAll)
	require.NoError(t, err)
	assert.Empty(t, cards)
	assert.Zero(t, summary.Total)
}

func TestHandlerCourses(t *testing.T) {
	f := newFixture(t)
	gin.SetMode(gin.TestMode)
	router := gin.New()
	auth := []gin.HandlerFunc{func(c *gin.Context) {
		middleware.SetUser(c, &middleware.User{ID: f.owner})
	}}
	RegisterRoutes(router.Group("/api"), NewHandler(f.db, logger.Discard()), auth)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/courses?status=completed", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env struct {
		Data struct {
			Status  Filter       `json:"status"`
			Courses []CourseCard `json:"courses"`
			Summary Summary      `json:"summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, FilterCompleted, env.Data.Status)
	assert.Equal(t, []string{"Done"}, names(env.Data.Courses))
	assert.Equal(t, 3, env.Data.Summary.Total)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/courses?status=finished", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
