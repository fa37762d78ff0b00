package course_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/certificate"
	"github.com/leap-learning/leap-server/internal/features/content"
	"github.com/leap-learning/leap-server/internal/features/course"
	"github.com/leap-learning/leap-server/internal/features/progress"
	"github.com/leap-learning/leap-server/internal/features/roadmap"
	"github.com/leap-learning/leap-server/internal/features/video"
	"github.com/leap-learning/leap-server/internal/testutil"
	"github.com/leap-learning/leap-server/pkg/logger"
	"github.com/leap-learning/leap-server/pkg/types"
)

func intro() roadmap.Roadmap {
	return roadmap.Roadmap{
		{ID: "1", Title: "Intro", Subtopics: []string{"What is X", "Why X"}},
	}
}

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.NewDB(t,
		&course.Course{},
		&video.Selection{},
		&content.LessonContent{},
		&progress.Entry{},
		&certificate.Certificate{},
	)
}

func create(t *testing.T, db *gorm.DB, owner uuid.UUID, rm roadmap.Roadmap) course.Course {
	t.Helper()
	crs, err := course.Create(db, course.CreateInput{
		CreatedBy: owner,
		Name:      "Intro to X",
		Level:     types.LevelIntroductory,
		Roadmap:   rm,
	})
	require.NoError(t, err)
	return crs
}

// seed writes one row per dependent table for every lesson in the course.
func seed(t *testing.T, db *gorm.DB, crs course.Course, user uuid.UUID) {
	t.Helper()
	rm, err := crs.Chapters()
	require.NoError(t, err)
	for _, key := range rm.Lessons() {
		require.NoError(t, db.Create(&video.Selection{
			CourseID: crs.ID, ChapterTitle: key.Chapter, SubtopicName: key.Subtopic,
			Kind: types.VideoKindVideo, VideoID: "abc123",
		}).Error)
		require.NoError(t, db.Create(&content.LessonContent{
			CourseID: crs.ID, ChapterTitle: key.Chapter, SubtopicName: key.Subtopic,
			Content: "\\section{" + key.Subtopic + "}",
		}).Error)
		_, err := progress.SetWatched(db, user, crs.ID, key, true)
		require.NoError(t, err)
	}
	require.NoError(t, db.Create(&certificate.Certificate{
		UserID: user, CourseID: crs.ID, CourseName: crs.Name,
		UserEmail: "ada@example.com", Status: types.CertificateSent,
	}).Error)
}

func count(t *testing.T, db *gorm.DB, table string, courseID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table(table).Where("course_id = ?", courseID).Count(&n).Error)
	return n
}

type fakeInvalidator struct {
	mu      sync.Mutex
	keys    []roadmap.LessonKey
	courses []uuid.UUID
}

func (f *fakeInvalidator) Invalidate(_ context.Context, _ uuid.UUID, key roadmap.LessonKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeInvalidator) InvalidateCourse(_ context.Context, courseID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.courses = append(f.courses, courseID)
	return nil
}

func TestCreateValidates(t *testing.T) {
	db := newDB(t)

	_, err := course.Create(db, course.CreateInput{CreatedBy: uuid.New(), Name: "  ", Roadmap: intro()})
	assert.ErrorIs(t, err, course.ErrNameRequired)

	_, err = course.Create(db, course.CreateInput{Name: "X", Roadmap: intro()})
	assert.ErrorIs(t, err, course.ErrOwnerRequired)

	_, err = course.Create(db, course.CreateInput{
		CreatedBy: uuid.New(),
		Name:      "X",
		Roadmap: roadmap.Roadmap{
			{Title: "Intro", Subtopics: []string{"A"}},
			{Title: "Intro", Subtopics: []string{"B"}},
		},
	})
	assert.ErrorIs(t, err, roadmap.ErrInvalidRoadmap)
}

func TestCreateAndGetOwned(t *testing.T) {
	db := newDB(t)
	owner := uuid.New()
	crs := create(t, db, owner, intro())

	got, err := course.GetOwned(db, crs.ID, owner)
	require.NoError(t, err)
	rm, err := got.Chapters()
	require.NoError(t, err)
	assert.Equal(t, 2, rm.TotalLessons())

	_, err = course.GetOwned(db, crs.ID, uuid.New())
	assert.ErrorIs(t, err, course.ErrCourseForbidden)

	_, err = course.Get(db, uuid.New())
	assert.ErrorIs(t, err, course.ErrCourseNotFound)
}

func TestCreateAllowsEmptyRoadmap(t *testing.T) {
	db := newDB(t)
	crs := create(t, db, uuid.New(), nil)

	rm, err := crs.Chapters()
	require.NoError(t, err)
	assert.Empty(t, rm)
	assert.JSONEq(t, `[]`, string(crs.Roadmap))
}

func TestListByCreator(t *testing.T) {
	db := newDB(t)
	owner := uuid.New()
	create(t, db, owner, intro())
	create(t, db, owner, intro())
	create(t, db, uuid.New(), intro())

	all, err := course.AllByCreator(db, owner)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteCascades(t *testing.T) {
	db := newDB(t)
	owner := uuid.New()
	crs := create(t, db, owner, intro())
	other := create(t, db, owner, intro())
	seed(t, db, crs, owner)
	seed(t, db, other, owner)

	invalidator := &fakeInvalidator{}
	svc := course.NewService(db, invalidator, logger.Discard())
	require.NoError(t, svc.Delete(t.Context(), crs.ID, owner))

	for _, table := range []string{"user_progress", "course_videos", "course_content", "certificates"} {
		assert.Zero(t, count(t, db, table, crs.ID), table)
		assert.NotZero(t, count(t, db, table, other.ID), table)
	}
	_, err := course.Get(db, crs.ID)
	assert.ErrorIs(t, err, course.ErrCourseNotFound)
	assert.Equal(t, []uuid.UUID{crs.ID}, invalidator.courses)

	assert.ErrorIs(t, svc.Delete(t.Context(), crs.ID, owner), course.ErrCourseNotFound)
}

func TestDeleteRequiresOwner(t *testing.T) {
	db := newDB(t)
	owner := uuid.New()
	crs := create(t, db, owner, intro())
	seed(t, db, crs, owner)

	svc := course.NewService(db, nil, logger.Discard())
	assert.ErrorIs(t, svc.Delete(t.Context(), crs.ID, uuid.New()), course.ErrCourseForbidden)
	assert.Equal(t, int64(2), count(t, db, "course_content", crs.ID))
}

func TestReplaceRoadmapPrunesRemovedLessons(t *testing.T) {
	db := newDB(t)
	owner := uuid.New()
	crs := create(t, db, owner, intro())
	seed(t, db, crs, owner)

	invalidator := &fakeInvalidator{}
	svc := course.NewService(db, invalidator, logger.Discard())
	next := roadmap.Roadmap{
		{ID: "1", Title: "Intro", Subtopics: []string{"What is X"}},
		{ID: "2", Title: "Deeper", Subtopics: []string{"Internals"}},
	}
	require.NoError(t, svc.ReplaceRoadmap(t.Context(), crs.ID, owner, next))

	got, err := course.Get(db, crs.ID)
	require.NoError(t, err)
	rm, err := got.Chapters()
	require.NoError(t, err)
	assert.Equal(t, 2, rm.TotalLessons())

	assert.Equal(t, []roadmap.LessonKey{roadmap.NewLessonKey("Intro", "Why X")}, invalidator.keys)
	assert.Equal(t, int64(1), count(t, db, "course_videos", crs.ID))
	assert.Equal(t, int64(1), count(t, db, "course_content", crs.ID))
	// Progress is kept; completion only counts lessons that are still in the roadmap.
	assert.Equal(t, int64(2), count(t, db, "user_progress", crs.ID))
}

func TestReplaceRoadmapRejectsInvalid(t *testing.T) {
	db := newDB(t)
	owner := uuid.New()
	crs := create(t, db, owner, intro())
	seed(t, db, crs, owner)

	svc := course.NewService(db, nil, logger.Discard())
	err := svc.ReplaceRoadmap(t.Context(), crs.ID, owner, roadmap.Roadmap{{Title: " ", Subtopics: []string{"A"}}})
	assert.ErrorIs(t, err, roadmap.ErrInvalidRoadmap)
	assert.Equal(t, int64(2), count(t, db, "course_content", crs.ID))
}

func TestLoadDraft(t *testing.T) {
	db := newDB(t)
	owner := uuid.New()
	crs := create(t, db, owner, intro())

	svc := course.NewService(db, nil, logger.Discard())
	draft, err := svc.LoadDraft(t.Context(), crs.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "Intro to X", draft.Topic)
	assert.Equal(t, types.LevelIntroductory, draft.Level)
	assert.Equal(t, intro()[0].Subtopics, draft.Roadmap[0].Subtopics)

	_, err = svc.LoadDraft(t.Context(), crs.ID, uuid.New())
	assert.ErrorIs(t, err, course.ErrCourseForbidden)
}

func TestNormalizeRoadmaps(t *testing.T) {
	db := newDB(t)
	owner := uuid.New()
	legacy := create(t, db, owner, nil)
	empty := create(t, db, owner, nil)

	require.NoError(t, db.Model(&course.Course{}).Where("id = ?", legacy.ID).
		UpdateColumn("roadmap", datatypes.JSON(`"[{\"id\":1,\"title\":\"Intro\",\"subtopics\":[\"What is X\"]}]"`)).Error)
	require.NoError(t, db.Model(&course.Course{}).Where("id = ?", empty.ID).
		UpdateColumn("roadmap", datatypes.JSON(`null`)).Error)

	require.NoError(t, course.NormalizeRoadmaps(db))

	got, err := course.Get(db, legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, byte('['), got.Roadmap[0])
	rm, err := got.Chapters()
	require.NoError(t, err)
	require.Len(t, rm, 1)
	assert.Equal(t, "1", rm[0].ID)
	assert.Equal(t, []string{"What is X"}, rm[0].Subtopics)

	got, err = course.Get(db, empty.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(got.Roadmap))
}
