package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/leap-learning/leap-server/internal/features/roadmap"
	"github.com/leap-learning/leap-server/pkg/types"
)

// Entry is the watched state of one lesson for one user.
type Entry struct {
	types.BaseModel

	UserID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_progress_lesson,priority:1;column:user_id" json:"userId"`
	CourseID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_progress_lesson,priority:2;index;column:course_id" json:"courseId"`
	ChapterTitle string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_user_progress_lesson,priority:3;column:chapter_title" json:"chapterTitle"`
	SubtopicName string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_user_progress_lesson,priority:4;column:subtopic_name" json:"subtopicName"`
	IsWatched    bool       `gorm:"not null;default:false;column:is_watched" json:"isWatched"`
	WatchedAt    *time.Time `gorm:"column:watched_at" json:"watchedAt,omitempty"`
}

// TableName overrides the default table name.
func (Entry) TableName() string { return "user_progress" }

// Key returns the lesson the entry belongs to.
func (e Entry) Key() roadmap.LessonKey {
	return roadmap.LessonKey{Chapter: e.ChapterTitle, Subtopic: e.SubtopicName}
}

// SetWatched upserts the watched flag of a lesson. WatchedAt is set when the
// lesson is marked watched and cleared otherwise.
func SetWatched(db *gorm.DB, userID, courseID uuid.UUID, key roadmap.LessonKey, watched bool) (Entry, error) {
	entry := Entry{
		UserID:       userID,
		CourseID:     courseID,
		ChapterTitle: key.Chapter,
		SubtopicName: key.Subtopic,
		IsWatched:    watched,
	}
	if watched {
		now := time.Now().UTC()
		entry.WatchedAt = &now
	}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "course_id"}, {Name: "chapter_title"}, {Name: "subtopic_name"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"is_watched", "watched_at", "updated_at"}),
	}).Create(&entry).Error
	return entry, err
}

// List returns a user's entries for a course.
func List(db *gorm.DB, userID, courseID uuid.UUID) ([]Entry, error) {
	var entries []Entry
	err := db.Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("chapter_title ASC, subtopic_name ASC").
		Find(&entries).Error
	return entries, err
}

// Map returns the watched state of every lesson a user has touched in a course.
func Map(db *gorm.DB, userID, courseID uuid.UUID) (map[roadmap.LessonKey]bool, error) {
	entries, err := List(db, userID, courseID)
	if err != nil {
		return nil, err
	}
	watched := make(map[roadmap.LessonKey]bool, len(entries))
	for _, e := range entries {
		watched[e.Key()] = e.IsWatched
	}
	return watched, nil
}

// WatchedByCourse returns, per course, the lessons a user marked watched.
// Lessons that left the roadmap are still counted here; Compute filters them.
func WatchedByCourse(db *gorm.DB, userID uuid.UUID, courseIDs []uuid.UUID) (map[uuid.UUID]map[roadmap.LessonKey]bool, error) {
	out := make(map[uuid.UUID]map[roadmap.LessonKey]bool, len(courseIDs))
	if len(courseIDs) == 0 {
		return out, nil
	}
	var entries []Entry
	if err := db.Where("user_id = ? AND course_id IN ? AND is_watched = ?", userID, courseIDs, true).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	for _, e := range entries {
		if out[e.CourseID] == nil {
			out[e.CourseID] = make(map[roadmap.LessonKey]bool)
		}
		out[e.CourseID][e.Key()] = true
	}
	return out, nil
}
