package content

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/leap-learning/leap-server/internal/features/roadmap"
	"github.com/leap-learning/leap-server/pkg/types"
)

// LessonContent is the generated text of one lesson. A row whose subtopic
// equals its chapter title holds the chapter overview.
type LessonContent struct {
	types.BaseModel

	CourseID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_course_content_lesson,priority:1;column:course_id" json:"courseId"`
	ChapterTitle string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_course_content_lesson,priority:2;column:chapter_title" json:"chapterTitle"`
	SubtopicName string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_course_content_lesson,priority:3;column:subtopic_name" json:"subtopicName"`
	Content      string    `gorm:"type:text;not null" json:"content"`
}

// TableName overrides the default table name.
func (LessonContent) TableName() string { return "course_content" }

// Find returns the stored content for one lesson.
func Find(db *gorm.DB, courseID uuid.UUID, key roadmap.LessonKey) (LessonContent, error) {
	var row LessonContent
	err := db.Where("course_id = ? AND chapter_title = ? AND subtopic_name = ?", courseID, key.Chapter, key.Subtopic).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, ErrContentNotFound
	}
	return row, err
}

// ListByCourse returns every stored lesson of a course.
func ListByCourse(db *gorm.DB, courseID uuid.UUID) ([]LessonContent, error) {
	var rows []LessonContent
	err := db.Where("course_id = ?", courseID).Order("chapter_title ASC, subtopic_name ASC").Find(&rows).Error
	return rows, err
}

// Save inserts or overwrites the content of one lesson.
func Save(db *gorm.DB, courseID uuid.UUID, key roadmap.LessonKey, text string) (LessonContent, error) {
	if strings.TrimSpace(text) == "" {
		return LessonContent{}, ErrEmptyContent
	}
	row := LessonContent{
		CourseID:     courseID,
		ChapterTitle: key.Chapter,
		SubtopicName: key.Subtopic,
		Content:      text,
	}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "course_id"}, {Name: "chapter_title"}, {Name: "subtopic_name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"content":    text,
			"updated_at": time.Now(),
		}),
	}).Create(&row).Error
	if err != nil {
		return LessonContent{}, err
	}
	return row, nil
}

// Remove deletes the stored content for one lesson.
func Remove(db *gorm.DB, courseID uuid.UUID, key roadmap.LessonKey) error {
	return db.Where("course_id = ? AND chapter_title = ? AND subtopic_name = ?", courseID, key.Chapter, key.Subtopic).
		Delete(&LessonContent{}).Error
}
