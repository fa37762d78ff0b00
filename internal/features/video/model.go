package video

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/roadmap"
	"github.com/leap-learning/leap-server/pkg/types"
	"github.com/leap-learning/leap-server/pkg/youtube"
)

// Selection is the persisted video choice for one lesson.
type Selection struct {
	types.BaseModel

	CourseID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_course_videos_lesson,priority:1;column:course_id" json:"courseId"`
	ChapterTitle string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_course_videos_lesson,priority:2;column:chapter_title" json:"chapterTitle"`
	SubtopicName string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_course_videos_lesson,priority:3;column:subtopic_name" json:"subtopicName"`
	Kind         types.VideoKind `gorm:"type:varchar(16);not null" json:"kind"`
	VideoID      string          `gorm:"type:varchar(64);column:video_id" json:"videoId,omitempty"`
	Title        string          `gorm:"type:varchar(255)" json:"title,omitempty"`
	ChannelTitle string          `gorm:"type:varchar(255);column:channel_title" json:"channelTitle,omitempty"`
	ThumbnailURL string          `gorm:"type:text;column:thumbnail_url" json:"thumbnailUrl,omitempty"`
	CustomURL    string          `gorm:"type:text;column:custom_url" json:"customUrl,omitempty"`
}

// TableName overrides the default table name.
func (Selection) TableName() string { return "course_videos" }

// Key returns the lesson the selection belongs to.
func (s Selection) Key() roadmap.LessonKey {
	return roadmap.LessonKey{Chapter: s.ChapterTitle, Subtopic: s.SubtopicName}
}

// PlaybackID is the embeddable identifier for the selection, empty when skipped.
func (s Selection) PlaybackID() string {
	switch s.Kind {
	case types.VideoKindVideo:
		return s.VideoID
	case types.VideoKindCustom:
		return EmbedID(s.CustomURL)
	default:
		return ""
	}
}

// Choice is a user's decision for one lesson.
type Choice struct {
	Kind      types.VideoKind `json:"kind"`
	Video     *youtube.Video  `json:"video,omitempty"`
	CustomURL string          `json:"customUrl,omitempty"`
}

// toSelection validates the choice and builds the row to store.
func (ch Choice) toSelection(courseID uuid.UUID, key roadmap.LessonKey) (Selection, error) {
	sel := Selection{
		CourseID:     courseID,
		ChapterTitle: key.Chapter,
		SubtopicName: key.Subtopic,
		Kind:         ch.Kind,
	}
	switch ch.Kind {
	case types.VideoKindVideo:
		if ch.Video == nil || strings.TrimSpace(ch.Video.ID) == "" {
			return Selection{}, ErrVideoRequired
		}
		sel.VideoID = strings.TrimSpace(ch.Video.ID)
		sel.Title = ch.Video.Title
		sel.ChannelTitle = ch.Video.ChannelTitle
		sel.ThumbnailURL = ch.Video.ThumbnailURL
	case types.VideoKindCustom:
		raw := strings.TrimSpace(ch.CustomURL)
		if raw == "" {
			return Selection{}, ErrCustomURLRequired
		}
		sel.CustomURL = raw
	case types.VideoKindSkipped:
	default:
		return Selection{}, ErrInvalidKind
	}
	return sel, nil
}

// ListByCourse returns every selection for a course.
func ListByCourse(db *gorm.DB, courseID uuid.UUID) ([]Selection, error) {
	var rows []Selection
	err := db.Where("course_id = ?", courseID).
		Order("chapter_title ASC, subtopic_name ASC").
		Find(&rows).Error
	return rows, err
}

// SelectionMap indexes a course's selections by lesson.
func SelectionMap(db *gorm.DB, courseID uuid.UUID) (map[roadmap.LessonKey]Selection, error) {
	rows, err := ListByCourse(db, courseID)
	if err != nil {
		return nil, err
	}
	out := make(map[roadmap.LessonKey]Selection, len(rows))
	for _, row := range rows {
		out[row.Key()] = row
	}
	return out, nil
}

// Get returns the selection stored for one lesson.
func Get(db *gorm.DB, courseID uuid.UUID, key roadmap.LessonKey) (Selection, error) {
	var sel Selection
	err := db.Where("course_id = ? AND chapter_title = ? AND subtopic_name = ?", courseID, key.Chapter, key.Subtopic).
		First(&sel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sel, ErrSelectionNotFound
	}
	return sel, err
}

// Upsert replaces the selection for one lesson.
func Upsert(db *gorm.DB, courseID uuid.UUID, key roadmap.LessonKey, choice Choice) (Selection, error) {
	sel, err := choice.toSelection(courseID, key)
	if err != nil {
		return Selection{}, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := removeLesson(tx, courseID, key); err != nil {
			return err
		}
		return tx.Create(&sel).Error
	})
	if err != nil {
		return Selection{}, err
	}
	return sel, nil
}

// Remove deletes the selection for one lesson. Removing a missing row is not an error.
func Remove(db *gorm.DB, courseID uuid.UUID, key roadmap.LessonKey) error {
	return removeLesson(db, courseID, key)
}

func removeLesson(db *gorm.DB, courseID uuid.UUID, key roadmap.LessonKey) error {
	return db.Where("course_id = ? AND chapter_title = ? AND subtopic_name = ?", courseID, key.Chapter, key.Subtopic).
		Delete(&Selection{}).Error
}

// LessonChoice pairs a lesson with a choice for bulk replacement.
type LessonChoice struct {
	ChapterTitle string `json:"chapterTitle" binding:"required"`
	SubtopicName string `json:"subtopicName" binding:"required"`
	Choice
}

// ReplaceAll swaps every selection of a course for the given set in one transaction.
func ReplaceAll(db *gorm.DB, courseID uuid.UUID, choices []LessonChoice) ([]Selection, error) {
	rows := make([]Selection, 0, len(choices))
	seen := make(map[roadmap.LessonKey]int, len(choices))
	for _, lc := range choices {
		key := roadmap.LessonKey{Chapter: lc.ChapterTitle, Subtopic: lc.SubtopicName}
		sel, err := lc.Choice.toSelection(courseID, key)
		if err != nil {
			return nil, err
		}
		// The last choice for a lesson wins.
		if idx, dup := seen[key]; dup {
			rows[idx] = sel
			continue
		}
		seen[key] = len(rows)
		rows = append(rows, sel)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", courseID).Delete(&Selection{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(&rows, 100).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
