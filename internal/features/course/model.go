package course

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/roadmap"
	"github.com/leap-learning/leap-server/pkg/pagination"
	"github.com/leap-learning/leap-server/pkg/types"
)

// Tables that hold rows keyed by course_id, in the order a course delete clears them.
var cascadeTables = []string{"user_progress", "course_videos", "course_content", "certificates"}

// Tables keyed by lesson whose rows are pruned when their lesson leaves the roadmap.
var lessonTables = []string{"course_videos", "course_content"}

// Course is a generated course and its roadmap.
type Course struct {
	types.BaseModel

	Name             string            `gorm:"type:varchar(200);not null" json:"name"`
	Description      string            `gorm:"type:text" json:"description"`
	Level            types.CourseLevel `gorm:"type:varchar(20);not null" json:"level"`
	Duration         string            `gorm:"type:varchar(50)" json:"duration"`
	CreatedBy        uuid.UUID         `gorm:"type:uuid;not null;index;column:created_by" json:"createdBy"`
	UserName         string            `gorm:"type:varchar(120);column:user_name" json:"userName"`
	UserProfileImage string            `gorm:"type:text;column:user_profile_image" json:"userProfileImage"`
	Roadmap          datatypes.JSON    `gorm:"column:roadmap" json:"-"`
	IncludeVideos    bool              `gorm:"not null;default:false;column:include_videos" json:"includeVideos"`
}

// TableName overrides the default table name.
func (Course) TableName() string { return "course_details" }

// Chapters decodes the stored roadmap. Legacy string-encoded values are accepted.
func (c Course) Chapters() (roadmap.Roadmap, error) {
	return roadmap.Parse(c.Roadmap)
}

// CreateInput carries data for creating a new course.
type CreateInput struct {
	CreatedBy        uuid.UUID
	Name             string
	Description      string
	Level            types.CourseLevel
	Duration         string
	UserName         string
	UserProfileImage string
	IncludeVideos    bool
	Roadmap          roadmap.Roadmap
}

// Get retrieves a course by ID.
func Get(db *gorm.DB, id uuid.UUID) (Course, error) {
	var course Course
	if err := db.First(&course, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return course, ErrCourseNotFound
		}
		return course, err
	}
	return course, nil
}

// GetOwned retrieves a course and checks that ownerID created it.
func GetOwned(db *gorm.DB, id, ownerID uuid.UUID) (Course, error) {
	course, err := Get(db, id)
	if err != nil {
		return course, err
	}
	if course.CreatedBy != ownerID {
		return Course{}, ErrCourseForbidden
	}
	return course, nil
}

// ListByCreator returns the courses a user created, newest first.
func ListByCreator(db *gorm.DB, ownerID uuid.UUID, params pagination.Params) ([]Course, int64, error) {
	query := db.Model(&Course{}).Where("created_by = ?", ownerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []Course
	err := query.
		Order("created_at DESC").
		Scopes(params.Scope).
		Find(&courses).Error

	return courses, total, err
}

// AllByCreator returns every course a user created, newest first.
func AllByCreator(db *gorm.DB, ownerID uuid.UUID) ([]Course, error) {
	var courses []Course
	err := db.Where("created_by = ?", ownerID).Order("created_at DESC").Find(&courses).Error
	return courses, err
}

// Create validates the roadmap and inserts a new course.
func Create(db *gorm.DB, input CreateInput) (Course, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Course{}, ErrNameRequired
	}
	if input.CreatedBy == uuid.Nil {
		return Course{}, ErrOwnerRequired
	}

	rm := input.Roadmap.Compact()
	if err := rm.Validate(); err != nil {
		return Course{}, err
	}

	course := Course{
		Name:             name,
		Description:      strings.TrimSpace(input.Description),
		Level:            input.Level,
		Duration:         strings.TrimSpace(input.Duration),
		CreatedBy:        input.CreatedBy,
		UserName:         input.UserName,
		UserProfileImage: input.UserProfileImage,
		Roadmap:          mustJSON(rm),
		IncludeVideos:    input.IncludeVideos,
	}

	if err := db.Create(&course).Error; err != nil {
		return Course{}, err
	}
	return course, nil
}

// ReplaceRoadmap swaps the roadmap of a course in one transaction and removes
// video and content rows for lessons that no longer exist. It returns the keys
// that were pruned.
func ReplaceRoadmap(db *gorm.DB, id uuid.UUID, rm roadmap.Roadmap) ([]roadmap.LessonKey, error) {
	rm = rm.Compact()
	if err := rm.Validate(); err != nil {
		return nil, err
	}

	var pruned []roadmap.LessonKey
	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Course{}).Where("id = ?", id).Update("roadmap", mustJSON(rm))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrCourseNotFound
		}

		keep := rm.KeySet()
		seen := make(map[roadmap.LessonKey]struct{})
		for _, table := range lessonTables {
			stale, err := staleRows(tx, table, id, keep)
			if err != nil {
				return err
			}
			if len(stale) == 0 {
				continue
			}
			ids := make([]uuid.UUID, 0, len(stale))
			for _, row := range stale {
				ids = append(ids, row.ID)
				key := roadmap.LessonKey{Chapter: row.ChapterTitle, Subtopic: row.SubtopicName}
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					pruned = append(pruned, key)
				}
			}
			if err := tx.Exec("DELETE FROM "+table+" WHERE id IN ?", ids).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pruned, nil
}

type lessonRow struct {
	ID           uuid.UUID
	ChapterTitle string
	SubtopicName string
}

func staleRows(tx *gorm.DB, table string, courseID uuid.UUID, keep map[roadmap.LessonKey]struct{}) ([]lessonRow, error) {
	var rows []lessonRow
	if err := tx.Table(table).
		Select("id", "chapter_title", "subtopic_name").
		Where("course_id = ?", courseID).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stale := rows[:0]
	for _, row := range rows {
		if _, ok := keep[roadmap.LessonKey{Chapter: row.ChapterTitle, Subtopic: row.SubtopicName}]; !ok {
			stale = append(stale, row)
		}
	}
	return stale, nil
}

// Delete removes a course and everything that hangs off it in one transaction:
// progress, videos, content and certificates, then the course row.
func Delete(db *gorm.DB, id uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, table := range cascadeTables {
			if err := tx.Exec("DELETE FROM "+table+" WHERE course_id = ?", id).Error; err != nil {
				return err
			}
		}
		result := tx.Delete(&Course{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrCourseNotFound
		}
		return nil
	})
}

func mustJSON(rm roadmap.Roadmap) datatypes.JSON {
	if rm == nil {
		rm = roadmap.Roadmap{}
	}
	raw, err := json.Marshal(rm)
	if err != nil {
		panic(err)
	}
	return datatypes.JSON(raw)
}
