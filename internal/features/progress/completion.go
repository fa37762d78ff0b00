package progress

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/course"
	"github.com/leap-learning/leap-server/internal/features/roadmap"
)

// Completion summarises how far a user is through a course.
type Completion struct {
	Total      int  `json:"totalLessons"`
	Watched    int  `json:"watchedLessons"`
	Percent    int  `json:"percent"`
	HasLessons bool `json:"hasLessons"`
}

// Complete reports whether every lesson of a non-empty course is watched.
func (c Completion) Complete() bool {
	return c.HasLessons && c.Watched == c.Total
}

var hundred = decimal.NewFromInt(100)

// Compute derives completion from a roadmap and a watched map. Keys that are not
// lessons of the roadmap are ignored. The percent is rounded half up and stays
// below 100 until every lesson is watched.
func Compute(rm roadmap.Roadmap, watched map[roadmap.LessonKey]bool) Completion {
	total := rm.TotalLessons()
	if total == 0 {
		return Completion{}
	}

	count := 0
	for _, key := range rm.Lessons() {
		if watched[key] {
			count++
		}
	}

	percent := decimal.NewFromInt(int64(count)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(0).
		IntPart()
	if count < total && percent > 99 {
		percent = 99
	}

	return Completion{
		Total:      total,
		Watched:    count,
		Percent:    int(percent),
		HasLessons: true,
	}
}

// ForCourse loads the user's progress and computes completion for a course.
func ForCourse(db *gorm.DB, userID uuid.UUID, crs course.Course) (Completion, error) {
	rm, err := crs.Chapters()
	if err != nil {
		return Completion{}, err
	}
	watched, err := Map(db, userID, crs.ID)
	if err != nil {
		return Completion{}, err
	}
	return Compute(rm, watched), nil
}

// Eligibility recomputes completion from stored progress and returns nil only
// when the course has lessons and all of them are watched.
func Eligibility(db *gorm.DB, userID, courseID uuid.UUID) (course.Course, Completion, error) {
	crs, err := course.GetOwned(db, courseID, userID)
	if err != nil {
		return course.Course{}, Completion{}, err
	}
	completion, err := ForCourse(db, userID, crs)
	if err != nil {
		return crs, Completion{}, err
	}
	if !completion.HasLessons {
		return crs, completion, ErrNoLessons
	}
	if !completion.Complete() {
		return crs, completion, ErrNotComplete
	}
	return crs, completion, nil
}
