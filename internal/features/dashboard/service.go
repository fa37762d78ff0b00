package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/certificate"
	"github.com/leap-learning/leap-server/internal/features/course"
	"github.com/leap-learning/leap-server/internal/features/progress"
	"github.com/leap-learning/leap-server/pkg/apperrors"
	"github.com/leap-learning/leap-server/pkg/types"
)

// Filter selects which courses the dashboard lists.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterInProgress Filter = "in-progress"
	FilterCompleted  Filter = "completed"
)

// ErrInvalidFilter is returned for an unknown status filter.
var ErrInvalidFilter = apperrors.Validation("status must be one of all, in-progress, completed")

// ParseFilter reads the status query value. Empty means all.
func ParseFilter(raw string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(raw))); f {
	case "", FilterAll:
		return FilterAll, nil
	case FilterInProgress, FilterCompleted:
		return f, nil
	default:
		return "", ErrInvalidFilter
	}
}

// Match reports whether a course with the given completion passes the filter.
func (f Filter) Match(c progress.Completion) bool {
	switch f {
	case FilterCompleted:
		return c.Percent == 100
	case FilterInProgress:
		return c.Percent != 100
	default:
		return true
	}
}

// CourseCard is one course on the dashboard.
type CourseCard struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Level       types.CourseLevel   `json:"level"`
	Duration    string              `json:"duration"`
	Chapters    int                 `json:"chapters"`
	Completion  progress.Completion `json:"completion"`
	Certified   bool                `json:"certified"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// Summary counts the cards of the unfiltered list.
type Summary struct {
	Total        int `json:"total"`
	InProgress   int `json:"inProgress"`
	Completed    int `json:"completed"`
	Certificates int `json:"certificates"`
}

// Courses lists the user's courses with their completion, newest first.
func Courses(db *gorm.DB, userID uuid.UUID, filter Filter) ([]CourseCard, Summary, error) {
	courses, err := course.AllByCreator(db, userID)
	if err != nil {
		return nil, Summary{}, err
	}

	ids := make([]uuid.UUID, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	watched, err := progress.WatchedByCourse(db, userID, ids)
	if err != nil {
		return nil, Summary{}, err
	}
	certified, err := sentCourses(db, userID)
	if err != nil {
		return nil, Summary{}, err
	}

	cards := make([]CourseCard, 0, len(courses))
	var summary Summary
	for _, c := range courses {
		rm, err := c.Chapters()
		if err != nil {
			return nil, Summary{}, fmt.Errorf("course %s: %w", c.ID, err)
		}
		completion := progress.Compute(rm, watched[c.ID])

		summary.Total++
		if completion.Percent == 100 {
			summary.Completed++
		} else {
			summary.InProgress++
		}
		if _, ok := certified[c.ID]; ok {
			summary.Certificates++
		}

		if !filter.Match(completion) {
			continue
		}
		_, isCertified := certified[c.ID]
		cards = append(cards, CourseCard{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Level:       c.Level,
			Duration:    c.Duration,
			Chapters:    len(rm),
			Completion:  completion,
			Certified:   isCertified,
			CreatedAt:   c.CreatedAt,
		})
	}
	return cards, summary, nil
}

func sentCourses(db *gorm.DB, userID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	var ids []uuid.UUID
	if err := db.Model(&certificate.Certificate{}).
		Where("user_id = ? AND status = ?", userID, types.CertificateSent).
		Distinct().
		Pluck("course_id", &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}
