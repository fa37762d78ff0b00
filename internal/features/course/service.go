package course

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/roadmap"
)

// Invalidator drops cached lesson content. The content cache implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, courseID uuid.UUID, key roadmap.LessonKey) error
	InvalidateCourse(ctx context.Context, courseID uuid.UUID) error
}

// Service wraps the course store with cache invalidation and implements
// roadmap.Persister.
type Service struct {
	db          *gorm.DB
	invalidator Invalidator
	logger      *slog.Logger
}

// NewService creates a course service. invalidator may be nil.
func NewService(db *gorm.DB, invalidator Invalidator, logger *slog.Logger) *Service {
	return &Service{db: db, invalidator: invalidator, logger: logger}
}

var _ roadmap.Persister = (*Service)(nil)

// CreateCourse stores a finalized draft as a new course.
func (s *Service) CreateCourse(ctx context.Context, draft roadmap.Draft) (uuid.UUID, error) {
	course, err := Create(s.db.WithContext(ctx), CreateInput{
		CreatedBy:        draft.OwnerID,
		Name:             draft.Topic,
		Description:      draft.Description,
		Level:            draft.Level,
		Duration:         draft.Duration,
		UserName:         draft.OwnerName,
		UserProfileImage: draft.OwnerImage,
		IncludeVideos:    draft.IncludeVideos,
		Roadmap:          draft.Roadmap,
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.logger.InfoContext(ctx, "course created",
		slog.String("courseId", course.ID.String()),
		slog.String("userId", draft.OwnerID.String()),
		slog.Int("lessons", draft.Roadmap.TotalLessons()),
	)
	return course.ID, nil
}

// ReplaceRoadmap rewrites an owned course's roadmap and drops cached content for removed lessons.
func (s *Service) ReplaceRoadmap(ctx context.Context, courseID, ownerID uuid.UUID, rm roadmap.Roadmap) error {
	db := s.db.WithContext(ctx)
	if _, err := GetOwned(db, courseID, ownerID); err != nil {
		return err
	}

	pruned, err := ReplaceRoadmap(db, courseID, rm)
	if err != nil {
		return err
	}

	if s.invalidator != nil {
		for _, key := range pruned {
			if err := s.invalidator.Invalidate(ctx, courseID, key); err != nil {
				s.logger.WarnContext(ctx, "failed to invalidate pruned lesson",
					slog.String("courseId", courseID.String()),
					slog.String("lesson", key.String()),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if len(pruned) > 0 {
		s.logger.InfoContext(ctx, "roadmap replaced",
			slog.String("courseId", courseID.String()),
			slog.Int("prunedLessons", len(pruned)),
		)
	}
	return nil
}

// LoadDraft returns an owned course in the shape an editing session starts from.
func (s *Service) LoadDraft(ctx context.Context, courseID, ownerID uuid.UUID) (roadmap.Draft, error) {
	course, err := GetOwned(s.db.WithContext(ctx), courseID, ownerID)
	if err != nil {
		return roadmap.Draft{}, err
	}
	rm, err := course.Chapters()
	if err != nil {
		return roadmap.Draft{}, fmt.Errorf("decode roadmap: %w", err)
	}
	return roadmap.Draft{
		OwnerID:       course.CreatedBy,
		OwnerName:     course.UserName,
		OwnerImage:    course.UserProfileImage,
		Topic:         course.Name,
		Description:   course.Description,
		Level:         course.Level,
		Duration:      course.Duration,
		IncludeVideos: course.IncludeVideos,
		Roadmap:       rm,
	}, nil
}

// Delete removes an owned course with everything attached to it, then clears its cached content.
func (s *Service) Delete(ctx context.Context, courseID, ownerID uuid.UUID) error {
	db := s.db.WithContext(ctx)
	if _, err := GetOwned(db, courseID, ownerID); err != nil {
		return err
	}
	if err := Delete(db, courseID); err != nil {
		return err
	}

	if s.invalidator != nil {
		if err := s.invalidator.InvalidateCourse(ctx, courseID); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate course content",
				slog.String("courseId", courseID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "course deleted",
		slog.String("courseId", courseID.String()),
		slog.String("userId", ownerID.String()),
	)
	return nil
}
