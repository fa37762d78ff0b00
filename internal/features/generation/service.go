package generation

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/leap-learning/leap-server/internal/features/roadmap"
	"github.com/leap-learning/leap-server/pkg/apperrors"
	"github.com/leap-learning/leap-server/pkg/gemini"
	"github.com/leap-learning/leap-server/pkg/types"
)

const (
	overloadedMessage = "AI service is temporarily overloaded. Please try again in a few minutes."
	malformedMessage  = "The AI response could not be understood, please retry."
	failedMessage     = "Failed to generate AI response."
)

// Service turns prompts into roadmaps and lesson text on top of the gateway.
type Service struct {
	gateway *Gateway
	logger  *slog.Logger
}

// NewService wraps gateway.
func NewService(gateway *Gateway, logger *slog.Logger) *Service {
	return &Service{gateway: gateway, logger: logger}
}

// Generate passes prompt straight through.
func (s *Service) Generate(ctx context.Context, prompt string) (*gemini.Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, AsAppError(ErrPromptRequired)
	}
	res, err := s.gateway.Generate(ctx, prompt)
	if err != nil {
		return nil, AsAppError(err)
	}
	return res, nil
}

// GenerateRoadmap satisfies roadmap.Generator.
func (s *Service) GenerateRoadmap(ctx context.Context, topic string, level types.CourseLevel) (roadmap.Roadmap, error) {
	res, err := s.gateway.Generate(ctx, RoadmapPrompt(topic, level))
	if err != nil {
		return nil, AsAppError(err)
	}

	rm, err := ParseRoadmap(res.Text)
	if err != nil {
		s.logger.WarnContext(ctx, "roadmap output rejected",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
		return nil, AsAppError(err)
	}
	return rm, nil
}

// GenerateLesson returns the raw lesson markup for req.
func (s *Service) GenerateLesson(ctx context.Context, req LessonRequest) (string, error) {
	res, err := s.gateway.Generate(ctx, LessonContentPrompt(req))
	if err != nil {
		return "", AsAppError(err)
	}
	text := UnwrapContent(res.Text)
	if text == "" {
		return "", AsAppError(ErrMalformedOutput)
	}
	return text, nil
}

// AsAppError maps generation failures onto API errors. Context errors pass through.
func AsAppError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, ErrOverloaded):
		return apperrors.Unavailable(overloadedMessage, err)
	case errors.Is(err, ErrMalformedOutput):
		return apperrors.New(malformedMessage, http.StatusUnprocessableEntity, apperrors.ErrUnprocessable, err)
	case errors.Is(err, ErrPromptRequired):
		return apperrors.New(ErrPromptRequired.Error(), http.StatusBadRequest, apperrors.ErrValidation, err)
	default:
		return apperrors.New(failedMessage, http.StatusInternalServerError, apperrors.ErrUpstream, err)
	}
}
