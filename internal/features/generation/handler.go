package generation

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leap-learning/leap-server/pkg/apperrors"
	"github.com/leap-learning/leap-server/pkg/request"
	"github.com/leap-learning/leap-server/pkg/response"
	"github.com/leap-learning/leap-server/pkg/types"
)

// Handler exposes the generation endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a generation handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Generate runs a raw prompt and returns the text and inline files.
func (h *Handler) Generate(c *gin.Context) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if appErr := request.BindJSON(c, &body); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	res, err := h.service.Generate(c.Request.Context(), body.Prompt)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, "", nil)
}

// Roadmap generates and validates a chapter roadmap for a topic.
func (h *Handler) Roadmap(c *gin.Context) {
	var body struct {
		Topic string `json:"topic" binding:"required,notblank"`
		Level string `json:"level" binding:"required"`
	}
	if appErr := request.BindJSON(c, &body); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}
	level, ok := types.ParseCourseLevel(body.Level)
	if !ok {
		response.AppError(h.logger, c, apperrors.Validation("level must be Introductory, Beginner, Intermediate or Advanced"))
		return
	}

	rm, err := h.service.GenerateRoadmap(c.Request.Context(), body.Topic, level)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"roadmap": rm, "totalLessons": rm.TotalLessons()}, "", nil)
}

// LessonContent generates raw lesson markup without caching it.
func (h *Handler) LessonContent(c *gin.Context) {
	var req LessonRequest
	if appErr := request.BindJSON(c, &req); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	text, err := h.service.GenerateLesson(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"text": text}, "", nil)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		response.AppError(h.logger, c, appErr)
		return
	}
	response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, failedMessage, err)
}
