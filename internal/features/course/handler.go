package course

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/roadmap"
	"github.com/leap-learning/leap-server/internal/middleware"
	"github.com/leap-learning/leap-server/pkg/apperrors"
	"github.com/leap-learning/leap-server/pkg/markup"
	"github.com/leap-learning/leap-server/pkg/pagination"
	"github.com/leap-learning/leap-server/pkg/request"
	"github.com/leap-learning/leap-server/pkg/response"
)

// Handler processes course HTTP requests.
type Handler struct {
	db      *gorm.DB
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a course handler instance.
func NewHandler(db *gorm.DB, service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		db:      db,
		service: service,
		logger:  logger,
	}
}

// Response is a course with its decoded roadmap.
type Response struct {
	Course
	Roadmap         roadmap.Roadmap `json:"roadmap"`
	TotalLessons    int             `json:"totalLessons"`
	DescriptionHTML string          `json:"descriptionHtml,omitempty"`
}

// NewResponse decodes the course roadmap for the API.
func NewResponse(c Course) (Response, error) {
	rm, err := c.Chapters()
	if err != nil {
		return Response{}, err
	}
	return Response{
		Course:       c,
		Roadmap:      rm,
		TotalLessons: rm.TotalLessons(),
	}, nil
}

// List returns the caller's courses, newest first.
func (h *Handler) List(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	params := pagination.Extract(c)
	courses, total, err := ListByCreator(h.db.WithContext(c.Request.Context()), usr.ID, params)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to list courses", err)
		return
	}

	items := make([]Response, 0, len(courses))
	for _, course := range courses {
		item, err := NewResponse(course)
		if err != nil {
			response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to decode roadmap", err)
			return
		}
		items = append(items, item)
	}

	response.Success(c, http.StatusOK, items, "", pagination.MetadataFrom(total, params))
}

// GetByID returns one course with its roadmap and rendered description.
func (h *Handler) GetByID(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}
	courseID, appErr := request.ParamUUID(c, "courseId")
	if appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	course, err := GetOwned(h.db.WithContext(c.Request.Context()), courseID, usr.ID)
	if err != nil {
		h.respondError(c, err, "failed to load course")
		return
	}

	item, err := NewResponse(course)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to decode roadmap", err)
		return
	}
	item.DescriptionHTML = markup.RenderMarkdown(course.Description)

	response.Success(c, http.StatusOK, item, "", nil)
}

// ReplaceRoadmap overwrites the whole roadmap of a course.
func (h *Handler) ReplaceRoadmap(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}
	courseID, appErr := request.ParamUUID(c, "courseId")
	if appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	var body struct {
		Roadmap roadmap.Roadmap `json:"roadmap" binding:"required"`
	}
	if appErr := request.BindJSON(c, &body); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	if err := h.service.ReplaceRoadmap(c.Request.Context(), courseID, usr.ID, body.Roadmap); err != nil {
		h.respondError(c, err, "failed to save roadmap")
		return
	}

	course, err := Get(h.db.WithContext(c.Request.Context()), courseID)
	if err != nil {
		h.respondError(c, err, "failed to load course")
		return
	}
	item, err := NewResponse(course)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to decode roadmap", err)
		return
	}
	response.Success(c, http.StatusOK, item, "Roadmap saved", nil)
}

// Delete removes a course and all of its dependent rows. The id may come from
// the path or from the courseId query parameter.
func (h *Handler) Delete(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	raw := c.Param("courseId")
	if strings.TrimSpace(raw) == "" {
		raw = c.Query("courseId")
	}
	if strings.TrimSpace(raw) == "" {
		response.AppError(h.logger, c, apperrors.Validation("Course ID is required"))
		return
	}
	courseID, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "Invalid courseId", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), courseID, usr.ID); err != nil {
		h.respondError(c, err, "failed to delete course")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"courseId": courseID}, "Course and all related data deleted successfully", nil)
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, roadmap.ErrInvalidRoadmap):
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, err.Error(), err)
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			response.AppError(h.logger, c, appErr)
			return
		}
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
