package content

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/course"
	"github.com/leap-learning/leap-server/internal/features/roadmap"
	"github.com/leap-learning/leap-server/internal/middleware"
	"github.com/leap-learning/leap-server/pkg/apperrors"
	"github.com/leap-learning/leap-server/pkg/markup"
	"github.com/leap-learning/leap-server/pkg/request"
	"github.com/leap-learning/leap-server/pkg/response"
)

// ViewerSessionHeader carries the viewer session id. Requests without it are
// serialized per user.
const ViewerSessionHeader = "X-Viewer-Session"

// statusClientClosed is logged when the caller went away mid-request.
const statusClientClosed = 499

// Handler serves lesson content.
type Handler struct {
	db       *gorm.DB
	resolver *Resolver
	logger   *slog.Logger
}

// NewHandler constructs a content handler instance.
func NewHandler(db *gorm.DB, resolver *Resolver, logger *slog.Logger) *Handler {
	return &Handler{db: db, resolver: resolver, logger: logger}
}

// Response is one lesson's content.
type Response struct {
	CourseID     string `json:"courseId"`
	ChapterTitle string `json:"chapterTitle"`
	SubtopicName string `json:"subtopicName"`
	Key          string `json:"key"`
	Source       string `json:"source"`
	Text         string `json:"text"`
	HTML         string `json:"html,omitempty"`
}

type regenerateRequest struct {
	ChapterTitle string `json:"chapterTitle" binding:"required,notblank"`
	SubtopicName string `json:"subtopicName" binding:"required,notblank"`
}

func (h *Handler) viewerCourse(c *gin.Context) (Viewer, course.Course, bool) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return Viewer{}, course.Course{}, false
	}
	courseID, appErr := request.ParamUUID(c, "courseId")
	if appErr != nil {
		response.AppError(h.logger, c, appErr)
		return Viewer{}, course.Course{}, false
	}
	crs, err := course.GetOwned(h.db.WithContext(c.Request.Context()), courseID, usr.ID)
	if err != nil {
		h.respondError(c, err, "Failed to load course")
		return Viewer{}, course.Course{}, false
	}
	return Viewer{UserID: usr.ID, SessionID: c.GetHeader(ViewerSessionHeader)}, crs, true
}

// Get resolves the content of one lesson, generating it when nothing is cached.
func (h *Handler) Get(c *gin.Context) {
	viewer, crs, ok := h.viewerCourse(c)
	if !ok {
		return
	}
	key := roadmap.NewLessonKey(c.Query("chapter"), c.Query("subtopic"))
	h.resolve(c, viewer, crs, key)
}

// Overview resolves the overview of a chapter, stored under the chapter title
// used as its own subtopic.
func (h *Handler) Overview(c *gin.Context) {
	viewer, crs, ok := h.viewerCourse(c)
	if !ok {
		return
	}
	h.resolve(c, viewer, crs, roadmap.OverviewKey(c.Query("chapter")))
}

func (h *Handler) resolve(c *gin.Context, viewer Viewer, crs course.Course, key roadmap.LessonKey) {
	if err := key.Validate(); err != nil {
		response.AppError(h.logger, c, apperrors.Validation("chapter and subtopic are required"))
		return
	}
	entry, err := h.resolver.Resolve(c.Request.Context(), viewer, crs, key)
	if err != nil {
		h.respondError(c, err, "Failed to load lesson content")
		return
	}
	response.Success(c, http.StatusOK, h.newResponse(c, crs, key, entry), "", nil)
}

// Regenerate discards the stored content of a lesson and generates it again.
func (h *Handler) Regenerate(c *gin.Context) {
	viewer, crs, ok := h.viewerCourse(c)
	if !ok {
		return
	}
	var req regenerateRequest
	if appErr := request.BindJSON(c, &req); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}
	key := roadmap.NewLessonKey(req.ChapterTitle, req.SubtopicName)
	entry, err := h.resolver.Regenerate(c.Request.Context(), viewer, crs, key)
	if err != nil {
		h.respondError(c, err, "Failed to regenerate lesson content")
		return
	}
	response.Success(c, http.StatusOK, h.newResponse(c, crs, key, entry), "Lesson content regenerated", nil)
}

func (h *Handler) newResponse(c *gin.Context, crs course.Course, key roadmap.LessonKey, entry Entry) Response {
	resp := Response{
		CourseID:     crs.ID.String(),
		ChapterTitle: key.Chapter,
		SubtopicName: key.Subtopic,
		Key:          key.String(),
		Source:       entry.Tier,
		Text:         entry.Text,
	}
	if c.Query("format") == "html" {
		resp.HTML = markup.Render(entry.Text)
	}
	return resp
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrUnknownLesson):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "Lesson not found in course roadmap", err)
	case errors.Is(err, roadmap.ErrInvalidLessonKey), errors.Is(err, roadmap.ErrInvalidRoadmap):
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, context.DeadlineExceeded):
		response.ErrorWithLog(h.logger, c, http.StatusGatewayTimeout, "Lesson generation timed out", err)
	case errors.Is(err, context.Canceled):
		h.logger.InfoContext(c.Request.Context(), "content request cancelled", slog.String("path", c.FullPath()))
		c.AbortWithStatus(statusClientClosed)
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			response.AppError(h.logger, c, appErr)
			return
		}
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
