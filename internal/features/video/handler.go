package video

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/course"
	"github.com/leap-learning/leap-server/internal/features/roadmap"
	"github.com/leap-learning/leap-server/internal/middleware"
	"github.com/leap-learning/leap-server/pkg/apperrors"
	"github.com/leap-learning/leap-server/pkg/request"
	"github.com/leap-learning/leap-server/pkg/response"
	"github.com/leap-learning/leap-server/pkg/types"
	"github.com/leap-learning/leap-server/pkg/youtube"
)

// Handler processes video curation requests.
type Handler struct {
	db      *gorm.DB
	curator *Curator
	logger  *slog.Logger
}

// NewHandler constructs a video handler instance.
func NewHandler(db *gorm.DB, curator *Curator, logger *slog.Logger) *Handler {
	return &Handler{db: db, curator: curator, logger: logger}
}

type lessonRequest struct {
	ChapterTitle string `json:"chapterTitle" binding:"required,notblank"`
	SubtopicName string `json:"subtopicName" binding:"required,notblank"`
}

func (r lessonRequest) key() roadmap.LessonKey {
	return roadmap.NewLessonKey(r.ChapterTitle, r.SubtopicName)
}

type selectRequest struct {
	lessonRequest
	Video youtube.Video `json:"video" binding:"required"`
}

type customRequest struct {
	lessonRequest
	CustomURL string `json:"customUrl" binding:"required,notblank"`
}

type finishRequest struct {
	Selections []LessonChoice `json:"selections" binding:"dive"`
}

// SelectionResponse adds the derived playback id to a stored selection.
type SelectionResponse struct {
	Selection
	Key        string `json:"key"`
	PlaybackID string `json:"playbackId,omitempty"`
}

func newSelectionResponse(sel Selection) SelectionResponse {
	return SelectionResponse{Selection: sel, Key: sel.Key().String(), PlaybackID: sel.PlaybackID()}
}

// ownedCourse loads the course in the path and checks the caller created it.
func (h *Handler) ownedCourse(c *gin.Context) (*middleware.User, course.Course, bool) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return nil, course.Course{}, false
	}
	courseID, appErr := request.ParamUUID(c, "courseId")
	if appErr != nil {
		response.AppError(h.logger, c, appErr)
		return nil, course.Course{}, false
	}
	crs, err := course.GetOwned(h.db.WithContext(c.Request.Context()), courseID, usr.ID)
	if err != nil {
		h.respondError(c, err, "Failed to load course")
		return nil, course.Course{}, false
	}
	return usr, crs, true
}

// List returns the stored selections for a course.
func (h *Handler) List(c *gin.Context) {
	_, crs, ok := h.ownedCourse(c)
	if !ok {
		return
	}
	rows, err := ListByCourse(h.db.WithContext(c.Request.Context()), crs.ID)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to load videos", err)
		return
	}
	items := make([]SelectionResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, newSelectionResponse(row))
	}
	response.Success(c, http.StatusOK, items, "", nil)
}

// Plan returns the curation view for every lesson of the course.
func (h *Handler) Plan(c *gin.Context) {
	usr, crs, ok := h.ownedCourse(c)
	if !ok {
		return
	}
	views, err := h.curator.Plan(c.Request.Context(), usr.ID, crs)
	if err != nil {
		h.respondError(c, err, "Failed to load videos")
		return
	}
	response.Success(c, http.StatusOK, views, "", nil)
}

// Candidates returns the curation view for one lesson.
func (h *Handler) Candidates(c *gin.Context) {
	usr, crs, ok := h.ownedCourse(c)
	if !ok {
		return
	}
	key := roadmap.NewLessonKey(c.Query("chapter"), c.Query("subtopic"))
	if err := key.Validate(); err != nil {
		response.AppError(h.logger, c, apperrors.Validation("chapter and subtopic are required"))
		return
	}
	view, err := h.curator.Candidates(c.Request.Context(), usr.ID, crs, key)
	if err != nil {
		h.respondError(c, err, "Video search failed")
		return
	}
	response.Success(c, http.StatusOK, view, "", nil)
}

// Select stores a search result as the lesson's video.
func (h *Handler) Select(c *gin.Context) {
	_, crs, ok := h.ownedCourse(c)
	if !ok {
		return
	}
	var req selectRequest
	if appErr := request.BindJSON(c, &req); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}
	video := req.Video
	h.choose(c, crs, req.key(), Choice{Kind: types.VideoKindVideo, Video: &video}, "Video selected")
}

// Skip marks the lesson as intentionally having no video.
func (h *Handler) Skip(c *gin.Context) {
	_, crs, ok := h.ownedCourse(c)
	if !ok {
		return
	}
	var req lessonRequest
	if appErr := request.BindJSON(c, &req); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}
	h.choose(c, crs, req.key(), Choice{Kind: types.VideoKindSkipped}, "Lesson skipped")
}

// Custom stores a pasted video URL for the lesson.
func (h *Handler) Custom(c *gin.Context) {
	_, crs, ok := h.ownedCourse(c)
	if !ok {
		return
	}
	var req customRequest
	if appErr := request.BindJSON(c, &req); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}
	h.choose(c, crs, req.key(), Choice{Kind: types.VideoKindCustom, CustomURL: req.CustomURL}, "Custom video saved")
}

func (h *Handler) choose(c *gin.Context, crs course.Course, key roadmap.LessonKey, choice Choice, message string) {
	sel, err := h.curator.Choose(c.Request.Context(), crs, key, choice)
	if err != nil {
		h.respondError(c, err, "Failed to save video")
		return
	}
	response.Success(c, http.StatusOK, newSelectionResponse(sel), message, nil)
}

// Deselect clears the lesson's choice and returns fresh candidates.
func (h *Handler) Deselect(c *gin.Context) {
	usr, crs, ok := h.ownedCourse(c)
	if !ok {
		return
	}
	var req lessonRequest
	if appErr := request.BindJSON(c, &req); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}
	view, err := h.curator.Deselect(c.Request.Context(), usr.ID, crs, req.key())
	if err != nil {
		h.respondError(c, err, "Failed to clear video")
		return
	}
	response.Success(c, http.StatusOK, view, "Video cleared", nil)
}

// Finish replaces every selection of the course at once.
func (h *Handler) Finish(c *gin.Context) {
	usr, crs, ok := h.ownedCourse(c)
	if !ok {
		return
	}
	var req finishRequest
	if appErr := request.BindJSON(c, &req); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}
	rows, err := h.curator.Finish(c.Request.Context(), usr.ID, crs, req.Selections)
	if err != nil {
		h.respondError(c, err, "Failed to save videos")
		return
	}
	items := make([]SelectionResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, newSelectionResponse(row))
	}
	response.Success(c, http.StatusOK, items, "Videos saved successfully", nil)
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrUnknownLesson):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "Lesson not found in course roadmap", err)
	case errors.Is(err, ErrSearchFailed):
		response.ErrorWithLog(h.logger, c, http.StatusBadGateway, "Video search failed", err)
	case errors.Is(err, ErrVideoRequired), errors.Is(err, ErrCustomURLRequired), errors.Is(err, ErrInvalidKind):
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
