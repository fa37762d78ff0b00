package progress

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
	"github.com/leap-learning/leap-server/pkg/socketio"
)

// Handler processes progress HTTP requests.
type Handler struct {
	db       *gorm.DB
	notifier socketio.Notifier
	logger   *slog.Logger
}

// NewHandler constructs a progress handler instance.
func NewHandler(db *gorm.DB, notifier socketio.Notifier, logger *slog.Logger) *Handler {
	if notifier == nil {
		notifier = socketio.Nop{}
	}
	return &Handler{db: db, notifier: notifier, logger: logger}
}

// Response is the progress of one user in one course. Progress keys are
// encoded lesson keys.
type Response struct {
	CourseID   string          `json:"courseId"`
	Progress   map[string]bool `json:"progress"`
	Completion Completion      `json:"completion"`
}

type updateRequest struct {
	CourseID     string `json:"courseId" binding:"required"`
	ChapterTitle string `json:"chapterTitle" binding:"required,notblank"`
	SubtopicName string `json:"subtopicName" binding:"required,notblank"`
	IsWatched    *bool  `json:"isWatched" binding:"required"`
}

// Get returns the caller's watched map and completion for a course.
func (h *Handler) Get(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}
	courseID, appErr := request.QueryUUID(c, "courseId")
	if appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	db := h.db.WithContext(c.Request.Context())
	crs, err := course.GetOwned(db, courseID, usr.ID)
	if err != nil {
		h.respondError(c, err, "Failed to load progress")
		return
	}
	rm, err := crs.Chapters()
	if err != nil {
		h.respondError(c, err, "Failed to load progress")
		return
	}
	watched, err := Map(db, usr.ID, courseID)
	if err != nil {
		h.respondError(c, err, "Failed to load progress")
		return
	}

	response.Success(c, http.StatusOK, newResponse(courseID.String(), rm, watched), "", nil)
}

// Update stores the watched flag of one lesson and pushes the new completion
// to the user's sockets.
func (h *Handler) Update(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}
	var body updateRequest
	if appErr := request.BindJSON(c, &body); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}
	courseID, appErr := request.ParseUUID("courseId", body.CourseID)
	if appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	db := h.db.WithContext(c.Request.Context())
	crs, err := course.GetOwned(db, courseID, usr.ID)
	if err != nil {
		h.respondError(c, err, "Failed to save progress")
		return
	}
	rm, err := crs.Chapters()
	if err != nil {
		h.respondError(c, err, "Failed to save progress")
		return
	}
	key := roadmap.NewLessonKey(body.ChapterTitle, body.SubtopicName)
	if !rm.Contains(key) {
		h.respondError(c, ErrUnknownLesson, "Failed to save progress")
		return
	}

	if _, err := SetWatched(db, usr.ID, courseID, key, *body.IsWatched); err != nil {
		h.respondError(c, err, "Failed to save progress")
		return
	}
	watched, err := Map(db, usr.ID, courseID)
	if err != nil {
		h.respondError(c, err, "Failed to save progress")
		return
	}

	resp := newResponse(courseID.String(), rm, watched)
	h.notifier.Notify(usr.ID, socketio.EventProgressUpdated, gin.H{
		"courseId":   resp.CourseID,
		"key":        key.String(),
		"isWatched":  *body.IsWatched,
		"completion": resp.Completion,
	})

	response.Success(c, http.StatusOK, gin.H{"success": true, "completion": resp.Completion}, "Progress saved", nil)
}

func newResponse(courseID string, rm roadmap.Roadmap, watched map[roadmap.LessonKey]bool) Response {
	encoded := make(map[string]bool, len(watched))
	for key, ok := range watched {
		encoded[key.String()] = ok
	}
	return Response{
		CourseID:   courseID,
		Progress:   encoded,
		Completion: Compute(rm, watched),
	}
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, roadmap.ErrInvalidRoadmap):
		response.ErrorWithLog(h.logger, c, http.StatusUnprocessableEntity, "Stored roadmap is invalid", err)
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			response.AppError(h.logger, c, appErr)
			return
		}
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
