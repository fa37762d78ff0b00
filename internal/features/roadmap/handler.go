package roadmap

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/leap-learning/leap-server/internal/middleware"
	"github.com/leap-learning/leap-server/pkg/apperrors"
	"github.com/leap-learning/leap-server/pkg/request"
	"github.com/leap-learning/leap-server/pkg/response"
	"github.com/leap-learning/leap-server/pkg/types"
)

// Handler processes roadmap editing session requests.
type Handler struct {
	store     *SessionStore
	persister Persister
	generator Generator
	logger    *slog.Logger
}

// NewHandler constructs a roadmap handler. generator may be nil, in which case
// sessions can only start from a supplied or existing roadmap.
func NewHandler(store *SessionStore, persister Persister, generator Generator, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		persister: persister,
		generator: generator,
		logger:    logger,
	}
}

type createSessionRequest struct {
	Topic         string     `json:"topic"`
	Description   string     `json:"description"`
	Level         string     `json:"level"`
	Duration      string     `json:"duration"`
	IncludeVideos bool       `json:"includeVideos"`
	Generate      bool       `json:"generate"`
	Chapters      Roadmap    `json:"chapters"`
	CourseID      *uuid.UUID `json:"courseId"`
}

// Create starts an editing session. It can seed the tree from the generator,
// from supplied chapters, or from an existing course owned by the caller.
func (h *Handler) Create(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	var req createSessionRequest
	if appErr := request.BindJSON(c, &req); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	opts := Options{
		Description:   req.Description,
		Duration:      strings.TrimSpace(req.Duration),
		IncludeVideos: req.IncludeVideos,
		Initial:       req.Chapters,
		OwnerName:     usr.FullName,
		OwnerImage:    usr.ProfileImage,
	}

	if req.CourseID != nil {
		draft, err := h.persister.LoadDraft(c.Request.Context(), *req.CourseID, usr.ID)
		if err != nil {
			h.respondError(c, err, "Failed to load course")
			return
		}
		opts.Topic = draft.Topic
		opts.Description = draft.Description
		opts.Level = draft.Level
		opts.Duration = draft.Duration
		opts.IncludeVideos = draft.IncludeVideos
		opts.Initial = draft.Roadmap
		opts.CourseID = req.CourseID
	} else {
		topic := strings.TrimSpace(req.Topic)
		if topic == "" {
			h.respondError(c, ErrTopicRequired, "")
			return
		}
		level, ok := types.ParseCourseLevel(req.Level)
		if !ok {
			h.respondError(c, ErrInvalidLevel, "")
			return
		}
		opts.Topic = topic
		opts.Level = level

		if req.Generate {
			if h.generator == nil {
				h.respondError(c, ErrGeneratorMissing, "")
				return
			}
			generated, err := h.generator.GenerateRoadmap(c.Request.Context(), topic, level)
			if err != nil {
				h.respondError(c, err, "Failed to generate roadmap")
				return
			}
			opts.Initial = generated
		}
	}

	session := h.store.Create(usr.ID, opts)
	h.logger.InfoContext(c.Request.Context(), "roadmap session started",
		slog.String("sessionId", session.ID),
		slog.String("userId", usr.ID.String()),
		slog.Int("lessons", session.View().TotalLessons),
	)
	response.Created(c, session.View(), "Roadmap session created")
}

// Get returns the current session state.
func (h *Handler) Get(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, session.View(), "", nil)
}

// Apply runs one or more editor commands in order. Processing stops at the first failure.
func (h *Handler) Apply(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var body struct {
		Commands []Command `json:"commands" binding:"required,min=1,dive"`
	}
	if appErr := request.BindJSON(c, &body); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	var view View
	for i, cmd := range body.Commands {
		var err error
		view, err = session.Apply(cmd)
		if err != nil {
			response.Error(c, http.StatusBadRequest, err.Error(), gin.H{"failedCommand": i, "session": view})
			return
		}
	}
	response.Success(c, http.StatusOK, view, "", nil)
}

// Finalize persists the session's roadmap into a course.
func (h *Handler) Finalize(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	courseID, err := session.Finalize(c.Request.Context(), h.persister)
	if err != nil {
		h.respondError(c, err, "Failed to save roadmap")
		return
	}

	h.logger.InfoContext(c.Request.Context(), "roadmap finalized",
		slog.String("sessionId", session.ID),
		slog.String("courseId", courseID.String()),
	)
	response.Success(c, http.StatusOK, gin.H{"courseId": courseID, "session": session.View()}, "Roadmap saved", nil)
}

// Delete discards a session without persisting it.
func (h *Handler) Delete(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}
	if err := h.store.Delete(usr.ID, c.Param("sessionId")); err != nil {
		h.respondError(c, err, "Failed to discard session")
		return
	}
	response.Success(c, http.StatusOK, nil, "Roadmap session discarded", nil)
}

func (h *Handler) session(c *gin.Context) (*Session, bool) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return nil, false
	}
	session, err := h.store.Get(usr.ID, c.Param("sessionId"))
	if err != nil {
		h.respondError(c, err, "Failed to load session")
		return nil, false
	}
	return session, true
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "Roadmap session not found", err)
	case errors.Is(err, ErrSessionForbidden):
		response.ErrorWithLog(h.logger, c, http.StatusForbidden, "Access denied", err)
	case errors.Is(err, ErrTopicRequired), errors.Is(err, ErrInvalidLevel):
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, ErrIndexOutOfRange), errors.Is(err, ErrChapterNotFound), errors.Is(err, ErrUnknownCommand), errors.Is(err, ErrInvalidRoadmap):
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, ErrGeneratorMissing):
		response.ErrorWithLog(h.logger, c, http.StatusServiceUnavailable, err.Error(), err)
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			response.ErrorWithLog(h.logger, c, appErr.StatusCode(), appErr.Message(), err)
			return
		}
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
