package dashboard

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/middleware"
	"github.com/leap-learning/leap-server/pkg/apperrors"
	"github.com/leap-learning/leap-server/pkg/response"
)

// Handler serves the learner dashboard.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// Courses returns the caller's courses with completion.
// GET /dashboard/courses?status=all|in-progress|completed
func (h *Handler) Courses(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	filter, err := ParseFilter(c.Query("status"))
	if err != nil {
		h.respondError(c, err, "invalid status")
		return
	}

	cards, summary, err := Courses(h.db.WithContext(c.Request.Context()), usr.ID, filter)
	if err != nil {
		h.respondError(c, err, "failed to load dashboard")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"status":  filter,
		"courses": cards,
		"summary": summary,
	}, "", nil)
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		response.AppError(h.logger, c, appErr)
		return
	}
	response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
}
