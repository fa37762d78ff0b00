package user

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/middleware"
	"github.com/leap-learning/leap-server/pkg/apperrors"
	"github.com/leap-learning/leap-server/pkg/request"
	"github.com/leap-learning/leap-server/pkg/response"
)

// Handler processes user HTTP requests.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewHandler constructs a user handler instance.
func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{
		db:     db,
		logger: logger,
	}
}

// Me returns the caller's profile.
func (h *Handler) Me(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	profile, err := Get(h.db.WithContext(c.Request.Context()), usr.ID)
	if err != nil {
		h.respondError(c, err, "failed to load profile")
		return
	}
	response.Success(c, http.StatusOK, profile, "", nil)
}

// UpdateMe changes the caller's name, picture or password.
func (h *Handler) UpdateMe(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	var req struct {
		FullName        *string `json:"fullName"`
		ProfileImage    *string `json:"profileImage"`
		CurrentPassword string  `json:"currentPassword"`
		NewPassword     *string `json:"newPassword"`
	}
	if appErr := request.BindJSON(c, &req); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	db := h.db.WithContext(c.Request.Context())
	if req.NewPassword != nil {
		current, err := Get(db, usr.ID)
		if err != nil {
			h.respondError(c, err, "failed to load profile")
			return
		}
		if !current.ComparePassword(req.CurrentPassword) {
			h.respondError(c, ErrWrongPassword, "password change failed")
			return
		}
	}

	updated, err := Update(db, usr.ID, UpdateInput{
		FullName:     req.FullName,
		ProfileImage: req.ProfileImage,
		Password:     req.NewPassword,
	})
	if err != nil {
		h.respondError(c, err, "failed to update profile")
		return
	}

	response.Success(c, http.StatusOK, updated, "Profile updated", nil)
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrWrongPassword):
		response.ErrorWithLog(h.logger, c, http.StatusUnauthorized, "Current password is incorrect", err)
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			response.AppError(h.logger, c, appErr)
			return
		}
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
