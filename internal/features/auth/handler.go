package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/middleware"
	"github.com/leap-learning/leap-server/pkg/apperrors"
	"github.com/leap-learning/leap-server/pkg/email"
	"github.com/leap-learning/leap-server/pkg/request"
	"github.com/leap-learning/leap-server/pkg/response"
)

const mailTimeout = 30 * time.Second

// Handler processes authentication HTTP requests.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
	cfg    Config
	mailer email.Sender
}

// NewHandler constructs an auth handler instance. mailer may be nil, in which
// case reset links are logged instead of sent.
func NewHandler(db *gorm.DB, logger *slog.Logger, cfg Config, mailer email.Sender) *Handler {
	return &Handler{
		db:     db,
		logger: logger,
		cfg:    cfg,
		mailer: mailer,
	}
}

// Register creates a new user account.
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		FullName     string `json:"fullName" binding:"required,notblank"`
		Email        string `json:"email" binding:"required,email"`
		Password     string `json:"password" binding:"required"`
		ProfileImage string `json:"profileImage"`
	}
	if appErr := request.BindJSON(c, &req); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	authResp, err := Register(h.db.WithContext(c.Request.Context()), RegisterInput{
		FullName:     req.FullName,
		Email:        req.Email,
		Password:     req.Password,
		ProfileImage: req.ProfileImage,
	}, h.cfg)
	if err != nil {
		h.respondError(c, err, "registration failed")
		return
	}

	h.logger.InfoContext(c.Request.Context(), "user registered", slog.String("userId", authResp.User.ID.String()))
	response.Created(c, authResp, "Registration successful")
}

// Login authenticates a user and returns JWT tokens.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if appErr := request.BindJSON(c, &req); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	authResp, err := Login(h.db.WithContext(c.Request.Context()), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, h.cfg)
	if err != nil {
		h.respondError(c, err, "login failed")
		return
	}

	response.Success(c, http.StatusOK, authResp, "Login successful", nil)
}

// Logout clears the user's refresh token.
func (h *Handler) Logout(c *gin.Context) {
	usr, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	if err := Logout(h.db.WithContext(c.Request.Context()), usr.ID); err != nil {
		h.respondError(c, err, "logout failed")
		return
	}

	response.Success(c, http.StatusOK, true, "Logout successful", nil)
}

// RefreshToken exchanges a refresh token for a new token pair.
func (h *Handler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if appErr := request.BindJSON(c, &req); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	pair, err := RefreshAccessToken(h.db.WithContext(c.Request.Context()), req.RefreshToken, h.cfg)
	if err != nil {
		h.respondError(c, err, "token refresh failed")
		return
	}

	response.Success(c, http.StatusOK, pair, "Token refreshed", nil)
}

// RequestPasswordReset sends a password reset email.
func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if appErr := request.BindJSON(c, &req); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	info, err := RequestPasswordReset(h.db.WithContext(c.Request.Context()), req.Email, h.cfg)
	if err != nil {
		h.respondError(c, err, "failed to request password reset")
		return
	}

	if info != nil {
		ctx := context.WithoutCancel(c.Request.Context())
		go h.sendReset(ctx, *info)
	}

	response.Success(c, http.StatusOK, true, "If the email exists in our system, a password reset link has been sent.", nil)
}

func (h *Handler) sendReset(ctx context.Context, info PasswordResetInfo) {
	if h.mailer == nil {
		h.logger.WarnContext(ctx, "no mailer configured, password reset not sent", slog.String("email", info.Email))
		return
	}

	msg, err := email.PasswordResetMessage(info.Email, info.FullName, info.Link, h.cfg.ResetTTL, time.Now())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to build password reset email", slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, mailTimeout)
	defer cancel()
	if _, err := h.mailer.Send(ctx, msg); err != nil {
		h.logger.ErrorContext(ctx, "failed to send password reset email",
			slog.String("email", info.Email),
			slog.String("error", err.Error()))
	}
}

// ResetPassword changes a user's password using a reset token.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if appErr := request.BindJSON(c, &req); appErr != nil {
		response.AppError(h.logger, c, appErr)
		return
	}

	if err := ResetPassword(h.db.WithContext(c.Request.Context()), req.Token, req.NewPassword, h.cfg); err != nil {
		h.respondError(c, err, "password reset failed")
		return
	}

	response.Success(c, http.StatusOK, true, "Password reset successful. Please login with your new password.", nil)
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		response.AppError(h.logger, c, appErr)
		return
	}
	response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
}
