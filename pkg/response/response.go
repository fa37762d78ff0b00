package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leap-learning/leap-server/pkg/apperrors"
)

// Envelope represents the standard API response shape.
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Error      interface{} `json:"error,omitempty"`
	Pagination interface{} `json:"pagination,omitempty"`
}

// ErrorBody is the machine readable part of a failed response.
type ErrorBody struct {
	Code   apperrors.ErrorCode `json:"code,omitempty"`
	Fields map[string]string   `json:"fields,omitempty"`
}

// Success writes a success response with optional message and data.
func Success(c *gin.Context, status int, data interface{}, message string, pagination interface{}) {
	c.JSON(status, Envelope{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: pagination,
	})
}

// Created is a convenience helper for POST 201 responses.
func Created(c *gin.Context, data interface{}, message string) {
	Success(c, http.StatusCreated, data, message, nil)
}

// Error writes an error response capturing the message and optional error payload.
func Error(c *gin.Context, status int, message string, body interface{}) {
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Message: message,
		Error:   body,
	})
}

// ErrorWithLog writes an error response and logs the error via slog.
// Server side failures log at error level, client mistakes at warn.
func ErrorWithLog(logger *slog.Logger, c *gin.Context, status int, message string, err error) {
	if logger != nil && err != nil {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, message,
			slog.Int("status", status),
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()),
		)
	}

	Error(c, status, message, bodyFor(err))
}

// AppError writes an *apperrors.AppError using its own status and message.
func AppError(logger *slog.Logger, c *gin.Context, err *apperrors.AppError) {
	ErrorWithLog(logger, c, err.StatusCode(), err.Message(), err)
}

func bodyFor(err error) interface{} {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return ErrorBody{Code: appErr.Code(), Fields: appErr.Fields()}
	}
	return nil
}
