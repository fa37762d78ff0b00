package user

import (
	"errors"
	"net/http"

	"github.com/leap-learning/leap-server/pkg/apperrors"
)

var (
	ErrUserNotFound    = apperrors.NotFound("User not found")
	ErrEmailTaken      = apperrors.New("Email already exists", http.StatusConflict, apperrors.ErrConflict, nil)
	ErrInvalidPassword = apperrors.Validation("Password must be at least 8 characters")
	ErrNameRequired    = apperrors.Validation("Full name cannot be empty")
	ErrWrongPassword   = errors.New("current password does not match")
)
