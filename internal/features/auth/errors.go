package auth

import (
	"net/http"

	"github.com/leap-learning/leap-server/pkg/apperrors"
)

var (
	ErrInvalidCredentials = apperrors.New("Invalid email or password", http.StatusUnauthorized, apperrors.ErrUnauthorized, nil)
	ErrInvalidToken       = apperrors.New("Invalid or expired token", http.StatusUnauthorized, apperrors.ErrUnauthorized, nil)
	ErrInvalidEmail       = apperrors.Validation("Invalid email format")
)
