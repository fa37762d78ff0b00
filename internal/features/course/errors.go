package course

import (
	"errors"
	"net/http"

	"github.com/leap-learning/leap-server/pkg/apperrors"
)

// Course errors are AppErrors so other features can surface them unchanged.
var (
	ErrCourseNotFound  = apperrors.NotFound("Course not found")
	ErrCourseForbidden = apperrors.New("Access denied", http.StatusForbidden, apperrors.ErrForbidden, nil)
	ErrNameRequired    = apperrors.Validation("Course name is required")
	ErrOwnerRequired   = errors.New("course owner is required")
)
