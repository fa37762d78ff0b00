package progress

import (
	"net/http"

	"github.com/leap-learning/leap-server/pkg/apperrors"
)

// Eligibility errors carry their HTTP status so the certificate feature can
// surface them unchanged.
var (
	ErrNoLessons     = apperrors.New("Course has no lessons", http.StatusBadRequest, apperrors.ErrUnprocessable, nil)
	ErrNotComplete   = apperrors.New("Course not completed", http.StatusForbidden, apperrors.ErrForbidden, nil)
	ErrUnknownLesson = apperrors.NotFound("Lesson is not part of this course")
)
