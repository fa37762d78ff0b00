package request

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/leap-learning/leap-server/pkg/apperrors"
)

// BindJSON decodes the body into dst and runs its binding tags.
// Validation failures come back as a 400 AppError with per-field messages.
func BindJSON(c *gin.Context, dst interface{}) *apperrors.AppError {
	if err := c.ShouldBindJSON(dst); err != nil {
		return bindError(err)
	}
	return nil
}

func bindError(err error) *apperrors.AppError {
	if errors.Is(err, io.EOF) {
		return apperrors.Validation("Request body is required")
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[lowerFirst(fe.Field())] = describe(fe)
		}
		return apperrors.New("Invalid request body", http.StatusBadRequest, apperrors.ErrValidation, err).WithFields(fields)
	}

	return apperrors.New("Invalid request body", http.StatusBadRequest, apperrors.ErrValidation, err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "uuid", "uuid4":
		return "must be a valid id"
	case "url", "http_url":
		return "must be a valid URL"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// ParamUUID reads a path parameter as a UUID.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, *apperrors.AppError) {
	return ParseUUID(name, c.Param(name))
}

// QueryUUID reads a required query parameter as a UUID.
func QueryUUID(c *gin.Context, name string) (uuid.UUID, *apperrors.AppError) {
	return ParseUUID(name, c.Query(name))
}

// ParseUUID parses a required UUID value named name.
func ParseUUID(name, raw string) (uuid.UUID, *apperrors.AppError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, apperrors.Validation(name + " is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.New("Invalid "+name, http.StatusBadRequest, apperrors.ErrValidation, err)
	}
	return id, nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
