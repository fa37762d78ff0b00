package generation

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrOverloaded       = errors.New("generation service overloaded")
	ErrGenerationFailed = errors.New("generation failed")
	ErrMalformedOutput  = errors.New("generated output could not be parsed")
	ErrPromptRequired   = errors.New("missing prompt in request body")
)

// GenerationError is returned by Gateway.Generate once it gives up.
// It matches ErrGenerationFailed always and ErrOverloaded when the last status was 503.
type GenerationError struct {
	Status   int
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("generation failed after %d attempt(s) with status %d: %v", e.Attempts, e.Status, e.Err)
	}
	return fmt.Sprintf("generation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) Is(target error) bool {
	switch target {
	case ErrGenerationFailed:
		return true
	case ErrOverloaded:
		return e.Status == http.StatusServiceUnavailable
	}
	return false
}
