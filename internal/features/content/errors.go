package content

import "errors"

var (
	ErrContentNotFound = errors.New("lesson content not found")
	ErrUnknownLesson   = errors.New("lesson is not part of the course roadmap")
	ErrEmptyContent    = errors.New("lesson content is empty")
)
