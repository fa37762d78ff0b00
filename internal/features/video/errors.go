package video

import "errors"

var (
	ErrSelectionNotFound = errors.New("no video selected for this lesson")
	ErrUnknownLesson     = errors.New("lesson is not part of the course roadmap")
	ErrVideoRequired     = errors.New("video id is required")
	ErrCustomURLRequired = errors.New("custom url is required")
	ErrInvalidKind       = errors.New("kind must be video, custom or skipped")
	ErrSearchFailed      = errors.New("video search failed")
)
