package roadmap

import "errors"

var (
	ErrInvalidRoadmap   = errors.New("invalid roadmap")
	ErrInvalidLessonKey = errors.New("invalid lesson key")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrChapterNotFound  = errors.New("chapter not found")
	ErrUnknownCommand   = errors.New("unknown editor command")
	ErrSessionNotFound  = errors.New("editor session not found")
	ErrSessionForbidden = errors.New("editor session belongs to another user")
	ErrTopicRequired    = errors.New("topic is required")
	ErrInvalidLevel     = errors.New("level must be Introductory, Beginner, Intermediate or Advanced")
	ErrGeneratorMissing = errors.New("roadmap generation is not configured")
)
