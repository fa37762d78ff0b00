package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leap-learning/leap-server/internal/features/roadmap"
	"github.com/leap-learning/leap-server/pkg/validation"
)

type chapterSchema struct {
	Title     string   `validate:"required,notblank"`
	Subtopics []string `validate:"required,min=1,dive,required,notblank"`
}

type roadmapSchema struct {
	Chapters []chapterSchema `validate:"required,min=1,dive"`
}

// ParseRoadmap extracts a roadmap from model output. The whole text is tried
// first (after removing code fences); failing that, the outermost [...] span.
// Both paths go through the same schema validation.
func ParseRoadmap(text string) (roadmap.Roadmap, error) {
	rm, strictErr := decodeRoadmap(stripFences(text))
	if strictErr == nil {
		return rm, nil
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, strictErr)
	}
	rm, err := decodeRoadmap(text[start : end+1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return rm, nil
}

func decodeRoadmap(text string) (roadmap.Roadmap, error) {
	var rm roadmap.Roadmap
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &rm); err != nil {
		return nil, err
	}

	schema := roadmapSchema{Chapters: make([]chapterSchema, len(rm))}
	for i, ch := range rm {
		schema.Chapters[i] = chapterSchema{Title: ch.Title, Subtopics: ch.Subtopics}
	}
	if err := validation.Struct(schema); err != nil {
		return nil, err
	}

	rm = rm.Compact().Renumber()
	if err := rm.Validate(); err != nil {
		return nil, err
	}
	return rm, nil
}

// stripFences removes a surrounding ```json ... ``` block if present.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	} else {
		trimmed = ""
	}
	trimmed = strings.TrimSpace(trimmed)
	return strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
}

// UnwrapContent trims lesson output and unwraps a {"content": "..."} object
// the model sometimes returns despite the prompt. Anything else is kept as is.
func UnwrapContent(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") || !strings.HasSuffix(text, "}") {
		return text
	}
	var wrapped struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err != nil || strings.TrimSpace(wrapped.Content) == "" {
		return text
	}
	return strings.TrimSpace(wrapped.Content)
}
