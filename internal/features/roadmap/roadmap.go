package roadmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Chapter is one top-level section of a course. Subtopic order is significant.
type Chapter struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Subtopics []string `json:"subtopics"`
}

// UnmarshalJSON accepts numeric or string ids and a missing subtopic list.
func (c *Chapter) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        json.RawMessage `json:"id"`
		Title     string          `json:"title"`
		Subtopics []string        `json:"subtopics"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := parseChapterID(raw.ID)
	if err != nil {
		return err
	}

	c.ID = id
	c.Title = raw.Title
	c.Subtopics = raw.Subtopics
	if c.Subtopics == nil {
		c.Subtopics = []string{}
	}
	return nil
}

func parseChapterID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("chapter id: %w", err)
	}
	return n.String(), nil
}

// Roadmap is the ordered list of chapters that makes up a course.
type Roadmap []Chapter

// TotalLessons is the sum of subtopic counts across chapters.
func (r Roadmap) TotalLessons() int {
	total := 0
	for _, ch := range r {
		total += len(ch.Subtopics)
	}
	return total
}

// Lessons lists every subtopic lesson in roadmap order.
func (r Roadmap) Lessons() []LessonKey {
	keys := make([]LessonKey, 0, r.TotalLessons())
	for _, ch := range r {
		for _, sub := range ch.Subtopics {
			keys = append(keys, LessonKey{Chapter: ch.Title, Subtopic: sub})
		}
	}
	return keys
}

// Contains reports whether key names a lesson or a chapter overview in r.
func (r Roadmap) Contains(key LessonKey) bool {
	for _, ch := range r {
		if ch.Title != key.Chapter {
			continue
		}
		if key.IsOverview() {
			return true
		}
		for _, sub := range ch.Subtopics {
			if sub == key.Subtopic {
				return true
			}
		}
	}
	return false
}

// KeySet returns every lesson and overview key in r.
func (r Roadmap) KeySet() map[LessonKey]struct{} {
	set := make(map[LessonKey]struct{}, r.TotalLessons()+len(r))
	for _, ch := range r {
		set[OverviewKey(ch.Title)] = struct{}{}
		for _, sub := range ch.Subtopics {
			set[LessonKey{Chapter: ch.Title, Subtopic: sub}] = struct{}{}
		}
	}
	return set
}

// Clone deep-copies the roadmap so callers can hand out snapshots safely.
func (r Roadmap) Clone() Roadmap {
	if r == nil {
		return Roadmap{}
	}
	out := make(Roadmap, len(r))
	for i, ch := range r {
		subs := make([]string, len(ch.Subtopics))
		copy(subs, ch.Subtopics)
		out[i] = Chapter{ID: ch.ID, Title: ch.Title, Subtopics: subs}
	}
	return out
}

// Compact drops blank subtopic placeholders and trims names.
func (r Roadmap) Compact() Roadmap {
	out := r.Clone()
	for i := range out {
		subs := out[i].Subtopics[:0]
		for _, sub := range out[i].Subtopics {
			if trimmed := strings.TrimSpace(sub); trimmed != "" {
				subs = append(subs, trimmed)
			}
		}
		out[i].Subtopics = subs
		out[i].Title = strings.TrimSpace(out[i].Title)
	}
	return out
}

// Validate checks the invariants a persisted roadmap must hold:
// non-blank titles, unique chapter titles and unique subtopics within a chapter.
func (r Roadmap) Validate() error {
	seen := make(map[string]struct{}, len(r))
	for i, ch := range r {
		title := strings.TrimSpace(ch.Title)
		if title == "" {
			return fmt.Errorf("%w: chapter %d has no title", ErrInvalidRoadmap, i+1)
		}
		if _, dup := seen[title]; dup {
			return fmt.Errorf("%w: duplicate chapter %q", ErrInvalidRoadmap, title)
		}
		seen[title] = struct{}{}

		subs := make(map[string]struct{}, len(ch.Subtopics))
		for _, sub := range ch.Subtopics {
			name := strings.TrimSpace(sub)
			if name == "" {
				return fmt.Errorf("%w: chapter %q has an empty subtopic", ErrInvalidRoadmap, title)
			}
			if name == title {
				return fmt.Errorf("%w: subtopic %q repeats its chapter title", ErrInvalidRoadmap, name)
			}
			if _, dup := subs[name]; dup {
				return fmt.Errorf("%w: duplicate subtopic %q in %q", ErrInvalidRoadmap, name, title)
			}
			subs[name] = struct{}{}
		}
	}
	return nil
}

// Parse decodes a stored roadmap. It accepts a JSON array, a JSON string that
// holds a serialized array, and null or empty input (an empty roadmap).
func Parse(raw []byte) (Roadmap, error) {
	return parse(raw, 0)
}

func parse(raw []byte, depth int) (Roadmap, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Roadmap{}, nil
	}

	if trimmed[0] == '"' {
		if depth > 1 {
			return nil, fmt.Errorf("%w: nested string encoding", ErrInvalidRoadmap)
		}
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRoadmap, err)
		}
		return parse([]byte(inner), depth+1)
	}

	var rm Roadmap
	if err := json.Unmarshal(trimmed, &rm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoadmap, err)
	}
	if rm == nil {
		rm = Roadmap{}
	}
	return rm, nil
}

// Renumber assigns sequential ids to chapters that have none.
func (r Roadmap) Renumber() Roadmap {
	out := r.Clone()
	for i := range out {
		if strings.TrimSpace(out[i].ID) == "" {
			out[i].ID = strconv.Itoa(i + 1)
		}
	}
	return out
}

// LessonKey addresses one lesson by chapter title and subtopic name.
// A key whose subtopic equals its chapter addresses the chapter overview.
type LessonKey struct {
	Chapter  string `json:"chapterTitle"`
	Subtopic string `json:"subtopicName"`
}

// NewLessonKey trims both parts.
func NewLessonKey(chapter, subtopic string) LessonKey {
	return LessonKey{Chapter: strings.TrimSpace(chapter), Subtopic: strings.TrimSpace(subtopic)}
}

// OverviewKey addresses the overview lesson of a chapter.
func OverviewKey(chapter string) LessonKey {
	chapter = strings.TrimSpace(chapter)
	return LessonKey{Chapter: chapter, Subtopic: chapter}
}

// IsOverview reports whether k addresses a chapter overview.
func (k LessonKey) IsOverview() bool {
	return k.Chapter != "" && k.Chapter == k.Subtopic
}

// Validate requires both parts to be non-blank.
func (k LessonKey) Validate() error {
	if strings.TrimSpace(k.Chapter) == "" || strings.TrimSpace(k.Subtopic) == "" {
		return ErrInvalidLessonKey
	}
	return nil
}

// String encodes the key so that distinct keys never collide: each part is
// query-escaped, which removes every '/' before the parts are joined by one.
func (k LessonKey) String() string {
	return url.QueryEscape(k.Chapter) + "/" + url.QueryEscape(k.Subtopic)
}

// ParseLessonKey decodes a value produced by LessonKey.String.
func ParseLessonKey(s string) (LessonKey, error) {
	chapter, subtopic, ok := strings.Cut(s, "/")
	if !ok || strings.Contains(subtopic, "/") {
		return LessonKey{}, ErrInvalidLessonKey
	}
	ch, err := url.QueryUnescape(chapter)
	if err != nil {
		return LessonKey{}, ErrInvalidLessonKey
	}
	sub, err := url.QueryUnescape(subtopic)
	if err != nil {
		return LessonKey{}, ErrInvalidLessonKey
	}
	key := LessonKey{Chapter: ch, Subtopic: sub}
	if err := key.Validate(); err != nil {
		return LessonKey{}, err
	}
	return key, nil
}
