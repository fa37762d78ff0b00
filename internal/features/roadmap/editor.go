package roadmap

import (
	"strings"

	"github.com/google/uuid"
)

const (
	newChapterTitle  = "New Topic"
	newSubtopicTitle = "New Subtopic"
)

// EditKind says which kind of item is open for inline editing.
type EditKind string

const (
	EditChapter  EditKind = "chapter"
	EditSubtopic EditKind = "subtopic"
)

// EditState describes the single item currently open for editing.
type EditState struct {
	Kind      EditKind `json:"kind"`
	ChapterID string   `json:"chapterId"`
	Subtopic  int      `json:"subtopic"`
}

// Listener receives the full chapter list after every committed change.
type Listener func(Roadmap)

// Editor is the mutable chapter tree behind a roadmap editing session.
// It is not safe for concurrent use; Session serialises access.
type Editor struct {
	chapters  Roadmap
	expanded  map[string]bool
	editing   *EditState
	listeners []Listener
	newID     func() string
}

// NewEditor starts an editor from an initial roadmap. Edit and expanded state
// are keyed by chapter id, so a repeated id is replaced with a fresh one.
func NewEditor(initial Roadmap) *Editor {
	e := &Editor{
		chapters: initial.Renumber(),
		expanded: make(map[string]bool),
		newID:    uuid.NewString,
	}
	seen := make(map[string]bool, len(e.chapters))
	for i := range e.chapters {
		id := e.chapters[i].ID
		if seen[id] {
			id = e.newID()
		}
		e.chapters[i].ID = id
		seen[id] = true
	}
	return e
}

// Subscribe registers a listener for committed changes.
func (e *Editor) Subscribe(l Listener) {
	e.listeners = append(e.listeners, l)
}

// Chapters returns a snapshot of the current tree.
func (e *Editor) Chapters() Roadmap {
	return e.chapters.Clone()
}

// Editing returns the item open for editing, if any.
func (e *Editor) Editing() *EditState {
	if e.editing == nil {
		return nil
	}
	cp := *e.editing
	return &cp
}

// Expanded lists the ids of expanded chapters in tree order.
func (e *Editor) Expanded() []string {
	ids := make([]string, 0, len(e.expanded))
	for _, ch := range e.chapters {
		if e.expanded[ch.ID] {
			ids = append(ids, ch.ID)
		}
	}
	return ids
}

func (e *Editor) publish() {
	for _, l := range e.listeners {
		l(e.chapters.Clone())
	}
}

func (e *Editor) chapterAt(ci int) (*Chapter, error) {
	if ci < 0 || ci >= len(e.chapters) {
		return nil, ErrIndexOutOfRange
	}
	return &e.chapters[ci], nil
}

func (e *Editor) subtopicAt(ci, si int) (*Chapter, error) {
	ch, err := e.chapterAt(ci)
	if err != nil {
		return nil, err
	}
	if si < 0 || si >= len(ch.Subtopics) {
		return nil, ErrIndexOutOfRange
	}
	return ch, nil
}

func (e *Editor) indexOf(chapterID string) int {
	for i, ch := range e.chapters {
		if ch.ID == chapterID {
			return i
		}
	}
	return -1
}

// AddChapter appends an expanded "New Topic" chapter with no subtopics.
func (e *Editor) AddChapter() Chapter {
	e.closeEdit()
	ch := Chapter{ID: e.newID(), Title: newChapterTitle, Subtopics: []string{}}
	e.chapters = append(e.chapters, ch)
	e.expanded[ch.ID] = true
	e.publish()
	return ch
}

// AddFirstSubtopic appends an empty placeholder subtopic to chapter ci,
// opens it for editing and expands the chapter.
func (e *Editor) AddFirstSubtopic(ci int) error {
	ch, err := e.chapterAt(ci)
	if err != nil {
		return err
	}
	e.closeEdit()
	// closeEdit may have removed a placeholder in this chapter; re-read it.
	ch = &e.chapters[ci]
	ch.Subtopics = append(ch.Subtopics, "")
	e.editing = &EditState{Kind: EditSubtopic, ChapterID: ch.ID, Subtopic: len(ch.Subtopics) - 1}
	e.expanded[ch.ID] = true
	e.publish()
	return nil
}

// AddSubtopicAfter inserts "New Subtopic" directly after subtopic si of chapter ci.
func (e *Editor) AddSubtopicAfter(ci, si int) error {
	ch, err := e.subtopicAt(ci, si)
	if err != nil {
		return err
	}
	ch.Subtopics = insertAt(ch.Subtopics, si+1, newSubtopicTitle)
	if ed := e.editing; ed != nil && ed.Kind == EditSubtopic && ed.ChapterID == ch.ID && ed.Subtopic > si {
		ed.Subtopic++
	}
	e.publish()
	return nil
}

// DeleteChapter removes chapter ci and forgets its expanded state.
func (e *Editor) DeleteChapter(ci int) error {
	ch, err := e.chapterAt(ci)
	if err != nil {
		return err
	}
	id := ch.ID
	if e.editing != nil && e.editing.ChapterID == id {
		e.editing = nil
	}
	delete(e.expanded, id)
	e.chapters = append(e.chapters[:ci], e.chapters[ci+1:]...)
	e.publish()
	return nil
}

// DeleteSubtopic removes subtopic si from chapter ci.
func (e *Editor) DeleteSubtopic(ci, si int) error {
	ch, err := e.subtopicAt(ci, si)
	if err != nil {
		return err
	}
	ch.Subtopics = append(ch.Subtopics[:si], ch.Subtopics[si+1:]...)
	if ed := e.editing; ed != nil && ed.Kind == EditSubtopic && ed.ChapterID == ch.ID {
		switch {
		case ed.Subtopic == si:
			e.editing = nil
		case ed.Subtopic > si:
			ed.Subtopic--
		}
	}
	e.publish()
	return nil
}

// ReorderChapters moves the chapter at from to position to. Other chapters keep their relative order.
func (e *Editor) ReorderChapters(from, to int) error {
	if from < 0 || from >= len(e.chapters) || to < 0 || to >= len(e.chapters) {
		return ErrIndexOutOfRange
	}
	if from == to {
		return nil
	}
	e.chapters = move(e.chapters, from, to)
	e.publish()
	return nil
}

// ReorderSubtopics moves a subtopic within chapter ci.
func (e *Editor) ReorderSubtopics(ci, from, to int) error {
	ch, err := e.chapterAt(ci)
	if err != nil {
		return err
	}
	if from < 0 || from >= len(ch.Subtopics) || to < 0 || to >= len(ch.Subtopics) {
		return ErrIndexOutOfRange
	}
	if from == to {
		return nil
	}
	ch.Subtopics = move(ch.Subtopics, from, to)
	if ed := e.editing; ed != nil && ed.Kind == EditSubtopic && ed.ChapterID == ch.ID {
		ed.Subtopic = movedIndex(ed.Subtopic, from, to)
	}
	e.publish()
	return nil
}

// ToggleExpanded flips the expanded flag of chapter ci.
func (e *Editor) ToggleExpanded(ci int) error {
	ch, err := e.chapterAt(ci)
	if err != nil {
		return err
	}
	if e.expanded[ch.ID] {
		delete(e.expanded, ch.ID)
	} else {
		e.expanded[ch.ID] = true
	}
	return nil
}

// StartEditChapter opens chapter ci for renaming. Any other open edit is cancelled first.
func (e *Editor) StartEditChapter(ci int) error {
	ch, err := e.chapterAt(ci)
	if err != nil {
		return err
	}
	id := ch.ID
	if ed := e.editing; ed != nil && ed.Kind == EditChapter && ed.ChapterID == id {
		return nil
	}
	e.closeEdit()
	e.editing = &EditState{Kind: EditChapter, ChapterID: id}
	return nil
}

// RenameChapter commits a new title for the chapter with id. A blank title keeps the old one.
func (e *Editor) RenameChapter(id, title string) error {
	ci := e.indexOf(id)
	if ci < 0 {
		return ErrChapterNotFound
	}
	ch := &e.chapters[ci]
	if e.editing != nil && e.editing.Kind == EditChapter && e.editing.ChapterID == ch.ID {
		e.editing = nil
	}
	trimmed := strings.TrimSpace(title)
	if trimmed == "" || trimmed == ch.Title {
		return nil
	}
	ch.Title = trimmed
	e.publish()
	return nil
}

// CancelChapterEdit closes a chapter edit without changes.
func (e *Editor) CancelChapterEdit() {
	if e.editing != nil && e.editing.Kind == EditChapter {
		e.editing = nil
	}
}

// StartEditSubtopic opens subtopic si of chapter ci. Any other open edit is cancelled first.
func (e *Editor) StartEditSubtopic(ci, si int) error {
	ch, err := e.subtopicAt(ci, si)
	if err != nil {
		return err
	}
	id, value := ch.ID, ch.Subtopics[si]
	if ed := e.editing; ed != nil && ed.Kind == EditSubtopic && ed.ChapterID == id && ed.Subtopic == si {
		return nil
	}
	e.closeEdit()
	// Cancelling may have removed an empty placeholder before si.
	ci = e.indexOf(id)
	si = indexFrom(e.chapters[ci].Subtopics, value, si)
	if si < 0 {
		return ErrIndexOutOfRange
	}
	e.editing = &EditState{Kind: EditSubtopic, ChapterID: id, Subtopic: si}
	return nil
}

// EditSubtopic commits value for subtopic si of chapter ci.
// A blank value removes an empty placeholder and otherwise keeps the original text.
func (e *Editor) EditSubtopic(ci, si int, value string) error {
	ch, err := e.subtopicAt(ci, si)
	if err != nil {
		return err
	}
	if ed := e.editing; ed != nil && ed.Kind == EditSubtopic && ed.ChapterID == ch.ID && ed.Subtopic == si {
		e.editing = nil
	}

	trimmed := strings.TrimSpace(value)
	original := ch.Subtopics[si]
	switch {
	case trimmed == "" && original == "":
		e.removeSubtopic(ch, si)
	case trimmed == "" || trimmed == original:
		return nil
	default:
		ch.Subtopics[si] = trimmed
	}
	e.publish()
	return nil
}

// CancelSubtopicEdit closes the open subtopic edit. An empty placeholder is removed.
func (e *Editor) CancelSubtopicEdit() {
	ed := e.editing
	if ed == nil || ed.Kind != EditSubtopic {
		return
	}
	e.editing = nil
	ci := e.indexOf(ed.ChapterID)
	if ci < 0 {
		return
	}
	ch := &e.chapters[ci]
	if ed.Subtopic < len(ch.Subtopics) && ch.Subtopics[ed.Subtopic] == "" {
		e.removeSubtopic(ch, ed.Subtopic)
		e.publish()
	}
}

// closeEdit cancels whatever is open using the cancel semantics of its kind.
func (e *Editor) closeEdit() {
	if e.editing == nil {
		return
	}
	if e.editing.Kind == EditSubtopic {
		e.CancelSubtopicEdit()
		return
	}
	e.CancelChapterEdit()
}

func (e *Editor) removeSubtopic(ch *Chapter, si int) {
	ch.Subtopics = append(ch.Subtopics[:si], ch.Subtopics[si+1:]...)
	if ed := e.editing; ed != nil && ed.Kind == EditSubtopic && ed.ChapterID == ch.ID && ed.Subtopic > si {
		ed.Subtopic--
	}
}

func insertAt(items []string, at int, value string) []string {
	items = append(items, "")
	copy(items[at+1:], items[at:])
	items[at] = value
	return items
}

// move removes the element at from and reinserts it at to.
func move[T any](items []T, from, to int) []T {
	item := items[from]
	items = append(items[:from], items[from+1:]...)
	items = append(items, item)
	copy(items[to+1:], items[to:len(items)-1])
	items[to] = item
	return items
}

// movedIndex reports where the element at idx ends up after move(from, to).
func movedIndex(idx, from, to int) int {
	switch {
	case idx == from:
		return to
	case from < idx && idx <= to:
		return idx - 1
	case to <= idx && idx < from:
		return idx + 1
	default:
		return idx
	}
}

// indexFrom finds value nearest to hint, preferring hint and the slot before it.
func indexFrom(items []string, value string, hint int) int {
	for _, i := range []int{hint, hint - 1} {
		if i >= 0 && i < len(items) && items[i] == value {
			return i
		}
	}
	for i, item := range items {
		if item == value {
			return i
		}
	}
	return -1
}
