package roadmap

import "fmt"

// Op names an editor operation carried over the wire.
type Op string

const (
	OpAddChapter         Op = "addChapter"
	OpAddFirstSubtopic   Op = "addFirstSubtopic"
	OpAddSubtopicAfter   Op = "addSubtopicAfter"
	OpDeleteChapter      Op = "deleteChapter"
	OpDeleteSubtopic     Op = "deleteSubtopic"
	OpReorderChapters    Op = "reorderChapters"
	OpReorderSubtopics   Op = "reorderSubtopics"
	OpToggleExpanded     Op = "toggleExpanded"
	OpStartEditChapter   Op = "startEditChapter"
	OpRenameChapter      Op = "renameChapter"
	OpCancelChapterEdit  Op = "cancelChapterEdit"
	OpStartEditSubtopic  Op = "startEditSubtopic"
	OpEditSubtopic       Op = "editSubtopic"
	OpCancelSubtopicEdit Op = "cancelSubtopicEdit"
)

// Command is one serialized editor operation.
// Chapter and Subtopic are zero-based indexes; From and To are used by reorders.
// ChapterID addresses the chapter for renames.
type Command struct {
	Op        Op     `json:"op" binding:"required"`
	Chapter   int    `json:"chapter"`
	ChapterID string `json:"chapterId"`
	Subtopic  int    `json:"subtopic"`
	From      int    `json:"from"`
	To        int    `json:"to"`
	Value     string `json:"value"`
}

// Apply dispatches cmd to the matching editor operation.
func (e *Editor) Apply(cmd Command) error {
	switch cmd.Op {
	case OpAddChapter:
		e.AddChapter()
		return nil
	case OpAddFirstSubtopic:
		return e.AddFirstSubtopic(cmd.Chapter)
	case OpAddSubtopicAfter:
		return e.AddSubtopicAfter(cmd.Chapter, cmd.Subtopic)
	case OpDeleteChapter:
		return e.DeleteChapter(cmd.Chapter)
	case OpDeleteSubtopic:
		return e.DeleteSubtopic(cmd.Chapter, cmd.Subtopic)
	case OpReorderChapters:
		return e.ReorderChapters(cmd.From, cmd.To)
	case OpReorderSubtopics:
		return e.ReorderSubtopics(cmd.Chapter, cmd.From, cmd.To)
	case OpToggleExpanded:
		return e.ToggleExpanded(cmd.Chapter)
	case OpStartEditChapter:
		return e.StartEditChapter(cmd.Chapter)
	case OpRenameChapter:
		return e.RenameChapter(cmd.ChapterID, cmd.Value)
	case OpCancelChapterEdit:
		e.CancelChapterEdit()
		return nil
	case OpStartEditSubtopic:
		return e.StartEditSubtopic(cmd.Chapter, cmd.Subtopic)
	case OpEditSubtopic:
		return e.EditSubtopic(cmd.Chapter, cmd.Subtopic, cmd.Value)
	case OpCancelSubtopicEdit:
		e.CancelSubtopicEdit()
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Op)
	}
}
