package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/course"
	"github.com/leap-learning/leap-server/internal/features/roadmap"
	"github.com/leap-learning/leap-server/pkg/memory"
	"github.com/leap-learning/leap-server/pkg/metrics"
	"github.com/leap-learning/leap-server/pkg/youtube"
)

// LessonView is what the curation screen shows for one lesson: the stored
// selection when there is one, otherwise the search candidates.
type LessonView struct {
	ChapterTitle string          `json:"chapterTitle"`
	SubtopicName string          `json:"subtopicName"`
	Key          string          `json:"key"`
	Selection    *Selection      `json:"selection,omitempty"`
	Candidates   []youtube.Video `json:"candidates"`
}

// draft holds the candidates fetched for one user's curation of one course.
type draft struct {
	mu         sync.Mutex
	candidates map[roadmap.LessonKey][]youtube.Video
}

func (d *draft) get(key roadmap.LessonKey) ([]youtube.Video, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	videos, ok := d.candidates[key]
	return videos, ok
}

func (d *draft) put(key roadmap.LessonKey, videos []youtube.Video) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.candidates[key] = videos
}

// Curator runs video curation for a course owner.
type Curator struct {
	mu          sync.Mutex
	db          *gorm.DB
	searcher    youtube.Searcher
	drafts      *memory.Cache
	maxResults  int64
	concurrency int
	logger      *slog.Logger
}

// CuratorConfig tunes searches.
type CuratorConfig struct {
	MaxResults  int64
	Concurrency int
	DraftTTL    time.Duration
}

// NewCurator creates a curator. searcher may be nil, in which case lessons
// without a selection get no candidates.
func NewCurator(db *gorm.DB, searcher youtube.Searcher, cfg CuratorConfig, logger *slog.Logger) *Curator {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.DraftTTL <= 0 {
		cfg.DraftTTL = time.Hour
	}
	return &Curator{
		db:          db,
		searcher:    searcher,
		drafts:      memory.New(cfg.DraftTTL),
		maxResults:  cfg.MaxResults,
		concurrency: cfg.Concurrency,
		logger:      logger,
	}
}

// Close stops the draft cache sweeper.
func (cu *Curator) Close() {
	cu.drafts.Close()
}

func (cu *Curator) draftFor(userID, courseID uuid.UUID) *draft {
	cu.mu.Lock()
	defer cu.mu.Unlock()

	key := memory.Key("video-draft", userID.String(), courseID.String())
	v, _ := cu.drafts.GetOrSet(key, func() (interface{}, error) {
		return &draft{candidates: make(map[roadmap.LessonKey][]youtube.Video)}, nil
	})
	cu.drafts.Touch(key)
	return v.(*draft)
}

func (cu *Curator) search(ctx context.Context, key roadmap.LessonKey) ([]youtube.Video, error) {
	if cu.searcher == nil {
		return []youtube.Video{}, nil
	}
	metrics.RecordVideoSearch()
	videos, err := cu.searcher.Search(ctx, key.Subtopic, cu.maxResults)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	if videos == nil {
		videos = []youtube.Video{}
	}
	return videos, nil
}

func newView(key roadmap.LessonKey) LessonView {
	return LessonView{
		ChapterTitle: key.Chapter,
		SubtopicName: key.Subtopic,
		Key:          key.String(),
		Candidates:   []youtube.Video{},
	}
}

// Candidates returns the view for one lesson. A stored selection is returned
// without contacting the search provider.
func (cu *Curator) Candidates(ctx context.Context, userID uuid.UUID, c course.Course, key roadmap.LessonKey) (LessonView, error) {
	rm, err := c.Chapters()
	if err != nil {
		return LessonView{}, err
	}
	if !rm.Contains(key) {
		return LessonView{}, ErrUnknownLesson
	}

	view := newView(key)
	sel, err := Get(cu.db.WithContext(ctx), c.ID, key)
	switch {
	case err == nil:
		view.Selection = &sel
		return view, nil
	case !errors.Is(err, ErrSelectionNotFound):
		return LessonView{}, err
	}

	d := cu.draftFor(userID, c.ID)
	if videos, ok := d.get(key); ok {
		view.Candidates = videos
		return view, nil
	}

	videos, err := cu.search(ctx, key)
	if err != nil {
		return LessonView{}, err
	}
	d.put(key, videos)
	view.Candidates = videos
	return view, nil
}

// Plan builds the view for every lesson of a course. Only lessons without a
// stored selection are searched, with bounded concurrency. A failed search
// leaves that lesson with no candidates.
func (cu *Curator) Plan(ctx context.Context, userID uuid.UUID, c course.Course) ([]LessonView, error) {
	rm, err := c.Chapters()
	if err != nil {
		return nil, err
	}
	selected, err := SelectionMap(cu.db.WithContext(ctx), c.ID)
	if err != nil {
		return nil, err
	}

	lessons := rm.Lessons()
	views := make([]LessonView, len(lessons))
	d := cu.draftFor(userID, c.ID)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cu.concurrency)
	for i, key := range lessons {
		views[i] = newView(key)
		if sel, ok := selected[key]; ok {
			views[i].Selection = &sel
			continue
		}
		if videos, ok := d.get(key); ok {
			views[i].Candidates = videos
			continue
		}

		g.Go(func() error {
			videos, err := cu.search(gctx, key)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				cu.logger.WarnContext(gctx, "video search failed",
					slog.String("courseId", c.ID.String()),
					slog.String("lesson", key.String()),
					slog.String("error", err.Error()),
				)
				return nil
			}
			d.put(key, videos)
			views[i].Candidates = videos
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

// Choose stores a choice for one lesson, replacing any previous one.
func (cu *Curator) Choose(ctx context.Context, c course.Course, key roadmap.LessonKey, choice Choice) (Selection, error) {
	rm, err := c.Chapters()
	if err != nil {
		return Selection{}, err
	}
	if !rm.Contains(key) {
		return Selection{}, ErrUnknownLesson
	}
	return Upsert(cu.db.WithContext(ctx), c.ID, key, choice)
}

// Deselect drops the stored choice for a lesson. When no candidates were
// fetched for it earlier, the search provider is queried again.
func (cu *Curator) Deselect(ctx context.Context, userID uuid.UUID, c course.Course, key roadmap.LessonKey) (LessonView, error) {
	rm, err := c.Chapters()
	if err != nil {
		return LessonView{}, err
	}
	if !rm.Contains(key) {
		return LessonView{}, ErrUnknownLesson
	}
	if err := Remove(cu.db.WithContext(ctx), c.ID, key); err != nil {
		return LessonView{}, err
	}

	view := newView(key)
	d := cu.draftFor(userID, c.ID)
	if videos, ok := d.get(key); ok && len(videos) > 0 {
		view.Candidates = videos
		return view, nil
	}

	videos, err := cu.search(ctx, key)
	if err != nil {
		cu.logger.WarnContext(ctx, "video search failed",
			slog.String("courseId", c.ID.String()),
			slog.String("lesson", key.String()),
			slog.String("error", err.Error()),
		)
		return view, nil
	}
	d.put(key, videos)
	view.Candidates = videos
	return view, nil
}

// Finish replaces every stored choice of a course with choices. Lessons that
// are not in the roadmap are rejected.
func (cu *Curator) Finish(ctx context.Context, userID uuid.UUID, c course.Course, choices []LessonChoice) ([]Selection, error) {
	rm, err := c.Chapters()
	if err != nil {
		return nil, err
	}
	keys := rm.KeySet()
	for _, lc := range choices {
		if _, ok := keys[roadmap.LessonKey{Chapter: lc.ChapterTitle, Subtopic: lc.SubtopicName}]; !ok {
			return nil, ErrUnknownLesson
		}
	}

	rows, err := ReplaceAll(cu.db.WithContext(ctx), c.ID, choices)
	if err != nil {
		return nil, err
	}
	cu.drafts.Delete(memory.Key("video-draft", userID.String(), c.ID.String()))

	cu.logger.InfoContext(ctx, "course videos saved",
		slog.String("courseId", c.ID.String()),
		slog.Int("selections", len(rows)),
	)
	return rows, nil
}
