package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leap-learning/leap-server/internal/features/roadmap"
)

func intro() roadmap.Roadmap {
	return roadmap.Roadmap{{ID: "1", Title: "Intro", Subtopics: []string{"What is X", "Why X"}}}
}

func TestComputeIntroScenario(t *testing.T) {
	rm := intro()
	watched := map[roadmap.LessonKey]bool{}

	c := Compute(rm, watched)
	assert.Equal(t, Completion{Total: 2, HasLessons: true}, c)

	watched[roadmap.NewLessonKey("Intro", "What is X")] = true
	c = Compute(rm, watched)
	assert.Equal(t, 50, c.Percent)
	assert.False(t, c.Complete())

	watched[roadmap.NewLessonKey("Intro", "Why X")] = true
	c = Compute(rm, watched)
	assert.Equal(t, 100, c.Percent)
	assert.True(t, c.Complete())
}

func TestComputeRoundsHalfUp(t *testing.T) {
	rm := roadmap.Roadmap{{Title: "A", Subtopics: []string{"1", "2", "3"}}}

	c := Compute(rm, map[roadmap.LessonKey]bool{{Chapter: "A", Subtopic: "1"}: true})
	assert.Equal(t, 33, c.Percent)

	c = Compute(rm, map[roadmap.LessonKey]bool{
		{Chapter: "A", Subtopic: "1"}: true,
		{Chapter: "A", Subtopic: "2"}: true,
	})
	assert.Equal(t, 67, c.Percent)

	rm = roadmap.Roadmap{{Title: "B", Subtopics: []string{"1", "2", "3", "4", "5", "6", "7", "8"}}}
	c = Compute(rm, map[roadmap.LessonKey]bool{{Chapter: "B", Subtopic: "1"}: true})
	assert.Equal(t, 13, c.Percent)
}

func TestComputeStaysBelowHundredUntilDone(t *testing.T) {
	subs := make([]string, 200)
	for i := range subs {
		subs[i] = string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	rm := roadmap.Roadmap{{Title: "Big", Subtopics: subs}}

	watched := map[roadmap.LessonKey]bool{}
	last := 0
	for i, sub := range subs {
		watched[roadmap.LessonKey{Chapter: "Big", Subtopic: sub}] = true
		c := Compute(rm, watched)
		assert.GreaterOrEqual(t, c.Percent, last)
		last = c.Percent
		if i < len(subs)-1 {
			assert.Less(t, c.Percent, 100, "lesson %d", i)
		}
	}
	assert.Equal(t, 100, last)
}

func TestComputeIgnoresForeignAndUnwatchedKeys(t *testing.T) {
	c := Compute(intro(), map[roadmap.LessonKey]bool{
		roadmap.OverviewKey("Intro"):          true,
		{Chapter: "Gone", Subtopic: "Old"}:    true,
		{Chapter: "Intro", Subtopic: "Why X"}: false,
	})
	assert.Equal(t, 0, c.Watched)
	assert.Equal(t, 0, c.Percent)
}

func TestComputeNoLessons(t *testing.T) {
	c := Compute(roadmap.Roadmap{{Title: "Empty"}}, map[roadmap.LessonKey]bool{})
	assert.False(t, c.HasLessons)
	assert.False(t, c.Complete())
	assert.Zero(t, c.Total)

	assert.False(t, Compute(nil, nil).HasLessons)
}
