package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoadmapStrict(t *testing.T) {
	rm, err := ParseRoadmap(`[{"id":"1","title":"Basics","subtopics":["Variables","Functions"]}]`)
	require.NoError(t, err)
	require.Len(t, rm, 1)
	assert.Equal(t, "Basics", rm[0].Title)
	assert.Equal(t, 2, rm.TotalLessons())
}

func TestParseRoadmapStripsFences(t *testing.T) {
	text := "```json\n[{\"title\":\"Basics\",\"subtopics\":[\"Variables\"]}]\n```"
	rm, err := ParseRoadmap(text)
	require.NoError(t, err)
	assert.Equal(t, "1", rm[0].ID, "missing ids are numbered")
}

func TestParseRoadmapLenient(t *testing.T) {
	text := "Sure! Here is your roadmap:\n[{\"id\":1,\"title\":\"Basics\",\"subtopics\":[\"Variables\"]}]\nGood luck."
	rm, err := ParseRoadmap(text)
	require.NoError(t, err)
	assert.Equal(t, "Basics", rm[0].Title)
	assert.Equal(t, "1", rm[0].ID)
}

func TestParseRoadmapRejectsInvalid(t *testing.T) {
	cases := []string{
		"no json here",
		"[]",
		`[{"title":"","subtopics":["x"]}]`,
		`[{"title":"Basics","subtopics":[]}]`,
		`[{"title":"Basics","subtopics":["  "]}]`,
		`[{"title":"A","subtopics":["x"]},{"title":"A","subtopics":["y"]}]`,
		`[{"title":"Basics","subtopics":["x"]`,
	}
	for _, text := range cases {
		_, err := ParseRoadmap(text)
		assert.ErrorIs(t, err, ErrMalformedOutput, text)
	}
}

func TestUnwrapContent(t *testing.T) {
	assert.Equal(t, `\section{A}`, UnwrapContent(`  {"content": "\\section{A}"}  `))
	assert.Equal(t, `\section{A}`, UnwrapContent("\n\\section{A}\n"))
	assert.Equal(t, `{"other": 1}`, UnwrapContent(`{"other": 1}`))
	assert.Equal(t, `{not json}`, UnwrapContent(`{not json}`))
}
