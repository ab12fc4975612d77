package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitDocument_SinglePageUnderBudget(t *testing.T) {
	chunks := SplitDocument([]string{"hello world"})
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].StartPage)
	assert.Equal(t, 0, chunks[0].EndPage)
	assert.Equal(t, "hello world", chunks[0].Text)
}

func TestSplitDocument_SplitsOnBudget(t *testing.T) {
	bigPage := strings.Repeat("word ", 400)
	pages := []string{bigPage, bigPage, bigPage}

	chunks := SplitDocument(pages)
	require.Len(t, chunks, 3)
	assert.Equal(t, 0, chunks[0].StartPage)
	assert.Equal(t, 0, chunks[0].EndPage)
	assert.Equal(t, 1, chunks[1].StartPage)
	assert.Equal(t, 2, chunks[2].EndPage)
}

func TestSplitDocument_CoversAllPagesNoGapsNoOverlap(t *testing.T) {
	pages := make([]string, 10)
	for i := range pages {
		pages[i] = strings.Repeat("w ", 80)
	}

	chunks := SplitDocument(pages)
	require.NotEmpty(t, chunks)

	covered := -1
	for _, c := range chunks {
		assert.Equal(t, covered+1, c.StartPage, "no gap or overlap")
		covered = c.EndPage
	}
	assert.Equal(t, len(pages)-1, covered)
}

func TestSplitDocument_AlwaysFlushesFinalChunk(t *testing.T) {
	chunks := SplitDocument([]string{"short page one", "short page two"})
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].EndPage)
}

func TestNormalizePageText(t *testing.T) {
	in := "Hello World\n\nfoo  bar \"\"quoted\"\""
	got := normalizePageText(in)
	assert.Equal(t, `Hello World foo bar "quoted"`, got)
}
