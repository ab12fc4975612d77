// Package chunk implements the chunker: splitting a document's per-page
// text into token-budget-bounded chunks and generating the document
// summary those chunks carry forward.
package chunk

import (
	"strings"

	"github.com/google/uuid"
)

// MaxTokensPerChunk bounds a chunk's estimated token count, approximated by
// word count.
const MaxTokensPerChunk = 500

// nbsp is the non-breaking space the source PDF extractor emits in place of
// regular spaces.
const nbsp = "\u00A0"

// Chunk is one page-contiguous slice of a document's text.
type Chunk struct {
	ID        string
	StartPage int
	EndPage   int
	Text      string
}

// SplitDocument normalizes each page's text and greedily accumulates pages
// until the running word count would exceed MaxTokensPerChunk, then emits a
// chunk and resets. The final chunk is always flushed, even if under
// budget.
//
// Invariant: the returned chunks cover every page exactly once, in order,
// with no gaps or overlap.
func SplitDocument(pages []string) []Chunk {
	var chunks []Chunk

	startPage := 0
	var buf strings.Builder
	wordCount := 0

	flush := func(endPage int) {
		if buf.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			ID:        uuid.NewString(),
			StartPage: startPage,
			EndPage:   endPage,
			Text:      buf.String(),
		})
		buf.Reset()
		wordCount = 0
	}

	for i, raw := range pages {
		text := normalizePageText(raw)
		words := len(strings.Fields(text))

		if wordCount > 0 && wordCount+words > MaxTokensPerChunk {
			flush(i - 1)
			startPage = i
		}

		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(text)
		wordCount += words
	}

	flush(len(pages) - 1)
	return chunks
}

// normalizePageText strips non-breaking spaces, collapses runs of
// whitespace and doubled quotes the way the source PDF extractor tends to
// emit them. Ported from splitDocument's per-page cleanup.
func normalizePageText(s string) string {
	s = strings.ReplaceAll(s, nbsp, " ")
	s = strings.ReplaceAll(s, "\n", " ")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	s = strings.ReplaceAll(s, `""`, `"`)
	return strings.TrimSpace(s)
}
