package chunk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/graphkeep/graphkeep/pkg/llmgateway"
)

// narrativeSummaryFields are stripped from the short summary variant
// carried by every chunk.
var narrativeSummaryFields = []string{
	"SUMMARY_OF_BUSINESS_PERFORMANCE",
	"SUMMARY_OF_BUSINESS_STRATEGY",
}

// Summary is the document summary produced from the leading chunks: full
// carries every extracted attribute, short strips the two narrative fields
// so later stages that don't need prose (e.g. disambiguation context) don't
// pay to carry it.
type Summary struct {
	Full  map[string]any
	Short map[string]any
}

// Generator produces a document summary by prompting the LLM gateway with
// the document's leading chunks.
type Generator struct {
	gateway *llmgateway.Client
}

// NewGenerator builds a Generator over gw.
func NewGenerator(gw *llmgateway.Client) *Generator {
	return &Generator{gateway: gw}
}

// GenerateDocumentSummary joins the first min(40, len(chunks)-1) chunks and
// prompts the LLM for a main-entity JSON summary, attaching a SOURCE
// attribute with the uppercased basename. On an "input too long" error the
// caller shrinks the joined input to 75% of its chunk count and retries,
// bounded to avoid looping forever on a pathologically short document.
func (g *Generator) GenerateDocumentSummary(ctx context.Context, chunks []Chunk, sourceBasename string) (*Summary, error) {
	count := len(chunks) - 1
	if count > 40 {
		count = 40
	}
	if count < 1 {
		count = 1
	}
	if count > len(chunks) {
		count = len(chunks)
	}

	for attempt := 0; attempt < 6 && count >= 1; attempt++ {
		full, err := g.tryGenerate(ctx, chunks[:count], sourceBasename)
		if err == nil {
			short := stripNarrativeFields(full)
			return &Summary{Full: full, Short: short}, nil
		}
		if !isInputTooLongError(err) {
			return nil, err
		}
		count = int(float64(count) * 0.75)
	}

	return nil, fmt.Errorf("could not generate document summary: input remained too long after repeated shrinking")
}

func (g *Generator) tryGenerate(ctx context.Context, chunks []Chunk, sourceBasename string) (map[string]any, error) {
	var joined strings.Builder
	for _, c := range chunks {
		joined.WriteString(c.Text)
		joined.WriteByte('\n')
	}

	chunkStream, errs := g.gateway.Generate(ctx, llmgateway.Request{
		SystemPrompt: summarySystemPrompt,
		UserPrompt:   joined.String(),
	})

	var text strings.Builder
	for chunk := range chunkStream {
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		text.WriteString(chunk.Text)
	}
	if err := <-errs; err != nil {
		return nil, err
	}

	raw := llmgateway.GetTextWithinTags(text.String(), "results")
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("empty document summary result")
	}

	var summary map[string]any
	if err := json.Unmarshal([]byte(llmgateway.CleanJSONString(raw)), &summary); err != nil {
		return nil, fmt.Errorf("parse document summary JSON: %w", err)
	}

	summary["SOURCE"] = strings.ToUpper(sourceBasename)
	return summary, nil
}

func stripNarrativeFields(full map[string]any) map[string]any {
	short := make(map[string]any, len(full))
	for k, v := range full {
		short[k] = v
	}
	for _, f := range narrativeSummaryFields {
		delete(short, f)
	}
	return short
}

// isInputTooLongError reports whether err is the provider's "input too
// long" validation error, which the caller (not the gateway) must handle by
// shrinking the input.
func isInputTooLongError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "input too long") ||
		strings.Contains(strings.ToLower(err.Error()), "input is too long") ||
		strings.Contains(strings.ToLower(err.Error()), "context length")
}

const summarySystemPrompt = `You summarize a business document's opening chunks into a JSON object describing the main entity. Include a MAIN_ENTITY object with its NAME, and attribute fields including SUMMARY_OF_BUSINESS_PERFORMANCE and SUMMARY_OF_BUSINESS_STRATEGY narrative fields where available. Respond with the JSON object enclosed in <results></results> tags.`
