// Package extract implements the chunk extractor: per-chunk LLM extraction
// of the five record classes into a raw record set.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/graphkeep/graphkeep/pkg/ingest/chunk"
	"github.com/graphkeep/graphkeep/pkg/llmgateway"
)

// RecordSet mirrors ent/schema/recordset.go's five parallel maps.
type RecordSet struct {
	Products            []map[string]any `json:"products"`
	Customers           map[string]any   `json:"customers"`
	SuppliersOrPartners map[string]any   `json:"suppliers_or_partners"`
	Competitors         map[string]any   `json:"competitors"`
	Directors           map[string]any   `json:"directors"`
}

// maxAttempts bounds retries on missing/unparseable <results> output: after
// this many attempts the chunk is skipped and the error surfaces to the
// orchestrator.
const maxAttempts = 3

// Extractor pulls structured records out of one chunk's text.
type Extractor struct {
	gateway *llmgateway.Client
}

// NewExtractor builds an Extractor over gw.
func NewExtractor(gw *llmgateway.Client) *Extractor {
	return &Extractor{gateway: gw}
}

// ExtractChunk prompts the LLM with the document summary and chunk text,
// requesting a JSON object enclosing all five record classes within
// <results></results>. On absence or parse failure the prompt is retried
// verbatim up to maxAttempts times. Every record is stamped with SOURCE =
// sourceBasename, uppercased.
func (e *Extractor) ExtractChunk(ctx context.Context, summary map[string]any, c chunk.Chunk, sourceBasename string) (*RecordSet, error) {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	prompt := fmt.Sprintf("Document summary:\n%s\n\nChunk text:\n%s", summaryJSON, c.Text)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		rs, err := e.tryExtract(ctx, prompt)
		if err == nil {
			stampSource(rs, strings.ToUpper(sourceBasename))
			return rs, nil
		}
		lastErr = err
		log.Printf("extract: chunk %s attempt %d/%d failed: %v", c.ID, attempt, maxAttempts, err)
	}
	return nil, fmt.Errorf("extraction failed after %d attempts: %w", maxAttempts, lastErr)
}

func (e *Extractor) tryExtract(ctx context.Context, prompt string) (*RecordSet, error) {
	chunks, errs := e.gateway.Generate(ctx, llmgateway.Request{
		SystemPrompt: extractSystemPrompt,
		UserPrompt:   prompt,
	})

	var text strings.Builder
	for ch := range chunks {
		if ch.Err != nil {
			return nil, ch.Err
		}
		text.WriteString(ch.Text)
	}
	if err := <-errs; err != nil {
		return nil, err
	}

	raw := llmgateway.GetTextWithinTags(text.String(), "results")
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("no <results> tag in extraction response")
	}

	var rs RecordSet
	if err := json.Unmarshal([]byte(llmgateway.CleanJSONString(raw)), &rs); err != nil {
		return nil, fmt.Errorf("parse extraction JSON: %w", err)
	}
	return &rs, nil
}

func stampSource(rs *RecordSet, source string) {
	for i := range rs.Products {
		rs.Products[i]["source"] = source
	}
	stampMap(rs.Customers, source)
	stampMap(rs.SuppliersOrPartners, source)
	stampMap(rs.Competitors, source)
	stampMap(rs.Directors, source)
}

func stampMap(records map[string]any, source string) {
	for _, v := range records {
		if m, ok := v.(map[string]any); ok {
			m["SOURCE"] = source
		}
	}
}

const extractSystemPrompt = `You extract structured business records from a document chunk given the document's summary for context. Identify five record classes: commercial products or services, customers, suppliers or partners, competitors, and directors. Respond with one JSON object containing keys "products" (array), "customers", "suppliers_or_partners", "competitors", "directors" (each an object keyed by entity name), enclosed in <results></results> tags.`
