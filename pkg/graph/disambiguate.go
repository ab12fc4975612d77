package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/graphkeep/graphkeep/pkg/llmgateway"
)

// noMatchFound is the literal sentinel the disambiguation prompt is
// instructed to answer with when no candidate is the same real-world
// entity.
const noMatchFound = "NO MATCH FOUND"

// Disambiguator resolves a candidate-id union to exactly one id, or
// reports no match. The only implementation talks to the LLM gateway; it is
// an interface here so resolution logic can be tested without a live
// generation backend.
type Disambiguator interface {
	Disambiguate(ctx context.Context, label, name string, attrs map[string]string, contextEdges []string, candidates []Candidate) (string, error)
}

// llmDisambiguator implements Disambiguator over pkg/llmgateway.
type llmDisambiguator struct {
	gateway *llmgateway.Client
}

// NewLLMDisambiguator builds a Disambiguator backed by gw.
func NewLLMDisambiguator(gw *llmgateway.Client) Disambiguator {
	return &llmDisambiguator{gateway: gw}
}

func (d *llmDisambiguator) Disambiguate(ctx context.Context, label, name string, attrs map[string]string, contextEdges []string, candidates []Candidate) (string, error) {
	if len(candidates) == 0 {
		return "", nil
	}
	if len(candidates) == 1 {
		return candidates[0].ID, nil
	}

	prompt := buildDisambiguationPrompt(label, name, attrs, contextEdges, candidates)
	chunks, errs := d.gateway.Generate(ctx, llmgateway.Request{
		SystemPrompt: disambiguationSystemPrompt,
		UserPrompt:   prompt,
	})

	var text strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		text.WriteString(chunk.Text)
	}
	if err := <-errs; err != nil {
		return "", err
	}

	answer := llmgateway.GetTextWithinTags(text.String(), "results")
	answer = strings.TrimSpace(answer)
	if answer == "" || strings.EqualFold(answer, noMatchFound) {
		return "", nil
	}

	for _, c := range candidates {
		if c.ID == answer {
			return c.ID, nil
		}
	}
	return "", nil
}

const disambiguationSystemPrompt = `You resolve whether a candidate entity name refers to the same real-world company or person as one of a set of existing graph vertices. Respond with exactly one candidate id inside <results></results> tags, or NO MATCH FOUND if none of the candidates are the same entity.`

func buildDisambiguationPrompt(label, name string, attrs map[string]string, contextEdges []string, candidates []Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Entity type: %s\nName: %s\n", label, name)
	if len(attrs) > 0 {
		b.WriteString("Known attributes:\n")
		for k, v := range attrs {
			fmt.Fprintf(&b, "  %s: %s\n", k, v)
		}
	}
	if len(contextEdges) > 0 {
		b.WriteString("Context relationships:\n")
		for _, e := range contextEdges {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}
	b.WriteString("Candidates:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "  id=%s name=%s\n", c.ID, c.Name)
	}
	b.WriteString("\nRespond with <results>ID</results> or <results>NO MATCH FOUND</results>.")
	return b.String()
}
