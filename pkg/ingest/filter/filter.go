// Package filter implements the filter: four parallel LLM classification
// passes (customers, suppliers/partners, competitors, directors) that
// narrow each consolidated bucket down to real entities.
package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/graphkeep/graphkeep/pkg/llmgateway"
)

// shardSize bounds how many candidate keys are sent to the LLM in a single
// classification call: larger buckets are split into shards and the
// filtered results unioned.
const shardSize = 100

// Kind selects the classification prompt and real-entity criterion for one
// bucket.
type Kind string

const (
	KindCustomers   Kind = "customers"
	KindSuppliers   Kind = "suppliers_or_partners"
	KindCompetitors Kind = "competitors"
	KindDirectors   Kind = "directors"
)

// Filter narrows a consolidated bucket to real entities.
type Filter struct {
	gateway  *llmgateway.Client
	stoplist *vm.Program
}

// NewFilter builds a Filter. stoplistExpr is an expr-lang boolean
// expression evaluated against {Name string, Length int} for each
// candidate before it is ever sent to the LLM — a cheap pre-screen that
// drops obviously-non-entity names (boilerplate headers, page artifacts)
// without spending a generation call on them. An empty expression disables
// the pre-screen.
func NewFilter(gw *llmgateway.Client, stoplistExpr string) (*Filter, error) {
	f := &Filter{gateway: gw}
	if strings.TrimSpace(stoplistExpr) == "" {
		return f, nil
	}
	prog, err := expr.Compile(stoplistExpr, expr.Env(stoplistEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter stoplist expression: %w", err)
	}
	f.stoplist = prog
	return f, nil
}

// stoplistEnv is the expr-lang evaluation environment for one candidate
// name.
type stoplistEnv struct {
	Name   string
	Length int
}

// FilterBucket classifies raw's keys (each a candidate entity name mapped
// to its consolidated record), sharding at shardSize and unioning the
// filtered results, then reconstructs the bucket from only the keys the
// LLM confirmed. Keys the LLM hallucinated that aren't in raw are dropped
// silently with a log line.
func (f *Filter) FilterBucket(ctx context.Context, kind Kind, raw map[string]map[string]any) (map[string]map[string]any, error) {
	candidates := f.preScreen(raw)
	if len(candidates) == 0 {
		return map[string]map[string]any{}, nil
	}

	shards := shardKeys(candidates, shardSize)

	var mu sync.Mutex
	filteredSet := map[string]bool{}
	var firstErr error

	var wg sync.WaitGroup
	for _, shard := range shards {
		shard := shard
		wg.Add(1)
		go func() {
			defer wg.Done()
			keys, err := f.classifyShard(ctx, kind, shard, raw)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			for _, k := range keys {
				filteredSet[k] = true
			}
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	result := map[string]map[string]any{}
	for k := range filteredSet {
		record, ok := raw[k]
		if !ok {
			log.Printf("filter: dropping hallucinated key %q not present in input bucket", k)
			continue
		}
		result[k] = record
	}
	return result, nil
}

// preScreen drops candidates the stoplist expression rejects before any LLM
// call is made.
func (f *Filter) preScreen(raw map[string]map[string]any) []string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		if f.stoplist != nil {
			env := stoplistEnv{Name: k, Length: len(k)}
			out, err := expr.Run(f.stoplist, env)
			if err == nil {
				if stop, ok := out.(bool); ok && stop {
					continue
				}
			}
		}
		keys = append(keys, k)
	}
	return keys
}

func shardKeys(keys []string, size int) [][]string {
	var shards [][]string
	for i := 0; i < len(keys); i += size {
		end := i + size
		if end > len(keys) {
			end = len(keys)
		}
		shards = append(shards, keys[i:end])
	}
	return shards
}

func (f *Filter) classifyShard(ctx context.Context, kind Kind, shard []string, raw map[string]map[string]any) ([]string, error) {
	payload := make(map[string]map[string]any, len(shard))
	for _, k := range shard {
		payload[k] = raw[k]
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal filter shard: %w", err)
	}

	chunks, errs := f.gateway.Generate(ctx, llmgateway.Request{
		SystemPrompt: systemPromptFor(kind),
		UserPrompt:   string(payloadJSON),
	})

	var text strings.Builder
	for c := range chunks {
		if c.Err != nil {
			return nil, c.Err
		}
		text.WriteString(c.Text)
	}
	if err := <-errs; err != nil {
		return nil, err
	}

	raw2 := llmgateway.GetTextWithinTags(text.String(), "results")
	var keys []string
	if err := json.Unmarshal([]byte(llmgateway.CleanJSONString(raw2)), &keys); err != nil {
		return nil, fmt.Errorf("parse filter response for %s: %w", kind, err)
	}
	return keys, nil
}

func systemPromptFor(kind Kind) string {
	switch kind {
	case KindCustomers:
		return `Given a JSON object keyed by candidate customer name, respond with a JSON array (inside <results></results>) of only the keys that name a real company or organisation that is genuinely a customer, excluding generic terms, document artifacts, or non-entities.`
	case KindSuppliers:
		return `Given a JSON object keyed by candidate supplier/partner name, respond with a JSON array (inside <results></results>) of only the keys that name a real company or organisation that is genuinely a supplier or partner.`
	case KindCompetitors:
		return `Given a JSON object keyed by candidate competitor name, respond with a JSON array (inside <results></results>) of only the keys that name a real company or organisation that is genuinely a competitor.`
	case KindDirectors:
		return `Given a JSON object keyed by candidate director name, first deduplicate name variants that refer to the same real person by semantic similarity, then respond with a JSON array (inside <results></results>) of only the keys naming a real person with both a first and last name who is genuinely a director.`
	default:
		return `Given a JSON object keyed by candidate name, respond with a JSON array (inside <results></results>) of only the keys that name a real entity.`
	}
}
