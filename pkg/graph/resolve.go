package graph

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Candidate is a vertex found by one of the four resolution strategies.
type Candidate struct {
	ID   string
	Name string
}

// getAcronym forms an acronym from the initials of each token, uppercased.
// Returns "" when the input has fewer than 2 tokens (an acronym of one
// word is not distinguishing).
func getAcronym(name string) string {
	tokens := strings.Fields(name)
	if len(tokens) < 2 {
		return ""
	}
	var b strings.Builder
	for _, t := range tokens {
		if t == "" {
			continue
		}
		b.WriteByte(strings.ToUpper(t)[0])
	}
	return b.String()
}

// getSubName returns the first token of length > 1, used as a substring
// probe.
func getSubName(name string) string {
	for _, t := range strings.Fields(name) {
		if len(t) > 1 {
			return t
		}
	}
	return ""
}

// acronymExpansionPattern builds a regex matching an expansion of acronym
// into full words, e.g. "IBM" -> \bI\w*\s+B\w*\s+M\w*\b.
func acronymExpansionPattern(acronym string) (*regexp.Regexp, error) {
	if acronym == "" {
		return nil, fmt.Errorf("empty acronym")
	}
	var parts []string
	for _, r := range strings.ToUpper(acronym) {
		parts = append(parts, regexp.QuoteMeta(string(r))+`\w*`)
	}
	pattern := `\b` + strings.Join(parts, `\s+`) + `\b`
	return regexp.Compile(pattern)
}

// Resolver finds candidate vertices for entity resolution; the MERGE/insert
// that follows is done by Graph and Store. Backed by raw SQL over graph_vertices
// since the ent client is never generated for this property-graph layer
// (see GraphVertex.Edges in ent/schema/graphvertex.go).
type Resolver struct {
	store *Store
	cache *CandidateCache
}

// NewResolver builds a Resolver over store, consulting cache (optional, may
// be nil) before hitting the database for repeated lookups of the same name.
func NewResolver(store *Store, cache *CandidateCache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// candidates computes the union of four resolution strategies: exact
// match, acronym-of-input match, substring match, and acronym-expansion
// regex match against stored names.
func (r *Resolver) candidates(ctx context.Context, label, name string) ([]Candidate, error) {
	if r.cache != nil {
		if cached, ok := r.cache.Get(label, name); ok {
			return cached, nil
		}
	}

	union := map[string]Candidate{}
	add := func(cs []Candidate) {
		for _, c := range cs {
			union[c.ID] = c
		}
	}

	exact, err := r.store.findByExactName(ctx, label, name)
	if err != nil {
		return nil, err
	}
	add(exact)

	if acronym := getAcronym(name); acronym != "" {
		byAcronym, err := r.store.findByExactName(ctx, label, acronym)
		if err != nil {
			return nil, err
		}
		add(byAcronym)
	}

	if sub := getSubName(name); sub != "" {
		bySub, err := r.store.findByNameSubstring(ctx, label, sub)
		if err != nil {
			return nil, err
		}
		add(bySub)
	}

	if acronym := getAcronym(name); acronym != "" {
		if re, err := acronymExpansionPattern(acronym); err == nil {
			all, err := r.store.listNames(ctx, label)
			if err != nil {
				return nil, err
			}
			for _, c := range all {
				if re.MatchString(strings.ToUpper(c.Name)) {
					union[c.ID] = c
				}
			}
		}
	}

	result := make([]Candidate, 0, len(union))
	for _, c := range union {
		result = append(result, c)
	}

	if r.cache != nil {
		r.cache.Set(label, name, result)
	}

	return result, nil
}
