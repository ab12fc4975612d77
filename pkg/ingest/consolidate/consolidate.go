// Package consolidate implements the consolidator: merging every chunk's
// raw record sets into four name-keyed buckets.
package consolidate

import (
	"strings"

	"github.com/graphkeep/graphkeep/pkg/ingest/extract"
)

// Buckets holds the four consolidated record maps, each keyed by record
// name, plus the flat set of products seen across every chunk.
type Buckets struct {
	Customers           map[string]map[string]any
	SuppliersOrPartners map[string]map[string]any
	Competitors         map[string]map[string]any
	Directors           map[string]map[string]any
	Products            map[string]bool
}

// directorsOtherAssociations is list-concatenated rather than set-unioned
// on upsert: duplicate associations across chunks are preserved rather than
// deduped, keeping one entry per role mention. The graph writer resolves
// each entry and upserts the same employee/director edge for a repeat.
const directorsOtherAssociations = "OTHER_ASSOCIATIONS"

// Consolidate merges recordSets (one per chunk) into Buckets. For each
// record class, records are upserted by name: scalar string fields are
// converted to singleton lists (comma-split, uppercase, trim) and unioned
// with any existing list for that key. Rows with an empty name are
// skipped. Ported from 03.consolidate-chunks/index.py.
func Consolidate(recordSets []*extract.RecordSet) Buckets {
	b := Buckets{
		Customers:           map[string]map[string]any{},
		SuppliersOrPartners: map[string]map[string]any{},
		Competitors:         map[string]map[string]any{},
		Directors:           map[string]map[string]any{},
		Products:            map[string]bool{},
	}

	for _, rs := range recordSets {
		if rs == nil {
			continue
		}
		upsertBucket(b.Customers, rs.Customers, false)
		upsertBucket(b.SuppliersOrPartners, rs.SuppliersOrPartners, false)
		upsertBucket(b.Competitors, rs.Competitors, false)
		upsertBucket(b.Directors, rs.Directors, true)

		for _, p := range rs.Products {
			name := stringField(p, "name")
			if name == "" {
				name = stringField(p, "NAME")
			}
			if name != "" {
				b.Products[strings.ToUpper(strings.TrimSpace(name))] = true
			}
		}
	}

	return b
}

func upsertBucket(dst map[string]map[string]any, src map[string]any, isDirectors bool) {
	for name, raw := range src {
		record, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		cleanName := strings.ToUpper(strings.TrimSpace(name))
		if cleanName == "" {
			continue
		}

		existing, present := dst[cleanName]
		if !present {
			existing = map[string]any{}
			dst[cleanName] = existing
		}

		for field, value := range record {
			if isDirectors && field == directorsOtherAssociations {
				existing[field] = concatList(existing[field], value)
				continue
			}
			existing[field] = unionListField(existing[field], value)
		}
	}
}

// unionListField normalizes value into an uppercased, deduped list and
// unions it with whatever is already stored for this field.
func unionListField(existing any, value any) []string {
	seen := map[string]bool{}
	var out []string
	add := func(v any) {
		for _, s := range toList(v) {
			s = strings.ToUpper(strings.TrimSpace(s))
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	add(existing)
	add(value)
	return out
}

// concatList appends value's list form onto existing's, without dedup.
func concatList(existing any, value any) []string {
	out := append([]string{}, toList(existing)...)
	return append(out, toList(value)...)
}

// toList coerces a scalar string (comma-split), a []any, or a []string into
// a flat []string.
func toList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		parts := strings.Split(t, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
