// Package graphwriter implements the graph writer: materializing the four
// filtered buckets into the property graph, main entity first.
package graphwriter

import (
	"context"
	"fmt"
	"strings"

	"github.com/graphkeep/graphkeep/pkg/graph"
)

// Edge labels, fixed by ent/schema/graphedge.go's enum values.
const (
	LabelCustomerOf          = "is a customer of"
	LabelSupplierPartnerOf   = "is a supplier/partner of"
	LabelCompetitorOf        = "is a competitor of"
	LabelDirectorOf          = "is a director of"
	LabelEmployeeDirectorOf  = "is an employee/director of"
)

// relationalFields are excluded from a record's attribute set before
// vertex write — they describe the relationship to the main entity, not
// the candidate vertex itself.
var relationalFields = map[string]bool{
	"SOURCE":             true,
	"OTHER_ASSOCIATIONS": true,
}

// Writer writes the four filtered buckets into the graph.
type Writer struct {
	g *graph.Graph
}

// NewWriter builds a Writer over g.
func NewWriter(g *graph.Graph) *Writer {
	return &Writer{g: g}
}

// Buckets is the input to WriteGraph: the four filtered record maps plus
// the main entity summary they relate to.
type Buckets struct {
	MainEntityName string
	MainAttrs      map[string]string

	Customers           map[string]map[string]any
	SuppliersOrPartners map[string]map[string]any
	Competitors         map[string]map[string]any
	Directors           map[string]map[string]any
}

// WriteGraph materializes the main entity first (so the disambiguator has
// context on first sight), then writes each bucket's records as vertices
// with an edge back to the main entity. Directors additionally get
// employee/director edges to each of their other_associations companies.
// Ported from 05.group-entities/index.py + 06.insert-vertices-edges/index.py.
func (w *Writer) WriteGraph(ctx context.Context, b Buckets) (mainEntityID string, err error) {
	leafDescriptions := collectLeafDescriptions(b)

	mainEntityID, err = w.g.GetOrCreateID(ctx, "COMPANY", b.MainEntityName, b.MainAttrs, leafDescriptions)
	if err != nil {
		return "", fmt.Errorf("resolve main entity: %w", err)
	}

	if err := w.writeBucket(ctx, b.Customers, "COMPANY", LabelCustomerOf, mainEntityID); err != nil {
		return "", err
	}
	if err := w.writeBucket(ctx, b.SuppliersOrPartners, "COMPANY", LabelSupplierPartnerOf, mainEntityID); err != nil {
		return "", err
	}
	if err := w.writeBucket(ctx, b.Competitors, "COMPANY", LabelCompetitorOf, mainEntityID); err != nil {
		return "", err
	}
	if err := w.writeDirectors(ctx, b.Directors, mainEntityID); err != nil {
		return "", err
	}

	return mainEntityID, nil
}

func (w *Writer) writeBucket(ctx context.Context, bucket map[string]map[string]any, label, relationship, mainEntityID string) error {
	for name, record := range bucket {
		attrs := recordAttributes(record)
		contextEdge := fmt.Sprintf("%s %s main entity", name, relationship)

		id, err := w.g.GetOrCreateID(ctx, label, name, attrs, []string{contextEdge})
		if err != nil {
			return fmt.Errorf("resolve %q: %w", name, err)
		}

		if err := w.g.AddOrUpdateEdge(ctx, id, relationship, mainEntityID, edgeProperties(record)); err != nil {
			return fmt.Errorf("write edge for %q: %w", name, err)
		}
	}
	return nil
}

func (w *Writer) writeDirectors(ctx context.Context, directors map[string]map[string]any, mainEntityID string) error {
	for name, record := range directors {
		attrs := recordAttributes(record)
		contextEdge := fmt.Sprintf("%s is a director of main entity", name)

		id, err := w.g.GetOrCreateID(ctx, "PERSON", name, attrs, []string{contextEdge})
		if err != nil {
			return fmt.Errorf("resolve director %q: %w", name, err)
		}

		if err := w.g.AddOrUpdateEdge(ctx, id, LabelDirectorOf, mainEntityID, edgeProperties(record)); err != nil {
			return fmt.Errorf("write director edge for %q: %w", name, err)
		}

		for _, assoc := range stringSlice(record["OTHER_ASSOCIATIONS"]) {
			assoc = strings.TrimSpace(assoc)
			if assoc == "" {
				continue
			}
			assocID, err := w.g.GetOrCreateID(ctx, "COMPANY", assoc, nil, []string{fmt.Sprintf("%s is a director of %s", name, assoc)})
			if err != nil {
				return fmt.Errorf("resolve director association %q: %w", assoc, err)
			}
			if err := w.g.AddOrUpdateEdge(ctx, id, LabelEmployeeDirectorOf, assocID, nil); err != nil {
				return fmt.Errorf("write association edge for %q: %w", assoc, err)
			}
		}
	}
	return nil
}

// recordAttributes builds a vertex attribute map from record, excluding
// relational fields and flattening list-valued fields to comma strings
// before write.
func recordAttributes(record map[string]any) map[string]string {
	attrs := map[string]string{}
	for k, v := range record {
		if relationalFields[k] {
			continue
		}
		attrs[k] = flattenValue(v)
	}
	return attrs
}

// edgeProperties carries only SOURCE onto the edge; every other field
// belongs to the vertex.
func edgeProperties(record map[string]any) map[string]string {
	props := map[string]string{}
	if v, ok := record["SOURCE"]; ok {
		props["SOURCE"] = flattenValue(v)
	}
	return props
}

func flattenValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprintf("%v", t)
	}
}

func stringSlice(v any) []string {
	switch t := v.(type) {
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
	case string:
		return strings.Split(t, ",")
	default:
		return nil
	}
}

// collectLeafDescriptions builds the union of outgoing leaf edge
// descriptions across every bucket, used as context for the main entity's
// own disambiguation call: the main entity is materialized first, with the
// union of all outgoing leaf edge descriptions as its context.
func collectLeafDescriptions(b Buckets) []string {
	var out []string
	add := func(bucket map[string]map[string]any, relationship string) {
		for name := range bucket {
			out = append(out, fmt.Sprintf("%s %s main entity", name, relationship))
		}
	}
	add(b.Customers, LabelCustomerOf)
	add(b.SuppliersOrPartners, LabelSupplierPartnerOf)
	add(b.Competitors, LabelCompetitorOf)
	for name := range b.Directors {
		out = append(out, fmt.Sprintf("%s is a director of main entity", name))
	}
	return out
}
