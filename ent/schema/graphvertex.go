package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// GraphVertex holds the schema definition for a property-graph vertex. The
// property graph is modeled relationally: GraphVertex + GraphEdge stand in
// for an opaque graph engine reachable only through the Graph Access
// Layer's interface.
type GraphVertex struct {
	ent.Schema
}

// Fields of the GraphVertex.
func (GraphVertex) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("vertex_id").
			Unique().
			Immutable(),

		field.Enum("label").
			Values("COMPANY", "PERSON"),
		field.String("name").
			Comment("cleaned, normalized NAME"),
		field.Enum("interested").
			Values("YES", "NO").
			Default("NO"),
		field.JSON("attributes", map[string]string{}).
			Comment("attribute key -> comma-joined, deduped, uppercased value"),

		field.Time("created_at").
			Immutable(),
		field.Time("updated_at"),
	}
}

// Edges of the GraphVertex.
//
// GraphEdge rows reference vertices by plain id columns (src_id/dst_id)
// rather than ent edges: N-hop traversal (pkg/graph's FindWithinNHops) is an
// in-process depth-first walk over graph_edges rows loaded with raw SQL,
// not an ent graph query, so no ent-level relationship is declared here.
func (GraphVertex) Edges() []ent.Edge {
	return nil
}

// Indexes of the GraphVertex.
func (GraphVertex) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("label", "name").
			Unique(),
		index.Fields("interested"),
	}
}
