package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// GraphEdge holds the schema definition for a property-graph edge.
// References GraphVertex by plain id columns — see the comment on
// GraphVertex.Edges for why no ent edge is declared.
type GraphEdge struct {
	ent.Schema
}

// Fields of the GraphEdge.
func (GraphEdge) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("edge_id").
			Unique().
			Immutable(),

		field.String("src_id").
			Immutable(),
		field.String("dst_id").
			Immutable(),
		field.Enum("label").
			Values(
				"is a customer of",
				"is a supplier/partner of",
				"is a competitor of",
				"is a director of",
				"is an employee/director of",
			).
			Immutable(),
		field.JSON("properties", map[string]string{}).
			Comment("property key -> comma-joined, deduped, uppercased value"),

		field.Time("created_at").
			Immutable(),
		field.Time("updated_at"),
	}
}

// Edges of the GraphEdge.
func (GraphEdge) Edges() []ent.Edge {
	return nil
}

// Indexes of the GraphEdge.
func (GraphEdge) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("src_id", "label", "dst_id").
			Unique(),
		index.Fields("dst_id"),
	}
}
