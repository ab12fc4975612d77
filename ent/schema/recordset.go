package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// RecordSet holds the schema definition for a per-chunk raw record set
// produced by extraction: five parallel maps keyed by uppercase name,
// stamped with SOURCE.
type RecordSet struct {
	ent.Schema
}

// Fields of the RecordSet.
func (RecordSet) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("record_set_id").
			Unique().
			Immutable(),
		field.String("document_id").
			Immutable(),
		field.String("chunk_id").
			Immutable(),

		field.JSON("products", []map[string]any{}).
			Comment("commercial_products_or_services: [{name, source}]"),
		field.JSON("customers", map[string]any{}),
		field.JSON("suppliers_or_partners", map[string]any{}),
		field.JSON("competitors", map[string]any{}),
		field.JSON("directors", map[string]any{}),

		field.Time("created_at").
			Immutable(),
		field.Time("expires_at"),
	}
}

// Edges of the RecordSet.
func (RecordSet) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("document", Document.Type).
			Ref("record_sets").
			Field("document_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the RecordSet.
func (RecordSet) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("document_id"),
		index.Fields("expires_at").
			Annotations(entsql.IndexWhere("expires_at IS NOT NULL")),
	}
}
