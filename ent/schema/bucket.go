package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Bucket holds the schema definition for a consolidated-then-filtered
// record bucket: one row per run per record class.
type Bucket struct {
	ent.Schema
}

// Fields of the Bucket.
func (Bucket) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("bucket_id").
			Unique().
			Immutable(),
		field.String("document_id").
			Immutable(),

		field.Enum("kind").
			Values("customers", "suppliers_or_partners", "competitors", "directors").
			Immutable(),
		field.Enum("stage").
			Values("consolidated", "filtered").
			Default("consolidated"),
		field.JSON("data", map[string]any{}).
			Comment("name -> record map for this bucket's current stage"),

		field.Time("created_at").
			Immutable(),
		field.Time("expires_at"),
	}
}

// Edges of the Bucket.
func (Bucket) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("document", Document.Type).
			Ref("buckets").
			Field("document_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Bucket.
func (Bucket) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("document_id", "kind", "stage").
			Unique(),
		index.Fields("expires_at").
			Annotations(entsql.IndexWhere("expires_at IS NOT NULL")),
	}
}
