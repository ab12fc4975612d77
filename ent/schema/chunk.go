package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Chunk holds the schema definition for a page-range chunk of a document,
// produced by the chunker and consumed by per-chunk extraction. TTL = 2h,
// expressed as ExpiresAt.
type Chunk struct {
	ent.Schema
}

// Fields of the Chunk.
func (Chunk) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("chunk_id").
			Unique().
			Immutable(),
		field.String("document_id").
			Immutable(),

		field.Int("start_page").
			Immutable(),
		field.Int("end_page").
			Immutable(),
		field.Text("text").
			Immutable(),
		field.String("source").
			Immutable().
			Comment("uppercased document basename"),
		field.JSON("summary", map[string]any{}).
			Comment("short variant of the document summary"),

		field.Time("created_at").
			Immutable(),
		field.Time("expires_at"),
	}
}

// Edges of the Chunk.
func (Chunk) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("document", Document.Type).
			Ref("chunks").
			Field("document_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Chunk.
func (Chunk) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("document_id", "start_page"),
		index.Fields("expires_at").
			Annotations(entsql.IndexWhere("expires_at IS NOT NULL")),
	}
}
