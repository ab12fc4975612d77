package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Document holds the schema definition for a single document-ingestion
// execution: the state-machine instance driven by pkg/pipeline over one
// queue message.
type Document struct {
	ent.Schema
}

// Fields of the Document.
func (Document) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("document_id").
			Unique().
			Immutable(),

		// Ingress (queue message payload)
		field.String("blob_bucket").
			Immutable(),
		field.String("blob_key").
			Immutable(),
		field.String("group_key").
			Default("ingestion").
			Immutable().
			Comment("FIFO message-group id"),
		field.Int("receive_count").
			Default(0).
			Comment("incremented on each claim; no dead-letter routing reads it"),

		// State machine
		field.Enum("status").
			Values("pending", "in_progress", "completed", "failed", "timed_out").
			Default("pending"),
		field.String("current_step").
			Optional().
			Nillable().
			Comment("chunk | extract | consolidate | filter | write_graph | cleanup"),
		field.String("pod_id").
			Optional().
			Nillable(),
		field.Time("last_interaction_at").
			Optional().
			Nillable(),

		// Document summary, persisted once chunking completes
		field.JSON("summary_full", map[string]any{}).
			Optional().
			Comment("main_entity + full attribute set"),
		field.JSON("summary_short", map[string]any{}).
			Optional().
			Comment("narrative summary fields stripped"),

		field.String("processing_status_id").
			Comment("FK into the shared ProcessingStatus table"),

		field.Time("created_at").
			Immutable(),
		field.Time("deleted_at").
			Optional().
			Nillable(),
	}
}

// Edges of the Document.
func (Document) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("chunks", Chunk.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("record_sets", RecordSet.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("buckets", Bucket.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Document.
func (Document) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status", "created_at"),
		index.Fields("status", "last_interaction_at"),
		index.Fields("deleted_at").
			Annotations(entsql.IndexWhere("deleted_at IS NOT NULL")),
	}
}
