package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// PromptLog holds the schema definition for the LLM prompt audit log.
// Append-only, TTL = 24h.
type PromptLog struct {
	ent.Schema
}

// Fields of the PromptLog.
func (PromptLog) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("prompt_id").
			Unique().
			Immutable(),
		field.Text("prompt_text").
			Immutable(),
		field.Time("created_at").
			Immutable(),
		field.Time("expires_at").
			Immutable(),
	}
}

// Edges of the PromptLog.
func (PromptLog) Edges() []ent.Edge { return nil }

// Indexes of the PromptLog.
func (PromptLog) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("expires_at").
			Annotations(entsql.IndexWhere("expires_at IS NOT NULL")),
	}
}
