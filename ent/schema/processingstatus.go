package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ProcessingStatus holds the schema definition for the progress record
// shared by the document pipeline and the news path: step counters and a
// terminal error message updated as each stage advances. No TTL.
type ProcessingStatus struct {
	ent.Schema
}

// Fields of the ProcessingStatus.
func (ProcessingStatus) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("processing_id").
			Unique().
			Immutable(),

		field.String("file_name").
			Immutable(),
		field.String("file_type").
			Immutable().
			Comment("financial_document | news"),

		field.Int("completed_step_count").
			Default(0),
		field.Int("total_step_count"),

		field.Time("datetime_started").
			Immutable(),
		field.Time("datetime_ended").
			Optional().
			Nillable(),
		field.String("error_message").
			Optional().
			Nillable().
			Comment("truncated to 500 chars"),
	}
}

// Edges of the ProcessingStatus.
func (ProcessingStatus) Edges() []ent.Edge { return nil }

// Indexes of the ProcessingStatus.
func (ProcessingStatus) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("datetime_started"),
	}
}
