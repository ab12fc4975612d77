package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// NewsRecord holds the schema definition for a processed news article. No
// TTL.
type NewsRecord struct {
	ent.Schema
}

// Fields of the NewsRecord.
func (NewsRecord) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("news_id").
			Unique().
			Immutable(),

		field.String("date").
			Optional(),
		field.String("title").
			Optional(),
		field.Text("text").
			Optional(),
		field.String("url").
			Optional(),
		field.String("timestamp").
			Comment("formatted %Y-%m-%d %H:%M"),

		field.Enum("interested").
			Values("YES", "NO"),
		field.JSON("paths", []map[string]any{}).
			Comment("[{name, sentiment, sentiment_explanation, paths:[...]}]"),
		field.JSON("interested_entities", []string{}),

		field.Time("created_at").
			Immutable(),
	}
}

// Edges of the NewsRecord.
func (NewsRecord) Edges() []ent.Edge { return nil }

// Indexes of the NewsRecord.
func (NewsRecord) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("interested"),
		index.Fields("created_at"),
	}
}
