package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// Setting holds the schema definition for a key-value settings row, e.g.
// the `N` hop radius used by graph traversal.
type Setting struct {
	ent.Schema
}

// Fields of the Setting.
func (Setting) Fields() []ent.Field {
	return []ent.Field{
		field.String("key").
			Unique().
			Immutable(),
		field.String("value"),
	}
}

// Edges of the Setting.
func (Setting) Edges() []ent.Edge { return nil }
