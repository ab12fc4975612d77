package news

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelationshipEdges(t *testing.T) {
	e := extractedEntity{
		Name: "ACME CORP",
		Relationships: []relatedEntity{
			{RelatedEntity: "Beta Inc", Relationship: "supplier of"},
			{RelatedEntity: "Gamma LLC", Relationship: "competitor of"},
		},
	}
	edges := relationshipEdges(e)
	assert.Equal(t, []string{"ACME CORP supplier of Beta Inc", "ACME CORP competitor of Gamma LLC"}, edges)
}

func TestUppercaseEntities(t *testing.T) {
	entities := []extractedEntity{
		{
			Name: " acme corp ",
			Relationships: []relatedEntity{
				{RelatedEntity: " beta inc "},
			},
		},
	}
	uppercaseEntities(entities)
	assert.Equal(t, "ACME CORP", entities[0].Name)
	assert.Equal(t, "BETA INC", entities[0].Relationships[0].RelatedEntity)
}

func TestReprocessInput(t *testing.T) {
	body := ReprocessInput("2024-01-01", "Title", "Body text", "https://example.com")
	assert.Contains(t, body, "<date>2024-01-01</date>")
	assert.Contains(t, body, "<title>Title</title>")
	assert.Contains(t, body, "<text>Body text</text>")
	assert.Contains(t, body, "<url>https://example.com</url>")
}
