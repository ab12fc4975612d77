package consolidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphkeep/graphkeep/pkg/ingest/extract"
)

func TestConsolidate_UnionsAcrossChunks(t *testing.T) {
	rs1 := &extract.RecordSet{
		Customers: map[string]any{
			"Acme Corp": map[string]any{"INDUSTRY": "retail"},
		},
	}
	rs2 := &extract.RecordSet{
		Customers: map[string]any{
			"acme corp": map[string]any{"INDUSTRY": "Retail,Wholesale"},
		},
	}

	b := Consolidate([]*extract.RecordSet{rs1, rs2})

	require.Contains(t, b.Customers, "ACME CORP")
	industries := b.Customers["ACME CORP"]["INDUSTRY"].([]string)
	assert.ElementsMatch(t, []string{"RETAIL", "WHOLESALE"}, industries)
}

func TestConsolidate_DirectorsOtherAssociationsConcatsNotUnions(t *testing.T) {
	rs1 := &extract.RecordSet{
		Directors: map[string]any{
			"Jane Doe": map[string]any{"OTHER_ASSOCIATIONS": "Acme"},
		},
	}
	rs2 := &extract.RecordSet{
		Directors: map[string]any{
			"Jane Doe": map[string]any{"OTHER_ASSOCIATIONS": "Acme"},
		},
	}

	b := Consolidate([]*extract.RecordSet{rs1, rs2})

	assoc := b.Directors["JANE DOE"]["OTHER_ASSOCIATIONS"].([]string)
	assert.Equal(t, []string{"ACME", "ACME"}, assoc, "duplicates must be preserved, not deduped")
}

func TestConsolidate_SkipsEmptyName(t *testing.T) {
	rs := &extract.RecordSet{
		Customers: map[string]any{
			"": map[string]any{"INDUSTRY": "retail"},
		},
	}
	b := Consolidate([]*extract.RecordSet{rs})
	assert.Empty(t, b.Customers)
}

func TestConsolidate_AggregatesProducts(t *testing.T) {
	rs := &extract.RecordSet{
		Products: []map[string]any{{"name": "Widget"}, {"name": "widget"}},
	}
	b := Consolidate([]*extract.RecordSet{rs})
	assert.Len(t, b.Products, 1)
	assert.True(t, b.Products["WIDGET"])
}
