package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStampSource(t *testing.T) {
	rs := &RecordSet{
		Products: []map[string]any{{"name": "Widget"}},
		Customers: map[string]any{
			"ACME": map[string]any{"NAME": "ACME"},
		},
	}

	stampSource(rs, "DOC.PDF")

	assert.Equal(t, "DOC.PDF", rs.Products[0]["source"])
	assert.Equal(t, "DOC.PDF", rs.Customers["ACME"].(map[string]any)["SOURCE"])
}
