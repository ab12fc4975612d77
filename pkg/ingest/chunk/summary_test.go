package chunk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripNarrativeFields(t *testing.T) {
	full := map[string]any{
		"NAME": "Acme",
		"SUMMARY_OF_BUSINESS_PERFORMANCE": "doing fine",
		"SUMMARY_OF_BUSINESS_STRATEGY":    "expand",
	}
	short := stripNarrativeFields(full)

	assert.Equal(t, "Acme", short["NAME"])
	assert.NotContains(t, short, "SUMMARY_OF_BUSINESS_PERFORMANCE")
	assert.NotContains(t, short, "SUMMARY_OF_BUSINESS_STRATEGY")
	assert.Contains(t, full, "SUMMARY_OF_BUSINESS_PERFORMANCE", "stripping the short variant must not mutate full")
}

func TestIsInputTooLongError(t *testing.T) {
	assert.True(t, isInputTooLongError(errors.New("validation error: input too long for model")))
	assert.True(t, isInputTooLongError(errors.New("Context Length Exceeded")))
	assert.False(t, isInputTooLongError(errors.New("connection reset")))
}
