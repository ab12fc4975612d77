package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardKeys(t *testing.T) {
	keys := make([]string, 250)
	for i := range keys {
		keys[i] = "k"
	}
	shards := shardKeys(keys, 100)
	require.Len(t, shards, 3)
	assert.Len(t, shards[0], 100)
	assert.Len(t, shards[1], 100)
	assert.Len(t, shards[2], 50)
}

func TestNewFilter_CompilesStoplistExpression(t *testing.T) {
	f, err := NewFilter(nil, `Length < 3`)
	require.NoError(t, err)
	require.NotNil(t, f.stoplist)

	candidates := f.preScreen(map[string]map[string]any{
		"Co": {},
		"Acme Corp": {},
	})
	assert.NotContains(t, candidates, "Co")
	assert.Contains(t, candidates, "Acme Corp")
}

func TestNewFilter_EmptyExpressionDisablesPreScreen(t *testing.T) {
	f, err := NewFilter(nil, "")
	require.NoError(t, err)
	assert.Nil(t, f.stoplist)

	candidates := f.preScreen(map[string]map[string]any{"x": {}})
	assert.Contains(t, candidates, "x")
}

func TestNewFilter_InvalidExpressionErrors(t *testing.T) {
	_, err := NewFilter(nil, "not a valid ((( expr")
	assert.Error(t, err)
}
