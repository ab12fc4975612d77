package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateIfNeeded(t *testing.T) {
	t.Run("passes through normal payload", func(t *testing.T) {
		payload, _ := json.Marshal(DocumentStatusPayload{
			Type:       EventTypeDocumentStatus,
			DocumentID: "doc-123",
			Status:     "in_progress",
		})

		result, err := truncateIfNeeded(string(payload))
		require.NoError(t, err)
		assert.Contains(t, result, "doc-123")
	})

	t.Run("truncates oversized payload", func(t *testing.T) {
		longStep := make([]byte, 8000)
		for i := range longStep {
			longStep[i] = 'a'
		}
		payload, _ := json.Marshal(DocumentStatusPayload{
			Type:        EventTypeDocumentStatus,
			DocumentID:  "doc-123",
			Status:      "failed",
			CurrentStep: string(longStep),
		})

		result, err := truncateIfNeeded(string(payload))
		require.NoError(t, err)
		assert.Less(t, len(result), len(payload))
		assert.Contains(t, result, `"truncated":true`)
	})
}

func TestInjectDBEventIDAndTruncate(t *testing.T) {
	payload, _ := json.Marshal(NewsStatusPayload{
		Type:       EventTypeNewsStatus,
		NewsID:     "news-1",
		Interested: "YES",
	})

	out, err := injectDBEventIDAndTruncate(payload, 42)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, float64(42), m["db_event_id"])
	assert.Equal(t, "news-1", m["news_id"])
}

func TestDocumentChannel(t *testing.T) {
	assert.Equal(t, "document:doc-1", DocumentChannel("doc-1"))
}
