package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPool_RegisterUnregisterDocument(t *testing.T) {
	p := NewWorkerPool("pod-1", nil, testQueueConfig(), nil, nil)

	called := false
	cancel := func() { called = true }

	p.RegisterDocument("doc-1", cancel)
	assert.True(t, p.CancelDocument("doc-1"))
	assert.True(t, called)

	p.UnregisterDocument("doc-1")
	assert.False(t, p.CancelDocument("doc-1"))
}

func TestWorkerPool_CancelDocumentUnknown(t *testing.T) {
	p := NewWorkerPool("pod-1", nil, testQueueConfig(), nil, nil)
	assert.False(t, p.CancelDocument("nonexistent"))
}

func TestWorkerPool_GetActiveDocumentIDs(t *testing.T) {
	p := NewWorkerPool("pod-1", nil, testQueueConfig(), nil, nil)
	p.RegisterDocument("doc-1", func() {})
	p.RegisterDocument("doc-2", func() {})

	ids := p.getActiveDocumentIDs()
	assert.ElementsMatch(t, []string{"doc-1", "doc-2"}, ids)
}

func TestWorkerPool_StartTwiceIsNoop(t *testing.T) {
	p := &WorkerPool{podID: "pod-1", config: testQueueConfig(), started: true}
	err := p.Start(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, p.workers)
}
