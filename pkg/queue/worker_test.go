package queue

import (
	"testing"
	"time"

	"github.com/graphkeep/graphkeep/pkg/config"
	"github.com/stretchr/testify/assert"
)

func testQueueConfig() *config.QueueConfig {
	cfg := config.DefaultQueueConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.PollIntervalJitter = 2 * time.Millisecond
	return cfg
}

func TestWorker_PollIntervalWithinJitterBounds(t *testing.T) {
	w := &Worker{config: testQueueConfig()}

	for i := 0; i < 50; i++ {
		d := w.pollInterval()
		assert.GreaterOrEqual(t, d, w.config.PollInterval-w.config.PollIntervalJitter)
		assert.LessOrEqual(t, d, w.config.PollInterval+w.config.PollIntervalJitter)
	}
}

func TestWorker_PollIntervalNoJitter(t *testing.T) {
	cfg := testQueueConfig()
	cfg.PollIntervalJitter = 0
	w := &Worker{config: cfg}

	assert.Equal(t, cfg.PollInterval, w.pollInterval())
}

func TestWorker_HealthReflectsStatus(t *testing.T) {
	w := NewWorker("w-1", "pod-1", nil, testQueueConfig(), nil, nil, nil)

	health := w.Health()
	assert.Equal(t, "w-1", health.ID)
	assert.Equal(t, string(WorkerStatusIdle), health.Status)

	w.setStatus(WorkerStatusWorking, "doc-1")
	health = w.Health()
	assert.Equal(t, string(WorkerStatusWorking), health.Status)
	assert.Equal(t, "doc-1", health.CurrentDocumentID)
}

func TestWorker_StopIsIdempotent(t *testing.T) {
	w := NewWorker("w-1", "pod-1", nil, testQueueConfig(), nil, nil, nil)
	w.Stop()
	assert.NotPanics(t, func() { w.Stop() })
}
