package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultQueueConfig(t *testing.T) {
	cfg := DefaultQueueConfig()

	assert.Equal(t, 5, cfg.WorkerCount)
	assert.Equal(t, 5, cfg.MaxConcurrent)
	assert.Equal(t, 1*time.Second, cfg.PollInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.PollIntervalJitter)
	assert.Equal(t, 15*time.Minute, cfg.ProcessingTimeout)
	assert.Equal(t, 15*time.Minute, cfg.GracefulShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 5*time.Minute, cfg.OrphanDetectionInterval)
	assert.Equal(t, 5*time.Minute, cfg.OrphanThreshold)
}

func TestValidateQueue(t *testing.T) {
	tests := []struct {
		name    string
		queue   *QueueConfig
		wantErr bool
		errMsg  string
	}{
		{name: "valid defaults", queue: DefaultQueueConfig(), wantErr: false},
		{name: "nil queue", queue: nil, wantErr: true, errMsg: "queue configuration is nil"},
		{
			name: "worker count too low",
			queue: func() *QueueConfig {
				q := DefaultQueueConfig()
				q.WorkerCount = 0
				return q
			}(),
			wantErr: true,
			errMsg:  "worker_count must be between 1 and 50",
		},
		{
			name: "max concurrent zero",
			queue: func() *QueueConfig {
				q := DefaultQueueConfig()
				q.MaxConcurrent = 0
				return q
			}(),
			wantErr: true,
			errMsg:  "max_concurrent must be at least 1",
		},
		{
			name: "poll interval zero",
			queue: func() *QueueConfig {
				q := DefaultQueueConfig()
				q.PollInterval = 0
				return q
			}(),
			wantErr: true,
			errMsg:  "poll_interval must be positive",
		},
		{
			name: "jitter greater than poll interval",
			queue: func() *QueueConfig {
				q := DefaultQueueConfig()
				q.PollInterval = 500 * time.Millisecond
				q.PollIntervalJitter = 1 * time.Second
				return q
			}(),
			wantErr: true,
			errMsg:  "poll_interval_jitter must be less than poll_interval",
		},
		{
			name: "heartbeat interval equal to orphan threshold",
			queue: func() *QueueConfig {
				q := DefaultQueueConfig()
				q.OrphanThreshold = 1 * time.Minute
				q.HeartbeatInterval = 1 * time.Minute
				return q
			}(),
			wantErr: true,
			errMsg:  "heartbeat_interval must be less than orphan_threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Queue: tt.queue}
			v := NewValidator(cfg)
			err := v.validateQueue()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
