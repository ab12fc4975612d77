package config

import "time"

// QueueConfig contains configuration for the document ingestion worker
// pool. The pool claims work with SELECT ... FOR UPDATE SKIP LOCKED and
// maintains a heartbeat while an item is in flight. News articles do not go
// through this pool.
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines per replica.
	WorkerCount int `yaml:"worker_count"`

	// MaxConcurrent is the global limit of concurrently processing items,
	// enforced by a database COUNT(*) check across all replicas.
	MaxConcurrent int `yaml:"max_concurrent"`

	// PollInterval is the base interval for checking claimable work.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollIntervalJitter is the random jitter added to PollInterval.
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`

	// ProcessingTimeout is the maximum time a single item may be processed
	// before its context is cancelled and it is marked timed_out, even with
	// a live heartbeat.
	ProcessingTimeout time.Duration `yaml:"processing_timeout"`

	// GracefulShutdownTimeout is loaded and validated; WorkerPool.Stop does
	// not read it and waits for in-flight items without a time bound.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// HeartbeatInterval is how often an in-flight worker updates
	// last_interaction_at.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// OrphanDetectionInterval is how often the orphan sweep runs.
	OrphanDetectionInterval time.Duration `yaml:"orphan_detection_interval"`

	// OrphanThreshold is how long an item can go without a heartbeat before
	// the orphan sweep marks it timed_out.
	OrphanThreshold time.Duration `yaml:"orphan_threshold"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:             5,
		MaxConcurrent:           5,
		PollInterval:            1 * time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		ProcessingTimeout:       15 * time.Minute,
		GracefulShutdownTimeout: 15 * time.Minute,
		HeartbeatInterval:       30 * time.Second,
		OrphanDetectionInterval: 5 * time.Minute,
		OrphanThreshold:         5 * time.Minute,
	}
}
