package config

import "time"

// RetentionConfig controls TTL and cleanup behavior for scratch pipeline
// state. Postgres has no native per-row TTL, so every scratch entity carries
// an explicit expires_at column swept by the cleanup worker.
//
// Chunk, record-set and bucket rows get their expires_at from pkg/pipeline's
// fixed 2h TTLs, set when each row is written. ChunkTTL, RecordSetTTL and
// BucketTTL are only reported in the cleanup service's startup log; they do
// not change those expiry times.
type RetentionConfig struct {
	// ChunkTTL is the reported TTL of document chunk rows.
	ChunkTTL time.Duration `yaml:"chunk_ttl"`

	// RecordSetTTL is the reported TTL of per-chunk extraction output rows.
	RecordSetTTL time.Duration `yaml:"record_set_ttl"`

	// BucketTTL is the reported TTL of consolidated/filtered bucket rows.
	BucketTTL time.Duration `yaml:"bucket_ttl"`

	// PromptLogTTL is how long audited prompts survive before deletion.
	PromptLogTTL time.Duration `yaml:"prompt_log_ttl"`

	// EventTTL is the maximum age of orphaned event rows before deletion.
	EventTTL time.Duration `yaml:"event_ttl"`

	// CleanupInterval is how often the sweep loop runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		ChunkTTL:        2 * time.Hour,
		RecordSetTTL:    2 * time.Hour,
		BucketTTL:       2 * time.Hour,
		PromptLogTTL:    24 * time.Hour,
		EventTTL:        1 * time.Hour,
		CleanupInterval: 12 * time.Hour,
	}
}
