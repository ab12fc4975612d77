package config

import "time"

// Defaults holds system-wide tuning knobs for the ingestion and news
// pipelines, loaded from YAML and validated. The packages that implement
// those pipelines use their own fixed constants with the same default
// values and do not read these fields, so overriding them in YAML changes
// only what is validated and logged.
type Defaults struct {
	// HopRadius is the default N used by graph path enumeration (settings
	// key "N"). A document/news entity's impact is assessed over paths
	// reachable within this many hops.
	HopRadius int `yaml:"hop_radius" validate:"min=1"`

	// ThrottleRetryMinDelay and ThrottleRetryMaxDelay bound the jittered
	// sleep used for unbounded retry on LLM throttling responses.
	ThrottleRetryMinDelay time.Duration `yaml:"throttle_retry_min_delay"`
	ThrottleRetryMaxDelay time.Duration `yaml:"throttle_retry_max_delay"`

	// GenericRetryAttempts bounds retries for non-throttling LLM errors.
	GenericRetryAttempts int `yaml:"generic_retry_attempts" validate:"min=1"`

	// InputShrinkFactor is the factor by which the number of leading chunks
	// joined into the document-summary prompt shrinks each time the LLM
	// backend reports the input was too long.
	InputShrinkFactor float64 `yaml:"input_shrink_factor" validate:"min=0,max=1"`

	// NewsBackoffBase and NewsBackoffAttempts drive the news path's
	// degrade-to-NEUTRAL retry policy (base, 2x base, 4x base, ... give up).
	NewsBackoffBase     time.Duration `yaml:"news_backoff_base"`
	NewsBackoffAttempts int           `yaml:"news_backoff_attempts" validate:"min=1"`

	// ExecutionNameMaxLen and ExecutionNameShortLen bound the human-readable
	// names generated for pipeline executions (full vs. short variants).
	ExecutionNameMaxLen   int `yaml:"execution_name_max_len" validate:"min=1"`
	ExecutionNameShortLen int `yaml:"execution_name_short_len" validate:"min=1"`
}

// DefaultSettings returns the built-in tuning defaults.
func DefaultSettings() *Defaults {
	return &Defaults{
		HopRadius:             2,
		ThrottleRetryMinDelay: 10 * time.Second,
		ThrottleRetryMaxDelay: 30 * time.Second,
		GenericRetryAttempts:  3,
		InputShrinkFactor:     0.75,
		NewsBackoffBase:       2 * time.Second,
		NewsBackoffAttempts:   3,
		ExecutionNameMaxLen:   80,
		ExecutionNameShortLen: 40,
	}
}
