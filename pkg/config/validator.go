package config

import "fmt"

// Validator runs structural validation across a loaded Config.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator bound to cfg.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll runs every validation check, returning the first failure.
func (v *Validator) ValidateAll() error {
	if err := v.validateLLMProviders(); err != nil {
		return err
	}
	if err := v.validateQueue(); err != nil {
		return err
	}
	if err := v.validateRetention(); err != nil {
		return err
	}
	if err := v.validateSettings(); err != nil {
		return err
	}
	return nil
}

func (v *Validator) validateLLMProviders() error {
	providers := v.cfg.LLMProviderRegistry.GetAll()
	if len(providers) == 0 {
		return NewValidationError("llm_provider", "*", "", fmt.Errorf("%w: at least one provider required", ErrMissingRequiredField))
	}

	for name, p := range providers {
		if !p.Type.IsValid() {
			return NewValidationError("llm_provider", name, "type", fmt.Errorf("%w: %s", ErrInvalidValue, p.Type))
		}
		if p.Model == "" {
			return NewValidationError("llm_provider", name, "model", ErrMissingRequiredField)
		}
		if p.MaxOutputTokens < 1 {
			return NewValidationError("llm_provider", name, "max_output_tokens", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
		}
		if p.Temperature < 0 || p.Temperature > 1 {
			return NewValidationError("llm_provider", name, "temperature", fmt.Errorf("%w: must be between 0 and 1", ErrInvalidValue))
		}
	}

	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q == nil {
		return NewValidationError("queue", "default", "", fmt.Errorf("queue configuration is nil"))
	}

	if q.WorkerCount < 1 || q.WorkerCount > 50 {
		return NewValidationError("queue", "default", "worker_count", fmt.Errorf("worker_count must be between 1 and 50, got %d", q.WorkerCount))
	}
	if q.MaxConcurrent < 1 {
		return NewValidationError("queue", "default", "max_concurrent", fmt.Errorf("max_concurrent must be at least 1, got %d", q.MaxConcurrent))
	}
	if q.PollInterval <= 0 {
		return NewValidationError("queue", "default", "poll_interval", fmt.Errorf("poll_interval must be positive"))
	}
	if q.PollIntervalJitter < 0 {
		return NewValidationError("queue", "default", "poll_interval_jitter", fmt.Errorf("poll_interval_jitter must be non-negative"))
	}
	if q.PollIntervalJitter >= q.PollInterval {
		return NewValidationError("queue", "default", "poll_interval_jitter", fmt.Errorf("poll_interval_jitter must be less than poll_interval"))
	}
	if q.ProcessingTimeout <= 0 {
		return NewValidationError("queue", "default", "processing_timeout", fmt.Errorf("processing_timeout must be positive"))
	}
	if q.GracefulShutdownTimeout <= 0 {
		return NewValidationError("queue", "default", "graceful_shutdown_timeout", fmt.Errorf("graceful_shutdown_timeout must be positive"))
	}
	if q.OrphanDetectionInterval <= 0 {
		return NewValidationError("queue", "default", "orphan_detection_interval", fmt.Errorf("orphan_detection_interval must be positive"))
	}
	if q.OrphanThreshold <= 0 {
		return NewValidationError("queue", "default", "orphan_threshold", fmt.Errorf("orphan_threshold must be positive"))
	}
	if q.HeartbeatInterval <= 0 {
		return NewValidationError("queue", "default", "heartbeat_interval", fmt.Errorf("heartbeat_interval must be positive"))
	}
	if q.HeartbeatInterval >= q.OrphanThreshold {
		return NewValidationError("queue", "default", "heartbeat_interval", fmt.Errorf("heartbeat_interval must be less than orphan_threshold"))
	}

	return nil
}

func (v *Validator) validateRetention() error {
	r := v.cfg.Retention
	if r == nil {
		return NewValidationError("retention", "default", "", fmt.Errorf("retention configuration is nil"))
	}
	if r.CleanupInterval <= 0 {
		return NewValidationError("retention", "default", "cleanup_interval", fmt.Errorf("cleanup_interval must be positive"))
	}
	return nil
}

func (v *Validator) validateSettings() error {
	s := v.cfg.Settings
	if s == nil {
		return NewValidationError("settings", "default", "", fmt.Errorf("settings configuration is nil"))
	}
	if s.HopRadius < 1 {
		return NewValidationError("settings", "default", "hop_radius", fmt.Errorf("hop_radius must be at least 1"))
	}
	if s.GenericRetryAttempts < 1 {
		return NewValidationError("settings", "default", "generic_retry_attempts", fmt.Errorf("generic_retry_attempts must be at least 1"))
	}
	if s.InputShrinkFactor <= 0 || s.InputShrinkFactor >= 1 {
		return NewValidationError("settings", "default", "input_shrink_factor", fmt.Errorf("input_shrink_factor must be between 0 and 1 exclusive"))
	}
	if s.NewsBackoffAttempts < 1 {
		return NewValidationError("settings", "default", "news_backoff_attempts", fmt.Errorf("news_backoff_attempts must be at least 1"))
	}
	if s.ExecutionNameShortLen > s.ExecutionNameMaxLen {
		return NewValidationError("settings", "default", "execution_name_short_len", fmt.Errorf("execution_name_short_len must not exceed execution_name_max_len"))
	}
	return nil
}
