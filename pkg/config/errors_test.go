package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorError(t *testing.T) {
	baseErr := errors.New("base error")

	tests := []struct {
		name     string
		err      *ValidationError
		contains []string
	}{
		{
			name:     "full error",
			err:      NewValidationError("llm_provider", "bedrock-primary", "model", baseErr),
			contains: []string{"llm_provider", "bedrock-primary", "model", "base error"},
		},
		{
			name:     "queue error",
			err:      NewValidationError("queue", "default", "worker_count", errors.New("must be positive")),
			contains: []string{"queue", "default", "worker_count", "must be positive"},
		},
		{
			name:     "no field",
			err:      NewValidationError("settings", "default", "", errors.New("invalid")),
			contains: []string{"settings", "default", "invalid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, c := range tt.contains {
				assert.Contains(t, msg, c)
			}
			assert.ErrorIs(t, tt.err.Unwrap(), tt.err.Err)
		})
	}
}

func TestLoadErrorError(t *testing.T) {
	err := NewLoadError("llm-providers.yaml", ErrConfigNotFound)
	assert.Contains(t, err.Error(), "llm-providers.yaml")
	assert.ErrorIs(t, err.Unwrap(), ErrConfigNotFound)
}
