package config

import (
	"fmt"
	"sync"
	"time"
)

// LLMProviderConfig defines configuration for the single streaming generation
// backend used by the LLM gateway (extraction, consolidation, disambiguation,
// news scoring all share it).
type LLMProviderConfig struct {
	Type LLMProviderType `yaml:"type" validate:"required"`

	// Model is the provider-specific model identifier
	// (e.g. "anthropic.claude-3-sonnet-20240229-v1:0" for Bedrock).
	Model string `yaml:"model" validate:"required"`

	// APIKeyEnv names the environment variable holding provider credentials.
	// Bedrock uses ambient AWS credentials instead and leaves this empty.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`

	// BaseURL overrides the provider's default endpoint (useful for proxies
	// and local test doubles).
	BaseURL string `yaml:"base_url,omitempty"`

	// Region is the AWS region for Bedrock; ignored by other provider types.
	Region string `yaml:"region,omitempty"`

	Temperature float32 `yaml:"temperature" validate:"min=0,max=1"`
	TopP        float32 `yaml:"top_p" validate:"min=0,max=1"`
	TopK        int     `yaml:"top_k" validate:"min=0"`

	// MaxOutputTokens caps a single completion's length.
	MaxOutputTokens int `yaml:"max_output_tokens" validate:"required,min=1"`

	// RequestTimeout bounds a single streaming call.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LLMProviderRegistry provides thread-safe read access to named provider
// configurations. A deployment typically runs one active provider, but the
// registry keeps alternates (e.g. a cheaper model for news scoring) addressable
// by name.
type LLMProviderRegistry struct {
	providers map[string]*LLMProviderConfig
	mu        sync.RWMutex
}

// NewLLMProviderRegistry creates a registry from resolved provider configs.
// The input map is defensively copied so later caller-side mutation cannot
// leak into the registry.
func NewLLMProviderRegistry(providers map[string]*LLMProviderConfig) *LLMProviderRegistry {
	copied := make(map[string]*LLMProviderConfig, len(providers))
	for name, p := range providers {
		cfgCopy := *p
		copied[name] = &cfgCopy
	}
	return &LLMProviderRegistry{providers: copied}
}

// Get retrieves a provider configuration by name.
func (r *LLMProviderRegistry) Get(name string) (*LLMProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLLMProviderNotFound, name)
	}
	cfgCopy := *p
	return &cfgCopy, nil
}

// GetAll returns a defensive copy of every registered provider, keyed by name.
func (r *LLMProviderRegistry) GetAll() map[string]*LLMProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*LLMProviderConfig, len(r.providers))
	for name, p := range r.providers {
		cfgCopy := *p
		result[name] = &cfgCopy
	}
	return result
}

// Has reports whether a provider is registered under name.
func (r *LLMProviderRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// Len returns the number of registered providers.
func (r *LLMProviderRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
