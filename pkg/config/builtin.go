package config

import (
	"sync"
	"time"
)

// BuiltinConfig holds built-in configuration data applied before any
// user-supplied YAML is merged in.
type BuiltinConfig struct {
	LLMProviders map[string]LLMProviderConfig
}

var (
	builtinConfig     *BuiltinConfig
	builtinConfigOnce sync.Once
)

// GetBuiltinConfig returns the singleton built-in configuration
// (thread-safe, lazy-initialized).
func GetBuiltinConfig() *BuiltinConfig {
	builtinConfigOnce.Do(initBuiltinConfig)
	return builtinConfig
}

func initBuiltinConfig() {
	builtinConfig = &BuiltinConfig{
		LLMProviders: initBuiltinLLMProviders(),
	}
}

// initBuiltinLLMProviders seeds a single Bedrock-backed provider matching the
// reference deployment's default model. A deployment overrides this entirely
// from llm-providers.yaml when it needs a different provider or model.
func initBuiltinLLMProviders() map[string]LLMProviderConfig {
	return map[string]LLMProviderConfig{
		"bedrock-default": {
			Type:            LLMProviderTypeBedrock,
			Model:           "anthropic.claude-3-sonnet-20240229-v1:0",
			Region:          "us-east-1",
			Temperature:     0,
			TopP:            1,
			MaxOutputTokens: 4000,
			RequestTimeout:  60 * time.Second,
		},
	}
}
