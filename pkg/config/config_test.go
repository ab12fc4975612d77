package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigConvenienceMethods(t *testing.T) {
	llmProviders := map[string]*LLMProviderConfig{
		"test-provider": {
			Type:            LLMProviderTypeBedrock,
			Model:           "test-model",
			MaxOutputTokens: 4000,
		},
	}

	cfg := &Config{
		configDir:           "/test/config",
		LLMProviderRegistry: NewLLMProviderRegistry(llmProviders),
		Settings:            DefaultSettings(),
	}

	t.Run("ConfigDir", func(t *testing.T) {
		assert.Equal(t, "/test/config", cfg.ConfigDir())
	})

	t.Run("GetLLMProvider success", func(t *testing.T) {
		provider, err := cfg.GetLLMProvider("test-provider")
		require.NoError(t, err)
		assert.NotNil(t, provider)
		assert.Equal(t, "test-model", provider.Model)
	})

	t.Run("GetLLMProvider not found", func(t *testing.T) {
		_, err := cfg.GetLLMProvider("nonexistent")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestConfigStats(t *testing.T) {
	cfg := &Config{
		LLMProviderRegistry: NewLLMProviderRegistry(map[string]*LLMProviderConfig{
			"p1": {}, "p2": {}, "p3": {},
		}),
		Settings: &Defaults{HopRadius: 3},
	}

	stats := cfg.Stats()
	assert.Equal(t, 3, stats.LLMProviders)
	assert.Equal(t, 3, stats.HopRadius)
}
