package config

// Config is the umbrella configuration object encapsulating every registry
// and tuning knob. It is the primary object returned by Initialize() and
// threaded through the services that need it.
type Config struct {
	configDir string

	LLMProviderRegistry *LLMProviderRegistry
	Queue               *QueueConfig
	Retention           *RetentionConfig
	Settings            *Defaults
}

// Initialize is defined in loader.go

// ConfigStats contains statistics about loaded configuration, useful for
// startup logging.
type ConfigStats struct {
	LLMProviders int
	HopRadius    int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		LLMProviders: len(c.LLMProviderRegistry.GetAll()),
		HopRadius:    c.Settings.HopRadius,
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetLLMProvider retrieves an LLM provider configuration by name.
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	return c.LLMProviderRegistry.Get(name)
}
