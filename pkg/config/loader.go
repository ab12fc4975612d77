package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// GraphkeepYAMLConfig represents the complete graphkeep.yaml file structure.
type GraphkeepYAMLConfig struct {
	System   *SystemYAMLConfig `yaml:"system"`
	Queue    *QueueConfig      `yaml:"queue"`
	Settings *Defaults         `yaml:"settings"`
}

// SystemYAMLConfig groups system-wide infrastructure settings.
type SystemYAMLConfig struct {
	Retention *RetentionConfig `yaml:"retention"`
}

// LLMProvidersYAMLConfig represents the complete llm-providers.yaml file structure.
type LLMProvidersYAMLConfig struct {
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration. This
// is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load YAML files from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined LLM providers
//  5. Build registries
//  6. Apply default values
//  7. Validate all configuration
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"llm_providers", stats.LLMProviders,
		"hop_radius", stats.HopRadius)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	graphkeepConfig, err := loader.loadGraphkeepYAML()
	if err != nil {
		return nil, NewLoadError("graphkeep.yaml", err)
	}

	userProviders, err := loader.loadLLMProvidersYAML()
	if err != nil {
		return nil, NewLoadError("llm-providers.yaml", err)
	}

	builtin := GetBuiltinConfig()
	llmProviders := mergeLLMProviders(builtin.LLMProviders, userProviders)
	llmProviderRegistry := NewLLMProviderRegistry(llmProviders)

	queueConfig := DefaultQueueConfig()
	if graphkeepConfig.Queue != nil {
		if err := mergo.Merge(queueConfig, graphkeepConfig.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	settings := DefaultSettings()
	if graphkeepConfig.Settings != nil {
		if err := mergo.Merge(settings, graphkeepConfig.Settings, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge settings: %w", err)
		}
	}

	retentionCfg := resolveRetentionConfig(graphkeepConfig.System)

	return &Config{
		configDir:           configDir,
		LLMProviderRegistry: llmProviderRegistry,
		Queue:               queueConfig,
		Retention:           retentionCfg,
		Settings:            settings,
	}, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadGraphkeepYAML() (*GraphkeepYAMLConfig, error) {
	var cfg GraphkeepYAMLConfig
	if err := l.loadYAML("graphkeep.yaml", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *configLoader) loadLLMProvidersYAML() (map[string]LLMProviderConfig, error) {
	var cfg LLMProvidersYAMLConfig
	cfg.LLMProviders = make(map[string]LLMProviderConfig)

	if err := l.loadYAML("llm-providers.yaml", &cfg); err != nil {
		return nil, err
	}

	return cfg.LLMProviders, nil
}

// resolveRetentionConfig resolves retention configuration from system YAML,
// applying built-in defaults for anything left unset.
func resolveRetentionConfig(sys *SystemYAMLConfig) *RetentionConfig {
	cfg := DefaultRetentionConfig()

	if sys == nil || sys.Retention == nil {
		return cfg
	}

	r := sys.Retention
	if r.ChunkTTL > 0 {
		cfg.ChunkTTL = r.ChunkTTL
	}
	if r.RecordSetTTL > 0 {
		cfg.RecordSetTTL = r.RecordSetTTL
	}
	if r.BucketTTL > 0 {
		cfg.BucketTTL = r.BucketTTL
	}
	if r.PromptLogTTL > 0 {
		cfg.PromptLogTTL = r.PromptLogTTL
	}
	if r.EventTTL > 0 {
		cfg.EventTTL = r.EventTTL
	}
	if r.CleanupInterval > 0 {
		cfg.CleanupInterval = r.CleanupInterval
	}

	return cfg
}
