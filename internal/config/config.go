// Package config loads application configuration from a TOML file with
// defaults for anything not set. CLI flags override loaded values at the
// command layer.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the top-level application configuration.
type Config struct {
	Pipeline PipelineConfig `toml:"pipeline"`
	Generate GenerateConfig `toml:"generate"`
	Render   RenderConfig   `toml:"render"`
	Provider ProviderConfig `toml:"provider"`
}

// PipelineConfig holds settings for project analysis and artifact handling.
type PipelineConfig struct {
	Project           string   `toml:"project"`
	ArtifactsDir      string   `toml:"artifacts_dir"`
	Resume            bool     `toml:"resume"`
	PadLines          int      `toml:"pad_lines"`
	IncludeDecorators bool     `toml:"include_decorators"`
	EmitSnippets      bool     `toml:"emit_snippets"`
	OnlyIDs           []string `toml:"only_ids"`
}

// GenerateConfig holds settings for the generation stage.
type GenerateConfig struct {
	Concurrency       int      `toml:"concurrency"`
	MaxAttempts       int      `toml:"max_attempts"`
	BackoffBase       Duration `toml:"backoff_base"`
	BackoffCeiling    Duration `toml:"backoff_ceiling"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	BatchSize         int      `toml:"batch_size"`
	MaxTokens         int      `toml:"max_tokens"`
}

// RenderConfig holds settings for document rendering.
type RenderConfig struct {
	Format       string `toml:"format"` // "raw-md", "hugo", "docusaurus"
	ReverseOrder bool   `toml:"reverse_order"`
	Title        string `toml:"title"`
}

// ProviderConfig holds settings for AI provider selection and configuration.
type ProviderConfig struct {
	Default   string                   `toml:"default"`
	Model     string                   `toml:"model"`
	Anthropic AnthropicProviderConfig  `toml:"anthropic"`
	Ollama    OllamaProviderConfig     `toml:"ollama"`
	OpenAI    []OpenAICompatibleConfig `toml:"openai_compatible"`
}

// AnthropicProviderConfig holds Anthropic-specific provider settings.
type AnthropicProviderConfig struct {
	APIKeySource string `toml:"api_key_source"`
	APIKey       string `toml:"api_key"`
}

// OllamaProviderConfig holds settings for a local Ollama server.
type OllamaProviderConfig struct {
	BaseURL string `toml:"base_url"`
}

// OpenAICompatibleConfig holds settings for an OpenAI-compatible provider.
type OpenAICompatibleConfig struct {
	Name         string            `toml:"name"`
	BaseURL      string            `toml:"base_url"`
	APIKeySource string            `toml:"api_key_source"`
	APIKey       string            `toml:"api_key"`
	ExtraHeaders map[string]string `toml:"extra_headers"`
}

// Duration wraps time.Duration so TOML values can be written as "500ms", "2s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// DefaultConfig returns a Config populated with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			ArtifactsDir: ".docweaver",
		},
		Generate: GenerateConfig{
			Concurrency:       4,
			MaxAttempts:       3,
			BackoffBase:       Duration{time.Second},
			BackoffCeiling:    Duration{30 * time.Second},
			RequestsPerSecond: 2,
			BatchSize:         8,
			MaxTokens:         2048,
		},
		Render: RenderConfig{
			Format: "raw-md",
		},
		Provider: ProviderConfig{
			Default: "anthropic",
			Model:   "claude-sonnet-4-5",
			Anthropic: AnthropicProviderConfig{
				APIKeySource: "env",
			},
		},
	}
}

// Load reads configuration from the given TOML file path, returning defaults
// for a missing file and defaults merged with the file's values otherwise.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return cfg, nil
}

// DefaultPath returns the standard config file location,
// ~/.config/docweaver/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return home + "/.config/docweaver/config.toml"
}
