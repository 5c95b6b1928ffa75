package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Provider ProviderConfig `json:"provider"`
	Refresh  RefreshConfig  `json:"refresh"`
	UI       UIConfig       `json:"ui"`

	// PromptsPath points at the optional YAML prompts file. Empty means
	// built-in prompts.
	PromptsPath string `json:"promptsPath"`
}

// ProviderConfig selects the completion backend and its models.
type ProviderConfig struct {
	Default   string       `json:"default"` // "anthropic" or "grok"
	Anthropic ModelsConfig `json:"anthropic"`
	Grok      ModelsConfig `json:"grok"`
}

// ModelsConfig holds the active model and the list offered in the
// config view.
type ModelsConfig struct {
	Model  string   `json:"model"`
	Models []string `json:"models"`
}

// RefreshConfig tunes the background refresh cadence.
type RefreshConfig struct {
	TmuxInterval Duration `json:"tmuxInterval"`
	SearchTTL    Duration `json:"searchTtl"` // glob and grep staleness
	GitInterval  Duration `json:"gitInterval"`
}

// UIConfig configures sidebar appearance.
type UIConfig struct {
	ShowSidebar     bool `json:"showSidebar"`
	ShowTokenCounts bool `json:"showTokenCounts"`
}

// Duration is a time.Duration that accepts both JSON numbers
// (nanoseconds) and strings like "5s".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("invalid duration value %v", v)
	}
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Default: "anthropic",
			Anthropic: ModelsConfig{
				Model: "claude-sonnet-4-5",
				Models: []string{
					"claude-opus-4-5",
					"claude-sonnet-4-5",
					"claude-haiku-4-5",
				},
			},
			Grok: ModelsConfig{
				Model: "grok-3",
				Models: []string{
					"grok-4",
					"grok-3",
					"grok-3-mini",
				},
			},
		},
		Refresh: RefreshConfig{
			TmuxInterval: Duration(time.Second),
			SearchTTL:    Duration(30 * time.Second),
			GitInterval:  Duration(5 * time.Second),
		},
		UI: UIConfig{
			ShowSidebar:     true,
			ShowTokenCounts: true,
		},
	}
}

// Validate checks the configuration for errors and repairs what it can.
func (c *Config) Validate() error {
	switch c.Provider.Default {
	case "anthropic", "grok":
	case "":
		c.Provider.Default = "anthropic"
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Default)
	}
	defaults := Default()
	if c.Refresh.TmuxInterval <= 0 {
		c.Refresh.TmuxInterval = defaults.Refresh.TmuxInterval
	}
	if c.Refresh.SearchTTL <= 0 {
		c.Refresh.SearchTTL = defaults.Refresh.SearchTTL
	}
	if c.Refresh.GitInterval <= 0 {
		c.Refresh.GitInterval = defaults.Refresh.GitInterval
	}
	if c.Provider.Anthropic.Model == "" {
		c.Provider.Anthropic.Model = defaults.Provider.Anthropic.Model
	}
	if c.Provider.Grok.Model == "" {
		c.Provider.Grok.Model = defaults.Provider.Grok.Model
	}
	return nil
}

// ActiveModel returns the configured model for the active provider.
func (c *Config) ActiveModel() string {
	if c.Provider.Default == "grok" {
		return c.Provider.Grok.Model
	}
	return c.Provider.Anthropic.Model
}
