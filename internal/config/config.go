// Package config loads service configuration from an optional YAML file
// layered under AURA_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/auraforge/orchestrator/internal/domain"
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Storage    StorageConfig    `koanf:"storage"`
	Generation GenerationConfig `koanf:"generation"`
	Deploy     DeployConfig     `koanf:"deploy"`
	Trace      TraceConfig      `koanf:"trace"`
	Models     []ModelConfig    `koanf:"models"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type GenerationConfig struct {
	// MinPromptLength is enforced before any model is invoked.
	MinPromptLength int `koanf:"min_prompt_length"`

	// AdapterTimeout bounds each external model call. A timeout is treated
	// the same as any other adapter failure.
	AdapterTimeout time.Duration `koanf:"adapter_timeout"`

	// Adapter selects the model adapter implementation: scaffold, openai.
	Adapter string `koanf:"adapter"`
}

// DeployConfig controls the deploy step of the project lifecycle.
type DeployConfig struct {
	// OnFailure decides the status transition when a build fails:
	// "revert" moves the project back to ready, "keep" leaves it building.
	OnFailure string `koanf:"on_failure"`
}

type TraceConfig struct {
	// BufferSize bounds the emitter's in-flight event queue.
	BufferSize int `koanf:"buffer_size"`

	// RetryBase is the initial backoff between sink delivery attempts.
	RetryBase time.Duration `koanf:"retry_base"`

	// RetryMax caps the backoff growth.
	RetryMax time.Duration `koanf:"retry_max"`
}

// ModelConfig is one catalog entry. List order is priority order: the
// routing policy breaks ties by picking the first candidate.
type ModelConfig struct {
	ID           string   `koanf:"id"`
	Name         string   `koanf:"name"`
	ModelID      string   `koanf:"model_id"`
	BaseURL      string   `koanf:"base_url"`
	APIKey       string   `koanf:"api_key"`
	Capabilities []string `koanf:"capabilities"`
	CostTier     string   `koanf:"cost_tier"`
	Enabled      bool     `koanf:"enabled"`
}

// Provider converts the catalog entry to its domain representation.
func (m ModelConfig) Provider() domain.ModelProvider {
	return domain.ModelProvider{
		ID:           m.ID,
		Name:         m.Name,
		ModelID:      m.ModelID,
		BaseURL:      m.BaseURL,
		Capabilities: m.Capabilities,
		CostTier:     domain.CostTier(m.CostTier),
		Enabled:      m.Enabled,
	}
}

// Providers converts the full catalog preserving list order.
func (c *Config) Providers() []domain.ModelProvider {
	out := make([]domain.ModelProvider, 0, len(c.Models))
	for _, m := range c.Models {
		out = append(out, m.Provider())
	}
	return out
}

// Load reads configuration from the given YAML path (skipped when the file
// does not exist) and AURA_-prefixed environment variables, env winning.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("AURA_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "AURA_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"server.port":                  8080,
		"storage.type":                 "sqlite",
		"storage.sqlite.path":          "./data/orchestrator.db",
		"generation.min_prompt_length": 10,
		"generation.adapter_timeout":   "60s",
		"generation.adapter":           "scaffold",
		"deploy.on_failure":            "revert",
		"trace.buffer_size":            256,
		"trace.retry_base":             "250ms",
		"trace.retry_max":              "30s",
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}
}

// Validate rejects configurations the service cannot safely run with.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("storage.type must be sqlite or memory, got %q", c.Storage.Type)
	}

	switch c.Deploy.OnFailure {
	case "revert", "keep":
	default:
		return fmt.Errorf("deploy.on_failure must be revert or keep, got %q", c.Deploy.OnFailure)
	}

	switch c.Generation.Adapter {
	case "scaffold", "openai":
	default:
		return fmt.Errorf("generation.adapter must be scaffold or openai, got %q", c.Generation.Adapter)
	}

	if c.Generation.MinPromptLength < 1 {
		return fmt.Errorf("generation.min_prompt_length must be positive")
	}

	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.ID == "" {
			return fmt.Errorf("model entry missing id")
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate model id %q", m.ID)
		}
		seen[m.ID] = true
		if len(m.Capabilities) == 0 {
			return fmt.Errorf("model %q has no capabilities", m.ID)
		}
		switch domain.CostTier(m.CostTier) {
		case domain.CostTierFree, domain.CostTierPaid:
		default:
			return fmt.Errorf("model %q has invalid cost_tier %q", m.ID, m.CostTier)
		}
	}

	return nil
}
