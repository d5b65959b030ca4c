// Package config loads engine configuration from an optional YAML file
// overlaid with DEALSCOUT_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full configuration surface of the engine and server.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Catalog     CatalogConfig     `koanf:"catalog"`
	Provider    ProviderConfig    `koanf:"provider"`
	Negotiation NegotiationConfig `koanf:"negotiation"`
	Scheduler   SchedulerConfig   `koanf:"scheduler"`
	LogLevel    string            `koanf:"log_level"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `koanf:"port"`
}

// CatalogConfig selects the listing store backend. An empty SQLitePath
// means the seeded in-memory store.
type CatalogConfig struct {
	SQLitePath string `koanf:"sqlite_path"`
}

// ProviderConfig selects and tunes the decision provider backend.
type ProviderConfig struct {
	// Vendor is one of "rulebased", "openai", "anthropic".
	Vendor         string  `koanf:"vendor"`
	Model          string  `koanf:"model"`
	Temperature    float64 `koanf:"temperature"`
	TimeoutSeconds int     `koanf:"timeout_seconds"`
}

// Timeout returns the per-call provider timeout as a duration.
func (c ProviderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NegotiationConfig tunes the session state machine and derived price
// bounds.
type NegotiationConfig struct {
	MaxTurns                int     `koanf:"max_turns"`
	ConvergenceThreshold    float64 `koanf:"convergence_threshold"`
	ClosePolicy             string  `koanf:"close_policy"`
	BuyerBudgetMultiplier   float64 `koanf:"buyer_budget_multiplier"`
	SellerMinimumMultiplier float64 `koanf:"seller_minimum_multiplier"`
}

// SchedulerConfig tunes batch fan-out.
type SchedulerConfig struct {
	LaunchDelayMillis int `koanf:"launch_delay_ms"`
}

// LaunchDelay returns the inter-launch delay as a duration.
func (c SchedulerConfig) LaunchDelay() time.Duration {
	return time.Duration(c.LaunchDelayMillis) * time.Millisecond
}

// Load reads the optional YAML file at path (skipped when empty), then
// overlays environment variables. Env keys use a double underscore as
// the section separator so multi-word keys survive the mapping, e.g.
// DEALSCOUT_NEGOTIATION__MAX_TURNS -> negotiation.max_turns.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("DEALSCOUT_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "DEALSCOUT_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// Default values
	defaults := map[string]interface{}{
		"server.port":                           8080,
		"provider.vendor":                       "rulebased",
		"provider.temperature":                  0.7,
		"provider.timeout_seconds":              30,
		"negotiation.max_turns":                 8,
		"negotiation.convergence_threshold":     20.0,
		"negotiation.close_policy":              "midpoint",
		"negotiation.buyer_budget_multiplier":   0.95,
		"negotiation.seller_minimum_multiplier": 0.88,
		"scheduler.launch_delay_ms":             500,
		"log_level":                             "INFO",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
