// Package config loads assistant configuration from a JSON file with
// environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the root configuration.
type Config struct {
	Paths     PathsConfig     `json:"paths"`
	Model     ModelConfig     `json:"model"`
	Providers ProvidersConfig `json:"providers"`
	Retry     RetryConfig     `json:"retry"`
	Tools     ToolsConfig     `json:"tools"`
	Servers   []ToolServer    `json:"tool_servers,omitempty"`
	Trace     TraceConfig     `json:"trace"`
}

// PathsConfig locates the vault and the assistant's own state.
type PathsConfig struct {
	// Vault is the root of the Markdown vault the assistant works on.
	Vault string `json:"vault" envconfig:"INKWELL_VAULT"`
	// Home holds sessions and the audit database (default ~/.inkwell).
	Home string `json:"home" envconfig:"INKWELL_HOME"`
}

// ModelConfig selects the model and turn limits.
type ModelConfig struct {
	Name        string  `json:"name" envconfig:"INKWELL_MODEL"`
	MaxTokens   int     `json:"max_tokens" envconfig:"INKWELL_MAX_TOKENS"`
	Temperature float64 `json:"temperature" envconfig:"INKWELL_TEMPERATURE"`
	// MaxRounds bounds tool-call rounds per turn.
	MaxRounds int `json:"max_rounds" envconfig:"INKWELL_MAX_ROUNDS"`
	// SystemPrompt overrides the built-in instruction when set.
	SystemPrompt string `json:"system_prompt,omitempty"`
	// Stream enables token streaming in the chat frontend.
	Stream bool `json:"stream" envconfig:"INKWELL_STREAM"`
}

// ProvidersConfig holds model transport credentials.
type ProvidersConfig struct {
	OpenAI OpenAIConfig `json:"openai"`
}

// OpenAIConfig configures the OpenAI-compatible transport.
type OpenAIConfig struct {
	APIKey  string `json:"api_key" envconfig:"OPENAI_API_KEY"`
	APIBase string `json:"api_base" envconfig:"OPENAI_API_BASE"`
}

// RetryConfig tunes the model-call retry decorator.
type RetryConfig struct {
	MaxRetries       int `json:"max_retries" envconfig:"INKWELL_MAX_RETRIES"`
	InitialBackoffMS int `json:"initial_backoff_ms" envconfig:"INKWELL_INITIAL_BACKOFF_MS"`
}

// ToolsConfig is the default tool policy applied to new sessions.
type ToolsConfig struct {
	EnabledCategories []string `json:"enabled_categories,omitempty"`
	TrustedTools      []string `json:"trusted_tools,omitempty"`
	ConfirmRequired   []string `json:"confirm_required,omitempty"`
	HaltOnToolError   *bool    `json:"halt_on_tool_error,omitempty"`
	// ConfirmTimeoutSeconds is how long a confirmation prompt stays
	// open before it counts as declined.
	ConfirmTimeoutSeconds int `json:"confirm_timeout_seconds" envconfig:"INKWELL_CONFIRM_TIMEOUT"`
}

// ToolServer is one external tool-server endpoint.
type ToolServer struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// TraceConfig configures the optional Kafka span publisher.
type TraceConfig struct {
	Enabled bool     `json:"enabled" envconfig:"INKWELL_TRACE_ENABLED"`
	Brokers []string `json:"brokers" envconfig:"INKWELL_TRACE_BROKERS"`
	Topic   string   `json:"topic" envconfig:"INKWELL_TRACE_TOPIC"`
	AgentID string   `json:"agent_id" envconfig:"INKWELL_TRACE_AGENT_ID"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	halt := true
	return &Config{
		Paths: PathsConfig{
			Vault: "~/vault",
			Home:  "~/.inkwell",
		},
		Model: ModelConfig{
			Name:        "gpt-4o-mini",
			MaxTokens:   4096,
			Temperature: 0.7,
			MaxRounds:   10,
			Stream:      true,
		},
		Retry: RetryConfig{
			MaxRetries:       3,
			InitialBackoffMS: 1000,
		},
		Tools: ToolsConfig{
			EnabledCategories:     []string{"read-only", "vault", "destructive"},
			HaltOnToolError:       &halt,
			ConfirmTimeoutSeconds: 60,
		},
		Trace: TraceConfig{
			Topic:   "inkwell.trace",
			AgentID: "inkwell",
		},
	}
}

// ConfigPath returns the config file location, honoring
// INKWELL_CONFIG and INKWELL_HOME.
func ConfigPath() string {
	if p := os.Getenv("INKWELL_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(HomeDir(), "config.json")
}

// HomeDir returns the assistant state directory.
func HomeDir() string {
	if h := os.Getenv("INKWELL_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".inkwell"
	}
	return filepath.Join(home, ".inkwell")
}

// Load reads the config file (if present), applies environment
// overrides, and fills defaults for anything unset.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path := ConfigPath()
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	cfg.Paths.Vault = expandPath(cfg.Paths.Vault)
	if cfg.Paths.Home == "" {
		cfg.Paths.Home = HomeDir()
	}
	cfg.Paths.Home = expandPath(cfg.Paths.Home)
	return cfg, nil
}

// Save writes the config as indented JSON, creating the directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// SessionsDir returns where session transcripts live.
func (c *Config) SessionsDir() string {
	return filepath.Join(c.Paths.Home, "sessions")
}

// AuditDBPath returns the audit database path.
func (c *Config) AuditDBPath() string {
	return filepath.Join(c.Paths.Home, "audit.db")
}

// InitialBackoff returns the retry backoff as a duration.
func (c *Config) InitialBackoff() time.Duration {
	return time.Duration(c.Retry.InitialBackoffMS) * time.Millisecond
}

// ConfirmTimeout returns the confirmation window as a duration.
func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.Tools.ConfirmTimeoutSeconds) * time.Second
}

// HaltOnToolError resolves the tri-state flag (default true).
func (c *Config) HaltOnToolError() bool {
	if c.Tools.HaltOnToolError == nil {
		return true
	}
	return *c.Tools.HaltOnToolError
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if path == "~" {
				return home
			}
			if len(path) > 1 && path[1] == '/' {
				return filepath.Join(home, path[2:])
			}
		}
	}
	return path
}
