// Package config holds lucius configuration: the model endpoint, the tool
// transports, and logging. Config lives as YAML under the user config dir
// and can be overridden by environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	configDirName  = "lucius"
	configFileName = "config.yaml"

	// EnvOllamaURL overrides ollama_url.
	EnvOllamaURL = "LUCIUS_OLLAMA_URL"
	// EnvRedisAddr overrides redis_addr.
	EnvRedisAddr = "LUCIUS_REDIS_ADDR"
)

// Config is the full lucius configuration.
type Config struct {
	// OllamaURL is the base URL of the model endpoint.
	OllamaURL string `yaml:"ollama_url"`

	// SelectedModel is the model name used for chat turns.
	SelectedModel string `yaml:"selected_model"`

	// MCPServerCommand is the command line for the local RPC tool server.
	// Empty disables the RPC transport.
	MCPServerCommand string `yaml:"mcp_server_command"`

	// RedisAddr is the broker address for the queue transport.
	// Empty disables the queue transport.
	RedisAddr string `yaml:"redis_addr"`

	// ConfirmToolCalls gates every tool dispatch behind a y/n modal.
	ConfirmToolCalls bool `yaml:"confirm_tool_calls"`

	// MaxToolRounds caps tool round-trips per turn. 0 means unbounded.
	MaxToolRounds int `yaml:"max_tool_rounds"`

	// SessionDBPath is the sqlite transcript store. Empty disables it.
	SessionDBPath string `yaml:"session_db_path"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls the per-category file logger.
type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file exists yet.
func Default() Config {
	return Config{
		OllamaURL:        "http://127.0.0.1:11434",
		MCPServerCommand: "shell-mcp",
		RedisAddr:        "127.0.0.1:6379",
		MaxToolRounds:    10,
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Path returns the config file location, creating its directory.
func Path() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		// Fall back to the working directory, matching the original client.
		base = "."
	}
	dir := filepath.Join(base, configDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config dir: %w", err)
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the config file, falling back to defaults when it is missing
// or malformed, then applies environment overrides. Load never fails the
// boot: a broken file yields defaults.
func Load() Config {
	cfg := Default()
	path, err := Path()
	if err == nil {
		if data, rerr := os.ReadFile(path); rerr == nil {
			if uerr := yaml.Unmarshal(data, &cfg); uerr != nil {
				cfg = Default()
			}
		}
	}
	applyEnv(&cfg)
	return cfg
}

// LoadFile reads a specific config file. Used by tests and the --config flag.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse config: %w", err)
	}
	applyEnv(&cfg)
	return cfg, nil
}

// Save writes the config as YAML to the default location.
func (c Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config as YAML to the given path.
func (c Config) SaveFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvOllamaURL); v != "" {
		cfg.OllamaURL = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		cfg.RedisAddr = v
	}
}
