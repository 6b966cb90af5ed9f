// Package config loads the optional ferry configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the optional ferry configuration file. Pointer fields
// are nil when the file leaves them unset.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	SSH      SSHConfig      `toml:"ssh"`
	Theme    ThemeConfig    `toml:"theme"`
}

// DefaultsConfig holds persistent copy flag defaults.
type DefaultsConfig struct {
	BufferSize *string `toml:"buffer_size"` // e.g. "4MiB"
	MaxTries   *int    `toml:"max_tries"`
	RetryDelay *string `toml:"retry_delay"` // Go duration, e.g. "10ms"
	BWLimit    *string `toml:"bwlimit"`
	Overwrite  *bool   `toml:"overwrite"`
	Force      *bool   `toml:"force"`
}

// SSHConfig holds connection defaults.
type SSHConfig struct {
	Port         *int    `toml:"port"`
	KeyFile      *string `toml:"key_file"`
	User         *string `toml:"user"`
	AgentCommand *string `toml:"agent_command"`
	NoAgent      *bool   `toml:"no_agent"`
}

// ThemeConfig holds optional color overrides for the progress display.
type ThemeConfig struct {
	Accent *string `toml:"accent"`
	Error  *string `toml:"error"`
	Muted  *string `toml:"muted"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "ferry", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	cfg, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	return cfg, err
}

// LoadFile reads and validates the config file at path.
func LoadFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config %s: unknown key %s", path, undecoded[0])
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values that can be checked without further parsing.
func (c Config) Validate() error {
	if c.Defaults.MaxTries != nil && *c.Defaults.MaxTries <= 0 {
		return fmt.Errorf("defaults.max_tries must be positive, got %d", *c.Defaults.MaxTries)
	}
	if _, err := c.Defaults.RetryDelayDuration(); err != nil {
		return err
	}
	if c.SSH.Port != nil && (*c.SSH.Port <= 0 || *c.SSH.Port > 65535) {
		return fmt.Errorf("ssh.port %d out of range", *c.SSH.Port)
	}
	return nil
}

// RetryDelayDuration parses RetryDelay. It returns zero when unset.
func (d DefaultsConfig) RetryDelayDuration() (time.Duration, error) {
	if d.RetryDelay == nil {
		return 0, nil
	}
	v, err := time.ParseDuration(*d.RetryDelay)
	if err != nil {
		return 0, fmt.Errorf("defaults.retry_delay: %w", err)
	}
	if v < 0 {
		return 0, fmt.Errorf("defaults.retry_delay must not be negative, got %s", v)
	}
	return v, nil
}
