// Package config loads the spectate CLI configuration.
package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/spectate/internal/logging"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SPECTATE_"

// Config is the CLI configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Journal JournalConfig `mapstructure:"journal"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures `spectate serve`.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// Capacity is the number of batches kept by the in-memory journal.
	Capacity int `mapstructure:"capacity"`
	// Tick is the interval between demo mutations.
	Tick time.Duration `mapstructure:"tick"`
}

// RedisConfig enables the Redis publisher when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Channel  string        `mapstructure:"channel"`
	Prefix   string        `mapstructure:"prefix"`
	Capacity int           `mapstructure:"capacity"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// JournalConfig controls what reaches the journal.
type JournalConfig struct {
	// Mask lists regular expressions; event fields with a matching key are
	// stored masked.
	Mask []string `mapstructure:"mask"`
	// Key is a hex-encoded 32-byte AES key. When set, batches are stored
	// encrypted.
	Key string `mapstructure:"key"`
}

// KeyBytes decodes Key. It returns nil when no key is set.
func (j JournalConfig) KeyBytes() ([]byte, error) {
	if j.Key == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(j.Key)
	if err != nil {
		return nil, fmt.Errorf("journal.key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("journal.key: want 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: string(logging.FormatText),
		},
		Server: ServerConfig{
			Addr:     ":8080",
			Capacity: 256,
			Tick:     2 * time.Second,
		},
		Redis: RedisConfig{
			Channel:  "spectate.batches",
			Prefix:   "spectate:",
			Capacity: 1000,
			Timeout:  2 * time.Second,
		},
	}
}

// Load reads the YAML (or JSON) file at path over the defaults, then applies
// SPECTATE_* environment overrides. An empty path skips the file; a missing
// file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := readFile(path)
		if err != nil {
			return cfg, err
		}
		if err := decode(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := decode(envOverrides(os.LookupEnv), &cfg); err != nil {
		return cfg, fmt.Errorf("decode environment: %w", err)
	}
	return cfg, cfg.Validate()
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	raw := make(map[string]any)
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return raw, nil
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return raw, nil
}

// decode overlays raw onto cfg. Strings are weakly converted, so "30s" and
// "8080" both work for their fields.
func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

var envKeys = map[string][2]string{
	"LOG_LEVEL":       {"log", "level"},
	"LOG_FORMAT":      {"log", "format"},
	"SERVER_ADDR":     {"server", "addr"},
	"SERVER_CAPACITY": {"server", "capacity"},
	"SERVER_TICK":     {"server", "tick"},
	"REDIS_ADDR":      {"redis", "addr"},
	"REDIS_CHANNEL":   {"redis", "channel"},
	"JOURNAL_KEY":     {"journal", "key"},
}

func envOverrides(lookup func(string) (string, bool)) map[string]any {
	raw := make(map[string]any)
	for name, path := range envKeys {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		section, _ := raw[path[0]].(map[string]any)
		if section == nil {
			section = make(map[string]any)
			raw[path[0]] = section
		}
		section[path[1]] = v
	}
	return raw
}

// Validate checks values the decoder cannot.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch logging.Format(c.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	if c.Server.Tick <= 0 {
		return fmt.Errorf("server.tick must be positive, got %s", c.Server.Tick)
	}
	if c.Server.Capacity <= 0 {
		return fmt.Errorf("server.capacity must be positive, got %d", c.Server.Capacity)
	}
	for _, p := range c.Journal.Mask {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("journal.mask: %w", err)
		}
	}
	if _, err := c.Journal.KeyBytes(); err != nil {
		return err
	}
	return nil
}
