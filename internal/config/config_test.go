package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/spectate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "spectate.yaml", `
log:
  level: debug
server:
  addr: ":9090"
  tick: 500ms
redis:
  addr: localhost:6379
  capacity: "50"
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unset keys keep their default")
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 500*time.Millisecond, cfg.Server.Tick)
	assert.Equal(t, 50, cfg.Redis.Capacity)
	assert.True(t, cfg.Redis.Enabled())
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "spectate.json", `{"server": {"capacity": 8}}`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Server.Capacity)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "spectate.yaml", "log:\n  level: debug\n")
	t.Setenv("SPECTATE_LOG_LEVEL", "warn")
	t.Setenv("SPECTATE_REDIS_ADDR", "redis:6379")
	t.Setenv("SPECTATE_SERVER_TICK", "1m")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Minute, cfg.Server.Tick)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "server:\n  port: 1\n"},
		{"bad duration", "server:\n  tick: soon\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"bad format", "log:\n  format: xml\n"},
		{"zero tick", "server:\n  tick: 0s\n"},
		{"invalid yaml", "server: [\n"},
		{"bad mask", "journal:\n  mask: ['(']\n"},
		{"short key", "journal:\n  key: abcd\n"},
		{"non-hex key", "journal:\n  key: zz\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, "c.yaml", tt.content))
			assert.Error(t, err)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Journal(t *testing.T) {
	key := strings.Repeat("ab", 32)
	path := writeFile(t, "spectate.yaml", "journal:\n  mask: [password, '^ssn']\n")
	t.Setenv("SPECTATE_JOURNAL_KEY", key)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"password", "^ssn"}, cfg.Journal.Mask)

	raw, err := cfg.Journal.KeyBytes()
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	none, err := config.Default().Journal.KeyBytes()
	require.NoError(t, err)
	assert.Nil(t, none)
}
