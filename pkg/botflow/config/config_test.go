package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/botflow/pkg/botflow/config"
)

// TestDottedLookup verifies nested keys resolve through sections.
func TestDottedLookup(t *testing.T) {
	cfg := config.New(map[string]any{
		"server": map[string]any{
			"addr":    ":9090",
			"timeout": "5s",
		},
		"flat.key": "direct",
	})

	assert.Equal(t, ":9090", cfg.String("server.addr", ":8080"))
	assert.Equal(t, 5*time.Second, cfg.Duration("server.timeout", time.Second))
	assert.Equal(t, "direct", cfg.String("flat.key", ""))
	assert.Equal(t, "fallback", cfg.String("server.missing", "fallback"))
	assert.Equal(t, "fallback", cfg.String("server.addr.deeper", "fallback"))
	assert.Equal(t, ":9090", cfg.Section("server").String("addr", ""))
	assert.Equal(t, "none", cfg.Section("missing").String("addr", "none"))
	assert.Equal(t, "none", cfg.Section("flat.key").String("x", "none"))
}

// TestString verifies string extraction with defaults.
func TestString(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]any
		key        string
		defaultVal string
		want       string
	}{
		{"key exists", map[string]any{"name": "alice"}, "name", "default", "alice"},
		{"key missing", map[string]any{"other": "value"}, "name", "default", "default"},
		{"empty string", map[string]any{"name": ""}, "name", "default", ""},
		{"wrong type int", map[string]any{"name": 123}, "name", "default", "default"},
		{"nil map", nil, "name", "default", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, config.New(tt.data).String(tt.key, tt.defaultVal))
		})
	}
}

// TestDuration verifies duration extraction with various input types.
func TestDuration(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want time.Duration
	}{
		{"string", "1m30s", 90 * time.Second},
		{"int seconds", 5, 5 * time.Second},
		{"int64 seconds", int64(2), 2 * time.Second},
		{"float seconds", 0.5, 500 * time.Millisecond},
		{"duration", 3 * time.Millisecond, 3 * time.Millisecond},
		{"invalid string", "soon", time.Hour},
		{"wrong type", true, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(map[string]any{"d": tt.val})
			assert.Equal(t, tt.want, cfg.Duration("d", time.Hour))
		})
	}
}

// TestNumbers verifies integer and float extraction.
func TestNumbers(t *testing.T) {
	cfg := config.New(map[string]any{
		"int":      7,
		"float":    2.5,
		"whole":    4.0,
		"big":      int64(1 << 40),
		"text":     "9",
		"word":     "nine",
		"positive": true,
	})

	assert.Equal(t, 7, cfg.Int("int", 0))
	assert.Equal(t, 4, cfg.Int("whole", 0))
	assert.Equal(t, 1, cfg.Int("float", 1))
	assert.Equal(t, 9, cfg.Int("text", 1))
	assert.Equal(t, 1, cfg.Int("word", 1))
	assert.Equal(t, int64(1<<40), cfg.Int64("big", 0))
	assert.Equal(t, 2.5, cfg.Float("float", 0))
	assert.Equal(t, 7.0, cfg.Float("int", 0))
	assert.Equal(t, 9.0, cfg.Float("text", 1.5))
	assert.Equal(t, 1.5, cfg.Float("word", 1.5))
	assert.True(t, cfg.Bool("positive", false))
	assert.False(t, cfg.Bool("text", false))
}

// TestIDList verifies allow-list extraction from strings and lists.
func TestIDList(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want string
	}{
		{"string", "1, 2", "1, 2"},
		{"single number", 111111, "111111"},
		{"int list", []any{111111, 222222}, "111111,222222"},
		{"mixed list", []any{"5", 6.0, true}, "5,6"},
		{"wrong type", map[string]any{}, "dflt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(map[string]any{"ids": tt.val})
			assert.Equal(t, tt.want, cfg.IDList("ids", "dflt"))
		})
	}
}

// TestFromYAML verifies YAML parsing into nested sections.
func TestFromYAML(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
server:
  addr: ":7070"
filter:
  chat_ids: [1, 2]
retry:
  max_retries: 5
  jitter: 0.2
`))
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.String("server.addr", ""))
	assert.Equal(t, "1,2", cfg.IDList("filter.chat_ids", ""))
	assert.Equal(t, 5, cfg.Int("retry.max_retries", 0))
	assert.Equal(t, 0.2, cfg.Float("retry.jitter", 0))

	_, err = config.FromYAML([]byte("server: [unclosed"))
	assert.Error(t, err)
}

// TestFromJSON verifies JSON parsing.
func TestFromJSON(t *testing.T) {
	cfg, err := config.FromJSON([]byte(`{"nats": {"url": "nats://localhost:4222"}}`))
	require.NoError(t, err)
	assert.Equal(t, "nats://localhost:4222", cfg.String("nats.url", ""))

	_, err = config.FromJSON([]byte(`{"nats":`))
	assert.Error(t, err)
}

// TestFromFile verifies extension detection and environment expansion.
func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BOTFLOW_TEST_NATS", "nats://broker:4222")

	yamlPath := filepath.Join(dir, "botflow.YML")
	require.NoError(t, os.WriteFile(yamlPath, []byte("nats:\n  url: ${BOTFLOW_TEST_NATS}\n"), 0o600))
	cfg, err := config.FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "nats://broker:4222", cfg.String("nats.url", ""))

	jsonPath := filepath.Join(dir, "botflow.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"log": {"level": "debug"}}`), 0o600))
	cfg, err = config.FromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.String("log.level", ""))

	tomlPath := filepath.Join(dir, "botflow.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(""), 0o600))
	_, err = config.FromFile(tomlPath)
	assert.ErrorContains(t, err, "unsupported config file extension")

	_, err = config.FromFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// TestLoadEmptyPath verifies that no file means an empty config.
func TestLoadEmptyPath(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.New(nil), cfg)
}
