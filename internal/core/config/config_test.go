package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "surface.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `version = 1`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Cache.Root)
	assert.Equal(t, 16, cfg.Cache.MaxOpenModules)
	assert.NotEmpty(t, cfg.Cache.FrameworkPriority)
	assert.True(t, cfg.Providers.Descriptors)
	assert.True(t, cfg.Providers.Sources)
	assert.Equal(t, "surface-history.db", cfg.DB.Path)
	assert.Equal(t, "stdio", cfg.MCP.Transport)
	assert.Equal(t, 30*time.Second, cfg.MCP.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeConfig(t, `
version = 1

[cache]
root = "/opt/packages"
runtime_paths = ["/opt/runtime"]
framework_priority = ["net8.0"]
max_open_modules = 4

[db]
enabled = true
path = "/tmp/reports.db"

[mcp]
transport = "mock"
rate_per_second = 5.0
rate_burst = 10

[log]
level = "debug"
format = "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/packages", cfg.Cache.Root)
	assert.Equal(t, []string{"/opt/runtime"}, cfg.Cache.RuntimePaths)
	assert.Equal(t, []string{"net8.0"}, cfg.Cache.FrameworkPriority)
	assert.Equal(t, 4, cfg.Cache.MaxOpenModules)
	assert.True(t, cfg.DB.Enabled)
	assert.Equal(t, "/tmp/reports.db", cfg.DB.Path)
	assert.Equal(t, "mock", cfg.MCP.Transport)
	assert.Equal(t, 5.0, cfg.MCP.RatePerSecond)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad version", `version = 99`},
		{"bad log level", "version = 1\n[log]\nlevel = \"loud\""},
		{"bad transport", "version = 1\n[mcp]\ntransport = \"telnet\""},
		{"bad toml", `version = [`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SURFACE_CACHE_ROOT", "/env/packages")
	t.Setenv("SURFACE_LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, `version = 1`))
	require.NoError(t, err)

	assert.Equal(t, "/env/packages", cfg.Cache.Root)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, 16, cfg.Cache.MaxOpenModules)
}
