package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roasbeef/lexdesk/internal/lexapi"
	"github.com/roasbeef/lexdesk/internal/summary"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))

	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, lexapi.DefaultBaseURL, cfg.Server.URL)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, summary.DefaultMaxConcurrent,
		cfg.SummaryService().MaxConcurrent)

	timeout, err := cfg.RequestTimeout()
	require.NoError(t, err)
	require.Equal(t, lexapi.DefaultTimeout, timeout)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
url = "https://lex.example.com"
username = "alice"
timeout = "90s"

[log]
level = "debug"

[summary]
max_concurrent = 5

[metrics]
listen_addr = "127.0.0.1:9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://lex.example.com", cfg.Server.URL)
	require.Equal(t, "alice", cfg.Server.Username)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, 5, cfg.Summary.MaxConcurrent)
	require.Equal(t, summary.DefaultNotificationBuffer,
		cfg.Summary.NotificationBuffer)
	require.Equal(t, "127.0.0.1:9090", cfg.Metrics.ListenAddr)

	timeout, err := cfg.RequestTimeout()
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, timeout)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[server]
url = "https://lex.example.com"
`)
	t.Setenv(EnvServerURL, "http://10.0.0.2:5000")
	t.Setenv(EnvLogLevel, "trace")
	t.Setenv(EnvLogDir, "/tmp/lexdesk-logs")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://10.0.0.2:5000", cfg.Server.URL)
	require.Equal(t, "trace", cfg.LogSettings().Level)
	require.Equal(t, "/tmp/lexdesk-logs", cfg.LogSettings().Dir)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{
			name:     "bad toml",
			contents: "[server\nurl = ",
		},
		{
			name:     "bad url",
			contents: "[server]\nurl = \"not a url\"\n",
		},
		{
			name:     "bad timeout",
			contents: "[server]\ntimeout = \"soon\"\n",
		},
		{
			name:     "negative concurrency",
			contents: "[summary]\nmax_concurrent = -1\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.contents))
			require.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	cfg := DefaultConfig()
	cfg.Server.Username = "bob"
	cfg.Server.URL = "https://lex.example.com"
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestUpdateSkipsEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[server]
url = "https://lex.example.com"
`)
	t.Setenv(EnvServerURL, "http://10.0.0.2:5000")

	err := Update(path, func(c *Config) {
		c.Server.Username = "alice"
	})
	require.NoError(t, err)

	t.Setenv(EnvServerURL, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://lex.example.com", cfg.Server.URL)
	require.Equal(t, "alice", cfg.Server.Username)
}
