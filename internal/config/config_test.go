package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "temperate_forest", cfg.Ecosystem)
	assert.Equal(t, filepath.Join(homeDir, ".mycelium", "sessions.toml"), cfg.Sessions.Path)
	assert.Equal(t, filepath.Join(homeDir, ".mycelium", "reflections.db"), cfg.Reflections.Path)
	assert.Equal(t, ReadingsSourceFile, cfg.Readings.Source)
	assert.Equal(t, 15*time.Minute, cfg.Coordinator.JoinLead)
	assert.Equal(t, 30*time.Minute, cfg.Coordinator.FreshnessWindow)
	assert.Equal(t, 16, cfg.Coordinator.MaxConcurrentDeliveries)
	assert.True(t, cfg.Coordinator.AutoDeliver)
	assert.Empty(t, cfg.NATS.URL)
}

func TestLoadReadsDefaultConfigFileAndEnvironment(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("MYC_COORDINATOR_READING_TIMEOUT", "45s")

	writeConfig(t, filepath.Join(homeDir, ".mycelium"), strings.Join([]string{
		`ecosystem = "wetland"`,
		"",
		"[coordinator]",
		`join_lead = "5m"`,
		"max_concurrent_deliveries = 4",
		"",
		"[nats]",
		`url = "nats://127.0.0.1:4222"`,
		`token_ref = "nats/token"`,
		"",
		"[readings]",
		`source = "nats"`,
	}, "\n"))

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "wetland", cfg.Ecosystem)
	assert.Equal(t, 5*time.Minute, cfg.Coordinator.JoinLead)
	assert.Equal(t, 4, cfg.Coordinator.MaxConcurrentDeliveries)
	assert.Equal(t, 45*time.Second, cfg.Coordinator.ReadingTimeout)
	assert.Equal(t, ReadingsSourceNATS, cfg.Readings.Source)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "nats/token", cfg.NATS.TokenRef)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "unknown key", body: "[coordinator]\nsurprise = 1\n", wantErr: "decode config"},
		{name: "unknown source", body: "[readings]\nsource = \"carrier pigeon\"\n", wantErr: "unknown readings.source"},
		{name: "nats source without url", body: "[readings]\nsource = \"nats\"\n", wantErr: "requires nats.url"},
		{name: "bad log level", body: "[log]\nlevel = \"chatty\"\n", wantErr: "unknown log level"},
		{name: "malformed toml", body: "ecosystem = \n", wantErr: "read config file"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			path := writeConfig(t, t.TempDir(), tc.body)

			_, err := Load(viper.New(), path)
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoadExplicitMissingConfigFileFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "read config file")
}

func TestSetupLoggerWithWritersFansOut(t *testing.T) {
	t.Parallel()

	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("session delivered", "session_id", "sess-1")

	assert.Contains(t, stderr.String(), "session_id=sess-1")
	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, file.String(), `"session_id":"sess-1"`)
}

func TestSetupLoggerWritesJSONFile(t *testing.T) {
	t.Parallel()

	logFile := filepath.Join(t.TempDir(), "logs", "myc.log")
	var stderr bytes.Buffer

	logger, cleanup := SetupLogger(&stderr, logFile, slog.LevelDebug)
	logger.Debug("tick", "opened", 1)
	require.NoError(t, cleanup())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"tick"`)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"WARNING": slog.LevelWarn,
		" error ": slog.LevelError,
	} {
		got, err := ParseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}
