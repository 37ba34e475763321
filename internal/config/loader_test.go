package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.IntP("port", "p", 8000, "")
	flags.StringP("csv", "c", "data.csv", "")
	flags.String("host", "", "")
	flags.String("static-dir", ".", "")
	flags.Bool("watch", false, "")
	flags.String("log-level", "info", "")
	return flags
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/config.json", loader.configPath)
	assert.Equal(t, "/path/to/config.json", loader.GetConfigPath())
}

func TestLoaderLoad(t *testing.T) {
	t.Run("defaults without config file", func(t *testing.T) {
		cfg, err := NewLoader("").Load()

		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		_, err := NewLoader(filepath.Join(t.TempDir(), "nope.json")).Load()
		assert.Error(t, err)
	})

	t.Run("load json config", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "csvlabel.json")
		testConfig := `{
			"server": {"port": 9001, "static_dir": "web"},
			"csv": {"path": "rows.csv", "line_ending": "LF"},
			"metrics": {"enabled": false}
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)

		assert.Equal(t, 9001, cfg.Server.Port)
		assert.Equal(t, "web", cfg.Server.StaticDir)
		assert.Equal(t, "rows.csv", cfg.CSV.Path)
		assert.Equal(t, "lf", cfg.CSV.LineEnding)
		assert.False(t, cfg.Metrics.Enabled)
		// untouched keys keep their defaults
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	})

	t.Run("load yaml config", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "csvlabel.yaml")
		testConfig := "server:\n  port: 9002\nlogging:\n  level: debug\n"
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)

		assert.Equal(t, 9002, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("load logging section", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "csvlabel.yaml")
		testConfig := "logging:\n  level: warn\n  file: csvlabel.log\n  pretty: true\n  audit_file: audit.jsonl\n"
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)

		assert.Equal(t, LoggingConfig{
			Level:     "warn",
			File:      "csvlabel.log",
			Pretty:    true,
			AuditFile: "audit.jsonl",
		}, cfg.Logging)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "csvlabel.json")
		require.NoError(t, os.WriteFile(configPath, []byte(`{"server": {"port": 9001}}`), 0644))

		t.Setenv("CSVLABEL_SERVER_PORT", "9100")
		t.Setenv("CSVLABEL_CSV_WATCH", "true")

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)

		assert.Equal(t, 9100, cfg.Server.Port)
		assert.True(t, cfg.CSV.Watch)
	})

	t.Run("changed flags override environment", func(t *testing.T) {
		t.Setenv("CSVLABEL_SERVER_PORT", "9100")
		t.Setenv("CSVLABEL_CSV_PATH", "env.csv")

		flags := testFlags()
		require.NoError(t, flags.Parse([]string{"-p", "9200"}))

		cfg, err := NewLoader("").WithFlags(flags).Load()
		require.NoError(t, err)

		assert.Equal(t, 9200, cfg.Server.Port)
		// unchanged flag does not mask the environment
		assert.Equal(t, "env.csv", cfg.CSV.Path)
	})

	t.Run("flag values", func(t *testing.T) {
		flags := testFlags()
		require.NoError(t, flags.Parse([]string{"--csv", "/tmp/x.csv", "--watch", "--log-level", "WARN", "--static-dir", "site"}))

		cfg, err := NewLoader("").WithFlags(flags).Load()
		require.NoError(t, err)

		assert.Equal(t, "/tmp/x.csv", cfg.CSV.Path)
		assert.True(t, cfg.CSV.Watch)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, "site", cfg.Server.StaticDir)
	})
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
}
