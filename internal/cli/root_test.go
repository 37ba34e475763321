package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	t.Run("version flag", func(t *testing.T) {
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"--version"})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.NoError(t, err)

		assert.Contains(t, output.String(), "csvlabel version")
		assert.Contains(t, output.String(), GetVersion())
	})

	t.Run("help flag", func(t *testing.T) {
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"--help"})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.NoError(t, err)

		helpText := output.String()
		assert.Contains(t, helpText, "csvlabel")
		assert.Contains(t, helpText, "--static-dir")
		assert.Contains(t, helpText, "status")
	})

	t.Run("global flags", func(t *testing.T) {
		cmd := GetRootCmd()
		flags := cmd.PersistentFlags()

		tests := []struct {
			name      string
			shorthand string
			defValue  string
		}{
			{"config", "", ""},
			{"log-level", "", "info"},
			{"port", "p", "8000"},
			{"csv", "c", "data.csv"},
			{"host", "", ""},
			{"static-dir", "", "."},
			{"watch", "", "false"},
		}

		for _, tt := range tests {
			flag := flags.Lookup(tt.name)
			require.NotNil(t, flag, tt.name)
			assert.Equal(t, tt.defValue, flag.DefValue, tt.name)
			assert.Equal(t, tt.shorthand, flag.Shorthand, tt.name)
		}
	})

	t.Run("rejects positional arguments", func(t *testing.T) {
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"data.csv"})
		cmd.SetOut(&bytes.Buffer{})

		assert.Error(t, cmd.Execute())
	})
}

func TestConfigCommand(t *testing.T) {
	cmd := GetRootCmd()
	cmd.SetArgs([]string{"config", "-p", "9001", "-c", "rows.csv", "--static-dir", "web"})

	output := &bytes.Buffer{}
	cmd.SetOut(output)

	require.NoError(t, cmd.Execute())

	var cfg struct {
		Server struct {
			Port      int    `json:"port"`
			StaticDir string `json:"static_dir"`
		} `json:"server"`
		CSV struct {
			Path       string `json:"path"`
			LineEnding string `json:"line_ending"`
		} `json:"csv"`
	}
	require.NoError(t, json.Unmarshal(output.Bytes(), &cfg))
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "web", cfg.Server.StaticDir)
	assert.Equal(t, "rows.csv", cfg.CSV.Path)
	assert.Equal(t, "crlf", cfg.CSV.LineEnding)
}

func TestConfigCommandInvalid(t *testing.T) {
	cmd := GetRootCmd()
	cmd.SetArgs([]string{"config", "--port", "70000"})
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "invalid configuration"))
}

func TestGetVersion(t *testing.T) {
	version := GetVersion()
	assert.NotEmpty(t, version)
	assert.True(t, strings.HasPrefix(version, "0."))
}
