package config

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Config represents the csvlabel configuration
type Config struct {
	// HTTP server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Served CSV file
	CSV CSVConfig `json:"csv" mapstructure:"csv"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Prometheus endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string `json:"host" mapstructure:"host"`
	Port            int    `json:"port" mapstructure:"port"`
	StaticDir       string `json:"static_dir" mapstructure:"static_dir"`
	MaxBodyBytes    int64  `json:"max_body_bytes" mapstructure:"max_body_bytes"`
	ShutdownTimeout int    `json:"shutdown_timeout" mapstructure:"shutdown_timeout"` // seconds
}

// CSVConfig holds settings for the served file
type CSVConfig struct {
	Path       string `json:"path" mapstructure:"path"`
	LineEnding string `json:"line_ending" mapstructure:"line_ending"` // crlf, lf
	Watch      bool   `json:"watch" mapstructure:"watch"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	AuditFile string `json:"audit_file" mapstructure:"audit_file"` // JSONL edit log, empty disables it
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8000,
			StaticDir:       ".",
			MaxBodyBytes:    1 << 20,
			ShutdownTimeout: 5,
		},
		CSV: CSVConfig{
			Path:       "data.csv",
			LineEnding: "crlf",
			Watch:      false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// UseCRLF reports whether records are written with \r\n terminators
func (c *Config) UseCRLF() bool {
	return c.CSV.LineEnding != "lf"
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	return errors.Join(NewValidator().ValidateConfig(c)...)
}
