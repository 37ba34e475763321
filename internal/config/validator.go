package config

import (
	"fmt"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePort validates a TCP port number
func (v *Validator) ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// ValidateCSVPath validates the CSV file path
func (v *Validator) ValidateCSVPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("csv path cannot be empty")
	}
	return nil
}

// ValidateLineEnding validates the CSV record terminator
func (v *Validator) ValidateLineEnding(ending string) error {
	validEndings := []string{"crlf", "lf"}
	for _, valid := range validEndings {
		if ending == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid line ending: %s (must be one of: %s)", ending, strings.Join(validEndings, ", "))
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateMetricsPath validates the metrics endpoint path
func (v *Validator) ValidateMetricsPath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("metrics path must start with /")
	}
	switch path {
	case "/", "/csv", "/update_label", "/add_column", "/health":
		return fmt.Errorf("metrics path %s collides with a service route", path)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidatePort(cfg.Server.Port); err != nil {
		errors = append(errors, fmt.Errorf("server: %w", err))
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		errors = append(errors, fmt.Errorf("server.max_body_bytes must be > 0"))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errors = append(errors, fmt.Errorf("server.shutdown_timeout must be >= 0"))
	}

	if err := v.ValidateCSVPath(cfg.CSV.Path); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateLineEnding(cfg.CSV.LineEnding); err != nil {
		errors = append(errors, err)
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	if cfg.Metrics.Enabled {
		if err := v.ValidateMetricsPath(cfg.Metrics.Path); err != nil {
			errors = append(errors, err)
		}
	}

	return errors
}
