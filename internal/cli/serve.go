package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/harun/csvlabel/internal/config"
	"github.com/harun/csvlabel/internal/daemon"
	"github.com/harun/csvlabel/internal/logger"
	"github.com/spf13/cobra"
)

// runServe loads the configuration and serves the CSV file until interrupted
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: true,
		Pretty:  cfg.Logging.Pretty,
		Out:     os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	d, err := daemon.New(cfg, log)
	if err != nil {
		return err
	}

	if err := d.Start(); err != nil {
		return err
	}

	printBanner(cmd.OutOrStdout(), d)

	return d.Wait(cmd.Context())
}

// loadConfig resolves and validates the configuration for cmd
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.NewLoader(cfgFile).WithFlags(cmd.Flags()).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// printBanner prints where the server listens and which files it touches
func printBanner(w io.Writer, d *daemon.Daemon) {
	cfg := d.GetConfig()
	file := d.GetFile()

	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	base := fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)

	fmt.Fprintf(w, "csvlabel %s\n", version)
	fmt.Fprintf(w, "  Serving:      %s/\n", base)
	fmt.Fprintf(w, "  CSV:          %s/%s\n", base, file.Name())
	fmt.Fprintf(w, "  CSV file:     %s\n", file.Path())
	fmt.Fprintf(w, "  Labeled copy: %s\n", file.SnapshotPath())
	fmt.Fprintf(w, "  Static dir:   %s\n", cfg.Server.StaticDir)
	if cfg.Metrics.Enabled {
		fmt.Fprintf(w, "  Metrics:      %s%s\n", base, cfg.Metrics.Path)
	}
	fmt.Fprintln(w, "Press Ctrl+C to stop")
}
