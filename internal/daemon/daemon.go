package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/harun/csvlabel/internal/config"
	"github.com/harun/csvlabel/internal/logger"
	"github.com/harun/csvlabel/internal/metrics"
	"github.com/harun/csvlabel/internal/observability"
	"github.com/harun/csvlabel/pkg/csvdoc"
	"github.com/harun/csvlabel/pkg/labelserver"
)

// PortInUseError is returned by Start when the configured port is taken
type PortInUseError struct {
	Port int
}

func (e *PortInUseError) Error() string {
	return fmt.Sprintf("port %d is already in use (try --port %d)", e.Port, e.Port+1)
}

// Daemon wires the CSV file, metrics and label server together and owns
// their lifecycle
type Daemon struct {
	config  *config.Config
	logger  *logger.Logger
	metrics *metrics.Metrics
	file    *csvdoc.File
	server  *labelserver.Server
	audit   *observability.AuditLogger

	listener net.Listener
	serveErr chan error

	startTime time.Time
	running   bool
	mu        sync.RWMutex
}

// New creates a new daemon instance. It fails when the CSV file is missing.
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	file, err := csvdoc.Open(cfg.CSV.Path, csvdoc.Options{
		CRLF:   cfg.UseCRLF(),
		Logger: log.GetZerolog(),
	})
	if err != nil {
		return nil, err
	}

	m := metrics.NewMetrics()

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	options := labelserver.ServerOptions{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		StaticDir:    cfg.Server.StaticDir,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		MetricsPath:  metricsPath,
		Watch:        cfg.CSV.Watch,
	}

	var audit *observability.AuditLogger
	if cfg.Logging.AuditFile != "" {
		audit, err = observability.OpenAuditLogger(cfg.Logging.AuditFile)
		if err != nil {
			return nil, err
		}
		options.Audit = audit
	}

	server, err := labelserver.NewServer(options, file, m, log.GetZerolog())
	if err != nil {
		if audit != nil {
			audit.Close()
		}
		return nil, fmt.Errorf("failed to create label server: %w", err)
	}

	return &Daemon{
		config:   cfg,
		logger:   log,
		metrics:  m,
		file:     file,
		server:   server,
		audit:    audit,
		serveErr: make(chan error, 1),
	}, nil
}

// Start binds the listen address and serves in the background
func (d *Daemon) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("daemon is already running")
	}

	ln, err := net.Listen("tcp", d.config.Addr())
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return &PortInUseError{Port: d.config.Server.Port}
		}
		return fmt.Errorf("failed to listen on %s: %w", d.config.Addr(), err)
	}

	d.listener = ln
	d.startTime = time.Now()
	d.running = true

	go func() {
		d.serveErr <- d.server.Serve(ln)
	}()

	d.logger.Info().
		Str("addr", ln.Addr().String()).
		Str("csv", d.file.Path()).
		Str("labeled", d.file.SnapshotPath()).
		Str("static_dir", d.config.Server.StaticDir).
		Msg("Daemon started")

	return nil
}

// Stop gracefully stops the server within the configured shutdown timeout
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	timeout := time.Duration(d.config.Server.ShutdownTimeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := d.server.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop label server: %w", err)
	}

	if d.audit != nil {
		if err := d.audit.Close(); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to close audit log")
		}
	}

	d.running = false
	d.logger.Info().Dur("uptime", time.Since(d.startTime)).Msg("Daemon stopped")

	return nil
}

// Wait blocks until ctx is done, SIGINT or SIGTERM arrives, or the server
// fails, then stops the daemon
func (d *Daemon) Wait(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		d.logger.Info().Msg("Received shutdown signal")
	case err := <-d.serveErr:
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		return err
	}

	return d.Stop()
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running: d.running,
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
		status.Addr = d.listener.Addr().String()
	}

	return status
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// GetFile returns the served CSV file
func (d *Daemon) GetFile() *csvdoc.File {
	return d.file
}

// GetServer returns the label server
func (d *Daemon) GetServer() *labelserver.Server {
	return d.server
}

// GetMetrics returns the metrics registry
func (d *Daemon) GetMetrics() *metrics.Metrics {
	return d.metrics
}

// Status represents daemon status
type Status struct {
	Running   bool
	Addr      string
	Uptime    time.Duration
	StartTime time.Time
}
