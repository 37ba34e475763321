package labelserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/harun/csvlabel/internal/metrics"
	"github.com/harun/csvlabel/internal/tracing"
	"github.com/harun/csvlabel/pkg/csvdoc"
	"github.com/rs/zerolog"
)

// selfWriteWindow is how long after its own write the server attributes
// a file event to itself rather than an external editor
const selfWriteWindow = 2 * time.Second

// Server serves one CSV file and applies label edits to it
type Server struct {
	options   ServerOptions
	file      *csvdoc.File
	metrics   *metrics.Metrics
	validator *payloadValidator
	logger    zerolog.Logger
	startTime time.Time
	router    chi.Router

	server   *http.Server
	listener net.Listener
	watcher  *csvdoc.Watcher
	mu       sync.Mutex
}

// NewServer creates a new label server
func NewServer(options ServerOptions, file *csvdoc.File, m *metrics.Metrics, logger zerolog.Logger) (*Server, error) {
	// Set defaults
	if options.Port == 0 {
		options.Port = 8000
	}
	if options.StaticDir == "" {
		options.StaticDir = "."
	}
	if options.MaxBodyBytes == 0 {
		options.MaxBodyBytes = 1 << 20
	}
	if options.WatchDebounce == 0 {
		options.WatchDebounce = 200 * time.Millisecond
	}

	if file == nil {
		return nil, fmt.Errorf("csv file is required")
	}
	if m == nil {
		return nil, fmt.Errorf("metrics is required")
	}

	validator, err := newPayloadValidator()
	if err != nil {
		return nil, err
	}

	s := &Server{
		options:   options,
		file:      file,
		metrics:   m,
		validator: validator,
		logger:    logger.With().Str("component", "labelserver").Logger(),
		startTime: time.Now(),
	}
	s.router = s.routes()

	return s, nil
}

// Handler returns the HTTP handler with all routes and middleware
func (s *Server) Handler() http.Handler {
	return s.router
}

// routes builds the router
func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(tracing.Middleware)
	r.Use(s.accessLog)
	r.Use(cors)
	r.Use(middleware.GetHead)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
	})

	r.Get("/health", s.handleHealth)
	if s.options.MetricsPath != "" {
		r.Method(http.MethodGet, s.options.MetricsPath, s.metrics.Handler())
	}
	r.Get("/*", s.handleGet)

	r.Post("/update_label", s.handleUpdateLabel)
	r.Post("/add_column", s.handleAddColumn)
	r.Post("/*", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errNotFound)
	})

	r.Options("/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}

// Start listens on the configured address and serves until Stop is called
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.options.Host, s.options.Port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return s.Serve(ln)
}

// Serve serves on an existing listener until Stop is called
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	if s.options.Watch {
		if err := s.startWatcher(); err != nil {
			ln.Close()
			return err
		}
	}

	s.logger.Info().
		Str("addr", ln.Addr().String()).
		Str("csv", s.file.Path()).
		Str("staticDir", s.options.StaticDir).
		Msg("Starting label server")

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}

// Addr returns the bound listener address, or nil before Serve
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop gracefully stops the server, waiting for in-flight requests until ctx ends
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	watcher := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	s.logger.Info().Msg("Shutting down label server")

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to stop csv watcher")
		}
	}

	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown label server: %w", err)
	}

	s.logger.Info().Msg("Label server stopped")
	return nil
}

// startWatcher reports on-disk changes of the CSV file
func (s *Server) startWatcher() error {
	watcher, err := csvdoc.NewWatcher(csvdoc.WatcherConfig{
		Path:     s.file.Path(),
		Debounce: s.options.WatchDebounce,
		OnChange: s.onFileChange,
		Logger:   s.logger,
	})
	if err != nil {
		return err
	}

	if err := watcher.Start(); err != nil {
		watcher.Stop()
		return err
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	return nil
}

// onFileChange classifies a file event as our own write or an external edit
func (s *Server) onFileChange(op csvdoc.ChangeOp) {
	source := "external"
	if last := s.file.LastWrite(); !last.IsZero() && time.Since(last) < selfWriteWindow+s.options.WatchDebounce {
		source = "self"
	}

	s.metrics.FileEventsTotal.WithLabelValues(string(op), source).Inc()

	event := s.logger.Debug()
	if source == "external" {
		event = s.logger.Info()
	}
	event.
		Str("op", string(op)).
		Str("file", s.file.Path()).
		Msg("CSV file changed on disk")
}

// accessLog logs every request once it completes
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		logger := tracing.LoggerFromContext(r.Context(), s.logger)
		event := logger.Info()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		} else if status >= http.StatusBadRequest {
			event = logger.Warn()
		}

		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Int64("duration", time.Since(startTime).Milliseconds()).
			Msg("Request completed")
	})
}

// cors adds permissive CORS headers to every response
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

// writeJSON sends a JSON response
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError sends an error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{OK: false, Error: message})
}
