package labelserver

import (
	"context"
	"encoding/json"
	"time"
)

// ServerOptions configures the label server
type ServerOptions struct {
	Host          string        // Listen host (default: all interfaces)
	Port          int           // Listen port (default: 8000)
	StaticDir     string        // Directory served for non-CSV GET paths (default: ".")
	MaxBodyBytes  int64         // Request body limit for POST endpoints (default: 1 MiB)
	MetricsPath   string        // Prometheus endpoint path, empty disables it
	Watch         bool          // Watch the CSV file for on-disk changes
	WatchDebounce time.Duration // Debounce for watcher notifications (default: 200ms)
	Audit         EditAuditor   // Receives every attempted mutation, optional
}

// EditAuditor records CSV mutations
type EditAuditor interface {
	RecordEdit(ctx context.Context, action, actor, status string, metadata map[string]interface{})
}

// UpdateLabelResponse is returned by POST /update_label
type UpdateLabelResponse struct {
	OK             bool            `json:"ok"`
	Row            int             `json:"row"`
	Column         json.RawMessage `json:"column"`
	LabelName      string          `json:"labelName"`
	Value          json.RawMessage `json:"value"`
	LabeledCSVPath string          `json:"labeledCsvPath"`
}

// AddColumnResponse is returned by POST /add_column
type AddColumnResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Column  string `json:"column"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status    string  `json:"status"`
	Uptime    float64 `json:"uptime"`
	CSVFile   string  `json:"csvFile"`
	Timestamp int64   `json:"timestamp"`
}

// Response messages for POST /add_column
const (
	MessageColumnAdded  = "Column added"
	MessageColumnExists = "Column already exists"
)

// Error messages returned to clients
const (
	errInvalidJSON      = "invalid JSON payload"
	errMissingParams    = "missing required parameters"
	errInvalidColumn    = "missing or invalid column name"
	errNotFound         = "not found"
	errMethodNotAllowed = "method not allowed"
	errEmptyCSV         = "csv is empty"
)

// Metric status labels
const (
	statusSuccess     = "success"
	statusClientError = "client_error"
	statusServerError = "server_error"
)
