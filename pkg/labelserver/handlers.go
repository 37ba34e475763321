package labelserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/harun/csvlabel/internal/tracing"
	"github.com/harun/csvlabel/pkg/csvdoc"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Uptime:    time.Since(s.startTime).Seconds(),
		CSVFile:   s.file.Name(),
		Timestamp: time.Now().UnixMilli(),
	})
}

// handleGet serves the raw CSV for /<filename> and /csv, static files otherwise
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/csv" || r.URL.Path == "/"+s.file.Name() {
		s.handleFetch(w, r)
		return
	}

	http.FileServer(http.Dir(s.options.StaticDir)).ServeHTTP(w, r)
}

// handleFetch returns the CSV file bytes unparsed
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	content, err := s.file.ReadRaw()
	if err != nil {
		logger := tracing.LoggerFromContext(r.Context(), s.logger)
		logger.Error().
			Err(err).
			Msg("Failed to read csv file")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("error reading csv file: %v", err))
		return
	}

	s.metrics.FetchesTotal.Inc()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// handleUpdateLabel sets one label cell, creating the label column on first use
func (s *Server) handleUpdateLabel(w http.ResponseWriter, r *http.Request) {
	const operation = "update_label"
	startTime := time.Now()
	logger := tracing.LoggerFromContext(r.Context(), s.logger)

	fail := func(status int, metricStatus string, message string) {
		s.metrics.ObserveEdit(operation, metricStatus, time.Since(startTime).Seconds())
		writeError(w, status, message)
	}

	body, fields, err := s.readPayload(w, r)
	if err != nil {
		fail(http.StatusBadRequest, statusClientError, errInvalidJSON)
		return
	}

	for _, name := range []string{"row", "column", "labelName", "value"} {
		if isNull(fields[name]) {
			fail(http.StatusBadRequest, statusClientError, errMissingParams)
			return
		}
	}

	if err := validate(s.validator.updateLabel, body); err != nil {
		fail(http.StatusBadRequest, statusClientError, fmt.Sprintf("invalid parameters: %v", err))
		return
	}

	row, err := parseRow(fields["row"])
	if err != nil {
		var overflow *rowOverflowError
		if errors.As(err, &overflow) {
			fail(http.StatusBadRequest, statusClientError, overflow.Error())
			return
		}
		fail(http.StatusBadRequest, statusClientError, fmt.Sprintf("invalid parameters: %v", err))
		return
	}

	var labelName string
	if err := json.Unmarshal(fields["labelName"], &labelName); err != nil {
		fail(http.StatusBadRequest, statusClientError, fmt.Sprintf("invalid parameters: %v", err))
		return
	}

	value, err := cellValue(fields["value"])
	if err != nil {
		fail(http.StatusBadRequest, statusClientError, fmt.Sprintf("invalid parameters: %v", err))
		return
	}

	result, err := s.file.UpdateLabel(row, labelName, value)
	if err != nil {
		var rangeErr *csvdoc.RowRangeError
		switch {
		case errors.As(err, &rangeErr):
			fail(http.StatusBadRequest, statusClientError, rangeErr.Error())
		case errors.Is(err, csvdoc.ErrEmptyDocument):
			s.recordEdit(r, operation, "failure", map[string]interface{}{
				"row":       row,
				"labelName": labelName,
				"error":     err.Error(),
			})
			fail(http.StatusInternalServerError, statusServerError, errEmptyCSV)
		default:
			s.countSnapshotFailure(err)
			s.recordEdit(r, operation, "failure", map[string]interface{}{
				"row":       row,
				"labelName": labelName,
				"error":     err.Error(),
			})
			logger.Error().Err(err).Int("row", row).Str("labelName", labelName).Msg("Failed to update csv")
			fail(http.StatusInternalServerError, statusServerError, fmt.Sprintf("failed to update csv: %v", err))
		}
		return
	}

	if result.ColumnAdded {
		s.metrics.ColumnsAddedTotal.Inc()
	}
	s.metrics.SnapshotWritesTotal.WithLabelValues(statusSuccess).Inc()
	s.metrics.ObserveEdit(operation, statusSuccess, time.Since(startTime).Seconds())
	s.recordEdit(r, operation, statusSuccess, map[string]interface{}{
		"row":         row,
		"labelName":   labelName,
		"value":       value,
		"columnAdded": result.ColumnAdded,
	})

	logger.Info().
		Int("row", row).
		Str("labelName", labelName).
		Bool("columnAdded", result.ColumnAdded).
		Msg("Label updated")

	writeJSON(w, http.StatusOK, UpdateLabelResponse{
		OK:             true,
		Row:            row,
		Column:         fields["column"],
		LabelName:      labelName,
		Value:          fields["value"],
		LabeledCSVPath: result.SnapshotPath,
	})
}

// handleAddColumn appends a column to the header unless it already exists
func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	const operation = "add_column"
	startTime := time.Now()
	logger := tracing.LoggerFromContext(r.Context(), s.logger)

	fail := func(status int, metricStatus string, message string) {
		s.metrics.ObserveEdit(operation, metricStatus, time.Since(startTime).Seconds())
		writeError(w, status, message)
	}

	body, fields, err := s.readPayload(w, r)
	if err != nil {
		fail(http.StatusBadRequest, statusClientError, errInvalidJSON)
		return
	}

	if err := validate(s.validator.addColumn, body); err != nil {
		fail(http.StatusBadRequest, statusClientError, errInvalidColumn)
		return
	}

	var column string
	if err := json.Unmarshal(fields["column"], &column); err != nil {
		fail(http.StatusBadRequest, statusClientError, errInvalidColumn)
		return
	}

	added, err := s.file.AddColumn(column)
	if err != nil {
		s.recordEdit(r, operation, "failure", map[string]interface{}{
			"column": column,
			"error":  err.Error(),
		})
		if errors.Is(err, csvdoc.ErrEmptyDocument) {
			fail(http.StatusInternalServerError, statusServerError, errEmptyCSV)
			return
		}
		s.countSnapshotFailure(err)
		logger.Error().Err(err).Str("column", column).Msg("Failed to add column")
		fail(http.StatusInternalServerError, statusServerError, fmt.Sprintf("failed to add column: %v", err))
		return
	}

	message := MessageColumnExists
	if added {
		message = MessageColumnAdded
		s.metrics.ColumnsAddedTotal.Inc()
	}
	s.metrics.SnapshotWritesTotal.WithLabelValues(statusSuccess).Inc()
	s.metrics.ObserveEdit(operation, statusSuccess, time.Since(startTime).Seconds())
	s.recordEdit(r, operation, statusSuccess, map[string]interface{}{
		"column": column,
		"added":  added,
	})

	logger.Info().
		Str("column", column).
		Bool("added", added).
		Msg("Column ensured")

	writeJSON(w, http.StatusOK, AddColumnResponse{
		OK:      true,
		Message: message,
		Column:  column,
	})
}

// readPayload reads the body and decodes it as a JSON object. An empty body
// decodes as an empty object.
func (s *Server) readPayload(w http.ResponseWriter, r *http.Request) ([]byte, map[string]json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.options.MaxBodyBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read request body: %w", err)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, nil, fmt.Errorf("failed to parse JSON body: %w", err)
	}
	if fields == nil {
		// a literal null body
		return nil, nil, fmt.Errorf("JSON body is not an object")
	}

	return body, fields, nil
}

// isNull reports whether a field is absent or JSON null
func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

// rowOverflowError reports an integral row too large to index any document
type rowOverflowError struct {
	text string
}

func (e *rowOverflowError) Error() string {
	return "row index out of range: " + e.text
}

// parseRow accepts integral JSON numbers, including forms like 2.0
func parseRow(raw json.RawMessage) (int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] == '"' {
		return 0, fmt.Errorf("row must be an integer")
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return 0, fmt.Errorf("row must be an integer")
	}

	if i, err := strconv.ParseInt(n.String(), 10, 32); err == nil {
		return int(i), nil
	}

	f, err := n.Float64()
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("row must be an integer")
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("row must be an integer")
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, &rowOverflowError{text: n.String()}
	}
	return int(f), nil
}

// cellValue renders a JSON value as cell text: strings unquoted, booleans as
// True or False, anything else as compact JSON (numbers keep their literal form)
func cellValue(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	switch string(trimmed) {
	case "true":
		return "True", nil
	case "false":
		return "False", nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// recordEdit hands an attempted mutation to the configured auditor
func (s *Server) recordEdit(r *http.Request, action, status string, metadata map[string]interface{}) {
	if s.options.Audit == nil {
		return
	}
	s.options.Audit.RecordEdit(r.Context(), action, r.RemoteAddr, status, metadata)
}

// countSnapshotFailure records errors raised while refreshing the snapshot
func (s *Server) countSnapshotFailure(err error) {
	if errors.Is(err, csvdoc.ErrSnapshot) {
		s.metrics.SnapshotWritesTotal.WithLabelValues("failure").Inc()
	}
}
