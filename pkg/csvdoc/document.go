package csvdoc

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ErrEmptyDocument is returned when a document has no header row
var ErrEmptyDocument = errors.New("csv is empty")

// RowRangeError reports a data row index outside the document
type RowRangeError struct {
	Row int // zero-based data row index as supplied by the caller
}

func (e *RowRangeError) Error() string {
	return fmt.Sprintf("row index out of range: %d", e.Row)
}

// Document is an in-memory CSV file: row 0 is the header, the rest are data rows
type Document struct {
	Rows [][]string
}

// Parse reads a whole CSV document. Rows may have differing field counts.
// Blank lines are kept as empty rows so data row indexes match the file.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	nextLine := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}

		// the reader skips blank lines; the gap before a record is made of them
		line, _ := reader.FieldPos(0)
		for ; nextLine < line; nextLine++ {
			rows = append(rows, []string{})
		}
		rows = append(rows, record)
		nextLine = 1 + bytes.Count(data[:reader.InputOffset()], []byte{'\n'})
	}

	tail := data
	if len(rows) > 0 {
		tail = data[reader.InputOffset():]
	}
	for i := bytes.Count(tail, []byte{'\n'}); i > 0; i-- {
		rows = append(rows, []string{})
	}

	return &Document{Rows: rows}, nil
}

// Encode writes the document as CSV
func (d *Document) Encode(w io.Writer, crlf bool) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = crlf

	if err := writer.WriteAll(d.Rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// IsEmpty reports whether the document lacks a header row
func (d *Document) IsEmpty() bool {
	return len(d.Rows) == 0
}

// Header returns the header row, or nil for an empty document
func (d *Document) Header() []string {
	if d.IsEmpty() {
		return nil
	}
	return d.Rows[0]
}

// DataRowCount returns the number of rows after the header
func (d *Document) DataRowCount() int {
	if d.IsEmpty() {
		return 0
	}
	return len(d.Rows) - 1
}

// ColumnIndex returns the position of the first header entry named name, or -1
func (d *Document) ColumnIndex(name string) int {
	for i, h := range d.Header() {
		if h == name {
			return i
		}
	}
	return -1
}

// EnsureColumn returns the index of the named column, appending it to the
// header when absent. A new column gets an empty cell in every data row.
func (d *Document) EnsureColumn(name string) (int, bool, error) {
	if d.IsEmpty() {
		return 0, false, ErrEmptyDocument
	}

	if idx := d.ColumnIndex(name); idx >= 0 {
		return idx, false, nil
	}

	d.Rows[0] = append(d.Rows[0], name)
	for i := 1; i < len(d.Rows); i++ {
		d.Rows[i] = append(d.Rows[i], "")
	}
	d.padRows()

	return len(d.Rows[0]) - 1, true, nil
}

// SetCell stores value in the given zero-based data row at column col.
// Every data row shorter than the header is padded, not only the target.
func (d *Document) SetCell(row int, col int, value string) error {
	if d.IsEmpty() {
		return ErrEmptyDocument
	}
	d.padRows()

	abs := row + 1
	if abs < 1 || abs >= len(d.Rows) {
		return &RowRangeError{Row: row}
	}

	width := len(d.Rows[0])
	if col >= width {
		width = col + 1
	}
	d.Rows[abs] = pad(d.Rows[abs], width)
	d.Rows[abs][col] = value

	return nil
}

// padRows extends every data row shorter than the header. Rows are never truncated.
func (d *Document) padRows() {
	width := len(d.Rows[0])
	for i := 1; i < len(d.Rows); i++ {
		d.Rows[i] = pad(d.Rows[i], width)
	}
}

func pad(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}
