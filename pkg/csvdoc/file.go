package csvdoc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// SnapshotSuffix is appended to the file stem to name the labeled snapshot
const SnapshotSuffix = "_labeled"

// ErrSnapshot marks failures that happened after the source file was
// written, while refreshing the labeled snapshot
var ErrSnapshot = errors.New("snapshot refresh failed")

// Options configures a File
type Options struct {
	CRLF   bool           // terminate records with \r\n
	Logger zerolog.Logger // component logger
}

// File is the handle for one CSV file on disk and its labeled snapshot.
// All mutations go through the handle's lock.
type File struct {
	path         string
	snapshotPath string
	crlf         bool
	logger       zerolog.Logger
	mu           sync.Mutex
	lastWrite    atomic.Int64 // unix nanos of the last replace or snapshot
}

// UpdateResult describes a completed label update
type UpdateResult struct {
	Column       int
	ColumnAdded  bool
	SnapshotPath string
}

// Open creates a handle for an existing CSV file
func Open(path string, opts Options) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("csv path is required")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve csv path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("csv file %q not found", path)
		}
		return nil, fmt.Errorf("failed to stat csv file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("csv path %q is a directory", path)
	}

	return &File{
		path:         absPath,
		snapshotPath: SnapshotPath(absPath),
		crlf:         opts.CRLF,
		logger:       opts.Logger.With().Str("component", "csvdoc").Str("file", absPath).Logger(),
	}, nil
}

// SnapshotPath derives <dir>/<stem>_labeled.csv for a CSV path
func SnapshotPath(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(path), stem+SnapshotSuffix+".csv")
}

// Path returns the absolute path of the CSV file
func (f *File) Path() string {
	return f.path
}

// Name returns the base name of the CSV file
func (f *File) Name() string {
	return filepath.Base(f.path)
}

// SnapshotPath returns the absolute path of the labeled snapshot
func (f *File) SnapshotPath() string {
	return f.snapshotPath
}

// LastWrite returns when this handle last wrote the file or its snapshot
func (f *File) LastWrite() time.Time {
	n := f.lastWrite.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// ReadRaw returns the current file bytes without parsing
func (f *File) ReadRaw() ([]byte, error) {
	return os.ReadFile(f.path)
}

// Load parses the file from disk
func (f *File) Load() (*Document, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer file.Close()

	return Parse(bufio.NewReader(file))
}

// UpdateLabel sets the label column value for one data row, creating the
// column when needed, then persists the file and refreshes the snapshot.
func (f *File) UpdateLabel(row int, labelName string, value string) (UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.Load()
	if err != nil {
		return UpdateResult{}, err
	}

	col, added, err := doc.EnsureColumn(labelName)
	if err != nil {
		return UpdateResult{}, err
	}

	if err := doc.SetCell(row, col, value); err != nil {
		return UpdateResult{}, err
	}

	if err := f.save(doc); err != nil {
		return UpdateResult{}, err
	}

	if err := f.snapshot(); err != nil {
		return UpdateResult{}, fmt.Errorf("%w: %w", ErrSnapshot, err)
	}

	f.logger.Debug().
		Int("row", row).
		Str("label", labelName).
		Bool("columnAdded", added).
		Msg("Label updated")

	return UpdateResult{
		Column:       col,
		ColumnAdded:  added,
		SnapshotPath: f.snapshotPath,
	}, nil
}

// AddColumn appends a column to the header if it is not already present.
// The snapshot is refreshed in both cases. It reports whether the column was added.
func (f *File) AddColumn(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.Load()
	if err != nil {
		return false, err
	}

	_, added, err := doc.EnsureColumn(name)
	if err != nil {
		return false, err
	}

	if added {
		if err := f.save(doc); err != nil {
			return false, err
		}
	}

	if err := f.snapshot(); err != nil {
		return false, fmt.Errorf("%w: %w", ErrSnapshot, err)
	}

	f.logger.Debug().
		Str("column", name).
		Bool("added", added).
		Msg("Column ensured")

	return added, nil
}

// save writes the document to a temp sibling and renames it over the source
func (f *File) save(doc *Document) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(f.path); err == nil {
		mode = info.Mode().Perm()
	}

	suffix, err := gonanoid.New(10)
	if err != nil {
		return fmt.Errorf("failed to generate temp file name: %w", err)
	}
	tempPath := f.path + "." + suffix + ".tmp"

	tmp, err := os.OpenFile(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	cleanup := func() {
		tmp.Close()
		os.Remove(tempPath)
	}

	w := bufio.NewWriter(tmp)
	if err := doc.Encode(w, f.crlf); err != nil {
		cleanup()
		return err
	}
	if err := w.Flush(); err != nil {
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace csv file: %w", err)
	}
	f.lastWrite.Store(time.Now().UnixNano())

	return nil
}

// snapshot copies the source file to the snapshot path, keeping mode and mtime
func (f *File) snapshot() error {
	src, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("failed to open csv for snapshot: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat csv for snapshot: %w", err)
	}

	dst, err := os.OpenFile(f.snapshotPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to copy snapshot: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Chmod(f.snapshotPath, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to set snapshot mode: %w", err)
	}
	if err := os.Chtimes(f.snapshotPath, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("failed to set snapshot times: %w", err)
	}
	f.lastWrite.Store(time.Now().UnixNano())

	return nil
}
