package eventlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Destination receives entries from the sink worker, in order, one at a time.
type Destination interface {
	Write(ctx context.Context, e Entry) error
	Close() error
}

// FileDestination appends records to a file. Every record is written with a
// single unbuffered write so it is on disk before the next one is taken.
type FileDestination struct {
	mu sync.Mutex
	f  *os.File
}

// OpenFile opens (or creates) path for appending, creating parent directories.
func OpenFile(path string) (*FileDestination, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &FileDestination{f: f}, nil
}

// Write appends one record.
func (d *FileDestination) Write(_ context.Context, e Entry) error {
	line, err := e.Line()
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return os.ErrClosed
	}
	_, err = d.f.Write(line)
	return err
}

// Close syncs and closes the file.
func (d *FileDestination) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	syncErr := d.f.Sync()
	closeErr := d.f.Close()
	d.f = nil
	return errors.Join(syncErr, closeErr)
}

// WriterDestination writes records to an io.Writer, such as os.Stdout.
type WriterDestination struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterDestination wraps w.
func NewWriterDestination(w io.Writer) *WriterDestination {
	return &WriterDestination{w: w}
}

// Write appends one record.
func (d *WriterDestination) Write(_ context.Context, e Entry) error {
	line, err := e.Line()
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err = d.w.Write(line)
	return err
}

// Close is a no-op; the writer is owned by the caller.
func (d *WriterDestination) Close() error { return nil }

// MultiDestination writes every entry to each destination in order. A failing
// destination does not stop the others.
type MultiDestination []Destination

// Write fans the entry out.
func (m MultiDestination) Write(ctx context.Context, e Entry) error {
	var errs []error
	for _, d := range m {
		if err := d.Write(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every destination.
func (m MultiDestination) Close() error {
	var errs []error
	for _, d := range m {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
