// Package logging provides the size-capped debug log file the CLI writes
// slog output to.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	defaultMaxBytes = 10 << 20
	defaultKeep     = 3
)

// RotatingFile is an io.WriteCloser that caps the log file at a maximum
// size, shifting full files to numbered backups (.1 newest) and dropping
// the oldest.
type RotatingFile struct {
	path     string
	maxBytes int64
	keep     int

	mu   sync.Mutex
	file *os.File
	size int64
}

type Option func(*RotatingFile)

// WithMaxSize caps the file at size bytes before it rotates.
func WithMaxSize(size int64) Option {
	return func(r *RotatingFile) {
		r.maxBytes = size
	}
}

// WithMaxBackups sets how many rotated files are kept.
func WithMaxBackups(count int) Option {
	return func(r *RotatingFile) {
		r.keep = count
	}
}

// NewRotatingFile opens (or creates) the log file at path, creating parent
// directories as needed. Writes append to existing content.
func NewRotatingFile(path string, opts ...Option) (*RotatingFile, error) {
	r := &RotatingFile{
		path:     path,
		maxBytes: defaultMaxBytes,
		keep:     defaultKeep,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RotatingFile) open() error {
	file, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	r.file = file
	r.size = info.Size()
	return nil
}

func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size+int64(len(p)) > r.maxBytes {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

func (r *RotatingFile) backup(i int) string {
	return fmt.Sprintf("%s.%d", r.path, i)
}

// rotate shifts backups up one slot (.1 -> .2, ...), moves the current
// file to .1 and reopens a fresh one.
func (r *RotatingFile) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}

	_ = os.Remove(r.backup(r.keep))
	for i := r.keep - 1; i >= 1; i-- {
		_ = os.Rename(r.backup(i), r.backup(i+1))
	}
	if err := os.Rename(r.path, r.backup(1)); err != nil && !os.IsNotExist(err) {
		return err
	}

	r.size = 0
	return r.open()
}
