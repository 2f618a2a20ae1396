// Package mmap provides read-only memory-mapped file access.
//
// Local chunk objects are served straight out of the page cache without an
// extra kernel-to-user copy. Mapping is supported on Unix platforms; elsewhere
// Open falls back to reading the file into memory.
package mmap

import (
	"errors"
	"os"
	"sync/atomic"
)

// ErrClosed is returned when accessing a closed mapping.
var ErrClosed = errors.New("mmap: mapping is closed")

// Mapping represents a read-only memory-mapped file.
// It owns the underlying byte slice and is responsible for unmapping it.
type Mapping struct {
	data   []byte
	closed atomic.Bool
	// unmap is nil for empty files and read fallbacks.
	unmap func([]byte) error
}

// Open maps the file at path into memory as read-only.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return &Mapping{}, nil
	}

	data, unmap, err := mapFile(f, int(size))
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data, unmap: unmap}, nil
}

// Bytes returns the mapped content. The slice is valid until Close.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Close unmaps the file. Idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	data := m.data
	m.data = nil
	if m.unmap == nil || data == nil {
		return nil
	}
	return m.unmap(data)
}
