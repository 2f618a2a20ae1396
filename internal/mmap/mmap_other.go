//go:build !unix

package mmap

import (
	"io"
	"os"
)

// Fallback for platforms without mmap support: read the file into memory.
func mapFile(f *os.File, size int) ([]byte, func([]byte) error, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, nil, err
	}
	return data, nil, nil
}
