package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
)

// ErrNotFound is returned when an object does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// ErrListUnsupported is returned by stores that cannot enumerate keys.
// Callers must treat listing as an optional capability.
var ErrListUnsupported = errors.New("blobstore: listing not supported")

// Store is an abstraction for reading immutable objects from a
// chunked-array layout (manifest documents and chunk objects).
type Store interface {
	// Open opens an object for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// List returns the object keys under prefix.
	// Stores that cannot enumerate return ErrListUnsupported.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to an object.
type Blob interface {
	// ReadAt reads len(p) bytes starting at offset off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// Size returns the size of the object in bytes.
	Size() int64
	io.Closer
}

// Getter is an optional interface for stores that can fetch a whole
// object more efficiently than Open followed by a full ReadAt.
type Getter interface {
	Get(ctx context.Context, name string) ([]byte, error)
}

// ReadAll reads an entire object.
//
// Stores implementing Getter serve the read in one round trip; otherwise the
// object is opened and read through the Blob interface.
func ReadAll(ctx context.Context, store Store, name string) ([]byte, error) {
	if g, ok := store.(Getter); ok {
		return g.Get(ctx, name)
	}

	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	p := make([]byte, b.Size())
	n, err := b.ReadAt(ctx, p, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return p[:n], nil
}
