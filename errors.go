package lazyarr

import (
	"errors"
	"fmt"

	"github.com/hupe1980/lazyarr/manifest"
)

// ErrStorageUnavailable indicates that a dataset location could not be
// reached or does not contain a recognized chunked-array layout.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrStorageUnavailable struct {
	Location string
	cause    error
}

func (e *ErrStorageUnavailable) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("storage unavailable at %q: %v", e.Location, e.cause)
	}
	return fmt.Sprintf("storage unavailable at %q", e.Location)
}

func (e *ErrStorageUnavailable) Unwrap() error { return e.cause }

// ErrMetadataCorrupt indicates a dataset catalog document that exists but
// cannot be parsed or fails validation.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrMetadataCorrupt struct {
	Location string
	Doc      string
	cause    error
}

func (e *ErrMetadataCorrupt) Error() string {
	return fmt.Sprintf("corrupt metadata at %q (%s): %v", e.Location, e.Doc, e.cause)
}

func (e *ErrMetadataCorrupt) Unwrap() error { return e.cause }

// ErrVariableNotFound indicates a variable name absent from the dataset
// catalog.
type ErrVariableNotFound struct {
	Name      string
	Available []string
}

func (e *ErrVariableNotFound) Error() string {
	return fmt.Sprintf("variable %q not found (available: %v)", e.Name, e.Available)
}

// ErrShapeMismatch indicates elementwise operands whose shapes differ.
type ErrShapeMismatch struct {
	Op   string
	Want []int
	Got  []int
}

func (e *ErrShapeMismatch) Error() string {
	return fmt.Sprintf("shape mismatch in %s: %v vs %v", e.Op, e.Want, e.Got)
}

// ErrDimensionNotFound indicates a dimension name absent from an array.
type ErrDimensionNotFound struct {
	Dim       string
	Available []string
}

func (e *ErrDimensionNotFound) Error() string {
	return fmt.Sprintf("dimension %q not found (available: %v)", e.Dim, e.Available)
}

// ErrChunkFetchFailed indicates that a specific chunk could not be retrieved
// or decoded during materialization. Location, Variable and Key identify the
// failing chunk exactly.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrChunkFetchFailed struct {
	Location string
	Variable string
	Key      string
	cause    error
}

func (e *ErrChunkFetchFailed) Error() string {
	return fmt.Sprintf("chunk fetch failed: %s/%s/%s: %v", e.Location, e.Variable, e.Key, e.cause)
}

func (e *ErrChunkFetchFailed) Unwrap() error { return e.cause }

// translateOpenError maps manifest-layer failures onto the public taxonomy.
func translateOpenError(location string, err error) error {
	if err == nil {
		return nil
	}

	var pe *manifest.ParseError
	if errors.As(err, &pe) {
		return &ErrMetadataCorrupt{Location: location, Doc: pe.Key, cause: err}
	}

	return &ErrStorageUnavailable{Location: location, cause: err}
}
