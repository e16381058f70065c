package index

import "fmt"

// DimensionMismatchError indicates a vector whose length differs from the index dimension.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("index: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// InvalidDimensionError indicates a non-positive index dimension.
type InvalidDimensionError struct {
	Dimension int
}

func (e *InvalidDimensionError) Error() string {
	return fmt.Sprintf("index: invalid dimension: %d", e.Dimension)
}

// PersistenceError wraps a failure to save or load an index snapshot.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("index.%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ChecksumMismatchError reports a corrupted artifact section.
type ChecksumMismatchError struct {
	Artifact string
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch in %s: expected %08x, got %08x", e.Artifact, e.Expected, e.Actual)
}
