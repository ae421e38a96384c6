package storage

import "errors"

var (
	// ErrNotFound indicates the fetch produced no artifact in the scope.
	ErrNotFound = errors.New("artifact not found")

	// ErrEmptyFile indicates the artifact exists but has zero bytes.
	ErrEmptyFile = errors.New("artifact is empty")

	// ErrSizeExceeded indicates the artifact is larger than the delivery ceiling.
	ErrSizeExceeded = errors.New("file exceeds size limit")

	// ErrPathOutsideRoot indicates a removal target escaped the storage root.
	ErrPathOutsideRoot = errors.New("path outside storage root")
)
