package publication

import "errors"

// Region errors
var (
	// ErrRegionClosed is returned when operations are attempted on a closed region.
	ErrRegionClosed = errors.New("publication region is closed")

	// ErrCorrupted is returned when an existing region file is too small to
	// hold a valid header.
	ErrCorrupted = errors.New("publication region file corrupted")

	// ErrParamOutOfRange is returned when a parameter index falls outside
	// [0, num_params).
	ErrParamOutOfRange = errors.New("parameter index out of range")

	// ErrInvalidMaxParams is returned when a region is created with a
	// non-positive parameter capacity.
	ErrInvalidMaxParams = errors.New("max params must be positive")
)
