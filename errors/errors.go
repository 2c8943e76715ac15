// Package errors defines all exported error sentinels for the subsetsum library.
//
// This is the single source of truth for error values. Both the top-level
// subsetsum package and internal packages import from here, ensuring
// errors.Is checks work across package boundaries.
package errors

import "errors"

// Input errors
var (
	ErrEmptyProblem     = errors.New("subsetsum: problem must not be empty")
	ErrProblemTooLarge  = errors.New("subsetsum: problem size must be lower than 129")
	ErrZeroElement      = errors.New("subsetsum: set must not have zero elements")
	ErrPositiveOverflow = errors.New("subsetsum: sum of all positive values is out of range")
	ErrNegativeOverflow = errors.New("subsetsum: sum of all negative values is out of range")
)

// Resource errors
var (
	ErrHashBucketOverflow = errors.New("subsetsum: node hash bucket exceeds maximum size (65535)")
	ErrDeviceMemory       = errors.New("subsetsum: device memory too small for partitioned node hash")
)

// Queue errors
var (
	ErrQueueClosed        = errors.New("subsetsum: queue is closed")
	ErrQueueCancelled     = errors.New("subsetsum: queue is cancelled")
	ErrReservationOverrun = errors.New("subsetsum: finished more elements than reserved")
)

// Configuration errors
var (
	ErrNoWorkers       = errors.New("subsetsum: no workers to solve problem")
	ErrHashBitsRange   = errors.New("subsetsum: node hash bits must be in range 0-63")
	ErrHashedNumsRange = errors.New("subsetsum: node hashed numbers must be in range 0-63")
	ErrThreadsRange    = errors.New("subsetsum: threads number must be positive")
)

// Int128 errors
var (
	ErrInt128Syntax = errors.New("subsetsum: invalid 128-bit integer syntax")
	ErrInt128Range  = errors.New("subsetsum: value out of 128-bit integer range")
)
