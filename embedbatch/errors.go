package embedbatch

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrInvalidBatchBounds is returned when the batch size bounds are not
	// 0 < min <= initial <= max.
	ErrInvalidBatchBounds = errors.New("batch size bounds must satisfy 0 < min <= initial <= max")
)
