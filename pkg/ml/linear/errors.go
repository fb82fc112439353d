package linear

import "errors"

var (
	// ErrSizeMismatch is returned when two vectors that must line up do not.
	ErrSizeMismatch = errors.New("vector size mismatch")
	// ErrDimensionMismatch is returned when persisted data was written for a
	// model of another dimension, or declares one above MaxDimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrIOFailed wraps short reads and failed writes.
	ErrIOFailed = errors.New("io failed")
	// ErrEmptyTrainingSet is returned by Train and Evaluate for zero samples.
	ErrEmptyTrainingSet = errors.New("training set must not be empty")
	// ErrInvalidRegularizationStrength is returned for a negative or NaN
	// strength.
	ErrInvalidRegularizationStrength = errors.New("regularization strength must be non-negative")
)
