package fattail

import "errors"

// Error taxonomy. Every failure returned by this package wraps exactly one of
// these, so callers match with errors.Is.
var (
	// ErrEmptySample: an operation requiring at least one sample received none.
	ErrEmptySample = errors.New("fattail: empty sample")

	// ErrInsufficientTailData: too few points remain after tail selection.
	ErrInsufficientTailData = errors.New("fattail: insufficient tail data")

	// ErrInvalidConfiguration: a distribution, quantile, percentile or other
	// parameter is outside its valid range.
	ErrInvalidConfiguration = errors.New("fattail: invalid configuration")
)
