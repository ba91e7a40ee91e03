package model

import "errors"

var (
	// ErrInsufficientData means a series is shorter than a required window.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrMissingSeries means no data is available for a required pair.
	ErrMissingSeries = errors.New("missing series")
	// ErrAlignmentEmpty means two series share no common timestamps.
	ErrAlignmentEmpty = errors.New("no common timestamps")
	// ErrInvalidSeries means input bars violate the PriceSeries contract.
	ErrInvalidSeries = errors.New("invalid price series")
)
