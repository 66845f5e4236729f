package config

import "errors"

var (
	// ErrParsingConfig wraps every failure reported by the env parser.
	ErrParsingConfig = errors.New("config: parsing environment")

	// ErrNilPointer is returned when Load gets a nil destination.
	ErrNilPointer = errors.New("config: nil destination")
)
