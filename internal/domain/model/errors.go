package model

import "errors"

// Sentinel errors for domain model operations.
var (
	ErrUnknownFormat     = errors.New("unknown creative format")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrJobTerminal       = errors.New("job is in a terminal state")
)
