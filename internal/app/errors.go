package service

import "errors"

// Sentinel kinds for service errors. The API maps them to status codes.
var (
	ErrValidation = errors.New("invalid request")
	ErrNotFound   = errors.New("job not found")
	ErrForbidden  = errors.New("job belongs to another account")
	ErrConflict   = errors.New("job is in a terminal state")
	ErrBusy       = errors.New("dispatch queue is full")
	ErrNoWinner   = errors.New("no winning ad found")
	ErrNoLanding  = errors.New("no landing page url")

	errNotApplicable = errors.New("callback not applicable")
)
