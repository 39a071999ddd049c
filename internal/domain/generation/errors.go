package generation

import "errors"

// Sentinel errors for the generation stages.
var (
	ErrNoModel           = errors.New("model client not configured")
	ErrEmptyInput        = errors.New("nothing to analyze")
	ErrInvalidCount      = errors.New("variation count must be positive")
	ErrNoJSON            = errors.New("model response contains no JSON object")
	ErrSchemaViolation   = errors.New("model response does not match schema")
	ErrTooFewVariations  = errors.New("model returned fewer variations than requested")
	ErrEmptyImage        = errors.New("image model returned no image")
	ErrEmptyModelMessage = errors.New("model returned an empty response")
)
