// Package adsplatform reads campaign ad performance from an ads platform.
package adsplatform

import (
	"errors"
	"fmt"
)

// Errors returned by sources.
var (
	ErrNoToken          = errors.New("ads platform access token not configured")
	ErrEmptyID          = errors.New("id is empty")
	ErrCampaignNotFound = errors.New("campaign not found")
)

// PlatformError is a non-2xx answer from the ads platform.
type PlatformError struct {
	StatusCode int
	Body       string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("ads platform returned %d: %s", e.StatusCode, e.Body)
}
