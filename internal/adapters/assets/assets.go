// Package assets stores rendered creatives and returns their public URLs.
package assets

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// Errors returned by stores.
var (
	ErrEmptyKey  = errors.New("asset key is empty")
	ErrEmptyData = errors.New("asset data is empty")
	ErrNotFound  = errors.New("asset not found")
)

// Store persists an asset under key and returns the URL clients should use.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// CreativeKey is the object key of one rendered creative, e.g. "<job>/2-story.png".
func CreativeKey(jobID string, index int, format, ext string) string {
	return path.Join(jobID, fmt.Sprintf("%d-%s.%s", index, format, ext))
}

// cleanKey normalizes key and refuses keys that escape the root.
func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(path.Clean("/"+strings.TrimSpace(key)), "/")
	if key == "" {
		return "", ErrEmptyKey
	}
	return key, nil
}
