package model

import (
	"fmt"
	"strings"
)

// CreativeFormat is a placement's target geometry.
type CreativeFormat string

// Formats. FormatAll is only accepted on job creation and expands to every format.
const (
	FormatFeed  CreativeFormat = "feed"
	FormatStory CreativeFormat = "story"
	FormatReel  CreativeFormat = "reel"
	FormatAll   CreativeFormat = "all"
)

// AllFormats lists every concrete format in a stable order.
var AllFormats = []CreativeFormat{FormatFeed, FormatStory, FormatReel}

// Dimensions returns the pixel size of a concrete format.
func (f CreativeFormat) Dimensions() (width, height int, ok bool) {
	switch f {
	case FormatFeed:
		return 1080, 1080, true
	case FormatStory, FormatReel:
		return 1080, 1920, true
	default:
		return 0, 0, false
	}
}

// AspectRatio returns the platform notation, e.g. "9:16".
func (f CreativeFormat) AspectRatio() string {
	if f == FormatFeed {
		return "1:1"
	}
	return "9:16"
}

// ParseFormat accepts a concrete format name.
func ParseFormat(s string) (CreativeFormat, error) {
	f := CreativeFormat(strings.ToLower(strings.TrimSpace(s)))
	if _, _, ok := f.Dimensions(); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
	return f, nil
}

// ExpandFormats resolves a requested format (which may be "all") into concrete formats.
func ExpandFormats(s string) ([]CreativeFormat, error) {
	if CreativeFormat(strings.ToLower(strings.TrimSpace(s))) == FormatAll {
		out := make([]CreativeFormat, len(AllFormats))
		copy(out, AllFormats)
		return out, nil
	}
	f, err := ParseFormat(s)
	if err != nil {
		return nil, err
	}
	return []CreativeFormat{f}, nil
}
