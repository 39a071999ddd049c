// Package generation turns landing page copy into a brand profile, copy
// variations and one base visual. Model clients are injected; nothing here
// talks to a network directly.
package generation

import (
	"context"
	"unicode/utf8"

	"github.com/okian/adcraft/pkg/logger"
)

// TextModel completes a prompt with text.
type TextModel interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ImageModel renders exactly one image for a prompt. aspectRatio uses the
// "W:H" notation, e.g. "1:1".
type ImageModel interface {
	GenerateImage(ctx context.Context, prompt, aspectRatio string) ([]byte, error)
}

// TextModelFunc adapts a function to TextModel.
type TextModelFunc func(ctx context.Context, prompt string) (string, error)

// GenerateText implements TextModel.
func (f TextModelFunc) GenerateText(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

const (
	defaultMaxLandingChars = 12_000
	defaultMaxAdTexts      = 10
	defaultMaxAdTextChars  = 600
)

type options struct {
	log             logger.Logger
	maxLandingChars int
	maxAdTexts      int
	maxAdTextChars  int
}

// Option configures the generation stages.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMaxLandingChars caps how much landing page text goes into a prompt.
func WithMaxLandingChars(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLandingChars = n
		}
	}
}

// WithMaxAdTexts caps how many reference ad texts go into a prompt and how long each may be.
func WithMaxAdTexts(count, chars int) Option {
	return func(o *options) {
		if count > 0 {
			o.maxAdTexts = count
		}
		if chars > 0 {
			o.maxAdTextChars = chars
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		log:             logger.Nop(),
		maxLandingChars: defaultMaxLandingChars,
		maxAdTexts:      defaultMaxAdTexts,
		maxAdTextChars:  defaultMaxAdTextChars,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
