package worker

import (
	"github.com/okian/adcraft/pkg/logger"
)

// Option applies a configuration option to a Pool.
type Option func(*options)

type options struct {
	name   string
	size   int
	logger logger.Logger
}

// WithName sets the pool name used for worker names and logging.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithSize sets the number of workers.
func WithSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.size = n
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
