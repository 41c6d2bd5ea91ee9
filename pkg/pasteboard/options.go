package pasteboard

import (
	"github.com/labi-le/pasteboard/pkg/pasteboard/native"
	"github.com/rs/zerolog"
)

type Option func(*options)

type options struct {
	driver native.Driver
	logger zerolog.Logger
}

// WithDriver replaces the platform driver.
func WithDriver(d native.Driver) Option {
	return func(o *options) {
		o.driver = d
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
