package merkle

import (
	"github.com/datatrails/go-datatrails-common/logger"
)

// Options carries the settings every tree accepts.
type Options struct {
	Hasher Hasher
	Log    logger.Logger
}

// Option is a generic option type shared by all tree implementations.
// Implementations type assert to their options target record and ignore the
// option when that fails, so one option list can be handed to several
// targets.
type Option func(any)

func WithHasher(h Hasher) Option {
	return func(opts any) {
		if o, ok := opts.(*Options); ok {
			o.Hasher = h
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(opts any) {
		if o, ok := opts.(*Options); ok {
			o.Log = log
		}
	}
}

// NewOptions applies opts over the defaults: the SHA-256 hasher and no
// logging.
func NewOptions(opts ...Option) Options {
	o := Options{Hasher: DefaultHasher()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o Options) Debugf(format string, args ...any) {
	if o.Log == nil {
		return
	}
	o.Log.Debugf(format, args...)
}
