package netcdf

import (
	"github.com/sirupsen/logrus"
)

// Option configures encoding.
type Option func(*options)

type options struct {
	log    logrus.FieldLogger
	strict bool
}

func defaultOptions() *options {
	return &options{log: logrus.StandardLogger()}
}

func newOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger for encode decisions and convention warnings.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithStrictConventions turns CF convention warnings into validation
// problems.
func WithStrictConventions() Option {
	return func(o *options) {
		o.strict = true
	}
}
