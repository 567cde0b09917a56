package ioc

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultMaxDepth bounds the length of a resolution path.
const DefaultMaxDepth = 100

// Option configures a Container.
type Option interface {
	apply(*options)
}

// options holds container configuration.
type options struct {
	logger           *zap.Logger
	registerer       prometheus.Registerer
	namespace        string
	maxDepth         int
	selfRegistration bool
}

// optionFunc adapts a function to Option.
type optionFunc func(*options)

func (f optionFunc) apply(opts *options) {
	f(opts)
}

func defaultOptions() *options {
	return &options{
		logger:           zap.NewNop(),
		namespace:        "ioc",
		maxDepth:         DefaultMaxDepth,
		selfRegistration: true,
	}
}

// WithLogger sets the logger the container reports to. A nil logger
// keeps the default no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(opts *options) {
		if logger != nil {
			opts.logger = logger
		}
	})
}

// WithMetrics registers the container's prometheus collectors with reg.
// Containers sharing a registerer share collectors.
func WithMetrics(reg prometheus.Registerer) Option {
	return optionFunc(func(opts *options) {
		opts.registerer = reg
	})
}

// WithMetricsNamespace sets the namespace of the metric names.
func WithMetricsNamespace(namespace string) Option {
	return optionFunc(func(opts *options) {
		if namespace != "" {
			opts.namespace = namespace
		}
	})
}

// WithMaxDepth bounds how deep factories may nest resolutions.
func WithMaxDepth(depth int) Option {
	return optionFunc(func(opts *options) {
		if depth > 0 {
			opts.maxDepth = depth
		}
	})
}

// WithoutSelfRegistration disables the Injectable fallback. Unbound types
// then fail immediately unless a deferred provider declares them.
func WithoutSelfRegistration() Option {
	return optionFunc(func(opts *options) {
		opts.selfRegistration = false
	})
}

// WithConfig applies the depth, self-registration and metrics namespace
// settings of cfg. The logger is built separately, see Config.Logger.
func WithConfig(cfg Config) Option {
	return optionFunc(func(opts *options) {
		if cfg.MaxDepth > 0 {
			opts.maxDepth = cfg.MaxDepth
		}
		opts.selfRegistration = cfg.SelfRegistration
		if cfg.MetricsNamespace != "" {
			opts.namespace = cfg.MetricsNamespace
		}
	})
}
