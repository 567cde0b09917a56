// Package http provides ioc integration for net/http servers.
//
// Middleware attaches a container to every request context, and Handle
// resolves a controller from it before calling one of its methods.
//
// Example usage:
//
//	c := ioc.New().AddProviders(providers...).Boot()
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/users", iochttp.Handle((*UserController).List))
//
//	http.ListenAndServe(":8080", iochttp.Middleware(c)(mux))
package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/junioryono/ioc"
)

// Config holds the configuration for the container middleware.
type Config struct {
	// ErrorHandler is called when the container is closed or a middleware
	// fails. If nil, a default handler returning 500 Internal Server Error
	// is used.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// Middlewares run in order after the container is attached.
	Middlewares []func(*ioc.Container, *http.Request) error
}

// Option configures the container middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a function that runs after the container is
// attached. Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*ioc.Container, *http.Request) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig(log *zap.Logger) *Config {
	return &Config{
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Error("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
	}
}

// Middleware attaches c to each request context, where Handle and
// ioc.FromContext find it. Requests reaching a closed container are
// rejected with ioc.ErrContainerClosed.
func Middleware(c *ioc.Container, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig(c.Logger())
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c.IsClosed() {
				cfg.ErrorHandler(w, r, ioc.ErrContainerClosed)
				return
			}

			r = r.WithContext(ioc.WithContainer(r.Context(), c))

			for _, mw := range cfg.Middlewares {
				if err := mw(c, r); err != nil {
					cfg.ErrorHandler(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// Transient resolves a fresh controller for every request instead of
	// the container's shared instance.
	Transient bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(http.ResponseWriter, *http.Request, any)

	// ContainerErrorHandler is called when no usable container is attached
	// to the request.
	ContainerErrorHandler func(http.ResponseWriter, *http.Request, error)

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(http.ResponseWriter, *http.Request, error)
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithTransient resolves the controller with ioc.ResolveTransient.
func WithTransient() HandlerOption {
	return func(c *HandlerConfig) {
		c.Transient = true
	}
}

// WithPanicHandler sets the handler for panics.
func WithPanicHandler(h func(http.ResponseWriter, *http.Request, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for requests without a
// usable container.
func WithContainerErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller resolution failures.
func WithResolutionErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(w http.ResponseWriter, r *http.Request, v any) {
			requestLogger(r).Error("panic in handler", zap.Any("panic", v))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		ContainerErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			requestLogger(r).Error("failed to get container from context", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		ResolutionErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			requestLogger(r).Error("failed to resolve controller", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
	}
}

// requestLogger returns the logger of the container attached to r, or the
// global zap logger.
func requestLogger(r *http.Request) *zap.Logger {
	if c, err := ioc.FromContext(r.Context()); err == nil {
		return c.Logger()
	}
	return zap.L()
}

// Handle wraps a controller method for type-safe resolution from the
// container attached to the request context.
//
// The method signature should be: func(T, http.ResponseWriter, *http.Request)
//
// Example:
//
//	mux.HandleFunc("/users/{id}", iochttp.Handle((*UserController).GetByID))
func Handle[T any](method func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	resolve := ioc.Resolve[T]
	if cfg.Transient {
		resolve = ioc.ResolveTransient[T]
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(w, r, v)
				}
			}()
		}

		c, err := ioc.FromContext(r.Context())
		if err != nil {
			cfg.ContainerErrorHandler(w, r, err)
			return
		}

		controller, err := resolve(c)
		if err != nil {
			cfg.ResolutionErrorHandler(w, r, err)
			return
		}

		method(controller, w, r)
	}
}

// Wrap is Handle for functions that take the controller as their first
// argument.
func Wrap[T any](fn func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	return Handle(fn, opts...)
}
