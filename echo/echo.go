// Package echo provides ioc integration for the Echo web framework.
//
// This package provides middleware that attaches a container to each
// request and type-safe handler wrappers for resolving controllers.
//
// Example usage:
//
//	c := ioc.New().AddProviders(providers...).Boot()
//
//	e := echo.New()
//	e.Use(iocecho.Middleware(c))
//
//	e.POST("/login", iocecho.Handle((*AuthController).Login))
//	e.GET("/users/:id", iocecho.Handle((*UserController).GetByID))
package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/junioryono/ioc"
)

// containerKey stores the container in echo.Context alongside the request
// context.
const containerKey = "ioc_container"

// Config holds the configuration for the container middleware.
type Config struct {
	// ErrorHandler is called when the container is closed or a middleware
	// fails. If nil, the error is returned (Echo's default error handling).
	ErrorHandler func(echo.Context, error) error

	// Middlewares run in order after the container is attached.
	Middlewares []func(*ioc.Container, echo.Context) error
}

// Option configures the container middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(echo.Context, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a function that runs after the container is
// attached. Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*ioc.Container, echo.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig(log *zap.Logger) *Config {
	return &Config{
		ErrorHandler: func(c echo.Context, err error) error {
			log.Error("request rejected",
				zap.String("path", c.Request().URL.Path),
				zap.String("route", c.Path()),
				zap.Error(err),
			)
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
	}
}

// Middleware attaches c to each request context, where Handle and
// ioc.FromContext find it, and to the echo.Context under FromContext.
// Requests reaching a closed container are rejected with
// ioc.ErrContainerClosed.
//
// Example:
//
//	e := echo.New()
//	e.Use(iocecho.Middleware(c))
func Middleware(c *ioc.Container, opts ...Option) echo.MiddlewareFunc {
	cfg := defaultConfig(c.Logger())
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			if c.IsClosed() {
				return cfg.ErrorHandler(ec, ioc.ErrContainerClosed)
			}

			ec.SetRequest(ec.Request().WithContext(ioc.WithContainer(ec.Request().Context(), c)))
			ec.Set(containerKey, c)

			for _, mw := range cfg.Middlewares {
				if err := mw(c, ec); err != nil {
					return cfg.ErrorHandler(ec, err)
				}
			}

			return next(ec)
		}
	}
}

// FromContext returns the container attached by Middleware, or nil.
func FromContext(c echo.Context) *ioc.Container {
	container, _ := c.Get(containerKey).(*ioc.Container)
	return container
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// Transient resolves a fresh controller for every request instead of
	// the container's shared instance.
	Transient bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(echo.Context, any) error

	// ContainerErrorHandler is called when no usable container is attached
	// to the request.
	ContainerErrorHandler func(echo.Context, error) error

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(echo.Context, error) error
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
func WithPanicHandler(h func(echo.Context, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for requests without a
// usable container.
func WithContainerErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller resolution failures.
func WithResolutionErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(c echo.Context, v any) error {
			contextLogger(c).Error("panic in handler", zap.String("route", c.Path()), zap.Any("panic", v))
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
		ContainerErrorHandler: func(c echo.Context, err error) error {
			contextLogger(c).Error("failed to get container from context", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
		ResolutionErrorHandler: func(c echo.Context, err error) error {
			contextLogger(c).Error("failed to resolve controller", zap.String("route", c.Path()), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
	}
}

func contextLogger(c echo.Context) *zap.Logger {
	if container := FromContext(c); container != nil {
		return container.Logger()
	}
	return zap.L()
}

// Handle wraps a controller method for type-safe resolution from the
// container attached to the request.
//
// The method signature should be: func(T, echo.Context) error
//
// Example:
//
//	e.GET("/users/:id", iocecho.Handle((*UserController).GetByID))
func Handle[T any](method func(T, echo.Context) error, opts ...HandlerOption) echo.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	resolve := ioc.Resolve[T]
	if cfg.Transient {
		resolve = ioc.ResolveTransient[T]
	}

	return func(c echo.Context) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		container, containerErr := ioc.FromContext(c.Request().Context())
		if containerErr != nil {
			return cfg.ContainerErrorHandler(c, containerErr)
		}

		controller, resolveErr := resolve(container)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}
