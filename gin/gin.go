// Package gin provides ioc integration for the Gin web framework.
//
// This package provides middleware that attaches a container to each
// request and type-safe handler wrappers for resolving controllers.
//
// Example usage:
//
//	c := ioc.New().AddProviders(providers...).Boot()
//
//	g := gin.New()
//	g.Use(iocgin.Middleware(c))
//
//	g.POST("/login", iocgin.Handle((*AuthController).Login))
//	g.GET("/users/:id", iocgin.Handle((*UserController).GetByID))
package gin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/junioryono/ioc"
)

// containerKey stores the container in the gin.Context keys.
const containerKey = "ioc_container"

// Config holds the configuration for the container middleware.
type Config struct {
	// ErrorHandler is called when the container is closed or a middleware
	// fails. If nil, a default handler aborting with 500 Internal Server
	// Error is used.
	ErrorHandler func(*gin.Context, error)

	// Middlewares run in order after the container is attached.
	// They can be used to initialize request context, set user claims, etc.
	Middlewares []func(*ioc.Container, *gin.Context) error
}

// Option configures the container middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(*gin.Context, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a function that runs after the container is
// attached. Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*ioc.Container, *gin.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func abortInternal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": "Internal Server Error",
	})
}

func defaultConfig(log *zap.Logger) *Config {
	return &Config{
		ErrorHandler: func(c *gin.Context, err error) {
			log.Error("request rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("route", c.FullPath()),
				zap.Error(err),
			)
			abortInternal(c)
		},
	}
}

// Middleware attaches c to each request context, where Handle and
// ioc.FromContext find it, and to the gin.Context keys under FromContext.
// Requests reaching a closed container are rejected with
// ioc.ErrContainerClosed.
//
// Example:
//
//	g := gin.New()
//	g.Use(iocgin.Middleware(c))
func Middleware(c *ioc.Container, opts ...Option) gin.HandlerFunc {
	cfg := defaultConfig(c.Logger())
	for _, opt := range opts {
		opt(cfg)
	}

	return func(gc *gin.Context) {
		if c.IsClosed() {
			cfg.ErrorHandler(gc, ioc.ErrContainerClosed)
			return
		}

		gc.Request = gc.Request.WithContext(ioc.WithContainer(gc.Request.Context(), c))
		gc.Set(containerKey, c)

		for _, mw := range cfg.Middlewares {
			if err := mw(c, gc); err != nil {
				cfg.ErrorHandler(gc, err)
				return
			}
		}

		gc.Next()
	}
}

// FromContext returns the container attached by Middleware, or nil.
func FromContext(c *gin.Context) *ioc.Container {
	v, ok := c.Get(containerKey)
	if !ok {
		return nil
	}
	container, _ := v.(*ioc.Container)
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
	PanicHandler func(*gin.Context, any)

	// ContainerErrorHandler is called when no usable container is attached
	// to the request.
	ContainerErrorHandler func(*gin.Context, error)

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(*gin.Context, error)
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
func WithPanicHandler(h func(*gin.Context, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for requests without a
// usable container.
func WithContainerErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller resolution failures.
func WithResolutionErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(c *gin.Context, r any) {
			contextLogger(c).Error("panic in handler", zap.String("route", c.FullPath()), zap.Any("panic", r))
			abortInternal(c)
		},
		ContainerErrorHandler: func(c *gin.Context, err error) {
			contextLogger(c).Error("failed to get container from context", zap.Error(err))
			abortInternal(c)
		},
		ResolutionErrorHandler: func(c *gin.Context, err error) {
			contextLogger(c).Error("failed to resolve controller", zap.String("route", c.FullPath()), zap.Error(err))
			abortInternal(c)
		},
	}
}

func contextLogger(c *gin.Context) *zap.Logger {
	if container := FromContext(c); container != nil {
		return container.Logger()
	}
	return zap.L()
}

// Handle wraps a controller method for type-safe resolution from the
// container attached to the request.
//
// The method signature should be: func(T, *gin.Context)
//
// Example:
//
//	g.GET("/users/:id", iocgin.Handle((*UserController).GetByID))
func Handle[T any](method func(T, *gin.Context), opts ...HandlerOption) gin.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	resolve := ioc.Resolve[T]
	if cfg.Transient {
		resolve = ioc.ResolveTransient[T]
	}

	return func(c *gin.Context) {
		if cfg.PanicRecovery {
			defer func() {
				if r := recover(); r != nil {
					cfg.PanicHandler(c, r)
				}
			}()
		}

		container, err := ioc.FromContext(c.Request.Context())
		if err != nil {
			cfg.ContainerErrorHandler(c, err)
			return
		}

		controller, err := resolve(container)
		if err != nil {
			cfg.ResolutionErrorHandler(c, err)
			return
		}

		method(controller, c)
	}
}
