// Package fiber provides ioc integration for the Fiber web framework.
//
// This package provides middleware that attaches a container to each
// request and type-safe handler wrappers for resolving controllers.
//
// Example usage:
//
//	c := ioc.New().AddProviders(providers...).Boot()
//
//	app := fiber.New()
//	app.Use(iocfiber.Middleware(c))
//
//	app.Post("/login", iocfiber.Handle((*AuthController).Login))
//	app.Get("/users/:id", iocfiber.Handle((*UserController).GetByID))
package fiber

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/junioryono/ioc"
)

// containerKey is the key used to store the container in fiber.Ctx.Locals
const containerKey = "ioc_container"

// Config holds the configuration for the container middleware.
type Config struct {
	// ErrorHandler is called when the container is closed or a middleware
	// fails. If nil, a default handler returning 500 Internal Server Error
	// is used.
	ErrorHandler func(*fiber.Ctx, error) error

	// Middlewares run in order after the container is attached.
	Middlewares []func(*ioc.Container, *fiber.Ctx) error
}

// Option configures the container middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(*fiber.Ctx, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a function that runs after the container is
// attached. Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*ioc.Container, *fiber.Ctx) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal Server Error",
	})
}

func defaultConfig(log *zap.Logger) *Config {
	return &Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Error("request rejected",
				zap.String("path", c.Path()),
				zap.String("route", c.Route().Path),
				zap.Error(err),
			)
			return internalError(c)
		},
	}
}

// Middleware stores c in fiber.Ctx.Locals and attaches it to the
// UserContext, where ioc.FromContext finds it. Requests reaching a closed
// container are rejected with ioc.ErrContainerClosed.
//
// Example:
//
//	app := fiber.New()
//	app.Use(iocfiber.Middleware(c))
func Middleware(c *ioc.Container, opts ...Option) fiber.Handler {
	cfg := defaultConfig(c.Logger())
	for _, opt := range opts {
		opt(cfg)
	}

	return func(fc *fiber.Ctx) error {
		if c.IsClosed() {
			return cfg.ErrorHandler(fc, ioc.ErrContainerClosed)
		}

		fc.SetUserContext(ioc.WithContainer(fc.UserContext(), c))
		fc.Locals(containerKey, c)

		for _, mw := range cfg.Middlewares {
			if err := mw(c, fc); err != nil {
				return cfg.ErrorHandler(fc, err)
			}
		}

		return fc.Next()
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
	PanicHandler func(*fiber.Ctx, any) error

	// ContainerErrorHandler is called when no usable container is stored
	// for the request.
	ContainerErrorHandler func(*fiber.Ctx, error) error

	// ResolutionErrorHandler is called when the controller cannot be resolved.
	ResolutionErrorHandler func(*fiber.Ctx, error) error
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
func WithPanicHandler(h func(*fiber.Ctx, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for requests without a
// usable container.
func WithContainerErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller resolution failures.
func WithResolutionErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(c *fiber.Ctx, v any) error {
			contextLogger(c).Error("panic in handler", zap.String("route", c.Route().Path), zap.Any("panic", v))
			return internalError(c)
		},
		ContainerErrorHandler: func(c *fiber.Ctx, err error) error {
			contextLogger(c).Error("failed to get container from context", zap.Error(err))
			return internalError(c)
		},
		ResolutionErrorHandler: func(c *fiber.Ctx, err error) error {
			contextLogger(c).Error("failed to resolve controller", zap.String("route", c.Route().Path), zap.Error(err))
			return internalError(c)
		},
	}
}

func contextLogger(c *fiber.Ctx) *zap.Logger {
	if container := FromContext(c); container != nil {
		return container.Logger()
	}
	return zap.L()
}

// Handle wraps a controller method for type-safe resolution from the
// container stored in fiber.Ctx.Locals.
//
// The method signature should be: func(T, *fiber.Ctx) error
//
// Example:
//
//	app.Get("/users/:id", iocfiber.Handle((*UserController).GetByID))
func Handle[T any](method func(T, *fiber.Ctx) error, opts ...HandlerOption) fiber.Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	resolve := ioc.Resolve[T]
	if cfg.Transient {
		resolve = ioc.ResolveTransient[T]
	}

	return func(c *fiber.Ctx) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		container := FromContext(c)
		if container == nil {
			return cfg.ContainerErrorHandler(c, ioc.ErrNoContainerInContext)
		}
		if container.IsClosed() {
			return cfg.ContainerErrorHandler(c, ioc.ErrContainerClosed)
		}

		controller, resolveErr := resolve(container)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}

// FromContext retrieves the container from fiber.Ctx.Locals.
// This is useful when you need to resolve services manually.
//
// Example:
//
//	c := iocfiber.FromContext(ctx)
//	userService := ioc.MustResolve[*UserService](c)
func FromContext(c *fiber.Ctx) *ioc.Container {
	container, _ := c.Locals(containerKey).(*ioc.Container)
	return container
}
