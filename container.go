package ioc

import (
	"context"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/junioryono/ioc/internal/cache"
	"github.com/junioryono/ioc/internal/graph"
	"github.com/junioryono/ioc/internal/lifecycle"
	"github.com/junioryono/ioc/internal/registry"
)

// Factory builds one instance of a service. The Resolver it receives
// resolves the factory's own dependencies and must be used for them so that
// cycles are detected.
type Factory func(r Resolver) (any, error)

// Container maps service types to factories and shared instances, and runs
// the register/boot lifecycle of its service providers.
//
// A Container is safe for concurrent use. Every bound service is a lazily
// built singleton: the first resolution invokes its factory and caches the
// result, and every later resolution returns the cached instance.
type Container struct {
	*core

	// res is set on containers returned by Resolver.Container inside a
	// factory. Resolutions through them continue res.
	res *resolution
}

// core is the state shared by a container and its resolution views.
type core struct {
	id       string
	log      *zap.Logger
	metrics  *metrics
	maxDepth int
	selfReg  bool

	registry  *registry.Registry[Factory]
	cache     *cache.Cache
	lifecycle *lifecycle.Manager[ServiceProvider]
	graph     *graph.DependencyGraph

	// deferred maps a service type to the provider that declares it
	deferred   map[reflect.Type]*deferredEntry
	deferredMu sync.Mutex

	// closeMu orders Close against instances entering the cache
	closeMu sync.RWMutex
	closed  atomic.Bool
}

// New creates an empty container.
func New(opts ...Option) *Container {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt.apply(o)
		}
	}

	id := uuid.NewString()
	log := o.logger.With(zap.String("container", id))
	return &Container{core: &core{
		id:        id,
		log:       log,
		metrics:   newMetrics(o.registerer, o.namespace, log),
		maxDepth:  o.maxDepth,
		selfReg:   o.selfRegistration,
		registry:  registry.New[Factory](),
		cache:     cache.New(),
		lifecycle: lifecycle.New[ServiceProvider](),
		graph:     graph.NewDependencyGraph(),
		deferred:  make(map[reflect.Type]*deferredEntry),
	}}
}

// ID returns the unique identifier generated for this container.
func (c *Container) ID() string {
	return c.id
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.log
}

// Container returns c. It makes *Container a Resolver.
func (c *Container) Container() *Container {
	return c
}

// BindKey registers factory for key, replacing any earlier factory.
// An instance already cached for key still wins over the new factory.
//
// BindKey panics with a RegistrationError on a zero key, a nil factory
// or a closed container.
func (c *Container) BindKey(key Key, factory Factory) {
	if err := c.checkRegistration(key); err != nil {
		panic(RegistrationError{Key: key, Operation: "bind", Cause: err})
	}
	if factory == nil {
		panic(RegistrationError{Key: key, Operation: "bind", Cause: ErrNilFactory})
	}

	replaced := c.registry.Register(key.t, factory)

	c.log.Debug("bound service",
		zap.Stringer("service", key),
		zap.Bool("replaced", replaced),
	)
}

// SingletonKey seeds the cache with instance for key. The first instance
// cached for a key wins; later seeds are ignored.
//
// SingletonKey panics with a RegistrationError on a zero key, a closed
// container, or an instance that is not assignable to the key's type.
func (c *Container) SingletonKey(key Key, instance any) {
	if err := c.checkRegistration(key); err != nil {
		panic(RegistrationError{Key: key, Operation: "singleton", Cause: err})
	}
	if err := checkAssignable(key, instance, "singleton"); err != nil {
		panic(RegistrationError{Key: key, Operation: "singleton", Cause: err})
	}

	_, stored, err := c.store(key, instance)
	if err != nil {
		panic(RegistrationError{Key: key, Operation: "singleton", Cause: err})
	}
	if !stored {
		c.log.Debug("singleton already cached, keeping first instance", zap.Stringer("service", key))
		return
	}

	c.log.Debug("seeded singleton", zap.Stringer("service", key))
}

// SingletonFactoryKey invokes factory immediately and seeds the cache with
// its result. The factory is not kept: the key has no factory afterwards
// unless one is bound separately.
func (c *Container) SingletonFactoryKey(key Key, factory Factory) error {
	if err := c.checkRegistration(key); err != nil {
		return RegistrationError{Key: key, Operation: "singleton-factory", Cause: err}
	}
	if factory == nil {
		return RegistrationError{Key: key, Operation: "singleton-factory", Cause: ErrNilFactory}
	}

	owner := c.cache.Begin(key.t, c.res.owner())
	defer c.cache.End(owner)

	instance, err := c.invoke(key, factory, c.res, owner)
	if err != nil {
		return err
	}

	_, stored, err := c.store(key, instance)
	if err != nil {
		return err
	}
	if !stored {
		c.log.Debug("singleton already cached, keeping first instance", zap.Stringer("service", key))
	}
	return nil
}

// Bound reports whether key has a factory or a cached instance.
func (c *Container) Bound(key Key) bool {
	return c.registry.Has(key.t) || c.cache.Has(key.t)
}

// IsResolved reports whether an instance is cached for key.
func (c *Container) IsResolved(key Key) bool {
	return c.cache.Has(key.t)
}

// Keys returns every bound or cached key, sorted with Key.Compare.
func (c *Container) Keys() []Key {
	seen := make(map[reflect.Type]struct{})
	var keys []Key
	for _, types := range [][]reflect.Type{c.registry.Keys(), c.cache.Keys()} {
		for _, t := range types {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			keys = append(keys, Key{t: t})
		}
	}

	slices.SortFunc(keys, Key.Compare)
	return keys
}

// IsClosed reports whether Close has been called.
func (c *Container) IsClosed() bool {
	return c.closed.Load()
}

// Close tears the container down. Cached instances implementing Disposable
// or DisposableWithContext are closed in reverse order of caching, then the
// cache is dropped. Close is idempotent.
func (c *Container) Close() error {
	return c.CloseContext(context.Background())
}

// CloseContext is Close with a context passed to DisposableWithContext
// instances.
func (c *Container) CloseContext(ctx context.Context) error {
	c.closeMu.Lock()
	if !c.closed.CompareAndSwap(false, true) {
		c.closeMu.Unlock()
		return nil
	}

	var disposables []any
	c.cache.Each(func(_ reflect.Type, instance any) {
		disposables = append(disposables, instance)
	})
	c.closeMu.Unlock()

	var errs []error
	for i := len(disposables) - 1; i >= 0; i-- {
		if err := dispose(ctx, disposables[i]); err != nil {
			errs = append(errs, err)
		}
	}

	c.cache.Clear()
	c.graph.Clear()

	if len(errs) > 0 {
		c.log.Error("container closed with disposal errors", zap.Errors("errors", errs))
		return DisposalError{Errors: errs}
	}

	c.log.Debug("container closed")
	return nil
}

// store caches instance for key unless an instance is already cached. If
// the container was closed while the instance was being built, the
// instance is disposed instead and ErrContainerClosed is returned.
func (c *Container) store(key Key, instance any) (actual any, stored bool, err error) {
	c.closeMu.RLock()
	closed := c.closed.Load()
	if !closed {
		actual, stored = c.cache.PutIfAbsent(key.t, instance)
	}
	c.closeMu.RUnlock()

	if closed {
		if err := dispose(context.Background(), instance); err != nil {
			c.log.Warn("dispose after close failed", zap.Stringer("service", key), zap.Error(err))
		}
		return nil, false, ErrContainerClosed
	}
	return actual, stored, nil
}

func (c *Container) checkRegistration(key Key) error {
	if key.IsZero() {
		return ErrInvalidKey
	}
	if c.closed.Load() {
		return ErrContainerClosed
	}
	return nil
}

// checkAssignable verifies instance can be returned for key.
func checkAssignable(key Key, instance any, where string) error {
	if instance == nil {
		return ErrNilInstance
	}

	actual := reflect.TypeOf(instance)
	if !actual.AssignableTo(key.t) {
		return TypeMismatchError{
			Expected: key.t,
			Actual:   actual,
			Context:  where,
		}
	}
	return nil
}
