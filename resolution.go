package ioc

import (
	"errors"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/junioryono/ioc/internal/cache"
)

// errNoFactory signals that no factory is bound. It never leaves the package.
var errNoFactory = errors.New("no factory bound")

// Get resolves the shared instance for key:
//
//  1. a cached instance is returned as is, even if a factory is also bound;
//  2. otherwise the bound factory builds the instance, which is cached;
//  3. otherwise a deferred provider declaring key is loaded, or the type
//     registers itself through SelfRegistrar or Injectable, and steps 1-2
//     are retried once;
//  4. otherwise a ResolutionError is returned.
func (c *Container) Get(key Key) (any, error) {
	return c.get(key, c.res)
}

// GetTransient invokes the factory bound to key and returns its result
// without caching it. The fallback of Get applies when no factory is bound.
// A cached instance without a factory cannot be rebuilt and fails.
func (c *Container) GetTransient(key Key) (any, error) {
	return c.getTransient(key, c.res)
}

func (c *Container) get(key Key, from *resolution) (any, error) {
	path := from.keys()
	if err := c.checkResolution(key, path); err != nil {
		c.metrics.resolved(outcomeError)
		return nil, err
	}
	c.recordEdge(key, path)

	if instance, ok := c.cache.Get(key.t); ok {
		c.metrics.resolved(outcomeCache)
		return instance, nil
	}

	outcome := outcomeBuild
	instance, err := c.build(key, from)
	if errors.Is(err, errNoFactory) && c.fallback(key) {
		outcome = outcomeFallback
		if cached, ok := c.cache.Get(key.t); ok {
			instance, err = cached, nil
		} else {
			instance, err = c.build(key, from)
		}
	}

	if err != nil {
		c.metrics.resolved(outcomeError)
		if errors.Is(err, errNoFactory) {
			return nil, c.notFound(key)
		}
		return nil, err
	}

	c.metrics.resolved(outcome)
	return instance, nil
}

func (c *Container) getTransient(key Key, from *resolution) (any, error) {
	path := from.keys()
	if err := c.checkResolution(key, path); err != nil {
		c.metrics.resolved(outcomeError)
		return nil, err
	}
	c.recordEdge(key, path)

	entry, ok := c.registry.Lookup(key.t)
	if !ok && c.fallback(key) {
		entry, ok = c.registry.Lookup(key.t)
	}
	if !ok {
		c.metrics.resolved(outcomeError)
		return nil, c.notFound(key)
	}

	owner := c.cache.Begin(key.t, from.owner())
	instance, err := c.invoke(key, entry.Factory, from, owner)
	c.cache.End(owner)
	if err != nil {
		c.metrics.resolved(outcomeError)
		return nil, err
	}

	c.metrics.resolved(outcomeTransient)
	return instance, nil
}

// checkResolution rejects resolutions that cannot proceed.
func (c *Container) checkResolution(key Key, path []Key) error {
	if key.IsZero() {
		return ErrInvalidKey
	}
	if c.closed.Load() {
		return ErrContainerClosed
	}

	for i, k := range path {
		if k == key {
			cycle := make([]Key, 0, len(path)-i+1)
			cycle = append(cycle, path[i:]...)
			cycle = append(cycle, key)
			return CircularDependencyError{Path: cycle}
		}
	}

	if len(path) >= c.maxDepth {
		return FactoryError{Key: key, Cause: ErrMaxDepthExceeded}
	}
	return nil
}

// build constructs and caches the instance for key through its build cell.
// Concurrent first resolutions of one key run the factory once; the others
// wait on the cell and receive the cached winner. A wait that could never
// end because of a cycle across goroutines fails with a
// CircularDependencyError.
func (c *Container) build(key Key, from *resolution) (any, error) {
	entry, ok := c.registry.Lookup(key.t)
	if !ok {
		return nil, errNoFactory
	}

	owner := c.cache.Begin(key.t, from.owner())
	defer c.cache.End(owner)

	cell := c.cache.Cell(key.t)
	if err := cell.Acquire(owner); err != nil {
		var cycle cache.CycleError
		if errors.As(err, &cycle) {
			c.log.Debug("build cycle across resolutions", zap.Stringer("service", key))
			return nil, CircularDependencyError{Path: toKeys(cycle.Types)}
		}
		return nil, err
	}
	defer cell.Release()

	if err := cell.Err(entry.Generation); err != nil {
		return nil, err
	}

	if instance, ok := c.cache.Get(key.t); ok {
		return instance, nil
	}

	instance, err := c.invoke(key, entry.Factory, from, owner)
	if err != nil {
		// Only this factory's own panic poisons the key, not one wrapped
		// from a dependency.
		if _, ok := err.(FactoryPanicError); ok {
			cell.Fail(entry.Generation, err)
		}
		return nil, err
	}

	actual, stored, err := c.store(key, instance)
	if err != nil {
		c.log.Debug("container closed during build, disposed instance", zap.Stringer("service", key))
		return nil, err
	}
	if !stored {
		c.log.Debug("singleton seeded during build, discarding built instance", zap.Stringer("service", key))
	}

	c.graph.AddNode(key.t)
	c.log.Debug("built service", zap.Stringer("service", key), zap.Int("depth", len(from.keys())))
	return actual, nil
}

// invoke runs factory for key as the build owner, with a resolver extended
// by key. Panics are recovered: a panic carrying a container error,
// typically from MustResolve inside the factory, is reported as a
// FactoryError; any other panic becomes a FactoryPanicError.
func (c *Container) invoke(key Key, factory Factory, from *resolution, owner *cache.Owner) (instance any, err error) {
	path := from.keys()
	child := &resolution{c: c, path: append(path[:len(path):len(path)], key), build: owner}

	start := time.Now()
	defer func() {
		c.metrics.factoryInvoked(time.Since(start))

		if p := recover(); p != nil {
			instance = nil
			if pe, ok := p.(error); ok && isResolutionFailure(pe) {
				err = FactoryError{Key: key, Cause: pe}
				return
			}

			err = FactoryPanicError{Key: key, Panic: p, Stack: debug.Stack()}
			c.log.Error("factory panicked",
				zap.Stringer("service", key),
				zap.Any("panic", p),
			)
		}
	}()

	instance, err = factory(child)
	if err != nil {
		return nil, FactoryError{Key: key, Cause: err}
	}

	if err := checkAssignable(key, instance, "factory result"); err != nil {
		return nil, FactoryError{Key: key, Cause: err}
	}

	return instance, nil
}

// notFound builds the ResolutionError for an unresolvable key.
func (c *Container) notFound(key Key) error {
	c.log.Debug("service not found", zap.Stringer("service", key))
	return ResolutionError{
		Key:       key,
		Cause:     ErrServiceNotFound,
		Available: c.Keys(),
	}
}
