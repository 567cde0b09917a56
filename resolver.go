package ioc

import (
	"fmt"
	"reflect"

	"github.com/junioryono/ioc/internal/cache"
)

// Resolver resolves services. *Container implements it, and every factory
// receives one bound to the resolution that invoked it.
type Resolver interface {
	// Get returns the shared instance for key, building and caching it on
	// first use.
	Get(key Key) (any, error)

	// GetTransient invokes the factory bound to key and returns a fresh
	// instance without reading or writing the cache.
	GetTransient(key Key) (any, error)

	// Container returns the container the resolver belongs to. Inside a
	// factory, resolutions through the returned container continue the
	// factory's resolution, so cycles through it are still reported.
	Container() *Container
}

// resolution is the Resolver handed to a factory. It carries the keys
// currently being built on this path and the build they belong to.
type resolution struct {
	c     *Container
	path  []Key
	build *cache.Owner
}

func (r *resolution) Get(key Key) (any, error) {
	return r.c.get(key, r)
}

func (r *resolution) GetTransient(key Key) (any, error) {
	return r.c.getTransient(key, r)
}

func (r *resolution) Container() *Container {
	return &Container{core: r.c.core, res: r}
}

// keys returns the resolution path. A nil resolution is the top level.
func (r *resolution) keys() []Key {
	if r == nil {
		return nil
	}
	return r.path
}

// owner returns the build whose factory holds r.
func (r *resolution) owner() *cache.Owner {
	if r == nil {
		return nil
	}
	return r.build
}

// Bind registers a factory for T, replacing any earlier factory for T.
//
// Example:
//
//	ioc.Bind(c, func(r ioc.Resolver) (*UserService, error) {
//	    repo, err := ioc.Resolve[*UserRepository](r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewUserService(repo), nil
//	})
func Bind[T any](c *Container, factory func(r Resolver) (T, error)) {
	key := KeyOf[T]()
	if factory == nil {
		panic(RegistrationError{Key: key, Operation: "bind", Cause: ErrNilFactory})
	}

	c.BindKey(key, func(r Resolver) (any, error) {
		return factory(r)
	})
}

// Singleton seeds the cache with instance for T. A factory bound to T later
// is never invoked through Resolve.
func Singleton[T any](c *Container, instance T) {
	c.SingletonKey(KeyOf[T](), instance)
}

// SingletonFactory invokes factory now and seeds the cache with its result.
func SingletonFactory[T any](c *Container, factory func(r Resolver) (T, error)) error {
	key := KeyOf[T]()
	if factory == nil {
		return RegistrationError{Key: key, Operation: "singleton-factory", Cause: ErrNilFactory}
	}

	return c.SingletonFactoryKey(key, func(r Resolver) (any, error) {
		return factory(r)
	})
}

// Has reports whether T has a factory or a cached instance.
func Has[T any](c *Container) bool {
	return c.Bound(KeyOf[T]())
}

// Resolve resolves the shared instance of T.
//
// Example:
//
//	logger, err := ioc.Resolve[*Logger](c)
//	if err != nil {
//	    // Handle error
//	}
func Resolve[T any](r Resolver) (T, error) {
	var zero T

	if r == nil {
		return zero, ErrNilResolver
	}

	key := KeyOf[T]()
	service, err := r.Get(key)
	if err != nil {
		return zero, err
	}

	return assertType[T](key, service)
}

// MustResolve resolves the shared instance of T. It panics with the
// resolution error if T cannot be resolved, which is the right behavior
// where a missing service is fatal.
//
// Example:
//
//	// Panics if logger cannot be resolved
//	logger := ioc.MustResolve[*Logger](c)
func MustResolve[T any](r Resolver) T {
	service, err := Resolve[T](r)
	if err != nil {
		panic(err)
	}

	return service
}

// ResolveTransient builds a fresh T through its factory, bypassing the
// cache.
func ResolveTransient[T any](r Resolver) (T, error) {
	var zero T

	if r == nil {
		return zero, ErrNilResolver
	}

	key := KeyOf[T]()
	service, err := r.GetTransient(key)
	if err != nil {
		return zero, err
	}

	return assertType[T](key, service)
}

// MustResolveTransient is ResolveTransient that panics on failure.
func MustResolveTransient[T any](r Resolver) T {
	service, err := ResolveTransient[T](r)
	if err != nil {
		panic(err)
	}

	return service
}

func assertType[T any](key Key, service any) (T, error) {
	result, ok := service.(T)
	if !ok {
		var zero T
		return zero, TypeMismatchError{
			Expected: key.t,
			Actual:   reflect.TypeOf(service),
			Context:  fmt.Sprintf("type assertion for %s", key),
		}
	}

	return result, nil
}
