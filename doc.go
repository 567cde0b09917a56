// Package ioc provides a runtime service container for Go applications.
//
// A Container maps service types to factories and to shared instances, and
// resolves dependency graphs on demand. Every bound service is a lazily
// built singleton: its factory runs on first resolution and the result is
// reused for the lifetime of the container.
//
// # Basic Usage
//
// Bind factories, then resolve:
//
//	c := ioc.New()
//	defer c.Close()
//
//	ioc.Bind(c, func(r ioc.Resolver) (*Repository, error) {
//	    return &Repository{data: "value"}, nil
//	})
//	ioc.Bind(c, func(r ioc.Resolver) (*Service, error) {
//	    repo, err := ioc.Resolve[*Repository](r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &Service{repo: repo}, nil
//	})
//
//	svc, err := ioc.Resolve[*Service](c)
//
// A factory must resolve its dependencies through the Resolver it receives.
// That resolver carries the path being built, which is how cycles are
// detected.
//
// # Resolution Order
//
// Resolving a type:
//
//  1. returns the cached instance, if any, even when a factory is bound;
//  2. otherwise invokes the bound factory and caches the result;
//  3. otherwise loads a DeferredProvider declaring the type, or lets the
//     type register itself through SelfRegistrar or Injectable, and retries
//     once;
//  4. otherwise fails with a ResolutionError.
//
// Seed an instance with Singleton, or build one immediately with
// SingletonFactory. ResolveTransient invokes the factory and never touches
// the cache.
//
// # Service Providers
//
// Providers group bindings with startup logic. Boot runs every provider's
// Register, then every provider's Boot, each in insertion order:
//
//	c := ioc.New().
//	    WithProvider(&DatabaseProvider{}).
//	    WithProvider(&RepositoryProvider{}).
//	    AddProviderIf(ioc.EnvEnabled("ENABLE_LOGGING"), &LoggingProvider{}).
//	    Boot()
//
// Boot is idempotent. Providers added after Boot are registered and booted
// immediately.
//
// # Thread Safety
//
// A Container is safe for concurrent use. Concurrent first resolutions of a
// type run its factory once, and every caller receives the same instance.
// A cycle split across goroutines, where each holds one side while waiting
// for the other, fails with a CircularDependencyError instead of blocking.
// An instance whose factory returns after Close is disposed, and its
// resolution fails with ErrContainerClosed.
//
// # Error Handling
//
// Errors are typed values that work with errors.Is and errors.As:
//   - ResolutionError: no binding and no fallback for a type
//   - CircularDependencyError: a type depends on itself
//   - FactoryError: a factory failed
//   - FactoryPanicError: a factory panicked; the type stays failed until rebound
//   - TypeMismatchError: a factory or seed produced the wrong type
//   - RegistrationError: Bind or Singleton was misused
//
// MustResolve panics with these errors where a missing service is fatal.
package ioc
