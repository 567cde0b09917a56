package ioc

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/junioryono/ioc/internal/lifecycle"
)

// ServiceProvider groups related bindings and the startup logic that uses
// them.
//
// Register declares factories and singletons. Boot runs after every
// provider's Register has run, so any binding of any provider may be
// resolved from Boot.
//
// Example:
//
//	type DatabaseProvider struct {
//	    ioc.BaseProvider
//	}
//
//	func (DatabaseProvider) Register(c *ioc.Container) {
//	    ioc.Bind(c, func(r ioc.Resolver) (*sql.DB, error) {
//	        return sql.Open("postgres", os.Getenv("DATABASE_URL"))
//	    })
//	}
type ServiceProvider interface {
	Register(c *Container)
	Boot(c *Container)
}

// DeferredProvider is a ServiceProvider that is not registered by
// AddProvider. It is registered, and booted if the container already has
// been, the first time one of the keys it provides is resolved without a
// binding. Register must not resolve those keys.
type DeferredProvider interface {
	ServiceProvider
	Provides() []Key
}

// BaseProvider gives providers a no-op Boot. Embed it when a provider only
// registers bindings.
type BaseProvider struct{}

// Boot does nothing.
func (BaseProvider) Boot(*Container) {}

// ProviderFuncs adapts a pair of functions to ServiceProvider. Nil
// functions are skipped.
type ProviderFuncs struct {
	RegisterFunc func(c *Container)
	BootFunc     func(c *Container)
}

// Register calls RegisterFunc.
func (p ProviderFuncs) Register(c *Container) {
	if p.RegisterFunc != nil {
		p.RegisterFunc(c)
	}
}

// Boot calls BootFunc.
func (p ProviderFuncs) Boot(c *Container) {
	if p.BootFunc != nil {
		p.BootFunc(c)
	}
}

var (
	_ ServiceProvider = ProviderFuncs{}
	_ ServiceProvider = (*ProviderFuncs)(nil)
)

// deferredEntry loads its provider once, however many keys point at it.
type deferredEntry struct {
	provider DeferredProvider
	once     sync.Once
}

// AddProvider appends p to the provider list.
//
// Before Boot, p waits for the register pass. While Boot runs, the
// running pass picks p up. After Boot, p is registered and booted before
// AddProvider returns. A DeferredProvider with keys is held back until one
// of its keys is resolved. A nil provider is ignored.
func (c *Container) AddProvider(p ServiceProvider) *Container {
	if p == nil {
		c.log.Warn("ignoring nil provider")
		return c
	}

	if dp, ok := p.(DeferredProvider); ok {
		if keys := dp.Provides(); len(keys) > 0 {
			c.addDeferred(dp, keys)
			return c
		}
	}

	c.log.Debug("added provider",
		zap.String("provider", providerName(p)),
		zap.Stringer("state", c.lifecycle.State()),
	)
	c.lifecycle.Add(p, c.providerHooks())
	return c
}

// AddProviders appends every provider in order.
func (c *Container) AddProviders(providers ...ServiceProvider) *Container {
	for _, p := range providers {
		c.AddProvider(p)
	}
	return c
}

// WithProvider is AddProvider for builder-style construction:
//
//	c := ioc.New().
//	    WithProvider(&DatabaseProvider{}).
//	    WithProvider(&RepositoryProvider{}).
//	    Boot()
func (c *Container) WithProvider(p ServiceProvider) *Container {
	return c.AddProvider(p)
}

// AddProviderIf adds p only when cond holds. It pairs with EnvEnabled:
//
//	c.AddProviderIf(ioc.EnvEnabled("ENABLE_LOGGING"), &LoggingProvider{})
func (c *Container) AddProviderIf(cond bool, p ServiceProvider) *Container {
	if !cond {
		c.log.Debug("skipped conditional provider", zap.String("provider", providerName(p)))
		return c
	}
	return c.AddProvider(p)
}

// Boot runs Register on every provider in insertion order, then Boot on
// every provider in insertion order, and returns c.
//
// Boot is idempotent: once booting has started, later calls return
// immediately. A panic in a provider callback propagates and leaves the
// container in the Failed state.
func (c *Container) Boot() *Container {
	if c.closed.Load() {
		c.log.Warn("boot called on closed container")
		return c
	}

	start := time.Now()
	if !c.lifecycle.Run(c.providerHooks()) {
		c.log.Debug("boot skipped", zap.Stringer("state", c.lifecycle.State()))
		return c
	}

	c.log.Info("container booted",
		zap.Int("providers", c.lifecycle.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return c
}

// Booted reports whether Boot has completed.
func (c *Container) Booted() bool {
	return c.lifecycle.State() == lifecycle.Booted
}

// State returns the provider lifecycle state.
func (c *Container) State() lifecycle.State {
	return c.lifecycle.State()
}

// Providers returns the providers in insertion order. Deferred providers
// appear once they have been loaded.
func (c *Container) Providers() []ServiceProvider {
	return c.lifecycle.Providers()
}

func (c *Container) addDeferred(p DeferredProvider, keys []Key) {
	e := &deferredEntry{provider: p}

	c.deferredMu.Lock()
	for _, key := range keys {
		if key.IsZero() {
			continue
		}
		c.deferred[key.t] = e
	}
	c.deferredMu.Unlock()

	c.log.Debug("added deferred provider",
		zap.String("provider", providerName(p)),
		zap.Stringers("provides", keys),
	)
}

// loadDeferred registers the deferred provider declaring key, if any. It
// reports whether such a provider exists. Concurrent callers wait for the
// first to finish loading.
func (c *Container) loadDeferred(key Key) bool {
	c.deferredMu.Lock()
	e, ok := c.deferred[key.t]
	c.deferredMu.Unlock()
	if !ok {
		return false
	}

	e.once.Do(func() {
		hooks := c.providerHooks()
		c.log.Debug("loading deferred provider",
			zap.String("provider", providerName(e.provider)),
			zap.Stringer("service", key),
		)

		hooks.Register(e.provider)
		c.lifecycle.AddRegistered(e.provider, hooks)
	})
	return true
}

// providerHooks wraps provider callbacks with logging and phase metrics.
func (c *Container) providerHooks() lifecycle.Hooks[ServiceProvider] {
	return lifecycle.Hooks[ServiceProvider]{
		Register: func(p ServiceProvider) {
			c.runPhase(phaseRegister, p, p.Register)
		},
		Boot: func(p ServiceProvider) {
			c.runPhase(phaseBoot, p, p.Boot)
		},
	}
}

func (c *Container) runPhase(phase string, p ServiceProvider, fn func(*Container)) {
	name := providerName(p)
	start := time.Now()

	defer func() {
		c.metrics.phase(phase, time.Since(start))

		if r := recover(); r != nil {
			c.log.Error("provider panicked",
				zap.String("provider", name),
				zap.String("phase", phase),
				zap.Any("panic", r),
			)
			panic(r)
		}
	}()

	fn(c)
	c.log.Debug("provider phase done",
		zap.String("provider", name),
		zap.String("phase", phase),
	)
}

func providerName(p ServiceProvider) string {
	if s, ok := p.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", p)
}
