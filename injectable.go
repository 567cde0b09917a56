package ioc

import (
	"reflect"

	"go.uber.org/zap"
)

// Injectable is implemented by types that know how to construct themselves.
// When a type with no binding is resolved, the container calls Inject on the
// zero value of the type and binds it as the type's factory. The method
// must therefore not read its receiver; for pointer types the receiver is
// nil.
//
// Example:
//
//	type UserService struct {
//	    repo *UserRepository
//	}
//
//	func (*UserService) Inject(r ioc.Resolver) (any, error) {
//	    repo, err := ioc.Resolve[*UserRepository](r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &UserService{repo: repo}, nil
//	}
type Injectable interface {
	Inject(r Resolver) (any, error)
}

// SelfRegistrar is implemented by types that bind their own default
// factory, or seed their own singleton, when they are resolved without a
// binding. It takes precedence over Injectable. Like Inject, RegisterSelf
// is called on the zero value.
type SelfRegistrar interface {
	RegisterSelf(c *Container)
}

// selfRegister asks the type behind key to register itself. It reports
// whether key is bound afterwards.
func (c *Container) selfRegister(key Key) bool {
	zero := reflect.Zero(key.t).Interface()
	if zero == nil {
		// Interface keys have no concrete type to ask.
		return false
	}

	switch capability := zero.(type) {
	case SelfRegistrar:
		capability.RegisterSelf(c)
	case Injectable:
		c.BindKey(key, capability.Inject)
	default:
		return false
	}

	bound := c.Bound(key)
	c.log.Debug("self-registration fallback",
		zap.Stringer("service", key),
		zap.Bool("bound", bound),
	)
	return bound
}

// fallback tries to bind key after the registry came up empty: first from
// a deferred provider declaring it, then by self-registration.
func (c *Container) fallback(key Key) bool {
	if c.loadDeferred(key) && c.Bound(key) {
		return true
	}

	if !c.selfReg {
		return false
	}

	return c.selfRegister(key)
}
