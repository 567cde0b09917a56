// Package digbridge connects a container to a go.uber.org/dig container,
// so services built by either side can be resolved from the other.
package digbridge

import (
	"errors"
	"reflect"
	"sync"

	"go.uber.org/dig"

	"github.com/junioryono/ioc"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

var (
	// ErrNilDigContainer is returned or panicked when a bridge is given a
	// nil dig container.
	ErrNilDigContainer = errors.New("dig container cannot be nil")

	// ErrRoundTrip is returned or panicked when a type would be both
	// imported from and exported to the same dig container by the same
	// container. Resolving it would never finish: dig runs exported
	// providers outside the container's resolution, so the cycle cannot be
	// detected there.
	ErrRoundTrip = errors.New("type is both imported from and exported to this dig container")
)

type direction int

const (
	imported direction = iota + 1
	exported
)

type bridgeKey struct {
	dig       *dig.Container
	container string
	key       ioc.Key
}

// bridged records which way each type crosses each bridge.
var bridged sync.Map // bridgeKey -> direction

// claim records that key crosses from one side to the other in direction
// d. It fails if key already crosses the same bridge the other way.
func claim(c *ioc.Container, dc *dig.Container, key ioc.Key, d direction) error {
	prev, loaded := bridged.LoadOrStore(bridgeKey{dig: dc, container: c.ID(), key: key}, d)
	if loaded && prev.(direction) != d {
		return ErrRoundTrip
	}
	return nil
}

// Import binds T in c to a factory that resolves T from dc. dig caches the
// value, and so does c after the first resolution.
func Import[T any](c *ioc.Container, dc *dig.Container) {
	ImportKey(c, dc, ioc.KeyOf[T]())
}

// ImportKey is the untyped form of Import.
func ImportKey(c *ioc.Container, dc *dig.Container, key ioc.Key) {
	if dc == nil {
		panic(ioc.RegistrationError{Key: key, Operation: "import", Cause: ErrNilDigContainer})
	}
	if err := claim(c, dc, key, imported); err != nil {
		panic(ioc.RegistrationError{Key: key, Operation: "import", Cause: err})
	}

	c.BindKey(key, func(ioc.Resolver) (any, error) {
		return invoke(dc, key.Type())
	})
}

// invoke extracts one value of type t from dc.
func invoke(dc *dig.Container, t reflect.Type) (any, error) {
	var result any

	fnType := reflect.FuncOf([]reflect.Type{t}, []reflect.Type{errorType}, false)
	fn := reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		result = args[0].Interface()
		return []reflect.Value{reflect.Zero(errorType)}
	})

	if err := dc.Invoke(fn.Interface()); err != nil {
		return nil, dig.RootCause(err)
	}
	return result, nil
}

// Export provides T to dc from c. dig calls the provider at most once, so
// dig consumers share the instance c caches. T must not also be imported
// into c from dc.
func Export[T any](dc *dig.Container, c *ioc.Container, opts ...dig.ProvideOption) error {
	if dc == nil {
		return ErrNilDigContainer
	}
	if err := claim(c, dc, ioc.KeyOf[T](), exported); err != nil {
		return err
	}

	return dc.Provide(func() (T, error) {
		return ioc.Resolve[T](c)
	}, opts...)
}

// Binding connects one type between the two containers.
type Binding func(c *ioc.Container, dc *dig.Container) error

// From returns a Binding that imports T from dig.
func From[T any]() Binding {
	return func(c *ioc.Container, dc *dig.Container) error {
		Import[T](c, dc)
		return nil
	}
}

// To returns a Binding that exports T to dig.
func To[T any](opts ...dig.ProvideOption) Binding {
	return func(c *ioc.Container, dc *dig.Container) error {
		if err := Export[T](dc, c, opts...); err != nil {
			return ioc.RegistrationError{Key: ioc.KeyOf[T](), Operation: "export", Cause: err}
		}
		return nil
	}
}

// Provider applies bindings during the register phase. A failing binding
// panics with its error, which leaves the container's lifecycle failed.
//
// Example:
//
//	dc := dig.New()
//	dc.Provide(NewLegacyDatabase)
//
//	c := ioc.New().AddProvider(digbridge.Provider(dc,
//	    digbridge.From[*LegacyDatabase](),
//	    digbridge.To[*UserService](),
//	)).Boot()
func Provider(dc *dig.Container, bindings ...Binding) ioc.ServiceProvider {
	return &provider{dig: dc, bindings: bindings}
}

type provider struct {
	ioc.BaseProvider
	dig      *dig.Container
	bindings []Binding
}

func (p *provider) Register(c *ioc.Container) {
	for _, bind := range p.bindings {
		if err := bind(c, p.dig); err != nil {
			panic(err)
		}
	}
}

// String names the provider in container logs.
func (p *provider) String() string {
	return "digbridge"
}
