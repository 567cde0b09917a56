package ioc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors that are wrapped in typed errors when returned.

var (
	// Resolution errors.
	ErrServiceNotFound    = errors.New("service not found")
	ErrCircularDependency = errors.New("circular dependency detected")
	ErrMaxDepthExceeded   = errors.New("maximum resolution depth exceeded")
	ErrNilInstance        = errors.New("factory produced a nil instance")

	// Registration errors.
	ErrInvalidKey = errors.New("service key cannot be the zero Key")
	ErrNilFactory = errors.New("factory cannot be nil")

	// Container errors.
	ErrContainerClosed      = errors.New("container has been closed")
	ErrNilResolver          = errors.New("resolver cannot be nil")
	ErrNoContainerInContext = errors.New("no container in context")
)

var (
	_ error = ResolutionError{}
	_ error = RegistrationError{}
	_ error = TypeMismatchError{}
	_ error = CircularDependencyError{}
	_ error = FactoryError{}
	_ error = FactoryPanicError{}
	_ error = DisposalError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// ResolutionError reports a service that could not be resolved: nothing is
// cached, no factory is bound, and the self-registration fallback did not
// bind one either.
type ResolutionError struct {
	Key       Key
	Cause     error
	Available []Key // Keys that ARE bound, used for suggestions
}

func (e ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("service not found: %s", e.Key))

	if e.Cause != nil && e.Cause != ErrServiceNotFound {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Available) > 0 {
		similar := findSimilarKeys(e.Key, e.Available)
		if len(similar) > 0 {
			b.WriteString("\n\nDid you mean one of these?\n")
			for _, k := range similar {
				b.WriteString(fmt.Sprintf("  • %s\n", k))
			}
		}
	}

	b.WriteString("\nBind it with ioc.Bind, seed it with ioc.Singleton, or implement ioc.Injectable.")

	return b.String()
}

func (e ResolutionError) Unwrap() error {
	return e.Cause
}

// findSimilarKeys finds keys with similar names using a simple substring match.
func findSimilarKeys(target Key, available []Key) []Key {
	if target.IsZero() || len(available) == 0 {
		return nil
	}

	targetName := strings.ToLower(shortName(target.t))

	var similar []Key
	for _, k := range available {
		if k.IsZero() || k == target {
			continue
		}

		name := strings.ToLower(shortName(k.t))
		if name == targetName ||
			strings.Contains(strings.ToLower(k.String()), targetName) ||
			strings.Contains(strings.ToLower(target.String()), name) {
			similar = append(similar, k)
		}

		if len(similar) >= 5 {
			break
		}
	}

	return similar
}

func shortName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// RegistrationError reports a misuse of a binding operation. Binding
// operations panic with it since a bad binding is a programming error.
type RegistrationError struct {
	Key       Key
	Operation string // "bind", "singleton", "singleton-factory"
	Cause     error
}

func (e RegistrationError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Key, e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}

// TypeMismatchError indicates a value is not assignable to the type of the
// key it was bound or resolved under.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
	Context  string // "factory result", "singleton", "type assertion"
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Context, formatType(e.Expected), formatType(e.Actual))
}

// CircularDependencyError reports a key that was requested again while it
// was still being built. Path starts at the outermost key and ends with the
// repeated one.
type CircularDependencyError struct {
	Path []Key
}

func (e CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected:\n\n")

	for i, k := range e.Path {
		b.WriteString(fmt.Sprintf("    %s", k))
		if i == len(e.Path)-1 {
			b.WriteString(" (cycle)")
		}
		b.WriteString("\n")
		if i < len(e.Path)-1 {
			b.WriteString("      ↓\n")
		}
	}

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Use an interface to break the dependency\n")
	b.WriteString("  • Resolve the dependency lazily from a Boot step\n")
	b.WriteString("  • Restructure to remove the circular relationship\n")

	return b.String()
}

func (e CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency
}

// FactoryError wraps an error returned by a factory.
type FactoryError struct {
	Key   Key
	Cause error
}

func (e FactoryError) Error() string {
	return fmt.Sprintf("factory for %s failed: %v", e.Key, e.Cause)
}

func (e FactoryError) Unwrap() error {
	return e.Cause
}

// FactoryPanicError indicates a factory panicked. The key it was building
// stays failed for the lifetime of the container unless it is rebound.
type FactoryPanicError struct {
	Key   Key
	Panic any
	Stack []byte
}

func (e FactoryPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("factory for %s panicked: %v\n", e.Key, e.Panic))

	b.WriteString("\nFactories should only wire dependencies together.\n")
	b.WriteString("Return an error instead of panicking, or rebind the service to retry.\n")

	if len(e.Stack) > 0 {
		b.WriteString("\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

// DisposalError aggregates errors from closing cached instances.
type DisposalError struct {
	Errors []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("container disposal failed: %v", e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("container disposal failed with %d errors:", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// IsNotFound reports whether err is caused by a missing service.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrServiceNotFound)
}

// IsCircular reports whether err is caused by a dependency cycle.
func IsCircular(err error) bool {
	return errors.Is(err, ErrCircularDependency)
}

// isResolutionFailure reports whether err came out of the container itself
// rather than from user code.
func isResolutionFailure(err error) bool {
	var (
		resolutionErr ResolutionError
		cycleErr      CircularDependencyError
		factoryErr    FactoryError
		panicErr      FactoryPanicError
		mismatchErr   TypeMismatchError
	)
	return errors.As(err, &resolutionErr) ||
		errors.As(err, &cycleErr) ||
		errors.As(err, &factoryErr) ||
		errors.As(err, &panicErr) ||
		errors.As(err, &mismatchErr) ||
		errors.Is(err, ErrContainerClosed) ||
		errors.Is(err, ErrMaxDepthExceeded)
}
