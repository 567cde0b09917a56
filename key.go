package ioc

import (
	"reflect"
	"strings"
)

// Key identifies a service by its Go type. Two keys are equal iff they
// denote the identical type; structurally equal types with different names
// are different keys.
//
// Keys are comparable and can be used as map keys. The zero Key is invalid.
type Key struct {
	t reflect.Type
}

// KeyOf returns the key for T. Interface types are valid keys:
//
//	ioc.KeyOf[Logger]()      // the Logger interface
//	ioc.KeyOf[*Database]()   // the pointer type
func KeyOf[T any]() Key {
	return Key{t: reflect.TypeOf((*T)(nil)).Elem()}
}

// KeyFor returns the key for an already reflected type.
func KeyFor(t reflect.Type) Key {
	return Key{t: t}
}

// Type returns the reflected type behind the key.
func (k Key) Type() reflect.Type {
	return k.t
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool {
	return k.t == nil
}

// String returns the fully qualified type name.
func (k Key) String() string {
	if k.t == nil {
		return "<nil>"
	}
	return k.t.String()
}

// Compare orders keys by package path, then by type string, then by type
// identity. It returns 0 only for equal keys.
func (k Key) Compare(other Key) int {
	if k.t == other.t {
		return 0
	}
	if k.t == nil {
		return -1
	}
	if other.t == nil {
		return 1
	}

	if c := strings.Compare(pkgPath(k.t), pkgPath(other.t)); c != 0 {
		return c
	}
	if c := strings.Compare(k.t.String(), other.t.String()); c != 0 {
		return c
	}

	// Distinct types with the same name, e.g. types declared inside
	// different functions of one package.
	a, b := reflect.ValueOf(k.t).Pointer(), reflect.ValueOf(other.t).Pointer()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// pkgPath returns the package path of the named type at the core of t.
func pkgPath(t reflect.Type) string {
	for t.Name() == "" {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Chan, reflect.Map:
			t = t.Elem()
		default:
			return ""
		}
	}
	return t.PkgPath()
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	case reflect.Func:
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
