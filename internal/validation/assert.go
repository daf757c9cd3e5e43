// Package validation provides helpers for contract enforcement in constructors.
package validation

import (
	"fmt"
	"reflect"
)

// AssertNotNil panics if the provided pointer is nil.
// It is intended for constructors where dependencies are mandatory.
//
// Usage:
//
//	validation.AssertNotNil(pool, "database pool")
func AssertNotNil[T any](ptr *T, name string) {
	if ptr == nil {
		panic(fmt.Sprintf("critical error: %s cannot be nil", name))
	}
}

// AssertDependency panics if dep is nil, including an interface holding a
// nil pointer, map, slice, func or channel.
func AssertDependency(dep any, name string) {
	if isNil(dep) {
		panic(fmt.Sprintf("critical error: %s cannot be nil", name))
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// Note: panics here signal programmer error (misconfiguration),
// not runtime failures such as a network outage.
