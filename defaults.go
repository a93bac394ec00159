package cacheaside

import (
	"reflect"
	"strings"
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// isNil reports a nil interface or pointer-like value. Nil maps and slices encode fine and are allowed.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
