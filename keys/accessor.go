package keys

import (
	"reflect"
	"strings"
	"sync"
)

// Arguments exposes the request arguments bound for one invocation.
type Arguments interface {
	Argument(name string) (any, bool)
}

// Args is a map-backed Arguments.
type Args map[string]any

func (a Args) Argument(name string) (any, bool) {
	v, ok := a[name]
	return v, ok
}

// FieldAccessor is implemented by models that expose their fields by name
// without reflection. Lookups are case-sensitive.
type FieldAccessor interface {
	Field(name string) (any, bool)
}

// Field looks up name on model. FieldAccessor implementations win; otherwise
// structs (exported field name, then `cache` or `json` tag) and string-keyed maps
// are read through an accessor built once per type.
func Field(model any, name string) (any, bool) {
	if model == nil {
		return nil, false
	}
	if fa, ok := model.(FieldAccessor); ok {
		return fa.Field(name)
	}

	rv := reflect.ValueOf(model)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		idx, ok := structIndex(rv.Type())[name]
		if !ok {
			return nil, false
		}
		f, err := rv.FieldByIndexErr(idx)
		if err != nil || !f.CanInterface() { // nil embedded pointer on the path
			return nil, false
		}
		return f.Interface(), true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	}
	return nil, false
}

var structIndexes sync.Map // reflect.Type -> map[string][]int

// structIndex maps every accessible name of t to its field index.
// Exported Go names take precedence over tag names.
func structIndex(t reflect.Type) map[string][]int {
	if m, ok := structIndexes.Load(t); ok {
		return m.(map[string][]int)
	}

	fields := reflect.VisibleFields(t)
	m := make(map[string][]int, len(fields)*2)
	for _, f := range fields {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		m[f.Name] = f.Index
	}
	for _, f := range fields {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		for _, tag := range []string{"cache", "json"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name == "" || name == "-" {
				continue
			}
			if _, taken := m[name]; !taken {
				m[name] = f.Index
			}
		}
	}

	actual, _ := structIndexes.LoadOrStore(t, m)
	return actual.(map[string][]int)
}

func isNilish(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
