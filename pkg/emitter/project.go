package emitter

import (
	"encoding/json"
	"reflect"
)

// Pick returns the named fields of v. Maps with string keys are read
// directly, structs through their JSON form. Missing fields are omitted and
// anything that is not an object yields an empty map.
func Pick(v any, fields ...string) map[string]any {
	out := make(map[string]any, len(fields))
	src, ok := asObject(v)
	if !ok {
		return out
	}
	for _, f := range fields {
		if x, ok := src[f]; ok {
			out[f] = x
		}
	}
	return out
}

func asObject(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return m, true
	case reflect.Struct:
		b, err := json.Marshal(rv.Interface())
		if err != nil {
			return nil, false
		}
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, false
		}
		return m, true
	}
	return nil, false
}
