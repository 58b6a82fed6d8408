package docstore

import (
	"encoding/json"
	"math"
	"reflect"
	"time"
)

type sentinel int

const (
	serverTimestamp sentinel = iota + 1
	deleteField
)

// ServerTimestamp is replaced by the commit time of the write.
var ServerTimestamp any = serverTimestamp

// DeleteField removes the field. Only valid in Update and Set with MergeAll.
var DeleteField any = deleteField

type increment struct {
	n int64
}

// Increment adds n to the numeric field, treating a missing field as zero.
func Increment(n int64) any {
	return increment{n: n}
}

type arrayUnion struct {
	elems []any
}

// ArrayUnion appends the elements that are not already present in the array field.
func ArrayUnion(elems ...any) any {
	return arrayUnion{elems: elems}
}

// applyFields merges fields into dst, resolving sentinels against the current values.
func applyFields(dst map[string]any, fields Fields, now time.Time) {
	for k, v := range fields {
		switch x := v.(type) {
		case sentinel:
			if x == deleteField {
				delete(dst, k)
				continue
			}
			dst[k] = now
		case increment:
			dst[k] = addNumber(dst[k], x.n)
		case arrayUnion:
			existing, _ := canonical(dst[k]).([]any)
			out := append([]any{}, existing...)
			for _, e := range x.elems {
				if !containsValue(out, e) {
					out = append(out, canonical(e))
				}
			}
			dst[k] = out
		default:
			dst[k] = resolveValue(v, now)
		}
	}
}

// resolveValue returns v in canonical form with sentinels replaced by plain values, as a
// write without a previous document sees them.
func resolveValue(v any, now time.Time) any {
	switch x := v.(type) {
	case sentinel:
		if x == serverTimestamp {
			return now
		}
		return nil
	case increment:
		return x.n
	case arrayUnion:
		out := make([]any, 0, len(x.elems))
		for _, e := range x.elems {
			if !containsValue(out, e) {
				out = append(out, canonical(e))
			}
		}
		return out
	case Fields:
		return resolveMap(x, now)
	case map[string]any:
		return resolveMap(x, now)
	default:
		return canonical(v)
	}
}

func resolveMap(m map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v == deleteField {
			continue
		}
		out[k] = resolveValue(v, now)
	}
	return out
}

// canonical converts a value to the shapes stored by the memory and Postgres backends:
// int64, float64, string, bool, time.Time, []any and map[string]any.
func canonical(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int64, float64:
		return x
	case time.Time:
		return x.UTC()
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case Fields:
		return canonicalMap(x)
	case map[string]any:
		return canonicalMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = canonical(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = canonical(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			out := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				out[iter.Key().String()] = canonical(iter.Value().Interface())
			}
			return out
		}
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return canonical(rv.Elem().Interface())
	}

	// Structs and anything else go through their json form.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return canonical(out)
}

func canonicalMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = canonical(v)
	}
	return out
}

func addNumber(current any, n int64) any {
	switch x := canonical(current).(type) {
	case int64:
		return x + n
	case float64:
		if x == math.Trunc(x) {
			return int64(x) + n
		}
		return x + float64(n)
	default:
		return n
	}
}

// equalValues compares two stored values, treating integral floats and ints as equal.
func equalValues(a, b any) bool {
	a, b = canonical(a), canonical(b)
	if af, ok := a.(float64); ok && af == math.Trunc(af) {
		a = int64(af)
	}
	if bf, ok := b.(float64); ok && bf == math.Trunc(bf) {
		b = int64(bf)
	}
	return reflect.DeepEqual(a, b)
}

func containsValue(list []any, v any) bool {
	for _, e := range list {
		if equalValues(e, v) {
			return true
		}
	}
	return false
}

func matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok || !equalValues(v, f.Value) {
			return false
		}
	}
	return true
}
