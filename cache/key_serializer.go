package cache

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// canonicalKeySerializer renders request parameters into a canonical string.
// Two parameter sets that compare equal always serialize to the same key,
// whatever order their maps were built in.
type canonicalKeySerializer struct{}

// NewDefaultKeySerializer creates the canonical key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &canonicalKeySerializer{}
}

// SerializeKey builds a cache key from method name and args.
func (s *canonicalKeySerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, method)
	for _, arg := range args {
		parts = append(parts, s.serializeValue(reflect.ValueOf(arg)))
	}

	return strings.Join(parts, KeySeparator)
}

func (s *canonicalKeySerializer) serializeValue(rv reflect.Value) string {
	if !rv.IsValid() {
		return "nil"
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem())

	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return s.serializeSeq("slice", rv)

	case reflect.Array:
		return s.serializeSeq("array", rv)

	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return s.serializeMap(rv)

	case reflect.Struct:
		return s.serializeStruct(rv)

	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		// not meaningful as parameters; keep the type so keys stay distinct
		return "unsupported:" + rv.Type().String()

	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return fmt.Sprintf("%v", rv.Interface())
	}

	return s.jsonFallback(rv)
}

func (s *canonicalKeySerializer) serializeSeq(kind string, rv reflect.Value) string {
	n := rv.Len()
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = s.serializeValue(rv.Index(i))
	}
	return fmt.Sprintf("%s[%d]:{%s}", kind, n, strings.Join(parts, ","))
}

// serializeMap sorts entries by their serialized key.
func (s *canonicalKeySerializer) serializeMap(rv reflect.Value) string {
	type pair struct{ key, value string }

	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, pair{
			key:   s.serializeValue(iter.Key()),
			value: s.serializeValue(iter.Value()),
		})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.key + "=" + p.value
	}
	return fmt.Sprintf("map[%d]:{%s}", len(out), strings.Join(out, ","))
}

func (s *canonicalKeySerializer) serializeStruct(rv reflect.Value) string {
	if stringer, ok := rv.Interface().(fmt.Stringer); ok {
		return stringer.String()
	}

	rt := rv.Type()
	parts := make([]string, 0, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		parts = append(parts, field.Name+":"+s.serializeValue(rv.Field(i)))
	}
	return fmt.Sprintf("struct:{%s}", strings.Join(parts, ","))
}

func (s *canonicalKeySerializer) jsonFallback(rv reflect.Value) string {
	data, err := json.Marshal(rv.Interface())
	if err != nil {
		return "fallback:" + rv.Type().String()
	}
	return "json:" + string(data)
}
