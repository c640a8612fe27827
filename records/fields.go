package records

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

const (
	fieldID         = "id"
	fieldIsEnabled  = "is_enabled"
	fieldDisabledAt = "disabled_at"
	relationSuffix  = "_id"
)

// toFields renders a record as a map keyed by JSON field name.
func toFields(record any) (map[string]any, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// overlay writes fields onto target and returns it. target is usually a
// fresh record so no state is shared with the caller's copy.
func overlay[T any](target T, fields map[string]any) (T, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return target, err
	}
	if err := json.Unmarshal(raw, &target); err != nil {
		return target, err
	}
	return target, nil
}

// patchFields returns a copy of record whose fields named in keys (by JSON
// name) are taken from patch. Fields without a JSON name, like json:"-"
// columns, keep the value loaded into record.
func patchFields[T any](record, patch T, keys map[string]any) (T, error) {
	var zero T

	dst, src := reflect.ValueOf(record), reflect.ValueOf(patch)
	if dst.Kind() != reflect.Pointer || dst.IsNil() || src.IsNil() || dst.Elem().Kind() != reflect.Struct {
		return zero, fmt.Errorf("records: %T is not a pointer to a struct", record)
	}

	out := reflect.New(dst.Elem().Type())
	out.Elem().Set(dst.Elem())

	for _, f := range reflect.VisibleFields(dst.Elem().Type()) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		if _, ok := keys[jsonName(f)]; !ok {
			continue
		}
		from, err := src.Elem().FieldByIndexErr(f.Index)
		if err != nil {
			continue
		}
		to, err := out.Elem().FieldByIndexErr(f.Index)
		if err != nil {
			continue
		}
		to.Set(from)
	}

	return out.Interface().(T), nil
}

// jsonName returns the name f is encoded under, or "" when it is skipped.
func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

// isRelationKey reports whether key follows the foreign key naming rule.
func isRelationKey(key string) bool {
	return strings.HasSuffix(key, relationSuffix)
}

// isZeroID reports whether v is the "no relation" sentinel: 0 or "0".
func isZeroID(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "0"
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case bool, nil:
		return false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	}
	return false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// sameValue compares two values decoded from JSON.
func sameValue(a, b any) bool {
	if an, ok := a.(json.Number); ok {
		if bn, ok := b.(json.Number); ok {
			af, aerr := strconv.ParseFloat(an.String(), 64)
			bf, berr := strconv.ParseFloat(bn.String(), 64)
			if aerr == nil && berr == nil {
				return af == bf
			}
		}
	}
	return reflect.DeepEqual(a, b)
}

func idOf(fields map[string]any) string {
	switch v := fields[fieldID].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		raw, _ := json.Marshal(v)
		return string(raw)
	}
}
