package query

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Reserved control keys. They steer compilation and are never treated as filters.
const (
	KeyPage      = "page"
	KeyTotal     = "total"
	KeyPerPage   = "per_page"
	KeyOrderBy   = "order_by"
	KeyWith      = "with"
	KeyQueryType = "query_type"
	KeyWhere     = "where"
	KeyInclude   = "include"
	KeyExclude   = "exclude"
	KeyList      = "list"
)

var reservedKeys = map[string]struct{}{
	KeyPage:      {},
	KeyTotal:     {},
	KeyPerPage:   {},
	KeyOrderBy:   {},
	KeyWith:      {},
	KeyQueryType: {},
	KeyWhere:     {},
	KeyInclude:   {},
	KeyExclude:   {},
	KeyList:      {},
}

// IsReserved reports whether key is one of the control keys.
func IsReserved(key string) bool {
	_, ok := reservedKeys[key]
	return ok
}

// Criteria is the flat parameter map a request is parsed into.
// Values are strings, slices ([]string or []any), nested maps for
// order_by/include/exclude, or plain scalars when built in code.
type Criteria map[string]any

// IsList reports whether the criteria select the bounded, non paginated mode.
func (c Criteria) IsList() bool {
	return Truthy(c[KeyList])
}

// Keys returns the criteria keys in sorted order.
func (c Criteria) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the string form of a top level value, or "" if absent.
func (c Criteria) String(key string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return ""
	}
	return toString(v)
}

// Map returns a nested map value (order_by, include, exclude).
func (c Criteria) Map(key string) map[string]any {
	switch m := c[key].(type) {
	case map[string]any:
		return m
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	case Criteria:
		return m
	}
	return nil
}

// Clone returns a shallow copy.
func (c Criteria) Clone() Criteria {
	out := make(Criteria, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// FromValues parses url.Values into Criteria.
//
//	status=active            -> "status": "active"
//	status[]=a&status[]=b    -> "status": []string{"a", "b"}
//	status[]=                -> "status": []string{}
//	status=a&status=b        -> "status": []string{"a", "b"}
//	order_by[field]=name     -> "order_by": map[string]any{"field": "name"}
func FromValues(values url.Values) Criteria {
	out := Criteria{}
	for rawKey, vals := range values {
		if len(vals) == 0 {
			continue
		}

		key, sub, bracketed := splitBracket(rawKey)
		switch {
		case bracketed && sub != "":
			nested, _ := out[key].(map[string]any)
			if nested == nil {
				nested = map[string]any{}
				out[key] = nested
			}
			nested[sub] = vals[len(vals)-1]
		case bracketed:
			existing, _ := out[key].([]string)
			if existing == nil {
				existing = []string{}
			}
			for _, v := range vals {
				if v != "" {
					existing = append(existing, v)
				}
			}
			out[key] = existing
		case len(vals) > 1:
			out[key] = append([]string(nil), vals...)
		default:
			out[key] = vals[0]
		}
	}
	return out
}

// splitBracket splits "order_by[field]" into ("order_by", "field", true)
// and "status[]" into ("status", "", true).
func splitBracket(raw string) (string, string, bool) {
	open := strings.IndexByte(raw, '[')
	if open <= 0 || !strings.HasSuffix(raw, "]") {
		return raw, "", false
	}
	return raw[:open], raw[open+1 : len(raw)-1], true
}

// Truthy follows the loose truthiness request flags use: "", "0", "false",
// zero numbers, nil and empty collections are false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		s := strings.TrimSpace(strings.ToLower(t))
		return s != "" && s != "0" && s != "false"
	case int:
		return t != 0
	case int64:
		return t != 0
	case int32:
		return t != 0
	case float64:
		return t != 0
	case float32:
		return t != 0
	case []string:
		return len(t) > 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

// ToInt converts request values to int; ok is false for anything unparsable.
func ToInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case int32:
		return int(t), true
	case float64:
		return int(t), true
	case float32:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case bool:
		if t {
			return "1"
		}
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
