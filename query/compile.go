package query

import (
	"strings"

	"github.com/jinzhu/inflection"
)

const (
	// DefaultPageSize is the page size used when per_page is not given.
	DefaultPageSize = 20
	// DefaultListLimit bounds list mode results when per_page is not given.
	DefaultListLimit = 300
)

// Mode selects how a compiled query is executed.
type Mode int

const (
	// ModePage paginates the result set.
	ModePage Mode = iota
	// ModeList fetches a bounded sequence with no pagination metadata.
	ModeList
)

func (m Mode) String() string {
	if m == ModeList {
		return "list"
	}
	return "page"
}

// Join is the boolean connective a predicate is attached with.
type Join string

const (
	And Join = "AND"
	Or  Join = "OR"
)

// PredicateKind identifies the shape of a filter predicate.
type PredicateKind int

const (
	// KindCompare is `field <op> value` on the base entity.
	KindCompare PredicateKind = iota
	// KindIn is `field IN (values...)`.
	KindIn
	// KindRelation is an existential predicate over a related table.
	KindRelation
	// KindNone matches nothing; emitted for empty array filters.
	KindNone
)

// Predicate is one compiled filter.
type Predicate struct {
	Kind     PredicateKind
	Join     Join
	Field    string
	Operator string
	Value    any
	Values   []any
	// Relation and Table are set for KindRelation and for KindIn on a
	// relation key: Relation is the relation name as given, Table its
	// pluralized table name.
	Relation string
	Table    string
}

// Sort orders the result either directly or inside an eager loaded relation.
type Sort struct {
	Field     string
	Direction string
	Relation  string
}

// Match is a field/value pair used by include and exclude.
type Match struct {
	Field string
	Value any
}

// CompiledQuery is the result of compiling criteria. Clauses are applied
// in field order: Sort, Include, Exclude, Predicates (as one AND group),
// then Limit/Page according to Mode.
type CompiledQuery struct {
	Sort       *Sort
	Include    *Match
	Exclude    *Match
	Predicates []Predicate
	Limit      int
	Page       int
	Mode       Mode
}

// Offset returns the row offset for page mode.
func (q CompiledQuery) Offset() int {
	if q.Mode == ModeList || q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// Compile turns criteria into a CompiledQuery. Only keys present in
// fillable become predicates; everything else is dropped silently.
func Compile(criteria Criteria, fillable map[string]struct{}) CompiledQuery {
	cq := CompiledQuery{Mode: ModePage, Page: 1}
	if criteria.IsList() {
		cq.Mode = ModeList
	}

	if ob := criteria.Map(KeyOrderBy); ob != nil {
		if field := mapString(ob, "field"); field != "" {
			cq.Sort = &Sort{
				Field:     field,
				Direction: normalizeDirection(mapString(ob, "direction")),
				Relation:  mapString(ob, "table"),
			}
		}
	}

	if inc := criteria.Map(KeyInclude); len(inc) > 0 {
		if field := mapString(inc, "field"); field != "" {
			cq.Include = &Match{Field: field, Value: inc["value"]}
		}
	}

	if exc := criteria.Map(KeyExclude); len(exc) > 0 {
		if field := mapString(exc, "field"); field != "" {
			cq.Exclude = &Match{Field: field, Value: exc["value"]}
		}
	}

	cq.Limit = limitFor(criteria, cq.Mode)
	if page, ok := ToInt(criteria[KeyPage]); ok && page > 0 {
		cq.Page = page
	}

	operator := NormalizeOperator(criteria.String(KeyQueryType))
	where := strings.ToUpper(strings.TrimSpace(criteria.String(KeyWhere)))

	for _, key := range criteria.Keys() {
		if IsReserved(key) {
			continue
		}
		if _, ok := fillable[key]; !ok {
			continue
		}

		value := criteria[key]
		values, ok := candidates(value)
		if !ok {
			continue
		}

		if len(values) > 1 {
			in := Predicate{
				Kind:   KindIn,
				Join:   And,
				Field:  key,
				Values: values,
			}
			if relation, _, ok := strings.Cut(key, "."); ok {
				in.Relation = relation
				in.Table = inflection.Plural(relation)
			}
			cq.Predicates = append(cq.Predicates, in)
			continue
		}

		if len(values) == 0 {
			cq.Predicates = append(cq.Predicates, Predicate{Kind: KindNone, Join: And, Field: key})
			continue
		}

		single := values[0]
		if relation, field, ok := strings.Cut(key, "."); ok {
			join := Or
			if where == string(And) {
				join = And
			}
			cq.Predicates = append(cq.Predicates, Predicate{
				Kind:     KindRelation,
				Join:     join,
				Field:    field,
				Operator: operator,
				Value:    single,
				Relation: relation,
				Table:    inflection.Plural(relation),
			})
			continue
		}

		join := And
		if where == string(Or) {
			join = Or
		}
		cq.Predicates = append(cq.Predicates, Predicate{
			Kind:     KindCompare,
			Join:     join,
			Field:    key,
			Operator: operator,
			Value:    single,
		})
	}

	return cq
}

// candidates expands a criteria value into its filter values. Strings are
// split on commas; slices are used as given. ok is false when the value
// must be skipped (nil or blank scalar).
func candidates(value any) ([]any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case map[string]any:
		return nil, false
	}

	s := toString(value)
	if strings.TrimSpace(s) == "" {
		return nil, false
	}

	parts := strings.Split(s, ",")
	if len(parts) == 1 {
		return []any{value}, true
	}
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, true
}

func limitFor(criteria Criteria, mode Mode) int {
	if n, ok := ToInt(criteria[KeyPerPage]); ok && n > 0 {
		return n
	}
	if mode == ModeList {
		return DefaultListLimit
	}
	return DefaultPageSize
}

var operators = map[string]string{
	"=":        "=",
	"!=":       "!=",
	"<>":       "<>",
	"<":        "<",
	"<=":       "<=",
	">":        ">",
	">=":       ">=",
	"like":     "LIKE",
	"not like": "NOT LIKE",
	"ilike":    "ILIKE",
}

// NormalizeOperator maps a query_type value onto a supported SQL operator.
// Unknown or empty operators become "=".
func NormalizeOperator(op string) string {
	if sql, ok := operators[strings.ToLower(strings.TrimSpace(op))]; ok {
		return sql
	}
	return "="
}

func normalizeDirection(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "desc") {
		return "DESC"
	}
	return "ASC"
}

func mapString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(toString(v))
}
