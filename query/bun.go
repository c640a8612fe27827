package query

import (
	"reflect"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// RestrictRelations drops an eager loaded sort whose relation is not in
// allowed. Names are compared case insensitively, so "category" matches a
// model that lists its bun relation as "Category".
func (q CompiledQuery) RestrictRelations(allowed map[string]struct{}) CompiledQuery {
	if q.Sort == nil || q.Sort.Relation == "" {
		return q
	}
	for name := range allowed {
		if strings.EqualFold(name, q.Sort.Relation) {
			return q
		}
	}
	q.Sort = nil
	return q
}

// Apply renders the compiled query onto a bun select query. model must be
// the model sq selects; it resolves relation sorts against bun's schema.
//
// Include is rendered as `(<exclude and predicates>) OR <include>` rather
// than a UNION so it runs on every dialect and under ScanAndCount.
func (q CompiledQuery) Apply(sq *bun.SelectQuery, model any) *bun.SelectQuery {
	if s := q.Sort; s != nil {
		sq = applySort(sq, model, s)
	}

	filter := func(gq *bun.SelectQuery) *bun.SelectQuery {
		if exc := q.Exclude; exc != nil {
			gq = gq.Where("?TableAlias.? != ?", bun.Ident(exc.Field), exc.Value)
		}
		if len(q.Predicates) > 0 {
			gq = gq.WhereGroup(" AND ", func(pq *bun.SelectQuery) *bun.SelectQuery {
				for _, p := range q.Predicates {
					pq = applyPredicate(pq, p)
				}
				return pq
			})
		}
		return gq
	}

	// with no filter every row matches already
	if inc := q.Include; inc != nil && (q.Exclude != nil || len(q.Predicates) > 0) {
		sq = sq.WhereGroup(" AND ", func(gq *bun.SelectQuery) *bun.SelectQuery {
			gq = gq.WhereGroup(" AND ", filter)
			return gq.WhereOr("?TableAlias.? = ?", bun.Ident(inc.Field), inc.Value)
		})
	} else {
		sq = filter(sq)
	}

	sq = sq.Limit(q.Limit)
	if off := q.Offset(); off > 0 {
		sq = sq.Offset(off)
	}
	return sq
}

// SelectCriteria wraps Apply for go-repository-bun read methods.
func (q CompiledQuery) SelectCriteria(model any) []repository.SelectCriteria {
	return []repository.SelectCriteria{
		func(sq *bun.SelectQuery) *bun.SelectQuery {
			return q.Apply(sq, model)
		},
	}
}

// applySort orders by a base column, or joins a belongs-to/has-one relation
// and orders by its column. A relation bun does not know is ignored.
func applySort(sq *bun.SelectQuery, model any, s *Sort) *bun.SelectQuery {
	if s.Relation == "" {
		return sq.OrderExpr("?TableAlias.? "+s.Direction, bun.Ident(s.Field))
	}

	rel := lookupRelation(sq, model, s.Relation)
	if rel == nil || (rel.Type != schema.BelongsToRelation && rel.Type != schema.HasOneRelation) {
		return sq
	}
	return sq.Relation(rel.Field.GoName).
		OrderExpr("?.? "+s.Direction, bun.Ident(rel.Field.Name), bun.Ident(s.Field))
}

// lookupRelation finds the relation of model whose Go field name or column
// alias matches name, ignoring case.
func lookupRelation(sq *bun.SelectQuery, model any, name string) *schema.Relation {
	if model == nil {
		return nil
	}
	typ := reflect.TypeOf(model)
	for typ.Kind() == reflect.Pointer || typ.Kind() == reflect.Slice {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil
	}

	table := sq.DB().Table(typ)
	for goName, rel := range table.Relations {
		if strings.EqualFold(goName, name) || strings.EqualFold(rel.Field.Name, name) {
			return rel
		}
	}
	return nil
}

func applyPredicate(sq *bun.SelectQuery, p Predicate) *bun.SelectQuery {
	where := sq.Where
	if p.Join == Or {
		where = sq.WhereOr
	}

	switch p.Kind {
	case KindIn:
		if p.Relation != "" {
			_, column, _ := strings.Cut(p.Field, ".")
			return where(relationExists("IN (?)"),
				bun.Ident(p.Table),
				bun.Ident(p.Table), bun.Ident("id"), bun.Ident(p.Relation+"_id"),
				bun.Ident(p.Table), bun.Ident(column),
				bun.In(p.Values),
			)
		}
		return where("?TableAlias.? IN (?)", bun.Ident(p.Field), bun.In(p.Values))
	case KindNone:
		return where("1 = 0")
	case KindRelation:
		return where(relationExists(p.Operator+" ?"),
			bun.Ident(p.Table),
			bun.Ident(p.Table), bun.Ident("id"), bun.Ident(p.Relation+"_id"),
			bun.Ident(p.Table), bun.Ident(p.Field),
			p.Value,
		)
	default:
		return where("?TableAlias.? "+p.Operator+" ?", bun.Ident(p.Field), p.Value)
	}
}

// relationExists builds the belongs-to existence check: the base row holds
// <relation>_id pointing at <table>.id.
func relationExists(match string) string {
	return "EXISTS (SELECT 1 FROM ? WHERE ?.? = ?TableAlias.? AND ?.? " + match + ")"
}
