// Package query compiles untrusted request parameters into a structured,
// safe query against a bun data source.
//
// # Overview
//
// A request is parsed into Criteria, a flat map of keys to values. Compile
// walks the map and produces a CompiledQuery: an optional sort, an optional
// include (union) and exclude clause, a group of filter predicates, a limit
// and an execution mode (page or list).
//
//	criteria := query.FromValues(r.URL.Query())
//	cq := query.Compile(criteria, fillable)
//	records, total, err := repo.List(ctx, cq.SelectCriteria(new(Product))...)
//
// # Filter Syntax
//
//   - status=active                 direct filter, `status = 'active'`
//   - status=active,pending         IN filter, always, whatever query_type/where say
//   - category.name=books           relation filter, EXISTS over the `categories` table
//   - query_type=like               operator for single value filters
//   - where=OR                      direct filters are OR-ed (AND by default)
//   - where=AND                     relation filters are AND-ed (OR by default)
//
// Keys that are not fillable never reach the query. Blank strings are
// ignored; arrays are always kept.
//
// # Determinism
//
// Criteria keys are visited in sorted order so the same parameters always
// compile to the same query, which also keeps list cache keys stable.
package query
