package records

import (
	"context"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-rest-scaffold/query"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
)

// Result is the outcome of FindBy. Pagination is nil in list mode.
type Result[T any] struct {
	Items      []T
	Mode       query.Mode
	Pagination *query.Pagination
}

// Option configures a Repository.
type Option func(*settings)

type settings struct {
	logger zerolog.Logger
	now    func() time.Time
	newID  func() string
}

// WithLogger sets the logger used for unclassified persistence errors.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for disabled_at.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how new record ids are generated.
func WithIDGenerator(newID func() string) Option {
	return func(s *settings) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// Repository runs the CRUD operations for one entity on top of a
// go-repository-bun repository. It holds no per call state and is safe
// for concurrent use.
type Repository[T Model] struct {
	base      repository.Repository[T]
	entity    string
	newRecord func() T
	fillable  map[string]struct{}
	relations map[string]struct{}
	settings
}

// New creates a repository for entity. newRecord must return a fresh,
// empty record; it is used as the write target for every store and update.
func New[T Model](base repository.Repository[T], entity string, newRecord func() T, opts ...Option) *Repository[T] {
	r := &Repository[T]{
		base:      base,
		entity:    entity,
		newRecord: newRecord,
		fillable:  map[string]struct{}{},
		relations: map[string]struct{}{},
		settings: settings{
			logger: zerolog.Nop(),
			now:    time.Now,
			newID:  func() string { return uuid.NewString() },
		},
	}

	for _, opt := range opts {
		opt(&r.settings)
	}

	sample := newRecord()
	for _, field := range sample.Fillable() {
		r.fillable[field] = struct{}{}
	}
	if rp, ok := any(sample).(RelationProvider); ok {
		for _, rel := range rp.Relations() {
			r.relations[rel] = struct{}{}
		}
	}

	return r
}

// Entity returns the entity name given at construction.
func (r *Repository[T]) Entity() string {
	return r.entity
}

// NewRecord returns a fresh, empty record.
func (r *Repository[T]) NewRecord() T {
	return r.newRecord()
}

// IsFillable reports whether field may be written from request data.
func (r *Repository[T]) IsFillable(field string) bool {
	_, ok := r.fillable[field]
	return ok
}

// Fillable returns the fillable fields in sorted order.
func (r *Repository[T]) Fillable() []string {
	out := make([]string, 0, len(r.fillable))
	for field := range r.fillable {
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}

// Statuses returns the status labels of the model, or nil when the model
// does not define any.
func (r *Repository[T]) Statuses() []string {
	if sp, ok := any(r.newRecord()).(StatusProvider); ok {
		return sp.Statuses()
	}
	return nil
}

// Rules returns the validation rules of the model for rc, or nil when the
// model does not validate.
func (r *Repository[T]) Rules(rc RuleContext) []*validation.KeyRules {
	if current, ok := rc.current.(RuleProvider); ok {
		return current.ValidationRules(rc)
	}
	if rp, ok := any(r.newRecord()).(RuleProvider); ok {
		return rp.ValidationRules(rc)
	}
	return nil
}

// FindOne looks a record up by primary key. A miss is reported through
// the bool, not as an error.
func (r *Repository[T]) FindOne(ctx context.Context, id string) (T, bool, error) {
	var zero T

	record, err := r.base.GetByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return zero, false, nil
		}
		return zero, false, r.persistenceError("find", err)
	}
	if isNil(record) {
		return zero, false, nil
	}
	return record, true, nil
}

// FindOneBy returns the first record whose fields equal every entry in
// match. Fields are compared in sorted order.
func (r *Repository[T]) FindOneBy(ctx context.Context, match map[string]any) (T, bool, error) {
	var zero T

	keys := make([]string, 0, len(match))
	for k := range match {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	criteria := func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, k := range keys {
			q = q.Where("?TableAlias.? = ?", bun.Ident(k), match[k])
		}
		return q.Limit(1)
	}

	record, err := r.base.Get(ctx, criteria)
	if err != nil {
		if IsNotFound(err) {
			return zero, false, nil
		}
		return zero, false, r.persistenceError("find", err)
	}
	if isNil(record) {
		return zero, false, nil
	}
	return record, true, nil
}

// FindBy compiles criteria and runs the query. List mode returns the items
// only; page mode also returns pagination metadata.
func (r *Repository[T]) FindBy(ctx context.Context, criteria query.Criteria) (Result[T], error) {
	compiled := query.Compile(criteria, r.fillable).RestrictRelations(r.relations)

	items, total, err := r.base.List(ctx, compiled.SelectCriteria(r.newRecord())...)
	if err != nil {
		return Result[T]{}, r.persistenceError("list", err)
	}
	if items == nil {
		items = []T{}
	}

	result := Result[T]{Items: items, Mode: compiled.Mode}
	if compiled.Mode == query.ModePage {
		p := query.NewPagination(compiled.Page, compiled.Limit, total, len(items))
		result.Pagination = &p
	}
	return result, nil
}

// Count returns the number of stored records.
func (r *Repository[T]) Count(ctx context.Context) (int, error) {
	n, err := r.base.Count(ctx)
	if err != nil {
		return 0, r.persistenceError("count", err)
	}
	return n, nil
}

// Store creates a record from data. A supplied id is ignored and a fresh
// one is generated.
func (r *Repository[T]) Store(ctx context.Context, data map[string]any) (T, error) {
	var zero T

	values := r.writable(data, true)
	values[fieldID] = r.newID()

	record, err := overlay(r.newRecord(), values)
	if err != nil {
		return zero, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid "+r.entity+" data")
	}

	created, err := r.base.Create(ctx, record)
	if err != nil {
		if code, ok := constraintCode(err); ok {
			return zero, &ConstraintError{Op: "store", Code: code, Err: err}
		}
		return zero, r.persistenceError("store", err)
	}
	return created, nil
}

// Update applies data to record and persists the changed columns only.
// The returned bool is false when record is nil or no longer exists.
// Nothing is written when data changes no field.
func (r *Repository[T]) Update(ctx context.Context, record T, data map[string]any) (T, bool, error) {
	var zero T
	if isNil(record) {
		return zero, false, nil
	}

	updated, dirty, err := r.apply(record, data)
	if err != nil {
		return zero, false, err
	}
	if len(dirty) == 0 {
		return record, true, nil
	}

	saved, err := r.base.Update(ctx, updated, setColumns(dirty))
	if err != nil {
		if IsNotFound(err) || repository.IsSQLExpectedCountViolation(err) {
			return zero, false, nil
		}
		if code, ok := constraintCode(err); ok {
			return zero, false, &ConstraintError{Op: "update", Code: code, Err: err}
		}
		return zero, false, r.persistenceError("update", err)
	}
	if isNil(saved) {
		saved = updated
	}
	return saved, true, nil
}

// Dirty returns the fields data would change on record, with their new
// values. The record itself is not modified.
func (r *Repository[T]) Dirty(record T, data map[string]any) (map[string]any, error) {
	if isNil(record) {
		return map[string]any{}, nil
	}
	_, dirty, err := r.apply(record, data)
	return dirty, err
}

// IsDirty reports whether data would change any field on record.
func (r *Repository[T]) IsDirty(record T, data map[string]any) (bool, error) {
	dirty, err := r.Dirty(record, data)
	return len(dirty) > 0, err
}

// Delete removes record. It returns false when record is nil or already
// gone. A foreign key violation is returned as *ConstraintError and is not
// logged; any other failure is logged and returned wrapped.
func (r *Repository[T]) Delete(ctx context.Context, record T) (bool, error) {
	if isNil(record) {
		return false, nil
	}

	if err := r.base.Delete(ctx, record); err != nil {
		if code, ok := constraintCode(err); ok {
			return false, &ConstraintError{Op: "delete", Code: code, Err: err}
		}
		if IsNotFound(err) {
			return false, nil
		}
		return false, r.persistenceError("delete", err)
	}
	return true, nil
}

// RuleContext builds the context passed to the model's validation rules.
// current is the record being updated; pass the zero value on store.
func (r *Repository[T]) RuleContext(ctx context.Context, current T) RuleContext {
	rc := RuleContext{
		ctx: ctx,
		lookup: func(ctx context.Context, field string, value any) (string, bool, error) {
			found, ok, err := r.FindOneBy(ctx, map[string]any{field: value})
			if err != nil || !ok {
				return "", false, err
			}
			fields, err := toFields(found)
			if err != nil {
				return "", false, err
			}
			return idOf(fields), true, nil
		},
	}

	if !isNil(current) {
		rc.current = current
		if fields, err := toFields(current); err == nil {
			rc.currentID = idOf(fields)
		}
	}
	return rc
}

// apply overlays data on a copy of record and reports which fields changed.
// Only the fillable keys of data are decoded; every other field of the copy
// keeps the value loaded into record.
func (r *Repository[T]) apply(record T, data map[string]any) (T, map[string]any, error) {
	var zero T

	current, err := toFields(record)
	if err != nil {
		return zero, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "encode "+r.entity)
	}

	values := r.writable(data, query.Truthy(current[fieldIsEnabled]))
	delete(values, fieldID)

	patch, err := overlay(r.newRecord(), values)
	if err != nil {
		return zero, nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid "+r.entity+" data")
	}

	updated, err := patchFields(record, patch, values)
	if err != nil {
		return zero, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "patch "+r.entity)
	}

	after, err := toFields(updated)
	if err != nil {
		return zero, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "encode "+r.entity)
	}

	dirty := map[string]any{}
	for k := range values {
		if !sameValue(current[k], after[k]) {
			dirty[k] = after[k]
		}
	}
	return updated, dirty, nil
}

// setColumns limits an update to columns. Each value is read from the
// model through bun's named arguments, so zero values are written too.
func setColumns(columns map[string]any) repository.UpdateCriteria {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(q *bun.UpdateQuery) *bun.UpdateQuery {
		for _, name := range names {
			q = q.Set("? = ?"+name, bun.Ident(name))
		}
		return q
	}
}

// writable returns the subset of data that may be persisted. When
// allowDisable is set, is_enabled=false also stamps disabled_at. Relation
// keys holding 0 are written as null.
func (r *Repository[T]) writable(data map[string]any, allowDisable bool) map[string]any {
	values := make(map[string]any, len(data)+1)

	for k, v := range data {
		if k == fieldID {
			continue
		}
		if isRelationKey(k) && isZeroID(v) {
			v = nil
		}
		if r.IsFillable(k) {
			values[k] = v
		}
	}

	if enabled, ok := data[fieldIsEnabled]; ok && enabled != nil && allowDisable && !query.Truthy(enabled) {
		if r.IsFillable(fieldDisabledAt) {
			values[fieldDisabledAt] = r.now().UTC()
		}
	}

	return values
}

func (r *Repository[T]) persistenceError(op string, err error) error {
	r.logger.Error().
		Err(err).
		Str("entity", r.entity).
		Str("op", op).
		Msg("persistence error")
	return goerrors.Wrap(err, goerrors.CategoryInternal, r.entity+" "+op+" failed")
}
