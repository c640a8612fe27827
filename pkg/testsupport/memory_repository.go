package testsupport

import (
	"context"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// MemoryRepository is an in memory repository.Repository[T] for tests.
// Select criteria are not evaluated: List returns every row and Get
// defers to GetFn. Calls are counted per method. Misses fail the way
// go-repository-bun does: reads return its record not found error, Update
// an expected count violation, and Delete succeeds.
type MemoryRepository[T any] struct {
	mu    sync.Mutex
	idOf  func(T) string
	order []string
	rows  map[string]T
	calls map[string]int

	// GetFn answers Get. When nil, every Get is a miss.
	GetFn func(rows []T) (T, bool)
	// DeleteErr, when set, is returned by Delete and nothing is removed.
	DeleteErr error
	// ListErr, when set, is returned by List.
	ListErr error
}

var _ repository.Repository[any] = (*MemoryRepository[any])(nil)

// NewMemoryRepository creates a repository keyed by idOf and seeded with rows.
func NewMemoryRepository[T any](idOf func(T) string, seed ...T) *MemoryRepository[T] {
	m := &MemoryRepository[T]{
		idOf:  idOf,
		rows:  map[string]T{},
		calls: map[string]int{},
	}
	for _, row := range seed {
		m.put(row)
	}
	return m
}

// Calls returns how many times method was called.
func (m *MemoryRepository[T]) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Rows returns the stored rows in insertion order.
func (m *MemoryRepository[T]) Rows() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *MemoryRepository[T]) track(method string) {
	m.mu.Lock()
	m.calls[method]++
	m.mu.Unlock()
}

func (m *MemoryRepository[T]) put(row T) {
	id := m.idOf(row)
	if _, exists := m.rows[id]; !exists {
		m.order = append(m.order, id)
	}
	m.rows[id] = row
}

func (m *MemoryRepository[T]) snapshot() []T {
	out := make([]T, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rows[id])
	}
	return out
}

func (m *MemoryRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	m.track("Get")
	var zero T

	m.mu.Lock()
	rows := m.snapshot()
	m.mu.Unlock()

	if m.GetFn != nil {
		if row, ok := m.GetFn(rows); ok {
			return row, nil
		}
	}
	return zero, repository.NewRecordNotFound()
}

func (m *MemoryRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	m.track("GetByID")
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok {
		var zero T
		return zero, repository.NewRecordNotFound()
	}
	return row, nil
}

func (m *MemoryRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	m.track("List")
	if m.ListErr != nil {
		return nil, 0, m.ListErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.snapshot()
	return rows, len(rows), nil
}

func (m *MemoryRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	m.track("Count")
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows), nil
}

func (m *MemoryRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	return m.GetByID(ctx, identifier, criteria...)
}

func (m *MemoryRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	m.track("Create")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(record)
	return record, nil
}

func (m *MemoryRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	m.track("Update")
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rows[m.idOf(record)]; !ok {
		var zero T
		return zero, goerrors.NewNonRetryable("Expected 1 affected rows, got 0", repository.CategoryDatabaseExpectedCount)
	}
	m.put(record)
	return record, nil
}

func (m *MemoryRepository[T]) Delete(ctx context.Context, record T) error {
	m.track("Delete")
	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.idOf(record)
	if _, ok := m.rows[id]; !ok {
		return nil
	}
	delete(m.rows, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	return nil, nil
}

func (m *MemoryRepository[T]) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]T, error) {
	return nil, nil
}

func (m *MemoryRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	return m.Get(ctx, criteria...)
}

func (m *MemoryRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	return m.GetByID(ctx, id, criteria...)
}

func (m *MemoryRepository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	return m.List(ctx, criteria...)
}

func (m *MemoryRepository[T]) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	return m.Count(ctx, criteria...)
}

func (m *MemoryRepository[T]) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	return m.GetByIdentifier(ctx, identifier, criteria...)
}

func (m *MemoryRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	return m.Create(ctx, record, criteria...)
}

func (m *MemoryRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	for _, record := range records {
		if _, err := m.Create(ctx, record, criteria...); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (m *MemoryRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	return m.CreateMany(ctx, records, criteria...)
}

func (m *MemoryRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	if existing, err := m.GetByID(ctx, m.idOf(record)); err == nil {
		return existing, nil
	}
	return m.Create(ctx, record)
}

func (m *MemoryRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	return m.GetOrCreate(ctx, record)
}

func (m *MemoryRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return m.Update(ctx, record, criteria...)
}

func (m *MemoryRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	for _, record := range records {
		if _, err := m.Update(ctx, record, criteria...); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (m *MemoryRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return m.UpdateMany(ctx, records, criteria...)
}

func (m *MemoryRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	m.mu.Lock()
	m.put(record)
	m.mu.Unlock()
	return record, nil
}

func (m *MemoryRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return m.Upsert(ctx, record, criteria...)
}

func (m *MemoryRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	for _, record := range records {
		_, _ = m.Upsert(ctx, record, criteria...)
	}
	return records, nil
}

func (m *MemoryRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return m.UpsertMany(ctx, records, criteria...)
}

func (m *MemoryRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	return m.Delete(ctx, record)
}

func (m *MemoryRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = map[string]T{}
	m.order = nil
	return nil
}

func (m *MemoryRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	return m.DeleteMany(ctx, criteria...)
}

func (m *MemoryRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	return m.DeleteMany(ctx, criteria...)
}

func (m *MemoryRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	return m.DeleteWhere(ctx, criteria...)
}

func (m *MemoryRepository[T]) ForceDelete(ctx context.Context, record T) error {
	return m.Delete(ctx, record)
}

func (m *MemoryRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	return m.Delete(ctx, record)
}

func (m *MemoryRepository[T]) Handlers() repository.ModelHandlers[T] {
	return repository.ModelHandlers[T]{}
}
