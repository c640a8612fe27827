package records

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type shelf struct {
	bun.BaseModel `bun:"table:shelves"`

	ID   uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name string    `bun:"name,notnull,unique" json:"name"`
}

func (s *shelf) Fillable() []string { return []string{"name"} }

type book struct {
	bun.BaseModel `bun:"table:books"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Title     string     `bun:"title,notnull" json:"title"`
	ShelfID   *uuid.UUID `bun:"shelf_id,type:uuid" json:"shelf_id"`
	Pages     int        `bun:"pages,notnull,default:0" json:"pages"`
	IsEnabled bool       `bun:"is_enabled,notnull,default:true" json:"is_enabled"`
	Token     string     `bun:"token,notnull,default:''" json:"-"`
}

func (b *book) Fillable() []string { return []string{"title", "shelf_id", "pages", "is_enabled", "token"} }

func newSQLiteDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared&_foreign_keys=1"
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if _, err := db.NewCreateTable().Model((*shelf)(nil)).IfNotExists().Exec(ctx); err != nil {
		t.Fatalf("create shelves: %v", err)
	}
	if _, err := db.NewCreateTable().Model((*book)(nil)).IfNotExists().
		ForeignKey("(?) REFERENCES ? (?) ON DELETE RESTRICT",
			bun.Ident("shelf_id"), bun.Ident("shelves"), bun.Ident("id")).
		Exec(ctx); err != nil {
		t.Fatalf("create books: %v", err)
	}
	return db
}

func newSQLiteRepositories(t *testing.T) (*Repository[*shelf], *Repository[*book]) {
	t.Helper()

	db := newSQLiteDB(t)
	shelves := New[*shelf](repository.NewRepository[*shelf](db, repository.ModelHandlers[*shelf]{
		NewRecord:     func() *shelf { return &shelf{} },
		GetID:         func(s *shelf) uuid.UUID { return s.ID },
		SetID:         func(s *shelf, id uuid.UUID) { s.ID = id },
		GetIdentifier: func() string { return "name" },
	}), "shelf", func() *shelf { return &shelf{} })

	books := New[*book](repository.NewRepository[*book](db, repository.ModelHandlers[*book]{
		NewRecord:     func() *book { return &book{} },
		GetID:         func(b *book) uuid.UUID { return b.ID },
		SetID:         func(b *book, id uuid.UUID) { b.ID = id },
		GetIdentifier: func() string { return "title" },
	}), "book", func() *book { return &book{} })

	return shelves, books
}

func TestSQLite_MissesAreNotErrors(t *testing.T) {
	shelves, _ := newSQLiteRepositories(t)
	ctx := context.Background()

	_, ok, err := shelves.FindOne(ctx, uuid.NewString())
	if err != nil || ok {
		t.Errorf("expected a silent miss by id, got ok=%v err=%v", ok, err)
	}

	_, ok, err = shelves.FindOneBy(ctx, map[string]any{"name": "nope"})
	if err != nil || ok {
		t.Errorf("expected a silent miss by field, got ok=%v err=%v", ok, err)
	}

	rc := shelves.RuleContext(ctx, nil)
	if err := rc.Unique("name").Validate("Fiction"); err != nil {
		t.Errorf("expected an unused name to be unique, got %v", err)
	}
}

func TestSQLite_DeleteReferencedRecord(t *testing.T) {
	shelves, books := newSQLiteRepositories(t)
	ctx := context.Background()

	s, err := shelves.Store(ctx, map[string]any{"name": "Fiction"})
	if err != nil {
		t.Fatalf("store shelf: %v", err)
	}
	if _, err := books.Store(ctx, map[string]any{"title": "Dune", "shelf_id": s.ID.String()}); err != nil {
		t.Fatalf("store book: %v", err)
	}

	var ve validation.Error
	taken := shelves.RuleContext(ctx, nil).Unique("name").Validate("Fiction")
	if !errors.As(taken, &ve) || ve.Code() != ErrNotUnique.Code() {
		t.Errorf("expected a stored name to be taken, got %v", taken)
	}
	if err := shelves.RuleContext(ctx, s).Unique("name").Validate("Fiction"); err != nil {
		t.Errorf("expected the shelf's own name to pass, got %v", err)
	}

	ok, err := shelves.Delete(ctx, s)
	if ok {
		t.Error("expected the referenced shelf to stay")
	}

	var ce *ConstraintError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConstraintError, got %v", err)
	}
	if ce.Code == "" || ce.Op != "delete" {
		t.Errorf("unexpected constraint error %+v", ce)
	}

	if _, ok, err := shelves.FindOne(ctx, s.ID.String()); err != nil || !ok {
		t.Errorf("expected the shelf to survive, got ok=%v err=%v", ok, err)
	}
}

func TestSQLite_UpdateWritesDirtyColumnsOnly(t *testing.T) {
	_, books := newSQLiteRepositories(t)
	ctx := context.Background()

	created, err := books.Store(ctx, map[string]any{"title": "Dune", "pages": 412})
	if err != nil {
		t.Fatalf("store book: %v", err)
	}
	if _, err := books.base.Update(ctx, &book{ID: created.ID, Title: "Dune", Pages: 412, IsEnabled: true, Token: "s3cret"}); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	loaded, ok, err := books.FindOne(ctx, created.ID.String())
	if err != nil || !ok {
		t.Fatalf("find book: ok=%v err=%v", ok, err)
	}

	if _, ok, err := books.Update(ctx, loaded, map[string]any{"title": "Dune Messiah", "pages": 0, "is_enabled": false}); err != nil || !ok {
		t.Fatalf("update book: ok=%v err=%v", ok, err)
	}

	reloaded, ok, err := books.FindOne(ctx, created.ID.String())
	if err != nil || !ok {
		t.Fatalf("reload book: ok=%v err=%v", ok, err)
	}
	if reloaded.Title != "Dune Messiah" {
		t.Errorf("expected title to change, got %q", reloaded.Title)
	}
	if reloaded.Pages != 0 || reloaded.IsEnabled {
		t.Errorf("expected zero values to be written, got pages=%d enabled=%v", reloaded.Pages, reloaded.IsEnabled)
	}
	if reloaded.Token != "s3cret" {
		t.Errorf("expected token to survive the update, got %q", reloaded.Token)
	}
}

func TestSQLite_UpdateVanishedRecord(t *testing.T) {
	_, books := newSQLiteRepositories(t)

	_, ok, err := books.Update(context.Background(), &book{ID: uuid.New(), Title: "Gone"}, map[string]any{"title": "Still gone"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ok {
		t.Error("expected ok=false for a record that is not stored")
	}
}
