package controller

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-sql-driver/mysql"
	"github.com/goccy/go-json"
	"github.com/goliatone/go-rest-scaffold/cache"
	"github.com/goliatone/go-rest-scaffold/pkg/testsupport"
	"github.com/goliatone/go-rest-scaffold/query"
	"github.com/goliatone/go-rest-scaffold/records"
	"github.com/goliatone/go-rest-scaffold/repositorycache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type gadget struct {
	bun.BaseModel `bun:"table:gadgets"`

	ID          string     `bun:"id,pk" json:"id"`
	Name        string     `bun:"name" json:"name"`
	Description *string    `bun:"description" json:"description"`
	Status      string     `bun:"status" json:"status"`
	IsEnabled   bool       `bun:"is_enabled" json:"is_enabled"`
	DisabledAt  *time.Time `bun:"disabled_at" json:"disabled_at"`
}

func (g *gadget) Fillable() []string {
	return []string{"name", "description", "status", "is_enabled", "disabled_at"}
}

func (g *gadget) Statuses() []string {
	return []string{"draft", "active"}
}

func (g *gadget) ValidationRules(rc records.RuleContext) []*validation.KeyRules {
	name := validation.Key("name", validation.Required, rc.Unique("name"))
	if rc.Exists() {
		name = name.Optional()
	}
	return []*validation.KeyRules{
		name,
		validation.Key("status", validation.In("draft", "active")).Optional(),
	}
}

func gadgetID(g *gadget) string { return g.ID }

type envelope struct {
	Status     bool              `json:"status"`
	Data       json.RawMessage   `json:"data"`
	Message    string            `json:"message"`
	Pagination *query.Pagination `json:"pagination"`
}

type fixture struct {
	base   *testsupport.MemoryRepository[*gadget]
	router *gin.Engine
	logs   *bytes.Buffer
}

func newFixture(t *testing.T, opts []Option, seed ...*gadget) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	base := testsupport.NewMemoryRepository(gadgetID, seed...)
	repo := records.New[*gadget](base, "gadget", func() *gadget { return &gadget{} },
		records.WithIDGenerator(func() string { return "generated-1" }),
	)

	service, err := cache.NewCacheService(cache.DefaultConfig())
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	all := append([]Option{
		WithGate(repositorycache.New(service, nil)),
		WithLogger(zerolog.New(logs)),
	}, opts...)

	router := gin.New()
	New[*gadget](repo, nil, all...).Register(router.Group("/gadgets"))

	return &fixture{base: base, router: router, logs: logs}
}

func (f *fixture) do(t *testing.T, method, target string, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func seedGadgets() []*gadget {
	desc := "Desk lamp"
	return []*gadget{
		{ID: "g1", Name: "Lamp", Description: &desc, Status: "active", IsEnabled: true},
		{ID: "g2", Name: "Chair", Status: "draft", IsEnabled: true},
	}
}

func TestIndexListModeIsCached(t *testing.T) {
	f := newFixture(t, nil, seedGadgets()...)

	_, first := f.do(t, http.MethodGet, "/gadgets?list=1&status=active", "")
	_, second := f.do(t, http.MethodGet, "/gadgets?list=1&status=active", "")

	assert.Equal(t, 1, f.base.Calls("List"), "second identical list read must be served from cache")
	assert.JSONEq(t, string(first.Data), string(second.Data))
	assert.Nil(t, first.Pagination)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(first.Data, &items))
	require.Len(t, items, 2)
	assert.Equal(t, "Lamp", items[0]["name"])
	assert.Equal(t, "Desk lamp", items[0]["label"])
	assert.Equal(t, "g1", items[0]["value"])
	assert.Equal(t, "Chair", items[1]["label"])

	f.do(t, http.MethodGet, "/gadgets?list=1&status=draft", "")
	assert.Equal(t, 2, f.base.Calls("List"), "different params must miss")
}

func TestIndexPageModeIsNotCached(t *testing.T) {
	f := newFixture(t, nil, seedGadgets()...)

	rec, env := f.do(t, http.MethodGet, "/gadgets?per_page=10", "")
	f.do(t, http.MethodGet, "/gadgets?per_page=10", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, f.base.Calls("List"))
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 2, env.Pagination.Total)
	assert.Equal(t, 10, env.Pagination.PerPage)

	var items []gadget
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 2)
}

func TestIndexRepositoryFailureIsLogged(t *testing.T) {
	f := newFixture(t, nil)
	f.base.ListErr = errors.New("connection reset")

	rec, env := f.do(t, http.MethodGet, "/gadgets", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "server_error", env.Message)
	assert.Contains(t, f.logs.String(), "request failed")
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestShow(t *testing.T) {
	f := newFixture(t, nil, seedGadgets()...)

	rec, env := f.do(t, http.MethodGet, "/gadgets/g2", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var item gadget
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, "Chair", item.Name)

	rec, env = f.do(t, http.MethodGet, "/gadgets/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Status)
	assert.Equal(t, "not_found", env.Message)
	assert.JSONEq(t, `{"id":"nope"}`, string(env.Data))
}

func TestStoreCreatesWithGeneratedID(t *testing.T) {
	f := newFixture(t, nil)

	rec, env := f.do(t, http.MethodPost, "/gadgets", `{"id":"client-id","name":"Lamp","status":"draft"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, env.Status)

	var item gadget
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, "generated-1", item.ID)
	assert.Equal(t, "Lamp", item.Name)

	rows := f.base.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "generated-1", rows[0].ID)
}

func TestStoreFromForm(t *testing.T) {
	f := newFixture(t, nil)

	form := url.Values{"name": {"Desk"}, "status": {"active"}}
	req := httptest.NewRequest(http.MethodPost, "/gadgets", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, f.base.Rows(), 1)
	assert.Equal(t, "Desk", f.base.Rows()[0].Name)
}

func TestStoreRejectsEmptyAndMalformedBodies(t *testing.T) {
	f := newFixture(t, nil)

	rec, env := f.do(t, http.MethodPost, "/gadgets", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty_request", env.Message)
	assert.JSONEq(t, `[]`, string(env.Data))

	rec, env = f.do(t, http.MethodPost, "/gadgets", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", env.Message)

	assert.Equal(t, 0, f.base.Calls("Create"))
}

func TestStoreValidationFailure(t *testing.T) {
	f := newFixture(t, nil)

	rec, env := f.do(t, http.MethodPost, "/gadgets", `{"name":"","status":"bogus"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Status)
	assert.Equal(t, "validation_error", env.Message)
	assert.JSONEq(t, `{"name":"required","status":"in_invalid"}`, string(env.Data))
	assert.Equal(t, 0, f.base.Calls("Create"))
}

func TestStoreValidationUsesMessageCatalog(t *testing.T) {
	f := newFixture(t, []Option{WithMessages(map[string]string{
		"required":              "must be present",
		"validation_in_invalid": "is not an allowed value",
	})})

	_, env := f.do(t, http.MethodPost, "/gadgets", `{"name":"","status":"bogus"}`)

	assert.JSONEq(t, `{"name":"must be present","status":"is not an allowed value"}`, string(env.Data))
}

func TestStoreRejectsDuplicateName(t *testing.T) {
	f := newFixture(t, nil, seedGadgets()...)
	f.base.GetFn = func(rows []*gadget) (*gadget, bool) {
		return rows[0], true
	}

	rec, env := f.do(t, http.MethodPost, "/gadgets", `{"name":"Lamp"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"name":"unique"}`, string(env.Data))
}

func TestUpdate(t *testing.T) {
	f := newFixture(t, nil, seedGadgets()...)
	f.base.GetFn = func(rows []*gadget) (*gadget, bool) {
		return rows[0], true
	}

	rec, env := f.do(t, http.MethodPut, "/gadgets/g1", `{"name":"Lamp","status":"draft","id":"hijack"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var item gadget
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, "g1", item.ID)
	assert.Equal(t, "draft", item.Status)
	assert.Equal(t, 1, f.base.Calls("Update"))
}

func TestUpdateEmptyBodyDoesNotPersist(t *testing.T) {
	f := newFixture(t, nil, seedGadgets()...)

	rec, env := f.do(t, http.MethodPatch, "/gadgets/g1", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty_request", env.Message)
	assert.Equal(t, 0, f.base.Calls("Update"))
}

func TestUpdateMissingRecord(t *testing.T) {
	f := newFixture(t, nil)

	rec, env := f.do(t, http.MethodPut, "/gadgets/ghost", `{"name":"x"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"id":"ghost"}`, string(env.Data))
}

func TestDestroy(t *testing.T) {
	f := newFixture(t, nil, seedGadgets()...)

	rec, env := f.do(t, http.MethodDelete, "/gadgets/g1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Status)
	assert.Equal(t, "deleted", env.Message)
	assert.Len(t, f.base.Rows(), 1)

	rec, env = f.do(t, http.MethodDelete, "/gadgets/g1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"id":"g1"}`, string(env.Data))
}

func TestDestroyReferencedRecord(t *testing.T) {
	f := newFixture(t, nil, seedGadgets()...)
	f.base.DeleteErr = &mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"}

	rec, env := f.do(t, http.MethodDelete, "/gadgets/g1", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "constrained", env.Message)
	assert.JSONEq(t, `{"code":"1451"}`, string(env.Data))
	assert.Empty(t, f.logs.String())
}

func TestPolicy(t *testing.T) {
	type check struct {
		action  Action
		subject any
	}
	var checks []check

	policy := PolicyFunc(func(_ context.Context, action Action, subject any) error {
		checks = append(checks, check{action, subject})
		if action == ActionStore || action == ActionDestroy {
			return ErrForbidden
		}
		return nil
	})

	f := newFixture(t, []Option{WithPolicy(policy)}, seedGadgets()...)

	rec, env := f.do(t, http.MethodPost, "/gadgets", `{"name":"Lamp"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", env.Message)

	rec, _ = f.do(t, http.MethodDelete, "/gadgets/g2", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Len(t, f.base.Rows(), 2)

	f.do(t, http.MethodGet, "/gadgets?list=1", "")
	f.do(t, http.MethodGet, "/gadgets", "")
	f.do(t, http.MethodGet, "/gadgets/g1", "")

	require.Len(t, checks, 5)
	assert.Equal(t, check{ActionStore, Entity{Name: "gadget"}}, checks[0])
	assert.Equal(t, ActionDestroy, checks[1].action)
	assert.Equal(t, "g2", checks[1].subject.(*gadget).ID)
	assert.Equal(t, check{ActionList, Entity{Name: "gadget"}}, checks[2])
	assert.Equal(t, check{ActionIndex, Entity{Name: "gadget"}}, checks[3])
	assert.Equal(t, ActionShow, checks[4].action)
	assert.Equal(t, 0, f.base.Calls("Create"))
}

func TestCountAndStatuses(t *testing.T) {
	f := newFixture(t, nil, seedGadgets()...)

	_, env := f.do(t, http.MethodGet, "/gadgets/count", "")
	assert.JSONEq(t, `2`, string(env.Data))

	_, env = f.do(t, http.MethodGet, "/gadgets/statuses", "")
	assert.JSONEq(t, `[{"name":"Draft","value":"Draft"},{"name":"Active","value":"Active"}]`, string(env.Data))
}

func TestCapitalize(t *testing.T) {
	tests := map[string]string{
		"":       "",
		"active": "Active",
		"Draft":  "Draft",
		"éclair": "Éclair",
	}
	for in, want := range tests {
		if got := capitalize(in); got != want {
			t.Errorf("capitalize(%q) = %q, want %q", in, got, want)
		}
	}
}
