package di

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goccy/go-json"
	"github.com/goliatone/go-rest-scaffold/controller"
	"github.com/goliatone/go-rest-scaffold/pkg/testsupport"
	"github.com/goliatone/go-rest-scaffold/records"
	"github.com/goliatone/go-rest-scaffold/response"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
)

// Product is the test model for integration tests
type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID         string `json:"id" bun:"id,pk"`
	Name       string `json:"name" bun:"name"`
	CategoryID *int64 `json:"category_id" bun:"category_id"`
	Status     string `json:"status" bun:"status"`
}

func (p *Product) Fillable() []string {
	return []string{"name", "category_id", "status"}
}

func (p *Product) ValidationRules(rc records.RuleContext) []*validation.KeyRules {
	name := validation.Key("name", validation.Required, validation.Length(2, 64))
	if rc.Exists() {
		name = name.Optional()
	}
	return []*validation.KeyRules{name}
}

func newProduct() *Product { return &Product{} }

func productID(p *Product) string { return p.ID }

type listReply struct {
	Status bool                `json:"status"`
	Data   []response.ListItem `json:"data"`
}

func setupResource(t *testing.T, opts ...Option) (*Container, *testsupport.MemoryRepository[*Product], *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	container, err := NewContainerWithDefaults(opts...)
	if err != nil {
		t.Fatalf("Failed to create DI container: %v", err)
	}

	base := testsupport.NewMemoryRepository(productID,
		&Product{ID: "p1", Name: "Bolt", Status: "active"},
	)

	router := gin.New()
	Mount(container, router.Group("/products"), base, "product", newProduct, nil)
	return container, base, router
}

func request(router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func listNames(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()

	var reply listReply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("Failed to decode list reply %q: %v", rec.Body.String(), err)
	}
	names := make([]string, 0, len(reply.Data))
	for _, item := range reply.Data {
		names = append(names, item.Label.(string))
	}
	return names
}

// TestEndToEndListCacheFlow covers the documented stale window: writes do
// not purge list entries, Purge does.
func TestEndToEndListCacheFlow(t *testing.T) {
	container, base, router := setupResource(t)

	first := request(router, http.MethodGet, "/products?list=1", "")
	if first.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", first.Code, first.Body.String())
	}
	if names := listNames(t, first); len(names) != 1 || names[0] != "Bolt" {
		t.Fatalf("Unexpected first list: %v", names)
	}

	created := request(router, http.MethodPost, "/products", `{"name":"Nut","category_id":0}`)
	if created.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", created.Code, created.Body.String())
	}

	stale := request(router, http.MethodGet, "/products?list=1", "")
	if names := listNames(t, stale); len(names) != 1 {
		t.Errorf("Expected cached list to stay stale after store, got %v", names)
	}
	if calls := base.Calls("List"); calls != 1 {
		t.Errorf("Expected base List to be called once, got %d calls", calls)
	}

	if hits, misses := container.Gate().Stats(); hits != 1 || misses != 1 {
		t.Errorf("Expected one cached and one computed list read, got %d and %d", hits, misses)
	}
	if err := container.Gate().Purge(context.Background(), "product"); err != nil {
		t.Fatalf("Purge() failed: %v", err)
	}

	fresh := request(router, http.MethodGet, "/products?list=1", "")
	if names := listNames(t, fresh); len(names) != 2 {
		t.Errorf("Expected purged list to be recomputed, got %v", names)
	}
	if calls := base.Calls("List"); calls != 2 {
		t.Errorf("Expected base List to be called twice, got %d calls", calls)
	}

	rows := base.Rows()
	if rows[1].CategoryID != nil {
		t.Errorf("Expected category_id 0 to be stored as null, got %v", *rows[1].CategoryID)
	}
}

func TestPageModeBypassesCache(t *testing.T) {
	_, base, router := setupResource(t)

	for i := 0; i < 3; i++ {
		rec := request(router, http.MethodGet, "/products?page=1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
	}

	if calls := base.Calls("List"); calls != 3 {
		t.Errorf("Expected every page read to reach the repository, got %d calls", calls)
	}
}

func TestContainerPolicyAndMessages(t *testing.T) {
	policy := controller.PolicyFunc(func(_ context.Context, action controller.Action, _ any) error {
		if action == controller.ActionDestroy {
			return controller.ErrForbidden
		}
		return nil
	})

	_, base, router := setupResource(t,
		WithPolicy(policy),
		WithMessages(map[string]string{"length_out_of_range": "must be 2 to 64 characters"}),
	)

	rec := request(router, http.MethodDelete, "/products/p1", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", rec.Code)
	}
	if len(base.Rows()) != 1 {
		t.Error("Forbidden delete must not remove the record")
	}

	rec = request(router, http.MethodPost, "/products", `{"name":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"name":"must be 2 to 64 characters"`) {
		t.Errorf("Expected catalog message in %s", rec.Body.String())
	}
}

func TestPersistenceErrorsAreLogged(t *testing.T) {
	logs := &bytes.Buffer{}
	_, base, router := setupResource(t, WithLogger(zerolog.New(logs)))
	base.ListErr = context.DeadlineExceeded

	rec := request(router, http.MethodGet, "/products", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}

	out := logs.String()
	for _, want := range []string{`"component":"records"`, `"component":"controller"`, "persistence error"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log output to contain %s, got %s", want, out)
		}
	}
}

func TestConcurrentListReads(t *testing.T) {
	_, base, router := setupResource(t)

	var wg sync.WaitGroup
	codes := make(chan int, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- request(router, http.MethodGet, "/products?list=1&status=active", "").Code
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		if code != http.StatusOK {
			t.Errorf("Expected 200, got %d", code)
		}
	}

	before := base.Calls("List")
	if before < 1 {
		t.Fatal("Expected at least one repository read")
	}

	request(router, http.MethodGet, "/products?list=1&status=active", "")
	if after := base.Calls("List"); after != before {
		t.Errorf("Expected a warm cache read, List calls went from %d to %d", before, after)
	}
}
