package controller

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goccy/go-json"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-rest-scaffold/query"
	"github.com/goliatone/go-rest-scaffold/records"
	"github.com/goliatone/go-rest-scaffold/repositorycache"
	"github.com/goliatone/go-rest-scaffold/response"
	"github.com/rs/zerolog"
)

// Option configures a Controller.
type Option func(*settings)

type settings struct {
	policy   Policy
	gate     *repositorycache.ListGate
	messages map[string]string
	logger   zerolog.Logger
}

// WithPolicy enables authorization. Without it every action is allowed.
func WithPolicy(policy Policy) Option {
	return func(s *settings) {
		s.policy = policy
	}
}

// WithGate caches list mode reads through gate. Without it list reads go
// to the repository every time.
func WithGate(gate *repositorycache.ListGate) Option {
	return func(s *settings) {
		s.gate = gate
	}
}

// WithMessages sets the rule code -> message catalog used for validation
// failures.
func WithMessages(messages map[string]string) Option {
	return func(s *settings) {
		s.messages = messages
	}
}

// WithLogger sets the logger used for server errors.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// StatusItem is one entry of the statuses endpoint.
type StatusItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Controller maps the CRUD verbs of one entity onto its repository.
type Controller[T records.Model] struct {
	repo            *records.Repository[T]
	transformer     response.Transformer[T]
	listTransformer response.Transformer[T]
	settings
}

// New creates a controller over repo. transformer shapes show, store,
// update and paginated index replies; nil returns records as they are.
func New[T records.Model](repo *records.Repository[T], transformer response.Transformer[T], opts ...Option) *Controller[T] {
	if transformer == nil {
		transformer = response.Identity[T]()
	}

	c := &Controller[T]{
		repo:            repo,
		transformer:     transformer,
		listTransformer: response.List[T](),
		settings: settings{
			logger: zerolog.Nop(),
		},
	}

	for _, opt := range opts {
		opt(&c.settings)
	}

	return c
}

// Register mounts the handlers on r.
func (c *Controller[T]) Register(r gin.IRouter) {
	r.GET("", c.Index)
	r.GET("/count", c.Count)
	r.GET("/statuses", c.Statuses)
	r.GET("/:id", c.Show)
	r.POST("", c.Store)
	r.PUT("/:id", c.Update)
	r.PATCH("/:id", c.Update)
	r.DELETE("/:id", c.Destroy)
}

// Index lists records. With list=1 the result is cached and rendered
// with the list transformer; otherwise it is paginated and never cached.
func (c *Controller[T]) Index(ctx *gin.Context) {
	criteria := query.FromValues(ctx.Request.URL.Query())

	if criteria.IsList() {
		if err := c.authorize(ctx, ActionList, c.entity()); err != nil {
			c.fail(ctx, ActionList, err)
			return
		}

		items, err := c.list(ctx.Request.Context(), criteria)
		if err != nil {
			c.fail(ctx, ActionList, err)
			return
		}
		response.Collection(response.New(), items, c.listTransformer).Write(ctx)
		return
	}

	if err := c.authorize(ctx, ActionIndex, c.entity()); err != nil {
		c.fail(ctx, ActionIndex, err)
		return
	}

	result, err := c.repo.FindBy(ctx.Request.Context(), criteria)
	if err != nil {
		c.fail(ctx, ActionIndex, err)
		return
	}
	if result.Pagination == nil {
		response.Collection(response.New(), result.Items, c.transformer).Write(ctx)
		return
	}
	response.Page(response.New(), result.Items, *result.Pagination, c.transformer).Write(ctx)
}

// Show replies with one record or 404.
func (c *Controller[T]) Show(ctx *gin.Context) {
	id := ctx.Param("id")

	item, found, err := c.repo.FindOne(ctx.Request.Context(), id)
	if err != nil {
		c.fail(ctx, ActionShow, err)
		return
	}
	if !found {
		response.NotFound(id).Write(ctx)
		return
	}

	if err := c.authorize(ctx, ActionShow, item); err != nil {
		c.fail(ctx, ActionShow, err)
		return
	}

	response.Object(response.New(), item, c.transformer).Write(ctx)
}

// Store creates a record and replies 201.
func (c *Controller[T]) Store(ctx *gin.Context) {
	if err := c.authorize(ctx, ActionStore, c.entity()); err != nil {
		c.fail(ctx, ActionStore, err)
		return
	}

	data, err := readData(ctx)
	if err != nil {
		response.BadRequest().Write(ctx)
		return
	}
	if len(data) == 0 {
		response.EmptyRequest().Write(ctx)
		return
	}

	var zero T
	if ok := c.validate(ctx, ActionStore, data, zero); !ok {
		return
	}

	created, err := c.repo.Store(ctx.Request.Context(), data)
	if err != nil {
		c.fail(ctx, ActionStore, err)
		return
	}

	r := response.New().SetStatusCode(http.StatusCreated)
	response.Object(r, created, c.transformer).Write(ctx)
}

// Update applies the request data to an existing record.
func (c *Controller[T]) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	item, found, err := c.repo.FindOne(ctx.Request.Context(), id)
	if err != nil {
		c.fail(ctx, ActionUpdate, err)
		return
	}
	if !found {
		response.NotFound(id).Write(ctx)
		return
	}

	if err := c.authorize(ctx, ActionUpdate, item); err != nil {
		c.fail(ctx, ActionUpdate, err)
		return
	}

	data, err := readData(ctx)
	if err != nil {
		response.BadRequest().Write(ctx)
		return
	}
	if len(data) == 0 {
		response.EmptyRequest().Write(ctx)
		return
	}

	if ok := c.validate(ctx, ActionUpdate, data, item); !ok {
		return
	}

	updated, ok, err := c.repo.Update(ctx.Request.Context(), item, data)
	if err != nil {
		c.fail(ctx, ActionUpdate, err)
		return
	}
	if !ok {
		response.NotFound(id).Write(ctx)
		return
	}

	response.Object(response.New(), updated, c.transformer).Write(ctx)
}

// Destroy deletes a record. A record still referenced elsewhere replies
// 409 with the vendor code.
func (c *Controller[T]) Destroy(ctx *gin.Context) {
	id := ctx.Param("id")

	item, found, err := c.repo.FindOne(ctx.Request.Context(), id)
	if err != nil {
		c.fail(ctx, ActionDestroy, err)
		return
	}
	if !found {
		response.NotFound(id).Write(ctx)
		return
	}

	if err := c.authorize(ctx, ActionDestroy, item); err != nil {
		c.fail(ctx, ActionDestroy, err)
		return
	}

	deleted, err := c.repo.Delete(ctx.Request.Context(), item)
	if err != nil {
		c.fail(ctx, ActionDestroy, err)
		return
	}
	if !deleted {
		response.NotFound(id).Write(ctx)
		return
	}

	response.Deleted().Write(ctx)
}

// Count replies with the number of stored records.
func (c *Controller[T]) Count(ctx *gin.Context) {
	n, err := c.repo.Count(ctx.Request.Context())
	if err != nil {
		c.fail(ctx, ActionIndex, err)
		return
	}
	response.New().Array(n).Write(ctx)
}

// Statuses replies with the model statuses as name/value pairs.
func (c *Controller[T]) Statuses(ctx *gin.Context) {
	statuses := c.repo.Statuses()

	items := make([]StatusItem, 0, len(statuses))
	for _, status := range statuses {
		label := capitalize(status)
		items = append(items, StatusItem{Name: label, Value: label})
	}
	response.New().Array(items).Write(ctx)
}

func (c *Controller[T]) entity() Entity {
	return Entity{Name: c.repo.Entity()}
}

func (c *Controller[T]) authorize(ctx *gin.Context, action Action, subject any) error {
	if c.policy == nil {
		return nil
	}
	return c.policy.Authorize(ctx.Request.Context(), action, subject)
}

func (c *Controller[T]) list(ctx context.Context, criteria query.Criteria) ([]T, error) {
	fetch := func(ctx context.Context) ([]T, error) {
		result, err := c.repo.FindBy(ctx, criteria)
		if err != nil {
			return nil, err
		}
		return result.Items, nil
	}

	if c.gate == nil {
		return fetch(ctx)
	}
	return repositorycache.Remember(ctx, c.gate, c.repo.Entity(), map[string]any(criteria), fetch)
}

// validate runs the model rules against data. It writes the failure reply
// and returns false when data is rejected.
func (c *Controller[T]) validate(ctx *gin.Context, action Action, data map[string]any, current T) bool {
	rules := c.repo.Rules(c.repo.RuleContext(ctx.Request.Context(), current))
	if len(rules) == 0 {
		return true
	}

	err := validation.ValidateWithContext(
		ctx.Request.Context(),
		data,
		validation.Map(rules...).AllowExtraKeys(),
	)
	if err == nil {
		return true
	}

	fields, err := reduceValidation(err, c.messages)
	if err != nil {
		c.fail(ctx, action, err)
		return false
	}

	response.ValidationFailure(fields).Write(ctx)
	return false
}

func (c *Controller[T]) fail(ctx *gin.Context, action Action, err error) {
	var constraint *records.ConstraintError

	switch {
	case IsForbidden(err):
		response.Forbidden().Write(ctx)
	case errors.As(err, &constraint):
		response.Constrained(constraint.Code).Write(ctx)
	case goerrors.IsCategory(err, goerrors.CategoryBadInput):
		response.BadRequest().Write(ctx)
	default:
		c.logger.Error().
			Err(err).
			Str("entity", c.repo.Entity()).
			Str("action", string(action)).
			Msg("request failed")
		response.ServerError().Write(ctx)
	}
}

// readData decodes the request body. JSON bodies must be objects; any
// other content type is read as a form.
func readData(ctx *gin.Context) (map[string]any, error) {
	if strings.HasPrefix(ctx.ContentType(), gin.MIMEJSON) {
		return decodeJSON(ctx.Request.Body)
	}

	if err := ctx.Request.ParseForm(); err != nil {
		return nil, err
	}

	data := make(map[string]any, len(ctx.Request.PostForm))
	for key, vals := range ctx.Request.PostForm {
		switch len(vals) {
		case 0:
		case 1:
			data[key] = vals[0]
		default:
			data[key] = append([]string(nil), vals...)
		}
	}
	return data, nil
}

func decodeJSON(body io.Reader) (map[string]any, error) {
	if body == nil {
		return map[string]any{}, nil
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}

	data := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
