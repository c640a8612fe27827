package main

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-rest-scaffold/records"
	"github.com/goliatone/go-rest-scaffold/response"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var statuses = []string{"draft", "active", "archived"}

// Category groups products. Products reference it through category_id, so
// a category in use cannot be deleted.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Name        string     `bun:"name,notnull,unique" json:"name"`
	Description *string    `bun:"description" json:"description"`
	IsDefault   int        `bun:"is_default,notnull,default:0" json:"is_default"`
	Status      string     `bun:"status,notnull,default:'draft'" json:"status"`
	IsEnabled   bool       `bun:"is_enabled,notnull,default:true" json:"is_enabled"`
	DisabledAt  *time.Time `bun:"disabled_at" json:"disabled_at"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

func newCategory() *Category { return &Category{} }

func (c *Category) Fillable() []string {
	return []string{"name", "description", "is_default", "status", "is_enabled", "disabled_at"}
}

func (c *Category) Statuses() []string { return statuses }

func (c *Category) ValidationRules(rc records.RuleContext) []*validation.KeyRules {
	name := validation.Key("name", validation.Required, validation.Length(2, 120), rc.Unique("name"))
	if rc.Exists() {
		name = name.Optional()
	}
	return []*validation.KeyRules{
		name,
		validation.Key("status", validation.In(anySlice(statuses)...)).Optional(),
	}
}

// Product belongs to an optional category.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Name        string     `bun:"name,notnull" json:"name"`
	Description *string    `bun:"description" json:"description"`
	SKU         string     `bun:"sku,notnull,unique" json:"sku"`
	Price       int64      `bun:"price,notnull,default:0" json:"price"`
	CategoryID  *uuid.UUID `bun:"category_id,type:uuid" json:"category_id"`
	Category    *Category  `bun:"rel:belongs-to,join:category_id=id" json:"category,omitempty"`
	Status      string     `bun:"status,notnull,default:'draft'" json:"status"`
	IsEnabled   bool       `bun:"is_enabled,notnull,default:true" json:"is_enabled"`
	DisabledAt  *time.Time `bun:"disabled_at" json:"disabled_at"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

func newProduct() *Product { return &Product{} }

func (p *Product) Fillable() []string {
	return []string{"name", "description", "sku", "price", "category_id", "status", "is_enabled", "disabled_at"}
}

func (p *Product) Statuses() []string { return statuses }

// Relations names the bun relation field; requests may use "category".
func (p *Product) Relations() []string { return []string{"Category"} }

func (p *Product) ValidationRules(rc records.RuleContext) []*validation.KeyRules {
	name := validation.Key("name", validation.Required, validation.Length(2, 200))
	sku := validation.Key("sku", validation.Required, validation.Length(3, 32), rc.Unique("sku"))
	if rc.Exists() {
		name = name.Optional()
		sku = sku.Optional()
	}
	return []*validation.KeyRules{
		name,
		sku,
		validation.Key("status", validation.In(anySlice(statuses)...)).Optional(),
	}
}

// productTransformer hides the raw foreign key and inlines the category
// name when it was eager loaded.
func productTransformer() response.Transformer[*Product] {
	return response.TransformFunc[*Product](func(p *Product) any {
		out := map[string]any{
			"id":          p.ID,
			"name":        p.Name,
			"description": p.Description,
			"sku":         p.SKU,
			"price":       p.Price,
			"status":      p.Status,
			"is_enabled":  p.IsEnabled,
			"disabled_at": p.DisabledAt,
			"created_at":  p.CreatedAt,
			"category":    nil,
		}
		if p.Category != nil {
			out["category"] = map[string]any{"id": p.Category.ID, "name": p.Category.Name}
		}
		return out
	})
}

func categoryHandlers() repository.ModelHandlers[*Category] {
	return repository.ModelHandlers[*Category]{
		NewRecord:     newCategory,
		GetID:         func(c *Category) uuid.UUID { return c.ID },
		SetID:         func(c *Category, id uuid.UUID) { c.ID = id },
		GetIdentifier: func() string { return "name" },
	}
}

func productHandlers() repository.ModelHandlers[*Product] {
	return repository.ModelHandlers[*Product]{
		NewRecord:     newProduct,
		GetID:         func(p *Product) uuid.UUID { return p.ID },
		SetID:         func(p *Product, id uuid.UUID) { p.ID = id },
		GetIdentifier: func() string { return "sku" },
	}
}

func anySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
