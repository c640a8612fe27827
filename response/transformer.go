package response

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Transformer maps a record to its public representation.
type Transformer[T any] interface {
	Transform(item T) any
}

// TransformFunc adapts a function to Transformer.
type TransformFunc[T any] func(item T) any

// Transform calls f(item).
func (f TransformFunc[T]) Transform(item T) any {
	return f(item)
}

// Identity returns records unchanged; their JSON tags decide the output.
func Identity[T any]() Transformer[T] {
	return TransformFunc[T](func(item T) any { return item })
}

// ListItem is the dropdown representation produced by the list transformer.
type ListItem struct {
	Name      any `json:"name"`
	Label     any `json:"label"`
	Value     any `json:"value"`
	IsDefault any `json:"is_default"`
}

// List returns the transformer used for list mode reads. It reads the
// record's name, description, id and is_default JSON fields:
// label is the first non null of description, name and id, else "-";
// is_default falls back to 0.
func List[T any]() Transformer[T] {
	return TransformFunc[T](func(item T) any {
		fields := fieldsOf(item)
		return ListItem{
			Name:      fields["name"],
			Label:     coalesce("-", fields["description"], fields["name"], fields["id"]),
			Value:     fields["id"],
			IsDefault: coalesce(0, fields["is_default"]),
		}
	})
}

func transformOne[T any](item T, t Transformer[T]) any {
	if t == nil {
		return item
	}
	return t.Transform(item)
}

func transformMany[T any](items []T, t Transformer[T]) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = transformOne(item, t)
	}
	return out
}

func fieldsOf(item any) map[string]any {
	raw, err := json.Marshal(item)
	if err != nil {
		return map[string]any{}
	}

	fields := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return map[string]any{}
	}
	return fields
}

func coalesce(fallback any, values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return fallback
}
