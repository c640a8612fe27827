package records

import validation "github.com/go-ozzo/ozzo-validation/v4"

// Model is a record type the repository can write from request data.
// Fillable lists the JSON field names (matching the bun column names) that
// untrusted input may set. Every other field is dropped on store and update.
type Model interface {
	Fillable() []string
}

// RuleProvider is implemented by models that validate request data.
// The rules receive a RuleContext holding the record being updated, or
// nothing on store.
type RuleProvider interface {
	ValidationRules(rc RuleContext) []*validation.KeyRules
}

// StatusProvider is implemented by models with an enumerated status field.
type StatusProvider interface {
	Statuses() []string
}

// RelationProvider lists the bun relations a request may eager load
// through order_by[table]. Names match the relation's Go field name or its
// column alias, ignoring case. Models that do not implement it allow none.
type RelationProvider interface {
	Relations() []string
}
