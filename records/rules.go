package records

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ErrNotUnique is returned by the Unique rule.
var ErrNotUnique = validation.NewError("validation_unique", "has already been taken")

// RuleContext is handed to RuleProvider.ValidationRules. It carries the
// record being updated, if any, and lookups that rules may need.
type RuleContext struct {
	ctx       context.Context
	current   any
	currentID string
	lookup    func(ctx context.Context, field string, value any) (string, bool, error)
}

// Current returns the record being updated, or nil on store.
func (rc RuleContext) Current() any {
	return rc.current
}

// Exists reports whether the rules run against an existing record.
func (rc RuleContext) Exists() bool {
	return rc.currentID != ""
}

// Unique returns a rule that fails when another record already holds the
// value in field. The record being updated does not count.
func (rc RuleContext) Unique(field string) validation.Rule {
	return validation.By(func(value any) error {
		value, isNil := validation.Indirect(value)
		if isNil || validation.IsEmpty(value) || rc.lookup == nil {
			return nil
		}

		ctx := rc.ctx
		if ctx == nil {
			ctx = context.Background()
		}

		id, found, err := rc.lookup(ctx, field, value)
		if err != nil {
			return validation.NewInternalError(err)
		}
		if found && id != rc.currentID {
			return ErrNotUnique
		}
		return nil
	})
}
