package controller

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// ErrForbidden is what a Policy returns to reject an action. Errors in
// the authz category are treated the same way.
var ErrForbidden = goerrors.New("forbidden", goerrors.CategoryAuthz)

// Action names the operation being authorized.
type Action string

const (
	ActionIndex   Action = "index"
	ActionList    Action = "list"
	ActionShow    Action = "show"
	ActionStore   Action = "store"
	ActionUpdate  Action = "update"
	ActionDestroy Action = "destroy"
)

// Entity is the subject of type level checks (index, list, store) where
// no record exists yet.
type Entity struct {
	Name string
}

// Policy decides whether action may run on subject. subject is an Entity
// for type level checks and the loaded record otherwise.
type Policy interface {
	Authorize(ctx context.Context, action Action, subject any) error
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(ctx context.Context, action Action, subject any) error

// Authorize calls f.
func (f PolicyFunc) Authorize(ctx context.Context, action Action, subject any) error {
	return f(ctx, action, subject)
}

// IsForbidden reports whether err is a policy rejection.
func IsForbidden(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrForbidden) || goerrors.IsCategory(err, goerrors.CategoryAuthz)
}
