// Package actor carries the identity a store call is executed as.
//
// Row-level policies in the database decide what each actor may read and
// write, so every repository call looks up the actor from its context.
package actor

import "context"

// Role is the database role a request runs under.
type Role string

const (
	RoleAnon          Role = "anon"
	RoleAuthenticated Role = "authenticated"
	// RoleService bypasses row-level policies. Only background jobs use it.
	RoleService Role = "service"
)

// Actor identifies who performs a store call.
type Actor struct {
	Role   Role
	UserID string
}

// Anonymous returns the actor for visitors without a session.
func Anonymous() Actor {
	return Actor{Role: RoleAnon}
}

// User returns the actor for a signed-in user.
func User(id string) Actor {
	return Actor{Role: RoleAuthenticated, UserID: id}
}

// Service returns the trusted actor used by maintenance jobs.
func Service() Actor {
	return Actor{Role: RoleService}
}

// IsAuthenticated reports whether the actor is a signed-in user.
func (a Actor) IsAuthenticated() bool {
	return a.Role == RoleAuthenticated && a.UserID != ""
}

type ctxKey struct{}

// WithActor returns a copy of ctx that carries a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the actor stored in ctx, or the anonymous actor.
func FromContext(ctx context.Context) Actor {
	if a, ok := ctx.Value(ctxKey{}).(Actor); ok {
		return a
	}
	return Anonymous()
}
