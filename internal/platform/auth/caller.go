package auth

import (
	"context"

	"github.com/google/uuid"
)

// Role is the capability class of a caller. Every command in the booking state
// machine dispatches on it before touching the store.
type Role string

const (
	RoleAdmin   Role = "admin"
	RolePatient Role = "patient"
)

// Caller identifies the authenticated principal behind a request.
type Caller struct {
	UserID uuid.UUID
	Role   Role
}

// IsAdmin reports whether the caller holds the admin role.
func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

// IsZero reports whether no authenticated caller is present.
func (c Caller) IsZero() bool { return c.UserID == uuid.Nil }

type contextKey string

const callerKey contextKey = "caller"

// WithCaller returns a context carrying the caller identity.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFromContext retrieves the caller set by the auth middleware.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey).(Caller)
	return caller, ok && !caller.IsZero()
}
