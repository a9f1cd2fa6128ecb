package services

import "context"

// Role orders what an identity may do. Higher roles include lower ones.
type Role int

const (
	RoleUser Role = iota + 1
	RoleAdmin
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID  uint
	Email   string
	IsAdmin bool
}

// Role returns the highest role the identity holds.
func (i Identity) Role() Role {
	if i.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// RequireRole fails with ErrUnauthenticated when there is no identity and
// with ErrForbidden when the identity's role is below role.
func RequireRole(id *Identity, role Role) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if id.Role() < role {
		return ErrForbidden
	}
	return nil
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok {
		return nil
	}
	return &id
}

func authorize(ctx context.Context, role Role) error {
	return RequireRole(IdentityFromContext(ctx), role)
}

func actorID(ctx context.Context) uint {
	if id := IdentityFromContext(ctx); id != nil {
		return id.UserID
	}
	return 0
}
