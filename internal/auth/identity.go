package auth

import (
	"context"

	"github.com/mamadbah2/farmops/internal/domain/models"
)

// Identity is the caller of a request, resolved once per request.
type Identity struct {
	UserID       string
	Email        string
	FullName     string
	Role         models.Role
	AssignedShed string
	Status       models.UserStatus
}

// IdentityFromProfile builds the request identity from a profile row.
func IdentityFromProfile(p models.Profile) Identity {
	return Identity{
		UserID:       p.ID,
		Email:        p.Email,
		FullName:     p.FullName,
		Role:         p.Role,
		AssignedShed: p.AssignedShed,
		Status:       p.Status,
	}
}

// DisplayName is the name stamped into recorded_by style columns.
func (i Identity) DisplayName() string {
	if i.FullName != "" {
		return i.FullName
	}
	return i.Email
}

// Is reports whether the caller holds one of roles.
func (i Identity) Is(roles ...models.Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
