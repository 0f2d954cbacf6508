package auth

import (
	"context"

	firebaseauth "firebase.google.com/go/v4/auth"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the signed-in customer or store administrator behind a request. Roles are
// lower-cased.
type Identity struct {
	UID   string
	Email string
	Name  string
	Roles []string

	token *firebaseauth.Token
}

// Token returns the decoded ID token the identity was built from.
func (i *Identity) Token() *firebaseauth.Token {
	if i == nil {
		return nil
	}
	return i.token
}

func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	return containsRole(i.Roles, normaliseRole(role))
}

func (i *Identity) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if i.HasRole(role) {
			return true
		}
	}
	return false
}

// IsAdmin gates the catalog, coupon, order-fulfilment and analytics admin routes.
func (i *Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}

type identityKey struct{}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok && identity != nil
}
