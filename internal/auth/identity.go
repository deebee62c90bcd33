package auth

import "context"

// Identity is the user resolved for a request. The zero value is the
// anonymous identity.
type Identity struct {
	ID       int64
	Username string
}

func (i Identity) Anonymous() bool { return i.ID == 0 }

// Authorize reports whether the identity may act on a resource owned by
// ownerID. Ownership is the only rule: no roles, no admin override.
func Authorize(i Identity, ownerID int64) bool {
	return !i.Anonymous() && i.ID == ownerID
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, i Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, i)
}

// IdentityFrom returns the identity placed in the context by the auth
// middleware. ok is false when the request never passed through it.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	i, ok := ctx.Value(ctxKey{}).(Identity)
	return i, ok
}
