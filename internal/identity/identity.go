// Package identity carries the authenticated principal through a request.
// The owner id stored here always comes from a verified credential; nothing in
// the catalog accepts an owner id from request input.
package identity

import (
	"context"
	"errors"
)

// ErrUnauthenticated means no verified identity is attached to the request.
var ErrUnauthenticated = errors.New("unauthenticated")

type ownerKey struct{}

// WithOwner returns a copy of ctx carrying the verified owner id.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// OwnerFromContext returns the verified owner id or ErrUnauthenticated.
func OwnerFromContext(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", ErrUnauthenticated
	}
	owner, ok := ctx.Value(ownerKey{}).(string)
	if !ok || owner == "" {
		return "", ErrUnauthenticated
	}
	return owner, nil
}
