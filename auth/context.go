package auth

import (
	"context"

	"github.com/warp/hotel-backoffice/hotel"
)

type contextKey string

const principalContextKey contextKey = "principal"

func WithPrincipal(ctx context.Context, p hotel.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// FromContext returns the request principal, or nil when unauthenticated.
func FromContext(ctx context.Context) *hotel.Principal {
	p, ok := ctx.Value(principalContextKey).(hotel.Principal)
	if !ok {
		return nil
	}
	return &p
}
