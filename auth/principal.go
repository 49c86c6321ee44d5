package auth

import (
	"context"

	"github.com/andrewpaige1/stakemap/models"
)

// Principal is whoever a request acts for: an authenticated user or a guest.
type Principal struct {
	ID       string
	Nickname string
	Role     models.Role
	Guest    bool
}

// AnalyticsID namespaces guest ids so they never collide with account ids.
func (p Principal) AnalyticsID() string {
	if p.Guest {
		return "guest:" + p.ID
	}
	return p.ID
}

func (p Principal) IsAdmin() bool {
	return !p.Guest && p.Role == models.RoleAdmin
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
