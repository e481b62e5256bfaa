package authz

import (
	"context"
	"net/http"

	"github.com/whilber-ai/alert-engine/internal/models"
)

type contextKey string

const (
	subscriberIDKey contextKey = "subscriber_id"
	roleKey         contextKey = "role"
)

// Identity is the authenticated caller as seen by the registry and handlers.
type Identity struct {
	SubscriberID string
	Role         models.Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// WithIdentity stores the subscriber id and role on the context.
func WithIdentity(ctx context.Context, subscriberID string, role models.Role) context.Context {
	if subscriberID != "" {
		ctx = context.WithValue(ctx, subscriberIDKey, subscriberID)
	}
	if !models.IsValidRole(role) {
		role = models.RoleSubscriber
	}
	return context.WithValue(ctx, roleKey, role)
}

func IdentityFromRequest(r *http.Request) (Identity, bool) {
	sid, ok := r.Context().Value(subscriberIDKey).(string)
	if !ok || sid == "" {
		return Identity{}, false
	}
	role, ok := r.Context().Value(roleKey).(models.Role)
	if !ok || !models.IsValidRole(role) {
		role = models.RoleSubscriber
	}
	return Identity{SubscriberID: sid, Role: role}, true
}
