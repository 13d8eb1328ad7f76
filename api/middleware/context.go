package middleware

import (
	"context"

	"github.com/angelmondragon/garage-backend/pkg/enums"
	"github.com/google/uuid"
)

// Actor is the authenticated staff member behind a request.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

type actorKey struct{}

// WithActor stores the authenticated actor on the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext reports false for anonymous requests.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok && actor.UserID != uuid.Nil
}

// WithUserID stores a staff actor for userID. Unparsable ids leave the request anonymous.
func WithUserID(ctx context.Context, userID string) context.Context {
	id, err := uuid.Parse(userID)
	if err != nil {
		return ctx
	}
	return WithActor(ctx, Actor{UserID: id, Role: enums.UserRoleStaff})
}

// UserIDFromContext returns the actor id as a string, or "" when anonymous.
func UserIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.UserID.String()
	}
	return ""
}
