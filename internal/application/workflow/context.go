package workflow

import (
	"context"
	"strings"

	"github.com/garyjia/temple-membership/internal/domain/entity"
)

type actorKey struct{}

// WithActor attaches the acting administrator's ID to ctx
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, strings.TrimSpace(actorID))
}

// ActorFrom returns the acting administrator, or the system actor when none is set
func ActorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return entity.SystemActor
}
