package auth

import "context"

type contextKey string

const actorKey contextKey = "processmap-actor"

// WithActor stores the acting user on the context.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom retrieves the actor stored by WithActor.
func ActorFrom(ctx context.Context) (string, bool) {
	actor, ok := ctx.Value(actorKey).(string)
	return actor, ok && actor != ""
}
