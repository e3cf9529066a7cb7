package shared

import "context"

type actorContextKey struct{}

// Actor identifies the authenticated employee on whose behalf a request
// runs. Authentication itself lives outside this service; the surrounding
// deployment injects the employee id through the X-Employee-ID header.
type Actor struct {
	EmployeeID int64
}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context. The zero Actor is
// returned when none is set.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
