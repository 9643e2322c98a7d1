package capability

import "context"

type sessionIDKey struct{}

// WithSessionID tags an execution context with the owning session so
// capabilities that persist records can attribute them.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionIDFromContext returns the session ID set by the orchestrator, or
// empty when executing outside a session.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey{}).(string); ok {
		return id
	}
	return ""
}
