package grantkit

import "context"

// Context keys for GrantKit values.
type contextKey string

const (
	contextKeyUserID    contextKey = "grantkit:user_id"
	contextKeyActorID   contextKey = "grantkit:actor_id"
	contextKeyRequestID contextKey = "grantkit:request_id"
	contextKeyChecker   contextKey = "grantkit:checker"
)

// WithUserID adds a user ID to the context.
// This is the subject whose privileges are being checked.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKeyUserID, userID)
}

// GetUserID retrieves the user ID from context.
// Returns empty string if not set.
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(contextKeyUserID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithActorID adds an actor ID to the context.
// This is the user performing a mutation and recorded as the grantor.
// Often the same as the user ID, but can differ for admin actions.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, contextKeyActorID, actorID)
}

// GetActorID retrieves the actor ID from context.
// Falls back to the user ID if the actor ID is not explicitly set.
func GetActorID(ctx context.Context) string {
	if v := ctx.Value(contextKeyActorID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return GetUserID(ctx)
}

// MustGetActorID retrieves the actor ID from context.
// Panics if not set.
func MustGetActorID(ctx context.Context) string {
	actorID := GetActorID(ctx)
	if actorID == "" {
		panic("grantkit: actor ID not in context")
	}
	return actorID
}

// WithRequestID adds a request ID to the context for correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(contextKeyRequestID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithChecker adds a Checker to the context.
// This is set by middleware and can be retrieved in handlers.
func WithChecker(ctx context.Context, checker *Checker) context.Context {
	return context.WithValue(ctx, contextKeyChecker, checker)
}

// GetChecker retrieves the Checker from context.
// Returns nil if not set.
func GetChecker(ctx context.Context) *Checker {
	if v := ctx.Value(contextKeyChecker); v != nil {
		if c, ok := v.(*Checker); ok {
			return c
		}
	}
	return nil
}

// FromContext retrieves the Checker from context.
// Alias for GetChecker for convenience.
func FromContext(ctx context.Context) *Checker {
	return GetChecker(ctx)
}
