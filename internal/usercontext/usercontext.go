package usercontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// ExternalIDKey is the request context key for the authenticated subject.
type ExternalIDKey struct{}

// UserIDKey is the request context key for the resolved internal user ID.
type UserIDKey struct{}

// WithExternalID stores the identity provider subject in the context.
func WithExternalID(ctx context.Context, externalID string) context.Context {
	return context.WithValue(ctx, ExternalIDKey{}, strings.TrimSpace(externalID))
}

// ExternalIDFromContext returns the identity provider subject, if set.
func ExternalIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(ExternalIDKey{}).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// WithUserID stores the resolved user ID in the context.
func WithUserID(ctx context.Context, userID snowflake.ID) context.Context {
	return context.WithValue(ctx, UserIDKey{}, userID)
}

// UserIDFromContext returns the resolved user ID from context, if set.
func UserIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	switch typed := ctx.Value(UserIDKey{}).(type) {
	case snowflake.ID:
		return typed, typed != 0
	case int64:
		return snowflake.ID(typed), typed != 0
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil && parsed != 0 {
			return parsed, true
		}
	}
	return 0, false
}
