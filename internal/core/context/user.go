// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// UserContext identifies who is acting and on behalf of which company.
// Authentication itself happens upstream; the ledger only records the ids.
type UserContext struct {
	UserID    string
	CompanyID string
	Email     string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// GetCompanyID returns company ID from context or empty string.
func GetCompanyID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.CompanyID
	}
	return ""
}

// SystemUser is recorded as the actor for batch jobs.
const SystemUser = "system"

// ActorOrSystem returns the user id from context, or SystemUser when absent.
func ActorOrSystem(ctx context.Context) string {
	if uid := GetUserID(ctx); uid != "" {
		return uid
	}
	return SystemUser
}
