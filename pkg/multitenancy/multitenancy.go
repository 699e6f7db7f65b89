package multitenancy

import (
	"context"
	"errors"
)

type contextKey string

const orgIDKey contextKey = "org_id"

// DefaultOrgID is used when a request carries no organization
const DefaultOrgID = "default"

// ErrNoOrgID is returned when the context carries no organization ID
var ErrNoOrgID = errors.New("organization ID not found in context")

// WithOrgID returns a copy of ctx carrying the organization ID
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgIDKey, orgID)
}

// GetOrgID returns the organization ID stored in ctx
func GetOrgID(ctx context.Context) (string, error) {
	orgID, ok := ctx.Value(orgIDKey).(string)
	if !ok || orgID == "" {
		return "", ErrNoOrgID
	}
	return orgID, nil
}

// OrgIDOrDefault returns the organization ID stored in ctx or DefaultOrgID
func OrgIDOrDefault(ctx context.Context) string {
	if orgID, err := GetOrgID(ctx); err == nil {
		return orgID
	}
	return DefaultOrgID
}
