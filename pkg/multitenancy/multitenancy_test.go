package multitenancy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagus/weather-supervisor/pkg/multitenancy"
)

func TestOrgID(t *testing.T) {
	ctx := context.Background()

	_, err := multitenancy.GetOrgID(ctx)
	assert.ErrorIs(t, err, multitenancy.ErrNoOrgID)
	assert.Equal(t, multitenancy.DefaultOrgID, multitenancy.OrgIDOrDefault(ctx))

	ctx = multitenancy.WithOrgID(ctx, "acme")
	orgID, err := multitenancy.GetOrgID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "acme", orgID)
	assert.Equal(t, "acme", multitenancy.OrgIDOrDefault(ctx))
}

func TestEmptyOrgIDIsMissing(t *testing.T) {
	ctx := multitenancy.WithOrgID(context.Background(), "")
	_, err := multitenancy.GetOrgID(ctx)
	assert.Error(t, err)
}
