package service

import (
	"context"
	"testing"
	"time"

	"github.com/almgren/publika/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionMapDefaultsAllFalse(t *testing.T) {
	rc := NewReconciler(&fakeSocialAccountRepo{}, &fakeIntegrationRepo{}, nil)

	connections, err := rc.ConnectionMap(context.Background(), 1, 1)
	require.NoError(t, err)

	assert.Len(t, connections, 7)
	for platform, connected := range connections {
		assert.False(t, connected, "expected %s to be disconnected", platform)
	}
}

func TestConnectionMapRenamesXToTwitter(t *testing.T) {
	sa := &fakeSocialAccountRepo{accounts: []*models.SocialAccount{
		{ID: 1, WorkspaceID: 1, Platform: models.PlatformTwitter, IsConnected: true},
	}}
	rc := NewReconciler(sa, &fakeIntegrationRepo{}, nil)

	connections, err := rc.ConnectionMap(context.Background(), 1, 1)
	require.NoError(t, err)

	assert.True(t, connections["twitter"])
	_, hasRawKey := connections["x"]
	assert.False(t, hasRawKey)
}

func TestConnectionMapIncludesYoutubeIntegration(t *testing.T) {
	in := &fakeIntegrationRepo{integrations: map[int64]*models.Integration{
		5: {UserID: 5, ServiceName: models.ServiceYoutube, ExpiresAt: time.Now().Add(time.Hour)},
	}}
	rc := NewReconciler(&fakeSocialAccountRepo{}, in, nil)

	connections, err := rc.ConnectionMap(context.Background(), 1, 5)
	require.NoError(t, err)

	assert.True(t, connections["youtube"])
}

func TestConnectionMapSkipsExpiredAccounts(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	sa := &fakeSocialAccountRepo{accounts: []*models.SocialAccount{
		{ID: 1, WorkspaceID: 1, Platform: models.PlatformInstagram, IsConnected: true, TokenExpiresAt: expired},
		{ID: 2, WorkspaceID: 1, Platform: models.PlatformFacebook, IsConnected: true},
	}}
	in := &fakeIntegrationRepo{integrations: map[int64]*models.Integration{
		5: {UserID: 5, ServiceName: models.ServiceYoutube, ExpiresAt: expired},
	}}
	rc := NewReconciler(sa, in, nil)

	connections, err := rc.ConnectionMap(context.Background(), 1, 5)
	require.NoError(t, err)

	assert.False(t, connections["instagram"])
	assert.False(t, connections["youtube"])
	assert.True(t, connections["facebook"])
}

func TestConnectionMapIsIdempotent(t *testing.T) {
	sa := &fakeSocialAccountRepo{accounts: []*models.SocialAccount{
		{ID: 1, WorkspaceID: 1, Platform: models.PlatformThreads, IsConnected: true},
	}}
	rc := NewReconciler(sa, &fakeIntegrationRepo{}, nil)

	first, err := rc.ConnectionMap(context.Background(), 1, 1)
	require.NoError(t, err)
	second, err := rc.ConnectionMap(context.Background(), 1, 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestInvalidateWithoutCacheIsNoop(t *testing.T) {
	rc := NewReconciler(&fakeSocialAccountRepo{}, &fakeIntegrationRepo{}, nil)
	assert.NoError(t, rc.Invalidate(context.Background(), 1, 1))
}
