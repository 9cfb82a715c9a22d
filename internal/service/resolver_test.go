package service

import (
	"context"
	"testing"
	"time"

	config "github.com/almgren/publika/configs"
	"github.com/almgren/publika/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(sa *fakeSocialAccountRepo, in *fakeIntegrationRepo) TokenResolver {
	return NewTokenResolver(config.Config{SecretKey: testSecretKey}, sa, in)
}

func TestResolveFailsWithoutPageSelection(t *testing.T) {
	r := newTestResolver(&fakeSocialAccountRepo{}, &fakeIntegrationRepo{})

	for platform, label := range map[string]string{
		models.PlatformFacebook:  "Facebook",
		models.PlatformInstagram: "Instagram",
		models.PlatformThreads:   "Threads",
	} {
		_, err := r.Resolve(context.Background(), 1, 1, platform, "")
		require.Error(t, err)
		assert.Equal(t, "no "+label+" page selected", err.Error())
	}
}

func TestResolveUnknownPage(t *testing.T) {
	sa := &fakeSocialAccountRepo{accounts: []*models.SocialAccount{
		{ID: 1, WorkspaceID: 1, Platform: models.PlatformFacebook, AccountID: "page-1", IsConnected: true},
	}}
	r := newTestResolver(sa, &fakeIntegrationRepo{})

	_, err := r.Resolve(context.Background(), 1, 1, models.PlatformFacebook, "page-2")
	require.Error(t, err)
	assert.Equal(t, "selected Facebook page is not connected", err.Error())
}

func TestResolveExpiredPageToken(t *testing.T) {
	sa := &fakeSocialAccountRepo{accounts: []*models.SocialAccount{
		{
			ID: 1, WorkspaceID: 1, Platform: models.PlatformInstagram,
			AccountID: "ig-1", IsConnected: true,
			TokenExpiresAt: time.Now().Add(-time.Minute),
		},
	}}
	r := newTestResolver(sa, &fakeIntegrationRepo{})

	_, err := r.Resolve(context.Background(), 1, 1, models.PlatformInstagram, "ig-1")
	require.Error(t, err)
	assert.Equal(t, "Instagram access token has expired, please reconnect", err.Error())
}

func TestResolvePageScopedHappyPath(t *testing.T) {
	sa := &fakeSocialAccountRepo{accounts: []*models.SocialAccount{
		{
			ID: 1, WorkspaceID: 1, Platform: models.PlatformFacebook,
			AccountID: "page-1", AccountName: "My Page", IsConnected: true,
			AccessToken: encryptToken(t, "fb-page-token"),
		},
	}}
	r := newTestResolver(sa, &fakeIntegrationRepo{})

	cred, err := r.Resolve(context.Background(), 1, 1, models.PlatformFacebook, "page-1")
	require.NoError(t, err)

	assert.Equal(t, models.PlatformFacebook, cred.Platform)
	assert.Equal(t, "page-1", cred.AccountID)
	assert.Equal(t, "My Page", cred.AccountName)
	assert.Equal(t, "fb-page-token", cred.AccessToken)
}

func TestResolveYoutubeNotConnected(t *testing.T) {
	r := newTestResolver(&fakeSocialAccountRepo{}, &fakeIntegrationRepo{})

	_, err := r.Resolve(context.Background(), 1, 1, models.PlatformYoutube, "")
	require.Error(t, err)
	assert.Equal(t, "YouTube account not connected or access token not found", err.Error())
}

func TestResolveYoutubeFromIntegrations(t *testing.T) {
	in := &fakeIntegrationRepo{integrations: map[int64]*models.Integration{
		7: {
			UserID:      7,
			ServiceName: models.ServiceYoutube,
			AccountID:   "UC123",
			AccountName: "My Channel",
			AccessToken: encryptToken(t, "yt-token"),
			ExpiresAt:   time.Now().Add(time.Hour),
		},
	}}
	r := newTestResolver(&fakeSocialAccountRepo{}, in)

	cred, err := r.Resolve(context.Background(), 1, 7, models.PlatformYoutube, "")
	require.NoError(t, err)

	assert.Equal(t, "UC123", cred.AccountID)
	assert.Equal(t, "yt-token", cred.AccessToken)
}

func TestResolveTwitterNotConnected(t *testing.T) {
	r := newTestResolver(&fakeSocialAccountRepo{}, &fakeIntegrationRepo{})

	_, err := r.Resolve(context.Background(), 1, 1, models.PlatformTwitter, "")
	require.Error(t, err)
	assert.Equal(t, "X account not connected", err.Error())
}

func TestResolveTwitterHappyPath(t *testing.T) {
	sa := &fakeSocialAccountRepo{accounts: []*models.SocialAccount{
		{
			ID: 1, WorkspaceID: 1, Platform: models.PlatformTwitter,
			AccountID: "12345", AccountName: "someone", IsConnected: true,
			AccessToken:    encryptToken(t, "x-token"),
			TokenExpiresAt: time.Now().Add(time.Hour),
		},
	}}
	r := newTestResolver(sa, &fakeIntegrationRepo{})

	cred, err := r.Resolve(context.Background(), 1, 1, models.PlatformTwitter, "")
	require.NoError(t, err)
	assert.Equal(t, "x-token", cred.AccessToken)
}

func TestResolveUnsupportedPlatform(t *testing.T) {
	r := newTestResolver(&fakeSocialAccountRepo{}, &fakeIntegrationRepo{})

	_, err := r.Resolve(context.Background(), 1, 1, models.PlatformLinkedin, "")
	require.Error(t, err)
	assert.Equal(t, "publishing to LinkedIn is not supported", err.Error())
}
