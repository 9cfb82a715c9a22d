package service

import (
	"context"
	"testing"
	"time"

	config "github.com/almgren/publika/configs"
	"github.com/almgren/publika/internal/models"
	"github.com/almgren/publika/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

func encryptToken(t *testing.T, token string) string {
	t.Helper()
	encrypted, err := utils.Encrypt([]byte(token), []byte(testSecretKey))
	require.NoError(t, err)
	return encrypted
}

func newTestRegistry(sa *fakeSocialAccountRepo, in *fakeIntegrationRepo) (RegistryService, *fakeReconciler, *fakeTiktokService, *fakeYoutubeService) {
	rc := &fakeReconciler{}
	tt := &fakeTiktokService{}
	yt := &fakeYoutubeService{}
	cfg := config.Config{SecretKey: testSecretKey}
	return NewRegistryService(cfg, sa, in, rc, tt, yt), rc, tt, yt
}

func TestListConnectedAccountsDeletesExpiredRows(t *testing.T) {
	expired := time.Now().Add(-time.Minute)
	sa := &fakeSocialAccountRepo{accounts: []*models.SocialAccount{
		{ID: 1, WorkspaceID: 1, Platform: models.PlatformInstagram, IsConnected: true, TokenExpiresAt: expired},
		{ID: 2, WorkspaceID: 1, Platform: models.PlatformFacebook, IsConnected: true},
	}}
	reg, _, _, _ := newTestRegistry(sa, &fakeIntegrationRepo{})

	accounts, err := reg.ListConnectedAccounts(context.Background(), 1, 1)
	require.NoError(t, err)

	require.Len(t, accounts, 1)
	assert.Equal(t, models.PlatformFacebook, accounts[0].Platform)
	assert.Equal(t, []int64{1}, sa.removedIDs)
}

func TestListConnectedAccountsSplicesYoutube(t *testing.T) {
	in := &fakeIntegrationRepo{integrations: map[int64]*models.Integration{
		7: {
			UserID:      7,
			ServiceName: models.ServiceYoutube,
			AccountName: "My Channel",
			AccessToken: encryptToken(t, "yt-token"),
			ExpiresAt:   time.Now().Add(time.Hour),
		},
	}}
	reg, _, _, _ := newTestRegistry(&fakeSocialAccountRepo{}, in)

	accounts, err := reg.ListConnectedAccounts(context.Background(), 1, 7)
	require.NoError(t, err)

	require.Len(t, accounts, 1)
	yt := accounts[0]
	assert.Equal(t, models.PlatformYoutube, yt.Platform)
	assert.Equal(t, models.ServiceYoutube, yt.AccountID)
	assert.Equal(t, "My Channel", yt.AccountName)
	assert.True(t, yt.IsConnected)
	// The Google credential never leaves the integrations table.
	assert.Empty(t, yt.AccessToken)
}

func TestListConnectedAccountsSkipsExpiredYoutube(t *testing.T) {
	in := &fakeIntegrationRepo{integrations: map[int64]*models.Integration{
		7: {
			UserID:      7,
			ServiceName: models.ServiceYoutube,
			ExpiresAt:   time.Now().Add(-time.Hour),
		},
	}}
	reg, _, _, _ := newTestRegistry(&fakeSocialAccountRepo{}, in)

	accounts, err := reg.ListConnectedAccounts(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Len(t, accounts, 0)
}

func TestDisconnectYoutubeRemovesIntegration(t *testing.T) {
	in := &fakeIntegrationRepo{integrations: map[int64]*models.Integration{
		7: {
			UserID:      7,
			ServiceName: models.ServiceYoutube,
			AccessToken: encryptToken(t, "yt-token"),
			ExpiresAt:   time.Now().Add(time.Hour),
		},
	}}
	reg, rc, _, yt := newTestRegistry(&fakeSocialAccountRepo{}, in)

	err := reg.Disconnect(context.Background(), 1, 7, models.PlatformYoutube)
	require.NoError(t, err)

	assert.Equal(t, 1, yt.revoked)
	assert.Equal(t, []int64{7}, in.removed)
	assert.Equal(t, 1, rc.invalidated)
}

func TestDisconnectTiktokRevokesEveryAccount(t *testing.T) {
	sa := &fakeSocialAccountRepo{accounts: []*models.SocialAccount{
		{ID: 1, WorkspaceID: 1, Platform: models.PlatformTiktok, AccountID: "open-id-1", IsConnected: true, AccessToken: encryptToken(t, "tt-1")},
		{ID: 2, WorkspaceID: 1, Platform: models.PlatformTiktok, AccountID: "open-id-2", IsConnected: true, AccessToken: encryptToken(t, "tt-2")},
	}}
	reg, rc, tt, _ := newTestRegistry(sa, &fakeIntegrationRepo{})

	err := reg.Disconnect(context.Background(), 1, 7, models.PlatformTiktok)
	require.NoError(t, err)

	assert.Equal(t, []string{"open-id-1", "open-id-2"}, tt.revoked)
	assert.Equal(t, []string{models.PlatformTiktok}, sa.removedPlatform)
	assert.Len(t, sa.accounts, 0)
	assert.Equal(t, 1, rc.invalidated)
}

func TestDisconnectFacebookRemovesRowsWithoutRevoke(t *testing.T) {
	sa := &fakeSocialAccountRepo{accounts: []*models.SocialAccount{
		{ID: 1, WorkspaceID: 1, Platform: models.PlatformFacebook, AccountID: "page-1", IsConnected: true},
	}}
	reg, _, tt, _ := newTestRegistry(sa, &fakeIntegrationRepo{})

	err := reg.Disconnect(context.Background(), 1, 7, models.PlatformFacebook)
	require.NoError(t, err)

	assert.Empty(t, tt.revoked)
	assert.Len(t, sa.accounts, 0)
}
