package service

import (
	"context"
	"net/url"
	"testing"

	config "github.com/almgren/publika/configs"
	"github.com/almgren/publika/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlatformService(t *testing.T) PlatformService {
	t.Helper()

	cfg := config.Config{
		Twitter: config.OAuthApp{
			ClientID:    "client-1",
			RedirectURI: "https://example.com/auth/twitter/callback",
		},
	}
	return NewPlatformService(cfg, &fakeSocialAccountRepo{})
}

func TestGetAuthURLTwitterCarriesPerAuthorizationChallenge(t *testing.T) {
	svc := newTestPlatformService(t)

	authURL := svc.GetAuthURL(context.Background(), models.PlatformTwitter, "signed-state", "verifier-abc")

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	params := parsed.Query()

	assert.Equal(t, "verifier-abc", params.Get("code_challenge"))
	assert.Equal(t, "plain", params.Get("code_challenge_method"))
	assert.Equal(t, "signed-state", params.Get("state"))
	assert.Equal(t, "client-1", params.Get("client_id"))
}

func TestGetAuthURLUnknownPlatform(t *testing.T) {
	svc := newTestPlatformService(t)

	authURL := svc.GetAuthURL(context.Background(), "myspace", "signed-state", "")
	assert.Equal(t, "", authURL)
}
