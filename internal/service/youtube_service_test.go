package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	config "github.com/almgren/publika/configs"
	"github.com/almgren/publika/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestYoutubeService(base string) *youtubeService {
	svc := NewYoutubeService(config.Config{SecretKey: testSecretKey}, &fakeIntegrationRepo{}).(*youtubeService)
	svc.apiBase = base
	return svc
}

func TestYoutubePublishSuccess(t *testing.T) {
	var gotChannel, gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/communityPosts", r.URL.Path)
		require.Equal(t, "snippet", r.URL.Query().Get("part"))

		var body struct {
			Snippet struct {
				ChannelID string `json:"channelId"`
				Text      string `json:"text"`
			} `json:"snippet"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotChannel = body.Snippet.ChannelID
		gotText = body.Snippet.Text

		w.Write([]byte(`{"id":"UgkxPost"}`))
	}))
	defer server.Close()

	svc := newTestYoutubeService(server.URL)
	post := &models.SocialPost{Content: "community update"}
	cred := &ResolvedCredential{Platform: models.PlatformYoutube, AccountID: "UC123", AccountName: "My Channel", AccessToken: "yt-token"}

	outcome, err := svc.Publish(context.Background(), post, cred)
	require.NoError(t, err)

	assert.Equal(t, "UC123", gotChannel)
	assert.Equal(t, "community update", gotText)
	assert.Equal(t, "UgkxPost", outcome.ExternalRef)
	assert.Equal(t, "My Channel", outcome.PageName)
}

func TestYoutubePublishForbiddenMapsToEligibility(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"The request is not properly authorized."}}`))
	}))
	defer server.Close()

	svc := newTestYoutubeService(server.URL)
	_, err := svc.Publish(context.Background(), &models.SocialPost{Content: "x"}, &ResolvedCredential{AccessToken: "t"})

	require.Error(t, err)
	assert.Equal(t, "YouTube channel is not eligible for community posts", err.Error())
}

func TestYoutubePublishErrorMessageExtraction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"The snippet.text property is empty."}}`))
	}))
	defer server.Close()

	svc := newTestYoutubeService(server.URL)
	_, err := svc.Publish(context.Background(), &models.SocialPost{}, &ResolvedCredential{AccessToken: "t"})

	require.Error(t, err)
	assert.Equal(t, "The snippet.text property is empty.", err.Error())
}

func TestYoutubePublishStatusFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`gateway error`))
	}))
	defer server.Close()

	svc := newTestYoutubeService(server.URL)
	_, err := svc.Publish(context.Background(), &models.SocialPost{Content: "x"}, &ResolvedCredential{AccessToken: "t"})

	require.Error(t, err)
	assert.Equal(t, "YouTube returned status 502", err.Error())
}
