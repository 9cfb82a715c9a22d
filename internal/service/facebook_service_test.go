package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	config "github.com/almgren/publika/configs"
	"github.com/almgren/publika/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFacebookService(base string) *facebookService {
	svc := NewFacebookService(config.Config{SecretKey: testSecretKey}, &fakeSocialAccountRepo{}).(*facebookService)
	svc.graphBase = base
	return svc
}

func TestFacebookPublishPostsToPageFeed(t *testing.T) {
	var gotPath, gotMessage, gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotMessage = r.PostFormValue("message")
		gotToken = r.PostFormValue("access_token")

		w.Write([]byte(`{"id":"1234_5678"}`))
	}))
	defer server.Close()

	svc := newTestFacebookService(server.URL)
	post := &models.SocialPost{Content: "big announcement"}
	cred := &ResolvedCredential{
		Platform:    models.PlatformFacebook,
		AccountID:   "page-1",
		AccountName: "My Page",
		AccessToken: "page-token",
	}

	outcome, err := svc.Publish(context.Background(), post, cred)
	require.NoError(t, err)

	assert.Equal(t, "/page-1/feed", gotPath)
	assert.Equal(t, "big announcement", gotMessage)
	assert.Equal(t, "page-token", gotToken)
	assert.Equal(t, "1234_5678", outcome.ExternalRef)
	assert.Equal(t, "My Page", outcome.PageName)
}

func TestFacebookPublishPrefersUserMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid parameter","error_user_msg":"Your post could not be shared right now."}}`))
	}))
	defer server.Close()

	svc := newTestFacebookService(server.URL)
	_, err := svc.Publish(context.Background(), &models.SocialPost{Content: "x"}, &ResolvedCredential{AccountID: "p", AccessToken: "t"})

	require.Error(t, err)
	assert.Equal(t, "Your post could not be shared right now.", err.Error())
}

func TestFacebookPublishFallsBackToMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Unsupported post request."}}`))
	}))
	defer server.Close()

	svc := newTestFacebookService(server.URL)
	_, err := svc.Publish(context.Background(), &models.SocialPost{Content: "x"}, &ResolvedCredential{AccountID: "p", AccessToken: "t"})

	require.Error(t, err)
	assert.Equal(t, "Unsupported post request.", err.Error())
}

func TestFacebookPublishGenericFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<html>`))
	}))
	defer server.Close()

	svc := newTestFacebookService(server.URL)
	_, err := svc.Publish(context.Background(), &models.SocialPost{Content: "x"}, &ResolvedCredential{AccountID: "p", AccessToken: "t"})

	require.Error(t, err)
	assert.Equal(t, "Facebook rejected the post", err.Error())
}
