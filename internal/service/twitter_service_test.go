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

func newTestTwitterService(base string) *twitterService {
	svc := NewTwitterService(config.Config{SecretKey: testSecretKey}, &fakeSocialAccountRepo{}).(*twitterService)
	svc.apiBase = base
	return svc
}

func TestTwitterPublishSuccess(t *testing.T) {
	var gotAuth, gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/tweets", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotText = body["text"]

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"1750000000000000000","text":"hello"}}`))
	}))
	defer server.Close()

	svc := newTestTwitterService(server.URL)
	post := &models.SocialPost{Content: "hello"}
	cred := &ResolvedCredential{Platform: models.PlatformTwitter, AccountName: "someone", AccessToken: "x-token"}

	outcome, err := svc.Publish(context.Background(), post, cred)
	require.NoError(t, err)

	assert.Equal(t, "Bearer x-token", gotAuth)
	assert.Equal(t, "hello", gotText)
	assert.Equal(t, "1750000000000000000", outcome.ExternalRef)
	assert.Equal(t, "someone", outcome.PageName)
}

func TestTwitterPublishErrorDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"title":"Forbidden","detail":"You are not permitted to create an exact duplicate Tweet.","status":403}`))
	}))
	defer server.Close()

	svc := newTestTwitterService(server.URL)
	_, err := svc.Publish(context.Background(), &models.SocialPost{Content: "dup"}, &ResolvedCredential{AccessToken: "t"})

	require.Error(t, err)
	assert.Equal(t, "You are not permitted to create an exact duplicate Tweet.", err.Error())
}

func TestTwitterPublishErrorTitleFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"title":"Unauthorized"}`))
	}))
	defer server.Close()

	svc := newTestTwitterService(server.URL)
	_, err := svc.Publish(context.Background(), &models.SocialPost{Content: "x"}, &ResolvedCredential{AccessToken: "t"})

	require.Error(t, err)
	assert.Equal(t, "Unauthorized", err.Error())
}

func TestTwitterPublishErrorStatusFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	svc := newTestTwitterService(server.URL)
	_, err := svc.Publish(context.Background(), &models.SocialPost{Content: "x"}, &ResolvedCredential{AccessToken: "t"})

	require.Error(t, err)
	assert.Equal(t, "X returned status 500", err.Error())
}
