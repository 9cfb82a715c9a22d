package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	config "github.com/almgren/publika/configs"
	"github.com/almgren/publika/internal/models"
	"github.com/almgren/publika/internal/repository"
	"github.com/almgren/publika/internal/transfer"
	"github.com/almgren/publika/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const youtubeAPIBase = "https://youtube.googleapis.com/youtube/v3"

// YoutubeService is the odd one out: its credential lives in the shared
// integrations table because the OAuth grant covers all Google services,
// not just YouTube.
type YoutubeService interface {
	Publisher
	YoutubeCallback(ctx context.Context, code string, userID int64) error
	RefreshYoutubeToken(ctx context.Context, userID int64, refreshToken string) error
	RevokeAccess(accessToken string) error
}

type youtubeService struct {
	cfg     config.Config
	in      repository.IntegrationRepository
	apiBase string
}

func NewYoutubeService(cfg config.Config, in repository.IntegrationRepository) YoutubeService {
	return &youtubeService{
		cfg:     cfg,
		in:      in,
		apiBase: youtubeAPIBase,
	}
}

func (s *youtubeService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.Google.ClientID,
		ClientSecret: s.cfg.Google.ClientSecret,
		RedirectURL:  s.cfg.Google.RedirectURI,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
			"https://www.googleapis.com/auth/youtube",
		},
		Endpoint: google.Endpoint,
	}
}

func (s *youtubeService) YoutubeCallback(ctx context.Context, code string, userID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	oauth2Config := s.oauthConfig()
	if oauth2Config.ClientID == "" || oauth2Config.ClientSecret == "" || oauth2Config.RedirectURL == "" {
		err := errors.New("OAuth2 configuration is incomplete")
		slog.Info(err.Error())
		return err
	}

	token, err := oauth2Config.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	if token.RefreshToken == "" {
		err = errors.New("refresh token is empty")
		slog.Info(err.Error())
		return err
	}

	client := oauth2Config.Client(ctx, token)
	channelID, channelTitle, err := s.lookupChannel(ctx, client)
	if err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	encryptedRefreshToken, err := utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	integration := &models.Integration{
		UserID:       userID,
		ServiceName:  models.ServiceYoutube,
		AccessToken:  encryptedAccessToken,
		RefreshToken: encryptedRefreshToken,
		ExpiresAt:    token.Expiry,
		AccountName:  channelTitle,
		AccountID:    channelID,
	}

	_, err = s.in.Upsert(ctx, integration)
	return err
}

func (s *youtubeService) lookupChannel(ctx context.Context, client *http.Client) (string, string, error) {
	service, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		slog.Info(err.Error())
		return "", "", fmt.Errorf("error creating YouTube client: %w", err)
	}

	resp, err := service.Channels.List([]string{"id", "snippet"}).Mine(true).Do()
	if err != nil {
		slog.Info(err.Error())
		return "", "", fmt.Errorf("error fetching YouTube channel: %w", err)
	}
	if len(resp.Items) == 0 {
		return "", "", errors.New("no YouTube channel found for this account")
	}

	channel := resp.Items[0]
	return channel.Id, channel.Snippet.Title, nil
}

func (s *youtubeService) RefreshYoutubeToken(ctx context.Context, userID int64, refreshToken string) error {
	decryptedRefreshToken, err := utils.Decrypt(refreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	conf := s.oauthConfig()
	tokenSource := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: decryptedRefreshToken})

	token, err := tokenSource.Token()
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	return s.in.SetToken(ctx, userID, models.ServiceYoutube, encryptedAccessToken, token.Expiry)
}

// Publish creates a community post on the connected channel. A 403 is not a
// generic failure: it means the channel has not unlocked community posts,
// and the user should hear that rather than an HTTP status.
func (s *youtubeService) Publish(ctx context.Context, post *models.SocialPost, cred *ResolvedCredential) (*PublishOutcome, error) {
	payload := map[string]interface{}{
		"snippet": map[string]interface{}{
			"channelId": cred.AccountID,
			"text":      post.Content,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/communityPosts?part=snippet", s.apiBase)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to reach YouTube: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		err = errors.New("YouTube channel is not eligible for community posts")
		slog.Info(err.Error())
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, youtubeError(resp.Body, resp.StatusCode)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, errors.New("unexpected response from YouTube")
	}

	return &PublishOutcome{ExternalRef: result.ID, PageName: cred.AccountName}, nil
}

func youtubeError(body io.Reader, statusCode int) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("YouTube returned status %d", statusCode)
	}

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Message != "" {
		return errors.New(apiErr.Error.Message)
	}
	return fmt.Errorf("YouTube returned status %d", statusCode)
}

func (s *youtubeService) RevokeAccess(accessToken string) error {
	payload := []byte("token=" + accessToken)

	req, err := http.NewRequest(http.MethodPost, "https://oauth2.googleapis.com/revoke", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to revoke token, status code: %d", resp.StatusCode)
	}
	return nil
}

// GetUserInfo fetches the Google profile of the authorized user.
func GetUserInfo(client *http.Client) (*transfer.GoogleUserInfo, error) {
	userInfoURL := "https://www.googleapis.com/oauth2/v1/userinfo"

	response, err := client.Get(userInfoURL)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error fetching user info: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		slog.Info("unexpected response status")
		return nil, fmt.Errorf("unexpected response status: %d", response.StatusCode)
	}

	var userInfo transfer.GoogleUserInfo
	if err := json.NewDecoder(response.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error decoding user info: %w", err)
	}

	return &userInfo, nil
}
