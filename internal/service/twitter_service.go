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
	"net/url"
	"strings"

	config "github.com/almgren/publika/configs"
	"github.com/almgren/publika/internal/models"
	"github.com/almgren/publika/internal/repository"
	"github.com/almgren/publika/internal/transfer"
	"github.com/almgren/publika/pkg/utils"
)

const twitterAPIBase = "https://api.x.com"

type TwitterService interface {
	Publisher
	TwitterCallback(ctx context.Context, code, codeVerifier string, userID, workspaceID int64) error
	RefreshTwitterToken(ctx context.Context, userID int64, accessToken, refreshToken string) error
}

type twitterService struct {
	cfg     config.Config
	sa      repository.SocialAccountRepository
	apiBase string
}

func NewTwitterService(cfg config.Config, sa repository.SocialAccountRepository) TwitterService {
	return &twitterService{
		cfg:     cfg,
		sa:      sa,
		apiBase: twitterAPIBase,
	}
}

func (s *twitterService) TwitterCallback(ctx context.Context, code, codeVerifier string, userID, workspaceID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	tokenResponse, err := s.exchangeCodeForToken(code, codeVerifier)
	if err != nil {
		return err
	}

	userInfo, err := s.getUserInfo(tokenResponse.AccessToken)
	if err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(tokenResponse.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	encryptedRefreshToken, err := utils.Encrypt([]byte(tokenResponse.RefreshToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	accountInfo := &models.SocialAccount{
		WorkspaceID:    workspaceID,
		UserID:         userID,
		Platform:       models.PlatformTwitter,
		AccountID:      userInfo.Data.ID,
		AccountName:    userInfo.Data.Username,
		AccessToken:    encryptedAccessToken,
		RefreshToken:   encryptedRefreshToken,
		TokenExpiresAt: GetExpiresAt(tokenResponse.ExpiresIn),
	}

	_, err = s.sa.Create(ctx, nil, accountInfo)
	return err
}

func (s *twitterService) exchangeCodeForToken(code, codeVerifier string) (*transfer.TwitterTokenResponse, error) {
	data := url.Values{}
	data.Add("code", code)
	data.Add("grant_type", "authorization_code")
	data.Add("redirect_uri", s.cfg.Twitter.RedirectURI)
	data.Add("code_verifier", codeVerifier)

	req, err := http.NewRequest(http.MethodPost, s.apiBase+"/2/oauth2/token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.Twitter.ClientID, s.cfg.Twitter.ClientSecret)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info("X token endpoint returned non-200 status")
		return nil, errors.New("X token endpoint returned non-200 status")
	}

	var tokenResponse transfer.TwitterTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &tokenResponse, nil
}

func (s *twitterService) getUserInfo(accessToken string) (*transfer.TwitterUserResponse, error) {
	req, err := http.NewRequest(http.MethodGet, s.apiBase+"/2/users/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status: %d", resp.StatusCode)
	}

	var userInfo transfer.TwitterUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &userInfo, nil
}

func (s *twitterService) RefreshTwitterToken(ctx context.Context, userID int64, accessToken, refreshToken string) error {
	decryptedRefreshToken, err := utils.Decrypt(refreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	data := url.Values{}
	data.Add("grant_type", "refresh_token")
	data.Add("refresh_token", decryptedRefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiBase+"/2/oauth2/token", strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.Twitter.ClientID, s.cfg.Twitter.ClientSecret)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New("X token endpoint returned non-200 status")
	}

	var tokenResponse transfer.TwitterTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(tokenResponse.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	encryptedRefreshToken, err := utils.Encrypt([]byte(tokenResponse.RefreshToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	socialAccount := models.SocialAccount{
		AccessToken:    encryptedAccessToken,
		RefreshToken:   encryptedRefreshToken,
		TokenExpiresAt: GetExpiresAt(tokenResponse.ExpiresIn),
	}

	return s.sa.SetToken(ctx, userID, accessToken, &socialAccount)
}

// Publish creates a tweet. Non-2xx responses carry an RFC 7807 style body;
// detail is the better user message, title the fallback.
func (s *twitterService) Publish(ctx context.Context, post *models.SocialPost, cred *ResolvedCredential) (*PublishOutcome, error) {
	payload, err := json.Marshal(map[string]string{"text": post.Content})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiBase+"/2/tweets", bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to reach X: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, tweetError(resp.Body, resp.StatusCode)
	}

	var result transfer.TweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, errors.New("unexpected response from X")
	}

	return &PublishOutcome{ExternalRef: result.Data.ID, PageName: cred.AccountName}, nil
}

func tweetError(body io.Reader, statusCode int) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("X returned status %d", statusCode)
	}

	var tweetErr transfer.TweetError
	if err := json.Unmarshal(raw, &tweetErr); err == nil {
		if tweetErr.Detail != "" {
			return errors.New(tweetErr.Detail)
		}
		if tweetErr.Title != "" {
			return errors.New(tweetErr.Title)
		}
	}
	return fmt.Errorf("X returned status %d", statusCode)
}
