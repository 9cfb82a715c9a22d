package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	config "github.com/almgren/publika/configs"
	"github.com/almgren/publika/internal/models"
	"github.com/almgren/publika/internal/repository"
	"github.com/almgren/publika/internal/transfer"
	"github.com/almgren/publika/pkg/utils"
)

const threadsGraphBase = "https://graph.threads.net/v1.0"

type ThreadsService interface {
	Publisher
	ThreadsCallback(ctx context.Context, code string, userID, workspaceID int64) error
	RefreshThreadsToken(ctx context.Context, userID int64, refreshToken string) error
}

type threadsService struct {
	cfg       config.Config
	sa        repository.SocialAccountRepository
	graphBase string
}

func NewThreadsService(cfg config.Config, sa repository.SocialAccountRepository) ThreadsService {
	return &threadsService{
		cfg:       cfg,
		sa:        sa,
		graphBase: threadsGraphBase,
	}
}

func (s *threadsService) ThreadsCallback(ctx context.Context, code string, userID, workspaceID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	token, err := s.exchangeCodeForToken(code)
	if err != nil {
		return err
	}

	userInfo, err := s.getUserInfo(token.AccessToken)
	if err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	accountInfo := &models.SocialAccount{
		WorkspaceID:    workspaceID,
		UserID:         userID,
		Platform:       models.PlatformThreads,
		AccountID:      userInfo.UserID,
		AccountName:    userInfo.Username,
		ProfilePicture: userInfo.ProfilePicture,
		AccessToken:    encryptedAccessToken,
		RefreshToken:   encryptedAccessToken,
		TokenExpiresAt: token.ExpiresAt,
	}

	_, err = s.sa.Create(ctx, nil, accountInfo)
	return err
}

func (s *threadsService) exchangeCodeForToken(code string) (*transfer.GraphToken, error) {
	form := url.Values{}
	form.Add("client_id", s.cfg.Threads.ClientID)
	form.Add("client_secret", s.cfg.Threads.ClientSecret)
	form.Add("grant_type", "authorization_code")
	form.Add("redirect_uri", s.cfg.Threads.RedirectURI)
	form.Add("code", code)

	resp, err := http.PostForm("https://graph.threads.net/oauth/access_token", form)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("error response from Threads: %s (status code: %d)", body, resp.StatusCode)
	}

	var shortLived struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&shortLived); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return s.getLongLivedToken(shortLived.AccessToken)
}

func (s *threadsService) getLongLivedToken(shortLivedToken string) (*transfer.GraphToken, error) {
	reqURL := fmt.Sprintf(
		"https://graph.threads.net/access_token?grant_type=th_exchange_token&client_secret=%s&access_token=%s",
		s.cfg.Threads.ClientSecret,
		shortLivedToken,
	)

	resp, err := http.Get(reqURL)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to get long-lived token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("error response from Threads: %s (status code: %d)", body, resp.StatusCode)
	}

	var token transfer.GraphToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode long-lived token response: %w", err)
	}

	token.ExpiresAt = time.Now().Add(time.Second * time.Duration(token.ExpiresIn))
	return &token, nil
}

func (s *threadsService) getUserInfo(accessToken string) (*transfer.ThreadsUserInfo, error) {
	reqURL := fmt.Sprintf(
		"https://graph.threads.net/v1.0/me?fields=id,username,name,threads_profile_picture_url&access_token=%s",
		accessToken,
	)

	resp, err := http.Get(reqURL)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var userInfo transfer.ThreadsUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &userInfo, nil
}

func (s *threadsService) RefreshThreadsToken(ctx context.Context, userID int64, refreshToken string) error {
	decryptedToken, err := utils.Decrypt(refreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	reqURL := fmt.Sprintf(
		"https://graph.threads.net/refresh_access_token?grant_type=th_refresh_token&access_token=%s",
		decryptedToken,
	)

	resp, err := http.Get(reqURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(result.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	socialAccount := models.SocialAccount{
		AccessToken:    encryptedAccessToken,
		RefreshToken:   encryptedAccessToken,
		TokenExpiresAt: time.Now().Add(time.Second * time.Duration(result.ExpiresIn)),
	}

	return s.sa.SetToken(ctx, userID, refreshToken, &socialAccount)
}

// Publish runs the Threads two-step flow: create a text container, then
// publish it.
func (s *threadsService) Publish(ctx context.Context, post *models.SocialPost, cred *ResolvedCredential) (*PublishOutcome, error) {
	containerID, err := s.createContainer(ctx, cred, post.Content)
	if err != nil {
		return nil, err
	}

	threadID, err := s.publishContainer(ctx, cred, containerID)
	if err != nil {
		return nil, err
	}

	return &PublishOutcome{ExternalRef: threadID, PageName: cred.AccountName}, nil
}

func (s *threadsService) createContainer(ctx context.Context, cred *ResolvedCredential, content string) (string, error) {
	form := url.Values{}
	form.Add("media_type", "TEXT")
	form.Add("text", content)
	form.Add("access_token", cred.AccessToken)

	reqURL := fmt.Sprintf("%s/%s/threads?%s", s.graphBase, cred.AccountID, form.Encode())
	return s.postForID(ctx, reqURL, "Threads rejected the post")
}

func (s *threadsService) publishContainer(ctx context.Context, cred *ResolvedCredential, containerID string) (string, error) {
	form := url.Values{}
	form.Add("creation_id", containerID)
	form.Add("access_token", cred.AccessToken)

	reqURL := fmt.Sprintf("%s/%s/threads_publish?%s", s.graphBase, cred.AccountID, form.Encode())
	return s.postForID(ctx, reqURL, "Threads rejected the post")
}

func (s *threadsService) postForID(ctx context.Context, reqURL, fallback string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("failed to reach Threads: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", graphError(resp.Body, fallback)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	if result.ID == "" {
		return "", errors.New("no container ID returned from Threads")
	}
	return result.ID, nil
}
