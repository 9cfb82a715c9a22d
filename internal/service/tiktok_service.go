package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	config "github.com/almgren/publika/configs"
	"github.com/almgren/publika/internal/models"
	"github.com/almgren/publika/internal/repository"
	"github.com/almgren/publika/pkg/utils"
)

const tiktokTokenURL = "https://open.tiktokapis.com/v2/oauth/token/"

// TiktokService covers connecting and keeping a TikTok account alive.
// TikTok is reconciled and listed but is not a publish target.
type TiktokService interface {
	TiktokCallback(ctx context.Context, code string, userID, workspaceID int64) error
	RefreshTiktokToken(ctx context.Context, userID int64, accessToken, refreshToken string) error
	RevokeAccess(openID, accessToken string) error
}

type tiktokService struct {
	cfg config.Config
	sa  repository.SocialAccountRepository
}

func NewTiktokService(cfg config.Config, sa repository.SocialAccountRepository) TiktokService {
	return &tiktokService{
		cfg: cfg,
		sa:  sa,
	}
}

type tiktokTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	OpenID       string `json:"open_id"`
}

type tiktokUserResponse struct {
	Data struct {
		User struct {
			OpenID        string `json:"open_id"`
			AvatarURL     string `json:"avatar_url"`
			DisplayName   string `json:"display_name"`
			Username      string `json:"username"`
			FollowerCount int64  `json:"follower_count"`
		} `json:"user"`
	} `json:"data"`
}

func (s *tiktokService) TiktokCallback(ctx context.Context, code string, userID, workspaceID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	tokenResponse, err := s.exchangeCodeForToken(code)
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
		Platform:       models.PlatformTiktok,
		AccountID:      userInfo.Data.User.OpenID,
		AccountName:    userInfo.Data.User.DisplayName,
		ProfilePicture: userInfo.Data.User.AvatarURL,
		AccessToken:    encryptedAccessToken,
		RefreshToken:   encryptedRefreshToken,
		TokenExpiresAt: GetExpiresAt(tokenResponse.ExpiresIn),
		FollowersCount: userInfo.Data.User.FollowerCount,
	}

	_, err = s.sa.Create(ctx, nil, accountInfo)
	return err
}

func (s *tiktokService) exchangeCodeForToken(code string) (*tiktokTokenResponse, error) {
	data := url.Values{}
	data.Add("client_key", s.cfg.Tiktok.ClientID)
	data.Add("client_secret", s.cfg.Tiktok.ClientSecret)
	data.Add("code", code)
	data.Add("grant_type", "authorization_code")
	data.Add("redirect_uri", s.cfg.Tiktok.RedirectURI)

	resp, err := http.Post(
		tiktokTokenURL,
		"application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info("TikTok token endpoint returned non-200 status")
		return nil, errors.New("TikTok token endpoint returned non-200 status")
	}

	var tokenResponse tiktokTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &tokenResponse, nil
}

func (s *tiktokService) getUserInfo(accessToken string) (*tiktokUserResponse, error) {
	reqURL := "https://open.tiktokapis.com/v2/user/info/?fields=open_id,avatar_url,display_name,username,follower_count"

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var userInfo tiktokUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &userInfo, nil
}

func (s *tiktokService) RefreshTiktokToken(ctx context.Context, userID int64, accessToken, refreshToken string) error {
	decryptedRefreshToken, err := utils.Decrypt(refreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	data := url.Values{}
	data.Add("client_key", s.cfg.Tiktok.ClientID)
	data.Add("client_secret", s.cfg.Tiktok.ClientSecret)
	data.Add("grant_type", "refresh_token")
	data.Add("refresh_token", decryptedRefreshToken)

	resp, err := http.Post(
		tiktokTokenURL,
		"application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New("TikTok token endpoint returned non-200 status")
	}

	var tokenResponse tiktokTokenResponse
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

func (s *tiktokService) RevokeAccess(openID, accessToken string) error {
	data := url.Values{}
	data.Add("client_key", s.cfg.Tiktok.ClientID)
	data.Add("client_secret", s.cfg.Tiktok.ClientSecret)
	data.Add("token", accessToken)

	resp, err := http.Post(
		"https://open.tiktokapis.com/v2/oauth/revoke/",
		"application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to revoke token, status code: %d", resp.StatusCode)
	}
	return nil
}
