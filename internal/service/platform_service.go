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

const (
	FACEBOOK_AUTH_URL  = "https://www.facebook.com/v21.0/dialog/oauth"
	INSTAGRAM_AUTH_URL = "https://www.instagram.com/oauth/authorize"
	THREADS_AUTH_URL   = "https://threads.net/oauth/authorize"
	TIKTOK_AUTH_URL    = "https://www.tiktok.com/v2/auth/authorize"
	GOOGLE_AUTH_URL    = "https://accounts.google.com/o/oauth2/v2/auth"
	TWITTER_AUTH_URL   = "https://x.com/i/oauth2/authorize"
	LINKEDIN_AUTH_URL  = "https://www.linkedin.com/oauth/v2/authorization"
)

type PlatformService interface {
	GetAuthURL(ctx context.Context, platform, state, codeVerifier string) string
	List(ctx context.Context, workspaceID int64) ([]*models.SocialAccount, error)
	LinkedinCallback(ctx context.Context, code string, userID, workspaceID int64) error
}

type platformService struct {
	cfg config.Config
	sa  repository.SocialAccountRepository
}

func NewPlatformService(cfg config.Config, sa repository.SocialAccountRepository) PlatformService {
	return &platformService{
		cfg: cfg,
		sa:  sa,
	}
}

func (s *platformService) GetAuthURL(ctx context.Context, platform, state, codeVerifier string) string {
	switch platform {
	case models.PlatformFacebook:
		params := url.Values{}
		params.Add("client_id", s.cfg.Facebook.ClientID)
		params.Add("scope", "pages_show_list,pages_manage_posts,pages_read_engagement,business_management")
		params.Add("response_type", "code")
		params.Add("redirect_uri", s.cfg.Facebook.RedirectURI)
		params.Add("state", state)
		return fmt.Sprintf("%s?%s", FACEBOOK_AUTH_URL, params.Encode())

	case models.PlatformInstagram:
		params := url.Values{}
		params.Add("client_id", s.cfg.Instagram.ClientID)
		params.Add("scope", "instagram_business_basic,instagram_business_content_publish")
		params.Add("response_type", "code")
		params.Add("redirect_uri", s.cfg.Instagram.RedirectURI)
		params.Add("state", state)
		return fmt.Sprintf("%s?%s", INSTAGRAM_AUTH_URL, params.Encode())

	case models.PlatformThreads:
		params := url.Values{}
		params.Add("client_id", s.cfg.Threads.ClientID)
		params.Add("scope", "threads_basic,threads_content_publish")
		params.Add("response_type", "code")
		params.Add("redirect_uri", s.cfg.Threads.RedirectURI)
		params.Add("state", state)
		return fmt.Sprintf("%s?%s", THREADS_AUTH_URL, params.Encode())

	case models.PlatformTiktok:
		params := url.Values{}
		params.Add("client_key", s.cfg.Tiktok.ClientID)
		params.Add("scope", "user.info.basic,user.info.profile,user.info.stats")
		params.Add("response_type", "code")
		params.Add("redirect_uri", s.cfg.Tiktok.RedirectURI)
		params.Add("state", state)
		return fmt.Sprintf("%s?%s", TIKTOK_AUTH_URL, params.Encode())

	case models.PlatformYoutube:
		params := url.Values{}
		params.Add("client_id", s.cfg.Google.ClientID)
		params.Add("redirect_uri", s.cfg.Google.RedirectURI)
		params.Add("response_type", "code")
		params.Add("scope", "https://www.googleapis.com/auth/userinfo.profile https://www.googleapis.com/auth/userinfo.email https://www.googleapis.com/auth/youtube")
		params.Add("state", state)
		params.Add("access_type", "offline")
		params.Add("prompt", "consent")
		return fmt.Sprintf("%s?%s", GOOGLE_AUTH_URL, params.Encode())

	case models.PlatformTwitter:
		params := url.Values{}
		params.Add("client_id", s.cfg.Twitter.ClientID)
		params.Add("scope", "tweet.read tweet.write users.read offline.access")
		params.Add("response_type", "code")
		params.Add("redirect_uri", s.cfg.Twitter.RedirectURI)
		params.Add("state", state)
		// Plain method: the challenge is the verifier itself. The verifier
		// travels back inside the signed state token.
		params.Add("code_challenge", codeVerifier)
		params.Add("code_challenge_method", "plain")
		return fmt.Sprintf("%s?%s", TWITTER_AUTH_URL, params.Encode())

	case models.PlatformLinkedin:
		params := url.Values{}
		params.Add("client_id", s.cfg.Linkedin.ClientID)
		params.Add("scope", "openid profile email w_member_social")
		params.Add("response_type", "code")
		params.Add("redirect_uri", s.cfg.Linkedin.RedirectURI)
		params.Add("state", state)
		return fmt.Sprintf("%s?%s", LINKEDIN_AUTH_URL, params.Encode())

	default:
		return ""
	}
}

func (s *platformService) List(ctx context.Context, workspaceID int64) ([]*models.SocialAccount, error) {
	var err error

	if workspaceID == 0 {
		err = errors.New("WorkspaceID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	accounts, err := s.sa.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("Error getting social accounts")
	}

	return accounts, nil
}

type linkedinTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type linkedinUserInfo struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (s *platformService) LinkedinCallback(ctx context.Context, code string, userID, workspaceID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	data := url.Values{}
	data.Add("grant_type", "authorization_code")
	data.Add("code", code)
	data.Add("client_id", s.cfg.Linkedin.ClientID)
	data.Add("client_secret", s.cfg.Linkedin.ClientSecret)
	data.Add("redirect_uri", s.cfg.Linkedin.RedirectURI)

	resp, err := http.Post(
		"https://www.linkedin.com/oauth/v2/accessToken",
		"application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New("LinkedIn token endpoint returned non-200 status")
	}

	var tokenResponse linkedinTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("failed to decode token response: %w", err)
	}

	req, err := http.NewRequest(http.MethodGet, "https://api.linkedin.com/v2/userinfo", nil)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tokenResponse.AccessToken)

	infoResp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer infoResp.Body.Close()

	var userInfo linkedinUserInfo
	if err := json.NewDecoder(infoResp.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(tokenResponse.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	accountInfo := &models.SocialAccount{
		WorkspaceID:    workspaceID,
		UserID:         userID,
		Platform:       models.PlatformLinkedin,
		AccountID:      userInfo.Sub,
		AccountName:    userInfo.Name,
		ProfilePicture: userInfo.Picture,
		AccessToken:    encryptedAccessToken,
		TokenExpiresAt: GetExpiresAt(tokenResponse.ExpiresIn),
	}

	_, err = s.sa.Create(ctx, nil, accountInfo)
	return err
}
