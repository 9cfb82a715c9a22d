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
	"time"

	config "github.com/almgren/publika/configs"
	"github.com/almgren/publika/internal/models"
	"github.com/almgren/publika/internal/repository"
	"github.com/almgren/publika/internal/transfer"
	"github.com/almgren/publika/pkg/utils"
)

const instagramGraphBase = "https://graph.instagram.com/v21.0"

type InstagramService interface {
	Publisher
	InstagramCallback(ctx context.Context, code string, userID, workspaceID int64) error
	RefreshInstagramToken(ctx context.Context, userID int64, refreshToken string) error
}

type instagramService struct {
	cfg       config.Config
	sa        repository.SocialAccountRepository
	pm        repository.PostMediaRepository
	ma        repository.MediaAssetRepository
	graphBase string
}

func NewInstagramService(
	cfg config.Config,
	sa repository.SocialAccountRepository,
	pm repository.PostMediaRepository,
	ma repository.MediaAssetRepository) InstagramService {
	return &instagramService{
		cfg:       cfg,
		sa:        sa,
		pm:        pm,
		ma:        ma,
		graphBase: instagramGraphBase,
	}
}

func (s *instagramService) InstagramCallback(ctx context.Context, code string, userID, workspaceID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	shortLived, err := s.getShortLivedToken(code)
	if err != nil {
		return err
	}

	longLived, err := s.getLongLivedToken(shortLived)
	if err != nil {
		return err
	}

	userInfo, err := s.getUserInfo(longLived.AccessToken)
	if err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(longLived.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	additionalData, _ := json.Marshal(map[string]interface{}{
		"account_type": userInfo.AccountType,
	})

	accountInfo := &models.SocialAccount{
		WorkspaceID:    workspaceID,
		UserID:         userID,
		Platform:       models.PlatformInstagram,
		AccountID:      userInfo.UserID,
		AccountName:    userInfo.Username,
		ProfilePicture: userInfo.ProfilePicture,
		AccessToken:    encryptedAccessToken,
		RefreshToken:   encryptedAccessToken,
		TokenExpiresAt: longLived.ExpiresAt,
		FollowersCount: userInfo.FollowersCount,
		AdditionalData: additionalData,
	}

	_, err = s.sa.Create(ctx, nil, accountInfo)
	return err
}

func (s *instagramService) getShortLivedToken(code string) (string, error) {
	form := url.Values{}
	form.Add("client_id", s.cfg.Instagram.ClientID)
	form.Add("client_secret", s.cfg.Instagram.ClientSecret)
	form.Add("grant_type", "authorization_code")
	form.Add("redirect_uri", s.cfg.Instagram.RedirectURI)
	form.Add("code", code)

	resp, err := http.PostForm("https://api.instagram.com/oauth/access_token", form)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("error response from Instagram: %s (status code: %d)", body, resp.StatusCode)
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	return result.AccessToken, nil
}

func (s *instagramService) getLongLivedToken(shortLivedToken string) (*transfer.GraphToken, error) {
	reqURL := fmt.Sprintf(
		"https://graph.instagram.com/access_token?grant_type=ig_exchange_token&client_secret=%s&access_token=%s",
		s.cfg.Instagram.ClientSecret,
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
		return nil, fmt.Errorf("error response from Instagram: %s (status code: %d)", body, resp.StatusCode)
	}

	var token transfer.GraphToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode long-lived token response: %w", err)
	}

	token.ExpiresAt = time.Now().Add(time.Second * time.Duration(token.ExpiresIn))
	return &token, nil
}

func (s *instagramService) getUserInfo(accessToken string) (*transfer.InstagramUserInfo, error) {
	reqURL := fmt.Sprintf(
		"https://graph.instagram.com/me?fields=id,username,name,account_type,profile_picture_url,followers_count&access_token=%s",
		accessToken,
	)

	resp, err := http.Get(reqURL)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var userInfo transfer.InstagramUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &userInfo, nil
}

func (s *instagramService) RefreshInstagramToken(ctx context.Context, userID int64, refreshToken string) error {
	decryptedRefreshToken, err := utils.Decrypt(refreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	reqURL := fmt.Sprintf(
		"https://graph.instagram.com/refresh_access_token?grant_type=ig_refresh_token&access_token=%s",
		decryptedRefreshToken,
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

// Publish runs the two-step container flow: create a media container per
// asset, then publish. Instagram has no text-only posts, so a post without
// media fails before any network call.
func (s *instagramService) Publish(ctx context.Context, post *models.SocialPost, cred *ResolvedCredential) (*PublishOutcome, error) {
	postMedias, err := s.pm.ListByPostID(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("error fetching post media: %w", err)
	}
	if len(postMedias) == 0 {
		err = errors.New("Instagram requires at least one image or video")
		slog.Info(err.Error())
		return nil, err
	}

	var containerID string
	if len(postMedias) == 1 {
		containerID, err = s.createContainer(ctx, cred, post.Content, postMedias[0].AssetID, false)
	} else {
		containerID, err = s.createCarousel(ctx, cred, post.Content, postMedias)
	}
	if err != nil {
		return nil, err
	}

	mediaID, err := s.publishContainer(ctx, cred, containerID)
	if err != nil {
		return nil, err
	}

	return &PublishOutcome{ExternalRef: mediaID, PageName: cred.AccountName}, nil
}

func (s *instagramService) createContainer(ctx context.Context, cred *ResolvedCredential, caption string, assetID int64, isCarouselItem bool) (string, error) {
	mediaAsset, err := s.ma.GetByID(ctx, assetID)
	if err != nil {
		return "", fmt.Errorf("error retrieving media asset: %w", err)
	}
	if mediaAsset == nil || mediaAsset.FileURL == "" {
		return "", fmt.Errorf("media asset is missing or incomplete for AssetID %d", assetID)
	}

	payload := map[string]interface{}{
		"image_url":    mediaAsset.FileURL,
		"access_token": cred.AccessToken,
	}
	if isCarouselItem {
		payload["is_carousel_item"] = true
	} else {
		payload["caption"] = caption
	}

	return s.postMedia(ctx, cred.AccountID, payload)
}

func (s *instagramService) createCarousel(ctx context.Context, cred *ResolvedCredential, caption string, postMedias []*models.PostMedia) (string, error) {
	children := make([]string, 0, len(postMedias))
	for _, pm := range postMedias {
		childID, err := s.createContainer(ctx, cred, "", pm.AssetID, true)
		if err != nil {
			return "", err
		}
		children = append(children, childID)
	}

	payload := map[string]interface{}{
		"media_type":   "CAROUSEL",
		"children":     children,
		"caption":      caption,
		"access_token": cred.AccessToken,
	}
	return s.postMedia(ctx, cred.AccountID, payload)
}

func (s *instagramService) postMedia(ctx context.Context, accountID string, payload map[string]interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s/media", s.graphBase, accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach Instagram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", graphError(resp.Body, "Instagram rejected the media")
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	if result.ID == "" {
		return "", errors.New("no media ID returned from Instagram")
	}
	return result.ID, nil
}

func (s *instagramService) publishContainer(ctx context.Context, cred *ResolvedCredential, containerID string) (string, error) {
	form := url.Values{}
	form.Add("creation_id", containerID)
	form.Add("access_token", cred.AccessToken)

	reqURL := fmt.Sprintf("%s/%s/media_publish?%s", s.graphBase, cred.AccountID, form.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach Instagram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", graphError(resp.Body, "Instagram rejected the post")
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	return result.ID, nil
}
