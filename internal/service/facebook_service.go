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
	"strings"
	"time"

	config "github.com/almgren/publika/configs"
	"github.com/almgren/publika/internal/models"
	"github.com/almgren/publika/internal/repository"
	"github.com/almgren/publika/internal/transfer"
	"github.com/almgren/publika/pkg/utils"
)

const facebookGraphBase = "https://graph.facebook.com/v21.0"

type FacebookService interface {
	Publisher
	FacebookCallback(ctx context.Context, code string, userID, workspaceID int64) error
}

type facebookService struct {
	cfg       config.Config
	sa        repository.SocialAccountRepository
	graphBase string
}

func NewFacebookService(cfg config.Config, sa repository.SocialAccountRepository) FacebookService {
	return &facebookService{
		cfg:       cfg,
		sa:        sa,
		graphBase: facebookGraphBase,
	}
}

// FacebookCallback exchanges the OAuth code for a user token, then stores
// one account row per page the user manages. Page tokens do not expire, so
// token_expires_at stays zero.
func (s *facebookService) FacebookCallback(ctx context.Context, code string, userID, workspaceID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	userToken, err := s.exchangeCodeForToken(code)
	if err != nil {
		return err
	}

	pages, err := s.listPages(ctx, userToken.AccessToken)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		err = errors.New("no Facebook pages found for this account")
		slog.Info(err.Error())
		return err
	}

	for _, page := range pages {
		encryptedPageToken, err := utils.Encrypt([]byte(page.AccessToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}

		additionalData, _ := json.Marshal(map[string]interface{}{
			"is_page":  true,
			"category": page.Category,
		})

		accountInfo := &models.SocialAccount{
			WorkspaceID:    workspaceID,
			UserID:         userID,
			Platform:       models.PlatformFacebook,
			AccountID:      page.ID,
			AccountName:    page.Name,
			AccessToken:    encryptedPageToken,
			FollowersCount: page.FanCount,
			AdditionalData: additionalData,
		}

		if _, err = s.sa.Create(ctx, nil, accountInfo); err != nil {
			return err
		}
	}

	return nil
}

func (s *facebookService) exchangeCodeForToken(code string) (*transfer.GraphToken, error) {
	params := url.Values{}
	params.Add("client_id", s.cfg.Facebook.ClientID)
	params.Add("client_secret", s.cfg.Facebook.ClientSecret)
	params.Add("redirect_uri", s.cfg.Facebook.RedirectURI)
	params.Add("code", code)

	resp, err := http.Get(fmt.Sprintf("%s/oauth/access_token?%s", s.graphBase, params.Encode()))
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, graphError(resp.Body, "Facebook token exchange failed")
	}

	var token transfer.GraphToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &token, nil
}

func (s *facebookService) listPages(ctx context.Context, userToken string) ([]transfer.FacebookPage, error) {
	reqURL := fmt.Sprintf("%s/me/accounts?fields=id,name,access_token,category,fan_count&access_token=%s",
		s.graphBase, url.QueryEscape(userToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, graphError(resp.Body, "unable to list Facebook pages")
	}

	var pageList transfer.FacebookPageList
	if err := json.NewDecoder(resp.Body).Decode(&pageList); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return pageList.Data, nil
}

// Publish posts the content to the selected page's feed.
func (s *facebookService) Publish(ctx context.Context, post *models.SocialPost, cred *ResolvedCredential) (*PublishOutcome, error) {
	form := url.Values{}
	form.Add("message", post.Content)
	form.Add("access_token", cred.AccessToken)

	reqURL := fmt.Sprintf("%s/%s/feed", s.graphBase, cred.AccountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to reach Facebook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, graphError(resp.Body, "Facebook rejected the post")
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, errors.New("unexpected response from Facebook")
	}

	return &PublishOutcome{ExternalRef: result.ID, PageName: cred.AccountName}, nil
}

// graphError extracts the Graph API error message from a non-2xx body,
// falling back to the given generic message.
func graphError(body io.Reader, fallback string) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return errors.New(fallback)
	}

	var graphErr transfer.GraphError
	if err := json.Unmarshal(raw, &graphErr); err == nil {
		if graphErr.Error.ErrorUserMsg != "" {
			return errors.New(graphErr.Error.ErrorUserMsg)
		}
		if graphErr.Error.Message != "" {
			return errors.New(graphErr.Error.Message)
		}
	}
	return errors.New(fallback)
}

// tokenExpiry converts an expires_in window to a timestamp; zero stays zero
// (non-expiring page tokens).
func tokenExpiry(expiresIn int64) time.Time {
	if expiresIn == 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}
