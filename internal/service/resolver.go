package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	config "github.com/almgren/publika/configs"
	"github.com/almgren/publika/internal/models"
	"github.com/almgren/publika/internal/repository"
	"github.com/almgren/publika/pkg/utils"
)

// TokenResolver locates the stored credential for one platform. Storage is
// split: every platform lives in social_accounts except YouTube, whose
// credential sits in the integrations table next to the other Google
// services. Callers never branch on storage location themselves.
type TokenResolver interface {
	Resolve(ctx context.Context, workspaceID, userID int64, platform, pageID string) (*ResolvedCredential, error)
}

type tokenResolver struct {
	cfg config.Config
	sa  repository.SocialAccountRepository
	in  repository.IntegrationRepository
}

func NewTokenResolver(cfg config.Config, sa repository.SocialAccountRepository, in repository.IntegrationRepository) TokenResolver {
	return &tokenResolver{
		cfg: cfg,
		sa:  sa,
		in:  in,
	}
}

var platformLabels = map[string]string{
	models.PlatformFacebook:  "Facebook",
	models.PlatformInstagram: "Instagram",
	models.PlatformThreads:   "Threads",
	models.PlatformTiktok:    "TikTok",
	models.PlatformLinkedin:  "LinkedIn",
	models.PlatformTwitter:   "X",
	models.PlatformYoutube:   "YouTube",
}

func PlatformLabel(platform string) string {
	if label, ok := platformLabels[platform]; ok {
		return label
	}
	return platform
}

func (r *tokenResolver) Resolve(ctx context.Context, workspaceID, userID int64, platform, pageID string) (*ResolvedCredential, error) {
	switch platform {
	case models.PlatformFacebook, models.PlatformInstagram, models.PlatformThreads:
		return r.resolvePageScoped(ctx, workspaceID, platform, pageID)
	case models.PlatformYoutube:
		return r.resolveYoutube(ctx, userID)
	case models.PlatformTwitter:
		return r.resolveTwitter(ctx, workspaceID)
	default:
		err := fmt.Errorf("publishing to %s is not supported", PlatformLabel(platform))
		slog.Info(err.Error())
		return nil, err
	}
}

// resolvePageScoped handles the platforms where the publish target is a page
// picked by the user, not the authenticated profile. A missing selection is
// a validation failure, caught here before any network call.
func (r *tokenResolver) resolvePageScoped(ctx context.Context, workspaceID int64, platform, pageID string) (*ResolvedCredential, error) {
	label := PlatformLabel(platform)

	if pageID == "" {
		err := fmt.Errorf("no %s page selected", label)
		slog.Info(err.Error())
		return nil, err
	}

	accounts, err := r.sa.ListConnected(ctx, workspaceID, platform)
	if err != nil {
		return nil, fmt.Errorf("unable to look up %s accounts", label)
	}

	now := time.Now()
	for _, acc := range accounts {
		if acc.AccountID != pageID {
			continue
		}
		if acc.Expired(now) {
			err = fmt.Errorf("%s access token has expired, please reconnect", label)
			slog.Info(err.Error())
			return nil, err
		}
		return r.credentialFrom(acc)
	}

	err = fmt.Errorf("selected %s page is not connected", label)
	slog.Info(err.Error())
	return nil, err
}

func (r *tokenResolver) resolveYoutube(ctx context.Context, userID int64) (*ResolvedCredential, error) {
	integration, err := r.in.GetByUserService(ctx, userID, models.ServiceYoutube)
	if err != nil {
		return nil, errors.New("unable to look up YouTube integration")
	}

	if integration == nil || integration.AccessToken == "" {
		err = errors.New("YouTube account not connected or access token not found")
		slog.Info(err.Error())
		return nil, err
	}

	if integration.Expired(time.Now()) {
		err = errors.New("YouTube access token has expired, please reconnect")
		slog.Info(err.Error())
		return nil, err
	}

	accessToken, err := utils.Decrypt(integration.AccessToken, []byte(r.cfg.SecretKey))
	if err != nil {
		return nil, errors.New("unable to read stored YouTube credential")
	}

	return &ResolvedCredential{
		Platform:    models.PlatformYoutube,
		AccountID:   integration.AccountID,
		AccountName: integration.AccountName,
		AccessToken: accessToken,
	}, nil
}

func (r *tokenResolver) resolveTwitter(ctx context.Context, workspaceID int64) (*ResolvedCredential, error) {
	accounts, err := r.sa.ListConnected(ctx, workspaceID, models.PlatformTwitter)
	if err != nil {
		return nil, errors.New("unable to look up X accounts")
	}

	now := time.Now()
	for _, acc := range accounts {
		if acc.Expired(now) {
			continue
		}
		return r.credentialFrom(acc)
	}

	err = errors.New("X account not connected")
	slog.Info(err.Error())
	return nil, err
}

func (r *tokenResolver) credentialFrom(acc *models.SocialAccount) (*ResolvedCredential, error) {
	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(r.cfg.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("unable to read stored %s credential", PlatformLabel(acc.Platform))
	}

	return &ResolvedCredential{
		Platform:    acc.Platform,
		AccountID:   acc.AccountID,
		AccountName: acc.AccountName,
		AccessToken: accessToken,
	}, nil
}
