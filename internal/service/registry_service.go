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

// RegistryService is the single read/write surface for "which accounts are
// connected". It papers over the storage split: social_accounts for every
// platform, the integrations table for YouTube.
type RegistryService interface {
	ListConnectedAccounts(ctx context.Context, workspaceID, userID int64) ([]*models.SocialAccount, error)
	Disconnect(ctx context.Context, workspaceID, userID int64, platform string) error
}

type registryService struct {
	cfg        config.Config
	sa         repository.SocialAccountRepository
	in         repository.IntegrationRepository
	reconciler Reconciler
	tt         TiktokService
	yt         YoutubeService
}

func NewRegistryService(
	cfg config.Config,
	sa repository.SocialAccountRepository,
	in repository.IntegrationRepository,
	reconciler Reconciler,
	tt TiktokService,
	yt YoutubeService) RegistryService {
	return &registryService{
		cfg:        cfg,
		sa:         sa,
		in:         in,
		reconciler: reconciler,
		tt:         tt,
		yt:         yt,
	}
}

func (s *registryService) ListConnectedAccounts(ctx context.Context, workspaceID, userID int64) ([]*models.SocialAccount, error) {
	if workspaceID == 0 {
		err := errors.New("workspace is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	rows, err := s.sa.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("unable to list social accounts")
	}

	now := time.Now()
	accounts := make([]*models.SocialAccount, 0, len(rows))
	for _, acc := range rows {
		// Expiry is checked lazily at read time; there is no background
		// sweep. An expired credential means the connection is gone.
		if acc.Expired(now) {
			if err := s.sa.Remove(ctx, acc.ID); err != nil {
				slog.Info(err.Error())
			}
			continue
		}
		accounts = append(accounts, acc)
	}

	youtube, err := s.youtubeAccount(ctx, workspaceID, userID, now)
	if err != nil {
		slog.Info(err.Error())
	} else if youtube != nil {
		accounts = append(accounts, youtube)
	}

	return accounts, nil
}

// youtubeAccount splices the integrations-table row in as a synthetic
// connected account. The access token is intentionally left blank: callers
// of the list never get a Google credential, the resolver does.
func (s *registryService) youtubeAccount(ctx context.Context, workspaceID, userID int64, now time.Time) (*models.SocialAccount, error) {
	integration, err := s.in.GetByUserService(ctx, userID, models.ServiceYoutube)
	if err != nil {
		return nil, err
	}
	if integration == nil || integration.Expired(now) {
		return nil, nil
	}

	return &models.SocialAccount{
		WorkspaceID:    workspaceID,
		UserID:         userID,
		Platform:       models.PlatformYoutube,
		AccountID:      models.ServiceYoutube,
		AccountName:    integration.AccountName,
		TokenExpiresAt: integration.ExpiresAt,
		IsConnected:    true,
	}, nil
}

func (s *registryService) Disconnect(ctx context.Context, workspaceID, userID int64, platform string) error {
	var err error

	if workspaceID == 0 {
		err = errors.New("workspace is not valid")
		slog.Info(err.Error())
		return err
	}

	if platform == models.PlatformYoutube {
		err = s.disconnectYoutube(ctx, userID)
	} else {
		err = s.disconnectSocial(ctx, workspaceID, platform)
	}
	if err != nil {
		return err
	}

	if err := s.reconciler.Invalidate(ctx, workspaceID, userID); err != nil {
		slog.Info(err.Error())
	}
	return nil
}

func (s *registryService) disconnectYoutube(ctx context.Context, userID int64) error {
	integration, err := s.in.GetByUserService(ctx, userID, models.ServiceYoutube)
	if err != nil {
		return fmt.Errorf("unable to get YouTube integration")
	}
	if integration == nil {
		err = errors.New("YouTube account is not connected")
		slog.Info(err.Error())
		return err
	}

	accessToken, err := utils.Decrypt(integration.AccessToken, []byte(s.cfg.SecretKey))
	if err == nil {
		if err := s.yt.RevokeAccess(accessToken); err != nil {
			slog.Info(err.Error())
		}
	}

	if err := s.in.Remove(ctx, userID, models.ServiceYoutube); err != nil {
		return fmt.Errorf("unable to remove YouTube integration")
	}
	return nil
}

func (s *registryService) disconnectSocial(ctx context.Context, workspaceID int64, platform string) error {
	accounts, err := s.sa.ListConnected(ctx, workspaceID, platform)
	if err != nil {
		return fmt.Errorf("unable to look up %s accounts", PlatformLabel(platform))
	}

	if platform == models.PlatformTiktok {
		for _, acc := range accounts {
			accessToken, err := utils.Decrypt(acc.AccessToken, []byte(s.cfg.SecretKey))
			if err != nil {
				continue
			}
			if err := s.tt.RevokeAccess(acc.AccountID, accessToken); err != nil {
				slog.Info(err.Error())
			}
		}
	}

	// Hard delete, deliberately not transactional with in-flight publishes:
	// a dispatch that already resolved its credential finishes on its own.
	if err := s.sa.RemoveByPlatform(ctx, workspaceID, []string{platform}); err != nil {
		return fmt.Errorf("unable to remove %s accounts", PlatformLabel(platform))
	}
	return nil
}
