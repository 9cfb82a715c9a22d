package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/almgren/publika/internal/models"
	"github.com/almgren/publika/internal/repository"
	"github.com/almgren/publika/internal/service"
)

type TokenRefreshJob struct {
	sr repository.SocialAccountRepository
	in repository.IntegrationRepository
	yt service.YoutubeService
	tt service.TiktokService
	ig service.InstagramService
	th service.ThreadsService
	tw service.TwitterService
}

func NewTokenRefreshJob(
	sr repository.SocialAccountRepository,
	in repository.IntegrationRepository,
	yt service.YoutubeService,
	tt service.TiktokService,
	ig service.InstagramService,
	th service.ThreadsService,
	tw service.TwitterService) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr: sr,
		in: in,
		yt: yt,
		tt: tt,
		ig: ig,
		th: th,
		tw: tw,
	}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	accounts, err := c.sr.ListExpiring(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {

		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			var err error
			switch acc.Platform {
			case models.PlatformInstagram:
				err = c.ig.RefreshInstagramToken(ctx, acc.UserID, acc.RefreshToken)
				if err != nil {
					slog.Info("Unable to refresh tokens for Instagram")
				}

			case models.PlatformThreads:
				err = c.th.RefreshThreadsToken(ctx, acc.UserID, acc.RefreshToken)
				if err != nil {
					slog.Info("Unable to refresh tokens for Threads")
				}

			case models.PlatformTiktok:
				err = c.tt.RefreshTiktokToken(ctx, acc.UserID, acc.AccessToken, acc.RefreshToken)
				if err != nil {
					slog.Info("Unable to refresh tokens for TikTok")
				}

			case models.PlatformTwitter:
				err = c.tw.RefreshTwitterToken(ctx, acc.UserID, acc.AccessToken, acc.RefreshToken)
				if err != nil {
					slog.Info("Unable to refresh tokens for X")
				}
			}
		}(acc)
	}

	wg.Wait()

	integrations, err := c.in.ListExpiring(ctx, models.ServiceYoutube, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, in := range integrations {
		err = c.yt.RefreshYoutubeToken(ctx, in.UserID, in.RefreshToken)
		if err != nil {
			slog.Info("Unable to refresh tokens for YouTube")
		}
	}
}
