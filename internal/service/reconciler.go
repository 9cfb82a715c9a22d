package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/almgren/publika/internal/models"
	"github.com/almgren/publika/internal/repository"
	"github.com/redis/go-redis/v9"
)

const connectionMapTTL = 60 * time.Second

// Reconciler produces the unified "is platform connected" view the frontend
// grid consumes. It merges social_accounts, the YouTube integrations row and
// the fixed platform defaults. Pure read: repeated calls over unchanged data
// yield identical maps.
type Reconciler interface {
	ConnectionMap(ctx context.Context, workspaceID, userID int64) (map[string]bool, error)
	Invalidate(ctx context.Context, workspaceID, userID int64) error
}

type reconciler struct {
	sa  repository.SocialAccountRepository
	in  repository.IntegrationRepository
	rdb *redis.Client
}

// NewReconciler builds a reconciler. rdb may be nil, in which case every
// call recomputes the map from the database.
func NewReconciler(sa repository.SocialAccountRepository, in repository.IntegrationRepository, rdb *redis.Client) Reconciler {
	return &reconciler{
		sa:  sa,
		in:  in,
		rdb: rdb,
	}
}

// displayPlatforms is the fixed set of keys the frontend widget map knows.
// The stored identifier 'x' surfaces as 'twitter'; this is a one-off rename,
// not a general transformation.
var displayPlatforms = []string{
	"instagram", "facebook", "tiktok", "linkedin", "twitter", "youtube", "threads",
}

func connectionMapKey(workspaceID, userID int64) string {
	return fmt.Sprintf("connmap:%d:%d", workspaceID, userID)
}

func (r *reconciler) ConnectionMap(ctx context.Context, workspaceID, userID int64) (map[string]bool, error) {
	key := connectionMapKey(workspaceID, userID)

	if r.rdb != nil {
		cached, err := r.rdb.Get(ctx, key).Result()
		if err == nil {
			var connections map[string]bool
			if err := json.Unmarshal([]byte(cached), &connections); err == nil {
				return connections, nil
			}
		} else if err != redis.Nil {
			slog.Info(err.Error())
		}
	}

	connections, err := r.compute(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}

	if r.rdb != nil {
		if payload, err := json.Marshal(connections); err == nil {
			if err := r.rdb.Set(ctx, key, payload, connectionMapTTL).Err(); err != nil {
				slog.Info(err.Error())
			}
		}
	}

	return connections, nil
}

func (r *reconciler) compute(ctx context.Context, workspaceID, userID int64) (map[string]bool, error) {
	connections := make(map[string]bool, len(displayPlatforms))
	for _, platform := range displayPlatforms {
		connections[platform] = false
	}

	accounts, err := r.sa.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("unable to list social accounts")
	}

	now := time.Now()
	for _, acc := range accounts {
		if !acc.IsConnected || acc.Expired(now) {
			continue
		}
		connections[models.DisplayKey(acc.Platform)] = true
	}

	integration, err := r.in.GetByUserService(ctx, userID, models.ServiceYoutube)
	if err != nil {
		return nil, fmt.Errorf("unable to look up YouTube integration")
	}
	if integration != nil && !integration.Expired(now) {
		connections[models.ServiceYoutube] = true
	}

	return connections, nil
}

func (r *reconciler) Invalidate(ctx context.Context, workspaceID, userID int64) error {
	if r.rdb == nil {
		return nil
	}
	return r.rdb.Del(ctx, connectionMapKey(workspaceID, userID)).Err()
}
