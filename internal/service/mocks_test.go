package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/almgren/publika/internal/models"
)

// Hand-rolled repository fakes. Each keeps its rows in memory and records
// the mutations the test cares about.

type fakeSocialAccountRepo struct {
	accounts        []*models.SocialAccount
	removedIDs      []int64
	removedPlatform []string
	listErr         error
}

func (f *fakeSocialAccountRepo) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	sa.ID = int64(len(f.accounts) + 1)
	f.accounts = append(f.accounts, sa)
	return sa.ID, nil
}

func (f *fakeSocialAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	for _, acc := range f.accounts {
		if acc.ID == id {
			return acc, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSocialAccountRepo) ListByWorkspace(ctx context.Context, workspaceID int64) ([]*models.SocialAccount, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.SocialAccount
	for _, acc := range f.accounts {
		if acc.WorkspaceID == workspaceID {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (f *fakeSocialAccountRepo) ListConnected(ctx context.Context, workspaceID int64, platform string) ([]*models.SocialAccount, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.SocialAccount
	for _, acc := range f.accounts {
		if acc.WorkspaceID == workspaceID && acc.Platform == platform && acc.IsConnected {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (f *fakeSocialAccountRepo) ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (f *fakeSocialAccountRepo) CheckByWorkspace(ctx context.Context, accountID, workspaceID int64) (bool, error) {
	for _, acc := range f.accounts {
		if acc.ID == accountID && acc.WorkspaceID == workspaceID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSocialAccountRepo) SetToken(ctx context.Context, userID int64, oldAccessToken string, sa *models.SocialAccount) error {
	return nil
}

func (f *fakeSocialAccountRepo) Remove(ctx context.Context, id int64) error {
	f.removedIDs = append(f.removedIDs, id)
	kept := f.accounts[:0]
	for _, acc := range f.accounts {
		if acc.ID != id {
			kept = append(kept, acc)
		}
	}
	f.accounts = kept
	return nil
}

func (f *fakeSocialAccountRepo) RemoveByPlatform(ctx context.Context, workspaceID int64, platforms []string) error {
	f.removedPlatform = append(f.removedPlatform, platforms...)
	kept := f.accounts[:0]
	for _, acc := range f.accounts {
		drop := false
		for _, p := range platforms {
			if acc.WorkspaceID == workspaceID && acc.Platform == p {
				drop = true
			}
		}
		if !drop {
			kept = append(kept, acc)
		}
	}
	f.accounts = kept
	return nil
}

type fakeIntegrationRepo struct {
	integrations map[int64]*models.Integration
	removed      []int64
}

func (f *fakeIntegrationRepo) Upsert(ctx context.Context, in *models.Integration) (int64, error) {
	if f.integrations == nil {
		f.integrations = make(map[int64]*models.Integration)
	}
	f.integrations[in.UserID] = in
	return in.UserID, nil
}

func (f *fakeIntegrationRepo) GetByUserService(ctx context.Context, userID int64, serviceName string) (*models.Integration, error) {
	in, ok := f.integrations[userID]
	if !ok || in.ServiceName != serviceName {
		return nil, nil
	}
	return in, nil
}

func (f *fakeIntegrationRepo) ListExpiring(ctx context.Context, serviceName string, initialTime, finalTime time.Time) ([]*models.Integration, error) {
	return nil, nil
}

func (f *fakeIntegrationRepo) SetToken(ctx context.Context, userID int64, serviceName, accessToken string, expiresAt time.Time) error {
	return nil
}

func (f *fakeIntegrationRepo) Remove(ctx context.Context, userID int64, serviceName string) error {
	f.removed = append(f.removed, userID)
	delete(f.integrations, userID)
	return nil
}

type fakePostRepo struct {
	posts     map[int64]*models.SocialPost
	nextID    int64
	statuses  []string
	published []int64
	checkHit  bool // force CheckByWorkspace to report the post as present
}

func (f *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.SocialPost) (int64, error) {
	if f.posts == nil {
		f.posts = make(map[int64]*models.SocialPost)
	}
	f.nextID++
	post.ID = f.nextID
	f.posts[post.ID] = post
	return post.ID, nil
}

func (f *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.SocialPost, error) {
	post, ok := f.posts[id]
	if !ok {
		return nil, nil
	}
	return post, nil
}

func (f *fakePostRepo) ListByWorkspace(ctx context.Context, workspaceID int64) ([]*models.SocialPost, error) {
	var out []*models.SocialPost
	for _, p := range f.posts {
		if p.WorkspaceID == workspaceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePostRepo) UpdateStatus(ctx context.Context, status string, postID int64) error {
	f.statuses = append(f.statuses, status)
	if p, ok := f.posts[postID]; ok {
		p.Status = status
	}
	return nil
}

func (f *fakePostRepo) SetPublished(ctx context.Context, postID int64, publishedAt time.Time) error {
	f.published = append(f.published, postID)
	if p, ok := f.posts[postID]; ok {
		p.Status = models.PostStatusPublished
		p.PublishedAt = publishedAt
	}
	return nil
}

func (f *fakePostRepo) CheckByWorkspace(ctx context.Context, postID, workspaceID int64) (bool, error) {
	if f.checkHit {
		return true, nil
	}
	p, ok := f.posts[postID]
	return ok && p.WorkspaceID == workspaceID, nil
}

func (f *fakePostRepo) Remove(ctx context.Context, id int64) error {
	delete(f.posts, id)
	return nil
}

type fakePostTargetRepo struct {
	targets []*models.PostTarget
}

func (f *fakePostTargetRepo) Create(ctx context.Context, tx *sql.Tx, target *models.PostTarget) error {
	f.targets = append(f.targets, target)
	return nil
}

func (f *fakePostTargetRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostTarget, error) {
	var out []*models.PostTarget
	for _, t := range f.targets {
		if t.PostID == postID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakePlatformResultRepo struct {
	results []*models.PlatformResult
}

func (f *fakePlatformResultRepo) Create(ctx context.Context, result *models.PlatformResult) (int64, error) {
	f.results = append(f.results, result)
	return int64(len(f.results)), nil
}

func (f *fakePlatformResultRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PlatformResult, error) {
	var out []*models.PlatformResult
	for _, r := range f.results {
		if r.PostID == postID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeMediaAssetRepo struct{}

func (f *fakeMediaAssetRepo) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error) {
	return 1, nil
}

func (f *fakeMediaAssetRepo) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeMediaAssetRepo) Remove(ctx context.Context, id int64) error { return nil }

type fakePostMediaRepo struct{}

func (f *fakePostMediaRepo) Create(ctx context.Context, tx *sql.Tx, pm *models.PostMedia) error {
	return nil
}

func (f *fakePostMediaRepo) GetByPostID(ctx context.Context, postID int64) (*models.PostMedia, error) {
	return nil, sql.ErrNoRows
}

func (f *fakePostMediaRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostMedia, error) {
	return nil, nil
}

func (f *fakePostMediaRepo) Remove(ctx context.Context, postID int64) error { return nil }

// fakePublisher records every publish call and answers with a canned
// outcome or error.
type fakePublisher struct {
	calls   []string
	outcome *PublishOutcome
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, post *models.SocialPost, cred *ResolvedCredential) (*PublishOutcome, error) {
	f.calls = append(f.calls, cred.Platform)
	if f.err != nil {
		return nil, f.err
	}
	if f.outcome != nil {
		return f.outcome, nil
	}
	return &PublishOutcome{ExternalRef: "ref-" + cred.Platform}, nil
}

// fakeResolver hands out credentials without touching storage.
type fakeResolver struct {
	errs map[string]error
}

func (f *fakeResolver) Resolve(ctx context.Context, workspaceID, userID int64, platform, pageID string) (*ResolvedCredential, error) {
	if err, ok := f.errs[platform]; ok {
		return nil, err
	}
	return &ResolvedCredential{
		Platform:    platform,
		AccountID:   pageID,
		AccessToken: "token-" + platform,
	}, nil
}

type fakeReconciler struct {
	invalidated int
}

func (f *fakeReconciler) ConnectionMap(ctx context.Context, workspaceID, userID int64) (map[string]bool, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeReconciler) Invalidate(ctx context.Context, workspaceID, userID int64) error {
	f.invalidated++
	return nil
}

type fakeTiktokService struct {
	revoked []string
}

func (f *fakeTiktokService) TiktokCallback(ctx context.Context, code string, userID, workspaceID int64) error {
	return nil
}

func (f *fakeTiktokService) RefreshTiktokToken(ctx context.Context, userID int64, accessToken, refreshToken string) error {
	return nil
}

func (f *fakeTiktokService) RevokeAccess(openID, accessToken string) error {
	f.revoked = append(f.revoked, openID)
	return nil
}

type fakeYoutubeService struct {
	revoked int
}

func (f *fakeYoutubeService) Publish(ctx context.Context, post *models.SocialPost, cred *ResolvedCredential) (*PublishOutcome, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeYoutubeService) YoutubeCallback(ctx context.Context, code string, userID int64) error {
	return nil
}

func (f *fakeYoutubeService) RefreshYoutubeToken(ctx context.Context, userID int64, refreshToken string) error {
	return nil
}

func (f *fakeYoutubeService) RevokeAccess(accessToken string) error {
	f.revoked++
	return nil
}
