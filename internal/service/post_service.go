package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"mime/multipart"
	"strings"
	"sync"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	config "github.com/almgren/publika/configs"
	"github.com/almgren/publika/internal/models"
	"github.com/almgren/publika/internal/repository"
	"github.com/almgren/publika/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type PostService interface {
	CreatePost(ctx context.Context, userID, workspaceID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error)
	Dispatch(ctx context.Context, postID int64) error
	List(ctx context.Context, workspaceID int64) ([]*models.SocialPost, error)
	PostInfo(ctx context.Context, postID, workspaceID int64) (*models.SocialPost, error)
	Results(ctx context.Context, postID, workspaceID int64) ([]*models.PlatformResult, error)
	Remove(ctx context.Context, workspaceID, postID int64) error
}

type postService struct {
	cfg        config.Config
	db         *sql.DB
	pr         repository.PostRepository
	pt         repository.PostTargetRepository
	res        repository.PlatformResultRepository
	ma         repository.MediaAssetRepository
	pm         repository.PostMediaRepository
	r2         *R2Service
	resolver   TokenResolver
	publishers map[string]Publisher

	mu       sync.Mutex
	inflight map[int64]struct{}
}

func NewPostService(
	cfg config.Config,
	db *sql.DB,
	pr repository.PostRepository,
	pt repository.PostTargetRepository,
	res repository.PlatformResultRepository,
	ma repository.MediaAssetRepository,
	pm repository.PostMediaRepository,
	r2 *R2Service,
	resolver TokenResolver,
	publishers map[string]Publisher) PostService {
	return &postService{
		cfg:        cfg,
		db:         db,
		pr:         pr,
		pt:         pt,
		res:        res,
		ma:         ma,
		pm:         pm,
		r2:         r2,
		resolver:   resolver,
		publishers: publishers,
		inflight:   make(map[int64]struct{}),
	}
}

// begin marks userID as having a submission in flight. A second concurrent
// submission from the same user is rejected until the first finishes.
func (s *postService) begin(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[userID]; busy {
		return false
	}
	s.inflight[userID] = struct{}{}
	return true
}

func (s *postService) end(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, userID)
}

func (s *postService) CreatePost(ctx context.Context, userID, workspaceID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, 0, err
	}

	if strings.TrimSpace(pc.Content) == "" {
		err := errors.New("post content cannot be empty")
		slog.Info(err.Error())
		return 0, 0, err
	}

	var platforms []string
	if err := json.Unmarshal([]byte(pc.Platforms), &platforms); err != nil {
		err = fmt.Errorf("invalid platforms format: %w", err)
		slog.Error(err.Error())
		return 0, 0, err
	}
	if len(platforms) == 0 {
		err := errors.New("no platforms selected")
		slog.Info(err.Error())
		return 0, 0, err
	}

	pageTargets := make(map[string]string)
	if pc.PageTargets != "" {
		if err := json.Unmarshal([]byte(pc.PageTargets), &pageTargets); err != nil {
			err = fmt.Errorf("invalid page targets format: %w", err)
			slog.Error(err.Error())
			return 0, 0, err
		}
	}

	// Page-scoped platforms must name their page before anything is stored.
	for _, platform := range platforms {
		if models.PageRequired(platform) && pageTargets[platform] == "" {
			err := fmt.Errorf("no %s page selected", PlatformLabel(platform))
			slog.Info(err.Error())
			return 0, 0, err
		}
	}

	var scheduledTime time.Time
	if pc.Intent == transfer.IntentSchedule {
		var err error
		scheduledTime, err = time.Parse("2006-01-02T15:04", pc.ScheduledTime)
		if err != nil {
			err = fmt.Errorf("invalid scheduled time format: %w", err)
			slog.Error(err.Error())
			return 0, 0, err
		}
	}

	if !s.begin(userID) {
		err := errors.New("a post is already being published, please wait")
		slog.Info(err.Error())
		return 0, 0, err
	}
	defer s.end(userID)

	postType, err := s.detectPostType(files)
	if err != nil {
		return 0, 0, err
	}

	status := models.PostStatusDraft
	if pc.Intent == transfer.IntentSchedule {
		status = models.PostStatusScheduled
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.SocialPost{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Content:     pc.Content,
		Platforms:   platforms,
		PostType:    postType,
		Status:      status,
		ScheduledAt: scheduledTime,
		AIGenerated: pc.AIGenerated,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating post: %w", err)
	}

	for _, platform := range platforms {
		if pageTargets[platform] == "" {
			continue
		}
		target := models.PostTarget{
			PostID:   postID,
			Platform: platform,
			PageID:   pageTargets[platform],
		}
		if err = s.pt.Create(ctx, tx, &target); err != nil {
			return 0, 0, fmt.Errorf("error saving page target: %w", err)
		}
	}

	if err = s.processFiles(ctx, tx, userID, postID, files); err != nil {
		return 0, 0, fmt.Errorf("error processing files: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	switch pc.Intent {
	case transfer.IntentPublishNow:
		if err := s.dispatch(ctx, postID); err != nil {
			return postID, 0, err
		}
		return postID, 0, nil
	case transfer.IntentSchedule:
		delay := time.Until(scheduledTime)
		if delay < 0 {
			delay = 0
		}
		return postID, delay, nil
	default:
		return postID, 0, nil
	}
}

func (s *postService) detectPostType(files []*multipart.FileHeader) (string, error) {
	if len(files) == 0 {
		return models.PostTypeText, nil
	}
	if len(files) > 1 {
		return models.PostTypeCarousel, nil
	}

	fileContent, err := files[0].Open()
	if err != nil {
		return "", fmt.Errorf("error opening file: %w", err)
	}
	defer fileContent.Close()

	head := make([]byte, 261)
	n, err := fileContent.Read(head)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("error reading file content: %w", err)
	}

	fileType, err := filetype.Match(head[:n])
	if err != nil || fileType == types.Unknown {
		return "", errors.New("unsupported file type")
	}

	if strings.HasPrefix(fileType.MIME.Value, "video/") {
		return models.PostTypeVideo, nil
	}
	return models.PostTypeImage, nil
}

func (s *postService) processFiles(ctx context.Context, tx *sql.Tx, userID, postID int64, files []*multipart.FileHeader) error {
	allowedTypes := map[string]struct{}{
		"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
	}

	for i, file := range files {
		fileContent, err := file.Open()
		if err != nil {
			return fmt.Errorf("error opening file: %w", err)
		}
		defer fileContent.Close()

		fileBytes, err := io.ReadAll(fileContent)
		if err != nil {
			return fmt.Errorf("error reading file content: %w", err)
		}

		fileType, err := filetype.Match(fileBytes)
		if err != nil || fileType == types.Unknown {
			return fmt.Errorf("unsupported file type: %w", err)
		}
		if _, ok := allowedTypes[fileType.Extension]; !ok {
			return fmt.Errorf("file type %s is not allowed", fileType.Extension)
		}

		assetID, err := s.saveFile(ctx, tx, userID, fileType.MIME.Value, fileBytes)
		if err != nil {
			return fmt.Errorf("error uploading file: %w", err)
		}

		postMedia := models.PostMedia{
			PostID:       postID,
			AssetID:      assetID,
			DisplayOrder: i,
		}
		if err := s.pm.Create(ctx, tx, &postMedia); err != nil {
			return fmt.Errorf("error saving media file: %w", err)
		}
	}
	return nil
}

func (s *postService) saveFile(ctx context.Context, tx *sql.Tx, userID int64, fileType string, file []byte) (int64, error) {
	id, err := gonanoid.New()
	if err != nil {
		log.Println(err.Error())
		return 0, err
	}
	err = s.r2.UploadToR2(ctx, id, file, fileType)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	ma := models.MediaAsset{
		UserID:   userID,
		FileName: id,
		FileType: fileType,
		FileSize: int64(len(file)),
		FileURL:  fmt.Sprintf("%s/%s", s.cfg.R2.PublicURL, id),
	}

	assetID, err := s.ma.Create(ctx, tx, &ma)
	if err != nil {
		return 0, err
	}

	return assetID, nil
}

// Dispatch publishes a stored post to every platform it names, in order.
// Each platform is attempted regardless of earlier failures; one result row
// is written per platform and the aggregate status is derived afterwards.
func (s *postService) Dispatch(ctx context.Context, postID int64) error {
	return s.dispatch(ctx, postID)
}

func (s *postService) dispatch(ctx context.Context, postID int64) error {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("error getting post info: %w", err)
	}
	if post == nil {
		// A scheduled post can be removed before its task fires.
		err = errors.New("post not found")
		slog.Info(err.Error())
		return err
	}

	targets, err := s.pt.ListByPostID(ctx, postID)
	if err != nil {
		return fmt.Errorf("error getting page targets: %w", err)
	}
	pageByPlatform := make(map[string]string, len(targets))
	for _, t := range targets {
		pageByPlatform[t.Platform] = t.PageID
	}

	anyFailed := false
	for _, platform := range post.Platforms {
		result := models.PlatformResult{
			PostID:   postID,
			Platform: platform,
		}

		outcome, err := s.publishOne(ctx, post, platform, pageByPlatform[platform])
		if err != nil {
			slog.Info(err.Error())
			result.Status = models.ResultStatusFailed
			result.ErrorMessage = err.Error()
			anyFailed = true
		} else {
			result.Status = models.ResultStatusPublished
			result.ExternalRef = outcome.ExternalRef
			result.PageName = outcome.PageName
		}

		if _, err := s.res.Create(ctx, &result); err != nil {
			slog.Error(err.Error())
		}
	}

	if anyFailed {
		if err := s.pr.UpdateStatus(ctx, models.PostStatusFailed, postID); err != nil {
			return err
		}
		return errors.New("post could not be published to all platforms")
	}

	return s.pr.SetPublished(ctx, postID, time.Now())
}

func (s *postService) publishOne(ctx context.Context, post *models.SocialPost, platform, pageID string) (*PublishOutcome, error) {
	cred, err := s.resolver.Resolve(ctx, post.WorkspaceID, post.UserID, platform, pageID)
	if err != nil {
		return nil, err
	}

	publisher, ok := s.publishers[platform]
	if !ok {
		return nil, fmt.Errorf("publishing to %s is not supported", PlatformLabel(platform))
	}

	return publisher.Publish(ctx, post, cred)
}

func (s *postService) PostInfo(ctx context.Context, postID, workspaceID int64) (*models.SocialPost, error) {
	var err error

	if workspaceID == 0 {
		err = errors.New("Workspace is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	if postID == 0 {
		err = errors.New("post id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	isValid, err := s.pr.CheckByWorkspace(ctx, postID, workspaceID)
	if err != nil {
		return nil, err
	}

	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("Error getting post info")
	}
	if post == nil {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (s *postService) Results(ctx context.Context, postID, workspaceID int64) ([]*models.PlatformResult, error) {
	isValid, err := s.pr.CheckByWorkspace(ctx, postID, workspaceID)
	if err != nil {
		return nil, err
	}

	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	results, err := s.res.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("Error getting publish results")
	}
	return results, nil
}

func (s *postService) List(ctx context.Context, workspaceID int64) ([]*models.SocialPost, error) {
	posts, err := s.pr.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("Error getting posts")
	}
	return posts, nil
}

func (s *postService) Remove(ctx context.Context, workspaceID, postID int64) error {
	var err error

	if workspaceID == 0 {
		err = errors.New("Workspace is not valid")
		slog.Info(err.Error())
		return err
	}

	if postID == 0 {
		err = errors.New("post_id is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.pr.CheckByWorkspace(ctx, postID, workspaceID)
	if err != nil {
		return err
	}

	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return err
	}

	err = s.pr.Remove(ctx, postID)
	if err != nil {
		return fmt.Errorf("Error removing post")
	}

	return nil
}
