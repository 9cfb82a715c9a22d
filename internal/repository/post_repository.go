package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/almgren/publika/internal/models"
	"github.com/lib/pq"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.SocialPost) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SocialPost, error)
	ListByWorkspace(ctx context.Context, workspaceID int64) ([]*models.SocialPost, error)
	UpdateStatus(ctx context.Context, status string, postID int64) error
	SetPublished(ctx context.Context, postID int64, publishedAt time.Time) error
	CheckByWorkspace(ctx context.Context, postID, workspaceID int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, workspace_id, user_id, content, platforms, post_type, status,
	scheduled_at, published_at, ai_generated, created_at, updated_at`

func scanPost(row interface{ Scan(...interface{}) error }) (*models.SocialPost, error) {
	var post models.SocialPost
	var scheduledAt, publishedAt sql.NullTime
	err := row.Scan(&post.ID, &post.WorkspaceID, &post.UserID, &post.Content,
		pq.Array(&post.Platforms), &post.PostType, &post.Status,
		&scheduledAt, &publishedAt, &post.AIGenerated, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	post.ScheduledAt = scheduledAt.Time
	post.PublishedAt = publishedAt.Time
	return &post, nil
}

func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.SocialPost) (int64, error) {
	query := `
		INSERT INTO social_posts (workspace_id, user_id, content, platforms, post_type, status, scheduled_at, published_at, ai_generated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var id int64
	var err error

	args := []interface{}{
		post.WorkspaceID, post.UserID, post.Content, pq.Array(post.Platforms),
		post.PostType, post.Status, nullableTime(post.ScheduledAt),
		nullableTime(post.PublishedAt), post.AIGenerated,
	}

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.SocialPost, error) {
	query := `SELECT ` + postColumns + ` FROM social_posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListByWorkspace(ctx context.Context, workspaceID int64) ([]*models.SocialPost, error) {
	query := `SELECT ` + postColumns + ` FROM social_posts WHERE workspace_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.SocialPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) UpdateStatus(ctx context.Context, status string, postID int64) error {
	query := `
		UPDATE social_posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) SetPublished(ctx context.Context, postID int64, publishedAt time.Time) error {
	query := `
		UPDATE social_posts
		SET status = $1,
			published_at = $2,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusPublished, publishedAt, postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) CheckByWorkspace(ctx context.Context, postID, workspaceID int64) (bool, error) {
	query := "SELECT 1 FROM social_posts WHERE id = $1 AND workspace_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, workspaceID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM social_posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
