package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/almgren/publika/internal/models"
)

type PlatformResultRepository interface {
	Create(ctx context.Context, result *models.PlatformResult) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PlatformResult, error)
}

type platformResultRepository struct {
	db *sql.DB
}

func NewPlatformResultRepository(db *sql.DB) PlatformResultRepository {
	return &platformResultRepository{db: db}
}

func (r *platformResultRepository) Create(ctx context.Context, result *models.PlatformResult) (int64, error) {
	query := `
		INSERT INTO post_platform_results (post_id, platform, status, error_message, external_ref, page_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		result.PostID, result.Platform, result.Status,
		result.ErrorMessage, result.ExternalRef, result.PageName).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *platformResultRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PlatformResult, error) {
	query := `SELECT id, post_id, platform, status, error_message, external_ref, page_name, created_at
		FROM post_platform_results WHERE post_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var results []*models.PlatformResult
	for rows.Next() {
		var pr models.PlatformResult
		err := rows.Scan(&pr.ID, &pr.PostID, &pr.Platform, &pr.Status,
			&pr.ErrorMessage, &pr.ExternalRef, &pr.PageName, &pr.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		results = append(results, &pr)
	}
	return results, rows.Err()
}
