package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/almgren/publika/internal/models"
)

type IntegrationRepository interface {
	Upsert(ctx context.Context, in *models.Integration) (int64, error)
	GetByUserService(ctx context.Context, userID int64, serviceName string) (*models.Integration, error)
	ListExpiring(ctx context.Context, serviceName string, initialTime, finalTime time.Time) ([]*models.Integration, error)
	SetToken(ctx context.Context, userID int64, serviceName, accessToken string, expiresAt time.Time) error
	Remove(ctx context.Context, userID int64, serviceName string) error
}

type integrationRepository struct {
	db *sql.DB
}

func NewIntegrationRepository(db *sql.DB) IntegrationRepository {
	return &integrationRepository{db: db}
}

func (r *integrationRepository) Upsert(ctx context.Context, in *models.Integration) (int64, error) {
	query := `
		INSERT INTO integrations (user_id, service_name, access_token, refresh_token, expires_at, account_name, account_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, service_name)
		DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), integrations.refresh_token),
			expires_at = EXCLUDED.expires_at,
			account_name = EXCLUDED.account_name,
			account_id = EXCLUDED.account_id,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		in.UserID, in.ServiceName, in.AccessToken, in.RefreshToken,
		in.ExpiresAt, in.AccountName, in.AccountID).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *integrationRepository) GetByUserService(ctx context.Context, userID int64, serviceName string) (*models.Integration, error) {
	query := `SELECT id, user_id, service_name, access_token, refresh_token, expires_at,
		account_name, account_id, created_at, updated_at
		FROM integrations WHERE user_id = $1 AND service_name = $2`
	row := r.db.QueryRowContext(ctx, query, userID, serviceName)

	var in models.Integration
	err := row.Scan(&in.ID, &in.UserID, &in.ServiceName, &in.AccessToken, &in.RefreshToken,
		&in.ExpiresAt, &in.AccountName, &in.AccountID, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &in, nil
}

func (r *integrationRepository) ListExpiring(ctx context.Context, serviceName string, initialTime, finalTime time.Time) ([]*models.Integration, error) {
	query := `SELECT id, user_id, service_name, access_token, refresh_token, expires_at
		FROM integrations
		WHERE service_name = $1
		AND ((expires_at BETWEEN $2 AND $3) OR (expires_at < $2))`
	rows, err := r.db.QueryContext(ctx, query, serviceName, initialTime, finalTime)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var integrations []*models.Integration
	for rows.Next() {
		var in models.Integration
		err := rows.Scan(&in.ID, &in.UserID, &in.ServiceName, &in.AccessToken, &in.RefreshToken, &in.ExpiresAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		integrations = append(integrations, &in)
	}
	return integrations, rows.Err()
}

func (r *integrationRepository) SetToken(ctx context.Context, userID int64, serviceName, accessToken string, expiresAt time.Time) error {
	query := `
		UPDATE integrations
		SET access_token = $3,
			expires_at = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND service_name = $2
	`
	_, err := r.db.ExecContext(ctx, query, userID, serviceName, accessToken, expiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *integrationRepository) Remove(ctx context.Context, userID int64, serviceName string) error {
	query := `DELETE FROM integrations WHERE user_id = $1 AND service_name = $2`
	_, err := r.db.ExecContext(ctx, query, userID, serviceName)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
