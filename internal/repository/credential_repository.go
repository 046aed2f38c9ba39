package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/curapost/internal/models"
)

type CredentialRepository interface {
	GetByPlatform(ctx context.Context, platform string) (*models.TransportCredential, error)
	ListExpiring(ctx context.Context, before time.Time) ([]*models.TransportCredential, error)
	Upsert(ctx context.Context, c *models.TransportCredential) error
}

type credentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) GetByPlatform(ctx context.Context, platform string) (*models.TransportCredential, error) {
	query := `
		SELECT id, platform, access_token, refresh_token, token_expires_at, updated_at
		FROM transport_credentials
		WHERE platform = $1
	`

	var c models.TransportCredential
	err := r.db.QueryRowContext(ctx, query, platform).Scan(
		&c.ID, &c.Platform, &c.AccessToken, &c.RefreshToken, &c.TokenExpiresAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &c, nil
}

// ListExpiring returns credentials whose access token expires before the given time.
func (r *credentialRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.TransportCredential, error) {
	query := `
		SELECT id, platform, access_token, refresh_token, token_expires_at, updated_at
		FROM transport_credentials
		WHERE token_expires_at < $1 AND refresh_token <> ''
	`
	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var credentials []*models.TransportCredential
	for rows.Next() {
		var c models.TransportCredential
		err := rows.Scan(&c.ID, &c.Platform, &c.AccessToken, &c.RefreshToken, &c.TokenExpiresAt, &c.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		credentials = append(credentials, &c)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return credentials, nil
}

func (r *credentialRepository) Upsert(ctx context.Context, c *models.TransportCredential) error {
	query := `
		INSERT INTO transport_credentials (platform, access_token, refresh_token, token_expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (platform) DO UPDATE
		SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), transport_credentials.refresh_token),
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.ExecContext(ctx, query, c.Platform, c.AccessToken, c.RefreshToken, c.TokenExpiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
