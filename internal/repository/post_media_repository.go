package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/curapost/internal/models"
)

type PostMediaRepository interface {
	Create(ctx context.Context, tx *sql.Tx, pm *models.PostMedia) error
}

type postMediaRepository struct {
	db *sql.DB
}

func NewPostMediaRepository(db *sql.DB) PostMediaRepository {
	return &postMediaRepository{db: db}
}

func (r *postMediaRepository) Create(ctx context.Context, tx *sql.Tx, pm *models.PostMedia) error {
	query := `
		INSERT INTO post_media (post_id, media_id, display_order)
		VALUES ($1, $2, $3)
	`
	_, err := conn(r.db, tx).ExecContext(ctx, query, pm.PostID, pm.MediaID, pm.DisplayOrder)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}
