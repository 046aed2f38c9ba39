package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/curapost/internal/models"
)

const mediaColumns = `m.id, m.product_id, m.remote_url, m.local_path, m.mirror_url, m.downloaded,
	m.selected, m.selection_order, m.kind, m.created_at`

type MediaRepository interface {
	Create(ctx context.Context, tx *sql.Tx, m *models.Media) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Media, error)
	ListByProductID(ctx context.Context, productID int64) ([]*models.Media, error)
	ListSelectedByProductID(ctx context.Context, productID int64) ([]*models.Media, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.Media, error)
	SetSelection(ctx context.Context, productID int64, mediaIDs []int64) error
	MarkDownloaded(ctx context.Context, id int64, localPath, mirrorURL string) error
}

type mediaRepository struct {
	db  *sql.DB
	loc *time.Location
}

func NewMediaRepository(db *sql.DB, loc *time.Location) MediaRepository {
	return &mediaRepository{db: db, loc: loc}
}

func (r *mediaRepository) Create(ctx context.Context, tx *sql.Tx, m *models.Media) (int64, error) {
	query := `
		INSERT INTO media (product_id, remote_url, kind)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query, m.ProductID, m.RemoteURL, m.Kind).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *mediaRepository) GetByID(ctx context.Context, id int64) (*models.Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media m WHERE m.id = $1`

	m, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return m, nil
}

func (r *mediaRepository) ListByProductID(ctx context.Context, productID int64) ([]*models.Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media m WHERE m.product_id = $1 ORDER BY m.id`
	return r.query(ctx, query, productID)
}

// ListSelectedByProductID returns the curated media of a product in selection order.
func (r *mediaRepository) ListSelectedByProductID(ctx context.Context, productID int64) ([]*models.Media, error) {
	query := `
		SELECT ` + mediaColumns + ` FROM media m
		WHERE m.product_id = $1 AND m.selected
		ORDER BY m.selection_order
		LIMIT $2
	`
	return r.query(ctx, query, productID, models.MaxSelectedMedia)
}

// ListByPostID returns the media attached to a post in display order.
func (r *mediaRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.Media, error) {
	query := `
		SELECT ` + mediaColumns + ` FROM media m
		JOIN post_media pm ON pm.media_id = m.id
		WHERE pm.post_id = $1
		ORDER BY pm.display_order
	`
	return r.query(ctx, query, postID)
}

// SetSelection replaces the selection of a product. The order of mediaIDs becomes
// the selection order, starting at 1.
func (r *mediaRepository) SetSelection(ctx context.Context, productID int64, mediaIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	clearQuery := `
		UPDATE media
		SET selected = FALSE,
			selection_order = NULL
		WHERE product_id = $1 AND selected
	`
	if _, err := tx.ExecContext(ctx, clearQuery, productID); err != nil {
		slog.Info(err.Error())
		return err
	}

	selectQuery := `
		UPDATE media
		SET selected = TRUE,
			selection_order = $1
		WHERE id = $2 AND product_id = $3
	`
	for i, id := range mediaIDs {
		result, err := tx.ExecContext(ctx, selectQuery, i+1, id, productID)
		if err != nil {
			slog.Info(err.Error())
			return err
		}
		if err := expectOneRow(result); err != nil {
			if err == sql.ErrNoRows {
				return ErrMediaNotInProduct
			}
			return err
		}
	}

	return tx.Commit()
}

// MarkDownloaded records the local copy. An empty mirrorURL keeps any earlier mirror location.
func (r *mediaRepository) MarkDownloaded(ctx context.Context, id int64, localPath, mirrorURL string) error {
	query := `
		UPDATE media
		SET downloaded = TRUE,
			local_path = $1,
			mirror_url = COALESCE(NULLIF($2, ''), mirror_url)
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, localPath, mirrorURL, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return expectOneRow(result)
}

func (r *mediaRepository) query(ctx context.Context, query string, args ...any) ([]*models.Media, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var media []*models.Media
	for rows.Next() {
		m, err := r.scan(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

func (r *mediaRepository) scan(row rowScanner) (*models.Media, error) {
	var (
		m         models.Media
		localPath sql.NullString
		mirrorURL sql.NullString
		order     sql.NullInt32
	)
	err := row.Scan(
		&m.ID,
		&m.ProductID,
		&m.RemoteURL,
		&localPath,
		&mirrorURL,
		&m.Downloaded,
		&m.Selected,
		&order,
		&m.Kind,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.LocalPath = localPath.String
	m.MirrorURL = mirrorURL.String
	if order.Valid {
		o := int(order.Int32)
		m.SelectionOrder = &o
	}
	m.CreatedAt = m.CreatedAt.In(r.loc)
	return &m, nil
}
