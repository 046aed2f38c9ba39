package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/curapost/internal/models"
)

const productColumns = `id, external_id, title, performers, categories, maker, url,
	package_image_url, release_date, fetched_at, posted, last_posted_at`

type ProductRepository interface {
	Create(ctx context.Context, tx *sql.Tx, p *models.Product) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	ExistsByExternalID(ctx context.Context, externalID string) (bool, error)
	List(ctx context.Context, f models.ProductFilter) ([]*models.Product, error)
	ListUnpostedWithSelection(ctx context.Context, limit int) ([]*models.Product, error)
	MarkPosted(ctx context.Context, tx *sql.Tx, id int64, postedAt *time.Time) error
	Remove(ctx context.Context, id int64) error
}

type productRepository struct {
	db  *sql.DB
	loc *time.Location
}

func NewProductRepository(db *sql.DB, loc *time.Location) ProductRepository {
	return &productRepository{db: db, loc: loc}
}

func (r *productRepository) Create(ctx context.Context, tx *sql.Tx, p *models.Product) (int64, error) {
	query := `
		INSERT INTO products (external_id, title, performers, categories, maker, url, package_image_url, release_date, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		p.ExternalID,
		p.Title,
		pq.Array(p.Performers),
		pq.Array(p.Categories),
		p.Maker,
		p.URL,
		p.PackageImageURL,
		nullTime(p.ReleaseDate),
		p.FetchedAt,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return p, nil
}

func (r *productRepository) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	query := "SELECT 1 FROM products WHERE external_id = $1"

	var result int
	err := r.db.QueryRowContext(ctx, query, externalID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return result == 1, nil
}

func (r *productRepository) List(ctx context.Context, f models.ProductFilter) ([]*models.Product, error) {
	var (
		where []string
		args  []any
	)
	if f.Keyword != "" {
		args = append(args, "%"+f.Keyword+"%")
		where = append(where, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if f.Unposted {
		where = append(where, "posted = FALSE")
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	switch f.Sort {
	case models.ProductSortTitle:
		query += " ORDER BY title ASC"
	case models.ProductSortRelease:
		query += " ORDER BY release_date DESC NULLS LAST"
	default:
		query += " ORDER BY fetched_at DESC"
	}

	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	return r.query(ctx, query, args...)
}

// ListUnpostedWithSelection returns products that are not posted yet but have curated media.
func (r *productRepository) ListUnpostedWithSelection(ctx context.Context, limit int) ([]*models.Product, error) {
	query := `
		SELECT ` + productColumns + ` FROM products p
		WHERE p.posted = FALSE
		  AND EXISTS (SELECT 1 FROM media m WHERE m.product_id = p.id AND m.selected)
		ORDER BY p.fetched_at ASC
		LIMIT $1
	`
	return r.query(ctx, query, limit)
}

func (r *productRepository) MarkPosted(ctx context.Context, tx *sql.Tx, id int64, postedAt *time.Time) error {
	query := `
		UPDATE products
		SET posted = TRUE,
			last_posted_at = COALESCE($1, last_posted_at)
		WHERE id = $2
	`
	result, err := conn(r.db, tx).ExecContext(ctx, query, nullTime(postedAt), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return expectOneRow(result)
}

// Remove deletes the product; media and posts go with it through the foreign keys.
func (r *productRepository) Remove(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return expectOneRow(result)
}

func (r *productRepository) query(ctx context.Context, query string, args ...any) ([]*models.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *productRepository) scan(row rowScanner) (*models.Product, error) {
	var (
		p            models.Product
		releaseDate  sql.NullTime
		lastPostedAt sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.ExternalID,
		&p.Title,
		pq.Array(&p.Performers),
		pq.Array(&p.Categories),
		&p.Maker,
		&p.URL,
		&p.PackageImageURL,
		&releaseDate,
		&p.FetchedAt,
		&p.Posted,
		&lastPostedAt,
	)
	if err != nil {
		return nil, err
	}

	p.FetchedAt = p.FetchedAt.In(r.loc)
	p.ReleaseDate = nullTimeIn(releaseDate, r.loc)
	p.LastPostedAt = nullTimeIn(lastPostedAt, r.loc)
	return &p, nil
}
