package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/curapost/internal/models"
)

const postColumns = `id, product_id, post_text, status, scheduled_at, posted_at,
	error_message, remote_id, created_at, updated_at`

// AttemptFunc performs the publish of a claimed post. It runs while the row is locked.
type AttemptFunc func(ctx context.Context, post *models.Post) models.PublishResult

type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	List(ctx context.Context, status models.PostStatus, limit, offset int) ([]*models.Post, error)
	ListByProductID(ctx context.Context, productID int64) ([]*models.Post, error)
	GetLatestScheduled(ctx context.Context) (*models.Post, error)
	ListDueIDs(ctx context.Context, now time.Time) ([]int64, error)
	Dispatch(ctx context.Context, id int64, now time.Time, attempt AttemptFunc) (*models.Post, error)
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db  *sql.DB
	loc *time.Location
}

func NewPostRepository(db *sql.DB, loc *time.Location) PostRepository {
	return &postRepository{db: db, loc: loc}
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (product_id, post_text, status, scheduled_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	status := post.Status
	if status == "" {
		status = models.PostStatusScheduled
	}

	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query, post.ProductID, post.Text, status, post.ScheduledAt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

// List returns posts ordered by scheduled time. An empty status lists every post.
func (r *postRepository) List(ctx context.Context, status models.PostStatus, limit, offset int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts`
	args := []any{}

	if status != "" {
		args = append(args, status)
		query += ` WHERE status = $1`
	}
	query += ` ORDER BY scheduled_at DESC`

	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	return r.query(ctx, query, args...)
}

func (r *postRepository) ListByProductID(ctx context.Context, productID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE product_id = $1 ORDER BY scheduled_at DESC`
	return r.query(ctx, query, productID)
}

// GetLatestScheduled returns the still-scheduled post with the greatest scheduled time.
func (r *postRepository) GetLatestScheduled(ctx context.Context) (*models.Post, error) {
	query := `
		SELECT ` + postColumns + ` FROM posts
		WHERE status = $1
		ORDER BY scheduled_at DESC
		LIMIT 1
	`

	post, err := r.scan(r.db.QueryRowContext(ctx, query, models.PostStatusScheduled))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListDueIDs(ctx context.Context, now time.Time) ([]int64, error) {
	query := `
		SELECT id FROM posts
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, models.PostStatusScheduled, now)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Dispatch claims a due post, runs attempt and records its outcome in one transaction.
// It returns a nil post when the row is no longer due, already terminal, or held by
// another dispatcher. A successful attempt also marks the product as posted.
func (r *postRepository) Dispatch(ctx context.Context, id int64, now time.Time, attempt AttemptFunc) (*models.Post, error) {
	// The outcome must be written even when the caller's deadline fires during the attempt.
	txCtx := context.WithoutCancel(ctx)

	tx, err := r.db.BeginTx(txCtx, nil)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer tx.Rollback()

	claimQuery := `
		SELECT ` + postColumns + ` FROM posts
		WHERE id = $1 AND status = $2 AND scheduled_at <= $3
		FOR UPDATE SKIP LOCKED
	`
	post, err := r.scan(tx.QueryRowContext(txCtx, claimQuery, id, models.PostStatusScheduled, now))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	result := attempt(ctx, post)

	if result.Posted {
		postedAt := result.PostedAt.In(r.loc)
		updateQuery := `
			UPDATE posts
			SET status = $1,
				posted_at = $2,
				remote_id = $3,
				error_message = NULL,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = $4
		`
		if _, err := tx.ExecContext(txCtx, updateQuery, models.PostStatusPosted, postedAt, nullString(result.RemoteID), id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}

		productQuery := `UPDATE products SET posted = TRUE, last_posted_at = $1 WHERE id = $2`
		if _, err := tx.ExecContext(txCtx, productQuery, postedAt, post.ProductID); err != nil {
			slog.Info(err.Error())
			return nil, err
		}

		post.Status = models.PostStatusPosted
		post.PostedAt = &postedAt
		post.RemoteID = result.RemoteID
		post.ErrorMessage = ""
	} else {
		updateQuery := `
			UPDATE posts
			SET status = $1,
				error_message = $2,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = $3
		`
		if _, err := tx.ExecContext(txCtx, updateQuery, models.PostStatusFailed, result.Error, id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}

		post.Status = models.PostStatusFailed
		post.ErrorMessage = result.Error
	}

	if err := tx.Commit(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return expectOneRow(result)
}

func (r *postRepository) query(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := r.scan(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) scan(row rowScanner) (*models.Post, error) {
	var (
		post         models.Post
		postedAt     sql.NullTime
		errorMessage sql.NullString
		remoteID     sql.NullString
	)
	err := row.Scan(
		&post.ID,
		&post.ProductID,
		&post.Text,
		&post.Status,
		&post.ScheduledAt,
		&postedAt,
		&errorMessage,
		&remoteID,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	post.ScheduledAt = post.ScheduledAt.In(r.loc)
	post.PostedAt = nullTimeIn(postedAt, r.loc)
	post.ErrorMessage = errorMessage.String
	post.RemoteID = remoteID.String
	post.CreatedAt = post.CreatedAt.In(r.loc)
	post.UpdatedAt = post.UpdatedAt.In(r.loc)
	return &post, nil
}
