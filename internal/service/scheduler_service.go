package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/curapost/internal/models"
	"github.com/maheshrc27/curapost/internal/repository"
	"github.com/maheshrc27/curapost/internal/transfer"
)

const explicitTimeLayout = "2006-01-02T15:04"

// MediaAcquirer makes media bytes available on local disk.
type MediaAcquirer interface {
	EnsureLocal(ctx context.Context, mediaID int64) bool
	EnsureSelected(ctx context.Context, productID int64) int
}

type SchedulerService interface {
	SchedulePost(ctx context.Context, req transfer.ScheduleRequest) (*models.Post, error)
	ScheduleUnposted(ctx context.Context, limit int) (int, error)
}

type schedulerService struct {
	db         *sql.DB
	prod       repository.ProductRepository
	mr         repository.MediaRepository
	pr         repository.PostRepository
	pm         repository.PostMediaRepository
	composer   *Composer
	allocator  *SlotAllocator
	acquirer   MediaAcquirer
	dispatcher DispatchService
	clock      func() time.Time
}

func NewSchedulerService(
	db *sql.DB,
	prod repository.ProductRepository,
	mr repository.MediaRepository,
	pr repository.PostRepository,
	pm repository.PostMediaRepository,
	composer *Composer,
	allocator *SlotAllocator,
	acquirer MediaAcquirer,
	dispatcher DispatchService) SchedulerService {
	return &schedulerService{
		db:         db,
		prod:       prod,
		mr:         mr,
		pr:         pr,
		pm:         pm,
		composer:   composer,
		allocator:  allocator,
		acquirer:   acquirer,
		dispatcher: dispatcher,
		clock:      time.Now,
	}
}

// SchedulePost creates a post for the product's selected media. In immediate mode the
// post is published right away; a transport error is returned alongside the created post.
func (s *schedulerService) SchedulePost(ctx context.Context, req transfer.ScheduleRequest) (*models.Post, error) {
	mode := models.PostMode(req.Mode)
	if mode == "" {
		mode = models.PostModeScheduled
	}
	if mode != models.PostModeScheduled && mode != models.PostModeImmediate {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}

	product, err := s.prod.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("product %d: %w", req.ProductID, ErrNotFound)
	}

	selected, err := s.mr.ListSelectedByProductID(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load selected media: %w", err)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("product %d: %w", product.ID, ErrNoSelectedMedia)
	}

	var text string
	if req.Text != nil && *req.Text != "" {
		text = *req.Text
	} else {
		text = s.composer.Compose(ctx, product)
	}

	now := s.clock().In(s.allocator.Location)

	var scheduledAt time.Time
	if mode == models.PostModeImmediate {
		downloaded := s.acquirer.EnsureSelected(ctx, product.ID)
		slog.Info("acquired media for immediate post", "product_id", product.ID, "downloaded", downloaded)
		scheduledAt = now
	} else {
		scheduledAt, err = s.resolveTime(ctx, req.ScheduledAt, now)
		if err != nil {
			return nil, err
		}
	}

	post := &models.Post{
		ProductID:   product.ID,
		Text:        text,
		Status:      models.PostStatusScheduled,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if post.ID, err = s.persist(ctx, post, selected); err != nil {
		return nil, err
	}
	slog.Info("post scheduled", "post_id", post.ID, "product_id", product.ID, "scheduled_at", scheduledAt, "mode", mode)

	if mode == models.PostModeImmediate {
		dispatched, err := s.dispatcher.Publish(ctx, post.ID, now)
		if err != nil {
			return post, err
		}
		return dispatched, nil
	}

	return post, nil
}

// ScheduleUnposted schedules posts for unposted products that have curated media and
// flags each product as posted once its post exists.
func (s *schedulerService) ScheduleUnposted(ctx context.Context, limit int) (int, error) {
	products, err := s.prod.ListUnpostedWithSelection(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list unposted products: %w", err)
	}

	count := 0
	for _, p := range products {
		_, err := s.SchedulePost(ctx, transfer.ScheduleRequest{
			ProductID: p.ID,
			Mode:      string(models.PostModeScheduled),
		})
		if err != nil {
			slog.Warn("failed to schedule product", "product_id", p.ID, "error", err)
			continue
		}

		if err := s.prod.MarkPosted(ctx, nil, p.ID, nil); err != nil {
			slog.Error("failed to mark product posted", "product_id", p.ID, "error", err)
			continue
		}
		count++
	}

	return count, nil
}

func (s *schedulerService) resolveTime(ctx context.Context, explicit string, now time.Time) (time.Time, error) {
	if explicit != "" {
		if t, ok := parseExplicitTime(explicit, s.allocator.Location); ok {
			return t, nil
		}
		slog.Warn("unparseable schedule time, allocating next slot", "scheduled_at", explicit)
	}

	latest, err := s.pr.GetLatestScheduled(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load latest scheduled post: %w", err)
	}

	var latestAt *time.Time
	if latest != nil {
		latestAt = &latest.ScheduledAt
	}
	return s.allocator.NextSlot(now, latestAt), nil
}

func (s *schedulerService) persist(ctx context.Context, post *models.Post, selected []*models.Media) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	id, err = s.pr.Create(ctx, tx, post)
	if err != nil {
		return 0, fmt.Errorf("error creating post: %w", err)
	}

	for i, m := range selected {
		order := i + 1
		if m.SelectionOrder != nil {
			order = *m.SelectionOrder
		}
		err = s.pm.Create(ctx, tx, &models.PostMedia{
			PostID:       id,
			MediaID:      m.ID,
			DisplayOrder: order,
		})
		if err != nil {
			return 0, fmt.Errorf("error linking media %d: %w", m.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

func parseExplicitTime(value string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), true
	}
	if t, err := time.ParseInLocation(explicitTimeLayout, value, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}
