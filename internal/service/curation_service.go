package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/curapost/internal/models"
	"github.com/maheshrc27/curapost/internal/repository"
	"github.com/maheshrc27/curapost/internal/transfer"
)

// DownloadEnqueuer schedules background media downloads.
type DownloadEnqueuer interface {
	EnqueueDownload(ctx context.Context, mediaID int64) error
}

type CurationService interface {
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error)
	GetProduct(ctx context.Context, productID int64) (*transfer.ProductDetail, error)
	DeleteProduct(ctx context.Context, productID int64) error
	SelectMedia(ctx context.Context, productID int64, mediaIDs []int64) ([]*models.Media, error)
	MarkPosted(ctx context.Context, productID int64, at *time.Time) error
	ListPosts(ctx context.Context, status models.PostStatus, limit, offset int) ([]*models.Post, error)
	GetPost(ctx context.Context, postID int64) (*transfer.PostDetail, error)
	DeletePost(ctx context.Context, postID int64) error
}

type curationService struct {
	prod     repository.ProductRepository
	mr       repository.MediaRepository
	pr       repository.PostRepository
	enqueuer DownloadEnqueuer
}

func NewCurationService(
	prod repository.ProductRepository,
	mr repository.MediaRepository,
	pr repository.PostRepository,
	enqueuer DownloadEnqueuer) CurationService {
	return &curationService{
		prod:     prod,
		mr:       mr,
		pr:       pr,
		enqueuer: enqueuer,
	}
}

func (s *curationService) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	products, err := s.prod.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *curationService) GetProduct(ctx context.Context, productID int64) (*transfer.ProductDetail, error) {
	product, err := s.prod.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}

	media, err := s.mr.ListByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}
	posts, err := s.pr.ListByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}

	return &transfer.ProductDetail{Product: product, Media: media, Posts: posts}, nil
}

func (s *curationService) DeleteProduct(ctx context.Context, productID int64) error {
	return notFound(s.prod.Remove(ctx, productID))
}

// SelectMedia replaces the product's selection with mediaIDs, in that order, and queues
// downloads for the new selection.
func (s *curationService) SelectMedia(ctx context.Context, productID int64, mediaIDs []int64) ([]*models.Media, error) {
	if len(mediaIDs) > models.MaxSelectedMedia {
		return nil, fmt.Errorf("%w: %d given, at most %d allowed", ErrTooManySelected, len(mediaIDs), models.MaxSelectedMedia)
	}

	seen := make(map[int64]struct{}, len(mediaIDs))
	for _, id := range mediaIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: media %d listed twice", ErrInvalidSelection, id)
		}
		seen[id] = struct{}{}
	}

	product, err := s.prod.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}

	if err := s.mr.SetSelection(ctx, productID, mediaIDs); err != nil {
		if errors.Is(err, repository.ErrMediaNotInProduct) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
		}
		return nil, err
	}

	selected, err := s.mr.ListSelectedByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if s.enqueuer != nil {
		for _, m := range selected {
			if m.Downloaded || m.Kind == models.MediaKindVideo {
				continue
			}
			if err := s.enqueuer.EnqueueDownload(ctx, m.ID); err != nil {
				slog.Warn("failed to enqueue media download", "media_id", m.ID, "error", err)
			}
		}
	}

	return selected, nil
}

func (s *curationService) MarkPosted(ctx context.Context, productID int64, at *time.Time) error {
	return notFound(s.prod.MarkPosted(ctx, nil, productID, at))
}

func (s *curationService) ListPosts(ctx context.Context, status models.PostStatus, limit, offset int) ([]*models.Post, error) {
	posts, err := s.pr.List(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

func (s *curationService) GetPost(ctx context.Context, postID int64) (*transfer.PostDetail, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrNotFound
	}

	media, err := s.mr.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &transfer.PostDetail{Post: post, Media: media}, nil
}

func (s *curationService) DeletePost(ctx context.Context, postID int64) error {
	return notFound(s.pr.Remove(ctx, postID))
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
