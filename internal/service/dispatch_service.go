package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maheshrc27/curapost/internal/lock"
	"github.com/maheshrc27/curapost/internal/models"
	"github.com/maheshrc27/curapost/internal/repository"
)

const (
	dispatchLockKey = "dispatch"
	dispatchLockTTL = 30 * time.Minute
	videoRefLabel   = "\n\n動画: "
)

// Locker guards a whole dispatch pass. Row locks still protect each post without it.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (*lock.Lease, error)
}

type DispatchService interface {
	RunDue(ctx context.Context, now time.Time) (int, error)
	Publish(ctx context.Context, postID int64, now time.Time) (*models.Post, error)
}

type DispatchOptions struct {
	Timeout     time.Duration
	Concurrency int
	Location    *time.Location
	Locker      Locker
	// Shortener keeps the video reference link intact after sanitizing.
	Shortener URLShortener
}

type dispatchService struct {
	pr          repository.PostRepository
	mr          repository.MediaRepository
	prod        repository.ProductRepository
	transport   PublishTransport
	locker      Locker
	shortener   URLShortener
	timeout     time.Duration
	concurrency int
	loc         *time.Location
	clock       func() time.Time
}

func NewDispatchService(
	pr repository.PostRepository,
	mr repository.MediaRepository,
	prod repository.ProductRepository,
	transport PublishTransport,
	opts DispatchOptions) DispatchService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &dispatchService{
		pr:          pr,
		mr:          mr,
		prod:        prod,
		transport:   transport,
		locker:      opts.Locker,
		shortener:   opts.Shortener,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		loc:         opts.Location,
		clock:       time.Now,
	}
}

// RunDue publishes every post due at now in a single pass and returns the number published.
func (s *dispatchService) RunDue(ctx context.Context, now time.Time) (int, error) {
	if !s.transport.IsReady(ctx) {
		slog.Error("dispatch skipped", "error", ErrTransportUnauthenticated)
		return 0, ErrTransportUnauthenticated
	}

	if s.locker != nil {
		lease, err := s.locker.Obtain(ctx, dispatchLockKey, dispatchLockTTL)
		switch {
		case errors.Is(err, lock.ErrNotAcquired):
			slog.Info("dispatch pass already running")
			return 0, nil
		case err != nil:
			slog.Warn("dispatch lock unavailable, relying on row locks", "error", err)
		default:
			defer func() {
				if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
					slog.Warn("failed to release dispatch lock", "error", err)
				}
			}()
		}
	}

	ids, err := s.pr.ListDueIDs(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list due posts: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var (
		wg        sync.WaitGroup
		published atomic.Int64
	)
	semaphore := make(chan struct{}, s.concurrency)

	for _, id := range ids {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(id int64) {
			defer wg.Done()
			defer func() { <-semaphore }()

			post, err := s.pr.Dispatch(ctx, id, now, s.attempt)
			if err != nil {
				slog.Error("failed to record dispatch", "post_id", id, "error", err)
				return
			}
			if post == nil {
				return
			}
			if post.Status == models.PostStatusPosted {
				published.Add(1)
				slog.Info("post published", "post_id", id, "remote_id", post.RemoteID)
			} else {
				slog.Warn("post failed", "post_id", id, "error", post.ErrorMessage)
			}
		}(id)
	}

	wg.Wait()

	count := int(published.Load())
	slog.Info("dispatch pass finished", "due", len(ids), "published", count)
	return count, nil
}

// Publish dispatches a single post through the same attempt path the runner uses.
func (s *dispatchService) Publish(ctx context.Context, postID int64, now time.Time) (*models.Post, error) {
	if !s.transport.IsReady(ctx) {
		return nil, ErrTransportUnauthenticated
	}

	post, err := s.pr.Dispatch(ctx, postID, now, s.attempt)
	if err != nil {
		return nil, fmt.Errorf("failed to dispatch post %d: %w", postID, err)
	}
	if post != nil {
		return post, nil
	}

	existing, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}
	return existing, ErrNotDispatchable
}

// attempt never returns an error: every failure, panics included, ends up in the result.
func (s *dispatchService) attempt(ctx context.Context, post *models.Post) (result models.PublishResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("publish attempt panicked", "post_id", post.ID, "panic", r)
			result = models.PublishResult{Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	remoteID, err := s.publishPost(ctx, post)
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "publish failed"
		}
		return models.PublishResult{Error: msg}
	}

	return models.PublishResult{
		Posted:   true,
		RemoteID: remoteID,
		PostedAt: s.clock().In(s.loc),
	}
}

func (s *dispatchService) publishPost(ctx context.Context, post *models.Post) (string, error) {
	media, err := s.mr.ListByPostID(ctx, post.ID)
	if err != nil {
		return "", fmt.Errorf("failed to load post media: %w", err)
	}

	if len(media) == 0 {
		return s.send(ctx, post.Text, nil)
	}

	for _, m := range media {
		if m.Kind == models.MediaKindVideo {
			return s.sendWithVideoReference(ctx, post)
		}
	}

	var handles []string
	for _, m := range media {
		if m.LocalPath == "" {
			slog.Warn("media has no local file", "post_id", post.ID, "media_id", m.ID)
			continue
		}
		if _, err := os.Stat(m.LocalPath); err != nil {
			slog.Warn("media file unreadable", "post_id", post.ID, "media_id", m.ID, "path", m.LocalPath, "error", err)
			continue
		}

		handle, err := s.upload(ctx, m.LocalPath)
		if err != nil {
			slog.Warn("media upload failed", "post_id", post.ID, "media_id", m.ID, "error", err)
			continue
		}
		handles = append(handles, handle)
	}

	if len(handles) == 0 {
		slog.Warn("no media uploaded, publishing text only", "post_id", post.ID)
	}
	return s.send(ctx, post.Text, handles)
}

func (s *dispatchService) sendWithVideoReference(ctx context.Context, post *models.Post) (string, error) {
	text := post.Text

	product, err := s.prod.GetByID(ctx, post.ProductID)
	if err != nil {
		return "", fmt.Errorf("failed to load product: %w", err)
	}
	if product != nil && product.URL != "" {
		text += videoRefLabel + s.referenceLink(ctx, product.URL)
	}
	return s.send(ctx, text, nil)
}

func (s *dispatchService) referenceLink(ctx context.Context, url string) string {
	if s.shortener == nil {
		return url
	}
	if link, ok := s.shortener.Shorten(ctx, url); ok {
		return link
	}
	return url
}

func (s *dispatchService) upload(ctx context.Context, localPath string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.transport.UploadMedia(ctx, localPath)
}

func (s *dispatchService) send(ctx context.Context, text string, handles []string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	remoteID, err := s.transport.Publish(ctx, SanitizeText(text), handles)
	if err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}
	return remoteID, nil
}

func (s *dispatchService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
