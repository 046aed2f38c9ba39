package handlers_test

import (
	"context"
	"time"

	"github.com/maheshrc27/curapost/internal/models"
	"github.com/maheshrc27/curapost/internal/transfer"
)

type fakeCuration struct {
	products   []*models.Product
	detail     *transfer.ProductDetail
	post       *transfer.PostDetail
	posts      []*models.Post
	selected   []*models.Media
	err        error
	gotFilter  models.ProductFilter
	gotStatus  models.PostStatus
	gotIDs     []int64
	markedIDs  []int64
	deletedIDs []int64
}

func (f *fakeCuration) ListProducts(_ context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	f.gotFilter = filter
	return f.products, f.err
}

func (f *fakeCuration) GetProduct(context.Context, int64) (*transfer.ProductDetail, error) {
	return f.detail, f.err
}

func (f *fakeCuration) DeleteProduct(_ context.Context, id int64) error {
	f.deletedIDs = append(f.deletedIDs, id)
	return f.err
}

func (f *fakeCuration) SelectMedia(_ context.Context, _ int64, ids []int64) ([]*models.Media, error) {
	f.gotIDs = ids
	return f.selected, f.err
}

func (f *fakeCuration) MarkPosted(_ context.Context, id int64, _ *time.Time) error {
	f.markedIDs = append(f.markedIDs, id)
	return nil
}

func (f *fakeCuration) ListPosts(_ context.Context, status models.PostStatus, _, _ int) ([]*models.Post, error) {
	f.gotStatus = status
	return f.posts, f.err
}

func (f *fakeCuration) GetPost(context.Context, int64) (*transfer.PostDetail, error) {
	return f.post, f.err
}

func (f *fakeCuration) DeletePost(_ context.Context, id int64) error {
	f.deletedIDs = append(f.deletedIDs, id)
	return f.err
}

type fakeScheduler struct {
	post   *models.Post
	err    error
	gotReq transfer.ScheduleRequest
}

func (f *fakeScheduler) SchedulePost(_ context.Context, req transfer.ScheduleRequest) (*models.Post, error) {
	f.gotReq = req
	return f.post, f.err
}

func (f *fakeScheduler) ScheduleUnposted(context.Context, int) (int, error) {
	return 0, nil
}

type fakeDispatcher struct {
	published int
	post      *models.Post
	err       error
}

func (f *fakeDispatcher) RunDue(context.Context, time.Time) (int, error) {
	return f.published, f.err
}

func (f *fakeDispatcher) Publish(context.Context, int64, time.Time) (*models.Post, error) {
	return f.post, f.err
}

type fakeEnqueuer struct {
	postIDs []int64
}

func (f *fakeEnqueuer) EnqueuePublish(_ context.Context, postID int64, _ time.Time) error {
	f.postIDs = append(f.postIDs, postID)
	return nil
}

type fakeCatalog struct {
	summary *transfer.IngestSummary
	err     error
	got     transfer.CatalogFilter
}

func (f *fakeCatalog) Ingest(_ context.Context, filter transfer.CatalogFilter) (*transfer.IngestSummary, error) {
	f.got = filter
	return f.summary, f.err
}
