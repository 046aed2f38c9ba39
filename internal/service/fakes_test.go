package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/curapost/internal/models"
	"github.com/maheshrc27/curapost/internal/repository"
)

var tokyo = time.FixedZone("JST", 9*60*60)

type fakeProducts struct {
	mu         sync.Mutex
	items      map[int64]*models.Product
	unposted   []*models.Product
	marked     []int64
	removed    []int64
	nextID     int64
	externalID map[string]bool
}

func newFakeProducts(products ...*models.Product) *fakeProducts {
	f := &fakeProducts{items: map[int64]*models.Product{}, externalID: map[string]bool{}, nextID: 100}
	for _, p := range products {
		f.items[p.ID] = p
		if p.ExternalID != "" {
			f.externalID[p.ExternalID] = true
		}
	}
	return f
}

func (f *fakeProducts) Create(_ context.Context, _ *sql.Tx, p *models.Product) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	f.items[p.ID] = p
	f.externalID[p.ExternalID] = true
	return p.ID, nil
}

func (f *fakeProducts) GetByID(_ context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id], nil
}

func (f *fakeProducts) ExistsByExternalID(_ context.Context, externalID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.externalID[externalID], nil
}

func (f *fakeProducts) List(context.Context, models.ProductFilter) ([]*models.Product, error) {
	return nil, nil
}

func (f *fakeProducts) ListUnpostedWithSelection(_ context.Context, limit int) ([]*models.Product, error) {
	if len(f.unposted) > limit {
		return f.unposted[:limit], nil
	}
	return f.unposted, nil
}

func (f *fakeProducts) MarkPosted(_ context.Context, _ *sql.Tx, id int64, _ *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return sql.ErrNoRows
	}
	f.marked = append(f.marked, id)
	f.items[id].Posted = true
	return nil
}

func (f *fakeProducts) Remove(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.items, id)
	f.removed = append(f.removed, id)
	return nil
}

type fakeMedia struct {
	mu         sync.Mutex
	items      map[int64]*models.Media
	byPost     map[int64][]int64
	nextID     int64
	selectErr  error
	downloaded map[int64]string
}

func newFakeMedia(media ...*models.Media) *fakeMedia {
	f := &fakeMedia{
		items:      map[int64]*models.Media{},
		byPost:     map[int64][]int64{},
		downloaded: map[int64]string{},
		nextID:     1000,
	}
	for _, m := range media {
		f.items[m.ID] = m
	}
	return f
}

func (f *fakeMedia) link(postID int64, mediaIDs ...int64) {
	f.byPost[postID] = append(f.byPost[postID], mediaIDs...)
}

func (f *fakeMedia) Create(_ context.Context, _ *sql.Tx, m *models.Media) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m.ID = f.nextID
	f.items[m.ID] = m
	return m.ID, nil
}

func (f *fakeMedia) GetByID(_ context.Context, id int64) (*models.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id], nil
}

func (f *fakeMedia) ListByProductID(_ context.Context, productID int64) ([]*models.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Media
	for _, m := range f.items {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeMedia) ListSelectedByProductID(ctx context.Context, productID int64) ([]*models.Media, error) {
	all, _ := f.ListByProductID(ctx, productID)
	var out []*models.Media
	for _, m := range all {
		if m.Selected {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].SelectionOrder < *out[j].SelectionOrder })
	return out, nil
}

func (f *fakeMedia) ListByPostID(_ context.Context, postID int64) ([]*models.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Media
	for _, id := range f.byPost[postID] {
		out = append(out, f.items[id])
	}
	return out, nil
}

func (f *fakeMedia) SetSelection(_ context.Context, productID int64, mediaIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selectErr != nil {
		return f.selectErr
	}
	for _, id := range mediaIDs {
		if m, ok := f.items[id]; !ok || m.ProductID != productID {
			return repository.ErrMediaNotInProduct
		}
	}
	for _, m := range f.items {
		if m.ProductID == productID {
			m.Selected = false
			m.SelectionOrder = nil
		}
	}
	for i, id := range mediaIDs {
		order := i + 1
		f.items[id].Selected = true
		f.items[id].SelectionOrder = &order
	}
	return nil
}

func (f *fakeMedia) MarkDownloaded(_ context.Context, id int64, localPath, mirrorURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	m.Downloaded = true
	m.LocalPath = localPath
	if mirrorURL != "" {
		m.MirrorURL = mirrorURL
	}
	f.downloaded[id] = localPath
	return nil
}

type fakePosts struct {
	mu        sync.Mutex
	items     map[int64]*models.Post
	nextID    int64
	claimed   map[int64]bool
	latest    *models.Post
	dueCalls  int
	createErr error
}

func newFakePosts(posts ...*models.Post) *fakePosts {
	f := &fakePosts{items: map[int64]*models.Post{}, claimed: map[int64]bool{}}
	for _, p := range posts {
		f.items[p.ID] = p
		if p.ID > f.nextID {
			f.nextID = p.ID
		}
	}
	return f
}

func (f *fakePosts) GetByID(_ context.Context, id int64) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePosts) Create(_ context.Context, _ *sql.Tx, post *models.Post) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	cp := *post
	cp.ID = f.nextID
	f.items[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakePosts) List(_ context.Context, status models.PostStatus, _, _ int) ([]*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Post
	for _, p := range f.items {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePosts) ListByProductID(_ context.Context, productID int64) ([]*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Post
	for _, p := range f.items {
		if p.ProductID == productID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePosts) GetLatestScheduled(context.Context) (*models.Post, error) {
	return f.latest, nil
}

func (f *fakePosts) ListDueIDs(_ context.Context, now time.Time) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dueCalls++
	var ids []int64
	for id, p := range f.items {
		if p.Status == models.PostStatusScheduled && !p.ScheduledAt.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Dispatch mirrors the row-lock claim: a post is handed to attempt at most once.
func (f *fakePosts) Dispatch(ctx context.Context, id int64, now time.Time, attempt repository.AttemptFunc) (*models.Post, error) {
	f.mu.Lock()
	p, ok := f.items[id]
	if !ok || f.claimed[id] || p.Status != models.PostStatusScheduled || p.ScheduledAt.After(now) {
		f.mu.Unlock()
		return nil, nil
	}
	f.claimed[id] = true
	post := *p
	f.mu.Unlock()

	result := attempt(ctx, &post)

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claimed, id)
	if result.Posted {
		postedAt := result.PostedAt
		p.Status = models.PostStatusPosted
		p.PostedAt = &postedAt
		p.RemoteID = result.RemoteID
		p.ErrorMessage = ""
	} else {
		p.Status = models.PostStatusFailed
		p.ErrorMessage = result.Error
	}
	cp := *p
	return &cp, nil
}

func (f *fakePosts) Remove(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.items, id)
	return nil
}

type fakePostMedia struct {
	mu    sync.Mutex
	links []*models.PostMedia
	err   error
}

func (f *fakePostMedia) Create(_ context.Context, _ *sql.Tx, pm *models.PostMedia) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.links = append(f.links, pm)
	return nil
}

type fakeShortener struct {
	mu    sync.Mutex
	link  string
	ok    bool
	calls []string
}

func (f *fakeShortener) Shorten(_ context.Context, url string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	return f.link, f.ok
}

type publishCall struct {
	text    string
	handles []string
}

type fakeTransport struct {
	mu         sync.Mutex
	ready      bool
	uploads    []string
	published  []publishCall
	uploadErr  error
	publishErr error
	block      bool
	panicMsg   string
}

func (f *fakeTransport) IsReady(context.Context) bool {
	return f.ready
}

func (f *fakeTransport) UploadMedia(_ context.Context, localPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, localPath)
	return "handle-" + localPath, nil
}

func (f *fakeTransport) Publish(ctx context.Context, text string, handles []string) (string, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return "", f.publishErr
	}
	f.published = append(f.published, publishCall{text: text, handles: handles})
	return "remote-" + text[:min(len(text), 8)], nil
}

func (f *fakeTransport) publishCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

type fakeAcquirer struct {
	mu       sync.Mutex
	selected []int64
	local    []int64
}

func (f *fakeAcquirer) EnsureLocal(_ context.Context, mediaID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.local = append(f.local, mediaID)
	return true
}

func (f *fakeAcquirer) EnsureSelected(_ context.Context, productID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = append(f.selected, productID)
	return 1
}

type fakeDispatcher struct {
	published []int64
	result    *models.Post
	err       error
}

func (f *fakeDispatcher) RunDue(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (f *fakeDispatcher) Publish(_ context.Context, postID int64, _ time.Time) (*models.Post, error) {
	f.published = append(f.published, postID)
	return f.result, f.err
}

type fakeEnqueuer struct {
	ids []int64
	err error
}

func (f *fakeEnqueuer) EnqueueDownload(_ context.Context, mediaID int64) error {
	f.ids = append(f.ids, mediaID)
	return f.err
}

var errBoom = errors.New("boom")

func intPtr(v int) *int { return &v }
