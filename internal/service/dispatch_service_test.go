package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/maheshrc27/curapost/internal/lock"
	"github.com/maheshrc27/curapost/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dispatchNow = time.Date(2026, 5, 1, 15, 0, 0, 0, tokyo)

func scheduledPost(id int64, at time.Time, text string) *models.Post {
	return &models.Post{
		ID:          id,
		ProductID:   1,
		Text:        text,
		Status:      models.PostStatusScheduled,
		ScheduledAt: at,
	}
}

func writeImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF, 0xE0}, 0o644))
	return path
}

type dispatchFixture struct {
	posts     *fakePosts
	media     *fakeMedia
	products  *fakeProducts
	transport *fakeTransport
	svc       *dispatchService
}

func newDispatchFixture(opts DispatchOptions, posts ...*models.Post) *dispatchFixture {
	f := &dispatchFixture{
		posts:     newFakePosts(posts...),
		media:     newFakeMedia(),
		products:  newFakeProducts(&models.Product{ID: 1, URL: "https://example.com/item/1"}),
		transport: &fakeTransport{ready: true},
	}
	if opts.Location == nil {
		opts.Location = tokyo
	}
	f.svc = NewDispatchService(f.posts, f.media, f.products, f.transport, opts).(*dispatchService)
	f.svc.clock = func() time.Time { return dispatchNow }
	return f
}

func TestRunDue_TransportNotReady(t *testing.T) {
	f := newDispatchFixture(DispatchOptions{}, scheduledPost(1, dispatchNow.Add(-time.Hour), "hello"))
	f.transport.ready = false

	count, err := f.svc.RunDue(context.Background(), dispatchNow)

	assert.ErrorIs(t, err, ErrTransportUnauthenticated)
	assert.Zero(t, count)
	assert.Zero(t, f.posts.dueCalls)
	assert.Equal(t, models.PostStatusScheduled, f.posts.items[1].Status)
}

func TestRunDue_TextOnlyPost(t *testing.T) {
	f := newDispatchFixture(DispatchOptions{}, scheduledPost(1, dispatchNow.Add(-time.Minute), "hello"))

	count, err := f.svc.RunDue(context.Background(), dispatchNow)

	require.NoError(t, err)
	assert.Equal(t, 1, count)

	post := f.posts.items[1]
	assert.Equal(t, models.PostStatusPosted, post.Status)
	require.NotNil(t, post.PostedAt)
	assert.True(t, dispatchNow.Equal(*post.PostedAt))
	assert.NotEmpty(t, post.RemoteID)

	require.Len(t, f.transport.published, 1)
	assert.Equal(t, "hello", f.transport.published[0].text)
	assert.Empty(t, f.transport.published[0].handles)
}

func TestRunDue_SkipsFuturePosts(t *testing.T) {
	f := newDispatchFixture(DispatchOptions{},
		scheduledPost(1, dispatchNow, "due now"),
		scheduledPost(2, dispatchNow.Add(time.Second), "later"),
	)

	count, err := f.svc.RunDue(context.Background(), dispatchNow)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, models.PostStatusPosted, f.posts.items[1].Status)
	assert.Equal(t, models.PostStatusScheduled, f.posts.items[2].Status)
}

func TestRunDue_UploadsImagesInDisplayOrderAndSkipsMissing(t *testing.T) {
	first := writeImage(t, "first.jpg")
	second := writeImage(t, "second.jpg")

	f := newDispatchFixture(DispatchOptions{}, scheduledPost(1, dispatchNow.Add(-time.Minute), "with images"))
	f.media = newFakeMedia(
		&models.Media{ID: 10, ProductID: 1, Kind: models.MediaKindSample, LocalPath: second},
		&models.Media{ID: 11, ProductID: 1, Kind: models.MediaKindSample},
		&models.Media{ID: 12, ProductID: 1, Kind: models.MediaKindSample, LocalPath: filepath.Join(t.TempDir(), "gone.jpg")},
		&models.Media{ID: 13, ProductID: 1, Kind: models.MediaKindPackage, LocalPath: first},
	)
	f.media.link(1, 13, 11, 12, 10)
	f.svc.mr = f.media

	count, err := f.svc.RunDue(context.Background(), dispatchNow)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{first, second}, f.transport.uploads)
	require.Len(t, f.transport.published, 1)
	assert.Equal(t, []string{"handle-" + first, "handle-" + second}, f.transport.published[0].handles)
}

func TestRunDue_AllUploadsFailFallsBackToText(t *testing.T) {
	path := writeImage(t, "only.jpg")

	f := newDispatchFixture(DispatchOptions{}, scheduledPost(1, dispatchNow.Add(-time.Minute), "fallback"))
	f.media = newFakeMedia(&models.Media{ID: 10, ProductID: 1, Kind: models.MediaKindSample, LocalPath: path})
	f.media.link(1, 10)
	f.svc.mr = f.media
	f.transport.uploadErr = errBoom

	count, err := f.svc.RunDue(context.Background(), dispatchNow)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, f.transport.published, 1)
	assert.Empty(t, f.transport.published[0].handles)
	assert.Equal(t, models.PostStatusPosted, f.posts.items[1].Status)
}

const dmmItemURL = "https://www.dmm.co.jp/digital/videoa/-/detail/=/cid=abcd00123/?i3_ref=search&i3_ord=1"

func newVideoFixture(t *testing.T, opts DispatchOptions) *dispatchFixture {
	t.Helper()
	path := writeImage(t, "cover.jpg")

	f := newDispatchFixture(opts, scheduledPost(1, dispatchNow.Add(-time.Minute), "video post"))
	f.products = newFakeProducts(&models.Product{ID: 1, URL: dmmItemURL})
	f.svc.prod = f.products
	f.media = newFakeMedia(
		&models.Media{ID: 10, ProductID: 1, Kind: models.MediaKindPackage, LocalPath: path},
		&models.Media{ID: 11, ProductID: 1, Kind: models.MediaKindVideo, RemoteURL: "https://cdn.example.com/v.mp4"},
	)
	f.media.link(1, 10, 11)
	f.svc.mr = f.media
	return f
}

func TestRunDue_VideoPublishesReference(t *testing.T) {
	shortener := &fakeShortener{link: "https://bit.ly/3xYzAbC", ok: true}
	f := newVideoFixture(t, DispatchOptions{Shortener: shortener})

	count, err := f.svc.RunDue(context.Background(), dispatchNow)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Empty(t, f.transport.uploads)
	require.Len(t, f.transport.published, 1)
	assert.Equal(t, "video post\n\n動画: https://bit.ly/3xYzAbC", f.transport.published[0].text)
	assert.Empty(t, f.transport.published[0].handles)
	assert.Equal(t, []string{dmmItemURL}, shortener.calls)
}

func TestRunDue_VideoReferenceWithoutShortLink(t *testing.T) {
	tests := []struct {
		name      string
		shortener URLShortener
	}{
		{name: "no shortener"},
		{name: "shortener unavailable", shortener: &fakeShortener{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newVideoFixture(t, DispatchOptions{Shortener: tt.shortener})

			count, err := f.svc.RunDue(context.Background(), dispatchNow)

			require.NoError(t, err)
			assert.Equal(t, 1, count)
			require.Len(t, f.transport.published, 1)
			assert.Equal(t, "video post\n\n動画: "+SanitizeText(dmmItemURL), f.transport.published[0].text)
		})
	}
}

func TestRunDue_IsolatesFailures(t *testing.T) {
	f := newDispatchFixture(DispatchOptions{Concurrency: 2},
		scheduledPost(1, dispatchNow.Add(-time.Hour), "one"),
		scheduledPost(2, dispatchNow.Add(-time.Hour), "two"),
	)
	f.transport.publishErr = errBoom

	count, err := f.svc.RunDue(context.Background(), dispatchNow)

	require.NoError(t, err)
	assert.Zero(t, count)
	for _, id := range []int64{1, 2} {
		assert.Equal(t, models.PostStatusFailed, f.posts.items[id].Status)
		assert.Contains(t, f.posts.items[id].ErrorMessage, "boom")
		assert.Nil(t, f.posts.items[id].PostedAt)
	}

	// failed posts are not picked up again
	f.transport.publishErr = nil
	count, err = f.svc.RunDue(context.Background(), dispatchNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRunDue_TimeoutMarksFailed(t *testing.T) {
	f := newDispatchFixture(DispatchOptions{Timeout: 20 * time.Millisecond},
		scheduledPost(1, dispatchNow.Add(-time.Minute), "slow"))
	f.transport.block = true

	count, err := f.svc.RunDue(context.Background(), dispatchNow)

	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, models.PostStatusFailed, f.posts.items[1].Status)
	assert.Contains(t, f.posts.items[1].ErrorMessage, "deadline exceeded")
}

func TestRunDue_PanicIsRecordedAsFailure(t *testing.T) {
	f := newDispatchFixture(DispatchOptions{}, scheduledPost(1, dispatchNow.Add(-time.Minute), "panics"))
	f.transport.panicMsg = "transport exploded"

	count, err := f.svc.RunDue(context.Background(), dispatchNow)

	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, models.PostStatusFailed, f.posts.items[1].Status)
	assert.Equal(t, "panic: transport exploded", f.posts.items[1].ErrorMessage)
}

func TestRunDue_OverlappingPassesPublishEachPostOnce(t *testing.T) {
	var posts []*models.Post
	for i := int64(1); i <= 20; i++ {
		posts = append(posts, scheduledPost(i, dispatchNow.Add(-time.Minute), strings.Repeat("x", int(i))))
	}
	f := newDispatchFixture(DispatchOptions{Concurrency: 4}, posts...)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for n := 0; n < 3; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			count, err := f.svc.RunDue(context.Background(), dispatchNow)
			assert.NoError(t, err)
			mu.Lock()
			total += count
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, total)
	assert.Equal(t, 20, f.transport.publishCount())
}

func TestRunDue_HeldLockSkipsPass(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	locker := lock.NewRedisLocker(client, "test:")

	f := newDispatchFixture(DispatchOptions{Locker: locker}, scheduledPost(1, dispatchNow.Add(-time.Minute), "hello"))

	lease, err := locker.Obtain(context.Background(), dispatchLockKey, time.Minute)
	require.NoError(t, err)

	count, err := f.svc.RunDue(context.Background(), dispatchNow)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, f.posts.dueCalls)

	require.NoError(t, lease.Release(context.Background()))

	count, err = f.svc.RunDue(context.Background(), dispatchNow)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.False(t, mr.Exists("test:"+dispatchLockKey))
}

func TestRunDue_LockErrorFallsBackToRowLocks(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	f := newDispatchFixture(DispatchOptions{Locker: lock.NewRedisLocker(client, "test:")},
		scheduledPost(1, dispatchNow.Add(-time.Minute), "hello"))

	count, err := f.svc.RunDue(context.Background(), dispatchNow)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPublish(t *testing.T) {
	posted := scheduledPost(2, dispatchNow.Add(-time.Hour), "done")
	posted.Status = models.PostStatusPosted

	f := newDispatchFixture(DispatchOptions{},
		scheduledPost(1, dispatchNow.Add(-time.Minute), "due"),
		posted,
		scheduledPost(3, dispatchNow.Add(time.Hour), "future"),
	)

	post, err := f.svc.Publish(context.Background(), 1, dispatchNow)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPosted, post.Status)

	post, err = f.svc.Publish(context.Background(), 2, dispatchNow)
	assert.ErrorIs(t, err, ErrNotDispatchable)
	assert.Equal(t, int64(2), post.ID)

	_, err = f.svc.Publish(context.Background(), 3, dispatchNow)
	assert.ErrorIs(t, err, ErrNotDispatchable)

	_, err = f.svc.Publish(context.Background(), 99, dispatchNow)
	assert.ErrorIs(t, err, ErrNotFound)

	f.transport.ready = false
	_, err = f.svc.Publish(context.Background(), 3, dispatchNow.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrTransportUnauthenticated)
}
