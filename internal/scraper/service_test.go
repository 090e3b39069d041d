package scraper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklytics/bookscraper/internal/models"
	"github.com/booklytics/bookscraper/internal/normalize"
)

type fakeRunner struct {
	result *models.CrawlResult
	err    error
	calls  int
}

func (f *fakeRunner) Run(ctx context.Context, pages int) (*models.CrawlResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeCache struct {
	stored map[string]*models.CrawlResult
	getErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{stored: make(map[string]*models.CrawlResult)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (*models.CrawlResult, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	r, ok := f.stored[key]
	return r, ok, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, result *models.CrawlResult) error {
	f.stored[key] = result
	return nil
}

type fakeStore struct {
	saved int
	books []models.Book
	err   error
}

func (f *fakeStore) SaveRun(ctx context.Context, result *models.CrawlResult, books []models.Book) error {
	if f.err != nil {
		return f.err
	}
	f.saved++
	f.books = books
	return nil
}

func testResult() *models.CrawlResult {
	return &models.CrawlResult{
		RunID:   "run-1",
		BaseURL: "http://books.example/",
		Pages:   1,
		Books: []models.RawBook{
			{
				Title:            "A Light in the Attic",
				PriceText:        "£51.77",
				RatingLabel:      "Three",
				AvailabilityText: "In stock (22 available)",
				DetailURL:        "http://books.example/catalogue/a-light-in-the-attic_1000/index.html",
				Description:      "Poems.",
				HasDetail:        true,
			},
		},
		StartedAt:  time.Now().Add(-time.Second),
		FinishedAt: time.Now(),
	}
}

func newTestService(runner *fakeRunner) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(runner, normalize.New(normalize.Options{}), logger)
}

func TestServiceRunsPipeline(t *testing.T) {
	runner := &fakeRunner{result: testResult()}
	svc := newTestService(runner)

	out, err := svc.Run(context.Background(), 1)
	require.NoError(t, err)

	assert.False(t, out.FromCache)
	require.Len(t, out.Books, 1)
	assert.InDelta(t, 51.77, out.Books[0].Price, 0.001)
	assert.Equal(t, 3, out.Books[0].Rating)
	assert.Equal(t, 22, out.Books[0].Availability)
	assert.Equal(t, 1, out.Summary.Count)
	assert.InDelta(t, 51.77, out.Summary.AveragePrice, 0.001)
}

func TestServicePropagatesRunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("listing page 1: boom")}
	svc := newTestService(runner)

	out, err := svc.Run(context.Background(), 1)
	assert.Nil(t, out)
	assert.ErrorContains(t, err, "listing page 1")
}

func TestServiceCacheHitSkipsRunner(t *testing.T) {
	runner := &fakeRunner{result: testResult()}
	cache := newFakeCache()
	cache.stored["key-1"] = testResult()

	svc := newTestService(runner).WithCache(cache, func(pages int) string { return "key-1" })

	out, err := svc.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, out.FromCache)
	assert.Equal(t, 0, runner.calls, "cached result must not trigger a crawl")
	// Statistics are recomputed on every run, cached or not.
	assert.Equal(t, 1, out.Summary.Count)
}

func TestServiceCacheMissStoresResult(t *testing.T) {
	runner := &fakeRunner{result: testResult()}
	cache := newFakeCache()

	svc := newTestService(runner).WithCache(cache, func(pages int) string { return "key-1" })

	out, err := svc.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, out.FromCache)
	assert.Equal(t, 1, runner.calls)
	assert.Contains(t, cache.stored, "key-1")
}

func TestServiceDoesNotCacheInterruptedRun(t *testing.T) {
	interrupted := testResult()
	interrupted.Interrupted = true
	runner := &fakeRunner{result: interrupted}
	cache := newFakeCache()

	svc := newTestService(runner).WithCache(cache, func(pages int) string { return "key-1" })

	out, err := svc.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, out.Result.Interrupted)
	assert.Empty(t, cache.stored)
}

func TestServiceCacheErrorFallsThroughToCrawl(t *testing.T) {
	runner := &fakeRunner{result: testResult()}
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")

	svc := newTestService(runner).WithCache(cache, func(pages int) string { return "key-1" })

	out, err := svc.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, out.FromCache)
	assert.Equal(t, 1, runner.calls)
}

func TestServicePersistsRun(t *testing.T) {
	runner := &fakeRunner{result: testResult()}
	store := &fakeStore{}
	svc := newTestService(runner).WithStore(store)

	out, err := svc.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, store.saved)
	assert.Equal(t, out.Books, store.books)
}

func TestServicePersistErrorSurfaces(t *testing.T) {
	runner := &fakeRunner{result: testResult()}
	store := &fakeStore{err: errors.New("connection refused")}
	svc := newTestService(runner).WithStore(store)

	_, err := svc.Run(context.Background(), 1)
	assert.ErrorContains(t, err, "persist run run-1")
}

func TestServiceSkipsPersistOnCacheHit(t *testing.T) {
	runner := &fakeRunner{result: testResult()}
	cache := newFakeCache()
	cache.stored["key-1"] = testResult()
	store := &fakeStore{}

	svc := newTestService(runner).
		WithCache(cache, func(pages int) string { return "key-1" }).
		WithStore(store)

	out, err := svc.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, out.FromCache)
	assert.Equal(t, 0, store.saved)
}
