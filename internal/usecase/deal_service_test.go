package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budwatch/backend/internal/domain"
	"github.com/budwatch/backend/internal/infrastructure/cache"
	"github.com/budwatch/backend/internal/pkg/logger"
)

// mockDealRepository is a mock implementation of domain.DealRepository
type mockDealRepository struct {
	mu        sync.Mutex
	active    []domain.Deal
	replaced  int
	saveErr   error
	listErr   error
	listCalls int
}

func (m *mockDealRepository) ReplaceActiveDeals(ctx context.Context, deals []domain.Deal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.replaced++
	m.active = append([]domain.Deal(nil), deals...)
	return nil
}

func (m *mockDealRepository) ListActive(ctx context.Context) ([]domain.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]domain.Deal(nil), m.active...), nil
}

// failingCache fails every operation
type failingCache struct{}

var errCacheDown = errors.New("cache down")

func (failingCache) Get(ctx context.Context, key string, dest interface{}) error { return errCacheDown }
func (failingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errCacheDown
}
func (failingCache) Delete(ctx context.Context, key string) error         { return errCacheDown }
func (failingCache) Exists(ctx context.Context, key string) (bool, error) { return false, errCacheDown }

func newTestDealService(t *testing.T, repo domain.DealRepository, c domain.CacheRepository) *DealService {
	t.Helper()
	catalog := MustNewCatalog(DefaultCatalogConfig())
	detector, err := NewDealDetector(catalog, DetectorConfig{})
	require.NoError(t, err)
	return NewDealService(NewProductParser(catalog), detector, repo, c, logger.NewNop(), DealServiceConfig{})
}

func newMemoryCache(t *testing.T) *cache.MemoryCache {
	t.Helper()
	c := cache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testBatches() map[string][]domain.RawScrapeRecord {
	return map[string][]domain.RawScrapeRecord{
		"td-gibson": {
			{RawText: "Blue Dream\nIndica\n$30.00 $15.00\n3.5g\nTHC: 24.5%"},
			{RawText: "STIIIZY Pod .35g $25.00"},
		},
		"the-spot": {
			{Name: "Kiva Camino Gummies", RawText: "Kiva Camino Gummies 100mg\n$20.00 $12.00"},
			{RawText: "Glass Pipe $10"},
		},
	}
}

func TestNewDealService(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		svc := NewDealService(nil, nil, nil, failingCache{}, nil, DealServiceConfig{})
		assert.Equal(t, 6*time.Hour, svc.cacheTTL)
		assert.Equal(t, defaultParseConcurrency, svc.concurrency)
		assert.NotNil(t, svc.log)
	})

	t.Run("keeps provided values", func(t *testing.T) {
		svc := NewDealService(nil, nil, nil, failingCache{}, nil, DealServiceConfig{CacheTTL: time.Minute, ParseConcurrency: 2})
		assert.Equal(t, time.Minute, svc.cacheTTL)
		assert.Equal(t, 2, svc.concurrency)
	})
}

func TestDealServiceRun(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects empty batches", func(t *testing.T) {
		svc := newTestDealService(t, nil, newMemoryCache(t))
		_, err := svc.Run(ctx, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("parses selects persists and caches", func(t *testing.T) {
		repo := &mockDealRepository{}
		memCache := newMemoryCache(t)
		svc := newTestDealService(t, repo, memCache)

		result, err := svc.Run(ctx, testBatches())
		require.NoError(t, err)

		assert.NotEmpty(t, result.RunID)
		require.Len(t, result.Products, 4)
		// Batches merge in dispensary order.
		assert.Equal(t, "td-gibson", result.Products[0].DispensaryID)
		assert.Equal(t, "Blue Dream", result.Products[0].Name)
		assert.Equal(t, "the-spot", result.Products[3].DispensaryID)

		require.Len(t, result.Selection.Deals, 2)
		assert.Equal(t, 60, result.Products[0].DealScore)
		assert.Equal(t, 0, result.Products[1].DealScore)
		assert.Equal(t, 2, result.Summary.SelectedDeals)
		assert.Equal(t, 4, result.Summary.TotalProducts)

		assert.Equal(t, 1, repo.replaced)
		assert.Len(t, repo.active, 2)

		var cached []domain.Deal
		require.NoError(t, memCache.Get(ctx, ActiveDealsCacheKey, &cached))
		assert.Equal(t, result.Selection.Deals, cached)
	})

	t.Run("storage and cache failures do not fail the run", func(t *testing.T) {
		repo := &mockDealRepository{saveErr: errors.New("disk full")}
		svc := newTestDealService(t, repo, failingCache{})

		result, err := svc.Run(ctx, testBatches())
		require.NoError(t, err)
		assert.Len(t, result.Selection.Deals, 2)
	})

	t.Run("honors cancellation", func(t *testing.T) {
		svc := newTestDealService(t, nil, newMemoryCache(t))
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := svc.Run(cancelled, testBatches())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDealServiceActiveDeals(t *testing.T) {
	ctx := context.Background()
	stored := []domain.Deal{{Product: domain.Product{Name: "Blue Dream", DealScore: 60}, Badge: domain.BadgeSolid}}

	t.Run("cache hit skips repository", func(t *testing.T) {
		repo := &mockDealRepository{}
		memCache := newMemoryCache(t)
		require.NoError(t, memCache.Set(ctx, ActiveDealsCacheKey, stored, time.Minute))
		svc := newTestDealService(t, repo, memCache)

		deals, err := svc.ActiveDeals(ctx)
		require.NoError(t, err)
		assert.Equal(t, stored, deals)
		assert.Zero(t, repo.listCalls)
	})

	t.Run("cache miss reads repository and refills cache", func(t *testing.T) {
		repo := &mockDealRepository{active: stored}
		memCache := newMemoryCache(t)
		svc := newTestDealService(t, repo, memCache)

		deals, err := svc.ActiveDeals(ctx)
		require.NoError(t, err)
		assert.Equal(t, stored, deals)
		assert.Equal(t, 1, repo.listCalls)

		exists, err := memCache.Exists(ctx, ActiveDealsCacheKey)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("cache failure falls back to repository", func(t *testing.T) {
		repo := &mockDealRepository{active: stored}
		svc := newTestDealService(t, repo, failingCache{})

		deals, err := svc.ActiveDeals(ctx)
		require.NoError(t, err)
		assert.Equal(t, stored, deals)
	})

	t.Run("no repository and empty cache", func(t *testing.T) {
		svc := newTestDealService(t, nil, newMemoryCache(t))

		_, err := svc.ActiveDeals(ctx)
		assert.ErrorIs(t, err, domain.ErrDealsNotFound)
	})

	t.Run("empty repository", func(t *testing.T) {
		svc := newTestDealService(t, &mockDealRepository{}, newMemoryCache(t))

		_, err := svc.ActiveDeals(ctx)
		assert.ErrorIs(t, err, domain.ErrDealsNotFound)
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := &mockDealRepository{listErr: errors.New("database is locked")}
		svc := newTestDealService(t, repo, newMemoryCache(t))

		_, err := svc.ActiveDeals(ctx)
		assert.ErrorIs(t, err, domain.ErrStorageFailure)
	})
}
