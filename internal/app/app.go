// Package app assembles the deal pipeline from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/budwatch/backend/config"
	"github.com/budwatch/backend/internal/domain"
	"github.com/budwatch/backend/internal/infrastructure/cache"
	"github.com/budwatch/backend/internal/infrastructure/store"
	"github.com/budwatch/backend/internal/pkg/logger"
	"github.com/budwatch/backend/internal/usecase"
)

// App holds the wired pipeline and the resources it owns.
type App struct {
	Catalog  *usecase.Catalog
	Detector *usecase.DealDetector
	Parser   *usecase.ProductParser
	Deals    *usecase.DealService

	closers []func() error
}

// New builds the catalog, detector, cache, optional deal store and the deal
// service. Callers must Close the returned App.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.NewNop()
	}
	a := &App{}

	catalogCfg := usecase.DefaultCatalogConfig()
	if len(cfg.Deals.PremiumBrands) > 0 {
		catalogCfg.PremiumBrands = cfg.Deals.PremiumBrands
	}
	catalog, err := usecase.NewCatalog(catalogCfg)
	if err != nil {
		return nil, err
	}
	a.Catalog = catalog

	detectorCfg, err := DetectorConfig(cfg.Deals)
	if err != nil {
		return nil, err
	}
	if a.Detector, err = usecase.NewDealDetector(catalog, detectorCfg); err != nil {
		return nil, err
	}
	a.Parser = usecase.NewProductParser(catalog)

	dealCache, err := a.openCache(ctx, cfg.Cache, log)
	if err != nil {
		return nil, err
	}

	var repo domain.DealRepository
	if cfg.Storage.DSN != "" {
		db, err := store.Open(cfg.Storage.DSN)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
		}
		a.closers = append(a.closers, sqlDB.Close)
		repo = store.NewDealRepository(db)
		log.Info("deal store opened", "dsn", cfg.Storage.DSN)
	} else {
		log.Warn("storage.dsn is empty, deals are only cached")
	}

	a.Deals = usecase.NewDealService(a.Parser, a.Detector, repo, dealCache, log, usecase.DealServiceConfig{
		CacheTTL:         cfg.Cache.TTL,
		ParseConcurrency: cfg.Deals.ParseConcurrency,
	})
	return a, nil
}

func (a *App) openCache(ctx context.Context, cfg config.CacheConfig, log *logger.Logger) (domain.CacheRepository, error) {
	switch cfg.Type {
	case "redis":
		c, err := cache.NewRedisCache(ctx, cfg.RedisURL, cfg.KeyPrefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		log.Info("using redis cache", "prefix", cfg.KeyPrefix)
		return c, nil
	default:
		c := cache.NewMemoryCache()
		a.closers = append(a.closers, c.Close)
		log.Info("using in-memory cache")
		return c, nil
	}
}

// Close releases the cache and database handles.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// DetectorConfig converts the deals section of the configuration.
func DetectorConfig(d config.DealsConfig) (usecase.DetectorConfig, error) {
	targets := make(map[domain.Category]int, len(d.CategoryTargets))
	for name, n := range d.CategoryTargets {
		category := domain.Category(strings.ToLower(strings.TrimSpace(name)))
		if !category.Valid() {
			return usecase.DetectorConfig{}, fmt.Errorf("%w: unknown category %q in deals.category_targets", domain.ErrInvalidConfiguration, name)
		}
		targets[category] = n
	}
	return usecase.DetectorConfig{
		MinDiscountPercent:        d.MinDiscountPercent,
		TargetDealCount:           d.TargetDealCount,
		CategoryTargets:           targets,
		MaxSameBrandTotal:         d.MaxSameBrandTotal,
		MaxSameBrandPerDispensary: d.MaxSameBrandPerDispensary,
		MaxSameDispensaryTotal:    d.MaxSameDispensaryTotal,
		BackfillCapMultiplier:     d.BackfillCapMultiplier,
		SimilarityThreshold:       d.SimilarityThreshold,
	}, nil
}
