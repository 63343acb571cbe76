package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/budwatch/backend/internal/domain"
	"github.com/budwatch/backend/internal/pkg/logger"
)

// ActiveDealsCacheKey is where the latest curated deal set is cached.
const ActiveDealsCacheKey = "deals:active"

const defaultParseConcurrency = 8

// DealServiceConfig holds configuration for the deal service
type DealServiceConfig struct {
	CacheTTL         time.Duration
	ParseConcurrency int
}

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	RunID     string           `json:"run_id"`
	Products  []domain.Product `json:"products"`
	Selection Selection        `json:"selection"`
	Summary   Summary          `json:"summary"`
}

// DealService wires the parser and detector to storage and cache.
type DealService struct {
	parser   *ProductParser
	detector *DealDetector
	repo     domain.DealRepository // optional
	cache    domain.CacheRepository
	log      *logger.Logger

	cacheTTL    time.Duration
	concurrency int
}

// NewDealService creates a new deal service with dependencies. repo may be
// nil, in which case results are only cached.
func NewDealService(
	parser *ProductParser,
	detector *DealDetector,
	repo domain.DealRepository,
	cache domain.CacheRepository,
	log *logger.Logger,
	config DealServiceConfig,
) *DealService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 6 * time.Hour
	}
	concurrency := config.ParseConcurrency
	if concurrency <= 0 {
		concurrency = defaultParseConcurrency
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &DealService{
		parser:      parser,
		detector:    detector,
		repo:        repo,
		cache:       cache,
		log:         log,
		cacheTTL:    cacheTTL,
		concurrency: concurrency,
	}
}

// Parser exposes the product parser for single-record requests.
func (s *DealService) Parser() *ProductParser {
	return s.parser
}

// Detector exposes the deal detector for single-product evaluation.
func (s *DealService) Detector() *DealDetector {
	return s.detector
}

// Run parses every dispensary batch, selects the curated deal set, persists
// and caches it. Storage and cache failures are logged, not returned; the
// only errors are an empty request and context cancellation.
func (s *DealService) Run(ctx context.Context, batches map[string][]domain.RawScrapeRecord) (*RunResult, error) {
	if len(batches) == 0 {
		return nil, fmt.Errorf("%w: no dispensary batches", domain.ErrInvalidRequest)
	}

	runID := uuid.NewString()
	log := s.log.With("run_id", runID)
	started := time.Now()

	products, err := s.parseBatches(ctx, batches)
	if err != nil {
		return nil, err
	}
	log.Info("parsed products", "dispensaries", len(batches), "parsed", len(products))

	selection := s.detector.DetectDeals(products)
	log.Info("deal detection finished",
		"hard_filter_rejected", selection.Stats.HardFilterRejected,
		"quality_rejected", selection.Stats.QualityRejected,
		"similar_removed", selection.SimilarRemoved,
		"selected", len(selection.Deals),
		"backfilled", selection.Backfilled,
	)
	if selection.Backfilled {
		log.Warn("strict caps left target unmet, relaxed caps applied",
			"target", s.detector.Config().TargetDealCount,
			"relaxed_brand_total", selection.RelaxedCaps.BrandTotal,
			"relaxed_dispensary_total", selection.RelaxedCaps.DispensaryTotal,
		)
	}

	if s.repo != nil {
		if err := s.repo.ReplaceActiveDeals(ctx, selection.Deals); err != nil {
			log.Error("failed to persist deals", "error", err)
		}
	}
	if err := s.cache.Set(ctx, ActiveDealsCacheKey, selection.Deals, s.cacheTTL); err != nil {
		log.Warn("failed to cache deals", "error", err)
	}

	summary := Summarize(products, selection.Deals)
	log.Info("run complete", "duration", time.Since(started).String(), "distinct_brands", summary.DistinctBrands)

	return &RunResult{
		RunID:     runID,
		Products:  products,
		Selection: selection,
		Summary:   summary,
	}, nil
}

// parseBatches parses dispensaries concurrently and merges them in slug
// order so a run is deterministic.
func (s *DealService) parseBatches(ctx context.Context, batches map[string][]domain.RawScrapeRecord) ([]domain.Product, error) {
	slugs := make([]string, 0, len(batches))
	for slug := range batches {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	parsed := make([][]domain.Product, len(slugs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, slug := range slugs {
		i, slug := i, slug
		records := batches[slug]
		g.Go(func() error {
			out := make([]domain.Product, 0, len(records))
			for _, rec := range records {
				if err := gctx.Err(); err != nil {
					return err
				}
				out = append(out, s.parser.ParseRecord(rec, strings.TrimSpace(slug)))
			}
			parsed[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, batch := range parsed {
		total += len(batch)
	}
	products := make([]domain.Product, 0, total)
	for _, batch := range parsed {
		products = append(products, batch...)
	}
	return products, nil
}

// ActiveDeals returns the latest curated deal set.
// Flow: check cache -> repository -> refill cache
func (s *DealService) ActiveDeals(ctx context.Context) ([]domain.Deal, error) {
	var deals []domain.Deal
	err := s.cache.Get(ctx, ActiveDealsCacheKey, &deals)
	if err == nil && len(deals) > 0 {
		return deals, nil
	}
	if err != nil && !errors.Is(err, domain.ErrCacheMiss) {
		s.log.Warn("cache read failed", "key", ActiveDealsCacheKey, "error", err)
	}

	if s.repo == nil {
		return nil, domain.ErrDealsNotFound
	}
	deals, err = s.repo.ListActive(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrStorageFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}
	if len(deals) == 0 {
		return nil, domain.ErrDealsNotFound
	}

	if err := s.cache.Set(ctx, ActiveDealsCacheKey, deals, s.cacheTTL); err != nil {
		s.log.Warn("failed to cache deals", "error", err)
	}
	return deals, nil
}
