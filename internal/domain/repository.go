package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// Values are stored as JSON; Get decodes into dest.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// DealRepository persists the curated deal set.
type DealRepository interface {
	// ReplaceActiveDeals deactivates every stored deal and upserts deals as the active set.
	ReplaceActiveDeals(ctx context.Context, deals []Deal) error
	// ListActive returns the active deals ordered by score desc, price asc.
	ListActive(ctx context.Context) ([]Deal, error)
}
