package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budwatch/backend/internal/domain"
)

func TestCatalogDetectBrand(t *testing.T) {
	catalog := MustNewCatalog(DefaultCatalogConfig())

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "canonical name", text: "STIIIZY Pod .35g", want: "STIIIZY"},
		{name: "case insensitive alias", text: "stizy og kush pod", want: "STIIIZY"},
		{name: "multi word brand", text: "Raw Garden Live Resin 1g", want: "Raw Garden"},
		{name: "longest alias wins", text: "Kiva Confections Camino Gummies", want: "Kiva"},
		{name: "alias resolves to canonical", text: "Lowell Smokes 7pk", want: "Lowell Farms"},
		{name: "word boundary", text: "Selection of flower", want: ""},
		{name: "menu copy is not a brand", text: "Blue Dream\nSelect size\n3.5g $30", want: ""},
		{name: "strain words are not a brand", text: "Spring Bloom OG 3.5g", want: ""},
		{name: "connected needs its full name", text: "Connected to Gelato 3.5g", want: ""},
		{name: "full brand name matches", text: "Select Elite Live Resin Cart 1g", want: "Select Elite"},
		{name: "punctuation boundary", text: "(Jeeter) Baby Jeeter", want: "Jeeter"},
		{name: "no brand", text: "Blue Dream 3.5g", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.DetectBrand(tt.text))
		})
	}
}

func TestCatalogBrandSets(t *testing.T) {
	catalog := MustNewCatalog(DefaultCatalogConfig())

	assert.True(t, catalog.IsPremium("STIIIZY"))
	assert.False(t, catalog.IsPremium("Kynd"))
	assert.False(t, catalog.IsPremium(""))
	assert.True(t, catalog.IsInfusedPrerollBrand("Packwoods"))
	assert.True(t, catalog.IsPackPrerollBrand("Dogwalkers"))
	assert.True(t, catalog.IsCartridgeBrand("Select Elite"))
	assert.True(t, catalog.IsPodBrand("PAX"))
	assert.False(t, catalog.IsPodBrand("Select Elite"))

	brands := catalog.Brands()
	assert.Len(t, brands, len(DefaultCatalogConfig().Brands))
	assert.IsIncreasing(t, brands)
}

func TestCatalogPriceTables(t *testing.T) {
	catalog := MustNewCatalog(DefaultCatalogConfig())

	pc, ok := catalog.PriceCap(domain.CategoryFlower)
	require.True(t, ok)
	assert.Equal(t, PriceCap{Floor: 2, Ceiling: 120}, pc)

	_, ok = catalog.PriceCap(domain.CategoryOther)
	assert.False(t, ok)

	tiers := []struct {
		grams float64
		want  float64
		ok    bool
	}{
		{0.5, 15, true},
		{1, 15, true},
		{2, 35, true},
		{3.5, 35, true},
		{7, 55, true},
		{14, 85, true},
		{28, 120, true},
		{30, 0, false},
	}
	for _, tt := range tiers {
		got, ok := catalog.FlowerTierCeiling(tt.grams)
		assert.Equal(t, tt.ok, ok, "FlowerTierCeiling(%v)", tt.grams)
		assert.Equal(t, tt.want, got, "FlowerTierCeiling(%v)", tt.grams)
	}

	assert.Equal(t, []RequiredField{FieldOriginalPrice}, catalog.RequiredFields(domain.CategoryEdible))
	assert.Contains(t, catalog.RequiredFields(domain.CategoryFlower), FieldWeight)
}

func TestNewCatalogValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *CatalogConfig)
	}{
		{
			name:   "empty brand dictionary",
			mutate: func(cfg *CatalogConfig) { cfg.Brands = nil },
		},
		{
			name:   "empty brand name",
			mutate: func(cfg *CatalogConfig) { cfg.Brands = append(cfg.Brands, Brand{Name: " "}) },
		},
		{
			name:   "duplicate brand",
			mutate: func(cfg *CatalogConfig) { cfg.Brands = append(cfg.Brands, Brand{Name: "stiiizy"}) },
		},
		{
			name:   "premium brand not in dictionary",
			mutate: func(cfg *CatalogConfig) { cfg.PremiumBrands = append(cfg.PremiumBrands, "Nobody") },
		},
		{
			name:   "pod brand not in dictionary",
			mutate: func(cfg *CatalogConfig) { cfg.PodBrands = []string{"Nobody"} },
		},
		{
			name:   "missing price cap",
			mutate: func(cfg *CatalogConfig) { delete(cfg.PriceCaps, domain.CategoryVape) },
		},
		{
			name: "inverted price cap",
			mutate: func(cfg *CatalogConfig) {
				cfg.PriceCaps[domain.CategoryVape] = PriceCap{Floor: 60, Ceiling: 5}
			},
		},
		{
			name: "price cap for unknown category",
			mutate: func(cfg *CatalogConfig) {
				cfg.PriceCaps[domain.Category("hats")] = PriceCap{Floor: 1, Ceiling: 5}
			},
		},
		{
			name: "non-positive weight tier",
			mutate: func(cfg *CatalogConfig) {
				cfg.FlowerWeightTiers = append(cfg.FlowerWeightTiers, WeightTier{Grams: 0, Ceiling: 10})
			},
		},
		{
			name: "unknown required field",
			mutate: func(cfg *CatalogConfig) {
				cfg.RequiredFields[domain.CategoryFlower] = []RequiredField{"color"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultCatalogConfig()
			tt.mutate(&cfg)

			catalog, err := NewCatalog(cfg)
			assert.Nil(t, catalog)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		})
	}

	t.Run("MustNewCatalog panics on invalid config", func(t *testing.T) {
		assert.Panics(t, func() { MustNewCatalog(CatalogConfig{}) })
	})
}
