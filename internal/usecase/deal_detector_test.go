package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budwatch/backend/internal/domain"
	"github.com/budwatch/backend/internal/pkg/pointers"
)

func newTestDetector(t *testing.T, cfg DetectorConfig) *DealDetector {
	t.Helper()
	detector, err := NewDealDetector(MustNewCatalog(DefaultCatalogConfig()), cfg)
	require.NoError(t, err)
	return detector
}

// testProduct builds a priced product. A zero weight leaves the weight unset.
func testProduct(name, brand string, category domain.Category, original, sale, weight float64) domain.Product {
	p := domain.Product{
		Name:          name,
		Brand:         brand,
		DispensaryID:  "td-gibson",
		Category:      category,
		OriginalPrice: pointers.Float64(original),
		SalePrice:     pointers.Float64(sale),
	}
	p.DiscountPercent = DiscountPercent(p.OriginalPrice, p.SalePrice)
	if weight > 0 {
		p.WeightValue = pointers.Float64(weight)
		p.WeightUnit = domain.UnitGram
		if category == domain.CategoryEdible {
			p.WeightUnit = domain.UnitMilligram
		}
	}
	return p
}

func blueDream() domain.Product {
	p := testProduct("Blue Dream", "", domain.CategoryFlower, 30, 15, 3.5)
	p.THCPercent = pointers.Float64(24.5)
	return p
}

func TestNewDealDetector(t *testing.T) {
	catalog := MustNewCatalog(DefaultCatalogConfig())

	t.Run("zero config takes defaults", func(t *testing.T) {
		d, err := NewDealDetector(catalog, DetectorConfig{})
		require.NoError(t, err)
		assert.Equal(t, DefaultDetectorConfig(), d.Config())
	})

	t.Run("keeps provided values", func(t *testing.T) {
		d, err := NewDealDetector(catalog, DetectorConfig{MinDiscountPercent: 25, TargetDealCount: 50})
		require.NoError(t, err)
		assert.Equal(t, 25, d.Config().MinDiscountPercent)
		assert.Equal(t, 50, d.Config().TargetDealCount)
		assert.Equal(t, 12, d.Config().MaxSameBrandTotal)
	})

	t.Run("requires a catalog", func(t *testing.T) {
		_, err := NewDealDetector(nil, DetectorConfig{})
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	})

	invalid := []struct {
		name string
		cfg  DetectorConfig
	}{
		{name: "discount above 100", cfg: DetectorConfig{MinDiscountPercent: 150}},
		{name: "negative target", cfg: DetectorConfig{TargetDealCount: -1}},
		{name: "negative brand cap", cfg: DetectorConfig{MaxSameBrandTotal: -1}},
		{name: "multiplier below one", cfg: DetectorConfig{BackfillCapMultiplier: -2}},
		{name: "threshold above one", cfg: DetectorConfig{SimilarityThreshold: 1.5}},
		{name: "quota for other", cfg: DetectorConfig{CategoryTargets: map[domain.Category]int{domain.CategoryOther: 5}}},
		{name: "negative quota", cfg: DetectorConfig{CategoryTargets: map[domain.Category]int{domain.CategoryFlower: -5}}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDealDetector(catalog, tt.cfg)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		})
	}
}

func TestPassesHardFilters(t *testing.T) {
	d := newTestDetector(t, DetectorConfig{})

	corrected := testProduct("Diamond Pre-Roll", "", domain.CategoryConcentrate, 40, 30, 1)
	corrected.CorrectedCategory = pointers.Ptr(domain.CategoryPreroll)

	missingSale := blueDream()
	missingSale.SalePrice = nil

	tests := []struct {
		name       string
		product    domain.Product
		wantOK     bool
		wantReason RejectReason
	}{
		{name: "qualifying flower", product: blueDream(), wantOK: true, wantReason: RejectNone},
		{name: "missing sale price", product: missingSale, wantReason: RejectMissingPrice},
		{name: "discount below minimum", product: testProduct("OG", "", domain.CategoryFlower, 30, 28, 3.5), wantReason: RejectLowDiscount},
		{name: "discount at minimum", product: testProduct("OG", "", domain.CategoryFlower, 20, 17, 3.5), wantOK: true, wantReason: RejectNone},
		{name: "below category floor", product: testProduct("OG", "", domain.CategoryFlower, 4, 1.5, 1), wantReason: RejectPriceOutOfRange},
		{name: "above category ceiling", product: testProduct("OG", "", domain.CategoryFlower, 200, 150, 28), wantReason: RejectPriceOutOfRange},
		{name: "gram above its weight tier", product: testProduct("Gelato Cake", "", domain.CategoryFlower, 220, 110, 1), wantReason: RejectPriceOutOfRange},
		{name: "gram at its weight tier", product: testProduct("Gelato Cake", "", domain.CategoryFlower, 30, 15, 1), wantOK: true, wantReason: RejectNone},
		{name: "eighth above its weight tier", product: testProduct("Gelato Cake", "", domain.CategoryFlower, 80, 40, 3.5), wantReason: RejectPriceOutOfRange},
		{name: "weight tiers only bind flower", product: testProduct("Live Resin Cart", "", domain.CategoryVape, 80, 40, 1), wantOK: true, wantReason: RejectNone},
		{name: "corrected category bounds apply", product: corrected, wantReason: RejectPriceOutOfRange},
		{name: "accessories are not priced", product: testProduct("Glass Pipe", "", domain.CategoryOther, 30, 15, 0), wantReason: RejectUnknownCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.product
			ok, reason := d.PassesHardFilters(&p)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantReason, reason)
		})
	}

	t.Run("parsed overpriced gram is rejected", func(t *testing.T) {
		p := newTestParser(t).ParseProduct("Gelato Cake\n$220.00 $110.00\n1g\nTHC: 30%", "td-gibson")
		require.Equal(t, domain.CategoryFlower, p.Category)
		require.NotNil(t, p.WeightValue)
		assert.Equal(t, 1.0, *p.WeightValue)

		ok, reason := d.PassesHardFilters(&p)
		assert.False(t, ok)
		assert.Equal(t, RejectPriceOutOfRange, reason)
	})
}

func TestScoreBreakdown(t *testing.T) {
	d := newTestDetector(t, DetectorConfig{})

	t.Run("flower eighth", func(t *testing.T) {
		p := blueDream()
		b := d.ScoreBreakdown(&p)

		assert.InDelta(t, 35, b.Discount, 1e-9)
		assert.InDelta(t, 25*20.0/33.0, b.Price, 1e-9)
		assert.InDelta(t, 5, b.Savings, 1e-9)
		assert.Zero(t, b.PremiumBrand)
		assert.InDelta(t, 4.75, b.THC, 1e-9)
		assert.Equal(t, 60, b.Total)
		assert.Equal(t, 60, d.CalculateDealScore(&p))
	})

	t.Run("premium brand bonus", func(t *testing.T) {
		p := blueDream()
		p.Brand = "Cookies"
		b := d.ScoreBreakdown(&p)

		assert.Equal(t, premiumBrandBonus, b.PremiumBrand)
		assert.Equal(t, 75, b.Total)
	})

	t.Run("extract potency scale", func(t *testing.T) {
		p := testProduct("Live Resin Cart", "", domain.CategoryVape, 40, 20, 1)
		p.THCPercent = pointers.Float64(95)
		assert.Equal(t, thcPointsMax, d.ScoreBreakdown(&p).THC)

		p.THCPercent = pointers.Float64(24.5)
		assert.Zero(t, d.ScoreBreakdown(&p).THC)
	})

	t.Run("edibles earn no potency points", func(t *testing.T) {
		p := testProduct("Gummies", "", domain.CategoryEdible, 20, 10, 100)
		p.THCPercent = pointers.Float64(90)
		assert.Zero(t, d.ScoreBreakdown(&p).THC)
	})

	t.Run("score stays within bounds", func(t *testing.T) {
		best := testProduct("Best", "STIIIZY", domain.CategoryFlower, 100, 3, 0)
		best.THCPercent = pointers.Float64(40)
		score := d.CalculateDealScore(&best)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)

		empty := domain.Product{Category: domain.CategoryFlower}
		assert.Equal(t, 0, d.CalculateDealScore(&empty))
	})

	t.Run("score does not fall as the discount grows", func(t *testing.T) {
		prev := -1
		for discount := 15; discount <= 95; discount += 5 {
			sale := 60 * (1 - float64(discount)/100)
			p := testProduct("Quarter", "", domain.CategoryFlower, 60, sale, 7)
			score := d.CalculateDealScore(&p)
			assert.GreaterOrEqual(t, score, prev, "discount %d", discount)
			prev = score
		}
	})
}

func TestDiscountPoints(t *testing.T) {
	tests := []struct {
		discount float64
		want     float64
	}{
		{0, 0},
		{-5, 0},
		{20, 14},
		{50, 35},
		{60, 37.5},
		{70, 40},
		{90, 40},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, discountPoints(tt.discount), 1e-9, "discountPoints(%v)", tt.discount)
	}
}

func TestBadge(t *testing.T) {
	tests := []struct {
		score int
		want  domain.Badge
	}{
		{100, domain.BadgeSteal},
		{85, domain.BadgeSteal},
		{84, domain.BadgeFire},
		{70, domain.BadgeFire},
		{69, domain.BadgeSolid},
		{50, domain.BadgeSolid},
		{49, domain.BadgeNone},
		{0, domain.BadgeNone},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Badge(tt.score), "Badge(%d)", tt.score)
	}
}

func TestPassesQualityGate(t *testing.T) {
	d := newTestDetector(t, DetectorConfig{})

	noOriginal := blueDream()
	noOriginal.OriginalPrice = nil

	tests := []struct {
		name       string
		product    domain.Product
		wantOK     bool
		wantReason RejectReason
	}{
		{name: "complete flower", product: blueDream(), wantOK: true},
		{name: "empty name", product: testProduct("  ", "", domain.CategoryFlower, 30, 15, 3.5), wantReason: RejectEmptyName},
		{name: "strain type only", product: testProduct("Indica", "", domain.CategoryFlower, 30, 15, 3.5), wantReason: RejectStrainOnlyName},
		{name: "flower without weight", product: testProduct("Blue Dream", "", domain.CategoryFlower, 30, 15, 0), wantReason: RejectMissingField},
		{name: "flower without original price", product: noOriginal, wantReason: RejectMissingField},
		{name: "edible without weight", product: testProduct("Camino Gummies", "Kiva", domain.CategoryEdible, 20, 12, 0), wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.product
			ok, reason := d.PassesQualityGate(&p)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestQualify(t *testing.T) {
	d := newTestDetector(t, DetectorConfig{})

	strainOnly := testProduct("Indica", "", domain.CategoryFlower, 30, 15, 3.5)
	strainOnly.DealScore = 99

	products := []domain.Product{
		blueDream(),
		testProduct("OG", "", domain.CategoryFlower, 30, 28, 3.5),
		strainOnly,
	}

	qualified, stats := d.Qualify(products)

	require.Len(t, qualified, 1)
	assert.Same(t, &products[0], qualified[0])
	assert.Equal(t, 60, products[0].DealScore)
	assert.Equal(t, 0, products[1].DealScore)
	assert.Equal(t, 0, products[2].DealScore)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.HardFilterRejected)
	assert.Equal(t, 1, stats.QualityRejected)
	assert.Equal(t, 1, stats.Qualified)
	assert.Equal(t, 1, stats.Reasons[RejectLowDiscount])
	assert.Equal(t, 1, stats.Reasons[RejectStrainOnlyName])
}
