package usecase

import (
	"fmt"
	"math"
	"strings"

	"github.com/budwatch/backend/internal/domain"
)

// Scoring component maxima. They sum to 100.
const (
	discountPointsMax = 40.0
	pricePointsMax    = 25.0
	savingsPointsMax  = 10.0
	premiumBrandBonus = 15.0
	thcPointsMax      = 10.0
)

// Scoring curve parameters
const (
	discountLinearRate = 0.7  // points per percent up to discountKnee
	discountKnee       = 50.0 // above this, returns diminish
	discountTailRate   = 0.25 // points per percent between the knee and discountCap
	discountCap        = 70.0 // above this, the discount is likely a data error
	savingsFullDollars = 30.0 // absolute savings that earns every savings point

	flowerTHCFloor  = 15.0
	flowerTHCRange  = 20.0
	extractTHCFloor = 60.0
	extractTHCRange = 35.0
)

// Badge thresholds, inclusive lower bounds.
const (
	stealMinScore = 85
	fireMinScore  = 70
	solidMinScore = 50
)

// DetectorConfig holds the tunable selection parameters. Zero values fall
// back to DefaultDetectorConfig.
type DetectorConfig struct {
	MinDiscountPercent        int
	TargetDealCount           int
	CategoryTargets           map[domain.Category]int
	MaxSameBrandTotal         int
	MaxSameBrandPerDispensary int
	MaxSameDispensaryTotal    int
	BackfillCapMultiplier     int
	SimilarityThreshold       float64
}

// DefaultDetectorConfig returns the production selection parameters.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		MinDiscountPercent: 15,
		TargetDealCount:    200,
		CategoryTargets: map[domain.Category]int{
			domain.CategoryFlower:      60,
			domain.CategoryVape:        50,
			domain.CategoryEdible:      30,
			domain.CategoryConcentrate: 30,
			domain.CategoryPreroll:     30,
		},
		MaxSameBrandTotal:         12,
		MaxSameBrandPerDispensary: 4,
		MaxSameDispensaryTotal:    25,
		BackfillCapMultiplier:     2,
		SimilarityThreshold:       0.92,
	}
}

func (c DetectorConfig) withDefaults() DetectorConfig {
	d := DefaultDetectorConfig()
	if c.MinDiscountPercent == 0 {
		c.MinDiscountPercent = d.MinDiscountPercent
	}
	if c.TargetDealCount == 0 {
		c.TargetDealCount = d.TargetDealCount
	}
	if len(c.CategoryTargets) == 0 {
		c.CategoryTargets = d.CategoryTargets
	}
	if c.MaxSameBrandTotal == 0 {
		c.MaxSameBrandTotal = d.MaxSameBrandTotal
	}
	if c.MaxSameBrandPerDispensary == 0 {
		c.MaxSameBrandPerDispensary = d.MaxSameBrandPerDispensary
	}
	if c.MaxSameDispensaryTotal == 0 {
		c.MaxSameDispensaryTotal = d.MaxSameDispensaryTotal
	}
	if c.BackfillCapMultiplier == 0 {
		c.BackfillCapMultiplier = d.BackfillCapMultiplier
	}
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = d.SimilarityThreshold
	}
	return c
}

func (c DetectorConfig) validate() error {
	if c.MinDiscountPercent < 0 || c.MinDiscountPercent > 100 {
		return fmt.Errorf("%w: min discount percent %d outside [0, 100]", domain.ErrInvalidConfiguration, c.MinDiscountPercent)
	}
	if c.TargetDealCount < 0 {
		return fmt.Errorf("%w: target deal count must be positive", domain.ErrInvalidConfiguration)
	}
	for cat, n := range c.CategoryTargets {
		if !cat.Valid() || cat == domain.CategoryOther {
			return fmt.Errorf("%w: category target for unselectable category %q", domain.ErrInvalidConfiguration, cat)
		}
		if n < 0 {
			return fmt.Errorf("%w: category target for %q is negative", domain.ErrInvalidConfiguration, cat)
		}
	}
	if c.MaxSameBrandTotal < 0 || c.MaxSameBrandPerDispensary < 0 || c.MaxSameDispensaryTotal < 0 {
		return fmt.Errorf("%w: diversity caps must be positive", domain.ErrInvalidConfiguration)
	}
	if c.BackfillCapMultiplier < 1 {
		return fmt.Errorf("%w: backfill cap multiplier must be at least 1", domain.ErrInvalidConfiguration)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity threshold %.2f outside (0, 1]", domain.ErrInvalidConfiguration, c.SimilarityThreshold)
	}
	return nil
}

// RejectReason explains why a product failed a filter stage.
type RejectReason string

const (
	RejectNone            RejectReason = ""
	RejectMissingPrice    RejectReason = "missing_sale_price"
	RejectLowDiscount     RejectReason = "discount_below_minimum"
	RejectPriceOutOfRange RejectReason = "price_out_of_range"
	RejectUnknownCategory RejectReason = "unpriced_category"
	RejectEmptyName       RejectReason = "empty_name"
	RejectStrainOnlyName  RejectReason = "strain_type_only_name"
	RejectMissingField    RejectReason = "missing_required_field"
)

// ScoreBreakdown records each component of a deal score.
type ScoreBreakdown struct {
	Discount     float64 `json:"discount"`
	Price        float64 `json:"price"`
	Savings      float64 `json:"savings"`
	PremiumBrand float64 `json:"premium_brand"`
	THC          float64 `json:"thc"`
	Total        int     `json:"total"`
}

// DealDetector runs the filter, scoring and selection stages over a batch.
// It holds only read-only state and is safe for concurrent use.
type DealDetector struct {
	catalog *Catalog
	config  DetectorConfig
}

// NewDealDetector creates a detector. Zero config fields take defaults;
// invalid values return an error wrapping domain.ErrInvalidConfiguration.
func NewDealDetector(catalog *Catalog, config DetectorConfig) (*DealDetector, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog is required", domain.ErrInvalidConfiguration)
	}
	config = config.withDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &DealDetector{catalog: catalog, config: config}, nil
}

// Config returns the effective configuration.
func (d *DealDetector) Config() DetectorConfig {
	return d.config
}

// PassesHardFilters applies the unconditional rejection rules.
func (d *DealDetector) PassesHardFilters(p *domain.Product) (bool, RejectReason) {
	if p.SalePrice == nil || *p.SalePrice <= 0 {
		return false, RejectMissingPrice
	}
	if p.DiscountPercent < d.config.MinDiscountPercent {
		return false, RejectLowDiscount
	}
	pc, ok := d.catalog.PriceCap(p.EffectiveCategory())
	if !ok {
		return false, RejectUnknownCategory
	}
	if *p.SalePrice < pc.Floor || *p.SalePrice > pc.Ceiling {
		return false, RejectPriceOutOfRange
	}
	if tier, ok := d.flowerTierCeiling(p); ok && *p.SalePrice > tier {
		return false, RejectPriceOutOfRange
	}
	return true, RejectNone
}

// CalculateDealScore returns the bounded composite score of p.
func (d *DealDetector) CalculateDealScore(p *domain.Product) int {
	return d.ScoreBreakdown(p).Total
}

// ScoreBreakdown computes every scoring component of p.
func (d *DealDetector) ScoreBreakdown(p *domain.Product) ScoreBreakdown {
	var b ScoreBreakdown
	b.Discount = discountPoints(float64(p.DiscountPercent))
	b.Price = d.pricePoints(p)
	b.Savings = savingsPoints(p)
	if p.Brand != "" && d.catalog.IsPremium(p.Brand) {
		b.PremiumBrand = premiumBrandBonus
	}
	b.THC = thcPoints(p.EffectiveCategory(), p.THCPercent)

	total := math.Round(b.Discount + b.Price + b.Savings + b.PremiumBrand + b.THC)
	b.Total = int(clamp(total, 0, 100))
	return b
}

func discountPoints(d float64) float64 {
	switch {
	case d <= 0:
		return 0
	case d <= discountKnee:
		return d * discountLinearRate
	case d <= discountCap:
		return discountKnee*discountLinearRate + (d-discountKnee)*discountTailRate
	default:
		return discountPointsMax
	}
}

func (d *DealDetector) pricePoints(p *domain.Product) float64 {
	if p.SalePrice == nil {
		return 0
	}
	category := p.EffectiveCategory()
	pc, ok := d.catalog.PriceCap(category)
	if !ok {
		return 0
	}
	ceiling := pc.Ceiling
	if tier, ok := d.flowerTierCeiling(p); ok {
		ceiling = tier
	}
	if ceiling <= pc.Floor {
		return 0
	}
	return clamp(pricePointsMax*(ceiling-*p.SalePrice)/(ceiling-pc.Floor), 0, pricePointsMax)
}

// flowerTierCeiling is the weight-tier price ceiling of a gram-weighted
// flower product.
func (d *DealDetector) flowerTierCeiling(p *domain.Product) (float64, bool) {
	if p.EffectiveCategory() != domain.CategoryFlower || p.WeightValue == nil || p.WeightUnit != domain.UnitGram {
		return 0, false
	}
	return d.catalog.FlowerTierCeiling(*p.WeightValue)
}

func savingsPoints(p *domain.Product) float64 {
	if p.OriginalPrice == nil || p.SalePrice == nil {
		return 0
	}
	saved := *p.OriginalPrice - *p.SalePrice
	return clamp(saved/savingsFullDollars*savingsPointsMax, 0, savingsPointsMax)
}

func thcPoints(category domain.Category, thc *float64) float64 {
	if thc == nil {
		return 0
	}
	switch category {
	case domain.CategoryFlower, domain.CategoryPreroll:
		return clamp((*thc-flowerTHCFloor)/flowerTHCRange*thcPointsMax, 0, thcPointsMax)
	case domain.CategoryVape, domain.CategoryConcentrate:
		return clamp((*thc-extractTHCFloor)/extractTHCRange*thcPointsMax, 0, thcPointsMax)
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// PassesQualityGate rejects scored products whose data is too incomplete to
// display.
func (d *DealDetector) PassesQualityGate(p *domain.Product) (bool, RejectReason) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return false, RejectEmptyName
	}
	if IsStrainTypeOnly(name) {
		return false, RejectStrainOnlyName
	}
	for _, f := range d.catalog.RequiredFields(p.EffectiveCategory()) {
		if !hasField(p, f) {
			return false, RejectMissingField
		}
	}
	return true, RejectNone
}

func hasField(p *domain.Product, f RequiredField) bool {
	switch f {
	case FieldWeight:
		return p.WeightValue != nil && *p.WeightValue > 0
	case FieldOriginalPrice:
		return p.OriginalPrice != nil && *p.OriginalPrice > 0
	case FieldSalePrice:
		return p.SalePrice != nil && *p.SalePrice > 0
	case FieldBrand:
		return p.Brand != ""
	case FieldTHC:
		return p.THCPercent != nil
	}
	return false
}

// Badge maps a score onto its display tier.
func Badge(score int) domain.Badge {
	switch {
	case score >= stealMinScore:
		return domain.BadgeSteal
	case score >= fireMinScore:
		return domain.BadgeFire
	case score >= solidMinScore:
		return domain.BadgeSolid
	default:
		return domain.BadgeNone
	}
}

// QualifyStats counts rejections per stage.
type QualifyStats struct {
	Total              int                  `json:"total"`
	HardFilterRejected int                  `json:"hard_filter_rejected"`
	QualityRejected    int                  `json:"quality_rejected"`
	Qualified          int                  `json:"qualified"`
	Reasons            map[RejectReason]int `json:"reasons"`
}

// Qualify runs hard filters, scoring and the quality gate over products in
// place. Every product gets a DealScore; rejected ones get 0. The returned
// pointers address the qualifying elements of products.
func (d *DealDetector) Qualify(products []domain.Product) ([]*domain.Product, QualifyStats) {
	stats := QualifyStats{Total: len(products), Reasons: make(map[RejectReason]int)}
	qualified := make([]*domain.Product, 0, len(products))

	for i := range products {
		p := &products[i]
		p.DealScore = 0

		if ok, reason := d.PassesHardFilters(p); !ok {
			stats.HardFilterRejected++
			stats.Reasons[reason]++
			continue
		}

		score := d.CalculateDealScore(p)

		if ok, reason := d.PassesQualityGate(p); !ok {
			stats.QualityRejected++
			stats.Reasons[reason]++
			continue
		}

		p.DealScore = score
		qualified = append(qualified, p)
	}

	stats.Qualified = len(qualified)
	return qualified, stats
}
