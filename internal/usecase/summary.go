package usecase

import (
	"math"
	"sort"

	"github.com/budwatch/backend/internal/domain"
)

const topBrandLimit = 10

// Score buckets reported by Summarize.
var scoreBuckets = []struct {
	label string
	min   int
}{
	{"85-100", stealMinScore},
	{"70-84", fireMinScore},
	{"50-69", solidMinScore},
	{"0-49", 0},
}

// BrandCount is one row of the top-brands table.
type BrandCount struct {
	Brand string `json:"brand"`
	Count int    `json:"count"`
}

// Summary describes a pipeline run for reporting. It is derived purely from
// the parsed products and the selected deals.
type Summary struct {
	TotalProducts        int                     `json:"total_products"`
	SelectedDeals        int                     `json:"selected_deals"`
	ParsedByCategory     map[domain.Category]int `json:"parsed_by_category"`
	SelectedByCategory   map[domain.Category]int `json:"selected_by_category"`
	SelectedByDispensary map[string]int          `json:"selected_by_dispensary"`
	DistinctBrands       int                     `json:"distinct_brands"`
	DistinctDispensaries int                     `json:"distinct_dispensaries"`
	TopBrands            []BrandCount            `json:"top_brands"`
	Badges               map[domain.Badge]int    `json:"badges"`
	ScoreDistribution    map[string]int          `json:"score_distribution"`
	AverageScore         float64                 `json:"average_score"`
	AverageDiscount      float64                 `json:"average_discount"`
}

// Summarize aggregates category, diversity and score statistics.
func Summarize(products []domain.Product, deals []domain.Deal) Summary {
	s := Summary{
		TotalProducts:        len(products),
		SelectedDeals:        len(deals),
		ParsedByCategory:     make(map[domain.Category]int),
		SelectedByCategory:   make(map[domain.Category]int),
		SelectedByDispensary: make(map[string]int),
		Badges:               make(map[domain.Badge]int),
		ScoreDistribution:    make(map[string]int),
	}
	for _, p := range products {
		s.ParsedByCategory[p.EffectiveCategory()]++
	}
	for _, b := range scoreBuckets {
		s.ScoreDistribution[b.label] = 0
	}

	brands := make(map[string]int)
	var scoreSum, discountSum int
	for _, deal := range deals {
		s.SelectedByCategory[deal.EffectiveCategory()]++
		s.SelectedByDispensary[deal.DispensaryID]++
		if deal.Brand != "" {
			brands[deal.Brand]++
		}
		if deal.Badge != domain.BadgeNone {
			s.Badges[deal.Badge]++
		}
		for _, b := range scoreBuckets {
			if deal.DealScore >= b.min {
				s.ScoreDistribution[b.label]++
				break
			}
		}
		scoreSum += deal.DealScore
		discountSum += deal.DiscountPercent
	}

	s.DistinctBrands = len(brands)
	s.DistinctDispensaries = len(s.SelectedByDispensary)
	if len(deals) > 0 {
		s.AverageScore = round1(float64(scoreSum) / float64(len(deals)))
		s.AverageDiscount = round1(float64(discountSum) / float64(len(deals)))
	}

	s.TopBrands = make([]BrandCount, 0, len(brands))
	for brand, n := range brands {
		s.TopBrands = append(s.TopBrands, BrandCount{Brand: brand, Count: n})
	}
	sort.Slice(s.TopBrands, func(i, j int) bool {
		if s.TopBrands[i].Count != s.TopBrands[j].Count {
			return s.TopBrands[i].Count > s.TopBrands[j].Count
		}
		return s.TopBrands[i].Brand < s.TopBrands[j].Brand
	})
	if len(s.TopBrands) > topBrandLimit {
		s.TopBrands = s.TopBrands[:topBrandLimit]
	}
	return s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
