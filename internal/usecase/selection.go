package usecase

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/budwatch/backend/internal/domain"
)

var nonAlphanumeric = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// SelectionCaps are the diversity limits of one selection pass.
type SelectionCaps struct {
	BrandTotal         int `json:"brand_total"`
	BrandPerDispensary int `json:"brand_per_dispensary"`
	DispensaryTotal    int `json:"dispensary_total"`
}

// Selection is the outcome of DetectDeals.
type Selection struct {
	Deals          []domain.Deal           `json:"deals"`
	Backfilled     bool                    `json:"backfilled"`
	StrictCaps     SelectionCaps           `json:"strict_caps"`
	RelaxedCaps    SelectionCaps           `json:"relaxed_caps"`
	CategoryCounts map[domain.Category]int `json:"category_counts"`
	SimilarRemoved int                     `json:"similar_removed"`
	Stats          QualifyStats            `json:"stats"`
}

// DetectDeals runs the full pipeline over a scored-in-place batch: hard
// filters, scoring, quality gate, similar-listing removal and stratified
// selection. Products that are not selected end with DealScore 0.
func (d *DealDetector) DetectDeals(products []domain.Product) Selection {
	qualified, stats := d.Qualify(products)
	unique, removed := d.RemoveSimilarDeals(qualified)

	sel, picked := d.selectTop(unique)
	sel.SimilarRemoved = removed
	sel.Stats = stats

	chosen := make(map[*domain.Product]bool, len(picked))
	for _, p := range picked {
		chosen[p] = true
	}
	for i := range products {
		if !chosen[&products[i]] {
			products[i].DealScore = 0
		}
	}
	return sel
}

// rankLess orders by score desc, then sale price asc. Name and dispensary
// make the order total.
func rankLess(a, b *domain.Product) bool {
	if a.DealScore != b.DealScore {
		return a.DealScore > b.DealScore
	}
	if a.Sale() != b.Sale() {
		return a.Sale() < b.Sale()
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	if a.DispensaryID != b.DispensaryID {
		return a.DispensaryID < b.DispensaryID
	}
	return a.ProductURL < b.ProductURL
}

func normalizeDealName(name string) string {
	return strings.TrimSpace(nonAlphanumeric.ReplaceAllString(strings.ToLower(name), " "))
}

func similarityGroup(p *domain.Product) string {
	weight := "-"
	if p.WeightValue != nil {
		weight = fmt.Sprintf("%.2f", *p.WeightValue)
	}
	return strings.Join([]string{strings.ToLower(p.Brand), string(p.EffectiveCategory()), weight, p.WeightUnit}, "|")
}

// RemoveSimilarDeals drops near-duplicate listings, keeping the best ranked
// of each cluster. Listings cluster when they share brand, category and
// weight and their normalized names have a Jaro-Winkler similarity at or
// above the configured threshold. The survivors keep their input order.
func (d *DealDetector) RemoveSimilarDeals(candidates []*domain.Product) ([]*domain.Product, int) {
	groups := make(map[string][]*domain.Product)
	for _, p := range candidates {
		key := similarityGroup(p)
		groups[key] = append(groups[key], p)
	}

	dropped := make(map[*domain.Product]bool)
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool { return rankLess(group[i], group[j]) })

		kept := make([]string, 0, len(group))
		for _, p := range group {
			name := normalizeDealName(p.Name)
			duplicate := false
			for _, k := range kept {
				if matchr.JaroWinkler(name, k, false) >= d.config.SimilarityThreshold {
					duplicate = true
					break
				}
			}
			if duplicate {
				dropped[p] = true
				continue
			}
			kept = append(kept, name)
		}
	}

	out := make([]*domain.Product, 0, len(candidates)-len(dropped))
	for _, p := range candidates {
		if !dropped[p] {
			out = append(out, p)
		}
	}
	return out, len(dropped)
}

// selectionState tracks counts across passes.
type selectionState struct {
	picked         []*domain.Product
	taken          map[*domain.Product]bool
	brandTotal     map[string]int
	brandPerDisp   map[string]int
	dispTotal      map[string]int
	categoryCounts map[domain.Category]int
}

func newSelectionState() *selectionState {
	return &selectionState{
		taken:          make(map[*domain.Product]bool),
		brandTotal:     make(map[string]int),
		brandPerDisp:   make(map[string]int),
		dispTotal:      make(map[string]int),
		categoryCounts: make(map[domain.Category]int),
	}
}

func (s *selectionState) fits(p *domain.Product, caps SelectionCaps) bool {
	if s.dispTotal[p.DispensaryID] >= caps.DispensaryTotal {
		return false
	}
	// Unknown brands are not one brand.
	if p.Brand == "" {
		return true
	}
	brand := strings.ToLower(p.Brand)
	if s.brandTotal[brand] >= caps.BrandTotal {
		return false
	}
	return s.brandPerDisp[brand+"|"+p.DispensaryID] < caps.BrandPerDispensary
}

func (s *selectionState) take(p *domain.Product) {
	s.picked = append(s.picked, p)
	s.taken[p] = true
	s.dispTotal[p.DispensaryID]++
	s.categoryCounts[p.EffectiveCategory()]++
	if p.Brand != "" {
		brand := strings.ToLower(p.Brand)
		s.brandTotal[brand]++
		s.brandPerDisp[brand+"|"+p.DispensaryID]++
	}
}

// SelectTopDeals picks up to TargetDealCount candidates by cycling across
// categories in score order under per-category quotas and diversity caps.
//
// The strict pass uses the configured caps. If it leaves the target unmet,
// a second pass relaxes the caps by BackfillCapMultiplier and a third pass
// additionally drops the category quotas. Backfilled reports whether either
// relaxed pass ran; RelaxedCaps then bounds the result.
func (d *DealDetector) SelectTopDeals(candidates []*domain.Product) Selection {
	sel, _ := d.selectTop(candidates)
	return sel
}

func (d *DealDetector) selectTop(candidates []*domain.Product) (Selection, []*domain.Product) {
	strict := SelectionCaps{
		BrandTotal:         d.config.MaxSameBrandTotal,
		BrandPerDispensary: d.config.MaxSameBrandPerDispensary,
		DispensaryTotal:    d.config.MaxSameDispensaryTotal,
	}
	m := d.config.BackfillCapMultiplier
	relaxed := SelectionCaps{
		BrandTotal:         strict.BrandTotal * m,
		BrandPerDispensary: strict.BrandPerDispensary * m,
		DispensaryTotal:    strict.DispensaryTotal * m,
	}

	buckets := make(map[domain.Category][]*domain.Product)
	for _, p := range candidates {
		cat := p.EffectiveCategory()
		buckets[cat] = append(buckets[cat], p)
	}
	for _, bucket := range buckets {
		sort.SliceStable(bucket, func(i, j int) bool { return rankLess(bucket[i], bucket[j]) })
	}

	order := make([]domain.Category, 0, len(buckets))
	for _, cat := range domain.Categories {
		if len(buckets[cat]) > 0 {
			order = append(order, cat)
		}
	}

	state := newSelectionState()
	target := d.config.TargetDealCount

	d.selectionPass(state, buckets, order, strict, true, target)
	backfilled := false
	if len(state.picked) < target {
		backfilled = true
		d.selectionPass(state, buckets, order, relaxed, true, target)
	}
	if len(state.picked) < target {
		d.selectionPass(state, buckets, order, relaxed, false, target)
	}

	deals := make([]domain.Deal, 0, len(state.picked))
	for _, p := range state.picked {
		deals = append(deals, domain.Deal{Product: *p, Badge: Badge(p.DealScore)})
	}

	return Selection{
		Deals:          deals,
		Backfilled:     backfilled,
		StrictCaps:     strict,
		RelaxedCaps:    relaxed,
		CategoryCounts: state.categoryCounts,
	}, state.picked
}

// selectionPass visits categories round-robin, taking the next fitting
// candidate from each until the target is met or no category can advance.
// A candidate that does not fit is skipped for the rest of the pass.
func (d *DealDetector) selectionPass(
	state *selectionState,
	buckets map[domain.Category][]*domain.Product,
	order []domain.Category,
	caps SelectionCaps,
	useQuotas bool,
	target int,
) {
	cursors := make(map[domain.Category]int, len(order))
	for {
		progressed := false
		for _, cat := range order {
			if len(state.picked) >= target {
				return
			}
			if useQuotas && state.categoryCounts[cat] >= d.config.CategoryTargets[cat] {
				continue
			}
			bucket := buckets[cat]
			for cursors[cat] < len(bucket) {
				p := bucket[cursors[cat]]
				cursors[cat]++
				if state.taken[p] || !state.fits(p, caps) {
					continue
				}
				state.take(p)
				progressed = true
				break
			}
		}
		if !progressed {
			return
		}
	}
}
