package usecase

import (
	"regexp"
	"strconv"

	"github.com/budwatch/backend/internal/domain"
	"github.com/budwatch/backend/internal/pkg/pointers"
)

var (
	packCountRegex  = regexp.MustCompile(`(?i)\b(\d+)\s*-?\s*(?:packs?|pk|ct|count)\b`)
	packOfRegex     = regexp.MustCompile(`(?i)\bpack\s+of\s+(\d+)\b`)
	multiPackRegex  = regexp.MustCompile(`(?i)\bmulti[\s-]?packs?\b`)
	disposableRegex = regexp.MustCompile(`(?i)\b(disposables?|all[\s-]?in[\s-]?one|aio|ready[\s-]?to[\s-]?use|rtu|pens?)\b`)
	cartridgeRegex  = regexp.MustCompile(`(?i)\b(carts?|cartridges?|510)\b`)
	podRegex        = regexp.MustCompile(`(?i)\bpods?\b`)
)

// ClassifySubtype assigns ProductSubtype and may correct the category of p
// in place.
//
// Prerolls (and concentrates named like prerolls) become infused_preroll or
// preroll_pack. A concentrate that turns out to be an infused preroll gets
// CorrectedCategory set to preroll. Vapes resolve to disposable, cartridge
// or pod, falling back to cartridge.
func (c *Catalog) ClassifySubtype(p *domain.Product, text string) {
	switch p.Category {
	case domain.CategoryPreroll:
		c.classifyPreroll(p, text)
	case domain.CategoryConcentrate:
		if prerollKeywordRegex.MatchString(text) {
			c.classifyPreroll(p, text)
		}
	case domain.CategoryVape:
		subtype := c.vapeSubtype(p.Brand, text)
		p.ProductSubtype = &subtype
	}
}

func (c *Catalog) classifyPreroll(p *domain.Product, text string) {
	if p.IsInfused || infusedKeywordRegex.MatchString(text) || c.IsInfusedPrerollBrand(p.Brand) {
		p.IsInfused = true
		p.ProductSubtype = pointers.Ptr(domain.SubtypeInfusedPreroll)
		if p.Category == domain.CategoryConcentrate {
			p.CorrectedCategory = pointers.Ptr(domain.CategoryPreroll)
			p.Category = domain.CategoryPreroll
		}
		return
	}

	// A concentrate with preroll wording but no infused signal keeps its
	// category and gets no preroll subtype.
	if p.Category != domain.CategoryPreroll {
		return
	}

	if isPack(text) || c.IsPackPrerollBrand(p.Brand) {
		if !edibleKeywordRegex.MatchString(p.Name) && !edibleKeywordRegex.MatchString(text) {
			p.ProductSubtype = pointers.Ptr(domain.SubtypePrerollPack)
			return
		}
	}
	p.ProductSubtype = nil
}

func isPack(text string) bool {
	if multiPackRegex.MatchString(text) {
		return true
	}
	for _, re := range []*regexp.Regexp{packCountRegex, packOfRegex} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 2 {
				return true
			}
		}
	}
	return false
}

func (c *Catalog) vapeSubtype(brand, text string) domain.Subtype {
	switch {
	case disposableRegex.MatchString(text):
		return domain.SubtypeDisposable
	case cartridgeRegex.MatchString(text) || c.IsCartridgeBrand(brand):
		return domain.SubtypeCartridge
	case podRegex.MatchString(text) || c.IsPodBrand(brand):
		return domain.SubtypePod
	default:
		return domain.SubtypeCartridge
	}
}
