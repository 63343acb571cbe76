package usecase

import (
	"regexp"
	"strings"

	"github.com/budwatch/backend/internal/domain"
)

// Keyword families shared by the category and subtype classifiers.
var (
	prerollKeywordRegex     = regexp.MustCompile(`(?i)\b(pre[\s-]?rolls?|prerolls?|joints?|blunts?|dogwalkers?)\b`)
	infusedKeywordRegex     = regexp.MustCompile(`(?i)\b(infused|diamonds?|moonrocks?|sunrocks?|caviar|kief|hash[\s-]?infused|40'?s)\b`)
	concentrateKeywordRegex = regexp.MustCompile(`(?i)\b(wax|shatter|live\s+resin|resin|live\s+rosin|rosin|badder|batter|budder|crumble|diamonds?|sauce|hash|concentrates?|dabs?|rso)\b`)
	vapeKeywordRegex        = regexp.MustCompile(`(?i)\b(carts?|cartridges?|vapes?|vaporizers?|pods?|disposables?|all[\s-]?in[\s-]?one|aio|pens?|510|ready[\s-]?to[\s-]?use|rtu)\b`)
	edibleKeywordRegex      = regexp.MustCompile(`(?i)\b(gumm(?:y|ies)|chocolates?|tinctures?|beverages?|drinks?|edibles?|chews?|brownies?|candy|candies|lozenges?|syrups?|caramels?|taffy|seltzers?|tablets?|capsules?)\b`)
	flowerKeywordRegex      = regexp.MustCompile(`(?i)\b(flower|buds?|smalls|shake|eighths?|quarter|ounce|popcorn)\b`)
)

const (
	concentrateMaxGrams = 2.0
	flowerMinGrams      = 0.9
	flowerMaxGrams      = 28.5
)

// categorySignals are computed once per text and shared by every rule.
type categorySignals struct {
	text string
	hint domain.Category

	hasGram          bool
	hasMilligram     bool
	hasConcentrateWt bool // a gram token in (0, 2]
	hasFlowerWt      bool // a gram/oz token in flower range, or a dropped-digit token
	hasPack          bool // a multi-unit pack token such as "5pk"
}

func newCategorySignals(text string, hint domain.Category) *categorySignals {
	s := &categorySignals{text: text, hint: hint}
	for _, t := range findWeightTokens(text) {
		switch t.unit {
		case domain.UnitMilligram:
			s.hasMilligram = true
		case domain.UnitGram:
			s.hasGram = true
			if t.value > 0 && t.value <= concentrateMaxGrams {
				s.hasConcentrateWt = true
			}
			if (t.value >= flowerMinGrams && t.value <= flowerMaxGrams) || isDroppedDigit(t.number, t.value) {
				s.hasFlowerWt = true
			}
		case unitOunce:
			s.hasGram = true
			s.hasFlowerWt = true
		}
	}
	if _, ok := findFractionWeight(text); ok {
		s.hasFlowerWt = true
	}
	s.hasPack = isPack(text)
	return s
}

// categoryRule is one step of the detection cascade.
type categoryRule struct {
	name     string
	category domain.Category
	infused  bool
	match    func(s *categorySignals) bool
}

// categoryRules is evaluated top to bottom and the first match wins. The
// order is a contract: categories share vocabulary, so the most specific and
// override-prone checks run first.
var categoryRules = []categoryRule{
	{
		// Must precede the plain preroll rule, otherwise an infused joint
		// loses its infused flag and pricing tier.
		name:     "infused_preroll",
		category: domain.CategoryPreroll,
		infused:  true,
		match: func(s *categorySignals) bool {
			if !infusedKeywordRegex.MatchString(s.text) {
				return false
			}
			if prerollKeywordRegex.MatchString(s.text) {
				return true
			}
			// Pack listings often drop the word "preroll".
			return s.hasPack && !s.hasMilligram &&
				!edibleKeywordRegex.MatchString(s.text) &&
				!vapeKeywordRegex.MatchString(s.text)
		},
	},
	{
		// Keyword and sub-2g weight must agree. Vape hardware words veto,
		// since "live resin" is cartridge marketing copy too.
		name:     "concentrate",
		category: domain.CategoryConcentrate,
		match: func(s *categorySignals) bool {
			return concentrateKeywordRegex.MatchString(s.text) &&
				s.hasConcentrateWt &&
				!vapeKeywordRegex.MatchString(s.text)
		},
	},
	{
		name:     "vape",
		category: domain.CategoryVape,
		match: func(s *categorySignals) bool {
			if vapeKeywordRegex.MatchString(s.text) {
				return true
			}
			return s.hint == domain.CategoryVape &&
				!edibleKeywordRegex.MatchString(s.text) &&
				!prerollKeywordRegex.MatchString(s.text)
		},
	},
	{
		// Edible words like "candy" double as strain names, so a gram
		// token keeps them out of this rule.
		name:     "edible",
		category: domain.CategoryEdible,
		match: func(s *categorySignals) bool {
			if s.hasGram {
				return false
			}
			return edibleKeywordRegex.MatchString(s.text) || s.hasMilligram
		},
	},
	{
		name:     "preroll",
		category: domain.CategoryPreroll,
		match: func(s *categorySignals) bool {
			return prerollKeywordRegex.MatchString(s.text)
		},
	},
	{
		name:     "flower",
		category: domain.CategoryFlower,
		match: func(s *categorySignals) bool {
			return s.hasFlowerWt || flowerKeywordRegex.MatchString(s.text)
		},
	},
	{
		name: "scraped_hint",
		match: func(s *categorySignals) bool {
			return s.hint.Valid() && s.hint != domain.CategoryOther
		},
	},
}

// CategoryResult is the outcome of DetectCategory.
type CategoryResult struct {
	Category domain.Category
	Infused  bool
	Rule     string
}

// DetectCategory classifies raw text with the ordered rule cascade. hint is
// the page-section category supplied by the scraper, if any; it only breaks
// ties and never overrides a keyword match.
func DetectCategory(rawText string, hint domain.Category) CategoryResult {
	s := newCategorySignals(rawText, domain.Category(strings.ToLower(string(hint))))
	for _, rule := range categoryRules {
		if !rule.match(s) {
			continue
		}
		category := rule.category
		if category == "" {
			category = s.hint
		}
		return CategoryResult{Category: category, Infused: rule.infused, Rule: rule.name}
	}
	return CategoryResult{Category: domain.CategoryOther, Rule: "fallback"}
}
