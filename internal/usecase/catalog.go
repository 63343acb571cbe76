package usecase

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/budwatch/backend/internal/domain"
)

// Brand is one dictionary entry. Aliases are alternative spellings that
// resolve to Name. Neither may be a plain English word, since menu copy
// like "Select size" would otherwise name a brand.
type Brand struct {
	Name    string
	Aliases []string
}

// PriceCap bounds the sale price of a category, inclusive on both ends.
type PriceCap struct {
	Floor   float64
	Ceiling float64
}

// WeightTier caps flower prices per canonical weight.
type WeightTier struct {
	Grams   float64
	Ceiling float64
}

// RequiredField names a Product field the quality gate requires.
type RequiredField string

const (
	FieldWeight        RequiredField = "weight"
	FieldOriginalPrice RequiredField = "original_price"
	FieldSalePrice     RequiredField = "sale_price"
	FieldBrand         RequiredField = "brand"
	FieldTHC           RequiredField = "thc_percent"
)

// CatalogConfig is the static reference data behind classification and
// scoring.
type CatalogConfig struct {
	Brands               []Brand
	PremiumBrands        []string
	InfusedPrerollBrands []string
	PackPrerollBrands    []string
	CartridgeBrands      []string
	PodBrands            []string

	PriceCaps         map[domain.Category]PriceCap
	FlowerWeightTiers []WeightTier
	RequiredFields    map[domain.Category][]RequiredField
}

// DefaultCatalogConfig returns the built-in brand dictionary and tables.
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Brands: []Brand{
			{Name: "STIIIZY", Aliases: []string{"stiiizy", "stizy"}},
			{Name: "Cookies"},
			{Name: "Jeeter"},
			{Name: "Kiva", Aliases: []string{"kiva confections"}},
			{Name: "Camino"},
			{Name: "Wyld"},
			{Name: "Raw Garden"},
			{Name: "Select Elite", Aliases: []string{"select cartridges"}},
			{Name: "Cannabiotix", Aliases: []string{"cbx"}},
			{Name: "Connected Cannabis", Aliases: []string{"connected cannabis co"}},
			{Name: "Alien Labs"},
			{Name: "Old Pal"},
			{Name: "Pacific Stone"},
			{Name: "Kynd"},
			{Name: "Tyson 2.0"},
			{Name: "Dime Industries"},
			{Name: "City Trees"},
			{Name: "Packwoods"},
			{Name: "Sluggers"},
			{Name: "Dogwalkers"},
			{Name: "Rove"},
			{Name: "Heavy Hitters"},
			{Name: "PAX", Aliases: []string{"pax era"}},
			{Name: "Airo", Aliases: []string{"airopro", "airo pro"}},
			{Name: "Fade Co"},
			{Name: "Kanha"},
			{Name: "Plus Products", Aliases: []string{"plus gummies"}},
			{Name: "Good Tide"},
			{Name: "Wonderbrett"},
			{Name: "Glass House", Aliases: []string{"glasshouse"}},
			{Name: "Lowell Farms", Aliases: []string{"lowell", "lowell smokes"}},
			{Name: "Ember Valley"},
			{Name: "Bloom Brand", Aliases: []string{"the bloom brand"}},
			{Name: "Smokiez"},
		},
		PremiumBrands: []string{
			"STIIIZY", "Cookies", "Jeeter", "Kiva", "Wyld", "Raw Garden",
			"Alien Labs", "Connected Cannabis", "Cannabiotix", "Heavy Hitters", "Packwoods", "Rove",
		},
		InfusedPrerollBrands: []string{"Packwoods", "Sluggers"},
		PackPrerollBrands:    []string{"Dogwalkers"},
		CartridgeBrands:      []string{"Select Elite", "Heavy Hitters", "City Trees"},
		PodBrands:            []string{"STIIIZY", "PAX", "Airo"},
		PriceCaps: map[domain.Category]PriceCap{
			domain.CategoryFlower:      {Floor: 2, Ceiling: 120},
			domain.CategoryVape:        {Floor: 5, Ceiling: 60},
			domain.CategoryEdible:      {Floor: 2, Ceiling: 30},
			domain.CategoryConcentrate: {Floor: 5, Ceiling: 60},
			domain.CategoryPreroll:     {Floor: 1, Ceiling: 25},
		},
		FlowerWeightTiers: []WeightTier{
			{Grams: 1, Ceiling: 15},
			{Grams: 3.5, Ceiling: 35},
			{Grams: 7, Ceiling: 55},
			{Grams: 14, Ceiling: 85},
			{Grams: 28, Ceiling: 120},
		},
		RequiredFields: map[domain.Category][]RequiredField{
			domain.CategoryFlower:      {FieldWeight, FieldOriginalPrice},
			domain.CategoryVape:        {FieldWeight, FieldOriginalPrice},
			domain.CategoryConcentrate: {FieldWeight, FieldOriginalPrice},
			domain.CategoryPreroll:     {FieldWeight, FieldOriginalPrice},
			domain.CategoryEdible:      {FieldOriginalPrice},
			domain.CategoryOther:       {FieldOriginalPrice},
		},
	}
}

type brandMatcher struct {
	alias string
	brand string
	re    *regexp.Regexp
}

// Catalog is the validated, read-only form of CatalogConfig. It is safe for
// concurrent use.
type Catalog struct {
	matchers []brandMatcher
	canon    map[string]string // lower(name) -> name

	premium        map[string]bool
	infusedPreroll map[string]bool
	packPreroll    map[string]bool
	cartridge      map[string]bool
	pod            map[string]bool

	priceCaps      map[domain.Category]PriceCap
	flowerTiers    []WeightTier
	requiredFields map[domain.Category][]RequiredField
}

// NewCatalog validates cfg and compiles the brand matchers.
func NewCatalog(cfg CatalogConfig) (*Catalog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Catalog{
		canon:          make(map[string]string, len(cfg.Brands)),
		priceCaps:      make(map[domain.Category]PriceCap, len(cfg.PriceCaps)),
		requiredFields: make(map[domain.Category][]RequiredField, len(cfg.RequiredFields)),
	}

	for _, b := range cfg.Brands {
		c.canon[strings.ToLower(b.Name)] = b.Name
		for _, alias := range append([]string{b.Name}, b.Aliases...) {
			alias = strings.TrimSpace(alias)
			if alias == "" {
				continue
			}
			c.matchers = append(c.matchers, brandMatcher{
				alias: alias,
				brand: b.Name,
				re:    compileBrandPattern(alias),
			})
		}
	}
	// Longest alias first so compound names beat their prefixes.
	sort.SliceStable(c.matchers, func(i, j int) bool {
		return len(c.matchers[i].alias) > len(c.matchers[j].alias)
	})

	var err error
	if c.premium, err = c.brandSet("premium", cfg.PremiumBrands); err != nil {
		return nil, err
	}
	if c.infusedPreroll, err = c.brandSet("infused preroll", cfg.InfusedPrerollBrands); err != nil {
		return nil, err
	}
	if c.packPreroll, err = c.brandSet("preroll pack", cfg.PackPrerollBrands); err != nil {
		return nil, err
	}
	if c.cartridge, err = c.brandSet("cartridge", cfg.CartridgeBrands); err != nil {
		return nil, err
	}
	if c.pod, err = c.brandSet("pod", cfg.PodBrands); err != nil {
		return nil, err
	}

	for cat, pc := range cfg.PriceCaps {
		c.priceCaps[cat] = pc
	}
	c.flowerTiers = append([]WeightTier(nil), cfg.FlowerWeightTiers...)
	sort.Slice(c.flowerTiers, func(i, j int) bool { return c.flowerTiers[i].Grams < c.flowerTiers[j].Grams })
	for cat, fields := range cfg.RequiredFields {
		c.requiredFields[cat] = append([]RequiredField(nil), fields...)
	}

	return c, nil
}

// MustNewCatalog is NewCatalog for static tables known to be valid.
func MustNewCatalog(cfg CatalogConfig) *Catalog {
	c, err := NewCatalog(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

func compileBrandPattern(alias string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(alias) + `(?:[^\p{L}\p{N}]|$)`)
}

func (c *Catalog) brandSet(list string, names []string) (map[string]bool, error) {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		canonical, ok := c.canon[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("%w: %s brand %q is not in the brand dictionary", domain.ErrInvalidConfiguration, list, n)
		}
		set[canonical] = true
	}
	return set, nil
}

// Validate reports the first malformed table entry, wrapped in
// domain.ErrInvalidConfiguration. Brand set membership is checked by
// NewCatalog.
func (cfg CatalogConfig) Validate() error {
	if len(cfg.Brands) == 0 {
		return fmt.Errorf("%w: brand dictionary is empty", domain.ErrInvalidConfiguration)
	}
	seen := make(map[string]bool, len(cfg.Brands))
	for i, b := range cfg.Brands {
		name := strings.ToLower(strings.TrimSpace(b.Name))
		if name == "" {
			return fmt.Errorf("%w: brand %d has an empty name", domain.ErrInvalidConfiguration, i)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate brand %q", domain.ErrInvalidConfiguration, b.Name)
		}
		seen[name] = true
	}

	for _, cat := range domain.Categories {
		if cat == domain.CategoryOther {
			continue
		}
		if _, ok := cfg.PriceCaps[cat]; !ok {
			return fmt.Errorf("%w: no price cap for category %q", domain.ErrInvalidConfiguration, cat)
		}
	}
	for cat, pc := range cfg.PriceCaps {
		if !cat.Valid() {
			return fmt.Errorf("%w: price cap for unknown category %q", domain.ErrInvalidConfiguration, cat)
		}
		if pc.Floor < 0 || pc.Ceiling <= pc.Floor {
			return fmt.Errorf("%w: price cap for %q has floor %.2f and ceiling %.2f", domain.ErrInvalidConfiguration, cat, pc.Floor, pc.Ceiling)
		}
	}

	for _, t := range cfg.FlowerWeightTiers {
		if t.Grams <= 0 || t.Ceiling <= 0 {
			return fmt.Errorf("%w: flower weight tier %.2fg has ceiling %.2f", domain.ErrInvalidConfiguration, t.Grams, t.Ceiling)
		}
	}

	for cat, fields := range cfg.RequiredFields {
		if !cat.Valid() {
			return fmt.Errorf("%w: required fields for unknown category %q", domain.ErrInvalidConfiguration, cat)
		}
		for _, f := range fields {
			switch f {
			case FieldWeight, FieldOriginalPrice, FieldSalePrice, FieldBrand, FieldTHC:
			default:
				return fmt.Errorf("%w: unknown required field %q for %q", domain.ErrInvalidConfiguration, f, cat)
			}
		}
	}
	return nil
}

// DetectBrand returns the canonical brand named in text, preferring the
// longest matching alias. Returns "" when no brand matches.
func (c *Catalog) DetectBrand(text string) string {
	for _, m := range c.matchers {
		if m.re.MatchString(text) {
			return m.brand
		}
	}
	return ""
}

// IsPremium reports whether brand earns the premium scoring bonus.
func (c *Catalog) IsPremium(brand string) bool { return c.premium[brand] }

// IsInfusedPrerollBrand reports whether every preroll from brand is infused.
func (c *Catalog) IsInfusedPrerollBrand(brand string) bool { return c.infusedPreroll[brand] }

// IsPackPrerollBrand reports whether brand only sells prerolls in packs.
func (c *Catalog) IsPackPrerollBrand(brand string) bool { return c.packPreroll[brand] }

// IsCartridgeBrand reports whether brand only sells 510-thread cartridges.
func (c *Catalog) IsCartridgeBrand(brand string) bool { return c.cartridge[brand] }

// IsPodBrand reports whether brand sells a proprietary pod system.
func (c *Catalog) IsPodBrand(brand string) bool { return c.pod[brand] }

// PriceCap returns the sale-price bounds for category.
func (c *Catalog) PriceCap(category domain.Category) (PriceCap, bool) {
	pc, ok := c.priceCaps[category]
	return pc, ok
}

// FlowerTierCeiling returns the price ceiling of the smallest flower tier
// that holds grams. Weights above every tier use the category ceiling.
func (c *Catalog) FlowerTierCeiling(grams float64) (float64, bool) {
	for _, t := range c.flowerTiers {
		if grams <= t.Grams {
			return t.Ceiling, true
		}
	}
	return 0, false
}

// RequiredFields lists what the quality gate demands for category.
func (c *Catalog) RequiredFields(category domain.Category) []RequiredField {
	return c.requiredFields[category]
}

// Brands returns the canonical brand names in sorted order.
func (c *Catalog) Brands() []string {
	names := make([]string, 0, len(c.canon))
	for _, n := range c.canon {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
