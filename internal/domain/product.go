package domain

// Category is the top-level product classification.
type Category string

const (
	CategoryFlower      Category = "flower"
	CategoryVape        Category = "vape"
	CategoryEdible      Category = "edible"
	CategoryConcentrate Category = "concentrate"
	CategoryPreroll     Category = "preroll"
	CategoryOther       Category = "other"
)

// Categories lists every category in selection order.
var Categories = []Category{
	CategoryFlower,
	CategoryVape,
	CategoryEdible,
	CategoryConcentrate,
	CategoryPreroll,
	CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Subtype is a secondary classification within a category.
type Subtype string

const (
	SubtypeDisposable     Subtype = "disposable"
	SubtypeCartridge      Subtype = "cartridge"
	SubtypePod            Subtype = "pod"
	SubtypeInfusedPreroll Subtype = "infused_preroll"
	SubtypePrerollPack    Subtype = "preroll_pack"
)

// Badge is the display tier derived from a deal score.
type Badge string

const (
	BadgeNone  Badge = ""
	BadgeSolid Badge = "solid"
	BadgeFire  Badge = "fire"
	BadgeSteal Badge = "steal"
)

// Weight units after normalization.
const (
	UnitGram      = "g"
	UnitMilligram = "mg"
)

// RawScrapeRecord is one menu card as observed by the scraping layer.
type RawScrapeRecord struct {
	Name            string  `json:"name"`
	RawText         string  `json:"raw_text"`
	Price           *string `json:"price,omitempty"`
	ProductURL      *string `json:"product_url,omitempty"`
	ScrapedCategory string  `json:"scraped_category,omitempty"` // page-section hint, tiebreak only
}

// Product is the normalized record for one item offered by one dispensary.
// Optional fields are pointers so that "not found" is distinct from zero.
type Product struct {
	Name         string `json:"name"`
	Brand        string `json:"brand,omitempty"` // empty when unknown
	DispensaryID string `json:"dispensary_id"`
	ProductURL   string `json:"product_url,omitempty"`

	Category          Category  `json:"category"`
	ProductSubtype    *Subtype  `json:"product_subtype,omitempty"`
	IsInfused         bool      `json:"is_infused"`
	CorrectedCategory *Category `json:"corrected_category,omitempty"`

	WeightValue *float64 `json:"weight_value,omitempty"`
	WeightUnit  string   `json:"weight_unit,omitempty"`

	OriginalPrice   *float64 `json:"original_price,omitempty"`
	SalePrice       *float64 `json:"sale_price,omitempty"`
	DiscountPercent int      `json:"discount_percent"`

	THCPercent *float64 `json:"thc_percent,omitempty"`
	CBDPercent *float64 `json:"cbd_percent,omitempty"`

	DealScore int `json:"deal_score"`
}

// EffectiveCategory returns the corrected category when one was assigned.
func (p *Product) EffectiveCategory() Category {
	if p.CorrectedCategory != nil {
		return *p.CorrectedCategory
	}
	return p.Category
}

// Sale returns the sale price or 0 when unknown.
func (p *Product) Sale() float64 {
	if p.SalePrice == nil {
		return 0
	}
	return *p.SalePrice
}

// Deal is a selected product together with its display badge.
type Deal struct {
	Product
	Badge Badge `json:"badge"`
}
