package usecase

import (
	"regexp"
	"strings"

	"github.com/budwatch/backend/internal/domain"
)

// Matches a price field value written without a currency symbol, like "30.00"
var barePriceRegex = regexp.MustCompile(`^(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{1,2})?$`)

// ProductParser turns raw scrape records into normalized Products. It never
// fails: missing data stays nil and is rejected by the detector stages.
type ProductParser struct {
	catalog *Catalog
}

// NewProductParser creates a parser bound to a catalog.
func NewProductParser(catalog *Catalog) *ProductParser {
	return &ProductParser{catalog: catalog}
}

// ParseProduct parses a bare raw text blob for a dispensary.
func (pp *ProductParser) ParseProduct(rawText, dispensarySlug string) domain.Product {
	return pp.ParseRecord(domain.RawScrapeRecord{RawText: rawText}, dispensarySlug)
}

// ParseRecord parses a full scrape record. The record name, when present, is
// preferred for the display name and also scanned for classification
// signals; the price field is appended to the scanned text.
func (pp *ProductParser) ParseRecord(rec domain.RawScrapeRecord, dispensarySlug string) domain.Product {
	text := recordText(rec)

	p := domain.Product{
		Name:         CleanName(rec.Name, rec.RawText),
		DispensaryID: dispensarySlug,
	}
	if rec.ProductURL != nil {
		p.ProductURL = strings.TrimSpace(*rec.ProductURL)
	}

	original, sale := ExtractPrices(text)
	if o, s, ok := ValidatePrices(original, sale); ok {
		original, sale = o, s
	}
	p.OriginalPrice, p.SalePrice = original, sale
	p.DiscountPercent = DiscountPercent(original, sale)

	detected := DetectCategory(text, domain.Category(rec.ScrapedCategory))
	p.Category = detected.Category
	p.IsInfused = detected.Infused

	p.Brand = pp.catalog.DetectBrand(text)

	// Weight is read against the detected category, before any subtype
	// correction.
	if w := ExtractWeight(text, p.Category); w != nil {
		value := w.Value
		p.WeightValue = &value
		p.WeightUnit = w.Unit
	}

	potency := ExtractCannabinoids(text)
	p.THCPercent, p.CBDPercent = potency.THCPercent, potency.CBDPercent

	pp.catalog.ClassifySubtype(&p, text)
	return p
}

func recordText(rec domain.RawScrapeRecord) string {
	parts := make([]string, 0, 3)
	name := strings.TrimSpace(rec.Name)
	if name != "" && !strings.Contains(rec.RawText, name) {
		parts = append(parts, name)
	}
	parts = append(parts, rec.RawText)
	if rec.Price != nil && strings.TrimSpace(*rec.Price) != "" {
		parts = append(parts, priceFieldText(*rec.Price))
	}
	return strings.Join(parts, "\n")
}

// priceFieldText marks bare numbers in a scraped price field as dollar
// amounts so the price scanner sees them.
func priceFieldText(price string) string {
	fields := strings.Fields(price)
	for i, f := range fields {
		if barePriceRegex.MatchString(f) {
			fields[i] = "$" + f
		}
	}
	return strings.Join(fields, " ")
}
