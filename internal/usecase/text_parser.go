package usecase

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/budwatch/backend/internal/domain"
	"github.com/budwatch/backend/internal/pkg/pointers"
)

// Package-level compiled regex patterns for performance
var (
	// Matches currency tokens like "$30.00", "$15", "$1,250.50"
	priceTokenRegex = regexp.MustCompile(`\$\s*(\d{1,3}(?:,\d{3})+|\d+)(?:\.(\d{1,2}))?`)

	// Matches advisory discount labels like "Save $10", "$5 off", "20% off"
	discountLabelRegex = regexp.MustCompile(`(?i)\bsave\s+\$\s*\d+(?:\.\d{1,2})?|\$\s*\d+(?:\.\d{1,2})?\s*off\b|\d{1,3}(?:\.\d+)?\s*%\s*off\b`)

	// Matches numeric+unit weight tokens like "3.5g", "100mg", ".5 g", "1 oz"
	weightTokenRegex = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?|\.\d+)\s*(milligrams?|mg|grams?|gr|g|ounces?|oz)\b`)

	// Matches fractional-ounce notation: "1/8 oz", "1/4", "half oz", "eighth"
	fractionWeightRegex = regexp.MustCompile(`(?i)(?:^|[\s(])(1/8|1/4|1/2)(?:\s*(?:oz|ounces?))?(?:$|[\s)])|\b(eighth|quarter|half\s*(?:oz|ounce))\b`)

	thcPrefixRegex  = regexp.MustCompile(`(?i)\bTHCA?\s*[:=\-]?\s*(\d{1,3}(?:\.\d+)?)\s*%`)
	thcSuffixRegex  = regexp.MustCompile(`(?i)(\d{1,3}(?:\.\d+)?)\s*%\s*THCA?\b`)
	cbdPrefixRegex  = regexp.MustCompile(`(?i)\bCBDA?\s*[:=\-]?\s*(\d{1,3}(?:\.\d+)?)\s*%`)
	cbdSuffixRegex  = regexp.MustCompile(`(?i)(\d{1,3}(?:\.\d+)?)\s*%\s*CBDA?\b`)
	percentRegex    = regexp.MustCompile(`(?i)\b(?:THCA?|CBDA?)\s*[:=\-]?\s*\d{1,3}(?:\.\d+)?\s*%|\d{1,3}(?:\.\d+)?\s*%\s*(?:THCA?|CBDA?)?`)
	nameJunkRegex   = regexp.MustCompile(`[|•·]+|\s[-–]\s*$|^\s*[-–]\s`)
	multipleSpaces  = regexp.MustCompile(`\s+`)
)

// fractionGrams maps fractional-ounce notation to grams as sold at retail.
var fractionGrams = map[string]float64{
	"1/8":     3.5,
	"eighth":  3.5,
	"1/4":     7,
	"quarter": 7,
	"1/2":     14,
	"half":    14,
}

// strainTypeWords carry no product identity on their own.
var strainTypeWords = map[string]bool{
	"indica": true, "sativa": true, "hybrid": true, "cbd": true, "thc": true,
	"indica-hybrid": true, "sativa-hybrid": true,
}

// Cannabinoids holds extracted potency values; nil means not found.
type Cannabinoids struct {
	THCPercent *float64
	CBDPercent *float64
}

// ExtractPrices scans raw text for currency tokens. With two or more tokens
// the highest is the original price and the lowest the sale price, since
// "was/now" listings render in either order. A single token is both.
// Returns (nil, nil) when no price is present.
func ExtractPrices(rawText string) (original, sale *float64) {
	cleaned := discountLabelRegex.ReplaceAllString(rawText, " ")
	matches := priceTokenRegex.FindAllStringSubmatch(cleaned, -1)
	if len(matches) == 0 {
		return nil, nil
	}

	values := make([]float64, 0, len(matches))
	for _, m := range matches {
		whole := strings.ReplaceAll(m[1], ",", "")
		literal := whole
		if m[2] != "" {
			literal += "." + m[2]
		}
		v, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, nil
	}

	sort.Float64s(values)
	return pointers.Float64(values[len(values)-1]), pointers.Float64(values[0])
}

// ValidatePrices enforces 0 < sale <= original. Inverted pairs are swapped;
// a missing original price is treated as equal to the sale price. ok is false
// when the sale price is missing or not positive.
func ValidatePrices(original, sale *float64) (validOriginal, validSale *float64, ok bool) {
	if sale == nil || *sale <= 0 {
		return original, sale, false
	}
	s := *sale
	o := s
	if original != nil && *original > 0 {
		o = *original
	}
	if s > o {
		o, s = s, o
	}
	return pointers.Float64(o), pointers.Float64(s), true
}

// DiscountPercent derives the discount from the price pair. Scraped discount
// labels are never consulted.
func DiscountPercent(original, sale *float64) int {
	if original == nil || sale == nil || *original <= 0 || *sale <= 0 {
		return 0
	}
	d := math.Round(100 * (1 - *sale / *original))
	if d < 0 {
		return 0
	}
	if d > 100 {
		return 100
	}
	return int(d)
}

// ExtractCannabinoids finds THC and CBD percentages, clamped to [0, 100].
func ExtractCannabinoids(rawText string) Cannabinoids {
	return Cannabinoids{
		THCPercent: firstPercent(rawText, thcPrefixRegex, thcSuffixRegex),
		CBDPercent: firstPercent(rawText, cbdPrefixRegex, cbdSuffixRegex),
	}
}

func firstPercent(s string, patterns ...*regexp.Regexp) *float64 {
	for _, re := range patterns {
		m := re.FindStringSubmatch(s)
		if len(m) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return pointers.Float64(math.Max(0, math.Min(100, v)))
	}
	return nil
}

// weightToken is a located numeric+unit substring before interpretation.
type weightToken struct {
	literal string
	number  string
	unit    string
	value   float64
}

// findWeightTokens returns every numeric+unit token in text, in order. The
// denominator of a fraction ("1/8 oz") is not a token of its own.
func findWeightTokens(text string) []weightToken {
	matches := weightTokenRegex.FindAllStringSubmatchIndex(text, -1)
	tokens := make([]weightToken, 0, len(matches))
	for _, m := range matches {
		if m[0] > 0 && text[m[0]-1] == '/' {
			continue
		}
		number := text[m[2]:m[3]]
		v, err := strconv.ParseFloat(number, 64)
		if err != nil {
			continue
		}
		tokens = append(tokens, weightToken{
			literal: text[m[0]:m[1]],
			number:  number,
			unit:    NormalizeUnit(text[m[4]:m[5]]),
			value:   v,
		})
	}
	return tokens
}

// findFractionWeight resolves fractional-ounce notation to a gram token.
func findFractionWeight(text string) (string, bool) {
	m := fractionWeightRegex.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	key := m[1]
	if key == "" {
		key = strings.Fields(strings.ToLower(m[2]))[0]
		key = strings.TrimSuffix(strings.TrimSuffix(key, "oz"), "ounce")
	}
	grams, ok := fractionGrams[key]
	if !ok {
		return "", false
	}
	return strconv.FormatFloat(grams, 'f', -1, 64) + "g", true
}

// ExtractWeight locates the weight token for the category and interprets it
// through ValidateWeight. Edibles prefer mg tokens; every other category
// prefers gram or ounce tokens. Returns nil when no token is present, which
// is valid for accessories.
func ExtractWeight(rawText string, category domain.Category) *Weight {
	tokens := findWeightTokens(rawText)
	if len(tokens) > 0 {
		chosen := tokens[0]
		for _, t := range tokens {
			if preferredUnit(category, t.unit) {
				chosen = t
				break
			}
		}
		if w, ok := ValidateWeight(chosen.literal, category); ok {
			return &w
		}
	}

	if category == domain.CategoryFlower || category == domain.CategoryPreroll {
		if literal, ok := findFractionWeight(rawText); ok {
			if w, ok := ValidateWeight(literal, category); ok {
				return &w
			}
		}
	}
	return nil
}

func preferredUnit(category domain.Category, unit string) bool {
	if category == domain.CategoryEdible {
		return unit == domain.UnitMilligram
	}
	return unit == domain.UnitGram || unit == unitOunce
}

// CleanName derives a display name from a record name or raw text. The first
// line that still carries identity after stripping prices, weights, potency
// and discount labels wins. If every line is strain-type only, the first such
// line is returned so the quality gate can reject it.
func CleanName(name, rawText string) string {
	lines := append([]string{name}, strings.Split(rawText, "\n")...)

	fallback := ""
	for _, line := range lines {
		cleaned := cleanNameLine(line)
		if cleaned == "" {
			continue
		}
		if IsStrainTypeOnly(cleaned) {
			if fallback == "" {
				fallback = cleaned
			}
			continue
		}
		return cleaned
	}
	return fallback
}

func cleanNameLine(line string) string {
	line = discountLabelRegex.ReplaceAllString(line, " ")
	line = priceTokenRegex.ReplaceAllString(line, " ")
	line = percentRegex.ReplaceAllString(line, " ")
	line = weightTokenRegex.ReplaceAllString(line, " ")
	line = nameJunkRegex.ReplaceAllString(line, " ")
	line = multipleSpaces.ReplaceAllString(line, " ")
	return strings.Trim(line, " -–,:")
}

// IsStrainTypeOnly reports whether name is nothing but strain-type words.
func IsStrainTypeOnly(name string) bool {
	words := strings.Fields(strings.ToLower(name))
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !strainTypeWords[strings.Trim(w, ".,:;()[]/")] {
			return false
		}
	}
	return true
}
