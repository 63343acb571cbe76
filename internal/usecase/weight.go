package usecase

import (
	"math"
	"strings"

	"github.com/budwatch/backend/internal/domain"
)

const (
	unitOunce     = "oz"
	gramsPerOunce = 28.0

	// eighthGrams is what a dropped-digit flower weight like ".35" stands for.
	eighthGrams = 3.5

	droppedDigitMin = 0.1
	droppedDigitMax = 0.99
)

// edibleTiers snaps manufacturer mg claims into canonical buckets.
var edibleTiers = []struct {
	low, high, canonical float64
}{
	{82, 118, 100},
	{180, 220, 200},
}

// Weight is a category-interpreted physical weight.
type Weight struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// NormalizeUnit maps unit spellings onto "g", "mg" or "oz". Unknown units
// return "".
func NormalizeUnit(unit string) string {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "g", "gr", "gram", "grams":
		return domain.UnitGram
	case "mg", "milligram", "milligrams":
		return domain.UnitMilligram
	case "oz", "ounce", "ounces":
		return unitOunce
	}
	return ""
}

// ValidateWeight interprets a numeric+unit token for a category.
//
// The category must be known first: ".35g" is 0.35 g on a vape or
// concentrate, but on flower or prerolls a leading-decimal token in
// [0.1, 0.99] is a dropped digit and is read as an eighth (3.5 g). Ounces
// become grams, and edible mg values are snapped to canonical tiers.
func ValidateWeight(token string, category domain.Category) (Weight, bool) {
	m := weightTokenRegex.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return Weight{}, false
	}
	tokens := findWeightTokens(m[0])
	if len(tokens) == 0 {
		return Weight{}, false
	}
	t := tokens[0]
	value, unit := t.value, t.unit

	if unit == unitOunce {
		value, unit = value*gramsPerOunce, domain.UnitGram
	}

	if unit == domain.UnitGram && isDroppedDigit(t.number, value) {
		switch category {
		case domain.CategoryFlower, domain.CategoryPreroll:
			value = eighthGrams
		}
	}

	if unit == domain.UnitMilligram && category == domain.CategoryEdible {
		value = NormalizeEdibleMG(value)
	}

	return Weight{Value: roundWeight(value), Unit: unit}, true
}

// isDroppedDigit reports whether a literal like ".35" has no leading integer
// digit group and falls in the dropped-digit window.
func isDroppedDigit(number string, value float64) bool {
	return strings.HasPrefix(number, ".") && value >= droppedDigitMin && value <= droppedDigitMax
}

// NormalizeEdibleMG snaps 82-118 mg to 100 and 180-220 mg to 200. Values
// outside both windows pass through unchanged.
func NormalizeEdibleMG(mg float64) float64 {
	for _, tier := range edibleTiers {
		if mg >= tier.low && mg <= tier.high {
			return tier.canonical
		}
	}
	return mg
}

func roundWeight(v float64) float64 {
	return math.Round(v*1000) / 1000
}
