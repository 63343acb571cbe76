package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budwatch/backend/internal/pkg/pointers"
)

func TestExtractPrices(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantOriginal *float64
		wantSale     *float64
	}{
		{name: "original then sale", text: "$30.00 $15.00", wantOriginal: pointers.Float64(30), wantSale: pointers.Float64(15)},
		{name: "sale then original", text: "$15.00\n$30.00", wantOriginal: pointers.Float64(30), wantSale: pointers.Float64(15)},
		{name: "single price", text: "Blue Dream $25", wantOriginal: pointers.Float64(25), wantSale: pointers.Float64(25)},
		{name: "thousands separator", text: "$1,250.50 $999", wantOriginal: pointers.Float64(1250.5), wantSale: pointers.Float64(999)},
		{name: "save label ignored", text: "Save $10\n$30.00 $20.00", wantOriginal: pointers.Float64(30), wantSale: pointers.Float64(20)},
		{name: "dollar off label ignored", text: "$5 off\n$40 $35", wantOriginal: pointers.Float64(40), wantSale: pointers.Float64(35)},
		{name: "percent off label ignored", text: "20% off $40 $32", wantOriginal: pointers.Float64(40), wantSale: pointers.Float64(32)},
		{name: "no price", text: "Blue Dream 3.5g"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original, sale := ExtractPrices(tt.text)
			assert.Equal(t, tt.wantOriginal, original)
			assert.Equal(t, tt.wantSale, sale)
		})
	}
}

func TestValidatePrices(t *testing.T) {
	t.Run("keeps ordered pair", func(t *testing.T) {
		o, s, ok := ValidatePrices(pointers.Float64(30), pointers.Float64(15))
		require.True(t, ok)
		assert.Equal(t, 30.0, *o)
		assert.Equal(t, 15.0, *s)
	})

	t.Run("swaps inverted pair", func(t *testing.T) {
		o, s, ok := ValidatePrices(pointers.Float64(10), pointers.Float64(20))
		require.True(t, ok)
		assert.Equal(t, 20.0, *o)
		assert.Equal(t, 10.0, *s)
	})

	t.Run("missing original equals sale", func(t *testing.T) {
		o, s, ok := ValidatePrices(nil, pointers.Float64(12))
		require.True(t, ok)
		assert.Equal(t, 12.0, *o)
		assert.Equal(t, 12.0, *s)
	})

	t.Run("missing sale fails", func(t *testing.T) {
		_, _, ok := ValidatePrices(pointers.Float64(30), nil)
		assert.False(t, ok)
	})

	t.Run("zero sale fails", func(t *testing.T) {
		_, _, ok := ValidatePrices(pointers.Float64(30), pointers.Float64(0))
		assert.False(t, ok)
	})
}

func TestDiscountPercent(t *testing.T) {
	tests := []struct {
		name     string
		original *float64
		sale     *float64
		want     int
	}{
		{name: "half off", original: pointers.Float64(30), sale: pointers.Float64(15), want: 50},
		{name: "rounds to nearest", original: pointers.Float64(30), sale: pointers.Float64(20), want: 33},
		{name: "no discount", original: pointers.Float64(25), sale: pointers.Float64(25), want: 0},
		{name: "missing original", sale: pointers.Float64(25), want: 0},
		{name: "missing sale", original: pointers.Float64(25), want: 0},
		{name: "inverted pair clamps to zero", original: pointers.Float64(10), sale: pointers.Float64(20), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DiscountPercent(tt.original, tt.sale))
		})
	}
}

func TestExtractCannabinoids(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantTHC *float64
		wantCBD *float64
	}{
		{name: "prefix labels", text: "THC: 24.5%\nCBD: 0.1%", wantTHC: pointers.Float64(24.5), wantCBD: pointers.Float64(0.1)},
		{name: "suffix labels", text: "28.1% THCa", wantTHC: pointers.Float64(28.1)},
		{name: "clamped to 100", text: "THC 150%", wantTHC: pointers.Float64(100)},
		{name: "none present", text: "Blue Dream 3.5g"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCannabinoids(tt.text)
			assert.Equal(t, tt.wantTHC, got.THCPercent)
			assert.Equal(t, tt.wantCBD, got.CBDPercent)
		})
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		name    string
		record  string
		rawText string
		want    string
	}{
		{name: "first raw line", rawText: "Blue Dream\nIndica\n$30.00 $15.00\n3.5g", want: "Blue Dream"},
		{name: "record name wins", record: "Wedding Cake", rawText: "Hybrid\n$20", want: "Wedding Cake"},
		{name: "strips price weight and junk", rawText: "Wedding Cake 3.5g | $25", want: "Wedding Cake"},
		{name: "skips strain type lines", rawText: "Sativa\nSour Diesel\n$40", want: "Sour Diesel"},
		{name: "strain type only falls back", rawText: "Indica\n$20", want: "Indica"},
		{name: "empty input", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanName(tt.record, tt.rawText))
		})
	}
}

func TestIsStrainTypeOnly(t *testing.T) {
	assert.True(t, IsStrainTypeOnly("Indica"))
	assert.True(t, IsStrainTypeOnly("hybrid"))
	assert.True(t, IsStrainTypeOnly("Sativa-Hybrid"))
	assert.False(t, IsStrainTypeOnly("Blue Dream"))
	assert.False(t, IsStrainTypeOnly("Indica Kush"))
	assert.False(t, IsStrainTypeOnly(""))
}
