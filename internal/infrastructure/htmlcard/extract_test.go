package htmlcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const menuHTML = `
<html><body>
<div class="menu">
  <div class="product-card">
    <a href="/menu/blue-dream-35g">
      <h3 class="product-name">Blue Dream</h3>
    </a>
    <span class="strain">Indica</span>
    <div class="pricing">
      <del class="price-original">$30.00</del>
      <span class="price-sale">$15.00</span>
    </div>
    <span>3.5g</span>
    <span>THC: 24.5%</span>
    <script>track("blue-dream")</script>
  </div>
  <div class="product-card">
    <h3>STIIIZY Pod .35g</h3>
    <span class="price">$25.00</span>
  </div>
  <div class="product-card">   </div>
</div>
</body></html>`

func TestExtract(t *testing.T) {
	records, err := Extract(menuHTML, Options{
		BaseURL:         "https://td-gibson.example.com/shop/",
		ScrapedCategory: "flower",
	})
	require.NoError(t, err)
	require.Len(t, records, 2, "empty card is skipped")

	t.Run("first card carries every field", func(t *testing.T) {
		rec := records[0]
		assert.Equal(t, "Blue Dream", rec.Name)
		assert.Equal(t, "Blue Dream\nIndica\n$30.00\n$15.00\n3.5g\nTHC: 24.5%", rec.RawText)
		require.NotNil(t, rec.Price)
		assert.Equal(t, "$30.00 $15.00", *rec.Price)
		require.NotNil(t, rec.ProductURL)
		assert.Equal(t, "https://td-gibson.example.com/menu/blue-dream-35g", *rec.ProductURL)
		assert.Equal(t, "flower", rec.ScrapedCategory)
	})

	t.Run("card without link", func(t *testing.T) {
		rec := records[1]
		assert.Equal(t, "STIIIZY Pod .35g", rec.Name)
		assert.Nil(t, rec.ProductURL)
		require.NotNil(t, rec.Price)
		assert.Equal(t, "$25.00", *rec.Price)
	})
}

func TestExtract_CustomSelector(t *testing.T) {
	markup := `<ul><li class="item"><b>Kiva Camino Gummies 100mg</b> $18</li><li class="other">ignored</li></ul>`

	records, err := Extract(markup, Options{CardSelector: "li.item"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Kiva Camino Gummies 100mg\n$18", records[0].RawText)
	assert.Equal(t, "", records[0].Name)
	assert.Nil(t, records[0].Price)
}

func TestExtract_BadBaseURL(t *testing.T) {
	_, err := Extract(menuHTML, Options{BaseURL: "://bad"})
	assert.Error(t, err)
}
