// Package htmlcard converts captured menu-card markup into raw scrape
// records. It does no browsing.
package htmlcard

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/budwatch/backend/internal/domain"
)

// DefaultCardSelector matches the product cards of the common menu platforms.
const DefaultCardSelector = `[data-testid="product-card"], .product-card, .menu-item, article.product`

var (
	nameSelectors   = []string{`[data-testid="product-name"]`, ".product-name", "h1", "h2", "h3", "h4", ".name"}
	priceSelector   = `[data-testid*="price"], [class*="price"], del, s`
	innerWhitespace = regexp.MustCompile(`\s+`)
)

// Options tune extraction.
type Options struct {
	CardSelector    string // defaults to DefaultCardSelector
	BaseURL         string // resolves relative product links
	ScrapedCategory string // page-section hint copied onto every record
}

// Extract parses html and returns one record per product card. Cards with
// no text are skipped.
func Extract(markup string, opts Options) ([]domain.RawScrapeRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var base *url.URL
	if opts.BaseURL != "" {
		if base, err = url.Parse(opts.BaseURL); err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
	}

	selector := opts.CardSelector
	if selector == "" {
		selector = DefaultCardSelector
	}

	records := []domain.RawScrapeRecord{}
	doc.Find(selector).Each(func(_ int, card *goquery.Selection) {
		rawText := cardText(card)
		if rawText == "" {
			return
		}
		rec := domain.RawScrapeRecord{
			Name:            cardName(card),
			RawText:         rawText,
			ScrapedCategory: opts.ScrapedCategory,
		}
		if price := cardPrice(card); price != "" {
			rec.Price = &price
		}
		if link := cardLink(card, base); link != "" {
			rec.ProductURL = &link
		}
		records = append(records, rec)
	})
	return records, nil
}

// cardText joins every non-empty text node of the card with newlines, which
// keeps the line structure the name cleaner relies on.
func cardText(card *goquery.Selection) string {
	var lines []string
	for _, n := range card.Nodes {
		collectText(n, &lines)
	}
	return strings.Join(lines, "\n")
}

func collectText(n *html.Node, lines *[]string) {
	if n == nil {
		return
	}
	switch n.Type {
	case html.TextNode:
		if line := clean(n.Data); line != "" {
			*lines = append(*lines, line)
		}
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "svg":
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, lines)
	}
}

func cardName(card *goquery.Selection) string {
	for _, sel := range nameSelectors {
		if s := card.Find(sel).First(); s.Length() > 0 {
			if name := clean(s.Text()); name != "" {
				return name
			}
		}
	}
	return ""
}

func cardPrice(card *goquery.Selection) string {
	var parts []string
	seen := make(map[string]bool)
	card.Find(priceSelector).Each(func(_ int, s *goquery.Selection) {
		// Nested price elements would repeat their parent's text.
		if s.Find(priceSelector).Length() > 0 {
			return
		}
		text := clean(s.Text())
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		parts = append(parts, text)
	})
	return strings.Join(parts, " ")
}

func cardLink(card *goquery.Selection, base *url.URL) string {
	href, ok := card.Find("a[href]").First().Attr("href")
	if !ok {
		if href, ok = card.Attr("href"); !ok {
			return ""
		}
	}
	link, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base != nil {
		link = base.ResolveReference(link)
	}
	return link.String()
}

func clean(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(s, " "))
}
