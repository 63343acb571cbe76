package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/budwatch/backend/internal/domain"
	"github.com/budwatch/backend/internal/infrastructure/htmlcard"
)

// batchSource names where run reads scrape records from. JSON holds a
// dispensary slug -> records object; HTML files are captured menu pages for
// a single dispensary.
type batchSource struct {
	JSONPath   string
	HTMLPaths  []string
	Dispensary string
	BaseURL    string
	Category   string
	Selector   string
}

func loadBatches(src batchSource) (map[string][]domain.RawScrapeRecord, error) {
	batches := make(map[string][]domain.RawScrapeRecord)

	if src.JSONPath != "" {
		data, err := os.ReadFile(src.JSONPath)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &batches); err != nil {
			return nil, fmt.Errorf("decode %s: %w", src.JSONPath, err)
		}
	}

	if len(src.HTMLPaths) > 0 {
		slug := strings.TrimSpace(src.Dispensary)
		if slug == "" {
			return nil, errors.New("--dispensary is required with --html")
		}
		for _, path := range src.HTMLPaths {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			records, err := htmlcard.Extract(string(data), htmlcard.Options{
				CardSelector:    src.Selector,
				BaseURL:         src.BaseURL,
				ScrapedCategory: src.Category,
			})
			if err != nil {
				return nil, fmt.Errorf("extract %s: %w", path, err)
			}
			batches[slug] = append(batches[slug], records...)
		}
	}

	if len(batches) == 0 {
		return nil, errors.New("no input: pass --input or --html")
	}
	return batches, nil
}
