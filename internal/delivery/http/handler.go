package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/budwatch/backend/internal/domain"
	"github.com/budwatch/backend/internal/pkg/logger"
	"github.com/budwatch/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	deals *usecase.DealService
	log   *logger.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(deals *usecase.DealService, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{deals: deals, log: log}
}

// ParseRequest is the body of POST /api/v1/products/parse
type ParseRequest struct {
	RawText         string  `json:"raw_text"`
	Dispensary      string  `json:"dispensary"`
	Name            string  `json:"name,omitempty"`
	Price           *string `json:"price,omitempty"`
	ProductURL      *string `json:"product_url,omitempty"`
	ScrapedCategory string  `json:"scraped_category,omitempty"`
}

// Evaluation reports how the detector stages judge a single product.
type Evaluation struct {
	PassesHardFilters bool                   `json:"passes_hard_filters"`
	PassesQuality     bool                   `json:"passes_quality_gate"`
	RejectReason      usecase.RejectReason   `json:"reject_reason,omitempty"`
	Score             usecase.ScoreBreakdown `json:"score"`
	Badge             domain.Badge           `json:"badge"`
}

// ParseResponse is returned by POST /api/v1/products/parse
type ParseResponse struct {
	Product    domain.Product `json:"product"`
	Evaluation Evaluation     `json:"evaluation"`
}

// RunRequest is the body of POST /api/v1/deals/run
type RunRequest struct {
	Dispensaries map[string][]domain.RawScrapeRecord `json:"dispensaries"`
}

// RunResponse is returned by POST /api/v1/deals/run
type RunResponse struct {
	RunID          string                  `json:"run_id"`
	ProductsParsed int                     `json:"products_parsed"`
	Deals          []domain.Deal           `json:"deals"`
	Backfilled     bool                    `json:"backfilled"`
	StrictCaps     usecase.SelectionCaps   `json:"strict_caps"`
	RelaxedCaps    usecase.SelectionCaps   `json:"relaxed_caps"`
	Stats          usecase.QualifyStats    `json:"stats"`
	SimilarRemoved int                     `json:"similar_removed"`
	Summary        usecase.Summary         `json:"summary"`
	CategoryCounts map[domain.Category]int `json:"category_counts"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "budwatch-backend",
		"version": "1.0.0",
	})
}

// ParseProduct parses one raw record and evaluates it without selection
func (h *Handler) ParseProduct(c *gin.Context) {
	if h.deals == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "deal service not configured"})
		return
	}

	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.RawText) == "" && strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "raw_text or name is required"})
		return
	}
	if strings.TrimSpace(req.Dispensary) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dispensary is required"})
		return
	}

	product := h.deals.Parser().ParseRecord(domain.RawScrapeRecord{
		Name:            req.Name,
		RawText:         req.RawText,
		Price:           req.Price,
		ProductURL:      req.ProductURL,
		ScrapedCategory: req.ScrapedCategory,
	}, strings.TrimSpace(req.Dispensary))

	detector := h.deals.Detector()
	var eval Evaluation
	eval.PassesHardFilters, eval.RejectReason = detector.PassesHardFilters(&product)
	if eval.PassesHardFilters {
		eval.Score = detector.ScoreBreakdown(&product)
		eval.PassesQuality, eval.RejectReason = detector.PassesQualityGate(&product)
		if eval.PassesQuality {
			product.DealScore = eval.Score.Total
			eval.Badge = usecase.Badge(eval.Score.Total)
		}
	}

	c.JSON(http.StatusOK, ParseResponse{Product: product, Evaluation: eval})
}

// RunDeals runs the full pipeline over posted dispensary batches
func (h *Handler) RunDeals(c *gin.Context) {
	if h.deals == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "deal service not configured"})
		return
	}

	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.deals.Run(c.Request.Context(), req.Dispensaries)
	if err != nil {
		h.writeError(c, err)
		return
	}

	sel := result.Selection
	c.JSON(http.StatusOK, RunResponse{
		RunID:          result.RunID,
		ProductsParsed: len(result.Products),
		Deals:          sel.Deals,
		Backfilled:     sel.Backfilled,
		StrictCaps:     sel.StrictCaps,
		RelaxedCaps:    sel.RelaxedCaps,
		Stats:          sel.Stats,
		SimilarRemoved: sel.SimilarRemoved,
		Summary:        result.Summary,
		CategoryCounts: sel.CategoryCounts,
	})
}

// ListDeals returns the active deal set, optionally filtered by ?category=
func (h *Handler) ListDeals(c *gin.Context) {
	if h.deals == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "deal service not configured"})
		return
	}

	deals, err := h.deals.ActiveDeals(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	if raw := strings.ToLower(strings.TrimSpace(c.Query("category"))); raw != "" {
		category := domain.Category(raw)
		if !category.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
			return
		}
		filtered := make([]domain.Deal, 0, len(deals))
		for _, d := range deals {
			if d.EffectiveCategory() == category {
				filtered = append(filtered, d)
			}
		}
		deals = filtered
	}

	c.JSON(http.StatusOK, gin.H{"deals": deals, "count": len(deals)})
}

// writeError maps domain errors onto HTTP statuses
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrDealsNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrStorageFailure):
		h.log.Error("storage failure", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "deal storage unavailable"})
	default:
		h.log.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
