package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/budwatch/backend/internal/domain"
)

// DealRow is the persisted form of a curated deal.
type DealRow struct {
	ID           uuid.UUID `gorm:"type:text;primaryKey"`
	DispensaryID string    `gorm:"index;not null"`
	Name         string    `gorm:"not null"`
	Brand        string
	ProductURL   string

	Category          string `gorm:"index;not null"`
	ProductSubtype    *string
	IsInfused         bool
	CorrectedCategory *string

	WeightValue *float64
	WeightUnit  string

	OriginalPrice   *float64
	SalePrice       *float64 `gorm:"index"`
	DiscountPercent int

	THCPercent *float64
	CBDPercent *float64

	DealScore int    `gorm:"index"`
	Badge     string `gorm:"not null;default:''"`
	Active    bool   `gorm:"index;not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name.
func (DealRow) TableName() string { return "deals" }

var upsertColumns = []string{
	"dispensary_id", "name", "brand", "product_url",
	"category", "product_subtype", "is_infused", "corrected_category",
	"weight_value", "weight_unit",
	"original_price", "sale_price", "discount_percent",
	"thc_percent", "cbd_percent",
	"deal_score", "badge", "active", "updated_at",
}

// Open opens a sqlite database at dsn and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&DealRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// DealRepository implements domain.DealRepository with gorm.
type DealRepository struct {
	db *gorm.DB
}

// NewDealRepository wraps an open database.
func NewDealRepository(db *gorm.DB) *DealRepository {
	return &DealRepository{db: db}
}

// dealID is stable for a listing so repeated runs update the same row.
func dealID(d *domain.Deal) uuid.UUID {
	weight := ""
	if d.WeightValue != nil {
		weight = strconv.FormatFloat(*d.WeightValue, 'f', 3, 64) + d.WeightUnit
	}
	key := strings.Join([]string{d.DispensaryID, strings.ToLower(d.Name), weight}, "|")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("budwatch:deal:"+key))
}

// ReplaceActiveDeals deactivates every stored deal and upserts deals as the
// active set, in one transaction.
func (r *DealRepository) ReplaceActiveDeals(ctx context.Context, deals []domain.Deal) error {
	now := time.Now().UTC()
	rows := make([]DealRow, 0, len(deals))
	seen := make(map[uuid.UUID]bool, len(deals))
	for i := range deals {
		row := toRow(&deals[i], now)
		if seen[row.ID] {
			continue
		}
		seen[row.ID] = true
		rows = append(rows, row)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&DealRow{}).
			Where("active = ?", true).
			Updates(map[string]interface{}{"active": false, "deal_score": 0, "updated_at": now}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).CreateInBatches(&rows, 100).Error
	})
	if err != nil {
		return fmt.Errorf("%w: replace active deals: %v", domain.ErrStorageFailure, err)
	}
	return nil
}

// ListActive returns the active deals ordered by score desc, price asc.
func (r *DealRepository) ListActive(ctx context.Context) ([]domain.Deal, error) {
	var rows []DealRow
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("deal_score DESC").
		Order("sale_price ASC").
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list active deals: %v", domain.ErrStorageFailure, err)
	}

	deals := make([]domain.Deal, 0, len(rows))
	for i := range rows {
		deals = append(deals, fromRow(&rows[i]))
	}
	return deals, nil
}

func toRow(d *domain.Deal, now time.Time) DealRow {
	row := DealRow{
		ID:              dealID(d),
		DispensaryID:    d.DispensaryID,
		Name:            d.Name,
		Brand:           d.Brand,
		ProductURL:      d.ProductURL,
		Category:        string(d.Category),
		IsInfused:       d.IsInfused,
		WeightValue:     d.WeightValue,
		WeightUnit:      d.WeightUnit,
		OriginalPrice:   d.OriginalPrice,
		SalePrice:       d.SalePrice,
		DiscountPercent: d.DiscountPercent,
		THCPercent:      d.THCPercent,
		CBDPercent:      d.CBDPercent,
		DealScore:       d.DealScore,
		Badge:           string(d.Badge),
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if d.ProductSubtype != nil {
		s := string(*d.ProductSubtype)
		row.ProductSubtype = &s
	}
	if d.CorrectedCategory != nil {
		c := string(*d.CorrectedCategory)
		row.CorrectedCategory = &c
	}
	return row
}

func fromRow(row *DealRow) domain.Deal {
	d := domain.Deal{
		Product: domain.Product{
			Name:            row.Name,
			Brand:           row.Brand,
			DispensaryID:    row.DispensaryID,
			ProductURL:      row.ProductURL,
			Category:        domain.Category(row.Category),
			IsInfused:       row.IsInfused,
			WeightValue:     row.WeightValue,
			WeightUnit:      row.WeightUnit,
			OriginalPrice:   row.OriginalPrice,
			SalePrice:       row.SalePrice,
			DiscountPercent: row.DiscountPercent,
			THCPercent:      row.THCPercent,
			CBDPercent:      row.CBDPercent,
			DealScore:       row.DealScore,
		},
		Badge: domain.Badge(row.Badge),
	}
	if row.ProductSubtype != nil {
		s := domain.Subtype(*row.ProductSubtype)
		d.ProductSubtype = &s
	}
	if row.CorrectedCategory != nil {
		c := domain.Category(*row.CorrectedCategory)
		d.CorrectedCategory = &c
	}
	return d
}
