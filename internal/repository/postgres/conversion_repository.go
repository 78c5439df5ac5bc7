package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"myGreenInsight/business/conversion"
	"myGreenInsight/business/forecast"
	"myGreenInsight/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversionRepository struct {
	DB *gorm.DB
}

var (
	_ conversion.ConversionRepository = (*ConversionRepository)(nil)
	_ forecast.RevenueReader          = (*ConversionRepository)(nil)
)

func NewConversionRepository(db *gorm.DB) *ConversionRepository {
	return &ConversionRepository{DB: db}
}

func (r *ConversionRepository) Create(ctx context.Context, c *domain.Conversion) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create conversion: %w", err)
	}

	return nil
}

func (r *ConversionRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.Conversion, error) {
	if err := ctx.Err(); err != nil {
		return domain.Conversion{}, fmt.Errorf("context error: %w", err)
	}

	var c domain.Conversion
	err := r.DB.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Conversion{}, domain.NotFoundError("conversion", id.String())
		}
		return domain.Conversion{}, fmt.Errorf("failed to find conversion: %w", err)
	}

	return c, nil
}

func (r *ConversionRepository) filtered(ctx context.Context, filter domain.ConversionFilter) *gorm.DB {
	q := r.DB.WithContext(ctx).Model(&domain.Conversion{})
	if filter.PersonID != "" {
		q = q.Where("person_id = ?", filter.PersonID)
	}
	if filter.WebsiteID != "" {
		q = q.Where("website_id = ?", filter.WebsiteID)
	}
	if filter.ConversionType != "" {
		q = q.Where("conversion_type = ?", filter.ConversionType)
	}
	if filter.From != nil {
		q = q.Where("converted_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("converted_at < ?", *filter.To)
	}
	return q
}

func (r *ConversionRepository) List(ctx context.Context, filter domain.ConversionFilter, params domain.ListParams) ([]domain.Conversion, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("context error: %w", err)
	}
	params = params.Normalize()

	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count conversions: %w", err)
	}

	var items []domain.Conversion
	err := r.filtered(ctx, filter).
		Order("converted_at DESC").
		Offset(params.Offset).
		Limit(params.Limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list conversions: %w", err)
	}

	return items, total, nil
}

func (r *ConversionRepository) ListByPerson(ctx context.Context, personID string) ([]domain.Conversion, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var items []domain.Conversion
	err := r.DB.WithContext(ctx).
		Where("person_id = ?", personID).
		Order("converted_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions for person: %w", err)
	}

	return items, nil
}

func (r *ConversionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).Delete(&domain.Conversion{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete conversion: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError("conversion", id.String())
	}

	return nil
}

// DailyPurchaseRevenue sums purchase values per UTC day in [from, to).
// Bucketing happens here so the query stays portable across dialects.
func (r *ConversionRepository) DailyPurchaseRevenue(ctx context.Context, from, to time.Time, campaignID string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []struct {
		ConvertedAt time.Time `gorm:"column:converted_at"`
		Value       *float64  `gorm:"column:value"`
	}

	q := r.DB.WithContext(ctx).
		Model(&domain.Conversion{}).
		Select("converted_at, value").
		Where("conversion_type = ?", domain.ConversionPurchase).
		Where("converted_at >= ? AND converted_at < ?", from.UTC(), to.UTC())
	if campaignID != "" {
		q = q.Where("campaign_id = ?", campaignID)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate purchase revenue: %w", err)
	}

	out := make(map[string]float64)
	for _, row := range rows {
		if row.Value == nil {
			continue
		}
		out[row.ConvertedAt.UTC().Format(domain.DateLayout)] += *row.Value
	}

	return out, nil
}
