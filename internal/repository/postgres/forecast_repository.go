package postgres

import (
	"context"
	"errors"
	"fmt"

	"myGreenInsight/business/forecast"
	"myGreenInsight/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ForecastRepository struct {
	DB *gorm.DB
}

var _ forecast.ForecastRepository = (*ForecastRepository)(nil)

func NewForecastRepository(db *gorm.DB) *ForecastRepository {
	return &ForecastRepository{DB: db}
}

func (r *ForecastRepository) Create(ctx context.Context, f *domain.BudgetForecast) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(f).Error; err != nil {
		return fmt.Errorf("failed to create forecast: %w", err)
	}

	return nil
}

func (r *ForecastRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.BudgetForecast, error) {
	if err := ctx.Err(); err != nil {
		return domain.BudgetForecast{}, fmt.Errorf("context error: %w", err)
	}

	var f domain.BudgetForecast
	err := r.DB.WithContext(ctx).First(&f, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.BudgetForecast{}, domain.NotFoundError("forecast", id.String())
		}
		return domain.BudgetForecast{}, fmt.Errorf("failed to find forecast: %w", err)
	}

	return f, nil
}

func (r *ForecastRepository) List(ctx context.Context, params domain.ListParams) ([]domain.BudgetForecast, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("context error: %w", err)
	}
	params = params.Normalize()

	var total int64
	if err := r.DB.WithContext(ctx).Model(&domain.BudgetForecast{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count forecasts: %w", err)
	}

	var items []domain.BudgetForecast
	err := r.DB.WithContext(ctx).
		Order("forecast_date DESC").
		Offset(params.Offset).
		Limit(params.Limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list forecasts: %w", err)
	}

	return items, total, nil
}

func (r *ForecastRepository) ListAll(ctx context.Context) ([]domain.BudgetForecast, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var items []domain.BudgetForecast
	if err := r.DB.WithContext(ctx).Order("forecast_date ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list forecasts: %w", err)
	}

	return items, nil
}

// Update writes every column, including nil results, so a re-analysis can
// clear stale accuracy figures.
func (r *ForecastRepository) Update(ctx context.Context, f *domain.BudgetForecast) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).
		Model(&domain.BudgetForecast{}).
		Where("id = ?", f.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(f)
	if result.Error != nil {
		return fmt.Errorf("failed to update forecast: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError("forecast", f.ID.String())
	}

	return nil
}

func (r *ForecastRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).Delete(&domain.BudgetForecast{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete forecast: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError("forecast", id.String())
	}

	return nil
}
