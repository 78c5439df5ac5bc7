package postgres

import (
	"context"
	"fmt"

	"myGreenInsight/business/conversion"
	"myGreenInsight/domain"

	"gorm.io/gorm"
)

type GoalRepository struct {
	DB *gorm.DB
}

var _ conversion.GoalRepository = (*GoalRepository)(nil)

func NewGoalRepository(db *gorm.DB) *GoalRepository {
	return &GoalRepository{DB: db}
}

func (r *GoalRepository) Create(ctx context.Context, g *domain.ConversionGoal) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(g).Error; err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}

	return nil
}

func (r *GoalRepository) List(ctx context.Context, params domain.ListParams) ([]domain.ConversionGoal, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("context error: %w", err)
	}
	params = params.Normalize()

	var total int64
	if err := r.DB.WithContext(ctx).Model(&domain.ConversionGoal{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count goals: %w", err)
	}

	var items []domain.ConversionGoal
	err := r.DB.WithContext(ctx).
		Order("created_at DESC").
		Offset(params.Offset).
		Limit(params.Limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list goals: %w", err)
	}

	return items, total, nil
}

// IncrementMatching bumps counters in a single UPDATE so concurrent
// conversions never lose an increment.
func (r *GoalRepository) IncrementMatching(ctx context.Context, goalType domain.ConversionType, websiteID string, value float64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	q := r.DB.WithContext(ctx).
		Model(&domain.ConversionGoal{}).
		Where("is_active = ? AND goal_type = ?", true, goalType)
	if websiteID == "" {
		q = q.Where("(website_id IS NULL OR website_id = '')")
	} else {
		q = q.Where("(website_id IS NULL OR website_id = '' OR website_id = ?)", websiteID)
	}

	result := q.Updates(map[string]interface{}{
		"conversion_count": gorm.Expr("conversion_count + ?", 1),
		"conversion_value": gorm.Expr("conversion_value + ?", value),
	})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to increment goals: %w", result.Error)
	}

	return result.RowsAffected, nil
}
