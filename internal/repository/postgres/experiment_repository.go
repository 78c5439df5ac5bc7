package postgres

import (
	"context"
	"errors"
	"fmt"

	"myGreenInsight/business/experiment"
	"myGreenInsight/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExperimentRepository struct {
	DB *gorm.DB
}

var _ experiment.ExperimentRepository = (*ExperimentRepository)(nil)

func NewExperimentRepository(db *gorm.DB) *ExperimentRepository {
	return &ExperimentRepository{DB: db}
}

func orderedVariants(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create inserts the experiment and its variants in one transaction.
func (r *ExperimentRepository) Create(ctx context.Context, exp *domain.ABExperiment) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(exp).Error; err != nil {
		return fmt.Errorf("failed to create experiment: %w", err)
	}

	return nil
}

func (r *ExperimentRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.ABExperiment, error) {
	if err := ctx.Err(); err != nil {
		return domain.ABExperiment{}, fmt.Errorf("context error: %w", err)
	}

	var exp domain.ABExperiment
	err := r.DB.WithContext(ctx).
		Preload("Variants", orderedVariants).
		First(&exp, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ABExperiment{}, domain.NotFoundError("experiment", id.String())
		}
		return domain.ABExperiment{}, fmt.Errorf("failed to find experiment: %w", err)
	}

	return exp, nil
}

func (r *ExperimentRepository) List(ctx context.Context, params domain.ListParams) ([]domain.ABExperiment, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("context error: %w", err)
	}
	params = params.Normalize()

	var total int64
	if err := r.DB.WithContext(ctx).Model(&domain.ABExperiment{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count experiments: %w", err)
	}

	var items []domain.ABExperiment
	err := r.DB.WithContext(ctx).
		Preload("Variants", orderedVariants).
		Order("created_at DESC").
		Offset(params.Offset).
		Limit(params.Limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list experiments: %w", err)
	}

	return items, total, nil
}

// Update writes the experiment's own columns. Variant counters are only
// touched through IncrementVariant.
func (r *ExperimentRepository) Update(ctx context.Context, exp *domain.ABExperiment) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	updateData := map[string]interface{}{
		"name":           exp.Name,
		"description":    exp.Description,
		"status":         exp.Status,
		"primary_metric": exp.PrimaryMetric,
		"started_at":     exp.StartedAt,
		"ended_at":       exp.EndedAt,
	}

	result := r.DB.WithContext(ctx).Model(&domain.ABExperiment{}).Where("id = ?", exp.ID).Updates(updateData)
	if result.Error != nil {
		return fmt.Errorf("failed to update experiment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError("experiment", exp.ID.String())
	}

	return nil
}

func (r *ExperimentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("experiment_id = ?", id).Delete(&domain.ExperimentVariant{}).Error; err != nil {
			return fmt.Errorf("failed to delete experiment variants: %w", err)
		}
		result := tx.Delete(&domain.ABExperiment{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete experiment: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.NotFoundError("experiment", id.String())
		}
		return nil
	})
}

// IncrementVariant adds to the counters in SQL so concurrent exposures are
// never lost.
func (r *ExperimentRepository) IncrementVariant(ctx context.Context, variantID uuid.UUID, samples, conversions int64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).
		Model(&domain.ExperimentVariant{}).
		Where("id = ?", variantID).
		Updates(map[string]interface{}{
			"samples":     gorm.Expr("samples + ?", samples),
			"conversions": gorm.Expr("conversions + ?", conversions),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to increment variant: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError("variant", variantID.String())
	}

	return nil
}
