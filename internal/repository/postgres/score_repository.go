package postgres

import (
	"context"
	"errors"
	"fmt"

	"myGreenInsight/business/scoring"
	"myGreenInsight/business/segment"
	"myGreenInsight/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScoreRepository struct {
	DB *gorm.DB
}

var (
	_ scoring.ScoreRepository = (*ScoreRepository)(nil)
	_ segment.ScoreReader     = (*ScoreRepository)(nil)
)

func NewScoreRepository(db *gorm.DB) *ScoreRepository {
	return &ScoreRepository{DB: db}
}

func (r *ScoreRepository) FindByPersonAndType(ctx context.Context, personID string, scoreType domain.ScoreType) (domain.CustomerScore, error) {
	if err := ctx.Err(); err != nil {
		return domain.CustomerScore{}, fmt.Errorf("context error: %w", err)
	}

	var score domain.CustomerScore
	err := r.DB.WithContext(ctx).
		First(&score, "person_id = ? AND score_type = ?", personID, scoreType).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CustomerScore{}, domain.NotFoundError("score", personID+"/"+string(scoreType))
		}
		return domain.CustomerScore{}, fmt.Errorf("failed to find score: %w", err)
	}

	return score, nil
}

// Upsert keeps exactly one row per (person_id, score_type).
func (r *ScoreRepository) Upsert(ctx context.Context, score *domain.CustomerScore) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	err := r.DB.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "person_id"}, {Name: "score_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"score_value", "calculated_at", "metadata", "updated_at"}),
		},
	).Create(score).Error
	if err != nil {
		return fmt.Errorf("failed to upsert customer_scores: %w", err)
	}

	return nil
}

func (r *ScoreRepository) List(ctx context.Context, filter domain.ScoreFilter, params domain.ListParams) ([]domain.CustomerScore, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("context error: %w", err)
	}
	params = params.Normalize()

	q := r.DB.WithContext(ctx).Model(&domain.CustomerScore{})
	if filter.PersonID != "" {
		q = q.Where("person_id = ?", filter.PersonID)
	}
	if filter.ScoreType != "" {
		q = q.Where("score_type = ?", filter.ScoreType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count scores: %w", err)
	}

	var items []domain.CustomerScore
	err := q.Order("calculated_at DESC").
		Offset(params.Offset).
		Limit(params.Limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list scores: %w", err)
	}

	return items, total, nil
}

func (r *ScoreRepository) ListByPerson(ctx context.Context, personID string) ([]domain.CustomerScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var items []domain.CustomerScore
	if err := r.DB.WithContext(ctx).Where("person_id = ?", personID).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list scores for person: %w", err)
	}

	return items, nil
}

func (r *ScoreRepository) Delete(ctx context.Context, personID string, scoreType domain.ScoreType) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).
		Where("person_id = ? AND score_type = ?", personID, scoreType).
		Delete(&domain.CustomerScore{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete score: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError("score", personID+"/"+string(scoreType))
	}

	return nil
}

type NPSRepository struct {
	DB *gorm.DB
}

var _ scoring.NPSRepository = (*NPSRepository)(nil)

func NewNPSRepository(db *gorm.DB) *NPSRepository {
	return &NPSRepository{DB: db}
}

func (r *NPSRepository) Create(ctx context.Context, resp *domain.NPSResponse) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(resp).Error; err != nil {
		return fmt.Errorf("failed to create nps response: %w", err)
	}

	return nil
}

func (r *NPSRepository) ListByPerson(ctx context.Context, personID string) ([]domain.NPSResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var items []domain.NPSResponse
	err := r.DB.WithContext(ctx).
		Where("person_id = ?", personID).
		Order("responded_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list nps responses: %w", err)
	}

	return items, nil
}
