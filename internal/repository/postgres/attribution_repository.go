package postgres

import (
	"context"
	"errors"
	"fmt"

	"myGreenInsight/business/attribution"
	"myGreenInsight/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttributionRepository struct {
	DB *gorm.DB
}

var _ attribution.AttributionRepository = (*AttributionRepository)(nil)

func NewAttributionRepository(db *gorm.DB) *AttributionRepository {
	return &AttributionRepository{DB: db}
}

// Upsert writes the attribution keyed by session_id. An existing row keeps
// its id and created_at.
func (r *AttributionRepository) Upsert(ctx context.Context, attr *domain.CampaignAttribution) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	var existing domain.CampaignAttribution
	err := r.DB.WithContext(ctx).Select("id").First(&existing, "session_id = ?", attr.SessionID).Error
	switch {
	case err == nil:
		attr.ID = existing.ID
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("failed to query campaign_attributions: %w", err)
	}

	err = r.DB.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"visitor_id", "utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
				"campaign_id", "is_resolved", "resolution_confidence", "resolution_method",
				"platform", "updated_at",
			}),
		},
	).Create(attr).Error
	if err != nil {
		return fmt.Errorf("failed to upsert campaign_attributions: %w", err)
	}

	return nil
}

func (r *AttributionRepository) FindBySession(ctx context.Context, sessionID string) (domain.CampaignAttribution, error) {
	if err := ctx.Err(); err != nil {
		return domain.CampaignAttribution{}, fmt.Errorf("context error: %w", err)
	}

	var attr domain.CampaignAttribution
	err := r.DB.WithContext(ctx).First(&attr, "session_id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CampaignAttribution{}, domain.NotFoundError("attribution", sessionID)
		}
		return domain.CampaignAttribution{}, fmt.Errorf("failed to find attribution: %w", err)
	}

	return attr, nil
}

func (r *AttributionRepository) List(ctx context.Context, params domain.ListParams) ([]domain.CampaignAttribution, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("context error: %w", err)
	}
	params = params.Normalize()

	var total int64
	if err := r.DB.WithContext(ctx).Model(&domain.CampaignAttribution{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attributions: %w", err)
	}

	var items []domain.CampaignAttribution
	err := r.DB.WithContext(ctx).
		Order("updated_at DESC").
		Offset(params.Offset).
		Limit(params.Limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attributions: %w", err)
	}

	return items, total, nil
}

func (r *AttributionRepository) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).Delete(&domain.CampaignAttribution{}, "session_id = ?", sessionID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete attribution: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError("attribution", sessionID)
	}

	return nil
}
