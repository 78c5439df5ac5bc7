package postgres

import (
	"context"
	"fmt"

	"myGreenInsight/business/journey"
	"myGreenInsight/business/scoring"
	"myGreenInsight/domain"

	"gorm.io/gorm"
)

// JourneyRepository stores the append-only journey log and reads the
// sentiment records that share its timeline.
type JourneyRepository struct {
	DB *gorm.DB
}

var (
	_ journey.EventRepository = (*JourneyRepository)(nil)
	_ journey.SentimentReader = (*JourneyRepository)(nil)
	_ scoring.EventReader     = (*JourneyRepository)(nil)
)

func NewJourneyRepository(db *gorm.DB) *JourneyRepository {
	return &JourneyRepository{DB: db}
}

func (r *JourneyRepository) Append(ctx context.Context, ev *domain.CustomerJourneyEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("failed to append journey event: %w", err)
	}

	return nil
}

func (r *JourneyRepository) ListEvents(ctx context.Context, filter domain.JourneyFilter) ([]domain.CustomerJourneyEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	q := r.DB.WithContext(ctx).Model(&domain.CustomerJourneyEvent{})
	if filter.PersonID != "" {
		q = q.Where("person_id = ?", filter.PersonID)
	}
	if filter.WebsiteID != "" {
		q = q.Where("website_id = ?", filter.WebsiteID)
	}
	if filter.From != nil {
		q = q.Where("occurred_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("occurred_at < ?", *filter.To)
	}

	var events []domain.CustomerJourneyEvent
	if err := q.Order("occurred_at ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list journey events: %w", err)
	}

	return events, nil
}

func (r *JourneyRepository) ListSentiments(ctx context.Context, personID string) ([]domain.SentimentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var records []domain.SentimentRecord
	err := r.DB.WithContext(ctx).
		Where("person_id = ?", personID).
		Order("recorded_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sentiments: %w", err)
	}

	return records, nil
}
