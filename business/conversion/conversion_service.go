package conversion

import (
	"context"
	"fmt"
	"strings"

	"myGreenInsight/domain"
	"myGreenInsight/pkg/logger"

	"github.com/google/uuid"
)

func (t *Tracker) GetConversion(ctx context.Context, id uuid.UUID) (domain.Conversion, error) {
	if err := ctx.Err(); err != nil {
		return domain.Conversion{}, fmt.Errorf("context error: %w", err)
	}
	return t.conversions.FindByID(ctx, id)
}

func (t *Tracker) ListConversions(ctx context.Context, filter domain.ConversionFilter, params domain.ListParams) (domain.Page[domain.Conversion], error) {
	if err := ctx.Err(); err != nil {
		return domain.Page[domain.Conversion]{}, fmt.Errorf("context error: %w", err)
	}
	params = params.Normalize()

	items, total, err := t.conversions.List(ctx, filter, params)
	if err != nil {
		logger.Error("failed to list conversions", err)
		return domain.Page[domain.Conversion]{}, err
	}
	return domain.Page[domain.Conversion]{Items: items, Total: total, Offset: params.Offset, Limit: params.Limit}, nil
}

// DeleteConversion is the only mutation a conversion allows. Goal counters
// are left as they are.
func (t *Tracker) DeleteConversion(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if err := t.conversions.Delete(ctx, id); err != nil {
		logger.Error("failed to delete conversion", "conversion_id", id, "error", err)
		return err
	}
	logger.Info("conversion deleted", "conversion_id", id)
	return nil
}

type GoalInput struct {
	Name      string                `json:"name" validate:"required"`
	GoalType  domain.ConversionType `json:"goal_type" validate:"required"`
	WebsiteID string                `json:"website_id"`
	IsActive  *bool                 `json:"is_active"`
}

func (t *Tracker) CreateGoal(ctx context.Context, in GoalInput) (*domain.ConversionGoal, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	if !in.GoalType.Valid() {
		return nil, domain.NewValidationError("goal_type", fmt.Sprintf("unsupported conversion type %q", in.GoalType))
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	goal := &domain.ConversionGoal{
		ID:        uuid.New(),
		Name:      name,
		GoalType:  in.GoalType,
		WebsiteID: strings.TrimSpace(in.WebsiteID),
		IsActive:  active,
	}
	if err := t.goals.Create(ctx, goal); err != nil {
		logger.Error("failed to create conversion goal", err)
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}
	return goal, nil
}

func (t *Tracker) ListGoals(ctx context.Context, params domain.ListParams) (domain.Page[domain.ConversionGoal], error) {
	if err := ctx.Err(); err != nil {
		return domain.Page[domain.ConversionGoal]{}, fmt.Errorf("context error: %w", err)
	}
	params = params.Normalize()

	items, total, err := t.goals.List(ctx, params)
	if err != nil {
		return domain.Page[domain.ConversionGoal]{}, err
	}
	return domain.Page[domain.ConversionGoal]{Items: items, Total: total, Offset: params.Offset, Limit: params.Limit}, nil
}
