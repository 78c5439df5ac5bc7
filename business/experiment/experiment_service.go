package experiment

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"

	"myGreenInsight/domain"
	"myGreenInsight/pkg/logger"
	"myGreenInsight/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const defaultPrimaryMetric = "conversion_rate"

type ExperimentRepository interface {
	Create(ctx context.Context, exp *domain.ABExperiment) error
	FindByID(ctx context.Context, id uuid.UUID) (domain.ABExperiment, error)
	List(ctx context.Context, params domain.ListParams) ([]domain.ABExperiment, int64, error)
	Update(ctx context.Context, exp *domain.ABExperiment) error
	Delete(ctx context.Context, id uuid.UUID) error
	// IncrementVariant adds to a variant's counters in a single UPDATE.
	IncrementVariant(ctx context.Context, variantID uuid.UUID, samples, conversions int64) error
}

type ExperimentService struct {
	repo  ExperimentRepository
	mde   float64
	power float64
	now   func() time.Time
}

func NewExperimentService(repo ExperimentRepository, mde, power float64) *ExperimentService {
	return &ExperimentService{repo: repo, mde: mde, power: power, now: time.Now}
}

type VariantInput struct {
	Name      string `json:"name" validate:"required"`
	IsControl bool   `json:"is_control"`
}

type ExperimentInput struct {
	Name          string         `json:"name" validate:"required"`
	Description   string         `json:"description"`
	PrimaryMetric string         `json:"primary_metric"`
	Variants      []VariantInput `json:"variants" validate:"required,min=2,dive"`
}

type ExperimentUpdate struct {
	Name          string                  `json:"name"`
	Description   *string                 `json:"description"`
	PrimaryMetric string                  `json:"primary_metric"`
	Status        domain.ExperimentStatus `json:"status"`
}

func (s *ExperimentService) CreateExperiment(ctx context.Context, in ExperimentInput) (*domain.ABExperiment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	if len(in.Variants) < 2 {
		return nil, domain.NewValidationError("variants", "at least two variants are required")
	}

	exp := &domain.ABExperiment{
		ID:            uuid.New(),
		Name:          name,
		Description:   in.Description,
		Status:        domain.ExperimentDraft,
		PrimaryMetric: strings.TrimSpace(in.PrimaryMetric),
	}
	if exp.PrimaryMetric == "" {
		exp.PrimaryMetric = defaultPrimaryMetric
	}

	seen := map[string]bool{}
	controls := 0
	for i, v := range in.Variants {
		vn := strings.TrimSpace(v.Name)
		if vn == "" {
			return nil, domain.NewValidationError(fmt.Sprintf("variants[%d].name", i), "is required")
		}
		if seen[vn] {
			return nil, domain.NewValidationError(fmt.Sprintf("variants[%d].name", i), fmt.Sprintf("duplicate variant %q", vn))
		}
		seen[vn] = true
		if v.IsControl {
			controls++
		}
		exp.Variants = append(exp.Variants, domain.ExperimentVariant{
			ID:           uuid.New(),
			ExperimentID: exp.ID,
			Name:         vn,
			IsControl:    v.IsControl,
			Position:     i,
		})
	}
	switch {
	case controls > 1:
		return nil, domain.NewValidationError("variants", "only one control variant is allowed")
	case controls == 0:
		exp.Variants[0].IsControl = true
	}

	if err := s.repo.Create(ctx, exp); err != nil {
		logger.Error("failed to create experiment", "name", name, "error", err)
		return nil, fmt.Errorf("failed to create experiment: %w", err)
	}
	logger.Info("experiment created", "experiment_id", exp.ID, "variants", len(exp.Variants))
	return exp, nil
}

func (s *ExperimentService) GetExperiment(ctx context.Context, id uuid.UUID) (domain.ABExperiment, error) {
	if err := ctx.Err(); err != nil {
		return domain.ABExperiment{}, fmt.Errorf("context error: %w", err)
	}
	return s.repo.FindByID(ctx, id)
}

func (s *ExperimentService) ListExperiments(ctx context.Context, params domain.ListParams) (domain.Page[domain.ABExperiment], error) {
	if err := ctx.Err(); err != nil {
		return domain.Page[domain.ABExperiment]{}, fmt.Errorf("context error: %w", err)
	}
	params = params.Normalize()
	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return domain.Page[domain.ABExperiment]{}, err
	}
	return domain.Page[domain.ABExperiment]{Items: items, Total: total, Offset: params.Offset, Limit: params.Limit}, nil
}

// UpdateExperiment edits descriptive fields and moves the status forward:
// draft → running → completed.
func (s *ExperimentService) UpdateExperiment(ctx context.Context, id uuid.UUID, in ExperimentUpdate) (*domain.ABExperiment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	exp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if n := strings.TrimSpace(in.Name); n != "" {
		exp.Name = n
	}
	if in.Description != nil {
		exp.Description = *in.Description
	}
	if m := strings.TrimSpace(in.PrimaryMetric); m != "" {
		exp.PrimaryMetric = m
	}
	if in.Status != "" && in.Status != exp.Status {
		if err := s.transition(&exp, in.Status); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, &exp); err != nil {
		logger.Error("failed to update experiment", "experiment_id", id, "error", err)
		return nil, fmt.Errorf("failed to update experiment: %w", err)
	}
	return &exp, nil
}

func (s *ExperimentService) transition(exp *domain.ABExperiment, to domain.ExperimentStatus) error {
	if !to.Valid() {
		return domain.NewValidationError("status", fmt.Sprintf("unsupported status %q", to))
	}
	now := s.now().UTC()
	switch {
	case exp.Status == domain.ExperimentDraft && to == domain.ExperimentRunning:
		exp.StartedAt = &now
	case exp.Status == domain.ExperimentRunning && to == domain.ExperimentCompleted:
		exp.EndedAt = &now
	default:
		return domain.NewValidationError("status", fmt.Sprintf("cannot move from %s to %s", exp.Status, to))
	}
	exp.Status = to
	return nil
}

func (s *ExperimentService) DeleteExperiment(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		logger.Error("failed to delete experiment", "experiment_id", id, "error", err)
		return err
	}
	return nil
}

// Results reports per-variant rates and the significance of each treatment
// against the control.
func (s *ExperimentService) Results(ctx context.Context, id uuid.UUID) (*Results, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	ctx, span := tracing.Start(ctx, "experiment.results", attribute.String("experiment_id", id.String()))
	defer span.End()

	exp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res := Analyze(exp, s.mde, s.power)
	logger.Debug("experiment_results", "experiment_id", id, "winner", res.Winner)
	return &res, nil
}

// AssignVariant buckets a visitor into a variant. The same visitor always
// gets the same variant for a given experiment.
func (s *ExperimentService) AssignVariant(ctx context.Context, id uuid.UUID, visitorID string) (domain.ExperimentVariant, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExperimentVariant{}, fmt.Errorf("context error: %w", err)
	}
	visitorID = strings.TrimSpace(visitorID)
	if visitorID == "" {
		return domain.ExperimentVariant{}, domain.NewValidationError("visitor_id", "is required")
	}

	exp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.ExperimentVariant{}, err
	}
	if exp.Status != domain.ExperimentRunning {
		return domain.ExperimentVariant{}, domain.NewValidationError("status", "experiment is not running")
	}
	return assignVariant(exp, visitorID)
}

func assignVariant(exp domain.ABExperiment, visitorID string) (domain.ExperimentVariant, error) {
	if len(exp.Variants) == 0 {
		return domain.ExperimentVariant{}, domain.NewValidationError("variants", "experiment has no variants")
	}
	variants := make([]domain.ExperimentVariant, len(exp.Variants))
	copy(variants, exp.Variants)
	sort.SliceStable(variants, func(i, j int) bool { return variants[i].Position < variants[j].Position })

	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%s", exp.ID, visitorID)))
	return variants[h.Sum32()%uint32(len(variants))], nil
}

// RecordExposure assigns the visitor and counts one sample for the variant.
func (s *ExperimentService) RecordExposure(ctx context.Context, id uuid.UUID, visitorID string) (domain.ExperimentVariant, error) {
	return s.record(ctx, id, visitorID, 1, 0)
}

// RecordConversion counts one conversion for the visitor's variant.
func (s *ExperimentService) RecordConversion(ctx context.Context, id uuid.UUID, visitorID string) (domain.ExperimentVariant, error) {
	return s.record(ctx, id, visitorID, 0, 1)
}

func (s *ExperimentService) record(ctx context.Context, id uuid.UUID, visitorID string, samples, conversions int64) (domain.ExperimentVariant, error) {
	v, err := s.AssignVariant(ctx, id, visitorID)
	if err != nil {
		return domain.ExperimentVariant{}, err
	}
	if err := s.repo.IncrementVariant(ctx, v.ID, samples, conversions); err != nil {
		logger.Error("failed to increment variant counters", "experiment_id", id, "variant", v.Name, "error", err)
		return domain.ExperimentVariant{}, fmt.Errorf("increment variant: %w", err)
	}
	v.Samples += samples
	v.Conversions += conversions
	return v, nil
}
