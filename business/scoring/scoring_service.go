package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"myGreenInsight/domain"
	"myGreenInsight/pkg/logger"
	"myGreenInsight/pkg/metrics"
	"myGreenInsight/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
)

type ScoreRepository interface {
	FindByPersonAndType(ctx context.Context, personID string, scoreType domain.ScoreType) (domain.CustomerScore, error)
	Upsert(ctx context.Context, score *domain.CustomerScore) error
	List(ctx context.Context, filter domain.ScoreFilter, params domain.ListParams) ([]domain.CustomerScore, int64, error)
	Delete(ctx context.Context, personID string, scoreType domain.ScoreType) error
}

type NPSRepository interface {
	Create(ctx context.Context, resp *domain.NPSResponse) error
	ListByPerson(ctx context.Context, personID string) ([]domain.NPSResponse, error)
}

type EventReader interface {
	ListEvents(ctx context.Context, filter domain.JourneyFilter) ([]domain.CustomerJourneyEvent, error)
}

type ConversionReader interface {
	ListByPerson(ctx context.Context, personID string) ([]domain.Conversion, error)
}

type PersonLister interface {
	ListPersons(ctx context.Context) ([]domain.Person, error)
}

type ScoringService struct {
	scores      ScoreRepository
	nps         NPSRepository
	events      EventReader
	conversions ConversionReader
	persons     PersonLister
	now         func() time.Time
}

func NewScoringService(scores ScoreRepository, nps NPSRepository, events EventReader, conversions ConversionReader, persons PersonLister) *ScoringService {
	return &ScoringService{
		scores:      scores,
		nps:         nps,
		events:      events,
		conversions: conversions,
		persons:     persons,
		now:         time.Now,
	}
}

// personInputs loads each data source at most once per person.
type personInputs struct {
	svc      *ScoringService
	personID string

	activity    *Activity
	npsResponse []domain.NPSResponse
	npsLoaded   bool
}

func (p *personInputs) loadActivity(ctx context.Context) (Activity, error) {
	if p.activity != nil {
		return *p.activity, nil
	}
	events, err := p.svc.events.ListEvents(ctx, domain.JourneyFilter{PersonID: p.personID})
	if err != nil {
		return Activity{}, fmt.Errorf("load journey events: %w", err)
	}
	conversions, err := p.svc.conversions.ListByPerson(ctx, p.personID)
	if err != nil {
		return Activity{}, fmt.Errorf("load conversions: %w", err)
	}
	p.activity = &Activity{Events: events, Conversions: conversions}
	return *p.activity, nil
}

func (p *personInputs) loadNPS(ctx context.Context) ([]domain.NPSResponse, error) {
	if p.npsLoaded {
		return p.npsResponse, nil
	}
	resp, err := p.svc.nps.ListByPerson(ctx, p.personID)
	if err != nil {
		return nil, fmt.Errorf("load nps responses: %w", err)
	}
	p.npsResponse, p.npsLoaded = resp, true
	return resp, nil
}

func validatePerson(personID string) (string, error) {
	personID = strings.TrimSpace(personID)
	if personID == "" {
		return "", domain.NewValidationError("person_id", "is required")
	}
	return personID, nil
}

// CalculateScore recomputes one score for a person and stores it, moving
// the previous value into history.
func (s *ScoringService) CalculateScore(ctx context.Context, personID string, scoreType domain.ScoreType) (*domain.CustomerScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	personID, err := validatePerson(personID)
	if err != nil {
		return nil, err
	}
	if !scoreType.Valid() {
		return nil, domain.NewValidationError("score_type", fmt.Sprintf("unsupported score type %q", scoreType))
	}

	in := &personInputs{svc: s, personID: personID}
	return s.calculate(ctx, in, scoreType)
}

// CalculateAll recomputes every score type for a person. Types that fail
// are reported in the joined error; the others are still stored.
func (s *ScoringService) CalculateAll(ctx context.Context, personID string) ([]domain.CustomerScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	personID, err := validatePerson(personID)
	if err != nil {
		return nil, err
	}

	in := &personInputs{svc: s, personID: personID}
	out := make([]domain.CustomerScore, 0, len(domain.ScoreTypes))
	var errs []error
	for _, t := range domain.ScoreTypes {
		score, err := s.calculate(ctx, in, t)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
			continue
		}
		out = append(out, *score)
	}
	return out, errors.Join(errs...)
}

func (s *ScoringService) calculate(ctx context.Context, in *personInputs, scoreType domain.ScoreType) (*domain.CustomerScore, error) {
	ctx, span := tracing.Start(ctx, "scoring.calculate",
		attribute.String("person_id", in.personID),
		attribute.String("score_type", string(scoreType)),
	)
	defer span.End()

	now := s.now().UTC()
	value, meta, err := s.compute(ctx, in, scoreType, now)
	if err != nil {
		metrics.ScoreCalculations.WithLabelValues(string(scoreType), "error").Inc()
		return nil, err
	}

	score := domain.CustomerScore{
		ID:           uuid.New(),
		PersonID:     in.personID,
		ScoreType:    scoreType,
		ScoreValue:   value,
		CalculatedAt: now,
	}

	prev, err := s.scores.FindByPersonAndType(ctx, in.personID, scoreType)
	switch {
	case err == nil:
		score.ID = prev.ID
		meta.History = pushHistory(prev.Metadata.Data().History, domain.ScoreHistoryEntry{
			Value:        prev.ScoreValue,
			CalculatedAt: prev.CalculatedAt,
		})
	case errors.Is(err, domain.ErrNotFound):
		meta.History = []domain.ScoreHistoryEntry{}
	default:
		metrics.ScoreCalculations.WithLabelValues(string(scoreType), "error").Inc()
		return nil, fmt.Errorf("load previous score: %w", err)
	}
	score.Metadata = datatypes.NewJSONType(meta)

	if err := s.scores.Upsert(ctx, &score); err != nil {
		metrics.ScoreCalculations.WithLabelValues(string(scoreType), "error").Inc()
		logger.Error("failed to store customer score", "person_id", in.personID, "score_type", scoreType, "error", err)
		return nil, fmt.Errorf("store score: %w", err)
	}

	metrics.ScoreCalculations.WithLabelValues(string(scoreType), "ok").Inc()
	logger.Debug("score_calculated", "person_id", in.personID, "score_type", scoreType, "value", value)
	return &score, nil
}

func (s *ScoringService) compute(ctx context.Context, in *personInputs, scoreType domain.ScoreType, now time.Time) (float64, domain.ScoreMetadata, error) {
	var meta domain.ScoreMetadata

	if scoreType == domain.ScoreNPS {
		responses, err := in.loadNPS(ctx)
		if err != nil {
			return 0, meta, err
		}
		value, details := NPS(responses)
		meta.NPS = &details
		return value, meta, nil
	}

	activity, err := in.loadActivity(ctx)
	if err != nil {
		return 0, meta, err
	}

	switch scoreType {
	case domain.ScoreEngagement:
		value, details := Engagement(activity, now)
		meta.Engagement = &details
		return value, meta, nil
	case domain.ScoreCLV:
		value, tier, details := CLV(activity, now)
		meta.Tier = tier
		meta.CLV = &details
		return value, meta, nil
	case domain.ScoreChurnRisk:
		value, level, details := ChurnRisk(activity, now)
		meta.RiskLevel = level
		meta.Churn = &details
		return value, meta, nil
	}
	return 0, meta, domain.NewValidationError("score_type", fmt.Sprintf("unsupported score type %q", scoreType))
}

// RecalculateAll recomputes the given score types (all when empty) for
// every known person. A failing person is recorded in the summary and the
// batch moves on.
func (s *ScoringService) RecalculateAll(ctx context.Context, types []domain.ScoreType) (domain.BatchSummary, error) {
	summary := domain.BatchSummary{Job: "score_recalculation"}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("context error: %w", err)
	}
	if len(types) == 0 {
		types = domain.ScoreTypes
	}
	for _, t := range types {
		if !t.Valid() {
			return summary, domain.NewValidationError("score_type", fmt.Sprintf("unsupported score type %q", t))
		}
	}

	start := time.Now()
	defer func() {
		metrics.BatchJobDuration.WithLabelValues(summary.Job).Observe(time.Since(start).Seconds())
	}()

	persons, err := s.persons.ListPersons(ctx)
	if err != nil {
		return summary, fmt.Errorf("list persons: %w", err)
	}

	for _, p := range persons {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("context error: %w", err)
		}
		in := &personInputs{svc: s, personID: p.ID}
		var failed error
		for _, t := range types {
			if _, err := s.calculate(ctx, in, t); err != nil {
				failed = errors.Join(failed, fmt.Errorf("%s: %w", t, err))
			}
		}
		summary.Processed++
		if failed != nil {
			summary.Fail(p.ID, failed)
			metrics.BatchJobItems.WithLabelValues(summary.Job, "error").Inc()
			logger.Warn("score recalculation failed for person", "person_id", p.ID, "error", failed)
			continue
		}
		metrics.BatchJobItems.WithLabelValues(summary.Job, "ok").Inc()
	}

	logger.Info("score recalculation finished", "processed", summary.Processed, "errors", summary.Errors)
	return summary, nil
}

type NPSInput struct {
	PersonID    string     `json:"person_id" validate:"required"`
	Rating      int        `json:"rating" validate:"gte=0,lte=10"`
	Scale       int        `json:"scale" validate:"omitempty,oneof=5 10"`
	Comment     string     `json:"comment"`
	RespondedAt *time.Time `json:"responded_at"`
}

// RecordNPSResponse stores a survey answer and refreshes the person's NPS.
func (s *ScoringService) RecordNPSResponse(ctx context.Context, in NPSInput) (*domain.CustomerScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	personID, err := validatePerson(in.PersonID)
	if err != nil {
		return nil, err
	}
	if in.Scale == 0 {
		in.Scale = 10
	}
	if in.Scale != 5 && in.Scale != 10 {
		return nil, domain.NewValidationError("scale", "must be 5 or 10")
	}
	if in.Rating < 0 || in.Rating > in.Scale {
		return nil, domain.NewValidationError("rating", fmt.Sprintf("must be between 0 and %d", in.Scale))
	}

	respondedAt := s.now().UTC()
	if in.RespondedAt != nil && !in.RespondedAt.IsZero() {
		respondedAt = in.RespondedAt.UTC()
	}
	resp := &domain.NPSResponse{
		ID:          uuid.New(),
		PersonID:    personID,
		Rating:      in.Rating,
		Scale:       in.Scale,
		Comment:     strings.TrimSpace(in.Comment),
		RespondedAt: respondedAt,
	}
	if err := s.nps.Create(ctx, resp); err != nil {
		logger.Error("failed to store nps response", "person_id", personID, "error", err)
		return nil, fmt.Errorf("store nps response: %w", err)
	}

	return s.CalculateScore(ctx, personID, domain.ScoreNPS)
}

func (s *ScoringService) GetScore(ctx context.Context, personID string, scoreType domain.ScoreType) (domain.CustomerScore, error) {
	if err := ctx.Err(); err != nil {
		return domain.CustomerScore{}, fmt.Errorf("context error: %w", err)
	}
	if !scoreType.Valid() {
		return domain.CustomerScore{}, domain.NewValidationError("score_type", fmt.Sprintf("unsupported score type %q", scoreType))
	}
	return s.scores.FindByPersonAndType(ctx, personID, scoreType)
}

func (s *ScoringService) ListScores(ctx context.Context, filter domain.ScoreFilter, params domain.ListParams) (domain.Page[domain.CustomerScore], error) {
	if err := ctx.Err(); err != nil {
		return domain.Page[domain.CustomerScore]{}, fmt.Errorf("context error: %w", err)
	}
	if filter.ScoreType != "" && !filter.ScoreType.Valid() {
		return domain.Page[domain.CustomerScore]{}, domain.NewValidationError("score_type", fmt.Sprintf("unsupported score type %q", filter.ScoreType))
	}
	params = params.Normalize()

	items, total, err := s.scores.List(ctx, filter, params)
	if err != nil {
		logger.Error("failed to list scores", err)
		return domain.Page[domain.CustomerScore]{}, err
	}
	return domain.Page[domain.CustomerScore]{Items: items, Total: total, Offset: params.Offset, Limit: params.Limit}, nil
}

func (s *ScoringService) DeleteScore(ctx context.Context, personID string, scoreType domain.ScoreType) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if !scoreType.Valid() {
		return domain.NewValidationError("score_type", fmt.Sprintf("unsupported score type %q", scoreType))
	}
	return s.scores.Delete(ctx, personID, scoreType)
}
