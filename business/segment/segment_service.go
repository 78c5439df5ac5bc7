package segment

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

type SegmentRepository interface {
	Create(ctx context.Context, seg *domain.CustomerSegment) error
	FindByID(ctx context.Context, id uuid.UUID) (domain.CustomerSegment, error)
	List(ctx context.Context, params domain.ListParams) ([]domain.CustomerSegment, int64, error)
	ListAutoUpdate(ctx context.Context) ([]domain.CustomerSegment, error)
	Update(ctx context.Context, seg *domain.CustomerSegment) error
	UpdateStats(ctx context.Context, id uuid.UUID, count int64, calculatedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type MemberRepository interface {
	ListMemberIDs(ctx context.Context, segmentID uuid.UUID) ([]string, error)
	ListMembers(ctx context.Context, segmentID uuid.UUID, params domain.ListParams) ([]domain.SegmentMember, int64, error)
	AddMembers(ctx context.Context, segmentID uuid.UUID, personIDs []string, addedAt time.Time) error
	RemoveMembers(ctx context.Context, segmentID uuid.UUID, personIDs []string) error
}

type PersonDirectory interface {
	GetPerson(ctx context.Context, personID string) (domain.Person, error)
	ListPersons(ctx context.Context) ([]domain.Person, error)
}

type ScoreReader interface {
	ListByPerson(ctx context.Context, personID string) ([]domain.CustomerScore, error)
}

type ConversionReader interface {
	ListByPerson(ctx context.Context, personID string) ([]domain.Conversion, error)
}

type SegmentService struct {
	segments    SegmentRepository
	members     MemberRepository
	persons     PersonDirectory
	scores      ScoreReader
	conversions ConversionReader
	now         func() time.Time
}

func NewSegmentService(segments SegmentRepository, members MemberRepository, persons PersonDirectory, scores ScoreReader, conversions ConversionReader) *SegmentService {
	return &SegmentService{
		segments:    segments,
		members:     members,
		persons:     persons,
		scores:      scores,
		conversions: conversions,
		now:         time.Now,
	}
}

type SegmentInput struct {
	Name        string                 `json:"name" validate:"required"`
	Description string                 `json:"description"`
	Criteria    domain.SegmentCriteria `json:"criteria"`
	IsActive    *bool                  `json:"is_active"`
	AutoUpdate  *bool                  `json:"auto_update"`
}

func (in SegmentInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.NewValidationError("name", "is required")
	}
	return in.Criteria.Validate()
}

func (s *SegmentService) CreateSegment(ctx context.Context, in SegmentInput) (*domain.CustomerSegment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.Criteria.Logic == "" {
		in.Criteria.Logic = domain.LogicAnd
	}

	seg := &domain.CustomerSegment{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Criteria:    datatypes.NewJSONType(in.Criteria),
		IsActive:    boolOr(in.IsActive, true),
		AutoUpdate:  boolOr(in.AutoUpdate, true),
	}
	if err := s.segments.Create(ctx, seg); err != nil {
		logger.Error("failed to create segment", "name", seg.Name, "error", err)
		return nil, fmt.Errorf("failed to create segment: %w", err)
	}
	logger.Info("segment created", "segment_id", seg.ID, "name", seg.Name)
	return seg, nil
}

func (s *SegmentService) UpdateSegment(ctx context.Context, id uuid.UUID, in SegmentInput) (*domain.CustomerSegment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.Criteria.Logic == "" {
		in.Criteria.Logic = domain.LogicAnd
	}

	seg, err := s.segments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	seg.Name = strings.TrimSpace(in.Name)
	seg.Description = in.Description
	seg.Criteria = datatypes.NewJSONType(in.Criteria)
	seg.IsActive = boolOr(in.IsActive, seg.IsActive)
	seg.AutoUpdate = boolOr(in.AutoUpdate, seg.AutoUpdate)

	if err := s.segments.Update(ctx, &seg); err != nil {
		logger.Error("failed to update segment", "segment_id", id, "error", err)
		return nil, fmt.Errorf("failed to update segment: %w", err)
	}
	return &seg, nil
}

func (s *SegmentService) GetSegment(ctx context.Context, id uuid.UUID) (domain.CustomerSegment, error) {
	if err := ctx.Err(); err != nil {
		return domain.CustomerSegment{}, fmt.Errorf("context error: %w", err)
	}
	return s.segments.FindByID(ctx, id)
}

func (s *SegmentService) ListSegments(ctx context.Context, params domain.ListParams) (domain.Page[domain.CustomerSegment], error) {
	if err := ctx.Err(); err != nil {
		return domain.Page[domain.CustomerSegment]{}, fmt.Errorf("context error: %w", err)
	}
	params = params.Normalize()
	items, total, err := s.segments.List(ctx, params)
	if err != nil {
		return domain.Page[domain.CustomerSegment]{}, err
	}
	return domain.Page[domain.CustomerSegment]{Items: items, Total: total, Offset: params.Offset, Limit: params.Limit}, nil
}

func (s *SegmentService) ListMembers(ctx context.Context, id uuid.UUID, params domain.ListParams) (domain.Page[domain.SegmentMember], error) {
	if err := ctx.Err(); err != nil {
		return domain.Page[domain.SegmentMember]{}, fmt.Errorf("context error: %w", err)
	}
	if _, err := s.segments.FindByID(ctx, id); err != nil {
		return domain.Page[domain.SegmentMember]{}, err
	}
	params = params.Normalize()
	items, total, err := s.members.ListMembers(ctx, id, params)
	if err != nil {
		return domain.Page[domain.SegmentMember]{}, err
	}
	return domain.Page[domain.SegmentMember]{Items: items, Total: total, Offset: params.Offset, Limit: params.Limit}, nil
}

func (s *SegmentService) DeleteSegment(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if err := s.segments.Delete(ctx, id); err != nil {
		logger.Error("failed to delete segment", "segment_id", id, "error", err)
		return err
	}
	logger.Info("segment deleted", "segment_id", id)
	return nil
}

// Build re-evaluates a segment against every person and reconciles the
// stored membership with the result. People whose snapshot could not be
// built keep their current membership.
func (s *SegmentService) Build(ctx context.Context, id uuid.UUID) (domain.SegmentBuildResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.SegmentBuildResult{}, fmt.Errorf("context error: %w", err)
	}
	ctx, span := tracing.Start(ctx, "segment.build", attribute.String("segment_id", id.String()))
	defer span.End()

	seg, err := s.segments.FindByID(ctx, id)
	if err != nil {
		return domain.SegmentBuildResult{}, err
	}
	criteria := seg.Criteria.Data()
	if err := criteria.Validate(); err != nil {
		return domain.SegmentBuildResult{}, fmt.Errorf("segment %s has invalid criteria: %w", id, err)
	}

	persons, err := s.persons.ListPersons(ctx)
	if err != nil {
		return domain.SegmentBuildResult{}, fmt.Errorf("list persons: %w", err)
	}
	current, err := s.members.ListMemberIDs(ctx, id)
	if err != nil {
		return domain.SegmentBuildResult{}, fmt.Errorf("list members: %w", err)
	}

	now := s.now().UTC()
	res := domain.SegmentBuildResult{SegmentID: id, CalculatedAt: now}

	matched := make(map[string]struct{}, len(persons))
	skipped := make(map[string]struct{})
	for _, p := range persons {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("context error: %w", err)
		}
		snap, err := s.snapshot(ctx, p, now)
		if err != nil {
			res.SnapshotErrs++
			skipped[p.ID] = struct{}{}
			logger.Warn("segment snapshot failed", "segment_id", id, "person_id", p.ID, "error", err)
			continue
		}
		res.Evaluated++
		if Evaluate(criteria, snap) {
			matched[p.ID] = struct{}{}
		}
	}
	res.Matched = len(matched)

	existing := make(map[string]struct{}, len(current))
	for _, pid := range current {
		existing[pid] = struct{}{}
	}

	var toAdd, toRemove []string
	for pid := range matched {
		if _, ok := existing[pid]; !ok {
			toAdd = append(toAdd, pid)
		}
	}
	for pid := range existing {
		if _, ok := matched[pid]; ok {
			continue
		}
		if _, ok := skipped[pid]; ok {
			continue
		}
		toRemove = append(toRemove, pid)
	}

	if len(toAdd) > 0 {
		if err := s.members.AddMembers(ctx, id, toAdd, now); err != nil {
			return res, fmt.Errorf("add members: %w", err)
		}
	}
	if len(toRemove) > 0 {
		if err := s.members.RemoveMembers(ctx, id, toRemove); err != nil {
			return res, fmt.Errorf("remove members: %w", err)
		}
	}
	res.Added = len(toAdd)
	res.Removed = len(toRemove)
	res.CustomerCount = int64(len(existing) + res.Added - res.Removed)

	if err := s.segments.UpdateStats(ctx, id, res.CustomerCount, now); err != nil {
		return res, fmt.Errorf("update segment stats: %w", err)
	}

	metrics.SegmentMembershipChanges.WithLabelValues("added").Add(float64(res.Added))
	metrics.SegmentMembershipChanges.WithLabelValues("removed").Add(float64(res.Removed))
	logger.Info("segment built",
		"segment_id", id,
		"evaluated", res.Evaluated,
		"matched", res.Matched,
		"added", res.Added,
		"removed", res.Removed,
	)
	return res, nil
}

func (s *SegmentService) snapshot(ctx context.Context, p domain.Person, now time.Time) (domain.CustomerSnapshot, error) {
	scores, err := s.scores.ListByPerson(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	conversions, err := s.conversions.ListByPerson(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load conversions: %w", err)
	}
	return BuildSnapshot(p, scores, conversions, now), nil
}

type PersonMatch struct {
	SegmentID uuid.UUID               `json:"segment_id"`
	PersonID  string                  `json:"person_id"`
	Matched   bool                    `json:"matched"`
	Snapshot  domain.CustomerSnapshot `json:"snapshot"`
}

// EvaluatePerson runs a segment's criteria against one person without
// touching stored membership.
func (s *SegmentService) EvaluatePerson(ctx context.Context, id uuid.UUID, personID string) (*PersonMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	seg, err := s.segments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.persons.GetPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx, p, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return &PersonMatch{
		SegmentID: id,
		PersonID:  p.ID,
		Matched:   Evaluate(seg.Criteria.Data(), snap),
		Snapshot:  snap,
	}, nil
}

// BuildAll rebuilds every active auto-updating segment. One failing
// segment does not stop the others.
func (s *SegmentService) BuildAll(ctx context.Context) (domain.BatchSummary, error) {
	summary := domain.BatchSummary{Job: "segment_rebuild"}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("context error: %w", err)
	}

	start := time.Now()
	defer func() {
		metrics.BatchJobDuration.WithLabelValues(summary.Job).Observe(time.Since(start).Seconds())
	}()

	segments, err := s.segments.ListAutoUpdate(ctx)
	if err != nil {
		return summary, fmt.Errorf("list segments: %w", err)
	}

	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("context error: %w", err)
		}
		summary.Processed++
		if _, err := s.Build(ctx, seg.ID); err != nil {
			if errors.Is(err, context.Canceled) {
				return summary, err
			}
			summary.Fail(seg.ID.String(), err)
			metrics.BatchJobItems.WithLabelValues(summary.Job, "error").Inc()
			logger.Warn("segment rebuild failed", "segment_id", seg.ID, "error", err)
			continue
		}
		metrics.BatchJobItems.WithLabelValues(summary.Job, "ok").Inc()
	}

	logger.Info("segment rebuild finished", "processed", summary.Processed, "errors", summary.Errors)
	return summary, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
