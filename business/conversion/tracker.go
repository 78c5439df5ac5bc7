package conversion

import (
	"context"
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

const (
	defaultCurrency = "USD"

	reportedCampaignKey = "reported_campaign_id"
)

type ConversionRepository interface {
	Create(ctx context.Context, c *domain.Conversion) error
	FindByID(ctx context.Context, id uuid.UUID) (domain.Conversion, error)
	List(ctx context.Context, filter domain.ConversionFilter, params domain.ListParams) ([]domain.Conversion, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type GoalRepository interface {
	Create(ctx context.Context, g *domain.ConversionGoal) error
	List(ctx context.Context, params domain.ListParams) ([]domain.ConversionGoal, int64, error)
	// IncrementMatching bumps every active goal of the given type whose
	// website is unset or equal to websiteID and returns how many matched.
	IncrementMatching(ctx context.Context, goalType domain.ConversionType, websiteID string, value float64) (int64, error)
}

// AttributionLookup returns the resolved attribution for a session, or nil.
type AttributionLookup interface {
	ResolvedForSession(ctx context.Context, sessionID string) (*domain.CampaignAttribution, error)
}

type JourneySink interface {
	RecordEvent(ctx context.Context, ev *domain.CustomerJourneyEvent) error
}

type TrackInput struct {
	ConversionType     domain.ConversionType `json:"conversion_type" validate:"required"`
	VisitorID          string                `json:"visitor_id" validate:"required"`
	SessionID          string                `json:"session_id"`
	PersonID           string                `json:"person_id"`
	WebsiteID          string                `json:"website_id"`
	Value              *float64              `json:"value" validate:"omitempty,gte=0"`
	Currency           string                `json:"currency" validate:"omitempty,len=3"`
	OrderID            string                `json:"order_id"`
	UTMSource          string                `json:"utm_source"`
	UTMMedium          string                `json:"utm_medium"`
	UTMCampaign        string                `json:"utm_campaign"`
	UTMTerm            string                `json:"utm_term"`
	UTMContent         string                `json:"utm_content"`
	// ReportedCampaignID is what the client claims. It is kept in metadata
	// only; the conversion's campaign comes from the session attribution.
	ReportedCampaignID string                `json:"campaign_id"`
	AdSetID            string                `json:"ad_set_id"`
	AdID               string                `json:"ad_id"`
	ConvertedAt        *time.Time            `json:"converted_at"`
	Metadata           map[string]any        `json:"metadata"`
}

type TrackResult struct {
	Conversion      domain.Conversion `json:"conversion"`
	Attributed      bool              `json:"attributed"`
	GoalsUpdated    int64             `json:"goals_updated"`
	JourneyRecorded bool              `json:"journey_recorded"`
	Warnings        []string          `json:"warnings,omitempty"`
}

type trackState struct {
	input      TrackInput
	conversion domain.Conversion
	result     TrackResult
	warnings   []string
}

// PostWriteHook runs right after the conversion row is written. A failure
// removes the row again.
type PostWriteHook func(ctx context.Context, c *domain.Conversion) error

type TrackerOption func(*Tracker)

func WithPostWriteHook(h PostWriteHook) TrackerOption {
	return func(t *Tracker) { t.postWrite = h }
}

func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

type Tracker struct {
	conversions  ConversionRepository
	goals        GoalRepository
	attributions AttributionLookup
	journey      JourneySink
	postWrite    PostWriteHook
	now          func() time.Time
}

func NewTracker(conversions ConversionRepository, goals GoalRepository, attributions AttributionLookup, journey JourneySink, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		conversions:  conversions,
		goals:        goals,
		attributions: attributions,
		journey:      journey,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track records a conversion. Only the write of the conversion itself can
// fail the call; goal counters and the journey event are best-effort.
func (t *Tracker) Track(ctx context.Context, in TrackInput) (*TrackResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	ctx, span := tracing.Start(ctx, "conversion.track",
		attribute.String("conversion_type", string(in.ConversionType)),
		attribute.String("visitor_id", in.VisitorID),
	)
	defer span.End()

	st := &trackState{input: in, conversion: t.buildConversion(in)}

	steps := []step{
		{name: "attach_attribution", bestEffort: true, run: t.attachAttribution},
		{name: "persist", run: t.persist, rollback: t.removeConversion},
		{name: "increment_goals", bestEffort: true, run: t.incrementGoals},
		{name: "append_journey", bestEffort: true, run: t.appendJourney},
	}
	if err := runPipeline(ctx, st, steps); err != nil {
		logger.Error("failed to track conversion", "visitor_id", in.VisitorID, "error", err)
		return nil, err
	}

	metrics.ConversionsTracked.WithLabelValues(string(st.conversion.ConversionType), string(st.conversion.Platform)).Inc()
	logger.Debug("conversion_tracked",
		"conversion_id", st.conversion.ID,
		"type", st.conversion.ConversionType,
		"campaign_id", st.conversion.CampaignID,
		"goals_updated", st.result.GoalsUpdated,
	)

	st.result.Conversion = st.conversion
	st.result.Warnings = st.warnings
	return &st.result, nil
}

func validateInput(in *TrackInput) error {
	in.ConversionType = domain.ConversionType(strings.TrimSpace(string(in.ConversionType)))
	if !in.ConversionType.Valid() {
		return domain.NewValidationError("conversion_type", fmt.Sprintf("unsupported conversion type %q", in.ConversionType))
	}
	in.VisitorID = strings.TrimSpace(in.VisitorID)
	if in.VisitorID == "" {
		return domain.NewValidationError("visitor_id", "is required")
	}
	if in.Value != nil && *in.Value < 0 {
		return domain.NewValidationError("value", "must not be negative")
	}
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = defaultCurrency
	}
	if len(in.Currency) != 3 {
		return domain.NewValidationError("currency", "must be a 3-letter code")
	}
	return nil
}

func (t *Tracker) buildConversion(in TrackInput) domain.Conversion {
	convertedAt := t.now().UTC()
	if in.ConvertedAt != nil && !in.ConvertedAt.IsZero() {
		convertedAt = in.ConvertedAt.UTC()
	}
	c := domain.Conversion{
		ID:             uuid.New(),
		ConversionType: in.ConversionType,
		VisitorID:      in.VisitorID,
		SessionID:      in.SessionID,
		PersonID:       in.PersonID,
		WebsiteID:      in.WebsiteID,
		Value:          in.Value,
		Currency:       in.Currency,
		OrderID:        in.OrderID,
		UTMSource:      in.UTMSource,
		UTMMedium:      in.UTMMedium,
		UTMCampaign:    in.UTMCampaign,
		UTMTerm:        in.UTMTerm,
		UTMContent:     in.UTMContent,
		AdSetID:        in.AdSetID,
		AdID:           in.AdID,
		ConvertedAt:    convertedAt,
	}
	reported := strings.TrimSpace(in.ReportedCampaignID)
	if len(in.Metadata) > 0 || reported != "" {
		c.Metadata = datatypes.JSONMap{}
		for k, v := range in.Metadata {
			c.Metadata[k] = v
		}
		if reported != "" {
			c.Metadata[reportedCampaignKey] = reported
		}
	}
	return c
}

func (t *Tracker) attachAttribution(ctx context.Context, st *trackState) error {
	c := &st.conversion
	if c.SessionID != "" && t.attributions != nil {
		attr, err := t.attributions.ResolvedForSession(ctx, c.SessionID)
		if err != nil {
			c.Platform = domain.PlatformFromSource(c.UTMSource)
			return err
		}
		if attr != nil {
			c.CampaignID = attr.CampaignID
			fillEmpty(&c.UTMSource, attr.UTMSource)
			fillEmpty(&c.UTMMedium, attr.UTMMedium)
			fillEmpty(&c.UTMCampaign, attr.UTMCampaign)
			fillEmpty(&c.UTMTerm, attr.UTMTerm)
			fillEmpty(&c.UTMContent, attr.UTMContent)
			st.result.Attributed = true
		}
	}
	// platform is fixed at creation and never re-derived
	c.Platform = domain.PlatformFromSource(c.UTMSource)
	return nil
}

func fillEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func (t *Tracker) persist(ctx context.Context, st *trackState) error {
	if err := t.conversions.Create(ctx, &st.conversion); err != nil {
		return err
	}
	if t.postWrite != nil {
		if err := t.postWrite(ctx, &st.conversion); err != nil {
			if rbErr := t.removeConversion(context.WithoutCancel(ctx), st); rbErr != nil {
				logger.Error("conversion rollback failed", "conversion_id", st.conversion.ID, "error", rbErr)
			}
			return fmt.Errorf("post-write hook: %w", err)
		}
	}
	return nil
}

func (t *Tracker) removeConversion(ctx context.Context, st *trackState) error {
	return t.conversions.Delete(ctx, st.conversion.ID)
}

func (t *Tracker) incrementGoals(ctx context.Context, st *trackState) error {
	if t.goals == nil {
		return nil
	}
	n, err := t.goals.IncrementMatching(ctx, st.conversion.ConversionType, st.conversion.WebsiteID, st.conversion.Amount())
	if err != nil {
		return err
	}
	st.result.GoalsUpdated = n
	return nil
}

func (t *Tracker) appendJourney(ctx context.Context, st *trackState) error {
	c := st.conversion
	if c.PersonID == "" || t.journey == nil {
		return nil
	}

	data := datatypes.JSONMap{
		"conversion_id": c.ID.String(),
		"currency":      c.Currency,
	}
	if c.Value != nil {
		data["value"] = *c.Value
	}
	if c.CampaignID != "" {
		data["campaign_id"] = c.CampaignID
	}
	if c.OrderID != "" {
		data["order_id"] = c.OrderID
	}

	ev := &domain.CustomerJourneyEvent{
		PersonID:   c.PersonID,
		EventType:  string(c.ConversionType),
		Stage:      domain.StageForEvent(string(c.ConversionType)),
		Channel:    channelFor(c),
		WebsiteID:  c.WebsiteID,
		EventData:  data,
		OccurredAt: c.ConvertedAt,
	}
	if err := t.journey.RecordEvent(ctx, ev); err != nil {
		return err
	}
	st.result.JourneyRecorded = true
	return nil
}

func channelFor(c domain.Conversion) string {
	if c.UTMMedium != "" {
		return c.UTMMedium
	}
	return string(c.Platform)
}
