package journey

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"myGreenInsight/domain"
	"myGreenInsight/pkg/logger"
	"myGreenInsight/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

type EventRepository interface {
	Append(ctx context.Context, ev *domain.CustomerJourneyEvent) error
	ListEvents(ctx context.Context, filter domain.JourneyFilter) ([]domain.CustomerJourneyEvent, error)
}

type ConversionReader interface {
	ListByPerson(ctx context.Context, personID string) ([]domain.Conversion, error)
}

type SentimentReader interface {
	ListSentiments(ctx context.Context, personID string) ([]domain.SentimentRecord, error)
}

type JourneyService struct {
	events      EventRepository
	conversions ConversionReader
	sentiments  SentimentReader
	now         func() time.Time
}

func NewJourneyService(events EventRepository, conversions ConversionReader, sentiments SentimentReader) *JourneyService {
	return &JourneyService{
		events:      events,
		conversions: conversions,
		sentiments:  sentiments,
		now:         time.Now,
	}
}

// RecordEvent appends an event to a person's journey. A missing stage is
// inferred from the event type.
func (s *JourneyService) RecordEvent(ctx context.Context, ev *domain.CustomerJourneyEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	ev.PersonID = strings.TrimSpace(ev.PersonID)
	if ev.PersonID == "" {
		return domain.NewValidationError("person_id", "is required")
	}
	ev.EventType = strings.TrimSpace(ev.EventType)
	if ev.EventType == "" {
		return domain.NewValidationError("event_type", "is required")
	}
	if ev.Stage == "" {
		ev.Stage = domain.StageForEvent(ev.EventType)
	}
	if !ev.Stage.Valid() {
		return domain.NewValidationError("stage", fmt.Sprintf("unsupported stage %q", ev.Stage))
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = s.now().UTC()
	}

	if err := s.events.Append(ctx, ev); err != nil {
		logger.Error("failed to append journey event", "person_id", ev.PersonID, "event_type", ev.EventType, "error", err)
		return fmt.Errorf("append journey event: %w", err)
	}
	return nil
}

type TimelineKind string

const (
	KindJourneyEvent TimelineKind = "journey_event"
	KindConversion   TimelineKind = "conversion"
	KindSentiment    TimelineKind = "sentiment"
)

type TimelineItem struct {
	Kind        TimelineKind        `json:"kind"`
	ID          string              `json:"id"`
	OccurredAt  time.Time           `json:"occurred_at"`
	Stage       domain.JourneyStage `json:"stage"`
	EventType   string              `json:"event_type"`
	Channel     string              `json:"channel,omitempty"`
	Description string              `json:"description"`
	Data        map[string]any      `json:"data,omitempty"`
}

type Timeline struct {
	PersonID     string              `json:"person_id"`
	Items        []TimelineItem      `json:"items"`
	CurrentStage domain.JourneyStage `json:"current_stage,omitempty"`
}

// Timeline merges a person's journey events, conversions and sentiment
// records into one chronological list. The three sources load in parallel.
func (s *JourneyService) Timeline(ctx context.Context, personID string) (*Timeline, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	personID = strings.TrimSpace(personID)
	if personID == "" {
		return nil, domain.NewValidationError("person_id", "is required")
	}
	ctx, span := tracing.Start(ctx, "journey.timeline", attribute.String("person_id", personID))
	defer span.End()

	var (
		events      []domain.CustomerJourneyEvent
		conversions []domain.Conversion
		sentiments  []domain.SentimentRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = s.events.ListEvents(gctx, domain.JourneyFilter{PersonID: personID})
		if err != nil {
			return fmt.Errorf("load journey events: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		conversions, err = s.conversions.ListByPerson(gctx, personID)
		if err != nil {
			return fmt.Errorf("load conversions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sentiments, err = s.sentiments.ListSentiments(gctx, personID)
		if err != nil {
			return fmt.Errorf("load sentiments: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("failed to load timeline", "person_id", personID, "error", err)
		return nil, err
	}

	return buildTimeline(personID, events, conversions, sentiments), nil
}

func buildTimeline(personID string, events []domain.CustomerJourneyEvent, conversions []domain.Conversion, sentiments []domain.SentimentRecord) *Timeline {
	items := make([]TimelineItem, 0, len(events)+len(conversions)+len(sentiments))

	highest := -1
	for _, ev := range events {
		items = append(items, TimelineItem{
			Kind:        KindJourneyEvent,
			ID:          ev.ID.String(),
			OccurredAt:  ev.OccurredAt,
			Stage:       ev.Stage,
			EventType:   ev.EventType,
			Channel:     ev.Channel,
			Description: describeEvent(ev.EventType, ev.Channel),
			Data:        ev.EventData,
		})
		if idx := ev.Stage.Index(); idx > highest {
			highest = idx
		}
	}
	for _, c := range conversions {
		data := map[string]any{"currency": c.Currency}
		if c.Value != nil {
			data["value"] = *c.Value
		}
		if c.CampaignID != "" {
			data["campaign_id"] = c.CampaignID
		}
		items = append(items, TimelineItem{
			Kind:        KindConversion,
			ID:          c.ID.String(),
			OccurredAt:  c.ConvertedAt,
			Stage:       domain.StageForEvent(string(c.ConversionType)),
			EventType:   string(c.ConversionType),
			Channel:     string(c.Platform),
			Description: describeConversion(c),
			Data:        data,
		})
	}
	for _, sr := range sentiments {
		items = append(items, TimelineItem{
			Kind:        KindSentiment,
			ID:          sr.ID.String(),
			OccurredAt:  sr.RecordedAt,
			Stage:       domain.StageRetention,
			EventType:   "sentiment",
			Channel:     sr.Source,
			Description: describeSentiment(sr),
			Data:        map[string]any{"sentiment": sr.Sentiment, "score": sr.Score},
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].OccurredAt.Before(items[j].OccurredAt)
	})

	tl := &Timeline{PersonID: personID, Items: items}
	if highest >= 0 {
		tl.CurrentStage = domain.JourneyStages[highest]
	}
	return tl
}

func humanize(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", " ")
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func describeEvent(eventType, channel string) string {
	d := humanize(eventType)
	if channel != "" {
		d += " via " + channel
	}
	return d
}

func describeConversion(c domain.Conversion) string {
	d := humanize(string(c.ConversionType))
	if c.Value != nil {
		d += fmt.Sprintf(" worth %.2f %s", *c.Value, c.Currency)
	}
	return d
}

func describeSentiment(sr domain.SentimentRecord) string {
	d := humanize(sr.Sentiment) + " sentiment"
	if sr.Source != "" {
		d += " from " + sr.Source
	}
	return d
}
