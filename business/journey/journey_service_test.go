package journey

import (
	"context"
	"errors"
	"testing"
	"time"

	"myGreenInsight/domain"

	"github.com/google/uuid"
)

type fakeEvents struct {
	events    []domain.CustomerJourneyEvent
	appendErr error
	listErr   error
	lastQuery domain.JourneyFilter
}

func (f *fakeEvents) Append(_ context.Context, ev *domain.CustomerJourneyEvent) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.events = append(f.events, *ev)
	return nil
}

func (f *fakeEvents) ListEvents(_ context.Context, filter domain.JourneyFilter) ([]domain.CustomerJourneyEvent, error) {
	f.lastQuery = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.CustomerJourneyEvent
	for _, ev := range f.events {
		if filter.PersonID != "" && ev.PersonID != filter.PersonID {
			continue
		}
		if filter.WebsiteID != "" && ev.WebsiteID != filter.WebsiteID {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

type fakeConversions struct {
	byPerson map[string][]domain.Conversion
}

func (f *fakeConversions) ListByPerson(_ context.Context, personID string) ([]domain.Conversion, error) {
	return f.byPerson[personID], nil
}

type fakeSentiments struct {
	records []domain.SentimentRecord
	err     error
}

func (f *fakeSentiments) ListSentiments(_ context.Context, personID string) ([]domain.SentimentRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.SentimentRecord
	for _, r := range f.records {
		if r.PersonID == personID {
			out = append(out, r)
		}
	}
	return out, nil
}

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(hours int) time.Time {
	return base.Add(time.Duration(hours) * time.Hour)
}

func TestRecordEvent_InfersStage(t *testing.T) {
	events := &fakeEvents{}
	svc := NewJourneyService(events, &fakeConversions{}, &fakeSentiments{})
	svc.now = func() time.Time { return base }

	ev := &domain.CustomerJourneyEvent{PersonID: "p1", EventType: "add_to_cart"}
	if err := svc.RecordEvent(context.Background(), ev); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if ev.Stage != domain.StageIntent {
		t.Fatalf("stage = %s, want intent", ev.Stage)
	}
	if ev.ID == uuid.Nil || !ev.OccurredAt.Equal(base) {
		t.Fatalf("id/occurred_at not defaulted: %+v", ev)
	}
	if len(events.events) != 1 {
		t.Fatalf("stored %d events", len(events.events))
	}
}

func TestRecordEvent_Validation(t *testing.T) {
	svc := NewJourneyService(&fakeEvents{}, &fakeConversions{}, &fakeSentiments{})

	tests := []struct {
		name string
		ev   domain.CustomerJourneyEvent
	}{
		{"missing person", domain.CustomerJourneyEvent{EventType: "page_view"}},
		{"missing type", domain.CustomerJourneyEvent{PersonID: "p1"}},
		{"bad stage", domain.CustomerJourneyEvent{PersonID: "p1", EventType: "page_view", Stage: "loyal"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := tt.ev
			err := svc.RecordEvent(context.Background(), &ev)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("err = %v, want validation", err)
			}
		})
	}
}

func TestTimeline_MergesSorted(t *testing.T) {
	value := 80.0
	events := &fakeEvents{events: []domain.CustomerJourneyEvent{
		{ID: uuid.New(), PersonID: "p1", EventType: "page_view", Stage: domain.StageAwareness, Channel: "email", OccurredAt: at(0)},
		{ID: uuid.New(), PersonID: "p1", EventType: "add_to_cart", Stage: domain.StageIntent, OccurredAt: at(5)},
		{ID: uuid.New(), PersonID: "p2", EventType: "purchase", Stage: domain.StageConversion, OccurredAt: at(1)},
	}}
	conversions := &fakeConversions{byPerson: map[string][]domain.Conversion{
		"p1": {{ID: uuid.New(), PersonID: "p1", ConversionType: domain.ConversionPurchase, Value: &value, Currency: "USD", ConvertedAt: at(6)}},
	}}
	sentiments := &fakeSentiments{records: []domain.SentimentRecord{
		{ID: uuid.New(), PersonID: "p1", Source: "survey", Sentiment: "positive", Score: 0.9, RecordedAt: at(2)},
	}}
	svc := NewJourneyService(events, conversions, sentiments)

	tl, err := svc.Timeline(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(tl.Items) != 4 {
		t.Fatalf("items = %d, want 4", len(tl.Items))
	}
	wantKinds := []TimelineKind{KindJourneyEvent, KindSentiment, KindJourneyEvent, KindConversion}
	for i, k := range wantKinds {
		if tl.Items[i].Kind != k {
			t.Fatalf("item %d kind = %s, want %s", i, tl.Items[i].Kind, k)
		}
	}
	if got := tl.Items[0].Description; got != "Page view via email" {
		t.Fatalf("description = %q", got)
	}
	if got := tl.Items[3].Description; got != "Purchase worth 80.00 USD" {
		t.Fatalf("description = %q", got)
	}
	if tl.Items[3].Stage != domain.StageConversion {
		t.Fatalf("conversion stage = %s", tl.Items[3].Stage)
	}
	if tl.CurrentStage != domain.StageIntent {
		t.Fatalf("current stage = %s, want intent", tl.CurrentStage)
	}
}

func TestTimeline_SourceFailure(t *testing.T) {
	svc := NewJourneyService(&fakeEvents{}, &fakeConversions{}, &fakeSentiments{err: errors.New("down")})
	if _, err := svc.Timeline(context.Background(), "p1"); err == nil {
		t.Fatal("expected error when a source fails")
	}
}

func TestFunnel_CountsCumulative(t *testing.T) {
	var events []domain.CustomerJourneyEvent
	add := func(person string, stage domain.JourneyStage) {
		events = append(events, domain.CustomerJourneyEvent{PersonID: person, Stage: stage, WebsiteID: "w1"})
	}
	// four people reach awareness, three interest, one converts
	add("a", domain.StageAwareness)
	add("b", domain.StageAwareness)
	add("b", domain.StageInterest)
	add("c", domain.StageInterest)
	add("d", domain.StageAwareness)
	add("d", domain.StageConversion)

	f := BuildFunnel(events)
	if f.TotalPeople != 4 {
		t.Fatalf("total = %d", f.TotalPeople)
	}
	want := []int{4, 3, 1, 1, 1, 0, 0}
	for i, w := range want {
		if f.Stages[i].Count != w {
			t.Fatalf("stage %s count = %d, want %d", f.Stages[i].Stage, f.Stages[i].Count, w)
		}
	}
	if f.LargestDropoff == nil || f.LargestDropoff.From != domain.StageInterest || f.LargestDropoff.Count != 2 {
		t.Fatalf("largest dropoff = %+v", f.LargestDropoff)
	}
	if f.ConversionRate != 25 {
		t.Fatalf("conversion rate = %v, want 25", f.ConversionRate)
	}
	rates := []float64{0, 0.25, 0.6667, 0, 0, 1, 0}
	for i, w := range rates {
		if f.Stages[i].DropoffRate != w {
			t.Fatalf("stage %s dropoff rate = %v, want %v", f.Stages[i].Stage, f.Stages[i].DropoffRate, w)
		}
	}
	if f.LargestDropoff.Rate != 0.6667 {
		t.Fatalf("largest dropoff rate = %v, want 0.6667", f.LargestDropoff.Rate)
	}
}

func TestHumanize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"page_view", "Page view"},
		{"  signup ", "Signup"},
		{"", ""},
		{"élan_vital", "Élan vital"},
		{"ñandú_seen", "Ñandú seen"},
		{"日本_visit", "日本 visit"},
	}
	for _, tc := range cases {
		if got := humanize(tc.in); got != tc.want {
			t.Errorf("humanize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFunnel_Empty(t *testing.T) {
	svc := NewJourneyService(&fakeEvents{}, &fakeConversions{}, &fakeSentiments{})
	f, err := svc.Funnel(context.Background(), FunnelQuery{WebsiteID: "w1"})
	if err != nil {
		t.Fatalf("Funnel: %v", err)
	}
	if f.TotalPeople != 0 || f.ConversionRate != 0 || f.LargestDropoff != nil {
		t.Fatalf("unexpected funnel %+v", f)
	}
}

func TestFunnel_RejectsInvertedRange(t *testing.T) {
	svc := NewJourneyService(&fakeEvents{}, &fakeConversions{}, &fakeSentiments{})
	from, to := at(10), at(0)
	_, err := svc.Funnel(context.Background(), FunnelQuery{From: &from, To: &to})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}
