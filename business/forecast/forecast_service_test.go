package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"myGreenInsight/domain"

	"github.com/google/uuid"
)

type fakeForecasts struct {
	rows map[uuid.UUID]domain.BudgetForecast
}

func (f *fakeForecasts) Create(_ context.Context, fc *domain.BudgetForecast) error {
	f.rows[fc.ID] = *fc
	return nil
}

func (f *fakeForecasts) FindByID(_ context.Context, id uuid.UUID) (domain.BudgetForecast, error) {
	fc, ok := f.rows[id]
	if !ok {
		return domain.BudgetForecast{}, domain.NotFoundError("forecast", id.String())
	}
	return fc, nil
}

func (f *fakeForecasts) List(context.Context, domain.ListParams) ([]domain.BudgetForecast, int64, error) {
	return nil, 0, nil
}

func (f *fakeForecasts) ListAll(context.Context) ([]domain.BudgetForecast, error) {
	out := make([]domain.BudgetForecast, 0, len(f.rows))
	for _, fc := range f.rows {
		out = append(out, fc)
	}
	return out, nil
}

func (f *fakeForecasts) Update(_ context.Context, fc *domain.BudgetForecast) error {
	f.rows[fc.ID] = *fc
	return nil
}

func (f *fakeForecasts) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

type fakeRevenue struct {
	byDay     map[string]float64
	failFor   string
	lastFrom  time.Time
	lastTo    time.Time
	campaigns []string
}

func (f *fakeRevenue) DailyPurchaseRevenue(_ context.Context, from, to time.Time, campaignID string) (map[string]float64, error) {
	f.lastFrom, f.lastTo = from, to
	f.campaigns = append(f.campaigns, campaignID)
	if campaignID != "" && campaignID == f.failFor {
		return nil, errors.New("query canceled by statement timeout")
	}
	out := map[string]float64{}
	for d, v := range f.byDay {
		t, _ := time.Parse(domain.DateLayout, d)
		if !t.Before(from) && t.Before(to) {
			out[d] = v
		}
	}
	return out, nil
}

func newForecastFixture() (*ForecastService, *fakeForecasts, *fakeRevenue) {
	repo := &fakeForecasts{rows: map[uuid.UUID]domain.BudgetForecast{}}
	rev := &fakeRevenue{byDay: map[string]float64{
		"2024-03-01": 110,
		"2024-03-02": 90,
		"2024-03-03": 100,
		"2024-03-10": 999,
	}}
	svc := NewForecastService(repo, rev)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }
	return svc, repo, rev
}

func dailyInput(campaign string) ForecastInput {
	return ForecastInput{
		AdCampaignID:   campaign,
		PredictedSpend: 40,
		DailyForecasts: []domain.DailyForecast{
			{Date: "2024-03-02", Predicted: 100},
			{Date: "2024-03-01", Predicted: 100},
			{Date: "2024-03-03", Predicted: 100},
		},
	}
}

func TestCreateForecast(t *testing.T) {
	svc, _, _ := newForecastFixture()
	ctx := context.Background()

	f, err := svc.CreateForecast(ctx, dailyInput(""))
	if err != nil {
		t.Fatal(err)
	}
	daily := f.Metadata.Data().DailyForecasts
	if f.PredictedRevenue != 300 || daily[0].Date != "2024-03-01" {
		t.Fatalf("unexpected forecast %+v", f)
	}

	bad := dailyInput("")
	bad.DailyForecasts = append(bad.DailyForecasts, domain.DailyForecast{Date: "03/04/2024"})
	if _, err := svc.CreateForecast(ctx, bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	dup := dailyInput("")
	dup.DailyForecasts = append(dup.DailyForecasts, domain.DailyForecast{Date: "2024-03-01"})
	if _, err := svc.CreateForecast(ctx, dup); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestForecastAccuracy_WritesBack(t *testing.T) {
	svc, repo, rev := newForecastFixture()
	ctx := context.Background()

	f, _ := svc.CreateForecast(ctx, dailyInput(""))
	report, err := svc.ForecastAccuracy(ctx, f.ID)
	if err != nil {
		t.Fatal(err)
	}
	if report.ComparedDays != 3 || report.MAPE != 6.67 || report.Accuracy.Accuracy != 93.33 {
		t.Fatalf("unexpected report %+v", report)
	}
	if !rev.lastFrom.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) || !rev.lastTo.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("window = %s..%s", rev.lastFrom, rev.lastTo)
	}

	stored := repo.rows[f.ID]
	if stored.Accuracy == nil || *stored.Accuracy != 93.33 || stored.MAPE == nil || stored.AnalyzedAt == nil {
		t.Fatalf("results not stored: %+v", stored)
	}
	if stored.ActualRevenue == nil || *stored.ActualRevenue != 300 || stored.ComparedDays != 3 {
		t.Fatalf("actuals not stored: %+v", stored)
	}
}

func TestForecastAccuracy_NoComparableData(t *testing.T) {
	svc, repo, _ := newForecastFixture()
	ctx := context.Background()

	in := dailyInput("")
	// a day with no purchases counts as zero revenue, so only a zero
	// prediction leaves nothing to compare
	in.DailyForecasts = []domain.DailyForecast{{Date: "2024-02-01", Predicted: 0}}
	f, _ := svc.CreateForecast(ctx, in)

	report, err := svc.ForecastAccuracy(ctx, f.ID)
	if err != nil {
		t.Fatal(err)
	}
	if report.Message != NoComparableData || repo.rows[f.ID].AnalyzedAt != nil {
		t.Fatalf("unexpected report %+v", report)
	}

	if _, err := svc.ForecastAccuracy(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAnalyzeAll_SkipsAndIsolates(t *testing.T) {
	svc, _, rev := newForecastFixture()
	ctx := context.Background()
	rev.failFor = "broken"

	_, _ = svc.CreateForecast(ctx, dailyInput(""))
	_, _ = svc.CreateForecast(ctx, dailyInput("broken"))
	_, _ = svc.CreateForecast(ctx, ForecastInput{PredictedSpend: 10})

	summary, reports, err := svc.AnalyzeAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Processed != 2 || summary.Errors != 1 || len(reports) != 1 {
		t.Fatalf("summary = %+v reports = %d", summary, len(reports))
	}
}

func TestUpdateForecast_ClearsResults(t *testing.T) {
	svc, repo, _ := newForecastFixture()
	ctx := context.Background()

	f, _ := svc.CreateForecast(ctx, dailyInput(""))
	if _, err := svc.ForecastAccuracy(ctx, f.ID); err != nil {
		t.Fatal(err)
	}
	spend := 35.0
	in := dailyInput("")
	in.ActualSpend = &spend
	updated, err := svc.UpdateForecast(ctx, f.ID, in)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Accuracy != nil || updated.AnalyzedAt != nil || repo.rows[f.ID].ActualSpend == nil {
		t.Fatalf("unexpected %+v", updated)
	}
}
