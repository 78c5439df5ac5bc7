package forecast

import (
	"context"
	"errors"
	"fmt"
	"sort"
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

type ForecastRepository interface {
	Create(ctx context.Context, f *domain.BudgetForecast) error
	FindByID(ctx context.Context, id uuid.UUID) (domain.BudgetForecast, error)
	List(ctx context.Context, params domain.ListParams) ([]domain.BudgetForecast, int64, error)
	ListAll(ctx context.Context) ([]domain.BudgetForecast, error)
	Update(ctx context.Context, f *domain.BudgetForecast) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RevenueReader sums purchase conversion values per UTC day in [from, to).
type RevenueReader interface {
	DailyPurchaseRevenue(ctx context.Context, from, to time.Time, campaignID string) (map[string]float64, error)
}

type ForecastService struct {
	repo    ForecastRepository
	revenue RevenueReader
	now     func() time.Time
}

func NewForecastService(repo ForecastRepository, revenue RevenueReader) *ForecastService {
	return &ForecastService{repo: repo, revenue: revenue, now: time.Now}
}

type ForecastInput struct {
	AdCampaignID     string                 `json:"ad_campaign_id"`
	ForecastDate     *time.Time             `json:"forecast_date"`
	PeriodStart      *time.Time             `json:"period_start"`
	PeriodEnd        *time.Time             `json:"period_end"`
	PredictedSpend   float64                `json:"predicted_spend" validate:"gte=0"`
	PredictedRevenue *float64               `json:"predicted_revenue" validate:"omitempty,gte=0"`
	ActualSpend      *float64               `json:"actual_spend" validate:"omitempty,gte=0"`
	DailyForecasts   []domain.DailyForecast `json:"daily_forecasts"`
	Model            string                 `json:"model"`
}

func (in ForecastInput) validate() error {
	if in.PredictedSpend < 0 {
		return domain.NewValidationError("predicted_spend", "must not be negative")
	}
	if in.PredictedRevenue != nil && *in.PredictedRevenue < 0 {
		return domain.NewValidationError("predicted_revenue", "must not be negative")
	}
	if in.PeriodStart != nil && in.PeriodEnd != nil && in.PeriodEnd.Before(*in.PeriodStart) {
		return domain.NewValidationError("period_end", "must not be before period_start")
	}
	seen := map[string]bool{}
	for i, d := range in.DailyForecasts {
		if _, err := time.Parse(domain.DateLayout, d.Date); err != nil {
			return domain.NewValidationError(fmt.Sprintf("daily_forecasts[%d].date", i), "must be YYYY-MM-DD")
		}
		if seen[d.Date] {
			return domain.NewValidationError(fmt.Sprintf("daily_forecasts[%d].date", i), "duplicate date")
		}
		seen[d.Date] = true
	}
	return nil
}

func (in ForecastInput) apply(f *domain.BudgetForecast, now time.Time) {
	f.AdCampaignID = strings.TrimSpace(in.AdCampaignID)
	f.ForecastDate = now
	if in.ForecastDate != nil && !in.ForecastDate.IsZero() {
		f.ForecastDate = in.ForecastDate.UTC()
	}
	f.PeriodStart = in.PeriodStart
	f.PeriodEnd = in.PeriodEnd
	f.PredictedSpend = in.PredictedSpend
	f.ActualSpend = in.ActualSpend

	daily := append([]domain.DailyForecast(nil), in.DailyForecasts...)
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })

	if in.PredictedRevenue != nil {
		f.PredictedRevenue = *in.PredictedRevenue
	} else {
		var sum float64
		for _, d := range daily {
			sum += d.Predicted
		}
		f.PredictedRevenue = round2(sum)
	}
	f.Metadata = datatypes.NewJSONType(domain.ForecastMetadata{DailyForecasts: daily, Model: in.Model})
}

func (s *ForecastService) CreateForecast(ctx context.Context, in ForecastInput) (*domain.BudgetForecast, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	f := &domain.BudgetForecast{ID: uuid.New()}
	in.apply(f, s.now().UTC())

	if err := s.repo.Create(ctx, f); err != nil {
		logger.Error("failed to create forecast", err)
		return nil, fmt.Errorf("failed to create forecast: %w", err)
	}
	return f, nil
}

// UpdateForecast replaces the forecast inputs. Previous accuracy results
// are cleared because they no longer describe the stored prediction.
func (s *ForecastService) UpdateForecast(ctx context.Context, id uuid.UUID, in ForecastInput) (*domain.BudgetForecast, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	forecastDate := f.ForecastDate
	in.apply(&f, forecastDate)
	f.ActualRevenue, f.ComparedForecast, f.Accuracy, f.MAPE, f.AnalyzedAt = nil, nil, nil, nil, nil
	f.ComparedDays = 0

	if err := s.repo.Update(ctx, &f); err != nil {
		logger.Error("failed to update forecast", "forecast_id", id, "error", err)
		return nil, fmt.Errorf("failed to update forecast: %w", err)
	}
	return &f, nil
}

func (s *ForecastService) GetForecast(ctx context.Context, id uuid.UUID) (domain.BudgetForecast, error) {
	if err := ctx.Err(); err != nil {
		return domain.BudgetForecast{}, fmt.Errorf("context error: %w", err)
	}
	return s.repo.FindByID(ctx, id)
}

func (s *ForecastService) ListForecasts(ctx context.Context, params domain.ListParams) (domain.Page[domain.BudgetForecast], error) {
	if err := ctx.Err(); err != nil {
		return domain.Page[domain.BudgetForecast]{}, fmt.Errorf("context error: %w", err)
	}
	params = params.Normalize()
	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return domain.Page[domain.BudgetForecast]{}, err
	}
	return domain.Page[domain.BudgetForecast]{Items: items, Total: total, Offset: params.Offset, Limit: params.Limit}, nil
}

func (s *ForecastService) DeleteForecast(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	return s.repo.Delete(ctx, id)
}

type AccuracyReport struct {
	ForecastID uuid.UUID `json:"forecast_id"`
	Accuracy
}

// ForecastAccuracy compares one forecast's daily predictions with the
// purchase revenue actually recorded and stores the outcome.
func (s *ForecastService) ForecastAccuracy(ctx context.Context, id uuid.UUID) (*AccuracyReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.analyze(ctx, f)
}

func (s *ForecastService) analyze(ctx context.Context, f domain.BudgetForecast) (*AccuracyReport, error) {
	ctx, span := tracing.Start(ctx, "forecast.accuracy", attribute.String("forecast_id", f.ID.String()))
	defer span.End()

	report := &AccuracyReport{ForecastID: f.ID}
	daily := f.Metadata.Data().DailyForecasts
	from, to, ok := window(f, daily)
	if !ok {
		report.Accuracy = Analyze(nil, nil)
		return report, nil
	}

	actual, err := s.revenue.DailyPurchaseRevenue(ctx, from, to, f.AdCampaignID)
	if err != nil {
		return nil, fmt.Errorf("load daily revenue: %w", err)
	}
	if actual == nil {
		actual = map[string]float64{}
	}
	// days inside the window with no purchases count as zero revenue
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(domain.DateLayout)
		if _, ok := actual[key]; !ok {
			actual[key] = 0
		}
	}

	report.Accuracy = Analyze(daily, actual)
	if !report.Comparable() {
		return report, nil
	}

	now := s.now().UTC()
	acc, mape := report.Accuracy.Accuracy, report.MAPE
	actualTotal, predictedTotal := report.ActualTotal, report.PredictedTotal
	f.Accuracy = &acc
	f.MAPE = &mape
	f.ActualRevenue = &actualTotal
	f.ComparedForecast = &predictedTotal
	f.ComparedDays = report.ComparedDays
	f.AnalyzedAt = &now

	if err := s.repo.Update(ctx, &f); err != nil {
		return nil, fmt.Errorf("store forecast accuracy: %w", err)
	}
	logger.Debug("forecast_analyzed", "forecast_id", f.ID, "mape", mape, "accuracy", acc, "days", f.ComparedDays)
	return report, nil
}

// window is the UTC day range [from, to) to pull actuals for. An explicit
// period wins over the span of the daily predictions.
func window(f domain.BudgetForecast, daily []domain.DailyForecast) (time.Time, time.Time, bool) {
	if len(daily) == 0 {
		return time.Time{}, time.Time{}, false
	}
	var first, last time.Time
	for _, d := range daily {
		t, err := time.Parse(domain.DateLayout, d.Date)
		if err != nil {
			continue
		}
		if first.IsZero() || t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}
	if first.IsZero() {
		return time.Time{}, time.Time{}, false
	}
	if f.PeriodStart != nil {
		first = truncateDay(*f.PeriodStart)
	}
	if f.PeriodEnd != nil {
		last = truncateDay(*f.PeriodEnd)
	}
	if last.Before(first) {
		return time.Time{}, time.Time{}, false
	}
	return first, last.AddDate(0, 0, 1), true
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AnalyzeAll runs the accuracy check for every forecast carrying daily
// predictions. Failures are isolated per forecast.
func (s *ForecastService) AnalyzeAll(ctx context.Context) (domain.BatchSummary, []AccuracyReport, error) {
	summary := domain.BatchSummary{Job: "forecast_accuracy"}
	if err := ctx.Err(); err != nil {
		return summary, nil, fmt.Errorf("context error: %w", err)
	}

	start := time.Now()
	defer func() {
		metrics.BatchJobDuration.WithLabelValues(summary.Job).Observe(time.Since(start).Seconds())
	}()

	forecasts, err := s.repo.ListAll(ctx)
	if err != nil {
		return summary, nil, fmt.Errorf("list forecasts: %w", err)
	}

	reports := []AccuracyReport{}
	for _, f := range forecasts {
		if len(f.Metadata.Data().DailyForecasts) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, reports, fmt.Errorf("context error: %w", err)
		}
		summary.Processed++
		report, err := s.analyze(ctx, f)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return summary, reports, err
			}
			summary.Fail(f.ID.String(), err)
			metrics.BatchJobItems.WithLabelValues(summary.Job, "error").Inc()
			logger.Warn("forecast accuracy failed", "forecast_id", f.ID, "error", err)
			continue
		}
		metrics.BatchJobItems.WithLabelValues(summary.Job, "ok").Inc()
		reports = append(reports, *report)
	}

	logger.Info("forecast accuracy finished", "processed", summary.Processed, "errors", summary.Errors)
	return summary, reports, nil
}
