package experiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"myGreenInsight/business/stats"
	"myGreenInsight/domain"

	"github.com/google/uuid"
)

func variant(name string, control bool, samples, conversions int64) domain.ExperimentVariant {
	return domain.ExperimentVariant{ID: uuid.New(), Name: name, IsControl: control, Samples: samples, Conversions: conversions}
}

func TestAnalyze_Inconclusive(t *testing.T) {
	exp := domain.ABExperiment{
		ID:       uuid.New(),
		Variants: []domain.ExperimentVariant{variant("A", true, 1000, 50), variant("B", false, 1000, 60)},
	}
	res := Analyze(exp, 0.1, 0.8)

	if res.Winner != Inconclusive {
		t.Fatalf("winner = %s, want inconclusive", res.Winner)
	}
	if len(res.Comparisons) != 1 {
		t.Fatalf("comparisons = %d", len(res.Comparisons))
	}
	cmp := res.Comparisons[0]
	if cmp.Lift.Direction != "positive" || cmp.Significance.Confident {
		t.Fatalf("unexpected comparison %+v", cmp)
	}
	if res.RequiredSampleSize <= 1000 || res.SampleSizeReached {
		t.Fatalf("sample size = %d reached = %v", res.RequiredSampleSize, res.SampleSizeReached)
	}
	for _, v := range res.Variants {
		ci := v.ConfidenceInterval
		if ci.Lower > v.ConversionRate || ci.Upper < v.ConversionRate {
			t.Fatalf("interval %+v does not contain rate %v", ci, v.ConversionRate)
		}
	}
}

func TestAnalyze_PositiveLiftWithoutSignificance(t *testing.T) {
	exp := domain.ABExperiment{
		ID:       uuid.New(),
		Variants: []domain.ExperimentVariant{variant("control", true, 1000, 50), variant("variant", false, 1000, 60)},
	}
	res := Analyze(exp, 0.1, 0.8)
	cmp := res.Comparisons[0]

	if cmp.Lift.Direction != stats.DirectionPositive {
		t.Fatalf("direction = %s, want positive", cmp.Lift.Direction)
	}
	if math.Abs(cmp.Lift.Lift-0.01) > 1e-9 || math.Abs(cmp.Lift.LiftPercent-20) > 1e-9 {
		t.Fatalf("lift = %+v", cmp.Lift)
	}
	if math.Abs(cmp.ZScore-0.981) > 0.01 || math.Abs(cmp.PValue-0.327) > 0.01 {
		t.Fatalf("z = %v p = %v, want ~0.98 / ~0.33", cmp.ZScore, cmp.PValue)
	}
	if cmp.Significance.Confident || cmp.Significance.Level != stats.SignificanceNone {
		t.Fatalf("significance = %+v", cmp.Significance)
	}
	if res.Winner != Inconclusive {
		t.Fatalf("winner = %s, want %s even though lift is positive", res.Winner, Inconclusive)
	}
}

func TestAnalyze_TreatmentWins(t *testing.T) {
	exp := domain.ABExperiment{
		ID:       uuid.New(),
		Variants: []domain.ExperimentVariant{variant("control", true, 5000, 250), variant("new-checkout", false, 5000, 350)},
	}
	res := Analyze(exp, 0.1, 0.8)
	if res.Winner != "new-checkout" {
		t.Fatalf("winner = %s (%+v)", res.Winner, res.Comparisons)
	}
	if res.Comparisons[0].PValue > 0.05 {
		t.Fatalf("p = %v", res.Comparisons[0].PValue)
	}
}

func TestAnalyze_ControlWins(t *testing.T) {
	exp := domain.ABExperiment{
		ID:       uuid.New(),
		Variants: []domain.ExperimentVariant{variant("B", false, 5000, 200), variant("A", true, 5000, 320)},
	}
	res := Analyze(exp, 0.1, 0.8)
	if res.Control != "A" || res.Winner != "A" {
		t.Fatalf("control = %s winner = %s", res.Control, res.Winner)
	}
}

func TestAnalyze_ZeroSamples(t *testing.T) {
	exp := domain.ABExperiment{
		ID:       uuid.New(),
		Variants: []domain.ExperimentVariant{variant("A", true, 0, 0), variant("B", false, 0, 0)},
	}
	res := Analyze(exp, 0.1, 0.8)
	if res.Winner != Inconclusive || res.RequiredSampleSize != 0 {
		t.Fatalf("unexpected %+v", res)
	}
	if res.Comparisons[0].ZScore != 0 || res.Comparisons[0].PValue < 0.999 {
		t.Fatalf("zero samples must be neutral: %+v", res.Comparisons[0])
	}

	if empty := Analyze(domain.ABExperiment{}, 0.1, 0.8); empty.Winner != Inconclusive {
		t.Fatalf("no variants: %+v", empty)
	}
}

type fakeExperiments struct {
	rows map[uuid.UUID]domain.ABExperiment
}

func (f *fakeExperiments) Create(_ context.Context, e *domain.ABExperiment) error {
	f.rows[e.ID] = *e
	return nil
}

func (f *fakeExperiments) FindByID(_ context.Context, id uuid.UUID) (domain.ABExperiment, error) {
	e, ok := f.rows[id]
	if !ok {
		return domain.ABExperiment{}, domain.NotFoundError("experiment", id.String())
	}
	return e, nil
}

func (f *fakeExperiments) List(context.Context, domain.ListParams) ([]domain.ABExperiment, int64, error) {
	return nil, 0, nil
}

func (f *fakeExperiments) Update(_ context.Context, e *domain.ABExperiment) error {
	f.rows[e.ID] = *e
	return nil
}

func (f *fakeExperiments) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeExperiments) IncrementVariant(_ context.Context, vid uuid.UUID, samples, conversions int64) error {
	for id, e := range f.rows {
		for i := range e.Variants {
			if e.Variants[i].ID == vid {
				e.Variants[i].Samples += samples
				e.Variants[i].Conversions += conversions
				f.rows[id] = e
				return nil
			}
		}
	}
	return domain.NotFoundError("variant", vid.String())
}

func newExperimentFixture() (*ExperimentService, *fakeExperiments) {
	repo := &fakeExperiments{rows: map[uuid.UUID]domain.ABExperiment{}}
	svc := NewExperimentService(repo, 0.1, 0.8)
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestCreateExperiment(t *testing.T) {
	svc, _ := newExperimentFixture()
	ctx := context.Background()

	exp, err := svc.CreateExperiment(ctx, ExperimentInput{Name: "Hero", Variants: []VariantInput{{Name: "A"}, {Name: "B"}}})
	if err != nil {
		t.Fatal(err)
	}
	if exp.Status != domain.ExperimentDraft || !exp.Variants[0].IsControl || exp.PrimaryMetric != defaultPrimaryMetric {
		t.Fatalf("unexpected defaults %+v", exp)
	}

	bad := []ExperimentInput{
		{Name: "x", Variants: []VariantInput{{Name: "A"}}},
		{Name: "x", Variants: []VariantInput{{Name: "A"}, {Name: "A"}}},
		{Name: "x", Variants: []VariantInput{{Name: "A", IsControl: true}, {Name: "B", IsControl: true}}},
		{Name: " ", Variants: []VariantInput{{Name: "A"}, {Name: "B"}}},
	}
	for _, in := range bad {
		if _, err := svc.CreateExperiment(ctx, in); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("CreateExperiment(%+v) err = %v", in, err)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	svc, _ := newExperimentFixture()
	ctx := context.Background()
	exp, _ := svc.CreateExperiment(ctx, ExperimentInput{Name: "Hero", Variants: []VariantInput{{Name: "A"}, {Name: "B"}}})

	if _, err := svc.UpdateExperiment(ctx, exp.ID, ExperimentUpdate{Status: domain.ExperimentCompleted}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("draft → completed must be rejected, got %v", err)
	}
	running, err := svc.UpdateExperiment(ctx, exp.ID, ExperimentUpdate{Status: domain.ExperimentRunning})
	if err != nil || running.StartedAt == nil {
		t.Fatalf("start: %+v %v", running, err)
	}
	done, err := svc.UpdateExperiment(ctx, exp.ID, ExperimentUpdate{Status: domain.ExperimentCompleted})
	if err != nil || done.EndedAt == nil {
		t.Fatalf("complete: %+v %v", done, err)
	}
	if _, err := svc.UpdateExperiment(ctx, exp.ID, ExperimentUpdate{Status: domain.ExperimentRunning}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("completed is terminal, got %v", err)
	}
}

func TestAssignVariant_DeterministicAndSpread(t *testing.T) {
	svc, _ := newExperimentFixture()
	ctx := context.Background()
	exp, _ := svc.CreateExperiment(ctx, ExperimentInput{Name: "Hero", Variants: []VariantInput{{Name: "A"}, {Name: "B"}}})

	if _, err := svc.AssignVariant(ctx, exp.ID, "v1"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("draft experiments do not assign, got %v", err)
	}
	if _, err := svc.UpdateExperiment(ctx, exp.ID, ExperimentUpdate{Status: domain.ExperimentRunning}); err != nil {
		t.Fatal(err)
	}

	counts := map[string]int{}
	for i := 0; i < 1000; i++ {
		visitor := fmt.Sprintf("visitor-%d", i)
		first, err := svc.AssignVariant(ctx, exp.ID, visitor)
		if err != nil {
			t.Fatal(err)
		}
		again, _ := svc.AssignVariant(ctx, exp.ID, visitor)
		if first.Name != again.Name {
			t.Fatalf("assignment for %s is not stable", visitor)
		}
		counts[first.Name]++
	}
	if counts["A"] < 400 || counts["B"] < 400 {
		t.Fatalf("assignment badly skewed: %v", counts)
	}
}

func TestRecordExposureAndConversion(t *testing.T) {
	svc, repo := newExperimentFixture()
	ctx := context.Background()
	exp, _ := svc.CreateExperiment(ctx, ExperimentInput{Name: "Hero", Variants: []VariantInput{{Name: "A"}, {Name: "B"}}})
	_, _ = svc.UpdateExperiment(ctx, exp.ID, ExperimentUpdate{Status: domain.ExperimentRunning})

	v, err := svc.RecordExposure(ctx, exp.ID, "visitor-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordConversion(ctx, exp.ID, "visitor-1"); err != nil {
		t.Fatal(err)
	}

	var stored domain.ExperimentVariant
	for _, sv := range repo.rows[exp.ID].Variants {
		if sv.ID == v.ID {
			stored = sv
		}
	}
	if stored.Samples != 1 || stored.Conversions != 1 {
		t.Fatalf("counters = %d/%d", stored.Samples, stored.Conversions)
	}

	res, err := svc.Results(ctx, exp.ID)
	if err != nil || res.Winner != Inconclusive {
		t.Fatalf("results: %+v %v", res, err)
	}
}
