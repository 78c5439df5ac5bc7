//go:build !integration

package postgres

import (
	"context"
	"errors"
	"testing"

	"myGreenInsight/domain"

	"github.com/google/uuid"
)

func TestExperimentRepository_VariantsAndCounters(t *testing.T) {
	ctx := context.Background()
	repo := NewExperimentRepository(newTestDB(t))

	expID := uuid.New()
	exp := &domain.ABExperiment{
		ID:            expID,
		Name:          "checkout button",
		Status:        domain.ExperimentDraft,
		PrimaryMetric: "conversion_rate",
		Variants: []domain.ExperimentVariant{
			{ID: uuid.New(), ExperimentID: expID, Name: "treatment", Position: 1},
			{ID: uuid.New(), ExperimentID: expID, Name: "control", IsControl: true, Position: 0},
		},
	}
	if err := repo.Create(ctx, exp); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FindByID(ctx, expID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Variants) != 2 || got.Variants[0].Name != "control" {
		t.Fatalf("variants not ordered by position: %+v", got.Variants)
	}

	treatment := got.Variants[1]
	for i := 0; i < 3; i++ {
		if err := repo.IncrementVariant(ctx, treatment.ID, 1, 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.IncrementVariant(ctx, treatment.ID, 0, 1); err != nil {
		t.Fatal(err)
	}
	if err := repo.IncrementVariant(ctx, uuid.New(), 1, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown variant: %v", err)
	}

	got.Status = domain.ExperimentRunning
	got.StartedAt = &day0
	if err := repo.Update(ctx, &got); err != nil {
		t.Fatal(err)
	}

	got, err = repo.FindByID(ctx, expID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.ExperimentRunning || got.StartedAt == nil {
		t.Fatalf("status not updated: %+v", got)
	}
	if got.Variants[1].Samples != 3 || got.Variants[1].Conversions != 1 {
		t.Fatalf("counters = %d/%d", got.Variants[1].Samples, got.Variants[1].Conversions)
	}

	items, total, err := repo.List(ctx, domain.ListParams{})
	if err != nil || total != 1 || len(items[0].Variants) != 2 {
		t.Fatalf("List total=%d err=%v", total, err)
	}

	if err := repo.Delete(ctx, expID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.FindByID(ctx, expID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
