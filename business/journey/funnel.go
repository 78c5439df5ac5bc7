package journey

import (
	"context"
	"fmt"
	"math"
	"time"

	"myGreenInsight/domain"
)

// StageCount carries PercentOfTop on a 0-100 scale and DropoffRate as a
// 0-1 fraction of the previous stage.
type StageCount struct {
	Stage        domain.JourneyStage `json:"stage"`
	Count        int                 `json:"count"`
	PercentOfTop float64             `json:"percent_of_top"`
	Dropoff      int                 `json:"dropoff"`
	DropoffRate  float64             `json:"dropoff_rate"`
}

type Dropoff struct {
	From  domain.JourneyStage `json:"from"`
	To    domain.JourneyStage `json:"to"`
	Count int                 `json:"count"`
	Rate  float64             `json:"rate"`
}

type Funnel struct {
	TotalPeople    int          `json:"total_people"`
	Stages         []StageCount `json:"stages"`
	LargestDropoff *Dropoff     `json:"largest_dropoff,omitempty"`
	ConversionRate float64      `json:"conversion_rate"`
}

type FunnelQuery struct {
	WebsiteID string
	From      *time.Time
	To        *time.Time
}

// Funnel places every person at the furthest stage they reached and counts
// them at that stage and every stage before it, so counts never increase
// down the funnel.
func (s *JourneyService) Funnel(ctx context.Context, q FunnelQuery) (*Funnel, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return nil, domain.NewValidationError("to", "must not be before from")
	}

	events, err := s.events.ListEvents(ctx, domain.JourneyFilter{WebsiteID: q.WebsiteID, From: q.From, To: q.To})
	if err != nil {
		return nil, fmt.Errorf("load journey events: %w", err)
	}
	f := BuildFunnel(events)
	return &f, nil
}

func BuildFunnel(events []domain.CustomerJourneyEvent) Funnel {
	highest := map[string]int{}
	for _, ev := range events {
		idx := ev.Stage.Index()
		if idx < 0 {
			idx = domain.StageForEvent(ev.EventType).Index()
		}
		if cur, ok := highest[ev.PersonID]; !ok || idx > cur {
			highest[ev.PersonID] = idx
		}
	}

	counts := make([]int, len(domain.JourneyStages))
	for _, h := range highest {
		for i := 0; i <= h; i++ {
			counts[i]++
		}
	}

	f := Funnel{TotalPeople: len(highest), Stages: make([]StageCount, len(domain.JourneyStages))}
	top := counts[0]
	for i, st := range domain.JourneyStages {
		sc := StageCount{Stage: st, Count: counts[i]}
		if top > 0 {
			sc.PercentOfTop = pct(counts[i], top)
		}
		if i > 0 {
			sc.Dropoff = counts[i-1] - counts[i]
			if counts[i-1] > 0 {
				sc.DropoffRate = ratio(sc.Dropoff, counts[i-1])
			}
			if sc.Dropoff > 0 && (f.LargestDropoff == nil || sc.Dropoff > f.LargestDropoff.Count) {
				f.LargestDropoff = &Dropoff{
					From:  domain.JourneyStages[i-1],
					To:    st,
					Count: sc.Dropoff,
					Rate:  sc.DropoffRate,
				}
			}
		}
		f.Stages[i] = sc
	}

	if top > 0 {
		f.ConversionRate = pct(counts[domain.StageConversion.Index()], top)
	}
	return f
}

// ratio is part/whole as a fraction rounded to four places.
func ratio(part, whole int) float64 {
	v := float64(part) / float64(whole)
	return math.Round(v*10000) / 10000
}

func pct(part, whole int) float64 {
	v := float64(part) / float64(whole) * 100
	return float64(int64(v*100+0.5)) / 100
}
