package publish

import (
	"sort"

	"myGreenInsight/domain"
)

const (
	ReasonRetryGoogle = "meta succeeded, google failed"
	ReasonRetryMeta   = "google succeeded, meta failed"
	ReasonRetryBoth   = "no single failed platform identified"
)

type RetryPlan struct {
	Platforms []domain.Platform `json:"platforms"`
	Reason    string            `json:"reason"`
}

func (p RetryPlan) Includes(platform domain.Platform) bool {
	for _, pl := range p.Platforms {
		if pl == platform {
			return true
		}
	}
	return false
}

var retryBoth = RetryPlan{
	Platforms: []domain.Platform{domain.PlatformMeta, domain.PlatformGoogle},
	Reason:    ReasonRetryBoth,
}

// PlanRetry looks at the two most recent results only. A single platform is
// retried when exactly one meta and one google result are present and just
// one of them failed. Anything else retries both.
func PlanRetry(results []domain.PublishResult) RetryPlan {
	if len(results) < 2 {
		return clonePlan(retryBoth)
	}

	recent := make([]domain.PublishResult, len(results))
	copy(recent, results)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].PublishedAt.After(recent[j].PublishedAt)
	})
	recent = recent[:2]

	var meta, google *domain.PublishResult
	for i := range recent {
		switch recent[i].Platform {
		case domain.PlatformMeta:
			meta = &recent[i]
		case domain.PlatformGoogle:
			google = &recent[i]
		}
	}
	if meta == nil || google == nil {
		return clonePlan(retryBoth)
	}

	switch {
	case meta.Success && !google.Success:
		return RetryPlan{Platforms: []domain.Platform{domain.PlatformGoogle}, Reason: ReasonRetryGoogle}
	case !meta.Success && google.Success:
		return RetryPlan{Platforms: []domain.Platform{domain.PlatformMeta}, Reason: ReasonRetryMeta}
	}
	return clonePlan(retryBoth)
}

func clonePlan(p RetryPlan) RetryPlan {
	return RetryPlan{Platforms: append([]domain.Platform(nil), p.Platforms...), Reason: p.Reason}
}
