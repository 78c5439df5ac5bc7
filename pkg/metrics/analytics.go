package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConversionsTracked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_conversions_tracked_total",
			Help: "Conversions persisted by the tracker, by conversion type and platform.",
		},
		[]string{"conversion_type", "platform"},
	)

	ConversionEnrichmentFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_conversion_enrichment_failures_total",
			Help: "Best-effort tracker steps that failed (goal counters, journey events).",
		},
		[]string{"step"},
	)

	AttributionResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_attribution_resolutions_total",
			Help: "Campaign resolutions by method.",
		},
		[]string{"method", "platform"},
	)

	ScoreCalculations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_score_calculations_total",
			Help: "Customer score calculations by score type and outcome.",
		},
		[]string{"score_type", "outcome"},
	)

	SegmentMembershipChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_segment_membership_changes_total",
			Help: "Segment members added or removed by segment builds.",
		},
		[]string{"change"},
	)

	BatchJobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_batch_job_duration_seconds",
			Help:    "Duration of batch jobs (segment rebuild, score recalculation, forecast accuracy).",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"job"},
	)

	BatchJobItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_batch_job_items_total",
			Help: "Items processed by batch jobs, by job and outcome.",
		},
		[]string{"job", "outcome"},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			ConversionsTracked,
			ConversionEnrichmentFailures,
			AttributionResolutions,
			ScoreCalculations,
			SegmentMembershipChanges,
			BatchJobDuration,
			BatchJobItems,
		)
	})
}
