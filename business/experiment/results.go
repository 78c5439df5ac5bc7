package experiment

import (
	"myGreenInsight/business/stats"
	"myGreenInsight/domain"

	"github.com/google/uuid"
)

const (
	Inconclusive      = "inconclusive"
	confidenceLevel   = 0.95
	significanceAlpha = 0.05
	defaultMDE        = 0.1
	defaultPower      = 0.8
)

type VariantResult struct {
	Name               string         `json:"name"`
	IsControl          bool           `json:"is_control"`
	Samples            int64          `json:"samples"`
	Conversions        int64          `json:"conversions"`
	ConversionRate     float64        `json:"conversion_rate"`
	ConfidenceInterval stats.Interval `json:"confidence_interval"`
}

// Comparison is one treatment measured against the control.
type Comparison struct {
	Variant      string             `json:"variant"`
	ZScore       float64            `json:"z_score"`
	PValue       float64            `json:"p_value"`
	Significance stats.Significance `json:"significance"`
	Lift         stats.LiftResult   `json:"lift"`
}

type Results struct {
	ExperimentID       uuid.UUID               `json:"experiment_id"`
	Name               string                  `json:"name"`
	Status             domain.ExperimentStatus `json:"status"`
	PrimaryMetric      string                  `json:"primary_metric"`
	Control            string                  `json:"control"`
	Variants           []VariantResult         `json:"variants"`
	Comparisons        []Comparison            `json:"comparisons"`
	RequiredSampleSize int64                   `json:"required_sample_size"`
	SampleSizeReached  bool                    `json:"sample_size_reached"`
	Winner             string                  `json:"winner"`
	Recommendation     string                  `json:"recommendation"`
}

// Analyze compares every variant with the control. A winner is only named
// when a comparison is statistically confident; otherwise the result is
// inconclusive.
func Analyze(exp domain.ABExperiment, mde, power float64) Results {
	if mde <= 0 {
		mde = defaultMDE
	}
	if power <= 0 || power >= 1 {
		power = defaultPower
	}

	res := Results{
		ExperimentID:  exp.ID,
		Name:          exp.Name,
		Status:        exp.Status,
		PrimaryMetric: exp.PrimaryMetric,
		Winner:        Inconclusive,
		Variants:      make([]VariantResult, 0, len(exp.Variants)),
		Comparisons:   []Comparison{},
	}

	control, ok := exp.Control()
	if !ok {
		res.Recommendation = "add variants before analysing"
		return res
	}
	res.Control = control.Name

	for _, v := range exp.Variants {
		res.Variants = append(res.Variants, VariantResult{
			Name:               v.Name,
			IsControl:          v.Name == control.Name,
			Samples:            v.Samples,
			Conversions:        v.Conversions,
			ConversionRate:     stats.Rate(v.Conversions, v.Samples),
			ConfidenceInterval: stats.ConfidenceInterval(v.Conversions, v.Samples, confidenceLevel),
		})
	}

	controlRate := stats.Rate(control.Conversions, control.Samples)
	res.RequiredSampleSize = stats.RequiredSampleSize(controlRate, mde, significanceAlpha, power)

	reached := res.RequiredSampleSize > 0
	var (
		bestName      string
		bestRate      float64
		controlBeaten bool
		controlWins   bool
	)
	for _, v := range exp.Variants {
		if v.Samples < res.RequiredSampleSize {
			reached = false
		}
		if v.Name == control.Name {
			continue
		}
		z := stats.ZScore(control.Conversions, control.Samples, v.Conversions, v.Samples)
		p := stats.PValue(z)
		cmp := Comparison{
			Variant:      v.Name,
			ZScore:       z,
			PValue:       p,
			Significance: stats.SignificanceFor(p),
			Lift:         stats.Lift(controlRate, stats.Rate(v.Conversions, v.Samples)),
		}
		res.Comparisons = append(res.Comparisons, cmp)

		if !cmp.Significance.Confident {
			continue
		}
		switch cmp.Lift.Direction {
		case stats.DirectionPositive:
			rate := stats.Rate(v.Conversions, v.Samples)
			if !controlBeaten || rate > bestRate {
				bestName, bestRate, controlBeaten = v.Name, rate, true
			}
		case stats.DirectionNegative:
			controlWins = true
		}
	}
	res.SampleSizeReached = reached

	switch {
	case controlBeaten:
		res.Winner = bestName
		res.Recommendation = "roll out " + bestName
	case controlWins:
		res.Winner = control.Name
		res.Recommendation = "keep " + control.Name
	case !reached:
		res.Recommendation = "keep collecting data"
	default:
		res.Recommendation = "no significant difference detected"
	}
	return res
}
