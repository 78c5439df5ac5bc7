// Package stats holds the pure numeric helpers behind experiment analysis:
// two-proportion z-test, normal-CDF p-values, Wilson intervals, lift and
// sample sizing. Degenerate inputs (zero samples, rates outside [0,1])
// yield neutral values instead of errors.
package stats

import "math"

// Abramowitz–Stegun 7.1.26 coefficients for erf.
const (
	asA1 = 0.254829592
	asA2 = -0.284496736
	asA3 = 1.421413741
	asA4 = -1.453152027
	asA5 = 1.061405429
	asP  = 0.3275911
)

type SignificanceLevel string

const (
	SignificanceHigh   SignificanceLevel = "high"
	SignificanceMedium SignificanceLevel = "medium"
	SignificanceLow    SignificanceLevel = "low"
	SignificanceNone   SignificanceLevel = "none"
)

type Significance struct {
	Level       SignificanceLevel `json:"level"`
	Confident   bool              `json:"confident"`
	Description string            `json:"description"`
}

type Interval struct {
	Rate  float64 `json:"rate"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Level float64 `json:"level"`
}

type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
	DirectionNeutral  Direction = "neutral"
)

type LiftResult struct {
	Lift        float64   `json:"lift"`
	LiftPercent float64   `json:"lift_percent"`
	Direction   Direction `json:"direction"`
}

// Rate is conversions/samples, 0 when samples is 0.
func Rate(conversions, samples int64) float64 {
	if samples <= 0 {
		return 0
	}
	return float64(conversions) / float64(samples)
}

// ZScore runs a pooled two-proportion z-test of B against A. A positive
// value means B converts better.
func ZScore(convA, nA, convB, nB int64) float64 {
	if nA <= 0 || nB <= 0 {
		return 0
	}
	pA := Rate(convA, nA)
	pB := Rate(convB, nB)
	pooled := float64(convA+convB) / float64(nA+nB)

	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(nA) + 1/float64(nB)))
	if se == 0 || math.IsNaN(se) {
		return 0
	}
	return (pB - pA) / se
}

// erf approximates the error function (max abs error 1.5e-7).
func erf(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1
		x = -x
	}
	t := 1 / (1 + asP*x)
	y := 1 - (((((asA5*t+asA4)*t)+asA3)*t+asA2)*t+asA1)*t*math.Exp(-x*x)
	return sign * y
}

// NormalCDF is the standard normal cumulative distribution.
func NormalCDF(x float64) float64 {
	return 0.5 * (1 + erf(x/math.Sqrt2))
}

// PValue is the two-tailed p-value for z.
func PValue(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	p := 2 * (1 - NormalCDF(math.Abs(z)))
	return clamp(p, 0, 1)
}

func SignificanceFor(p float64) Significance {
	switch {
	case p <= 0.01:
		return Significance{Level: SignificanceHigh, Confident: true, Description: "99% confident the difference is real"}
	case p <= 0.05:
		return Significance{Level: SignificanceMedium, Confident: true, Description: "95% confident the difference is real"}
	case p <= 0.1:
		return Significance{Level: SignificanceLow, Confident: false, Description: "90% confident; more data recommended"}
	default:
		return Significance{Level: SignificanceNone, Confident: false, Description: "not statistically significant"}
	}
}

// ZForConfidence returns the two-sided critical value for a confidence
// level such as 0.95.
func ZForConfidence(level float64) float64 {
	if level <= 0 || level >= 1 {
		level = 0.95
	}
	return InverseNormalCDF(1 - (1-level)/2)
}

// InverseNormalCDF is the standard normal quantile function.
func InverseNormalCDF(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	if p >= 1 {
		return math.Inf(1)
	}
	return math.Sqrt2 * math.Erfinv(2*p-1)
}

// ConfidenceInterval is the Wilson score interval for a proportion.
func ConfidenceInterval(conversions, samples int64, level float64) Interval {
	if level <= 0 || level >= 1 {
		level = 0.95
	}
	if samples <= 0 {
		return Interval{Level: level}
	}
	if conversions < 0 {
		conversions = 0
	}
	if conversions > samples {
		conversions = samples
	}

	n := float64(samples)
	p := float64(conversions) / n
	z := ZForConfidence(level)
	z2 := z * z

	denom := 1 + z2/n
	center := (p + z2/(2*n)) / denom
	margin := z * math.Sqrt(p*(1-p)/n+z2/(4*n*n)) / denom

	lower := clamp(center-margin, 0, 1)
	upper := clamp(center+margin, 0, 1)

	// rounding at p=0 or p=1 can push a bound past the rate
	lower = math.Min(lower, p)
	upper = math.Max(upper, p)

	return Interval{Rate: p, Lower: lower, Upper: upper, Level: level}
}

// Lift compares the treatment rate with the control rate. Lift is the
// absolute difference; LiftPercent is relative to control and 0 when the
// control rate is 0.
func Lift(controlRate, treatmentRate float64) LiftResult {
	diff := treatmentRate - controlRate
	res := LiftResult{Lift: diff, Direction: DirectionNeutral}
	if controlRate > 0 {
		res.LiftPercent = diff / controlRate * 100
	}
	switch {
	case diff > 0:
		res.Direction = DirectionPositive
	case diff < 0:
		res.Direction = DirectionNegative
	}
	return res
}

// RequiredSampleSize returns the per-variant sample size needed to detect a
// relative lift of mde over baseline with the given two-sided alpha and
// power. Returns 0 when the inputs cannot produce a meaningful size.
func RequiredSampleSize(baseline, mde, alpha, power float64) int64 {
	if baseline <= 0 || baseline >= 1 || mde <= 0 {
		return 0
	}
	if alpha <= 0 || alpha >= 1 || power <= 0 || power >= 1 {
		return 0
	}
	p1 := baseline
	p2 := baseline * (1 + mde)
	if p2 >= 1 {
		return 0
	}

	zAlpha := InverseNormalCDF(1 - alpha/2)
	zBeta := InverseNormalCDF(power)
	pBar := (p1 + p2) / 2

	num := zAlpha*math.Sqrt(2*pBar*(1-pBar)) + zBeta*math.Sqrt(p1*(1-p1)+p2*(1-p2))
	delta := p2 - p1
	return int64(math.Ceil(num * num / (delta * delta)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
