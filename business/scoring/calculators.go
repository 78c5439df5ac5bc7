package scoring

import (
	"math"
	"time"

	"myGreenInsight/domain"
)

const day = 24 * time.Hour

// CLV tiers by predicted lifetime value.
const (
	TierPlatinum = "platinum"
	TierGold     = "gold"
	TierSilver   = "silver"
	TierBronze   = "bronze"

	platinumCLV = 50000
	goldCLV     = 20000
	silverCLV   = 5000
)

// Lifespan assumptions in months.
const (
	baselineLifespanMonths = 24
	activeLifespanMonths   = 36
	lapsedLifespanMonths   = 6
	activeWithinDays       = 90
	lapsedAfterDays        = 180
)

const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// Activity is everything the engagement, CLV and churn calculators read
// for one person.
type Activity struct {
	Events      []domain.CustomerJourneyEvent
	Conversions []domain.Conversion
}

// NormalizeRating maps a rating onto the 0–10 scale. 5-point ratings are
// doubled.
func NormalizeRating(rating, scale int) int {
	if scale == 5 {
		rating *= 2
	}
	if rating < 0 {
		return 0
	}
	if rating > 10 {
		return 10
	}
	return rating
}

func npsBucket(rating int) string {
	switch {
	case rating >= 9:
		return "promoter"
	case rating >= 7:
		return "passive"
	default:
		return "detractor"
	}
}

// NPS is %promoters − %detractors over the person's responses, in
// [-100, 100]. No responses is insufficient data with a score of 0.
func NPS(responses []domain.NPSResponse) (float64, domain.NPSDetails) {
	var d domain.NPSDetails
	if len(responses) == 0 {
		d.InsufficientData = true
		return 0, d
	}

	var latest time.Time
	for _, r := range responses {
		b := npsBucket(NormalizeRating(r.Rating, r.Scale))
		switch b {
		case "promoter":
			d.Promoters++
		case "passive":
			d.Passives++
		default:
			d.Detractors++
		}
		if !r.RespondedAt.Before(latest) {
			latest = r.RespondedAt
			d.LatestBucket = b
		}
	}
	d.Total = len(responses)

	score := float64(d.Promoters-d.Detractors) / float64(d.Total) * 100
	return round2(score), d
}

// Engagement scores activity in [0, 100]: recency up to 30, frequency up
// to 30, channel diversity up to 20 and recent conversions up to 20.
func Engagement(a Activity, now time.Time) (float64, domain.EngagementDetails) {
	var d domain.EngagementDetails
	since30 := now.Add(-30 * day)
	since90 := now.Add(-90 * day)

	channels := map[string]struct{}{}
	for _, ev := range a.Events {
		if ev.OccurredAt.After(since90) {
			d.Events90d++
			if ev.Channel != "" {
				channels[ev.Channel] = struct{}{}
			}
		}
		if ev.OccurredAt.After(since30) {
			d.Events30d++
		}
	}
	for _, c := range a.Conversions {
		if c.ConvertedAt.After(since90) {
			d.Conversions90d++
		}
	}
	d.Channels = len(channels)

	if last, ok := lastActivity(a); ok {
		days := daysBetween(last, now)
		d.DaysSinceLastActivity = &days
		switch {
		case days <= 1:
			d.RecencyScore = 30
		case days <= 7:
			d.RecencyScore = 25
		case days <= 30:
			d.RecencyScore = 15
		case days <= 90:
			d.RecencyScore = 5
		}
	}

	d.FrequencyScore = math.Min(30, float64(d.Events30d)*2+float64(d.Events90d-d.Events30d)*0.5)
	d.DiversityScore = math.Min(20, float64(d.Channels)*5)
	d.ConversionScore = math.Min(20, float64(d.Conversions90d)*5)

	score := d.RecencyScore + d.FrequencyScore + d.DiversityScore + d.ConversionScore
	return round2(clamp(score, 0, 100)), d
}

// CLV predicts lifetime value from purchase conversions:
// average order value × monthly purchase frequency × expected lifespan.
// Frequency is purchases per 30 days of the first-to-last purchase span,
// with spans under a month counted as one month.
func CLV(a Activity, now time.Time) (float64, string, domain.CLVDetails) {
	var d domain.CLVDetails

	var first, last time.Time
	for _, c := range a.Conversions {
		if c.ConversionType != domain.ConversionPurchase {
			continue
		}
		d.PurchaseCount++
		d.TotalRevenue += c.Amount()
		if first.IsZero() || c.ConvertedAt.Before(first) {
			first = c.ConvertedAt
		}
		if c.ConvertedAt.After(last) {
			last = c.ConvertedAt
		}
	}
	d.Confidence = clvConfidence(d.PurchaseCount)
	if d.PurchaseCount == 0 {
		return 0, TierBronze, d
	}

	d.FirstPurchaseAt = &first
	d.LastPurchaseAt = &last
	d.TotalRevenue = round2(d.TotalRevenue)
	d.AverageOrderValue = round2(d.TotalRevenue / float64(d.PurchaseCount))
	d.LifespanDays = round2(last.Sub(first).Hours() / 24)
	if d.PurchaseCount > 1 {
		d.AvgDaysBetweenPurchases = round2(d.LifespanDays / float64(d.PurchaseCount-1))
	}
	d.DaysSinceLastPurchase = daysBetween(last, now)

	d.PurchaseFrequency = round2(float64(d.PurchaseCount) / math.Max(1, d.LifespanDays/30))

	switch {
	case d.DaysSinceLastPurchase <= activeWithinDays:
		d.AdjustedLifespanMonths = activeLifespanMonths
	case d.DaysSinceLastPurchase > lapsedAfterDays:
		d.AdjustedLifespanMonths = lapsedLifespanMonths
	default:
		d.AdjustedLifespanMonths = baselineLifespanMonths
	}

	d.PredictedCLV = round2(d.AverageOrderValue * d.PurchaseFrequency * d.AdjustedLifespanMonths)
	d.RemainingCLV = round2(math.Max(0, d.PredictedCLV-d.TotalRevenue))

	return d.PredictedCLV, clvTier(d.PredictedCLV), d
}

func clvTier(v float64) string {
	switch {
	case v >= platinumCLV:
		return TierPlatinum
	case v >= goldCLV:
		return TierGold
	case v >= silverCLV:
		return TierSilver
	default:
		return TierBronze
	}
}

func clvConfidence(purchases int) string {
	switch {
	case purchases >= 5:
		return "high"
	case purchases >= 2:
		return "medium"
	default:
		return "low"
	}
}

// ChurnRisk scores risk in [0, 100]. Recency carries up to 60 points,
// low 30-day frequency up to 25 and a drop against the prior 60 days up
// to 15. Someone with no activity at all is critical.
func ChurnRisk(a Activity, now time.Time) (float64, string, domain.ChurnDetails) {
	var d domain.ChurnDetails

	last, ok := lastActivity(a)
	if !ok {
		d.NoActivity = true
		d.RecencyRisk = 60
		d.FrequencyRisk = 25
		d.EngagementDeclineRisk = 15
		return 100, RiskCritical, d
	}

	since30 := now.Add(-30 * day)
	since90 := now.Add(-90 * day)
	for _, ev := range a.Events {
		switch {
		case ev.OccurredAt.After(since30):
			d.Events30d++
		case ev.OccurredAt.After(since90):
			d.EventsPrior60d++
		}
	}
	for _, c := range a.Conversions {
		if c.ConversionType == domain.ConversionPurchase {
			d.Purchases++
		}
	}

	d.DaysSinceLastActivity = daysBetween(last, now)
	switch days := d.DaysSinceLastActivity; {
	case days <= 7:
		d.RecencyRisk = 0
	case days <= 14:
		d.RecencyRisk = 10
	case days <= 30:
		d.RecencyRisk = 20
	case days <= 60:
		d.RecencyRisk = 35
	case days <= 90:
		d.RecencyRisk = 50
	default:
		d.RecencyRisk = 60
	}

	switch {
	case d.Events30d >= 10:
		d.FrequencyRisk = 0
	case d.Events30d >= 5:
		d.FrequencyRisk = 5
	case d.Events30d >= 2:
		d.FrequencyRisk = 12
	case d.Events30d >= 1:
		d.FrequencyRisk = 18
	default:
		d.FrequencyRisk = 25
	}

	if priorMonthly := float64(d.EventsPrior60d) / 2; priorMonthly > 0 {
		ratio := float64(d.Events30d) / priorMonthly
		switch {
		case ratio >= 1:
			d.EngagementDeclineRisk = 0
		case ratio >= 0.5:
			d.EngagementDeclineRisk = 7
		default:
			d.EngagementDeclineRisk = 15
		}
	}

	score := clamp(d.RecencyRisk+d.FrequencyRisk+d.EngagementDeclineRisk, 0, 100)
	return score, riskLevel(score), d
}

func riskLevel(score float64) string {
	switch {
	case score >= 75:
		return RiskCritical
	case score >= 50:
		return RiskHigh
	case score >= 25:
		return RiskMedium
	default:
		return RiskLow
	}
}

func lastActivity(a Activity) (time.Time, bool) {
	var last time.Time
	for _, ev := range a.Events {
		if ev.OccurredAt.After(last) {
			last = ev.OccurredAt
		}
	}
	for _, c := range a.Conversions {
		if c.ConvertedAt.After(last) {
			last = c.ConvertedAt
		}
	}
	return last, !last.IsZero()
}

func daysBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
