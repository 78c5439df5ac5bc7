package segment

import (
	"time"

	"myGreenInsight/domain"
)

// BuildSnapshot flattens a person, their current scores and their
// conversions into the attribute map rules are evaluated against. Fields
// with no underlying data are left out so rules on them do not match.
func BuildSnapshot(p domain.Person, scores []domain.CustomerScore, conversions []domain.Conversion, now time.Time) domain.CustomerSnapshot {
	snap := domain.CustomerSnapshot{
		"person_id":  p.ID,
		"email":      p.Email,
		"first_name": p.FirstName,
		"last_name":  p.LastName,
	}
	if !p.CreatedAt.IsZero() {
		snap["created_at"] = p.CreatedAt
		snap["days_since_signup"] = daysSince(p.CreatedAt, now)
	}
	if p.Tags != nil {
		snap["tags"] = p.Tags
	}
	if p.Metadata != nil {
		snap["metadata"] = p.Metadata
	}

	for _, s := range scores {
		meta := s.Metadata.Data()
		switch s.ScoreType {
		case domain.ScoreNPS:
			if meta.NPS == nil || !meta.NPS.InsufficientData {
				snap["nps_score"] = s.ScoreValue
			}
		case domain.ScoreEngagement:
			snap["engagement_score"] = s.ScoreValue
		case domain.ScoreCLV:
			snap["clv_score"] = s.ScoreValue
			if meta.Tier != "" {
				snap["clv_tier"] = meta.Tier
			}
		case domain.ScoreChurnRisk:
			snap["churn_risk_score"] = s.ScoreValue
			if meta.RiskLevel != "" {
				snap["churn_risk_level"] = meta.RiskLevel
			}
		}
	}

	var (
		purchases int
		revenue   float64
		last      time.Time
	)
	for _, c := range conversions {
		if c.ConversionType != domain.ConversionPurchase {
			continue
		}
		purchases++
		revenue += c.Amount()
		if c.ConvertedAt.After(last) {
			last = c.ConvertedAt
		}
	}
	snap["total_conversions"] = len(conversions)
	snap["purchase_count"] = purchases
	snap["total_revenue"] = revenue
	if purchases > 0 {
		snap["average_order_value"] = revenue / float64(purchases)
		snap["last_purchase_at"] = last
		snap["days_since_last_purchase"] = daysSince(last, now)
	}

	return snap
}

func daysSince(t, now time.Time) int {
	if now.Before(t) {
		return 0
	}
	return int(now.Sub(t).Hours() / 24)
}
