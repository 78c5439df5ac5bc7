package scoring

import (
	"math"
	"testing"
	"time"

	"myGreenInsight/domain"
)

var now = time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

func ago(days int) time.Time { return now.Add(-time.Duration(days) * day) }

func purchase(days int, value float64) domain.Conversion {
	return domain.Conversion{ConversionType: domain.ConversionPurchase, Value: &value, ConvertedAt: ago(days)}
}

func events(n, days int, channel string) []domain.CustomerJourneyEvent {
	out := make([]domain.CustomerJourneyEvent, n)
	for i := range out {
		out[i] = domain.CustomerJourneyEvent{EventType: "page_view", Channel: channel, OccurredAt: ago(days)}
	}
	return out
}

func TestNPS(t *testing.T) {
	resp := []domain.NPSResponse{
		{Rating: 10, Scale: 10, RespondedAt: ago(4)},
		{Rating: 9, Scale: 10, RespondedAt: ago(3)},
		{Rating: 8, Scale: 10, RespondedAt: ago(2)},
		{Rating: 3, Scale: 10, RespondedAt: ago(1)},
	}
	score, d := NPS(resp)
	if score != 25 {
		t.Fatalf("score = %v, want 25", score)
	}
	if d.Promoters != 2 || d.Passives != 1 || d.Detractors != 1 || d.Total != 4 || d.LatestBucket != "detractor" {
		t.Fatalf("unexpected details %+v", d)
	}
}

func TestNPS_FivePointScale(t *testing.T) {
	cases := []struct {
		rating int
		bucket string
	}{
		{5, "promoter"},
		{4, "passive"},
		{3, "detractor"},
	}
	for _, tc := range cases {
		_, d := NPS([]domain.NPSResponse{{Rating: tc.rating, Scale: 5}})
		if d.LatestBucket != tc.bucket {
			t.Errorf("rating %d/5 bucket = %s, want %s", tc.rating, d.LatestBucket, tc.bucket)
		}
	}
}

func TestNPS_NoResponses(t *testing.T) {
	score, d := NPS(nil)
	if score != 0 || !d.InsufficientData {
		t.Fatalf("got %v %+v", score, d)
	}
}

func TestEngagement(t *testing.T) {
	a := Activity{
		Events:      append(events(5, 2, "email"), events(3, 60, "social")...),
		Conversions: []domain.Conversion{purchase(10, 50)},
	}
	score, d := Engagement(a, now)
	if score != 51.5 {
		t.Fatalf("score = %v, want 51.5 (%+v)", score, d)
	}
	if d.Events30d != 5 || d.Events90d != 8 || d.Channels != 2 || d.Conversions90d != 1 {
		t.Fatalf("unexpected details %+v", d)
	}
	if d.DaysSinceLastActivity == nil || *d.DaysSinceLastActivity != 2 {
		t.Fatalf("days since last activity = %v", d.DaysSinceLastActivity)
	}
}

func TestEngagement_BoundedAndEmpty(t *testing.T) {
	if score, _ := Engagement(Activity{}, now); score != 0 {
		t.Fatalf("empty activity score = %v", score)
	}

	var convs []domain.Conversion
	for i := 0; i < 20; i++ {
		convs = append(convs, purchase(1, 10))
	}
	a := Activity{
		Events:      append(append(events(40, 0, "a"), events(10, 1, "b")...), append(events(5, 3, "c"), events(5, 4, "d")...)...),
		Conversions: convs,
	}
	if score, _ := Engagement(a, now); score != 100 {
		t.Fatalf("score = %v, want capped 100", score)
	}
}

func TestCLV(t *testing.T) {
	a := Activity{Conversions: []domain.Conversion{
		purchase(130, 100), purchase(100, 100), purchase(70, 100), purchase(40, 100), purchase(10, 100),
		{ConversionType: domain.ConversionAddToCart, ConvertedAt: ago(1)},
	}}
	value, tier, d := CLV(a, now)
	if d.PurchaseCount != 5 || d.TotalRevenue != 500 || d.AverageOrderValue != 100 {
		t.Fatalf("unexpected aggregates %+v", d)
	}
	if d.AdjustedLifespanMonths != 36 || d.Confidence != "high" {
		t.Fatalf("unexpected lifespan/confidence %+v", d)
	}
	// 120 day span is 4 months, so 5 purchases give 1.25 per month
	if d.LifespanDays != 120 || d.PurchaseFrequency != 1.25 {
		t.Fatalf("lifespan days = %v frequency = %v", d.LifespanDays, d.PurchaseFrequency)
	}
	if math.Abs(value-4500) > 0.01 || tier != TierBronze {
		t.Fatalf("value = %v tier = %s", value, tier)
	}
	if math.Abs(d.RemainingCLV-4000) > 0.01 {
		t.Fatalf("remaining = %v", d.RemainingCLV)
	}
	if d.AvgDaysBetweenPurchases != 30 {
		t.Fatalf("avg days between = %v", d.AvgDaysBetweenPurchases)
	}
}

func TestCLV_Lifespans(t *testing.T) {
	cases := []struct {
		name     string
		days     int
		lifespan float64
	}{
		{"recent", 30, 36},
		{"baseline", 120, 24},
		{"lapsed", 200, 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, d := CLV(Activity{Conversions: []domain.Conversion{purchase(tc.days, 1000)}}, now)
			if d.AdjustedLifespanMonths != tc.lifespan {
				t.Fatalf("lifespan = %v, want %v", d.AdjustedLifespanMonths, tc.lifespan)
			}
			if d.Confidence != "low" {
				t.Fatalf("confidence = %s", d.Confidence)
			}
		})
	}
}

func TestCLV_SinglePurchaseCountsOneMonth(t *testing.T) {
	value, tier, d := CLV(Activity{Conversions: []domain.Conversion{purchase(30, 1000)}}, now)
	if d.LifespanDays != 0 || d.PurchaseFrequency != 1 {
		t.Fatalf("lifespan days = %v frequency = %v", d.LifespanDays, d.PurchaseFrequency)
	}
	if value != 36000 || tier != TierGold {
		t.Fatalf("value = %v tier = %s", value, tier)
	}
}

func TestCLV_RemainingNeverNegative(t *testing.T) {
	// lapsed buyer with a 200 day span: 2 / (200/30) = 0.3 per month over 6 months
	value, tier, d := CLV(Activity{Conversions: []domain.Conversion{purchase(400, 15000), purchase(200, 15000)}}, now)
	if math.Abs(value-27000) > 1 || tier != TierGold {
		t.Fatalf("value = %v tier = %s", value, tier)
	}
	if d.RemainingCLV != 0 {
		t.Fatalf("remaining = %v, want 0", d.RemainingCLV)
	}
}

func TestCLV_NoPurchases(t *testing.T) {
	value, tier, d := CLV(Activity{}, now)
	if value != 0 || tier != TierBronze || d.Confidence != "low" || d.FirstPurchaseAt != nil {
		t.Fatalf("got %v %s %+v", value, tier, d)
	}
}

func TestCLVTier(t *testing.T) {
	cases := map[float64]string{
		50000: TierPlatinum,
		49999: TierGold,
		20000: TierGold,
		5000:  TierSilver,
		4999:  TierBronze,
	}
	for v, want := range cases {
		if got := clvTier(v); got != want {
			t.Errorf("clvTier(%v) = %s, want %s", v, got, want)
		}
	}
}

func TestChurnRisk(t *testing.T) {
	cases := []struct {
		name  string
		a     Activity
		score float64
		level string
	}{
		{"no activity", Activity{}, 100, RiskCritical},
		{"very active", Activity{Events: events(12, 1, "web")}, 0, RiskLow},
		{"lapsed", Activity{Events: events(4, 100, "web")}, 85, RiskCritical},
		{
			"declining",
			Activity{Events: append(events(1, 20, "web"), events(10, 50, "web")...)},
			53, RiskHigh,
		},
		{
			"quiet but steady",
			Activity{Events: append(events(3, 20, "web"), events(4, 45, "web")...)},
			32, RiskMedium,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, level, d := ChurnRisk(tc.a, now)
			if score != tc.score || level != tc.level {
				t.Fatalf("got %v/%s, want %v/%s (%+v)", score, level, tc.score, tc.level, d)
			}
			if score < 0 || score > 100 {
				t.Fatalf("score out of range: %v", score)
			}
		})
	}
}

func TestPushHistory_Capped(t *testing.T) {
	var h []domain.ScoreHistoryEntry
	for i := 0; i < 15; i++ {
		h = pushHistory(h, domain.ScoreHistoryEntry{Value: float64(i), CalculatedAt: ago(100 - i)})
	}
	if len(h) != domain.MaxScoreHistory {
		t.Fatalf("len = %d, want %d", len(h), domain.MaxScoreHistory)
	}
	if h[0].Value != 3 || h[len(h)-1].Value != 14 {
		t.Fatalf("kept wrong entries: first=%v last=%v", h[0].Value, h[len(h)-1].Value)
	}
}
