package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ScoreType string

const (
	ScoreNPS        ScoreType = "nps"
	ScoreEngagement ScoreType = "engagement"
	ScoreCLV        ScoreType = "clv"
	ScoreChurnRisk  ScoreType = "churn_risk"
)

var ScoreTypes = []ScoreType{ScoreNPS, ScoreEngagement, ScoreCLV, ScoreChurnRisk}

func (t ScoreType) Valid() bool {
	switch t {
	case ScoreNPS, ScoreEngagement, ScoreCLV, ScoreChurnRisk:
		return true
	}
	return false
}

// MaxScoreHistory bounds CustomerScore metadata history.
const MaxScoreHistory = 12

type ScoreHistoryEntry struct {
	Value        float64   `json:"value"`
	CalculatedAt time.Time `json:"calculated_at"`
}

type NPSDetails struct {
	Promoters        int    `json:"promoters"`
	Passives         int    `json:"passives"`
	Detractors       int    `json:"detractors"`
	Total            int    `json:"total"`
	LatestBucket     string `json:"latest_bucket,omitempty"`
	InsufficientData bool   `json:"insufficient_data,omitempty"`
}

type EngagementDetails struct {
	Events30d             int     `json:"events_30d"`
	Events90d             int     `json:"events_90d"`
	Conversions90d        int     `json:"conversions_90d"`
	Channels              int     `json:"channels"`
	DaysSinceLastActivity *int    `json:"days_since_last_activity,omitempty"`
	RecencyScore          float64 `json:"recency_score"`
	FrequencyScore        float64 `json:"frequency_score"`
	DiversityScore        float64 `json:"diversity_score"`
	ConversionScore       float64 `json:"conversion_score"`
}

type CLVDetails struct {
	PurchaseCount           int        `json:"purchase_count"`
	TotalRevenue            float64    `json:"total_revenue"`
	AverageOrderValue       float64    `json:"average_order_value"`
	PurchaseFrequency       float64    `json:"purchase_frequency"`
	AvgDaysBetweenPurchases float64    `json:"avg_days_between_purchases"`
	LifespanDays            float64    `json:"lifespan_days"`
	AdjustedLifespanMonths  float64    `json:"adjusted_lifespan_months"`
	DaysSinceLastPurchase   int        `json:"days_since_last_purchase"`
	PredictedCLV            float64    `json:"predicted_clv"`
	RemainingCLV            float64    `json:"remaining_clv"`
	Confidence              string     `json:"confidence"`
	FirstPurchaseAt         *time.Time `json:"first_purchase_at,omitempty"`
	LastPurchaseAt          *time.Time `json:"last_purchase_at,omitempty"`
}

type ChurnDetails struct {
	DaysSinceLastActivity int     `json:"days_since_last_activity"`
	Events30d             int     `json:"events_30d"`
	EventsPrior60d        int     `json:"events_prior_60d"`
	Purchases             int     `json:"purchases"`
	RecencyRisk           float64 `json:"recency_risk"`
	FrequencyRisk         float64 `json:"frequency_risk"`
	EngagementDeclineRisk float64 `json:"engagement_decline_risk"`
	NoActivity            bool    `json:"no_activity,omitempty"`
}

// ScoreMetadata keeps the per-type extras as typed sub-records; only the
// one matching the score type is set.
type ScoreMetadata struct {
	Tier       string              `json:"tier,omitempty"`
	RiskLevel  string              `json:"risk_level,omitempty"`
	NPS        *NPSDetails         `json:"nps,omitempty"`
	Engagement *EngagementDetails  `json:"engagement,omitempty"`
	CLV        *CLVDetails         `json:"clv,omitempty"`
	Churn      *ChurnDetails       `json:"churn,omitempty"`
	History    []ScoreHistoryEntry `json:"history"`
}

// CustomerScore is the current score per (person, score type).
type CustomerScore struct {
	ID           uuid.UUID                         `gorm:"type:uuid;primaryKey" json:"id"`
	PersonID     string                            `gorm:"column:person_id;not null;uniqueIndex:idx_customer_score_person_type" json:"person_id"`
	ScoreType    ScoreType                         `gorm:"column:score_type;not null;uniqueIndex:idx_customer_score_person_type" json:"score_type"`
	ScoreValue   float64                           `gorm:"column:score_value;not null" json:"score_value"`
	CalculatedAt time.Time                         `gorm:"column:calculated_at;not null" json:"calculated_at"`
	Metadata     datatypes.JSONType[ScoreMetadata] `gorm:"column:metadata" json:"metadata"`
	CreatedAt    time.Time                         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time                         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (CustomerScore) TableName() string {
	return "customer_scores"
}

type ScoreFilter struct {
	PersonID  string
	ScoreType ScoreType
}

type NPSResponse struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PersonID    string    `gorm:"column:person_id;not null;index" json:"person_id"`
	Rating      int       `gorm:"column:rating;not null" json:"rating"`
	Scale       int       `gorm:"column:scale;not null" json:"scale"`
	Comment     string    `gorm:"column:comment" json:"comment,omitempty"`
	RespondedAt time.Time `gorm:"column:responded_at;not null;index" json:"responded_at"`
}

func (NPSResponse) TableName() string {
	return "nps_responses"
}
