package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DateLayout is the key format for daily series.
const DateLayout = "2006-01-02"

type DailyForecast struct {
	Date      string  `json:"date"`
	Predicted float64 `json:"predicted"`
}

type ForecastMetadata struct {
	DailyForecasts []DailyForecast `json:"daily_forecasts"`
	Model          string          `json:"model,omitempty"`
}

type BudgetForecast struct {
	ID               uuid.UUID                            `gorm:"type:uuid;primaryKey" json:"id"`
	AdCampaignID     string                               `gorm:"column:ad_campaign_id;index" json:"ad_campaign_id,omitempty"`
	ForecastDate     time.Time                            `gorm:"column:forecast_date;not null" json:"forecast_date"`
	PeriodStart      *time.Time                           `gorm:"column:period_start" json:"period_start,omitempty"`
	PeriodEnd        *time.Time                           `gorm:"column:period_end" json:"period_end,omitempty"`
	PredictedSpend   float64                              `gorm:"column:predicted_spend;not null" json:"predicted_spend"`
	PredictedRevenue float64                              `gorm:"column:predicted_revenue" json:"predicted_revenue"`
	Metadata         datatypes.JSONType[ForecastMetadata] `gorm:"column:metadata" json:"metadata"`
	ActualSpend      *float64                             `gorm:"column:actual_spend" json:"actual_spend,omitempty"`
	ActualRevenue    *float64                             `gorm:"column:actual_revenue" json:"actual_revenue,omitempty"`
	ComparedForecast *float64                             `gorm:"column:compared_forecast" json:"compared_forecast,omitempty"`
	Accuracy         *float64                             `gorm:"column:accuracy" json:"accuracy,omitempty"`
	MAPE             *float64                             `gorm:"column:mape" json:"mape,omitempty"`
	ComparedDays     int                                  `gorm:"column:compared_days" json:"compared_days"`
	AnalyzedAt       *time.Time                           `gorm:"column:analyzed_at" json:"analyzed_at,omitempty"`
	CreatedAt        time.Time                            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time                            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (BudgetForecast) TableName() string {
	return "budget_forecasts"
}
