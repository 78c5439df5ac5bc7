package domain

import (
	"time"

	"github.com/google/uuid"
)

type ResolutionMethod string

const (
	ResolutionExactUTMMatch  ResolutionMethod = "exact_utm_match"
	ResolutionFuzzyNameMatch ResolutionMethod = "fuzzy_name_match"
	ResolutionManual         ResolutionMethod = "manual"
	ResolutionUnresolved     ResolutionMethod = "unresolved"
)

// CampaignAttribution is unique per analytics session; re-resolution
// updates the row in place.
type CampaignAttribution struct {
	ID                   uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID            string           `gorm:"column:session_id;not null;uniqueIndex" json:"session_id"`
	VisitorID            string           `gorm:"column:visitor_id;index" json:"visitor_id"`
	UTMSource            string           `gorm:"column:utm_source" json:"utm_source,omitempty"`
	UTMMedium            string           `gorm:"column:utm_medium" json:"utm_medium,omitempty"`
	UTMCampaign          string           `gorm:"column:utm_campaign" json:"utm_campaign,omitempty"`
	UTMTerm              string           `gorm:"column:utm_term" json:"utm_term,omitempty"`
	UTMContent           string           `gorm:"column:utm_content" json:"utm_content,omitempty"`
	CampaignID           string           `gorm:"column:campaign_id;index" json:"campaign_id,omitempty"`
	IsResolved           bool             `gorm:"column:is_resolved;not null" json:"is_resolved"`
	ResolutionConfidence float64          `gorm:"column:resolution_confidence;not null" json:"resolution_confidence"`
	ResolutionMethod     ResolutionMethod `gorm:"column:resolution_method;not null" json:"resolution_method"`
	Platform             Platform         `gorm:"column:platform;not null" json:"platform"`
	CreatedAt            time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (CampaignAttribution) TableName() string {
	return "campaign_attributions"
}

// CampaignResolution is the resolver's verdict. An unresolved result is a
// valid outcome, not an error.
type CampaignResolution struct {
	CampaignID  *string          `json:"campaign_id"`
	Confidence  float64          `json:"confidence"`
	Method      ResolutionMethod `json:"method"`
	Platform    Platform         `json:"platform"`
	MatchedName string           `json:"matched_name,omitempty"`
}

func (r CampaignResolution) Resolved() bool {
	return r.CampaignID != nil && r.Method != ResolutionUnresolved
}
