package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ConversionType string

const (
	ConversionLeadFormSubmission ConversionType = "lead_form_submission"
	ConversionAddToCart          ConversionType = "add_to_cart"
	ConversionBeginCheckout      ConversionType = "begin_checkout"
	ConversionPurchase           ConversionType = "purchase"
	ConversionPageEngagement     ConversionType = "page_engagement"
	ConversionScrollDepth        ConversionType = "scroll_depth"
	ConversionTimeOnSite         ConversionType = "time_on_site"
	ConversionCustom             ConversionType = "custom"
)

func (t ConversionType) Valid() bool {
	switch t {
	case ConversionLeadFormSubmission, ConversionAddToCart, ConversionBeginCheckout,
		ConversionPurchase, ConversionPageEngagement, ConversionScrollDepth,
		ConversionTimeOnSite, ConversionCustom:
		return true
	}
	return false
}

type Platform string

const (
	PlatformMeta    Platform = "meta"
	PlatformGoogle  Platform = "google"
	PlatformGeneric Platform = "generic"
	PlatformDirect  Platform = "direct"
)

var metaSources = []string{"facebook", "instagram", "meta"}

// PlatformFromSource classifies a utm_source by substring. An empty source
// is direct traffic.
func PlatformFromSource(source string) Platform {
	s := strings.ToLower(strings.TrimSpace(source))
	if s == "" {
		return PlatformDirect
	}
	for _, m := range metaSources {
		if strings.Contains(s, m) {
			return PlatformMeta
		}
	}
	if strings.Contains(s, "google") {
		return PlatformGoogle
	}
	return PlatformGeneric
}

type Conversion struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ConversionType ConversionType    `gorm:"column:conversion_type;not null;index" json:"conversion_type"`
	VisitorID      string            `gorm:"column:visitor_id;not null;index" json:"visitor_id"`
	SessionID      string            `gorm:"column:session_id;index" json:"session_id,omitempty"`
	PersonID       string            `gorm:"column:person_id;index" json:"person_id,omitempty"`
	WebsiteID      string            `gorm:"column:website_id;index" json:"website_id,omitempty"`
	Value          *float64          `gorm:"column:value" json:"value,omitempty"`
	Currency       string            `gorm:"column:currency;not null" json:"currency"`
	OrderID        string            `gorm:"column:order_id" json:"order_id,omitempty"`
	UTMSource      string            `gorm:"column:utm_source" json:"utm_source,omitempty"`
	UTMMedium      string            `gorm:"column:utm_medium" json:"utm_medium,omitempty"`
	UTMCampaign    string            `gorm:"column:utm_campaign" json:"utm_campaign,omitempty"`
	UTMTerm        string            `gorm:"column:utm_term" json:"utm_term,omitempty"`
	UTMContent     string            `gorm:"column:utm_content" json:"utm_content,omitempty"`
	Platform       Platform          `gorm:"column:platform;not null" json:"platform"`
	CampaignID     string            `gorm:"column:campaign_id;index" json:"campaign_id,omitempty"`
	AdSetID        string            `gorm:"column:ad_set_id" json:"ad_set_id,omitempty"`
	AdID           string            `gorm:"column:ad_id" json:"ad_id,omitempty"`
	ConvertedAt    time.Time         `gorm:"column:converted_at;not null;index" json:"converted_at"`
	Metadata       datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Conversion) TableName() string {
	return "conversions"
}

// Amount is the conversion value, zero when none was reported.
func (c Conversion) Amount() float64 {
	if c.Value == nil {
		return 0
	}
	return *c.Value
}

type ConversionFilter struct {
	PersonID       string
	WebsiteID      string
	ConversionType ConversionType
	From           *time.Time
	To             *time.Time
}

// ConversionGoal counters are only ever changed through an atomic
// increment in the repository.
type ConversionGoal struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string         `gorm:"column:name;not null" json:"name"`
	GoalType        ConversionType `gorm:"column:goal_type;not null;index" json:"goal_type"`
	WebsiteID       string         `gorm:"column:website_id;index" json:"website_id,omitempty"`
	IsActive        bool           `gorm:"column:is_active;not null" json:"is_active"`
	ConversionCount int64          `gorm:"column:conversion_count;not null" json:"conversion_count"`
	ConversionValue float64        `gorm:"column:conversion_value;not null" json:"conversion_value"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ConversionGoal) TableName() string {
	return "conversion_goals"
}
