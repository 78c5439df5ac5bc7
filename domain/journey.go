package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type JourneyStage string

const (
	StageAwareness     JourneyStage = "awareness"
	StageInterest      JourneyStage = "interest"
	StageConsideration JourneyStage = "consideration"
	StageIntent        JourneyStage = "intent"
	StageConversion    JourneyStage = "conversion"
	StageRetention     JourneyStage = "retention"
	StageAdvocacy      JourneyStage = "advocacy"
)

// JourneyStages is the fixed funnel order.
var JourneyStages = []JourneyStage{
	StageAwareness,
	StageInterest,
	StageConsideration,
	StageIntent,
	StageConversion,
	StageRetention,
	StageAdvocacy,
}

// Index returns the position in JourneyStages, or -1.
func (s JourneyStage) Index() int {
	for i, st := range JourneyStages {
		if st == s {
			return i
		}
	}
	return -1
}

func (s JourneyStage) Valid() bool {
	return s.Index() >= 0
}

var eventStages = map[string]JourneyStage{
	string(ConversionPageEngagement):     StageAwareness,
	string(ConversionScrollDepth):        StageInterest,
	string(ConversionTimeOnSite):         StageInterest,
	string(ConversionLeadFormSubmission): StageConsideration,
	string(ConversionAddToCart):          StageIntent,
	string(ConversionBeginCheckout):      StageIntent,
	string(ConversionPurchase):           StageConversion,
	string(ConversionCustom):             StageInterest,
	"page_view":                          StageAwareness,
	"ad_click":                           StageAwareness,
	"email_open":                         StageInterest,
	"email_click":                        StageInterest,
	"product_view":                       StageConsideration,
	"wishlist_add":                       StageConsideration,
	"repeat_purchase":                    StageRetention,
	"subscription_renewal":               StageRetention,
	"nps_response":                       StageRetention,
	"review_submitted":                   StageAdvocacy,
	"referral":                           StageAdvocacy,
	"social_share":                       StageAdvocacy,
}

// StageForEvent maps an event type to its journey stage. Unknown event
// types land in awareness.
func StageForEvent(eventType string) JourneyStage {
	if st, ok := eventStages[eventType]; ok {
		return st
	}
	return StageAwareness
}

type CustomerJourneyEvent struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	PersonID   string            `gorm:"column:person_id;not null;index" json:"person_id"`
	EventType  string            `gorm:"column:event_type;not null" json:"event_type"`
	Stage      JourneyStage      `gorm:"column:stage;not null;index" json:"stage"`
	Channel    string            `gorm:"column:channel" json:"channel,omitempty"`
	WebsiteID  string            `gorm:"column:website_id;index" json:"website_id,omitempty"`
	EventData  datatypes.JSONMap `gorm:"column:event_data" json:"event_data,omitempty"`
	OccurredAt time.Time         `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (CustomerJourneyEvent) TableName() string {
	return "customer_journey_events"
}

type JourneyFilter struct {
	PersonID  string
	WebsiteID string
	From      *time.Time
	To        *time.Time
}

type SentimentRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PersonID   string    `gorm:"column:person_id;not null;index" json:"person_id"`
	Source     string    `gorm:"column:source" json:"source"`
	Sentiment  string    `gorm:"column:sentiment;not null" json:"sentiment"`
	Score      float64   `gorm:"column:score" json:"score"`
	Text       string    `gorm:"column:text" json:"text,omitempty"`
	RecordedAt time.Time `gorm:"column:recorded_at;not null;index" json:"recorded_at"`
}

func (SentimentRecord) TableName() string {
	return "customer_sentiments"
}
