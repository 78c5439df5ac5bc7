package domain

import "time"

// Session, Campaign and Person are owned by the commerce platform and are
// only read here.

type Session struct {
	ID          string    `json:"id" gorm:"column:id;primaryKey"`
	VisitorID   string    `json:"visitor_id" gorm:"column:visitor_id"`
	WebsiteID   string    `json:"website_id" gorm:"column:website_id"`
	UTMSource   string    `json:"utm_source" gorm:"column:utm_source"`
	UTMMedium   string    `json:"utm_medium" gorm:"column:utm_medium"`
	UTMCampaign string    `json:"utm_campaign" gorm:"column:utm_campaign"`
	UTMTerm     string    `json:"utm_term" gorm:"column:utm_term"`
	UTMContent  string    `json:"utm_content" gorm:"column:utm_content"`
	Pageviews   int       `json:"pageviews" gorm:"column:pageviews"`
	EntryPage   string    `json:"entry_page" gorm:"column:entry_page"`
	StartedAt   time.Time `json:"started_at" gorm:"column:started_at"`
}

func (Session) TableName() string {
	return "analytics_sessions"
}

type Campaign struct {
	ID                 string `json:"id" gorm:"column:id;primaryKey"`
	Name               string `json:"name" gorm:"column:name"`
	PlatformCampaignID string `json:"platform_campaign_id" gorm:"column:platform_campaign_id"`
}

func (Campaign) TableName() string {
	return "ad_campaigns"
}

type Person struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	CreatedAt time.Time      `json:"created_at"`
	Tags      []string       `json:"tags"`
	Metadata  map[string]any `json:"metadata"`
}
