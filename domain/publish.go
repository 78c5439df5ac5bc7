package domain

import "time"

// PublishResult is the outcome of pushing one piece of content to one ad
// platform.
type PublishResult struct {
	Platform    Platform  `json:"platform" validate:"required,oneof=meta google"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	PublishedAt time.Time `json:"published_at" validate:"required"`
}
