package domain

import (
	"time"

	"github.com/google/uuid"
)

type ExperimentStatus string

const (
	ExperimentDraft     ExperimentStatus = "draft"
	ExperimentRunning   ExperimentStatus = "running"
	ExperimentCompleted ExperimentStatus = "completed"
)

func (s ExperimentStatus) Valid() bool {
	switch s {
	case ExperimentDraft, ExperimentRunning, ExperimentCompleted:
		return true
	}
	return false
}

type ABExperiment struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string              `gorm:"column:name;not null" json:"name"`
	Description   string              `gorm:"column:description" json:"description,omitempty"`
	Status        ExperimentStatus    `gorm:"column:status;not null;index" json:"status"`
	PrimaryMetric string              `gorm:"column:primary_metric;not null" json:"primary_metric"`
	Variants      []ExperimentVariant `gorm:"foreignKey:ExperimentID;constraint:OnDelete:CASCADE" json:"variants"`
	StartedAt     *time.Time          `gorm:"column:started_at" json:"started_at,omitempty"`
	EndedAt       *time.Time          `gorm:"column:ended_at" json:"ended_at,omitempty"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ABExperiment) TableName() string {
	return "ab_experiments"
}

// Control returns the variant flagged as control, falling back to the
// first variant.
func (e ABExperiment) Control() (ExperimentVariant, bool) {
	if len(e.Variants) == 0 {
		return ExperimentVariant{}, false
	}
	for _, v := range e.Variants {
		if v.IsControl {
			return v, true
		}
	}
	return e.Variants[0], true
}

type ExperimentVariant struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ExperimentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_experiment_variant_name" json:"experiment_id"`
	Name         string    `gorm:"column:name;not null;uniqueIndex:idx_experiment_variant_name" json:"name"`
	IsControl    bool      `gorm:"column:is_control;not null" json:"is_control"`
	Position     int       `gorm:"column:position;not null" json:"position"`
	Samples      int64     `gorm:"column:samples;not null" json:"samples"`
	Conversions  int64     `gorm:"column:conversions;not null" json:"conversions"`
}

func (ExperimentVariant) TableName() string {
	return "ab_experiment_variants"
}
