package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SegmentLogic string

const (
	LogicAnd SegmentLogic = "AND"
	LogicOr  SegmentLogic = "OR"
)

type RuleOperator string

const (
	OpEq          RuleOperator = "=="
	OpNeq         RuleOperator = "!="
	OpGt          RuleOperator = ">"
	OpLt          RuleOperator = "<"
	OpGte         RuleOperator = ">="
	OpLte         RuleOperator = "<="
	OpContains    RuleOperator = "contains"
	OpNotContains RuleOperator = "not_contains"
	OpIn          RuleOperator = "in"
	OpNotIn       RuleOperator = "not_in"
)

func (o RuleOperator) Valid() bool {
	switch o {
	case OpEq, OpNeq, OpGt, OpLt, OpGte, OpLte, OpContains, OpNotContains, OpIn, OpNotIn:
		return true
	}
	return false
}

type SegmentRule struct {
	Field    string       `json:"field"`
	Operator RuleOperator `json:"operator"`
	Value    any          `json:"value"`
}

// SegmentCriteria is a flat rule list joined by one logic operator.
// Nested groups are not supported.
type SegmentCriteria struct {
	Logic SegmentLogic  `json:"logic"`
	Rules []SegmentRule `json:"rules"`
}

func (c SegmentCriteria) Validate() error {
	switch c.Logic {
	case LogicAnd, LogicOr, "":
	default:
		return NewValidationError("criteria.logic", fmt.Sprintf("unsupported logic %q", c.Logic))
	}
	if len(c.Rules) == 0 {
		return NewValidationError("criteria.rules", "at least one rule is required")
	}
	for i, r := range c.Rules {
		if r.Field == "" {
			return NewValidationError(fmt.Sprintf("criteria.rules[%d].field", i), "field is required")
		}
		if !r.Operator.Valid() {
			return NewValidationError(fmt.Sprintf("criteria.rules[%d].operator", i), fmt.Sprintf("unsupported operator %q", r.Operator))
		}
		if r.Operator == OpIn || r.Operator == OpNotIn {
			if _, ok := r.Value.([]any); !ok {
				return NewValidationError(fmt.Sprintf("criteria.rules[%d].value", i), "in/not_in requires a list value")
			}
		}
	}
	return nil
}

type CustomerSegment struct {
	ID               uuid.UUID                           `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string                              `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Description      string                              `gorm:"column:description" json:"description,omitempty"`
	Criteria         datatypes.JSONType[SegmentCriteria] `gorm:"column:criteria;not null" json:"criteria"`
	IsActive         bool                                `gorm:"column:is_active;not null" json:"is_active"`
	AutoUpdate       bool                                `gorm:"column:auto_update;not null" json:"auto_update"`
	CustomerCount    int64                               `gorm:"column:customer_count;not null" json:"customer_count"`
	LastCalculatedAt *time.Time                          `gorm:"column:last_calculated_at" json:"last_calculated_at,omitempty"`
	CreatedAt        time.Time                           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time                           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (CustomerSegment) TableName() string {
	return "customer_segments"
}

type SegmentMember struct {
	SegmentID uuid.UUID `gorm:"type:uuid;primaryKey" json:"segment_id"`
	PersonID  string    `gorm:"column:person_id;primaryKey;index" json:"person_id"`
	AddedAt   time.Time `gorm:"column:added_at;not null" json:"added_at"`
}

func (SegmentMember) TableName() string {
	return "customer_segment_members"
}

type SegmentBuildResult struct {
	SegmentID     uuid.UUID `json:"segment_id"`
	Evaluated     int       `json:"evaluated"`
	Matched       int       `json:"matched"`
	Added         int       `json:"added"`
	Removed       int       `json:"removed"`
	SnapshotErrs  int       `json:"snapshot_errors"`
	CustomerCount int64     `json:"customer_count"`
	CalculatedAt  time.Time `json:"calculated_at"`
}

// CustomerSnapshot is the flat, pre-built attribute view a rule set is
// evaluated against.
type CustomerSnapshot map[string]any
