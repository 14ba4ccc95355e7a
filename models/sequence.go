package models

import "gorm.io/gorm"

// Trigger types for automatic enrollment.
const (
	TriggerNewLead               = "new_lead"
	TriggerAbandonedConversation = "abandoned_conversation"
	TriggerPostQuote             = "post_quote"
	TriggerHighValueLead         = "high_value_lead"
	TriggerPostInquiry           = "post_inquiry"
)

// TriggerCondition parameterizes a sequence's eligibility query. Zero values
// mean "no bound"; DaysInactive and WindowDays fall back to per-trigger
// defaults in the evaluator.
type TriggerCondition struct {
	MinScore     int `json:"min_score"`
	MaxScore     int `json:"max_score"`
	DaysInactive int `json:"days_inactive"`
	WindowDays   int `json:"window_days"`
}

// StepCondition gates a single step against the live score at dispatch time.
type StepCondition struct {
	MinScore        int      `json:"min_score"`
	MaxScore        int      `json:"max_score"`
	AllowedStatuses []string `json:"allowed_statuses,omitempty"`
}

// NurtureSequence is a campaign template: ordered timed steps plus the
// trigger that auto-enrolls eligible clients. Steps are read live by the
// dispatcher, so edits apply to in-flight enrollments on the next pass.
type NurtureSequence struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`

	TriggerType      string           `gorm:"not null;index" json:"trigger_type"`
	TriggerCondition TriggerCondition `gorm:"type:jsonb;serializer:json" json:"trigger_condition"`

	IsActive bool `gorm:"default:true;index" json:"is_active"`

	// Statistics (denormalized)
	TotalEnrolled  int `gorm:"default:0" json:"total_enrolled"`
	TotalCompleted int `gorm:"default:0" json:"total_completed"`

	// Relations
	Steps []SequenceStep `gorm:"foreignKey:SequenceID" json:"steps,omitempty"`
}

// SequenceStep is one timed outreach step. DayOffset is measured from
// enrollment start; the cadence between steps is the delta of consecutive
// offsets.
type SequenceStep struct {
	gorm.Model
	SequenceID uint `gorm:"not null;index" json:"sequence_id"`
	TemplateID uint `gorm:"not null;index" json:"template_id"`

	StepNumber int `gorm:"not null" json:"step_number"`
	DayOffset  int `gorm:"not null" json:"day_offset"`

	Condition *StepCondition `gorm:"type:jsonb;serializer:json" json:"condition,omitempty"`

	// Tracking
	SentCount    int `gorm:"default:0" json:"sent_count"`
	SkippedCount int `gorm:"default:0" json:"skipped_count"`

	// Relations
	Template EmailTemplate `json:"-"`
}
