package models

import (
	"time"

	"gorm.io/gorm"
)

// Lead lifecycle statuses, recomputed from score bands unless sticky.
const (
	StatusNew         = "new"
	StatusBrowsing    = "browsing"     // [0,20]
	StatusComparing   = "comparing"    // [21,40]
	StatusInterested  = "interested"   // [41,60]
	StatusReadyToBook = "ready_to_book" // [61,79]
	StatusQualified   = "qualified"    // [80,100]
	StatusConverted   = "converted"    // sticky
	StatusLost        = "lost"         // sticky
)

// LeadScore is the per-client scoring record. Created lazily on the first
// event and mutated only through the scorer's read-modify-write cycle.
type LeadScore struct {
	gorm.Model
	ClientID uint `gorm:"not null;uniqueIndex" json:"client_id"`

	CurrentScore int    `gorm:"default:0" json:"current_score"` // clamped [0,100]
	Status       string `gorm:"default:'new'" json:"status"`

	// Additive sub-scores
	BudgetScore     int `gorm:"default:0" json:"budget_score"`
	TimelineScore   int `gorm:"default:0" json:"timeline_score"`
	EngagementScore int `gorm:"default:0" json:"engagement_score"`
	IntentScore     int `gorm:"default:0" json:"intent_score"`

	// Detected trip attributes
	BudgetAmount    float64  `gorm:"default:0" json:"budget_amount"`
	BudgetCurrency  string   `json:"budget_currency"`
	TravelDateStart *time.Time `json:"travel_date_start"`
	TravelDateEnd   *time.Time `json:"travel_date_end"`
	TravelMonth     string   `json:"travel_month"`
	TravelSeason    string   `json:"travel_season"`
	Destinations    []string `gorm:"type:jsonb;serializer:json" json:"destinations"`
	PartySize       int      `gorm:"default:0" json:"party_size"`

	// Engagement counters
	ConversationCount int `gorm:"default:0" json:"conversation_count"`
	MessageCount      int `gorm:"default:0" json:"message_count"`
	QuotesRequested   int `gorm:"default:0" json:"quotes_requested"`
	QuotesReceived    int `gorm:"default:0" json:"quotes_received"`
	EmailsOpened      int `gorm:"default:0" json:"emails_opened"`
	LinksClicked      int `gorm:"default:0" json:"links_clicked"`

	// Timestamps
	FirstActivityAt    *time.Time `json:"first_activity_at"`
	LastActivityAt     *time.Time `gorm:"index" json:"last_activity_at"`
	LastConversationAt *time.Time `json:"last_conversation_at"`
	ConvertedAt        *time.Time `json:"converted_at"`

	// Flags
	IsHighValue          bool   `gorm:"default:false;index" json:"is_high_value"`
	RequiresHumanHandoff bool   `gorm:"default:false" json:"requires_human_handoff"`
	HandoffReason        string `json:"handoff_reason"`
	ConversionRef        string `json:"conversion_ref"`

	// 0 = none applied, 1 = 7-day decay applied, 2 = 14-day decay applied.
	// Reset to 0 whenever a positive-activity event lands, so the daily
	// sweep never double-penalizes the same idle stretch.
	InactivityDecayLevel int `gorm:"default:0" json:"inactivity_decay_level"`

	// Relations
	Client Client `json:"-"`
}

// IsSticky reports whether the status is terminal and must not be
// overwritten by ordinary score-band recomputation.
func (ls *LeadScore) IsSticky() bool {
	return ls.Status == StatusConverted || ls.Status == StatusLost
}
