package models

import (
	"gorm.io/gorm"
)

// EventType tags a single scoring signal. Every type must have an entry in
// the automation rule table; unknown types are rejected at record time.
type EventType string

const (
	EventBudgetMentioned     EventType = "budget_mentioned"
	EventDatesMentioned      EventType = "dates_mentioned"
	EventDestinationMentioned EventType = "destination_mentioned"
	EventPartySizeMentioned  EventType = "party_size_mentioned"
	EventAvailabilityAsked   EventType = "availability_asked"
	EventQuoteRequested      EventType = "quote_requested"
	EventBookingAsked        EventType = "booking_asked"
	EventPaymentAsked        EventType = "payment_asked"
	EventNurtureEmailSent    EventType = "nurture_email_sent"
	EventEmailOpened         EventType = "email_opened"
	EventLinkClicked         EventType = "link_clicked"
	EventConversationStarted EventType = "conversation_started"
	EventMessageReceived     EventType = "message_received"
	EventActivityContinued   EventType = "activity_continued"
	EventManualAdjustment    EventType = "manual_adjustment"
	EventInactivity7d        EventType = "inactivity_7d"
	EventInactivity14d       EventType = "inactivity_14d"
	EventQuoteExpired        EventType = "quote_expired"
	EventConverted           EventType = "converted"
	EventMarkedLost          EventType = "marked_lost"
)

// Date specificity levels for dates_mentioned payloads.
const (
	DateSpecificityDate   = "date"
	DateSpecificityMonth  = "month"
	DateSpecificitySeason = "season"
)

// EventPayload is the tagged-union payload for a LeadEvent. Only the fields
// relevant to the event's type are populated.
type EventPayload struct {
	// budget_mentioned
	Amount   float64 `json:"amount,omitempty"`
	Currency string  `json:"currency,omitempty"`

	// dates_mentioned
	Specificity string `json:"specificity,omitempty"` // date, month, season
	DateStart   string `json:"date_start,omitempty"`  // RFC 3339 date
	DateEnd     string `json:"date_end,omitempty"`
	Month       string `json:"month,omitempty"`
	Season      string `json:"season,omitempty"`

	// destination_mentioned
	Destinations []string `json:"destinations,omitempty"`

	// party_size_mentioned
	PartySize int `json:"party_size,omitempty"`

	// manual_adjustment
	Delta  int    `json:"delta,omitempty"`
	Reason string `json:"reason,omitempty"`

	// email_opened / link_clicked
	MessageID string `json:"message_id,omitempty"`
	URL       string `json:"url,omitempty"`

	// converted / marked_lost
	BookingRef string `json:"booking_ref,omitempty"`
	LostReason string `json:"lost_reason,omitempty"`
}

// LeadEvent is one immutable row in the append-only scoring log.
type LeadEvent struct {
	gorm.Model
	ClientID uint `gorm:"not null;index" json:"client_id"`

	EventType EventType    `gorm:"not null;index" json:"event_type"`
	Payload   EventPayload `gorm:"type:jsonb;serializer:json" json:"payload"`

	ScoreChange int `json:"score_change"`
	ScoreBefore int `json:"score_before"`
	ScoreAfter  int `json:"score_after"`

	Source          string `json:"source"` // chat, email, tracking, system, manual
	ConversationRef string `gorm:"index" json:"conversation_ref,omitempty"`

	// Relations
	Client Client `json:"-"`
}
