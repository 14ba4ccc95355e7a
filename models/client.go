package models

import (
	"time"

	"gorm.io/gorm"
)

// Client represents a prospective traveler in the directory.
type Client struct {
	gorm.Model
	Email     string `gorm:"not null;index" json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Source    string `json:"source"` // website, chat, referral, import, etc.

	// Relations
	Quotes      []Quote              `gorm:"foreignKey:ClientID" json:"quotes,omitempty"`
	Bookings    []Booking            `gorm:"foreignKey:ClientID" json:"bookings,omitempty"`
	Score       *LeadScore           `gorm:"foreignKey:ClientID" json:"score,omitempty"`
	Enrollments []SequenceEnrollment `gorm:"foreignKey:ClientID" json:"enrollments,omitempty"`
}

// Quote represents a trip quote issued to a client by the booking subsystem.
type Quote struct {
	gorm.Model
	ClientID uint `gorm:"not null;index" json:"client_id"`

	Destination string     `json:"destination"`
	Amount      float64    `json:"amount"`
	Currency    string     `gorm:"default:'USD'" json:"currency"`
	SentAt      *time.Time `json:"sent_at"`
	ExpiresAt   *time.Time `json:"expires_at"`

	// Set once the expired-quote sweep has emitted its event so the
	// penalty is applied at most once per quote.
	ExpiryProcessed bool `gorm:"default:false" json:"expiry_processed"`
}

// Booking represents a confirmed booking. Created by the booking subsystem,
// which also calls the conversion webhook.
type Booking struct {
	gorm.Model
	ClientID uint  `gorm:"not null;index" json:"client_id"`
	QuoteID  *uint `gorm:"index" json:"quote_id,omitempty"`

	Reference   string `gorm:"not null" json:"reference"`
	Destination string `json:"destination"`
	Amount      float64 `json:"amount"`
}
