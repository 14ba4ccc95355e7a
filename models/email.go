package models

import (
	"time"

	"gorm.io/gorm"
)

// EmailTemplate holds the renderable content for a sequence step. The HTML
// body is an html/template source; the renderer fills in client and trip
// fields at dispatch time.
type EmailTemplate struct {
	gorm.Model
	Name        string `gorm:"not null;uniqueIndex" json:"name"`
	Subject     string `gorm:"not null" json:"subject"`
	HTMLContent string `gorm:"type:text" json:"html_content"`
	TextContent string `gorm:"type:text" json:"text_content"`
	Category    string `json:"category"`
}

// EmailTracking is one row per dispatched nurture email. The tracking
// controller resolves the MessageID/Token pair from pixel and click URLs
// and feeds opens and clicks back into the scoring engine.
type EmailTracking struct {
	gorm.Model
	MessageID string `gorm:"not null;uniqueIndex" json:"message_id"`
	Token     string `gorm:"not null" json:"token"`

	ClientID     uint `gorm:"not null;index" json:"client_id"`
	EnrollmentID uint `gorm:"not null;index" json:"enrollment_id"`
	StepID       uint `gorm:"index" json:"step_id"`

	Subject string    `json:"subject"`
	SentAt  time.Time `gorm:"not null" json:"sent_at"`

	OpenedAt   *time.Time `json:"opened_at"`
	OpenCount  int        `gorm:"default:0" json:"open_count"`
	ClickedAt  *time.Time `json:"clicked_at"`
	ClickCount int        `gorm:"default:0" json:"click_count"`
}
