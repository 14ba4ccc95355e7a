package models

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment statuses.
const (
	EnrollmentActive    = "active"
	EnrollmentPaused    = "paused"
	EnrollmentCompleted = "completed"
	EnrollmentCancelled = "cancelled"
)

// SequenceEnrollment tracks one client's progress through one sequence.
// At most one enrollment per (client, sequence) may be active or paused at
// a time; the uniqueness is enforced in the enrollment service. Once the
// status is completed or cancelled the record is immutable.
type SequenceEnrollment struct {
	gorm.Model
	ClientID   uint `gorm:"not null;index" json:"client_id"`
	SequenceID uint `gorm:"not null;index" json:"sequence_id"`

	CurrentStep int    `gorm:"default:0" json:"current_step"` // monotonically non-decreasing
	Status      string `gorm:"default:'active';index" json:"status"`

	// Engagement counters
	EmailsSent   int `gorm:"default:0" json:"emails_sent"`
	EmailsOpened int `gorm:"default:0" json:"emails_opened"`
	LinksClicked int `gorm:"default:0" json:"links_clicked"`

	EnrolledAt      time.Time  `gorm:"not null" json:"enrolled_at"`
	NextEmailAt     *time.Time `gorm:"index" json:"next_email_at"` // meaningful only while active
	LastEmailSentAt *time.Time `json:"last_email_sent_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	CancelledAt     *time.Time `json:"cancelled_at"`
	CancelReason    string     `json:"cancel_reason"`

	// Relations
	Client   Client          `json:"-"`
	Sequence NurtureSequence `json:"sequence,omitempty"`
}

// IsClosed reports whether the enrollment has reached a terminal status.
func (e *SequenceEnrollment) IsClosed() bool {
	return e.Status == EnrollmentCompleted || e.Status == EnrollmentCancelled
}
