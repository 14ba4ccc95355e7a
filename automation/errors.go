package automation

import (
	"errors"
	"fmt"
)

// Typed failures returned by single operations. Batch passes collect these
// per item instead of aborting.
var (
	ErrClientNotFound     = errors.New("client not found")
	ErrSequenceNotFound   = errors.New("sequence not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrSequenceInactive   = errors.New("sequence is not active")
	ErrAlreadyEnrolled    = errors.New("client already has an active or paused enrollment in this sequence")
	ErrInvalidTransition  = errors.New("invalid enrollment status transition")
	ErrUnknownEventType   = errors.New("unknown event type")
)

// DeliveryError marks a transient transport failure. The dispatcher leaves
// the enrollment untouched so the same step retries on the next pass.
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// EnrollmentRunResult aggregates one trigger-evaluation pass.
type EnrollmentRunResult struct {
	Scanned  int      `json:"scanned"`
	Enrolled int      `json:"enrolled"`
	Errors   []string `json:"errors,omitempty"`
}

// DispatchRunResult aggregates one dispatch pass.
type DispatchRunResult struct {
	Processed int      `json:"processed"`
	Sent      int      `json:"sent"`
	Skipped   int      `json:"skipped"`
	Completed int      `json:"completed"`
	Errors    []string `json:"errors,omitempty"`
}
