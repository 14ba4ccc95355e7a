package automation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ascentcrm/models"
)

func TestEnrollSetsFirstStepOffset(t *testing.T) {
	db := setupTestDB(t)
	service := NewEnrollmentService(db)
	client := createTestClient(t, db, "alex@example.com")
	seq := createTestSequence(t, db, models.TriggerNewLead, 2, 5)

	enrollment, err := service.Enroll(client.ID, seq)
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentActive, enrollment.Status)
	assert.Equal(t, 0, enrollment.CurrentStep)
	require.NotNil(t, enrollment.NextEmailAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 2), *enrollment.NextEmailAt, time.Minute)

	var updated models.NurtureSequence
	require.NoError(t, db.First(&updated, seq.ID).Error)
	assert.Equal(t, 1, updated.TotalEnrolled)
}

func TestEnrollRejectsInactiveSequence(t *testing.T) {
	db := setupTestDB(t)
	service := NewEnrollmentService(db)
	client := createTestClient(t, db, "alex@example.com")
	seq := createTestSequence(t, db, models.TriggerNewLead, 0)
	seq.IsActive = false

	_, err := service.Enroll(client.ID, seq)
	assert.ErrorIs(t, err, ErrSequenceInactive)
}

func TestEnrollRejectsLiveDuplicate(t *testing.T) {
	db := setupTestDB(t)
	service := NewEnrollmentService(db)
	client := createTestClient(t, db, "alex@example.com")
	seq := createTestSequence(t, db, models.TriggerNewLead, 0, 3)

	first, err := service.Enroll(client.ID, seq)
	require.NoError(t, err)

	_, err = service.Enroll(client.ID, seq)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)

	// Paused still counts as live
	_, err = service.Pause(first.ID)
	require.NoError(t, err)
	_, err = service.Enroll(client.ID, seq)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
}

func TestEnrollAllowedAfterCancellation(t *testing.T) {
	db := setupTestDB(t)
	service := NewEnrollmentService(db)
	client := createTestClient(t, db, "alex@example.com")
	seq := createTestSequence(t, db, models.TriggerNewLead, 0, 3)

	first, err := service.Enroll(client.ID, seq)
	require.NoError(t, err)
	_, err = service.Cancel(first.ID, "operator request")
	require.NoError(t, err)

	second, err := service.Enroll(client.ID, seq)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestPauseResumeTransitions(t *testing.T) {
	db := setupTestDB(t)
	service := NewEnrollmentService(db)
	client := createTestClient(t, db, "alex@example.com")
	seq := createTestSequence(t, db, models.TriggerNewLead, 0, 10)

	enrollment, err := service.Enroll(client.ID, seq)
	require.NoError(t, err)

	// Pausing twice is invalid
	paused, err := service.Pause(enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentPaused, paused.Status)
	_, err = service.Pause(enrollment.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Resume reschedules to tomorrow, not the original cadence
	resumed, err := service.Resume(enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentActive, resumed.Status)
	require.NotNil(t, resumed.NextEmailAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 1), *resumed.NextEmailAt, time.Minute)

	_, err = service.Resume(enrollment.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelClosedEnrollmentIsInvalid(t *testing.T) {
	db := setupTestDB(t)
	service := NewEnrollmentService(db)
	client := createTestClient(t, db, "alex@example.com")
	seq := createTestSequence(t, db, models.TriggerNewLead, 0)

	enrollment, err := service.Enroll(client.ID, seq)
	require.NoError(t, err)

	cancelled, err := service.Cancel(enrollment.ID, "operator request")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentCancelled, cancelled.Status)
	assert.Equal(t, "operator request", cancelled.CancelReason)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = service.Cancel(enrollment.ID, "again")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdvancePreservesUnevenCadence(t *testing.T) {
	db := setupTestDB(t)
	service := NewEnrollmentService(db)
	client := createTestClient(t, db, "alex@example.com")
	seq := createTestSequence(t, db, models.TriggerNewLead, 0, 3, 7)

	enrollment, err := service.Enroll(client.ID, seq)
	require.NoError(t, err)
	base := *enrollment.NextEmailAt

	require.NoError(t, service.Advance(db, enrollment, seq.Steps, true))
	assert.Equal(t, 1, enrollment.CurrentStep)
	assert.Equal(t, 1, enrollment.EmailsSent)
	require.NotNil(t, enrollment.LastEmailSentAt)
	// Gap between step 0 and 1 is 3 days, anchored on the previous due time
	assert.Equal(t, base.AddDate(0, 0, 3), *enrollment.NextEmailAt)

	require.NoError(t, service.Advance(db, enrollment, seq.Steps, true))
	assert.Equal(t, 2, enrollment.CurrentStep)
	// Gap between step 1 and 2 is 4 days
	assert.Equal(t, base.AddDate(0, 0, 7), *enrollment.NextEmailAt)

	require.NoError(t, service.Advance(db, enrollment, seq.Steps, true))
	assert.Equal(t, models.EnrollmentCompleted, enrollment.Status)
	assert.Nil(t, enrollment.NextEmailAt)
	require.NotNil(t, enrollment.CompletedAt)

	var updated models.NurtureSequence
	require.NoError(t, db.First(&updated, seq.ID).Error)
	assert.Equal(t, 1, updated.TotalCompleted)
}

func TestAdvanceSkippedStepConsumesSlot(t *testing.T) {
	db := setupTestDB(t)
	service := NewEnrollmentService(db)
	client := createTestClient(t, db, "alex@example.com")
	seq := createTestSequence(t, db, models.TriggerNewLead, 0, 3)

	enrollment, err := service.Enroll(client.ID, seq)
	require.NoError(t, err)

	require.NoError(t, service.Advance(db, enrollment, seq.Steps, false))
	assert.Equal(t, 1, enrollment.CurrentStep)
	assert.Zero(t, enrollment.EmailsSent)
	assert.Nil(t, enrollment.LastEmailSentAt)
}

func TestCancelForClientSpansSequences(t *testing.T) {
	db := setupTestDB(t)
	service := NewEnrollmentService(db)
	client := createTestClient(t, db, "alex@example.com")
	other := createTestClient(t, db, "sam@example.com")

	seqA := createTestSequence(t, db, models.TriggerNewLead, 0)
	seqB := createTestSequence(t, db, models.TriggerPostQuote, 1)

	_, err := service.Enroll(client.ID, seqA)
	require.NoError(t, err)
	_, err = service.Enroll(client.ID, seqB)
	require.NoError(t, err)
	otherEnrollment, err := service.Enroll(other.ID, seqA)
	require.NoError(t, err)

	cancelled, err := service.CancelForClient(client.ID, CancelReasonLost)
	require.NoError(t, err)
	assert.Equal(t, 2, cancelled)

	// The other client's enrollment is untouched
	reloaded, err := service.Get(otherEnrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentActive, reloaded.Status)
}
