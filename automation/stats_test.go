package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ascentcrm/models"
	"ascentcrm/utils"
)

func TestGetNurtureStatsAggregatesBySequence(t *testing.T) {
	db := setupTestDB(t)
	service := NewStatsService(db)
	enrollments := NewEnrollmentService(db)

	seqA := createTestSequence(t, db, models.TriggerNewLead, 0, 3)
	seqB := createTestSequence(t, db, models.TriggerPostQuote, 0)

	alex := createTestClient(t, db, "alex@example.com")
	sam := createTestClient(t, db, "sam@example.com")

	active, err := enrollments.Enroll(alex.ID, seqA)
	require.NoError(t, err)
	require.NoError(t, db.Model(active).Updates(map[string]interface{}{
		"emails_sent":   2,
		"emails_opened": 1,
		"links_clicked": 1,
	}).Error)

	cancelled, err := enrollments.Enroll(sam.ID, seqA)
	require.NoError(t, err)
	_, err = enrollments.Cancel(cancelled.ID, "operator request")
	require.NoError(t, err)

	stats, err := service.GetNurtureStats(nil)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	a := stats[0]
	assert.Equal(t, seqA.ID, a.SequenceID)
	assert.Equal(t, 2, a.TotalEnrollments)
	assert.Equal(t, 1, a.Active)
	assert.Equal(t, 1, a.Cancelled)
	assert.Equal(t, 2, a.EmailsSent)
	assert.Equal(t, 1, a.EmailsOpened)
	assert.Equal(t, 1, a.LinksClicked)

	b := stats[1]
	assert.Equal(t, seqB.ID, b.SequenceID)
	assert.Zero(t, b.TotalEnrollments)

	// Narrowed to one sequence
	only, err := service.GetNurtureStats(utils.Pointer(seqB.ID))
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, seqB.ID, only[0].SequenceID)
}

func TestGetClientNurtureHistory(t *testing.T) {
	db := setupTestDB(t)
	service := NewStatsService(db)
	enrollments := NewEnrollmentService(db)

	seqA := createTestSequence(t, db, models.TriggerNewLead, 0)
	seqB := createTestSequence(t, db, models.TriggerHighValueLead, 0)
	client := createTestClient(t, db, "alex@example.com")

	first, err := enrollments.Enroll(client.ID, seqA)
	require.NoError(t, err)
	_, err = enrollments.Cancel(first.ID, "operator request")
	require.NoError(t, err)
	_, err = enrollments.Enroll(client.ID, seqB)
	require.NoError(t, err)

	history, err := service.GetClientNurtureHistory(client.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.NotEmpty(t, history[0].Sequence.Name)
}
