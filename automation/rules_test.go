package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ascentcrm/models"
)

func TestScoreDeltaTable(t *testing.T) {
	tests := []struct {
		name      string
		record    models.LeadScore
		eventType models.EventType
		payload   models.EventPayload
		delta     int
		bucket    string
	}{
		{"small budget", models.LeadScore{}, models.EventBudgetMentioned, models.EventPayload{Amount: 2000}, 10, bucketBudget},
		{"mid budget", models.LeadScore{}, models.EventBudgetMentioned, models.EventPayload{Amount: 5000}, 20, bucketBudget},
		{"large budget", models.LeadScore{}, models.EventBudgetMentioned, models.EventPayload{Amount: 12000}, 30, bucketBudget},
		{"specific dates", models.LeadScore{}, models.EventDatesMentioned, models.EventPayload{Specificity: models.DateSpecificityDate}, 25, bucketTimeline},
		{"month", models.LeadScore{}, models.EventDatesMentioned, models.EventPayload{Specificity: models.DateSpecificityMonth}, 15, bucketTimeline},
		{"season", models.LeadScore{}, models.EventDatesMentioned, models.EventPayload{Specificity: models.DateSpecificitySeason}, 10, bucketTimeline},
		{"two destinations", models.LeadScore{}, models.EventDestinationMentioned, models.EventPayload{Destinations: []string{"Kilimanjaro", "Toubkal"}}, 10, bucketIntent},
		{"couple", models.LeadScore{}, models.EventPartySizeMentioned, models.EventPayload{PartySize: 2}, 5, bucketIntent},
		{"small group", models.LeadScore{}, models.EventPartySizeMentioned, models.EventPayload{PartySize: 4}, 10, bucketIntent},
		{"large group", models.LeadScore{}, models.EventPartySizeMentioned, models.EventPayload{PartySize: 8}, 15, bucketIntent},
		{"availability", models.LeadScore{}, models.EventAvailabilityAsked, models.EventPayload{}, 20, bucketIntent},
		{"quote request", models.LeadScore{}, models.EventQuoteRequested, models.EventPayload{}, 40, bucketIntent},
		{"booking ask", models.LeadScore{}, models.EventBookingAsked, models.EventPayload{}, 25, bucketIntent},
		{"payment ask", models.LeadScore{}, models.EventPaymentAsked, models.EventPayload{}, 30, bucketIntent},
		{"first open", models.LeadScore{}, models.EventEmailOpened, models.EventPayload{}, 5, bucketEngagement},
		{"third open", models.LeadScore{EmailsOpened: 2}, models.EventEmailOpened, models.EventPayload{}, 15, bucketEngagement},
		{"link click", models.LeadScore{}, models.EventLinkClicked, models.EventPayload{}, 10, bucketEngagement},
		{"first conversation", models.LeadScore{}, models.EventConversationStarted, models.EventPayload{}, 5, bucketEngagement},
		{"returning conversation", models.LeadScore{ConversationCount: 1}, models.EventConversationStarted, models.EventPayload{}, 15, bucketEngagement},
		{"message", models.LeadScore{}, models.EventMessageReceived, models.EventPayload{}, 1, bucketEngagement},
		{"manual up", models.LeadScore{}, models.EventManualAdjustment, models.EventPayload{Delta: 12}, 12, bucketEngagement},
		{"manual down", models.LeadScore{}, models.EventManualAdjustment, models.EventPayload{Delta: -8}, -8, bucketEngagement},
		{"week idle", models.LeadScore{}, models.EventInactivity7d, models.EventPayload{}, -10, bucketEngagement},
		{"fortnight idle", models.LeadScore{}, models.EventInactivity14d, models.EventPayload{}, -20, bucketEngagement},
		{"quote expired", models.LeadScore{}, models.EventQuoteExpired, models.EventPayload{}, -15, bucketEngagement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta, bucket, err := scoreDelta(&tt.record, tt.eventType, tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.delta, delta)
			assert.Equal(t, tt.bucket, bucket)
		})
	}
}

func TestScoreDeltaUnknownType(t *testing.T) {
	_, _, err := scoreDelta(&models.LeadScore{}, models.EventType("telepathy"), models.EventPayload{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEventType)
}

func TestStatusForScoreBands(t *testing.T) {
	tests := []struct {
		score  int
		status string
	}{
		{0, models.StatusBrowsing},
		{20, models.StatusBrowsing},
		{21, models.StatusComparing},
		{40, models.StatusComparing},
		{41, models.StatusInterested},
		{60, models.StatusInterested},
		{61, models.StatusReadyToBook},
		{79, models.StatusReadyToBook},
		{80, models.StatusQualified},
		{100, models.StatusQualified},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, statusForScore(tt.score), "score %d", tt.score)
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, clampScore(-5))
	assert.Equal(t, 0, clampScore(0))
	assert.Equal(t, 57, clampScore(57))
	assert.Equal(t, 100, clampScore(100))
	assert.Equal(t, 100, clampScore(130))
}
