package automation

import (
	"fmt"

	"ascentcrm/models"
)

// Score thresholds and bands.
const (
	scoreMin               = 0
	scoreMax               = 100
	qualificationThreshold = 80
)

// Sub-score buckets.
const (
	bucketBudget     = "budget"
	bucketTimeline   = "timeline"
	bucketEngagement = "engagement"
	bucketIntent     = "intent"
)

// scoreDelta is the deterministic rule table keyed by event type. It returns
// the raw (unclamped) score change and the sub-score bucket it accrues to.
// The switch is exhaustive over models event types; an unknown type is an
// error so new types cannot silently fall through unscored.
func scoreDelta(record *models.LeadScore, eventType models.EventType, payload models.EventPayload) (int, string, error) {
	switch eventType {
	case models.EventBudgetMentioned:
		switch {
		case payload.Amount >= 10000:
			return 30, bucketBudget, nil
		case payload.Amount >= 5000:
			return 20, bucketBudget, nil
		default:
			return 10, bucketBudget, nil
		}

	case models.EventDatesMentioned:
		switch payload.Specificity {
		case models.DateSpecificityDate:
			return 25, bucketTimeline, nil
		case models.DateSpecificityMonth:
			return 15, bucketTimeline, nil
		default:
			return 10, bucketTimeline, nil
		}

	case models.EventDestinationMentioned:
		return 5 * len(payload.Destinations), bucketIntent, nil

	case models.EventPartySizeMentioned:
		switch {
		case payload.PartySize >= 6:
			return 15, bucketIntent, nil
		case payload.PartySize >= 4:
			return 10, bucketIntent, nil
		default:
			return 5, bucketIntent, nil
		}

	case models.EventAvailabilityAsked:
		return 20, bucketIntent, nil
	case models.EventQuoteRequested:
		return 40, bucketIntent, nil
	case models.EventBookingAsked:
		return 25, bucketIntent, nil
	case models.EventPaymentAsked:
		return 30, bucketIntent, nil

	case models.EventEmailOpened:
		// A third open and beyond signals sustained interest.
		if record.EmailsOpened+1 >= 3 {
			return 15, bucketEngagement, nil
		}
		return 5, bucketEngagement, nil

	case models.EventLinkClicked:
		return 10, bucketEngagement, nil

	case models.EventConversationStarted:
		if record.ConversationCount == 0 {
			return 5, bucketEngagement, nil
		}
		return 15, bucketEngagement, nil

	case models.EventMessageReceived, models.EventActivityContinued:
		return 1, bucketEngagement, nil

	case models.EventNurtureEmailSent:
		return 1, bucketEngagement, nil

	case models.EventManualAdjustment:
		return payload.Delta, bucketEngagement, nil

	case models.EventInactivity7d:
		return -10, bucketEngagement, nil
	case models.EventInactivity14d:
		return -20, bucketEngagement, nil
	case models.EventQuoteExpired:
		return -15, bucketEngagement, nil

	case models.EventConverted, models.EventMarkedLost:
		// Synthetic bookkeeping events; the scorer forces the terminal
		// state itself.
		return 0, bucketEngagement, nil
	}

	return 0, "", fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
}

// statusForScore maps a score to its lifecycle band. Bands are ascending and
// inclusive; sticky statuses are handled by the caller.
func statusForScore(score int) string {
	switch {
	case score >= 80:
		return models.StatusQualified
	case score >= 61:
		return models.StatusReadyToBook
	case score >= 41:
		return models.StatusInterested
	case score >= 21:
		return models.StatusComparing
	default:
		return models.StatusBrowsing
	}
}

func clampScore(score int) int {
	if score < scoreMin {
		return scoreMin
	}
	if score > scoreMax {
		return scoreMax
	}
	return score
}
