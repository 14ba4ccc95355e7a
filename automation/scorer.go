package automation

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ascentcrm/models"
)

// Cancellation reasons used by the conversion guard.
const (
	CancelReasonConverted = "Lead converted to booking"
	CancelReasonLost      = "Lead marked as lost"
)

// ConversionGuard force-cancels live enrollments when a client converts or
// is lost. Implemented by the enrollment service; injected to avoid a
// dependency cycle between scoring and enrollment.
type ConversionGuard interface {
	CancelForClient(clientID uint, reason string) (int, error)
}

// Scorer is the event recorder and score state machine. All score mutations
// go through RecordEvent, which serializes per client and appends one
// immutable LeadEvent row per applied event.
type Scorer struct {
	db    *gorm.DB
	log   *logrus.Entry
	locks *clientLocks
	guard ConversionGuard
}

func NewScorer(db *gorm.DB) *Scorer {
	return &Scorer{
		db:    db,
		log:   logrus.WithField("component", "scorer"),
		locks: newClientLocks(),
	}
}

// SetConversionGuard wires the enrollment service in after construction.
func (s *Scorer) SetConversionGuard(guard ConversionGuard) {
	s.guard = guard
}

// GetOrCreateScore returns the client's score record, creating a fresh one
// (score 0, status new) on first contact.
func (s *Scorer) GetOrCreateScore(clientID uint) (*models.LeadScore, error) {
	var client models.Client
	if err := s.db.First(&client, clientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrClientNotFound, clientID)
		}
		return nil, err
	}

	score := models.LeadScore{ClientID: clientID, Status: models.StatusNew}
	if err := s.db.Where(models.LeadScore{ClientID: clientID}).FirstOrCreate(&score).Error; err != nil {
		return nil, err
	}
	return &score, nil
}

// RecordEvent applies one typed event to the client's score record and
// appends the event log row. Events for the same client apply in submission
// order; the per-client lock covers the whole read-modify-write.
func (s *Scorer) RecordEvent(clientID uint, eventType models.EventType, payload models.EventPayload, source, conversationRef string) (*models.LeadEvent, error) {
	unlock := s.locks.lock(clientID)
	defer unlock()

	score, err := s.GetOrCreateScore(clientID)
	if err != nil {
		return nil, err
	}

	delta, bucket, err := scoreDelta(score, eventType, payload)
	if err != nil {
		return nil, err
	}

	before := score.CurrentScore
	after := clampScore(before + delta)
	score.CurrentScore = after

	switch bucket {
	case bucketBudget:
		score.BudgetScore += delta
	case bucketTimeline:
		score.TimelineScore += delta
	case bucketIntent:
		score.IntentScore += delta
	default:
		score.EngagementScore += delta
	}

	s.applyAttributes(score, eventType, payload)

	if !score.IsSticky() {
		score.Status = statusForScore(after)
	}

	if after >= qualificationThreshold && !score.IsHighValue {
		score.IsHighValue = true
		score.RequiresHumanHandoff = true
		score.HandoffReason = fmt.Sprintf("score reached %d (qualification threshold)", after)
	}

	event := &models.LeadEvent{
		ClientID:        clientID,
		EventType:       eventType,
		Payload:         payload,
		ScoreChange:     after - before,
		ScoreBefore:     before,
		ScoreAfter:      after,
		Source:          source,
		ConversationRef: conversationRef,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(score).Error; err != nil {
			return err
		}
		return tx.Create(event).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"client_id":  clientID,
		"event_type": eventType,
		"delta":      after - before,
		"score":      after,
		"status":     score.Status,
	}).Debug("event recorded")

	return event, nil
}

// RecordInteraction runs the signal extractor over one piece of interaction
// text and records every resulting event, plus conversation bookkeeping when
// a conversation reference is supplied.
func (s *Scorer) RecordInteraction(clientID uint, conversationRef, text, source string) ([]*models.LeadEvent, error) {
	var recorded []*models.LeadEvent

	if conversationRef != "" {
		eventType := models.EventMessageReceived
		var count int64
		if err := s.db.Model(&models.LeadEvent{}).
			Where("client_id = ? AND conversation_ref = ?", clientID, conversationRef).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			eventType = models.EventConversationStarted
		}
		event, err := s.RecordEvent(clientID, eventType, models.EventPayload{}, source, conversationRef)
		if err != nil {
			return nil, err
		}
		recorded = append(recorded, event)
	}

	signals := ExtractSignals(text)
	for _, sig := range signals {
		// The conversation event above already registered engagement, so
		// the extractor's bare fallback would double-count the message.
		if sig.Type == models.EventActivityContinued && len(recorded) > 0 {
			continue
		}
		event, err := s.RecordEvent(clientID, sig.Type, sig.Payload, source, conversationRef)
		if err != nil {
			return recorded, err
		}
		recorded = append(recorded, event)
	}
	return recorded, nil
}

// MarkConverted forces the terminal converted state, logs a synthetic event
// and synchronously cancels every live enrollment for the client. Returns
// the number of enrollments cancelled.
func (s *Scorer) MarkConverted(clientID uint, bookingRef string) (int, error) {
	if err := s.forceTerminal(clientID, models.StatusConverted, models.EventPayload{BookingRef: bookingRef}); err != nil {
		return 0, err
	}
	if s.guard == nil {
		return 0, nil
	}
	return s.guard.CancelForClient(clientID, CancelReasonConverted)
}

// MarkLost forces the terminal lost state, logs the reason and cancels every
// live enrollment for the client.
func (s *Scorer) MarkLost(clientID uint, reason string) (int, error) {
	if err := s.forceTerminal(clientID, models.StatusLost, models.EventPayload{LostReason: reason}); err != nil {
		return 0, err
	}
	if s.guard == nil {
		return 0, nil
	}
	return s.guard.CancelForClient(clientID, CancelReasonLost)
}

func (s *Scorer) forceTerminal(clientID uint, status string, payload models.EventPayload) error {
	unlock := s.locks.lock(clientID)
	defer unlock()

	score, err := s.GetOrCreateScore(clientID)
	if err != nil {
		return err
	}

	before := score.CurrentScore
	eventType := models.EventMarkedLost
	score.Status = status

	if status == models.StatusConverted {
		eventType = models.EventConverted
		now := time.Now()
		score.CurrentScore = scoreMax
		score.IsHighValue = true
		score.ConvertedAt = &now
		score.ConversionRef = payload.BookingRef
	}

	event := &models.LeadEvent{
		ClientID:    clientID,
		EventType:   eventType,
		Payload:     payload,
		ScoreChange: score.CurrentScore - before,
		ScoreBefore: before,
		ScoreAfter:  score.CurrentScore,
		Source:      "system",
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(score).Error; err != nil {
			return err
		}
		return tx.Create(event).Error
	})
}

// ScoreSummary is the read model returned to operators.
type ScoreSummary struct {
	Score        models.LeadScore   `json:"score"`
	RecentEvents []models.LeadEvent `json:"recent_events"`
}

// GetScoreSummary returns the score record plus the most recent events.
func (s *Scorer) GetScoreSummary(clientID uint) (*ScoreSummary, error) {
	score, err := s.GetOrCreateScore(clientID)
	if err != nil {
		return nil, err
	}

	var events []models.LeadEvent
	if err := s.db.Where("client_id = ?", clientID).
		Order("created_at DESC").
		Limit(20).
		Find(&events).Error; err != nil {
		return nil, err
	}

	return &ScoreSummary{Score: *score, RecentEvents: events}, nil
}

// applyAttributes folds detected trip attributes and engagement counters
// into the score record.
func (s *Scorer) applyAttributes(score *models.LeadScore, eventType models.EventType, payload models.EventPayload) {
	now := time.Now()

	switch eventType {
	case models.EventBudgetMentioned:
		score.BudgetAmount = payload.Amount
		score.BudgetCurrency = payload.Currency
	case models.EventDatesMentioned:
		switch payload.Specificity {
		case models.DateSpecificityDate:
			if start, err := time.Parse("2006-01-02", payload.DateStart); err == nil {
				score.TravelDateStart = &start
			}
			if end, err := time.Parse("2006-01-02", payload.DateEnd); err == nil {
				score.TravelDateEnd = &end
			}
		case models.DateSpecificityMonth:
			score.TravelMonth = payload.Month
		default:
			score.TravelSeason = payload.Season
		}
	case models.EventDestinationMentioned:
		score.Destinations = mergeDestinations(score.Destinations, payload.Destinations)
	case models.EventPartySizeMentioned:
		score.PartySize = payload.PartySize
	case models.EventQuoteRequested:
		score.QuotesRequested++
	case models.EventEmailOpened:
		score.EmailsOpened++
	case models.EventLinkClicked:
		score.LinksClicked++
	case models.EventConversationStarted:
		score.ConversationCount++
		score.LastConversationAt = &now
	case models.EventMessageReceived:
		score.MessageCount++
	case models.EventInactivity7d:
		score.InactivityDecayLevel = 1
	case models.EventInactivity14d:
		score.InactivityDecayLevel = 2
	}

	switch eventType {
	case models.EventInactivity7d, models.EventInactivity14d, models.EventQuoteExpired,
		models.EventNurtureEmailSent, models.EventConverted, models.EventMarkedLost:
		// System events do not count as client activity.
	default:
		if score.FirstActivityAt == nil {
			score.FirstActivityAt = &now
		}
		score.LastActivityAt = &now
		score.InactivityDecayLevel = 0
	}
}

func mergeDestinations(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, d := range existing {
		seen[d] = true
	}
	for _, d := range incoming {
		if !seen[d] {
			seen[d] = true
			existing = append(existing, d)
		}
	}
	return existing
}
