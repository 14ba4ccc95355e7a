package automation

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ascentcrm/models"
)

// Per-trigger defaults applied when the template's condition leaves the
// field unset.
const (
	defaultNewLeadWindowDays   = 7
	defaultAbandonedAfterDays  = 2
	defaultPostQuoteWindowDays = 14
	defaultInquiryAgeDays      = 7
)

// Statuses that exclude a client from re-engagement triggers. "dormant" is
// never assigned by this engine but external writers may set it.
var reengagementExcludedStatuses = []string{models.StatusConverted, models.StatusLost, "dormant"}

// eligibilityFunc finds clients eligible for one trigger type, parameterized
// by the template's condition. One implementation is registered per trigger
// tag; adding a trigger type is a registration, not a new branch.
type eligibilityFunc func(db *gorm.DB, cond models.TriggerCondition, now time.Time) ([]uint, error)

// TriggerEvaluator periodically scans score records and enrolls eligible
// clients into active sequences.
type TriggerEvaluator struct {
	db          *gorm.DB
	store       *SequenceStore
	enrollments *EnrollmentService
	log         *logrus.Entry
	strategies  map[string]eligibilityFunc
}

func NewTriggerEvaluator(db *gorm.DB, store *SequenceStore, enrollments *EnrollmentService) *TriggerEvaluator {
	return &TriggerEvaluator{
		db:          db,
		store:       store,
		enrollments: enrollments,
		log:         logrus.WithField("component", "triggers"),
		strategies: map[string]eligibilityFunc{
			models.TriggerNewLead:               eligibleNewLeads,
			models.TriggerAbandonedConversation: eligibleAbandoned,
			models.TriggerPostQuote:             eligiblePostQuote,
			models.TriggerHighValueLead:         eligibleHighValue,
			models.TriggerPostInquiry:           eligiblePostInquiry,
		},
	}
}

// ProcessAutoEnrollments evaluates every active sequence against its
// trigger strategy and enrolls the eligible clients. One sequence's failure
// never aborts evaluation of the others; per-item errors are accumulated in
// the result.
func (te *TriggerEvaluator) ProcessAutoEnrollments() (*EnrollmentRunResult, error) {
	sequences, err := te.store.GetActiveSequences()
	if err != nil {
		return nil, err
	}

	result := &EnrollmentRunResult{}
	now := time.Now()

	for i := range sequences {
		seq := &sequences[i]
		strategy, ok := te.strategies[seq.TriggerType]
		if !ok {
			result.Errors = append(result.Errors,
				fmt.Sprintf("sequence %d: no strategy for trigger type %q", seq.ID, seq.TriggerType))
			continue
		}

		clientIDs, err := strategy(te.db, seq.TriggerCondition, now)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("sequence %d: eligibility query failed: %v", seq.ID, err))
			continue
		}

		result.Scanned += len(clientIDs)
		for _, clientID := range clientIDs {
			_, err := te.enrollments.Enroll(clientID, seq)
			if err != nil {
				if errors.Is(err, ErrAlreadyEnrolled) {
					continue
				}
				result.Errors = append(result.Errors,
					fmt.Sprintf("sequence %d client %d: %v", seq.ID, clientID, err))
				continue
			}
			result.Enrolled++
		}
	}

	te.log.WithFields(logrus.Fields{
		"scanned":  result.Scanned,
		"enrolled": result.Enrolled,
		"errors":   len(result.Errors),
	}).Info("auto-enrollment pass finished")

	return result, nil
}

// scoreBounds normalizes a condition's score band; an unset max means 100.
func scoreBounds(cond models.TriggerCondition) (int, int) {
	max := cond.MaxScore
	if max == 0 {
		max = scoreMax
	}
	return cond.MinScore, max
}

func eligibleNewLeads(db *gorm.DB, cond models.TriggerCondition, now time.Time) ([]uint, error) {
	window := cond.WindowDays
	if window == 0 {
		window = defaultNewLeadWindowDays
	}
	min, max := scoreBounds(cond)

	var ids []uint
	err := db.Model(&models.LeadScore{}).
		Where("first_activity_at >= ?", now.AddDate(0, 0, -window)).
		Where("current_score BETWEEN ? AND ?", min, max).
		Where("status NOT IN ?", reengagementExcludedStatuses).
		Pluck("client_id", &ids).Error
	return ids, err
}

func eligibleAbandoned(db *gorm.DB, cond models.TriggerCondition, now time.Time) ([]uint, error) {
	days := cond.DaysInactive
	if days == 0 {
		days = defaultAbandonedAfterDays
	}

	var ids []uint
	err := db.Model(&models.LeadScore{}).
		Where("last_activity_at IS NOT NULL AND last_activity_at <= ?", now.AddDate(0, 0, -days)).
		Where("status NOT IN ?", reengagementExcludedStatuses).
		Pluck("client_id", &ids).Error
	return ids, err
}

func eligiblePostQuote(db *gorm.DB, cond models.TriggerCondition, now time.Time) ([]uint, error) {
	window := cond.WindowDays
	if window == 0 {
		window = defaultPostQuoteWindowDays
	}

	var ids []uint
	err := db.Model(&models.Quote{}).
		Distinct("quotes.client_id").
		Where("quotes.created_at >= ?", now.AddDate(0, 0, -window)).
		Where("quotes.client_id NOT IN (?)",
			db.Model(&models.Booking{}).Select("client_id")).
		Pluck("client_id", &ids).Error
	return ids, err
}

func eligibleHighValue(db *gorm.DB, _ models.TriggerCondition, _ time.Time) ([]uint, error) {
	var ids []uint
	err := db.Model(&models.LeadScore{}).
		Where("is_high_value = ?", true).
		Where("status NOT IN ?", []string{models.StatusConverted, models.StatusLost}).
		Pluck("client_id", &ids).Error
	return ids, err
}

func eligiblePostInquiry(db *gorm.DB, cond models.TriggerCondition, now time.Time) ([]uint, error) {
	window := cond.WindowDays
	if window == 0 {
		window = defaultInquiryAgeDays
	}
	min, max := scoreBounds(cond)

	var ids []uint
	err := db.Model(&models.LeadScore{}).
		Where("first_activity_at IS NOT NULL AND first_activity_at <= ?", now.AddDate(0, 0, -window)).
		Where("current_score BETWEEN ? AND ?", min, max).
		Where("status IN ?", []string{models.StatusBrowsing, models.StatusComparing}).
		Pluck("client_id", &ids).Error
	return ids, err
}
