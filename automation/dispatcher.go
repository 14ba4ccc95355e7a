package automation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ascentcrm/models"
	"ascentcrm/utils"
)

// Transport delivers rendered content. The message ID correlates the send
// with its tracking row. External and allowed to fail transiently; the
// dispatcher retries failed steps on the next pass.
type Transport interface {
	Send(to, subject, body, messageID string) error
}

// Dispatcher is the periodic scheduler pass: it finds due enrollment steps,
// re-checks live eligibility, renders and sends, then advances state.
type Dispatcher struct {
	db          *gorm.DB
	enrollments *EnrollmentService
	scorer      *Scorer
	renderer    Renderer
	transport   Transport
	directory   ClientDirectory
	baseURL     string
	log         *logrus.Entry
}

func NewDispatcher(db *gorm.DB, enrollments *EnrollmentService, scorer *Scorer, renderer Renderer, transport Transport, directory ClientDirectory, baseURL string) *Dispatcher {
	return &Dispatcher{
		db:          db,
		enrollments: enrollments,
		scorer:      scorer,
		renderer:    renderer,
		transport:   transport,
		directory:   directory,
		baseURL:     baseURL,
		log:         logrus.WithField("component", "dispatcher"),
	}
}

// ProcessDueEmails handles every active enrollment whose NextEmailAt is at
// or before now. Enrollments of deactivated sequences are left untouched
// until the sequence is reactivated. Per-enrollment failures are collected,
// never propagated, so one bad enrollment cannot block the rest of the
// batch.
func (d *Dispatcher) ProcessDueEmails(now time.Time) (*DispatchRunResult, error) {
	var due []models.SequenceEnrollment
	err := d.db.
		Joins("JOIN nurture_sequences ON nurture_sequences.id = sequence_enrollments.sequence_id AND nurture_sequences.is_active = ?", true).
		Where("sequence_enrollments.status = ? AND sequence_enrollments.next_email_at <= ?", models.EnrollmentActive, now).
		Preload("Sequence").
		Preload("Sequence.Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_number ASC")
		}).
		Find(&due).Error
	if err != nil {
		return nil, err
	}

	result := &DispatchRunResult{}
	for i := range due {
		d.processEnrollment(&due[i], result)
	}

	d.log.WithFields(logrus.Fields{
		"processed": result.Processed,
		"sent":      result.Sent,
		"skipped":   result.Skipped,
		"completed": result.Completed,
		"errors":    len(result.Errors),
	}).Info("dispatch pass finished")

	return result, nil
}

func (d *Dispatcher) processEnrollment(enrollment *models.SequenceEnrollment, result *DispatchRunResult) {
	result.Processed++

	// Read the score fresh, not from enrollment time: a client who
	// converted since the last pass must not receive another email.
	score, err := d.scorer.GetOrCreateScore(enrollment.ClientID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("enrollment %d: %v", enrollment.ID, err))
		return
	}

	if score.Status == models.StatusConverted {
		if err := d.enrollments.cancel(d.db, enrollment, CancelReasonConverted); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("enrollment %d: cancel failed: %v", enrollment.ID, err))
		}
		return
	}

	steps := enrollment.Sequence.Steps
	if enrollment.CurrentStep >= len(steps) {
		completedAt := time.Now()
		enrollment.Status = models.EnrollmentCompleted
		enrollment.CompletedAt = &completedAt
		enrollment.NextEmailAt = nil
		if err := d.db.Save(enrollment).Error; err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("enrollment %d: complete failed: %v", enrollment.ID, err))
			return
		}
		result.Completed++
		return
	}

	step := steps[enrollment.CurrentStep]

	// A failed gate consumes the step's slot permanently: the step is
	// skipped, never re-checked on a later pass.
	if !stepConditionMet(step.Condition, score) {
		if err := d.enrollments.Advance(d.db, enrollment, steps, false); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("enrollment %d: advance failed: %v", enrollment.ID, err))
			return
		}
		d.bumpStepCounter(step.ID, "skipped_count")
		result.Skipped++
		if enrollment.Status == models.EnrollmentCompleted {
			result.Completed++
		}
		return
	}

	if err := d.dispatchStep(enrollment, &step, score); err != nil {
		// State untouched: the same step retries on the next pass.
		result.Errors = append(result.Errors, fmt.Sprintf("enrollment %d step %d: %v", enrollment.ID, step.StepNumber, err))
		return
	}

	if _, err := d.scorer.RecordEvent(enrollment.ClientID, models.EventNurtureEmailSent,
		models.EventPayload{}, "nurture", ""); err != nil {
		d.log.WithError(err).WithField("enrollment_id", enrollment.ID).Warn("failed to record send event")
	}

	if err := d.enrollments.Advance(d.db, enrollment, steps, true); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("enrollment %d: advance failed: %v", enrollment.ID, err))
		return
	}
	d.bumpStepCounter(step.ID, "sent_count")
	result.Sent++
	if enrollment.Status == models.EnrollmentCompleted {
		result.Completed++
	}
}

// dispatchStep renders the step's template, injects tracking and hands the
// message to the transport. No locks are held across these external calls.
func (d *Dispatcher) dispatchStep(enrollment *models.SequenceEnrollment, step *models.SequenceStep, score *models.LeadScore) error {
	info, err := d.directory.Lookup(enrollment.ClientID)
	if err != nil {
		return err
	}

	subject, body, err := d.renderer.Render(step.TemplateID, renderDataFor(info, score))
	if err != nil {
		return err
	}

	messageID := uuid.New().String()
	token := utils.GenerateTrackingToken(messageID)
	if d.baseURL != "" {
		body = utils.InjectTracking(body, d.baseURL, messageID, token)
	}

	if err := d.transport.Send(info.Email, subject, body, messageID); err != nil {
		return &DeliveryError{Recipient: info.Email, Err: err}
	}

	tracking := models.EmailTracking{
		MessageID:    messageID,
		Token:        token,
		ClientID:     enrollment.ClientID,
		EnrollmentID: enrollment.ID,
		StepID:       step.ID,
		Subject:      subject,
		SentAt:       time.Now(),
	}
	if err := d.db.Create(&tracking).Error; err != nil {
		d.log.WithError(err).WithField("message_id", messageID).Warn("failed to persist tracking row")
	}
	return nil
}

func (d *Dispatcher) bumpStepCounter(stepID uint, column string) {
	if err := d.db.Model(&models.SequenceStep{}).
		Where("id = ?", stepID).
		Update(column, gorm.Expr(column+" + ?", 1)).Error; err != nil {
		d.log.WithError(err).WithField("step_id", stepID).Warn("failed to bump step counter")
	}
}

// stepConditionMet evaluates a step's gate against the live score snapshot.
func stepConditionMet(cond *models.StepCondition, score *models.LeadScore) bool {
	if cond == nil {
		return true
	}
	if score.CurrentScore < cond.MinScore {
		return false
	}
	if cond.MaxScore > 0 && score.CurrentScore > cond.MaxScore {
		return false
	}
	if len(cond.AllowedStatuses) > 0 {
		allowed := false
		for _, status := range cond.AllowedStatuses {
			if score.Status == status {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	return true
}

func renderDataFor(info *ClientInfo, score *models.LeadScore) RenderData {
	data := RenderData{
		ClientName:   info.Name,
		Destinations: score.Destinations,
	}
	if data.ClientName == "" {
		data.ClientName = "traveler"
	}
	if score.BudgetAmount > 0 {
		data.Budget = fmt.Sprintf("%.0f %s", score.BudgetAmount, score.BudgetCurrency)
	}
	switch {
	case score.TravelDateStart != nil:
		data.TravelDates = score.TravelDateStart.Format("Jan 2, 2006")
		if score.TravelDateEnd != nil {
			data.TravelDates += " - " + score.TravelDateEnd.Format("Jan 2, 2006")
		}
	case score.TravelMonth != "":
		data.TravelDates = score.TravelMonth
	case score.TravelSeason != "":
		data.TravelDates = score.TravelSeason
	}
	return data
}
