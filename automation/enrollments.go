package automation

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ascentcrm/models"
)

// EnrollmentService owns the per-(client, sequence) enrollment state
// machine: active -> active/completed via advance, active <-> paused via
// explicit pause/resume, and active/paused -> cancelled explicitly or via
// the conversion guard.
type EnrollmentService struct {
	db  *gorm.DB
	log *logrus.Entry
}

func NewEnrollmentService(db *gorm.DB) *EnrollmentService {
	return &EnrollmentService{
		db:  db,
		log: logrus.WithField("component", "enrollments"),
	}
}

// Enroll creates an active enrollment at step 0 with the first step's
// offset applied. A live (active or paused) enrollment for the same pair is
// rejected with ErrAlreadyEnrolled.
func (es *EnrollmentService) Enroll(clientID uint, seq *models.NurtureSequence) (*models.SequenceEnrollment, error) {
	if !seq.IsActive {
		return nil, fmt.Errorf("%w: id %d", ErrSequenceInactive, seq.ID)
	}

	var existing models.SequenceEnrollment
	err := es.db.Where("client_id = ? AND sequence_id = ? AND status IN ?",
		clientID, seq.ID, []string{models.EnrollmentActive, models.EnrollmentPaused}).
		First(&existing).Error
	if err == nil {
		return nil, ErrAlreadyEnrolled
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	enrollment := &models.SequenceEnrollment{
		ClientID:   clientID,
		SequenceID: seq.ID,
		Status:     models.EnrollmentActive,
		EnrolledAt: now,
	}
	if len(seq.Steps) > 0 {
		next := now.AddDate(0, 0, seq.Steps[0].DayOffset)
		enrollment.NextEmailAt = &next
	} else {
		enrollment.NextEmailAt = &now
	}

	err = es.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(enrollment).Error; err != nil {
			return err
		}
		return tx.Model(&models.NurtureSequence{}).
			Where("id = ?", seq.ID).
			Update("total_enrolled", gorm.Expr("total_enrolled + ?", 1)).Error
	})
	if err != nil {
		return nil, err
	}

	es.log.WithFields(logrus.Fields{
		"client_id":   clientID,
		"sequence_id": seq.ID,
		"next_email":  enrollment.NextEmailAt,
	}).Info("client enrolled")

	return enrollment, nil
}

// Get loads one enrollment with its sequence and steps.
func (es *EnrollmentService) Get(id uint) (*models.SequenceEnrollment, error) {
	var enrollment models.SequenceEnrollment
	err := es.db.Preload("Sequence.Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_number ASC")
	}).First(&enrollment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrEnrollmentNotFound, id)
		}
		return nil, err
	}
	return &enrollment, nil
}

// Pause suspends an active enrollment. NextEmailAt stays as-is but is
// ignored while paused.
func (es *EnrollmentService) Pause(id uint) (*models.SequenceEnrollment, error) {
	enrollment, err := es.Get(id)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentActive {
		return nil, fmt.Errorf("%w: cannot pause %s enrollment", ErrInvalidTransition, enrollment.Status)
	}

	enrollment.Status = models.EnrollmentPaused
	if err := es.db.Save(enrollment).Error; err != nil {
		return nil, err
	}
	return enrollment, nil
}

// Resume reactivates a paused enrollment. The next dispatch is reset to
// tomorrow regardless of the sequence's original cadence (fast catch-up).
func (es *EnrollmentService) Resume(id uint) (*models.SequenceEnrollment, error) {
	enrollment, err := es.Get(id)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentPaused {
		return nil, fmt.Errorf("%w: cannot resume %s enrollment", ErrInvalidTransition, enrollment.Status)
	}

	next := time.Now().AddDate(0, 0, 1)
	enrollment.Status = models.EnrollmentActive
	enrollment.NextEmailAt = &next
	if err := es.db.Save(enrollment).Error; err != nil {
		return nil, err
	}
	return enrollment, nil
}

// Cancel terminates a live enrollment with a reason. Completed and
// cancelled enrollments are immutable.
func (es *EnrollmentService) Cancel(id uint, reason string) (*models.SequenceEnrollment, error) {
	enrollment, err := es.Get(id)
	if err != nil {
		return nil, err
	}
	if enrollment.IsClosed() {
		return nil, fmt.Errorf("%w: enrollment already %s", ErrInvalidTransition, enrollment.Status)
	}

	if err := es.cancel(es.db, enrollment, reason); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// CancelForClient is the conversion guard: it cancels every active or
// paused enrollment the client has, across all sequences, and returns the
// count. Called synchronously from MarkConverted/MarkLost.
func (es *EnrollmentService) CancelForClient(clientID uint, reason string) (int, error) {
	var live []models.SequenceEnrollment
	err := es.db.Where("client_id = ? AND status IN ?",
		clientID, []string{models.EnrollmentActive, models.EnrollmentPaused}).
		Find(&live).Error
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for i := range live {
		if err := es.cancel(es.db, &live[i], reason); err != nil {
			return cancelled, err
		}
		cancelled++
	}

	if cancelled > 0 {
		es.log.WithFields(logrus.Fields{
			"client_id": clientID,
			"cancelled": cancelled,
			"reason":    reason,
		}).Info("conversion guard cancelled enrollments")
	}
	return cancelled, nil
}

// Advance moves the enrollment past its current step: bumps the step index
// and sent counters, stamps LastEmailSentAt, and recomputes NextEmailAt from
// the delta between consecutive steps' day offsets so uneven cadences are
// preserved. With no step left the enrollment completes.
func (es *EnrollmentService) Advance(tx *gorm.DB, enrollment *models.SequenceEnrollment, steps []models.SequenceStep, sent bool) error {
	now := time.Now()
	current := enrollment.CurrentStep

	enrollment.CurrentStep = current + 1
	if sent {
		enrollment.EmailsSent++
		enrollment.LastEmailSentAt = &now
	}

	if enrollment.CurrentStep < len(steps) {
		gapDays := steps[enrollment.CurrentStep].DayOffset - steps[current].DayOffset
		if gapDays < 0 {
			gapDays = 0
		}
		var base time.Time
		if enrollment.NextEmailAt != nil {
			base = *enrollment.NextEmailAt
		} else {
			base = now
		}
		next := base.AddDate(0, 0, gapDays)
		enrollment.NextEmailAt = &next
		return tx.Save(enrollment).Error
	}

	enrollment.Status = models.EnrollmentCompleted
	enrollment.CompletedAt = &now
	enrollment.NextEmailAt = nil

	if err := tx.Save(enrollment).Error; err != nil {
		return err
	}
	return tx.Model(&models.NurtureSequence{}).
		Where("id = ?", enrollment.SequenceID).
		Update("total_completed", gorm.Expr("total_completed + ?", 1)).Error
}

func (es *EnrollmentService) cancel(tx *gorm.DB, enrollment *models.SequenceEnrollment, reason string) error {
	now := time.Now()
	enrollment.Status = models.EnrollmentCancelled
	enrollment.CancelledAt = &now
	enrollment.CancelReason = reason
	enrollment.NextEmailAt = nil
	return tx.Save(enrollment).Error
}
