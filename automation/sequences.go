package automation

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ascentcrm/models"
)

// SequenceStore is the CRUD layer over nurture sequence templates. No
// versioning: in-flight enrollments read the template live, so editing a
// sequence changes behavior from the next dispatch pass on.
type SequenceStore struct {
	db *gorm.DB
}

func NewSequenceStore(db *gorm.DB) *SequenceStore {
	return &SequenceStore{db: db}
}

// StepInput describes one step when creating or replacing a sequence.
type StepInput struct {
	DayOffset  int                   `json:"day_offset" validate:"min=0"`
	TemplateID uint                  `json:"template_id" validate:"required"`
	Condition  *models.StepCondition `json:"condition,omitempty"`
}

// CreateSequence persists a template with its ordered steps. Steps are
// renumbered 0..n-1 in the given order.
func (st *SequenceStore) CreateSequence(name, description, triggerType string, condition models.TriggerCondition, steps []StepInput) (*models.NurtureSequence, error) {
	if !validTriggerType(triggerType) {
		return nil, fmt.Errorf("unknown trigger type %q", triggerType)
	}

	seq := &models.NurtureSequence{
		Name:             name,
		Description:      description,
		TriggerType:      triggerType,
		TriggerCondition: condition,
		IsActive:         true,
	}
	for i, step := range steps {
		seq.Steps = append(seq.Steps, models.SequenceStep{
			StepNumber: i,
			DayOffset:  step.DayOffset,
			TemplateID: step.TemplateID,
			Condition:  step.Condition,
		})
	}

	if err := st.db.Create(seq).Error; err != nil {
		return nil, err
	}
	return seq, nil
}

// UpdateSequence replaces the sequence's fields and, when steps are given,
// its whole step list.
func (st *SequenceStore) UpdateSequence(id uint, name, description string, condition *models.TriggerCondition, isActive *bool, steps []StepInput) (*models.NurtureSequence, error) {
	seq, err := st.GetSequence(id)
	if err != nil {
		return nil, err
	}

	if name != "" {
		seq.Name = name
	}
	if description != "" {
		seq.Description = description
	}
	if condition != nil {
		seq.TriggerCondition = *condition
	}
	if isActive != nil {
		seq.IsActive = *isActive
	}

	err = st.db.Transaction(func(tx *gorm.DB) error {
		if steps != nil {
			if err := tx.Where("sequence_id = ?", seq.ID).Delete(&models.SequenceStep{}).Error; err != nil {
				return err
			}
			seq.Steps = nil
			for i, step := range steps {
				seq.Steps = append(seq.Steps, models.SequenceStep{
					SequenceID: seq.ID,
					StepNumber: i,
					DayOffset:  step.DayOffset,
					TemplateID: step.TemplateID,
					Condition:  step.Condition,
				})
			}
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(seq).Error
	})
	if err != nil {
		return nil, err
	}
	return seq, nil
}

// GetSequence loads one sequence with its steps in order.
func (st *SequenceStore) GetSequence(id uint) (*models.NurtureSequence, error) {
	var seq models.NurtureSequence
	err := st.db.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_number ASC")
	}).First(&seq, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrSequenceNotFound, id)
		}
		return nil, err
	}
	return &seq, nil
}

// GetActiveSequences lists every sequence eligible for trigger evaluation
// and dispatch.
func (st *SequenceStore) GetActiveSequences() ([]models.NurtureSequence, error) {
	var sequences []models.NurtureSequence
	err := st.db.Where("is_active = ?", true).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_number ASC")
		}).
		Order("id ASC").
		Find(&sequences).Error
	return sequences, err
}

func validTriggerType(triggerType string) bool {
	switch triggerType {
	case models.TriggerNewLead, models.TriggerAbandonedConversation, models.TriggerPostQuote,
		models.TriggerHighValueLead, models.TriggerPostInquiry:
		return true
	}
	return false
}
