package automation

import (
	"gorm.io/gorm"

	"ascentcrm/models"
)

// SequenceStats aggregates enrollment and engagement totals for one
// sequence.
type SequenceStats struct {
	SequenceID   uint   `json:"sequence_id"`
	SequenceName string `json:"sequence_name"`
	TriggerType  string `json:"trigger_type"`
	IsActive     bool   `json:"is_active"`

	TotalEnrollments int `json:"total_enrollments"`
	Active           int `json:"active"`
	Paused           int `json:"paused"`
	Completed        int `json:"completed"`
	Cancelled        int `json:"cancelled"`

	EmailsSent   int `json:"emails_sent"`
	EmailsOpened int `json:"emails_opened"`
	LinksClicked int `json:"links_clicked"`
}

// StatsService serves the operator-facing read models.
type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

// GetNurtureStats returns per-sequence aggregates, optionally narrowed to a
// single sequence.
func (ss *StatsService) GetNurtureStats(sequenceID *uint) ([]SequenceStats, error) {
	query := ss.db.Model(&models.NurtureSequence{})
	if sequenceID != nil {
		query = query.Where("id = ?", *sequenceID)
	}

	var sequences []models.NurtureSequence
	if err := query.Order("id ASC").Find(&sequences).Error; err != nil {
		return nil, err
	}

	stats := make([]SequenceStats, 0, len(sequences))
	for _, seq := range sequences {
		entry := SequenceStats{
			SequenceID:   seq.ID,
			SequenceName: seq.Name,
			TriggerType:  seq.TriggerType,
			IsActive:     seq.IsActive,
		}

		var enrollments []models.SequenceEnrollment
		if err := ss.db.Where("sequence_id = ?", seq.ID).Find(&enrollments).Error; err != nil {
			return nil, err
		}

		for _, e := range enrollments {
			entry.TotalEnrollments++
			entry.EmailsSent += e.EmailsSent
			entry.EmailsOpened += e.EmailsOpened
			entry.LinksClicked += e.LinksClicked

			switch e.Status {
			case models.EnrollmentActive:
				entry.Active++
			case models.EnrollmentPaused:
				entry.Paused++
			case models.EnrollmentCompleted:
				entry.Completed++
			case models.EnrollmentCancelled:
				entry.Cancelled++
			}
		}
		stats = append(stats, entry)
	}
	return stats, nil
}

// GetClientNurtureHistory returns every enrollment the client has had, most
// recent first, with the owning sequence attached.
func (ss *StatsService) GetClientNurtureHistory(clientID uint) ([]models.SequenceEnrollment, error) {
	var enrollments []models.SequenceEnrollment
	err := ss.db.Where("client_id = ?", clientID).
		Preload("Sequence").
		Order("enrolled_at DESC").
		Find(&enrollments).Error
	return enrollments, err
}
