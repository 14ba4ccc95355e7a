package automation

import (
	"gorm.io/gorm"
)

// Engine bundles the nurture services with their cross-wiring done: the
// scorer's conversion guard is the enrollment service, and the dispatcher
// reads scores fresh through the scorer.
type Engine struct {
	Scorer      *Scorer
	Sequences   *SequenceStore
	Enrollments *EnrollmentService
	Triggers    *TriggerEvaluator
	Dispatcher  *Dispatcher
	Stats       *StatsService
}

// NewEngine builds the full engine over one database handle. Transport is
// the only hard external dependency; pass the SMTP mailer in production and
// a fake in tests.
func NewEngine(db *gorm.DB, transport Transport, baseURL string) *Engine {
	scorer := NewScorer(db)
	sequences := NewSequenceStore(db)
	enrollments := NewEnrollmentService(db)
	scorer.SetConversionGuard(enrollments)

	return &Engine{
		Scorer:      scorer,
		Sequences:   sequences,
		Enrollments: enrollments,
		Triggers:    NewTriggerEvaluator(db, sequences, enrollments),
		Dispatcher:  NewDispatcher(db, enrollments, scorer, NewTemplateRenderer(db), transport, NewGormDirectory(db), baseURL),
		Stats:       NewStatsService(db),
	}
}
