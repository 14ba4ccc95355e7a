package worker

import (
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"ascentcrm/automation"
	"ascentcrm/models"
)

// DecayWorker runs the nightly penalty sweeps: inactivity decay for leads
// that have gone quiet, and score penalties for quotes that expired
// without a booking. Both sweeps are idempotent, each penalty fires at
// most once per lead per stage.
type DecayWorker struct {
	DB       *gorm.DB
	Engine   *automation.Engine
	CronSpec string
	Logger   *log.Logger

	cron *cron.Cron
}

func NewDecayWorker(db *gorm.DB, engine *automation.Engine, cronSpec string, logger *log.Logger) *DecayWorker {
	return &DecayWorker{
		DB:       db,
		Engine:   engine,
		CronSpec: cronSpec,
		Logger:   logger,
	}
}

func (dw *DecayWorker) Start() error {
	dw.cron = cron.New()
	if _, err := dw.cron.AddFunc(dw.CronSpec, dw.RunSweeps); err != nil {
		return err
	}
	dw.cron.Start()
	dw.Logger.Printf("Decay worker scheduled with spec %q", dw.CronSpec)
	return nil
}

func (dw *DecayWorker) Stop() {
	if dw.cron != nil {
		dw.cron.Stop()
	}
}

func (dw *DecayWorker) RunSweeps() {
	dw.sweepInactivity()
	dw.sweepExpiredQuotes()
}

func (dw *DecayWorker) sweepInactivity() {
	now := time.Now()
	cutoff7 := now.AddDate(0, 0, -7)
	cutoff14 := now.AddDate(0, 0, -14)

	// Second-stage decay first so a lead crossing both thresholds in one
	// sweep only takes the deeper penalty once per stage.
	var stale []models.LeadScore
	if err := dw.DB.
		Where("last_activity_at IS NOT NULL AND last_activity_at <= ?", cutoff14).
		Where("inactivity_decay_level < ?", 2).
		Where("status NOT IN ?", []string{models.StatusConverted, models.StatusLost}).
		Find(&stale).Error; err != nil {
		dw.Logger.Printf("Error fetching stale leads: %v", err)
		sentry.CaptureException(err)
		return
	}
	for _, score := range stale {
		dw.applyDecay(score.ClientID, models.EventInactivity14d)
	}

	var quiet []models.LeadScore
	if err := dw.DB.
		Where("last_activity_at IS NOT NULL AND last_activity_at <= ? AND last_activity_at > ?", cutoff7, cutoff14).
		Where("inactivity_decay_level = ?", 0).
		Where("status NOT IN ?", []string{models.StatusConverted, models.StatusLost}).
		Find(&quiet).Error; err != nil {
		dw.Logger.Printf("Error fetching quiet leads: %v", err)
		sentry.CaptureException(err)
		return
	}
	for _, score := range quiet {
		dw.applyDecay(score.ClientID, models.EventInactivity7d)
	}
}

func (dw *DecayWorker) applyDecay(clientID uint, eventType models.EventType) {
	// The scorer records the decay level alongside the penalty, which keeps
	// the sweep idempotent.
	if _, err := dw.Engine.Scorer.RecordEvent(clientID, eventType, models.EventPayload{}, "decay", ""); err != nil {
		dw.Logger.Printf("Error applying %s to client %d: %v", eventType, clientID, err)
		sentry.CaptureException(err)
	}
}

func (dw *DecayWorker) sweepExpiredQuotes() {
	var quotes []models.Quote
	err := dw.DB.
		Where("expires_at IS NOT NULL AND expires_at < ?", time.Now()).
		Where("expiry_processed = ?", false).
		Where("client_id NOT IN (?)", dw.DB.Model(&models.Booking{}).Select("client_id")).
		Find(&quotes).Error
	if err != nil {
		dw.Logger.Printf("Error fetching expired quotes: %v", err)
		sentry.CaptureException(err)
		return
	}

	for _, quote := range quotes {
		if _, err := dw.Engine.Scorer.RecordEvent(quote.ClientID, models.EventQuoteExpired, models.EventPayload{}, "decay", ""); err != nil {
			dw.Logger.Printf("Error applying quote expiry to client %d: %v", quote.ClientID, err)
			sentry.CaptureException(err)
			continue
		}
		if err := dw.DB.Model(&models.Quote{}).
			Where("id = ?", quote.ID).
			UpdateColumn("expiry_processed", true).Error; err != nil {
			dw.Logger.Printf("Error marking quote %d processed: %v", quote.ID, err)
		}
	}
}
