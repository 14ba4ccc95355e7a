package worker

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"

	"ascentcrm/automation"
)

// NurtureWorker runs the enrollment and dispatch passes on a fixed
// interval. Each tick first enrolls newly eligible clients, then sends
// whatever emails have come due.
type NurtureWorker struct {
	Engine   *automation.Engine
	Interval time.Duration
	Logger   *log.Logger
}

func NewNurtureWorker(engine *automation.Engine, interval time.Duration, logger *log.Logger) *NurtureWorker {
	return &NurtureWorker{
		Engine:   engine,
		Interval: interval,
		Logger:   logger,
	}
}

func (nw *NurtureWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	nw.Logger.Println("Nurture worker started")

	ticker := time.NewTicker(nw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			nw.Logger.Println("Nurture worker shutting down...")
			return
		case <-ticker.C:
			nw.runOnce()
		}
	}
}

func (nw *NurtureWorker) runOnce() {
	enrollResult, err := nw.Engine.Triggers.ProcessAutoEnrollments()
	if err != nil {
		nw.Logger.Printf("Enrollment pass failed: %v", err)
		sentry.CaptureException(err)
	} else if enrollResult.Enrolled > 0 || len(enrollResult.Errors) > 0 {
		nw.Logger.Printf("Enrollment pass: scanned %d sequences, enrolled %d, errors %d",
			enrollResult.Scanned, enrollResult.Enrolled, len(enrollResult.Errors))
		for _, msg := range enrollResult.Errors {
			nw.Logger.Printf("Enrollment error: %s", msg)
		}
	}

	dispatchResult, err := nw.Engine.Dispatcher.ProcessDueEmails(time.Now())
	if err != nil {
		nw.Logger.Printf("Dispatch pass failed: %v", err)
		sentry.CaptureException(err)
		return
	}
	if dispatchResult.Processed > 0 {
		nw.Logger.Printf("Dispatch pass: processed %d, sent %d, skipped %d, completed %d, errors %d",
			dispatchResult.Processed, dispatchResult.Sent, dispatchResult.Skipped,
			dispatchResult.Completed, len(dispatchResult.Errors))
		for _, msg := range dispatchResult.Errors {
			nw.Logger.Printf("Dispatch error: %s", msg)
		}
	}
}
