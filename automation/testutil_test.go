package automation

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ascentcrm/config"
	"ascentcrm/models"
)

// setupTestDB opens a per-test in-memory database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, config.MigrateDB(db))
	return db
}

func createTestClient(t *testing.T, db *gorm.DB, email string) *models.Client {
	t.Helper()

	client := &models.Client{
		Email:     email,
		FirstName: "Alex",
		LastName:  "Rivera",
		Source:    "website",
	}
	require.NoError(t, db.Create(client).Error)
	return client
}

func createTestTemplate(t *testing.T, db *gorm.DB, name string) *models.EmailTemplate {
	t.Helper()

	tmpl := &models.EmailTemplate{
		Name:        name,
		Subject:     "Planning your next trek, {{.ClientName}}?",
		HTMLContent: "<p>Hi {{.ClientName}}, still thinking about {{join .Destinations \", \"}}? <a href=\"https://curatedascents.example/treks\">See departures</a></p>",
		Category:    "nurture",
	}
	require.NoError(t, db.Create(tmpl).Error)
	return tmpl
}

var templateSeq atomic.Uint32

// createTestSequence builds an active sequence whose steps reuse one
// template at the given day offsets.
func createTestSequence(t *testing.T, db *gorm.DB, triggerType string, dayOffsets ...int) *models.NurtureSequence {
	t.Helper()

	tmpl := createTestTemplate(t, db, fmt.Sprintf("tmpl-%s-%d", t.Name(), templateSeq.Add(1)))
	store := NewSequenceStore(db)

	var steps []StepInput
	for _, offset := range dayOffsets {
		steps = append(steps, StepInput{DayOffset: offset, TemplateID: tmpl.ID})
	}
	seq, err := store.CreateSequence("Test sequence", "", triggerType, models.TriggerCondition{}, steps)
	require.NoError(t, err)
	return seq
}

// sentMessage is one delivery captured by the fake transport.
type sentMessage struct {
	To        string
	Subject   string
	Body      string
	MessageID string
}

// fakeTransport records sends and can be told to fail.
type fakeTransport struct {
	mu   sync.Mutex
	sent []sentMessage
	fail bool
}

func (ft *fakeTransport) Send(to, subject, body, messageID string) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if ft.fail {
		return errors.New("smtp connection refused")
	}
	ft.sent = append(ft.sent, sentMessage{To: to, Subject: subject, Body: body, MessageID: messageID})
	return nil
}

func (ft *fakeTransport) sentCount() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return len(ft.sent)
}
