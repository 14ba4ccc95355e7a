package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ascentcrm/automation"
	"ascentcrm/config"
	"ascentcrm/models"
)

type nopTransport struct{}

func (nopTransport) Send(to, subject, body, messageID string) error { return nil }

func setupControllerTest(t *testing.T) (*gorm.DB, *fiber.App, *ClientController) {
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

	engine := automation.NewEngine(db, nopTransport{}, "")
	cc := NewClientController(db, engine, log.New(io.Discard, "", 0))
	app := fiber.New()
	return db, app, cc
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestCreateQuoteCountsFirstQuote(t *testing.T) {
	db, app, cc := setupControllerTest(t)
	app.Post("/quotes", cc.CreateQuote)

	client := models.Client{Email: "alex@example.com", FirstName: "Alex"}
	require.NoError(t, db.Create(&client).Error)

	resp := postJSON(t, app, "/quotes", fiber.Map{
		"client_id":   client.ID,
		"destination": "Kilimanjaro",
		"amount":      4200.0,
		"currency":    "USD",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// The counter lands even though the client had no score row yet
	var score models.LeadScore
	require.NoError(t, db.Where("client_id = ?", client.ID).First(&score).Error)
	assert.Equal(t, 1, score.QuotesReceived)

	var quote models.Quote
	require.NoError(t, db.Where("client_id = ?", client.ID).First(&quote).Error)
	assert.Equal(t, "Kilimanjaro", quote.Destination)
	assert.Equal(t, 4200.0, quote.Amount)
}

func TestCreateQuoteUnknownClient(t *testing.T) {
	db, app, cc := setupControllerTest(t)
	app.Post("/quotes", cc.CreateQuote)

	resp := postJSON(t, app, "/quotes", fiber.Map{
		"client_id": 9999,
		"amount":    1000.0,
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.Quote{}).Count(&count).Error)
	assert.Zero(t, count)
}
