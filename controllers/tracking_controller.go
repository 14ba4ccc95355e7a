package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"ascentcrm/automation"
	"ascentcrm/models"
)

// trackingPixelGIF is a transparent 1x1 GIF served for open tracking.
var trackingPixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

type TrackingController struct {
	DB     *gorm.DB
	Engine *automation.Engine
	Logger *log.Logger
}

func NewTrackingController(db *gorm.DB, engine *automation.Engine, logger *log.Logger) *TrackingController {
	return &TrackingController{
		DB:     db,
		Engine: engine,
		Logger: logger,
	}
}

// TrackOpen serves the tracking pixel and records the open. Bad or stale
// links still get the pixel back so mail clients don't render a broken
// image.
func (tc *TrackingController) TrackOpen(c *fiber.Ctx) error {
	messageID := c.Params("messageID")
	token := c.Params("token")

	tracking, err := tc.resolve(messageID, token)
	if err == nil {
		now := time.Now()
		if tracking.OpenedAt == nil {
			tracking.OpenedAt = &now
		}
		tracking.OpenCount++
		if err := tc.DB.Save(tracking).Error; err != nil {
			tc.Logger.Printf("Failed to save open for message %s: %v", messageID, err)
		}
		tc.DB.Model(&models.SequenceEnrollment{}).
			Where("id = ?", tracking.EnrollmentID).
			UpdateColumn("emails_opened", gorm.Expr("emails_opened + 1"))

		payload := models.EventPayload{MessageID: messageID}
		if _, err := tc.Engine.Scorer.RecordEvent(tracking.ClientID, models.EventEmailOpened, payload, "tracking", ""); err != nil {
			tc.Logger.Printf("Failed to score open for client %d: %v", tracking.ClientID, err)
		}
	}

	c.Set("Content-Type", "image/gif")
	c.Set("Cache-Control", "no-store, no-cache, must-revalidate")
	return c.Send(trackingPixelGIF)
}

// TrackClick records the click and redirects to the original URL carried
// in the url query param.
func (tc *TrackingController) TrackClick(c *fiber.Ctx) error {
	messageID := c.Params("messageID")
	token := c.Params("token")
	targetURL := c.Query("url")

	tracking, err := tc.resolve(messageID, token)
	if err == nil {
		now := time.Now()
		if tracking.ClickedAt == nil {
			tracking.ClickedAt = &now
		}
		tracking.ClickCount++
		if err := tc.DB.Save(tracking).Error; err != nil {
			tc.Logger.Printf("Failed to save click for message %s: %v", messageID, err)
		}
		tc.DB.Model(&models.SequenceEnrollment{}).
			Where("id = ?", tracking.EnrollmentID).
			UpdateColumn("links_clicked", gorm.Expr("links_clicked + 1"))

		payload := models.EventPayload{MessageID: messageID, URL: targetURL}
		if _, err := tc.Engine.Scorer.RecordEvent(tracking.ClientID, models.EventLinkClicked, payload, "tracking", ""); err != nil {
			tc.Logger.Printf("Failed to score click for client %d: %v", tracking.ClientID, err)
		}
	}

	if targetURL == "" {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Redirect(targetURL, fiber.StatusFound)
}

func (tc *TrackingController) resolve(messageID, token string) (*models.EmailTracking, error) {
	var tracking models.EmailTracking
	if err := tc.DB.Where("message_id = ? AND token = ?", messageID, token).First(&tracking).Error; err != nil {
		return nil, err
	}
	return &tracking, nil
}
