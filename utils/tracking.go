package utils

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// GenerateTrackingToken derives the opaque token embedded in tracking URLs
// for a message. Random per message; stored alongside the tracking row.
func GenerateTrackingToken(messageID string) string {
	hash := sha256.Sum256([]byte(uuid.New().String() + messageID))
	return base64.URLEncoding.EncodeToString(hash[:])[:20]
}

// TrackingPixelURL builds the open-tracking pixel URL for a message.
func TrackingPixelURL(baseURL, messageID, token string) string {
	return fmt.Sprintf("%s/track/open/%s/%s", baseURL, messageID, token)
}

// ClickTrackURL builds a tracked redirect URL for a link.
func ClickTrackURL(baseURL, messageID, token, originalURL string) string {
	return fmt.Sprintf("%s/track/click/%s/%s?url=%s", baseURL, messageID, token, url.QueryEscape(originalURL))
}

// InjectTracking rewrites links through the click tracker and appends the
// open pixel to the rendered HTML body.
func InjectTracking(htmlContent, baseURL, messageID, token string) string {
	modified := injectClickTracking(htmlContent, baseURL, messageID, token)

	pixelURL := TrackingPixelURL(baseURL, messageID, token)
	pixel := fmt.Sprintf(`<img src="%s" alt="" width="1" height="1" style="display:none">`, pixelURL)
	return modified + pixel
}

func injectClickTracking(html, baseURL, messageID, token string) string {
	const startTag = `<a href="`
	const endTag = `"`
	offset := 0

	for {
		startIdx := strings.Index(html[offset:], startTag)
		if startIdx == -1 {
			break
		}
		startIdx += offset + len(startTag)

		endIdx := strings.Index(html[startIdx:], endTag)
		if endIdx == -1 {
			break
		}
		endIdx += startIdx

		originalURL := html[startIdx:endIdx]
		trackedURL := ClickTrackURL(baseURL, messageID, token, originalURL)

		html = html[:startIdx] + trackedURL + html[endIdx:]
		offset = startIdx + len(trackedURL)
	}

	return html
}
