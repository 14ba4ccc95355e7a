package utils

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTrackingToken(t *testing.T) {
	token := GenerateTrackingToken("msg-1")
	assert.Len(t, token, 20)

	// Random per call even for the same message
	assert.NotEqual(t, token, GenerateTrackingToken("msg-1"))

	// URL-safe
	assert.Equal(t, token, url.PathEscape(token))
}

func TestInjectTrackingRewritesLinksAndAppendsPixel(t *testing.T) {
	body := `<p>See <a href="https://example.com/treks">our treks</a> and <a href="https://example.com/faq">the FAQ</a></p>`
	out := InjectTracking(body, "https://crm.example.com", "msg-1", "tok")

	assert.NotContains(t, out, `href="https://example.com/treks"`)
	assert.Contains(t, out, "https://crm.example.com/track/click/msg-1/tok?url="+url.QueryEscape("https://example.com/treks"))
	assert.Contains(t, out, "https://crm.example.com/track/click/msg-1/tok?url="+url.QueryEscape("https://example.com/faq"))
	assert.Contains(t, out, "https://crm.example.com/track/open/msg-1/tok")

	// The visible link text survives the rewrite
	assert.Contains(t, out, ">our treks</a>")
	require.True(t, strings.HasSuffix(out, `style="display:none">`))
}

func TestInjectTrackingNoLinks(t *testing.T) {
	out := InjectTracking("<p>plain text</p>", "https://crm.example.com", "msg-2", "tok")
	assert.Contains(t, out, "<p>plain text</p>")
	assert.Contains(t, out, "/track/open/msg-2/tok")
}
