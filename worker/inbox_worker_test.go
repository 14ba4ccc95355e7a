package worker

import (
	"bytes"
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawTextReply = "From: alex@example.com\r\n" +
	"To: ops@curatedascents.example\r\n" +
	"Subject: Re: Planning your next trek\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Sounds great, march would work for us.\r\n"

func fetchedMessage(t *testing.T, item imap.FetchItem, raw string) *imap.Message {
	t.Helper()
	section, err := imap.ParseBodySectionName(item)
	require.NoError(t, err)
	return &imap.Message{
		Body: map[*imap.BodySectionName]imap.Literal{
			section: bytes.NewBufferString(raw),
		},
	}
}

func TestExtractTextBody(t *testing.T) {
	msg := fetchedMessage(t, imap.FetchItem("BODY[]"), rawTextReply)

	body, err := extractTextBody(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "march would work for us")
}

func TestExtractTextBodyPeekVariant(t *testing.T) {
	// Responses to a BODY.PEEK fetch come back keyed under the peek
	// section name; the lookup has to match it by name, not identity
	msg := fetchedMessage(t, imap.FetchItem("BODY.PEEK[]"), rawTextReply)

	body, err := extractTextBody(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "march would work for us")
}

func TestExtractTextBodyPrefersPlainOverHTML(t *testing.T) {
	raw := "From: alex@example.com\r\n" +
		"To: ops@curatedascents.example\r\n" +
		"Subject: Re: Planning your next trek\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=frontier\r\n" +
		"\r\n" +
		"--frontier\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain text reply\r\n" +
		"--frontier\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>html reply</p>\r\n" +
		"--frontier--\r\n"
	msg := fetchedMessage(t, imap.FetchItem("BODY[]"), raw)

	body, err := extractTextBody(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "plain text reply")
	assert.NotContains(t, body, "html reply")
}

func TestExtractTextBodyMissingSection(t *testing.T) {
	msg := &imap.Message{Body: map[*imap.BodySectionName]imap.Literal{}}

	_, err := extractTextBody(msg)
	assert.Error(t, err)
}
