package worker

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"

	"ascentcrm/automation"
	"ascentcrm/config"
	"ascentcrm/models"
)

// InboxWorker polls the operator mailbox for replies from clients. A
// reply that matches a known client email is fed into the scoring engine
// as an interaction, so the signal extractor can pick budget, dates and
// destinations out of the reply text.
type InboxWorker struct {
	DB       *gorm.DB
	Engine   *automation.Engine
	IMAP     config.IMAPConfig
	Interval time.Duration
	Logger   *log.Logger
}

func NewInboxWorker(db *gorm.DB, engine *automation.Engine, imapCfg config.IMAPConfig, interval time.Duration, logger *log.Logger) *InboxWorker {
	return &InboxWorker{
		DB:       db,
		Engine:   engine,
		IMAP:     imapCfg,
		Interval: interval,
		Logger:   logger,
	}
}

func (iw *InboxWorker) Start(ctx context.Context) {
	iw.Logger.Println("Inbox worker started")

	ticker := time.NewTicker(iw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			iw.Logger.Println("Inbox worker shutting down...")
			return
		case <-ticker.C:
			if err := iw.fetchReplies(); err != nil {
				iw.Logger.Printf("Inbox fetch failed: %v", err)
				sentry.CaptureException(err)
			}
		}
	}
}

func (iw *InboxWorker) fetchReplies() error {
	imapAddr := fmt.Sprintf("%s:%d", iw.IMAP.Host, iw.IMAP.Port)
	imapClient, err := client.DialTLS(imapAddr, &tls.Config{
		InsecureSkipVerify: false,
		ServerName:         iw.IMAP.Host,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %v", err)
	}
	defer imapClient.Logout()

	if err := imapClient.Login(iw.IMAP.Username, iw.IMAP.Password); err != nil {
		return fmt.Errorf("failed to login to IMAP server: %v", err)
	}

	mailbox := iw.IMAP.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := imapClient.Select(mailbox, false); err != nil {
		return fmt.Errorf("failed to select mailbox: %v", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{"\\Seen"}
	ids, err := imapClient.Search(criteria)
	if err != nil {
		return fmt.Errorf("failed to search messages: %v", err)
	}
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	go func() {
		done <- imapClient.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchItem("BODY.PEEK[]"), imap.FetchFlags}, messages)
	}()

	processed := new(imap.SeqSet)
	for msg := range messages {
		if err := iw.processReply(msg); err != nil {
			iw.Logger.Printf("Failed to process message %d: %v", msg.SeqNum, err)
			continue
		}
		processed.AddNum(msg.SeqNum)
	}

	if err := <-done; err != nil {
		return fmt.Errorf("error during fetch: %v", err)
	}

	// Mark handled messages seen so the next poll skips them
	if !processed.Empty() {
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := imapClient.Store(processed, item, []interface{}{imap.SeenFlag}, nil); err != nil {
			iw.Logger.Printf("Failed to mark messages seen: %v", err)
		}
	}

	return nil
}

func (iw *InboxWorker) processReply(msg *imap.Message) error {
	if msg.Envelope == nil || len(msg.Envelope.From) == 0 {
		return fmt.Errorf("message has no envelope")
	}

	from := strings.ToLower(msg.Envelope.From[0].Address())

	var cl models.Client
	if err := iw.DB.Where("email = ?", from).First(&cl).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			// Not from a known client, leave it for a human
			return nil
		}
		return fmt.Errorf("failed to look up client: %v", err)
	}

	bodyText, err := extractTextBody(msg)
	if err != nil {
		return err
	}
	if strings.TrimSpace(bodyText) == "" {
		bodyText = msg.Envelope.Subject
	}

	conversationRef := msg.Envelope.InReplyTo
	if conversationRef == "" {
		conversationRef = msg.Envelope.MessageId
	}

	if _, err := iw.Engine.Scorer.RecordInteraction(cl.ID, conversationRef, bodyText, "email"); err != nil {
		return fmt.Errorf("failed to record interaction for client %d: %v", cl.ID, err)
	}

	iw.Logger.Printf("Recorded email reply from client %d (%s)", cl.ID, from)
	return nil
}

func extractTextBody(msg *imap.Message) (string, error) {
	if msg.Body == nil {
		return "", nil
	}

	// GetBody matches by section name, so it finds the literal whether the
	// server keyed it under the peek or non-peek variant.
	literal := msg.GetBody(&imap.BodySectionName{Peek: true})
	if literal == nil {
		return "", fmt.Errorf("message body not found")
	}

	mr, err := mail.CreateReader(literal)
	if err != nil {
		return "", fmt.Errorf("failed to create message reader: %v", err)
	}

	var bodyText, bodyHTML string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			return "", fmt.Errorf("failed to read next part: %v", err)
		}

		if h, ok := p.Header.(*mail.InlineHeader); ok {
			contentType, _, _ := h.ContentType()
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return "", fmt.Errorf("failed to read body: %v", err)
			}
			if strings.Contains(contentType, "text/plain") {
				bodyText = string(b)
			} else if strings.Contains(contentType, "text/html") {
				bodyHTML = string(b)
			}
		}
	}

	if bodyText != "" {
		return bodyText, nil
	}
	return bodyHTML, nil
}
