// Package notify sends the optional side-channel notifications: an SES mail
// when a document is ready and SNS events when shares change. Failures are
// logged and never fail the calling operation.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"immo-workers/internal/common/logger"
	"immo-workers/internal/documents"
	"immo-workers/internal/wizard"

	"github.com/google/uuid"
)

// Mailer sends one HTML mail.
type Mailer interface {
	SendHTML(ctx context.Context, from, to, subject, html, text string) (string, error)
}

// Publisher publishes one JSON event.
type Publisher interface {
	PublishJSON(ctx context.Context, topicARN, eventType string, payload interface{}) (string, error)
}

const (
	templateDocumentReady = "document_ready"
)

type template struct {
	subject string
	body    string
}

var templates = map[string]template{
	templateDocumentReady: {
		subject: "Ihr Dokument „{{title}}“ ist fertig",
		body: "Guten Tag,\n\nIhr Dokument „{{title}}“ wurde erstellt und steht zum Download bereit:\n{{fileUrl}}\n\n" +
			"Sie finden es außerdem in Ihrer Dokumentenübersicht.",
	},
}

// Email implements wizard.Notifier over SES.
type Email struct {
	mailer Mailer
	from   string
	logger logger.Logger
}

// NewEmail returns nil when mailer is nil or from is empty, which callers
// treat as disabled.
func NewEmail(mailer Mailer, from string, log logger.Logger) *Email {
	if mailer == nil || from == "" {
		return nil
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Email{mailer: mailer, from: from, logger: log.With(map[string]interface{}{"component": "notify.email"})}
}

func (e *Email) DocumentReady(ctx context.Context, recipient string, doc wizard.GeneratedDocument) {
	if e == nil || recipient == "" {
		return
	}
	if _, err := e.Send(ctx, recipient, doc); err != nil {
		e.logger.WithError(err).Error("email send failed", map[string]interface{}{
			"recipient":  recipient,
			"documentId": doc.ID,
		})
	}
}

// Send mails the document-ready notice and returns the SES message ID.
func (e *Email) Send(ctx context.Context, recipient string, doc wizard.GeneratedDocument) (string, error) {
	if e == nil {
		return "", fmt.Errorf("email notifications are disabled")
	}
	tmpl := templates[templateDocumentReady]
	data := map[string]interface{}{
		"title":   doc.Title,
		"fileUrl": doc.FileURL,
		"id":      doc.ID,
	}
	subject := render(tmpl.subject, data, false)
	text := render(tmpl.body, data, false)
	body := "<p>" + strings.ReplaceAll(render(tmpl.body, data, true), "\n", "<br>") + "</p>"

	messageID, err := e.mailer.SendHTML(ctx, e.from, recipient, subject, body, text)
	if err != nil {
		return "", err
	}
	e.logger.Info("document mail sent", map[string]interface{}{
		"recipient":  recipient,
		"documentId": doc.ID,
		"messageId":  messageID,
	})
	return messageID, nil
}

// ShareEvent is the SNS message body for share changes.
type ShareEvent struct {
	EventID     string    `json:"eventId"`
	EventType   string    `json:"eventType"`
	ShareID     string    `json:"shareId"`
	DocumentID  string    `json:"documentId"`
	TargetApp   string    `json:"targetApp"`
	AccessLevel string    `json:"accessLevel,omitempty"`
	SharedWith  string    `json:"sharedWith,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Events implements documents.ShareNotifier over SNS.
type Events struct {
	publisher Publisher
	topicARN  string
	logger    logger.Logger
	now       func() time.Time
}

func NewEvents(publisher Publisher, topicARN string, log logger.Logger) *Events {
	if publisher == nil || topicARN == "" {
		return nil
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Events{
		publisher: publisher,
		topicARN:  topicARN,
		logger:    log.With(map[string]interface{}{"component": "notify.events"}),
		now:       time.Now,
	}
}

func (e *Events) ShareEvent(ctx context.Context, eventType string, share documents.Share) {
	if e == nil {
		return
	}
	event := ShareEvent{
		EventID:     uuid.New().String(),
		EventType:   eventType,
		ShareID:     share.ID,
		DocumentID:  share.DocumentID,
		TargetApp:   share.TargetApp,
		AccessLevel: share.AccessLevel,
		SharedWith:  share.SharedWith,
		OccurredAt:  e.now().UTC(),
	}
	if _, err := e.publisher.PublishJSON(ctx, e.topicARN, eventType, event); err != nil {
		e.logger.WithError(err).Error("event publish failed", map[string]interface{}{
			"eventType": eventType,
			"shareId":   share.ID,
		})
	}
}

// render replaces {{key}} placeholders and drops unknown ones.
func render(tmpl string, data map[string]interface{}, escape bool) string {
	var b strings.Builder
	rest := tmpl
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(rest[start:], "}}")
		if end == -1 {
			break
		}
		b.WriteString(rest[:start])
		key := strings.TrimSpace(rest[start+2 : start+end])
		if v, ok := data[key]; ok && v != nil {
			s := fmt.Sprint(v)
			if escape {
				s = html.EscapeString(s)
			}
			b.WriteString(s)
		}
		rest = rest[start+end+2:]
	}
	b.WriteString(rest)
	return b.String()
}
