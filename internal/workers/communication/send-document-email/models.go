package senddocumentemail

import "time"

type Input struct {
	UserEmail     string `json:"userEmail"`
	DocumentID    string `json:"documentId"`
	DocumentTitle string `json:"documentTitle,omitempty"`
	DocumentType  string `json:"documentType,omitempty"`
	DocumentURL   string `json:"documentUrl"`
}

type Output struct {
	MessageID string    `json:"messageId"`
	SentAt    time.Time `json:"sentAt"`
}
