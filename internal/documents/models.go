// Package documents lists and manages generated documents and their
// cross-app shares.
package documents

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Timestamp accepts the date formats the entity store returns.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			t.Time = ts.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: unsupported format %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// Document is a GeneratedDocument entity.
type Document struct {
	ID           string                 `json:"id"`
	Title        string                 `json:"title"`
	DocumentType string                 `json:"document_type"`
	FileURL      string                 `json:"file_url,omitempty"`
	Status       string                 `json:"status,omitempty"`
	CreatedBy    string                 `json:"created_by"`
	CreatedDate  Timestamp              `json:"created_date"`
	Data         map[string]interface{} `json:"data,omitempty"`
}

func documentID(d Document) string { return d.ID }

// Access levels of a cross-app share.
const (
	AccessView     = "view"
	AccessDownload = "download"
	AccessEdit     = "edit"
)

var accessLevels = []string{AccessView, AccessDownload, AccessEdit}

func validAccessLevel(level string) bool {
	for _, l := range accessLevels {
		if l == level {
			return true
		}
	}
	return false
}

// Share is a document shared into another app of the ecosystem.
type Share struct {
	ID            string     `json:"id"`
	DocumentID    string     `json:"document_id"`
	DocumentTitle string     `json:"document_title"`
	TargetApp     string     `json:"target_app"`
	AccessLevel   string     `json:"access_level"`
	SharedWith    string     `json:"shared_with,omitempty"`
	SharedBy      string     `json:"shared_by,omitempty"`
	Status        string     `json:"status,omitempty"`
	DownloadCount int        `json:"download_count"`
	CreatedDate   Timestamp  `json:"created_date"`
	ExpiresAt     *Timestamp `json:"expires_at,omitempty"`
}

func shareID(s Share) string { return s.ID }

// Expired reports whether the share has an expiry before now.
func (s Share) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(now)
}

// ShareStats summarises the shares of one document.
type ShareStats struct {
	TotalShares    int            `json:"total_shares"`
	ActiveShares   int            `json:"active_shares"`
	TotalDownloads int            `json:"total_downloads"`
	ByApp          map[string]int `json:"by_app,omitempty"`
}

// ShareRequest shares a document into another app.
type ShareRequest struct {
	DocumentID    string `json:"document_id"`
	TargetApp     string `json:"target_app"`
	AccessLevel   string `json:"access_level"`
	SharedWith    string `json:"shared_with,omitempty"`
	ExpiresInDays int    `json:"expires_in_days,omitempty"`
}

// EmailRequest sends a generated document by email.
type EmailRequest struct {
	DocumentID string `json:"document_id"`
	Recipient  string `json:"recipient_email"`
	Subject    string `json:"subject,omitempty"`
	Message    string `json:"message,omitempty"`
}

// DocumentRequest asks a tenant or owner to upload documents.
type DocumentRequest struct {
	Recipient     string   `json:"recipient_email"`
	RecipientName string   `json:"recipient_name,omitempty"`
	DocumentTypes []string `json:"document_types"`
	Message       string   `json:"message,omitempty"`
	DueDate       string   `json:"due_date,omitempty"`
}

// SelfDisclosureRequest creates a public self-disclosure form for a property.
type SelfDisclosureRequest struct {
	PropertyAddress string `json:"property_address"`
	RecipientEmail  string `json:"recipient_email,omitempty"`
	Message         string `json:"message,omitempty"`
}

type SelfDisclosureForm struct {
	ID      string `json:"id"`
	FormURL string `json:"form_url"`
}

// Submission is one completed self-disclosure form.
type Submission struct {
	ID            string                 `json:"id"`
	FormID        string                 `json:"form_id"`
	ApplicantName string                 `json:"applicant_name"`
	Email         string                 `json:"email"`
	SubmittedAt   Timestamp              `json:"submitted_at"`
	Data          map[string]interface{} `json:"data,omitempty"`
}

// BulkFailure names an ID the remote side could not process.
type BulkFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkResult is the outcome of a bulk action. Only Succeeded IDs were
// processed remotely.
type BulkResult struct {
	Action    string        `json:"action"`
	Succeeded []string      `json:"succeeded"`
	Failed    []BulkFailure `json:"failed,omitempty"`
	FileURL   string        `json:"file_url,omitempty"`
}

func (r *BulkResult) failedIDs() string {
	ids := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		ids[i] = f.ID
	}
	return strings.Join(ids, ", ")
}
