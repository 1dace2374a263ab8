package generatedocument

import "immo-workers/internal/wizard"

type Input struct {
	WizardID  string          `json:"wizardId"`
	FormData  wizard.FormData `json:"formData"`
	UserEmail string          `json:"userEmail"`
}

type Output struct {
	DocumentID   string `json:"documentId"`
	DocumentType string `json:"documentType"`
	Title        string `json:"title"`
	FileURL      string `json:"fileUrl"`
}
