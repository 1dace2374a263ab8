package senddocumentemail

import "immo-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"userEmail", "documentId", "documentUrl"},
		Properties: map[string]validation.Property{
			"userEmail": {
				Type:        "string",
				Description: "Recipient of the notice",
				MinLength:   validation.Int(3),
				MaxLength:   validation.Int(255),
			},
			"documentId": {
				Type:      "string",
				MinLength: validation.Int(1),
			},
			"documentTitle": {
				Type:      "string",
				MaxLength: validation.Int(200),
			},
			"documentType": {
				Type: "string",
			},
			"documentUrl": {
				Type:        "string",
				Description: "Download link of the generated file",
				MinLength:   validation.Int(1),
			},
		},
	}
}
