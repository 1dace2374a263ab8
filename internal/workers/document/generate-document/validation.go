package generatedocument

import "immo-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"wizardId", "formData", "userEmail"},
		Properties: map[string]validation.Property{
			"wizardId": {
				Type:        "string",
				Description: "Document wizard ID",
				MinLength:   validation.Int(1),
				MaxLength:   validation.Int(64),
			},
			"formData": {
				Type:        "object",
				Description: "Complete wizard form data",
			},
			"userEmail": {
				Type:        "string",
				Description: "Owner of the generated document",
				MinLength:   validation.Int(3),
				MaxLength:   validation.Int(255),
			},
		},
	}
}
