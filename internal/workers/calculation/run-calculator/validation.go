package runcalculator

import "immo-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"toolId", "values"},
		Properties: map[string]validation.Property{
			"toolId": {
				Type:        "string",
				Description: "Calculator ID",
				MinLength:   validation.Int(1),
				MaxLength:   validation.Int(64),
			},
			"values": {
				Type:        "object",
				Description: "Raw calculator input keyed by field",
			},
			"save": {
				Type:        "boolean",
				Description: "Store the result in the user's history",
			},
			"userEmail": {
				Type:        "string",
				Description: "Owner of the saved calculation",
				MaxLength:   validation.Int(255),
			},
			"name": {
				Type:      "string",
				MaxLength: validation.Int(120),
			},
		},
	}
}
