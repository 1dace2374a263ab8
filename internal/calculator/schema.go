package calculator

import "immo-workers/internal/common/validation"

func num(title, unit string) validation.Property {
	return validation.Property{Type: "numeric", Title: title, Unit: unit, Minimum: validation.Float(0)}
}

func enum(title, def string, values ...string) validation.Property {
	return validation.Property{Type: "string", Title: title, Default: def, Enum: values}
}

func object(title string, required []string, props map[string]validation.Property) validation.JSONSchema {
	return validation.JSONSchema{
		Type:                 "object",
		Title:                title,
		Properties:           props,
		Required:             required,
		AdditionalProperties: true,
	}
}
