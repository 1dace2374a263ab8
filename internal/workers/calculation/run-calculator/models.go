package runcalculator

import (
	"immo-workers/internal/calculator"
)

type Input struct {
	ToolID    string            `json:"toolId"`
	Values    calculator.Values `json:"values"`
	Save      bool              `json:"save,omitempty"`
	UserEmail string            `json:"userEmail,omitempty"`
	Name      string            `json:"name,omitempty"`
}

type Output struct {
	ToolID        string                 `json:"toolId"`
	Result        map[string]interface{} `json:"result"`
	Display       map[string]string      `json:"display"`
	CalculationID string                 `json:"calculationId,omitempty"`
}

// Variables is the completion payload. Names carry a calculation prefix so
// they do not clobber other process variables.
func (o *Output) Variables() map[string]interface{} {
	vars := map[string]interface{}{
		"calculationToolId":  o.ToolID,
		"calculationResult":  o.Result,
		"calculationDisplay": o.Display,
	}
	if o.CalculationID != "" {
		vars["calculationId"] = o.CalculationID
	}
	return vars
}
