// Package history persists saved calculator results.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"immo-workers/internal/common/config"
)

// SavedCalculation is one stored calculator run.
type SavedCalculation struct {
	ID              string                 `json:"id"`
	UserEmail       string                 `json:"user_email"`
	ToolID          string                 `json:"tool_id"`
	ToolName        string                 `json:"tool_name"`
	CalculationData map[string]interface{} `json:"calculation_data"`
	ResultData      map[string]interface{} `json:"result_data"`
	Name            string                 `json:"name"`
	IsFavorite      bool                   `json:"is_favorite"`
	CreatedAt       time.Time              `json:"created_date"`
}

// Store persists saved calculations.
type Store interface {
	Create(ctx context.Context, calc *SavedCalculation) (*SavedCalculation, error)
	ListByUser(ctx context.Context, userEmail string, limit int) ([]SavedCalculation, error)
}

// Schema names the stored field layout. Both layouts exist in the hosted
// store and are kept apart rather than merged.
type Schema string

const (
	SchemaCurrent Schema = config.HistorySchemaCurrent
	SchemaLegacy  Schema = config.HistorySchemaLegacy
)

// fieldNames returns the names used for tool, input and result fields.
func (s Schema) fieldNames() (tool, input, result string) {
	if s == SchemaLegacy {
		return "calculator_type", "inputs", "results"
	}
	return "tool_id", "calculation_data", "result_data"
}

// Record renders calc as an entity record in this schema.
func (s Schema) Record(calc *SavedCalculation) map[string]interface{} {
	tool, input, result := s.fieldNames()
	rec := map[string]interface{}{
		"user_email":  calc.UserEmail,
		tool:          calc.ToolID,
		input:         calc.CalculationData,
		result:        calc.ResultData,
		"name":        calc.Name,
		"is_favorite": calc.IsFavorite,
	}
	if s == SchemaLegacy {
		rec["tool_name"] = calc.ToolName
	}
	return rec
}

// Parse reads an entity record written in this schema.
func (s Schema) Parse(rec map[string]interface{}) SavedCalculation {
	tool, input, result := s.fieldNames()
	calc := SavedCalculation{
		ID:              stringField(rec, "id"),
		UserEmail:       stringField(rec, "user_email"),
		ToolID:          stringField(rec, tool),
		ToolName:        stringField(rec, "tool_name"),
		CalculationData: mapField(rec, input),
		ResultData:      mapField(rec, result),
		Name:            stringField(rec, "name"),
	}
	calc.IsFavorite, _ = rec["is_favorite"].(bool)
	if created := stringField(rec, "created_date"); created != "" {
		if ts, err := time.Parse(time.RFC3339, created); err == nil {
			calc.CreatedAt = ts
		}
	}
	return calc
}

func stringField(rec map[string]interface{}, key string) string {
	s, _ := rec[key].(string)
	return s
}

func mapField(rec map[string]interface{}, key string) map[string]interface{} {
	m, _ := rec[key].(map[string]interface{})
	return m
}

// toMap converts a typed value into its JSON object form.
func toMap(v interface{}) (map[string]interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if m, ok := v.(map[string]interface{}); ok {
		return m, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("not an object: %w", err)
	}
	return m, nil
}
