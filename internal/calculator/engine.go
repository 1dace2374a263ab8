// Package calculator holds the financial formulas behind the real-estate
// calculators and a registry that runs them by tool ID.
package calculator

import (
	"fmt"
	"time"

	"immo-workers/internal/common/errors"
	"immo-workers/internal/common/metrics"
	"immo-workers/internal/common/validation"
)

// Categories group calculators in listings.
const (
	CategoryFinanzierung = "finanzierung"
	CategoryBewertung    = "bewertung"
	CategoryVermietung   = "vermietung"
	CategorySteuern      = "steuern"
	CategoryKauf         = "kauf"
)

// Definition binds a typed formula to its input decoding and display
// formatting. Formula must be pure.
type Definition[I any, O any] struct {
	ID          string
	Name        string
	Description string
	Category    string
	Schema      validation.JSONSchema
	Decode      func(Values) (I, error)
	Formula     func(I) (O, error)
	Display     func(O) map[string]string
}

// Compute decodes values and applies the formula.
func (d Definition[I, O]) Compute(values Values) (I, O, error) {
	var zero O
	// missing fields are reported by Decode with the user-facing message
	for _, e := range validation.ValidateInput(values, d.Schema).Errors {
		if e.Code == "REQUIRED_FIELD_MISSING" {
			continue
		}
		var in I
		return in, zero, errors.NewValidationError(e.Field, fmt.Sprintf("Ungültiger Wert für %s: %s", e.Field, e.Message))
	}
	in, err := d.Decode(values)
	if err != nil {
		return in, zero, err
	}
	out, err := d.Formula(in)
	if err != nil {
		return in, zero, err
	}
	return in, out, nil
}

// Tool returns the type-erased form used by the registry.
func (d Definition[I, O]) Tool() Tool {
	return tool[I, O]{def: d}
}

// As registers the same formula under another ID and name.
func (d Definition[I, O]) As(id, name, description string) Definition[I, O] {
	d.ID = id
	d.Name = name
	if description != "" {
		d.Description = description
	}
	return d
}

// Outcome is the result of one calculation.
type Outcome struct {
	ToolID  string            `json:"toolId"`
	Input   interface{}       `json:"input"`
	Result  interface{}       `json:"result"`
	Display map[string]string `json:"display"`
}

// Tool is a calculator addressed by ID.
type Tool interface {
	ID() string
	Name() string
	Description() string
	Category() string
	Schema() validation.JSONSchema
	Calculate(values Values) (*Outcome, error)
}

type tool[I any, O any] struct {
	def Definition[I, O]
}

func (t tool[I, O]) ID() string                    { return t.def.ID }
func (t tool[I, O]) Name() string                  { return t.def.Name }
func (t tool[I, O]) Description() string           { return t.def.Description }
func (t tool[I, O]) Category() string              { return t.def.Category }
func (t tool[I, O]) Schema() validation.JSONSchema { return t.def.Schema }

func (t tool[I, O]) Calculate(values Values) (*Outcome, error) {
	in, out, err := t.def.Compute(values)
	if err != nil {
		return nil, err
	}
	var display map[string]string
	if t.def.Display != nil {
		display = t.def.Display(out)
	}
	return &Outcome{
		ToolID:  t.def.ID,
		Input:   in,
		Result:  out,
		Display: display,
	}, nil
}

// Registry indexes tools by ID and keeps registration order for listings.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if t.ID() == "" {
			return nil, fmt.Errorf("calculator without id")
		}
		if _, dup := r.tools[t.ID()]; dup {
			return nil, fmt.Errorf("duplicate calculator id %q", t.ID())
		}
		r.tools[t.ID()] = t
		r.order = append(r.order, t.ID())
	}
	return r, nil
}

// Default returns a registry with every built-in calculator.
func Default() *Registry {
	r, err := NewRegistry(
		Finanzierung.Tool(),
		Bewertung.Tool(),
		NebenkostenUmlage.Tool(),
		NebenkostenUmlage.As("betriebskostenabrechnung", "Betriebskostenabrechnung",
			"Jahresabrechnung der Betriebskosten mit Vorauszahlungen je Einheit").Tool(),
		NebenkostenUmlage.As("nebenkostenabrechnung", "Nebenkostenabrechnung",
			"Nebenkostenabrechnung nach Fläche oder Personen").Tool(),
		Amortisation.Tool(),
		Mieterhoehung.Tool(),
		Steuerersparnis.Tool(),
		Rendite.Tool(),
		Tilgungsplan.Tool(),
		Grunderwerbsteuer.Tool(),
		Kaufnebenkosten.Tool(),
		AfA.Tool(),
		Cashflow.Tool(),
		Mietkaution.Tool(),
	)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Get(id string) (Tool, error) {
	t, ok := r.tools[id]
	if !ok {
		return nil, errors.NewUnknownToolError(id)
	}
	return t, nil
}

// List returns tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tools[id])
	}
	return out
}

// Run looks up toolID and calculates, recording metrics.
func (r *Registry) Run(toolID string, values Values) (*Outcome, error) {
	t, err := r.Get(toolID)
	if err != nil {
		metrics.CalculationsTotal.WithLabelValues("unknown", metrics.StatusError).Inc()
		return nil, err
	}
	start := time.Now()
	outcome, err := t.Calculate(values)
	metrics.CalculationDuration.WithLabelValues(toolID).Observe(time.Since(start).Seconds())
	metrics.CalculationsTotal.WithLabelValues(toolID, metrics.Status(err)).Inc()
	return outcome, err
}
