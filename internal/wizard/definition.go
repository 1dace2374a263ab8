// Package wizard implements the multi-step document wizards: step
// definitions, the navigation state machine, session storage and autosave.
package wizard

import (
	"fmt"
	"reflect"
	"strings"

	"immo-workers/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// FormData holds the values entered across all steps of a wizard.
type FormData map[string]interface{}

// Clone returns a shallow copy.
func (f FormData) Clone() FormData {
	out := make(FormData, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// String returns the trimmed string form of key, or "" when unset.
func (f FormData) String(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Step is one page of a wizard. Required fields must be non-empty before the
// wizard may advance; Validate runs afterwards for cross-field rules.
type Step struct {
	Key      string                    `json:"key"`
	Title    string                    `json:"title"`
	Required []string                  `json:"required"`
	Validate func(data FormData) error `json:"-"`
}

// Missing returns the required fields of the step that are empty in data.
func (s Step) Missing(data FormData) []string {
	var missing []string
	for _, field := range s.Required {
		if isEmpty(data[field]) {
			missing = append(missing, field)
		}
	}
	return missing
}

// Check reports whether data satisfies the step. number is 1-based.
func (s Step) Check(number int, data FormData) error {
	if missing := s.Missing(data); len(missing) > 0 {
		return errors.NewStepIncompleteError(number, missing)
	}
	if s.Validate != nil {
		return s.Validate(data)
	}
	return nil
}

func isEmpty(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case bool:
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

// Definition describes a wizard: its ordered steps and the JSON schema the
// complete form data must satisfy before a document is generated.
type Definition struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	DocumentType string `json:"documentType"`
	Steps        []Step `json:"steps"`
	Schema       string `json:"-"`

	compiled *gojsonschema.Schema
}

func (d *Definition) Total() int {
	return len(d.Steps)
}

// Step returns the 1-based step n.
func (d *Definition) Step(n int) (Step, bool) {
	if n < 1 || n > len(d.Steps) {
		return Step{}, false
	}
	return d.Steps[n-1], true
}

func (d *Definition) compile() error {
	if d.ID == "" {
		return fmt.Errorf("wizard without id")
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("wizard %s has no steps", d.ID)
	}
	if d.Schema == "" {
		return nil
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(d.Schema))
	if err != nil {
		return fmt.Errorf("wizard %s schema: %w", d.ID, err)
	}
	d.compiled = schema
	return nil
}

// ValidateDocument checks every step and then the document schema.
func (d *Definition) ValidateDocument(data FormData) error {
	for i, step := range d.Steps {
		if err := step.Check(i+1, data); err != nil {
			return err
		}
	}
	if d.compiled == nil {
		return nil
	}

	result, err := d.compiled.Validate(gojsonschema.NewGoLoader(map[string]interface{}(data)))
	if err != nil {
		return errors.NewInternalError(fmt.Errorf("validate %s: %w", d.ID, err))
	}
	if result.Valid() {
		return nil
	}
	first := result.Errors()[0]
	field := first.Field()
	if prop, ok := first.Details()["property"].(string); ok && field == "(root)" {
		field = prop
	}
	descs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		descs[i] = desc.String()
	}
	stdErr := errors.NewValidationError(field, fmt.Sprintf("Ungültige Angabe im Feld %s", field))
	stdErr.Details = strings.Join(descs, "; ")
	return stdErr
}

// Registry indexes wizard definitions by ID.
type Registry struct {
	defs  map[string]*Definition
	order []string
}

func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if err := d.compile(); err != nil {
			return nil, err
		}
		if _, dup := r.defs[d.ID]; dup {
			return nil, fmt.Errorf("duplicate wizard id %q", d.ID)
		}
		r.defs[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	return r, nil
}

// DefaultRegistry returns the built-in document wizards.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Mietvertrag(), Kuendigung(), Uebergabeprotokoll(), Selbstauskunft())
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Get(id string) (*Definition, error) {
	d, ok := r.defs[id]
	if !ok {
		return nil, errors.NewUnknownWizardError(id)
	}
	return d, nil
}

func (r *Registry) List() []*Definition {
	out := make([]*Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.defs[id])
	}
	return out
}
