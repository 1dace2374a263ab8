package wizard

import (
	"immo-workers/internal/common/errors"
	"immo-workers/internal/common/metrics"
)

// Transition results recorded in metrics.
const (
	resultAdvanced = "advanced"
	resultBlocked  = "blocked"
	resultClamped  = "clamped"
)

// State is the serialisable position of a wizard. 1 <= CurrentStep <= TotalSteps.
type State struct {
	CurrentStep int      `json:"currentStep"`
	TotalSteps  int      `json:"totalSteps"`
	FormData    FormData `json:"formData"`
}

// Wizard walks a Definition one step at a time. Steps cannot be skipped.
type Wizard struct {
	def   *Definition
	state State
}

func New(def *Definition) *Wizard {
	return &Wizard{
		def:   def,
		state: State{CurrentStep: 1, TotalSteps: def.Total(), FormData: FormData{}},
	}
}

// Restore resumes a wizard from a saved state. An out-of-range step is
// clamped into the definition's bounds.
func Restore(def *Definition, state State) *Wizard {
	w := New(def)
	if state.FormData != nil {
		w.state.FormData = state.FormData.Clone()
	}
	w.state.CurrentStep = clamp(state.CurrentStep, 1, def.Total())
	return w
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (w *Wizard) Definition() *Definition { return w.def }
func (w *Wizard) Current() int            { return w.state.CurrentStep }
func (w *Wizard) Total() int              { return w.state.TotalSteps }
func (w *Wizard) IsFirst() bool           { return w.state.CurrentStep == 1 }
func (w *Wizard) IsLast() bool            { return w.state.CurrentStep == w.state.TotalSteps }

// State returns a copy of the wizard state.
func (w *Wizard) State() State {
	s := w.state
	s.FormData = w.state.FormData.Clone()
	return s
}

// CurrentStep returns the definition of the active step.
func (w *Wizard) CurrentStep() Step {
	step, _ := w.def.Step(w.state.CurrentStep)
	return step
}

func (w *Wizard) Set(key string, value interface{}) {
	w.state.FormData[key] = value
}

// Merge copies patch into the form data. A nil value removes the key.
func (w *Wizard) Merge(patch FormData) {
	for k, v := range patch {
		if v == nil {
			delete(w.state.FormData, k)
			continue
		}
		w.state.FormData[k] = v
	}
}

// Missing lists the empty required fields of the current step.
func (w *Wizard) Missing() []string {
	return w.CurrentStep().Missing(w.state.FormData)
}

// Next advances one step. When the current step is incomplete the wizard
// stays where it is and the validation error is returned. On the last step
// Next does nothing.
func (w *Wizard) Next() error {
	if err := w.CurrentStep().Check(w.state.CurrentStep, w.state.FormData); err != nil {
		w.record("next", resultBlocked)
		return err
	}
	if w.IsLast() {
		w.record("next", resultClamped)
		return nil
	}
	w.state.CurrentStep++
	w.record("next", resultAdvanced)
	return nil
}

// Prev goes back one step, clamped at the first step. It never validates.
func (w *Wizard) Prev() {
	if w.IsFirst() {
		w.record("prev", resultClamped)
		return
	}
	w.state.CurrentStep--
	w.record("prev", resultAdvanced)
}

// ReadyToGenerate reports whether the document may be generated: the wizard
// is on its last step and the whole form validates.
func (w *Wizard) ReadyToGenerate() error {
	if !w.IsLast() {
		return errors.NewWizardNotCompleteError(w.state.CurrentStep, w.state.TotalSteps)
	}
	return w.def.ValidateDocument(w.state.FormData)
}

func (w *Wizard) record(direction, result string) {
	metrics.WizardTransitions.WithLabelValues(w.def.ID, direction, result).Inc()
}
