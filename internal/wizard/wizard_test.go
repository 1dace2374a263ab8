package wizard

import (
	"testing"

	"immo-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeMietvertrag() FormData {
	return FormData{
		"vermieter_name":    "Hausverwaltung Müller GmbH",
		"vermieter_adresse": "Ringstraße 4, 50667 Köln",
		"mieter_name":       "Max Mustermann",
		"mieter_adresse":    "Gartenweg 2, 50999 Köln",
		"mieter_email":      "max@example.com",
		"objekt_adresse":    "Lindenallee 12, 50968 Köln",
		"wohnflaeche":       "75",
		"zimmer":            3,
		"kaltmiete":         "900",
		"nebenkosten":       "200",
		"kaution":           "2700",
		"mietbeginn":        "2026-11-01",
		"bestaetigt":        true,
	}
}

func mietvertrag(t *testing.T) *Definition {
	t.Helper()
	def, err := DefaultRegistry().Get("mietvertrag")
	require.NoError(t, err)
	return def
}

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	want := map[string]int{
		"mietvertrag":        5,
		"kuendigung":         3,
		"uebergabeprotokoll": 4,
		"selbstauskunft":     4,
	}

	defs := reg.List()
	require.Len(t, defs, len(want))
	for _, def := range defs {
		assert.Equal(t, want[def.ID], def.Total(), def.ID)
		assert.NotEmpty(t, def.DocumentType)
	}

	_, err := reg.Get("unbekannt")
	assert.Equal(t, errors.ErrCodeUnknownWizard, errors.AsStandard(err).Code)
}

func TestNewRegistry_Rejects(t *testing.T) {
	_, err := NewRegistry(Mietvertrag(), Mietvertrag())
	assert.Error(t, err)

	_, err = NewRegistry(&Definition{ID: "leer"})
	assert.Error(t, err)

	_, err = NewRegistry(&Definition{ID: "kaputt", Steps: []Step{{Key: "a"}}, Schema: `{"type": 12}`})
	assert.Error(t, err)
}

func TestStep_Missing(t *testing.T) {
	step := Step{Required: []string{"name", "tags", "aktiv", "anzahl", "leer"}}
	data := FormData{
		"name":   "   ",
		"tags":   []interface{}{},
		"aktiv":  false,
		"anzahl": 0,
	}
	assert.Equal(t, []string{"name", "tags", "leer"}, step.Missing(data))
}

func TestWizard_NextBlockedWhenIncomplete(t *testing.T) {
	w := New(mietvertrag(t))
	w.Set("vermieter_name", "Müller")

	err := w.Next()
	require.Error(t, err)
	stdErr := errors.AsStandard(err)
	assert.Equal(t, errors.ErrCodeWizardStepIncomplete, stdErr.Code)
	assert.Equal(t, []string{"vermieter_adresse"}, stdErr.Metadata["fields"])
	assert.Equal(t, 1, w.Current())
	assert.Equal(t, []string{"vermieter_adresse"}, w.Missing())
}

func TestWizard_PrevClampedAtFirst(t *testing.T) {
	w := New(mietvertrag(t))
	w.Prev()
	assert.Equal(t, 1, w.Current())
	assert.True(t, w.IsFirst())
}

func TestWizard_WalkStaysInBounds(t *testing.T) {
	w := New(mietvertrag(t))
	w.Merge(completeMietvertrag())

	moves := "nnpnnnnnnppppppnnnpnnnnnn"
	for i, m := range moves {
		if m == 'n' {
			require.NoError(t, w.Next(), "move %d", i)
		} else {
			w.Prev()
		}
		assert.GreaterOrEqual(t, w.Current(), 1)
		assert.LessOrEqual(t, w.Current(), w.Total())
	}
	assert.True(t, w.IsLast())
}

func TestWizard_NextOnLastStepStays(t *testing.T) {
	w := Restore(mietvertrag(t), State{CurrentStep: 5, FormData: completeMietvertrag()})
	require.NoError(t, w.Next())
	assert.Equal(t, 5, w.Current())
}

func TestRestore_ClampsStep(t *testing.T) {
	def := mietvertrag(t)
	assert.Equal(t, 5, Restore(def, State{CurrentStep: 9}).Current())
	assert.Equal(t, 1, Restore(def, State{CurrentStep: -2}).Current())
	assert.Equal(t, 5, Restore(def, State{CurrentStep: 3}).Total())
}

func TestWizard_StateIsCopy(t *testing.T) {
	w := New(mietvertrag(t))
	w.Set("mieter_name", "Max")
	s := w.State()
	s.FormData["mieter_name"] = "geändert"
	assert.Equal(t, "Max", w.State().FormData["mieter_name"])
}

func TestWizard_MergeNilRemoves(t *testing.T) {
	w := New(mietvertrag(t))
	w.Merge(FormData{"a": "1", "b": "2"})
	w.Merge(FormData{"a": nil})
	assert.Equal(t, FormData{"b": "2"}, w.State().FormData)
}

func TestWizard_ReadyToGenerate(t *testing.T) {
	tests := []struct {
		name      string
		step      int
		mutate    func(FormData)
		wantCode  errors.ErrorCode
		wantField string
	}{
		{name: "complete", step: 5},
		{name: "not on last step", step: 4, wantCode: errors.ErrCodeWizardNotComplete},
		{
			name:     "earlier step emptied",
			step:     5,
			mutate:   func(d FormData) { delete(d, "mieter_name") },
			wantCode: errors.ErrCodeWizardStepIncomplete,
		},
		{
			name:      "deposit above three rents",
			step:      5,
			mutate:    func(d FormData) { d["kaution"] = "3000" },
			wantCode:  errors.ErrCodeValidationFailed,
			wantField: "kaution",
		},
		{
			name:      "not confirmed",
			step:      5,
			mutate:    func(d FormData) { d["bestaetigt"] = false },
			wantCode:  errors.ErrCodeValidationFailed,
			wantField: "bestaetigt",
		},
		{
			name:      "invalid email caught by schema",
			step:      5,
			mutate:    func(d FormData) { d["mieter_email"] = "keine-adresse" },
			wantCode:  errors.ErrCodeValidationFailed,
			wantField: "mieter_email",
		},
		{
			name:      "bad date",
			step:      5,
			mutate:    func(d FormData) { d["mietbeginn"] = "01.11.2026" },
			wantCode:  errors.ErrCodeValidationFailed,
			wantField: "mietbeginn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := completeMietvertrag()
			if tt.mutate != nil {
				tt.mutate(data)
			}
			w := Restore(mietvertrag(t), State{CurrentStep: tt.step, FormData: data})

			err := w.ReadyToGenerate()
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			stdErr := errors.AsStandard(err)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, stdErr.Field)
			}
		})
	}
}

func TestKuendigung_ExtraordinaryNeedsReason(t *testing.T) {
	def, err := DefaultRegistry().Get("kuendigung")
	require.NoError(t, err)

	data := FormData{
		"absender_name":      "Max Mustermann",
		"absender_adresse":   "Lindenallee 12, Köln",
		"empfaenger_name":    "Hausverwaltung Müller",
		"empfaenger_adresse": "Ringstraße 4, Köln",
		"kuendigungsart":     "ausserordentlich",
		"mietobjekt_adresse": "Lindenallee 12, Köln",
		"kuendigungsdatum":   "2026-12-31",
	}
	w := Restore(def, State{CurrentStep: 2, FormData: data})

	err = w.Next()
	require.Error(t, err)
	assert.Equal(t, []string{"grund"}, errors.AsStandard(err).Metadata["fields"])

	w.Set("grund", "Schimmelbefall")
	require.NoError(t, w.Next())
	assert.True(t, w.IsLast())
}

func TestSelbstauskunft_Schema(t *testing.T) {
	def, err := DefaultRegistry().Get("selbstauskunft")
	require.NoError(t, err)

	data := FormData{
		"vorname":            "Erika",
		"nachname":           "Musterfrau",
		"geburtsdatum":       "1990-04-12",
		"email":              "erika@example.com",
		"beschaeftigungsart": "angestellt",
		"nettoeinkommen":     "3200",
		"personen_anzahl":    2,
		"einwilligung":       true,
	}
	assert.NoError(t, def.ValidateDocument(data))

	data["beschaeftigungsart"] = "astronaut"
	err = def.ValidateDocument(data)
	require.Error(t, err)
	assert.Equal(t, "beschaeftigungsart", errors.AsStandard(err).Field)
}

func TestUebergabeprotokoll_MeterReadings(t *testing.T) {
	def, err := DefaultRegistry().Get("uebergabeprotokoll")
	require.NoError(t, err)

	w := Restore(def, State{CurrentStep: 3, FormData: FormData{"zaehler_strom": "-5"}})
	err = w.Next()
	require.Error(t, err)
	assert.Equal(t, "zaehler_strom", errors.AsStandard(err).Field)

	w.Set("zaehler_strom", "10432.5")
	require.NoError(t, w.Next())
	assert.Equal(t, 4, w.Current())
}
