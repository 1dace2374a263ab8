package wizard

import (
	"fmt"
	"time"

	"immo-workers/internal/calculator"
	"immo-workers/internal/common/errors"
)

const dateLayout = "2006-01-02"

// Document types passed to generateDocument.
const (
	DocumentMietvertrag        = "mietvertrag"
	DocumentKuendigung         = "kuendigung"
	DocumentUebergabeprotokoll = "uebergabeprotokoll"
	DocumentSelbstauskunft     = "selbstauskunft"
)

func number(data FormData, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return calculator.ParseNumber(data.String(key))
}

func positive(keys ...string) func(FormData) error {
	return func(data FormData) error {
		for _, key := range keys {
			if _, set := data[key]; !set || data.String(key) == "" {
				continue
			}
			v, ok := number(data, key)
			if !ok || v <= 0 {
				return errors.NewValidationError(key, fmt.Sprintf("Bitte geben Sie für %s einen positiven Betrag ein", key))
			}
		}
		return nil
	}
}

func dates(keys ...string) func(FormData) error {
	return func(data FormData) error {
		for _, key := range keys {
			raw := data.String(key)
			if raw == "" {
				continue
			}
			if _, err := time.Parse(dateLayout, raw); err != nil {
				return errors.NewValidationError(key, "Bitte geben Sie ein gültiges Datum ein (JJJJ-MM-TT)")
			}
		}
		return nil
	}
}

func all(checks ...func(FormData) error) func(FormData) error {
	return func(data FormData) error {
		for _, check := range checks {
			if err := check(data); err != nil {
				return err
			}
		}
		return nil
	}
}

// Mietvertrag is the residential lease wizard.
func Mietvertrag() *Definition {
	return &Definition{
		ID:           "mietvertrag",
		Title:        "Mietvertrag",
		Description:  "Wohnraummietvertrag mit Kaution und Nebenkostenvorauszahlung",
		DocumentType: DocumentMietvertrag,
		Steps: []Step{
			{Key: "vermieter", Title: "Vermieter", Required: []string{"vermieter_name", "vermieter_adresse"}},
			{Key: "mieter", Title: "Mieter", Required: []string{"mieter_name", "mieter_adresse"}},
			{
				Key:      "objekt",
				Title:    "Mietobjekt",
				Required: []string{"objekt_adresse", "wohnflaeche", "zimmer"},
				Validate: positive("wohnflaeche", "zimmer"),
			},
			{
				Key:      "konditionen",
				Title:    "Miete und Kaution",
				Required: []string{"kaltmiete", "nebenkosten", "mietbeginn"},
				Validate: all(positive("kaltmiete", "kaution"), dates("mietbeginn"), kautionLimit),
			},
			{
				Key:      "zusammenfassung",
				Title:    "Zusammenfassung",
				Validate: confirmed("bestaetigt"),
			},
		},
		Schema: `{
			"type": "object",
			"properties": {
				"mieter_email": {"type": "string", "format": "email"},
				"wohnflaeche": {"type": ["number", "string"], "minimum": 0},
				"kaltmiete": {"type": ["number", "string"], "minimum": 0},
				"nebenkosten": {"type": ["number", "string"], "minimum": 0},
				"kaution": {"type": ["number", "string"], "minimum": 0},
				"mietbeginn": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
				"befristet": {"type": "boolean"}
			}
		}`,
	}
}

// kautionLimit enforces the deposit cap of three monthly cold rents.
func kautionLimit(data FormData) error {
	kaution, ok := number(data, "kaution")
	if !ok || kaution == 0 {
		return nil
	}
	miete, _ := number(data, "kaltmiete")
	if kaution > miete*3 {
		return errors.NewValidationError("kaution", "Die Kaution darf höchstens drei Nettokaltmieten betragen")
	}
	return nil
}

func confirmed(key string) func(FormData) error {
	return func(data FormData) error {
		if ok, _ := data[key].(bool); !ok {
			return errors.NewValidationError(key, "Bitte bestätigen Sie die Angaben")
		}
		return nil
	}
}

// Kuendigung is the notice-of-termination wizard.
func Kuendigung() *Definition {
	return &Definition{
		ID:           "kuendigung",
		Title:        "Kündigung",
		Description:  "Ordentliche oder außerordentliche Kündigung eines Mietverhältnisses",
		DocumentType: DocumentKuendigung,
		Steps: []Step{
			{
				Key:      "parteien",
				Title:    "Absender und Empfänger",
				Required: []string{"absender_name", "absender_adresse", "empfaenger_name", "empfaenger_adresse"},
			},
			{
				Key:      "kuendigung",
				Title:    "Kündigung",
				Required: []string{"kuendigungsart", "mietobjekt_adresse", "kuendigungsdatum"},
				Validate: all(dates("kuendigungsdatum"), kuendigungsgrund),
			},
			{Key: "abschluss", Title: "Ort und Datum", Required: []string{"ort", "datum"}, Validate: dates("datum")},
		},
		Schema: `{
			"type": "object",
			"properties": {
				"kuendigungsart": {"enum": ["ordentlich", "ausserordentlich"]},
				"kuendigungsdatum": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
				"datum": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"}
			}
		}`,
	}
}

func kuendigungsgrund(data FormData) error {
	if data.String("kuendigungsart") == "ausserordentlich" && data.String("grund") == "" {
		return errors.NewStepIncompleteError(2, []string{"grund"})
	}
	return nil
}

// Uebergabeprotokoll is the handover protocol wizard.
func Uebergabeprotokoll() *Definition {
	return &Definition{
		ID:           "uebergabeprotokoll",
		Title:        "Übergabeprotokoll",
		Description:  "Protokoll für Ein- oder Auszug mit Zählerständen und Mängeln",
		DocumentType: DocumentUebergabeprotokoll,
		Steps: []Step{
			{
				Key:      "objekt",
				Title:    "Objekt und Termin",
				Required: []string{"objekt_adresse", "uebergabe_datum", "art"},
				Validate: dates("uebergabe_datum"),
			},
			{Key: "beteiligte", Title: "Beteiligte", Required: []string{"vermieter_name", "mieter_name"}},
			{
				Key:      "zaehler",
				Title:    "Zählerstände",
				Required: []string{"zaehler_strom"},
				Validate: nonNegative("zaehler_strom", "zaehler_wasser", "zaehler_gas"),
			},
			{
				Key:      "raeume",
				Title:    "Räume und Schlüssel",
				Required: []string{"schluessel_anzahl"},
				Validate: positive("schluessel_anzahl"),
			},
		},
		Schema: `{
			"type": "object",
			"properties": {
				"art": {"enum": ["einzug", "auszug"]},
				"maengel": {"type": "array", "items": {"type": "string"}},
				"zaehler_strom": {"type": ["number", "string"]},
				"zaehler_wasser": {"type": ["number", "string"]},
				"zaehler_gas": {"type": ["number", "string"]}
			}
		}`,
	}
}

func nonNegative(keys ...string) func(FormData) error {
	return func(data FormData) error {
		for _, key := range keys {
			if data.String(key) == "" {
				continue
			}
			if v, ok := number(data, key); !ok || v < 0 {
				return errors.NewValidationError(key, fmt.Sprintf("Ungültiger Zählerstand für %s", key))
			}
		}
		return nil
	}
}

// Selbstauskunft is the tenant self-disclosure wizard.
func Selbstauskunft() *Definition {
	return &Definition{
		ID:           "selbstauskunft",
		Title:        "Mieterselbstauskunft",
		Description:  "Selbstauskunft für Mietinteressenten",
		DocumentType: DocumentSelbstauskunft,
		Steps: []Step{
			{
				Key:      "person",
				Title:    "Persönliche Angaben",
				Required: []string{"vorname", "nachname", "geburtsdatum", "email"},
				Validate: dates("geburtsdatum"),
			},
			{
				Key:      "beruf",
				Title:    "Beruf und Einkommen",
				Required: []string{"beschaeftigungsart", "nettoeinkommen"},
				Validate: positive("nettoeinkommen"),
			},
			{
				Key:      "haushalt",
				Title:    "Haushalt",
				Required: []string{"personen_anzahl"},
				Validate: positive("personen_anzahl"),
			},
			{Key: "erklaerung", Title: "Erklärung", Validate: confirmed("einwilligung")},
		},
		Schema: `{
			"type": "object",
			"properties": {
				"email": {"type": "string", "format": "email"},
				"beschaeftigungsart": {"enum": ["angestellt", "selbststaendig", "beamtet", "rentner", "student", "sonstiges"]},
				"haustiere": {"type": "boolean"},
				"einwilligung": {"type": "boolean"}
			}
		}`,
	}
}
