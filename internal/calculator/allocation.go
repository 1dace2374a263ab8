package calculator

import (
	"fmt"

	"immo-workers/internal/common/errors"
	"immo-workers/internal/common/validation"
)

// Allocation keys for operating-cost splits.
const (
	KeyFlaeche  = "flaeche"
	KeyPersonen = "personen"
)

type Einheit struct {
	Name          string  `json:"name"`
	Flaeche       float64 `json:"flaeche"`
	Personen      float64 `json:"personen"`
	Vorauszahlung float64 `json:"vorauszahlung"`
}

type UmlageInput struct {
	Gesamtkosten float64   `json:"gesamtkosten"`
	Schluessel   string    `json:"schluessel"`
	Einheiten    []Einheit `json:"einheiten"`
}

type Anteil struct {
	Name          string  `json:"name"`
	Schluessel    float64 `json:"schluessel"`
	Anteil        float64 `json:"anteil"`
	Betrag        float64 `json:"betrag"`
	Vorauszahlung float64 `json:"vorauszahlung"`
	Saldo         float64 `json:"saldo"`
}

type UmlageResult struct {
	Summe       float64  `json:"summe"`
	Anteile     []Anteil `json:"anteile"`
	Nachzahlung float64  `json:"nachzahlung"`
	Guthaben    float64  `json:"guthaben"`
}

// NebenkostenUmlage splits a cost pool across units in proportion to floor
// area or occupant count. A positive Saldo is an additional payment owed by
// the tenant, a negative one a refund.
var NebenkostenUmlage = Definition[UmlageInput, UmlageResult]{
	ID:          "nebenkosten-umlage",
	Name:        "Nebenkosten-Umlagerechner",
	Description: "Verteilung der Betriebskosten nach Wohnfläche oder Personenzahl",
	Category:    CategoryVermietung,
	Schema: object("Nebenkostenumlage", []string{"gesamtkosten", "einheiten"}, map[string]validation.Property{
		"gesamtkosten": num("Gesamtkosten", "EUR"),
		"schluessel":   enum("Umlageschlüssel", KeyFlaeche, KeyFlaeche, KeyPersonen),
		"einheiten": {
			Type:  "array",
			Title: "Einheiten",
			Items: &validation.Property{
				Type: "object",
				Properties: map[string]validation.Property{
					"name":          {Type: "string"},
					"flaeche":       num("Wohnfläche", "m²"),
					"personen":      num("Personen", ""),
					"vorauszahlung": num("Vorauszahlung", "EUR"),
				},
			},
		},
	}),
	Decode: func(v Values) (UmlageInput, error) {
		r := newReader(v)
		in := UmlageInput{
			Gesamtkosten: r.required("gesamtkosten"),
			Schluessel:   r.choice("schluessel", KeyFlaeche, KeyFlaeche, KeyPersonen),
		}
		raw, _ := v["einheiten"].([]interface{})
		if len(raw) == 0 {
			r.missing = append(r.missing, "einheiten")
		}
		for idx, item := range raw {
			fields, _ := item.(map[string]interface{})
			unit := newReader(Values(fields))
			e := Einheit{
				Name:          unit.text("name", fmt.Sprintf("Einheit %d", idx+1)),
				Flaeche:       unit.nonNegative("flaeche", unit.optional("flaeche", 0)),
				Personen:      unit.nonNegative("personen", unit.optional("personen", 0)),
				Vorauszahlung: unit.nonNegative("vorauszahlung", unit.optional("vorauszahlung", 0)),
			}
			if unit.invalid != nil && r.invalid == nil {
				r.invalid = unit.invalid
			}
			in.Einheiten = append(in.Einheiten, e)
		}
		return in, r.err()
	},
	Formula: func(in UmlageInput) (UmlageResult, error) {
		keys := make([]float64, len(in.Einheiten))
		var sum float64
		for i, e := range in.Einheiten {
			if in.Schluessel == KeyPersonen {
				keys[i] = e.Personen
			} else {
				keys[i] = e.Flaeche
			}
			sum += keys[i]
		}
		if sum <= 0 {
			return UmlageResult{}, errors.NewValidationError("einheiten",
				"Bitte geben Sie für mindestens eine Einheit einen Umlageschlüssel an")
		}

		res := UmlageResult{Anteile: make([]Anteil, len(in.Einheiten))}
		for i, e := range in.Einheiten {
			share := keys[i] / sum
			amount := in.Gesamtkosten * share
			saldo := amount - e.Vorauszahlung
			res.Anteile[i] = Anteil{
				Name:          e.Name,
				Schluessel:    keys[i],
				Anteil:        share * 100,
				Betrag:        amount,
				Vorauszahlung: e.Vorauszahlung,
				Saldo:         saldo,
			}
			res.Summe += amount
			if saldo > 0 {
				res.Nachzahlung += saldo
			} else {
				res.Guthaben -= saldo
			}
		}
		return res, nil
	},
	Display: func(o UmlageResult) map[string]string {
		amounts := make([]float64, len(o.Anteile))
		for i, a := range o.Anteile {
			amounts[i] = a.Betrag
		}
		out := map[string]string{
			"summe":       money(o.Summe),
			"nachzahlung": money(o.Nachzahlung),
			"guthaben":    money(o.Guthaben),
		}
		for i, cents := range splitCents(o.Summe, amounts) {
			out[fmt.Sprintf("betrag_%d", i+1)] = cents.StringFixed(2)
			out[fmt.Sprintf("anteil_%d", i+1)] = percent(o.Anteile[i].Anteil)
		}
		return out
	},
}
