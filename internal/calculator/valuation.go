package calculator

import (
	"immo-workers/internal/common/errors"
	"immo-workers/internal/common/validation"
)

type BewertungInput struct {
	Jahresrohertrag        float64 `json:"jahresrohertrag"`
	Leerstandsquote        float64 `json:"leerstandsquote"`
	Bewirtschaftungskosten float64 `json:"bewirtschaftungskosten"`
	Kapitalisierungszins   float64 `json:"kapitalisierungszins"`
	Erwerbsnebenkosten     float64 `json:"erwerbsnebenkosten"`
}

type BewertungResult struct {
	Reinertrag       float64 `json:"reinertrag"`
	Ertragswert      float64 `json:"ertragswert"`
	Nebenkosten      float64 `json:"nebenkosten"`
	Kaufpreis        float64 `json:"kaufpreis"`
	Vervielfaeltiger float64 `json:"vervielfaeltiger"`
}

// Bewertung values a rental property by capitalizing its net annual revenue.
var Bewertung = Definition[BewertungInput, BewertungResult]{
	ID:          "bewertung",
	Name:        "Immobilienbewertung",
	Description: "Ertragswert aus Reinertrag und Kapitalisierungszins",
	Category:    CategoryBewertung,
	Schema: object("Bewertung", []string{"jahresrohertrag", "kapitalisierungszins"}, map[string]validation.Property{
		"jahresrohertrag":        num("Jahresrohertrag", "EUR"),
		"leerstandsquote":        num("Leerstandsquote", "%"),
		"bewirtschaftungskosten": num("Bewirtschaftungskosten pro Jahr", "EUR"),
		"kapitalisierungszins":   num("Kapitalisierungszins", "%"),
		"erwerbsnebenkosten":     num("Erwerbsnebenkosten", "%"),
	}),
	Decode: func(v Values) (BewertungInput, error) {
		r := newReader(v)
		in := BewertungInput{
			Jahresrohertrag:        r.required("jahresrohertrag"),
			Leerstandsquote:        r.nonNegative("leerstandsquote", r.optional("leerstandsquote", 0)),
			Bewirtschaftungskosten: r.nonNegative("bewirtschaftungskosten", r.optional("bewirtschaftungskosten", 0)),
			Kapitalisierungszins:   r.required("kapitalisierungszins"),
			Erwerbsnebenkosten:     r.nonNegative("erwerbsnebenkosten", r.optional("erwerbsnebenkosten", 0)),
		}
		return in, r.err()
	},
	Formula: func(in BewertungInput) (BewertungResult, error) {
		if in.Leerstandsquote > 100 {
			return BewertungResult{}, errors.NewValidationError("leerstandsquote", "Die Leerstandsquote darf höchstens 100 % betragen")
		}
		net := in.Jahresrohertrag*(1-in.Leerstandsquote/100) - in.Bewirtschaftungskosten
		if net <= 0 {
			return BewertungResult{}, errors.NewValidationError("bewirtschaftungskosten",
				"Die Kosten übersteigen die Mieteinnahmen, es ergibt sich kein Ertragswert")
		}
		value := net / (in.Kapitalisierungszins / 100)
		costs := value * in.Erwerbsnebenkosten / 100
		return BewertungResult{
			Reinertrag:       net,
			Ertragswert:      value,
			Nebenkosten:      costs,
			Kaufpreis:        value + costs,
			Vervielfaeltiger: value / in.Jahresrohertrag,
		}, nil
	},
	Display: func(o BewertungResult) map[string]string {
		return map[string]string{
			"reinertrag":       money(o.Reinertrag),
			"ertragswert":      money(o.Ertragswert),
			"nebenkosten":      money(o.Nebenkosten),
			"kaufpreis":        money(o.Kaufpreis),
			"vervielfaeltiger": fixed(o.Vervielfaeltiger, 1),
		}
	},
}

type RenditeInput struct {
	Kaufpreis         float64 `json:"kaufpreis"`
	Jahreskaltmiete   float64 `json:"jahreskaltmiete"`
	Kaufnebenkosten   float64 `json:"kaufnebenkosten"`
	NichtUmlagefaehig float64 `json:"nicht_umlagefaehig"`
}

type RenditeResult struct {
	Bruttorendite     float64 `json:"bruttorendite"`
	Nettorendite      float64 `json:"nettorendite"`
	Kaufpreisfaktor   float64 `json:"kaufpreisfaktor"`
	Gesamtinvestition float64 `json:"gesamtinvestition"`
	Reinertrag        float64 `json:"reinertrag"`
}

var Rendite = Definition[RenditeInput, RenditeResult]{
	ID:          "rendite",
	Name:        "Renditerechner",
	Description: "Brutto- und Nettomietrendite sowie Kaufpreisfaktor",
	Category:    CategoryBewertung,
	Schema: object("Rendite", []string{"kaufpreis", "jahreskaltmiete"}, map[string]validation.Property{
		"kaufpreis":          num("Kaufpreis", "EUR"),
		"jahreskaltmiete":    num("Jahresnettokaltmiete", "EUR"),
		"kaufnebenkosten":    num("Kaufnebenkosten", "%"),
		"nicht_umlagefaehig": num("Nicht umlagefähige Kosten pro Jahr", "EUR"),
	}),
	Decode: func(v Values) (RenditeInput, error) {
		r := newReader(v)
		in := RenditeInput{
			Kaufpreis:         r.required("kaufpreis"),
			Jahreskaltmiete:   r.required("jahreskaltmiete"),
			Kaufnebenkosten:   r.nonNegative("kaufnebenkosten", r.optional("kaufnebenkosten", 0)),
			NichtUmlagefaehig: r.nonNegative("nicht_umlagefaehig", r.optional("nicht_umlagefaehig", 0)),
		}
		return in, r.err()
	},
	Formula: func(in RenditeInput) (RenditeResult, error) {
		total := in.Kaufpreis * (1 + in.Kaufnebenkosten/100)
		net := in.Jahreskaltmiete - in.NichtUmlagefaehig
		return RenditeResult{
			Bruttorendite:     in.Jahreskaltmiete / in.Kaufpreis * 100,
			Nettorendite:      net / total * 100,
			Kaufpreisfaktor:   in.Kaufpreis / in.Jahreskaltmiete,
			Gesamtinvestition: total,
			Reinertrag:        net,
		}, nil
	},
	Display: func(o RenditeResult) map[string]string {
		return map[string]string{
			"bruttorendite":     percent(o.Bruttorendite),
			"nettorendite":      percent(o.Nettorendite),
			"kaufpreisfaktor":   fixed(o.Kaufpreisfaktor, 1),
			"gesamtinvestition": money(o.Gesamtinvestition),
			"reinertrag":        money(o.Reinertrag),
		}
	},
}
