package calculator

import (
	"math"

	"immo-workers/internal/common/validation"
)

// Kappungsgrenze is the default cap on rent increases within three years.
const Kappungsgrenze = 20.0

type MieterhoehungInput struct {
	AktuelleMiete    float64 `json:"aktuelle_miete"`
	Vergleichsmiete  float64 `json:"vergleichsmiete"`
	JahreSeitLetzter float64 `json:"jahre_seit_letzter_erhoehung"`
	Kappungsgrenze   float64 `json:"kappungsgrenze"`
}

type MieterhoehungResult struct {
	Zulaessig        bool    `json:"zulaessig"`
	NeueMiete        float64 `json:"neue_miete"`
	Erhoehung        float64 `json:"erhoehung"`
	ErhoehungProzent float64 `json:"erhoehung_prozent"`
	Kappungsmiete    float64 `json:"kappungsmiete"`
	Begruendung      string  `json:"begruendung"`
}

// Mieterhoehung checks a rent increase against the one-year lock period and
// the cap. The permitted rent is min(comparable, current * (1 + cap)).
var Mieterhoehung = Definition[MieterhoehungInput, MieterhoehungResult]{
	ID:          "mieterhoehung",
	Name:        "Mieterhöhungsrechner",
	Description: "Prüft Sperrfrist und Kappungsgrenze einer Mieterhöhung auf die Vergleichsmiete",
	Category:    CategoryVermietung,
	Schema: object("Mieterhöhung", []string{"aktuelle_miete", "vergleichsmiete", "jahre_seit_letzter_erhoehung"}, map[string]validation.Property{
		"aktuelle_miete":               num("Aktuelle Nettokaltmiete", "EUR"),
		"vergleichsmiete":              num("Ortsübliche Vergleichsmiete", "EUR"),
		"jahre_seit_letzter_erhoehung": num("Jahre seit der letzten Erhöhung", "Jahre"),
		"kappungsgrenze":               num("Kappungsgrenze", "%"),
	}),
	Decode: func(v Values) (MieterhoehungInput, error) {
		r := newReader(v)
		in := MieterhoehungInput{
			AktuelleMiete:    r.required("aktuelle_miete"),
			Vergleichsmiete:  r.required("vergleichsmiete"),
			JahreSeitLetzter: r.present("jahre_seit_letzter_erhoehung"),
			Kappungsgrenze:   r.optional("kappungsgrenze", Kappungsgrenze),
		}
		if in.Kappungsgrenze != 15 && in.Kappungsgrenze != 20 {
			in.Kappungsgrenze = Kappungsgrenze
		}
		return in, r.err()
	},
	Formula: func(in MieterhoehungInput) (MieterhoehungResult, error) {
		capped := in.AktuelleMiete * (1 + in.Kappungsgrenze/100)
		res := MieterhoehungResult{
			NeueMiete:     in.AktuelleMiete,
			Kappungsmiete: capped,
		}
		switch {
		case in.JahreSeitLetzter < 1:
			res.Begruendung = "Die letzte Mieterhöhung liegt weniger als ein Jahr zurück (Sperrfrist)"
		case in.Vergleichsmiete <= in.AktuelleMiete:
			res.Begruendung = "Die Vergleichsmiete liegt nicht über der aktuellen Miete"
		default:
			res.Zulaessig = true
			res.NeueMiete = math.Min(in.Vergleichsmiete, capped)
			res.Erhoehung = res.NeueMiete - in.AktuelleMiete
			res.ErhoehungProzent = res.Erhoehung / in.AktuelleMiete * 100
			if res.NeueMiete < in.Vergleichsmiete {
				res.Begruendung = "Erhöhung bis zur Kappungsgrenze zulässig"
			} else {
				res.Begruendung = "Erhöhung bis zur ortsüblichen Vergleichsmiete zulässig"
			}
		}
		return res, nil
	},
	Display: func(o MieterhoehungResult) map[string]string {
		return map[string]string{
			"neue_miete":        money(o.NeueMiete),
			"erhoehung":         money(o.Erhoehung),
			"erhoehung_prozent": percent(o.ErhoehungProzent),
			"kappungsmiete":     money(o.Kappungsmiete),
		}
	},
}

// maxKautionMonths is the statutory deposit cap in net cold rents.
const maxKautionMonths = 3

type MietkautionInput struct {
	Nettokaltmiete float64 `json:"nettokaltmiete"`
	Kaution        float64 `json:"kaution"`
}

type MietkautionResult struct {
	Hoechstbetrag float64 `json:"hoechstbetrag"`
	Kaution       float64 `json:"kaution"`
	Zulaessig     bool    `json:"zulaessig"`
	Ueberschuss   float64 `json:"ueberschuss"`
	Rate          float64 `json:"rate"`
}

var Mietkaution = Definition[MietkautionInput, MietkautionResult]{
	ID:          "mietkaution",
	Name:        "Mietkautionsrechner",
	Description: "Höchstzulässige Mietkaution und Ratenzahlung in drei Monatsraten",
	Category:    CategoryVermietung,
	Schema: object("Mietkaution", []string{"nettokaltmiete"}, map[string]validation.Property{
		"nettokaltmiete": num("Nettokaltmiete", "EUR"),
		"kaution":        num("Vereinbarte Kaution", "EUR"),
	}),
	Decode: func(v Values) (MietkautionInput, error) {
		r := newReader(v)
		in := MietkautionInput{
			Nettokaltmiete: r.required("nettokaltmiete"),
			Kaution:        r.nonNegative("kaution", r.optional("kaution", 0)),
		}
		return in, r.err()
	},
	Formula: func(in MietkautionInput) (MietkautionResult, error) {
		limit := in.Nettokaltmiete * maxKautionMonths
		deposit := in.Kaution
		if deposit == 0 {
			deposit = limit
		}
		return MietkautionResult{
			Hoechstbetrag: limit,
			Kaution:       deposit,
			Zulaessig:     deposit <= limit,
			Ueberschuss:   math.Max(deposit-limit, 0),
			Rate:          math.Min(deposit, limit) / maxKautionMonths,
		}, nil
	},
	Display: func(o MietkautionResult) map[string]string {
		return map[string]string{
			"hoechstbetrag": money(o.Hoechstbetrag),
			"kaution":       money(o.Kaution),
			"ueberschuss":   money(o.Ueberschuss),
			"rate":          money(o.Rate),
		}
	},
}
