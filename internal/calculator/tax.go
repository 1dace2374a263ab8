package calculator

import (
	"math"
	"sort"
	"strings"

	"immo-workers/internal/common/errors"
	"immo-workers/internal/common/validation"
)

type SteuerersparnisInput struct {
	Einkommen    float64 `json:"einkommen"`
	Abschreibung float64 `json:"abschreibung"`
	Steuersatz   float64 `json:"steuersatz"`
}

type SteuerersparnisResult struct {
	SteuerOhneAfa  float64 `json:"steuer_ohne_afa"`
	SteuerMitAfa   float64 `json:"steuer_mit_afa"`
	Ersparnis      float64 `json:"ersparnis"`
	ErsparnisMonat float64 `json:"ersparnis_monat"`
}

// Steuerersparnis compares the tax due with and without a depreciation
// deduction at a flat marginal rate.
var Steuerersparnis = Definition[SteuerersparnisInput, SteuerersparnisResult]{
	ID:          "steuerersparnis",
	Name:        "Steuerersparnisrechner",
	Description: "Steuerliche Ersparnis durch Abschreibung beim persönlichen Grenzsteuersatz",
	Category:    CategorySteuern,
	Schema: object("Steuerersparnis", []string{"einkommen", "abschreibung", "steuersatz"}, map[string]validation.Property{
		"einkommen":    num("Zu versteuerndes Einkommen", "EUR"),
		"abschreibung": num("Abschreibung pro Jahr", "EUR"),
		"steuersatz":   {Type: "numeric", Title: "Grenzsteuersatz", Unit: "%", Minimum: validation.Float(0), Maximum: validation.Float(100)},
	}),
	Decode: func(v Values) (SteuerersparnisInput, error) {
		r := newReader(v)
		in := SteuerersparnisInput{
			Einkommen:    r.required("einkommen"),
			Abschreibung: r.required("abschreibung"),
			Steuersatz:   r.required("steuersatz"),
		}
		return in, r.err()
	},
	Formula: func(in SteuerersparnisInput) (SteuerersparnisResult, error) {
		rate := in.Steuersatz / 100
		without := in.Einkommen * rate
		with := math.Max(0, in.Einkommen-in.Abschreibung) * rate
		savings := without - with
		return SteuerersparnisResult{
			SteuerOhneAfa:  without,
			SteuerMitAfa:   with,
			Ersparnis:      savings,
			ErsparnisMonat: savings / 12,
		}, nil
	},
	Display: func(o SteuerersparnisResult) map[string]string {
		return map[string]string{
			"steuer_ohne_afa": money(o.SteuerOhneAfa),
			"steuer_mit_afa":  money(o.SteuerMitAfa),
			"ersparnis":       money(o.Ersparnis),
			"ersparnis_monat": money(o.ErsparnisMonat),
		}
	},
}

type AfAInput struct {
	Gebaeudewert float64 `json:"gebaeudewert"`
	Baujahr      int     `json:"baujahr"`
	Steuersatz   float64 `json:"steuersatz"`
}

type AfAResult struct {
	Satz            float64 `json:"satz"`
	JaehrlicheAfa   float64 `json:"jaehrliche_afa"`
	Nutzungsdauer   float64 `json:"nutzungsdauer"`
	Steuerersparnis float64 `json:"steuerersparnis"`
}

// afaRate is the linear building depreciation rate for residential
// buildings by year of completion.
func afaRate(baujahr int) float64 {
	switch {
	case baujahr < 1925:
		return 2.5
	case baujahr >= 2023:
		return 3.0
	default:
		return 2.0
	}
}

var AfA = Definition[AfAInput, AfAResult]{
	ID:          "afa",
	Name:        "AfA-Rechner",
	Description: "Lineare Gebäudeabschreibung nach Baujahr",
	Category:    CategorySteuern,
	Schema: object("AfA", []string{"gebaeudewert", "baujahr"}, map[string]validation.Property{
		"gebaeudewert": num("Gebäudeanteil der Anschaffungskosten", "EUR"),
		"baujahr":      {Type: "numeric", Title: "Baujahr", Minimum: validation.Float(1800), Maximum: validation.Float(2100)},
		"steuersatz":   num("Grenzsteuersatz", "%"),
	}),
	Decode: func(v Values) (AfAInput, error) {
		r := newReader(v)
		in := AfAInput{
			Gebaeudewert: r.required("gebaeudewert"),
			Baujahr:      int(r.required("baujahr")),
			Steuersatz:   r.nonNegative("steuersatz", r.optional("steuersatz", 0)),
		}
		return in, r.err()
	},
	Formula: func(in AfAInput) (AfAResult, error) {
		rate := afaRate(in.Baujahr)
		yearly := in.Gebaeudewert * rate / 100
		return AfAResult{
			Satz:            rate,
			JaehrlicheAfa:   yearly,
			Nutzungsdauer:   100 / rate,
			Steuerersparnis: yearly * in.Steuersatz / 100,
		}, nil
	},
	Display: func(o AfAResult) map[string]string {
		return map[string]string{
			"satz":            percent(o.Satz),
			"jaehrliche_afa":  money(o.JaehrlicheAfa),
			"nutzungsdauer":   fixed(o.Nutzungsdauer, 0),
			"steuerersparnis": money(o.Steuerersparnis),
		}
	},
}

// GrunderwerbsteuerSaetze holds the real-estate transfer tax rate per
// federal state in percent.
var GrunderwerbsteuerSaetze = map[string]float64{
	"BW": 5.0,
	"BY": 3.5,
	"BE": 6.0,
	"BB": 6.5,
	"HB": 5.0,
	"HH": 5.5,
	"HE": 6.0,
	"MV": 6.0,
	"NI": 5.0,
	"NW": 6.5,
	"RP": 5.0,
	"SL": 6.5,
	"SN": 5.5,
	"ST": 5.0,
	"SH": 6.5,
	"TH": 5.0,
}

func bundeslaender() []string {
	out := make([]string, 0, len(GrunderwerbsteuerSaetze))
	for k := range GrunderwerbsteuerSaetze {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func readBundesland(r *fieldReader) (string, float64) {
	land := strings.ToUpper(r.text("bundesland", ""))
	if land == "" {
		r.missing = append(r.missing, "bundesland")
		return "", 0
	}
	rate, ok := GrunderwerbsteuerSaetze[land]
	if !ok && r.invalid == nil {
		r.invalid = errors.NewValidationError("bundesland",
			"Unbekanntes Bundesland: "+land+" (erlaubt: "+strings.Join(bundeslaender(), ", ")+")")
	}
	return land, rate
}

type GrunderwerbsteuerInput struct {
	Kaufpreis  float64 `json:"kaufpreis"`
	Bundesland string  `json:"bundesland"`
	Satz       float64 `json:"satz"`
}

type GrunderwerbsteuerResult struct {
	Satz   float64 `json:"satz"`
	Steuer float64 `json:"steuer"`
}

var Grunderwerbsteuer = Definition[GrunderwerbsteuerInput, GrunderwerbsteuerResult]{
	ID:          "grunderwerbsteuer",
	Name:        "Grunderwerbsteuerrechner",
	Description: "Grunderwerbsteuer nach Bundesland",
	Category:    CategoryKauf,
	Schema: object("Grunderwerbsteuer", []string{"kaufpreis", "bundesland"}, map[string]validation.Property{
		"kaufpreis":  num("Kaufpreis", "EUR"),
		"bundesland": {Type: "string", Title: "Bundesland", Description: "Kürzel, z. B. BY oder NW"},
	}),
	Decode: func(v Values) (GrunderwerbsteuerInput, error) {
		r := newReader(v)
		in := GrunderwerbsteuerInput{Kaufpreis: r.required("kaufpreis")}
		in.Bundesland, in.Satz = readBundesland(r)
		return in, r.err()
	},
	Formula: func(in GrunderwerbsteuerInput) (GrunderwerbsteuerResult, error) {
		return GrunderwerbsteuerResult{
			Satz:   in.Satz,
			Steuer: in.Kaufpreis * in.Satz / 100,
		}, nil
	},
	Display: func(o GrunderwerbsteuerResult) map[string]string {
		return map[string]string{
			"satz":   percent(o.Satz),
			"steuer": money(o.Steuer),
		}
	},
}

// Default fee rates for the purchase side costs, in percent of the price.
const (
	DefaultNotarSatz     = 1.5
	DefaultGrundbuchSatz = 0.5
	DefaultMaklerSatz    = 3.57
)

type KaufnebenkostenInput struct {
	Kaufpreis     float64 `json:"kaufpreis"`
	Bundesland    string  `json:"bundesland"`
	GrESatz       float64 `json:"grunderwerbsteuer_satz"`
	NotarSatz     float64 `json:"notar_satz"`
	GrundbuchSatz float64 `json:"grundbuch_satz"`
	MaklerSatz    float64 `json:"makler_satz"`
}

type KaufnebenkostenResult struct {
	Grunderwerbsteuer float64 `json:"grunderwerbsteuer"`
	Notar             float64 `json:"notar"`
	Grundbuch         float64 `json:"grundbuch"`
	Makler            float64 `json:"makler"`
	Summe             float64 `json:"summe"`
	SummeProzent      float64 `json:"summe_prozent"`
	Gesamtkosten      float64 `json:"gesamtkosten"`
}

var Kaufnebenkosten = Definition[KaufnebenkostenInput, KaufnebenkostenResult]{
	ID:          "kaufnebenkosten",
	Name:        "Kaufnebenkostenrechner",
	Description: "Grunderwerbsteuer, Notar, Grundbuch und Makler beim Immobilienkauf",
	Category:    CategoryKauf,
	Schema: object("Kaufnebenkosten", []string{"kaufpreis", "bundesland"}, map[string]validation.Property{
		"kaufpreis":      num("Kaufpreis", "EUR"),
		"bundesland":     {Type: "string", Title: "Bundesland", Description: "Kürzel, z. B. BY oder NW"},
		"notar_satz":     num("Notarkosten", "%"),
		"grundbuch_satz": num("Grundbuchkosten", "%"),
		"makler_satz":    num("Maklerprovision", "%"),
	}),
	Decode: func(v Values) (KaufnebenkostenInput, error) {
		r := newReader(v)
		in := KaufnebenkostenInput{
			Kaufpreis:     r.required("kaufpreis"),
			NotarSatz:     r.nonNegative("notar_satz", r.optional("notar_satz", DefaultNotarSatz)),
			GrundbuchSatz: r.nonNegative("grundbuch_satz", r.optional("grundbuch_satz", DefaultGrundbuchSatz)),
			MaklerSatz:    r.nonNegative("makler_satz", r.optional("makler_satz", DefaultMaklerSatz)),
		}
		in.Bundesland, in.GrESatz = readBundesland(r)
		return in, r.err()
	},
	Formula: func(in KaufnebenkostenInput) (KaufnebenkostenResult, error) {
		res := KaufnebenkostenResult{
			Grunderwerbsteuer: in.Kaufpreis * in.GrESatz / 100,
			Notar:             in.Kaufpreis * in.NotarSatz / 100,
			Grundbuch:         in.Kaufpreis * in.GrundbuchSatz / 100,
			Makler:            in.Kaufpreis * in.MaklerSatz / 100,
		}
		res.Summe = res.Grunderwerbsteuer + res.Notar + res.Grundbuch + res.Makler
		res.SummeProzent = res.Summe / in.Kaufpreis * 100
		res.Gesamtkosten = in.Kaufpreis + res.Summe
		return res, nil
	},
	Display: func(o KaufnebenkostenResult) map[string]string {
		return map[string]string{
			"grunderwerbsteuer": money(o.Grunderwerbsteuer),
			"notar":             money(o.Notar),
			"grundbuch":         money(o.Grundbuch),
			"makler":            money(o.Makler),
			"summe":             money(o.Summe),
			"summe_prozent":     percent(o.SummeProzent),
			"gesamtkosten":      money(o.Gesamtkosten),
		}
	},
}
