package calculator

import (
	"fmt"
	"math"

	"immo-workers/internal/common/errors"
	"immo-workers/internal/common/validation"
)

// annuity returns the constant monthly payment that repays principal over n
// months at monthly rate i. A zero rate repays linearly.
func annuity(principal, i float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	if i == 0 {
		return principal / float64(n)
	}
	q := math.Pow(1+i, float64(n))
	return principal * i * q / (q - 1)
}

type FinanzierungInput struct {
	Kaufpreis     float64 `json:"kaufpreis"`
	Eigenkapital  float64 `json:"eigenkapital"`
	Zinssatz      float64 `json:"zinssatz"`
	LaufzeitJahre float64 `json:"laufzeit_jahre"`
}

type FinanzierungResult struct {
	Darlehensbetrag   float64 `json:"darlehensbetrag"`
	MonatlicheRate    float64 `json:"monatliche_rate"`
	Gesamtzahlung     float64 `json:"gesamtzahlung"`
	Gesamtzinsen      float64 `json:"gesamtzinsen"`
	Laufzeitmonate    int     `json:"laufzeit_monate"`
	Beleihungsauslauf float64 `json:"beleihungsauslauf"`
	Eigenkapitalquote float64 `json:"eigenkapitalquote"`
}

var Finanzierung = Definition[FinanzierungInput, FinanzierungResult]{
	ID:          "finanzierung",
	Name:        "Finanzierungsrechner",
	Description: "Monatliche Annuität, Gesamtzahlung und Zinskosten eines Immobiliendarlehens",
	Category:    CategoryFinanzierung,
	Schema: object("Finanzierung", []string{"kaufpreis", "zinssatz", "laufzeit_jahre"}, map[string]validation.Property{
		"kaufpreis":      num("Kaufpreis", "EUR"),
		"eigenkapital":   num("Eigenkapital", "EUR"),
		"zinssatz":       num("Sollzins p.a.", "%"),
		"laufzeit_jahre": num("Laufzeit", "Jahre"),
	}),
	Decode: func(v Values) (FinanzierungInput, error) {
		r := newReader(v)
		in := FinanzierungInput{
			Kaufpreis:     r.required("kaufpreis"),
			Eigenkapital:  r.nonNegative("eigenkapital", r.optional("eigenkapital", 0)),
			Zinssatz:      r.nonNegative("zinssatz", r.present("zinssatz")),
			LaufzeitJahre: r.required("laufzeit_jahre"),
		}
		return in, r.err()
	},
	Formula: func(in FinanzierungInput) (FinanzierungResult, error) {
		principal := in.Kaufpreis - in.Eigenkapital
		if principal <= 0 {
			return FinanzierungResult{}, errors.NewValidationError("eigenkapital",
				"Das Eigenkapital deckt den Kaufpreis, es wird kein Darlehen benötigt")
		}
		n := int(math.Round(in.LaufzeitJahre * 12))
		if n <= 0 {
			return FinanzierungResult{}, errors.NewValidationError("laufzeit_jahre", "Die Laufzeit ist zu kurz")
		}
		payment := annuity(principal, in.Zinssatz/100/12, n)
		total := payment * float64(n)
		return FinanzierungResult{
			Darlehensbetrag:   principal,
			MonatlicheRate:    payment,
			Gesamtzahlung:     total,
			Gesamtzinsen:      total - principal,
			Laufzeitmonate:    n,
			Beleihungsauslauf: principal / in.Kaufpreis * 100,
			Eigenkapitalquote: in.Eigenkapital / in.Kaufpreis * 100,
		}, nil
	},
	Display: func(o FinanzierungResult) map[string]string {
		return map[string]string{
			"darlehensbetrag":   money(o.Darlehensbetrag),
			"monatliche_rate":   money(o.MonatlicheRate),
			"gesamtzahlung":     money(o.Gesamtzahlung),
			"gesamtzinsen":      money(o.Gesamtzinsen),
			"beleihungsauslauf": percent(o.Beleihungsauslauf),
			"eigenkapitalquote": percent(o.Eigenkapitalquote),
		}
	},
}

type TilgungsplanInput struct {
	Darlehensbetrag float64 `json:"darlehensbetrag"`
	Zinssatz        float64 `json:"zinssatz"`
	Tilgungssatz    float64 `json:"tilgungssatz"`
	Sondertilgung   float64 `json:"sondertilgung"`
}

type TilgungsJahr struct {
	Jahr       int     `json:"jahr"`
	Zinsen     float64 `json:"zinsen"`
	Tilgung    float64 `json:"tilgung"`
	Restschuld float64 `json:"restschuld"`
}

type TilgungsplanResult struct {
	MonatlicheRate float64        `json:"monatliche_rate"`
	Laufzeitmonate int            `json:"laufzeit_monate"`
	Gesamtzinsen   float64        `json:"gesamtzinsen"`
	Jahre          []TilgungsJahr `json:"jahre"`
}

// maxPlanMonths bounds the schedule for tiny repayment rates.
const maxPlanMonths = 100 * 12

var Tilgungsplan = Definition[TilgungsplanInput, TilgungsplanResult]{
	ID:          "tilgungsplan",
	Name:        "Tilgungsplan",
	Description: "Jährlicher Tilgungsplan eines Annuitätendarlehens aus Sollzins und anfänglicher Tilgung",
	Category:    CategoryFinanzierung,
	Schema: object("Tilgungsplan", []string{"darlehensbetrag", "zinssatz", "tilgungssatz"}, map[string]validation.Property{
		"darlehensbetrag": num("Darlehensbetrag", "EUR"),
		"zinssatz":        num("Sollzins p.a.", "%"),
		"tilgungssatz":    num("Anfängliche Tilgung", "%"),
		"sondertilgung":   num("Jährliche Sondertilgung", "EUR"),
	}),
	Decode: func(v Values) (TilgungsplanInput, error) {
		r := newReader(v)
		in := TilgungsplanInput{
			Darlehensbetrag: r.required("darlehensbetrag"),
			Zinssatz:        r.nonNegative("zinssatz", r.present("zinssatz")),
			Tilgungssatz:    r.required("tilgungssatz"),
			Sondertilgung:   r.nonNegative("sondertilgung", r.optional("sondertilgung", 0)),
		}
		return in, r.err()
	},
	Formula: func(in TilgungsplanInput) (TilgungsplanResult, error) {
		if in.Tilgungssatz <= 0 {
			return TilgungsplanResult{}, errors.NewValidationError("tilgungssatz", "Die Tilgung muss größer als 0 sein")
		}
		payment := in.Darlehensbetrag * (in.Zinssatz + in.Tilgungssatz) / 100 / 12
		i := in.Zinssatz / 100 / 12

		res := TilgungsplanResult{MonatlicheRate: payment}
		rest := in.Darlehensbetrag
		year := TilgungsJahr{Jahr: 1}
		for month := 1; rest > 1e-9 && month <= maxPlanMonths; month++ {
			interest := rest * i
			principal := math.Min(payment-interest, rest)
			rest -= principal
			year.Zinsen += interest
			year.Tilgung += principal
			res.Gesamtzinsen += interest
			res.Laufzeitmonate = month

			if month%12 == 0 && in.Sondertilgung > 0 && rest > 0 {
				extra := math.Min(in.Sondertilgung, rest)
				rest -= extra
				year.Tilgung += extra
			}
			if month%12 == 0 || rest <= 1e-9 {
				year.Restschuld = math.Max(rest, 0)
				res.Jahre = append(res.Jahre, year)
				year = TilgungsJahr{Jahr: year.Jahr + 1}
			}
		}
		if rest > 0.005 {
			return TilgungsplanResult{}, errors.NewValidationError("tilgungssatz",
				fmt.Sprintf("Mit dieser Tilgung ist das Darlehen nach %d Jahren nicht getilgt (Restschuld %s €)",
					maxPlanMonths/12, money(rest)))
		}
		return res, nil
	},
	Display: func(o TilgungsplanResult) map[string]string {
		return map[string]string{
			"monatliche_rate": money(o.MonatlicheRate),
			"gesamtzinsen":    money(o.Gesamtzinsen),
			"laufzeit_jahre":  fixed(float64(o.Laufzeitmonate)/12, 1),
		}
	},
}

type AmortisationInput struct {
	Investition       float64 `json:"investition"`
	JaehrlicherGewinn float64 `json:"jaehrlicher_gewinn"`
}

type AmortisationResult struct {
	Jahre      float64 `json:"jahre"`
	GanzeJahre int     `json:"ganze_jahre"`
	Monate     float64 `json:"monate"`
	Rendite    float64 `json:"rendite"`
}

var Amortisation = Definition[AmortisationInput, AmortisationResult]{
	ID:          "amortisation",
	Name:        "Amortisationsrechner",
	Description: "Zeit bis sich eine Investition aus dem jährlichen Überschuss bezahlt macht",
	Category:    CategoryFinanzierung,
	Schema: object("Amortisation", []string{"investition", "jaehrlicher_gewinn"}, map[string]validation.Property{
		"investition":        num("Investition", "EUR"),
		"jaehrlicher_gewinn": num("Jährlicher Gewinn", "EUR"),
	}),
	Decode: func(v Values) (AmortisationInput, error) {
		r := newReader(v)
		in := AmortisationInput{
			Investition:       r.required("investition"),
			JaehrlicherGewinn: r.required("jaehrlicher_gewinn"),
		}
		return in, r.err()
	},
	Formula: func(in AmortisationInput) (AmortisationResult, error) {
		if in.JaehrlicherGewinn <= 0 {
			return AmortisationResult{}, errors.NewValidationError("jaehrlicher_gewinn",
				"Ohne positiven Gewinn amortisiert sich die Investition nicht")
		}
		years := in.Investition / in.JaehrlicherGewinn
		return AmortisationResult{
			Jahre:      years,
			GanzeJahre: int(math.Floor(years)),
			Monate:     math.Mod(years, 1) * 12,
			Rendite:    in.JaehrlicherGewinn / in.Investition * 100,
		}, nil
	},
	Display: func(o AmortisationResult) map[string]string {
		return map[string]string{
			"jahre":   fixed(o.Jahre, 1),
			"monate":  fixed(o.Monate, 0),
			"rendite": percent(o.Rendite),
		}
	},
}

type CashflowInput struct {
	Kaltmiete       float64 `json:"kaltmiete"`
	Darlehensrate   float64 `json:"darlehensrate"`
	Hausgeld        float64 `json:"hausgeld"`
	Ruecklage       float64 `json:"ruecklage"`
	Leerstandsquote float64 `json:"leerstandsquote"`
}

type CashflowResult struct {
	Mieteinnahmen float64 `json:"mieteinnahmen"`
	Ausgaben      float64 `json:"ausgaben"`
	CashflowMonat float64 `json:"cashflow_monat"`
	CashflowJahr  float64 `json:"cashflow_jahr"`
	Positiv       bool    `json:"positiv"`
}

var Cashflow = Definition[CashflowInput, CashflowResult]{
	ID:          "cashflow",
	Name:        "Cashflow-Rechner",
	Description: "Monatlicher Überschuss einer vermieteten Immobilie nach Kapitaldienst",
	Category:    CategoryVermietung,
	Schema: object("Cashflow", []string{"kaltmiete"}, map[string]validation.Property{
		"kaltmiete":       num("Nettokaltmiete pro Monat", "EUR"),
		"darlehensrate":   num("Darlehensrate pro Monat", "EUR"),
		"hausgeld":        num("Nicht umlagefähiges Hausgeld pro Monat", "EUR"),
		"ruecklage":       num("Instandhaltungsrücklage pro Monat", "EUR"),
		"leerstandsquote": num("Mietausfallwagnis", "%"),
	}),
	Decode: func(v Values) (CashflowInput, error) {
		r := newReader(v)
		in := CashflowInput{
			Kaltmiete:       r.required("kaltmiete"),
			Darlehensrate:   r.nonNegative("darlehensrate", r.optional("darlehensrate", 0)),
			Hausgeld:        r.nonNegative("hausgeld", r.optional("hausgeld", 0)),
			Ruecklage:       r.nonNegative("ruecklage", r.optional("ruecklage", 0)),
			Leerstandsquote: r.nonNegative("leerstandsquote", r.optional("leerstandsquote", 0)),
		}
		return in, r.err()
	},
	Formula: func(in CashflowInput) (CashflowResult, error) {
		if in.Leerstandsquote > 100 {
			return CashflowResult{}, errors.NewValidationError("leerstandsquote", "Der Mietausfall darf höchstens 100 % betragen")
		}
		income := in.Kaltmiete * (1 - in.Leerstandsquote/100)
		costs := in.Darlehensrate + in.Hausgeld + in.Ruecklage
		monthly := income - costs
		return CashflowResult{
			Mieteinnahmen: income,
			Ausgaben:      costs,
			CashflowMonat: monthly,
			CashflowJahr:  monthly * 12,
			Positiv:       monthly >= 0,
		}, nil
	},
	Display: func(o CashflowResult) map[string]string {
		return map[string]string{
			"mieteinnahmen":  money(o.Mieteinnahmen),
			"ausgaben":       money(o.Ausgaben),
			"cashflow_monat": money(o.CashflowMonat),
			"cashflow_jahr":  money(o.CashflowJahr),
		}
	},
}
