package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"immo-workers/internal/calculator"
	"immo-workers/internal/common/errors"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Verfügbare Rechner auflisten",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKATEGORIE\tNAME")
			for _, t := range calculator.Default().List() {
				if category != "" && t.Category() != category {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID(), t.Category(), t.Name())
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "nur Rechner dieser Kategorie")
	return cmd
}

func newRunCmd() *cobra.Command {
	var (
		sets      []string
		inputFile string
		rawJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "run <tool> [--set feld=wert ...]",
		Short: "Einen Rechner ausführen",
		Example: "  immo-calc run finanzierung --set kaufpreis=300000 --set eigenkapital=60000 " +
			"--set zinssatz=3.5 --set tilgung=2",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := calculator.Values{}
			if inputFile != "" {
				raw, err := os.ReadFile(inputFile)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(raw, &values); err != nil {
					return fmt.Errorf("%s: %w", inputFile, err)
				}
			}
			set, err := parseSets(sets)
			if err != nil {
				return err
			}
			for k, v := range set {
				values[k] = v
			}
			outcome, err := calculator.Default().Run(args[0], values)
			if err != nil {
				return fmt.Errorf("%s", errors.UserMessage(err))
			}
			if rawJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(outcome)
			}
			return printDisplay(cmd, outcome.Display)
		},
	}
	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "Eingabewert als feld=wert")
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "JSON-Datei mit Eingabewerten; --set überschreibt einzelne Felder")
	cmd.Flags().BoolVar(&rawJSON, "json", false, "vollständiges Ergebnis als JSON ausgeben")
	return cmd
}

// parseSets turns feld=wert pairs into calculator values. Values stay
// strings; the calculators parse numbers themselves.
func parseSets(sets []string) (calculator.Values, error) {
	values := calculator.Values{}
	for _, s := range sets {
		key, value, ok := strings.Cut(s, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("ungültiges --set %q, erwartet feld=wert", s)
		}
		values[key] = strings.TrimSpace(value)
	}
	return values, nil
}

func printDisplay(cmd *cobra.Command, display map[string]string) error {
	keys := make([]string, 0, len(display))
	for k := range display {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\n", k, display[k])
	}
	return w.Flush()
}
