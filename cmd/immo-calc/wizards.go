package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"immo-workers/internal/common/errors"
	"immo-workers/internal/wizard"

	"github.com/spf13/cobra"
)

func newWizardCmd() *cobra.Command {
	var inputFile string
	cmd := &cobra.Command{
		Use:   "wizard [id]",
		Short: "Dokumentassistenten anzeigen und Formulardaten prüfen",
		Long: "Ohne ID werden alle Assistenten aufgelistet. Mit ID werden die Schritte angezeigt; " +
			"mit --input werden die Formulardaten Schritt für Schritt geprüft.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := wizard.DefaultRegistry()
			if len(args) == 0 {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tSCHRITTE\tTITEL")
				for _, def := range registry.List() {
					fmt.Fprintf(w, "%s\t%d\t%s\n", def.ID, def.Total(), def.Title)
				}
				return w.Flush()
			}

			def, err := registry.Get(args[0])
			if err != nil {
				return fmt.Errorf("%s", errors.UserMessage(err))
			}
			var data wizard.FormData
			if inputFile != "" {
				raw, err := os.ReadFile(inputFile)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(raw, &data); err != nil {
					return fmt.Errorf("%s: %w", inputFile, err)
				}
			}
			return checkWizard(cmd, def, data, inputFile != "")
		},
	}
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "JSON-Datei mit Formulardaten")
	return cmd
}

func checkWizard(cmd *cobra.Command, def *wizard.Definition, data wizard.FormData, check bool) error {
	printf(cmd, "%s (%s)\n", def.Title, def.DocumentType)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	complete := true
	for i, step := range def.Steps {
		status := ""
		if check {
			status = "ok"
			if err := step.Check(i+1, data); err != nil {
				status = errors.UserMessage(err)
				complete = false
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, step.Title, strings.Join(step.Required, ", "), status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if !check {
		return nil
	}
	if !complete {
		return fmt.Errorf("Formulardaten unvollständig")
	}
	if err := def.ValidateDocument(data); err != nil {
		return fmt.Errorf("%s", errors.UserMessage(err))
	}
	printf(cmd, "Formulardaten vollständig\n")
	return nil
}
