// cmd/tools/registry-updater/main.go
package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"immo-workers/pkg/registry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var path string
	root := &cobra.Command{
		Use:          "registry-updater",
		Short:        "Maintain the activity registry of the job workers",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&path, "path", "p", "configs/activity-registry.json", "Path to registry file")

	root.AddCommand(
		&cobra.Command{
			Use:   "sync",
			Short: "Add or refresh the activities of the built-in workers",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				reg, err := registry.LoadOrNew(path)
				if err != nil {
					return err
				}
				added, changed := reg.Sync(builtinActivities(), time.Now())
				if err := registry.Save(reg, path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Synced %s: %d added, %d changed\n", path, len(added), len(changed))
				for _, id := range added {
					fmt.Fprintf(cmd.OutOrStdout(), "  + %s\n", id)
				}
				for _, id := range changed {
					fmt.Fprintf(cmd.OutOrStdout(), "  ~ %s\n", id)
				}
				return nil
			},
		},
		newUpdateCmd(&path),
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the registry file against the built-in workers",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				reg, err := registry.LoadRegistry(path)
				if err != nil {
					return fmt.Errorf("failed to load registry: %w", err)
				}
				if err := validateAgainstBuiltin(reg); err != nil {
					return fmt.Errorf("registry validation failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d activities.\n", len(reg.Activities))
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List registered activities",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				reg, err := registry.LoadRegistry(path)
				if err != nil {
					return fmt.Errorf("failed to load registry: %w", err)
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTASK TYPE\tSTATUS\tTIMEOUT")
				for _, a := range reg.Activities {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.TaskType, a.ImplementationStatus, a.Timeout)
				}
				return w.Flush()
			},
		},
	)
	return root
}

func newUpdateCmd(path *string) *cobra.Command {
	var id, field, value string
	cmd := &cobra.Command{
		Use:     "update",
		Short:   "Update a hand-maintained field of an activity",
		Example: "  registry-updater update --id run-calculator --field status --value verified",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(*path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := reg.Update(id, field, value, time.Now()); err != nil {
				return err
			}
			if err := registry.Save(reg, *path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated activity %s, field %s to %s\n", id, field, value)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Activity ID to update")
	cmd.Flags().StringVar(&field, "field", "", "Field to update (status, version, displayName, description, timeout, retries)")
	cmd.Flags().StringVar(&value, "value", "", "New value for the field")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

// validateAgainstBuiltin runs the structural checks and reports built-in
// workers whose task type is missing from the file.
func validateAgainstBuiltin(reg *registry.ActivityRegistry) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	var missing []string
	for _, b := range builtinActivities() {
		a, ok := reg.Find(b.ID)
		if !ok || a.TaskType != b.TaskType {
			missing = append(missing, b.ID)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("out of date for %s, run sync", strings.Join(missing, ", "))
	}
	return nil
}
