package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var gcForce bool

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Reconcile the session store with the container runtime (admin only)",
	Long: `Compares the session store with the containers the runtime manages.

Without --force, prints what would be cleaned (dry run).
With --force, removes stale records and destroys orphaned containers.

Detects:
  - Stale records: records whose container no longer exists
  - Orphaned containers: managed containers with no record`,
	RunE: runGC,
}

func init() {
	gcCmd.Flags().BoolVar(&gcForce, "force", false, "Actually repair inconsistencies (default is dry run)")
	rootCmd.AddCommand(gcCmd)
}

func runGC(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	report, err := a.Controller.Reconcile(cmd.Context(), caller(), gcForce)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), report)
	}

	if report.Empty() {
		logSuccess("Store and runtime agree, nothing to clean up")
		return nil
	}

	w := cmd.OutOrStdout()
	verb := "Would remove"
	if report.Applied {
		verb = "Removed"
	}
	for _, name := range report.StaleRecords {
		fmt.Fprintf(w, "%s stale record: %s\n", verb, name)
	}
	verb = "Would destroy"
	if report.Applied {
		verb = "Destroyed"
	}
	for _, name := range report.Orphans {
		fmt.Fprintf(w, "%s orphaned container: %s\n", verb, name)
	}

	for name, msg := range report.Failed {
		logWarning("failed to repair %s: %s", name, msg)
	}
	if !report.Applied {
		logInfo("Run with --force to apply")
	}
	return nil
}
