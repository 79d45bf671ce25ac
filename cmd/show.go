package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/health"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
)

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a resource with health checks and recent events",
	Long: `Shows the stored record of a resource after reconciling it with the
container runtime, followed by health checks and the most recent audit events.

A record whose container no longer exists is removed and reported as not found.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var showEvents int

func init() {
	showCmd.Flags().IntVarP(&showEvents, "events", "n", 10, "Number of audit events to show (0 for none)")
	rootCmd.AddCommand(showCmd)
}

type showResult struct {
	Resource *session.Record `json:"resource"`
	Health   health.Status   `json:"health"`
	Uptime   string          `json:"uptime,omitempty"`
	Events   []audit.Event   `json:"events,omitempty"`
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	name := args[0]
	ctx := cmd.Context()

	rec, err := a.Controller.Get(ctx, caller(), name)
	if err != nil {
		return err
	}

	check, err := health.Check(ctx, a.Runtime, a.Broker, rec)
	if err != nil {
		logWarning("health check failed: %v", err)
		check = &health.CheckResult{}
	}

	var events []audit.Event
	if showEvents > 0 {
		events, err = a.Audit.Events(name)
		if err != nil {
			logWarning("could not read audit log: %v", err)
		}
		if len(events) > showEvents {
			events = events[len(events)-showEvents:]
		}
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), showResult{
			Resource: rec,
			Health:   check.Status(),
			Uptime:   check.Uptime,
			Events:   events,
		})
	}

	if err := printRecord(cmd, rec); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Health Checks:")
	fmt.Fprintf(w, "  Container: %s\n", boolStatus(check.ContainerRunning))
	if check.ContainerRunning {
		fmt.Fprintf(w, "  Uptime: %s\n", check.Uptime)
		fmt.Fprintf(w, "  Session: %s\n", boolStatus(check.SessionActive))
	}
	fmt.Fprintf(w, "  Status: %s\n", formatStatus(check.Status()))

	if len(events) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Recent Events:")
		for _, e := range events {
			line := fmt.Sprintf("  %s  %-10s", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Type)
			if e.Actor != "" {
				line += " by " + e.Actor
			}
			if e.Details != "" {
				line += ": " + e.Details
			}
			fmt.Fprintln(w, line)
		}
	}
	return nil
}
