package cmd

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/health"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/tui"
)

var managePlain bool

var manageCmd = &cobra.Command{
	Use:   "manage",
	Short: "Interactive resource picker",
	Long: `Opens an interactive TUI listing the resources you can manage.

Use arrow keys or j/k to navigate, / to filter.

Actions:
  Enter  - Show the connection string
  s      - Start
  x      - Stop
  r      - Restart
  g      - Regenerate the connection string
  d      - Delete (asks for confirmation)
  n      - Deploy a new resource (admin only)
  q/Esc  - Quit`,
	RunE: runManage,
}

func init() {
	manageCmd.Flags().BoolVar(&managePlain, "plain", false, "Print the list without the interactive picker")
	rootCmd.AddCommand(manageCmd)
}

func runManage(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	who := caller()

	records, err := a.Controller.List(ctx, who)
	if err != nil {
		return err
	}
	entries := probeEntries(cmd, a, records)

	if managePlain || !isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Fprint(cmd.OutOrStdout(), tui.SimpleList(entries))
		return nil
	}

	logging.Debug("manage picker started", "caller", who, "resources", len(entries))
	if err := tui.RunPicker(ctx, a.Controller, who, entries); err != nil {
		return fmt.Errorf("picker error: %w", err)
	}
	return nil
}

// probeEntries runs a health check for every record.
func probeEntries(cmd *cobra.Command, a *app.App, records []*session.Record) []tui.Entry {
	entries := make([]tui.Entry, 0, len(records))
	for _, rec := range records {
		entry := tui.Entry{Record: rec}
		check, err := health.Check(cmd.Context(), a.Runtime, a.Broker, rec)
		if err != nil {
			logging.Debug("health check failed", "name", rec.Name, "error", err)
		} else {
			entry.Status = check.Status()
			entry.Uptime = check.Uptime
		}
		entries = append(entries, entry)
	}
	return entries
}
