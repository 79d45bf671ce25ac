package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
)

// resourceOp is a controller method acting on one resource.
type resourceOp func(c *lifecycle.Controller, ctx context.Context, caller, name string) (*session.Record, error)

// newResourceCmd builds a command running op on its single name argument.
func newResourceCmd(use, short, verb, done string, op resourceOp) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			name := args[0]
			if !jsonOutput {
				logInfo("%s %s...", verb, name)
			}
			rec, err := op(a.Controller, cmd.Context(), caller(), name)
			if err != nil {
				return err
			}
			if !jsonOutput {
				logSuccess("%s %s", done, name)
			}
			return printRecord(cmd, rec)
		},
	}
}

func init() {
	rootCmd.AddCommand(
		newResourceCmd("start", "Start a stopped resource", "Starting", "Started", (*lifecycle.Controller).Start),
		newResourceCmd("stop", "Stop a running resource", "Stopping", "Stopped", (*lifecycle.Controller).Stop),
		newResourceCmd("restart", "Restart a resource", "Restarting", "Restarted", (*lifecycle.Controller).Restart),
		newResourceCmd("delete", "Delete a resource and its container", "Deleting", "Deleted", (*lifecycle.Controller).Delete),
		newResourceCmd("regen", "Regenerate the SSH connection string of a running resource",
			"Regenerating credential for", "New credential for", (*lifecycle.Controller).RegenerateCredential),
	)
}
