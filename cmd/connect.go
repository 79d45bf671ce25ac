package cmd

import (
	"fmt"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/ssh"
)

var connectPrint bool

var connectCmd = &cobra.Command{
	Use:   "connect <name>",
	Short: "Open an SSH session to a running resource",
	Long: `Looks up the connection string of a resource and replaces this process
with the ssh client connected to its tmate session.

With --print, prints the ssh command instead of running it.`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().BoolVar(&connectPrint, "print", false, "Print the ssh command instead of running it")
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	name := args[0]
	rec, err := a.Controller.Get(cmd.Context(), caller(), name)
	if err != nil {
		return err
	}
	if rec.State != session.StateRunning || rec.Credential == "" {
		return errors.ValidationError("resource is not running; start it first").WithOp("connect", name)
	}

	target, err := ssh.Parse(rec.Credential)
	if err != nil {
		return errors.Wrap(errors.ExitGeneralError, "stored connection string is unusable", err).WithOp("connect", name)
	}

	opts := ssh.DefaultOptions()
	if connectPrint {
		fmt.Fprintln(cmd.OutOrStdout(), shellquote.Join(append([]string{"ssh"}, target.Args(opts)...)...))
		return nil
	}

	logging.Debug("connecting", "name", name, "destination", target.Destination())
	logInfo("Connecting to %s...", name)
	return ssh.ReplaceWithSession(target, opts)
}
