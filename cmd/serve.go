package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/api"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/monitor"
)

var (
	serveListen          string
	serveMonitorInterval time.Duration
	serveRepairSessions  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serves the lifecycle operations as a JSON API. The acting user is read
from the X-Forage-Caller header, so the API must only be reachable through a
trusted front end.

With --monitor-interval, a background monitor acting as the first configured
admin reconciles every resource on that interval; --repair-sessions also
regenerates the credential of running resources whose tmate session died.

SIGINT or SIGTERM stops accepting requests and waits for in-flight operations.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default: configured listen address)")
	serveCmd.Flags().DurationVar(&serveMonitorInterval, "monitor-interval", 0, "Health monitor interval (0 disables the monitor)")
	serveCmd.Flags().BoolVar(&serveRepairSessions, "repair-sessions", false, "Regenerate credentials of resources with a dead session")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	addr := serveListen
	if addr == "" {
		addr = a.Config.Listen
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if serveMonitorInterval > 0 {
		if admins := a.Controller.Gate().Admins(); len(admins) > 0 {
			m := monitor.New(serveMonitorInterval, a.Controller, admins[0], monitor.WithSessionRepair(serveRepairSessions))
			go func() { _ = m.Run(ctx) }()
		} else {
			logWarning("no admins configured; health monitor disabled")
		}
	}

	logInfo("Serving forage-vps API on %s", addr)
	return api.New(a.Controller, a.Audit).Serve(ctx, addr)
}
