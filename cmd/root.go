package cmd

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/logging"
)

// EnvCaller names the caller id when --as is not given.
const EnvCaller = "FORAGE_VPS_CALLER"

var (
	verbose    bool
	jsonOutput bool
	configPath string
	callerID   string
)

var rootCmd = &cobra.Command{
	Use:   "forage-vps",
	Short: "Sandbox VPS control plane",
	Long: `forage-vps deploys and manages sandbox VPS resources for a group of users.

Each resource is a container with:
  - Declared RAM, CPU and disk limits
  - A tmate session whose SSH connection string is the access credential
  - An owner; only the owner and admins can manage it

Deploying requires admin rights. Every operation acts as the caller given by
--as, $FORAGE_VPS_CALLER or the current uid.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, os.Stderr)
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs and results in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $FORAGE_VPS_CONFIG or "+config.DefaultConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&callerID, "as", "", "Act as this user id (default $"+EnvCaller+" or the current uid)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// newApp wires the application from a loaded config. Tests replace it.
var newApp = func(cfg *config.Config) (*app.App, error) {
	return app.New(app.WithConfig(cfg))
}

// loadApp loads the configuration and wires the application.
func loadApp() (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}

// caller resolves the acting user id.
func caller() string {
	if id := strings.TrimSpace(callerID); id != "" {
		return id
	}
	if id := strings.TrimSpace(os.Getenv(EnvCaller)); id != "" {
		return id
	}
	return strconv.Itoa(os.Getuid())
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
)
