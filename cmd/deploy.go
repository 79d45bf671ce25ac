package cmd

import (
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
)

var deployCmd = &cobra.Command{
	Use:   "deploy <name>",
	Short: "Deploy a new sandbox resource (admin only)",
	Long: `Provisions a container with the given limits, starts a tmate session in it
and prints the SSH connection string.

Limits left at 0 take the configured defaults. If any step fails the
container is removed and no record is kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeploy,
}

var (
	deployRAM   int
	deployCPU   int
	deployDisk  int
	deployOwner string
	deployImage string
)

func init() {
	deployCmd.Flags().IntVar(&deployRAM, "ram", 0, "Memory limit in MB")
	deployCmd.Flags().IntVar(&deployCPU, "cpu", 0, "CPU cores")
	deployCmd.Flags().IntVar(&deployDisk, "disk", 0, "Disk size in GB")
	deployCmd.Flags().StringVar(&deployOwner, "owner", "", "User id owning the resource (default: caller)")
	deployCmd.Flags().StringVar(&deployImage, "image", "", "Container image (default: configured image)")
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	name := args[0]
	if !jsonOutput {
		logInfo("Deploying %s...", name)
	}

	rec, err := a.Controller.Deploy(cmd.Context(), caller(), lifecycle.DeployRequest{
		Name:   name,
		Limits: session.Limits{RAMMB: deployRAM, CPUCores: deployCPU, DiskGB: deployDisk},
		Owner:  deployOwner,
		Image:  deployImage,
	})
	if err != nil {
		return err
	}

	if !jsonOutput {
		logSuccess("Deployed %s", name)
	}
	return printRecord(cmd, rec)
}
