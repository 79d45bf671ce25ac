package cmd

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the resources you can manage",
	RunE:    runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	records, err := a.Controller.List(cmd.Context(), caller())
	if err != nil {
		return err
	}

	if len(records) == 0 && !jsonOutput {
		logInfo("No resources found.")
		return nil
	}
	return printRecords(cmd, records)
}
