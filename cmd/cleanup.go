package cmd

import (
	"github.com/spf13/cobra"
)

// cleanupCmd reconciles feed files against the current active country set
// without running a sync.
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete feed files for countries no longer active",
	Long: `Resolves the current active country set from Shopify and deletes
orphaned feed files, locally and in the object store.`,
	RunE: runCleanup,
}

func init() {
	RootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	return a.orchestrator.Cleanup(cmd.Context())
}
