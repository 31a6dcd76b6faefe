package cmd

import (
	"os/signal"
	"syscall"

	"country-feed-sync/feature/syncer"

	"github.com/spf13/cobra"
)

var syncMode string

// syncCmd runs one sync end to end.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one feed sync",
	Long: `Runs one sync: exports products from Shopify, projects per-country
availability, writes the feed files and uploads changed ones.

Modes:
  smart        pick full or incremental from the mapping change signal (default)
  full         rebuild every feed file and reset the diff state
  incremental  sync only changes since the last checkpoint`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncMode, "mode", "", "Sync mode: smart, full or incremental (defaults to configured mode)")
	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	requested := syncMode
	if requested == "" {
		requested = a.cfg.Sync.Mode
	}
	mode, err := syncer.ParseMode(requested)
	if err != nil {
		return err
	}

	// An interrupt aborts the poll loop and the whole run with nothing
	// committed.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, err = a.orchestrator.Run(ctx, mode)
	return err
}
