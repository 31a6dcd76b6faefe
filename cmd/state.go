package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// stateCmd shows a summary of the persisted sync state.
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show persisted sync state",
	RunE:  runStateShow,
}

// stateResetCmd clears the per-variant diff state.
var stateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the per-variant diff state",
	Long: `Clears all persisted per-variant availability records. The next
sync treats every row as new and rewrites it; the checkpoint and mapping
fingerprint are left in place.`,
	RunE: runStateReset,
}

func init() {
	stateCmd.AddCommand(stateResetCmd)
	RootCmd.AddCommand(stateCmd)
}

func runStateShow(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	stats, err := a.store.Stats()
	if err != nil {
		return err
	}

	fields := []zap.Field{
		zap.Int64("variants", stats.VariantCount),
		zap.Int64("in_stock", stats.InStockCount),
		zap.Int64("out_of_stock", stats.OutOfStockCount),
		zap.Bool("has_fingerprint", stats.HasFingerprint),
	}
	if stats.LastRun != nil {
		fields = append(fields, zap.Time("last_run", *stats.LastRun))
	} else {
		fields = append(fields, zap.String("last_run", "never"))
	}
	a.logger.Info("Sync state", fields...)
	return nil
}

func runStateReset(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	return a.store.Reset()
}
