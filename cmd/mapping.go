package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// mappingCmd is the parent command for country mapping operations.
var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Inspect and manage the country/location mapping",
}

// mappingRefreshCmd rebuilds the mapping and persists its fingerprint.
var mappingRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild the country mapping and persist its fingerprint",
	Long: `Queries markets, locations and delivery profiles, rebuilds the
location to country mapping and persists the structural fingerprint. The
next smart sync sees an up-to-date change signal.`,
	RunE: runMappingRefresh,
}

// mappingClearCmd drops the persisted fingerprint.
var mappingClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the persisted mapping fingerprint",
	Long: `Drops the persisted mapping fingerprint. The next smart sync
detects a structural change and runs a full rebuild.`,
	RunE: runMappingClear,
}

func init() {
	mappingCmd.AddCommand(mappingRefreshCmd)
	mappingCmd.AddCommand(mappingClearCmd)
	RootCmd.AddCommand(mappingCmd)
}

func runMappingRefresh(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	m, err := a.mapper.Resolve(cmd.Context())
	if err != nil {
		return err
	}
	changed, reason, err := a.mapper.HasChanged(m)
	if err != nil {
		return err
	}

	a.logger.Info("Mapping refreshed",
		zap.Int("countries", len(m.ActiveCountries)),
		zap.Int("locations", len(m.Locations)),
		zap.Bool("changed", changed),
		zap.String("reason", reason))
	return nil
}

func runMappingClear(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	if err := a.mapper.ClearCache(); err != nil {
		return err
	}
	a.logger.Info("Mapping fingerprint cleared, next smart sync will run full")
	return nil
}
