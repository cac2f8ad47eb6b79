package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/indexpilot/indexpilot/internal/app"
)

func newSyncCmd() *cobra.Command {
	var websiteID int64

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one indexing cycle for a single website and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if websiteID <= 0 {
				return fmt.Errorf("--website-id is required")
			}
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("wire application: %w", err)
			}
			return a.RunOnce(cmd.Context(), websiteID)
		},
	}

	cmd.Flags().Int64Var(&websiteID, "website-id", 0, "website to sync")
	return cmd
}
