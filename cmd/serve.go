package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/indexpilot/indexpilot/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the indexing service",
		Long: `Starts the HTTP API, the serial job queue, the daily scheduler, and
the stale-job reaper, and blocks until terminated.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("wire application: %w", err)
			}
			return a.Run(cmd.Context())
		},
	}
}
