package cli

import (
	"github.com/spf13/cobra"

	"github.com/eknihyzdarma/catalog-migrator/pkg/ledger"
)

// NewFailuresCommand creates the failures command, which reads the run ledger.
func NewFailuresCommand(rootOpts *RootOptions) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "failures",
		Short: "List the entities that failed in a recorded run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runID == "" {
				return NewExitError(ExitConfigError, "--run is required")
			}

			cfg, logger, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			if !cfg.Ledger.Enabled {
				return NewExitError(ExitConfigError, "the run ledger is disabled (ledger.enabled)")
			}

			e := &env{cfg: cfg, logger: logger}
			if err := e.openLedger(cmd.Context()); err != nil {
				return err
			}
			defer e.close()

			pg, ok := e.ledger.(*ledger.Postgres)
			if !ok {
				return NewExitError(ExitFailure, "the run ledger does not support queries")
			}
			failures, err := pg.Failures(cmd.Context(), runID)
			if err != nil {
				return exitErrorFor("failed to read ledger", err)
			}
			return formatterFor(rootOpts, cmd.OutOrStdout()).Success(failureReport{RunID: runID, Failures: failures})
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "run id printed by a previous command")
	return cmd
}
