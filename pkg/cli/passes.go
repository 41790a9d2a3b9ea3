package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/eknihyzdarma/catalog-migrator/pkg/assets"
	"github.com/eknihyzdarma/catalog-migrator/pkg/classify"
	"github.com/eknihyzdarma/catalog-migrator/pkg/media"
	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
	"github.com/eknihyzdarma/catalog-migrator/pkg/services"
)

// passFunc runs one corrective pass inside a prepared environment.
type passFunc func(ctx context.Context, e *env, run services.Run) (*models.PassSummary, error)

// runPass wires the environment, records the run and prints the pass summary.
func runPass(cmd *cobra.Command, rootOpts *RootOptions, pass string, dryRun bool, fn passFunc) error {
	ctx := cmd.Context()
	e, err := newEnv(ctx, rootOpts, dryRun)
	if err != nil {
		return err
	}
	defer e.close()

	run := e.startRun(ctx, pass, dryRun)
	summary, err := fn(ctx, e, run)
	e.finishRun(ctx, run, summary)
	if err != nil {
		return exitErrorFor(pass+" failed", err)
	}
	return formatterFor(rootOpts, cmd.OutOrStdout()).Success(passReport{PassSummary: summary})
}

// NewMergeDuplicatesCommand creates the merge-duplicates command.
func NewMergeDuplicatesCommand(rootOpts *RootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "merge-duplicates",
		Short: "Fold duplicate books listed in the corrections file into their canonical record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPass(cmd, rootOpts, services.PassMerge, dryRun, func(ctx context.Context, e *env, run services.Run) (*models.PassSummary, error) {
				corrections, err := e.corrections()
				if err != nil {
					return nil, err
				}
				svc := services.NewDuplicateMergeService(e.store, e.throttle(), e.ledger, e.logger)
				return svc.Merge(ctx, run, corrections.Duplicates, corrections.MergeFields)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log writes instead of performing them")
	return cmd
}

// NewReclassifyCommand creates the reclassify command.
func NewReclassifyCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dryRun   bool
		from, to string
	)

	cmd := &cobra.Command{
		Use:   "reclassify",
		Short: "Move books by foreign authors from the domestic to the world literature category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPass(cmd, rootOpts, services.PassReclassify, dryRun, func(ctx context.Context, e *env, run services.Run) (*models.PassSummary, error) {
				if from == "" {
					from = e.cfg.Reclassify.SourceCategory
				}
				if to == "" {
					to = e.cfg.Reclassify.TargetCategory
				}
				svc := services.NewReclassificationService(e.store, e.reader(), classify.NewHeuristicClassifier(),
					e.throttle(), e.ledger, e.logger)
				return svc.Reclassify(ctx, run, from, to)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list candidates without moving them")
	cmd.Flags().StringVar(&from, "from", "", "source category (overrides reclassify.source_category)")
	cmd.Flags().StringVar(&to, "to", "", "target category (overrides reclassify.target_category)")
	return cmd
}

// NewRepairAssetsCommand creates the repair-assets command.
func NewRepairAssetsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dryRun   bool
		filesDir string
	)

	cmd := &cobra.Command{
		Use:   "repair-assets",
		Short: "Re-upload documents that the media provider stored as images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPass(cmd, rootOpts, services.PassRepairAssets, dryRun, func(ctx context.Context, e *env, run services.Run) (*models.PassSummary, error) {
				if filesDir != "" {
					e.cfg.Sources.FilesDir = filesDir
				}

				var provider media.Provider
				if !dryRun {
					if err := e.cfg.ValidateMediaCredentials(); err != nil {
						return nil, err
					}
					p, err := media.NewCloudinary(media.Config{
						BaseURL:   e.cfg.Media.BaseURL,
						CloudName: e.cfg.Media.CloudName,
						APIKey:    e.cfg.Media.APIKey,
						APISecret: e.cfg.Media.APISecret,
						Timeout:   e.cfg.Store.Timeout,
						Retry:     e.cfg.Retry.Policy(),
					}, e.logger)
					if err != nil {
						return nil, err
					}
					provider = p
				}

				svc := services.NewAssetRepairService(e.store, e.reader(), provider,
					assets.NewResolver(os.DirFS(e.cfg.Sources.FilesDir)), e.throttle(), e.ledger, e.logger)
				return svc.Repair(ctx, run, e.cfg.Media.RawMimeTypes)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list files that would be re-uploaded")
	cmd.Flags().StringVar(&filesDir, "files", "", "files directory (overrides sources.files_dir)")
	return cmd
}

// NewApplyCoversCommand creates the apply-covers command.
func NewApplyCoversCommand(rootOpts *RootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "apply-covers",
		Short: "Set external cover URLs listed in the corrections file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPass(cmd, rootOpts, services.PassCovers, dryRun, func(ctx context.Context, e *env, run services.Run) (*models.PassSummary, error) {
				corrections, err := e.corrections()
				if err != nil {
					return nil, err
				}
				svc := services.NewCoverService(e.store, e.throttle(), e.ledger, e.logger)
				return svc.Apply(ctx, run, corrections.Covers)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log writes instead of performing them")
	return cmd
}

// NewCleanupCommand creates the cleanup command.
func NewCleanupCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dryRun bool
		yes    bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete every book, author and category from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !dryRun {
				if err := requireYes(yes, "cleanup"); err != nil {
					return err
				}
			}
			return runPass(cmd, rootOpts, services.PassCleanup, dryRun, func(ctx context.Context, e *env, run services.Run) (*models.PassSummary, error) {
				svc := services.NewCleanupService(e.store, e.reader(), e.throttle(), e.ledger, e.logger)
				return svc.Cleanup(ctx, run)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log deletes instead of performing them")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
