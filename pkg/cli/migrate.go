package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/assets"
	"github.com/eknihyzdarma/catalog-migrator/pkg/reconcile"
	"github.com/eknihyzdarma/catalog-migrator/pkg/services"
	"github.com/eknihyzdarma/catalog-migrator/pkg/source"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	inputs    inputFlags
	DryRun    bool
	Start     int
	Republish bool
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate categories, authors and books into the store",
		Long: `Parse the SQL dump and the product feed, reconcile them, and create every category,
author and book missing from the store. Books get their cover and e-book files before
they are published. Re-running only fills in what is still missing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), rootOpts, opts, cmd)
		},
	}

	addInputFlags(cmd, &opts.inputs)
	cmd.Flags().BoolVar(&opts.inputs.includeDumpOnly, "include-dump-only", false, "also migrate visible dump products missing from the feed")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "log writes instead of performing them")
	cmd.Flags().IntVar(&opts.Start, "start", 0, "skip the first N books")
	cmd.Flags().BoolVar(&opts.Republish, "republish", false, "publish books that exist only as drafts")

	return cmd
}

func addInputFlags(cmd *cobra.Command, f *inputFlags) {
	cmd.Flags().StringVar(&f.dumpPath, "dump", "", "SQL dump path (overrides sources.dump_path)")
	cmd.Flags().StringVar(&f.feedPath, "feed", "", "product feed path (overrides sources.feed_path)")
	cmd.Flags().StringVar(&f.filesDir, "files", "", "files directory (overrides sources.files_dir)")
}

func runMigrate(ctx context.Context, rootOpts *RootOptions, opts *MigrateOptions, cmd *cobra.Command) error {
	if opts.Start < 0 {
		return NewExitError(ExitConfigError, "--start must not be negative")
	}

	e, err := newEnv(ctx, rootOpts, opts.DryRun)
	if err != nil {
		return err
	}
	defer e.close()
	opts.inputs.apply(e.cfg)

	set, _, err := loadSet(e.cfg, e.logger)
	if err != nil {
		return exitErrorFor("failed to read sources", err)
	}

	files := os.DirFS(e.cfg.Sources.FilesDir)
	if _, err := os.Stat(e.cfg.Sources.FilesDir); err != nil {
		e.logger.Warn("Files directory is not readable, every asset will be reported missing",
			zap.String("path", e.cfg.Sources.FilesDir))
	}

	svc := services.NewMigrationService(
		e.store,
		e.reader(),
		assets.NewResolver(files),
		assets.NewPipeline(files, e.store, e.uploader, e.logger),
		e.throttle(),
		e.ledger,
		e.logger,
	)

	run := e.startRun(ctx, services.PassMigrate, opts.DryRun)
	summary, err := svc.Run(ctx, run, set, services.MigrationOptions{
		Republish: opts.Republish || e.cfg.Migration.Republish,
		Start:     opts.Start,
	})
	e.finishRun(ctx, run, summary)
	if err != nil {
		return exitErrorFor("migration aborted", err)
	}

	return formatterFor(rootOpts, cmd.OutOrStdout()).Success(migrationReport{Summary: summary})
}

// inspectReport is the result of the inspect command.
type inspectReport struct {
	Dump       source.Stats     `json:"dump"`
	Reconcile  reconcile.Report `json:"reconcile"`
	Categories int              `json:"categories"`
	Authors    int              `json:"authors"`
	Books      int              `json:"books"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &inputFlags{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Parse and reconcile the sources without touching the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			flags.apply(cfg)

			set, stats, err := loadSet(cfg, logger)
			if err != nil {
				return exitErrorFor("failed to read sources", err)
			}
			return formatterFor(rootOpts, cmd.OutOrStdout()).Success(inspectReport{
				Dump:       stats,
				Reconcile:  set.Report,
				Categories: len(set.Categories),
				Authors:    len(set.Authors),
				Books:      len(set.Books),
			})
		},
	}

	addInputFlags(cmd, flags)
	cmd.Flags().BoolVar(&flags.includeDumpOnly, "include-dump-only", false, "count visible dump products missing from the feed")
	return cmd
}
