package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/config"
	"github.com/eknihyzdarma/catalog-migrator/pkg/database"
	"github.com/eknihyzdarma/catalog-migrator/pkg/ledger"
	"github.com/eknihyzdarma/catalog-migrator/pkg/logging"
	"github.com/eknihyzdarma/catalog-migrator/pkg/services"
	"github.com/eknihyzdarma/catalog-migrator/pkg/store"
)

// env is the wiring shared by all commands.
type env struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    store.Store
	uploader store.Uploader
	ledger   ledger.Recorder
	db       *database.DB
}

// loadConfig reads configuration and builds the logger.
func loadConfig(opts *RootOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath, opts.Version)
	if err != nil {
		return nil, nil, WrapExitError(ExitConfigError, "failed to load config", err)
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Format)
	if err != nil {
		return nil, nil, WrapExitError(ExitConfigError, "failed to initialize logger", err)
	}
	return cfg, logger, nil
}

// newEnv wires the store and the ledger for a command that talks to the store.
// A dry run without a token rehearses against an empty store.
func newEnv(ctx context.Context, opts *RootOptions, dryRun bool) (*env, error) {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, logger: logger, ledger: ledger.Nop{}}

	var client *store.Client
	if err := cfg.ValidateStoreCredentials(); err == nil {
		client = store.NewClient(store.ClientConfig{
			BaseURL: cfg.Store.StoreURL(),
			Token:   cfg.Store.Token,
			Timeout: cfg.Store.Timeout,
			Retry:   cfg.Retry.Policy(),
		}, logger)
	} else if !dryRun {
		return nil, WrapExitError(ExitConfigError, "store credentials missing", err)
	}

	switch {
	case dryRun && client == nil:
		logger.Warn("No store token, dry run starts from an empty store")
		dry := store.NewDryRun(nil, logger)
		e.store, e.uploader = dry, dry
	case dryRun:
		dry := store.NewDryRun(client, logger)
		e.store, e.uploader = dry, dry
	default:
		e.store, e.uploader = client, client
	}

	if cfg.Ledger.Enabled {
		if err := e.openLedger(ctx); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *env) openLedger(ctx context.Context) error {
	connStr := e.cfg.Ledger.ConnectionString()
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: e.cfg.Ledger.MaxConnections,
		Retry:          e.cfg.Retry.Policy(),
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to connect to ledger", err)
	}
	if err := database.Migrate(connStr, e.logger); err != nil {
		db.Close()
		return WrapExitError(ExitFailure, "failed to migrate ledger schema", err)
	}
	e.db = db
	e.ledger = ledger.NewPostgres(db, e.logger)
	e.logger.Info("Run ledger enabled",
		zap.String("host", e.cfg.Ledger.Host),
		zap.String("database", e.cfg.Ledger.Database))
	return nil
}

func (e *env) close() {
	if e.db != nil {
		e.db.Close()
	}
	_ = e.logger.Sync()
}

// startRun opens a run in the ledger. Ledger failures never stop the command.
func (e *env) startRun(ctx context.Context, command string, dryRun bool) services.Run {
	run := services.NewRun(dryRun)
	if err := e.ledger.StartRun(ctx, run.ID, command, dryRun); err != nil {
		e.logger.Warn("Failed to start run in ledger",
			zap.String("run_id", run.ID),
			zap.String("error", logging.SanitizeError(err)))
	}
	e.logger.Info("Run started",
		zap.String("command", command),
		zap.String("run_id", run.ID),
		zap.Bool("dry_run", dryRun))
	return run
}

func (e *env) finishRun(ctx context.Context, run services.Run, summary any) {
	if err := e.ledger.FinishRun(context.WithoutCancel(ctx), run.ID, summary); err != nil {
		e.logger.Warn("Failed to finish run in ledger",
			zap.String("run_id", run.ID),
			zap.String("error", logging.SanitizeError(err)))
	}
}

func (e *env) reader() services.TargetStateReader {
	return services.NewTargetStateReader(e.store, e.cfg.Store.PageSize, e.logger)
}

func (e *env) throttle() *services.Throttle {
	return services.NewThrottle(e.cfg.Migration.Throttle)
}

func (e *env) corrections() (*config.Corrections, error) {
	c, err := config.LoadCorrections(e.cfg.CorrectionsPath)
	if err != nil {
		return nil, WrapExitError(ExitConfigError, "failed to load corrections", err)
	}
	return c, nil
}

func formatterFor(opts *RootOptions, w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: strings.ToLower(opts.Format), Writer: w}
}

// requireYes guards destructive commands.
func requireYes(yes bool, what string) error {
	if !yes {
		return NewExitError(ExitConfigError, fmt.Sprintf("%s deletes data; pass --yes to confirm", what))
	}
	return nil
}
