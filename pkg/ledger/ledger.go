// Package ledger records per-entity outcomes of migration runs.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/database"
	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
)

// Recorder persists run outcomes. Callers treat errors as non-fatal.
type Recorder interface {
	StartRun(ctx context.Context, runID, command string, dryRun bool) error
	Record(ctx context.Context, rec models.OutcomeRecord) error
	FinishRun(ctx context.Context, runID string, summary any) error
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Nop discards everything.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) StartRun(context.Context, string, string, bool) error { return nil }
func (Nop) Record(context.Context, models.OutcomeRecord) error  { return nil }
func (Nop) FinishRun(context.Context, string, any) error         { return nil }

// Postgres writes to the migration_runs and migration_outcomes tables.
type Postgres struct {
	db     *database.DB
	logger *zap.Logger
}

var _ Recorder = (*Postgres)(nil)

func NewPostgres(db *database.DB, logger *zap.Logger) *Postgres {
	return &Postgres{
		db:     db,
		logger: logger.Named("ledger"),
	}
}

func (p *Postgres) StartRun(ctx context.Context, runID, command string, dryRun bool) error {
	id, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	_, err = p.db.Exec(ctx, `
		INSERT INTO migration_runs (run_id, command, dry_run)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id) DO NOTHING`,
		id, command, dryRun)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

func (p *Postgres) Record(ctx context.Context, rec models.OutcomeRecord) error {
	id, err := uuid.Parse(rec.RunID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", rec.RunID, err)
	}
	var errText *string
	if rec.Error != "" {
		errText = &rec.Error
	}
	_, err = p.db.Exec(ctx, `
		INSERT INTO migration_outcomes (run_id, pass, collection, entity_key, outcome, error)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, rec.Pass, rec.Collection, rec.Key, string(rec.Outcome), errText)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

func (p *Postgres) FinishRun(ctx context.Context, runID string, summary any) error {
	id, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	tag, err := p.db.Exec(ctx, `
		UPDATE migration_runs SET finished_at = now(), summary = $2
		WHERE run_id = $1`,
		id, data)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		p.logger.Warn("Finished a run that was never started", zap.String("run_id", runID))
	}
	return nil
}

// Failures returns the keys that failed in a run, grouped by collection.
func (p *Postgres) Failures(ctx context.Context, runID string) (map[string][]string, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	rows, err := p.db.Query(ctx, `
		SELECT collection, entity_key FROM migration_outcomes
		WHERE run_id = $1 AND outcome = 'failed'
		ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}

	type failure struct {
		Collection string
		Key        string
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (failure, error) {
		var f failure
		err := row.Scan(&f.Collection, &f.Key)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan failures: %w", err)
	}

	out := make(map[string][]string)
	for _, f := range list {
		out[f.Collection] = append(out[f.Collection], f.Key)
	}
	return out, nil
}
