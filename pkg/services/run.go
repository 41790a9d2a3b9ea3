package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/ledger"
	"github.com/eknihyzdarma/catalog-migrator/pkg/logging"
	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
)

// Pass names used in summaries and the ledger.
const (
	PassMigrate      = "migrate"
	PassMerge        = "merge-duplicates"
	PassReclassify   = "reclassify"
	PassRepairAssets = "repair-assets"
	PassCovers       = "apply-covers"
	PassCleanup      = "cleanup"
)

// Run identifies one invocation of a pass.
type Run struct {
	ID     string
	DryRun bool
}

// NewRun returns a run with a fresh id.
func NewRun(dryRun bool) Run {
	return Run{ID: ledger.NewRunID(), DryRun: dryRun}
}

// outcomes writes per-entity outcomes to the ledger. Ledger failures are logged only.
type outcomes struct {
	ledger ledger.Recorder
	run    Run
	pass   string
	logger *zap.Logger
}

func newOutcomes(rec ledger.Recorder, run Run, pass string, logger *zap.Logger) *outcomes {
	if rec == nil {
		rec = ledger.Nop{}
	}
	return &outcomes{ledger: rec, run: run, pass: pass, logger: logger}
}

func (o *outcomes) record(ctx context.Context, collection, key string, outcome models.Outcome, cause error) {
	rec := models.OutcomeRecord{
		RunID:      o.run.ID,
		Pass:       o.pass,
		Collection: collection,
		Key:        key,
		Outcome:    outcome,
	}
	if cause != nil {
		rec.Error = logging.SanitizeError(cause)
	}
	// The ledger write must survive a cancelled run context.
	if err := o.ledger.Record(context.WithoutCancel(ctx), rec); err != nil {
		o.logger.Warn("Failed to record outcome in ledger",
			zap.String("collection", collection),
			zap.String("key", key),
			zap.String("error", logging.SanitizeError(err)))
	}
}
