package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/ledger"
	"github.com/eknihyzdarma/catalog-migrator/pkg/logging"
	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
	"github.com/eknihyzdarma/catalog-migrator/pkg/store"
)

// CleanupService empties the catalog collections before a fresh seed.
type CleanupService interface {
	// Cleanup deletes every book, then every author, then every category.
	Cleanup(ctx context.Context, run Run) (*models.PassSummary, error)
}

type cleanupService struct {
	store    store.Store
	reader   TargetStateReader
	throttle *Throttle
	ledger   ledger.Recorder
	logger   *zap.Logger
}

var _ CleanupService = (*cleanupService)(nil)

func NewCleanupService(st store.Store, reader TargetStateReader, throttle *Throttle, rec ledger.Recorder, logger *zap.Logger) CleanupService {
	return &cleanupService{
		store:    st,
		reader:   reader,
		throttle: throttle,
		ledger:   rec,
		logger:   logger.Named("cleanup"),
	}
}

// Books reference authors and categories, so they go first.
var cleanupOrder = []string{store.CollectionBooks, store.CollectionAuthors, store.CollectionCategories}

func (s *cleanupService) Cleanup(ctx context.Context, run Run) (*models.PassSummary, error) {
	summary := &models.PassSummary{Pass: PassCleanup, RunID: run.ID, DryRun: run.DryRun}
	out := newOutcomes(s.ledger, run, PassCleanup, s.logger)

	for _, collection := range cleanupOrder {
		docs, err := s.reader.ListAll(ctx, collection, store.Query{Fields: []string{"documentId"}, Status: store.StatusDraft})
		if err != nil {
			return summary, fmt.Errorf("failed to list %s: %w", collection, err)
		}

		deleted := 0
		for _, d := range docs {
			if err := s.throttle.Wait(ctx); err != nil {
				return summary, err
			}
			if err := s.store.Delete(ctx, collection, d.DocumentID); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return summary, ctxErr
				}
				s.logger.Error("Failed to delete",
					zap.String("collection", collection),
					zap.String("document_id", d.DocumentID),
					zap.String("error", logging.SanitizeError(err)))
				summary.Record(models.OutcomeFailed)
				out.record(ctx, collection, d.DocumentID, models.OutcomeFailed, err)
				continue
			}
			deleted++
			summary.Record(models.OutcomeChanged)
			out.record(ctx, collection, d.DocumentID, models.OutcomeChanged, nil)
		}

		s.logger.Info("Deleted documents",
			zap.String("collection", collection),
			zap.Int("deleted", deleted),
			zap.Int("found", len(docs)))
	}
	return summary, nil
}
