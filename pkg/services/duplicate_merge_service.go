package services

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/ledger"
	"github.com/eknihyzdarma/catalog-migrator/pkg/logging"
	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
	"github.com/eknihyzdarma/catalog-migrator/pkg/store"
)

// DuplicateMergeService folds duplicate books into their canonical record.
type DuplicateMergeService interface {
	// Merge copies the merge fields from each duplicate onto its canonical book and deletes
	// the duplicate. Pairs with either side missing are skipped, so re-running is harmless.
	Merge(ctx context.Context, run Run, pairs []models.DuplicatePair, mergeFields []string) (*models.PassSummary, error)
}

type duplicateMergeService struct {
	store    store.Store
	throttle *Throttle
	ledger   ledger.Recorder
	logger   *zap.Logger
}

var _ DuplicateMergeService = (*duplicateMergeService)(nil)

func NewDuplicateMergeService(st store.Store, throttle *Throttle, rec ledger.Recorder, logger *zap.Logger) DuplicateMergeService {
	return &duplicateMergeService{
		store:    st,
		throttle: throttle,
		ledger:   rec,
		logger:   logger.Named("duplicate-merge"),
	}
}

func (s *duplicateMergeService) Merge(ctx context.Context, run Run, pairs []models.DuplicatePair, mergeFields []string) (*models.PassSummary, error) {
	summary := &models.PassSummary{Pass: PassMerge, RunID: run.ID, DryRun: run.DryRun}
	out := newOutcomes(s.ledger, run, PassMerge, s.logger)

	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		outcome, err := s.mergePair(ctx, pair, mergeFields)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			s.logger.Error("Failed to merge duplicate",
				zap.String("canonical", pair.Canonical),
				zap.String("duplicate", pair.Duplicate),
				zap.String("error", logging.SanitizeError(err)))
		}
		summary.Record(outcome)
		out.record(ctx, store.CollectionBooks, pair.Duplicate, outcome, err)
	}

	s.logger.Info("Duplicate merge finished",
		zap.Int("examined", summary.Examined),
		zap.Int("merged", summary.Changed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (s *duplicateMergeService) mergePair(ctx context.Context, pair models.DuplicatePair, mergeFields []string) (models.Outcome, error) {
	duplicate, ok, err := findBySlug(ctx, s.store, store.CollectionBooks, pair.Duplicate, mergeFields...)
	if err != nil {
		return models.OutcomeFailed, err
	}
	if !ok {
		s.logger.Debug("Duplicate not found", zap.String("slug", pair.Duplicate))
		return models.OutcomeSkipped, nil
	}

	canonical, ok, err := findBySlug(ctx, s.store, store.CollectionBooks, pair.Canonical, "title")
	if err != nil {
		return models.OutcomeFailed, err
	}
	if !ok {
		s.logger.Warn("Canonical book not found, keeping duplicate",
			zap.String("canonical", pair.Canonical),
			zap.String("duplicate", pair.Duplicate))
		return models.OutcomeSkipped, nil
	}

	if err := s.throttle.Wait(ctx); err != nil {
		return models.OutcomeFailed, err
	}

	fields := make(map[string]any, len(mergeFields))
	for _, f := range mergeFields {
		raw := duplicate.Raw(f)
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		fields[f] = json.RawMessage(raw)
	}
	if len(fields) > 0 {
		if _, err := s.store.Update(ctx, store.CollectionBooks, canonical.DocumentID, fields); err != nil {
			return models.OutcomeFailed, err
		}
	}

	if err := s.store.Delete(ctx, store.CollectionBooks, duplicate.DocumentID); err != nil {
		return models.OutcomeFailed, err
	}

	s.logger.Info("Merged duplicate",
		zap.String("canonical", pair.Canonical),
		zap.String("duplicate", pair.Duplicate),
		zap.Int("fields_copied", len(fields)))
	return models.OutcomeChanged, nil
}
