package services

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/ledger"
	"github.com/eknihyzdarma/catalog-migrator/pkg/logging"
	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
	"github.com/eknihyzdarma/catalog-migrator/pkg/store"
)

// CoverService points books at externally hosted cover images.
type CoverService interface {
	Apply(ctx context.Context, run Run, covers map[string]string) (*models.PassSummary, error)
}

type coverService struct {
	store    store.Store
	throttle *Throttle
	ledger   ledger.Recorder
	logger   *zap.Logger
}

var _ CoverService = (*coverService)(nil)

func NewCoverService(st store.Store, throttle *Throttle, rec ledger.Recorder, logger *zap.Logger) CoverService {
	return &coverService{
		store:    st,
		throttle: throttle,
		ledger:   rec,
		logger:   logger.Named("covers"),
	}
}

func (s *coverService) Apply(ctx context.Context, run Run, covers map[string]string) (*models.PassSummary, error) {
	summary := &models.PassSummary{Pass: PassCovers, RunID: run.ID, DryRun: run.DryRun}
	out := newOutcomes(s.ledger, run, PassCovers, s.logger)

	slugs := make([]string, 0, len(covers))
	for slug := range covers {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	for _, slug := range slugs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		outcome, err := s.applyOne(ctx, slug, covers[slug])
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			s.logger.Error("Failed to set cover",
				zap.String("slug", slug),
				zap.String("error", logging.SanitizeError(err)))
		}
		summary.Record(outcome)
		out.record(ctx, store.CollectionBooks, slug, outcome, err)
	}
	return summary, nil
}

func (s *coverService) applyOne(ctx context.Context, slug, url string) (models.Outcome, error) {
	book, ok, err := findBySlug(ctx, s.store, store.CollectionBooks, slug, "coverExternalUrl")
	if err != nil {
		return models.OutcomeFailed, err
	}
	if !ok {
		s.logger.Warn("Book not found", zap.String("slug", slug))
		return models.OutcomeSkipped, nil
	}
	if book.String("coverExternalUrl") == url {
		return models.OutcomeSkipped, nil
	}

	if err := s.throttle.Wait(ctx); err != nil {
		return models.OutcomeFailed, err
	}
	if _, err := s.store.Update(ctx, store.CollectionBooks, book.DocumentID, map[string]any{"coverExternalUrl": url}); err != nil {
		return models.OutcomeFailed, err
	}
	s.logger.Info("Set external cover", zap.String("slug", slug), zap.String("url", url))
	return models.OutcomeChanged, nil
}
