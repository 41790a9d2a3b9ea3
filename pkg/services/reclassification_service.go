package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/apperrors"
	"github.com/eknihyzdarma/catalog-migrator/pkg/classify"
	"github.com/eknihyzdarma/catalog-migrator/pkg/ledger"
	"github.com/eknihyzdarma/catalog-migrator/pkg/logging"
	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
	"github.com/eknihyzdarma/catalog-migrator/pkg/store"
	"github.com/eknihyzdarma/catalog-migrator/pkg/textfix"
)

// ReclassificationService moves books of foreign authors out of a domestic category.
type ReclassificationService interface {
	Reclassify(ctx context.Context, run Run, from, to string) (*models.PassSummary, error)
}

type reclassificationService struct {
	store      store.Store
	reader     TargetStateReader
	classifier classify.Classifier
	throttle   *Throttle
	ledger     ledger.Recorder
	logger     *zap.Logger
}

var _ ReclassificationService = (*reclassificationService)(nil)

func NewReclassificationService(
	st store.Store,
	reader TargetStateReader,
	classifier classify.Classifier,
	throttle *Throttle,
	rec ledger.Recorder,
	logger *zap.Logger,
) ReclassificationService {
	return &reclassificationService{
		store:      st,
		reader:     reader,
		classifier: classifier,
		throttle:   throttle,
		ledger:     rec,
		logger:     logger.Named("reclassify"),
	}
}

type candidate struct {
	documentID string
	title      string
	author     string
}

func (s *reclassificationService) Reclassify(ctx context.Context, run Run, from, to string) (*models.PassSummary, error) {
	summary := &models.PassSummary{Pass: PassReclassify, RunID: run.ID, DryRun: run.DryRun}

	categories, err := s.reader.ListAll(ctx, store.CollectionCategories, store.Query{Fields: []string{"name"}, Status: store.StatusDraft})
	if err != nil {
		return summary, fmt.Errorf("failed to list categories: %w", err)
	}
	fromID, ok := findCategory(categories, from)
	if !ok {
		return summary, fmt.Errorf("%w: %q", apperrors.ErrCategoryMissing, from)
	}
	toID, ok := findCategory(categories, to)
	if !ok {
		return summary, fmt.Errorf("%w: %q", apperrors.ErrCategoryMissing, to)
	}

	books, err := s.reader.ListAll(ctx, store.CollectionBooks, store.Query{
		Filters:  map[string]string{"category.documentId": fromID},
		Fields:   []string{"title", "slug"},
		Populate: []string{"author"},
		Status:   store.StatusDraft,
	})
	if err != nil {
		return summary, fmt.Errorf("failed to list books in %q: %w", from, err)
	}

	// Moving books shifts the pages of the source category, so collect first.
	var moves []candidate
	for _, b := range books {
		author, ok := b.Relation("author")
		name := ""
		if ok {
			name = author.String("name")
		}
		if name == "" || !s.classifier.IsForeign(name) {
			summary.Record(models.OutcomeSkipped)
			continue
		}
		moves = append(moves, candidate{documentID: b.DocumentID, title: b.String("title"), author: name})
	}

	s.logger.Info("Reclassification candidates",
		zap.String("from", from),
		zap.String("to", to),
		zap.Int("books", len(books)),
		zap.Int("candidates", len(moves)))

	out := newOutcomes(s.ledger, run, PassReclassify, s.logger)
	for _, c := range moves {
		if err := s.throttle.Wait(ctx); err != nil {
			return summary, err
		}
		if _, err := s.store.Update(ctx, store.CollectionBooks, c.documentID, map[string]any{"category": toID}); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			s.logger.Error("Failed to move book",
				zap.String("title", c.title),
				zap.String("author", c.author),
				zap.String("error", logging.SanitizeError(err)))
			summary.Record(models.OutcomeFailed)
			out.record(ctx, store.CollectionBooks, c.documentID, models.OutcomeFailed, err)
			continue
		}
		s.logger.Info("Moved book",
			zap.String("title", c.title),
			zap.String("author", c.author))
		summary.Record(models.OutcomeChanged)
		out.record(ctx, store.CollectionBooks, c.documentID, models.OutcomeChanged, nil)
	}

	return summary, nil
}

func findCategory(categories []models.RemoteEntity, name string) (string, bool) {
	key := textfix.Fold(name)
	for _, c := range categories {
		if textfix.Fold(c.String("name")) == key {
			return c.DocumentID, true
		}
	}
	return "", false
}
