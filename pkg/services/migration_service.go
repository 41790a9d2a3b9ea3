package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/apperrors"
	"github.com/eknihyzdarma/catalog-migrator/pkg/assets"
	"github.com/eknihyzdarma/catalog-migrator/pkg/ledger"
	"github.com/eknihyzdarma/catalog-migrator/pkg/logging"
	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
	"github.com/eknihyzdarma/catalog-migrator/pkg/reconcile"
	"github.com/eknihyzdarma/catalog-migrator/pkg/store"
	"github.com/eknihyzdarma/catalog-migrator/pkg/textfix"
)

// MigrationOptions tune one migrate run.
type MigrationOptions struct {
	// Republish publishes books that exist only as drafts.
	Republish bool
	// Start skips the first Start books of the set.
	Start int
}

// MigrationService writes a reconciled record set into the store.
type MigrationService interface {
	// Run creates missing categories, authors and books in that order. Books are created as
	// drafts, get their media attached, and are published last. Per-entity failures are
	// counted and never stop the run; only context cancellation does.
	Run(ctx context.Context, run Run, set *reconcile.Set, opts MigrationOptions) (*models.Summary, error)
}

type migrationService struct {
	store    store.Store
	reader   TargetStateReader
	resolver *assets.Resolver
	pipeline *assets.Pipeline
	throttle *Throttle
	ledger   ledger.Recorder
	now      func() time.Time
	logger   *zap.Logger
}

var _ MigrationService = (*migrationService)(nil)

func NewMigrationService(
	st store.Store,
	reader TargetStateReader,
	resolver *assets.Resolver,
	pipeline *assets.Pipeline,
	throttle *Throttle,
	rec ledger.Recorder,
	logger *zap.Logger,
) MigrationService {
	return &migrationService{
		store:    st,
		reader:   reader,
		resolver: resolver,
		pipeline: pipeline,
		throttle: throttle,
		ledger:   rec,
		now:      time.Now,
		logger:   logger.Named("migration"),
	}
}

// runState carries the id maps of one run.
type runState struct {
	target     *TargetState
	categories map[string]string
	authors    map[string]string
	summary    *models.Summary
	outcomes   *outcomes
}

func (s *migrationService) Run(ctx context.Context, run Run, set *reconcile.Set, opts MigrationOptions) (*models.Summary, error) {
	summary := models.NewSummary(run.ID)
	summary.DryRun = run.DryRun

	target, err := s.reader.Load(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to load target state: %w", err)
	}

	rs := &runState{
		target:     target,
		categories: make(map[string]string, len(set.Categories)),
		authors:    make(map[string]string, len(set.Authors)),
		summary:    summary,
		outcomes:   newOutcomes(s.ledger, run, PassMigrate, s.logger),
	}

	s.logger.Info("Starting migration",
		zap.String("run_id", run.ID),
		zap.Bool("dry_run", run.DryRun),
		zap.Int("categories", len(set.Categories)),
		zap.Int("authors", len(set.Authors)),
		zap.Int("books", len(set.Books)))

	for _, c := range set.Categories {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := s.ensureCategory(ctx, rs, c); err != nil {
			return summary, err
		}
	}

	for _, a := range set.Authors {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := s.ensureAuthor(ctx, rs, a); err != nil {
			return summary, err
		}
	}

	books := set.Books
	if opts.Start > 0 {
		if opts.Start >= len(books) {
			books = nil
		} else {
			books = books[opts.Start:]
		}
		s.logger.Info("Skipping leading books", zap.Int("start", opts.Start))
	}
	for i, b := range books {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := s.ensureBook(ctx, rs, b, opts); err != nil {
			return summary, err
		}
		if (i+1)%50 == 0 {
			s.logger.Info("Progress",
				zap.Int("books_done", i+1),
				zap.Int("books_total", len(books)))
		}
	}

	s.logger.Info("Migration finished",
		zap.String("run_id", run.ID),
		zap.Any("entities", summary.Entities),
		zap.Int("assets_uploaded", summary.Assets.Uploaded),
		zap.Int("assets_missing", summary.Assets.Missing),
		zap.Int("assets_failed", summary.Assets.Failed))

	return summary, nil
}

// ensureCategory returns an error only when the run must stop.
func (s *migrationService) ensureCategory(ctx context.Context, rs *runState, c models.CanonicalCategory) error {
	key := textfix.Fold(c.Name)
	if id, ok := rs.target.Categories[key]; ok {
		rs.categories[key] = id
		rs.summary.Record(models.EntityCategories, models.OutcomeSkipped)
		rs.outcomes.record(ctx, store.CollectionCategories, c.Name, models.OutcomeSkipped, nil)
		return nil
	}

	if err := s.throttle.Wait(ctx); err != nil {
		return err
	}
	created, err := s.store.Create(ctx, store.CollectionCategories, map[string]any{
		"name": c.Name,
		"slug": c.Slug,
	})
	if err != nil {
		return s.fail(ctx, rs, models.EntityCategories, store.CollectionCategories, c.Name, err)
	}

	rs.categories[key] = created.DocumentID
	rs.summary.Record(models.EntityCategories, models.OutcomeCreated)
	rs.outcomes.record(ctx, store.CollectionCategories, c.Name, models.OutcomeCreated, nil)
	s.logger.Info("Created category",
		zap.String("name", c.Name),
		zap.String("document_id", created.DocumentID))
	return nil
}

func (s *migrationService) ensureAuthor(ctx context.Context, rs *runState, a models.CanonicalAuthor) error {
	key := textfix.Fold(a.Name)
	if id, ok := rs.target.Authors[key]; ok {
		rs.authors[key] = id
		rs.summary.Record(models.EntityAuthors, models.OutcomeSkipped)
		rs.outcomes.record(ctx, store.CollectionAuthors, a.Name, models.OutcomeSkipped, nil)
		return nil
	}

	if err := s.throttle.Wait(ctx); err != nil {
		return err
	}
	fields := map[string]any{
		"name": a.Name,
		"slug": a.Slug,
	}
	if a.Bio != "" {
		fields["bio"] = a.Bio
	}
	created, err := s.store.Create(ctx, store.CollectionAuthors, fields)
	if err != nil {
		return s.fail(ctx, rs, models.EntityAuthors, store.CollectionAuthors, a.Name, err)
	}
	rs.authors[key] = created.DocumentID

	// A failed photo does not undo the author.
	var photoErr error
	if a.PhotoFile != "" {
		p, _ := s.resolver.Photo(a.PhotoFile)
		counts, err := s.pipeline.AttachSingle(ctx, store.CollectionAuthors, created.DocumentID, "photo", p)
		rs.summary.Assets.Add(counts)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			photoErr = err
			s.logger.Warn("Failed to attach author photo",
				zap.String("name", a.Name),
				zap.String("photo", a.PhotoFile),
				zap.String("error", logging.SanitizeError(err)))
		}
	}

	rs.summary.Record(models.EntityAuthors, models.OutcomeCreated)
	rs.outcomes.record(ctx, store.CollectionAuthors, a.Name, models.OutcomeCreated, photoErr)
	s.logger.Info("Created author",
		zap.String("name", a.Name),
		zap.String("document_id", created.DocumentID))
	return nil
}

func (s *migrationService) ensureBook(ctx context.Context, rs *runState, b models.CanonicalBook, opts MigrationOptions) error {
	if id, ok := rs.target.Books[b.Slug]; ok {
		if opts.Republish && rs.target.Unpublished[b.Slug] {
			return s.republish(ctx, rs, b, id)
		}
		rs.summary.Record(models.EntityBooks, models.OutcomeSkipped)
		rs.outcomes.record(ctx, store.CollectionBooks, b.Slug, models.OutcomeSkipped, nil)
		return nil
	}

	if err := s.throttle.Wait(ctx); err != nil {
		return err
	}

	fields := map[string]any{
		"title":       b.Title,
		"slug":        b.Slug,
		"description": b.Description,
		"isFree":      true,
	}
	if b.AuthorName != "" {
		if id, ok := rs.authors[textfix.Fold(b.AuthorName)]; ok {
			fields["author"] = id
		} else {
			s.logger.Warn("Author not available, creating book without it",
				zap.String("slug", b.Slug),
				zap.String("author", b.AuthorName))
		}
	}
	if b.CategoryName != "" {
		if id, ok := rs.categories[textfix.Fold(b.CategoryName)]; ok {
			fields["category"] = id
		} else {
			s.logger.Warn("Category not available, creating book without it",
				zap.String("slug", b.Slug),
				zap.String("category", b.CategoryName))
		}
	}

	created, err := s.store.Create(ctx, store.CollectionBooks, fields)
	if err != nil {
		return s.fail(ctx, rs, models.EntityBooks, store.CollectionBooks, b.Slug, err)
	}
	id := created.DocumentID

	if err := s.attachBookAssets(ctx, rs, b, id, attachedMedia{}); err != nil {
		return s.fail(ctx, rs, models.EntityBooks, store.CollectionBooks, b.Slug, err)
	}

	if _, err := s.store.Update(ctx, store.CollectionBooks, id, map[string]any{
		"publishedAt": s.now().UTC().Format(time.RFC3339),
	}); err != nil {
		return s.fail(ctx, rs, models.EntityBooks, store.CollectionBooks, b.Slug, fmt.Errorf("publish: %w", err))
	}

	rs.summary.Record(models.EntityBooks, models.OutcomeCreated)
	rs.outcomes.record(ctx, store.CollectionBooks, b.Slug, models.OutcomeCreated, nil)
	s.logger.Info("Created book",
		zap.String("title", b.Title),
		zap.String("slug", b.Slug),
		zap.String("document_id", id))
	return nil
}

// attachedMedia tells which media fields of a book already hold files.
type attachedMedia struct {
	cover  bool
	ebooks bool
}

// attachBookAssets uploads and attaches the cover and e-book files that are not attached yet.
func (s *migrationService) attachBookAssets(ctx context.Context, rs *runState, b models.CanonicalBook, id string, have attachedMedia) error {
	if b.CoverFile != "" && !have.cover {
		p, _ := s.resolver.Cover(b.CoverFile)
		counts, err := s.pipeline.AttachSingle(ctx, store.CollectionBooks, id, "cover", p)
		rs.summary.Assets.Add(counts)
		if err != nil {
			return fmt.Errorf("cover: %w", err)
		}
	}

	if len(b.EbookFiles) > 0 && !have.ebooks {
		paths := make([]string, 0, len(b.EbookFiles))
		for _, f := range b.EbookFiles {
			p, _ := s.resolver.Ebook(f.Filename)
			paths = append(paths, p)
		}
		counts, err := s.pipeline.AttachMany(ctx, store.CollectionBooks, id, "ebookFiles", paths)
		rs.summary.Assets.Add(counts)
		if err != nil {
			return fmt.Errorf("ebook files: %w", err)
		}
	}
	return nil
}

// attachedMediaOf reads which media fields of a stored book are filled.
func (s *migrationService) attachedMediaOf(ctx context.Context, id string) (attachedMedia, error) {
	page, err := s.store.List(ctx, store.CollectionBooks, store.Query{
		Filters:  map[string]string{"documentId": id},
		Populate: []string{"cover", "ebookFiles"},
		Status:   store.StatusDraft,
		PageSize: 1,
	})
	if err != nil {
		return attachedMedia{}, fmt.Errorf("failed to read media of book %s: %w", id, err)
	}
	if len(page.Data) == 0 {
		return attachedMedia{}, fmt.Errorf("book %s: %w", id, apperrors.ErrNotFound)
	}
	book := page.Data[0]
	return attachedMedia{
		cover:  hasMedia(book.Raw("cover")),
		ebooks: hasMedia(book.Raw("ebookFiles")),
	}, nil
}

func hasMedia(raw json.RawMessage) bool {
	v := strings.TrimSpace(string(raw))
	return v != "" && v != "null" && v != "[]"
}

// republish completes a draft left behind by an earlier run: media that never got attached is
// uploaded again, and the book is published only once that succeeds.
func (s *migrationService) republish(ctx context.Context, rs *runState, b models.CanonicalBook, id string) error {
	have, err := s.attachedMediaOf(ctx, id)
	if err != nil {
		return s.fail(ctx, rs, models.EntityBooks, store.CollectionBooks, b.Slug, fmt.Errorf("republish: %w", err))
	}
	if err := s.attachBookAssets(ctx, rs, b, id, have); err != nil {
		return s.fail(ctx, rs, models.EntityBooks, store.CollectionBooks, b.Slug, fmt.Errorf("republish: %w", err))
	}

	if err := s.throttle.Wait(ctx); err != nil {
		return err
	}
	if _, err := s.store.Update(ctx, store.CollectionBooks, id, map[string]any{
		"publishedAt": s.now().UTC().Format(time.RFC3339),
	}); err != nil {
		return s.fail(ctx, rs, models.EntityBooks, store.CollectionBooks, b.Slug, fmt.Errorf("republish: %w", err))
	}
	rs.summary.Republished++
	rs.summary.Record(models.EntityBooks, models.OutcomeSkipped)
	rs.outcomes.record(ctx, store.CollectionBooks, b.Slug, models.OutcomeChanged, nil)
	s.logger.Info("Republished book", zap.String("slug", b.Slug), zap.String("document_id", id))
	return nil
}

// fail counts a per-entity failure. It returns an error only when the context is done.
func (s *migrationService) fail(ctx context.Context, rs *runState, entity, collection, key string, cause error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rs.summary.Record(entity, models.OutcomeFailed)
	rs.outcomes.record(ctx, collection, key, models.OutcomeFailed, cause)
	s.logger.Error("Failed to migrate entity",
		zap.String("entity", entity),
		zap.String("key", key),
		zap.String("error", logging.SanitizeError(cause)))
	return nil
}
