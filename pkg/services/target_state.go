package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
	"github.com/eknihyzdarma/catalog-migrator/pkg/store"
	"github.com/eknihyzdarma/catalog-migrator/pkg/textfix"
)

// DefaultPageSize is used when a listing does not specify one.
const DefaultPageSize = 100

// TargetState is what already exists in the store, keyed by canonical identity.
type TargetState struct {
	// Categories and Authors map Fold(name) to documentId.
	Categories map[string]string
	Authors    map[string]string
	// Books maps slug to documentId.
	Books map[string]string
	// Unpublished holds the slugs of books that only exist as drafts.
	Unpublished map[string]bool
}

// TargetStateReader reads the store's current contents.
type TargetStateReader interface {
	// Load reads the identity fields of every category, author and book.
	Load(ctx context.Context) (*TargetState, error)
	// ListAll pages through a collection until a short or empty page.
	ListAll(ctx context.Context, collection string, q store.Query) ([]models.RemoteEntity, error)
}

type targetStateReader struct {
	store    store.Store
	pageSize int
	logger   *zap.Logger
}

var _ TargetStateReader = (*targetStateReader)(nil)

func NewTargetStateReader(st store.Store, pageSize int, logger *zap.Logger) TargetStateReader {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &targetStateReader{
		store:    st,
		pageSize: pageSize,
		logger:   logger.Named("target-state"),
	}
}

func (r *targetStateReader) Load(ctx context.Context) (*TargetState, error) {
	state := &TargetState{
		Categories:  make(map[string]string),
		Authors:     make(map[string]string),
		Books:       make(map[string]string),
		Unpublished: make(map[string]bool),
	}

	categories, err := r.ListAll(ctx, store.CollectionCategories, store.Query{Fields: []string{"name"}, Status: store.StatusDraft})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	for _, c := range categories {
		if name := c.String("name"); name != "" {
			state.Categories[textfix.Fold(name)] = c.DocumentID
		}
	}

	authors, err := r.ListAll(ctx, store.CollectionAuthors, store.Query{Fields: []string{"name"}, Status: store.StatusDraft})
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	for _, a := range authors {
		if name := a.String("name"); name != "" {
			state.Authors[textfix.Fold(name)] = a.DocumentID
		}
	}

	drafts, err := r.ListAll(ctx, store.CollectionBooks, store.Query{Fields: []string{"slug"}, Status: store.StatusDraft})
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	for _, b := range drafts {
		if slug := b.String("slug"); slug != "" {
			state.Books[slug] = b.DocumentID
			state.Unpublished[slug] = true
		}
	}

	published, err := r.ListAll(ctx, store.CollectionBooks, store.Query{Fields: []string{"slug"}, Status: store.StatusPublished})
	if err != nil {
		return nil, fmt.Errorf("failed to list published books: %w", err)
	}
	for _, b := range published {
		if slug := b.String("slug"); slug != "" {
			state.Books[slug] = b.DocumentID
			delete(state.Unpublished, slug)
		}
	}

	r.logger.Info("Loaded target state",
		zap.Int("categories", len(state.Categories)),
		zap.Int("authors", len(state.Authors)),
		zap.Int("books", len(state.Books)),
		zap.Int("unpublished_books", len(state.Unpublished)))

	return state, nil
}

func (r *targetStateReader) ListAll(ctx context.Context, collection string, q store.Query) ([]models.RemoteEntity, error) {
	if q.PageSize <= 0 {
		q.PageSize = r.pageSize
	}

	var all []models.RemoteEntity
	for pageNum := 1; ; pageNum++ {
		q.Page = pageNum
		page, err := r.store.List(ctx, collection, q)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s page %d: %w", collection, pageNum, err)
		}
		all = append(all, page.Data...)

		// Unpaginated endpoints return everything at once.
		if page.Pagination.PageSize == 0 {
			break
		}
		// The server may cap the page size below the requested one.
		size := min(q.PageSize, page.Pagination.PageSize)
		if len(page.Data) == 0 || len(page.Data) < size {
			break
		}
	}
	return all, nil
}
