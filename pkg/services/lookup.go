package services

import (
	"context"
	"fmt"

	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
	"github.com/eknihyzdarma/catalog-migrator/pkg/store"
)

// findBySlug returns the document with the given slug, drafts included.
func findBySlug(ctx context.Context, st store.Store, collection, slug string, fields ...string) (*models.RemoteEntity, bool, error) {
	q := store.Query{
		Filters:  map[string]string{"slug": slug},
		Status:   store.StatusDraft,
		PageSize: 1,
	}
	if len(fields) > 0 {
		q.Fields = append([]string{"slug"}, fields...)
	}
	page, err := st.List(ctx, collection, q)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up %s %q: %w", collection, slug, err)
	}
	if len(page.Data) == 0 {
		return nil, false, nil
	}
	return &page.Data[0], true, nil
}
