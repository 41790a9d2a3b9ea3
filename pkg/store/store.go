// Package store talks to the remote document store (a Strapi v5 style REST API).
package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
)

// Collections used by the migrator.
var (
	CollectionCategories = CollectionFor("Category")
	CollectionAuthors    = CollectionFor("Author")
	CollectionBooks      = CollectionFor("Book")
)

// CollectionFiles is the upload-file registry.
const CollectionFiles = "upload/files"

// CollectionFor derives the REST collection name from an entity type name (Book -> books).
func CollectionFor(entity string) string {
	return inflection.Plural(strings.ToLower(strings.TrimSpace(entity)))
}

// Publication states accepted by Query.Status.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Store is the document store contract. Documents are addressed by collection name
// and documentId.
type Store interface {
	List(ctx context.Context, collection string, q Query) (*Page, error)
	Create(ctx context.Context, collection string, fields map[string]any) (*models.RemoteEntity, error)
	Update(ctx context.Context, collection, documentID string, fields map[string]any) (*models.RemoteEntity, error)
	Delete(ctx context.Context, collection, documentID string) error
}

// Uploader stores file bytes and returns the new asset.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename, mimeType string) (*Asset, error)
}

// Page is one page of a listing.
type Page struct {
	Data       []models.RemoteEntity
	Pagination Pagination
}

// Pagination is the listing metadata. A zero PageSize means the endpoint is not paginated.
type Pagination struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

// Asset is an uploaded file.
type Asset struct {
	ID   string
	URL  string
	Name string
	Mime string
}

// Ref returns the value used to attach the asset to a media field.
// Numeric ids are sent as numbers.
func (a Asset) Ref() any {
	if n, err := strconv.ParseInt(a.ID, 10, 64); err == nil {
		return n
	}
	return a.ID
}
