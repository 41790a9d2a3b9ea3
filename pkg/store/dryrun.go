package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
)

// DryRun wraps a store so that reads pass through and writes are only logged.
// Writes are answered with synthetic document and asset ids so that callers can
// carry on as if the write had happened.
type DryRun struct {
	inner  Store
	logger *zap.Logger
}

var (
	_ Store    = (*DryRun)(nil)
	_ Uploader = (*DryRun)(nil)
)

// NewDryRun wraps inner. A nil inner is allowed for commands that never read.
func NewDryRun(inner Store, logger *zap.Logger) *DryRun {
	return &DryRun{
		inner:  inner,
		logger: logger.Named("dry-run"),
	}
}

// List delegates to the wrapped store; without one it returns an empty page.
func (d *DryRun) List(ctx context.Context, collection string, q Query) (*Page, error) {
	if d.inner == nil {
		return &Page{}, nil
	}
	return d.inner.List(ctx, collection, q)
}

func (d *DryRun) Create(_ context.Context, collection string, fields map[string]any) (*models.RemoteEntity, error) {
	id := uuid.NewString()
	d.logger.Info("Would create",
		zap.String("collection", collection),
		zap.String("document_id", id),
		zap.Any("fields", fields))
	return syntheticEntity(id, fields), nil
}

func (d *DryRun) Update(_ context.Context, collection, documentID string, fields map[string]any) (*models.RemoteEntity, error) {
	d.logger.Info("Would update",
		zap.String("collection", collection),
		zap.String("document_id", documentID),
		zap.Any("fields", fields))
	return syntheticEntity(documentID, fields), nil
}

func (d *DryRun) Delete(_ context.Context, collection, documentID string) error {
	d.logger.Info("Would delete",
		zap.String("collection", collection),
		zap.String("document_id", documentID))
	return nil
}

func (d *DryRun) Upload(_ context.Context, data []byte, filename, mimeType string) (*Asset, error) {
	id := uuid.NewString()
	d.logger.Info("Would upload",
		zap.String("filename", filename),
		zap.String("mime", mimeType),
		zap.Int("bytes", len(data)))
	return &Asset{ID: id, Name: filename, Mime: mimeType}, nil
}

func syntheticEntity(documentID string, fields map[string]any) *models.RemoteEntity {
	entity := &models.RemoteEntity{
		DocumentID: documentID,
		Fields:     make(map[string]json.RawMessage, len(fields)),
	}
	for k, v := range fields {
		if raw, err := json.Marshal(v); err == nil {
			entity.Fields[k] = raw
		}
	}
	if _, ok := fields["publishedAt"]; ok {
		entity.Published = fields["publishedAt"] != nil
	}
	return entity
}
