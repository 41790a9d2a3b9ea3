package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/apperrors"
	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
	"github.com/eknihyzdarma/catalog-migrator/pkg/store"
)

var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".epub": "application/epub+zip",
	".mobi": "application/x-mobipocket-ebook",
	".pdf":  "application/pdf",
}

// DetectMIME returns the MIME type of a file: the extension table first, then content sniffing.
func DetectMIME(name string, data []byte) string {
	if mt, ok := extensionTypes[strings.ToLower(path.Ext(name))]; ok {
		return mt
	}
	mt := mimetype.Detect(data).String()
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.TrimSpace(mt)
}

// Pipeline uploads files and links them to media fields of a document.
type Pipeline struct {
	files    fs.FS
	store    store.Store
	uploader store.Uploader
	logger   *zap.Logger
}

func NewPipeline(files fs.FS, st store.Store, uploader store.Uploader, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		files:    files,
		store:    st,
		uploader: uploader,
		logger:   logger.Named("assets"),
	}
}

// AttachSingle uploads the file at p and sets it as the value of a single-media field.
// A missing file is counted and skipped.
func (p *Pipeline) AttachSingle(ctx context.Context, collection, documentID, field, filePath string) (models.AssetCounts, error) {
	var counts models.AssetCounts

	asset, err := p.upload(ctx, filePath)
	switch {
	case errors.Is(err, apperrors.ErrAssetMissing):
		counts.Missing++
		p.logger.Debug("Asset missing",
			zap.String("collection", collection),
			zap.String("field", field),
			zap.String("path", filePath))
		return counts, nil
	case err != nil:
		counts.Failed++
		return counts, err
	}
	counts.Uploaded++

	if _, err := p.store.Update(ctx, collection, documentID, map[string]any{field: asset.Ref()}); err != nil {
		return counts, fmt.Errorf("failed to attach %s: %w", field, err)
	}
	return counts, nil
}

// AttachMany uploads the files in order and links them to a multi-media field with one update.
// Missing files are skipped; the first upload failure aborts.
func (p *Pipeline) AttachMany(ctx context.Context, collection, documentID, field string, filePaths []string) (models.AssetCounts, error) {
	var counts models.AssetCounts
	refs := make([]any, 0, len(filePaths))

	for _, fp := range filePaths {
		asset, err := p.upload(ctx, fp)
		switch {
		case errors.Is(err, apperrors.ErrAssetMissing):
			counts.Missing++
			p.logger.Debug("Asset missing",
				zap.String("collection", collection),
				zap.String("field", field),
				zap.String("path", fp))
			continue
		case err != nil:
			counts.Failed++
			return counts, err
		}
		counts.Uploaded++
		refs = append(refs, asset.Ref())
	}

	if len(refs) == 0 {
		return counts, nil
	}
	if _, err := p.store.Update(ctx, collection, documentID, map[string]any{field: refs}); err != nil {
		return counts, fmt.Errorf("failed to attach %s: %w", field, err)
	}
	return counts, nil
}

func (p *Pipeline) upload(ctx context.Context, filePath string) (*store.Asset, error) {
	if filePath == "" || p.files == nil {
		return nil, apperrors.ErrAssetMissing
	}
	data, err := fs.ReadFile(p.files, filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Join(apperrors.ErrAssetMissing, err)
		}
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	name := path.Base(filePath)
	mimeType := DetectMIME(name, data)
	asset, err := p.uploader.Upload(ctx, data, name, mimeType)
	if err != nil {
		p.logger.Error("Failed to upload asset",
			zap.String("path", filePath),
			zap.String("mime", mimeType),
			zap.Error(err))
		return nil, fmt.Errorf("failed to upload %s: %w", name, err)
	}

	p.logger.Debug("Uploaded asset",
		zap.String("path", filePath),
		zap.String("asset_id", asset.ID))
	return asset, nil
}
