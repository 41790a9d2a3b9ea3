package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/apperrors"
	"github.com/eknihyzdarma/catalog-migrator/pkg/assets"
	"github.com/eknihyzdarma/catalog-migrator/pkg/ledger"
	"github.com/eknihyzdarma/catalog-migrator/pkg/logging"
	"github.com/eknihyzdarma/catalog-migrator/pkg/media"
	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
	"github.com/eknihyzdarma/catalog-migrator/pkg/store"
)

// AssetRepairService re-uploads files that the media provider stored with the wrong
// resource type, so that they become downloadable again.
type AssetRepairService interface {
	Repair(ctx context.Context, run Run, mimeTypes []string) (*models.PassSummary, error)
}

type assetRepairService struct {
	store    store.Store
	reader   TargetStateReader
	provider media.Provider
	resolver *assets.Resolver
	throttle *Throttle
	ledger   ledger.Recorder
	logger   *zap.Logger
}

var _ AssetRepairService = (*assetRepairService)(nil)

// NewAssetRepairService wires the pass. provider may be nil for dry runs.
func NewAssetRepairService(
	st store.Store,
	reader TargetStateReader,
	provider media.Provider,
	resolver *assets.Resolver,
	throttle *Throttle,
	rec ledger.Recorder,
	logger *zap.Logger,
) AssetRepairService {
	return &assetRepairService{
		store:    st,
		reader:   reader,
		provider: provider,
		resolver: resolver,
		throttle: throttle,
		ledger:   rec,
		logger:   logger.Named("asset-repair"),
	}
}

func (s *assetRepairService) Repair(ctx context.Context, run Run, mimeTypes []string) (*models.PassSummary, error) {
	summary := &models.PassSummary{Pass: PassRepairAssets, RunID: run.ID, DryRun: run.DryRun}
	out := newOutcomes(s.ledger, run, PassRepairAssets, s.logger)

	if !run.DryRun && s.provider == nil {
		return summary, fmt.Errorf("%w: media provider is not configured", apperrors.ErrMissingCredential)
	}

	for _, mt := range mimeTypes {
		files, err := s.reader.ListAll(ctx, store.CollectionFiles, store.Query{
			Filters: map[string]string{"mime": mt},
		})
		if err != nil {
			return summary, fmt.Errorf("failed to list %s files: %w", mt, err)
		}

		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			name := f.String("name")
			if f.Path("provider_metadata.resource_type") != media.ResourceImage {
				summary.Record(models.OutcomeSkipped)
				out.record(ctx, store.CollectionFiles, name, models.OutcomeSkipped, nil)
				continue
			}

			outcome, err := s.repairFile(ctx, run, f)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return summary, ctxErr
				}
				s.logger.Error("Failed to repair file",
					zap.String("name", name),
					zap.String("error", logging.SanitizeError(err)))
			}
			summary.Record(outcome)
			out.record(ctx, store.CollectionFiles, name, outcome, err)
		}
	}

	s.logger.Info("Asset repair finished",
		zap.Int("examined", summary.Examined),
		zap.Int("repaired", summary.Changed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (s *assetRepairService) repairFile(ctx context.Context, run Run, f models.RemoteEntity) (models.Outcome, error) {
	id := f.String("id")
	name := f.String("name")
	oldPublicID := f.Path("provider_metadata.public_id")

	localPath, ok := s.resolver.Ebook(name)
	if !ok {
		s.logger.Info("No local copy, skipping", zap.String("name", name))
		return models.OutcomeSkipped, nil
	}

	publicID := f.String("hash")
	if publicID == "" {
		publicID = strings.TrimSuffix(name, ".pdf")
	}

	if run.DryRun {
		s.logger.Info("Would re-upload as raw",
			zap.String("name", name),
			zap.String("public_id", publicID))
		return models.OutcomeChanged, nil
	}

	data, err := fs.ReadFile(s.resolver.FS(), localPath)
	if err != nil {
		return models.OutcomeFailed, fmt.Errorf("failed to read %s: %w", localPath, err)
	}

	if err := s.throttle.Wait(ctx); err != nil {
		return models.OutcomeFailed, err
	}
	uploaded, err := s.provider.UploadRaw(ctx, data, name, publicID)
	if err != nil {
		return models.OutcomeFailed, err
	}

	if _, err := s.store.Update(ctx, store.CollectionFiles, id, map[string]any{
		"url": uploaded.SecureURL,
		"provider_metadata": map[string]any{
			"public_id":     uploaded.PublicID,
			"resource_type": media.ResourceRaw,
		},
	}); err != nil {
		return models.OutcomeFailed, fmt.Errorf("failed to update file record: %w", err)
	}

	if oldPublicID != "" {
		if err := s.provider.Destroy(ctx, oldPublicID, media.ResourceImage); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("Failed to destroy stale image resource",
				zap.String("public_id", oldPublicID),
				zap.String("error", logging.SanitizeError(err)))
		}
	}

	s.logger.Info("Repaired file",
		zap.String("name", name),
		zap.String("url", uploaded.SecureURL))
	return models.OutcomeChanged, nil
}
