package cli

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/apperrors"
	"github.com/eknihyzdarma/catalog-migrator/pkg/config"
	"github.com/eknihyzdarma/catalog-migrator/pkg/dump"
	"github.com/eknihyzdarma/catalog-migrator/pkg/feed"
	"github.com/eknihyzdarma/catalog-migrator/pkg/reconcile"
	"github.com/eknihyzdarma/catalog-migrator/pkg/source"
)

// inputFlags are the source overrides shared by migrate and inspect.
type inputFlags struct {
	dumpPath        string
	feedPath        string
	filesDir        string
	includeDumpOnly bool
}

func (f inputFlags) apply(cfg *config.Config) {
	if f.dumpPath != "" {
		cfg.Sources.DumpPath = f.dumpPath
	}
	if f.feedPath != "" {
		cfg.Sources.FeedPath = f.feedPath
	}
	if f.filesDir != "" {
		cfg.Sources.FilesDir = f.filesDir
	}
	if f.includeDumpOnly {
		cfg.Migration.IncludeDumpOnly = true
	}
}

// loadSet parses the dump and the feed and reconciles them into the canonical set.
func loadSet(cfg *config.Config, logger *zap.Logger) (*reconcile.Set, source.Stats, error) {
	names := source.TableNames{
		Authors:       cfg.Sources.Tables.Authors,
		AuthorTexts:   cfg.Sources.Tables.AuthorTexts,
		Products:      cfg.Sources.Tables.Products,
		ProductTexts:  cfg.Sources.Tables.ProductTexts,
		EbookFiles:    cfg.Sources.Tables.EbookFiles,
		CategoryTexts: cfg.Sources.Tables.CategoryTexts,
	}

	dumpFile, err := os.Open(cfg.Sources.DumpPath)
	if err != nil {
		return nil, source.Stats{}, fmt.Errorf("dump %s: %w", cfg.Sources.DumpPath, errors.Join(apperrors.ErrSourceUnreadable, err))
	}
	defer dumpFile.Close()

	tables, err := dump.NewTokenizer(names.All()...).Tokenize(dumpFile)
	if err != nil {
		return nil, source.Stats{}, fmt.Errorf("dump %s: %w", cfg.Sources.DumpPath, errors.Join(apperrors.ErrSourceUnreadable, err))
	}
	logger.Info("Read dump", zap.String("path", cfg.Sources.DumpPath), zap.Any("rows", tables.Counts()))

	proj := source.Build(tables, names, cfg.Sources.Locale)
	stats := proj.Stats()
	if stats.MalformedRows > 0 {
		logger.Warn("Dump contains malformed rows", zap.Int("rows", stats.MalformedRows))
	}

	feedFile, err := os.Open(cfg.Sources.FeedPath)
	if err != nil {
		return nil, stats, fmt.Errorf("feed %s: %w", cfg.Sources.FeedPath, errors.Join(apperrors.ErrSourceUnreadable, err))
	}
	defer feedFile.Close()

	items, err := feed.Parse(feedFile)
	if err != nil {
		if len(items) == 0 {
			return nil, stats, fmt.Errorf("feed %s: %w", cfg.Sources.FeedPath, errors.Join(apperrors.ErrSourceUnreadable, err))
		}
		// A truncated feed still yields the items read before the damage.
		logger.Warn("Feed is malformed, continuing with the items read so far",
			zap.Int("items", len(items)),
			zap.Error(err))
	}

	set := reconcile.Reconcile(items, proj, reconcile.Options{
		IgnoredAuthors:  cfg.Migration.IgnoredAuthors,
		IncludeDumpOnly: cfg.Migration.IncludeDumpOnly,
	})
	logger.Info("Reconciled sources",
		zap.Int("categories", len(set.Categories)),
		zap.Int("authors", len(set.Authors)),
		zap.Int("books", len(set.Books)),
		zap.Any("report", set.Report))
	return set, stats, nil
}
