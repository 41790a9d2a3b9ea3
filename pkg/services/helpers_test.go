package services

import (
	"context"
	"sync"
	"testing/fstest"

	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/assets"
	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
	"github.com/eknihyzdarma/catalog-migrator/pkg/testhelpers"
)

// recordingLedger captures outcome records in memory.
type recordingLedger struct {
	mu      sync.Mutex
	records []models.OutcomeRecord
}

func (l *recordingLedger) StartRun(context.Context, string, string, bool) error { return nil }
func (l *recordingLedger) FinishRun(context.Context, string, any) error         { return nil }

func (l *recordingLedger) Record(_ context.Context, rec models.OutcomeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

func (l *recordingLedger) byOutcome(outcome models.Outcome) []models.OutcomeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.OutcomeRecord
	for _, r := range l.records {
		if r.Outcome == outcome {
			out = append(out, r)
		}
	}
	return out
}

type migrationFixture struct {
	mem    *testhelpers.MemStore
	ledger *recordingLedger
	svc    MigrationService
}

func newMigrationFixture(files fstest.MapFS) *migrationFixture {
	mem := testhelpers.NewMemStore()
	rec := &recordingLedger{}
	logger := zap.NewNop()
	svc := NewMigrationService(
		mem,
		NewTargetStateReader(mem, 0, logger),
		assets.NewResolver(files),
		assets.NewPipeline(files, mem, mem, logger),
		NewThrottle(0),
		rec,
		logger,
	)
	return &migrationFixture{mem: mem, ledger: rec, svc: svc}
}

func catalogFiles() fstest.MapFS {
	return fstest.MapFS{
		"mod_eshop/produkty/full/100.jpg": {Data: []byte("\xff\xd8\xff cover")},
		"mod_eknihy/valka.epub":           {Data: []byte("PK\x03\x04epub")},
		"mod_eknihy/valka.pdf":            {Data: []byte("%PDF-1.4")},
		"mod_eknihy/povidky.pdf":          {Data: []byte("%PDF-1.4")},
		"mod_eshop/znacka/capek.jpg":      {Data: []byte("\xff\xd8\xff photo")},
	}
}
