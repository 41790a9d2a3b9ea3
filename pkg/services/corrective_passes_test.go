package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/apperrors"
	"github.com/eknihyzdarma/catalog-migrator/pkg/assets"
	"github.com/eknihyzdarma/catalog-migrator/pkg/classify"
	"github.com/eknihyzdarma/catalog-migrator/pkg/ledger"
	"github.com/eknihyzdarma/catalog-migrator/pkg/media"
	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
	"github.com/eknihyzdarma/catalog-migrator/pkg/store"
	"github.com/eknihyzdarma/catalog-migrator/pkg/testhelpers"
)

func TestDuplicateMergeService_Merge(t *testing.T) {
	mem := testhelpers.NewMemStore()
	canonicalID := mem.Seed(store.CollectionBooks, map[string]any{
		"title": "Cesta na sever",
		"slug":  "cesta-na-sever",
	}, true)
	mem.Seed(store.CollectionBooks, map[string]any{
		"title":            "Cesta na sever",
		"slug":             "cesta-na-sever-1",
		"externalLinks":    []any{map[string]any{"label": "MLP", "url": "https://mlp.example/123"}},
		"coverExternalUrl": "https://covers.example/cesta.jpg",
		"mlpId":            nil,
	}, false)

	svc := NewDuplicateMergeService(mem, NewThrottle(0), ledger.Nop{}, zap.NewNop())
	pairs := []models.DuplicatePair{
		{Canonical: "cesta-na-sever", Duplicate: "cesta-na-sever-1"},
		{Canonical: "neexistuje", Duplicate: "neexistuje-1"},
	}
	fields := []string{"externalLinks", "coverExternalUrl", "mlpId"}

	summary, err := svc.Merge(context.Background(), NewRun(false), pairs, fields)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Examined)
	assert.Equal(t, 1, summary.Changed)
	assert.Equal(t, 1, summary.Skipped)

	_, ok := mem.FindBy(store.CollectionBooks, "slug", "cesta-na-sever-1")
	assert.False(t, ok, "duplicate is deleted")

	book, ok := mem.Get(store.CollectionBooks, canonicalID)
	require.True(t, ok)
	cover, ok := book["coverExternalUrl"].(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `"https://covers.example/cesta.jpg"`, string(cover))
	links, ok := book["externalLinks"].(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `[{"label":"MLP","url":"https://mlp.example/123"}]`, string(links))
	assert.NotContains(t, book, "mlpId", "null values are not copied")

	// Running again finds nothing to merge.
	mem.ResetCalls()
	summary, err = svc.Merge(context.Background(), NewRun(false), pairs, fields)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Skipped)
	assert.Empty(t, mem.Calls())
}

func TestDuplicateMergeService_KeepsDuplicateWithoutCanonical(t *testing.T) {
	mem := testhelpers.NewMemStore()
	mem.Seed(store.CollectionBooks, map[string]any{"slug": "osamela-1"}, true)

	svc := NewDuplicateMergeService(mem, NewThrottle(0), ledger.Nop{}, zap.NewNop())
	summary, err := svc.Merge(context.Background(), NewRun(false),
		[]models.DuplicatePair{{Canonical: "osamela", Duplicate: "osamela-1"}}, []string{"mlpId"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, mem.Count(store.CollectionBooks))
}

func seedReclassification(mem *testhelpers.MemStore) (domestic, world string) {
	domestic = mem.Seed(store.CollectionCategories, map[string]any{"name": "Česká literatura"}, true)
	world = mem.Seed(store.CollectionCategories, map[string]any{"name": "Světová literatura"}, true)
	capek := mem.Seed(store.CollectionAuthors, map[string]any{"name": "Čapek, Karel"}, true)
	tolstoj := mem.Seed(store.CollectionAuthors, map[string]any{"name": "Tolstoj, Lev Nikolajevič"}, true)
	verne := mem.Seed(store.CollectionAuthors, map[string]any{"name": "Verne, Jules"}, true)

	mem.Seed(store.CollectionBooks, map[string]any{"title": "Krakatit", "slug": "krakatit", "author": capek, "category": domestic}, true)
	mem.Seed(store.CollectionBooks, map[string]any{"title": "Vojna a mír", "slug": "vojna-a-mir", "author": tolstoj, "category": domestic}, true)
	mem.Seed(store.CollectionBooks, map[string]any{"title": "Anonym", "slug": "anonym", "category": domestic}, false)
	mem.Seed(store.CollectionBooks, map[string]any{"title": "Ocelové město", "slug": "ocelove-mesto", "author": verne, "category": world}, true)
	return domestic, world
}

func TestReclassificationService_MovesForeignAuthors(t *testing.T) {
	mem := testhelpers.NewMemStore()
	_, world := seedReclassification(mem)
	logger := zap.NewNop()
	svc := NewReclassificationService(mem, NewTargetStateReader(mem, 0, logger),
		classify.NewHeuristicClassifier(), NewThrottle(0), ledger.Nop{}, logger)

	summary, err := svc.Reclassify(context.Background(), NewRun(false), "ceska literatura", "Světová literatura")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Examined)
	assert.Equal(t, 1, summary.Changed)
	assert.Equal(t, 2, summary.Skipped)

	updates := mem.CallsFor("update")
	require.Len(t, updates, 1)
	assert.Equal(t, world, updates[0].Fields["category"])
	id, _ := mem.FindBy(store.CollectionBooks, "slug", "vojna-a-mir")
	assert.Equal(t, id, updates[0].DocumentID)

	// A second pass has nothing left to move.
	mem.ResetCalls()
	summary, err = svc.Reclassify(context.Background(), NewRun(false), "Česká literatura", "Světová literatura")
	require.NoError(t, err)
	assert.Zero(t, summary.Changed)
	assert.Empty(t, mem.CallsFor("update"))
}

func TestReclassificationService_MissingCategoryIsFatal(t *testing.T) {
	mem := testhelpers.NewMemStore()
	seedReclassification(mem)
	logger := zap.NewNop()
	svc := NewReclassificationService(mem, NewTargetStateReader(mem, 0, logger),
		classify.NewHeuristicClassifier(), NewThrottle(0), ledger.Nop{}, logger)

	_, err := svc.Reclassify(context.Background(), NewRun(false), "Česká literatura", "Detektivky")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCategoryMissing)
	assert.Empty(t, mem.Calls())
}

// fakeProvider records media provider calls.
type fakeProvider struct {
	mu        sync.Mutex
	uploads   []string
	destroyed []string
	uploadErr error
}

var _ media.Provider = (*fakeProvider)(nil)

func (p *fakeProvider) UploadRaw(_ context.Context, _ []byte, filename, publicID string) (*media.Uploaded, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.uploadErr != nil {
		return nil, p.uploadErr
	}
	p.uploads = append(p.uploads, filename)
	return &media.Uploaded{
		PublicID:     publicID,
		SecureURL:    "https://media.example/raw/upload/" + publicID,
		ResourceType: media.ResourceRaw,
	}, nil
}

func (p *fakeProvider) Destroy(_ context.Context, publicID, resourceType string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyed = append(p.destroyed, resourceType+"/"+publicID)
	return nil
}

func seedRegistry(mem *testhelpers.MemStore) string {
	broken := mem.SeedFile(map[string]any{
		"name": "povidky.pdf",
		"hash": "povidky_a1b2",
		"mime": "application/pdf",
		"url":  "https://media.example/image/upload/povidky_a1b2.pdf",
		"provider_metadata": map[string]any{
			"public_id":     "povidky_a1b2",
			"resource_type": "image",
		},
	})
	mem.SeedFile(map[string]any{
		"name": "chybi.pdf",
		"hash": "chybi_c3",
		"mime": "application/pdf",
		"provider_metadata": map[string]any{
			"public_id":     "chybi_c3",
			"resource_type": "image",
		},
	})
	mem.SeedFile(map[string]any{
		"name": "valka.pdf",
		"mime": "application/pdf",
		"provider_metadata": map[string]any{
			"public_id":     "valka",
			"resource_type": "raw",
		},
	})
	mem.SeedFile(map[string]any{"name": "obalka.jpg", "mime": "image/jpeg"})
	return broken
}

func newAssetRepair(mem *testhelpers.MemStore, provider media.Provider, files fstest.MapFS) AssetRepairService {
	logger := zap.NewNop()
	return NewAssetRepairService(mem, NewTargetStateReader(mem, 0, logger), provider,
		assets.NewResolver(files), NewThrottle(0), ledger.Nop{}, logger)
}

func TestAssetRepairService_Repair(t *testing.T) {
	mem := testhelpers.NewMemStore()
	broken := seedRegistry(mem)
	provider := &fakeProvider{}
	svc := newAssetRepair(mem, provider, catalogFiles())

	summary, err := svc.Repair(context.Background(), NewRun(false), []string{"application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Examined, "records already stored as raw are counted")
	assert.Equal(t, 1, summary.Changed)
	assert.Equal(t, 2, summary.Skipped, "no local copy, already raw")

	assert.Equal(t, []string{"povidky.pdf"}, provider.uploads)
	assert.Equal(t, []string{"image/povidky_a1b2"}, provider.destroyed)

	rec, ok := mem.Get(store.CollectionFiles, broken)
	require.True(t, ok)
	assert.Equal(t, "https://media.example/raw/upload/povidky_a1b2", rec["url"])
	assert.Equal(t, map[string]any{"public_id": "povidky_a1b2", "resource_type": "raw"}, rec["provider_metadata"])

	// Repaired records are no longer candidates.
	provider.uploads = nil
	summary, err = svc.Repair(context.Background(), NewRun(false), []string{"application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Examined)
	assert.Zero(t, summary.Changed)
	assert.Equal(t, 3, summary.Skipped)
	assert.Empty(t, provider.uploads)
}

func TestAssetRepairService_DryRunPlansOnly(t *testing.T) {
	mem := testhelpers.NewMemStore()
	seedRegistry(mem)
	svc := newAssetRepair(mem, nil, catalogFiles())

	summary, err := svc.Repair(context.Background(), NewRun(true), []string{"application/pdf"})
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.Changed)
	assert.Empty(t, mem.Calls())
}

func TestAssetRepairService_RequiresProvider(t *testing.T) {
	mem := testhelpers.NewMemStore()
	svc := newAssetRepair(mem, nil, catalogFiles())

	_, err := svc.Repair(context.Background(), NewRun(false), []string{"application/pdf"})
	assert.ErrorIs(t, err, apperrors.ErrMissingCredential)
}

func TestAssetRepairService_UploadFailureIsCounted(t *testing.T) {
	mem := testhelpers.NewMemStore()
	seedRegistry(mem)
	provider := &fakeProvider{uploadErr: errors.New("media provider returned status 500")}
	svc := newAssetRepair(mem, provider, catalogFiles())

	summary, err := svc.Repair(context.Background(), NewRun(false), []string{"application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Empty(t, mem.CallsFor("update"))
}

func TestCoverService_Apply(t *testing.T) {
	mem := testhelpers.NewMemStore()
	krakatit := mem.Seed(store.CollectionBooks, map[string]any{"slug": "krakatit"}, true)
	mem.Seed(store.CollectionBooks, map[string]any{
		"slug":             "babicka",
		"coverExternalUrl": "https://covers.example/babicka.jpg",
	}, true)

	svc := NewCoverService(mem, NewThrottle(0), ledger.Nop{}, zap.NewNop())
	covers := map[string]string{
		"krakatit":   "https://covers.example/krakatit.jpg",
		"babicka":    "https://covers.example/babicka.jpg",
		"neexistuje": "https://covers.example/x.jpg",
	}

	summary, err := svc.Apply(context.Background(), NewRun(false), covers)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Examined)
	assert.Equal(t, 1, summary.Changed)
	assert.Equal(t, 2, summary.Skipped)

	book, _ := mem.Get(store.CollectionBooks, krakatit)
	assert.Equal(t, "https://covers.example/krakatit.jpg", book["coverExternalUrl"])
}

func TestCleanupService_DeletesInOrder(t *testing.T) {
	mem := testhelpers.NewMemStore()
	for i := 0; i < 120; i++ {
		mem.Seed(store.CollectionBooks, map[string]any{"slug": fmt.Sprintf("b-%d", i)}, i%2 == 0)
	}
	mem.Seed(store.CollectionAuthors, map[string]any{"name": "A"}, true)
	mem.Seed(store.CollectionCategories, map[string]any{"name": "C"}, false)

	logger := zap.NewNop()
	svc := NewCleanupService(mem, NewTargetStateReader(mem, 0, logger), NewThrottle(0), ledger.Nop{}, logger)

	summary, err := svc.Cleanup(context.Background(), NewRun(false))
	require.NoError(t, err)
	assert.Equal(t, 122, summary.Changed)
	assert.Zero(t, mem.Count(store.CollectionBooks))
	assert.Zero(t, mem.Count(store.CollectionAuthors))
	assert.Zero(t, mem.Count(store.CollectionCategories))

	deletes := mem.CallsFor("delete")
	require.Len(t, deletes, 122)
	assert.Equal(t, store.CollectionBooks, deletes[119].Collection)
	assert.Equal(t, store.CollectionAuthors, deletes[120].Collection)
	assert.Equal(t, store.CollectionCategories, deletes[121].Collection)
}

func TestCleanupService_FailuresDoNotStop(t *testing.T) {
	mem := testhelpers.NewMemStore()
	mem.Seed(store.CollectionAuthors, map[string]any{"name": "A"}, true)
	mem.Seed(store.CollectionCategories, map[string]any{"name": "C"}, true)
	mem.FailOn = func(op, collection string, _ map[string]any) error {
		if op == "delete" && collection == store.CollectionAuthors {
			return errors.New("referenced")
		}
		return nil
	}

	logger := zap.NewNop()
	svc := NewCleanupService(mem, NewTargetStateReader(mem, 0, logger), NewThrottle(0), ledger.Nop{}, logger)

	summary, err := svc.Cleanup(context.Background(), NewRun(false))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Changed)
	assert.Zero(t, mem.Count(store.CollectionCategories))
}
