package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/store"
	"github.com/eknihyzdarma/catalog-migrator/pkg/testhelpers"
)

func TestTargetStateReader_LoadPagesPastServerCap(t *testing.T) {
	mem := testhelpers.NewMemStore()
	for i := 0; i < 130; i++ {
		mem.Seed(store.CollectionBooks, map[string]any{"slug": fmt.Sprintf("kniha-%03d", i)}, i%10 != 0)
	}
	mem.Seed(store.CollectionAuthors, map[string]any{"name": "Němcová, Božena"}, true)
	mem.Seed(store.CollectionCategories, map[string]any{"name": "Poezie"}, false)

	// Asking for more than the server allows must still read every page.
	reader := NewTargetStateReader(mem, 500, zap.NewNop())
	state, err := reader.Load(context.Background())
	require.NoError(t, err)

	assert.Len(t, state.Books, 130)
	assert.Len(t, state.Unpublished, 13)
	assert.True(t, state.Unpublished["kniha-000"])
	assert.False(t, state.Unpublished["kniha-001"])
	assert.Contains(t, state.Authors, "nemcova, bozena")
	assert.Contains(t, state.Categories, "poezie", "draft categories are part of the state")
}

func TestTargetStateReader_ListAll(t *testing.T) {
	tests := []struct {
		name     string
		seeded   int
		pageSize int
		want     int
	}{
		{name: "empty", seeded: 0, pageSize: 10, want: 0},
		{name: "exact multiple", seeded: 20, pageSize: 10, want: 20},
		{name: "short last page", seeded: 25, pageSize: 10, want: 25},
		{name: "default page size", seeded: 101, pageSize: 0, want: 101},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := testhelpers.NewMemStore()
			for i := 0; i < tt.seeded; i++ {
				mem.Seed(store.CollectionAuthors, map[string]any{"name": fmt.Sprintf("Autor %d", i)}, true)
			}
			reader := NewTargetStateReader(mem, tt.pageSize, zap.NewNop())

			all, err := reader.ListAll(context.Background(), store.CollectionAuthors, store.Query{})
			require.NoError(t, err)
			assert.Len(t, all, tt.want)
		})
	}
}

func TestTargetStateReader_UnpaginatedCollection(t *testing.T) {
	mem := testhelpers.NewMemStore()
	for i := 0; i < 3; i++ {
		mem.SeedFile(map[string]any{"name": fmt.Sprintf("f%d.pdf", i), "mime": "application/pdf"})
	}
	reader := NewTargetStateReader(mem, 1, zap.NewNop())

	all, err := reader.ListAll(context.Background(), store.CollectionFiles, store.Query{Filters: map[string]string{"mime": "application/pdf"}})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestThrottle(t *testing.T) {
	var nilThrottle *Throttle
	assert.NoError(t, nilThrottle.Wait(context.Background()))
	assert.NoError(t, NewThrottle(0).Wait(context.Background()))

	th := NewThrottle(time.Hour)
	require.NoError(t, th.Wait(context.Background()), "the first token is immediate")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, th.Wait(ctx))
}
