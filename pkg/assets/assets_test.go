package assets

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
	"github.com/eknihyzdarma/catalog-migrator/pkg/store"
	"github.com/eknihyzdarma/catalog-migrator/pkg/testhelpers"
)

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"mod_eshop/produkty/full/100.jpg": {Data: []byte("\xff\xd8\xff full")},
		"mod_eshop/produkty/100.jpg":      {Data: []byte("\xff\xd8\xff small")},
		"mod_eshop/produkty/200.jpg":      {Data: []byte("\xff\xd8\xff only small")},
		"mod_eknihy/valka.epub":           {Data: []byte("PK\x03\x04epub")},
		"mod_eknihy/valka.mobi":           {Data: []byte("BOOKMOBI")},
		"mod_eknihy/povidky.pdf":          {Data: []byte("%PDF-1.4")},
		"mod_eknihy/bez-pripony":          {Data: []byte("%PDF-1.7\n")},
		"mod_eshop/znacka/capek.jpg":      {Data: []byte("\xff\xd8\xff photo")},
	}
}

func TestResolver(t *testing.T) {
	r := NewResolver(testFiles())

	p, ok := r.Cover("100")
	assert.True(t, ok)
	assert.Equal(t, "mod_eshop/produkty/full/100.jpg", p)

	p, ok = r.Cover("200")
	assert.True(t, ok)
	assert.Equal(t, "mod_eshop/produkty/200.jpg", p)

	_, ok = r.Cover("300")
	assert.False(t, ok)

	p, ok = r.Ebook("valka.epub")
	assert.True(t, ok)
	assert.Equal(t, "mod_eknihy/valka.epub", p)

	p, ok = r.Photo("capek.jpg")
	assert.True(t, ok)
	assert.Equal(t, "mod_eshop/znacka/capek.jpg", p)

	for _, bad := range []string{"", "..", "../mod_eknihy/valka.epub", `a\b`} {
		_, ok = r.Ebook(bad)
		assert.False(t, ok, bad)
	}

	_, ok = NewResolver(nil).Cover("100")
	assert.False(t, ok)
}

func TestDetectMIME(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"a.JPG", nil, "image/jpeg"},
		{"a.epub", nil, "application/epub+zip"},
		{"a.mobi", nil, "application/x-mobipocket-ebook"},
		{"a.pdf", nil, "application/pdf"},
		{"bez-pripony", []byte("%PDF-1.7\n"), "application/pdf"},
		{"notes.txt", []byte("plain text"), "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectMIME(tt.name, tt.data))
		})
	}
}

func TestPipeline_AttachSingle(t *testing.T) {
	mem := testhelpers.NewMemStore()
	id := mem.Seed(store.CollectionBooks, map[string]any{"slug": "valka"}, false)
	p := NewPipeline(testFiles(), mem, mem, zap.NewNop())

	counts, err := p.AttachSingle(context.Background(), store.CollectionBooks, id, "cover", "mod_eshop/produkty/full/100.jpg")
	require.NoError(t, err)
	assert.Equal(t, models.AssetCounts{Uploaded: 1}, counts)

	fields, _ := mem.Get(store.CollectionBooks, id)
	assert.Equal(t, int64(1), fields["cover"])

	uploads := mem.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "100.jpg", uploads[0].Filename)
	assert.Equal(t, "image/jpeg", uploads[0].MimeType)
}

func TestPipeline_AttachSingleMissing(t *testing.T) {
	mem := testhelpers.NewMemStore()
	id := mem.Seed(store.CollectionBooks, map[string]any{"slug": "valka"}, false)
	p := NewPipeline(testFiles(), mem, mem, zap.NewNop())

	for _, missing := range []string{"", "mod_eshop/produkty/full/999.jpg"} {
		counts, err := p.AttachSingle(context.Background(), store.CollectionBooks, id, "cover", missing)
		require.NoError(t, err)
		assert.Equal(t, models.AssetCounts{Missing: 1}, counts)
	}
	assert.Empty(t, mem.CallsFor("update"))
}

func TestPipeline_AttachManyPreservesOrder(t *testing.T) {
	mem := testhelpers.NewMemStore()
	id := mem.Seed(store.CollectionBooks, map[string]any{"slug": "valka"}, false)
	p := NewPipeline(testFiles(), mem, mem, zap.NewNop())

	counts, err := p.AttachMany(context.Background(), store.CollectionBooks, id, "ebookFiles", []string{
		"mod_eknihy/valka.mobi",
		"mod_eknihy/chybi.epub",
		"mod_eknihy/valka.epub",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssetCounts{Uploaded: 2, Missing: 1}, counts)

	updates := mem.CallsFor("update")
	require.Len(t, updates, 1, "one update per field")
	assert.Equal(t, []any{int64(1), int64(2)}, updates[0].Fields["ebookFiles"])
}

func TestPipeline_UploadFailureIsReturned(t *testing.T) {
	mem := testhelpers.NewMemStore()
	id := mem.Seed(store.CollectionBooks, map[string]any{"slug": "valka"}, false)
	boom := errors.New("status 500")
	mem.FailOn = func(op, _ string, _ map[string]any) error {
		if op == "upload" {
			return boom
		}
		return nil
	}
	p := NewPipeline(testFiles(), mem, mem, zap.NewNop())

	counts, err := p.AttachMany(context.Background(), store.CollectionBooks, id, "ebookFiles", []string{"mod_eknihy/valka.epub"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, models.AssetCounts{Failed: 1}, counts)
	assert.Empty(t, mem.CallsFor("update"))
}
