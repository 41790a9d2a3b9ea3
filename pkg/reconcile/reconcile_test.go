package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eknihyzdarma/catalog-migrator/pkg/dump"
	"github.com/eknihyzdarma/catalog-migrator/pkg/feed"
	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
	"github.com/eknihyzdarma/catalog-migrator/pkg/source"
)

func fixtureProjection() *source.Projection {
	names := source.DefaultTableNames()
	tables := dump.Tables{
		names.Authors: {
			{"12", "", "capek.jpg", "", "0", "karel-capek"},
			{"13", "", "nemcova.png", "", "0", "bozena-nemcova"},
		},
		names.AuthorTexts: {
			{"1", "12", "1", "Karel Čapek", "<p>Novinář a spisovatel.</p>"},
			{"2", "13", "1", "Božena Němcová", "Autorka Babičky."},
		},
		names.Products: {
			{"100", "5", "", "valka-s-mloky", "12", "1", "1"},
			{"101", "5", "", "", "13", "1", "1"},
			{"102", "6", "", "cesta-na-sever", "99", "1", "1"},
			{"200", "5", "", "povidky-z-jedne-kapsy", "12", "1", "1"},
			{"201", "5", "", "skryty", "12", "1", "0"},
		},
		names.ProductTexts: {
			{"1", "100", "1", "Válka s mloky", "Popis z dumpu"},
			{"2", "101", "1", "Babička", ""},
			{"3", "200", "1", "Povídky z jedné kapsy", "Sbírka povídek."},
			{"4", "201", "1", "Skrytý", ""},
		},
		names.EbookFiles: {
			{"100", "epub", "valka.epub"},
			{"100", "mobi", "valka.mobi"},
			{"200", "pdf", "povidky.pdf"},
		},
		names.CategoryTexts: {
			{"1", "5", "1", "Česká literatura"},
			{"2", "6", "1", "Cestopisy"},
		},
	}
	return source.Build(tables, names, "1")
}

func fixtureItems() []feed.Item {
	return []feed.Item{
		{ID: "100", Title: "Válka s mloky", Manufacturer: "Karel Čapek", CategoryName: "Česká literatura", ImgURL: "https://shop.example.com/img/full/valka-obalka.jpg"},
		{ID: "101", Title: "Babička", Description: "Klasika", Manufacturer: "B. Němcová", CategoryName: "Česká literatura"},
		{ID: "102", Title: "Cesta na sever", Manufacturer: "VISIBILITY", CategoryName: "Cestopisy a reportáže"},
		{ID: "999", Title: "Neznámá kniha", Manufacturer: "Jan Neruda", CategoryName: "Poezie"},
		{ID: "103", Title: ""},
		{ID: "998", Title: "Válka s Mloky", Manufacturer: "Karel Čapek", CategoryName: "Česká literatura"},
	}
}

func TestReconcile_Golden(t *testing.T) {
	set := Reconcile(fixtureItems(), fixtureProjection(), Options{
		IgnoredAuthors:  []string{"VISIBILITY"},
		IncludeDumpOnly: true,
	})

	data, err := json.MarshalIndent(set, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "reconcile_full", append(data, '\n'))
}

func TestReconcile_FeedOnlyWithoutDump(t *testing.T) {
	proj := source.Build(dump.Tables{}, source.DefaultTableNames(), "1")
	set := Reconcile([]feed.Item{
		{ID: "1", Title: "R.U.R.", Manufacturer: "Karel Čapek", CategoryName: "Drama"},
	}, proj, DefaultOptions())

	require.Len(t, set.Books, 1)
	assert.Equal(t, models.CanonicalBook{
		Title:        "R.U.R.",
		Slug:         "r-u-r",
		AuthorName:   "Karel Čapek",
		CategoryName: "Drama",
		CoverFile:    "1",
		Source:       models.SourceFeed,
	}, set.Books[0])
	assert.Equal(t, []models.CanonicalAuthor{{Name: "Karel Čapek", Slug: "karel-capek"}}, set.Authors)
	assert.Equal(t, []models.CanonicalCategory{{Name: "Drama", Slug: "drama"}}, set.Categories)
	assert.Equal(t, 1, set.Report.Unjoined)
}

func TestReconcile_DumpOnlyExcludedByDefault(t *testing.T) {
	set := Reconcile(nil, fixtureProjection(), DefaultOptions())
	assert.Empty(t, set.Books)
	assert.Zero(t, set.Report.DumpOnlyBooks)
}

func TestReconcile_AuthorsAndCategoriesMatchedByFold(t *testing.T) {
	proj := source.Build(dump.Tables{}, source.DefaultTableNames(), "1")
	set := Reconcile([]feed.Item{
		{ID: "1", Title: "A", Manufacturer: "Karel Čapek", CategoryName: "Česká literatura"},
		{ID: "2", Title: "B", Manufacturer: "karel  capek", CategoryName: "ceska literatura"},
	}, proj, DefaultOptions())

	require.Len(t, set.Books, 2)
	assert.Len(t, set.Authors, 1)
	assert.Len(t, set.Categories, 1)
	assert.Equal(t, "Karel Čapek", set.Books[1].AuthorName, "books reference the first spelling")
	assert.Equal(t, "Česká literatura", set.Books[1].CategoryName)
}

func TestReconcile_LaterJoinEnrichesAuthor(t *testing.T) {
	set := Reconcile([]feed.Item{
		{ID: "999", Title: "Neznámá", Manufacturer: "Karel Čapek"},
		{ID: "100", Title: "Válka s mloky", Manufacturer: "Karel Čapek"},
	}, fixtureProjection(), DefaultOptions())

	require.Len(t, set.Authors, 1)
	assert.Equal(t, "capek.jpg", set.Authors[0].PhotoFile)
	assert.Equal(t, "Novinář a spisovatel.", set.Authors[0].Bio)
}

func TestCoverRef(t *testing.T) {
	tests := []struct {
		img, id, expected string
	}{
		{"https://shop.example.com/img/produkty/full/1234.jpg", "1", "1234"},
		{"https://shop.example.com/img/cover.name.png?v=2", "1", "cover.name"},
		{"", "77", "77"},
		{"https://shop.example.com/", "5", "5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, coverRef(tt.img, tt.id), tt.img)
	}
}
