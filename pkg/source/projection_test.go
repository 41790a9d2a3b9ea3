package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eknihyzdarma/catalog-migrator/pkg/dump"
	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
)

func fixtureTables() dump.Tables {
	names := DefaultTableNames()
	return dump.Tables{
		names.Authors: {
			{"12", "", "capek.jpg", "", "0", "karel-capek"},
			{"13", "", "", "", "0", "bozena-nemcova"},
			{"x", "", "", "", "0", "broken-id"},
			{"14", "short"},
		},
		names.AuthorTexts: {
			{"1", "12", "1", "Karel Èapek", "<p>Spisovatel &amp; novinář</p>"},
			{"2", "12", "2", "Karel Capek EN", "English bio"},
			{"3", "13", "1", "Old name", ""},
			{"4", "13", "1", "Božena Nìmcová", ""},
		},
		names.Products: {
			{"100", "5", "", "valka-s-mloky", "12", "1", "1"},
			{"101", "", "", "", "NULL", "1", "0"},
		},
		names.ProductTexts: {
			{"1", "100", "1", "Válka s mloky", "<b>Román</b>"},
			{"2", "100", "2", "War with the Newts", "Novel"},
		},
		names.EbookFiles: {
			{"100", "epub", "valka.epub"},
			{"100", "mobi", "valka.mobi"},
			{"100", "pdf", ""},
		},
		names.CategoryTexts: {
			{"1", "5", "1", "Èeská literatura"},
			{"2", "5", "2", "Czech literature"},
		},
	}
}

func TestBuild(t *testing.T) {
	p := Build(fixtureTables(), DefaultTableNames(), "1")

	author, ok := p.Author(12)
	require.True(t, ok)
	assert.Equal(t, Author{ID: 12, PhotoFile: "capek.jpg", Slug: "karel-capek"}, author)

	text, ok := p.AuthorText(12)
	require.True(t, ok)
	assert.Equal(t, "Karel Čapek", text.Name)
	assert.Equal(t, "Spisovatel & novinář", text.Bio)

	text, ok = p.AuthorText(13)
	require.True(t, ok)
	assert.Equal(t, "Božena Němcová", text.Name, "last row of the locale wins")

	product, ok := p.Product(100)
	require.True(t, ok)
	assert.Equal(t, Product{ID: 100, CategoryID: 5, AuthorID: 12, Slug: "valka-s-mloky", Visible: true}, product)

	product, ok = p.Product(101)
	require.True(t, ok)
	assert.Zero(t, product.AuthorID)
	assert.Zero(t, product.CategoryID)
	assert.False(t, product.Visible)

	ptext, ok := p.ProductText(100)
	require.True(t, ok)
	assert.Equal(t, ProductText{Title: "Válka s mloky", Description: "Román"}, ptext)

	assert.Equal(t, []models.EbookFile{
		{Format: "epub", Filename: "valka.epub"},
		{Format: "mobi", Filename: "valka.mobi"},
	}, p.EbookFiles(100))
	assert.Nil(t, p.EbookFiles(101))

	name, ok := p.CategoryName(5)
	require.True(t, ok)
	assert.Equal(t, "Česká literatura", name)

	_, ok = p.CategoryName(99)
	assert.False(t, ok)

	assert.Equal(t, []int64{100, 101}, p.ProductIDs())
}

func TestBuild_Stats(t *testing.T) {
	p := Build(fixtureTables(), DefaultTableNames(), "1")
	stats := p.Stats()

	assert.Equal(t, 2, stats.Authors)
	assert.Equal(t, 2, stats.AuthorTexts)
	assert.Equal(t, 2, stats.Products)
	assert.Equal(t, 1, stats.ProductTexts)
	assert.Equal(t, 2, stats.EbookFiles)
	assert.Equal(t, 1, stats.Categories)
	assert.Equal(t, 3, stats.OtherLocale)
	assert.Equal(t, 3, stats.MalformedRows)
}

func TestBuild_EmptyTables(t *testing.T) {
	p := Build(dump.Tables{}, DefaultTableNames(), "1")
	_, ok := p.Author(1)
	assert.False(t, ok)
	assert.Empty(t, p.ProductIDs())
}

func TestProjection_EbookFilesIsACopy(t *testing.T) {
	p := Build(fixtureTables(), DefaultTableNames(), "1")
	files := p.EbookFiles(100)
	files[0].Filename = "changed"
	assert.Equal(t, "valka.epub", p.EbookFiles(100)[0].Filename)
}
