// Package source builds typed, id-keyed lookup tables from tokenized dump rows.
package source

import (
	"sort"
	"strconv"
	"strings"

	"github.com/eknihyzdarma/catalog-migrator/pkg/dump"
	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
	"github.com/eknihyzdarma/catalog-migrator/pkg/textfix"
)

// TableNames names the dump tables the projection reads.
type TableNames struct {
	Authors       string
	AuthorTexts   string
	Products      string
	ProductTexts  string
	EbookFiles    string
	CategoryTexts string
}

// DefaultTableNames returns the table names of the legacy shop export.
func DefaultTableNames() TableNames {
	return TableNames{
		Authors:       "mod_eshop_znacka",
		AuthorTexts:   "mod_eshop_znacka_detail",
		Products:      "mod_eshop_produkt",
		ProductTexts:  "mod_eshop_produkt_detail",
		EbookFiles:    "eknihy_file",
		CategoryTexts: "mod_eshop_kategorie_detail",
	}
}

// All returns every table name, for configuring the tokenizer.
func (n TableNames) All() []string {
	return []string{n.Authors, n.AuthorTexts, n.Products, n.ProductTexts, n.EbookFiles, n.CategoryTexts}
}

// Author is a brand row: the dump models authors as shop brands.
type Author struct {
	ID        int64
	PhotoFile string
	Slug      string
}

// AuthorText is the localized part of an author.
type AuthorText struct {
	Name string
	Bio  string
}

// Product is a product row. Zero ids mean the relation is absent.
type Product struct {
	ID         int64
	CategoryID int64
	AuthorID   int64
	Slug       string
	Visible    bool
}

// ProductText is the localized part of a product.
type ProductText struct {
	Title       string
	Description string
}

// Stats counts what the projection kept and dropped.
type Stats struct {
	Authors       int
	AuthorTexts   int
	Products      int
	ProductTexts  int
	EbookFiles    int
	Categories    int
	OtherLocale   int
	MalformedRows int
}

// Projection holds the dump tables keyed by dump ids. It is not modified after Build.
type Projection struct {
	authors      map[int64]Author
	authorTexts  map[int64]AuthorText
	products     map[int64]Product
	productTexts map[int64]ProductText
	ebookFiles   map[int64][]models.EbookFile
	categories   map[int64]string
	stats        Stats
}

// column indexes per table
const (
	colAuthorID    = 0
	colAuthorPhoto = 2
	colAuthorSlug  = 5

	colAuthorTextAuthorID = 1
	colAuthorTextLang     = 2
	colAuthorTextName     = 3
	colAuthorTextBio      = 4

	colProductID         = 0
	colProductCategoryID = 1
	colProductSlug       = 3
	colProductAuthorID   = 4
	colProductVisible    = 6

	colProductTextProductID = 1
	colProductTextLang      = 2
	colProductTextTitle     = 3
	colProductTextDesc      = 4

	colEbookProductID = 0
	colEbookFormat    = 1
	colEbookFilename  = 2

	colCategoryTextCategoryID = 1
	colCategoryTextLang       = 2
	colCategoryTextName       = 3
)

// Build projects tokenized tables. Only localized rows whose language column equals locale
// are kept; for duplicates in that locale the last row wins. Text passes through encoding
// repair, and biographies and descriptions are reduced to plain text.
func Build(tables dump.Tables, names TableNames, locale string) *Projection {
	p := &Projection{
		authors:      make(map[int64]Author),
		authorTexts:  make(map[int64]AuthorText),
		products:     make(map[int64]Product),
		productTexts: make(map[int64]ProductText),
		ebookFiles:   make(map[int64][]models.EbookFile),
		categories:   make(map[int64]string),
	}

	for _, row := range tables[names.Authors] {
		id, ok := p.id(row, colAuthorID, colAuthorSlug)
		if !ok {
			continue
		}
		p.authors[id] = Author{
			ID:        id,
			PhotoFile: strings.TrimSpace(row[colAuthorPhoto]),
			Slug:      strings.TrimSpace(row[colAuthorSlug]),
		}
	}

	for _, row := range tables[names.AuthorTexts] {
		id, ok := p.localizedID(row, colAuthorTextAuthorID, colAuthorTextLang, colAuthorTextBio, locale)
		if !ok {
			continue
		}
		p.authorTexts[id] = AuthorText{
			Name: strings.TrimSpace(textfix.RepairCP1250(row[colAuthorTextName])),
			Bio:  textfix.StripHTML(textfix.RepairCP1250(row[colAuthorTextBio])),
		}
	}

	for _, row := range tables[names.Products] {
		id, ok := p.id(row, colProductID, colProductVisible)
		if !ok {
			continue
		}
		p.products[id] = Product{
			ID:         id,
			CategoryID: parseID(row[colProductCategoryID]),
			AuthorID:   parseID(row[colProductAuthorID]),
			Slug:       strings.TrimSpace(row[colProductSlug]),
			Visible:    strings.TrimSpace(row[colProductVisible]) == "1",
		}
	}

	for _, row := range tables[names.ProductTexts] {
		id, ok := p.localizedID(row, colProductTextProductID, colProductTextLang, colProductTextDesc, locale)
		if !ok {
			continue
		}
		p.productTexts[id] = ProductText{
			Title:       strings.TrimSpace(textfix.RepairCP1250(row[colProductTextTitle])),
			Description: textfix.StripHTML(textfix.RepairCP1250(row[colProductTextDesc])),
		}
	}

	for _, row := range tables[names.EbookFiles] {
		id, ok := p.id(row, colEbookProductID, colEbookFilename)
		if !ok {
			continue
		}
		filename := strings.TrimSpace(row[colEbookFilename])
		if filename == "" {
			p.stats.MalformedRows++
			continue
		}
		p.ebookFiles[id] = append(p.ebookFiles[id], models.EbookFile{
			Format:   strings.TrimSpace(row[colEbookFormat]),
			Filename: filename,
		})
	}

	for _, row := range tables[names.CategoryTexts] {
		id, ok := p.localizedID(row, colCategoryTextCategoryID, colCategoryTextLang, colCategoryTextName, locale)
		if !ok {
			continue
		}
		p.categories[id] = strings.TrimSpace(textfix.RepairCP1250(row[colCategoryTextName]))
	}

	p.stats.Authors = len(p.authors)
	p.stats.AuthorTexts = len(p.authorTexts)
	p.stats.Products = len(p.products)
	p.stats.ProductTexts = len(p.productTexts)
	p.stats.Categories = len(p.categories)
	for _, files := range p.ebookFiles {
		p.stats.EbookFiles += len(files)
	}

	return p
}

// id reads the integer id at idCol after checking the row reaches lastCol.
func (p *Projection) id(row dump.Row, idCol, lastCol int) (int64, bool) {
	if len(row) <= lastCol {
		p.stats.MalformedRows++
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(row[idCol]), 10, 64)
	if err != nil {
		p.stats.MalformedRows++
		return 0, false
	}
	return id, true
}

func (p *Projection) localizedID(row dump.Row, idCol, langCol, lastCol int, locale string) (int64, bool) {
	id, ok := p.id(row, idCol, lastCol)
	if !ok {
		return 0, false
	}
	if strings.TrimSpace(row[langCol]) != locale {
		p.stats.OtherLocale++
		return 0, false
	}
	return id, true
}

// parseID returns 0 for empty, NULL or non-numeric references.
func parseID(s string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// Author returns the brand row for an author id.
func (p *Projection) Author(id int64) (Author, bool) {
	a, ok := p.authors[id]
	return a, ok
}

// AuthorText returns the localized name and biography for an author id.
func (p *Projection) AuthorText(id int64) (AuthorText, bool) {
	t, ok := p.authorTexts[id]
	return t, ok
}

// Product returns the product row for a product id.
func (p *Projection) Product(id int64) (Product, bool) {
	pr, ok := p.products[id]
	return pr, ok
}

// ProductText returns the localized title and description for a product id.
func (p *Projection) ProductText(id int64) (ProductText, bool) {
	t, ok := p.productTexts[id]
	return t, ok
}

// EbookFiles returns the e-book files of a product in dump order.
func (p *Projection) EbookFiles(id int64) []models.EbookFile {
	files := p.ebookFiles[id]
	if len(files) == 0 {
		return nil
	}
	return append([]models.EbookFile(nil), files...)
}

// CategoryName returns the localized category name for a category id.
func (p *Projection) CategoryName(id int64) (string, bool) {
	name, ok := p.categories[id]
	return name, ok && name != ""
}

// ProductIDs returns every product id in ascending order.
func (p *Projection) ProductIDs() []int64 {
	ids := make([]int64, 0, len(p.products))
	for id := range p.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Stats returns counts of kept and dropped rows.
func (p *Projection) Stats() Stats {
	return p.stats
}
