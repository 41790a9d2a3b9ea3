// Package models contains domain types for catalog-migrator.
package models

// BookSource records which input produced a canonical book.
type BookSource string

const (
	SourceFeed BookSource = "feed"
	SourceDump BookSource = "dump"
)

// CanonicalCategory is a category as it should exist in the store.
// Identity is Name.
type CanonicalCategory struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CanonicalAuthor is an author as it should exist in the store.
// Identity is Name; remote matching uses the folded name.
type CanonicalAuthor struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Bio       string `json:"bio,omitempty"`
	PhotoFile string `json:"photoFile,omitempty"`
}

// CanonicalBook is a book as it should exist in the store.
// Identity is Slug. AuthorName and CategoryName reference canonical records by display name
// and are empty when the inputs carry no such relation.
type CanonicalBook struct {
	Title        string      `json:"title"`
	Slug         string      `json:"slug"`
	Description  string      `json:"description,omitempty"`
	AuthorName   string      `json:"authorName,omitempty"`
	CategoryName string      `json:"categoryName,omitempty"`
	CoverFile    string      `json:"coverFile,omitempty"`
	EbookFiles   []EbookFile `json:"ebookFiles,omitempty"`
	ProductID    int64       `json:"productId"`
	Source       BookSource  `json:"source"`
}

// EbookFile links a dump product to one downloadable file.
type EbookFile struct {
	Format   string `json:"format"`
	Filename string `json:"filename"`
}

// DuplicatePair names a canonical book and the accidental duplicate to fold into it.
type DuplicatePair struct {
	Canonical string `yaml:"canonical" json:"canonical"`
	Duplicate string `yaml:"duplicate" json:"duplicate"`
}
