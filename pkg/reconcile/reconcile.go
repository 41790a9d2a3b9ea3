// Package reconcile merges the XML feed with the dump projection into one canonical record set.
package reconcile

import (
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/eknihyzdarma/catalog-migrator/pkg/feed"
	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
	"github.com/eknihyzdarma/catalog-migrator/pkg/source"
	"github.com/eknihyzdarma/catalog-migrator/pkg/textfix"
)

const (
	// MaxBioLength caps author biographies, in runes.
	MaxBioLength = 10000
	// MaxDescriptionLength caps book descriptions, in runes.
	MaxDescriptionLength = 50000
)

// Options tune reconciliation.
type Options struct {
	// IgnoredAuthors are feed manufacturer values that do not name an author.
	IgnoredAuthors []string
	// IncludeDumpOnly adds visible dump products missing from the feed.
	IncludeDumpOnly bool
}

// DefaultOptions returns the options used by the migrate command without overrides.
func DefaultOptions() Options {
	return Options{IgnoredAuthors: []string{"VISIBILITY"}}
}

// Report counts reconciliation decisions worth surfacing to the operator.
type Report struct {
	FeedItems          int `json:"feedItems"`
	MissingTitle       int `json:"missingTitle"`
	MissingSlug        int `json:"missingSlug"`
	Unjoined           int `json:"unjoined"`
	AuthorMismatches   int `json:"authorMismatches"`
	CategoryMismatches int `json:"categoryMismatches"`
	DuplicateBooks     int `json:"duplicateBooks"`
	DumpOnlyBooks      int `json:"dumpOnlyBooks"`
}

// Set is the canonical record set of one run, in processing order.
type Set struct {
	Categories []models.CanonicalCategory `json:"categories"`
	Authors    []models.CanonicalAuthor   `json:"authors"`
	Books      []models.CanonicalBook     `json:"books"`
	Report     Report                     `json:"report"`
}

// builder accumulates the set and keeps identity indexes out of the result.
type builder struct {
	set          Set
	categoryIdx  map[string]int
	authorIdx    map[string]int
	authorFromDB map[string]bool
	bookIdx      map[string]struct{}
	ignored      map[string]struct{}
	proj         *source.Projection
}

// Reconcile joins feed items to the projection through the shared product id.
// The feed is authoritative for titles, author and category names; the dump contributes
// slugs, biographies, photos and e-book files when the join succeeds. A feed item without
// dump coverage still yields its book, author and category.
func Reconcile(items []feed.Item, proj *source.Projection, opts Options) *Set {
	b := &builder{
		categoryIdx:  make(map[string]int),
		authorIdx:    make(map[string]int),
		authorFromDB: make(map[string]bool),
		bookIdx:      make(map[string]struct{}),
		ignored:      make(map[string]struct{}),
		proj:         proj,
	}
	for _, name := range opts.IgnoredAuthors {
		b.ignored[textfix.Fold(name)] = struct{}{}
	}

	inFeed := make(map[int64]struct{}, len(items))
	for _, item := range items {
		b.set.Report.FeedItems++
		if id, ok := item.ProductID(); ok {
			inFeed[id] = struct{}{}
		}
		b.addFeedItem(item)
	}

	if opts.IncludeDumpOnly {
		for _, id := range proj.ProductIDs() {
			if _, ok := inFeed[id]; ok {
				continue
			}
			b.addDumpProduct(id)
		}
	}

	return &b.set
}

func (b *builder) addFeedItem(item feed.Item) {
	if item.Title == "" {
		b.set.Report.MissingTitle++
		return
	}

	product, joined := b.lookupProduct(item)
	if !joined {
		b.set.Report.Unjoined++
	}

	book := models.CanonicalBook{
		Title:     item.Title,
		Source:    models.SourceFeed,
		CoverFile: coverRef(item.ImgURL, item.ID),
	}

	var dumpText source.ProductText
	var hasDumpText bool
	if joined {
		book.ProductID = product.ID
		book.Slug = product.Slug
		book.EbookFiles = b.proj.EbookFiles(product.ID)
		dumpText, hasDumpText = b.proj.ProductText(product.ID)
	}
	if book.Slug == "" {
		book.Slug = textfix.Slugify(item.Title)
	}
	if book.Slug == "" {
		b.set.Report.MissingSlug++
		return
	}

	book.Description = textfix.StripHTML(item.Description)
	if book.Description == "" && hasDumpText {
		book.Description = dumpText.Description
	}
	book.Description = textfix.Truncate(book.Description, MaxDescriptionLength)

	// Category: the feed name wins; the dump name fills in when the feed has none.
	categoryName := item.CategoryName
	if joined {
		if dumpName, ok := b.proj.CategoryName(product.CategoryID); ok {
			if categoryName == "" {
				categoryName = dumpName
			} else if textfix.Fold(dumpName) != textfix.Fold(categoryName) {
				b.set.Report.CategoryMismatches++
			}
		}
	}
	book.CategoryName = b.addCategory(categoryName)

	// Author: enrich from the dump only when both sources agree on the name.
	authorName := item.Manufacturer
	if b.isIgnored(authorName) {
		authorName = ""
	}
	var authorID int64
	if joined {
		authorID = product.AuthorID
		if at, ok := b.proj.AuthorText(authorID); ok && at.Name != "" {
			switch {
			case authorName == "":
				authorName = at.Name
			case textfix.Fold(at.Name) != textfix.Fold(authorName):
				b.set.Report.AuthorMismatches++
				authorID = 0
			}
		} else {
			authorID = 0
		}
	}
	book.AuthorName = b.addAuthor(authorName, authorID)

	b.addBook(book)
}

func (b *builder) addDumpProduct(id int64) {
	product, ok := b.proj.Product(id)
	if !ok || !product.Visible {
		return
	}
	text, ok := b.proj.ProductText(id)
	if !ok || text.Title == "" {
		return
	}

	book := models.CanonicalBook{
		Title:       text.Title,
		Slug:        product.Slug,
		Description: textfix.Truncate(text.Description, MaxDescriptionLength),
		CoverFile:   strconv.FormatInt(id, 10),
		EbookFiles:  b.proj.EbookFiles(id),
		ProductID:   id,
		Source:      models.SourceDump,
	}
	if book.Slug == "" {
		book.Slug = textfix.Slugify(text.Title)
	}
	if book.Slug == "" {
		b.set.Report.MissingSlug++
		return
	}

	if name, ok := b.proj.CategoryName(product.CategoryID); ok {
		book.CategoryName = b.addCategory(name)
	}
	if at, ok := b.proj.AuthorText(product.AuthorID); ok && !b.isIgnored(at.Name) {
		book.AuthorName = b.addAuthor(at.Name, product.AuthorID)
	}

	if b.addBook(book) {
		b.set.Report.DumpOnlyBooks++
	}
}

// lookupProduct resolves the feed item to its dump product, if any.
func (b *builder) lookupProduct(item feed.Item) (source.Product, bool) {
	id, ok := item.ProductID()
	if !ok {
		return source.Product{}, false
	}
	return b.proj.Product(id)
}

func (b *builder) isIgnored(name string) bool {
	if name == "" {
		return false
	}
	_, ok := b.ignored[textfix.Fold(name)]
	return ok
}

// addCategory registers a category by name and returns the name books should reference.
func (b *builder) addCategory(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	key := textfix.Fold(name)
	if idx, ok := b.categoryIdx[key]; ok {
		return b.set.Categories[idx].Name
	}
	b.categoryIdx[key] = len(b.set.Categories)
	b.set.Categories = append(b.set.Categories, models.CanonicalCategory{
		Name: name,
		Slug: textfix.Slugify(name),
	})
	return name
}

// addAuthor registers an author by name. A non-zero dumpID whose data agrees with the
// name enriches the author, also when an earlier occurrence had no dump coverage.
func (b *builder) addAuthor(name string, dumpID int64) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	key := textfix.Fold(name)
	idx, ok := b.authorIdx[key]
	if !ok {
		idx = len(b.set.Authors)
		b.authorIdx[key] = idx
		b.set.Authors = append(b.set.Authors, models.CanonicalAuthor{
			Name: name,
			Slug: textfix.Slugify(name),
		})
	}

	if dumpID != 0 && !b.authorFromDB[key] {
		author := &b.set.Authors[idx]
		if row, ok := b.proj.Author(dumpID); ok {
			if row.Slug != "" {
				author.Slug = row.Slug
			}
			author.PhotoFile = row.PhotoFile
		}
		if text, ok := b.proj.AuthorText(dumpID); ok {
			author.Bio = textfix.Truncate(text.Bio, MaxBioLength)
		}
		b.authorFromDB[key] = true
	}

	return b.set.Authors[idx].Name
}

// addBook appends the book unless its slug is already taken; first wins.
func (b *builder) addBook(book models.CanonicalBook) bool {
	if _, dup := b.bookIdx[book.Slug]; dup {
		b.set.Report.DuplicateBooks++
		return false
	}
	b.bookIdx[book.Slug] = struct{}{}
	b.set.Books = append(b.set.Books, book)
	return true
}

// coverRef derives the cover file key: the image basename without extension,
// falling back to the product id.
func coverRef(imgURL, productID string) string {
	if imgURL != "" {
		p := imgURL
		if u, err := url.Parse(imgURL); err == nil && u.Path != "" {
			p = u.Path
		}
		base := path.Base(p)
		base = strings.TrimSuffix(base, path.Ext(base))
		if base != "" && base != "." && base != "/" {
			return base
		}
	}
	return productID
}
