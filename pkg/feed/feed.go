// Package feed parses the shop's XML product feed.
package feed

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// Item is one <SHOPITEM>. All values are trimmed.
type Item struct {
	ID           string
	Title        string
	Description  string
	Manufacturer string
	CategoryID   string
	CategoryName string
	ImgURL       string
}

// shopItem is the wire shape of <SHOPITEM>.
type shopItem struct {
	ID           string `xml:"ID"`
	Title        string `xml:"PRODUCT"`
	Description  markup `xml:"DESCRIPTION"`
	Manufacturer string `xml:"MANUFACTURER"`
	CategoryID   string `xml:"CATEGORY_ID"`
	CategoryName string `xml:"CATEGORY_NAME"`
	ImgURL       string `xml:"IMGURL"`
}

// markup is element content that may hold unescaped HTML. Child elements are written back
// as bare tags around their text; escaped entities and CDATA arrive already decoded.
type markup string

func (m *markup) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			depth++
			b.WriteString("<" + t.Name.Local + ">")
		case xml.EndElement:
			if depth == 0 {
				*m = markup(b.String())
				return nil
			}
			depth--
			b.WriteString("</" + t.Name.Local + ">")
		}
	}
}

func (w shopItem) item() Item {
	return Item{
		ID:           w.ID,
		Title:        w.Title,
		Description:  string(w.Description),
		Manufacturer: w.Manufacturer,
		CategoryID:   w.CategoryID,
		CategoryName: w.CategoryName,
		ImgURL:       w.ImgURL,
	}
}

// ProductID returns the numeric id shared with the dump, false when ID is not an integer.
func (i Item) ProductID() (int64, bool) {
	id, err := strconv.ParseInt(i.ID, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (i *Item) trim() {
	i.ID = strings.TrimSpace(i.ID)
	i.Title = strings.TrimSpace(i.Title)
	i.Description = strings.TrimSpace(i.Description)
	i.Manufacturer = strings.TrimSpace(i.Manufacturer)
	i.CategoryID = strings.TrimSpace(i.CategoryID)
	i.CategoryName = strings.TrimSpace(i.CategoryName)
	i.ImgURL = strings.TrimSpace(i.ImgURL)
}

// Parse streams every SHOPITEM element out of r. The decoder is lenient about HTML
// entities and unclosed HTML tags in descriptions, and honors the declared charset.
// On a syntax error the items read so far are returned together with the error.
func Parse(r io.Reader) ([]Item, error) {
	d := xml.NewDecoder(r)
	d.Strict = false
	d.AutoClose = xml.HTMLAutoClose
	d.Entity = xml.HTMLEntity
	d.CharsetReader = charset.NewReaderLabel

	var items []Item
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			return items, fmt.Errorf("failed to parse feed after %d items: %w", len(items), err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok || !strings.EqualFold(se.Name.Local, "SHOPITEM") {
			continue
		}

		var raw shopItem
		if err := d.DecodeElement(&raw, &se); err != nil {
			return items, fmt.Errorf("failed to decode SHOPITEM %d: %w", len(items)+1, err)
		}
		item := raw.item()
		item.trim()
		items = append(items, item)
	}
}
