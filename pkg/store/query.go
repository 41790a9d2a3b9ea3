package store

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Query selects and shapes a listing.
type Query struct {
	// Filters maps a field path ("slug", "category.documentId") to the value it must equal.
	Filters  map[string]string
	Fields   []string
	Populate []string
	Sort     []string
	Status   string
	Page     int
	PageSize int
}

// Encode renders the query in the store's bracket notation:
// filters[category][documentId][$eq]=x&fields[0]=name&pagination[page]=1.
func (q Query) Encode() string {
	v := url.Values{}

	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var b strings.Builder
		b.WriteString("filters")
		for _, part := range strings.Split(k, ".") {
			b.WriteString("[" + part + "]")
		}
		b.WriteString("[$eq]")
		v.Set(b.String(), q.Filters[k])
	}

	for i, f := range q.Fields {
		v.Set(fmt.Sprintf("fields[%d]", i), f)
	}
	for i, p := range q.Populate {
		v.Set(fmt.Sprintf("populate[%d]", i), p)
	}
	for i, s := range q.Sort {
		v.Set(fmt.Sprintf("sort[%d]", i), s)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Page > 0 {
		v.Set("pagination[page]", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("pagination[pageSize]", strconv.Itoa(q.PageSize))
	}

	return v.Encode()
}
