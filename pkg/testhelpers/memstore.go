// Package testhelpers provides utilities for testing catalog-migrator components.
package testhelpers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
	"github.com/eknihyzdarma/catalog-migrator/pkg/store"
)

// Default and maximum page sizes of the in-memory listing.
const (
	MemDefaultPageSize = 25
	MemMaxPageSize     = 100
)

// Call is one recorded store operation.
type Call struct {
	Op         string
	Collection string
	DocumentID string
	Fields     map[string]any
}

// Upload is one recorded file upload.
type Upload struct {
	ID       string
	Filename string
	MimeType string
	Size     int
}

type memRecord struct {
	documentID string
	fields     map[string]any
	published  bool
}

// MemStore is an in-memory store.Store and store.Uploader that mimics the document store:
// paging with a capped page size, draft/published status, equality filters on dotted
// paths, relations returned only when populated, and unique slugs per collection.
type MemStore struct {
	mu          sync.Mutex
	collections map[string][]*memRecord
	nextID      int
	nextFileID  int
	calls       []Call
	uploads     []Upload

	// Relations maps relation field names to the collection they point at.
	Relations map[string]string
	// FailOn, when set, is consulted before every write; a non-nil error is returned as-is.
	FailOn func(op, collection string, fields map[string]any) error
}

var (
	_ store.Store    = (*MemStore)(nil)
	_ store.Uploader = (*MemStore)(nil)
)

func NewMemStore() *MemStore {
	return &MemStore{
		collections: make(map[string][]*memRecord),
		Relations: map[string]string{
			"author":   store.CollectionAuthors,
			"category": store.CollectionCategories,
		},
	}
}

// Seed inserts a document directly, bypassing call recording. Returns its documentId.
func (m *MemStore) Seed(collection string, fields map[string]any, published bool) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.insert(collection, fields)
	rec.published = published
	return rec.documentID
}

// SeedFile inserts an upload registry record and returns its numeric id.
func (m *MemStore) SeedFile(fields map[string]any) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertFile(fields).documentID
}

// Get returns a copy of a stored document's fields.
func (m *MemStore) Get(collection, documentID string) (map[string]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.find(collection, documentID)
	if rec == nil {
		return nil, false
	}
	return copyFields(rec.fields), true
}

// IsPublished reports whether a stored document is published.
func (m *MemStore) IsPublished(collection, documentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.find(collection, documentID)
	return rec != nil && rec.published
}

// Count returns the number of documents in a collection.
func (m *MemStore) Count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.collections[collection])
}

// FindBy returns the documentId of the first document whose field equals value.
func (m *MemStore) FindBy(collection, field, value string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.collections[collection] {
		if fmt.Sprint(rec.fields[field]) == value {
			return rec.documentID, true
		}
	}
	return "", false
}

// Calls returns the recorded write calls in order.
func (m *MemStore) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsFor returns the recorded calls for one operation ("create", "update", "delete").
func (m *MemStore) CallsFor(op string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Uploads returns the recorded uploads in order.
func (m *MemStore) Uploads() []Upload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Upload(nil), m.uploads...)
}

// ResetCalls clears recorded calls and uploads, keeping the data.
func (m *MemStore) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.uploads = nil
}

func (m *MemStore) List(ctx context.Context, collection string, q store.Query) (*store.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*memRecord
	for _, rec := range m.collections[collection] {
		if q.Status == store.StatusPublished && !rec.published {
			continue
		}
		if !m.matches(rec, q.Filters) {
			continue
		}
		matched = append(matched, rec)
	}

	// The upload registry is not paginated.
	if collection == store.CollectionFiles {
		page := &store.Page{}
		for _, rec := range matched {
			page.Data = append(page.Data, m.render(rec, q))
		}
		return page, nil
	}

	size := q.PageSize
	if size <= 0 {
		size = MemDefaultPageSize
	}
	if size > MemMaxPageSize {
		size = MemMaxPageSize
	}
	pageNum := q.Page
	if pageNum <= 0 {
		pageNum = 1
	}

	page := &store.Page{
		Pagination: store.Pagination{
			Page:      pageNum,
			PageSize:  size,
			PageCount: (len(matched) + size - 1) / size,
			Total:     len(matched),
		},
	}
	start := (pageNum - 1) * size
	for i := start; i < len(matched) && i < start+size; i++ {
		page.Data = append(page.Data, m.render(matched[i], q))
	}
	return page, nil
}

func (m *MemStore) Create(ctx context.Context, collection string, fields map[string]any) (*models.RemoteEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Op: "create", Collection: collection, Fields: copyFields(fields)})
	if err := m.fail("create", collection, fields); err != nil {
		return nil, err
	}
	if slug, ok := fields["slug"]; ok {
		for _, rec := range m.collections[collection] {
			if rec.fields["slug"] == slug {
				return nil, &store.Error{
					Op:         "create",
					Collection: collection,
					StatusCode: http.StatusBadRequest,
					Message:    "ValidationError: This attribute must be unique",
				}
			}
		}
	}

	rec := m.insert(collection, fields)
	if v, ok := fields["publishedAt"]; ok && v != nil {
		rec.published = true
	}
	entity := m.render(rec, store.Query{})
	return &entity, nil
}

func (m *MemStore) Update(ctx context.Context, collection, documentID string, fields map[string]any) (*models.RemoteEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Op: "update", Collection: collection, DocumentID: documentID, Fields: copyFields(fields)})
	if err := m.fail("update", collection, fields); err != nil {
		return nil, err
	}
	rec := m.find(collection, documentID)
	if rec == nil {
		return nil, notFound("update", collection)
	}
	for k, v := range fields {
		if k == "publishedAt" {
			rec.published = v != nil
		}
		rec.fields[k] = v
	}
	entity := m.render(rec, store.Query{})
	return &entity, nil
}

func (m *MemStore) Delete(ctx context.Context, collection, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Op: "delete", Collection: collection, DocumentID: documentID})
	if err := m.fail("delete", collection, nil); err != nil {
		return err
	}
	records := m.collections[collection]
	for i, rec := range records {
		if rec.documentID == documentID {
			m.collections[collection] = append(records[:i], records[i+1:]...)
			return nil
		}
	}
	return notFound("delete", collection)
}

func (m *MemStore) Upload(ctx context.Context, data []byte, filename, mimeType string) (*store.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("upload", "upload", map[string]any{"name": filename}); err != nil {
		return nil, err
	}
	rec := m.insertFile(map[string]any{
		"name": filename,
		"mime": mimeType,
		"size": len(data),
		"url":  "/uploads/" + filename,
	})
	m.uploads = append(m.uploads, Upload{ID: rec.documentID, Filename: filename, MimeType: mimeType, Size: len(data)})
	return &store.Asset{ID: rec.documentID, URL: "/uploads/" + filename, Name: filename, Mime: mimeType}, nil
}

func (m *MemStore) fail(op, collection string, fields map[string]any) error {
	if m.FailOn == nil {
		return nil
	}
	return m.FailOn(op, collection, fields)
}

func (m *MemStore) insert(collection string, fields map[string]any) *memRecord {
	m.nextID++
	rec := &memRecord{
		documentID: fmt.Sprintf("%s-%d", collection, m.nextID),
		fields:     copyFields(fields),
	}
	m.collections[collection] = append(m.collections[collection], rec)
	return rec
}

func (m *MemStore) insertFile(fields map[string]any) *memRecord {
	m.nextFileID++
	id := strconv.Itoa(m.nextFileID)
	rec := &memRecord{documentID: id, fields: copyFields(fields)}
	rec.fields["id"] = m.nextFileID
	m.collections[store.CollectionFiles] = append(m.collections[store.CollectionFiles], rec)
	return rec
}

func (m *MemStore) find(collection, documentID string) *memRecord {
	for _, rec := range m.collections[collection] {
		if rec.documentID == documentID {
			return rec
		}
	}
	return nil
}

// matches evaluates equality filters. "author.name" follows the relation to the author document.
func (m *MemStore) matches(rec *memRecord, filters map[string]string) bool {
	for key, want := range filters {
		if m.lookup(rec, strings.Split(key, ".")) != want {
			return false
		}
	}
	return true
}

func (m *MemStore) lookup(rec *memRecord, parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	head := parts[0]
	if head == "documentId" {
		return rec.documentID
	}
	value, ok := rec.fields[head]
	if !ok || value == nil {
		return ""
	}
	if len(parts) == 1 {
		return scalar(value)
	}
	if target, ok := m.Relations[head]; ok {
		related := m.find(target, scalar(value))
		if related == nil {
			return ""
		}
		return m.lookup(related, parts[1:])
	}
	if nested, ok := value.(map[string]any); ok {
		return m.lookup(&memRecord{fields: nested}, parts[1:])
	}
	return ""
}

// render produces the wire shape: relations are omitted unless populated, and fields
// are restricted when the query names them.
func (m *MemStore) render(rec *memRecord, q store.Query) models.RemoteEntity {
	populate := make(map[string]bool, len(q.Populate))
	for _, p := range q.Populate {
		populate[p] = true
	}
	wanted := make(map[string]bool, len(q.Fields))
	for _, f := range q.Fields {
		wanted[f] = true
	}

	out := make(map[string]any, len(rec.fields)+2)
	keys := make([]string, 0, len(rec.fields))
	for k := range rec.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := rec.fields[k]
		if target, isRel := m.Relations[k]; isRel {
			if !populate[k] {
				continue
			}
			if related := m.find(target, scalar(v)); related != nil {
				relOut := copyFields(related.fields)
				relOut["documentId"] = related.documentID
				out[k] = relOut
			} else {
				out[k] = nil
			}
			continue
		}
		if len(wanted) > 0 && !wanted[k] {
			continue
		}
		out[k] = v
	}
	if rec.published {
		if _, ok := out["publishedAt"]; !ok {
			out["publishedAt"] = "2024-01-01T00:00:00.000Z"
		}
	} else {
		out["publishedAt"] = nil
	}
	if rec.documentID != "" {
		out["documentId"] = rec.documentID
	}

	data, _ := json.Marshal(out)
	var entity models.RemoteEntity
	_ = json.Unmarshal(data, &entity)
	return entity
}

func notFound(op, collection string) error {
	return &store.Error{Op: op, Collection: collection, StatusCode: http.StatusNotFound, Message: "NotFoundError: Not Found"}
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
