package models

import (
	"encoding/json"
	"fmt"

	"github.com/eknihyzdarma/catalog-migrator/pkg/jsonutil"
)

// RemoteEntity is a record as returned by the document store.
// Fields holds every attribute of the flattened record, including populated relations.
type RemoteEntity struct {
	DocumentID string
	Published  bool
	Fields     map[string]json.RawMessage
}

// UnmarshalJSON decodes a flattened store record ({"documentId": ..., "publishedAt": ..., ...}).
func (e *RemoteEntity) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("failed to decode remote entity: %w", err)
	}
	e.Fields = fields
	e.DocumentID = jsonutil.FlexibleStringValue(fields["documentId"])
	e.Published = jsonutil.FlexibleStringValue(fields["publishedAt"]) != ""
	return nil
}

// MarshalJSON re-encodes the flattened record.
func (e RemoteEntity) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(e.Fields)+1)
	for k, v := range e.Fields {
		out[k] = v
	}
	if e.DocumentID != "" {
		id, _ := json.Marshal(e.DocumentID)
		out["documentId"] = id
	}
	return json.Marshal(out)
}

// String returns a scalar attribute as text ("" when absent or null).
func (e *RemoteEntity) String(field string) string {
	return jsonutil.FlexibleStringValue(e.Fields[field])
}

// Strings returns an array attribute as text values.
func (e *RemoteEntity) Strings(field string) []string {
	return jsonutil.FlexibleStringSlice(e.Fields[field])
}

// Raw returns the undecoded attribute, nil when absent.
func (e *RemoteEntity) Raw(field string) json.RawMessage {
	return e.Fields[field]
}

// Path returns the scalar at a dotted path inside an attribute ("provider_metadata.resource_type").
func (e *RemoteEntity) Path(path string) string {
	data, err := json.Marshal(e.Fields)
	if err != nil {
		return ""
	}
	return jsonutil.FlexibleStringValue(jsonutil.ObjectField(data, path))
}

// Relation returns a populated to-one relation, false when it is absent or null.
func (e *RemoteEntity) Relation(field string) (*RemoteEntity, bool) {
	raw := e.Fields[field]
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	var rel RemoteEntity
	if err := json.Unmarshal(raw, &rel); err != nil {
		return nil, false
	}
	return &rel, true
}
