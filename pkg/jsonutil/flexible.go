package jsonutil

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling stores that return
// numeric ids where strings are expected. Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	// Numbers are decoded as json.Number so large ids keep their precision.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var numVal json.Number
	if err := dec.Decode(&numVal); err == nil {
		return numVal.String()
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		if boolVal {
			return "true"
		}
		return "false"
	}

	return string(raw)
}

// FlexibleStringSlice decodes an array whose elements may be strings or numbers.
// A single scalar is returned as a one-element slice; null/empty yields nil.
func FlexibleStringSlice(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if raw[0] != '[' {
		if s := FlexibleStringValue(raw); s != "" {
			return []string{s}
		}
		return nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		if s := FlexibleStringValue(e); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ObjectField returns the raw value stored under a dotted path ("author.name") in a JSON
// object, or nil when any segment is missing or not an object.
func ObjectField(raw json.RawMessage, path string) json.RawMessage {
	cur := raw
	for _, key := range strings.Split(path, ".") {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(cur, &obj); err != nil {
			return nil
		}
		next, ok := obj[key]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}
