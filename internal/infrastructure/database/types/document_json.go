package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"maps"
)

// Document is a schemaless document body stored as a JSON object.
type Document map[string]any

// Scan implements sql.Scanner for Document.
func (d *Document) Scan(src any) error {
	if src == nil {
		*d = Document{}
		return nil
	}
	var raw []byte
	switch data := src.(type) {
	case []byte:
		raw = data
	case string:
		raw = []byte(data)
	default:
		return fmt.Errorf("Document: unsupported src type %T", src)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		*d = Document{}
		return nil
	}
	out := Document{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("Document: decode: %w", err)
	}
	*d = out
	return nil
}

// Value implements driver.Valuer for Document.
func (d Document) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Merge returns a copy of d with fields shallowly overlaid.
func (d Document) Merge(fields map[string]any) Document {
	out := make(Document, len(d)+len(fields))
	maps.Copy(out, d)
	maps.Copy(out, fields)
	return out
}

// Normalize round-trips d through JSON so values have the same shapes a reader sees.
func (d Document) Normalize() (Document, error) {
	v, err := d.Value()
	if err != nil {
		return nil, err
	}
	var out Document
	if err := out.Scan(v); err != nil {
		return nil, err
	}
	return out, nil
}
