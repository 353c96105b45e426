package orchestrator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ScanDocument is a JSON object whose top-level keys keep their original
// order. Values are carried as raw JSON and written back untouched.
type ScanDocument struct {
	keys   []string
	values map[string]json.RawMessage
}

func (d *ScanDocument) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return errors.New("scan result is not a JSON object")
	}

	d.keys = nil
	d.values = make(map[string]json.RawMessage)
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return err
		}
		key, ok := token.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", token)
		}
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			return fmt.Errorf("value of %q: %w", key, err)
		}
		if _, exists := d.values[key]; !exists {
			d.keys = append(d.keys, key)
		}
		d.values[key] = raw
	}
	if _, err := decoder.Token(); err != nil {
		return err
	}
	return nil
}

func (d ScanDocument) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')
		buf.Write(d.values[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Set replaces the value of key in place, or appends it as the last key.
func (d *ScanDocument) Set(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if d.values == nil {
		d.values = make(map[string]json.RawMessage)
	}
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = raw
	return nil
}

func (d *ScanDocument) Get(key string) (json.RawMessage, bool) {
	raw, ok := d.values[key]
	return raw, ok
}

func (d *ScanDocument) Keys() []string {
	return append([]string(nil), d.keys...)
}

// FileCount returns the length of the "files" array, or 0.
func (d *ScanDocument) FileCount() int {
	var files []json.RawMessage
	if raw, ok := d.values["files"]; ok && json.Unmarshal(raw, &files) == nil {
		return len(files)
	}
	return 0
}
