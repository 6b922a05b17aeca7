package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// EncodeSnapshot serialises a whole collection slot: a JSON array, or for
// singleton collections one object (null when empty).
func EncodeSnapshot(col Collection, records []Record) (json.RawMessage, error) {
	if records == nil {
		records = []Record{}
	}

	var (
		data []byte
		err  error
	)
	switch {
	case col.Singleton && len(records) == 0:
		data = []byte("null")
	case col.Singleton:
		data, err = json.Marshal(records[len(records)-1])
	default:
		data, err = json.Marshal(records)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s snapshot: %w", col.Name, err)
	}

	return data, nil
}

// DecodeSnapshot parses a collection slot or a backup push.
// Accepted shapes: null, an array of records, or an object. For a singleton an
// object is the record itself; otherwise it is a map of push keys to records,
// converted to an array ordered by key. Records without an id take their key.
func DecodeSnapshot(col Collection, raw []byte) ([]Record, error) {
	if IsNullJSON(raw) {
		return []Record{}, nil
	}

	trimmed := bytes.TrimSpace(raw)

	switch trimmed[0] {
	case '[':
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("failed to decode %s snapshot: %w", col.Name, err)
		}
		if records == nil {
			records = []Record{}
		}
		return records, nil

	case '{':
		if col.Singleton {
			var r Record
			if err := json.Unmarshal(trimmed, &r); err != nil {
				return nil, fmt.Errorf("failed to decode %s snapshot: %w", col.Name, err)
			}
			if r.ID == "" {
				r.ID = col.Name
			}
			return []Record{r}, nil
		}
		return decodeKeyed(col, trimmed)

	default:
		return nil, fmt.Errorf("failed to decode %s snapshot: unexpected JSON %q", col.Name, trimmed[:1])
	}
}

func decodeKeyed(col Collection, data []byte) ([]Record, error) {
	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(data, &keyed); err != nil {
		return nil, fmt.Errorf("failed to decode %s snapshot: %w", col.Name, err)
	}

	keys := make([]string, 0, len(keyed))
	for k := range keyed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]Record, 0, len(keys))
	for _, k := range keys {
		if IsNullJSON(keyed[k]) {
			continue
		}
		var r Record
		if err := json.Unmarshal(keyed[k], &r); err != nil {
			return nil, fmt.Errorf("failed to decode %s record %q: %w", col.Name, k, err)
		}
		if r.ID == "" {
			r.ID = k
		}
		records = append(records, r)
	}

	return records, nil
}
