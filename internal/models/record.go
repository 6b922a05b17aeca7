package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is one entity of a Collection as it is stored in every store.
// On the wire it is a flat JSON object: the payload fields plus "id" and "lastUpdated".
type Record struct {
	ID          string          // ID stable across Local, Backup and Remote
	Payload     json.RawMessage // Payload the entity fields without id and lastUpdated
	LastUpdated int64           // LastUpdated unix milliseconds of the last successful write
}

// MarshalJSON flattens the record back into one JSON object.
func (r Record) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage)
	if len(r.Payload) > 0 && !IsNullJSON(r.Payload) {
		if err := json.Unmarshal(r.Payload, &fields); err != nil {
			return nil, fmt.Errorf("record %q: payload is not an object: %w", r.ID, err)
		}
	}

	id, err := json.Marshal(r.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record id: %w", err)
	}
	fields["id"] = id
	fields["lastUpdated"] = json.RawMessage(strconv.FormatInt(r.LastUpdated, 10))

	return json.Marshal(fields)
}

// UnmarshalJSON accepts string or numeric ids; numeric ids are kept as their decimal text.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("record is not a JSON object: %w", err)
	}

	id, err := decodeID(fields["id"])
	if err != nil {
		return err
	}

	var lastUpdated int64
	if raw, ok := fields["lastUpdated"]; ok && !IsNullJSON(raw) {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("record %q: invalid lastUpdated: %w", id, err)
		}
		if lastUpdated, err = n.Int64(); err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return fmt.Errorf("record %q: invalid lastUpdated: %w", id, err)
			}
			lastUpdated = int64(f)
		}
	}

	// id и lastUpdated живут в полях Record, в Payload только данные
	delete(fields, "id")
	delete(fields, "lastUpdated")

	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("record %q: failed to encode payload: %w", id, err)
	}

	r.ID = id
	r.LastUpdated = lastUpdated
	r.Payload = payload

	return nil
}

// NewRecord converts a typed entity (Product, Order, ...) into a Record.
func NewRecord(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal entity: %w", err)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, err
	}

	return r, nil
}

// Decode unpacks the record into a typed entity.
func (r Record) Decode(v any) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode record %q: %w", r.ID, err)
	}

	return nil
}

// Stamped returns a copy of the record carrying the given write timestamp.
func (r Record) Stamped(ts int64) Record {
	r.LastUpdated = ts
	return r
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	r.Payload = append(json.RawMessage(nil), r.Payload...)
	return r
}

// IndexOf returns the position of id in records or -1.
func IndexOf(records []Record, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}

// IsNullJSON reports whether raw is absent or the JSON literal null.
func IsNullJSON(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodeID(raw json.RawMessage) (string, error) {
	if IsNullJSON(raw) {
		return "", nil
	}

	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("invalid record id: %w", err)
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", fmt.Errorf("invalid record id: %w", err)
	}

	return n.String(), nil
}
