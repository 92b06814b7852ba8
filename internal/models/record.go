package models

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/desertthunder/spotistats/internal/shared"
)

// Record is a decoded JSON object from the API.
type Record map[string]any

// Has reports whether key is present, even when its value is null.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Get returns the raw value for key or [shared.ErrDataShape] when it is absent.
func (r Record) Get(key string) (any, error) {
	v, ok := r[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing key %q", shared.ErrDataShape, key)
	}
	return v, nil
}

// String returns the string value for key.
func (r Record) String(key string) (string, error) {
	v, err := r.Get(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: key %q is %T, want string", shared.ErrDataShape, key, v)
	}
	return s, nil
}

// Int returns the integer value for key. JSON numbers decode as float64, so any
// integral numeric representation is accepted.
func (r Record) Int(key string) (int, error) {
	v, err := r.Get(key)
	if err != nil {
		return 0, err
	}
	n, ok := toInt(v)
	if !ok {
		return 0, fmt.Errorf("%w: key %q is %T, want integer", shared.ErrDataShape, key, v)
	}
	return n, nil
}

// Bool returns the boolean value for key.
func (r Record) Bool(key string) (bool, error) {
	v, err := r.Get(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: key %q is %T, want bool", shared.ErrDataShape, key, v)
	}
	return b, nil
}

// Record returns the nested object for key. A null value is a shape error.
func (r Record) Record(key string) (Record, error) {
	v, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	nested, ok := AsRecord(v)
	if !ok {
		return nil, fmt.Errorf("%w: key %q is %T, want object", shared.ErrDataShape, key, v)
	}
	return nested, nil
}

// Records returns the list of objects for key.
func (r Record) Records(key string) ([]Record, error) {
	v, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	list, ok := AsRecords(v)
	if !ok {
		return nil, fmt.Errorf("%w: key %q is %T, want list of objects", shared.ErrDataShape, key, v)
	}
	return list, nil
}

// Strings returns the list of strings for key. A null list is returned as empty.
func (r Record) Strings(key string) ([]string, error) {
	v, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	switch list := v.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return append([]string(nil), list...), nil
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: key %q[%d] is %T, want string", shared.ErrDataShape, key, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: key %q is %T, want list of strings", shared.ErrDataShape, key, v)
	}
}

// First returns element 0 of the object list at key. An empty list is a shape
// error: callers rely on a primary entry being present.
func (r Record) First(key string) (Record, error) {
	list, err := r.Records(key)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: key %q is an empty list", shared.ErrDataShape, key)
	}
	return list[0], nil
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// AsRecord converts a decoded JSON value into a [Record].
func AsRecord(v any) (Record, bool) {
	switch obj := v.(type) {
	case Record:
		return obj, obj != nil
	case map[string]any:
		return Record(obj), obj != nil
	default:
		return nil, false
	}
}

// AsRecords converts a decoded JSON list into a slice of [Record].
func AsRecords(v any) ([]Record, bool) {
	switch list := v.(type) {
	case []Record:
		return list, true
	case []map[string]any:
		out := make([]Record, len(list))
		for i, item := range list {
			out[i] = Record(item)
		}
		return out, true
	case []any:
		out := make([]Record, 0, len(list))
		for _, item := range list {
			rec, ok := AsRecord(item)
			if !ok {
				return nil, false
			}
			out = append(out, rec)
		}
		return out, true
	default:
		return nil, false
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// DecodeRecord parses a JSON object.
func DecodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDataShape, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: expected JSON object, got null", shared.ErrDataShape)
	}
	return rec, nil
}
