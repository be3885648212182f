package store

import (
	"encoding/json"
	"fmt"
)

// Encode converts a tagged struct into document data. The "id" key is dropped
// because the id lives outside the data.
func Encode(v interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	delete(data, "id")
	return data, nil
}

// Decode fills v from doc, including its id.
func Decode(doc Document, v interface{}) error {
	data := make(map[string]interface{}, len(doc.Data)+1)
	for k, val := range doc.Data {
		data[k] = val
	}
	data["id"] = doc.ID
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	return nil
}

// DecodeAll decodes every document into a new slice of T.
func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := Decode(d, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// normalize puts a value in the shape encoding/json produces when decoding
// into interface{}, so that comparisons behave the same for every backend.
func normalize(v interface{}) (interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeMap(m map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if err := validateField(k); err != nil {
			return nil, err
		}
		if k == DocumentID {
			return nil, fmt.Errorf("%w: %q is reserved", ErrInvalidField, k)
		}
		n, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
