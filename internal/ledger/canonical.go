package ledger

import (
	"encoding/json"
	"sort"
)

// canonicalJSON renders v with lexicographically sorted object keys and no
// insignificant whitespace, matching spec §4.9's hash-input format. Times
// embedded in v must already be RFC-3339 strings (time.Time's default JSON
// marshaling satisfies this).
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return marshalCanonical(generic)
}

func marshalCanonical(v any) ([]byte, error) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				out = append(out, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			out = append(out, kb...)
			out = append(out, ':')
			vb, err := marshalCanonical(t[k])
			if err != nil {
				return nil, err
			}
			out = append(out, vb...)
		}
		out = append(out, '}')
		return out, nil

	case []any:
		out := []byte{'['}
		for i, elem := range t {
			if i > 0 {
				out = append(out, ',')
			}
			eb, err := marshalCanonical(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, eb...)
		}
		out = append(out, ']')
		return out, nil

	default:
		return json.Marshal(t)
	}
}
