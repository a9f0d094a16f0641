package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Walk visits every object in a decoded JSON tree depth-first, parents
// before children. Object keys are visited in sorted order so the traversal
// is deterministic.
func Walk(node any, visit func(obj map[string]any)) {
	switch v := node.(type) {
	case map[string]any:
		visit(v)
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			Walk(v[k], visit)
		}
	case []any:
		for _, item := range v {
			Walk(item, visit)
		}
	}
}

// firstString returns the first key of obj holding a non-empty scalar,
// rendered as a string.
func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := scalarString(obj[k]); s != "" {
			return s
		}
	}
	return ""
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	case bool:
		if t {
			return "true"
		}
	}
	return ""
}

// decodeJSON decodes body keeping numbers as json.Number so long ids
// survive intact.
func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// serialize re-encodes a decoded tree without HTML escaping so that
// "adv=" style tokens remain searchable as plain text.
func serialize(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return buf.String()
}
