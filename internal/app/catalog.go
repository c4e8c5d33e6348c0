package app

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseCatalog decodes a YAML or JSON catalog file. The file is either a list of
// hotel records or a document with a top-level "hotels" list.
func ParseCatalog(data []byte) ([]map[string]any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	var raw []any
	switch v := doc.(type) {
	case []any:
		raw = v
	case map[string]any:
		list, ok := v["hotels"].([]any)
		if !ok {
			return nil, fmt.Errorf("parse catalog: no hotels list")
		}
		raw = list
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("parse catalog: unexpected top-level %T", doc)
	}

	out := make([]map[string]any, 0, len(raw))
	for i, it := range raw {
		rec, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("parse catalog: record %d is %T, want a mapping", i, it)
		}
		out = append(out, rec)
	}
	return out, nil
}
