package definition

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
)

// Query evaluates a JSONPath expression against a definition object.
// Tags containing ':' need the bracket form, e.g. $['i:fields']['i:field'].
func Query(def any, selector string) ([]any, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}
	return x.Get(def), nil
}

// Query evaluates selector against the current definition.
func (m *Mapper) Query(selector string) ([]any, error) {
	return Query(m.Definition(), selector)
}

// Values flattens query results the way attributes are read: maps pass
// through, anything else is wrapped under "value".
func Values(results []any) []map[string]any {
	out := make([]map[string]any, len(results))
	for i, r := range results {
		switch v := r.(type) {
		case map[string]any:
			out[i] = v
		default:
			out[i] = map[string]any{"value": v}
		}
	}
	return out
}
