// Package linter reports style problems in YAML definition documents that
// decode fine but are probably not what the author meant.
package linter

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/yaml"
)

type Diagnostic struct {
	Message string
	Line    uint32
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s", d.Line+1, d.Message)
}

const mappingQuery = `
	[
		(block_mapping) @map
		(flow_mapping) @map
	]
`

// Lint checks a YAML definition. Rules:
//   - a key without a value loads as an empty node
//   - a key repeated in one mapping hides the earlier entries
//
// Syntax errors are not reported here; see ingest.Diagnose.
func Lint(ctx context.Context, content []byte) ([]Diagnostic, error) {
	lang := yaml.GetLanguage()
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}

	q, err := sitter.NewQuery([]byte(mappingQuery), lang)
	if err != nil {
		return nil, fmt.Errorf("compile lint query: %w", err)
	}
	qc := sitter.NewQueryCursor()
	qc.Exec(q, tree.RootNode())

	var diags []Diagnostic
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			diags = append(diags, lintMapping(c.Node, content)...)
		}
	}
	return diags, nil
}

func lintMapping(mapping *sitter.Node, content []byte) []Diagnostic {
	var diags []Diagnostic
	seen := make(map[string]uint32)
	count := int(mapping.NamedChildCount())
	for i := 0; i < count; i++ {
		pair := mapping.NamedChild(i)
		if pair.Type() != "block_mapping_pair" && pair.Type() != "flow_pair" {
			continue
		}
		keyNode := pair.ChildByFieldName("key")
		if keyNode == nil {
			continue
		}
		key := strings.Trim(keyNode.Content(content), `"'`)
		line := keyNode.StartPoint().Row

		if first, dup := seen[key]; dup {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("duplicate key %q, first defined on line %d", key, first+1),
				Line:    line,
			})
		} else {
			seen[key] = line
		}

		if pair.ChildByFieldName("value") == nil {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("key %q has no value and loads as an empty node", key),
				Line:    line,
			})
		}
	}
	return diags
}
