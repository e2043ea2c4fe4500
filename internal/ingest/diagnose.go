package ingest

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/yaml"
)

// SyntaxError locates a syntax problem in a definition document.
type SyntaxError struct {
	FilePath string
	Line     uint32 // 0-indexed
	Column   uint32 // 0-indexed
	Message  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.FilePath, e.Line+1, e.Column+1, e.Message)
}

// Diagnose returns every syntax error tree-sitter finds in a YAML document.
// JSON documents are checked by decoding them and report at most one error
// without a position. A nil result means the document parses.
func Diagnose(ctx context.Context, content []byte, filePath string, f Format) ([]SyntaxError, error) {
	switch f {
	case FormatJSON:
		if _, err := Decode(content, FormatJSON); err != nil {
			return []SyntaxError{{FilePath: filePath, Message: err.Error()}}, nil
		}
		return nil, nil
	case FormatYAML:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(yaml.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed for %s: %w", filePath, err)
	}
	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("tree-sitter returned nil root for %s", filePath)
	}
	if !root.HasError() {
		return nil, nil
	}
	var errs []SyntaxError
	collectErrors(root, filePath, &errs)
	if len(errs) == 0 {
		errs = append(errs, SyntaxError{FilePath: filePath, Message: "document contains errors"})
	}
	return errs, nil
}

// collectErrors gathers ERROR and MISSING nodes without descending into them.
func collectErrors(node *sitter.Node, filePath string, errs *[]SyntaxError) {
	if node.IsError() || node.IsMissing() {
		msg := "syntax error"
		if node.IsMissing() {
			msg = fmt.Sprintf("missing %s", node.Type())
		}
		*errs = append(*errs, SyntaxError{
			FilePath: filePath,
			Line:     uint32(node.StartPoint().Row),
			Column:   uint32(node.StartPoint().Column),
			Message:  msg,
		})
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.HasError() || child.IsError() || child.IsMissing() {
			collectErrors(child, filePath, errs)
		}
	}
}
