package ingest

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/agentic-research/viewdef/api"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed definition.schema.json
var definitionSchema []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(definitionSchema))
	})
	return schema, schemaErr
}

// ShapeIssue is one structural problem of a definition object.
type ShapeIssue struct {
	Field       string
	Description string
}

// ShapeError lists the problems found by CheckShape.
type ShapeError struct {
	Issues []ShapeIssue
}

func (e *ShapeError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = fmt.Sprintf("%s: %s", is.Field, is.Description)
	}
	return "definition shape: " + strings.Join(parts, "; ")
}

// CheckShape validates the nesting rules of a definition object: attributes
// are maps of scalars, content is a scalar and every other key holds an
// entry or a non-empty sequence of entries. It knows nothing about tags.
func CheckShape(def api.Definition) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("load definition schema: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewGoLoader(def))
	if err != nil {
		return fmt.Errorf("validate definition: %w", err)
	}
	if result.Valid() {
		return nil
	}
	se := &ShapeError{}
	for _, re := range result.Errors() {
		se.Issues = append(se.Issues, ShapeIssue{Field: re.Field(), Description: re.Description()})
	}
	return se
}
