// Package catalog provides the node variants and structure templates of
// view documents. A default catalog is embedded; others are read from YAML.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/agentic-research/viewdef/api"
	"github.com/agentic-research/viewdef/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrInvalid marks a catalog that cannot be used.
var ErrInvalid = errors.New("invalid catalog")

// Catalog resolves variants by model type and tag and templates by name or
// document type. It implements model.Resolver and model.TemplateProvider.
type Catalog struct {
	spec      api.Catalog
	registry  *model.Registry
	templates map[string]api.TemplateSpec
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a YAML catalog from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var spec api.Catalog
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return New(spec)
}

// New checks spec and builds the lookup tables.
func New(spec api.Catalog) (*Catalog, error) {
	c := &Catalog{
		spec:      spec,
		registry:  model.NewRegistry(spec.CommonOnly...),
		templates: make(map[string]api.TemplateSpec, 2*len(spec.Templates)),
	}
	if err := c.register(model.WidgetScope, spec.Widget); err != nil {
		return nil, err
	}
	if err := c.register("", spec.Common); err != nil {
		return nil, err
	}
	for _, mt := range sortedTypes(spec.Types) {
		if mt == "" || mt == model.WidgetScope {
			return nil, fmt.Errorf("%w: reserved model type %q", ErrInvalid, mt)
		}
		if err := c.register(mt, spec.Types[mt]); err != nil {
			return nil, err
		}
	}
	for _, t := range spec.Templates {
		if t.Name == "" {
			return nil, fmt.Errorf("%w: template without name", ErrInvalid)
		}
		if _, dup := c.templates[t.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate template %q", ErrInvalid, t.Name)
		}
		if err := checkSlots(t.Name, t.Structure); err != nil {
			return nil, err
		}
		c.templates[t.Name] = t
		if t.Type != "" {
			if _, taken := c.templates[t.Type]; !taken {
				c.templates[t.Type] = t
			}
		}
	}
	return c, nil
}

func (c *Catalog) register(scope string, variants []api.VariantSpec) error {
	seen := make(map[string]bool, len(variants))
	for _, v := range variants {
		if v.Tag == "" {
			return fmt.Errorf("%w: variant without tag in scope %q", ErrInvalid, scope)
		}
		if seen[v.Tag] {
			return fmt.Errorf("%w: duplicate variant %q in scope %q", ErrInvalid, v.Tag, scope)
		}
		seen[v.Tag] = true
		if err := checkSlots(v.Tag, v.Slots); err != nil {
			return err
		}
		for _, p := range v.Properties {
			if p.Name == "" {
				return fmt.Errorf("%w: %s: property without name", ErrInvalid, v.Tag)
			}
			for _, slots := range p.Reconfigure {
				if err := checkSlots(v.Tag, slots); err != nil {
					return err
				}
			}
		}
		c.registry.Register(scope, v)
	}
	return nil
}

func checkSlots(owner string, slots []api.Slot) error {
	seen := make(map[string]bool, len(slots))
	for _, s := range slots {
		if s.Tag == "" || seen[s.Tag] {
			return fmt.Errorf("%w: %s: bad slot %q", ErrInvalid, owner, s.Tag)
		}
		seen[s.Tag] = true
	}
	return nil
}

// Resolve implements model.Resolver.
func (c *Catalog) Resolve(modelType, tag string) api.VariantSpec {
	return c.registry.Resolve(modelType, tag)
}

// Template implements model.TemplateProvider. name is a template name or a
// document type.
func (c *Catalog) Template(name string) (api.TemplateSpec, bool) {
	t, ok := c.templates[name]
	return t, ok
}

// Options returns the tree options wiring the catalog in.
func (c *Catalog) Options() []model.Option {
	return []model.Option{model.WithResolver(c), model.WithTemplates(c)}
}

// Spec returns the decoded catalog.
func (c *Catalog) Spec() api.Catalog { return c.spec }

// DocumentTypes lists the document types that have a template.
func (c *Catalog) DocumentTypes() []string {
	var out []string
	for _, t := range c.spec.Templates {
		if t.Type != "" && !slices.Contains(out, t.Type) {
			out = append(out, t.Type)
		}
	}
	slices.Sort(out)
	return out
}

// Tags lists the tags registered for a scope: a model type, model.WidgetScope
// or "" for the common scope.
func (c *Catalog) Tags(scope string) []string {
	return c.registry.Tags(scope)
}

func sortedTypes(m map[string][]api.VariantSpec) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
