package model

import (
	"fmt"
	"strings"

	"github.com/agentic-research/viewdef/api"
)

// Issue lists the failures of one property, content or slot of a node.
type Issue struct {
	Key      string   `json:"key"`
	Messages []string `json:"messages"`
}

// Report is the validation result of one node and its failing descendants.
// A nil *Report means the subtree is valid.
type Report struct {
	Tag      string    `json:"tag"`
	Path     string    `json:"path"`
	Issues   []Issue   `json:"issues,omitempty"`
	Children []*Report `json:"children,omitempty"`
}

// Validate checks properties in declaration order, content when it is
// used, required slots and then every child. It does not mutate the tree.
func (n *Node) Validate() *Report {
	r := &Report{Tag: n.tag, Path: n.PathString()}
	for _, p := range n.props {
		if errs := p.Errors(); len(errs) > 0 {
			r.Issues = append(r.Issues, Issue{Key: p.Name, Messages: errs})
		}
	}
	if n.IsContentUsed() {
		if errs := n.content.Errors(); len(errs) > 0 {
			r.Issues = append(r.Issues, Issue{Key: api.ContentKey, Messages: errs})
		}
	}
	for _, s := range n.slots {
		if !s.Required || n.HasChildWithTag(s.Tag) {
			continue
		}
		msg := fmt.Sprintf("required %s node", s.Tag)
		if s.HasMany {
			msg = fmt.Sprintf("required at least one %s node", s.Tag)
		}
		r.Issues = append(r.Issues, Issue{Key: s.Tag, Messages: []string{msg}})
	}
	for _, c := range n.Children() {
		if cr := c.Validate(); cr != nil {
			r.Children = append(r.Children, cr)
		}
	}
	if len(r.Issues) == 0 && len(r.Children) == 0 {
		return nil
	}
	return r
}

// Count returns the number of issues in the report and its children.
func (r *Report) Count() int {
	if r == nil {
		return 0
	}
	c := len(r.Issues)
	for _, ch := range r.Children {
		c += ch.Count()
	}
	return c
}

// Lines flattens the report into "path key: message" lines in tree order.
func (r *Report) Lines() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, is := range r.Issues {
		for _, m := range is.Messages {
			out = append(out, fmt.Sprintf("%s %s: %s", r.Path, is.Key, m))
		}
	}
	for _, ch := range r.Children {
		out = append(out, ch.Lines()...)
	}
	return out
}

func (r *Report) Error() string {
	return fmt.Sprintf("%s: %d validation issues\n%s", r.Path, r.Count(), strings.Join(r.Lines(), "\n"))
}

// Err returns r as an error, or a nil interface when r is nil.
func (r *Report) Err() error {
	if r == nil {
		return nil
	}
	return r
}
