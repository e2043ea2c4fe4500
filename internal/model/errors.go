package model

import (
	"errors"
	"fmt"
)

var (
	// ErrVetoed is returned when a before-observer cancels a mutation.
	ErrVetoed = errors.New("mutation vetoed")
	// ErrUnknownProperty is returned by SetProperty for undeclared names.
	ErrUnknownProperty = errors.New("unknown property")
	// ErrNoContent is returned when a node declares no content property.
	ErrNoContent = errors.New("node holds no content")
	// ErrNotChild is returned when a reference node is not a child of the receiver.
	ErrNotChild = errors.New("node is not a child")
	// ErrSameNode is returned by InsertBefore when node and reference are the same.
	ErrSameNode = errors.New("node and reference node are the same")
	// ErrCycle is returned when a node would become its own ancestor.
	ErrCycle = errors.New("node cannot be attached under itself")
	// ErrForeignNode is returned when nodes from different trees are mixed.
	ErrForeignNode = errors.New("node belongs to another tree")
	// ErrDestroyed is returned for operations on destroyed nodes.
	ErrDestroyed = errors.New("node destroyed")
	// ErrMalformed marks invalid construction input.
	ErrMalformed = errors.New("malformed node configuration")
)

// AdmissionKind classifies a structural rejection.
type AdmissionKind int

const (
	// NotPermitted means the parent declares no slot for the tag.
	NotPermitted AdmissionKind = iota + 1
	// OnlyOne means the slot is single-valued and already occupied.
	OnlyOne
	// NotUnique means a sibling already holds the same unique property value.
	NotUnique
)

func (k AdmissionKind) String() string {
	switch k {
	case NotPermitted:
		return "not-permitted"
	case OnlyOne:
		return "only-one"
	case NotUnique:
		return "not-unique"
	default:
		return "unknown"
	}
}

// AdmissionError reports a schema violation when attaching a child.
type AdmissionError struct {
	Kind     AdmissionKind
	Parent   string // parent tag
	Tag      string // rejected child tag
	Property string // unique property, NotUnique only
	Value    any
}

func (e *AdmissionError) Error() string {
	switch e.Kind {
	case NotPermitted:
		return fmt.Sprintf("%s cannot contain %s child node", e.Parent, e.Tag)
	case OnlyOne:
		return fmt.Sprintf("%s can contain only one %s child node", e.Parent, e.Tag)
	case NotUnique:
		return fmt.Sprintf("%s property %s should be unique (%v)", e.Tag, e.Property, e.Value)
	default:
		return fmt.Sprintf("%s rejected under %s", e.Tag, e.Parent)
	}
}

// PropertyError reports a value rejected by a property's type rules.
type PropertyError struct {
	Name    string
	Value   any
	Reasons []string
}

func (e *PropertyError) Error() string {
	if len(e.Reasons) == 0 {
		return fmt.Sprintf("property %s: invalid value %v", e.Name, e.Value)
	}
	return fmt.Sprintf("property %s: %s", e.Name, e.Reasons[0])
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
