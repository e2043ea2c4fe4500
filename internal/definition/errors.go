package definition

import (
	"errors"
	"fmt"
)

var (
	// ErrEntityNotFound means no entry in the definition matches the node.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrAmbiguous means several entries match the node equally well.
	// It is only reported by strict mappers.
	ErrAmbiguous = errors.New("entity is ambiguous")
)

// ResolveError reports a failed lookup of a node's entry.
type ResolveError struct {
	Path string
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Path, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }
