package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrFrozen is returned when a frozen graph is modified.
	ErrFrozen = errors.New("graph is frozen")

	// ErrInvalidName means a node name is empty or not an identifier.
	ErrInvalidName = errors.New("invalid node name")

	// ErrDuplicateNode means two nodes share a name.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrNoTask means a node has no task spec attached.
	ErrNoTask = errors.New("node has no task")

	// ErrUnknownNode means an edge references a node that is not in the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrSelfEdge means an edge connects a node to itself.
	ErrSelfEdge = errors.New("self-referential edge")

	// ErrUnknownField means a binding references a field the task does not declare.
	ErrUnknownField = errors.New("unknown field")

	// ErrTypeMismatch means a bound value or producer type cannot convert to the input type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrDoubleBound means a destination field has more than one inbound edge.
	ErrDoubleBound = errors.New("field bound by more than one edge")

	// ErrStaticConflict means a destination field is both an edge target and a static input.
	ErrStaticConflict = errors.New("field bound by both an edge and a static value")

	// ErrCycle means the edges induce a cycle.
	ErrCycle = errors.New("cycle detected")

	// ErrMissingInput means a required input is not bound at all.
	ErrMissingInput = errors.New("required input not bound")

	// ErrAmbiguousInput means an input is bound by more than one of static, edge and iterable.
	ErrAmbiguousInput = errors.New("input bound more than once")

	// ErrEmptySweep means an iterable field has no candidate values.
	ErrEmptySweep = errors.New("iterable has no values")
)

// ValidationError describes one structural defect of a graph.
type ValidationError struct {
	Node    string
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Node != "" && e.Field != "":
		return fmt.Sprintf("node %q field %q: %s", e.Node, e.Field, e.Message)
	case e.Node != "":
		return fmt.Sprintf("node %q: %s", e.Node, e.Message)
	default:
		return e.Message
	}
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newValidationError(node, field string, err error, format string, args ...any) *ValidationError {
	return &ValidationError{
		Node:    node,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}
