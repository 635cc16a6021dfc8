package graph

import "errors"

var (
	// ErrCycle is returned when the dependency graph contains a cycle.
	ErrCycle = errors.New("dependency cycle detected")

	// ErrUnknownNode is returned when an edge references a node that was
	// never declared as a vertex.
	ErrUnknownNode = errors.New("unknown graph node")
)
