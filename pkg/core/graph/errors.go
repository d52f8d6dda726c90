// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrCyclicGraph is returned by Graph.Compile when the graph contains a cycle, and hence can't be
	// ordered for execution.
	ErrCyclicGraph = errors.New("graph contains a cycle")

	// ErrInvalidOperation is returned by Executable.Execute when a node can't be computed: wrong number
	// of operands, an operand with no value, or shapes that don't match.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrMissingInput is matched (with errors.Is) by the MissingInputError returned by Executable.Execute.
	ErrMissingInput = errors.New("missing input")
)

// MissingInputError is returned by Executable.Execute when no value was given for one of its
// input (Placeholder) nodes.
type MissingInputError struct {
	Node NodeId
}

// Error implements error.
func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing input for placeholder node #%d", e.Node)
}

// Is allows errors.Is(err, ErrMissingInput).
func (e *MissingInputError) Is(target error) bool {
	return target == ErrMissingInput
}
