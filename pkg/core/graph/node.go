// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"

	"github.com/binah-ml/binah/pkg/core/shapes"
	"github.com/binah-ml/binah/pkg/core/tensors"
	"github.com/gomlx/exceptions"
)

// Node is a handle to one node (the result of an operation) in a Graph, and can be used as an operand
// to further operations (see Add, Sub, Mul and Div).
//
// It is a lightweight value: it holds a reference to the graph, the node id and its shape. Many handles
// may refer to the same graph, and the graph is kept alive while any of them is.
//
// Using a Node after its Graph was finalized (see Graph.Finalize) panics.
type Node struct {
	inner *graphInner
	id    NodeId
	shape shapes.Shape
}

// checkedInner returns the graph of the node, and panics if the node is nil or the graph was finalized.
func (n *Node) checkedInner() *graphInner {
	if n == nil || n.inner == nil {
		exceptions.Panicf("nil graph.Node")
	}
	n.inner.assertValid()
	return n.inner
}

// Id of the node within its graph. It is the key used for the inputs and outputs of Executable.Execute.
func (n *Node) Id() NodeId { return n.id }

// Shape of the node's value.
func (n *Node) Shape() shapes.Shape { return n.shape }

// Graph the node belongs to. It panics if the graph was finalized.
func (n *Node) Graph() *Graph {
	return n.checkedInner().owner
}

// OpType returns the operation of the node. It panics if the graph was finalized.
func (n *Node) OpType() OpType {
	return n.checkedInner().node(n.id).op
}

// Operands returns the ids of the operands of the node (lhs and rhs for binary operations), or nil for leaf nodes.
// It panics if the graph was finalized.
func (n *Node) Operands() []NodeId {
	return append([]NodeId(nil), n.checkedInner().node(n.id).operands...)
}

// Value returns the value of a constant or variable node, or nil for other nodes.
// It panics if the graph was finalized.
func (n *Node) Value() *tensors.Storage {
	return n.checkedInner().storages[n.id]
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	if n == nil {
		return "Node(nil)"
	}
	if n.inner == nil || n.inner.finalized {
		return fmt.Sprintf("#%d %s (graph finalized)", n.id, n.shape)
	}
	return fmt.Sprintf("#%d %s", n.id, n.inner.node(n.id))
}
