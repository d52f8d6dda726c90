// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graph implements a deferred-execution computation graph: one builds a Graph of operations
// over tensors (constants, variables, placeholders and elementwise arithmetic), compiles the part of
// it needed for some target nodes into an Executable, and then executes it with concrete values for
// its placeholders.
//
// The main elements in the package are:
//
//   - Graph owns the nodes and their dependencies. New nodes are created with Constant, Variable,
//     Graph.Placeholder and the binary operations Add, Sub, Mul and Div.
//
//   - Node is a handle to one node in the graph, with a fixed shape known at graph building time.
//
//   - Executable is the result of Graph.Compile: an immutable snapshot of the nodes needed to compute
//     the targets, in topological order, that can be executed many times.
//
// # Error Handling
//
// Building the graph "throws" errors with panic(): using a node of a finalized graph, mixing nodes of
// different graphs, or operating on shapes that can't be broadcast are all bugs in the caller's code.
//
// Compile and Execute return errors (ErrCyclicGraph, ErrMissingInput and ErrInvalidOperation) for
// conditions that depend on the data or topology given.
//
// Kernels with no support for a dtype (Bool, Int128 and Uint128) panic.
//
// # Example
//
//	g := graph.New()
//	x := g.Placeholder(shapes.Make(3, 1))
//	y := graph.Constant(g, []float32{1, 2}, shapes.Make(2))
//	sum := graph.Add(x, y)  // Shape [3, 2].
//	exec := must.M1(g.Compile(sum))
//	outputs, err := exec.Execute(map[graph.NodeId]*tensors.Storage{
//		x.Id(): tensors.FromFlatDataAndDimensions([]float32{10, 20, 30}, 3, 1),
//	})
//	fmt.Println(outputs[sum.Id()])
package graph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/binah-ml/binah/pkg/core/dtypes"
	"github.com/binah-ml/binah/pkg/core/shapes"
	"github.com/binah-ml/binah/pkg/core/tensors"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
)

// Graph holds a computation being built: its nodes, the dependencies among them and the values of
// its constants and variables.
//
// A Graph is not safe for concurrent use: concurrent (or reentrant) mutations panic.
type Graph struct {
	inner *graphInner
}

var (
	muGraphCount sync.Mutex
	graphCount   int
)

// New constructs an empty Graph.
func New() *Graph {
	return NewWithCapacity(0)
}

// NewWithCapacity constructs an empty Graph, reserving space for capacity nodes.
// The capacity is only a hint, the graph grows as needed.
func NewWithCapacity(capacity int) *Graph {
	muGraphCount.Lock()
	name := fmt.Sprintf("graph_#%d", graphCount)
	graphCount++
	muGraphCount.Unlock()

	g := &Graph{inner: newGraphInner(name, max(capacity, 0))}
	g.inner.owner = g
	return g
}

// WithName sets the name of the Graph, used in logs and error messages.
// It returns the graph passed, so configuring methods can be cascaded.
func (g *Graph) WithName(name string) *Graph {
	g.inner.withExclusiveAccess(func() {
		g.inner.name = name
	})
	return g
}

// Name of the Graph.
func (g *Graph) Name() string { return g.inner.name }

// NumNodes returns the number of nodes in the graph.
func (g *Graph) NumNodes() int {
	g.AssertValid()
	return len(g.inner.nodes)
}

// IsValid returns whether the Graph is in a valid state: not nil and not finalized.
func (g *Graph) IsValid() bool {
	return g != nil && g.inner != nil && !g.inner.finalized
}

// AssertValid panics if the graph is nil or if it has already been finalized.
func (g *Graph) AssertValid() {
	if g == nil || g.inner == nil {
		exceptions.Panicf("the Graph is nil")
	}
	g.inner.assertValid()
}

// Finalize frees the nodes and values of the graph.
// The graph and all its nodes are left in an unusable state.
// It is safe to call it more than once. Executables already compiled from the graph are not affected.
func (g *Graph) Finalize() {
	if !g.IsValid() {
		return
	}
	g.inner.withExclusiveAccess(func() {
		g.inner.finalize()
	})
}

// newNode returns a handle for the node id of g.
func (g *Graph) newNode(id NodeId) *Node {
	return &Node{inner: g.inner, id: id, shape: g.inner.nodes[id].shape}
}

// Node returns a handle to the node with the given id. It panics if there is no such node.
func (g *Graph) Node(id NodeId) *Node {
	g.AssertValid()
	g.inner.node(id)
	return g.newNode(id)
}

// Constant creates a node holding a copy of data, with the given shape.
//
// It panics if len(data) doesn't match shape.Size().
func Constant[T dtypes.Supported](g *Graph, data []T, shape shapes.Shape) *Node {
	return g.ConstantFromStorage(tensors.FromFlatDataAndShape(data, shape))
}

// Variable creates a node holding a copy of data, with the given shape.
// For now, variables are evaluated as constants.
//
// It panics if len(data) doesn't match shape.Size().
func Variable[T dtypes.Supported](g *Graph, data []T, shape shapes.Shape) *Node {
	return g.VariableFromStorage(tensors.FromFlatDataAndShape(data, shape))
}

// ConstantFromStorage creates a constant node with the value of storage.
// Storages are immutable, so storage is not copied.
func (g *Graph) ConstantFromStorage(storage *tensors.Storage) *Node {
	return g.addValue(OpTypeConstant, storage)
}

// VariableFromStorage creates a variable node with the value of storage.
// Storages are immutable, so storage is not copied.
func (g *Graph) VariableFromStorage(storage *tensors.Storage) *Node {
	return g.addValue(OpTypeVariable, storage)
}

func (g *Graph) addValue(op OpType, storage *tensors.Storage) *Node {
	if storage == nil {
		exceptions.Panicf("graph %q: nil storage for %s", g.Name(), op)
	}
	g.AssertValid()
	var id NodeId
	g.inner.withExclusiveAccess(func() {
		id = g.inner.addOp(op, storage.Shape().Clone())
		g.inner.addStorage(id, storage)
	})
	return g.newNode(id)
}

// Placeholder creates an input node of the given shape: its value must be given when executing.
func (g *Graph) Placeholder(shape shapes.Shape) *Node {
	g.AssertValid()
	var id NodeId
	g.inner.withExclusiveAccess(func() {
		id = g.inner.addOp(OpTypePlaceholder, shape.Clone())
	})
	return g.newNode(id)
}

// String returns a multi-line description of the graph, with one line per node.
func (g *Graph) String() string {
	if g == nil || g.inner == nil {
		return "Graph(nil)!?"
	}
	if g.inner.finalized {
		return fmt.Sprintf("Invalid Graph %q (already finalized)", g.inner.name)
	}
	var memory uintptr
	for _, storage := range g.inner.storages {
		memory += storage.Memory()
	}
	parts := []string{
		fmt.Sprintf("Graph %q: %d nodes, %d values (%s)", g.inner.name, len(g.inner.nodes),
			len(g.inner.storages), humanize.Bytes(uint64(memory))),
	}
	for _, node := range g.inner.nodes {
		line := fmt.Sprintf("\t#%d\t%s", node.id, node)
		if storage, found := g.inner.storages[node.id]; found {
			line = fmt.Sprintf("%s: %s", line, storage)
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, "\n")
}
