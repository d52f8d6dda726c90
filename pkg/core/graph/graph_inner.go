// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"sync"

	"github.com/binah-ml/binah/pkg/core/shapes"
	"github.com/binah-ml/binah/pkg/core/tensors"
	"github.com/gomlx/exceptions"
	"gonum.org/v1/gonum/graph/simple"
)

// NodeId is a unique id of a node within a Graph. Ids are assigned sequentially, starting from 0.
type NodeId int64

// InvalidNodeId indicates a node that doesn't exist.
const InvalidNodeId = NodeId(-1)

// irNode is the graph-internal record of one operation. It is never modified after it is added to the graph,
// so it can be shared with the compiled Executable.
//
// It implements gonum's graph.Node.
type irNode struct {
	id    NodeId
	op    OpType
	shape shapes.Shape

	// operands in order (lhs, rhs) for binary ops. They are also edges in the topology,
	// but the topology doesn't keep the order, nor repeated edges (e.g.: Add(x, x)).
	operands []NodeId
}

// ID implements gonum's graph.Node.
func (n *irNode) ID() int64 { return int64(n.id) }

func (n *irNode) String() string {
	if n.op.IsBinary() {
		return fmt.Sprintf("%s(#%d, #%d) -> %s", n.op, n.operands[0], n.operands[1], n.shape)
	}
	return fmt.Sprintf("%s%s", n.op, n.shape)
}

// graphInner holds the nodes, edges and known values of a Graph.
//
// It is shared by the Graph and all its Node handles. All mutations go through withExclusiveAccess.
type graphInner struct {
	mu sync.Mutex

	name     string
	topology *simple.DirectedGraph
	nodes    []*irNode
	storages map[NodeId]*tensors.Storage

	// owner is the front-door Graph, returned by Node.Graph.
	owner *Graph

	finalized bool
}

func newGraphInner(name string, capacity int) *graphInner {
	return &graphInner{
		name:     name,
		topology: simple.NewDirectedGraph(),
		nodes:    make([]*irNode, 0, capacity),
		storages: make(map[NodeId]*tensors.Storage),
	}
}

// withExclusiveAccess runs fn holding the graph lock.
//
// It panics if the lock is already held: graph mutations are not reentrant, and concurrent mutations are
// a usage error.
func (gi *graphInner) withExclusiveAccess(fn func()) {
	if !gi.mu.TryLock() {
		exceptions.Panicf("graph %q is already being accessed: concurrent or reentrant graph mutation", gi.name)
	}
	defer gi.mu.Unlock()
	gi.assertValid()
	fn()
}

func (gi *graphInner) assertValid() {
	if gi.finalized {
		exceptions.Panicf("graph %q has been finalized already", gi.name)
	}
}

// addOp appends a new node and returns its id. It doesn't add edges for the operands.
// It must be called with exclusive access.
func (gi *graphInner) addOp(op OpType, shape shapes.Shape, operands ...NodeId) NodeId {
	node := &irNode{
		id:       NodeId(len(gi.nodes)),
		op:       op,
		shape:    shape,
		operands: operands,
	}
	gi.nodes = append(gi.nodes, node)
	gi.topology.AddNode(node)
	return node.id
}

// addBinaryOp appends a new binary node with edges from lhs and rhs, and returns its id.
// It must be called with exclusive access.
func (gi *graphInner) addBinaryOp(lhs, rhs NodeId, op OpType, shape shapes.Shape) NodeId {
	id := gi.addOp(op, shape, lhs, rhs)
	gi.addEdge(lhs, id)
	if rhs != lhs {
		gi.addEdge(rhs, id)
	}
	return id
}

// addEdge records that to depends on from. It must be called with exclusive access.
//
// Self-loops can't be represented by the topology, so they panic instead of being reported
// later by Compile as ErrCyclicGraph.
func (gi *graphInner) addEdge(from, to NodeId) {
	if from == to {
		exceptions.Panicf("graph %q: node #%d can't depend on itself", gi.name, from)
	}
	gi.topology.SetEdge(gi.topology.NewEdge(gi.nodes[from], gi.nodes[to]))
}

// addStorage records the known value of a node. It must be called with exclusive access.
func (gi *graphInner) addStorage(id NodeId, storage *tensors.Storage) {
	gi.storages[id] = storage
}

// node returns the node with the given id, or panics if it doesn't exist.
func (gi *graphInner) node(id NodeId) *irNode {
	if id < 0 || int(id) >= len(gi.nodes) {
		exceptions.Panicf("graph %q has no node #%d", gi.name, id)
	}
	return gi.nodes[id]
}

// finalize releases the nodes and values of the graph. Any further use panics.
func (gi *graphInner) finalize() {
	gi.topology = nil
	gi.nodes = nil
	gi.storages = nil
	gi.finalized = true
}
