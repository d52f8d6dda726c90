// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/binah-ml/binah/pkg/core/kernels"
	"github.com/binah-ml/binah/pkg/core/tensors"
	"github.com/binah-ml/binah/pkg/support/sets"
	"github.com/binah-ml/binah/pkg/support/xslices"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"k8s.io/klog/v2"
)

// Executable is a compiled subset of a Graph: the nodes needed to compute some targets, in an order
// where every node comes after its operands.
//
// It is a snapshot: changes to the Graph after compilation (or finalizing it) don't affect it.
// Calls to Execute are serialized.
type Executable struct {
	name string

	topology *simple.DirectedGraph
	nodes    map[NodeId]*irNode
	order    []NodeId
	inputs   []NodeId
	outputs  []NodeId

	// constants holds the values of the constant and variable nodes used.
	constants map[NodeId]*tensors.Storage

	// mu protects storages, the values of the nodes during an execution.
	mu       sync.Mutex
	storages map[NodeId]*tensors.Storage
}

// Compile the nodes needed to compute targets into an Executable.
//
// If no targets are given, all nodes of the graph are compiled, and the outputs are the nodes that no
// other node depends on.
// Otherwise, only the targets and the nodes they (transitively) depend on are compiled, and the outputs are
// the compiled nodes that no other compiled node depends on.
//
// It returns ErrCyclicGraph if the graph has a cycle. It panics if a target is nil or from another graph.
func (g *Graph) Compile(targets ...*Node) (*Executable, error) {
	g.AssertValid()
	var start time.Time
	if klog.V(1).Enabled() {
		start = time.Now()
	}
	targetIds := make([]NodeId, len(targets))
	for ii, target := range targets {
		if target.checkedInner() != g.inner {
			exceptions.Panicf("Graph(%q).Compile: target #%d %s belongs to graph %q",
				g.inner.name, ii, target, target.inner.name)
		}
		targetIds[ii] = target.id
	}

	var exec *Executable
	var err error
	g.inner.withExclusiveAccess(func() {
		exec, err = g.inner.compile(targetIds)
	})
	if err != nil {
		return nil, err
	}
	if klog.V(1).Enabled() {
		klog.Infof("Graph(%q).Compile: %d of %d nodes, %d inputs, %d outputs, in %s",
			g.inner.name, len(exec.order), len(g.inner.nodes), len(exec.inputs), len(exec.outputs), time.Since(start))
	}
	return exec, nil
}

// compile implements Graph.Compile. It must be called with exclusive access.
func (gi *graphInner) compile(targets []NodeId) (*Executable, error) {
	required := gi.requiredNodes(targets)

	// Sort the whole graph, so any cycle is reported, even if not in the required nodes.
	// Ties are broken by node id, so the order is deterministic.
	sorted, err := topo.SortStabilized(gi.topology, nil)
	if err != nil {
		var unorderable topo.Unorderable
		if errors.As(err, &unorderable) {
			return nil, errors.Wrapf(ErrCyclicGraph, "graph %q has %d cycle(s), the first one with nodes %v",
				gi.name, len(unorderable), xslices.Map(unorderable[0], func(n gonumgraph.Node) int64 { return n.ID() }))
		}
		return nil, errors.WithMessagef(ErrCyclicGraph, "graph %q can't be sorted: %v", gi.name, err)
	}

	exec := &Executable{
		name:      gi.name,
		topology:  simple.NewDirectedGraph(),
		nodes:     make(map[NodeId]*irNode, len(required)),
		order:     make([]NodeId, 0, len(required)),
		constants: make(map[NodeId]*tensors.Storage),
	}
	gonumgraph.Copy(exec.topology, gi.topology)
	for _, n := range sorted {
		id := NodeId(n.ID())
		if !required.Has(id) {
			continue
		}
		node := gi.nodes[id]
		exec.nodes[id] = node
		exec.order = append(exec.order, id)
		if storage, found := gi.storages[id]; found {
			exec.constants[id] = storage
		}
	}

	// Boundary nodes.
	inputs, outputs := sets.Make[NodeId](), sets.Make[NodeId]()
	for _, id := range exec.order {
		if exec.nodes[id].op == OpTypePlaceholder {
			inputs.Insert(id)
		}
		isOutput := true
		successors := gi.topology.From(int64(id))
		for successors.Next() {
			if required.Has(NodeId(successors.Node().ID())) {
				isOutput = false
				break
			}
		}
		if isOutput {
			outputs.Insert(id)
		}
	}
	exec.inputs = sets.Sorted(inputs)
	exec.outputs = sets.Sorted(outputs)
	return exec, nil
}

// requiredNodes returns the targets and all the nodes they depend on. If targets is empty, it returns all nodes.
func (gi *graphInner) requiredNodes(targets []NodeId) sets.Set[NodeId] {
	if len(targets) == 0 {
		return sets.MakeWith(xslices.Map(gi.nodes, func(node *irNode) NodeId { return node.id })...)
	}
	required := sets.Make[NodeId]()
	stack := append([]NodeId(nil), targets...)
	var id NodeId
	for len(stack) > 0 {
		id, stack = xslices.Pop(stack)
		if required.Has(id) {
			continue
		}
		required.Insert(id)
		predecessors := gi.topology.To(int64(id))
		for predecessors.Next() {
			stack = append(stack, NodeId(predecessors.Node().ID()))
		}
	}
	return required
}

// Name of the graph the Executable was compiled from.
func (e *Executable) Name() string { return e.name }

// Inputs returns the ids of the placeholder nodes that need a value to execute, sorted by id.
func (e *Executable) Inputs() []NodeId { return append([]NodeId(nil), e.inputs...) }

// Outputs returns the ids of the nodes returned by Execute, sorted by id.
func (e *Executable) Outputs() []NodeId { return append([]NodeId(nil), e.outputs...) }

// Order returns the ids of the compiled nodes in execution order.
func (e *Executable) Order() []NodeId { return append([]NodeId(nil), e.order...) }

// NumNodes returns the number of compiled nodes.
func (e *Executable) NumNodes() int { return len(e.order) }

// Execute computes the outputs of the Executable (see Outputs), given the values of its inputs (see Inputs).
//
// Values given for nodes that are not inputs are ignored. A failed execution returns a nil map and:
//
//   - a *MissingInputError (matching ErrMissingInput) if a value is missing for an input;
//   - ErrInvalidOperation if an input's shape differs from its placeholder, or if a node can't be computed.
//
// It panics if the kernel of an operation doesn't support the dtype of its operands, or if they have
// different dtypes.
func (e *Executable) Execute(inputs map[NodeId]*tensors.Storage) (map[NodeId]*tensors.Storage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var start time.Time
	if klog.V(1).Enabled() {
		start = time.Now()
	}

	e.storages = maps.Clone(e.constants)
	if err := e.bindInputs(inputs); err != nil {
		return nil, err
	}
	for _, id := range e.order {
		node := e.nodes[id]
		if node.op.IsLeaf() {
			continue
		}
		if err := e.execNode(node); err != nil {
			return nil, err
		}
	}

	outputs := make(map[NodeId]*tensors.Storage, len(e.outputs))
	for _, id := range e.outputs {
		storage := e.storages[id]
		if storage == nil {
			return nil, errors.Wrapf(ErrInvalidOperation, "Executable(%q): output node #%d %s has no value",
				e.name, id, e.nodes[id])
		}
		outputs[id] = storage
	}
	if klog.V(1).Enabled() {
		klog.Infof("Executable(%q).Execute: %d nodes in %s", e.name, len(e.order), time.Since(start))
	}
	return outputs, nil
}

func (e *Executable) bindInputs(inputs map[NodeId]*tensors.Storage) error {
	for _, id := range e.inputs {
		storage := inputs[id]
		if storage == nil {
			return &MissingInputError{Node: id}
		}
		want := e.nodes[id].shape
		if !storage.Shape().Equal(want) {
			return errors.Wrapf(ErrInvalidOperation, "Executable(%q): input for placeholder #%d has shape %s, expected %s",
				e.name, id, storage.Shape(), want)
		}
		e.storages[id] = storage
	}
	if klog.V(1).Enabled() {
		for _, id := range xslices.SortedKeys(inputs) {
			if node, found := e.nodes[id]; !found || node.op != OpTypePlaceholder {
				klog.Infof("Executable(%q).Execute: ignoring value given for node #%d, not an input", e.name, id)
			}
		}
	}
	return nil
}

// execNode computes the value of a binary node, from the values of its operands.
func (e *Executable) execNode(node *irNode) error {
	if !node.op.IsBinary() {
		return errors.Wrapf(ErrInvalidOperation, "Executable(%q): node #%d has unknown operation %s",
			e.name, node.id, node.op)
	}
	if len(node.operands) != 2 {
		return errors.Wrapf(ErrInvalidOperation, "Executable(%q): %s node #%d has %d operands, expected 2",
			e.name, node.op, node.id, len(node.operands))
	}
	for _, operand := range node.operands {
		if !e.topology.HasEdgeFromTo(int64(operand), int64(node.id)) {
			return errors.Wrapf(ErrInvalidOperation, "Executable(%q): %s node #%d has no edge from operand #%d",
				e.name, node.op, node.id, operand)
		}
	}
	lhs, rhs := e.storages[node.operands[0]], e.storages[node.operands[1]]
	if lhs == nil || rhs == nil {
		return errors.Wrapf(ErrInvalidOperation, "Executable(%q): %s node #%d has an operand with no value",
			e.name, node.op, node.id)
	}
	outputShape, err := lhs.Shape().BroadcastWith(rhs.Shape())
	if err != nil {
		return errors.Wrapf(ErrInvalidOperation, "Executable(%q): %s node #%d: %v", e.name, node.op, node.id, err)
	}
	if klog.V(2).Enabled() {
		klog.Infof("Executable(%q): %s node #%d, %s x %s -> %s", e.name, node.op, node.id,
			lhs.Shape(), rhs.Shape(), outputShape)
	}
	e.storages[node.id] = kernels.Binary(node.op.binaryOp(), lhs, rhs, outputShape)
	return nil
}

// String returns a multi-line description of the Executable, with one line per node in execution order.
func (e *Executable) String() string {
	var memory uintptr
	for _, storage := range e.constants {
		memory += storage.Memory()
	}
	parts := []string{
		fmt.Sprintf("Executable %q: %d nodes, inputs %v, outputs %v, %d constants (%s)",
			e.name, len(e.order), e.inputs, e.outputs, len(e.constants), humanize.Bytes(uint64(memory))),
	}
	for _, id := range e.order {
		parts = append(parts, fmt.Sprintf("\t#%d\t%s", id, e.nodes[id]))
	}
	return strings.Join(parts, "\n")
}
