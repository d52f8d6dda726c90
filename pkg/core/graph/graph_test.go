// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"testing"

	"github.com/binah-ml/binah/pkg/core/dtypes"
	"github.com/binah-ml/binah/pkg/core/shapes"
	"github.com/binah-ml/binah/pkg/core/tensors"
	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraph(t *testing.T) {
	g := New()
	assert.Regexp(t, `^graph_#\d+$`, g.Name())
	assert.Equal(t, 0, g.NumNodes())
	assert.True(t, g.IsValid())

	g = NewWithCapacity(10).WithName("test")
	assert.Equal(t, "test", g.Name())
	a := Constant(g, []float32{1, 2, 3}, shapes.Make(3))
	x := g.Placeholder(shapes.Make(3))
	sum := Add(a, x)
	assert.Equal(t, 3, g.NumNodes())
	assert.Equal(t, NodeId(0), a.Id())
	assert.Equal(t, NodeId(2), sum.Id())
	assert.Equal(t, OpTypeConstant, a.OpType())
	assert.Equal(t, OpTypePlaceholder, x.OpType())
	assert.Equal(t, OpTypeAdd, sum.OpType())
	assert.Equal(t, []NodeId{0, 1}, sum.Operands())
	assert.Empty(t, a.Operands())
	assert.Same(t, g, sum.Graph())
	assert.Equal(t, "#2 Add(#0, #1) -> [3]", sum.String())

	want := "Graph \"test\": 3 nodes, 1 values (12 B)\n" +
		"\t#0\tConstant[3]: Storage(Float32)[3]: [1 2 3]\n" +
		"\t#1\tPlaceholder[3]\n" +
		"\t#2\tAdd(#0, #1) -> [3]"
	assert.Equal(t, want, g.String())
}

func TestVariable(t *testing.T) {
	g := New()
	v := Variable(g, []int32{1, 2}, shapes.Make(2))
	assert.Equal(t, OpTypeVariable, v.OpType())
	c := g.ConstantFromStorage(tensors.FromScalar(int32(3)))
	assert.True(t, c.Shape().IsScalar())
	s := g.VariableFromStorage(tensors.FromFlatDataAndDimensions([]int32{5, 6}, 2))
	assert.Equal(t, []int{2}, s.Shape().Dimensions)

	assert.Equal(t, []int32{1, 2}, tensors.CopyFlatData[int32](v.Value()))
	sum := Add(v, s)
	assert.Nil(t, sum.Value())
	same := g.Node(sum.Id())
	assert.Equal(t, sum.Id(), same.Id())
	assert.True(t, sum.Shape().Equal(same.Shape()))
	require.Panics(t, func() { g.Node(100) })
}

func TestGraphBuildingPanics(t *testing.T) {
	g := New()
	require.Panics(t, func() { Constant(g, []float32{1, 2, 3}, shapes.Make(2, 2)) })
	require.Panics(t, func() { g.ConstantFromStorage(nil) })

	a := Constant(g, []float32{1, 2, 3}, shapes.Make(3))
	b := Constant(g, []float32{1, 2}, shapes.Make(2))
	err := exceptions.TryCatch[error](func() { Add(a, b) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incompatible shapes")

	other := New()
	c := Constant(other, []float32{1, 2, 3}, shapes.Make(3))
	err = exceptions.TryCatch[error](func() { Mul(a, c) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different graphs")
	err = exceptions.TryCatch[error](func() { _, _ = g.Compile(c) })
	require.Error(t, err)

	var nilNode *Node
	require.Panics(t, func() { Add(a, nilNode) })
}

func TestReentrantMutation(t *testing.T) {
	g := New().WithName("reentrant")
	a := Constant(g, []float32{1}, shapes.Make(1))
	g.inner.withExclusiveAccess(func() {
		err := exceptions.TryCatch[error](func() { g.Placeholder(shapes.Make(1)) })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reentrant")
		require.Panics(t, func() { Add(a, a) })
		require.Panics(t, func() { _, _ = g.Compile(a) })
	})

	// Graph is usable again once the mutation finished.
	b := Add(a, a)
	assert.Equal(t, 2, g.NumNodes())
	assert.Equal(t, []NodeId{0, 0}, b.Operands())
}

func TestFinalize(t *testing.T) {
	g := New().WithName("finalized")
	a := Constant(g, []float32{1, 2}, shapes.Make(2))
	b := Add(a, a)
	exec, err := g.Compile(b)
	require.NoError(t, err)

	g.Finalize()
	assert.False(t, g.IsValid())
	require.NotPanics(t, func() { g.Finalize() })
	assert.Equal(t, `Invalid Graph "finalized" (already finalized)`, g.String())
	assert.Equal(t, "#1 [2] (graph finalized)", b.String())
	assert.Equal(t, []int{2}, b.Shape().Dimensions)

	err = exceptions.TryCatch[error](func() { Add(a, b) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finalized")
	require.Panics(t, func() { b.Graph() })
	require.Panics(t, func() { b.OpType() })
	require.Panics(t, func() { g.Placeholder(shapes.Make(2)) })
	require.Panics(t, func() { g.NumNodes() })
	require.Panics(t, func() { _, _ = g.Compile() })

	// Executables are snapshots, and still work.
	outputs, err := exec.Execute(nil)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4}, tensors.CopyFlatData[float32](outputs[b.Id()]))
}

func TestCyclicGraph(t *testing.T) {
	g := New().WithName("cyclic")
	a := g.Placeholder(shapes.Make(2))
	b := Constant(g, []float32{1, 2}, shapes.Make(2))
	c := Add(a, b)
	unrelated := Constant(g, []float64{1}, shapes.Make(1))
	g.inner.withExclusiveAccess(func() {
		g.inner.addEdge(c.Id(), a.Id())
	})

	exec, err := g.Compile(c)
	require.ErrorIs(t, err, ErrCyclicGraph)
	assert.Nil(t, exec)

	// Cycles are detected over the whole graph, even if not needed by the targets.
	_, err = g.Compile(unrelated)
	require.ErrorIs(t, err, ErrCyclicGraph)

	// Self-loops are rejected as soon as they are added.
	g = New().WithName("self-loop")
	x := g.Placeholder(shapes.Make(2))
	err = exceptions.TryCatch[error](func() {
		g.inner.withExclusiveAccess(func() {
			g.inner.addEdge(x.Id(), x.Id())
		})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't depend on itself")
}

func TestOpType(t *testing.T) {
	assert.Equal(t, "Placeholder", OpTypePlaceholder.String())
	assert.Equal(t, "OpType(99)", OpType(99).String())
	assert.True(t, OpTypeVariable.IsLeaf())
	assert.False(t, OpTypeDiv.IsLeaf())
	assert.True(t, OpTypeDiv.IsBinary())
	assert.False(t, OpTypeInvalid.IsBinary())
	assert.Equal(t, dtypes.Float32, Constant(New(), []float32{1}, shapes.Make(1)).inner.storages[0].DType())
}
