// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"math"
	"slices"
	"testing"

	"github.com/binah-ml/binah/pkg/core/shapes"
	"github.com/binah-ml/binah/pkg/core/tensors"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleAdd(t *testing.T) {
	g := New()
	a := Constant(g, []float32{1, 2, 3}, shapes.Make(3))
	b := Constant(g, []float32{3, 4, 5}, shapes.Make(3))
	c := Add(a, b)
	exec := must.M1(g.Compile(c))
	assert.Empty(t, exec.Inputs())
	assert.Equal(t, []NodeId{c.Id()}, exec.Outputs())
	assert.Equal(t, []NodeId{a.Id(), b.Id(), c.Id()}, exec.Order())

	outputs, err := exec.Execute(nil)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, []float32{4, 6, 8}, tensors.CopyFlatData[float32](outputs[c.Id()]))
}

func TestBroadcasting(t *testing.T) {
	g := New()
	a := Constant(g, []float32{1, 2, 3}, shapes.Make(3, 1))
	b := Constant(g, []float32{10, 20}, shapes.Make(2))
	c := Add(a, b)
	shapes.AssertDims(c, 3, 2)

	d := Constant(g, []float32{1}, shapes.Make(1))
	e := Constant(g, []float32{1, 2, 3}, shapes.Make(3))
	f := Add(d, e)
	assert.Equal(t, []int{3}, f.Shape().Dimensions)

	exec := must.M1(g.Compile(c, f))
	assert.Equal(t, []NodeId{c.Id(), f.Id()}, exec.Outputs())
	outputs := must.M1(exec.Execute(nil))
	assert.Equal(t, []float32{11, 21, 12, 22, 13, 23}, tensors.CopyFlatData[float32](outputs[c.Id()]))
	require.NoError(t, shapes.CheckDims(outputs[c.Id()], 3, 2))
	assert.Equal(t, []float32{2, 3, 4}, tensors.CopyFlatData[float32](outputs[f.Id()]))
}

func TestPlaceholders(t *testing.T) {
	g := New()
	x := g.Placeholder(shapes.Make(3))
	y := Constant(g, []float32{2, 2, 2}, shapes.Make(3))
	z := Mul(x, y)
	exec := must.M1(g.Compile(z))
	assert.Equal(t, []NodeId{x.Id()}, exec.Inputs())

	// Missing input.
	outputs, err := exec.Execute(nil)
	require.ErrorIs(t, err, ErrMissingInput)
	assert.Nil(t, outputs)
	var missing *MissingInputError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, x.Id(), missing.Node)
	_, err = exec.Execute(map[NodeId]*tensors.Storage{x.Id(): nil})
	require.ErrorIs(t, err, ErrMissingInput)

	// Wrong input shape.
	_, err = exec.Execute(map[NodeId]*tensors.Storage{
		x.Id(): tensors.FromFlatDataAndDimensions([]float32{1, 2}, 2),
	})
	require.ErrorIs(t, err, ErrInvalidOperation)

	// Extra values are ignored.
	outputs, err = exec.Execute(map[NodeId]*tensors.Storage{
		x.Id(): tensors.FromFlatDataAndDimensions([]float32{1, 2, 3}, 3),
		y.Id(): tensors.FromFlatDataAndDimensions([]float32{7, 7, 7}, 3),
		1000:   tensors.FromScalar(float32(1)),
	})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6}, tensors.CopyFlatData[float32](outputs[z.Id()]))
}

func TestReExecution(t *testing.T) {
	g := New()
	x := g.Placeholder(shapes.Make(2))
	one := Constant(g, []float64{1, 1}, shapes.Make(2))
	y := Add(x, one)
	exec := must.M1(g.Compile(y))

	in1 := map[NodeId]*tensors.Storage{x.Id(): tensors.FromFlatDataAndDimensions([]float64{1, 2}, 2)}
	in2 := map[NodeId]*tensors.Storage{x.Id(): tensors.FromFlatDataAndDimensions([]float64{10, 20}, 2)}
	first := must.M1(exec.Execute(in1))
	second := must.M1(exec.Execute(in1))
	assert.True(t, first[y.Id()].Equal(second[y.Id()]))
	third := must.M1(exec.Execute(in2))
	assert.Equal(t, []float64{11, 21}, tensors.CopyFlatData[float64](third[y.Id()]))

	// Previous results are not changed by later executions.
	assert.Equal(t, []float64{2, 3}, tensors.CopyFlatData[float64](first[y.Id()]))

	// A failed execution after a successful one still fails.
	_, err := exec.Execute(nil)
	require.ErrorIs(t, err, ErrMissingInput)
}

func TestPruning(t *testing.T) {
	g := New()
	a := Constant(g, []float32{1, 2}, shapes.Make(2))
	x := g.Placeholder(shapes.Make(2))
	b := Constant(g, []float32{3, 4}, shapes.Make(2))
	ab := Mul(a, b)
	unused := Add(x, b)
	target := Sub(ab, a)

	exec := must.M1(g.Compile(target))
	assert.Equal(t, []NodeId{a.Id(), b.Id(), ab.Id(), target.Id()}, exec.Order())
	assert.Equal(t, 4, exec.NumNodes())
	assert.Empty(t, exec.Inputs(), "placeholder only used by a pruned node")
	assert.NotContains(t, exec.Order(), unused.Id())
	assert.NotContains(t, exec.Order(), x.Id())
	assert.Len(t, exec.constants, 2)

	outputs := must.M1(exec.Execute(nil))
	assert.Equal(t, []float32{2, 6}, tensors.CopyFlatData[float32](outputs[target.Id()]))

	// Targets that depend on each other: only the last one is an output.
	exec = must.M1(g.Compile(ab, target))
	assert.Equal(t, []NodeId{target.Id()}, exec.Outputs())
}

func TestCompileAll(t *testing.T) {
	g := New()
	a := Constant(g, []float32{1, 2}, shapes.Make(2))
	x := g.Placeholder(shapes.Make(2))
	b := Add(a, x)
	c := Mul(a, a)
	lonely := g.Placeholder(shapes.Make(1))

	exec := must.M1(g.Compile())
	assert.Equal(t, g.NumNodes(), exec.NumNodes())
	assert.Equal(t, []NodeId{x.Id(), lonely.Id()}, exec.Inputs())
	assert.Equal(t, []NodeId{b.Id(), c.Id(), lonely.Id()}, exec.Outputs())

	lonelyValue := tensors.FromFlatDataAndDimensions([]float32{5}, 1)
	outputs := must.M1(exec.Execute(map[NodeId]*tensors.Storage{
		x.Id():      tensors.FromFlatDataAndDimensions([]float32{10, 10}, 2),
		lonely.Id(): lonelyValue,
	}))
	assert.Len(t, outputs, 3)
	assert.Equal(t, []float32{11, 12}, tensors.CopyFlatData[float32](outputs[b.Id()]))
	assert.Equal(t, []float32{1, 4}, tensors.CopyFlatData[float32](outputs[c.Id()]))
	assert.Same(t, lonelyValue, outputs[lonely.Id()])
}

func TestTopologicalOrder(t *testing.T) {
	g := New()
	x := g.Placeholder(shapes.Make(2, 1))
	y := g.Placeholder(shapes.Make(3))
	nodes := []*Node{x, y}
	for ii := range 20 {
		lhs, rhs := nodes[(ii*7)%len(nodes)], nodes[(ii*3+1)%len(nodes)]
		switch ii % 4 {
		case 0:
			nodes = append(nodes, Add(lhs, rhs))
		case 1:
			nodes = append(nodes, Sub(rhs, lhs))
		case 2:
			nodes = append(nodes, Mul(lhs, rhs))
		default:
			nodes = append(nodes, Div(lhs, rhs))
		}
	}
	exec := must.M1(g.Compile(nodes[len(nodes)-1], nodes[len(nodes)/2]))
	order := exec.Order()
	position := make(map[NodeId]int, len(order))
	for ii, id := range order {
		position[id] = ii
	}
	for _, id := range order {
		for _, operand := range exec.nodes[id].operands {
			pos, found := position[operand]
			require.True(t, found, "operand #%d of #%d not compiled", operand, id)
			require.Less(t, pos, position[id], "operand #%d executed after #%d", operand, id)
		}
	}
	assert.True(t, slices.IsSorted(exec.Inputs()))
	assert.True(t, slices.IsSorted(exec.Outputs()))

	// Compiling again gives the same plan.
	again := must.M1(g.Compile(nodes[len(nodes)-1], nodes[len(nodes)/2]))
	assert.Equal(t, order, again.Order())
}

func TestOperandOrder(t *testing.T) {
	g := New()
	a := Constant(g, []float32{6, 8}, shapes.Make(2))
	b := Constant(g, []float32{2, 4}, shapes.Make(2))
	sub1, sub2 := Sub(a, b), Sub(b, a)
	div1, div2 := Div(a, b), Div(b, a)
	double := Add(a, a)
	exec := must.M1(g.Compile(sub1, sub2, div1, div2, double))
	outputs := must.M1(exec.Execute(nil))
	assert.Equal(t, []float32{4, 4}, tensors.CopyFlatData[float32](outputs[sub1.Id()]))
	assert.Equal(t, []float32{-4, -4}, tensors.CopyFlatData[float32](outputs[sub2.Id()]))
	assert.Equal(t, []float32{3, 2}, tensors.CopyFlatData[float32](outputs[div1.Id()]))
	assert.InDeltaSlice(t, []float32{1.0 / 3, 0.5}, tensors.CopyFlatData[float32](outputs[div2.Id()]), 1e-6)
	assert.Equal(t, []float32{12, 16}, tensors.CopyFlatData[float32](outputs[double.Id()]))
}

func TestDivisionByZero(t *testing.T) {
	g := New()
	a := Constant(g, []float32{1, -1, 0}, shapes.Make(3))
	zero := Constant(g, []float32{0}, shapes.Make(1))
	c := Div(a, zero)
	outputs := must.M1(must.M1(g.Compile(c)).Execute(nil))
	got := tensors.CopyFlatData[float32](outputs[c.Id()])
	assert.True(t, math.IsInf(float64(got[0]), 1))
	assert.True(t, math.IsInf(float64(got[1]), -1))
	assert.True(t, math.IsNaN(float64(got[2])))
}

func TestUnsupportedDType(t *testing.T) {
	g := New()
	a := Constant(g, []bool{true, false}, shapes.Make(2))
	c := Add(a, a)
	exec := must.M1(g.Compile(c))
	require.Panics(t, func() { _, _ = exec.Execute(nil) })

	// Mixed dtypes, only known at execution time.
	x := g.Placeholder(shapes.Make(2))
	f := Constant(g, []float32{1, 2}, shapes.Make(2))
	y := Add(x, f)
	exec = must.M1(g.Compile(y))
	require.Panics(t, func() {
		_, _ = exec.Execute(map[NodeId]*tensors.Storage{x.Id(): tensors.FromFlatDataAndDimensions([]float64{1, 2}, 2)})
	})

	// After the panic, the executable can still be used.
	outputs, err := exec.Execute(map[NodeId]*tensors.Storage{x.Id(): tensors.FromFlatDataAndDimensions([]float32{1, 2}, 2)})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4}, tensors.CopyFlatData[float32](outputs[y.Id()]))
}

func TestSnapshot(t *testing.T) {
	g := New()
	a := Constant(g, []int64{1, 2}, shapes.Make(2))
	b := Add(a, a)
	exec := must.M1(g.Compile(b))
	Mul(b, b)
	assert.Equal(t, 3, g.NumNodes())
	assert.Equal(t, 2, exec.NumNodes())
	assert.Equal(t, []NodeId{b.Id()}, exec.Outputs())
	outputs := must.M1(exec.Execute(nil))
	assert.Equal(t, []int64{2, 4}, tensors.CopyFlatData[int64](outputs[b.Id()]))
	assert.Contains(t, exec.String(), "Add(#0, #0) -> [2]")
}

func TestInvalidOperation(t *testing.T) {
	g := New()
	a := Constant(g, []float32{1, 2}, shapes.Make(2))
	b := Constant(g, []float32{3, 4}, shapes.Make(2))
	c := Add(a, b)

	// Missing edge in the snapshot.
	exec := must.M1(g.Compile(c))
	exec.topology.RemoveEdge(int64(b.Id()), int64(c.Id()))
	outputs, err := exec.Execute(nil)
	require.ErrorIs(t, err, ErrInvalidOperation)
	assert.Nil(t, outputs)

	// Wrong number of operands.
	exec = must.M1(g.Compile(c))
	exec.nodes[c.Id()] = &irNode{id: c.Id(), op: OpTypeAdd, shape: c.Shape(), operands: []NodeId{a.Id()}}
	_, err = exec.Execute(nil)
	require.ErrorIs(t, err, ErrInvalidOperation)

	// Operand with no value.
	exec = must.M1(g.Compile(c))
	delete(exec.constants, b.Id())
	_, err = exec.Execute(nil)
	require.ErrorIs(t, err, ErrInvalidOperation)
}
