// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/binah-ml/binah/pkg/core/graph"
	"github.com/binah-ml/binah/pkg/core/shapes"
	"github.com/binah-ml/binah/pkg/core/tensors"
	"github.com/binah-ml/binah/pkg/support/xslices"
	"github.com/pkg/errors"
)

// demo builds a graph, and returns its targets and the values of its placeholders.
type demo struct {
	name, description string
	build             func(g *graph.Graph) (targets []*graph.Node, inputs map[graph.NodeId]*tensors.Storage)
}

var demos = []demo{
	{
		name:        "add",
		description: "Element-wise addition of two constants of the same shape.",
		build: func(g *graph.Graph) ([]*graph.Node, map[graph.NodeId]*tensors.Storage) {
			a := graph.Constant(g, []float32{1, 2, 3}, shapes.Make(3))
			b := graph.Constant(g, []float32{3, 4, 5}, shapes.Make(3))
			return []*graph.Node{graph.Add(a, b)}, nil
		},
	},
	{
		name:        "broadcast",
		description: "Additions with implicit broadcasting: [3, 1] + [2] and [1] + [3].",
		build: func(g *graph.Graph) ([]*graph.Node, map[graph.NodeId]*tensors.Storage) {
			a := graph.Constant(g, []float32{1, 2, 3}, shapes.Make(3, 1))
			b := graph.Constant(g, []float32{10, 20}, shapes.Make(2))
			c := graph.Constant(g, []float32{1}, shapes.Make(1))
			d := graph.Constant(g, []float32{1, 2, 3}, shapes.Make(3))
			return []*graph.Node{graph.Add(a, b), graph.Add(c, d)}, nil
		},
	},
	{
		name:        "placeholder",
		description: "Affine transformation (x * scale + bias) / 2 of a placeholder x, with an unused branch pruned.",
		build: func(g *graph.Graph) ([]*graph.Node, map[graph.NodeId]*tensors.Storage) {
			x := g.Placeholder(shapes.Make(2, 3))
			scale := graph.Constant(g, []float32{1, 10, 100}, shapes.Make(3))
			bias := graph.Constant(g, []float32{-1, 1}, shapes.Make(2, 1))
			_ = graph.Sub(x, scale) // Not needed by the target.
			two := g.ConstantFromStorage(tensors.FromScalar(float32(2)))
			y := graph.Div(graph.Add(graph.Mul(x, scale), bias), two)
			inputs := map[graph.NodeId]*tensors.Storage{
				x.Id(): tensors.FromFlatDataAndDimensions(xslices.Iota[float32](1, 6), 2, 3),
			}
			return []*graph.Node{y}, inputs
		},
	},
}

func demoNames() []string {
	return xslices.Map(demos, func(d demo) string { return d.name })
}

// demoResult holds everything reported about the execution of a demo.
type demoResult struct {
	demo    demo
	graph   *graph.Graph
	exec    *graph.Executable
	targets []*graph.Node
	inputs  map[graph.NodeId]*tensors.Storage
	outputs map[graph.NodeId]*tensors.Storage
}

// runDemo builds, compiles and executes the demo with the given name.
func runDemo(name string) (*demoResult, error) {
	for _, d := range demos {
		if d.name != name {
			continue
		}
		r := &demoResult{demo: d, graph: graph.New().WithName(name)}
		r.targets, r.inputs = d.build(r.graph)
		var err error
		r.exec, err = r.graph.Compile(r.targets...)
		if err != nil {
			return nil, errors.WithMessagef(err, "compiling demo %q", name)
		}
		r.outputs, err = r.exec.Execute(r.inputs)
		if err != nil {
			return nil, errors.WithMessagef(err, "executing demo %q", name)
		}
		return r, nil
	}
	return nil, errors.Errorf("unknown demo %q", name)
}
