// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graphtest holds test utilities for packages that depend on the graph package.
package graphtest

import (
	"testing"

	"github.com/binah-ml/binah/pkg/core/graph"
	"github.com/binah-ml/binah/pkg/core/tensors"
	"github.com/stretchr/testify/require"
)

// TestGraphFn should build its own inputs (constants or variables), and return both inputs and outputs.
type TestGraphFn func(g *graph.Graph) (inputs, outputs []*graph.Node)

// RunTestGraphFn tests a graph building function graphFn by compiling and executing each of its outputs
// and comparing them to the values in want, reporting back any errors in t.
//
// delta is the margin of value on the difference of output and want values that are acceptable.
// Values of delta <= 0 means only exact equality is accepted.
func RunTestGraphFn(t *testing.T, testName string, graphFn TestGraphFn, want []*tensors.Storage, delta float64) {
	t.Run(testName, func(t *testing.T) {
		g := graph.New().WithName(testName)
		inputs, outputs := graphFn(g)
		require.Equalf(t, len(want), len(outputs), "%s: number of wanted results different from number of outputs", testName)

		t.Logf("%s:", testName)
		for ii, input := range inputs {
			require.NotNilf(t, input, "%s: inputs[%d] is nil!?", testName, ii)
			t.Logf("\tInput %d: %s", ii, input)
		}
		for ii, output := range outputs {
			require.NotNilf(t, output, "%s: outputs[%d] is nil!?", testName, ii)
			exec, err := g.Compile(output)
			require.NoErrorf(t, err, "%s: failed to compile output #%d", testName, ii)
			results, err := exec.Execute(nil)
			require.NoErrorf(t, err, "%s: failed to execute output #%d", testName, ii)
			got := results[output.Id()]
			require.NotNilf(t, got, "%s: no value for output #%d", testName, ii)
			t.Logf("\tOutput %d: %s", ii, got)
			if delta > 0 {
				require.Truef(t, want[ii].InDelta(got, delta), "%s: output #%d %s doesn't match wanted value %s",
					testName, ii, got, want[ii])
			} else {
				require.Truef(t, want[ii].Equal(got), "%s: output #%d %s doesn't match wanted value %s",
					testName, ii, got, want[ii])
			}
		}
	})
}
