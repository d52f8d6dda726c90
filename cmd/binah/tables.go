// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/binah-ml/binah/pkg/core/graph"
	"github.com/binah-ml/binah/pkg/core/tensors"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)

	titleStyle       = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)
	descriptionStyle = lipgloss.NewStyle().Italic(true).Padding(0, 4, 1, 4)
)

func newPlainTable(withHeader bool) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row == lgtable.HeaderRow {
				s = headerRowStyle
				return
			}
			switch {
			case row%2 == 0:
				s = evenRowStyle
			default:
				s = oddRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

// report renders the compiled plan and the results of a demo.
func report(r *demoResult) string {
	var parts []string
	parts = append(parts, titleStyle.Render(fmt.Sprintf("Demo %q", r.demo.name)))
	parts = append(parts, descriptionStyle.Render(r.demo.description))

	summary := newPlainTable(false)
	summary.Row("graph nodes", humanize.Comma(int64(r.graph.NumNodes())))
	summary.Row("compiled nodes", humanize.Comma(int64(r.exec.NumNodes())))
	summary.Row("inputs", fmt.Sprintf("%v", r.exec.Inputs()))
	summary.Row("outputs", fmt.Sprintf("%v", r.exec.Outputs()))
	parts = append(parts, summary.Render())

	inputs, outputs := r.exec.Inputs(), r.exec.Outputs()
	plan := newPlainTable(true).Headers("Node", "Operation", "Role", "Value", "Bytes")
	for _, id := range r.exec.Order() {
		node := r.graph.Node(id)
		var roles []string
		if slices.Contains(inputs, id) {
			roles = append(roles, "input")
		}
		if slices.Contains(outputs, id) {
			roles = append(roles, "output")
		}
		value := node.Value()
		if input, found := r.inputs[id]; found {
			value = input
		}
		if output, found := r.outputs[id]; found {
			value = output
		}
		plan.Row(fmt.Sprintf("#%d", id), operationString(node), strings.Join(roles, ", "),
			valueString(value), bytesString(value))
	}
	parts = append(parts, plan.Render())
	return strings.Join(parts, "\n")
}

func operationString(node *graph.Node) string {
	if node.OpType().IsBinary() {
		operands := node.Operands()
		return fmt.Sprintf("%s(#%d, #%d) -> %s", node.OpType(), operands[0], operands[1], node.Shape())
	}
	return fmt.Sprintf("%s%s", node.OpType(), node.Shape())
}

func valueString(value *tensors.Storage) string {
	if value == nil {
		return ""
	}
	return value.String()
}

func bytesString(value *tensors.Storage) string {
	if value == nil {
		return ""
	}
	return humanize.Bytes(uint64(value.Memory()))
}
