// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"

	"github.com/binah-ml/binah/pkg/core/kernels"
)

// OpType enumerates the operations a node can hold.
type OpType int

const (
	OpTypeInvalid OpType = iota

	// OpTypeConstant holds a value known when the graph is built.
	OpTypeConstant

	// OpTypeVariable holds a value known when the graph is built. It behaves like a constant for now.
	OpTypeVariable

	// OpTypePlaceholder is an input: its value is given at execution time.
	OpTypePlaceholder

	OpTypeAdd
	OpTypeSub
	OpTypeMul
	OpTypeDiv

	numOpTypes
)

var opTypeNames = [numOpTypes]string{
	OpTypeInvalid:     "Invalid",
	OpTypeConstant:    "Constant",
	OpTypeVariable:    "Variable",
	OpTypePlaceholder: "Placeholder",
	OpTypeAdd:         "Add",
	OpTypeSub:         "Sub",
	OpTypeMul:         "Mul",
	OpTypeDiv:         "Div",
}

// String implements fmt.Stringer.
func (op OpType) String() string {
	if op < 0 || op >= numOpTypes {
		return fmt.Sprintf("OpType(%d)", int(op))
	}
	return opTypeNames[op]
}

// IsLeaf returns whether the op has no operands: constants, variables and placeholders.
func (op OpType) IsLeaf() bool {
	return op == OpTypeConstant || op == OpTypeVariable || op == OpTypePlaceholder
}

// IsBinary returns whether the op is an elementwise binary operation.
func (op OpType) IsBinary() bool {
	return op >= OpTypeAdd && op <= OpTypeDiv
}

// binaryOp returns the kernel operation for a binary op, or kernels.InvalidOp.
func (op OpType) binaryOp() kernels.BinaryOp {
	switch op {
	case OpTypeAdd:
		return kernels.OpAdd
	case OpTypeSub:
		return kernels.OpSub
	case OpTypeMul:
		return kernels.OpMul
	case OpTypeDiv:
		return kernels.OpDiv
	}
	return kernels.InvalidOp
}
