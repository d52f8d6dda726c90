// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/gomlx/exceptions"
)

// binaryOp appends an elementwise binary op to the graph of lhs and rhs.
//
// The shape of the result is the broadcast of the operands' shapes (see shapes.Shape.BroadcastWith).
func binaryOp(op OpType, lhs, rhs *Node) *Node {
	gi := lhs.checkedInner()
	if rhs.checkedInner() != gi {
		exceptions.Panicf("%s: operands belong to different graphs (%q and %q)", op, gi.name, rhs.inner.name)
	}
	shape, err := lhs.shape.BroadcastWith(rhs.shape)
	if err != nil {
		exceptions.Panicf("%s(#%d, #%d) in graph %q: %v", op, lhs.id, rhs.id, gi.name, err)
	}
	var id NodeId
	gi.withExclusiveAccess(func() {
		id = gi.addBinaryOp(lhs.id, rhs.id, op, shape)
	})
	return &Node{inner: gi, id: id, shape: shape}
}

// Add returns a node with lhs + rhs, with implicit broadcasting.
func Add(lhs, rhs *Node) *Node {
	return binaryOp(OpTypeAdd, lhs, rhs)
}

// Sub returns a node with lhs - rhs, with implicit broadcasting.
func Sub(lhs, rhs *Node) *Node {
	return binaryOp(OpTypeSub, lhs, rhs)
}

// Mul returns a node with lhs * rhs, with implicit broadcasting.
func Mul(lhs, rhs *Node) *Node {
	return binaryOp(OpTypeMul, lhs, rhs)
}

// Div returns a node with lhs / rhs, with implicit broadcasting.
//
// Float division by zero results in ±Inf or NaN. Integer division by zero panics at execution time.
func Div(lhs, rhs *Node) *Node {
	return binaryOp(OpTypeDiv, lhs, rhs)
}
