// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package kernels implements the reference elementwise binary kernels (Add, Sub, Mul, Div) over
// dense, row-major tensors.Storage values, with NumPy-style implicit broadcasting.
//
// Kernels are registered per dtype in a DTypeDispatcher. All native numeric dtypes are supported,
// and Float16 is computed in float32. Bool, Int128 and Uint128 are storage-only: calling a kernel
// with them panics, as does calling it with operands of different dtypes.
//
// Float division follows IEEE-754 (x/0 is ±Inf, 0/0 is NaN). Integer division by zero panics.
// Integer overflow wraps around, as in Go.
package kernels

import (
	"fmt"

	"github.com/binah-ml/binah/pkg/core/dtypes"
	"github.com/binah-ml/binah/pkg/core/shapes"
	"github.com/binah-ml/binah/pkg/core/tensors"
	"github.com/gomlx/exceptions"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
)

// BinaryOp enumerates the elementwise binary operations.
type BinaryOp int

const (
	InvalidOp BinaryOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	numBinaryOps
)

var binaryOpNames = [numBinaryOps]string{
	InvalidOp: "InvalidOp",
	OpAdd:     "Add",
	OpSub:     "Sub",
	OpMul:     "Mul",
	OpDiv:     "Div",
}

// String implements fmt.Stringer.
func (op BinaryOp) String() string {
	if op < 0 || op >= numBinaryOps {
		return fmt.Sprintf("BinaryOp(%d)", int(op))
	}
	return binaryOpNames[op]
}

var dispatchers [numBinaryOps]*DTypeDispatcher

func init() {
	for op := OpAdd; op < numBinaryOps; op++ {
		d := NewDTypeDispatcher(op.String())
		registerNumber[int8](d, op)
		registerNumber[int16](d, op)
		registerNumber[int32](d, op)
		registerNumber[int64](d, op)
		registerNumber[uint8](d, op)
		registerNumber[uint16](d, op)
		registerNumber[uint32](d, op)
		registerNumber[uint64](d, op)
		registerNumber[float32](d, op)
		registerNumber[float64](d, op)
		registerFloat16(d, op)
		dispatchers[op] = d
	}
}

func registerNumber[T dtypes.Number](d *DTypeDispatcher, op BinaryOp) {
	opFn := scalarOp[T](op)
	d.Register(dtypes.FromGenericsType[T](), func(lhs, rhs *tensors.Storage, outputShape shapes.Shape) *tensors.Storage {
		return execBinary(opFn, lhs, rhs, outputShape)
	})
}

func registerFloat16(d *DTypeDispatcher, op BinaryOp) {
	opFn32 := scalarOp[float32](op)
	opFn := func(a, b float16.Float16) float16.Float16 {
		return float16.Fromfloat32(opFn32(a.Float32(), b.Float32()))
	}
	d.Register(dtypes.Float16, func(lhs, rhs *tensors.Storage, outputShape shapes.Shape) *tensors.Storage {
		return execBinary(opFn, lhs, rhs, outputShape)
	})
}

// scalarOp returns the scalar function for op.
func scalarOp[T constraints.Integer | constraints.Float](op BinaryOp) func(a, b T) T {
	switch op {
	case OpAdd:
		return func(a, b T) T { return a + b }
	case OpSub:
		return func(a, b T) T { return a - b }
	case OpMul:
		return func(a, b T) T { return a * b }
	case OpDiv:
		var zero T
		switch any(zero).(type) {
		case float32, float64:
			return func(a, b T) T { return a / b }
		}
		return func(a, b T) T {
			if b == zero {
				exceptions.Panicf("kernels.Div: integer division by zero for dtype %T", zero)
			}
			return a / b
		}
	}
	exceptions.Panicf("kernels: invalid binary operation %s", op)
	return nil
}

// execBinary applies opFn to every pair of broadcast elements of lhs and rhs, into a newly allocated storage
// of outputShape.
func execBinary[T dtypes.Supported](opFn func(a, b T) T, lhsStorage, rhsStorage *tensors.Storage,
	outputShape shapes.Shape) *tensors.Storage {
	lhs, rhs := lhsStorage.Flat().([]T), rhsStorage.Flat().([]T)
	lhsShape, rhsShape := lhsStorage.Shape(), rhsStorage.Shape()
	output := make([]T, outputShape.Size())
	if lhsShape.Equal(outputShape) && rhsShape.Equal(outputShape) {
		// Case 1: Exact same shapes, no broadcasting.
		for ii := range output {
			output[ii] = opFn(lhs[ii], rhs[ii])
		}
	} else if len(rhs) == 1 && len(lhs) == len(output) {
		// Case 2: rhs is a scalar (or of size 1), only iterate over lhs.
		c := rhs[0]
		for ii, a := range lhs {
			output[ii] = opFn(a, c)
		}
	} else if len(lhs) == 1 && len(rhs) == len(output) {
		// Case 2b: lhs is a scalar. Order of operands matters for Sub and Div.
		c := lhs[0]
		for ii, b := range rhs {
			output[ii] = opFn(c, b)
		}
	} else {
		// Case 3: generic broadcasting, mapping each output position through the broadcast strides.
		lhsStrides := broadcastStrides(lhsShape, outputShape)
		rhsStrides := broadcastStrides(rhsShape, outputShape)
		dims := outputShape.Dimensions
		for ii := range output {
			output[ii] = opFn(
				lhs[shapes.FlatIndex(ii, lhsStrides, dims)],
				rhs[shapes.FlatIndex(ii, rhsStrides, dims)])
		}
	}
	return tensors.Wrap(output, outputShape)
}

func broadcastStrides(from, to shapes.Shape) []int {
	strides, err := from.BroadcastStrides(to)
	if err != nil {
		exceptions.Panicf("kernels: cannot broadcast operand to output shape: %+v", err)
	}
	return strides
}

// Binary executes op over lhs and rhs, broadcasting both to outputShape, and returns a newly allocated storage.
//
// It panics if lhs and rhs have different dtypes, if their dtype has no kernel, or if they can't be broadcast
// to outputShape.
func Binary(op BinaryOp, lhs, rhs *tensors.Storage, outputShape shapes.Shape) *tensors.Storage {
	if op <= InvalidOp || op >= numBinaryOps {
		exceptions.Panicf("kernels: invalid binary operation %s", op)
	}
	if lhs.DType() != rhs.DType() {
		exceptions.Panicf("kernels.%s: operands have different dtypes %s and %s", op, lhs.DType(), rhs.DType())
	}
	return dispatchers[op].Dispatch(lhs.DType(), lhs, rhs, outputShape)
}

// Supports returns whether op has a kernel for dtype.
func Supports(op BinaryOp, dtype dtypes.DType) bool {
	if op <= InvalidOp || op >= numBinaryOps {
		return false
	}
	return dispatchers[op].Supports(dtype)
}

// Add returns lhs + rhs, broadcast to outputShape.
func Add(lhs, rhs *tensors.Storage, outputShape shapes.Shape) *tensors.Storage {
	return Binary(OpAdd, lhs, rhs, outputShape)
}

// Sub returns lhs - rhs, broadcast to outputShape.
func Sub(lhs, rhs *tensors.Storage, outputShape shapes.Shape) *tensors.Storage {
	return Binary(OpSub, lhs, rhs, outputShape)
}

// Mul returns lhs * rhs, broadcast to outputShape.
func Mul(lhs, rhs *tensors.Storage, outputShape shapes.Shape) *tensors.Storage {
	return Binary(OpMul, lhs, rhs, outputShape)
}

// Div returns lhs / rhs, broadcast to outputShape.
func Div(lhs, rhs *tensors.Storage, outputShape shapes.Shape) *tensors.Storage {
	return Binary(OpDiv, lhs, rhs, outputShape)
}
