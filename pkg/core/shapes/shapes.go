// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape and the broadcasting engine used by the kernels.
//
// A Shape is the ordered list of dimensions of a tensor, outermost axis first. Unlike the
// storages (see package tensors), a Shape carries no data type: the element kind lives in the
// storage, and a graph node only needs its dimensions to validate operations while the graph
// is being built.
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of a tensor.
//   - Axis: the index of a dimension. We try to refer to a dimension index as "axis"
//     (plural axes), and its size as its dimension.
//   - Scalar: a shape with no axes. It holds exactly one element.
//   - Broadcasting: the implicit expansion of axes of dimension 1 (or missing leading axes)
//     so two operands of different shapes can be combined elementwise. It follows NumPy rules:
//     shapes are right-aligned, and each pair of dimensions must be equal or one of them must be 1.
//
// Example: the multi-dimensional array `[][]float32{{0, 1, 2}, {3, 4, 5}}` has shape `[2 3]`.
// It has rank 2, axis 0 has dimension 2, and axis 1 has dimension 3. It is created with
// `shapes.Make(2, 3)`.
package shapes

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
)

// Shape represents the dimensions of a storage or the expected dimensions of the value of a
// graph node.
//
// Shape is treated as an immutable value: methods never change the receiver, and Make clones the
// dimensions it is given.
type Shape struct {
	Dimensions []int
}

// Make returns a Shape with the given dimensions.
// It panics if any dimension is negative. A dimension of 0 is valid and yields a shape with no elements.
func Make(dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim < 0 {
			exceptions.Panicf("shapes.Make(%v): cannot create a shape with an axis with negative dimension", dimensions)
		}
	}
	return s
}

// Scalar returns the shape of a scalar: no axes, one element.
func Scalar() Shape {
	return Shape{}
}

// Rank of the shape, that is, the number of axes.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar, that is there are no axes (rank==0).
func (s Shape) IsScalar() bool { return s.Rank() == 0 }

// IsZeroSize returns whether any of the axes has dimension 0, in which case the shape holds no elements.
func (s Shape) IsZeroSize() bool { return slices.Contains(s.Dimensions, 0) }

// Dim returns the dimension of the given axis. axis can take negative numbers, in which
// case it counts as starting from the end -- so axis=-1 refers to the last axis.
// Like with a slice indexing, it panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// Shape returns itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// String implements stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return "[]"
	}
	return fmt.Sprintf("%v", s.Dimensions)
}

// Size returns the number of elements for this shape: the product of all dimensions.
// A scalar has size 1.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// Equal compares two shapes for equality of dimensions.
func (s Shape) Equal(s2 Shape) bool {
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() Shape {
	return Shape{Dimensions: slices.Clone(s.Dimensions)}
}

// Strides returns the strides for each axis of the shape, assuming a "row-major" layout
// in memory, the one used everywhere in binah: the rightmost axis varies fastest.
//
// Notice the strides are **not in bytes**, but in indices.
func (s Shape) Strides() (strides []int) {
	rank := s.Rank()
	strides = make([]int, rank)
	currentStride := 1
	for axis := rank - 1; axis >= 0; axis-- {
		strides[axis] = currentStride
		currentStride *= s.Dimensions[axis]
	}
	return
}
