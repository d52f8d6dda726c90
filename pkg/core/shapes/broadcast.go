// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"github.com/pkg/errors"
)

// ErrIncompatibleShapes is returned (wrapped) when two shapes cannot be broadcast together.
var ErrIncompatibleShapes = errors.New("incompatible shapes")

// BroadcastWith returns the shape resulting from broadcasting s and other, using the NumPy rules:
// the dimensions are right-aligned (the shorter shape is padded on the left with axes of dimension 1),
// and each aligned pair of dimensions must be equal, or one of them must be 1. The resulting dimension
// is the largest of the pair.
//
// It is symmetric: s.BroadcastWith(other) == other.BroadcastWith(s).
//
// It returns an error wrapping ErrIncompatibleShapes for any other pairing.
func (s Shape) BroadcastWith(other Shape) (Shape, error) {
	rank := max(s.Rank(), other.Rank())
	output := Shape{Dimensions: make([]int, rank)}
	for i := range rank {
		dim := alignedDim(s, rank, i)
		otherDim := alignedDim(other, rank, i)
		switch {
		case dim == otherDim:
			output.Dimensions[i] = dim
		case dim == 1:
			output.Dimensions[i] = otherDim
		case otherDim == 1:
			output.Dimensions[i] = dim
		default:
			return Shape{}, errors.Wrapf(ErrIncompatibleShapes,
				"cannot broadcast %s with %s: axis %d (aligned to the right) has dimensions %d and %d",
				s, other, i, dim, otherDim)
		}
	}
	return output, nil
}

// alignedDim returns the dimension of s for axis i of a right-aligned shape of the given rank,
// or 1 if s doesn't have that axis.
func alignedDim(s Shape, rank, i int) int {
	offset := rank - s.Rank()
	if i < offset {
		return 1
	}
	return s.Dimensions[i-offset]
}

// CanBroadcastWith returns whether s and other are broadcast-compatible.
func (s Shape) CanBroadcastWith(other Shape) bool {
	_, err := s.BroadcastWith(other)
	return err == nil
}

// BroadcastStrides returns one stride per axis of target, that can be used to iterate over the
// elements of a buffer of shape s as if it had the target shape, without copying it.
//
// Alignment is right-to-left. An axis of s with dimension 1 broadcast to a larger target dimension
// gets stride 0 (the same element is repeated), and so do the leading target axes that s doesn't have.
// Every other axis gets the contiguous (row-major) stride of s.
//
// It returns an error if s is not broadcast-compatible with target, or if target has a smaller rank.
func (s Shape) BroadcastStrides(target Shape) ([]int, error) {
	if !s.CanBroadcastWith(target) {
		return nil, errors.Wrapf(ErrIncompatibleShapes, "cannot compute broadcast strides of %s into %s", s, target)
	}
	if s.Rank() > target.Rank() {
		return nil, errors.Wrapf(ErrIncompatibleShapes,
			"cannot compute broadcast strides of %s into %s with a smaller rank", s, target)
	}
	selfStrides := s.Strides()
	strides := make([]int, target.Rank())
	offset := target.Rank() - s.Rank()
	for axis, dim := range s.Dimensions {
		targetAxis := offset + axis
		if dim == 1 && target.Dimensions[targetAxis] != 1 {
			strides[targetAxis] = 0
		} else {
			strides[targetAxis] = selfStrides[axis]
		}
	}
	return strides, nil
}

// FlatIndex converts the linearIdx position in a row-major buffer of the given dimensions to the
// flat index in a buffer addressed by strides (typically returned by BroadcastStrides).
//
// It decomposes linearIdx into per-axis coordinates by successive modulo and division, starting from
// the rightmost axis, and returns the dot-product of the coordinates with strides.
//
// It requires len(strides) == len(dims).
func FlatIndex(linearIdx int, strides, dims []int) int {
	idx := 0
	for axis := len(dims) - 1; axis >= 0; axis-- {
		dim := dims[axis]
		coord := linearIdx % dim
		linearIdx /= dim
		idx += coord * strides[axis]
	}
	return idx
}
