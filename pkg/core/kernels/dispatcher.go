// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"github.com/binah-ml/binah/pkg/core/dtypes"
	"github.com/binah-ml/binah/pkg/core/shapes"
	"github.com/binah-ml/binah/pkg/core/tensors"
	"github.com/gomlx/exceptions"
)

// BinaryFn is the type of the per-dtype functions handled by the DTypeDispatcher: they take the two
// operands (already checked to share the same dtype) and the output shape, and return a newly
// allocated output storage.
type BinaryFn func(lhs, rhs *tensors.Storage, outputShape shapes.Shape) *tensors.Storage

// DTypeDispatcher maps each dtype to the implementation of one operation.
type DTypeDispatcher struct {
	Name  string
	fnMap [dtypes.NumDTypes]BinaryFn
}

// NewDTypeDispatcher creates a new dispatcher for a class of functions.
func NewDTypeDispatcher(name string) *DTypeDispatcher {
	return &DTypeDispatcher{
		Name: name,
	}
}

// Dispatch calls the function registered for dtype.
//
// It panics if no function was registered for dtype.
func (d *DTypeDispatcher) Dispatch(dtype dtypes.DType, lhs, rhs *tensors.Storage, outputShape shapes.Shape) *tensors.Storage {
	if !dtype.IsValid() {
		exceptions.Panicf("dtype %s not supported by %s", dtype, d.Name)
	}
	fn := d.fnMap[dtype]
	if fn == nil {
		exceptions.Panicf("dtype %s not supported by %s", dtype, d.Name)
	}
	return fn(lhs, rhs, outputShape)
}

// Register a function to handle a specific dtype.
// This overwrites any previous setting for the same dtype.
func (d *DTypeDispatcher) Register(dtype dtypes.DType, fn BinaryFn) {
	if !dtype.IsValid() {
		exceptions.Panicf("dtype %s not supported by %s", dtype, d.Name)
	}
	d.fnMap[dtype] = fn
}

// Supports returns whether a function is registered for dtype.
func (d *DTypeDispatcher) Supports(dtype dtypes.DType) bool {
	return dtype.IsValid() && d.fnMap[dtype] != nil
}
