// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implements Storage, a dense, row-major, in-memory buffer of values of one element kind
// (see dtypes.DType), tagged with its own shape.
//
// Storages are the concrete values of a computation graph: constants and variables are materialized as
// storages when the graph is built, placeholders are bound to storages when a compiled graph is executed,
// and executions return storages for their outputs.
//
// There are various ways to construct a Storage:
//
//   - FromShape(dtype, shape): a storage of the given shape filled with zero values.
//
//   - FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int): a storage with the
//     given dimensions, filled with the scalar value given.
//
//   - FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int): a storage with the
//     given dimensions and the flattened values in data. Example:
//
//     s := FromFlatDataAndDimensions([]float32{1, 2, 3, 4}, 2, 2) // Storage with [[1,2], [3,4]]
//
//   - FromAnyFlat(flat any, shape): same as FromFlatDataAndShape, but non-generic.
//
// A Storage is immutable once created: the constructors copy the given data, and the kernels allocate new
// storages for their results. This allows executions to share storages without copying them.
package tensors

import (
	"reflect"
	"slices"

	"github.com/binah-ml/binah/pkg/core/dtypes"
	"github.com/binah-ml/binah/pkg/core/shapes"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Storage holds the flat values of a tensor, tagged with its dtype and shape.
//
// The flat slice is always of type []T, where T is the Go type of the dtype (see dtypes.DType.GoType),
// and its length is always equal to the shape's Size.
type Storage struct {
	dtype dtypes.DType
	shape shapes.Shape
	flat  any
}

// FromFlatDataAndDimensions returns a Storage with the given dimensions, holding a copy of data.
//
// It panics if len(data) doesn't match the number of elements of the dimensions.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) *Storage {
	return FromFlatDataAndShape(data, shapes.Make(dimensions...))
}

// FromFlatDataAndShape returns a Storage with the given shape, holding a copy of data.
//
// It panics if len(data) doesn't match shape.Size().
func FromFlatDataAndShape[T dtypes.Supported](data []T, shape shapes.Shape) *Storage {
	if len(data) != shape.Size() {
		exceptions.Panicf("tensors.FromFlatDataAndShape: data has %d elements, but shape %s requires %d",
			len(data), shape, shape.Size())
	}
	return &Storage{
		dtype: dtypes.FromGenericsType[T](),
		shape: shape.Clone(),
		flat:  slices.Clone(data),
	}
}

// FromScalar returns a scalar Storage holding value.
func FromScalar[T dtypes.Supported](value T) *Storage {
	return FromScalarAndDimensions(value)
}

// FromScalarAndDimensions returns a Storage with the given dimensions, with every element set to value.
func FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int) *Storage {
	shape := shapes.Make(dimensions...)
	flat := make([]T, shape.Size())
	for ii := range flat {
		flat[ii] = value
	}
	return &Storage{dtype: dtypes.FromGenericsType[T](), shape: shape, flat: flat}
}

// FromShape returns a Storage of the given dtype and shape, with zero values.
func FromShape(dtype dtypes.DType, shape shapes.Shape) *Storage {
	if !dtype.IsValid() {
		exceptions.Panicf("tensors.FromShape: invalid dtype %s", dtype)
	}
	flat := reflect.MakeSlice(reflect.SliceOf(dtype.GoType()), shape.Size(), shape.Size())
	return &Storage{dtype: dtype, shape: shape.Clone(), flat: flat.Interface()}
}

// FromAnyFlat returns a Storage with the given shape holding a copy of flat, which must be a slice
// of one of the dtypes.Supported types.
//
// It returns an error if flat is not a supported slice, or if its length doesn't match the shape.
func FromAnyFlat(flat any, shape shapes.Shape) (*Storage, error) {
	flatV := reflect.ValueOf(flat)
	if flatV.Kind() != reflect.Slice {
		return nil, errors.Errorf("tensors.FromAnyFlat: expected a slice, got %T", flat)
	}
	dtype := dtypes.FromGoType(flatV.Type().Elem())
	if dtype == dtypes.InvalidDType || flatV.Type().Elem() != dtype.GoType() {
		return nil, errors.Errorf("tensors.FromAnyFlat: unsupported element type in %T", flat)
	}
	if flatV.Len() != shape.Size() {
		return nil, errors.Errorf("tensors.FromAnyFlat: flat has %d elements, but shape %s requires %d",
			flatV.Len(), shape, shape.Size())
	}
	flatCopy := reflect.MakeSlice(flatV.Type(), flatV.Len(), flatV.Len())
	reflect.Copy(flatCopy, flatV)
	return &Storage{dtype: dtype, shape: shape.Clone(), flat: flatCopy.Interface()}, nil
}

// newStorage wraps flat without copying. Used by constructors in this module that own flat.
func newStorage[T dtypes.Supported](flat []T, shape shapes.Shape) *Storage {
	return &Storage{dtype: dtypes.FromGenericsType[T](), shape: shape, flat: flat}
}

// Wrap returns a Storage that takes ownership of flat, without copying it.
// The caller must not change flat afterward.
//
// It is meant for kernels that allocate their output buffers.
func Wrap[T dtypes.Supported](flat []T, shape shapes.Shape) *Storage {
	if len(flat) != shape.Size() {
		exceptions.Panicf("tensors.Wrap: flat has %d elements, but shape %s requires %d",
			len(flat), shape, shape.Size())
	}
	return newStorage(flat, shape.Clone())
}

// DType returns the element kind of the storage.
func (s *Storage) DType() dtypes.DType {
	if s == nil {
		return dtypes.InvalidDType
	}
	return s.dtype
}

// Shape of the storage. The returned shape must not be modified.
func (s *Storage) Shape() shapes.Shape { return s.shape }

// Rank returns the rank of the storage's shape.
func (s *Storage) Rank() int { return s.shape.Rank() }

// IsScalar returns whether the storage holds a scalar value.
func (s *Storage) IsScalar() bool { return s.shape.IsScalar() }

// Size returns the number of elements in the storage.
func (s *Storage) Size() int { return s.shape.Size() }

// Memory returns the number of bytes used to store the values.
func (s *Storage) Memory() uintptr {
	return s.dtype.Memory() * uintptr(s.Size())
}

// Flat returns the underlying flat slice ([]T for the storage's dtype).
//
// It is not a copy: the caller must not modify it.
func (s *Storage) Flat() any { return s.flat }

// Clone returns a deep copy of the storage.
func (s *Storage) Clone() *Storage {
	flatV := reflect.ValueOf(s.flat)
	flatCopy := reflect.MakeSlice(flatV.Type(), flatV.Len(), flatV.Len())
	reflect.Copy(flatCopy, flatV)
	return &Storage{dtype: s.dtype, shape: s.shape.Clone(), flat: flatCopy.Interface()}
}

// ConstFlatData calls accessFn with the flat values of the storage, without copying.
// accessFn must not modify the values.
//
// It panics if T doesn't match the storage's dtype.
func ConstFlatData[T dtypes.Supported](s *Storage, accessFn func(flat []T)) {
	flat, ok := s.flat.([]T)
	if !ok {
		exceptions.Panicf("tensors.ConstFlatData[%s]: storage has dtype %s",
			dtypes.FromGenericsType[T](), s.dtype)
	}
	accessFn(flat)
}

// CopyFlatData returns a copy of the flat values of the storage.
//
// It panics if T doesn't match the storage's dtype.
func CopyFlatData[T dtypes.Supported](s *Storage) (flat []T) {
	ConstFlatData(s, func(values []T) { flat = slices.Clone(values) })
	return
}

// ToScalar returns the single value of a storage with one element.
//
// It panics if T doesn't match the storage's dtype, or if the storage doesn't have exactly one element.
func ToScalar[T dtypes.Supported](s *Storage) (value T) {
	if s.Size() != 1 {
		exceptions.Panicf("tensors.ToScalar: storage of shape %s has %d elements", s.shape, s.Size())
	}
	ConstFlatData(s, func(flat []T) { value = flat[0] })
	return
}

// Equal returns whether s and other have the same dtype, shape and values.
// Float NaN values are never equal, as usual.
func (s *Storage) Equal(other *Storage) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.dtype != other.dtype || !s.shape.Equal(other.shape) {
		return false
	}
	return reflect.DeepEqual(s.flat, other.flat)
}

// InDelta returns whether s and other have the same dtype and shape, and whether every pair of
// values differs by at most delta. It only works for numeric dtypes (not Bool or the 128-bit integers).
func (s *Storage) InDelta(other *Storage, delta float64) bool {
	if s.dtype != other.dtype || !s.shape.Equal(other.shape) {
		return false
	}
	values, ok := asFloat64(s)
	if !ok {
		return false
	}
	otherValues, _ := asFloat64(other)
	for ii, v := range values {
		diff := v - otherValues[ii]
		if v == otherValues[ii] {
			continue
		}
		if !(diff <= delta && diff >= -delta) {
			return false
		}
	}
	return true
}

// asFloat64 converts the values of a numeric storage to float64.
func asFloat64(s *Storage) ([]float64, bool) {
	switch flat := s.flat.(type) {
	case []float16.Float16:
		values := make([]float64, len(flat))
		for ii, v := range flat {
			values[ii] = float64(v.Float32())
		}
		return values, true
	case []float32:
		return convertToFloat64(flat), true
	case []float64:
		return slices.Clone(flat), true
	case []int8:
		return convertToFloat64(flat), true
	case []int16:
		return convertToFloat64(flat), true
	case []int32:
		return convertToFloat64(flat), true
	case []int64:
		return convertToFloat64(flat), true
	case []uint8:
		return convertToFloat64(flat), true
	case []uint16:
		return convertToFloat64(flat), true
	case []uint32:
		return convertToFloat64(flat), true
	case []uint64:
		return convertToFloat64(flat), true
	}
	return nil, false
}

func convertToFloat64[T dtypes.Number](flat []T) []float64 {
	values := make([]float64, len(flat))
	for ii, v := range flat {
		values[ii] = float64(v)
	}
	return values
}
