// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/x448/float16"
)

// MaxSizeToPrint is the largest number of elements String will print. Larger storages only print
// their dtype, shape and memory usage.
var MaxSizeToPrint = 64

// String implements fmt.Stringer. It prints the dtype, shape and, for small storages, the values.
func (s *Storage) String() string {
	if s == nil {
		return "Storage(nil)"
	}
	if s.Size() > MaxSizeToPrint {
		return fmt.Sprintf("Storage(%s)%s: (%s)", s.dtype, s.shape, humanize.Bytes(uint64(s.Memory())))
	}
	return fmt.Sprintf("Storage(%s)%s: %s", s.dtype, s.shape, s.Summary())
}

// Summary returns the values of the storage formatted as nested brackets, one level per axis.
// E.g.: "[[1 2] [3 4]]" for a 2x2 matrix, or "7" for a scalar.
func (s *Storage) Summary() string {
	flatV := reflect.ValueOf(s.flat)
	if s.IsScalar() {
		return formatValue(flatV.Index(0))
	}
	if s.shape.IsZeroSize() {
		return strings.Repeat("[", s.Rank()) + strings.Repeat("]", s.Rank())
	}
	var sb strings.Builder
	rank := s.Rank()
	dims := s.shape.Dimensions
	for flatIdx, indices := range s.shape.Iter() {
		if flatIdx > 0 {
			sb.WriteByte(' ')
		}
		for axis := rank - 1; axis >= 0 && indices[axis] == 0; axis-- {
			sb.WriteByte('[')
		}
		sb.WriteString(formatValue(flatV.Index(flatIdx)))
		for axis := rank - 1; axis >= 0 && indices[axis] == dims[axis]-1; axis-- {
			sb.WriteByte(']')
		}
	}
	return sb.String()
}

func formatValue(v reflect.Value) string {
	switch value := v.Interface().(type) {
	case float16.Float16:
		return fmt.Sprintf("%g", value.Float32())
	case float32, float64:
		return fmt.Sprintf("%g", value)
	default:
		return fmt.Sprintf("%v", value)
	}
}
