// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dtypes includes the DType enum for all element kinds a storage buffer can hold.
//
// It includes converters to/from Go native types (and reflect.Type), and constraint interfaces
// to be used with generics (Supported, Number).
//
// Go has no native 128-bit integers, so the Int128 and Uint128 dtypes are
// represented by the Int128Value and Uint128Value structs.
// They can be stored, but no arithmetic kernel is defined for them.
package dtypes

import (
	"fmt"
	"maps"
	"math/big"
	"reflect"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// panicf panics with the formatted description.
//
// It is only used for "bugs in the code" -- when parameters don't follow the specifications.
// In principle, it should never happen -- the same way nil-pointer panics should never happen.
func panicf(format string, args ...any) {
	panic(errors.Errorf(format, args...))
}

func init() {
	// Add a mapping to the lower-case version of dtypes.
	keys := slices.Collect(maps.Keys(MapOfNames))
	for _, key := range keys {
		lowerKey := strings.ToLower(key)
		if lowerKey == key {
			continue
		}
		if _, found := MapOfNames[lowerKey]; found {
			continue
		}
		MapOfNames[lowerKey] = MapOfNames[key]
	}
}

// String implements fmt.Stringer.
func (dtype DType) String() string {
	if dtype < 0 || dtype >= NumDTypes {
		return fmt.Sprintf("DType(%d)", int32(dtype))
	}
	return dtypeNames[dtype]
}

// IsValid returns whether dtype is one of the known dtypes, excluding InvalidDType.
func (dtype DType) IsValid() bool {
	return dtype > InvalidDType && dtype < NumDTypes
}

// Int128Value is a signed 128-bit integer in two's complement, split in a high and a low word.
// It is the Go representation of the Int128 dtype.
type Int128Value struct {
	Hi int64
	Lo uint64
}

// Uint128Value is an unsigned 128-bit integer, split in a high and a low word.
// It is the Go representation of the Uint128 dtype.
type Uint128Value struct {
	Hi, Lo uint64
}

// Int128FromInt64 sign-extends v into an Int128Value.
func Int128FromInt64(v int64) Int128Value {
	hi := int64(0)
	if v < 0 {
		hi = -1
	}
	return Int128Value{Hi: hi, Lo: uint64(v)}
}

// Uint128FromUint64 zero-extends v into an Uint128Value.
func Uint128FromUint64(v uint64) Uint128Value {
	return Uint128Value{Lo: v}
}

// Big returns the value as a *big.Int.
func (v Int128Value) Big() *big.Int {
	b := new(big.Int).Lsh(big.NewInt(v.Hi), 64)
	return b.Add(b, new(big.Int).SetUint64(v.Lo))
}

// String implements fmt.Stringer.
func (v Int128Value) String() string { return v.Big().String() }

// Big returns the value as a *big.Int.
func (v Uint128Value) Big() *big.Int {
	b := new(big.Int).Lsh(new(big.Int).SetUint64(v.Hi), 64)
	return b.Add(b, new(big.Int).SetUint64(v.Lo))
}

// String implements fmt.Stringer.
func (v Uint128Value) String() string { return v.Big().String() }

// Supported lists the Go types that can back a storage.
// Used as traits for generics.
//
// Go's `int` type is deliberately left out: it is not portable (32 or 64 bits depending on the platform).
type Supported interface {
	bool | float16.Float16 | float32 | float64 |
		int8 | int16 | int32 | int64 | Int128Value |
		uint8 | uint16 | uint32 | uint64 | Uint128Value
}

// Number represents the native Go numeric types corresponding to supported DType's.
// It doesn't include float16.Float16, Int128Value or Uint128Value, since they are not native number types.
type Number interface {
	float32 | float64 | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64
}

// FromGenericsType returns the DType enum for the given type that this package knows about.
func FromGenericsType[T Supported]() DType {
	var t T
	switch (any(t)).(type) {
	case bool:
		return Bool
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case Int128Value:
		return Int128
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case Uint128Value:
		return Uint128
	case float16.Float16:
		return Float16
	case float32:
		return Float32
	case float64:
		return Float64
	}
	return InvalidDType
}

// Pre-generate constant reflect.TypeOf for convenience.
var (
	float16Type = reflect.TypeOf(float16.Float16(0))
	int128Type  = reflect.TypeOf(Int128Value{})
	uint128Type = reflect.TypeOf(Uint128Value{})
)

// FromGoType returns the DType for the given "reflect.Type".
// It returns InvalidDType for types it doesn't know about.
func FromGoType(t reflect.Type) DType {
	if t == nil {
		return InvalidDType
	}
	switch t {
	case float16Type:
		return Float16
	case int128Type:
		return Int128
	case uint128Type:
		return Uint128
	}
	switch t.Kind() {
	case reflect.Bool:
		return Bool
	case reflect.Int8:
		return Int8
	case reflect.Int16:
		return Int16
	case reflect.Int32:
		return Int32
	case reflect.Int64:
		return Int64
	case reflect.Uint8:
		return Uint8
	case reflect.Uint16:
		return Uint16
	case reflect.Uint32:
		return Uint32
	case reflect.Uint64:
		return Uint64
	case reflect.Float32:
		return Float32
	case reflect.Float64:
		return Float64
	default:
		return InvalidDType
	}
}

// FromAny introspects the underlying type of any and returns the corresponding DType.
// Non-scalar types, or unsupported types return an InvalidType.
func FromAny(value any) DType {
	return FromGoType(reflect.TypeOf(value))
}

// GoType returns the Go `reflect.Type` corresponding to the DType.
func (dtype DType) GoType() reflect.Type {
	switch dtype {
	case Bool:
		return reflect.TypeOf(true)
	case Int8:
		return reflect.TypeOf(int8(0))
	case Int16:
		return reflect.TypeOf(int16(0))
	case Int32:
		return reflect.TypeOf(int32(0))
	case Int64:
		return reflect.TypeOf(int64(0))
	case Int128:
		return int128Type
	case Uint8:
		return reflect.TypeOf(uint8(0))
	case Uint16:
		return reflect.TypeOf(uint16(0))
	case Uint32:
		return reflect.TypeOf(uint32(0))
	case Uint64:
		return reflect.TypeOf(uint64(0))
	case Uint128:
		return uint128Type
	case Float16:
		return float16Type
	case Float32:
		return reflect.TypeOf(float32(0))
	case Float64:
		return reflect.TypeOf(float64(0))
	default:
		// This should never happen, except if someone entered an invalid DType number beyond the values
		// defined.
		panicf("unknown dtype %q (%d) in DType.GoType", dtype, dtype)
		panic(nil)
	}
}

// Size returns the number of bytes for the given DType.
func (dtype DType) Size() int {
	return int(dtype.GoType().Size())
}

// Bits returns the number of bits for the given DType.
func (dtype DType) Bits() int {
	return dtype.Size() * 8
}

// Memory returns the number of bytes for the given DType.
// It's an alias to Size, converted to uintptr.
func (dtype DType) Memory() uintptr {
	return uintptr(dtype.Size())
}

// IsFloat returns whether dtype is a float type.
func (dtype DType) IsFloat() bool {
	return dtype == Float16 || dtype == Float32 || dtype == Float64
}

// IsInt returns whether dtype is an integer type, signed or unsigned, including the 128-bit ones.
func (dtype DType) IsInt() bool {
	switch dtype {
	case Int8, Int16, Int32, Int64, Int128, Uint8, Uint16, Uint32, Uint64, Uint128:
		return true
	}
	return false
}

// IsUnsigned returns whether dtype is one of the unsigned integer types.
func (dtype DType) IsUnsigned() bool {
	switch dtype {
	case Uint8, Uint16, Uint32, Uint64, Uint128:
		return true
	}
	return false
}
