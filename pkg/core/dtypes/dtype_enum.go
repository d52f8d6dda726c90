// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

// DType is an enum that represents the element kind of a storage buffer or a scalar.
//
// The set is closed: storages and kernels switch over it exhaustively.
type DType int32

const (
	// InvalidDType is the zero value, used for uninitialized storages.
	InvalidDType DType = iota

	// Bool holds two-state predicates. Storage only.
	Bool

	// Int8 and the following are signed integral values of fixed width.
	Int8
	Int16
	Int32
	Int64

	// Int128 is a signed 128-bit integer, represented in Go by the Int128Value struct. Storage only.
	Int128

	// Uint8 and the following are unsigned integral values of fixed width.
	Uint8
	Uint16
	Uint32
	Uint64

	// Uint128 is an unsigned 128-bit integer, represented in Go by the Uint128Value struct. Storage only.
	Uint128

	// Float16 is the IEEE half precision float, backed by github.com/x448/float16.
	Float16

	// Float32 is the reference dtype: every kernel supports it.
	Float32

	// Float64 is the IEEE double precision float.
	Float64

	// NumDTypes is the number of dtypes, including InvalidDType. Not a valid DType.
	NumDTypes
)

// Aliases, following the short names used by XLA.
const (
	PRED = Bool
	S8   = Int8
	S16  = Int16
	S32  = Int32
	S64  = Int64
	S128 = Int128
	U8   = Uint8
	U16  = Uint16
	U32  = Uint32
	U64  = Uint64
	U128 = Uint128
	F16  = Float16
	F32  = Float32
	F64  = Float64
)

var dtypeNames = [NumDTypes]string{
	InvalidDType: "InvalidDType",
	Bool:         "Bool",
	Int8:         "Int8",
	Int16:        "Int16",
	Int32:        "Int32",
	Int64:        "Int64",
	Int128:       "Int128",
	Uint8:        "Uint8",
	Uint16:       "Uint16",
	Uint32:       "Uint32",
	Uint64:       "Uint64",
	Uint128:      "Uint128",
	Float16:      "Float16",
	Float32:      "Float32",
	Float64:      "Float64",
}

// MapOfNames to their dtypes. It includes also aliases to the various dtypes.
// It is also later initialized to include the lower-case version of the names.
var MapOfNames = map[string]DType{
	"InvalidDType": InvalidDType,
	"Bool":         Bool,
	"PRED":         Bool,
	"Int8":         Int8,
	"S8":           Int8,
	"Int16":        Int16,
	"S16":          Int16,
	"Int32":        Int32,
	"S32":          Int32,
	"Int64":        Int64,
	"S64":          Int64,
	"Int128":       Int128,
	"S128":         Int128,
	"Uint8":        Uint8,
	"U8":           Uint8,
	"Uint16":       Uint16,
	"U16":          Uint16,
	"Uint32":       Uint32,
	"U32":          Uint32,
	"Uint64":       Uint64,
	"U64":          Uint64,
	"Uint128":      Uint128,
	"U128":         Uint128,
	"Float16":      Float16,
	"F16":          Float16,
	"Float32":      Float32,
	"F32":          Float32,
	"Float64":      Float64,
	"F64":          Float64,
}
