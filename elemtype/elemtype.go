// Package elemtype describes the element types carried by generator
// arguments and the raw scalar union used to record their default and bound
// values.
package elemtype

import (
	"errors"
	"fmt"
)

// Code is the numeric class of an element type. The values are part of the
// metadata ABI and must not be renumbered.
type Code uint8

const (
	CodeInt    Code = 0
	CodeUInt   Code = 1
	CodeFloat  Code = 2
	CodeHandle Code = 3
)

// String returns the ABI name of the code.
func (c Code) String() string {
	switch c {
	case CodeInt:
		return "int"
	case CodeUInt:
		return "uint"
	case CodeFloat:
		return "float"
	case CodeHandle:
		return "handle"
	}
	return fmt.Sprintf("Code(%d)", uint8(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ErrUnknownType is returned by Parse for names outside the supported set.
var ErrUnknownType = errors.New("unknown element type")

// Type is an element type: a code plus a bit width. Bool is represented as
// a one-bit unsigned integer.
type Type struct {
	Code Code
	Bits uint8
}

func Int(bits int) Type   { return Type{Code: CodeInt, Bits: uint8(bits)} }
func UInt(bits int) Type  { return Type{Code: CodeUInt, Bits: uint8(bits)} }
func Float(bits int) Type { return Type{Code: CodeFloat, Bits: uint8(bits)} }
func Bool() Type          { return Type{Code: CodeUInt, Bits: 1} }
func Handle() Type        { return Type{Code: CodeHandle, Bits: 64} }

// Names lists every parseable element type name in canonical order.
var Names = []string{
	"bool",
	"int8", "int16", "int32", "int64",
	"uint8", "uint16", "uint32", "uint64",
	"float32", "float64",
}

// Parse converts a canonical type name such as "uint8" or "float32".
func Parse(s string) (Type, error) {
	switch s {
	case "bool":
		return Bool(), nil
	case "int8":
		return Int(8), nil
	case "int16":
		return Int(16), nil
	case "int32":
		return Int(32), nil
	case "int64":
		return Int(64), nil
	case "uint8":
		return UInt(8), nil
	case "uint16":
		return UInt(16), nil
	case "uint32":
		return UInt(32), nil
	case "uint64":
		return UInt(64), nil
	case "float32":
		return Float(32), nil
	case "float64":
		return Float(64), nil
	case "handle":
		return Handle(), nil
	}
	return Type{}, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// IsBool reports whether t is the one-bit unsigned type.
func (t Type) IsBool() bool { return t.Code == CodeUInt && t.Bits == 1 }

// Valid reports whether t is one of the supported code and width pairs.
func (t Type) Valid() bool {
	switch t.Code {
	case CodeInt:
		return t.Bits == 8 || t.Bits == 16 || t.Bits == 32 || t.Bits == 64
	case CodeUInt:
		return t.Bits == 1 || t.Bits == 8 || t.Bits == 16 || t.Bits == 32 || t.Bits == 64
	case CodeFloat:
		return t.Bits == 32 || t.Bits == 64
	case CodeHandle:
		return t.Bits == 64
	}
	return false
}

// Bytes is the storage size of one element.
func (t Type) Bytes() int {
	if t.Bits < 8 {
		return 1
	}
	return int(t.Bits) / 8
}

func (t Type) String() string {
	switch {
	case t.IsBool():
		return "bool"
	case t.Code == CodeHandle:
		return "handle"
	}
	return fmt.Sprintf("%s%d", t.Code, t.Bits)
}

// GoType names the Go type that holds one element of t.
func (t Type) GoType() string {
	switch {
	case t.IsBool():
		return "bool"
	case t.Code == CodeHandle:
		return "uintptr"
	}
	return t.String()
}

// CType names the C type that holds one element of t.
func (t Type) CType() string {
	switch {
	case t.IsBool():
		return "bool"
	case t.Code == CodeHandle:
		return "void *"
	case t.Code == CodeFloat && t.Bits == 32:
		return "float"
	case t.Code == CodeFloat:
		return "double"
	}
	return fmt.Sprintf("%s%d_t", t.Code, t.Bits)
}
