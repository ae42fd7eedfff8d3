package elemtype

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrNotRepresentable is returned when a Go value does not fit the target
// element type.
var ErrNotRepresentable = errors.New("value not representable")

// Scalar is a raw eight-byte scalar union tagged with its element type. The
// payload is stored little-endian in the low bytes, matching the layout a
// native caller reads.
type Scalar struct {
	Type Type
	raw  [8]byte
}

// ScalarFromRaw rebuilds a Scalar from its tag and raw payload.
func ScalarFromRaw(t Type, raw [8]byte) Scalar {
	return Scalar{Type: t, raw: raw}
}

func fromBits(t Type, bits uint64) Scalar {
	s := Scalar{Type: t}
	binary.LittleEndian.PutUint64(s.raw[:], bits)
	return s
}

// IntScalar stores v as a signed integer of type t.
func IntScalar(t Type, v int64) Scalar {
	return fromBits(t, uint64(v)&mask(t.Bits))
}

// UIntScalar stores v as an unsigned integer of type t.
func UIntScalar(t Type, v uint64) Scalar {
	return fromBits(t, v&mask(t.Bits))
}

// FloatScalar stores v as a float of type t.
func FloatScalar(t Type, v float64) Scalar {
	if t.Bits == 32 {
		return fromBits(t, uint64(math.Float32bits(float32(v))))
	}
	return fromBits(t, math.Float64bits(v))
}

// BoolScalar stores v as the one-bit type.
func BoolScalar(v bool) Scalar {
	if v {
		return fromBits(Bool(), 1)
	}
	return fromBits(Bool(), 0)
}

func mask(bits uint8) uint64 {
	if bits >= 64 {
		return math.MaxUint64
	}
	return (uint64(1) << bits) - 1
}

// MakeScalar converts an arbitrary Go numeric or bool value into a Scalar of
// type t, rejecting values that do not fit.
func MakeScalar(t Type, v any) (Scalar, error) {
	if !t.Valid() || t.Code == CodeHandle {
		return Scalar{}, fmt.Errorf("%w: type %s cannot hold a scalar default", ErrNotRepresentable, t)
	}
	if t.IsBool() {
		b, ok := v.(bool)
		if !ok {
			return Scalar{}, fmt.Errorf("%w: %v (%T) as bool", ErrNotRepresentable, v, v)
		}
		return BoolScalar(b), nil
	}

	var (
		i     int64
		u     uint64
		f     float64
		isInt bool
		isU   bool
	)
	switch x := v.(type) {
	case int:
		i, isInt = int64(x), true
	case int8:
		i, isInt = int64(x), true
	case int16:
		i, isInt = int64(x), true
	case int32:
		i, isInt = int64(x), true
	case int64:
		i, isInt = x, true
	case uint:
		u, isU = uint64(x), true
	case uint8:
		u, isU = uint64(x), true
	case uint16:
		u, isU = uint64(x), true
	case uint32:
		u, isU = uint64(x), true
	case uint64:
		u, isU = x, true
	case float32:
		f = float64(x)
	case float64:
		f = x
	default:
		return Scalar{}, fmt.Errorf("%w: %v (%T) as %s", ErrNotRepresentable, v, v, t)
	}

	switch t.Code {
	case CodeFloat:
		switch {
		case isInt:
			f = float64(i)
		case isU:
			f = float64(u)
		}
		if t.Bits == 32 && !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return Scalar{}, fmt.Errorf("%w: %v as %s", ErrNotRepresentable, v, t)
		}
		return FloatScalar(t, f), nil
	case CodeInt:
		if isU {
			if u > math.MaxInt64 {
				return Scalar{}, fmt.Errorf("%w: %v as %s", ErrNotRepresentable, v, t)
			}
			i, isInt = int64(u), true
		}
		if !isInt {
			// Outside [-2^63, 2^63) the conversion is implementation-defined.
			if math.IsInf(f, 0) || f != math.Trunc(f) || f < math.MinInt64 || f >= 1<<63 {
				return Scalar{}, fmt.Errorf("%w: %v as %s", ErrNotRepresentable, v, t)
			}
			i = int64(f)
		}
		lo, hi := IntRange(t.Bits)
		if i < lo || i > hi {
			return Scalar{}, fmt.Errorf("%w: %v as %s", ErrNotRepresentable, v, t)
		}
		return IntScalar(t, i), nil
	default:
		if isInt {
			if i < 0 {
				return Scalar{}, fmt.Errorf("%w: %v as %s", ErrNotRepresentable, v, t)
			}
			u, isU = uint64(i), true
		}
		if !isU {
			if math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) || f >= 1<<64 {
				return Scalar{}, fmt.Errorf("%w: %v as %s", ErrNotRepresentable, v, t)
			}
			u = uint64(f)
		}
		if u > mask(t.Bits) {
			return Scalar{}, fmt.Errorf("%w: %v as %s", ErrNotRepresentable, v, t)
		}
		return UIntScalar(t, u), nil
	}
}

// IntRange returns the inclusive range of a signed integer of the given width.
func IntRange(bits uint8) (int64, int64) {
	if bits >= 64 {
		return math.MinInt64, math.MaxInt64
	}
	hi := int64(1)<<(bits-1) - 1
	return -hi - 1, hi
}

// UIntMax returns the largest unsigned integer of the given width.
func UIntMax(bits uint8) uint64 { return mask(bits) }

// Raw returns the eight payload bytes.
func (s Scalar) Raw() [8]byte { return s.raw }

// Bits returns the payload as an unsigned 64-bit word.
func (s Scalar) Bits() uint64 { return binary.LittleEndian.Uint64(s.raw[:]) }

// Int returns the payload sign-extended from the tagged width.
func (s Scalar) Int() int64 {
	b := s.Type.Bits
	if b >= 64 {
		return int64(s.Bits())
	}
	shift := 64 - b
	return int64(s.Bits()<<shift) >> shift
}

// UInt returns the payload as an unsigned integer.
func (s Scalar) UInt() uint64 { return s.Bits() & mask(s.Type.Bits) }

// Float returns the payload as a float64.
func (s Scalar) Float() float64 {
	if s.Type.Bits == 32 {
		return float64(math.Float32frombits(uint32(s.Bits())))
	}
	return math.Float64frombits(s.Bits())
}

// Bool returns the payload as a bool.
func (s Scalar) Bool() bool { return s.Bits()&1 == 1 }

// Equal compares tag and payload.
func (s Scalar) Equal(o Scalar) bool {
	return s.Type == o.Type && s.raw == o.raw
}

// EqualPtr compares two optional scalars. An absent scalar only equals
// another absent scalar.
func EqualPtr(a, b *Scalar) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (s Scalar) String() string {
	switch {
	case s.Type.IsBool():
		return strconv.FormatBool(s.Bool())
	case s.Type.Code == CodeInt:
		return strconv.FormatInt(s.Int(), 10)
	case s.Type.Code == CodeUInt:
		return strconv.FormatUint(s.UInt(), 10)
	case s.Type.Code == CodeFloat:
		return strconv.FormatFloat(s.Float(), 'g', -1, int(s.Type.Bits))
	}
	return fmt.Sprintf("0x%016x", s.Bits())
}

// MarshalJSON encodes the scalar as its natural JSON value. Non-finite
// floats are encoded as strings.
func (s Scalar) MarshalJSON() ([]byte, error) {
	switch {
	case s.Type.IsBool():
		return json.Marshal(s.Bool())
	case s.Type.Code == CodeInt:
		return json.Marshal(s.Int())
	case s.Type.Code == CodeUInt:
		return json.Marshal(s.UInt())
	case s.Type.Code == CodeFloat:
		f := s.Float()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return json.Marshal(s.String())
		}
		return json.Marshal(f)
	}
	return json.Marshal(s.String())
}
