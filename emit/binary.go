package emit

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/vk/kernelgen/argument"
	"github.com/vk/kernelgen/elemtype"
)

// The binary record is little-endian. Strings are a u32 byte length
// followed by the bytes. Integers are i32. Each optional scalar is a u8
// presence flag followed by the 8-byte raw union, which is zero when
// absent.
//
//	record:   name target num_arguments:i32 argument*
//	argument: name kind:i32 dimensions:i32 type_code:i32 type_bits:i32 def min max

// MarshalBinary implements encoding.BinaryMarshaler.
func (m *Metadata) MarshalBinary() ([]byte, error) {
	if int(m.NumArguments) != len(m.Arguments) {
		return nil, &Error{Op: "marshal", Err: fmt.Errorf("%w: %d arguments, count says %d", ErrMalformed, len(m.Arguments), m.NumArguments)}
	}
	var buf bytes.Buffer
	w := &writer{buf: &buf}
	w.string(m.Name)
	w.string(m.Target)
	w.i32(m.NumArguments)
	for _, a := range m.Arguments {
		w.string(a.Name)
		w.i32(int32(a.Kind))
		w.i32(a.Dimensions)
		w.i32(int32(a.TypeCode))
		w.i32(a.TypeBits)
		w.scalar(a.Def)
		w.scalar(a.Min)
		w.scalar(a.Max)
	}
	return buf.Bytes(), nil
}

type writer struct {
	buf *bytes.Buffer
}

func (w *writer) i32(v int32) {
	_ = binary.Write(w.buf, binary.LittleEndian, v)
}

func (w *writer) string(s string) {
	_ = binary.Write(w.buf, binary.LittleEndian, uint32(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) scalar(s *elemtype.Scalar) {
	var raw [8]byte
	if s == nil {
		w.buf.WriteByte(0)
	} else {
		w.buf.WriteByte(1)
		raw = s.Raw()
	}
	w.buf.Write(raw[:])
}

// UnmarshalMetadata decodes a record written by MarshalBinary.
func UnmarshalMetadata(data []byte) (*Metadata, error) {
	r := &reader{r: bytes.NewReader(data)}
	m := &Metadata{
		Name:         r.string(),
		Target:       r.string(),
		NumArguments: r.i32(),
	}
	if r.err == nil && (m.NumArguments < 0 || int64(m.NumArguments) > int64(len(data))) {
		r.err = fmt.Errorf("argument count %d", m.NumArguments)
	}
	for i := int32(0); r.err == nil && i < m.NumArguments; i++ {
		a := Argument{
			Name:       r.string(),
			Kind:       argument.Kind(r.i32()),
			Dimensions: r.i32(),
			TypeCode:   elemtype.Code(r.i32()),
			TypeBits:   r.i32(),
		}
		t := a.Type()
		a.Def = r.scalar(t)
		a.Min = r.scalar(t)
		a.Max = r.scalar(t)
		m.Arguments = append(m.Arguments, a)
	}
	if r.err == nil && r.r.Len() != 0 {
		r.err = fmt.Errorf("%d trailing bytes", r.r.Len())
	}
	if r.err != nil {
		return nil, &Error{Op: "unmarshal", Err: fmt.Errorf("%w: %w", ErrMalformed, r.err)}
	}
	return m, nil
}

// reader keeps the first error so decoding reads straight through.
type reader struct {
	r   *bytes.Reader
	err error
}

func (r *reader) read(v any) {
	if r.err != nil {
		return
	}
	if err := binary.Read(r.r, binary.LittleEndian, v); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		r.err = err
	}
}

func (r *reader) i32() int32 {
	var v int32
	r.read(&v)
	return v
}

func (r *reader) string() string {
	var n uint32
	r.read(&n)
	if r.err != nil {
		return ""
	}
	if int64(n) > int64(r.r.Len()) || n > math.MaxInt32 {
		r.err = fmt.Errorf("string length %d: %w", n, io.ErrUnexpectedEOF)
		return ""
	}
	b := make([]byte, n)
	r.read(b)
	return string(b)
}

func (r *reader) scalar(t elemtype.Type) *elemtype.Scalar {
	var present uint8
	var raw [8]byte
	r.read(&present)
	r.read(&raw)
	switch {
	case r.err != nil:
		return nil
	case present == 0:
		return nil
	case present != 1:
		r.err = fmt.Errorf("presence flag %d", present)
		return nil
	}
	s := elemtype.ScalarFromRaw(t, raw)
	return &s
}
