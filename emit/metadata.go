// Package emit produces the artifacts of a built generator instance: the
// metadata record that describes its compiled function, the binary and C
// forms of that record, a Go wrapper for composing it into other
// generators, and a text dump of its pipeline.
//
// The argument order of every artifact is the calling convention of the
// compiled function: the user context handle first when declared, then the
// inputs in declaration order, then the outputs in declaration order.
// Arrays are flattened in index order and tuple outputs contribute one row
// per component.
package emit

import (
	"errors"
	"fmt"

	"github.com/vk/kernelgen/argument"
	"github.com/vk/kernelgen/elemtype"
	"github.com/vk/kernelgen/generator"
	"github.com/vk/kernelgen/internal/ident"
	"github.com/vk/kernelgen/pipeline"
)

var (
	ErrNotBuilt    = errors.New("instance is not built")
	ErrInvalidName = errors.New("invalid name")
	ErrMalformed   = errors.New("malformed metadata record")
)

// Error reports a failed emission.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("emit %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// UserContextName names the implicit first argument of generators that
// declare a user context.
const UserContextName = "__user_context"

// Argument is one row of the metadata record. Def, Min and Max are nil
// when absent, which is distinct from a present zero.
type Argument struct {
	Name       string           `json:"name"`
	Kind       argument.Kind    `json:"kind"`
	Dimensions int32            `json:"dimensions"`
	TypeCode   elemtype.Code    `json:"type_code"`
	TypeBits   int32            `json:"type_bits"`
	Def        *elemtype.Scalar `json:"def,omitempty"`
	Min        *elemtype.Scalar `json:"min,omitempty"`
	Max        *elemtype.Scalar `json:"max,omitempty"`
}

// Type returns the element type of the row.
func (a Argument) Type() elemtype.Type {
	return elemtype.Type{Code: a.TypeCode, Bits: uint8(a.TypeBits)}
}

// Equal compares two rows, telling absent scalars from present ones.
func (a Argument) Equal(b Argument) bool {
	return a.Name == b.Name &&
		a.Kind == b.Kind &&
		a.Dimensions == b.Dimensions &&
		a.TypeCode == b.TypeCode &&
		a.TypeBits == b.TypeBits &&
		elemtype.EqualPtr(a.Def, b.Def) &&
		elemtype.EqualPtr(a.Min, b.Min) &&
		elemtype.EqualPtr(a.Max, b.Max)
}

// Metadata describes the compiled function of one instance.
type Metadata struct {
	Name         string     `json:"name"`
	Target       string     `json:"target"`
	NumArguments int32      `json:"num_arguments"`
	Arguments    []Argument `json:"arguments"`
}

func notBuilt(op string, inst *generator.Instance) error {
	if inst.State() != generator.StateBuilt {
		return &Error{Op: op, Err: fmt.Errorf("%w: %q is %s", ErrNotBuilt, inst.Name(), inst.State())}
	}
	return nil
}

// BuildMetadata describes inst, compiled as function name.
func BuildMetadata(inst *generator.Instance, name string) (*Metadata, error) {
	const op = "metadata"
	if err := notBuilt(op, inst); err != nil {
		return nil, err
	}
	if !ident.Valid(name) {
		return nil, &Error{Op: op, Err: fmt.Errorf("%w: function name %q", ErrInvalidName, name)}
	}

	var rows []Argument
	if inst.HasUserContext() {
		rows = append(rows, Argument{
			Name:     UserContextName,
			Kind:     argument.InputScalar,
			TypeCode: elemtype.CodeHandle,
			TypeBits: 64,
		})
	}
	for _, d := range inst.Inputs() {
		rows = append(rows, inputRows(d)...)
	}
	outputs := inst.Outputs()
	if len(outputs) == 0 {
		// One-shot generators may leave outputs undeclared; the pipeline's
		// outputs are then the function's outputs.
		for _, f := range inst.Pipeline().Outputs() {
			rows = append(rows, funcRows(f.Name(), f)...)
		}
	}
	for _, d := range outputs {
		for k, n := range d.ElementNames() {
			rows = append(rows, funcRows(n, d.Func(k))...)
		}
	}

	return &Metadata{
		Name:         name,
		Target:       inst.Target().String(),
		NumArguments: int32(len(rows)),
		Arguments:    rows,
	}, nil
}

func inputRows(d *argument.Descriptor) []Argument {
	t := d.Types()[0]
	rows := make([]Argument, 0, d.Count())
	for _, n := range d.ElementNames() {
		row := Argument{
			Name:       n,
			Kind:       d.Kind(),
			Dimensions: int32(d.Dimensions()),
			TypeCode:   t.Code,
			TypeBits:   int32(t.Bits),
		}
		if d.Kind() == argument.InputScalar {
			row.Def, row.Min, row.Max = d.DefaultValue(), d.MinValue(), d.MaxValue()
		}
		rows = append(rows, row)
	}
	return rows
}

// funcRows lists an output function, one row per tuple component.
func funcRows(name string, f *pipeline.Func) []Argument {
	types := f.Types()
	rows := make([]Argument, len(types))
	for j, t := range types {
		n := name
		if len(types) > 1 {
			n = fmt.Sprintf("%s.%d", name, j)
		}
		rows[j] = Argument{
			Name:       n,
			Kind:       argument.OutputBuffer,
			Dimensions: int32(f.Dimensions()),
			TypeCode:   t.Code,
			TypeBits:   int32(t.Bits),
		}
	}
	return rows
}
