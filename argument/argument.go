// Package argument describes the runtime inputs and outputs of a generator
// and binds them to pipeline handles.
//
// A descriptor may refer to configuration values by name for its element
// type, its dimensionality and its array size. These references are looked
// up through a Resolver when the descriptor is bound, so an override applied
// after declaration is always honoured.
package argument

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vk/kernelgen/elemtype"
	"github.com/vk/kernelgen/pipeline"
)

// Kind is the role of an argument. The values are part of the metadata ABI.
type Kind int32

const (
	InputScalar  Kind = 0
	InputBuffer  Kind = 1
	OutputBuffer Kind = 2
)

func (k Kind) String() string {
	switch k {
	case InputScalar:
		return "input_scalar"
	case InputBuffer:
		return "input_buffer"
	case OutputBuffer:
		return "output_buffer"
	}
	return fmt.Sprintf("Kind(%d)", int32(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// IsInput reports whether k is one of the input kinds.
func (k Kind) IsInput() bool { return k == InputScalar || k == InputBuffer }

var (
	ErrArityMismatch = errors.New("arity mismatch")
	ErrTypeMismatch  = errors.New("type mismatch")
	ErrAlreadyBound  = errors.New("already bound")
	ErrNotBound      = errors.New("not bound")
	ErrInvalidDecl   = errors.New("invalid argument declaration")
)

// BindError reports why handles could not be bound to an argument.
type BindError struct {
	Arg string
	Err error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("argument %q: %v", e.Arg, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// Resolver looks up configuration values by name.
type Resolver interface {
	ResolveType(param string) (elemtype.Type, error)
	ResolveInt(param string) (int, error)
}

// TypeRef is an element type, either fixed or read from a type-valued
// configuration value.
type TypeRef struct {
	t     elemtype.Type
	param string
}

// T is a fixed element type.
func T(t elemtype.Type) TypeRef { return TypeRef{t: t} }

// TypeOf reads the element type from the named configuration value.
func TypeOf(param string) TypeRef { return TypeRef{param: param} }

// Param returns the referenced configuration value name, or "".
func (r TypeRef) Param() string { return r.param }

func (r TypeRef) resolve(res Resolver) (elemtype.Type, error) {
	if r.param == "" {
		return r.t, nil
	}
	return res.ResolveType(r.param)
}

// IntRef is a non-negative count, either fixed or read from an
// integer-valued configuration value.
type IntRef struct {
	n     int
	param string
}

func N(n int) IntRef { return IntRef{n: n} }

// NOf reads the count from the named configuration value.
func NOf(param string) IntRef { return IntRef{param: param} }

func (r IntRef) Param() string { return r.param }

func (r IntRef) resolve(res Resolver) (int, error) {
	if r.param == "" {
		return r.n, nil
	}
	return res.ResolveInt(r.param)
}

// Descriptor is the declared shape of one argument and, once bound, the
// handles supplied for it.
type Descriptor struct {
	name  string
	kind  Kind
	types []TypeRef
	dims  IntRef
	array bool
	size  IntRef

	def, min, max any
	err           error

	bound    bool
	resolved []elemtype.Type
	rdims    int
	funcs    []*pipeline.Func
	exprs    []*pipeline.Expr
	sdef     *elemtype.Scalar
	smin     *elemtype.Scalar
	smax     *elemtype.Scalar
}

// Option adjusts a declaration.
type Option func(*Descriptor)

// Array makes the argument an array of n elements.
func Array(n IntRef) Option {
	return func(d *Descriptor) { d.array, d.size = true, n }
}

// Default sets the value a scalar input takes when the caller passes none.
func Default(v any) Option { return func(d *Descriptor) { d.def = v } }

// Bounds sets the inclusive range of a scalar input. Either bound may be nil.
func Bounds(min, max any) Option {
	return func(d *Descriptor) { d.min, d.max = min, max }
}

// Input declares a buffer input.
func Input(name string, t TypeRef, dims IntRef, opts ...Option) *Descriptor {
	return newDescriptor(name, InputBuffer, []TypeRef{t}, dims, opts)
}

// Scalar declares a scalar input.
func Scalar(name string, t TypeRef, opts ...Option) *Descriptor {
	return newDescriptor(name, InputScalar, []TypeRef{t}, N(0), opts)
}

// Output declares a buffer output. More than one type makes a tuple output.
// A zero-dimensional output is a scalar output.
func Output(name string, types []TypeRef, dims IntRef, opts ...Option) *Descriptor {
	return newDescriptor(name, OutputBuffer, types, dims, opts)
}

// Types is shorthand for building a tuple type list.
func Types(refs ...TypeRef) []TypeRef { return refs }

func newDescriptor(name string, kind Kind, types []TypeRef, dims IntRef, opts []Option) *Descriptor {
	d := &Descriptor{name: name, kind: kind, types: slices.Clone(types), dims: dims}
	for _, o := range opts {
		o(d)
	}
	switch {
	case len(d.types) == 0:
		d.err = fmt.Errorf("%w: no element type", ErrInvalidDecl)
	case len(d.types) > 1 && kind != OutputBuffer:
		d.err = fmt.Errorf("%w: only outputs may be tuples", ErrInvalidDecl)
	case kind != InputScalar && (d.def != nil || d.min != nil || d.max != nil):
		d.err = fmt.Errorf("%w: default and bounds apply to scalar inputs only", ErrInvalidDecl)
	case dims.param == "" && dims.n < 0:
		d.err = fmt.Errorf("%w: negative dimensions", ErrInvalidDecl)
	case d.array && d.size.param == "" && d.size.n < 0:
		d.err = fmt.Errorf("%w: negative array size", ErrInvalidDecl)
	}
	if d.err != nil {
		d.err = &BindError{Arg: name, Err: d.err}
	}
	return d
}

func (d *Descriptor) Name() string  { return d.name }
func (d *Descriptor) Kind() Kind    { return d.kind }
func (d *Descriptor) IsArray() bool { return d.array }
func (d *Descriptor) Bound() bool   { return d.bound }

// IsTuple reports whether the argument is an output with several types.
func (d *Descriptor) IsTuple() bool { return len(d.types) > 1 }

// Err returns the declaration error, if any.
func (d *Descriptor) Err() error { return d.err }

// TypeParams returns the names of the configuration values that supply the
// element types.
func (d *Descriptor) TypeParams() []string {
	var out []string
	for _, r := range d.types {
		if r.param != "" {
			out = append(out, r.param)
		}
	}
	return out
}

// IntParams returns the names of the configuration values that supply the
// dimensionality and array size.
func (d *Descriptor) IntParams() []string {
	var out []string
	if d.dims.param != "" {
		out = append(out, d.dims.param)
	}
	if d.array && d.size.param != "" {
		out = append(out, d.size.param)
	}
	return out
}

// MaxArraySize is the largest element count an array argument may resolve to.
const MaxArraySize = 1 << 16

// ResolvedCount is the number of handles the argument takes: 1 for a single
// argument, otherwise the array size read now.
func (d *Descriptor) ResolvedCount(r Resolver) (int, error) {
	if !d.array {
		return 1, nil
	}
	n, err := d.size.resolve(r)
	if err != nil {
		return 0, &BindError{Arg: d.name, Err: err}
	}
	if n < 0 {
		return 0, &BindError{Arg: d.name, Err: fmt.Errorf("%w: negative array size %d", ErrArityMismatch, n)}
	}
	if n > MaxArraySize {
		return 0, &BindError{Arg: d.name, Err: fmt.Errorf("%w: array size %d exceeds %d", ErrArityMismatch, n, MaxArraySize)}
	}
	return n, nil
}

// ResolveShape returns the element types and dimensionality read now.
func (d *Descriptor) ResolveShape(r Resolver) ([]elemtype.Type, int, error) {
	types := make([]elemtype.Type, len(d.types))
	for i, ref := range d.types {
		t, err := ref.resolve(r)
		if err != nil {
			return nil, 0, &BindError{Arg: d.name, Err: err}
		}
		types[i] = t
	}
	dims, err := d.dims.resolve(r)
	if err != nil {
		return nil, 0, &BindError{Arg: d.name, Err: err}
	}
	if dims < 0 {
		return nil, 0, &BindError{Arg: d.name, Err: fmt.Errorf("%w: negative dimensions %d", ErrInvalidDecl, dims)}
	}
	return types, dims, nil
}

// ArrayName is the name of element i when the argument is flattened.
func (d *Descriptor) ArrayName(i int) string {
	return fmt.Sprintf("%s_%d", d.name, i)
}

// ElementNames lists the flattened names of a bound argument: the plain
// name for a single argument, ArrayName(i) for each array element.
func (d *Descriptor) ElementNames() []string {
	if !d.array {
		return []string{d.name}
	}
	names := make([]string, d.Count())
	for i := range names {
		names[i] = d.ArrayName(i)
	}
	return names
}

// Count is the number of bound handles.
func (d *Descriptor) Count() int { return len(d.funcs) + len(d.exprs) }

// Types returns the resolved element types of a bound argument.
func (d *Descriptor) Types() []elemtype.Type { return slices.Clone(d.resolved) }

// Dimensions returns the resolved dimensionality of a bound argument.
func (d *Descriptor) Dimensions() int { return d.rdims }

// DefaultValue, MinValue and MaxValue return the declared scalar default
// and bounds converted to the resolved type. Absent values are nil.
func (d *Descriptor) DefaultValue() *elemtype.Scalar { return d.sdef }
func (d *Descriptor) MinValue() *elemtype.Scalar     { return d.smin }
func (d *Descriptor) MaxValue() *elemtype.Scalar     { return d.smax }

// Funcs returns the bound functions of a buffer argument.
func (d *Descriptor) Funcs() []*pipeline.Func { return slices.Clone(d.funcs) }

// Exprs returns the bound expressions of a scalar argument.
func (d *Descriptor) Exprs() []*pipeline.Expr { return slices.Clone(d.exprs) }

// Func returns bound function i. It panics when out of range.
func (d *Descriptor) Func(i int) *pipeline.Func { return d.funcs[i] }

// Expr returns bound expression i. It panics when out of range.
func (d *Descriptor) Expr(i int) *pipeline.Expr { return d.exprs[i] }

// At returns bound handle i of either kind.
func (d *Descriptor) At(i int) pipeline.Handle {
	if d.kind == InputScalar {
		return d.exprs[i]
	}
	return d.funcs[i]
}
