package argument

import (
	"fmt"
	"slices"

	"github.com/vk/kernelgen/elemtype"
	"github.com/vk/kernelgen/pipeline"
)

// Bind attaches handles to the argument. Scalar inputs take *pipeline.Expr
// handles, everything else takes *pipeline.Func. The count, element types
// and dimensionality are resolved through r first. A descriptor is bound
// once; on failure it stays unbound.
func (d *Descriptor) Bind(handles []pipeline.Handle, r Resolver) error {
	if d.err != nil {
		return d.err
	}
	if d.bound {
		return &BindError{Arg: d.name, Err: ErrAlreadyBound}
	}

	count, err := d.ResolvedCount(r)
	if err != nil {
		return err
	}
	if len(handles) != count {
		return &BindError{Arg: d.name, Err: fmt.Errorf("%w: want %d handles, got %d", ErrArityMismatch, count, len(handles))}
	}
	types, dims, err := d.ResolveShape(r)
	if err != nil {
		return err
	}

	var (
		funcs []*pipeline.Func
		exprs []*pipeline.Expr
	)
	for i, h := range handles {
		if err := checkHandle(h, types, dims); err != nil {
			return &BindError{Arg: d.name, Err: fmt.Errorf("handle %d: %w", i, err)}
		}
		switch x := h.(type) {
		case *pipeline.Expr:
			if d.kind != InputScalar {
				return &BindError{Arg: d.name, Err: fmt.Errorf("%w: handle %d is a scalar, want a function", ErrTypeMismatch, i)}
			}
			exprs = append(exprs, x)
		case *pipeline.Func:
			if d.kind == InputScalar {
				return &BindError{Arg: d.name, Err: fmt.Errorf("%w: handle %d is a function, want a scalar", ErrTypeMismatch, i)}
			}
			funcs = append(funcs, x)
		default:
			return &BindError{Arg: d.name, Err: fmt.Errorf("%w: unsupported handle %T", ErrTypeMismatch, h)}
		}
	}

	var sdef, smin, smax *elemtype.Scalar
	if d.kind == InputScalar {
		if sdef, err = d.scalar(types[0], d.def, "default"); err != nil {
			return err
		}
		if smin, err = d.scalar(types[0], d.min, "min"); err != nil {
			return err
		}
		if smax, err = d.scalar(types[0], d.max, "max"); err != nil {
			return err
		}
		for _, e := range exprs {
			if sdef != nil {
				e.SetDefault(sdef)
			}
			if smin != nil || smax != nil {
				e.SetRange(smin, smax)
			}
		}
	}

	d.bound = true
	d.resolved, d.rdims = types, dims
	d.funcs, d.exprs = funcs, exprs
	d.sdef, d.smin, d.smax = sdef, smin, smax
	return nil
}

func checkHandle(h pipeline.Handle, types []elemtype.Type, dims int) error {
	got := h.Types()
	if len(got) != len(types) {
		return fmt.Errorf("%w: %d components, want %d", ErrTypeMismatch, len(got), len(types))
	}
	for j := range types {
		if got[j] != types[j] {
			if len(types) > 1 {
				return fmt.Errorf("%w: component %d is %s, want %s", ErrTypeMismatch, j, got[j], types[j])
			}
			return fmt.Errorf("%w: %s, want %s", ErrTypeMismatch, got[j], types[j])
		}
	}
	if h.Dimensions() != dims {
		return fmt.Errorf("%w: %d dimensions, want %d", ErrTypeMismatch, h.Dimensions(), dims)
	}
	return nil
}

func (d *Descriptor) scalar(t elemtype.Type, v any, what string) (*elemtype.Scalar, error) {
	if v == nil {
		return nil, nil
	}
	s, err := elemtype.MakeScalar(t, v)
	if err != nil {
		return nil, &BindError{Arg: d.name, Err: fmt.Errorf("%w: %s: %w", ErrTypeMismatch, what, err)}
	}
	return &s, nil
}

// Placeholders creates fresh handles shaped like the argument: input
// functions for buffer inputs, scalars for scalar inputs and undefined
// functions for outputs. Array elements are named with ArrayName.
func (d *Descriptor) Placeholders(r Resolver) ([]pipeline.Handle, error) {
	count, err := d.ResolvedCount(r)
	if err != nil {
		return nil, err
	}
	types, dims, err := d.ResolveShape(r)
	if err != nil {
		return nil, err
	}
	out := make([]pipeline.Handle, count)
	for i := range out {
		name := d.name
		if d.array {
			name = d.ArrayName(i)
		}
		switch d.kind {
		case InputScalar:
			out[i] = pipeline.NewExpr(name, types[0])
		case InputBuffer:
			out[i] = pipeline.NewInputFunc(name, dims, types[0])
		default:
			out[i] = pipeline.NewFunc(name, dims, slices.Clone(types)...)
		}
	}
	return out, nil
}
