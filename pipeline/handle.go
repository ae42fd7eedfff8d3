// Package pipeline holds the opaque handles a generator wires together: the
// functions and scalar expressions bound to its arguments, the schedule
// steps recorded on them and the finished Pipeline handed to a Backend.
//
// Nothing here interprets a definition. Definitions and schedule steps are
// recorded as text so they can be dumped and compared.
package pipeline

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/vk/kernelgen/elemtype"
)

// Handle is a value that can be bound to an argument: either a *Func or an
// *Expr.
type Handle interface {
	Name() string
	Types() []elemtype.Type
	Dimensions() int
}

// Step is one recorded schedule directive.
type Step struct {
	Directive string
	Args      []string
}

func (s Step) String() string {
	return s.Directive + "(" + strings.Join(s.Args, ", ") + ")"
}

// Func is a multi-dimensional function with one or more element types.
type Func struct {
	name     string
	types    []elemtype.Type
	dims     int
	input    bool
	defs     []string
	schedule []Step
}

// NewFunc creates an undefined function.
func NewFunc(name string, dims int, types ...elemtype.Type) *Func {
	return &Func{name: name, dims: dims, types: slices.Clone(types)}
}

// NewInputFunc creates a function whose values are supplied by the caller
// at run time. It counts as defined.
func NewInputFunc(name string, dims int, t elemtype.Type) *Func {
	f := NewFunc(name, dims, t)
	f.input = true
	return f
}

func (f *Func) Name() string           { return f.name }
func (f *Func) Types() []elemtype.Type { return slices.Clone(f.types) }
func (f *Func) Dimensions() int        { return f.dims }
func (f *Func) IsInput() bool          { return f.input }
func (f *Func) Defined() bool          { return f.input || len(f.defs) > 0 }
func (f *Func) Definitions() []string  { return slices.Clone(f.defs) }
func (f *Func) ScheduleSteps() []Step  { return slices.Clone(f.schedule) }
func (f *Func) IsTuple() bool          { return len(f.types) > 1 }

// Define appends a definition. Each call is an update of the function.
func (f *Func) Define(format string, args ...any) *Func {
	f.defs = append(f.defs, fmt.Sprintf(format, args...))
	return f
}

func (f *Func) record(directive string, args ...string) *Func {
	f.schedule = append(f.schedule, Step{Directive: directive, Args: args})
	return f
}

func (f *Func) ComputeRoot() *Func { return f.record("compute_root") }

func (f *Func) ComputeAt(l LoopLevel) *Func { return f.record("compute_at", l.String()) }

func (f *Func) StoreAt(l LoopLevel) *Func { return f.record("store_at", l.String()) }

func (f *Func) Vectorize(v string, lanes int) *Func {
	return f.record("vectorize", v, fmt.Sprint(lanes))
}

func (f *Func) Parallel(v string) *Func { return f.record("parallel", v) }

func (f *Func) Unroll(v string, factor int) *Func {
	return f.record("unroll", v, fmt.Sprint(factor))
}

// Expr is a named scalar. Scalar inputs carry an optional default and
// bounds.
type Expr struct {
	name          string
	typ           elemtype.Type
	def, min, max *elemtype.Scalar
}

// NewExpr creates a scalar handle of type t.
func NewExpr(name string, t elemtype.Type) *Expr {
	return &Expr{name: name, typ: t}
}

func (e *Expr) Name() string           { return e.name }
func (e *Expr) Type() elemtype.Type    { return e.typ }
func (e *Expr) Types() []elemtype.Type { return []elemtype.Type{e.typ} }
func (e *Expr) Dimensions() int        { return 0 }

func (e *Expr) Default() *elemtype.Scalar { return e.def }
func (e *Expr) Min() *elemtype.Scalar     { return e.min }
func (e *Expr) Max() *elemtype.Scalar     { return e.max }

// SetDefault sets or clears the default value.
func (e *Expr) SetDefault(s *elemtype.Scalar) { e.def = s }

// SetRange sets or clears the bounds.
func (e *Expr) SetRange(min, max *elemtype.Scalar) {
	e.min, e.max = min, max
}

// FuncHandles converts a function slice for binding.
func FuncHandles(fs []*Func) []Handle {
	return lo.Map(fs, func(f *Func, _ int) Handle { return f })
}

// ExprHandles converts an expression slice for binding.
func ExprHandles(es []*Expr) []Handle {
	return lo.Map(es, func(e *Expr, _ int) Handle { return e })
}
