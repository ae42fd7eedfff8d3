package generator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/vk/kernelgen/argument"
	"github.com/vk/kernelgen/elemtype"
	"github.com/vk/kernelgen/internal/ctxlog"
	"github.com/vk/kernelgen/param"
	"github.com/vk/kernelgen/pipeline"
	"github.com/vk/kernelgen/target"
)

// Instance is one configured instantiation of a generator. It is not safe
// for concurrent use; independent instances may be built in parallel.
type Instance struct {
	name        string
	gen         Generator
	proto       Protocol
	params      []*param.Param
	target      *param.Param
	inputs      []*argument.Descriptor
	outputs     []*argument.Descriptor
	userContext bool

	state       State
	lateApplied bool
	given       [][]pipeline.Handle
	build       *BuildContext
	pipeline    *pipeline.Pipeline
}

// New declares g and returns an unbuilt instance. Generators implementing
// both protocols or neither are rejected here.
func New(name string, g Generator) (*Instance, error) {
	proto, err := DetectProtocol(g)
	if err != nil {
		return nil, &LifecycleError{Generator: name, Op: "new", Err: err}
	}

	d := newDeclarer(name)
	tp := d.Param(param.NewTarget(TargetParam, target.Host()))
	g.Declare(d)
	if d.err != nil {
		return nil, d.err
	}

	return &Instance{
		name:        name,
		gen:         g,
		proto:       proto,
		params:      d.params,
		target:      tp,
		inputs:      d.inputs,
		outputs:     d.outputs,
		userContext: d.userContext,
	}, nil
}

func (i *Instance) Name() string        { return i.name }
func (i *Instance) Protocol() Protocol  { return i.proto }
func (i *Instance) State() State        { return i.state }
func (i *Instance) HasUserContext() bool { return i.userContext }

// Generator returns the generator value the instance drives.
func (i *Instance) Generator() Generator { return i.gen }

// Params returns the configuration values in declaration order. The target
// value comes first.
func (i *Instance) Params() []*param.Param { return slices.Clone(i.params) }

// Param returns the named configuration value, or nil.
func (i *Instance) Param(name string) *param.Param {
	for _, p := range i.params {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// Inputs and Outputs return the argument descriptors in declaration order.
func (i *Instance) Inputs() []*argument.Descriptor  { return slices.Clone(i.inputs) }
func (i *Instance) Outputs() []*argument.Descriptor { return slices.Clone(i.outputs) }

// Input returns the named input, or nil.
func (i *Instance) Input(name string) *argument.Descriptor { return find(i.inputs, name) }

// Output returns the named output, or nil.
func (i *Instance) Output(name string) *argument.Descriptor { return find(i.outputs, name) }

func find(ds []*argument.Descriptor, name string) *argument.Descriptor {
	for _, d := range ds {
		if d.Name() == name {
			return d
		}
	}
	return nil
}

// Target returns the current value of the target configuration value.
func (i *Instance) Target() target.Target { return i.target.Target() }

// NaturalVectorSize is the number of lanes of t that fill one vector
// register of the instance's target.
func (i *Instance) NaturalVectorSize(t elemtype.Type) int {
	return i.Target().NaturalVectorSize(t)
}

// Pipeline returns the built pipeline, or nil unless the instance is Built.
func (i *Instance) Pipeline() *pipeline.Pipeline {
	if i.state != StateBuilt {
		return nil
	}
	return i.pipeline
}

// ResolveType implements argument.Resolver.
func (i *Instance) ResolveType(name string) (elemtype.Type, error) {
	p := i.Param(name)
	if p == nil {
		return elemtype.Type{}, fmt.Errorf("%w: %q", param.ErrUnknownParameter, name)
	}
	if p.Kind() != param.KindType {
		return elemtype.Type{}, fmt.Errorf("%w: %q is %s", param.ErrKindMismatch, name, p.Kind())
	}
	return p.ElemType(), nil
}

// ResolveInt implements argument.Resolver.
func (i *Instance) ResolveInt(name string) (int, error) {
	p := i.Param(name)
	if p == nil {
		return 0, fmt.Errorf("%w: %q", param.ErrUnknownParameter, name)
	}
	if p.Kind() != param.KindInt && p.Kind() != param.KindUint {
		return 0, fmt.Errorf("%w: %q is %s", param.ErrKindMismatch, name, p.Kind())
	}
	return int(p.Int()), nil
}

func (i *Instance) lifecycle(op string, err error) error {
	return &LifecycleError{Generator: i.name, Op: op, Err: err}
}

// fail moves the instance to Failed and drops any partial result.
func (i *Instance) fail(op string, err error) error {
	i.state = StateFailed
	i.pipeline = nil
	i.build = nil
	return i.lifecycle(op, err)
}

// SetParamValues applies text overrides by name. While Unbuilt any value
// may be set. Between Generate and Schedule only schedule-stage values may
// be set, and only once. All overrides are validated before any is applied.
func (i *Instance) SetParamValues(values map[string]string) error {
	const op = "set param values"
	switch i.state {
	case StateFailed:
		return i.lifecycle(op, ErrFailed)
	case StateBuilt:
		return i.lifecycle(op, fmt.Errorf("%w: instance is built", ErrFrozenParameter))
	case StateParamsApplied:
		if len(values) > 0 && i.lateApplied {
			return i.lifecycle(op, fmt.Errorf("%w: schedule-stage values already applied", ErrFrozenParameter))
		}
	}

	names := make([]string, 0, len(values))
	for n := range values {
		names = append(names, n)
	}
	sort.Strings(names)

	staged := make([]*param.Param, len(names))
	for k, n := range names {
		p := i.Param(n)
		if p == nil {
			return &param.ValidationError{Param: n, Input: values[n], Err: param.ErrUnknownParameter}
		}
		if p.Frozen() || (i.state == StateParamsApplied && !p.IsScheduleStage()) {
			return i.lifecycle(op, fmt.Errorf("%w: %q", ErrFrozenParameter, n))
		}
		c := p.Clone()
		if err := c.SetFromText(values[n]); err != nil {
			return err
		}
		staged[k] = c
	}

	for k, n := range names {
		if err := i.Param(n).Set(staged[k].Value()); err != nil {
			return i.lifecycle(op, err)
		}
	}
	if i.state == StateParamsApplied && len(values) > 0 {
		i.lateApplied = true
	}
	return nil
}

// SetTarget sets the target configuration value. It is legal only while
// Unbuilt.
func (i *Instance) SetTarget(t target.Target) error {
	if i.state != StateUnbuilt {
		return i.lifecycle("set target", fmt.Errorf("%w: instance is %s", ErrFrozenParameter, i.state))
	}
	return i.target.Set(param.TargetValue(t))
}

// SetInputs supplies the input handles positionally, one slice per declared
// input. Inputs not supplied are bound to fresh placeholders.
func (i *Instance) SetInputs(inputs [][]pipeline.Handle) error {
	if i.state != StateUnbuilt {
		return i.lifecycle("set inputs", fmt.Errorf("%w: instance is %s", ErrOutOfOrder, i.state))
	}
	if len(inputs) != len(i.inputs) {
		return &argument.BindError{
			Arg: "inputs",
			Err: fmt.Errorf("%w: %d inputs declared, %d supplied", argument.ErrArityMismatch, len(i.inputs), len(inputs)),
		}
	}
	i.given = inputs
	return nil
}

func (i *Instance) checkFresh(op string) error {
	switch i.state {
	case StateFailed:
		return i.lifecycle(op, ErrFailed)
	case StateParamsApplied, StateBuilt:
		return i.lifecycle(op, ErrDoubleInvocation)
	}
	return nil
}

// begin freezes the values that may no longer change, binds the inputs and
// prepares the output placeholders.
func (i *Instance) begin(ctx context.Context, freezeAll bool) (*BuildContext, error) {
	for _, p := range i.params {
		if freezeAll || !p.IsScheduleStage() {
			p.Freeze()
		}
	}

	for k, d := range i.inputs {
		var handles []pipeline.Handle
		if i.given != nil && i.given[k] != nil {
			handles = i.given[k]
		} else {
			ph, err := d.Placeholders(i)
			if err != nil {
				return nil, err
			}
			handles = ph
		}
		if err := d.Bind(handles, i); err != nil {
			return nil, err
		}
	}

	b := &BuildContext{ctx: ctx, inst: i, placeholders: make(map[string][]*pipeline.Func), assigned: make(map[string][]pipeline.Handle)}
	for _, d := range i.outputs {
		ph, err := d.Placeholders(i)
		if err != nil {
			return nil, err
		}
		funcs := make([]*pipeline.Func, len(ph))
		for k, h := range ph {
			funcs[k] = h.(*pipeline.Func)
		}
		b.placeholders[d.Name()] = funcs
	}
	return b, nil
}

func checkDefined(outputs []*argument.Descriptor) error {
	for _, d := range outputs {
		for k, f := range d.Funcs() {
			if !f.Defined() {
				name := d.Name()
				if d.IsArray() {
					name = d.ArrayName(k)
				}
				return fmt.Errorf("%w: %q", ErrUndefinedOutput, name)
			}
		}
	}
	return nil
}

// Build runs the whole protocol. For phased generators it runs Generate
// (unless already done) and then Schedule.
func (i *Instance) Build(ctx context.Context) error {
	if i.proto == ProtocolPhased {
		if i.state == StateUnbuilt {
			if err := i.Generate(ctx); err != nil {
				return err
			}
		}
		return i.Schedule(ctx)
	}

	const op = "build"
	if err := i.checkFresh(op); err != nil {
		return err
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Generator build started.", "generator", i.name, "target", i.target.Text())

	b, err := i.begin(ctx, true)
	if err != nil {
		return i.fail(op, err)
	}
	p, err := i.gen.(OneShot).Build(b)
	if err != nil {
		return i.fail(op, err)
	}
	if p == nil {
		return i.fail(op, fmt.Errorf("%w: Build returned no pipeline", ErrUndefinedOutput))
	}
	if err := i.bindPipelineOutputs(p); err != nil {
		return i.fail(op, err)
	}

	i.pipeline = p
	i.state = StateBuilt
	logger.Debug("Generator build finished.", "generator", i.name, "outputs", len(p.Outputs()))
	return nil
}

// bindPipelineOutputs distributes the pipeline's outputs over the declared
// outputs in order.
func (i *Instance) bindPipelineOutputs(p *pipeline.Pipeline) error {
	if len(i.outputs) == 0 {
		return nil
	}
	funcs := p.Outputs()
	offset := 0
	for _, d := range i.outputs {
		n, err := d.ResolvedCount(i)
		if err != nil {
			return err
		}
		if offset+n > len(funcs) {
			return &argument.BindError{Arg: d.Name(), Err: fmt.Errorf("%w: pipeline has %d outputs", argument.ErrArityMismatch, len(funcs))}
		}
		if err := d.Bind(pipeline.FuncHandles(funcs[offset:offset+n]), i); err != nil {
			return err
		}
		offset += n
	}
	if offset != len(funcs) {
		return &argument.BindError{Arg: "outputs", Err: fmt.Errorf("%w: %d declared, pipeline has %d", argument.ErrArityMismatch, offset, len(funcs))}
	}
	return checkDefined(i.outputs)
}

// Generate runs the first phase of a phased generator and binds its outputs.
func (i *Instance) Generate(ctx context.Context) error {
	const op = "generate"
	if i.proto != ProtocolPhased {
		return i.lifecycle(op, ErrProtocolMismatch)
	}
	if err := i.checkFresh(op); err != nil {
		return err
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Generator generate phase started.", "generator", i.name, "target", i.target.Text())

	b, err := i.begin(ctx, false)
	if err != nil {
		return i.fail(op, err)
	}
	if err := i.gen.(Phased).Generate(b); err != nil {
		return i.fail(op, err)
	}
	for _, d := range i.outputs {
		handles, ok := b.assigned[d.Name()]
		if !ok {
			handles = pipeline.FuncHandles(b.placeholders[d.Name()])
		}
		if err := d.Bind(handles, i); err != nil {
			return i.fail(op, err)
		}
	}
	if err := checkDefined(i.outputs); err != nil {
		return i.fail(op, err)
	}

	b.generated = true
	i.build = b
	i.state = StateParamsApplied
	logger.Debug("Generator generate phase finished.", "generator", i.name)
	return nil
}

// Schedule runs the second phase of a phased generator and produces the
// pipeline.
func (i *Instance) Schedule(ctx context.Context) error {
	const op = "schedule"
	switch {
	case i.proto != ProtocolPhased:
		return i.lifecycle(op, ErrProtocolMismatch)
	case i.state == StateFailed:
		return i.lifecycle(op, ErrFailed)
	case i.state == StateUnbuilt:
		return i.lifecycle(op, fmt.Errorf("%w: Generate has not run", ErrOutOfOrder))
	case i.state == StateBuilt:
		return i.lifecycle(op, ErrDoubleInvocation)
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Generator schedule phase started.", "generator", i.name)

	for _, p := range i.params {
		p.Freeze()
	}
	b := i.build
	b.ctx = ctx
	if err := i.gen.(Phased).Schedule(b); err != nil {
		return i.fail(op, err)
	}

	var funcs []*pipeline.Func
	for _, d := range i.outputs {
		funcs = append(funcs, d.Funcs()...)
	}
	i.pipeline = pipeline.New(funcs...)
	i.state = StateBuilt
	i.build = nil
	logger.Debug("Generator schedule phase finished.", "generator", i.name, "outputs", len(funcs))
	return nil
}

// IsLifecycle reports whether err is a LifecycleError wrapping want.
func IsLifecycle(err, want error) bool {
	var le *LifecycleError
	return errors.As(err, &le) && errors.Is(le.Err, want)
}
