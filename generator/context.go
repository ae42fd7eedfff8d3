package generator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/vk/kernelgen/argument"
	"github.com/vk/kernelgen/elemtype"
	"github.com/vk/kernelgen/internal/ctxlog"
	"github.com/vk/kernelgen/param"
	"github.com/vk/kernelgen/pipeline"
	"github.com/vk/kernelgen/target"
)

// BuildContext is handed to Build, Generate and Schedule. It exposes the
// instance's bound inputs, its output functions and its target.
type BuildContext struct {
	ctx          context.Context
	inst         *Instance
	placeholders map[string][]*pipeline.Func
	assigned     map[string][]pipeline.Handle
	generated    bool
}

// Context returns the context of the current build step.
func (b *BuildContext) Context() context.Context { return b.ctx }

// Logger returns the logger carried by the build context.
func (b *BuildContext) Logger() *slog.Logger {
	return ctxlog.FromContext(b.ctx).With("generator", b.inst.name)
}

func (b *BuildContext) Target() target.Target { return b.inst.Target() }

// NaturalVectorSize is the number of lanes of t that fill one vector
// register of the target.
func (b *BuildContext) NaturalVectorSize(t elemtype.Type) int {
	return b.inst.NaturalVectorSize(t)
}

// Param returns the named configuration value, or nil.
func (b *BuildContext) Param(name string) *param.Param { return b.inst.Param(name) }

// Input returns the named bound input. It panics if no such input exists.
func (b *BuildContext) Input(name string) *argument.Descriptor {
	d := b.inst.Input(name)
	if d == nil {
		panic(fmt.Sprintf("generator %q has no input named %q", b.inst.name, name))
	}
	return d
}

// OutputFuncs returns the functions of the named output. During Generate
// these are the fresh functions the generator should define, or the handles
// passed to SetOutput; afterwards they are the bound functions. It panics if
// no such output exists.
func (b *BuildContext) OutputFuncs(name string) []*pipeline.Func {
	d := b.inst.Output(name)
	if d == nil {
		panic(fmt.Sprintf("generator %q has no output named %q", b.inst.name, name))
	}
	if d.Bound() {
		return d.Funcs()
	}
	if hs, ok := b.assigned[name]; ok {
		var fs []*pipeline.Func
		for _, h := range hs {
			if f, ok := h.(*pipeline.Func); ok {
				fs = append(fs, f)
			}
		}
		return fs
	}
	return slices.Clone(b.placeholders[name])
}

// Output returns the first function of the named output.
func (b *BuildContext) Output(name string) *pipeline.Func {
	return b.OutputFuncs(name)[0]
}

// SetOutput replaces the functions of the named output with handles the
// generator built itself. It is only valid during Generate; the handles are
// checked when Generate returns.
func (b *BuildContext) SetOutput(name string, handles ...pipeline.Handle) error {
	d := b.inst.Output(name)
	switch {
	case d == nil:
		return &argument.BindError{Arg: name, Err: fmt.Errorf("%w: no such output", argument.ErrArityMismatch)}
	case b.generated || d.Bound():
		return b.inst.lifecycle("set output", fmt.Errorf("%w: outputs are already bound", ErrOutOfOrder))
	}
	b.assigned[name] = handles
	return nil
}

// AllOutputs returns every output function in declaration order.
func (b *BuildContext) AllOutputs() []*pipeline.Func {
	var out []*pipeline.Func
	for _, d := range b.inst.outputs {
		out = append(out, b.OutputFuncs(d.Name())...)
	}
	return out
}
