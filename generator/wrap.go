package generator

import (
	"context"
	"fmt"

	"github.com/vk/kernelgen/pipeline"
	"github.com/vk/kernelgen/target"
)

// Context supplies what a generated wrapper takes from its caller rather
// than from its configuration: the target.
type Context interface {
	Target() target.Target
}

// TargetContext is a Context for a fixed target.
type TargetContext struct {
	T target.Target
}

func (c TargetContext) Target() target.Target { return c.T }

// Factory creates an unbuilt instance with text overrides applied.
type Factory func(overrides map[string]string) (*Instance, error)

// NewWrapped is the runtime behind generated wrapper constructors. It
// creates an instance through factory, takes its target from gctx, binds the
// inputs positionally and runs the first build step: Generate for phased
// generators, Build for one-shot ones.
func NewWrapped(ctx context.Context, gctx Context, factory Factory, overrides map[string]string, inputs [][]pipeline.Handle) (*Instance, error) {
	inst, err := factory(overrides)
	if err != nil {
		return nil, err
	}
	if err := inst.SetTarget(gctx.Target()); err != nil {
		return nil, err
	}
	if err := inst.SetInputs(inputs); err != nil {
		return nil, err
	}
	if inst.Protocol() == ProtocolPhased {
		err = inst.Generate(ctx)
	} else {
		err = inst.Build(ctx)
	}
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// OutputFuncs returns the bound functions of the named output, or nil.
func (i *Instance) OutputFuncs(name string) []*pipeline.Func {
	d := i.Output(name)
	if d == nil {
		return nil
	}
	return d.Funcs()
}

// ScheduleWith applies schedule-stage overrides and runs Schedule. One-shot
// instances are already built and accept no overrides.
func (i *Instance) ScheduleWith(ctx context.Context, overrides map[string]string) error {
	if i.proto == ProtocolOneShot {
		if len(overrides) > 0 {
			return i.lifecycle("schedule", fmt.Errorf("%w: one-shot generator takes no schedule values", ErrFrozenParameter))
		}
		return nil
	}
	if err := i.SetParamValues(overrides); err != nil {
		return err
	}
	return i.Schedule(ctx)
}
