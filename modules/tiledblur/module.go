// Package tiledblur registers a phased generator built from another
// generator: it creates an xorimage instance through the registry, feeds it
// its own input and blurs the result.
package tiledblur

import (
	"fmt"

	"github.com/vk/kernelgen/argument"
	"github.com/vk/kernelgen/elemtype"
	"github.com/vk/kernelgen/generator"
	"github.com/vk/kernelgen/modules/xorimage"
	"github.com/vk/kernelgen/param"
	"github.com/vk/kernelgen/pipeline"
	"github.com/vk/kernelgen/registry"
)

// Name is the registry name of the generator.
const Name = "tiled_blur"

// Module implements the registry.Module interface for this package. The
// xorimage module must be registered in the same registry.
type Module struct{}

// Register adds the generator to r. Inner instances are created from r.
func (m *Module) Register(r *registry.Registry) {
	factory := r.Factory(xorimage.Name)
	r.MustRegister(Name, func() generator.Generator { return &Generator{inner: factory} },
		registry.WithWrapperName("tiledblur.Wrapper"))
}

type Generator struct {
	inner generator.Factory

	radius    *param.Param
	mask      *param.Param
	unroll    *param.Param
	innerAt   *param.Param
	vectorize *param.Param

	input  *argument.Descriptor
	output *argument.Descriptor

	xored *generator.Instance
}

func (t *Generator) Declare(d *generator.Declarer) {
	t.radius = d.Param(param.NewInt("radius", 32, 1, param.Range(param.IntValue(0), param.IntValue(8))))
	t.mask = d.Param(param.NewUint("mask", 8, 0x0f))
	t.unroll = d.Param(param.NewInt("unroll", 32, 1, param.Range(param.IntValue(1), param.IntValue(16)), param.ScheduleStage()))
	t.innerAt = d.Param(param.NewLoopLevel("inner_level", pipeline.Root(), param.ScheduleStage()))
	t.vectorize = d.Param(param.NewBool("vectorize", true, param.ScheduleStage()))
	t.input = d.Input(argument.Input("input", argument.T(elemtype.UInt(8)), argument.N(2)))
	t.output = d.Output(argument.Output("output", argument.Types(argument.T(elemtype.UInt(8))), argument.N(2)))
}

func (t *Generator) Generate(b *generator.BuildContext) error {
	inner, err := generator.NewWrapped(b.Context(), b, t.inner,
		map[string]string{"mask": t.mask.Text()},
		[][]pipeline.Handle{{t.input.At(0)}})
	if err != nil {
		return fmt.Errorf("creating %s: %w", xorimage.Name, err)
	}
	t.xored = inner

	src := inner.OutputFuncs("output")[0].Name()
	r := t.radius.Int()
	b.Output("output").Define("sum(%s(x + rx, y + ry)) / %d for rx, ry in [-%d, %d]", src, (2*r+1)*(2*r+1), r, r)
	return nil
}

func (t *Generator) Schedule(b *generator.BuildContext) error {
	if err := t.xored.ScheduleWith(b.Context(), nil); err != nil {
		return err
	}
	out := b.Output("output")
	out.Parallel("y")
	if n := int(t.unroll.Int()); n > 1 {
		out.Unroll("x", n)
	}
	if t.vectorize.Bool() {
		out.Vectorize("x", b.NaturalVectorSize(elemtype.UInt(8)))
	}
	inner := t.xored.OutputFuncs("output")[0]
	if lvl := t.innerAt.LoopLevel(); lvl.IsRoot() {
		inner.ComputeRoot()
	} else if !lvl.IsUndefined() {
		inner.ComputeAt(lvl)
	}
	return nil
}
