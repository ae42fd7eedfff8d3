// Package xorimage registers a one-shot generator that XORs a 2-D image of
// bytes with a constant mask.
package xorimage

import (
	"github.com/vk/kernelgen/argument"
	"github.com/vk/kernelgen/elemtype"
	"github.com/vk/kernelgen/generator"
	"github.com/vk/kernelgen/param"
	"github.com/vk/kernelgen/pipeline"
	"github.com/vk/kernelgen/registry"
)

// Name is the registry name of the generator.
const Name = "xorimage"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register adds the generator to r.
func (m *Module) Register(r *registry.Registry) {
	r.MustRegister(Name, func() generator.Generator { return &Generator{} },
		registry.WithWrapperName("xorimage.Wrapper"))
}

type Generator struct {
	mask     *param.Param
	parallel *param.Param
	input    *argument.Descriptor
	output   *argument.Descriptor
}

func (x *Generator) Declare(d *generator.Declarer) {
	x.mask = d.Param(param.NewUint("mask", 8, 0xff))
	x.parallel = d.Param(param.NewBool("parallel", false))
	x.input = d.Input(argument.Input("input", argument.T(elemtype.UInt(8)), argument.N(2)))
	x.output = d.Output(argument.Output("output", argument.Types(argument.T(elemtype.UInt(8))), argument.N(2)))
}

// Build defines the output and schedules it in one step.
func (x *Generator) Build(b *generator.BuildContext) (*pipeline.Pipeline, error) {
	out := b.Output("output").Define("%s(x, y) ^ %d", x.input.Func(0).Name(), x.mask.Uint())
	out.Vectorize("x", b.NaturalVectorSize(elemtype.UInt(8)))
	if x.parallel.Bool() {
		out.Parallel("y")
	}
	return pipeline.New(out), nil
}
