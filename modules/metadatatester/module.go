// Package metadatatester registers a generator whose signature covers every
// row shape of the emitted metadata: the user context, scalar inputs of all
// element types with defaults and bounds, buffer arrays, tuple outputs and
// output arrays.
package metadatatester

import (
	"github.com/vk/kernelgen/argument"
	"github.com/vk/kernelgen/elemtype"
	"github.com/vk/kernelgen/generator"
	"github.com/vk/kernelgen/param"
	"github.com/vk/kernelgen/registry"
)

// Name is the registry name of the generator.
const Name = "metadata_tester"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register adds the generator to r.
func (m *Module) Register(r *registry.Registry) {
	r.MustRegister(Name, func() generator.Generator { return &Generator{} },
		registry.WithWrapperName("metadatatester.Wrapper"))
}

// Generator passes its inputs through, scaled by the scalar arguments.
type Generator struct {
	inputType  *param.Param
	outputType *param.Param
	arrayCount *param.Param

	input *argument.Descriptor
	b     *argument.Descriptor
	i8    *argument.Descriptor
	i16   *argument.Descriptor
	i32   *argument.Descriptor
	i64   *argument.Descriptor
	u8    *argument.Descriptor
	u16   *argument.Descriptor
	u32   *argument.Descriptor
	u64   *argument.Descriptor
	f32   *argument.Descriptor
	f64   *argument.Descriptor
	h     *argument.Descriptor
	array *argument.Descriptor
}

func scalar(name string, t elemtype.Type, def, min, max any) *argument.Descriptor {
	return argument.Scalar(name, argument.T(t), argument.Default(def), argument.Bounds(min, max))
}

func (m *Generator) Declare(d *generator.Declarer) {
	m.inputType = d.Param(param.NewType("input_type", elemtype.Float(32)))
	m.outputType = d.Param(param.NewType("output_type", elemtype.Float(32)))
	m.arrayCount = d.Param(param.NewInt("array_count", 32, 2, param.Range(param.IntValue(1), param.IntValue(8))))

	d.UserContext()
	m.input = d.Input(argument.Input("input", argument.TypeOf("input_type"), argument.N(3)))
	m.b = d.Input(argument.Scalar("b", argument.T(elemtype.Bool()), argument.Default(true)))
	m.i8 = d.Input(scalar("i8", elemtype.Int(8), int8(8), int8(-8), int8(127)))
	m.i16 = d.Input(scalar("i16", elemtype.Int(16), int16(16), int16(-16), int16(127)))
	m.i32 = d.Input(scalar("i32", elemtype.Int(32), int32(32), int32(-32), int32(127)))
	m.i64 = d.Input(scalar("i64", elemtype.Int(64), int64(64), int64(-64), int64(127)))
	m.u8 = d.Input(scalar("u8", elemtype.UInt(8), uint8(80), uint8(8), uint8(255)))
	m.u16 = d.Input(scalar("u16", elemtype.UInt(16), uint16(160), uint16(16), uint16(2550)))
	m.u32 = d.Input(scalar("u32", elemtype.UInt(32), uint32(320), uint32(32), uint32(2550)))
	m.u64 = d.Input(scalar("u64", elemtype.UInt(64), uint64(640), uint64(64), uint64(2550)))
	m.f32 = d.Input(scalar("f32", elemtype.Float(32), float32(32.1234), float32(-3200.1234), float32(3200.1234)))
	m.f64 = d.Input(scalar("f64", elemtype.Float(64), 64.25, -6400.25, 6400.25))
	m.h = d.Input(argument.Scalar("h", argument.T(elemtype.Handle())))
	m.array = d.Input(argument.Input("array_input", argument.TypeOf("input_type"), argument.N(3),
		argument.Array(argument.NOf("array_count"))))

	d.Output(argument.Output("output",
		argument.Types(argument.TypeOf("output_type"), argument.T(elemtype.Float(32))), argument.N(3)))
	d.Output(argument.Output("array_output", argument.Types(argument.T(elemtype.Int(16))), argument.N(2),
		argument.Array(argument.NOf("array_count"))))
}

func (m *Generator) Generate(b *generator.BuildContext) error {
	in := m.input.Func(0).Name()
	b.Output("output").Define("{%s(%s(x, y, c)), float32(%s(x, y, c))}", m.outputType.ElemType(), in, in)
	for i, f := range b.OutputFuncs("array_output") {
		f.Define("int16(%s(x, y, 0) + %s)", m.array.Func(i).Name(), m.i16.Expr(0).Name())
	}
	return nil
}

func (m *Generator) Schedule(*generator.BuildContext) error { return nil }
