// Package wraptest registers a phased generator that exercises every kind of
// configuration value, array arguments and tuple outputs. Its wrapper is
// emitted as wrapns.Wrapper.
package wraptest

import (
	"github.com/vk/kernelgen/argument"
	"github.com/vk/kernelgen/elemtype"
	"github.com/vk/kernelgen/generator"
	"github.com/vk/kernelgen/param"
	"github.com/vk/kernelgen/pipeline"
	"github.com/vk/kernelgen/registry"
)

// Name is the registry name of the generator.
const Name = "wraptest"

// Bag types selectable through bag_type.
const (
	BagPaper   = 0
	BagPlastic = 1
	BagGlass   = 2
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register adds the generator to r.
func (m *Module) Register(r *registry.Registry) {
	r.MustRegister(Name, func() generator.Generator { return &Generator{} },
		registry.WithWrapperName("wrapns.Wrapper"))
}

// Generator scales its inputs by float_arg and offsets them by int_arg.
type Generator struct {
	inputType         *param.Param
	outputType        *param.Param
	arrayCount        *param.Param
	bagType           *param.Param
	vectorize         *param.Param
	intermediateLevel *param.Param

	input    *argument.Descriptor
	floatArg *argument.Descriptor
	intArg   *argument.Descriptor
	f        *argument.Descriptor
	g        *argument.Descriptor

	intermediate *pipeline.Func
}

func (w *Generator) Declare(d *generator.Declarer) {
	w.inputType = d.Param(param.NewType("input_type", elemtype.UInt(8)))
	w.outputType = d.Param(param.NewType("output_type", elemtype.Float(32)))
	w.arrayCount = d.Param(param.NewInt("array_count", 32, 2, param.Min(param.IntValue(1))))
	w.bagType = d.Param(param.NewEnum("bag_type", "paper", map[string]int{
		"paper":   BagPaper,
		"plastic": BagPlastic,
		"glass":   BagGlass,
	}))
	w.vectorize = d.Param(param.NewBool("vectorize", true, param.ScheduleStage()))
	w.intermediateLevel = d.Param(param.NewLoopLevel("intermediate_level", pipeline.LoopLevel{}, param.ScheduleStage()))

	w.input = d.Input(argument.Input("input", argument.TypeOf("input_type"), argument.N(3),
		argument.Array(argument.NOf("array_count"))))
	w.floatArg = d.Input(argument.Scalar("float_arg", argument.T(elemtype.Float(32)),
		argument.Default(1.0), argument.Bounds(0.0, 100.0)))
	w.intArg = d.Input(argument.Scalar("int_arg", argument.T(elemtype.Int(32)),
		argument.Default(1), argument.Array(argument.NOf("array_count"))))

	w.f = d.Output(argument.Output("f",
		argument.Types(argument.TypeOf("input_type"), argument.TypeOf("output_type")), argument.N(3)))
	w.g = d.Output(argument.Output("g", argument.Types(argument.T(elemtype.Int(16))), argument.N(2),
		argument.Array(argument.NOf("array_count"))))
}

func (w *Generator) Generate(b *generator.BuildContext) error {
	in0 := w.input.Func(0).Name()
	scale := w.floatArg.Expr(0).Name()
	w.intermediate = pipeline.NewFunc("intermediate", 3, elemtype.Float(32)).
		Define("%s(x, y, c) * %s", in0, scale)

	b.Output("f").Define("{intermediate(x, y, c), %s(intermediate(x, y, c) + %s)}",
		w.outputType.ElemType(), w.intArg.Expr(0).Name())

	for i, g := range b.OutputFuncs("g") {
		g.Define("int16(%s(x, y, 0) + %s)", w.input.Func(i).Name(), w.intArg.Expr(i).Name())
	}
	b.Logger().Debug("Defined wraptest outputs.", "array_count", w.arrayCount.Int(), "bag_type", w.bagType.EnumName())
	return nil
}

func (w *Generator) Schedule(b *generator.BuildContext) error {
	if lvl := w.intermediateLevel.LoopLevel(); !lvl.IsUndefined() {
		w.intermediate.ComputeAt(lvl)
	}
	if w.vectorize.Bool() {
		w.intermediate.Vectorize("x", b.NaturalVectorSize(elemtype.Float(32)))
	}
	return nil
}
