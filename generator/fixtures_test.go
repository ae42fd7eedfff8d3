package generator

import (
	"errors"

	"github.com/vk/kernelgen/argument"
	"github.com/vk/kernelgen/elemtype"
	"github.com/vk/kernelgen/param"
	"github.com/vk/kernelgen/pipeline"
)

// blur is a phased generator with one schedule-stage value.
type blur struct {
	radius    *param.Param
	vectorize *param.Param
	input     *argument.Descriptor
	output    *argument.Descriptor

	generateCalls int
	scheduleCalls int
	failGenerate  bool
	skipDefine    bool
}

func (g *blur) Declare(d *Declarer) {
	g.radius = d.Param(param.NewInt("radius", 32, 1, param.Range(param.IntValue(0), param.IntValue(8))))
	g.vectorize = d.Param(param.NewBool("vectorize", true, param.ScheduleStage()))
	g.input = d.Input(argument.Input("input", argument.T(elemtype.UInt(8)), argument.N(2)))
	g.output = d.Output(argument.Output("output", argument.Types(argument.T(elemtype.UInt(8))), argument.N(2)))
}

func (g *blur) Generate(b *BuildContext) error {
	g.generateCalls++
	if g.failGenerate {
		return errors.New("boom")
	}
	if !g.skipDefine {
		b.Output("output").Define("input(x, y) + %d", g.radius.Int())
	}
	return nil
}

func (g *blur) Schedule(b *BuildContext) error {
	g.scheduleCalls++
	if g.vectorize.Bool() {
		b.Output("output").Vectorize("x", b.NaturalVectorSize(elemtype.UInt(8)))
	}
	return nil
}

// xor is a one-shot generator.
type xor struct {
	mask   *param.Param
	output *argument.Descriptor
	calls  int
	noPipe bool
}

func (g *xor) Declare(d *Declarer) {
	g.mask = d.Param(param.NewUint("mask", 8, 0xff))
	g.output = d.Output(argument.Output("output", argument.Types(argument.T(elemtype.UInt(8))), argument.N(2)))
}

func (g *xor) Build(b *BuildContext) (*pipeline.Pipeline, error) {
	g.calls++
	if g.noPipe {
		return nil, nil
	}
	out := b.Output("output").Define("(x ^ y) & %d", g.mask.Uint())
	return pipeline.New(out), nil
}

// both implements both protocols and must be rejected.
type both struct{ xor }

func (both) Generate(*BuildContext) error { return nil }
func (both) Schedule(*BuildContext) error { return nil }

// neither implements no protocol.
type neither struct{}

func (neither) Declare(*Declarer) {}

// declOnly is a one-shot generator whose declaration is supplied by a test.
type declOnly struct {
	decl func(d *Declarer)
}

func (g declOnly) Declare(d *Declarer) { g.decl(d) }

func (declOnly) Build(*BuildContext) (*pipeline.Pipeline, error) { return pipeline.New(), nil }

// arrays is a phased generator with type-parameterized array arguments.
type arrays struct {
	typ    *param.Param
	count  *param.Param
	inputs *argument.Descriptor
	offset *argument.Descriptor
	sums   *argument.Descriptor
}

func (g *arrays) Declare(d *Declarer) {
	g.typ = d.Param(param.NewType("elem_type", elemtype.Int(16)))
	g.count = d.Param(param.NewInt("count", 32, 2, param.Range(param.IntValue(1), param.IntValue(4))))
	g.inputs = d.Input(argument.Input("planes", argument.TypeOf("elem_type"), argument.N(1), argument.Array(argument.NOf("count"))))
	g.offset = d.Input(argument.Scalar("offset", argument.TypeOf("elem_type"), argument.Default(3), argument.Bounds(0, 10)))
	g.sums = d.Output(argument.Output("sums", argument.Types(argument.TypeOf("elem_type")), argument.N(1), argument.Array(argument.NOf("count"))))
}

func (g *arrays) Generate(b *BuildContext) error {
	for k, f := range b.OutputFuncs("sums") {
		f.Define("planes_%d(x) + offset", k)
	}
	return nil
}

func (g *arrays) Schedule(b *BuildContext) error {
	for _, f := range b.OutputFuncs("sums") {
		f.ComputeRoot()
	}
	return nil
}
