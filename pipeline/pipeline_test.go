package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/kernelgen/elemtype"
)

func TestParseLoopLevel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in      string
		want    LoopLevel
		wantErr bool
	}{
		{in: "undefined", want: LoopLevel{}},
		{in: "root", want: Root()},
		{in: "inline", want: Inline()},
		{in: "blur.y", want: At("blur", "y")},
		{in: "blur", wantErr: true},
		{in: "blur.", wantErr: true},
		{in: "9f.x", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLoopLevel(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidLoopLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.in, got.String())
		})
	}
}

func TestLoopLevel_ZeroValueIsUndefined(t *testing.T) {
	t.Parallel()
	var l LoopLevel
	assert.True(t, l.IsUndefined())
	assert.Equal(t, "pipeline.LoopLevel{}", l.GoString())
	assert.Equal(t, `pipeline.At("f", "x")`, At("f", "x").GoString())
}

func TestFunc_RecordsDefinitionsAndSchedule(t *testing.T) {
	t.Parallel()

	f := NewFunc("blur", 2, elemtype.Float(32))
	assert.False(t, f.Defined())

	f.Define("blur(x, y) = in(x, y) * %d", 2).
		ComputeRoot().
		Vectorize("x", 8).
		Parallel("y")
	assert.True(t, f.Defined())

	steps := f.ScheduleSteps()
	require.Len(t, steps, 3)
	assert.Equal(t, "vectorize(x, 8)", steps[1].String())

	in := NewInputFunc("in", 2, elemtype.UInt(8))
	assert.True(t, in.Defined())
	assert.True(t, in.IsInput())
}

func TestPipeline_String(t *testing.T) {
	t.Parallel()

	out := NewFunc("out", 1, elemtype.Int(32), elemtype.Float(64))
	out.Define("out(x) = {x, x / 2.0}").ComputeAt(At("consumer", "x"))
	p := New(out)

	want := "func out(1) -> (int32, float64) {\n" +
		"  out(x) = {x, x / 2.0}\n" +
		"  schedule compute_at(consumer.x)\n" +
		"}\n"
	assert.Equal(t, want, p.String())
	assert.Len(t, p.Outputs(), 1)
}

func TestHandles(t *testing.T) {
	t.Parallel()

	e := NewExpr("count", elemtype.Int(32))
	hs := ExprHandles([]*Expr{e})
	require.Len(t, hs, 1)
	assert.Equal(t, 0, hs[0].Dimensions())
	assert.Equal(t, []elemtype.Type{elemtype.Int(32)}, hs[0].Types())

	fs := FuncHandles([]*Func{NewFunc("a", 2), NewFunc("b", 3)})
	assert.Equal(t, "b", fs[1].Name())
}
