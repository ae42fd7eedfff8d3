package param

import (
	"errors"
	"go/parser"
	"go/token"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/kernelgen/elemtype"
	"github.com/vk/kernelgen/pipeline"
	"github.com/vk/kernelgen/target"
)

func TestRoundTrip_EveryKind(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		param *Param
		value Value
	}{
		{"int8 min", NewInt("a", 8, 0), IntValue(math.MinInt8)},
		{"int64 max", NewInt("a", 64, 0), IntValue(math.MaxInt64)},
		{"uint16", NewUint("a", 16, 0), UintValue(65535)},
		{"uint64 max", NewUint("a", 64, 0), UintValue(math.MaxUint64)},
		{"float32", NewFloat("a", 32, 0), FloatValue(float32(0.1))},
		{"float64", NewFloat("a", 64, 0), FloatValue(-1.0 / 3.0)},
		{"float64 inf", NewFloat("a", 64, 0), FloatValue(math.Inf(-1))},
		{"bool", NewBool("a", false), BoolValue(true)},
		{"enum", NewEnum("a", "paper", map[string]int{"paper": 0, "plastic": 1}), EnumValue("plastic")},
		{"type", NewType("a", elemtype.UInt(8)), TypeValue(elemtype.Float(64))},
		{"type bool", NewType("a", elemtype.UInt(8)), TypeValue(elemtype.Bool())},
		{"target", NewTarget("a", target.MustParse("x86-64-linux")), TargetValue(target.MustParse("arm-64-osx-arm_dot_prod"))},
		{"loop root", NewLoopLevel("a", pipeline.LoopLevel{}), LoopLevelValue(pipeline.Root())},
		{"loop at", NewLoopLevel("a", pipeline.Inline()), LoopLevelValue(pipeline.At("f", "x"))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, tc.param.Err())
			require.NoError(t, tc.param.Set(tc.value))
			text := tc.param.Text()

			fresh := tc.param.Clone()
			require.NoError(t, fresh.Set(tc.param.Default()))
			require.NoError(t, fresh.SetFromText(text))
			assert.Equal(t, tc.param.Value(), fresh.Value())
			assert.Equal(t, text, fresh.Text())
		})
	}
}

func TestBounds(t *testing.T) {
	t.Parallel()

	p := NewInt("level", 32, 5, Range(IntValue(0), IntValue(10)))
	require.NoError(t, p.Err())

	err := p.Set(IntValue(11))
	require.ErrorIs(t, err, ErrOutOfRange)
	assert.Equal(t, int64(5), p.Int(), "rejected set must not mutate")

	err = p.SetFromText("11")
	require.ErrorIs(t, err, ErrOutOfRange)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "level", verr.Param)
	assert.Equal(t, "11", verr.Input)

	require.NoError(t, p.Set(IntValue(10)))
	require.NoError(t, p.Set(IntValue(0)))
	require.ErrorIs(t, p.Set(IntValue(-1)), ErrOutOfRange)
}

func TestSetFromText_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		param *Param
		input string
		want  error
	}{
		{"trailing garbage", NewInt("a", 32, 0), "12abc", ErrParseFailure},
		{"empty", NewInt("a", 32, 0), "", ErrParseFailure},
		{"width overflow", NewInt("a", 8, 0), "128", ErrOutOfRange},
		{"uint negative", NewUint("a", 8, 0), "-1", ErrParseFailure},
		{"uint overflow", NewUint("a", 8, 0), "256", ErrOutOfRange},
		{"float junk", NewFloat("a", 32, 0), "1.5f", ErrParseFailure},
		{"float32 overflow", NewFloat("a", 32, 0), "1e39", ErrOutOfRange},
		{"bool capital", NewBool("a", false), "True", ErrParseFailure},
		{"bool number", NewBool("a", false), "1", ErrParseFailure},
		{"enum", NewEnum("a", "paper", map[string]int{"paper": 0, "plastic": 1}), "glass", ErrUnknownVariant},
		{"type", NewType("a", elemtype.Int(32)), "int7", ErrUnknownVariant},
		{"type handle", NewType("a", elemtype.Int(32)), "handle", ErrUnknownVariant},
		{"target", NewTarget("a", target.MustParse("x86-64-linux")), "x86-64", ErrParseFailure},
		{"loop level", NewLoopLevel("a", pipeline.Root()), "nowhere", ErrParseFailure},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.param.Value()
			err := tc.param.SetFromText(tc.input)
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, before, tc.param.Value())
		})
	}
}

func TestEnum(t *testing.T) {
	t.Parallel()

	p := NewEnum("bag_type", "paper", map[string]int{"paper": 0, "plastic": 1})
	require.NoError(t, p.Err())

	require.NoError(t, p.SetFromText("plastic"))
	assert.Equal(t, "plastic", p.Text())
	assert.Equal(t, 1, p.EnumInt())

	require.ErrorIs(t, p.SetFromText("glass"), ErrUnknownVariant)
	assert.Equal(t, "plastic", p.EnumName())

	assert.Equal(t, []EnumEntry{{"paper", 0}, {"plastic", 1}}, p.Enum())
}

func TestDeclarationErrors(t *testing.T) {
	t.Parallel()

	testCases := map[string]*Param{
		"bad name":          NewInt("9lives", 32, 0),
		"double underscore": NewInt("a__b", 32, 0),
		"bad width":         NewInt("a", 12, 0),
		"bad float width":   NewFloat("a", 16, 0),
		"empty enum":        NewEnum("a", "x", nil),
		"enum default":      NewEnum("a", "glass", map[string]int{"paper": 0}),
		"enum dup values":   NewEnum("a", "x", map[string]int{"x": 0, "y": 0}),
		"bounds on bool":    NewBool("a", true, Min(BoolValue(false))),
		"bound kind":        NewInt("a", 32, 0, Max(UintValue(3))),
		"min over max":      NewInt("a", 32, 0, Range(IntValue(5), IntValue(1))),
		"default out":       NewInt("a", 32, 20, Range(IntValue(0), IntValue(10))),
		"default width":     NewUint("a", 8, 300),
	}
	for name, p := range testCases {
		assert.Error(t, p.Err(), name)
	}
	require.ErrorIs(t, NewInt("a", 12, 0).Err(), ErrInvalidDecl)
}

func TestKindMismatch(t *testing.T) {
	t.Parallel()
	p := NewInt("a", 32, 0)
	require.ErrorIs(t, p.Set(FloatValue(1)), ErrKindMismatch)
	assert.Panics(t, func() { p.Bool() })
}

func TestFreeze(t *testing.T) {
	t.Parallel()
	p := NewBool("vectorize", true, ScheduleStage())
	assert.True(t, p.IsScheduleStage())
	p.Freeze()
	require.ErrorIs(t, p.Set(BoolValue(false)), ErrFrozen)
	assert.True(t, p.Bool())

	c := p.Clone()
	assert.False(t, c.Frozen())
	require.NoError(t, c.Set(BoolValue(false)))
	assert.True(t, p.Bool(), "clone must not alias")
}

func TestFloat32_IsRoundedOnSet(t *testing.T) {
	t.Parallel()
	p := NewFloat("a", 32, 0)
	require.NoError(t, p.Set(FloatValue(0.1)))
	assert.Equal(t, float64(float32(0.1)), p.Float())
	assert.Equal(t, "0.1", p.Text())
}

func TestFloat32_BoundsAreRounded(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ranged := NewFloat("gain", 32, 0, Range(FloatValue(0), FloatValue(0.1)))
	require.NoError(t, ranged.Err())

	// --- Act & Assert ---
	require.NoError(t, ranged.Set(FloatValue(0.1)), "value equal to the bound is in range")
	require.NoError(t, ranged.SetFromText("0.1"))
	assert.Equal(t, float64(float32(0.1)), ranged.Float())
	require.ErrorIs(t, ranged.SetFromText("0.11"), ErrOutOfRange)

	atMax := NewFloat("gain", 32, 0.1, Max(FloatValue(0.1)))
	assert.NoError(t, atMax.Err(), "default equal to max must be accepted")
}

func TestTarget_RejectsInvalidValue(t *testing.T) {
	t.Parallel()

	testCases := map[string]target.Target{
		"zero value":   {},
		"unknown arch": {Arch: "z80", Bits: 8, OS: "cpm"},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			p := NewTarget("target", target.MustParse("x86-64-linux"))
			before := p.Value()

			// --- Act ---
			err := p.Set(TargetValue(tc))

			// --- Assert ---
			require.ErrorIs(t, err, ErrParseFailure)
			assert.Equal(t, before, p.Value())
		})
	}
}

func TestEmission(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		param      *Param
		goType     string
		defLiteral string
		toString   string
	}{
		{NewInt("a", 16, -3), "int16", "-3", "strconv.FormatInt(int64(p.A), 10)"},
		{NewUint("a", 64, 7), "uint64", "7", "strconv.FormatUint(uint64(p.A), 10)"},
		{NewFloat("a", 32, 1.5), "float32", "1.5", "strconv.FormatFloat(float64(p.A), 'g', -1, 32)"},
		{NewFloat("a", 64, math.Inf(1)), "float64", "float64(math.Inf(1))", "strconv.FormatFloat(float64(p.A), 'g', -1, 64)"},
		{NewBool("a", true), "bool", "true", "strconv.FormatBool(p.A)"},
		{NewEnum("a", "plastic", map[string]int{"paper": 0, "plastic": 1}), "BagType", "BagTypePlastic", "p.A.String()"},
		{NewType("a", elemtype.UInt(8)), "elemtype.Type", "elemtype.UInt(8)", "p.A.String()"},
		{NewTarget("a", target.MustParse("x86-64-linux-avx2")), "target.Target", `target.MustParse("x86-64-linux-avx2")`, "p.A.String()"},
		{NewLoopLevel("a", pipeline.Root()), "pipeline.LoopLevel", "pipeline.Root()", "p.A.String()"},
	}
	for _, tc := range testCases {
		t.Run(tc.goType, func(t *testing.T) {
			require.NoError(t, tc.param.Err())
			assert.Equal(t, tc.goType, tc.param.GoType("BagType"))
			assert.Equal(t, tc.defLiteral, tc.param.DefaultLiteral("BagType"))
			assert.Equal(t, tc.toString, tc.param.ToStringExpr("p.A"))

			_, err := parser.ParseExpr(tc.param.DefaultLiteral("BagType"))
			assert.NoError(t, err)
		})
	}
}

func TestTypeDecls_IsValidGo(t *testing.T) {
	t.Parallel()

	p := NewEnum("bag_type", "paper", map[string]int{"paper": 0, "plastic": 1, "glass": 2})
	decls := p.TypeDecls("BagType")
	assert.Contains(t, decls, "BagTypeGlass BagType = 2")
	assert.Contains(t, decls, "func ParseBagType(s string) (BagType, bool)")

	src := "package x\n\nimport \"strconv\"\n\n" + decls
	_, err := parser.ParseFile(token.NewFileSet(), "x.go", src, 0)
	require.NoError(t, err)

	assert.Empty(t, NewInt("a", 32, 0).TypeDecls("X"))
}
