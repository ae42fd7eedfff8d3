package metadatatester

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/kernelgen/argument"
	"github.com/vk/kernelgen/elemtype"
	"github.com/vk/kernelgen/emit"
	"github.com/vk/kernelgen/registry"
)

func build(t *testing.T, overrides map[string]string) *emit.Metadata {
	t.Helper()
	ctx := context.Background()
	r := registry.New()
	(&Module{}).Register(r)
	inst, err := r.Create(ctx, Name, overrides)
	require.NoError(t, err)
	require.NoError(t, inst.Build(ctx))
	md, err := emit.BuildMetadata(inst, "metadata_tester")
	require.NoError(t, err)
	return md
}

func TestMetadata_Rows(t *testing.T) {
	t.Parallel()

	// --- Act ---
	md := build(t, nil)

	// --- Assert ---
	names := lo.Map(md.Arguments, func(a emit.Argument, _ int) string { return a.Name })
	assert.Equal(t, []string{
		emit.UserContextName, "input", "b",
		"i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64", "f32", "f64", "h",
		"array_input_0", "array_input_1",
		"output.0", "output.1",
		"array_output_0", "array_output_1",
	}, names)
	assert.EqualValues(t, len(md.Arguments), md.NumArguments)
}

func TestMetadata_ScalarDefaultsAndBounds(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	md := build(t, nil)
	byName := lo.KeyBy(md.Arguments, func(a emit.Argument) string { return a.Name })

	// --- Assert ---
	i16 := byName["i16"]
	require.NotNil(t, i16.Def)
	assert.Equal(t, int64(16), i16.Def.Int())
	assert.Equal(t, int64(-16), i16.Min.Int())
	assert.Equal(t, int64(127), i16.Max.Int())

	u64 := byName["u64"]
	assert.Equal(t, uint64(640), u64.Def.UInt())
	assert.Equal(t, uint64(2550), u64.Max.UInt())

	f64 := byName["f64"]
	assert.Equal(t, 64.25, f64.Def.Float())
	assert.Equal(t, -6400.25, f64.Min.Float())

	b := byName["b"]
	require.NotNil(t, b.Def)
	assert.True(t, b.Def.Bool())
	assert.Nil(t, b.Min)
	assert.Nil(t, b.Max)

	h := byName["h"]
	assert.Equal(t, elemtype.CodeHandle, h.TypeCode)
	assert.Nil(t, h.Def)
	assert.Equal(t, argument.InputScalar, h.Kind)
}

func TestMetadata_TypeOverrides(t *testing.T) {
	t.Parallel()

	// --- Act ---
	md := build(t, map[string]string{"input_type": "uint16", "output_type": "int32", "array_count": "3"})

	// --- Assert ---
	byName := lo.KeyBy(md.Arguments, func(a emit.Argument) string { return a.Name })
	assert.Equal(t, elemtype.UInt(16), byName["input"].Type())
	assert.Equal(t, elemtype.UInt(16), byName["array_input_2"].Type())
	assert.Equal(t, elemtype.Int(32), byName["output.0"].Type())
	assert.Equal(t, elemtype.Float(32), byName["output.1"].Type())
	assert.Contains(t, byName, "array_output_2")
	assert.Len(t, md.Arguments, 22)
}

func TestHeader_ScalarTypes(t *testing.T) {
	t.Parallel()

	// --- Act ---
	h := emit.Header(build(t, nil))

	// --- Assert ---
	for _, want := range []string{
		"void const *__user_context",
		"bool b",
		"int8_t i8",
		"uint64_t u64",
		"float f32",
		"double f64",
		"void * h",
		"struct kernelgen_buffer_t *output_0",
	} {
		assert.Contains(t, h, want)
	}
}
