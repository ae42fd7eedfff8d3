package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	t.Parallel()

	testCases := map[string]bool{
		"blur":        true,
		"Blur3x3":     true,
		"array_count": true,
		"a":           true,
		"":            false,
		"_hidden":     false,
		"3d":          false,
		"double__bar": false,
		"with-dash":   false,
		"space here":  false,
		"trailing_":   true,
		"unicode_é":   false,
	}
	for name, want := range testCases {
		assert.Equal(t, want, Valid(name), "Valid(%q)", name)
	}
}

func TestExported(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "BagType", Exported("bag_type"))
	assert.Equal(t, "Input2d", Exported("input2d"))
	assert.Equal(t, "RGBLevel", Exported("RGB_level"))
	assert.Equal(t, "Plastic", Exported("plastic"))
}

func TestUnexported(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "arrayInput", Unexported("array_input"))
	assert.Equal(t, "typeArg", Unexported("type"))
	assert.Equal(t, "ctxArg", Unexported("ctx", "ctx", "factory"))
	assert.Equal(t, "_", Unexported("_"))
}
