package buildfile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/kernelgen/internal/testutil"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"build.hcl": `
generator "wraptest" {
  function_name = "wraptest_fn"
  output_dir    = "out"
  target        = "x86-64-linux-avx2"
  emit          = ["metadata", "wrapper"]
  wrapper_name  = "wrapns.Wrapper"
  params = {
    array_count = 3
    bag_type    = "plastic"
    gain        = 0.5
    vectorize   = false
  }
}

generator "xorimage" {
  output_dir = "/abs/out"
}
`})

	// --- Act ---
	got, err := Load(context.Background(), dir)

	// --- Assert ---
	require.NoError(t, err)
	want := []Invocation{
		{
			Generator:    "wraptest",
			FunctionName: "wraptest_fn",
			OutputDir:    filepath.Join(dir, "out"),
			Target:       "x86-64-linux-avx2",
			Emit:         []string{"metadata", "wrapper"},
			WrapperName:  "wrapns.Wrapper",
			Params: map[string]string{
				"array_count": "3",
				"bag_type":    "plastic",
				"gain":        "0.5",
				"vectorize":   "false",
			},
			File: filepath.Join(dir, "build.hcl"),
		},
		{
			Generator:    "xorimage",
			FunctionName: "xorimage",
			OutputDir:    "/abs/out",
			Target:       "host",
			Params:       map[string]string{},
			File:         filepath.Join(dir, "build.hcl"),
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("invocations mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	testCases := map[string]string{
		"syntax":           `generator "a" {`,
		"missing dir":      `generator "a" {}`,
		"unknown attr":     "generator \"a\" {\n  output_dir = \"o\"\n  colour = \"red\"\n}\n",
		"unknown block":    `pipeline "a" {}`,
		"list param":       "generator \"a\" {\n  output_dir = \"o\"\n  params = { xs = [1, 2] }\n}\n",
		"null param":       "generator \"a\" {\n  output_dir = \"o\"\n  params = { x = null }\n}\n",
		"params not obj":   "generator \"a\" {\n  output_dir = \"o\"\n  params = \"x=1\"\n}\n",
		"duplicate output": "generator \"a\" {\n  output_dir = \"o\"\n}\n" +
			"generator \"b\" {\n  output_dir = \"o\"\n  function_name = \"a\"\n}\n",
	}

	for name, content := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			testutil.WriteFiles(t, dir, map[string]string{"build.hcl": content})
			_, err := Load(context.Background(), dir)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingPath(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.hcl"))
	assert.Error(t, err)
}
