package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/kernelgen/internal/testutil"
	"github.com/vk/kernelgen/modules/xorimage"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out bytes.Buffer
	logs := &testutil.SafeBuffer{}
	err := Execute(args, &out, logs, &xorimage.Module{})
	return out.String(), logs.String(), err
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected *ExitError, got %T: %v", err, err)
	assert.Equal(t, code, exitErr.Code)
}

func TestExecute_UsageErrors(t *testing.T) {
	t.Parallel()

	testCases := map[string][]string{
		"unknown flag":         {"--this-is-not-a-valid-flag"},
		"unknown command":      {"compile"},
		"bad log level":        {"--log-level", "trace", "list"},
		"bad log format":       {"--log-format", "xml", "list"},
		"zero workers":         {"--workers", "0", "list"},
		"list with args":       {"list", "extra"},
		"generate no name":     {"generate", "-o", "out"},
		"generate no dir":      {"generate", "-g", "xorimage"},
		"generate bad param":   {"generate", "-g", "xorimage", "-o", "out", "mask"},
		"generate empty key":   {"generate", "-g", "xorimage", "-o", "out", "=3"},
		"generate twice":       {"generate", "-g", "xorimage", "-o", "out", "mask=1", "mask=2"},
		"build without a file": {"build"},
	}
	for name, args := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, _, err := execute(t, args...)
			requireExitCode(t, err, 2)
		})
	}
}

func TestExecute_Help(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{}, {"--help"}, {"generate", "--help"}} {
		out, _, err := execute(t, args...)
		require.NoError(t, err)
		assert.Contains(t, out, "Usage:")
	}
}

func TestExecute_List(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "list")

	require.NoError(t, err)
	assert.Equal(t, []string{"xorimage", "one-shot", "xorimage.Wrapper"}, strings.Fields(out))
}

func TestExecute_Generate(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()

	// --- Act ---
	out, logs, err := execute(t, "--log-level", "debug",
		"generate", "-g", "xorimage", "-f", "xor_fn", "-o", dir, "-t", "x86-64-linux-sse41",
		"-e", "metadata,stmt", "mask=3")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "xor_fn.json")+"\n"+filepath.Join(dir, "xor_fn.stmt")+"\n", out)
	stmt, err := os.ReadFile(filepath.Join(dir, "xor_fn.stmt"))
	require.NoError(t, err)
	assert.Contains(t, string(stmt), "input(x, y) ^ 3")
	assert.Contains(t, logs, "Creating generator instance.")
}

func TestExecute_GenerateFailure(t *testing.T) {
	t.Parallel()

	// --- Act ---
	_, _, err := execute(t, "generate", "-g", "sharpen", "-o", t.TempDir())

	// --- Assert ---
	require.Error(t, err)
	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr), "driver failures are not usage errors")
	assert.Contains(t, err.Error(), "sharpen")
}

func TestExecute_Build(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{"gen/build.hcl": `
generator "xorimage" {
  output_dir = "out"
  emit       = ["header"]
}
`})

	// --- Act ---
	out, _, err := execute(t, "--workers", "1", "build", filepath.Join(dir, "gen"))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "gen", "out", "xorimage.h")+"\n", out)
}
