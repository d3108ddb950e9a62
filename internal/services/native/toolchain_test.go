package native

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func hostToolchain(t *testing.T) *ExecToolchain {
	t.Helper()
	for _, tool := range []string{"cc", "ar"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available: %v", tool, err)
		}
	}
	return NewExecToolchain("", "", arbor.NewLogger())
}

func TestExecToolchain_SupportsFlag(t *testing.T) {
	tc := hostToolchain(t)
	ctx := context.Background()

	assert.True(t, tc.SupportsFlag(ctx, "-std=c99"))
	assert.False(t, tc.SupportsFlag(ctx, "--foreigntest-no-such-flag"))
	assert.True(t, tc.SupportsFlag(ctx, "-std=c99"), "cached answer")
}

func TestExecToolchain_CompileAndArchive(t *testing.T) {
	tc := hostToolchain(t)
	ctx := context.Background()
	dir := t.TempDir()

	src := filepath.Join(dir, "answer.c")
	require.NoError(t, os.WriteFile(src, []byte("int answer(void) { return 42; }\n"), 0o644))
	obj := filepath.Join(dir, "answer.o")
	require.NoError(t, tc.Compile(ctx, src, obj, []string{"-fPIC"}))

	lib := filepath.Join(dir, "libanswer.a")
	require.NoError(t, os.WriteFile(lib, []byte("stale"), 0o644))
	require.NoError(t, tc.Archive(ctx, lib, []string{obj}))

	data, err := os.ReadFile(lib)
	require.NoError(t, err)
	assert.Equal(t, "!<arch>\n", string(data[:8]))
}

func TestExecToolchain_CompileErrorCarriesOutput(t *testing.T) {
	tc := hostToolchain(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.c")
	require.NoError(t, os.WriteFile(src, []byte("int broken(void) { return }\n"), 0o644))

	err := tc.Compile(context.Background(), src, filepath.Join(dir, "broken.o"), nil)
	require.ErrorIs(t, err, ErrCompile)
	assert.Contains(t, err.Error(), "broken.c")
}
