package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/foreigntest/internal/common"
)

func TestResolve(t *testing.T) {
	base, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "native", "proj"), 0o755))

	tests := []struct {
		name string
		path string
	}{
		{"absolute", filepath.Join(base, "native", "proj")},
		{"relative to manifest", "native/proj"},
		{"unclean", filepath.Join(base, "native", "..", "native", "proj") + string(filepath.Separator)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(&common.Config{ProjectPath: tt.path, CompileCommandsPath: "build/compile_commands.json"}, base)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(base, "native", "proj"), got.Root)
			assert.Equal(t, filepath.Join(base, "native", "proj", "build", "compile_commands.json"), got.CompileCommands)
		})
	}
}

func TestResolve_FollowsSymlinks(t *testing.T) {
	base, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	target := filepath.Join(base, "real")
	require.NoError(t, os.Mkdir(target, 0o755))
	if err := os.Symlink(target, filepath.Join(base, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	got, err := Resolve(&common.Config{ProjectPath: filepath.Join(base, "link"), CompileCommandsPath: "cc.json"}, base)
	require.NoError(t, err)
	assert.Equal(t, target, got.Root)
}

func TestResolve_MissingProject(t *testing.T) {
	_, err := Resolve(&common.Config{ProjectPath: "/definitely/not/here", CompileCommandsPath: "x"}, "/")
	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.Contains(t, err.Error(), "path does not exist")
}

func TestResolve_DoesNotCheckCompileCommands(t *testing.T) {
	base := t.TempDir()
	_, err := Resolve(&common.Config{ProjectPath: base, CompileCommandsPath: "missing/compile_commands.json"}, "/")
	assert.NoError(t, err)
}
