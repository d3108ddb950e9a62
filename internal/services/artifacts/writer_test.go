package artifacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/foreigntest/internal/common"
	"github.com/ternarybob/foreigntest/internal/models"
)

func TestWrite_ReplacesWholeFile(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, arbor.NewLogger())

	require.NoError(t, w.Write("bindings/a/a.go", []byte("first version, rather long\n")))
	require.NoError(t, w.Write("bindings/a/a.go", []byte("second\n")))

	data, err := os.ReadFile(filepath.Join(root, "bindings", "a", "a.go"))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))

	entries, err := os.ReadDir(filepath.Join(root, "bindings", "a"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestWrite_FailsWhenDirectoryIsAFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "native"), []byte("x"), 0o644))

	err := NewWriter(root, arbor.NewLogger()).Write("native/lib.c", []byte("int x;"))
	assert.ErrorIs(t, err, ErrWrite)
}

func TestWriteIndex_RoundTripsWithoutRunID(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, arbor.NewLogger())

	set := &models.ArtifactSet{RunID: "run_123", Project: "/proj"}
	set.Add(models.Artifact{
		Kind:    models.ArtifactDeclaration,
		Header:  "lib/lib_example.h",
		Path:    "bindings/lib_example/lib_example.go",
		Depends: []string{"lib/lib_example.h"},
	})

	entry, err := w.WriteIndex(set)
	require.NoError(t, err)
	assert.Equal(t, models.ArtifactIndex, entry.Kind)

	raw, err := os.ReadFile(w.Path(common.IndexFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "# Code generated by foreigntest."))
	assert.NotContains(t, string(raw), "run_123")

	loaded, err := ReadIndex(w.Path(common.IndexFile))
	require.NoError(t, err)
	assert.Equal(t, "/proj", loaded.Project)
	require.Len(t, loaded.Artifacts, 1)
	assert.Equal(t, set.Artifacts[0], loaded.Artifacts[0])
}

func TestPrune_RemovesArtifactsMissingFromNewRun(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "out")
	w := NewWriter(root, arbor.NewLogger())

	outside := filepath.Join(parent, "outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep me"), 0o644))

	prev := &models.ArtifactSet{Project: "/proj"}
	for _, p := range []string{"bindings/conf/conf.go", "bindings/keep/keep.go", "native/mock_conf_shim.c"} {
		require.NoError(t, w.Write(p, []byte("// generated\n")))
		prev.Add(models.Artifact{Kind: models.ArtifactDeclaration, Path: p})
	}
	prev.Add(models.Artifact{Kind: models.ArtifactShim, Path: "../outside.txt"})
	_, err := w.WriteIndex(prev)
	require.NoError(t, err)

	next := &models.ArtifactSet{Project: "/proj"}
	next.Add(models.Artifact{Kind: models.ArtifactDeclaration, Path: "bindings/keep/keep.go"})

	removed, err := w.Prune(next)
	require.NoError(t, err)
	assert.Equal(t, []string{"bindings/conf/conf.go", "native/mock_conf_shim.c"}, removed)

	tests := []struct {
		path   string
		exists bool
	}{
		{filepath.Join(root, "bindings", "conf"), false},
		{filepath.Join(root, "native"), false},
		{filepath.Join(root, "bindings", "keep", "keep.go"), true},
		{filepath.Join(root, common.IndexFile), true},
		{outside, true},
	}
	for _, tt := range tests {
		_, statErr := os.Stat(tt.path)
		assert.Equal(t, tt.exists, statErr == nil, tt.path)
	}
}

func TestPrune_WithoutPreviousIndex(t *testing.T) {
	removed, err := NewWriter(t.TempDir(), arbor.NewLogger()).Prune(&models.ArtifactSet{})
	require.NoError(t, err)
	assert.Empty(t, removed)
}
