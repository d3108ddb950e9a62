package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"go.uber.org/mock/gomock"

	"github.com/ternarybob/foreigntest/internal/interfaces/mocks"
	"github.com/ternarybob/foreigntest/internal/models"
	"github.com/ternarybob/foreigntest/internal/services/cdecl"
	"github.com/ternarybob/foreigntest/internal/services/discovery"
	"github.com/ternarybob/foreigntest/internal/services/native"
)

// writeManifest points a manifest at the example project
func writeManifest(t *testing.T, body string) string {
	t.Helper()
	project, err := filepath.Abs(filepath.Join("..", "..", "testdata", "project"))
	require.NoError(t, err)

	dir := t.TempDir()
	if body == "" {
		body = "[package.metadata.foreigntest]\n" +
			"project_path = '" + project + "'\n" +
			"compile_commands_path = 'build/compile_commands.json'\n" +
			"linker_args = ['-lm']\n"
	}
	path := filepath.Join(dir, "foreigntest.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// fakeToolchain compiles nothing and archives a placeholder library
func fakeToolchain(t *testing.T) *mocks.MockToolchain {
	ctrl := gomock.NewController(t)
	tc := mocks.NewMockToolchain(ctrl)
	tc.EXPECT().SupportsFlag(gomock.Any(), gomock.Any()).Return(true).AnyTimes()
	tc.EXPECT().Compile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	tc.EXPECT().Archive(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, lib string, _ []string) error {
			return os.WriteFile(lib, []byte("!<arch>\n"), 0o644)
		}).
		AnyTimes()
	return tc
}

func newPipeline(t *testing.T, out string, tc *mocks.MockToolchain) *Pipeline {
	return NewPipeline(Options{
		OutDir:       out,
		Discovery:    discovery.NewFixed(),
		Preprocessor: cdecl.FilePreprocessor{},
		Toolchain:    tc,
	}, arbor.NewLogger())
}

func TestRun_GeneratesEveryArtifact(t *testing.T) {
	out := t.TempDir()
	set, err := newPipeline(t, out, fakeToolchain(t)).Run(context.Background(), writeManifest(t, ""))
	require.NoError(t, err)

	var paths []string
	for _, a := range set.Artifacts {
		paths = append(paths, a.Path)
	}
	assert.Equal(t, []string{
		"bindings/app_example/app_example.go",
		"bindings/util_example/util_example.go",
		"bindings/lib_example/lib_example.go",
		"mocks/mock_util_example/mock_util_example.go",
		"mocks/mock_lib_example/mock_lib_example.go",
		"native/mock_lib_example_shim.c",
		"native/libforeigntest.a",
		"foreigntest.artifacts.yaml",
	}, paths)

	for _, p := range paths {
		_, err := os.Stat(filepath.Join(out, filepath.FromSlash(p)))
		assert.NoError(t, err, p)
	}

	lib := set.ByKind(models.ArtifactLibrary)
	require.Len(t, lib, 1)
	assert.Equal(t, []string{"source/app/app_example.c", "source/util/util_example.c"}, lib[0].Depends)

	util, err := os.ReadFile(filepath.Join(out, "bindings", "util_example", "util_example.go"))
	require.NoError(t, err)
	assert.Contains(t, string(util), "func UtilSum(count int32, first int32, second int32) int32 {")
	assert.Contains(t, string(util), "const UtilMaxOperands = C.UTIL_MAX_OPERANDS")
	assert.Contains(t, string(util), "-lforeigntest -lm")
}

func TestRun_IsDeterministic(t *testing.T) {
	manifest := writeManifest(t, "")
	outA, outB := t.TempDir(), t.TempDir()

	_, err := newPipeline(t, outA, fakeToolchain(t)).Run(context.Background(), manifest)
	require.NoError(t, err)
	_, err = newPipeline(t, outB, fakeToolchain(t)).Run(context.Background(), manifest)
	require.NoError(t, err)

	for _, rel := range []string{
		"bindings/lib_example/lib_example.go",
		"mocks/mock_lib_example/mock_lib_example.go",
		"native/mock_lib_example_shim.c",
		"foreigntest.artifacts.yaml",
	} {
		a, err := os.ReadFile(filepath.Join(outA, filepath.FromSlash(rel)))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(outB, filepath.FromSlash(rel)))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b), rel)
	}
}

func TestRun_ReportsFailingStage(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		want     Stage
	}{
		{
			name:     "unknown key",
			manifest: "[package.metadata.foreigntest]\nproject_path = '/x'\ncompile_commands_path = 'c.json'\nbogus = 1\n",
			want:     StageConfig,
		},
		{
			name:     "missing project",
			manifest: "[package.metadata.foreigntest]\nproject_path = '/definitely/not/here'\ncompile_commands_path = 'c.json'\n",
			want:     StageResolve,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newPipeline(t, t.TempDir(), fakeToolchain(t)).Run(context.Background(), writeManifest(t, tt.manifest))
			var stageErr *StageError
			require.True(t, errors.As(err, &stageErr), "got %v", err)
			assert.Equal(t, tt.want, stageErr.Stage)
		})
	}
}

func TestRun_CompileFailureLeavesNoIndex(t *testing.T) {
	out := t.TempDir()
	ctrl := gomock.NewController(t)
	tc := mocks.NewMockToolchain(ctrl)
	tc.EXPECT().SupportsFlag(gomock.Any(), gomock.Any()).Return(true).AnyTimes()
	tc.EXPECT().Compile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(native.ErrCompile)

	_, err := newPipeline(t, out, tc).Run(context.Background(), writeManifest(t, ""))
	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageCompile, stageErr.Stage)
	assert.ErrorIs(t, err, native.ErrCompile)

	_, statErr := os.Stat(filepath.Join(out, "foreigntest.artifacts.yaml"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_OutputBlockedByFile(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "bindings"), []byte("not a directory"), 0o644))

	_, err := newPipeline(t, out, fakeToolchain(t)).Run(context.Background(), writeManifest(t, ""))
	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageWrite, stageErr.Stage)
}

func TestRun_RemovesArtifactsOfExcludedHeader(t *testing.T) {
	out := t.TempDir()
	_, err := newPipeline(t, out, fakeToolchain(t)).Run(context.Background(), writeManifest(t, ""))
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(out, "native", "mock_lib_example_shim.c"))

	project, err := filepath.Abs(filepath.Join("..", "..", "testdata", "project"))
	require.NoError(t, err)
	manifest := writeManifest(t, "[package.metadata.foreigntest]\n"+
		"project_path = '"+project+"'\n"+
		"compile_commands_path = 'build/compile_commands.json'\n"+
		"exclude_header_files_paths = ['lib/lib_example.h']\n")

	set, err := newPipeline(t, out, fakeToolchain(t)).Run(context.Background(), manifest)
	require.NoError(t, err)
	for _, a := range set.Artifacts {
		assert.NotContains(t, a.Path, "lib_example", "excluded header still generated")
	}

	for _, rel := range []string{"bindings/lib_example", "mocks/mock_lib_example", "native/mock_lib_example_shim.c"} {
		_, statErr := os.Stat(filepath.Join(out, filepath.FromSlash(rel)))
		assert.True(t, os.IsNotExist(statErr), rel)
	}
	assert.FileExists(t, filepath.Join(out, "bindings", "util_example", "util_example.go"))
	assert.FileExists(t, filepath.Join(out, "native", "libforeigntest.a"))
}
