package native

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
	"github.com/ternarybob/foreigntest/internal/services/artifacts"
)

var selection = &models.HeaderSelection{
	Headers: []models.HeaderFile{
		{Rel: "source/app/app_example.h", Abs: "/proj/source/app/app_example.h", Stem: "app_example"},
		{Rel: "lib/lib_example.h", Abs: "/proj/lib/lib_example.h", Stem: "lib_example"},
	},
	Sources: []string{"/proj/source/app/app_example.c"},
	Support: &models.HeaderFile{Rel: "include/support.h", Abs: "/proj/include/support.h", Stem: "support"},
}

func TestFlags_ChecksBaselineAndOrdersIncludes(t *testing.T) {
	ctrl := gomock.NewController(t)
	tc := mocks.NewMockToolchain(ctrl)
	tc.EXPECT().SupportsFlag(gomock.Any(), "-std=c99").Return(true)
	tc.EXPECT().SupportsFlag(gomock.Any(), "-funsigned-char").Return(true)
	tc.EXPECT().SupportsFlag(gomock.Any(), "-Wno-missing-field-initializers").Return(false)

	b := NewBuilder(tc, artifacts.NewWriter(t.TempDir(), arbor.NewLogger()), arbor.NewLogger())
	got := b.Flags(context.Background(), selection, []string{"-DTEST=1"})

	assert.Equal(t, []string{
		"-std=c99", "-funsigned-char", "-fPIC",
		"-I/proj/source/app", "-I/proj/lib", "-I/proj/include",
		"-DTEST=1",
	}, got)
}

func TestBuild_CompilesSourcesThenShims(t *testing.T) {
	out := t.TempDir()
	ctrl := gomock.NewController(t)
	tc := mocks.NewMockToolchain(ctrl)
	tc.EXPECT().SupportsFlag(gomock.Any(), gomock.Any()).Return(true).AnyTimes()

	shim := filepath.Join(out, "native", "mock_lib_example_shim.c")
	gomock.InOrder(
		tc.EXPECT().Compile(gomock.Any(), "/proj/source/app/app_example.c", gomock.Any(), gomock.Any()).Return(nil),
		tc.EXPECT().Compile(gomock.Any(), shim, gomock.Any(), gomock.Any()).Return(nil),
		tc.EXPECT().Archive(gomock.Any(), gomock.Any(), gomock.Len(2)).
			DoAndReturn(func(_ context.Context, lib string, _ []string) error {
				return os.WriteFile(lib, []byte("!<arch>\n"), 0o644)
			}),
	)

	b := NewBuilder(tc, artifacts.NewWriter(out, arbor.NewLogger()), arbor.NewLogger())
	a, err := b.Build(context.Background(), selection, []string{shim}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ArtifactLibrary, a.Kind)
	assert.Equal(t, "native/libforeigntest.a", a.Path)

	data, err := os.ReadFile(filepath.Join(out, "native", "libforeigntest.a"))
	require.NoError(t, err)
	assert.Equal(t, "!<arch>\n", string(data))
}

func TestBuild_CompileFailureIsFatal(t *testing.T) {
	out := t.TempDir()
	ctrl := gomock.NewController(t)
	tc := mocks.NewMockToolchain(ctrl)
	tc.EXPECT().SupportsFlag(gomock.Any(), gomock.Any()).Return(true).AnyTimes()
	tc.EXPECT().Compile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.Join(ErrCompile, errors.New("app_example.c:3: error: expected ';'")))

	b := NewBuilder(tc, artifacts.NewWriter(out, arbor.NewLogger()), arbor.NewLogger())
	_, err := b.Build(context.Background(), selection, nil, nil)
	require.ErrorIs(t, err, ErrCompile)

	_, statErr := os.Stat(filepath.Join(out, "native", "libforeigntest.a"))
	assert.True(t, os.IsNotExist(statErr), "no library is written after a failure")
}

func TestBuild_ScratchDirectoryFailure(t *testing.T) {
	t.Setenv("TMPDIR", filepath.Join(t.TempDir(), "missing"))
	ctrl := gomock.NewController(t)
	tc := mocks.NewMockToolchain(ctrl)

	b := NewBuilder(tc, artifacts.NewWriter(t.TempDir(), arbor.NewLogger()), arbor.NewLogger())
	_, err := b.Build(context.Background(), selection, nil, nil)
	require.ErrorIs(t, err, ErrScratch)
	assert.NotErrorIs(t, err, ErrCompile)
}

func TestLink(t *testing.T) {
	b := NewBuilder(nil, artifacts.NewWriter("/out", arbor.NewLogger()), arbor.NewLogger())
	got := b.Link([]string{"-lm"})
	assert.Equal(t, models.LinkSpec{LibDir: filepath.Join("/out", "native"), LibName: "foreigntest", LinkerArgs: []string{"-lm"}}, got)
}
