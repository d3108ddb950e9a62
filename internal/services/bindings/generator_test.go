package bindings

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
	"github.com/ternarybob/foreigntest/internal/services/bindgen"
)

const libText = `# 0 "/proj/source/lib/lib_example.h"
# 1 "/usr/include/stdbool.h" 1 3 4
# 2 "/proj/source/lib/lib_example.h" 2
# 1 "/proj/source/lib/lib_types.h" 1
typedef struct lib_context { int level; } lib_context_t;
# 3 "/proj/source/lib/lib_example.h" 2
bool lib_init_context(void);
int lib_level(const lib_context_t *ctx);
int lib_printf(const char *fmt, ...);
`

const appText = `# 0 "/proj/source/app/app_example.h"
bool app_init(void);
`

var (
	project   = &models.ResolvedProject{Root: "/proj"}
	selection = &models.HeaderSelection{
		Headers: []models.HeaderFile{
			{Rel: "source/lib/lib_example.h", Abs: "/proj/source/lib/lib_example.h", Stem: "lib_example"},
			{Rel: "source/app/app_example.h", Abs: "/proj/source/app/app_example.h", Stem: "app_example"},
		},
	}
)

func newGenerator(t *testing.T, out string, pre *mocks.MockPreprocessor) *Generator {
	t.Helper()
	logger := arbor.NewLogger()
	return NewGenerator(bindgen.NewEngine(pre, logger), artifacts.NewWriter(out, logger), logger)
}

func expectHeaders(pre *mocks.MockPreprocessor) {
	pre.EXPECT().
		Preprocess(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.PreprocessRequest) (string, error) {
			if filepath.Base(req.Header) == "lib_example.h" {
				return libText, nil
			}
			return appText, nil
		}).
		AnyTimes()
}

func TestGenerate_WritesOnePackagePerHeader(t *testing.T) {
	out := t.TempDir()
	ctrl := gomock.NewController(t)
	pre := mocks.NewMockPreprocessor(ctrl)
	expectHeaders(pre)

	link := models.LinkSpec{LibDir: filepath.Join(out, "native"), LibName: "foreigntest"}
	got, err := newGenerator(t, out, pre).Generate(context.Background(), project, selection, link, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, models.ArtifactDeclaration, got[0].Kind)
	assert.Equal(t, "source/lib/lib_example.h", got[0].Header)
	assert.Equal(t, "bindings/lib_example/lib_example.go", got[0].Path)
	assert.Equal(t, []string{"source/lib/lib_example.h", "source/lib/lib_types.h"}, got[0].Depends)
	assert.Contains(t, got[0].Skipped, "lib_printf: variadic functions cannot be called through cgo")

	assert.Equal(t, "bindings/app_example/app_example.go", got[1].Path)

	src, err := os.ReadFile(filepath.Join(out, "bindings", "lib_example", "lib_example.go"))
	require.NoError(t, err)
	text := string(src)
	assert.Contains(t, text, "package lib_example")
	root, err := filepath.Rel(filepath.Join(out, "bindings", "lib_example"), "/proj")
	require.NoError(t, err)
	root = "${SRCDIR}/" + filepath.ToSlash(root)
	assert.Contains(t, text, "#cgo CFLAGS: -I"+root+" -I"+root+"/source/lib -I"+root+"/source/app")
	assert.Contains(t, text, `#include "source/lib/lib_example.h"`)
	assert.NotContains(t, text, "-I/proj")
	assert.Contains(t, text, "#cgo LDFLAGS: -L${SRCDIR}/../../native -lforeigntest")
	assert.Contains(t, text, "func LibInitContext() bool {")
	assert.Contains(t, text, "type LibContext struct {")
	assert.Contains(t, text, "type LibContextT = LibContext")
	assert.NotContains(t, text, "LibPrintf")
}

func TestGenerate_IsDeterministic(t *testing.T) {
	read := func() []byte {
		out := t.TempDir()
		ctrl := gomock.NewController(t)
		pre := mocks.NewMockPreprocessor(ctrl)
		expectHeaders(pre)
		link := models.LinkSpec{LibDir: filepath.Join(out, "native"), LibName: "foreigntest"}
		_, err := newGenerator(t, out, pre).Generate(context.Background(), project, selection, link, []string{"-DNDEBUG"})
		require.NoError(t, err)
		data, err := os.ReadFile(filepath.Join(out, "bindings", "app_example", "app_example.go"))
		require.NoError(t, err)
		return data
	}
	assert.Equal(t, read(), read())
}

func TestGenerate_StopsAtFirstFailure(t *testing.T) {
	out := t.TempDir()
	ctrl := gomock.NewController(t)
	pre := mocks.NewMockPreprocessor(ctrl)
	boom := errors.New("lib_example.h: fatal error")
	pre.EXPECT().Preprocess(gomock.Any(), gomock.Any()).Return("", boom).Times(1)

	_, err := newGenerator(t, out, pre).Generate(context.Background(), project, selection, models.LinkSpec{LibName: "foreigntest"}, nil)
	assert.ErrorIs(t, err, boom)

	_, statErr := os.Stat(filepath.Join(out, "bindings"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerate_RejectsHeadersSharingAPackage(t *testing.T) {
	out := t.TempDir()
	ctrl := gomock.NewController(t)
	pre := mocks.NewMockPreprocessor(ctrl)
	sel := &models.HeaderSelection{
		Headers: []models.HeaderFile{
			{Rel: "alt/conf.h", Abs: "/proj/alt/conf.h", Stem: "conf"},
			{Rel: "src/conf.h", Abs: "/proj/src/conf.h", Stem: "conf"},
		},
	}

	_, err := newGenerator(t, out, pre).Generate(context.Background(), project, sel, models.LinkSpec{LibName: "foreigntest"}, nil)
	require.ErrorIs(t, err, bindgen.ErrPackageCollision)
	assert.Contains(t, err.Error(), "bindings/conf/conf.go")

	_, statErr := os.Stat(filepath.Join(out, "bindings"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestPackagePath(t *testing.T) {
	assert.Equal(t, "bindings/my_lib/my_lib.go", PackagePath(models.HeaderFile{Stem: "my-lib"}))
}
