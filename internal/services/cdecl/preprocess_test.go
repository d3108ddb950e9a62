package cdecl

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/foreigntest/internal/models"
)

func writeHeader(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.h")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestFilePreprocessor_AddsLineMarker(t *testing.T) {
	path := writeHeader(t, "#define SAMPLE 1\nint sample(void);\n")
	text, err := FilePreprocessor{}.Preprocess(context.Background(), models.PreprocessRequest{Header: path})
	require.NoError(t, err)

	res, err := Parse(text, path)
	require.NoError(t, err)
	var names []string
	for _, d := range res.Unit.Decls {
		assert.Equal(t, path, d.DeclOrigin())
		names = append(names, d.DeclName())
	}
	assert.Equal(t, []string{"SAMPLE", "sample"}, names)
}

func TestFilePreprocessor_MissingHeader(t *testing.T) {
	_, err := FilePreprocessor{}.Preprocess(context.Background(), models.PreprocessRequest{Header: "/no/such/header.h"})
	assert.ErrorIs(t, err, ErrPreprocess)
}

func TestCompilerPreprocessor(t *testing.T) {
	if _, err := exec.LookPath("cc"); err != nil {
		t.Skipf("cc not available: %v", err)
	}
	path := writeHeader(t, "#ifdef WANT_SAMPLE\n#define SAMPLE_LIMIT 8\nint sample(int n);\n#endif\n")
	pre := NewCompilerPreprocessor("", arbor.NewLogger())

	text, err := pre.Preprocess(context.Background(), models.PreprocessRequest{Header: path, Args: []string{"-DWANT_SAMPLE"}})
	require.NoError(t, err)
	assert.True(t, strings.Contains(text, "#define SAMPLE_LIMIT 8"))

	res, err := Parse(text, path)
	require.NoError(t, err)
	var names []string
	for _, d := range res.Unit.Decls {
		if d.DeclOrigin() == path {
			names = append(names, d.DeclName())
		}
	}
	assert.Contains(t, names, "SAMPLE_LIMIT")
	assert.Contains(t, names, "sample")
}

func TestCompilerPreprocessor_ReportsCompilerOutput(t *testing.T) {
	if _, err := exec.LookPath("cc"); err != nil {
		t.Skipf("cc not available: %v", err)
	}
	path := writeHeader(t, "#include \"missing_dependency.h\"\n")
	_, err := NewCompilerPreprocessor("", arbor.NewLogger()).Preprocess(context.Background(), models.PreprocessRequest{Header: path})
	require.ErrorIs(t, err, ErrPreprocess)
	assert.Contains(t, err.Error(), "missing_dependency.h")
}
