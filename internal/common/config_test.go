package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

const fullManifest = `
[package]
name = "firmware-tests"

[package.metadata.foreigntest]
project_path = "/work/firmware"
compile_commands_path = "build/compile_commands.json"
support_header_files_path = "include/platform.h"
exclude_header_files_paths = ["lib/legacy.h"]
extra_header_files_paths = ["lib/extra.h", "lib/more.h"]
compile_args = ["-DUNIT_TEST", "-O0"]
linker_args = ["-lm"]
`

func TestParseManifest_AllKeys(t *testing.T) {
	cfg, err := ParseManifest([]byte(fullManifest), arbor.NewLogger())
	require.NoError(t, err)

	assert.Equal(t, "/work/firmware", cfg.ProjectPath)
	assert.Equal(t, "build/compile_commands.json", cfg.CompileCommandsPath)
	require.NotNil(t, cfg.SupportHeaderFilesPath)
	assert.Equal(t, "include/platform.h", *cfg.SupportHeaderFilesPath)
	assert.Equal(t, []string{"lib/legacy.h"}, cfg.ExcludeHeaderFilesPaths)
	assert.Equal(t, []string{"lib/extra.h", "lib/more.h"}, cfg.ExtraHeaderFilesPaths)
	assert.Equal(t, []string{"-DUNIT_TEST", "-O0"}, cfg.CompileArgs)
	assert.Equal(t, []string{"-lm"}, cfg.LinkerArgs)
}

func TestParseManifest_OptionalKeysAbsent(t *testing.T) {
	cfg, err := ParseManifest([]byte(`
[package.metadata.foreigntest]
project_path = "/p"
compile_commands_path = "cc.json"
`), arbor.NewLogger())
	require.NoError(t, err)

	assert.Nil(t, cfg.SupportHeaderFilesPath)
	assert.Nil(t, cfg.ExcludeHeaderFilesPaths)
	assert.Nil(t, cfg.LinkerArgs)
}

func TestParseManifest_DropsNonStringElements(t *testing.T) {
	cfg, err := ParseManifest([]byte(`
[package.metadata.foreigntest]
project_path = "/p"
compile_commands_path = "cc.json"
extra_header_files_paths = [123]
compile_args = ["-DA", 1, true, "-DB"]
`), arbor.NewLogger())
	require.NoError(t, err)

	assert.NotNil(t, cfg.ExtraHeaderFilesPaths)
	assert.Empty(t, cfg.ExtraHeaderFilesPaths)
	assert.Equal(t, []string{"-DA", "-DB"}, cfg.CompileArgs)
}

func TestParseManifest_FailsClosed(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		want     error
		contains string
	}{
		{
			name:     "not toml",
			manifest: "this is = = not toml",
			want:     ErrManifestParse,
		},
		{
			name:     "table missing",
			manifest: "[package]\nname = \"x\"\n",
			want:     ErrTableMissing,
		},
		{
			name:     "table is a value",
			manifest: "[package.metadata]\nforeigntest = 3\n",
			want:     ErrTableMissing,
		},
		{
			name:     "unknown key",
			manifest: "[package.metadata.foreigntest]\nproject_path = \"/p\"\ncompile_commands_path = \"c\"\nproject_paths = \"/q\"\n",
			want:     ErrInvalidConfig,
			contains: "project_paths",
		},
		{
			name:     "wrong shape",
			manifest: "[package.metadata.foreigntest]\nproject_path = [\"/p\"]\ncompile_commands_path = \"c\"\n",
			want:     ErrInvalidConfig,
			contains: "project_path",
		},
		{
			name:     "array expected",
			manifest: "[package.metadata.foreigntest]\nproject_path = \"/p\"\ncompile_commands_path = \"c\"\nlinker_args = \"-lm\"\n",
			want:     ErrInvalidConfig,
			contains: "linker_args",
		},
		{
			name:     "required missing",
			manifest: "[package.metadata.foreigntest]\nproject_path = \"/p\"\n",
			want:     ErrInvalidConfig,
			contains: "compile_commands_path is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseManifest([]byte(tt.manifest), arbor.NewLogger())
			assert.Nil(t, cfg)
			require.ErrorIs(t, err, tt.want)
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestFile)
	require.NoError(t, os.WriteFile(path, []byte(fullManifest), 0o644))

	cfg, err := LoadManifest(path, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, "/work/firmware", cfg.ProjectPath)

	_, err = LoadManifest(filepath.Join(t.TempDir(), "missing.toml"), arbor.NewLogger())
	assert.ErrorIs(t, err, ErrManifestRead)
}
