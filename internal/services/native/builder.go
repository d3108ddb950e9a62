// -----------------------------------------------------------------------
// Native builder - compiles C sources and shims into the static library
// -----------------------------------------------------------------------

package native

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/foreigntest/internal/common"
	"github.com/ternarybob/foreigntest/internal/interfaces"
	"github.com/ternarybob/foreigntest/internal/models"
	"github.com/ternarybob/foreigntest/internal/services/artifacts"
)

// BaselineFlags are added when the compiler accepts them
var BaselineFlags = []string{"-std=c99", "-funsigned-char", "-Wno-missing-field-initializers"}

// LibraryPath is the output-relative location of the static library
var LibraryPath = path.Join(common.NativeDir, "lib"+common.DefaultLibName+".a")

// Builder compiles the selection into the static library generated
// packages link against
type Builder struct {
	tc     interfaces.Toolchain
	writer *artifacts.Writer
	logger arbor.ILogger
}

// NewBuilder creates a builder using tc
func NewBuilder(tc interfaces.Toolchain, writer *artifacts.Writer, logger arbor.ILogger) *Builder {
	return &Builder{tc: tc, writer: writer, logger: logger}
}

// Link describes how generated packages reach the library
func (b *Builder) Link(linkerArgs []string) models.LinkSpec {
	return models.LinkSpec{
		LibDir:     b.writer.Path(common.NativeDir),
		LibName:    common.DefaultLibName,
		LinkerArgs: linkerArgs,
	}
}

// Flags returns the compiler arguments shared by every object
func (b *Builder) Flags(ctx context.Context, sel *models.HeaderSelection, compileArgs []string) []string {
	var flags []string
	for _, f := range BaselineFlags {
		if b.tc.SupportsFlag(ctx, f) {
			flags = append(flags, f)
		} else {
			b.logger.Warn().Str("flag", f).Msg("Compiler does not support flag, skipping")
		}
	}
	flags = append(flags, "-fPIC")
	for _, dir := range sel.IncludeDirs() {
		flags = append(flags, "-I"+dir)
	}
	return append(flags, compileArgs...)
}

// Build compiles the selected sources followed by shims (absolute paths)
// and replaces the static library
func (b *Builder) Build(ctx context.Context, sel *models.HeaderSelection, shims []string, compileArgs []string) (models.Artifact, error) {
	work, err := os.MkdirTemp("", "foreigntest-native-*")
	if err != nil {
		return models.Artifact{}, fmt.Errorf("%w: %v", ErrScratch, err)
	}
	defer os.RemoveAll(work)

	flags := b.Flags(ctx, sel, compileArgs)
	srcs := append(append([]string{}, sel.Sources...), shims...)
	objs := make([]string, 0, len(srcs))
	for i, src := range srcs {
		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		obj := filepath.Join(work, fmt.Sprintf("%02d_%s.o", i, base))
		if err := b.tc.Compile(ctx, src, obj, flags); err != nil {
			return models.Artifact{}, err
		}
		b.logger.Debug().Str("source", src).Msg("Compiled native source")
		objs = append(objs, obj)
	}

	lib := filepath.Join(work, "lib"+common.DefaultLibName+".a")
	if err := b.tc.Archive(ctx, lib, objs); err != nil {
		return models.Artifact{}, err
	}
	data, err := os.ReadFile(lib)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("%w %s: %v", ErrArchive, lib, err)
	}
	if err := b.writer.Write(LibraryPath, data); err != nil {
		return models.Artifact{}, err
	}

	b.logger.Info().
		Int("sources", len(sel.Sources)).
		Int("shims", len(shims)).
		Str("path", LibraryPath).
		Msg("Built static library")

	return models.Artifact{Kind: models.ArtifactLibrary, Path: LibraryPath}, nil
}
