// -----------------------------------------------------------------------
// Interception generator - substitutable function packages per header
// -----------------------------------------------------------------------

package mocks

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/foreigntest/internal/common"
	"github.com/ternarybob/foreigntest/internal/models"
	"github.com/ternarybob/foreigntest/internal/services/artifacts"
	"github.com/ternarybob/foreigntest/internal/services/bindgen"
)

// ErrSymbolOverlap is returned when the types-only and functions-only halves
// of an interception package would declare the same Go name
var ErrSymbolOverlap = errors.New("interception package declares a name twice")

// reserved names are declared by every interception package
var reserved = []string{
	"Functions", "MockFunctions", "MockFunctionsMockRecorder", "NewMockFunctions",
	"Use", "Current", "Native",
}

// Generator writes interception packages and, for headers without a compiled
// source, the C shims that route calls into Go
type Generator struct {
	engine *bindgen.Engine
	writer *artifacts.Writer
	logger arbor.ILogger
}

// NewGenerator creates an interception generator
func NewGenerator(engine *bindgen.Engine, writer *artifacts.Writer, logger arbor.ILogger) *Generator {
	return &Generator{engine: engine, writer: writer, logger: logger}
}

// PackageName returns the interception package name for a header
func PackageName(h models.HeaderFile) string {
	return "mock_" + bindgen.PackageName(h.Stem)
}

// PackagePath returns the output-relative interception file for a header
func PackagePath(h models.HeaderFile) string {
	pkg := PackageName(h)
	return path.Join(common.MocksDir, pkg, pkg+".go")
}

// ShimPath returns the output-relative C shim for a header
func ShimPath(h models.HeaderFile) string {
	return path.Join(common.NativeDir, PackageName(h)+"_shim.c")
}

// Generate renders an interception package for every header in
// sel.Intercept. Shim artifacts are returned alongside and must be compiled
// into the static library.
func (g *Generator) Generate(ctx context.Context, project *models.ResolvedProject, sel *models.HeaderSelection, link models.LinkSpec, compileArgs []string) ([]models.Artifact, error) {
	if err := bindgen.UniquePaths(sel.Intercept, PackagePath); err != nil {
		return nil, err
	}
	includeDirs := sel.IncludeDirs()
	allow := bindgen.UnderRoot(project.Root)

	var out []models.Artifact
	for _, h := range sel.Intercept {
		deps := &bindgen.IncludeRecorder{}
		types, err := g.engine.Generate(ctx, bindgen.Options{
			Header:             h,
			IncludeDirs:        includeDirs,
			ClangArgs:          compileArgs,
			AllowlistFile:      allow,
			BlocklistFunctions: bindgen.Any(),
			LayoutTests:        true,
			Callbacks:          deps,
		})
		if err != nil {
			return nil, err
		}
		funcs, err := g.engine.Generate(ctx, bindgen.Options{
			Header:             h,
			IncludeDirs:        includeDirs,
			ClangArgs:          compileArgs,
			AllowlistFile:      allow,
			AllowlistFunctions: bindgen.Any(),
			BlocklistTypes:     bindgen.Any(),
		})
		if err != nil {
			return nil, err
		}
		if err := checkDisjoint(h, types, funcs); err != nil {
			return nil, err
		}

		u := &unit{
			header: h,
			pkg:    PackageName(h),
			prefix: "foreigntest_" + bindgen.PackageName(h.Stem),
			funcs:  funcs.Funcs(),
			native: sel.HasSourceFor(h),
		}

		rel := PackagePath(h)
		abs := g.writer.Path(rel)
		preamble := bindgen.CgoDirectives(filepath.Dir(abs), project.Root, h, includeDirs, link)
		shimmed := !u.native && len(u.funcs) > 0
		if shimmed {
			preamble = append(preamble, u.externs()...)
		}

		file := bindgen.File{
			Path:     abs,
			Source:   h.Rel,
			Package:  u.pkg,
			Preamble: preamble,
			Imports:  []string{"reflect", "sync", "unsafe", "go.uber.org/mock/gomock"},
			Decls:    append(u.decls(), types.Decls()...),
		}
		data, err := file.Render()
		if err != nil {
			return nil, err
		}
		if err := g.writer.Write(rel, data); err != nil {
			return nil, err
		}

		out = append(out, models.Artifact{
			Kind:    models.ArtifactInterception,
			Header:  h.Rel,
			Path:    rel,
			Depends: project.RelAll(deps.Files),
			Skipped: skipReasons(types, funcs),
		})

		if shimmed {
			shimRel := ShimPath(h)
			shim := u.shim(filepath.Dir(g.writer.Path(shimRel)))
			if err := g.writer.Write(shimRel, shim); err != nil {
				return nil, err
			}
			out = append(out, models.Artifact{
				Kind:    models.ArtifactShim,
				Header:  h.Rel,
				Path:    shimRel,
				Depends: []string{h.Rel},
			})
		}

		g.logger.Info().
			Str("header", h.Rel).
			Str("path", rel).
			Int("functions", len(u.funcs)).
			Bool("native", u.native).
			Bool("shim", shimmed).
			Msg("Generated interception package")
	}
	return out, nil
}

// skipReasons merges what both halves left out, once per symbol
func skipReasons(halves ...*bindgen.Bindings) []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range halves {
		for _, sk := range b.Skipped {
			key := sk.Name
			if key == "" {
				key = sk.String()
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, sk.String())
		}
	}
	return out
}

// checkDisjoint fails when a name would be declared by both halves, or
// clashes with the names every interception package declares
func checkDisjoint(h models.HeaderFile, types, funcs interface{ Names() []string }) error {
	owner := make(map[string]string)
	for _, n := range reserved {
		owner[n] = "the interception API"
	}
	for _, n := range types.Names() {
		if prev, ok := owner[n]; ok {
			return fmt.Errorf("%w: %s: %s is declared by %s and the types", ErrSymbolOverlap, h.Rel, n, prev)
		}
		owner[n] = "the types"
	}
	for _, n := range funcs.Names() {
		if prev, ok := owner[n]; ok {
			return fmt.Errorf("%w: %s: %s is declared by %s and the functions", ErrSymbolOverlap, h.Rel, n, prev)
		}
		owner[n] = "the functions"
	}
	return nil
}
