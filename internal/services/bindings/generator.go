package bindings

import (
	"context"
	"path"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/foreigntest/internal/common"
	"github.com/ternarybob/foreigntest/internal/models"
	"github.com/ternarybob/foreigntest/internal/services/artifacts"
	"github.com/ternarybob/foreigntest/internal/services/bindgen"
)

// Generator writes one declaration package per selected header
type Generator struct {
	engine *bindgen.Engine
	writer *artifacts.Writer
	logger arbor.ILogger
}

// NewGenerator creates a declaration generator
func NewGenerator(engine *bindgen.Engine, writer *artifacts.Writer, logger arbor.ILogger) *Generator {
	return &Generator{engine: engine, writer: writer, logger: logger}
}

// PackagePath returns the output-relative file for a header's declarations
func PackagePath(h models.HeaderFile) string {
	pkg := bindgen.PackageName(h.Stem)
	return path.Join(common.BindingsDir, pkg, pkg+".go")
}

// Generate renders every header in selection order. The first failure
// aborts the run.
func (g *Generator) Generate(ctx context.Context, project *models.ResolvedProject, sel *models.HeaderSelection, link models.LinkSpec, compileArgs []string) ([]models.Artifact, error) {
	if err := bindgen.UniquePaths(sel.Headers, PackagePath); err != nil {
		return nil, err
	}
	includeDirs := sel.IncludeDirs()
	allow := bindgen.UnderRoot(project.Root)

	out := make([]models.Artifact, 0, len(sel.Headers))
	for _, h := range sel.Headers {
		deps := &bindgen.IncludeRecorder{}
		b, err := g.engine.Generate(ctx, bindgen.Options{
			Header:        h,
			IncludeDirs:   includeDirs,
			ClangArgs:     compileArgs,
			AllowlistFile: allow,
			LayoutTests:   false,
			Callbacks:     deps,
		})
		if err != nil {
			return nil, err
		}

		rel := PackagePath(h)
		abs := g.writer.Path(rel)
		file := bindgen.File{
			Path:     abs,
			Source:   h.Rel,
			Package:  bindgen.PackageName(h.Stem),
			Preamble: bindgen.CgoDirectives(filepath.Dir(abs), project.Root, h, includeDirs, link),
			Imports:  []string{"unsafe"},
			Decls:    b.Decls(),
		}
		data, err := file.Render()
		if err != nil {
			return nil, err
		}
		if err := g.writer.Write(rel, data); err != nil {
			return nil, err
		}

		g.logger.Info().
			Str("header", h.Rel).
			Str("path", rel).
			Int("declarations", len(b.Items)).
			Int("skipped", len(b.Skipped)).
			Msg("Generated declaration package")

		out = append(out, models.Artifact{
			Kind:    models.ArtifactDeclaration,
			Header:  h.Rel,
			Path:    rel,
			Depends: project.RelAll(deps.Files),
			Skipped: b.SkipReasons(),
		})
	}
	return out, nil
}
