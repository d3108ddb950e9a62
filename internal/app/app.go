// -----------------------------------------------------------------------
// Pipeline - config, resolve, discover, generate, compile, index
// -----------------------------------------------------------------------

package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/foreigntest/internal/common"
	"github.com/ternarybob/foreigntest/internal/interfaces"
	"github.com/ternarybob/foreigntest/internal/models"
	"github.com/ternarybob/foreigntest/internal/services/artifacts"
	"github.com/ternarybob/foreigntest/internal/services/bindgen"
	"github.com/ternarybob/foreigntest/internal/services/bindings"
	"github.com/ternarybob/foreigntest/internal/services/cdecl"
	"github.com/ternarybob/foreigntest/internal/services/discovery"
	"github.com/ternarybob/foreigntest/internal/services/mocks"
	"github.com/ternarybob/foreigntest/internal/services/native"
	"github.com/ternarybob/foreigntest/internal/services/project"
)

// Stage names a pipeline step for error reporting
type Stage string

const (
	StageConfig   Stage = "config"
	StageResolve  Stage = "resolve"
	StageDiscover Stage = "discover"
	StageGenerate Stage = "generate"
	StageWrite    Stage = "write"
	StageCompile  Stage = "compile"
)

// StageError reports which step of the pipeline failed
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// fail attributes err to stage, or to the write stage when an output file
// could not be replaced
func fail(stage Stage, err error) error {
	if errors.Is(err, artifacts.ErrWrite) {
		stage = StageWrite
	}
	return &StageError{Stage: stage, Err: err}
}

// Options configure a pipeline. Zero values select the defaults.
type Options struct {
	// OutDir receives the generated tree; defaults to the manifest's directory
	OutDir       string
	Discovery    interfaces.HeaderDiscovery
	Preprocessor interfaces.Preprocessor
	Toolchain    interfaces.Toolchain
}

// Pipeline runs one generation pass. Steps run in order on the calling
// goroutine and the first failure ends the run.
type Pipeline struct {
	opts   Options
	logger arbor.ILogger
}

// NewPipeline creates a pipeline, filling in default collaborators
func NewPipeline(opts Options, logger arbor.ILogger) *Pipeline {
	if opts.Discovery == nil {
		opts.Discovery = discovery.NewFixed()
	}
	if opts.Preprocessor == nil {
		opts.Preprocessor = cdecl.NewCompilerPreprocessor("", logger)
	}
	if opts.Toolchain == nil {
		opts.Toolchain = native.NewExecToolchain("", "", logger)
	}
	return &Pipeline{opts: opts, logger: logger}
}

// Run regenerates every artifact for the manifest at manifestPath
func (p *Pipeline) Run(ctx context.Context, manifestPath string) (*models.ArtifactSet, error) {
	runID := common.NewRunID()
	logger := p.logger.WithCorrelationId(runID)
	started := time.Now()

	manifestPath, err := filepath.Abs(manifestPath)
	if err != nil {
		return nil, fail(StageConfig, err)
	}
	cfg, err := common.LoadManifest(manifestPath, logger)
	if err != nil {
		return nil, fail(StageConfig, err)
	}
	baseDir := filepath.Dir(manifestPath)
	logger.Info().Str("manifest", manifestPath).Msg("Loaded configuration")

	proj, err := project.Resolve(cfg, baseDir)
	if err != nil {
		return nil, fail(StageResolve, err)
	}
	logger.Info().
		Str("project_path", proj.Root).
		Str("compile_commands_path", proj.CompileCommands).
		Msg("Resolved project")

	found, err := p.opts.Discovery.Discover(ctx, proj)
	if err != nil {
		return nil, fail(StageDiscover, err)
	}
	sel, err := discovery.Select(proj, cfg, found)
	if err != nil {
		return nil, fail(StageDiscover, err)
	}
	logger.Info().
		Str("strategy", p.opts.Discovery.Name()).
		Int("headers", len(sel.Headers)).
		Int("intercepted", len(sel.Intercept)).
		Int("sources", len(sel.Sources)).
		Msg("Selected headers")

	outDir := p.opts.OutDir
	if outDir == "" {
		outDir = baseDir
	}
	writer := artifacts.NewWriter(outDir, logger)
	engine := bindgen.NewEngine(p.opts.Preprocessor, logger)
	builder := native.NewBuilder(p.opts.Toolchain, writer, logger)
	link := builder.Link(cfg.LinkerArgs)

	set := &models.ArtifactSet{RunID: runID, Project: proj.Root}

	decls, err := bindings.NewGenerator(engine, writer, logger).Generate(ctx, proj, sel, link, cfg.CompileArgs)
	if err != nil {
		return nil, fail(StageGenerate, err)
	}
	set.Add(decls...)

	intercepts, err := mocks.NewGenerator(engine, writer, logger).Generate(ctx, proj, sel, link, cfg.CompileArgs)
	if err != nil {
		return nil, fail(StageGenerate, err)
	}
	set.Add(intercepts...)

	var shims []string
	for _, a := range intercepts {
		if a.Kind == models.ArtifactShim {
			shims = append(shims, writer.Path(a.Path))
		}
	}
	lib, err := builder.Build(ctx, sel, shims, cfg.CompileArgs)
	if err != nil {
		return nil, fail(StageCompile, err)
	}
	lib.Depends = proj.RelAll(sel.Sources)
	set.Add(lib)

	if _, err := writer.Prune(set); err != nil {
		return nil, fail(StageWrite, err)
	}
	index, err := writer.WriteIndex(set)
	if err != nil {
		return nil, fail(StageWrite, err)
	}
	set.Add(index)

	logger.Info().
		Int("artifacts", len(set.Artifacts)).
		Str("out", outDir).
		Int64("duration_ms", time.Since(started).Milliseconds()).
		Msg("Generation complete")
	return set, nil
}
