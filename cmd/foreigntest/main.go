package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/foreigntest/internal/app"
	"github.com/ternarybob/foreigntest/internal/common"
	"github.com/ternarybob/foreigntest/internal/interfaces"
	"github.com/ternarybob/foreigntest/internal/services/cdecl"
	"github.com/ternarybob/foreigntest/internal/services/discovery"
	"github.com/ternarybob/foreigntest/internal/services/native"
)

var (
	manifestPath = flag.String("manifest", common.ManifestFile, "Manifest holding the package.metadata.foreigntest table")
	outDir       = flag.String("out", "", "Output directory (default: the manifest's directory)")
	strategy     = flag.String("discovery", "fixed", "Header discovery strategy: fixed, compdb or glob")
	ccPath       = flag.String("cc", envOr("CC", "cc"), "C compiler used to preprocess and compile")
	arPath       = flag.String("ar", envOr("AR", "ar"), "Archiver used to build the static library")
	noCPP        = flag.Bool("no-cpp", false, "Read headers verbatim instead of running the preprocessor")
	logLevel     = flag.String("log-level", "info", "Log level: debug, info, warn or error")
	quiet        = flag.Bool("quiet", false, "Suppress the banner")
	showVersion  = flag.Bool("version", false, "Print version information")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	defer common.RecoverWithCrashFile()
	flag.Parse()

	if *showVersion {
		fmt.Printf("foreigntest version %s\n", common.GetFullVersion())
		return
	}

	logger := common.InitLogger(*logLevel)
	if !*quiet {
		common.PrintBanner(*manifestPath, logger)
	}

	if err := run(logger); err != nil {
		var stageErr *app.StageError
		if errors.As(err, &stageErr) {
			logger.Error().Str("stage", string(stageErr.Stage)).Err(stageErr.Err).Msg("Generation failed")
		} else {
			logger.Error().Err(err).Msg("Generation failed")
		}
		os.Exit(1)
	}
}

func run(logger arbor.ILogger) error {
	found, err := discovery.ByName(*strategy, logger)
	if err != nil {
		return err
	}

	var pre interfaces.Preprocessor = cdecl.NewCompilerPreprocessor(*ccPath, logger)
	if *noCPP {
		pre = cdecl.FilePreprocessor{}
	}

	pipeline := app.NewPipeline(app.Options{
		OutDir:       *outDir,
		Discovery:    found,
		Preprocessor: pre,
		Toolchain:    native.NewExecToolchain(*ccPath, *arPath, logger),
	}, logger)

	_, err = pipeline.Run(context.Background(), *manifestPath)
	return err
}
