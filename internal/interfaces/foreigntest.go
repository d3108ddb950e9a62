// -----------------------------------------------------------------------
// Pipeline collaborators - header discovery, preprocessing, native toolchain
// -----------------------------------------------------------------------

package interfaces

//go:generate mockgen -source=foreigntest.go -destination=mocks/mock_interfaces.go -package=mocks

import (
	"context"

	"github.com/ternarybob/foreigntest/internal/models"
)

// HeaderDiscovery proposes headers and sources for a project. Strategies
// are interchangeable; the pipeline applies the manifest's adjustments.
type HeaderDiscovery interface {
	Name() string
	Discover(ctx context.Context, project *models.ResolvedProject) (*models.DiscoveredFiles, error)
}

// Preprocessor expands a header into text carrying line markers
// (`# <line> "<file>"`) and the surviving #define directives
type Preprocessor interface {
	Preprocess(ctx context.Context, req models.PreprocessRequest) (string, error)
}

// Toolchain wraps the native compiler and archiver
type Toolchain interface {
	// SupportsFlag reports whether the compiler accepts flag
	SupportsFlag(ctx context.Context, flag string) bool
	// Compile builds one object file
	Compile(ctx context.Context, src, obj string, args []string) error
	// Archive bundles objects into a static library, replacing any existing one
	Archive(ctx context.Context, lib string, objs []string) error
}
