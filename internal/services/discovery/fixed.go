package discovery

import (
	"context"

	"github.com/ternarybob/foreigntest/internal/models"
)

// Fixed proposes the example project's layout regardless of what is on disk
type Fixed struct{}

// NewFixed creates the default strategy
func NewFixed() *Fixed {
	return &Fixed{}
}

// Name identifies the strategy on the command line
func (*Fixed) Name() string { return "fixed" }

// Discover returns the fixed selection
func (*Fixed) Discover(ctx context.Context, _ *models.ResolvedProject) (*models.DiscoveredFiles, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &models.DiscoveredFiles{
		Headers: []string{
			"source/app/app_example.h",
			"source/util/util_example.h",
			"lib/lib_example.h",
		},
		Intercept: []string{
			"source/util/util_example.h",
			"lib/lib_example.h",
		},
		Sources: []string{
			"source/app/app_example.c",
			"source/util/util_example.c",
		},
	}, nil
}
