package discovery

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ternarybob/foreigntest/internal/models"
)

// Glob walks the project tree for headers and sources. Headers without a
// same-stem source are intercepted, since nothing would implement them.
type Glob struct{}

// NewGlob creates the tree-walking strategy
func NewGlob() *Glob {
	return &Glob{}
}

// Name identifies the strategy on the command line
func (*Glob) Name() string { return "glob" }

// Discover walks project.Root in lexical order, skipping hidden directories
// and the directory holding the compile-command database
func (*Glob) Discover(ctx context.Context, project *models.ResolvedProject) (*models.DiscoveredFiles, error) {
	buildDir := filepath.Dir(project.CompileCommands)
	if buildDir == project.Root {
		buildDir = ""
	}

	found := &models.DiscoveredFiles{}
	stems := make(map[string]bool)
	err := filepath.WalkDir(project.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != project.Root && (strings.HasPrefix(d.Name(), ".") || path == buildDir) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, ok := project.Rel(path)
		if !ok {
			return nil
		}
		switch filepath.Ext(path) {
		case ".h":
			found.Headers = append(found.Headers, rel)
		case ".c":
			found.Sources = append(found.Sources, rel)
			stems[strings.TrimSuffix(rel, ".c")] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, h := range found.Headers {
		if !stems[strings.TrimSuffix(h, ".h")] {
			found.Intercept = append(found.Intercept, h)
		}
	}
	return found, nil
}
