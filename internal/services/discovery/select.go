// -----------------------------------------------------------------------
// Header selection - manifest adjustments applied to every strategy
// -----------------------------------------------------------------------

package discovery

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/foreigntest/internal/common"
	"github.com/ternarybob/foreigntest/internal/interfaces"
	"github.com/ternarybob/foreigntest/internal/models"
	"github.com/ternarybob/foreigntest/internal/services/bindgen"
)

var (
	// ErrOutsideProject is returned for a selected path that leaves the project root
	ErrOutsideProject = errors.New("path is outside the project")
	// ErrFileNotFound is returned for a selected path that does not exist
	ErrFileNotFound = errors.New("selected file does not exist")
	// ErrUnknownStrategy is returned by ByName
	ErrUnknownStrategy = errors.New("unknown discovery strategy")
)

// ByName returns the strategy registered under name
func ByName(name string, logger arbor.ILogger) (interfaces.HeaderDiscovery, error) {
	switch name {
	case "", "fixed":
		return NewFixed(), nil
	case "compdb":
		return NewCompileCommands(nil, logger), nil
	case "glob":
		return NewGlob(), nil
	}
	return nil, fmt.Errorf("%w %q (want fixed, compdb or glob)", ErrUnknownStrategy, name)
}

// normalize cleans a project-relative path for comparison
func normalize(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

// Select applies the manifest's exclude and extra lists to what a strategy
// found and checks every path. Headers keep first-occurrence order.
func Select(project *models.ResolvedProject, cfg *common.Config, found *models.DiscoveredFiles) (*models.HeaderSelection, error) {
	excluded := make(map[string]bool)
	for _, p := range cfg.ExcludeHeaderFilesPaths {
		excluded[normalize(p)] = true
	}

	var headers []string
	seen := make(map[string]bool)
	add := func(p string) {
		p = normalize(p)
		if excluded[p] || seen[p] {
			return
		}
		seen[p] = true
		headers = append(headers, p)
	}
	for _, p := range found.Headers {
		add(p)
	}
	for _, p := range cfg.ExtraHeaderFilesPaths {
		add(p)
	}

	sel := &models.HeaderSelection{}
	for _, rel := range headers {
		h, err := headerFile(project, rel)
		if err != nil {
			return nil, err
		}
		sel.Headers = append(sel.Headers, h)
	}
	// one Go package per stem
	if err := bindgen.UniquePaths(sel.Headers, func(h models.HeaderFile) string {
		return bindgen.PackageName(h.Stem)
	}); err != nil {
		return nil, err
	}

	intercepted := make(map[string]bool)
	for _, p := range found.Intercept {
		p = normalize(p)
		if intercepted[p] || !seen[p] {
			continue
		}
		intercepted[p] = true
	}
	for _, h := range sel.Headers {
		if intercepted[h.Rel] {
			sel.Intercept = append(sel.Intercept, h)
		}
	}

	srcSeen := make(map[string]bool)
	for _, rel := range found.Sources {
		abs, err := checkPath(project, rel)
		if err != nil {
			return nil, err
		}
		if !srcSeen[abs] {
			srcSeen[abs] = true
			sel.Sources = append(sel.Sources, abs)
		}
	}

	if cfg.SupportHeaderFilesPath != nil {
		h, err := headerFile(project, normalize(*cfg.SupportHeaderFilesPath))
		if err != nil {
			return nil, err
		}
		sel.Support = &h
	}
	return sel, nil
}

func headerFile(project *models.ResolvedProject, rel string) (models.HeaderFile, error) {
	abs, err := checkPath(project, rel)
	if err != nil {
		return models.HeaderFile{}, err
	}
	if r, ok := project.Rel(abs); ok {
		rel = r
	}
	base := filepath.Base(abs)
	return models.HeaderFile{
		Rel:  rel,
		Abs:  abs,
		Stem: strings.TrimSuffix(base, filepath.Ext(base)),
	}, nil
}

// checkPath resolves p against the root, follows symlinks and requires the
// result to stay under the root
func checkPath(project *models.ResolvedProject, p string) (string, error) {
	abs := project.Abs(filepath.FromSlash(p))
	if !project.Contains(abs) {
		return "", fmt.Errorf("%w: %s", ErrOutsideProject, p)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, p)
		}
		return "", fmt.Errorf("%w: %s: %v", ErrFileNotFound, p, err)
	}
	if !project.Contains(resolved) {
		return "", fmt.Errorf("%w: %s resolves to %s", ErrOutsideProject, p, resolved)
	}
	return abs, nil
}
