package project

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ternarybob/foreigntest/internal/common"
	"github.com/ternarybob/foreigntest/internal/models"
)

// ErrProjectNotFound is returned when project_path cannot be canonicalized
var ErrProjectNotFound = errors.New("path does not exist")

// Resolve canonicalizes cfg.ProjectPath and joins the compile-command path
// onto it. Relative project paths are taken from baseDir. The database
// itself is not checked here.
func Resolve(cfg *common.Config, baseDir string) (*models.ResolvedProject, error) {
	p := cfg.ProjectPath
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProjectNotFound, cfg.ProjectPath, err)
	}
	root, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProjectNotFound, cfg.ProjectPath, err)
	}
	return &models.ResolvedProject{
		Root:            root,
		CompileCommands: filepath.Join(root, cfg.CompileCommandsPath),
	}, nil
}
