package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/foreigntest/internal/models"
)

// ErrCompileCommands is returned when the compile-command database cannot be
// read or decoded
var ErrCompileCommands = errors.New("failed to read compile commands")

// compileCommand is one entry of compile_commands.json
type compileCommand struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Command   string   `json:"command,omitempty"`
	Arguments []string `json:"arguments,omitempty"`
	Output    string   `json:"output,omitempty"`
}

// CompileCommands selects the sources listed in the project's compile-command
// database and the same-stem headers next to them
type CompileCommands struct {
	intercept []string
	logger    arbor.ILogger
}

// NewCompileCommands creates the strategy. intercept lists project-relative
// headers that get interception packages.
func NewCompileCommands(intercept []string, logger arbor.ILogger) *CompileCommands {
	return &CompileCommands{intercept: intercept, logger: logger}
}

// Name identifies the strategy on the command line
func (*CompileCommands) Name() string { return "compdb" }

// Discover reads project.CompileCommands
func (c *CompileCommands) Discover(ctx context.Context, project *models.ResolvedProject) (*models.DiscoveredFiles, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(project.CompileCommands)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCompileCommands, project.CompileCommands, err)
	}
	var entries []compileCommand
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCompileCommands, project.CompileCommands, err)
	}

	found := &models.DiscoveredFiles{Intercept: append([]string(nil), c.intercept...)}
	seen := make(map[string]bool)
	for _, e := range entries {
		dir := e.Directory
		if !filepath.IsAbs(dir) {
			// relative directories are taken from the project root
			dir = filepath.Join(project.Root, dir)
		}
		file := e.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		file = filepath.Clean(file)
		if !strings.HasSuffix(file, ".c") {
			c.logger.Debug().Str("file", file).Msg("Skipping non-C compile command")
			continue
		}
		if seen[file] {
			continue
		}
		seen[file] = true

		found.Sources = append(found.Sources, relOrAbs(project, file))

		header := strings.TrimSuffix(file, ".c") + ".h"
		if _, err := os.Stat(header); err == nil {
			found.Headers = append(found.Headers, relOrAbs(project, header))
		}
	}

	c.logger.Debug().
		Int("entries", len(entries)).
		Int("sources", len(found.Sources)).
		Int("headers", len(found.Headers)).
		Msg("Read compile commands")
	return found, nil
}

// relOrAbs leaves paths outside the project absolute so selection can
// reject them
func relOrAbs(project *models.ResolvedProject, abs string) string {
	if rel, ok := project.Rel(abs); ok {
		return rel
	}
	return abs
}
