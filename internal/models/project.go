package models

import (
	"path/filepath"
	"strings"
)

// ResolvedProject holds the canonical locations derived from the manifest
type ResolvedProject struct {
	Root            string // absolute, symlink-free project root
	CompileCommands string // Root joined with compile_commands_path, not checked for existence
}

// Abs joins a project-relative path onto the root
func (p *ResolvedProject) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(p.Root, rel)
}

// Contains reports whether abs lies under the project root
func (p *ResolvedProject) Contains(abs string) bool {
	rel, err := filepath.Rel(p.Root, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Rel returns abs relative to the root, with forward slashes. ok is false
// for paths outside the project.
func (p *ResolvedProject) Rel(abs string) (rel string, ok bool) {
	if !p.Contains(abs) {
		return "", false
	}
	r, err := filepath.Rel(p.Root, abs)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(r), true
}

// RelAll keeps the paths under the root, made relative, in order
func (p *ResolvedProject) RelAll(paths []string) []string {
	var out []string
	for _, abs := range paths {
		if rel, ok := p.Rel(abs); ok {
			out = append(out, rel)
		}
	}
	return out
}

// HeaderFile is one header chosen for generation
type HeaderFile struct {
	Rel  string // as configured, relative to the project root
	Abs  string
	Stem string // base name without extension
}

// Dir returns the directory holding the header, used as an include path
func (h HeaderFile) Dir() string {
	return filepath.Dir(h.Abs)
}

// HeaderSelection is the ordered set of headers and sources for one run
type HeaderSelection struct {
	Headers   []HeaderFile
	Intercept []HeaderFile // subset of Headers that get interception packages
	Sources   []string     // absolute C sources compiled into the static library
	Support   *HeaderFile  // optional support header, include path only
}

// HasSourceFor reports whether a source beside the header, with the same
// stem, is compiled
func (s *HeaderSelection) HasSourceFor(h HeaderFile) bool {
	want := trimExt(filepath.Clean(h.Abs))
	for _, src := range s.Sources {
		if trimExt(filepath.Clean(src)) == want {
			return true
		}
	}
	return false
}

func trimExt(p string) string {
	return strings.TrimSuffix(p, filepath.Ext(p))
}

// IncludeDirs returns the parent directory of every header involved, in
// selection order with duplicates removed.
func (s *HeaderSelection) IncludeDirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(h HeaderFile) {
		d := h.Dir()
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	for _, h := range s.Headers {
		add(h)
	}
	if s.Support != nil {
		add(*s.Support)
	}
	return dirs
}

// DiscoveredFiles is what a discovery strategy proposes before the manifest's
// exclude/extra lists are applied. Paths are relative to the project root.
type DiscoveredFiles struct {
	Headers   []string
	Intercept []string
	Sources   []string
}

// PreprocessRequest describes one header expansion
type PreprocessRequest struct {
	Header      string   // absolute header path
	IncludeDirs []string // passed as -I
	Args        []string // extra compiler arguments, e.g. -D flags
}
