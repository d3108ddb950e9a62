// -----------------------------------------------------------------------
// Artifact writer - atomic file replacement and the artifact index
// -----------------------------------------------------------------------

package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/foreigntest/internal/common"
	"github.com/ternarybob/foreigntest/internal/models"
)

// ErrWrite is returned when an output file cannot be replaced
var ErrWrite = errors.New("failed to write artifact")

// Writer places generated files under an output root. Every file is written
// to a temporary sibling first and renamed over the destination, so readers
// never observe a partial file.
type Writer struct {
	root   string
	logger arbor.ILogger
}

// NewWriter creates a writer rooted at root
func NewWriter(root string, logger arbor.ILogger) *Writer {
	return &Writer{root: root, logger: logger}
}

// Root returns the output directory
func (w *Writer) Root() string {
	return w.root
}

// Path returns the absolute location of an output-relative path
func (w *Writer) Path(rel string) string {
	return filepath.Join(w.root, filepath.FromSlash(rel))
}

// Write replaces rel with data
func (w *Writer) Write(rel string, data []byte) error {
	path := w.Path(rel)
	if err := WriteFileAtomic(path, data); err != nil {
		return err
	}
	w.logger.Debug().Str("path", rel).Int("bytes", len(data)).Msg("Wrote artifact")
	return nil
}

// WriteFileAtomic writes data to a temporary file in the destination
// directory and renames it into place
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w %s: %v", ErrWrite, path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrWrite, path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w %s: %v", ErrWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w %s: %v", ErrWrite, path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w %s: %v", ErrWrite, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w %s: %v", ErrWrite, path, err)
	}
	return nil
}

// WriteIndex records the run's artifacts in the index file and returns the
// index's own artifact entry
func (w *Writer) WriteIndex(set *models.ArtifactSet) (models.Artifact, error) {
	data, err := yaml.Marshal(set)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("%w %s: %v", ErrWrite, common.IndexFile, err)
	}
	header := []byte("# Code generated by foreigntest. DO NOT EDIT.\n")
	if err := w.Write(common.IndexFile, append(header, data...)); err != nil {
		return models.Artifact{}, err
	}
	return models.Artifact{Kind: models.ArtifactIndex, Path: common.IndexFile}, nil
}

// Prune removes the files the previous run's index lists that set no longer
// produces, along with directories left empty. It returns the removed paths.
func (w *Writer) Prune(set *models.ArtifactSet) ([]string, error) {
	prev, err := ReadIndex(w.Path(common.IndexFile))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn().Err(err).Msg("Ignoring unreadable artifact index")
		}
		return nil, nil
	}

	keep := map[string]bool{common.IndexFile: true}
	for _, a := range set.Artifacts {
		keep[a.Path] = true
	}

	var removed []string
	for _, a := range prev.Artifacts {
		rel := path.Clean(filepath.ToSlash(a.Path))
		if keep[rel] || !local(rel) {
			continue
		}
		if err := os.Remove(w.Path(rel)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("%w %s: %v", ErrWrite, rel, err)
		}
		w.removeEmptyParents(rel)
		removed = append(removed, rel)
		w.logger.Info().Str("path", rel).Msg("Removed stale artifact")
	}
	return removed, nil
}

// local reports whether rel stays inside the output root
func local(rel string) bool {
	return rel != "." && rel != ".." && !path.IsAbs(rel) && !strings.HasPrefix(rel, "../")
}

func (w *Writer) removeEmptyParents(rel string) {
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if err := os.Remove(w.Path(dir)); err != nil {
			return
		}
	}
}

// ReadIndex loads an index written by WriteIndex
func ReadIndex(path string) (*models.ArtifactSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	set := &models.ArtifactSet{}
	if err := yaml.Unmarshal(data, set); err != nil {
		return nil, fmt.Errorf("failed to parse artifact index %s: %w", path, err)
	}
	return set, nil
}
