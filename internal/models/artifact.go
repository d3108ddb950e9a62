package models

// ArtifactKind names a family of generated output
type ArtifactKind string

const (
	ArtifactDeclaration  ArtifactKind = "declaration"
	ArtifactInterception ArtifactKind = "interception"
	ArtifactShim         ArtifactKind = "shim"
	ArtifactLibrary      ArtifactKind = "library"
	ArtifactIndex        ArtifactKind = "index"
)

// Artifact is one file produced by a run. It is overwritten on every run.
type Artifact struct {
	Kind    ArtifactKind `yaml:"kind"`
	Header  string       `yaml:"header,omitempty"` // project-relative header it was generated from
	Path    string       `yaml:"path"`
	Depends []string     `yaml:"depends,omitempty"` // files read while generating it
	Skipped []string     `yaml:"skipped,omitempty"` // declarations left out, with reasons
}

// LinkSpec tells generated packages how to link the static library
type LinkSpec struct {
	LibDir     string   // absolute directory holding the archive
	LibName    string   // name passed to -l
	LinkerArgs []string // extra flags from the manifest
}

// ArtifactSet is the complete output of one run
type ArtifactSet struct {
	RunID     string     `yaml:"-"`
	Project   string     `yaml:"project"`
	Artifacts []Artifact `yaml:"artifacts"`
}

// Add appends artifacts in order
func (s *ArtifactSet) Add(a ...Artifact) {
	s.Artifacts = append(s.Artifacts, a...)
}

// ByKind returns the artifacts of one kind
func (s *ArtifactSet) ByKind(kind ArtifactKind) []Artifact {
	var out []Artifact
	for _, a := range s.Artifacts {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}
