package bindgen

import (
	"errors"
	"regexp"

	"github.com/ternarybob/foreigntest/internal/models"
)

var (
	// ErrNameCollision is returned when two declarations map to the same Go name
	ErrNameCollision = errors.New("generated Go names collide")
	// ErrPackageCollision is returned when two headers would generate the
	// same Go package
	ErrPackageCollision = errors.New("headers map to the same Go package")
	// ErrFormat is returned when generated source does not format
	ErrFormat = errors.New("failed to format generated source")
)

// ParseCallbacks observes the engine while it reads a header
type ParseCallbacks interface {
	// OnInclude is called once for every file the preprocessed header pulled in
	OnInclude(path string)
}

// Options select what the engine emits for one header
type Options struct {
	Header      models.HeaderFile
	IncludeDirs []string
	ClangArgs   []string

	// AllowlistFile limits output to declarations whose origin matches
	AllowlistFile *regexp.Regexp
	// AllowlistFunctions, when set, limits output to the matching functions
	AllowlistFunctions []*regexp.Regexp
	BlocklistFunctions []*regexp.Regexp
	BlocklistTypes     []*regexp.Regexp

	// LayoutTests adds compile-time size assertions for mirrored records
	LayoutTests bool
	Callbacks   ParseCallbacks
}

// UnderRoot builds an allow-list matching every file under root
func UnderRoot(root string) *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(root) + ".*")
}

// Any matches every name
func Any() []*regexp.Regexp {
	return []*regexp.Regexp{regexp.MustCompile(".*")}
}

// Exact matches the given names only
func Exact(names ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(names))
	for _, n := range names {
		out = append(out, regexp.MustCompile("^"+regexp.QuoteMeta(n)+"$"))
	}
	return out
}

func matchesAny(patterns []*regexp.Regexp, name string) bool {
	for _, p := range patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// IncludeRecorder collects OnInclude calls in first-seen order
type IncludeRecorder struct {
	Files []string
	seen  map[string]bool
}

// OnInclude records path once
func (r *IncludeRecorder) OnInclude(path string) {
	if r.seen == nil {
		r.seen = make(map[string]bool)
	}
	if r.seen[path] {
		return
	}
	r.seen[path] = true
	r.Files = append(r.Files, path)
}
