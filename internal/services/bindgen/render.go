package bindgen

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/tools/imports"

	"github.com/ternarybob/foreigntest/internal/models"
)

// File is one generated cgo source file
type File struct {
	Path     string // destination, used by the formatter to resolve imports
	Source   string // project-relative header named in the generated-code line
	Package  string
	Preamble []string // lines of the cgo comment
	Imports  []string
	Decls    []string // top-level declarations, in output order
}

// Render assembles the file and runs it through goimports, which also drops
// imports the declarations ended up not using
func (f File) Render() ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "// Code generated by foreigntest from %s. DO NOT EDIT.\n\n", filepath.ToSlash(f.Source))
	fmt.Fprintf(&b, "package %s\n\n", f.Package)

	b.WriteString("/*\n")
	for _, line := range f.Preamble {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("*/\nimport \"C\"\n\n")

	if len(f.Imports) > 0 {
		b.WriteString("import (\n")
		for _, imp := range f.Imports {
			fmt.Fprintf(&b, "\t%q\n", imp)
		}
		b.WriteString(")\n\n")
	}

	for _, d := range f.Decls {
		b.WriteString(strings.TrimRight(d, "\n"))
		b.WriteString("\n\n")
	}

	out, err := imports.Process(f.Path, b.Bytes(), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrFormat, f.Path, err)
	}
	return out, nil
}

// CgoDirectives returns the #cgo and #include lines for a package generated
// into pkgDir. Every path is written relative to ${SRCDIR}, and the header is
// included by its project-relative path through an -I for the root, so the
// output tree can move together with the project.
func CgoDirectives(pkgDir, root string, header models.HeaderFile, includeDirs []string, link models.LinkSpec) []string {
	flags := []string{cgoQuote("-I" + srcDir(pkgDir, root))}
	for _, dir := range includeDirs {
		flags = append(flags, cgoQuote("-I"+srcDir(pkgDir, dir)))
	}
	lines := []string{"#cgo CFLAGS: " + strings.Join(flags, " ")}

	ld := []string{cgoQuote("-L" + srcDir(pkgDir, link.LibDir)), "-l" + link.LibName}
	for _, arg := range link.LinkerArgs {
		ld = append(ld, cgoQuote(arg))
	}
	lines = append(lines, "#cgo LDFLAGS: "+strings.Join(ld, " "))
	lines = append(lines, "#include "+strconv.Quote(headerRel(root, header)))
	return lines
}

// srcDir spells dir relative to the package directory. Paths on another
// volume stay absolute.
func srcDir(pkgDir, dir string) string {
	rel, err := filepath.Rel(pkgDir, dir)
	if err != nil {
		return filepath.ToSlash(dir)
	}
	if rel == "." {
		return "${SRCDIR}"
	}
	return "${SRCDIR}/" + filepath.ToSlash(rel)
}

func headerRel(root string, header models.HeaderFile) string {
	if rel, err := filepath.Rel(root, header.Abs); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(header.Abs)
}

// cgoQuote protects arguments containing spaces; cgo splits directives on
// white space but honours quotes
func cgoQuote(arg string) string {
	if !strings.ContainsAny(arg, " \t'\"") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
