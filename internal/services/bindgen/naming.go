package bindgen

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/ternarybob/foreigntest/internal/models"
)

var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
}

// identifiers generated function bodies rely on
var reservedLocals = map[string]bool{
	"C": true, "unsafe": true, "ret": true, "nil": true, "true": true, "false": true,
	"iota": true, "len": true, "cap": true, "new": true, "make": true, "append": true,
	"bool": true, "byte": true, "int": true, "string": true, "error": true, "any": true,
	"int8": true, "int16": true, "int32": true, "int64": true,
	"uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
	"float32": true, "float64": true,
}

// ExportedName converts a C identifier to an exported Go identifier.
// Words are split on underscores; all-caps words are lowered first, so
// util_sum becomes UtilSum and UTIL_MAX becomes UtilMax.
func ExportedName(c string) string {
	var b strings.Builder
	for _, part := range strings.Split(sanitize(c), "_") {
		if part == "" {
			continue
		}
		if strings.ToUpper(part) == part {
			part = strings.ToLower(part)
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	name := b.String()
	if name == "" || !unicode.IsLetter(rune(name[0])) {
		name = "X" + name
	}
	return name
}

// LocalName makes a C parameter name safe as a Go local. Unnamed
// parameters get positional names.
func LocalName(c string, index int) string {
	c = sanitize(c)
	if c == "" {
		return "p" + strconv.Itoa(index)
	}
	if goKeywords[c] || reservedLocals[c] {
		return c + "_"
	}
	return c
}

// PackageName derives a Go package name from a header stem
func PackageName(stem string) string {
	name := sanitize(stem)
	if name == "" {
		return "header"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "h_" + name
	}
	if goKeywords[name] {
		name += "_"
	}
	return name
}

// UniquePaths fails when two headers would be written to the same output
// file, which happens when their stems only differ by directory or by
// characters PackageName replaces
func UniquePaths(headers []models.HeaderFile, path func(models.HeaderFile) string) error {
	owner := make(map[string]string, len(headers))
	for _, h := range headers {
		p := path(h)
		if prev, ok := owner[p]; ok {
			return fmt.Errorf("%w: %s and %s both generate %s", ErrPackageCollision, prev, h.Rel, p)
		}
		owner[p] = h.Rel
	}
	return nil
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
			return r
		}
		return '_'
	}, s)
}
