// -----------------------------------------------------------------------
// C declarations - structures extracted from preprocessed C headers
// -----------------------------------------------------------------------

package models

import "strings"

// CTypeKind classifies a C type expression
type CTypeKind int

const (
	CVoid CTypeKind = iota
	CBool
	CInteger // Name holds the canonical spelling, e.g. "unsigned long"
	CFloat   // "float", "double" or "long double"
	CNamed   // typedef name
	CStruct  // Name holds the tag, empty for anonymous records
	CUnion
	CEnum
	CPointer
	CArray
	CFunction
)

// CType is a parsed C type expression
type CType struct {
	Kind     CTypeKind
	Name     string
	Const    bool
	Elem     *CType   // pointee, array element, or function result
	Len      string   // array length as written
	Params   []CParam // function parameters
	Variadic bool
	Record   *CRecord // inline struct/union body, if any
	Enum     *CEnumDecl
}

// CParam is a function parameter
type CParam struct {
	Name string
	Type *CType
}

// IsVoid reports whether t is plain void
func (t *CType) IsVoid() bool {
	return t != nil && t.Kind == CVoid
}

// Spelling renders t as C source declaring name. An empty name yields an
// abstract declarator suitable for casts and prototypes.
func (t *CType) Spelling(name string) string {
	base, decl := t.split(name)
	if decl == "" {
		return base
	}
	return base + " " + decl
}

func (t *CType) split(inner string) (string, string) {
	switch t.Kind {
	case CPointer:
		q := "*"
		if t.Const {
			q = "* const"
		}
		d := q
		if inner != "" {
			if t.Const {
				d = q + " " + inner
			} else {
				d = q + inner
			}
		}
		if t.Elem.Kind == CArray || t.Elem.Kind == CFunction {
			d = "(" + d + ")"
		}
		return t.Elem.split(d)
	case CArray:
		return t.Elem.split(inner + "[" + t.Len + "]")
	case CFunction:
		params := make([]string, 0, len(t.Params)+1)
		for _, p := range t.Params {
			params = append(params, p.Type.Spelling(p.Name))
		}
		if t.Variadic {
			params = append(params, "...")
		}
		if len(params) == 0 {
			params = append(params, "void")
		}
		return t.Elem.split(inner + "(" + strings.Join(params, ", ") + ")")
	}
	base := t.baseSpelling()
	if t.Const {
		base = "const " + base
	}
	return base, inner
}

func (t *CType) baseSpelling() string {
	switch t.Kind {
	case CVoid:
		return "void"
	case CBool:
		return "_Bool"
	case CStruct:
		return "struct " + t.Name
	case CUnion:
		return "union " + t.Name
	case CEnum:
		return "enum " + t.Name
	}
	return t.Name
}

// CField is a struct or union member
type CField struct {
	Name     string
	Type     *CType
	BitWidth string
}

// CRecord is a struct or union definition
type CRecord struct {
	Union    bool
	Tag      string
	Fields   []CField
	Complete bool // false for forward declarations
	Origin   string
}

// CEnumerator is one enum member
type CEnumerator struct {
	Name  string
	Value string // expression as written, empty when implicit
}

// CEnumDecl is an enum definition
type CEnumDecl struct {
	Tag     string
	Members []CEnumerator
	Origin  string
}

// CTypedef binds a name to a type
type CTypedef struct {
	Name   string
	Type   *CType
	Origin string
}

// CFunc is a function prototype
type CFunc struct {
	Name   string
	Type   *CType // Kind == CFunction
	Origin string
}

// Result returns the function's return type
func (f *CFunc) Result() *CType {
	return f.Type.Elem
}

// CConst is an object-like macro whose body is a constant expression
type CConst struct {
	Name   string
	Body   string
	Origin string
}

// CDecl is any top-level declaration
type CDecl interface {
	DeclName() string
	DeclOrigin() string
}

func (c *CConst) DeclName() string      { return c.Name }
func (c *CConst) DeclOrigin() string    { return c.Origin }
func (e *CEnumDecl) DeclName() string   { return e.Tag }
func (e *CEnumDecl) DeclOrigin() string { return e.Origin }
func (r *CRecord) DeclName() string     { return r.Tag }
func (r *CRecord) DeclOrigin() string   { return r.Origin }
func (t *CTypedef) DeclName() string    { return t.Name }
func (t *CTypedef) DeclOrigin() string  { return t.Origin }
func (f *CFunc) DeclName() string       { return f.Name }
func (f *CFunc) DeclOrigin() string     { return f.Origin }

// CUnit is everything declared by one preprocessed header, in source order
type CUnit struct {
	Decls []CDecl
	Files []string // every file named by a line marker, first-seen order
}

// Typedef looks up a typedef by name
func (u *CUnit) Typedef(name string) *CTypedef {
	for _, d := range u.Decls {
		if td, ok := d.(*CTypedef); ok && td.Name == name {
			return td
		}
	}
	return nil
}

// Record looks up the complete definition of a tagged struct or union,
// falling back to the forward declaration.
func (u *CUnit) Record(tag string, union bool) *CRecord {
	var fwd *CRecord
	for _, d := range u.Decls {
		r, ok := d.(*CRecord)
		if !ok || r.Tag != tag || r.Union != union {
			continue
		}
		if r.Complete {
			return r
		}
		fwd = r
	}
	return fwd
}

// EnumByTag looks up a tagged enum
func (u *CUnit) EnumByTag(tag string) *CEnumDecl {
	for _, d := range u.Decls {
		if e, ok := d.(*CEnumDecl); ok && e.Tag != "" && e.Tag == tag {
			return e
		}
	}
	return nil
}

// Funcs returns the function prototypes in source order
func (u *CUnit) Funcs() []*CFunc {
	var out []*CFunc
	for _, d := range u.Decls {
		if f, ok := d.(*CFunc); ok {
			out = append(out, f)
		}
	}
	return out
}
