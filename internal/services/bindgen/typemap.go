package bindgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ternarybob/foreigntest/internal/models"
)

type convKind int

const (
	convNumeric convKind = iota // T(x) in both directions
	convUnsafe                  // void pointers pass through unchanged
	convPointer                 // (*T)(unsafe.Pointer(x))
	convFuncPtr                 // cgo spells function pointers *[0]byte
	convValue                   // *(*T)(unsafe.Pointer(&x)), records by value
)

// GoType pairs the Go spelling of a C type with its cgo spelling and knows
// how to convert values between them
type GoType struct {
	Go   string
	C    string
	conv convKind
	// the cgo spelling reaches a function pointer, which cgo cannot export
	fnPtr bool
}

// ExportC is the spelling used in //export signatures. Function pointers
// cross as unsafe.Pointer there.
func (g GoType) ExportC() string {
	if g.fnPtr {
		return "unsafe.Pointer"
	}
	return g.C
}

// Erased reports whether ExportC replaces the cgo spelling, in which case
// the C side of an exported function takes void * instead
func (g GoType) Erased() bool {
	return g.fnPtr
}

// ToC converts the Go expression x for a cgo call. Records by value need x
// to be addressable.
func (g GoType) ToC(x string) string {
	switch g.conv {
	case convUnsafe:
		return x
	case convPointer, convFuncPtr:
		return "(" + g.C + ")(unsafe.Pointer(" + x + "))"
	case convValue:
		return "*(*" + g.C + ")(unsafe.Pointer(&" + x + "))"
	}
	return g.C + "(" + x + ")"
}

// ToGo converts the cgo expression x back to the Go type
func (g GoType) ToGo(x string) string {
	switch g.conv {
	case convUnsafe:
		return x
	case convPointer, convFuncPtr:
		if g.Go == "unsafe.Pointer" {
			return "unsafe.Pointer(" + x + ")"
		}
		return "(" + g.Go + ")(unsafe.Pointer(" + x + "))"
	case convValue:
		return "*(*" + g.Go + ")(unsafe.Pointer(&" + x + "))"
	}
	return g.Go + "(" + x + ")"
}

// NeedsAddress reports whether ToC/ToGo take the address of their operand
func (g GoType) NeedsAddress() bool {
	return g.conv == convValue
}

type primitive struct {
	goName string
	cName  string
}

// host-native spellings; long is taken as 64-bit (LP64)
var integerTypes = map[string]primitive{
	"char":               {"byte", "C.char"},
	"signed char":        {"int8", "C.schar"},
	"unsigned char":      {"uint8", "C.uchar"},
	"short":              {"int16", "C.short"},
	"unsigned short":     {"uint16", "C.ushort"},
	"int":                {"int32", "C.int"},
	"unsigned int":       {"uint32", "C.uint"},
	"long":               {"int64", "C.long"},
	"unsigned long":      {"uint64", "C.ulong"},
	"long long":          {"int64", "C.longlong"},
	"unsigned long long": {"uint64", "C.ulonglong"},
}

var floatTypes = map[string]primitive{
	"float":  {"float32", "C.float"},
	"double": {"float64", "C.double"},
}

var builtinTypedefs = map[string]string{
	"size_t": "uintptr", "ssize_t": "int", "ptrdiff_t": "int",
	"intptr_t": "int", "uintptr_t": "uintptr", "wchar_t": "int32",
	"int8_t": "int8", "int16_t": "int16", "int32_t": "int32", "int64_t": "int64",
	"uint8_t": "uint8", "uint16_t": "uint16", "uint32_t": "uint32", "uint64_t": "uint64",
}

type unsupportedError struct {
	what string
}

func (e *unsupportedError) Error() string { return e.what }

func unsupported(format string, args ...interface{}) error {
	return &unsupportedError{what: fmt.Sprintf(format, args...)}
}

type recordKey struct {
	tag   string
	union bool
}

// nameTable holds the Go names of every declaration visible to the output,
// emitted or not
type nameTable struct {
	records  map[recordKey]string
	enums    map[string]string
	typedefs map[string]string
}

type mapper struct {
	unit    *models.CUnit
	allowed func(origin string) bool
	names   *nameTable
}

// typedef returns the visible definition of a typedef name
func (m *mapper) typedef(name string) (*models.CTypedef, bool) {
	td := m.unit.Typedef(name)
	if td == nil {
		return nil, false
	}
	return td, m.allowed(td.Origin)
}

func (m *mapper) record(t *models.CType) (*models.CRecord, bool) {
	rec := m.unit.Record(t.Name, t.Kind == models.CUnion)
	if rec == nil {
		return nil, false
	}
	return rec, m.allowed(rec.Origin)
}

// isFunction reports whether t is a function type, possibly behind typedefs
func (m *mapper) isFunction(t *models.CType) bool {
	for depth := 0; t != nil && depth < 32; depth++ {
		switch t.Kind {
		case models.CFunction:
			return true
		case models.CNamed:
			td := m.unit.Typedef(t.Name)
			if td == nil {
				return false
			}
			t = td.Type
		default:
			return false
		}
	}
	return false
}

// cgoSpelling names t the way cgo exposes it to Go
func (m *mapper) cgoSpelling(t *models.CType) (string, error) {
	switch t.Kind {
	case models.CBool:
		return "C._Bool", nil
	case models.CInteger:
		if p, ok := integerTypes[t.Name]; ok {
			return p.cName, nil
		}
	case models.CFloat:
		if p, ok := floatTypes[t.Name]; ok {
			return p.cName, nil
		}
	case models.CNamed:
		return "C." + t.Name, nil
	case models.CStruct, models.CUnion, models.CEnum:
		if t.Name == "" {
			return "", unsupported("anonymous %s", kindWord(t))
		}
		return "C." + kindWord(t) + "_" + t.Name, nil
	case models.CPointer:
		if t.Elem.IsVoid() {
			return "unsafe.Pointer", nil
		}
		if m.isFunction(t.Elem) {
			return "*[0]byte", nil
		}
		inner, err := m.cgoSpelling(t.Elem)
		if err != nil {
			return "", err
		}
		return "*" + inner, nil
	case models.CArray:
		n, ok := arrayLen(t.Len)
		if !ok {
			return "", unsupported("array length %q", t.Len)
		}
		inner, err := m.cgoSpelling(t.Elem)
		if err != nil {
			return "", err
		}
		return "[" + n + "]" + inner, nil
	}
	return "", unsupported("type %s", t.Spelling(""))
}

// value maps t as used by value: parameters, results and struct fields
func (m *mapper) value(t *models.CType) (GoType, error) {
	return m.valueDepth(t, 0)
}

func (m *mapper) valueDepth(t *models.CType, depth int) (GoType, error) {
	if depth > 32 {
		return GoType{}, unsupported("typedef chain too deep")
	}
	switch t.Kind {
	case models.CVoid:
		return GoType{}, unsupported("void value")
	case models.CBool:
		return GoType{Go: "bool", C: "C._Bool"}, nil
	case models.CInteger:
		if p, ok := integerTypes[t.Name]; ok {
			return GoType{Go: p.goName, C: p.cName}, nil
		}
		return GoType{}, unsupported("integer type %s", t.Name)
	case models.CFloat:
		if p, ok := floatTypes[t.Name]; ok {
			return GoType{Go: p.goName, C: p.cName}, nil
		}
		return GoType{}, unsupported("floating type %s", t.Name)
	case models.CNamed:
		return m.named(t.Name, depth)
	case models.CStruct, models.CUnion:
		if t.Name == "" {
			return GoType{}, unsupported("anonymous %s", kindWord(t))
		}
		rec, ok := m.record(t)
		if !ok {
			return GoType{}, unsupported("%s %s is declared outside the allowed files", kindWord(t), t.Name)
		}
		if !rec.Complete {
			return GoType{}, unsupported("incomplete %s %s used by value", kindWord(t), t.Name)
		}
		c, _ := m.cgoSpelling(t)
		return GoType{Go: m.names.records[recordKey{t.Name, rec.Union}], C: c, conv: convValue}, nil
	case models.CEnum:
		if t.Name == "" {
			return GoType{}, unsupported("anonymous enum")
		}
		c := "C.enum_" + t.Name
		if e := m.unit.EnumByTag(t.Name); e != nil && m.allowed(e.Origin) {
			return GoType{Go: m.names.enums[t.Name], C: c}, nil
		}
		return GoType{Go: "int32", C: c}, nil
	case models.CPointer:
		return m.pointer(t)
	case models.CArray:
		return GoType{}, unsupported("array %s by value", t.Spelling(""))
	}
	return GoType{}, unsupported("function type by value")
}

func (m *mapper) named(name string, depth int) (GoType, error) {
	if goName, ok := builtinTypedefs[name]; ok {
		return GoType{Go: goName, C: "C." + name}, nil
	}
	td, visible := m.typedef(name)
	if td == nil {
		return GoType{}, unsupported("unknown type %s", name)
	}
	if td.Type.Name == "" && (td.Type.Record != nil || td.Type.Enum != nil) {
		// anonymous body named only by this typedef
		if !visible {
			return GoType{}, unsupported("type %s is declared outside the allowed files", name)
		}
		if td.Type.Enum != nil {
			return GoType{Go: m.names.typedefs[name], C: "C." + name}, nil
		}
		return GoType{Go: m.names.typedefs[name], C: "C." + name, conv: convValue}, nil
	}
	under, err := m.valueDepth(td.Type, depth+1)
	if err != nil {
		return GoType{}, err
	}
	goName := under.Go
	if visible {
		goName = m.names.typedefs[name]
	}
	conv := under.conv
	switch conv {
	case convUnsafe, convFuncPtr:
		conv = convPointer
	}
	return GoType{Go: goName, C: "C." + name, conv: conv, fnPtr: under.fnPtr}, nil
}

func (m *mapper) pointer(t *models.CType) (GoType, error) {
	c, err := m.cgoSpelling(t)
	if err != nil {
		return GoType{}, err
	}
	elem := t.Elem
	if elem.IsVoid() {
		return GoType{Go: "unsafe.Pointer", C: c, conv: convUnsafe}, nil
	}
	if m.isFunction(elem) {
		return GoType{Go: "unsafe.Pointer", C: c, conv: convFuncPtr, fnPtr: true}, nil
	}
	if elem.Kind == models.CStruct || elem.Kind == models.CUnion {
		if rec, ok := m.record(elem); ok && !rec.Complete {
			return GoType{Go: "*" + m.names.records[recordKey{elem.Name, rec.Union}], C: c, conv: convPointer}, nil
		}
	}
	if elem.Kind == models.CNamed {
		// typedef of an opaque handle: point at the typedef's own Go name
		if td, visible := m.typedef(elem.Name); visible && td.Type.Name != "" &&
			(td.Type.Kind == models.CStruct || td.Type.Kind == models.CUnion) {
			if rec, ok := m.record(td.Type); ok && !rec.Complete {
				return GoType{Go: "*" + m.names.typedefs[elem.Name], C: c, conv: convPointer}, nil
			}
		}
	}
	inner, err := m.value(elem)
	if err != nil {
		// pointers to types we cannot mirror stay opaque
		return GoType{Go: "unsafe.Pointer", C: c, conv: convPointer}, nil
	}
	return GoType{Go: "*" + inner.Go, C: c, conv: convPointer, fnPtr: inner.fnPtr}, nil
}

// field maps a struct member type; arrays are allowed here
func (m *mapper) field(t *models.CType) (string, error) {
	if t.Kind == models.CArray {
		n, ok := arrayLen(t.Len)
		if !ok {
			return "", unsupported("array length %q", t.Len)
		}
		inner, err := m.field(t.Elem)
		if err != nil {
			return "", err
		}
		return "[" + n + "]" + inner, nil
	}
	g, err := m.value(t)
	if err != nil {
		return "", err
	}
	return g.Go, nil
}

func kindWord(t *models.CType) string {
	switch t.Kind {
	case models.CUnion:
		return "union"
	case models.CEnum:
		return "enum"
	}
	return "struct"
}

// arrayLen accepts integer literals only, with C suffixes stripped
func arrayLen(s string) (string, bool) {
	s = strings.TrimRight(strings.TrimSpace(s), "uUlL")
	if s == "" {
		return "", false
	}
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return "", false
	}
	return strconv.FormatUint(n, 10), true
}
