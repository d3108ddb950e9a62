// -----------------------------------------------------------------------
// Declaration engine - turns one C header into cgo declarations
// -----------------------------------------------------------------------

package bindgen

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/foreigntest/internal/interfaces"
	"github.com/ternarybob/foreigntest/internal/models"
	"github.com/ternarybob/foreigntest/internal/services/cdecl"
)

// ItemKind classifies generated declarations
type ItemKind string

const (
	ItemConst ItemKind = "const"
	ItemType  ItemKind = "type"
	ItemFunc  ItemKind = "func"
)

// Item is one generated top-level declaration
type Item struct {
	Kind  ItemKind
	CName string
	Names []string // Go identifiers it declares
	Code  string
	Func  *FuncSig // set for ItemFunc
}

// Param is a function parameter with its Go local name
type Param struct {
	Name string
	Type GoType
}

// FuncSig describes a bound C function
type FuncSig struct {
	CName  string
	GoName string
	Params []Param
	Result *GoType // nil for void
	Decl   *models.CType
}

// GoParams renders the Go parameter list
func (f *FuncSig) GoParams() string {
	parts := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		parts = append(parts, p.Name+" "+p.Type.Go)
	}
	return strings.Join(parts, ", ")
}

// GoResult renders the Go result type with a leading space, or nothing
func (f *FuncSig) GoResult() string {
	if f.Result == nil {
		return ""
	}
	return " " + f.Result.Go
}

// ArgNames lists the parameter names
func (f *FuncSig) ArgNames() []string {
	names := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		names = append(names, p.Name)
	}
	return names
}

// CallBody returns the statements of a Go function that calls the C
// function with its Go parameters and returns the converted result
func (f *FuncSig) CallBody() string {
	args := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		args = append(args, p.Type.ToC(p.Name))
	}
	call := "C." + f.CName + "(" + strings.Join(args, ", ") + ")"
	if f.Result == nil {
		return "\t" + call + "\n"
	}
	return "\tret := " + call + "\n\treturn " + f.Result.ToGo("ret") + "\n"
}

// Bindings is the engine's output for one header
type Bindings struct {
	Header  models.HeaderFile
	Items   []Item
	Skipped []cdecl.Skipped
	Files   []string // files named by line markers, first-seen order
}

// Names lists every Go identifier the items declare, in order
func (b *Bindings) Names() []string {
	var out []string
	for _, it := range b.Items {
		out = append(out, it.Names...)
	}
	return out
}

// Funcs returns the bound functions in order
func (b *Bindings) Funcs() []*FuncSig {
	var out []*FuncSig
	for _, it := range b.Items {
		if it.Func != nil {
			out = append(out, it.Func)
		}
	}
	return out
}

// Decls returns the generated code of every item
func (b *Bindings) Decls() []string {
	out := make([]string, 0, len(b.Items))
	for _, it := range b.Items {
		out = append(out, it.Code)
	}
	return out
}

// SkipReasons formats the skipped declarations for the artifact index
func (b *Bindings) SkipReasons() []string {
	out := make([]string, 0, len(b.Skipped))
	for _, s := range b.Skipped {
		out = append(out, s.String())
	}
	return out
}

// Engine generates Go declarations from C headers
type Engine struct {
	pre    interfaces.Preprocessor
	logger arbor.ILogger
}

// NewEngine creates an engine reading headers through pre
func NewEngine(pre interfaces.Preprocessor, logger arbor.ILogger) *Engine {
	return &Engine{pre: pre, logger: logger}
}

// Generate preprocesses and parses opts.Header and renders the declarations
// the options select
func (e *Engine) Generate(ctx context.Context, opts Options) (*Bindings, error) {
	text, err := e.pre.Preprocess(ctx, models.PreprocessRequest{
		Header:      opts.Header.Abs,
		IncludeDirs: opts.IncludeDirs,
		Args:        opts.ClangArgs,
	})
	if err != nil {
		return nil, err
	}

	res, err := cdecl.Parse(text, opts.Header.Abs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.Header.Rel, err)
	}

	var files []string
	for _, f := range res.Unit.Files {
		if strings.HasPrefix(f, "<") {
			continue
		}
		files = append(files, f)
		if opts.Callbacks != nil {
			opts.Callbacks.OnInclude(f)
		}
	}

	g := newGenerator(res.Unit, opts)
	for _, s := range res.Skipped {
		if g.allowed(s.Origin) {
			g.skipped = append(g.skipped, s)
		}
	}
	g.run()

	if err := checkCollisions(g.items); err != nil {
		return nil, fmt.Errorf("%s: %w", opts.Header.Rel, err)
	}

	e.logger.Debug().
		Str("header", opts.Header.Rel).
		Int("items", len(g.items)).
		Int("skipped", len(g.skipped)).
		Int("files", len(files)).
		Msg("Generated declarations")

	return &Bindings{Header: opts.Header, Items: g.items, Skipped: g.skipped, Files: files}, nil
}

func checkCollisions(items []Item) error {
	owner := make(map[string]string)
	for _, it := range items {
		for _, name := range it.Names {
			if prev, ok := owner[name]; ok {
				return fmt.Errorf("%w: %s is generated for both %s and %s", ErrNameCollision, name, prev, it.CName)
			}
			owner[name] = it.CName
		}
	}
	return nil
}

type generator struct {
	unit    *models.CUnit
	opts    Options
	m       *mapper
	items   []Item
	skipped []cdecl.Skipped
	emitted map[recordKey]bool
	opaque  map[*models.CRecord]bool
}

func newGenerator(unit *models.CUnit, opts Options) *generator {
	g := &generator{
		unit:    unit,
		opts:    opts,
		emitted: make(map[recordKey]bool),
		opaque:  make(map[*models.CRecord]bool),
	}
	g.m = &mapper{unit: unit, allowed: g.allowed, names: g.assignNames()}
	return g
}

func (g *generator) allowed(origin string) bool {
	return g.opts.AllowlistFile == nil || g.opts.AllowlistFile.MatchString(origin)
}

// typesWanted is false when an allow-list restricts output to functions
func (g *generator) typesWanted() bool {
	return len(g.opts.AllowlistFunctions) == 0
}

func (g *generator) typeBlocked(name string) bool {
	return matchesAny(g.opts.BlocklistTypes, name)
}

func (g *generator) skip(name, reason, origin string) {
	g.skipped = append(g.skipped, cdecl.Skipped{Name: name, Reason: reason, Origin: origin})
}

func (g *generator) assignNames() *nameTable {
	names := &nameTable{
		records:  make(map[recordKey]string),
		enums:    make(map[string]string),
		typedefs: make(map[string]string),
	}
	ordinary := g.ordinaryNames()
	for _, d := range g.unit.Decls {
		if !g.allowed(d.DeclOrigin()) {
			continue
		}
		switch d := d.(type) {
		case *models.CRecord:
			if d.Tag != "" {
				kind := models.CStruct
				if d.Union {
					kind = models.CUnion
				}
				names.records[recordKey{d.Tag, d.Union}] = tagName(ordinary, d.Tag, kind)
			}
		case *models.CEnumDecl:
			if d.Tag != "" {
				names.enums[d.Tag] = tagName(ordinary, d.Tag, models.CEnum)
			}
		case *models.CTypedef:
			names.typedefs[d.Name] = ExportedName(d.Name)
		}
	}
	return names
}

// ordinaryName records who holds a Go name among C's ordinary identifiers
type ordinaryName struct {
	alias *models.CType // set when the only holder is a typedef, to its type
	other bool          // a function, constant, enumerator or second typedef
}

// ordinaryNames maps the Go name of every ordinary C identifier: functions,
// typedefs, macros and enumerators. Tags live in a namespace of their own in C.
func (g *generator) ordinaryNames() map[string]*ordinaryName {
	taken := make(map[string]*ordinaryName)
	take := func(c string, alias *models.CType) {
		name := ExportedName(c)
		if prev, ok := taken[name]; ok {
			prev.other = true
			prev.alias = nil
			return
		}
		taken[name] = &ordinaryName{alias: alias, other: alias == nil}
	}
	members := func(e *models.CEnumDecl) {
		for _, m := range e.Members {
			take(m.Name, nil)
		}
	}
	for _, d := range g.unit.Decls {
		if !g.allowed(d.DeclOrigin()) {
			continue
		}
		switch d := d.(type) {
		case *models.CConst:
			take(d.Name, nil)
		case *models.CFunc:
			take(d.Name, nil)
		case *models.CEnumDecl:
			members(d)
		case *models.CTypedef:
			if _, ok := builtinTypedefs[d.Name]; ok {
				continue
			}
			take(d.Name, d.Type)
			if d.Type.Name == "" && d.Type.Enum != nil {
				members(d.Type.Enum)
			}
		}
	}
	return taken
}

// tagName names a struct, union or enum tag. A typedef of the same spelling
// that names this very tag shares the Go type; any other ordinary identifier
// pushes the tag to a suffixed name.
func tagName(ordinary map[string]*ordinaryName, tag string, kind models.CTypeKind) string {
	name := ExportedName(tag)
	held, ok := ordinary[name]
	if !ok || (!held.other && held.alias.Kind == kind && held.alias.Name == tag) {
		return name
	}
	switch kind {
	case models.CUnion:
		return name + "Union"
	case models.CEnum:
		return name + "Enum"
	}
	return name + "Struct"
}

func (g *generator) run() {
	for _, d := range g.unit.Decls {
		if !g.allowed(d.DeclOrigin()) {
			continue
		}
		switch d := d.(type) {
		case *models.CConst:
			if g.typesWanted() {
				g.constItem(d)
			}
		case *models.CEnumDecl:
			if g.typesWanted() && (d.Tag == "" || !g.typeBlocked(d.Tag)) {
				name := ""
				if d.Tag != "" {
					name = g.m.names.enums[d.Tag]
				}
				g.enumItem(name, d.Tag, d)
			}
		case *models.CRecord:
			key := recordKey{d.Tag, d.Union}
			if !g.typesWanted() || g.emitted[key] || g.typeBlocked(d.Tag) {
				continue
			}
			g.emitted[key] = true
			rec := g.unit.Record(d.Tag, d.Union)
			word := "struct"
			if rec.Union {
				word = "union"
			}
			g.recordItem(g.m.names.records[key], word+"_"+d.Tag, word+" "+d.Tag, rec)
		case *models.CTypedef:
			if g.typesWanted() && !g.typeBlocked(d.Name) {
				g.typedefItem(d)
			}
		case *models.CFunc:
			g.funcItem(d)
		}
	}
}

func (g *generator) constItem(c *models.CConst) {
	name := ExportedName(c.Name)
	g.items = append(g.items, Item{
		Kind:  ItemConst,
		CName: c.Name,
		Names: []string{name},
		Code:  fmt.Sprintf("const %s = C.%s", name, c.Name),
	})
}

// enumItem renders an enum. typeName is empty for anonymous enums, whose
// members become untyped constants.
func (g *generator) enumItem(typeName, cName string, e *models.CEnumDecl) {
	var b strings.Builder
	var names []string
	typ := ""
	if typeName != "" {
		names = append(names, typeName)
		fmt.Fprintf(&b, "type %s int32\n", typeName)
		typ = " " + typeName
	}
	if len(e.Members) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("const (\n")
		for _, m := range e.Members {
			goName := ExportedName(m.Name)
			names = append(names, goName)
			fmt.Fprintf(&b, "\t%s%s = C.%s\n", goName, typ, m.Name)
		}
		b.WriteString(")\n")
	}
	if b.Len() == 0 {
		return
	}
	if cName == "" && len(e.Members) > 0 {
		cName = e.Members[0].Name
	}
	g.items = append(g.items, Item{Kind: ItemType, CName: cName, Names: names, Code: b.String()})
}

// recordItem renders a struct or union. sizeName is the cgo sizeof suffix
// (struct_point, union_u or a typedef name).
func (g *generator) recordItem(goName, sizeName, cName string, rec *models.CRecord) {
	var b strings.Builder
	fmt.Fprintf(&b, "// %s mirrors %s.\n", goName, cName)

	if !rec.Complete {
		fmt.Fprintf(&b, "type %s struct {\n\t_ [0]byte\n}\n", goName)
		g.items = append(g.items, Item{Kind: ItemType, CName: cName, Names: []string{goName}, Code: b.String()})
		return
	}

	fields, reason := g.mirrorFields(rec)
	if reason != "" {
		g.opaque[rec] = true
		g.skip(cName, "mirrored as opaque bytes: "+reason, rec.Origin)
		fmt.Fprintf(&b, "type %s [C.sizeof_%s]byte\n", goName, sizeName)
		g.items = append(g.items, Item{Kind: ItemType, CName: cName, Names: []string{goName}, Code: b.String()})
		return
	}

	fmt.Fprintf(&b, "type %s struct {\n", goName)
	for _, f := range fields {
		fmt.Fprintf(&b, "\t%s %s\n", f[0], f[1])
	}
	b.WriteString("}\n")
	if g.opts.LayoutTests {
		fmt.Fprintf(&b, "\nvar _ = [1]struct{}{}[unsafe.Sizeof(%s{})-uintptr(C.sizeof_%s)]\n", goName, sizeName)
	}
	g.items = append(g.items, Item{Kind: ItemType, CName: cName, Names: []string{goName}, Code: b.String()})
}

// mirrorFields maps every member to a Go field, or explains why the record
// has to stay opaque
func (g *generator) mirrorFields(rec *models.CRecord) ([][2]string, string) {
	if rec.Union {
		return nil, "unions have no Go equivalent"
	}
	if len(rec.Fields) == 0 {
		return nil, "empty record"
	}
	seen := make(map[string]bool)
	fields := make([][2]string, 0, len(rec.Fields))
	for _, f := range rec.Fields {
		switch {
		case f.Name == "":
			return nil, "anonymous member"
		case f.BitWidth != "":
			return nil, "bit-field " + f.Name
		}
		if inner := g.nestedRecord(f.Type); inner != nil && g.opaque[inner] {
			return nil, "member " + f.Name + " is opaque"
		}
		typ, err := g.m.field(f.Type)
		if err != nil {
			return nil, "member " + f.Name + ": " + err.Error()
		}
		name := ExportedName(f.Name)
		if seen[name] {
			return nil, "members collide as " + name
		}
		seen[name] = true
		fields = append(fields, [2]string{name, typ})
	}
	return fields, ""
}

// nestedRecord returns the record a by-value member embeds, if any
func (g *generator) nestedRecord(t *models.CType) *models.CRecord {
	for t != nil && t.Kind == models.CArray {
		t = t.Elem
	}
	if t == nil {
		return nil
	}
	switch t.Kind {
	case models.CStruct, models.CUnion:
		if t.Name == "" {
			return t.Record
		}
		return g.unit.Record(t.Name, t.Kind == models.CUnion)
	case models.CNamed:
		if td := g.unit.Typedef(t.Name); td != nil {
			return g.nestedRecord(td.Type)
		}
	}
	return nil
}

func (g *generator) typedefItem(td *models.CTypedef) {
	if _, ok := builtinTypedefs[td.Name]; ok {
		// spelled as Go primitives wherever they are used
		return
	}
	goName := g.m.names.typedefs[td.Name]
	t := td.Type

	switch {
	case t.Name == "" && t.Record != nil:
		g.recordItem(goName, td.Name, td.Name, t.Record)
		return
	case t.Name == "" && t.Enum != nil:
		g.enumItem(goName, td.Name, t.Enum)
		return
	case t.Kind == models.CStruct || t.Kind == models.CUnion || t.Kind == models.CEnum:
		target, err := g.m.value(t)
		if err != nil && t.Kind != models.CEnum {
			// pointers to it still map; only the alias is lost
			if rec, ok := g.m.record(t); !ok || rec.Complete {
				g.skip(td.Name, err.Error(), td.Origin)
				return
			}
			target = GoType{Go: g.m.names.records[recordKey{t.Name, t.Kind == models.CUnion}]}
		}
		if target.Go == goName {
			return
		}
		g.items = append(g.items, Item{
			Kind:  ItemType,
			CName: td.Name,
			Names: []string{goName},
			Code:  fmt.Sprintf("type %s = %s", goName, target.Go),
		})
		return
	case t.Kind == models.CFunction:
		g.skip(td.Name, "function type typedef", td.Origin)
		return
	}

	under, err := g.m.field(t)
	if err != nil {
		g.skip(td.Name, err.Error(), td.Origin)
		return
	}
	g.items = append(g.items, Item{
		Kind:  ItemType,
		CName: td.Name,
		Names: []string{goName},
		Code:  fmt.Sprintf("type %s %s", goName, under),
	})
}

// signature maps a C prototype to Go, or returns why it cannot be called
func (g *generator) signature(fn *models.CFunc) (*FuncSig, error) {
	if fn.Type.Variadic {
		return nil, unsupported("variadic functions cannot be called through cgo")
	}
	sig := &FuncSig{CName: fn.Name, GoName: ExportedName(fn.Name), Decl: fn.Type}
	used := make(map[string]bool)
	for i, p := range fn.Type.Params {
		typ, err := g.m.value(p.Type)
		if err != nil {
			return nil, unsupported("parameter %d: %v", i, err)
		}
		name := LocalName(p.Name, i)
		if used[name] {
			name += strconv.Itoa(i)
		}
		used[name] = true
		sig.Params = append(sig.Params, Param{Name: name, Type: typ})
	}
	if res := fn.Result(); !res.IsVoid() {
		typ, err := g.m.value(res)
		if err != nil {
			return nil, unsupported("result: %v", err)
		}
		sig.Result = &typ
	}
	return sig, nil
}

func (g *generator) funcItem(fn *models.CFunc) {
	if matchesAny(g.opts.BlocklistFunctions, fn.Name) {
		return
	}
	if !g.typesWanted() && !matchesAny(g.opts.AllowlistFunctions, fn.Name) {
		return
	}
	sig, err := g.signature(fn)
	if err != nil {
		g.skip(fn.Name, err.Error(), fn.Origin)
		return
	}
	code := fmt.Sprintf("// %s calls %s.\nfunc %s(%s)%s {\n%s}\n",
		sig.GoName, fn.Name, sig.GoName, sig.GoParams(), sig.GoResult(), sig.CallBody())
	g.items = append(g.items, Item{
		Kind:  ItemFunc,
		CName: fn.Name,
		Names: []string{sig.GoName},
		Code:  code,
		Func:  sig,
	})
}
