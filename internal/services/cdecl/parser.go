// -----------------------------------------------------------------------
// C declaration parser - typedefs, records, enums, prototypes and macros
// from preprocessed header text
// -----------------------------------------------------------------------

package cdecl

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/foreigntest/internal/models"
)

// ErrParse is returned when the token stream cannot be parsed at all
var ErrParse = errors.New("failed to parse C declarations")

// Skipped records a declaration the parser saw but did not model
type Skipped struct {
	Name   string
	Reason string
	Origin string
}

// String formats the skip for logs and the artifact index
func (s Skipped) String() string {
	if s.Name == "" {
		return s.Reason
	}
	return s.Name + ": " + s.Reason
}

// Result is the outcome of parsing one preprocessed header
type Result struct {
	Unit    *models.CUnit
	Skipped []Skipped
}

// BuiltinTypedefs are typedef names understood without seeing their definition
var BuiltinTypedefs = map[string]bool{
	"size_t": true, "ssize_t": true, "ptrdiff_t": true,
	"intptr_t": true, "uintptr_t": true, "wchar_t": true,
	"int8_t": true, "int16_t": true, "int32_t": true, "int64_t": true,
	"uint8_t": true, "uint16_t": true, "uint32_t": true, "uint64_t": true,
}

var ignoredWords = map[string]bool{
	"__extension__": true, "restrict": true, "__restrict": true, "__restrict__": true,
	"volatile": true, "__volatile__": true, "register": true, "auto": true,
	"_Noreturn": true, "__inline": true, "__inline__": true, "_Thread_local": true,
	"__thread": true, "_Nullable": true, "_Nonnull": true, "_Null_unspecified": true,
	"__nonnull": true, "__wur": true, "__THROW": true,
}

var attributeWords = map[string]bool{
	"__attribute__": true, "__attribute": true, "__declspec": true,
	"__asm__": true, "__asm": true, "asm": true, "_Alignas": true, "alignas": true,
}

var typeWords = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "__signed__": true, "unsigned": true,
	"_Bool": true, "bool": true, "struct": true, "union": true, "enum": true,
	"const": true, "__const": true, "_Complex": true, "__int128": true,
}

// Parse extracts declarations from preprocessed text. mainFile is the
// origin used before the first line marker.
func Parse(text, mainFile string) (*Result, error) {
	toks, dirs, files := Lex(text, mainFile)
	p := &parser{
		toks:     toks,
		unit:     &models.CUnit{Files: files},
		typedefs: map[string]bool{},
		enumVals: map[string]bool{},
	}
	if err := p.parseTop(); err != nil {
		return nil, err
	}
	consts, skipped := parseMacros(dirs, p.enumVals)
	decls := make([]models.CDecl, 0, len(consts)+len(p.unit.Decls))
	for _, c := range consts {
		decls = append(decls, c)
	}
	p.unit.Decls = append(decls, p.unit.Decls...)
	return &Result{Unit: p.unit, Skipped: append(skipped, p.skipped...)}, nil
}

type parser struct {
	toks     []Token
	pos      int
	unit     *models.CUnit
	typedefs map[string]bool
	enumVals map[string]bool
	skipped  []Skipped
}

type parseError struct {
	msg string
	tok Token
}

func (e *parseError) Error() string {
	return fmt.Sprintf("%s near %q in %s", e.msg, e.tok.Text, e.tok.Origin)
}

func (p *parser) eof() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() Token {
	return p.peekN(0)
}

func (p *parser) peekN(n int) Token {
	if p.pos+n >= len(p.toks) {
		return Token{Kind: TokPunct, Text: ""}
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() Token {
	t := p.peek()
	if !p.eof() {
		p.pos++
	}
	return t
}

func (p *parser) is(text string) bool {
	t := p.peek()
	return !p.eof() && t.Text == text && (t.Kind == TokPunct || t.Kind == TokIdent)
}

func (p *parser) accept(text string) bool {
	if p.is(text) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(text string) error {
	if !p.accept(text) {
		return p.errorf("expected %q", text)
	}
	return nil
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &parseError{msg: fmt.Sprintf(format, args...), tok: p.peek()}
}

func (p *parser) addDecl(d models.CDecl) {
	p.unit.Decls = append(p.unit.Decls, d)
}

func (p *parser) skip(name, reason, origin string) {
	p.skipped = append(p.skipped, Skipped{Name: name, Reason: reason, Origin: origin})
}

func (p *parser) parseTop() error {
	for !p.eof() {
		if p.accept(";") {
			continue
		}
		start := p.pos
		origin := p.peek().Origin
		if err := p.declaration(); err != nil {
			var perr *parseError
			if !errors.As(err, &perr) {
				return fmt.Errorf("%w: %v", ErrParse, err)
			}
			p.pos = start
			p.recover()
			p.skip("", err.Error(), origin)
		}
	}
	return nil
}

// recover skips to the end of the current top-level construct
func (p *parser) recover() {
	depth := 0
	for !p.eof() {
		t := p.next()
		switch t.Text {
		case "{", "(", "[":
			depth++
		case "}", ")", "]":
			depth--
			if depth <= 0 && t.Text == "}" && !p.is(";") {
				if depth < 0 || !p.declaratorFollows() {
					return
				}
			}
		case ";":
			if depth <= 0 {
				return
			}
		}
	}
}

// declaratorFollows reports whether the tokens after a closing brace continue
// the same declaration, as in `struct s {...} name;`
func (p *parser) declaratorFollows() bool {
	t := p.peek()
	return t.Text == "*" || (t.Kind == TokIdent && !p.isTypeName(t.Text) && !attributeWords[t.Text])
}

func (p *parser) declaration() error {
	origin := p.peek().Origin
	if p.is("_Static_assert") || p.is("static_assert") {
		p.recover()
		return nil
	}

	sp, err := p.specifiers()
	if err != nil {
		return err
	}
	if p.accept(";") {
		if sp.typ.Kind == models.CEnum && sp.typ.Name == "" && sp.typ.Enum != nil {
			p.addDecl(sp.typ.Enum)
		}
		return nil
	}
	if !sp.typedef && sp.typ.Kind == models.CEnum && sp.typ.Name == "" && sp.typ.Enum != nil {
		p.addDecl(sp.typ.Enum)
	}

	for {
		name, typ, err := p.declarator(sp.typ)
		if err != nil {
			return err
		}
		p.skipAttributes()
		if name == "" {
			return p.errorf("declaration without a name")
		}

		switch {
		case sp.typedef:
			p.typedefs[name] = true
			p.addDecl(&models.CTypedef{Name: name, Type: typ, Origin: origin})
		case typ.Kind == models.CFunction:
			if p.is("{") {
				p.skipBalanced()
				p.skip(name, "function definition in header", origin)
				return nil
			}
			if sp.static {
				p.skip(name, "static function has no linkable symbol", origin)
			} else {
				p.addDecl(&models.CFunc{Name: name, Type: typ, Origin: origin})
			}
		default:
			p.skip(name, "variable declarations are not bound", origin)
		}

		if p.accept("=") {
			p.skipUntil(",", ";")
		}
		if p.accept(",") {
			continue
		}
		return p.expect(";")
	}
}

type specifiers struct {
	typedef, static bool
	typ             *models.CType
}

func (p *parser) isTypeName(name string) bool {
	return typeWords[name] || p.typedefs[name] || BuiltinTypedefs[name]
}

func (p *parser) specifiers() (*specifiers, error) {
	sp := &specifiers{}
	var (
		constQ                                    bool
		signed, unsigned, short, char, intW, cplx bool
		long                                      int
		floatW, doubleW, voidW, boolW             bool
		named                                     *models.CType
	)
	seenBuiltin := func() bool {
		return signed || unsigned || short || char || intW || long > 0 || floatW || doubleW || voidW || boolW
	}
	seenType := func() bool {
		return named != nil || seenBuiltin()
	}

loop:
	for !p.eof() {
		t := p.peek()
		if t.Kind != TokIdent {
			break
		}
		switch {
		case attributeWords[t.Text]:
			p.skipAttributes()
			continue
		case ignoredWords[t.Text]:
			p.next()
			continue
		}
		switch t.Text {
		case "typedef":
			sp.typedef = true
		case "extern", "inline":
			// linkage only
		case "static":
			sp.static = true
		case "const", "__const":
			constQ = true
		case "signed", "__signed__":
			signed = true
		case "unsigned":
			unsigned = true
		case "short":
			short = true
		case "long":
			long++
		case "char":
			char = true
		case "int":
			intW = true
		case "float":
			floatW = true
		case "double":
			doubleW = true
		case "void":
			voidW = true
		case "_Bool", "bool":
			boolW = true
		case "_Complex", "__int128":
			cplx = true
		case "struct", "union", "enum":
			if seenType() {
				return nil, p.errorf("conflicting type specifiers")
			}
			t, err := p.taggedType()
			if err != nil {
				return nil, err
			}
			named = t
			continue
		default:
			if seenType() {
				break loop
			}
			named = &models.CType{Kind: models.CNamed, Name: t.Text}
		}
		p.next()
	}

	if cplx {
		return nil, p.errorf("complex and 128-bit types are not supported")
	}
	if named != nil && named.Kind == models.CNamed && seenBuiltin() {
		return nil, p.errorf("unknown identifier %s before type", named.Name)
	}

	var typ *models.CType
	switch {
	case named != nil:
		typ = named
	case voidW:
		typ = &models.CType{Kind: models.CVoid}
	case boolW:
		typ = &models.CType{Kind: models.CBool}
	case floatW:
		typ = &models.CType{Kind: models.CFloat, Name: "float"}
	case doubleW:
		name := "double"
		if long > 0 {
			name = "long double"
		}
		typ = &models.CType{Kind: models.CFloat, Name: name}
	case signed || unsigned || short || char || intW || long > 0:
		typ = &models.CType{Kind: models.CInteger, Name: integerSpelling(unsigned, signed, short, char, long)}
	default:
		return nil, p.errorf("missing type specifier")
	}
	if constQ {
		cp := *typ
		cp.Const = true
		typ = &cp
	}
	sp.typ = typ
	return sp, nil
}

func integerSpelling(unsigned, signed, short, char bool, long int) string {
	var base string
	switch {
	case char:
		base = "char"
		if signed {
			return "signed char"
		}
	case short:
		base = "short"
	case long >= 2:
		base = "long long"
	case long == 1:
		base = "long"
	default:
		base = "int"
	}
	if unsigned {
		if base == "int" {
			return "unsigned int"
		}
		return "unsigned " + base
	}
	return base
}

func (p *parser) taggedType() (*models.CType, error) {
	kw := p.next().Text
	origin := p.peek().Origin
	p.skipAttributes()
	tag := ""
	if p.peek().Kind == TokIdent && !p.is("{") {
		tag = p.next().Text
	}
	p.skipAttributes()

	if kw == "enum" {
		t := &models.CType{Kind: models.CEnum, Name: tag}
		if p.is("{") {
			e := &models.CEnumDecl{Tag: tag, Origin: origin}
			if err := p.enumBody(e); err != nil {
				return nil, err
			}
			t.Enum = e
			if tag != "" {
				p.addDecl(e)
			}
		} else if tag == "" {
			return nil, p.errorf("anonymous enum without body")
		}
		return t, nil
	}

	union := kw == "union"
	t := &models.CType{Kind: models.CStruct, Name: tag}
	if union {
		t.Kind = models.CUnion
	}
	if p.is("{") {
		rec := &models.CRecord{Union: union, Tag: tag, Origin: origin}
		if err := p.recordBody(rec); err != nil {
			return nil, err
		}
		p.skipAttributes()
		t.Record = rec
		if tag != "" {
			p.addDecl(rec)
		}
	} else if tag == "" {
		return nil, p.errorf("anonymous %s without body", kw)
	} else if p.unit.Record(tag, union) == nil {
		p.addDecl(&models.CRecord{Union: union, Tag: tag, Origin: origin})
	}
	return t, nil
}

func (p *parser) enumBody(e *models.CEnumDecl) error {
	if err := p.expect("{"); err != nil {
		return err
	}
	for !p.accept("}") {
		t := p.next()
		if t.Kind != TokIdent {
			return &parseError{msg: "expected enumerator", tok: t}
		}
		p.skipAttributes()
		m := models.CEnumerator{Name: t.Text}
		if p.accept("=") {
			m.Value = JoinTokens(p.collectUntil(",", "}"))
		}
		e.Members = append(e.Members, m)
		p.enumVals[m.Name] = true
		if !p.accept(",") {
			if err := p.expect("}"); err != nil {
				return err
			}
			break
		}
	}
	return nil
}

func (p *parser) recordBody(rec *models.CRecord) error {
	if err := p.expect("{"); err != nil {
		return err
	}
	for !p.accept("}") {
		if p.eof() {
			return p.errorf("unterminated record body")
		}
		if p.accept(";") {
			continue
		}
		sp, err := p.specifiers()
		if err != nil {
			return err
		}
		if p.accept(";") {
			// anonymous struct or union member
			rec.Fields = append(rec.Fields, models.CField{Type: sp.typ})
			continue
		}
		for {
			f := models.CField{Type: sp.typ}
			if !p.is(":") {
				name, typ, err := p.declarator(sp.typ)
				if err != nil {
					return err
				}
				f.Name, f.Type = name, typ
			}
			if p.accept(":") {
				f.BitWidth = JoinTokens(p.collectUntil(",", ";"))
			}
			p.skipAttributes()
			rec.Fields = append(rec.Fields, f)
			if p.accept(",") {
				continue
			}
			if err := p.expect(";"); err != nil {
				return err
			}
			break
		}
	}
	rec.Complete = true
	return nil
}

type suffix struct {
	array    bool
	length   string
	params   []models.CParam
	variadic bool
}

// declarator parses pointers, the declared name and array/function suffixes
// around base, returning the name (empty for abstract declarators) and the
// full type.
func (p *parser) declarator(base *models.CType) (string, *models.CType, error) {
	for p.is("*") {
		p.next()
		ptr := &models.CType{Kind: models.CPointer, Elem: base}
		for {
			if p.is("const") || p.is("__const") {
				ptr.Const = true
				p.next()
				continue
			}
			if ignoredWords[p.peek().Text] && p.peek().Kind == TokIdent {
				p.next()
				continue
			}
			if attributeWords[p.peek().Text] {
				p.skipAttributes()
				continue
			}
			break
		}
		base = ptr
	}
	p.skipAttributes()

	if p.is("(") && p.nestedDeclarator() {
		p.next()
		placeholder := &models.CType{}
		name, inner, err := p.declarator(placeholder)
		if err != nil {
			return "", nil, err
		}
		if err := p.expect(")"); err != nil {
			return "", nil, err
		}
		outer, err := p.suffixes(base)
		if err != nil {
			return "", nil, err
		}
		*placeholder = *outer
		return name, inner, nil
	}

	name := ""
	if t := p.peek(); t.Kind == TokIdent && !typeWords[t.Text] {
		name = p.next().Text
	}
	typ, err := p.suffixes(base)
	if err != nil {
		return "", nil, err
	}
	return name, typ, nil
}

func (p *parser) nestedDeclarator() bool {
	t := p.peekN(1)
	switch t.Text {
	case "*", "^", "(":
		return true
	}
	return t.Kind == TokIdent && !p.isTypeName(t.Text) && !attributeWords[t.Text]
}

func (p *parser) suffixes(base *models.CType) (*models.CType, error) {
	var sfx []suffix
	for {
		switch {
		case p.accept("["):
			sfx = append(sfx, suffix{array: true, length: JoinTokens(p.collectUntil("]"))})
			if err := p.expect("]"); err != nil {
				return nil, err
			}
		case p.is("("):
			params, variadic, err := p.params()
			if err != nil {
				return nil, err
			}
			sfx = append(sfx, suffix{params: params, variadic: variadic})
		default:
			typ := base
			for i := len(sfx) - 1; i >= 0; i-- {
				s := sfx[i]
				if s.array {
					typ = &models.CType{Kind: models.CArray, Elem: typ, Len: s.length}
				} else {
					typ = &models.CType{Kind: models.CFunction, Elem: typ, Params: s.params, Variadic: s.variadic}
				}
			}
			return typ, nil
		}
	}
}

func (p *parser) params() ([]models.CParam, bool, error) {
	if err := p.expect("("); err != nil {
		return nil, false, err
	}
	if p.accept(")") {
		return nil, false, nil
	}
	if p.is("void") && p.peekN(1).Text == ")" {
		p.pos += 2
		return nil, false, nil
	}
	var params []models.CParam
	for {
		if p.accept("...") {
			if err := p.expect(")"); err != nil {
				return nil, false, err
			}
			return params, true, nil
		}
		sp, err := p.specifiers()
		if err != nil {
			return nil, false, err
		}
		name, typ, err := p.declarator(sp.typ)
		if err != nil {
			return nil, false, err
		}
		p.skipAttributes()
		params = append(params, models.CParam{Name: name, Type: decay(typ)})
		if p.accept(",") {
			continue
		}
		if err := p.expect(")"); err != nil {
			return nil, false, err
		}
		return params, false, nil
	}
}

// decay applies parameter adjustment: arrays and functions become pointers
func decay(t *models.CType) *models.CType {
	switch t.Kind {
	case models.CArray:
		return &models.CType{Kind: models.CPointer, Elem: t.Elem}
	case models.CFunction:
		return &models.CType{Kind: models.CPointer, Elem: t}
	}
	return t
}

// skipAttributes consumes GNU/MSVC attribute and asm-label syntax
func (p *parser) skipAttributes() {
	for !p.eof() && p.peek().Kind == TokIdent && attributeWords[p.peek().Text] {
		p.next()
		if p.is("(") {
			p.skipBalanced()
		}
	}
}

// skipBalanced consumes a bracketed group starting at the current token
func (p *parser) skipBalanced() {
	depth := 0
	for !p.eof() {
		switch p.next().Text {
		case "(", "{", "[":
			depth++
		case ")", "}", "]":
			depth--
			if depth <= 0 {
				return
			}
		}
	}
}

// collectUntil gathers tokens up to (not including) any stop token at depth 0
func (p *parser) collectUntil(stops ...string) []Token {
	var out []Token
	depth := 0
	for !p.eof() {
		t := p.peek()
		if depth == 0 && t.Kind == TokPunct {
			for _, s := range stops {
				if t.Text == s {
					return out
				}
			}
		}
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		}
		out = append(out, p.next())
	}
	return out
}

func (p *parser) skipUntil(stops ...string) {
	p.collectUntil(stops...)
}

var defineHeadPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)(\()?`)

var constPuncts = map[string]bool{
	"(": true, ")": true, "+": true, "-": true, "*": true, "/": true, "%": true,
	"<<": true, ">>": true, "&": true, "|": true, "^": true, "~": true, "!": true,
}

type macroCandidate struct {
	c    *models.CConst
	toks []Token
}

// parseMacros keeps object-like macros whose bodies are constant expressions
// over literals, enumerators and other such macros
func parseMacros(dirs []Directive, enumVals map[string]bool) ([]*models.CConst, []Skipped) {
	var cands []*macroCandidate
	byName := map[string]*macroCandidate{}
	var skipped []Skipped

	for _, d := range dirs {
		switch d.Name {
		case "undef":
			name := strings.TrimSpace(d.Body)
			if c, ok := byName[name]; ok {
				delete(byName, name)
				c.c = nil
			}
		case "define":
			m := defineHeadPattern.FindStringSubmatch(d.Body)
			if m == nil {
				continue
			}
			if m[2] != "" {
				skipped = append(skipped, Skipped{Name: m[1], Reason: "function-like macro", Origin: d.Origin})
				continue
			}
			body := strings.TrimSpace(d.Body[len(m[1]):])
			if body == "" {
				continue
			}
			c := &macroCandidate{
				c:    &models.CConst{Name: m[1], Body: body, Origin: d.Origin},
				toks: lexLine(body, d.Origin),
			}
			if old, ok := byName[m[1]]; ok {
				old.c = nil
			}
			byName[m[1]] = c
			cands = append(cands, c)
		}
	}

	// drop candidates until every identifier refers to a surviving constant
	for changed := true; changed; {
		changed = false
		for _, cand := range cands {
			if cand.c == nil {
				continue
			}
			if reason := constReason(cand.c.Name, cand.toks, byName, enumVals); reason != "" {
				skipped = append(skipped, Skipped{Name: cand.c.Name, Reason: reason, Origin: cand.c.Origin})
				delete(byName, cand.c.Name)
				cand.c = nil
				changed = true
			}
		}
	}

	var out []*models.CConst
	for _, cand := range cands {
		if cand.c != nil {
			out = append(out, cand.c)
		}
	}
	return out, skipped
}

// constReason returns why a macro body is not a constant expression, or ""
func constReason(name string, toks []Token, live map[string]*macroCandidate, enumVals map[string]bool) string {
	lits := 0
	for _, t := range toks {
		switch t.Kind {
		case TokNumber, TokChar:
		case TokString:
			lits++
		case TokPunct:
			if !constPuncts[t.Text] {
				return fmt.Sprintf("operator %q in macro body", t.Text)
			}
		case TokIdent:
			if t.Text == name {
				return "self-referential macro"
			}
			if _, ok := live[t.Text]; !ok && !enumVals[t.Text] {
				return fmt.Sprintf("macro body references %s", t.Text)
			}
		}
	}
	if lits > 1 {
		return "concatenated string literals"
	}
	return ""
}
