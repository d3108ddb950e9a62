// -----------------------------------------------------------------------
// C tokenizer - splits preprocessed header text into located tokens
// -----------------------------------------------------------------------

package cdecl

import (
	"regexp"
	"strconv"
	"strings"
)

// TokenKind classifies a token
type TokenKind int

const (
	TokIdent TokenKind = iota
	TokNumber
	TokString
	TokChar
	TokPunct
)

// Token is one lexeme together with the file it came from
type Token struct {
	Kind   TokenKind
	Text   string
	Origin string
}

// Directive is a preprocessor line that survived preprocessing
type Directive struct {
	Name   string // "define", "undef", "pragma", ...
	Body   string
	Origin string
}

// lineMarkerPattern matches `# 12 "file" 1 3` and `#line 12 "file"`
var lineMarkerPattern = regexp.MustCompile(`^#\s*(?:line\s+)?(\d+)\s+"((?:\\.|[^"\\])*)"`)

var directivePattern = regexp.MustCompile(`^#\s*([A-Za-z_]+)\s*(.*)$`)

// threeCharPuncts and twoCharPuncts are matched before single characters
var (
	threeCharPuncts = []string{"...", "<<=", ">>="}
	twoCharPuncts   = []string{"->", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||", "++", "--", "##", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^="}
)

// Lex splits text into tokens and directives. Line markers update the
// origin attached to everything that follows them. The first marker names
// the main file; it is also used when there are no markers at all.
func Lex(text, mainFile string) ([]Token, []Directive, []string) {
	text = stripComments(joinLineContinuations(text))

	origin := mainFile
	files := []string{}
	seen := map[string]bool{}
	note := func(f string) {
		if !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}
	note(mainFile)

	var toks []Token
	var dirs []Directive
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			if m := lineMarkerPattern.FindStringSubmatch(trimmed); m != nil {
				if f, err := strconv.Unquote(`"` + m[2] + `"`); err == nil {
					origin = f
				} else {
					origin = m[2]
				}
				note(origin)
				continue
			}
			if m := directivePattern.FindStringSubmatch(trimmed); m != nil {
				dirs = append(dirs, Directive{Name: m[1], Body: strings.TrimSpace(m[2]), Origin: origin})
			}
			continue
		}
		toks = append(toks, lexLine(line, origin)...)
	}
	return toks, dirs, files
}

func lexLine(line, origin string) []Token {
	var toks []Token
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(line) && isIdentChar(line[j]) {
				j++
			}
			word := line[i:j]
			// wide and unicode literal prefixes
			if j < len(line) && (line[j] == '"' || line[j] == '\'') && (word == "L" || word == "u" || word == "U" || word == "u8") {
				end := scanQuoted(line, j)
				kind := TokString
				if line[j] == '\'' {
					kind = TokChar
				}
				toks = append(toks, Token{Kind: kind, Text: line[i:end], Origin: origin})
				i = end
				continue
			}
			toks = append(toks, Token{Kind: TokIdent, Text: word, Origin: origin})
			i = j
		case isDigit(c) || (c == '.' && i+1 < len(line) && isDigit(line[i+1])):
			j := i + 1
			for j < len(line) {
				d := line[j]
				if isIdentChar(d) || d == '.' {
					j++
					continue
				}
				// exponent signs: 1e-5, 0x1p+3
				if (d == '+' || d == '-') && (line[j-1] == 'e' || line[j-1] == 'E' || line[j-1] == 'p' || line[j-1] == 'P') {
					j++
					continue
				}
				break
			}
			toks = append(toks, Token{Kind: TokNumber, Text: line[i:j], Origin: origin})
			i = j
		case c == '"' || c == '\'':
			end := scanQuoted(line, i)
			kind := TokString
			if c == '\'' {
				kind = TokChar
			}
			toks = append(toks, Token{Kind: kind, Text: line[i:end], Origin: origin})
			i = end
		default:
			n := punctLen(line[i:])
			toks = append(toks, Token{Kind: TokPunct, Text: line[i : i+n], Origin: origin})
			i += n
		}
	}
	return toks
}

func punctLen(s string) int {
	for _, p := range threeCharPuncts {
		if strings.HasPrefix(s, p) {
			return 3
		}
	}
	for _, p := range twoCharPuncts {
		if strings.HasPrefix(s, p) {
			return 2
		}
	}
	return 1
}

func scanQuoted(line string, start int) int {
	quote := line[start]
	j := start + 1
	for j < len(line) {
		if line[j] == '\\' {
			j += 2
			continue
		}
		if line[j] == quote {
			return j + 1
		}
		j++
	}
	return len(line)
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// joinLineContinuations removes backslash-newline pairs
func joinLineContinuations(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\\\n", "")
}

// stripComments blanks out // and /* */ comments outside literals. Block
// comments keep their newlines so line-oriented directives stay intact.
func stripComments(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(text) && text[j] != c && text[j] != '\n' {
				if text[j] == '\\' {
					j++
				}
				j++
			}
			if j < len(text) && text[j] == c {
				j++
			}
			if j > len(text) {
				j = len(text)
			}
			b.WriteString(text[i:j])
			i = j
		case c == '/' && i+1 < len(text) && text[i+1] == '/':
			for i < len(text) && text[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			i += 2
			b.WriteByte(' ')
			for i < len(text) && !(text[i] == '*' && i+1 < len(text) && text[i+1] == '/') {
				if text[i] == '\n' {
					b.WriteByte('\n')
				}
				i++
			}
			i += 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// JoinTokens renders tokens back to C text with single spaces only where
// two words would otherwise merge
func JoinTokens(toks []Token) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 {
			prev := toks[i-1]
			if wordLike(prev) && wordLike(t) {
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.Text)
	}
	return b.String()
}

func wordLike(t Token) bool {
	return t.Kind == TokIdent || t.Kind == TokNumber
}
