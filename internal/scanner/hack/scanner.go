// Package hack implements decl.Scanner for Hack source with a hand-written
// lexer and a single pass over top-level statements.
//
// Only the shape of declarations is recognized: bodies are skipped by brace
// matching, and expressions are never parsed. Problems the scanner can
// recover from are reported as diagnostics; the only failure is input that
// is not valid UTF-8.
package hack

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mvp-joe/hackdecl/internal/decl"
)

// Scanner is the Hack declaration scanner. The zero value is ready to use.
type Scanner struct{}

// New returns a Hack scanner.
func New() *Scanner {
	return &Scanner{}
}

// Scan implements decl.Scanner.
func (s *Scanner) Scan(src decl.SourceText, env decl.ParserEnv) (*decl.ScanOutput, error) {
	if off, ok := firstInvalidUTF8(src.Text); !ok {
		return nil, fmt.Errorf("invalid UTF-8 at byte offset %d", off)
	}

	lines := newLineIndex(src.Text)
	lx := newLexer(src.Text, env, lines)
	toks := lx.tokenize()

	p := &parser{
		src:   src.Text,
		toks:  toks,
		env:   env,
		lines: lines,
		out: &decl.ScanOutput{
			Root: &decl.Root{
				Kind: "script",
				Span: decl.Span{Start: decl.Pos{Line: 1, Column: 1}, End: lines.pos(len(src.Text))},
			},
		},
	}
	p.parseScript()

	p.out.Diagnostics = append(lx.diags, p.diags...)
	return p.out, nil
}

func firstInvalidUTF8(b []byte) (int, bool) {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i, false
		}
		i += size
	}
	return 0, true
}

// parser walks the token stream and records top-level declarations.
type parser struct {
	src   []byte
	toks  []token
	i     int
	env   decl.ParserEnv
	lines lineIndex

	ns    string   // current namespace, without leading backslash
	attrs []string // attributes awaiting the next declaration

	out   *decl.ScanOutput
	diags []decl.Diagnostic
}

func (p *parser) cur() token {
	return p.toks[p.i]
}

func (p *parser) peek(n int) token {
	if p.i+n < len(p.toks) {
		return p.toks[p.i+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() {
	if p.i < len(p.toks)-1 {
		p.i++
	}
}

func (p *parser) atEOF() bool {
	return p.cur().kind == tokEOF
}

func (p *parser) isPunct(text string) bool {
	t := p.cur()
	return t.kind == tokPunct && t.text == text
}

func (p *parser) prev() token {
	if p.i == 0 {
		return p.toks[0]
	}
	return p.toks[p.i-1]
}

func (p *parser) errorf(t token, format string, args ...any) {
	p.diags = append(p.diags, decl.Diagnostic{Pos: p.lines.pos(t.start), Message: fmt.Sprintf(format, args...)})
}

func (p *parser) span(first, last token) decl.Span {
	return decl.Span{Start: p.lines.pos(first.start), End: p.lines.pos(last.end)}
}

// text returns the source between two tokens with whitespace collapsed.
func (p *parser) text(first, last token) string {
	if last.end <= first.start {
		return ""
	}
	return strings.Join(strings.Fields(string(p.src[first.start:last.end])), " ")
}

func (p *parser) textOf(toks []token) string {
	if len(toks) == 0 {
		return ""
	}
	return p.text(toks[0], toks[len(toks)-1])
}

func (p *parser) qualify(name string) string {
	if strings.HasPrefix(name, "\\") {
		return name
	}
	if p.ns == "" {
		return "\\" + name
	}
	return "\\" + p.ns + "\\" + name
}

func (p *parser) takeAttrs() []string {
	attrs := p.attrs
	p.attrs = nil
	return attrs
}

func isName(t token, word string) bool {
	return t.kind == tokName && strings.EqualFold(t.text, word)
}

func isPunct(t token, text string) bool {
	return t.kind == tokPunct && t.text == text
}

// parseScript is the top-level loop. Declarations are only recognized at the
// start of a statement at brace depth zero, or directly inside a braced
// namespace body.
func (p *parser) parseScript() {
	depth := 0
	nsDepth := -1
	stmtStart := true

	for !p.atEOF() {
		t := p.cur()
		top := depth == 0 || depth == nsDepth

		if top && stmtStart {
			if p.atAttribute() {
				p.parseAttributes()
				continue
			}
			if t.kind == tokName {
				handled, opensBlock := p.parseTopLevel()
				if opensBlock {
					depth++
					nsDepth = depth
				}
				if handled {
					continue
				}
			}
		}

		p.attrs = nil
		if t.kind == tokPunct {
			switch t.text {
			case "{":
				depth++
			case "}":
				if depth == 0 {
					p.errorf(t, "unmatched }")
					break
				}
				if depth == nsDepth {
					p.ns = ""
					nsDepth = -1
				}
				depth--
			}
		}
		stmtStart = isPunct(t, ";") || isPunct(t, "{") || isPunct(t, "}")
		p.next()
	}

	if depth > 0 {
		p.errorf(p.cur(), "unexpected end of file: %d unclosed braces", depth)
	}
}

// parseTopLevel dispatches on a statement's leading keyword. handled reports
// whether tokens were consumed; opensBlock reports a `namespace X {` header.
func (p *parser) parseTopLevel() (handled, opensBlock bool) {
	t := p.cur()
	next := p.peek(1)

	switch strings.ToLower(t.text) {
	case "namespace":
		return true, p.parseNamespace()
	case "use":
		p.skipStatement()
		p.attrs = nil
		return true, false
	case "abstract", "final", "xhp":
		p.parseClassLike()
		return true, false
	case "class", "interface", "trait":
		if next.kind != tokName {
			return false, false
		}
		p.parseClassLike()
		return true, false
	case "enum":
		if next.kind != tokName {
			return false, false
		}
		p.parseClassLike()
		return true, false
	case "async":
		if !isName(next, "function") {
			return false, false
		}
		return p.parseFunction(), false
	case "function":
		return p.parseFunction(), false
	case "type", "newtype":
		if next.kind != tokName {
			return false, false
		}
		p.parseTypedef()
		return true, false
	case "const":
		p.parseConst()
		return true, false
	}
	return false, false
}

// atAttribute reports whether the cursor is on `<<` (two adjacent `<`).
func (p *parser) atAttribute() bool {
	t, n := p.cur(), p.peek(1)
	return isPunct(t, "<") && isPunct(n, "<") && n.start == t.end
}

// atAttributeEnd reports whether the cursor is on `>>`.
func (p *parser) atAttributeEnd() bool {
	t, n := p.cur(), p.peek(1)
	return isPunct(t, ">") && isPunct(n, ">") && n.start == t.end
}

// parseAttributes consumes `<<A, B(args)>>` and queues the attribute names.
func (p *parser) parseAttributes() {
	open := p.cur()
	p.next()
	p.next()

	depth := 0
	expectName := true
	for !p.atEOF() {
		t := p.cur()
		if depth == 0 && p.atAttributeEnd() {
			p.next()
			p.next()
			return
		}
		switch {
		case isPunct(t, "("), isPunct(t, "["), isPunct(t, "{"):
			depth++
		case isPunct(t, ")"), isPunct(t, "]"), isPunct(t, "}"):
			if depth > 0 {
				depth--
			}
		case isPunct(t, ",") && depth == 0:
			expectName = true
		case t.kind == tokName && depth == 0 && expectName:
			p.attrs = append(p.attrs, t.text)
			expectName = false
		}
		p.next()
	}
	p.errorf(open, "unterminated attribute list")
}

// parseNamespace handles `namespace A\B;` and `namespace A\B {`. It reports
// true when a braced body was opened.
func (p *parser) parseNamespace() bool {
	kw := p.cur()
	p.next()
	p.attrs = nil

	name := ""
	if p.cur().kind == tokName {
		name = strings.TrimPrefix(p.cur().text, "\\")
		p.next()
	}
	p.ns = name

	switch {
	case p.isPunct("{"):
		p.next()
		return true
	case p.isPunct(";"):
		p.next()
	default:
		p.errorf(kw, "expected ; or { after namespace declaration")
	}
	return false
}

// skipStatement consumes tokens through the next `;` outside braces.
func (p *parser) skipStatement() {
	depth := 0
	for !p.atEOF() {
		t := p.cur()
		p.next()
		switch {
		case isPunct(t, "{"):
			depth++
		case isPunct(t, "}"):
			if depth > 0 {
				depth--
			}
		case isPunct(t, ";") && depth == 0:
			return
		}
	}
}

// collect consumes tokens until stop matches at bracket depth zero or the
// file ends. The stop token is not consumed.
func (p *parser) collect(stop func(token) bool) []token {
	var toks []token
	depth := 0
	for !p.atEOF() {
		t := p.cur()
		if depth == 0 && stop(t) {
			return toks
		}
		switch {
		case isPunct(t, "("), isPunct(t, "["), isPunct(t, "{"):
			depth++
		case isPunct(t, ")"), isPunct(t, "]"), isPunct(t, "}"):
			if depth == 0 {
				return toks
			}
			depth--
		}
		toks = append(toks, t)
		p.next()
	}
	return toks
}

// skipBlock consumes a balanced `{ ... }` starting at the cursor. It reports
// false if the file ends first.
func (p *parser) skipBlock() bool {
	depth := 0
	for !p.atEOF() {
		t := p.cur()
		p.next()
		switch {
		case isPunct(t, "{"):
			depth++
		case isPunct(t, "}"):
			depth--
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

// parseTypeParams consumes `<T, +Tv as Foo, reify Tr>` and returns the
// parameter names.
func (p *parser) parseTypeParams() []string {
	open := p.cur()
	p.next()

	var params []string
	depth := 1
	expectName := true
	for !p.atEOF() {
		t := p.cur()
		switch {
		case isPunct(t, "<"):
			depth++
		case isPunct(t, ">"):
			depth--
			if depth == 0 {
				p.next()
				return params
			}
		case isPunct(t, ",") && depth == 1:
			expectName = true
		case isPunct(t, "{"), isPunct(t, ";"):
			p.errorf(open, "unterminated type parameter list")
			return params
		case t.kind == tokName && depth == 1 && expectName && !isName(t, "reify"):
			params = append(params, t.text)
			expectName = false
		}
		p.next()
	}
	p.errorf(open, "unterminated type parameter list")
	return params
}

// parseNameList consumes `A, B<T>, C` and returns the names as written.
func (p *parser) parseNameList() []string {
	var names []string
	for p.cur().kind == tokName {
		names = append(names, p.cur().text)
		p.next()
		if p.isPunct("<") {
			p.parseTypeParams()
		}
		if !p.isPunct(",") {
			break
		}
		p.next()
	}
	return names
}

// splitTopLevel splits tokens at commas outside brackets. Angle brackets
// count as brackets until a `=` is seen in the current segment, so type
// arguments stay together while comparisons in default values do not.
func splitTopLevel(toks []token) [][]token {
	var segs [][]token
	var seg []token
	depth, angle := 0, 0
	seenEq := false

	for _, t := range toks {
		if t.kind == tokPunct {
			switch t.text {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				if depth > 0 {
					depth--
				}
			case "<":
				if !seenEq {
					angle++
				}
			case ">":
				if !seenEq && angle > 0 {
					angle--
				}
			case "=":
				if depth == 0 && angle == 0 {
					seenEq = true
				}
			case ",":
				if depth == 0 && (angle == 0 || seenEq) {
					segs = append(segs, seg)
					seg = nil
					angle = 0
					seenEq = false
					continue
				}
			}
		}
		seg = append(seg, t)
	}
	if len(seg) > 0 {
		segs = append(segs, seg)
	}
	return segs
}

// stripAttributes drops a leading `<<...>>` from a token run.
func stripAttributes(toks []token) []token {
	if len(toks) < 2 || !isPunct(toks[0], "<") || !isPunct(toks[1], "<") || toks[1].start != toks[0].end {
		return toks
	}
	for i := 2; i+1 < len(toks); i++ {
		if isPunct(toks[i], ">") && isPunct(toks[i+1], ">") && toks[i+1].start == toks[i].end {
			return toks[i+2:]
		}
	}
	return toks
}

// indexOfPunct returns the index of the first punct token equal to text at
// bracket depth zero, or -1.
func indexOfPunct(toks []token, text string) int {
	depth := 0
	for i, t := range toks {
		if t.kind != tokPunct {
			continue
		}
		switch t.text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 && t.text == text {
				return i
			}
		}
	}
	return -1
}

func lastName(toks []token) int {
	for i := len(toks) - 1; i >= 0; i-- {
		if toks[i].kind == tokName {
			return i
		}
	}
	return -1
}
