package hack

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/mvp-joe/hackdecl/internal/decl"
)

// tokenKind classifies a lexed token.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokName
	tokVariable
	tokNumber
	tokString
	tokPunct
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of file"
	case tokName:
		return "name"
	case tokVariable:
		return "variable"
	case tokNumber:
		return "number"
	case tokString:
		return "string"
	case tokPunct:
		return "punctuation"
	}
	return "unknown"
}

// token is a lexeme with its byte range in the source.
type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
}

// multi-character punctuation, longest first.
var puncts = []string{
	"...", "===", "!==", "<=>", "?->", "??=",
	"::", "=>", "->", "==", "!=", "<=", ">=", "&&", "||", "??", "++", "--",
	"+=", "-=", "*=", "/=", ".=", "|>",
}

// lineIndex maps byte offsets to 1-based line/column positions.
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	starts := lineIndex{0}
	for i, c := range src {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (li lineIndex) pos(off int) decl.Pos {
	line := sort.SearchInts(li, off+1) - 1
	if line < 0 {
		line = 0
	}
	return decl.Pos{Line: line + 1, Column: off - li[line] + 1}
}

type lexer struct {
	src   []byte
	off   int
	env   decl.ParserEnv
	lines lineIndex
	diags []decl.Diagnostic
}

func newLexer(src []byte, env decl.ParserEnv, lines lineIndex) *lexer {
	return &lexer{src: src, env: env, lines: lines}
}

func (l *lexer) errorf(off int, format string, args ...any) {
	l.diags = append(l.diags, decl.Diagnostic{Pos: l.lines.pos(off), Message: fmt.Sprintf(format, args...)})
}

// tokenize lexes the whole file. The result always ends with a tokEOF token.
func (l *lexer) tokenize() []token {
	l.skipHeader()

	var toks []token
	for {
		t := l.next()
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks
		}
	}
}

// skipHeader moves past an optional shebang line and the open tag.
func (l *lexer) skipHeader() {
	if bytes.HasPrefix(l.src, []byte("#!")) {
		if nl := bytes.IndexByte(l.src, '\n'); nl >= 0 {
			l.off = nl + 1
		} else {
			l.off = len(l.src)
		}
	}

	rest := l.src[l.off:]
	for _, tag := range []string{"<?hh", "<?php"} {
		if bytes.HasPrefix(rest, []byte(tag)) && (len(rest) == len(tag) || !isIdentChar(rest[len(tag)])) {
			l.off += len(tag)
			return
		}
	}
}

func (l *lexer) peekByte(n int) byte {
	if l.off+n < len(l.src) {
		return l.src[l.off+n]
	}
	return 0
}

func (l *lexer) next() token {
	for l.off < len(l.src) {
		c := l.src[l.off]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			l.off++
		case c == '/' && l.peekByte(1) == '/':
			l.skipLine()
		case c == '#':
			if l.env.DisallowHashComments {
				l.errorf(l.off, "hash comments are not allowed")
			}
			l.skipLine()
		case c == '/' && l.peekByte(1) == '*':
			l.skipBlockComment()
		default:
			return l.lexToken()
		}
	}
	return token{kind: tokEOF, start: len(l.src), end: len(l.src)}
}

func (l *lexer) skipLine() {
	if nl := bytes.IndexByte(l.src[l.off:], '\n'); nl >= 0 {
		l.off += nl
		return
	}
	l.off = len(l.src)
}

func (l *lexer) skipBlockComment() {
	start := l.off
	if end := bytes.Index(l.src[l.off+2:], []byte("*/")); end >= 0 {
		l.off += 2 + end + 2
		return
	}
	l.errorf(start, "unterminated block comment")
	l.off = len(l.src)
}

func (l *lexer) lexToken() token {
	start := l.off
	c := l.src[l.off]

	switch {
	case c == '\'' || c == '"':
		l.lexQuoted(c)
		return l.token(tokString, start)
	case c == '<' && bytes.HasPrefix(l.src[l.off:], []byte("<<<")) && l.lexHeredoc():
		return l.token(tokString, start)
	case c == '$' && isIdentStart(l.peekByte(1)):
		l.off++
		l.lexIdent()
		return l.token(tokVariable, start)
	case isIdentStart(c) || (c == '\\' && isIdentStart(l.peekByte(1))):
		l.lexQualifiedName()
		return l.token(tokName, start)
	case isDigit(c):
		for l.off < len(l.src) && (isIdentChar(l.src[l.off]) || l.src[l.off] == '.') {
			l.off++
		}
		return l.token(tokNumber, start)
	}

	for _, p := range puncts {
		if bytes.HasPrefix(l.src[l.off:], []byte(p)) {
			l.off += len(p)
			return l.token(tokPunct, start)
		}
	}
	l.off++
	return l.token(tokPunct, start)
}

func (l *lexer) token(kind tokenKind, start int) token {
	return token{kind: kind, text: string(l.src[start:l.off]), start: start, end: l.off}
}

func (l *lexer) lexIdent() {
	for l.off < len(l.src) && isIdentChar(l.src[l.off]) {
		l.off++
	}
}

// lexQualifiedName lexes Foo, \Foo or Foo\Bar\Baz as a single token.
func (l *lexer) lexQualifiedName() {
	if l.src[l.off] == '\\' {
		l.off++
	}
	l.lexIdent()
	for l.off < len(l.src) && l.src[l.off] == '\\' && isIdentStart(l.peekByte(1)) {
		l.off++
		l.lexIdent()
	}
}

func (l *lexer) lexQuoted(quote byte) {
	start := l.off
	l.off++
	for l.off < len(l.src) {
		switch l.src[l.off] {
		case '\\':
			l.off += 2
			continue
		case quote:
			l.off++
			return
		}
		l.off++
	}
	l.off = len(l.src)
	l.errorf(start, "unterminated string literal")
}

// lexHeredoc consumes <<<ID ... ID (or the nowdoc form <<<'ID'). It reports
// false without consuming anything when no label follows the arrows.
func (l *lexer) lexHeredoc() bool {
	i := l.off + 3
	for i < len(l.src) && (l.src[i] == ' ' || l.src[i] == '\t') {
		i++
	}
	quoted := i < len(l.src) && (l.src[i] == '\'' || l.src[i] == '"')
	if quoted {
		i++
	}
	labelStart := i
	if i >= len(l.src) || !isIdentStart(l.src[i]) {
		return false
	}
	for i < len(l.src) && isIdentChar(l.src[i]) {
		i++
	}
	label := l.src[labelStart:i]

	nl := bytes.IndexByte(l.src[i:], '\n')
	if nl < 0 {
		return false
	}
	start := l.off
	i += nl + 1

	for i < len(l.src) {
		lineStart := i
		for i < len(l.src) && (l.src[i] == ' ' || l.src[i] == '\t') {
			i++
		}
		if bytes.HasPrefix(l.src[i:], label) {
			after := i + len(label)
			if after >= len(l.src) || !isIdentChar(l.src[after]) {
				l.off = after
				return true
			}
		}
		next := bytes.IndexByte(l.src[lineStart:], '\n')
		if next < 0 {
			break
		}
		i = lineStart + next + 1
	}

	l.errorf(start, "unterminated heredoc %q", label)
	l.off = len(l.src)
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
