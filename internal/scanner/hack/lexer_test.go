package hack

import (
	"testing"

	"github.com/mvp-joe/hackdecl/internal/decl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lex(t *testing.T, src string, env decl.ParserEnv) ([]token, []decl.Diagnostic) {
	t.Helper()
	b := []byte(src)
	l := newLexer(b, env, newLineIndex(b))
	toks := l.tokenize()
	require.NotEmpty(t, toks)
	require.Equal(t, tokEOF, toks[len(toks)-1].kind)
	return toks[:len(toks)-1], l.diags
}

func texts(toks []token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.text
	}
	return out
}

func TestLexer_SkipsHeader(t *testing.T) {
	t.Parallel()

	toks, diags := lex(t, "#!/usr/bin/env hhvm\n<?hh // strict\nfoo", decl.ParserEnv{})
	assert.Empty(t, diags)
	assert.Equal(t, []string{"foo"}, texts(toks))
}

func TestLexer_TokenKinds(t *testing.T) {
	t.Parallel()

	toks, diags := lex(t, `<?hh
function f(int $x = 42, string ...$rest): \Foo\Bar { return "s\"q"; }`, decl.ParserEnv{})
	require.Empty(t, diags)

	want := []struct {
		kind tokenKind
		text string
	}{
		{tokName, "function"}, {tokName, "f"}, {tokPunct, "("},
		{tokName, "int"}, {tokVariable, "$x"}, {tokPunct, "="}, {tokNumber, "42"}, {tokPunct, ","},
		{tokName, "string"}, {tokPunct, "..."}, {tokVariable, "$rest"}, {tokPunct, ")"},
		{tokPunct, ":"}, {tokName, `\Foo\Bar`}, {tokPunct, "{"},
		{tokName, "return"}, {tokString, `"s\"q"`}, {tokPunct, ";"}, {tokPunct, "}"},
	}
	require.Len(t, toks, len(want))
	for i, w := range want {
		assert.Equal(t, w.kind, toks[i].kind, "token %d (%s)", i, w.text)
		assert.Equal(t, w.text, toks[i].text, "token %d", i)
	}
}

func TestLexer_Comments(t *testing.T) {
	t.Parallel()

	src := "<?hh\n// line\na /* block\n comment */ b # hash\nc"
	toks, diags := lex(t, src, decl.ParserEnv{})
	assert.Empty(t, diags)
	assert.Equal(t, []string{"a", "b", "c"}, texts(toks))

	_, diags = lex(t, src, decl.ParserEnv{DisallowHashComments: true})
	require.Len(t, diags, 1)
	assert.Equal(t, "hash comments are not allowed", diags[0].Message)
	assert.Equal(t, decl.Pos{Line: 4, Column: 15}, diags[0].Pos)
}

func TestLexer_AngleBracketsStaySeparate(t *testing.T) {
	t.Parallel()

	toks, _ := lex(t, "<<A>> vec<vec<int>>", decl.ParserEnv{})
	assert.Equal(t, []string{"<", "<", "A", ">", ">", "vec", "<", "vec", "<", "int", ">", ">"}, texts(toks))
}

func TestLexer_Heredoc(t *testing.T) {
	t.Parallel()

	src := "<?hh\n$x = <<<EOT\nfunction hidden() {}\nEOT;\nafter"
	toks, diags := lex(t, src, decl.ParserEnv{})
	require.Empty(t, diags)
	require.Len(t, toks, 5)
	assert.Equal(t, tokString, toks[2].kind)
	assert.Equal(t, "after", toks[4].text)

	nowdoc := "<?hh\n$x = <<<'EOT'\n{\nEOT;\n"
	toks, diags = lex(t, nowdoc, decl.ParserEnv{})
	require.Empty(t, diags)
	assert.Equal(t, []string{"$x", "=", "<<<'EOT'\n{\nEOT", ";"}, texts(toks))
}

func TestLexer_UnterminatedConstructs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"string", `<?hh "abc`, "unterminated string literal"},
		{"block comment", "<?hh /* abc", "unterminated block comment"},
		{"heredoc", "<?hh <<<EOT\nabc\n", `unterminated heredoc "EOT"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := lex(t, tt.src, decl.ParserEnv{})
			require.Len(t, diags, 1)
			assert.Equal(t, tt.msg, diags[0].Message)
		})
	}
}

func TestLineIndex_Pos(t *testing.T) {
	t.Parallel()

	li := newLineIndex([]byte("ab\ncd\n\nx"))
	assert.Equal(t, decl.Pos{Line: 1, Column: 1}, li.pos(0))
	assert.Equal(t, decl.Pos{Line: 1, Column: 3}, li.pos(2))
	assert.Equal(t, decl.Pos{Line: 2, Column: 1}, li.pos(3))
	assert.Equal(t, decl.Pos{Line: 3, Column: 1}, li.pos(6))
	assert.Equal(t, decl.Pos{Line: 4, Column: 2}, li.pos(8))
}
