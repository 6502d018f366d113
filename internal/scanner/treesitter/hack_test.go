package treesitter

import (
	"testing"

	"github.com/mvp-joe/hackdecl/internal/decl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for HackScanner:
// - Extracts classes, interfaces and traits with their members
// - Extracts functions with parameters and return types
// - Extracts type aliases, newtypes and constants
// - Qualifies names with the file's namespace
// - Reports syntax errors as diagnostics rather than failures
// - Rejects invalid UTF-8
// - Keeps positions stable past a shebang line

const userHack = `<?hh // strict
namespace App\Models;

interface HasId {
  public function id(): int;
}

trait Named {
  public function name(): string { return ''; }
}

final class User implements HasId {
  use Named;

  const int VERSION = 2;

  public function id(): int {
    return 1;
  }
}

function make_user(string $name, int $age = 0): User {
  return new User();
}

type UserId = int;
newtype Token = string;
const string DEFAULT_NAME = 'anon';
`

func extractHack(t *testing.T, src string) *decl.Decls {
	t.Helper()
	d, err := decl.Extract(NewHack(), "test.hack", []byte(src))
	require.NoError(t, err)
	require.NotNil(t, d)
	return d
}

func TestHackScanner_Classes(t *testing.T) {
	t.Parallel()

	d := extractHack(t, userHack)
	assert.Equal(t, []string{`\App\Models\HasId`, `\App\Models\Named`, `\App\Models\User`}, d.Classes.Keys())

	user, ok := d.Classes.Get(`\App\Models\User`)
	require.True(t, ok)
	assert.Equal(t, decl.ClassKindClass, user.Kind)
	assert.Contains(t, user.Methods, "id")
	assert.Equal(t, 12, user.Span.Start.Line)

	iface, ok := d.Classes.Get(`\App\Models\HasId`)
	require.True(t, ok)
	assert.Equal(t, decl.ClassKindInterface, iface.Kind)

	named, ok := d.Classes.Get(`\App\Models\Named`)
	require.True(t, ok)
	assert.Equal(t, decl.ClassKindTrait, named.Kind)
}

func TestHackScanner_Functions(t *testing.T) {
	t.Parallel()

	d := extractHack(t, userHack)
	require.Equal(t, []string{`\App\Models\make_user`}, d.Funs.Keys())

	fn, _ := d.Funs.Get(`\App\Models\make_user`)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "$name", fn.Params[0].Name)
	assert.Equal(t, "$age", fn.Params[1].Name)
	assert.Equal(t, "User", fn.ReturnType)
	assert.Equal(t, 22, fn.Span.Start.Line)
}

func TestHackScanner_TypedefsAndConsts(t *testing.T) {
	t.Parallel()

	d := extractHack(t, userHack)
	assert.Equal(t, []string{`\App\Models\Token`, `\App\Models\UserId`}, d.Typedefs.Keys())

	token, _ := d.Typedefs.Get(`\App\Models\Token`)
	assert.True(t, token.Opaque)
	id, _ := d.Typedefs.Get(`\App\Models\UserId`)
	assert.False(t, id.Opaque)
	assert.Equal(t, 26, id.Span.Start.Line)

	require.Equal(t, []string{`\App\Models\DEFAULT_NAME`}, d.Consts.Keys())
	c, _ := d.Consts.Get(`\App\Models\DEFAULT_NAME`)
	assert.Equal(t, 28, c.Span.Start.Line)
}

func TestHackScanner_GlobalNamespace(t *testing.T) {
	t.Parallel()

	d := extractHack(t, "<?hh\nfunction a(): void {}\nfunction a(): int { return 1; }\n")
	require.Equal(t, []string{`\a`}, d.Funs.Keys())
	a, _ := d.Funs.Get(`\a`)
	assert.Equal(t, 3, a.Span.Start.Line)
}

func TestHackScanner_SyntaxErrorsAreDiagnostics(t *testing.T) {
	t.Parallel()

	src := "<?hh\nfunction ok(): void {}\nclass {\n"
	out, err := NewHack().Scan(decl.SourceText{Path: "broken.hack", Text: []byte(src)}, decl.ParserEnv{})
	require.NoError(t, err)
	require.NotNil(t, out.Root)
	assert.NotEmpty(t, out.Diagnostics)
}

func TestHackScanner_InvalidUTF8(t *testing.T) {
	t.Parallel()

	d, err := decl.Extract(NewHack(), "bad.hack", []byte("<?hh\n\xff\xfe"))
	assert.Nil(t, d)
	assert.ErrorIs(t, err, decl.ErrScanFailure)
}

func TestHackScanner_Shebang(t *testing.T) {
	t.Parallel()

	d := extractHack(t, "#!/usr/bin/env hhvm\n<?hh\nfunction main(): void {}\n")
	require.Equal(t, []string{`\main`}, d.Funs.Keys())
	m, _ := d.Funs.Get(`\main`)
	assert.Equal(t, decl.Pos{Line: 3, Column: 1}, m.Span.Start)
}

func TestBlankShebang(t *testing.T) {
	t.Parallel()

	in := []byte("#!/bin/hhvm\n<?hh\n")
	out := blankShebang(in)
	assert.Equal(t, "           \n<?hh\n", string(out))
	assert.Equal(t, "#!/bin/hhvm\n<?hh\n", string(in))

	plain := []byte("<?hh\n")
	assert.Equal(t, plain, blankShebang(plain))
}
