package treesitter

import (
	"testing"

	"github.com/mvp-joe/hackdecl/internal/decl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Scanner:
// - Extracts classes with extends/implements, methods and constants
// - Extracts interfaces, traits and top-level functions
// - Qualifies names with the file's namespace
// - Skips functions nested in other functions
// - Reports syntax errors as diagnostics rather than failures
// - Rejects invalid UTF-8
// - Accepts a <?hh open tag

const servicePHP = `<?php
namespace App\Services;

interface Repository {
    public function find(int $id);
}

trait Logs {
    public function log(string $msg): void {}
}

class UserService extends BaseService implements Repository {
    use Logs;

    const VERSION = '1.0';

    public function find(int $id) {
        return null;
    }

    private function helper(): string {
        return "x";
    }
}

function format_name(string $first, string $last = ""): string {
    function nested_helper() {}
    return $first . $last;
}

const MAX_USERS = 100;
`

func extract(t *testing.T, src string) *decl.Decls {
	t.Helper()
	d, err := decl.Extract(New(), "test.php", []byte(src))
	require.NoError(t, err)
	require.NotNil(t, d)
	return d
}

func TestScanner_Classes(t *testing.T) {
	t.Parallel()

	d := extract(t, servicePHP)
	assert.Equal(t, []string{`\App\Services\Logs`, `\App\Services\Repository`, `\App\Services\UserService`}, d.Classes.Keys())

	svc, ok := d.Classes.Get(`\App\Services\UserService`)
	require.True(t, ok)
	assert.Equal(t, decl.ClassKindClass, svc.Kind)
	assert.Equal(t, []string{"BaseService"}, svc.Extends)
	assert.Equal(t, []string{"Repository"}, svc.Implements)
	assert.Equal(t, []string{"Logs"}, svc.Uses)
	assert.Equal(t, []string{"find", "helper"}, svc.Methods)
	assert.Equal(t, []string{"VERSION"}, svc.Constants)
	assert.Equal(t, 12, svc.Span.Start.Line)
	assert.Equal(t, 24, svc.Span.End.Line)

	repo, ok := d.Classes.Get(`\App\Services\Repository`)
	require.True(t, ok)
	assert.Equal(t, decl.ClassKindInterface, repo.Kind)
	assert.Equal(t, []string{"find"}, repo.Methods)

	logs, ok := d.Classes.Get(`\App\Services\Logs`)
	require.True(t, ok)
	assert.Equal(t, decl.ClassKindTrait, logs.Kind)
}

func TestScanner_FunctionsAndConsts(t *testing.T) {
	t.Parallel()

	d := extract(t, servicePHP)
	require.Equal(t, []string{`\App\Services\format_name`}, d.Funs.Keys())

	fn, _ := d.Funs.Get(`\App\Services\format_name`)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "$first", fn.Params[0].Name)
	assert.Equal(t, "string", fn.Params[0].Type)
	assert.False(t, fn.Params[0].Optional)
	assert.Equal(t, "$last", fn.Params[1].Name)
	assert.True(t, fn.Params[1].Optional)
	assert.Equal(t, "string", fn.ReturnType)
	assert.Equal(t, 26, fn.Span.Start.Line)

	require.Equal(t, []string{`\App\Services\MAX_USERS`}, d.Consts.Keys())
	c, _ := d.Consts.Get(`\App\Services\MAX_USERS`)
	assert.Equal(t, "100", c.Value)

	assert.Equal(t, 0, d.Typedefs.Len())
}

func TestScanner_GlobalNamespace(t *testing.T) {
	t.Parallel()

	d := extract(t, "<?php\nfunction a() {}\nfunction a() { return 1; }\n")
	require.Equal(t, []string{`\a`}, d.Funs.Keys())
	a, _ := d.Funs.Get(`\a`)
	assert.Equal(t, 3, a.Span.Start.Line)
}

func TestScanner_SyntaxErrorsAreDiagnostics(t *testing.T) {
	t.Parallel()

	src := "<?php\nfunction ok() {}\nclass {\n"
	out, err := New().Scan(decl.SourceText{Path: "broken.php", Text: []byte(src)}, decl.ParserEnv{})
	require.NoError(t, err)
	require.NotNil(t, out.Root)
	assert.NotEmpty(t, out.Diagnostics)

	d, err := decl.Extract(New(), "broken.php", []byte(src))
	require.NoError(t, err)
	_, ok := d.Funs.Get(`\ok`)
	assert.True(t, ok)
}

func TestScanner_InvalidUTF8(t *testing.T) {
	t.Parallel()

	d, err := decl.Extract(New(), "bad.php", []byte("<?php\n\xff\xfe"))
	assert.Nil(t, d)
	assert.ErrorIs(t, err, decl.ErrScanFailure)
}

func TestScanner_HackOpenTag(t *testing.T) {
	t.Parallel()

	d := extract(t, "<?hh\nfunction greet(): void {}\n")
	require.Equal(t, []string{`\greet`}, d.Funs.Keys())
	g, _ := d.Funs.Get(`\greet`)
	assert.Equal(t, decl.Pos{Line: 2, Column: 1}, g.Span.Start)
}

func TestRewriteHackTag(t *testing.T) {
	t.Parallel()

	out, shift := rewriteHackTag([]byte("<?hh // strict\n"))
	assert.Equal(t, "<?php // strict\n", string(out))
	assert.True(t, shift.active)
	assert.Equal(t, uint(0), shift.row)

	out, shift = rewriteHackTag([]byte("#!/usr/bin/env hhvm\n<?hh\n"))
	assert.Equal(t, "#!/usr/bin/env hhvm\n<?php\n", string(out))
	assert.Equal(t, uint(1), shift.row)

	out, shift = rewriteHackTag([]byte("<?php\n"))
	assert.Equal(t, "<?php\n", string(out))
	assert.False(t, shift.active)

	_, shift = rewriteHackTag([]byte("<?hhvm"))
	assert.False(t, shift.active)
}
