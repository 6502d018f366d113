package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/hackdecl/internal/config"
	"github.com/mvp-joe/hackdecl/internal/decl"
	"github.com/mvp-joe/hackdecl/internal/index"
)

// Test Plan for index, lookup and stats:
// - runIndex creates the database under the project root and reports progress
// - A second run finds nothing to extract
// - runLookup prints matches as text or JSON and fails when nothing matches
// - runStats summarizes files, kinds and failures
// - lookup and stats refuse to open a missing index instead of creating one
// - loadProject reads .hackdecl/config.yml from the given root

func newTestProject(t *testing.T, files map[string]string) *project {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return &project{
		root:   root,
		cfg:    config.Default(),
		logger: slog.New(slog.DiscardHandler),
	}
}

var projectFiles = map[string]string{
	"src/Models/User.hack": "<?hh // strict\nnamespace App\\Models;\nclass User {}\nfunction user_id(User $u): int { return 0; }\n",
	"src/config.hack":      "<?hh\nconst string ENV = 'dev';\ntype Config = shape('env' => string);\n",
	"src/broken.hack":      "<?hh\n\xfe\n",
	"vendor/lib.hack":      "<?hh\nclass User {}\n",
}

func TestRunIndex(t *testing.T) {
	t.Parallel()

	p := newTestProject(t, projectFiles)
	ctx := context.Background()

	var progress bytes.Buffer
	stats, err := runIndex(ctx, p, &progress, false)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Extracted)
	assert.Equal(t, 1, stats.Failed)
	assert.Contains(t, progress.String(), "Found 3 source files")
	assert.Contains(t, progress.String(), "Index updated")

	_, err = os.Stat(filepath.Join(p.root, ".hackdecl", "index.db"))
	require.NoError(t, err)

	var quiet bytes.Buffer
	stats, err = runIndex(ctx, p, &quiet, true)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Extracted)
	assert.Equal(t, 3, stats.Unchanged)
	assert.Empty(t, quiet.String())
}

func openIndexedStore(t *testing.T) *index.Store {
	t.Helper()
	p := newTestProject(t, projectFiles)
	_, err := runIndex(context.Background(), p, &bytes.Buffer{}, true)
	require.NoError(t, err)

	store, err := p.openIndex()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLookup(t *testing.T) {
	t.Parallel()

	store := openIndexedStore(t)

	var buf bytes.Buffer
	require.NoError(t, runLookup(&buf, store, "", "User", "text"))
	assert.Regexp(t, `class\s+\\App\\Models\\User\s+src/Models/User.hack:3`, buf.String())
	assert.NotContains(t, buf.String(), "vendor")

	buf.Reset()
	require.NoError(t, runLookup(&buf, store, decl.KindConst, `\ENV`, "json"))
	var entries []index.Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "src/config.hack", entries[0].Path)
	assert.Equal(t, 2, entries[0].Line)

	err := runLookup(&buf, store, decl.KindFun, "User", "text")
	assert.ErrorIs(t, err, errNoMatch)
}

func TestRunStats(t *testing.T) {
	t.Parallel()

	store := openIndexedStore(t)

	var buf bytes.Buffer
	require.NoError(t, runStats(&buf, store))
	out := buf.String()

	assert.Contains(t, out, "Files:  3 (1 failed)")
	assert.Regexp(t, `class\s+1`, out)
	assert.Regexp(t, `fun\s+1`, out)
	assert.Regexp(t, `typedef\s+1`, out)
	assert.Regexp(t, `const\s+1`, out)
	assert.Contains(t, out, "src/broken.hack:")
}

func TestOpenIndex_Missing(t *testing.T) {
	t.Parallel()

	p := newTestProject(t, projectFiles)

	store, err := p.openIndex()
	assert.Nil(t, store)
	require.ErrorIs(t, err, errNoIndex)
	assert.Contains(t, err.Error(), `run "hackdecl index"`)

	_, err = os.Stat(p.databasePath())
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(p.root, ".hackdecl"))
	assert.True(t, os.IsNotExist(err))
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "7", formatNumber(7))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "12,345,678", formatNumber(12345678))
}
