package index

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mvp-joe/hackdecl/internal/decl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Store:
// - ReplaceFile stores the file record and every declaration
// - ReplaceFile replaces declarations from an earlier run
// - MarkFailed keeps the record with its error and drops old declarations
// - RemoveFile deletes the record and its declarations
// - Lookup matches qualified names exactly and short names by last segment
// - Lookup treats glob metacharacters in names literally
// - ListFile returns declarations in table order
// - Stats counts files, failures and declarations per kind

func sampleDecls() *decl.Decls {
	return decl.Canonicalize(&decl.ScanOutput{
		Root: &decl.Root{Kind: "script"},
		Classes: []decl.RawDecl[decl.ClassDecl]{
			{Name: `\App\User`, Decl: decl.ClassDecl{Name: `\App\User`, Kind: decl.ClassKindClass, Span: decl.Span{Start: decl.Pos{Line: 3, Column: 1}}}},
		},
		Funs: []decl.RawDecl[decl.FunDecl]{
			{Name: `\App\main`, Decl: decl.FunDecl{Name: `\App\main`, ReturnType: "void", Span: decl.Span{Start: decl.Pos{Line: 9, Column: 1}}}},
			{Name: `\App\User`, Decl: decl.FunDecl{Name: `\App\User`, Span: decl.Span{Start: decl.Pos{Line: 12, Column: 1}}}},
		},
		Consts: []decl.RawDecl[decl.ConstDecl]{
			{Name: `\App\MAX`, Decl: decl.ConstDecl{Name: `\App\MAX`, Value: "10", Span: decl.Span{Start: decl.Pos{Line: 2, Column: 1}}}},
		},
	})
}

func TestStore_ReplaceFile(t *testing.T) {
	t.Parallel()
	s := NewTestStore(t)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.ReplaceFile(FileRecord{Path: "src/user.hack", Hash: "h1", Mode: "strict", RunID: "r1", IndexedAt: now}, sampleDecls()))

	rec, err := s.File("src/user.hack")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "h1", rec.Hash)
	assert.Equal(t, "strict", rec.Mode)
	assert.Equal(t, StatusOK, rec.Status)
	assert.Equal(t, "r1", rec.RunID)
	assert.True(t, now.Equal(rec.IndexedAt))

	entries, err := s.ListFile("src/user.hack")
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, decl.KindClass, entries[0].Kind)
	assert.Equal(t, `\App\User`, entries[0].Name)
	assert.Equal(t, 3, entries[0].Line)
	assert.Equal(t, decl.KindFun, entries[1].Kind)
	assert.Equal(t, `\App\User`, entries[1].Name)
	assert.Equal(t, `\App\main`, entries[2].Name)
	assert.Equal(t, decl.KindConst, entries[3].Kind)

	var fn decl.FunDecl
	require.NoError(t, json.Unmarshal(entries[2].Payload, &fn))
	assert.Equal(t, "void", fn.ReturnType)

	missing, err := s.File("nope.hack")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_ReplaceFileOverwrites(t *testing.T) {
	t.Parallel()
	s := NewTestStore(t)

	require.NoError(t, s.ReplaceFile(FileRecord{Path: "a.hack", Hash: "h1", RunID: "r1"}, sampleDecls()))

	next := decl.Canonicalize(&decl.ScanOutput{
		Root:     &decl.Root{Kind: "script"},
		Typedefs: []decl.RawDecl[decl.TypedefDecl]{{Name: `\T`, Decl: decl.TypedefDecl{Name: `\T`, Type: "int"}}},
	})
	require.NoError(t, s.ReplaceFile(FileRecord{Path: "a.hack", Hash: "h2", RunID: "r2"}, next))

	entries, err := s.ListFile("a.hack")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, decl.KindTypedef, entries[0].Kind)

	hashes, err := s.FileHashes()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.hack": "h2"}, hashes)
}

func TestStore_MarkFailed(t *testing.T) {
	t.Parallel()
	s := NewTestStore(t)

	require.NoError(t, s.ReplaceFile(FileRecord{Path: "a.hack", Hash: "h1"}, sampleDecls()))
	require.NoError(t, s.MarkFailed(FileRecord{Path: "a.hack", Hash: "h2", Error: "invalid UTF-8"}))

	rec, err := s.File("a.hack")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, "invalid UTF-8", rec.Error)
	assert.Equal(t, "h2", rec.Hash)

	entries, err := s.ListFile("a.hack")
	require.NoError(t, err)
	assert.Empty(t, entries)

	failed, err := s.FailedFiles()
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "a.hack", failed[0].Path)
}

func TestStore_RemoveFile(t *testing.T) {
	t.Parallel()
	s := NewTestStore(t)

	require.NoError(t, s.ReplaceFile(FileRecord{Path: "a.hack", Hash: "h1"}, sampleDecls()))
	require.NoError(t, s.RemoveFile("a.hack"))

	rec, err := s.File("a.hack")
	require.NoError(t, err)
	assert.Nil(t, rec)

	entries, err := s.Lookup("", "User")
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Removing an unknown file is not an error
	assert.NoError(t, s.RemoveFile("never.hack"))
}

func TestStore_Lookup(t *testing.T) {
	t.Parallel()
	s := NewTestStore(t)

	require.NoError(t, s.ReplaceFile(FileRecord{Path: "a.hack", Hash: "h1"}, sampleDecls()))
	other := decl.Canonicalize(&decl.ScanOutput{
		Root:    &decl.Root{Kind: "script"},
		Classes: []decl.RawDecl[decl.ClassDecl]{{Name: `\User`, Decl: decl.ClassDecl{Name: `\User`, Kind: decl.ClassKindClass}}},
	})
	require.NoError(t, s.ReplaceFile(FileRecord{Path: "b.hack", Hash: "h2"}, other))

	all, err := s.Lookup("", "User")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, `\App\User`, all[0].Name)
	assert.Equal(t, decl.KindClass, all[0].Kind)
	assert.Equal(t, `\App\User`, all[1].Name)
	assert.Equal(t, decl.KindFun, all[1].Kind)
	assert.Equal(t, `\User`, all[2].Name)

	classes, err := s.Lookup(decl.KindClass, "User")
	require.NoError(t, err)
	assert.Len(t, classes, 2)

	exact, err := s.Lookup("", `\User`)
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, "b.hack", exact[0].Path)

	none, err := s.Lookup("", "Use")
	require.NoError(t, err)
	assert.Empty(t, none)

	// Wildcard characters in a short name are literal
	for _, name := range []string{"*", "U*", "Use?", "[U]ser", "*User"} {
		entries, err := s.Lookup("", name)
		require.NoError(t, err)
		assert.Empty(t, entries, name)
	}
}

func TestStore_Stats(t *testing.T) {
	t.Parallel()
	s := NewTestStore(t)

	require.NoError(t, s.ReplaceFile(FileRecord{Path: "a.hack", Hash: "h1"}, sampleDecls()))
	require.NoError(t, s.MarkFailed(FileRecord{Path: "b.hack", Hash: "h2", Error: "boom"}))

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, map[decl.Kind]int{decl.KindClass: 1, decl.KindFun: 2, decl.KindConst: 1}, stats.Decls)
}
