// Package scanner selects a decl.Scanner backend and exposes the one-call
// extraction entry point used by the CLI and the indexer.
package scanner

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mvp-joe/hackdecl/internal/decl"
	"github.com/mvp-joe/hackdecl/internal/scanner/hack"
	"github.com/mvp-joe/hackdecl/internal/scanner/treesitter"
)

// Backend names a scanner implementation.
type Backend string

const (
	// BackendHack parses Hack with the tree-sitter Hack grammar.
	BackendHack Backend = "hack"
	// BackendLexer is the hand-written Hack scanner.
	BackendLexer Backend = "lexer"
	// BackendPHP parses plain PHP with the tree-sitter PHP grammar.
	BackendPHP Backend = "php"
	// BackendAuto picks per file, see Detect.
	BackendAuto Backend = "auto"
)

// Backends lists every accepted backend name.
var Backends = []Backend{BackendAuto, BackendHack, BackendLexer, BackendPHP}

// ErrUnknownBackend is returned by New for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown scanner backend")

// ParseBackend maps a configured name to a Backend, ignoring case. The empty
// name means auto.
func ParseBackend(name string) (Backend, bool) {
	if name == "" {
		return BackendAuto, true
	}
	b := Backend(strings.ToLower(name))
	return b, slices.Contains(Backends, b)
}

// New returns the scanner for the named backend.
func New(backend Backend) (decl.Scanner, error) {
	b, ok := ParseBackend(string(backend))
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownBackend, backend, BackendList())
	}
	switch b {
	case BackendHack:
		return treesitter.NewHack(), nil
	case BackendLexer:
		return hack.New(), nil
	case BackendPHP:
		return treesitter.New(), nil
	}
	return newAutoScanner(), nil
}

// BackendList joins the backend names for messages and flag help.
func BackendList() string {
	names := make([]string, len(Backends))
	for i, b := range Backends {
		names[i] = string(b)
	}
	return strings.Join(names, ", ")
}

// autoScanner routes each file to the backend best suited to it. Plain PHP
// goes to the PHP grammar and everything else to the Hack grammar. When the
// Hack grammar cannot scan a file cleanly, the hand-written scanner gets it
// instead; it accepts newer syntax and recovers from errors more locally.
type autoScanner struct {
	hackTree  decl.Scanner
	hackLexer decl.Scanner
	php       decl.Scanner
}

func newAutoScanner() *autoScanner {
	return &autoScanner{
		hackTree:  treesitter.NewHack(),
		hackLexer: hack.New(),
		php:       treesitter.New(),
	}
}

// Scan implements decl.Scanner.
func (a *autoScanner) Scan(src decl.SourceText, env decl.ParserEnv) (*decl.ScanOutput, error) {
	if Detect(src.Path, src.Text) == BackendPHP {
		return a.php.Scan(src, env)
	}
	out, err := a.hackTree.Scan(src, env)
	if err == nil && out.Root != nil && len(out.Diagnostics) == 0 {
		return out, nil
	}
	return a.hackLexer.Scan(src, env)
}

// Detect reports which grammar the auto scanner starts with for a file:
// BackendPHP for a .php file without a Hack header, BackendHack otherwise.
func Detect(path string, text []byte) Backend {
	if strings.ToLower(filepath.Ext(path)) == ".php" && !hasHackHeader(text) {
		return BackendPHP
	}
	return BackendHack
}

func hasHackHeader(text []byte) bool {
	if bytes.HasPrefix(text, []byte("#!")) {
		nl := bytes.IndexByte(text, '\n')
		if nl < 0 {
			return false
		}
		text = text[nl+1:]
	}
	return bytes.HasPrefix(text, []byte("<?hh"))
}

var defaultScanner = newAutoScanner()

// ParseDecls extracts the top-level declarations of one file with the auto
// backend. The error, when non-nil, is a *decl.ScanFailure.
func ParseDecls(path string, text []byte) (*decl.Decls, error) {
	return decl.Extract(defaultScanner, path, text)
}
