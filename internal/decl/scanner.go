package decl

import "fmt"

// SourceText is the file being scanned. Path identifies the file; it is never
// opened. Text is borrowed and must not be modified.
type SourceText struct {
	Path string
	Text []byte
}

// Diagnostic is a recoverable syntax problem reported by a Scanner.
type Diagnostic struct {
	Pos     Pos
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s", d.Pos.Line, d.Pos.Column, d.Message)
}

// Root is the handle a Scanner returns when it produced a syntax tree.
type Root struct {
	// Kind names the root node, e.g. "script" or "program".
	Kind string
	Span Span
}

// ScanOutput is everything a Scanner produced for one file. A nil Root means
// the file could not be scanned at all.
type ScanOutput struct {
	Root        *Root
	Diagnostics []Diagnostic

	Classes  []RawDecl[ClassDecl]
	Funs     []RawDecl[FunDecl]
	Typedefs []RawDecl[TypedefDecl]
	Consts   []RawDecl[ConstDecl]
}

// Scanner performs a single pass over source text and emits raw
// declarations per kind. Raw sequences are in source order; names may repeat.
// An error means the text could not be scanned at all.
type Scanner interface {
	Scan(src SourceText, env ParserEnv) (*ScanOutput, error)
}

// ScannerFunc adapts a function to the Scanner interface.
type ScannerFunc func(src SourceText, env ParserEnv) (*ScanOutput, error)

// Scan calls f(src, env).
func (f ScannerFunc) Scan(src SourceText, env ParserEnv) (*ScanOutput, error) {
	return f(src, env)
}
