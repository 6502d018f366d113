// Package decl extracts the top-level declarations of a Hack source file.
//
// Extract runs the pipeline for one file:
//
//	text -> DetectMode -> NewParserEnv -> Scanner.Scan -> Canonicalize
//
// and returns either all four declaration tables or a *ScanFailure. The
// grammar itself lives behind the Scanner interface; see internal/scanner for
// the implementations shipped with hackdecl.
//
// Nothing in this package performs I/O, logs, or keeps state between calls,
// so extractions for different files may run concurrently.
package decl

// Decls holds the canonical tables for one file. The tables are independent:
// a class and a function may share a name.
type Decls struct {
	Classes  *Table[ClassDecl]   `json:"classes"`
	Funs     *Table[FunDecl]     `json:"funs"`
	Typedefs *Table[TypedefDecl] `json:"typedefs"`
	Consts   *Table[ConstDecl]   `json:"consts"`
}

// Len returns the total number of declarations across all tables.
func (d *Decls) Len() int {
	return d.Classes.Len() + d.Funs.Len() + d.Typedefs.Len() + d.Consts.Len()
}

// Canonicalize turns each raw sequence into its Table.
func Canonicalize(out *ScanOutput) *Decls {
	return &Decls{
		Classes:  NewTable(out.Classes),
		Funs:     NewTable(out.Funs),
		Typedefs: NewTable(out.Typedefs),
		Consts:   NewTable(out.Consts),
	}
}

// Extract returns the declarations of the file at path. Scanner diagnostics
// are discarded; only a missing syntax root fails the extraction.
func Extract(s Scanner, path string, text []byte) (*Decls, error) {
	src := SourceText{Path: path, Text: text}
	env := NewParserEnv(DetectMode(text))

	out, err := s.Scan(src, env)
	if err != nil {
		return nil, &ScanFailure{Path: path, Reason: err.Error()}
	}
	if out == nil || out.Root == nil {
		return nil, &ScanFailure{Path: path, Reason: "scanner produced no syntax root"}
	}

	return Canonicalize(out), nil
}
