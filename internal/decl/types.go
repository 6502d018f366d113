package decl

import "slices"

// Pos is a 1-based line/column position in source text.
type Pos struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Span covers a declaration from its first to its last token.
type Span struct {
	Start Pos `json:"start"`
	End   Pos `json:"end"`
}

// ClassKind distinguishes the class-like declarations stored in the classes table.
type ClassKind string

const (
	ClassKindClass     ClassKind = "class"
	ClassKindInterface ClassKind = "interface"
	ClassKindTrait     ClassKind = "trait"
	ClassKindEnum      ClassKind = "enum"
	ClassKindEnumClass ClassKind = "enum_class"
)

// ClassDecl is the payload for classes, interfaces, traits and enums.
type ClassDecl struct {
	Name       string    `json:"name"`
	Kind       ClassKind `json:"kind"`
	Abstract   bool      `json:"abstract,omitempty"`
	Final      bool      `json:"final,omitempty"`
	TypeParams []string  `json:"type_params,omitempty"`
	Extends    []string  `json:"extends,omitempty"`
	Implements []string  `json:"implements,omitempty"`
	Uses       []string  `json:"uses,omitempty"`
	Methods    []string  `json:"methods,omitempty"`
	Constants  []string  `json:"constants,omitempty"`
	Attributes []string  `json:"attributes,omitempty"`
	Span       Span      `json:"span"`
}

// Clone returns a deep copy of the declaration.
func (c ClassDecl) Clone() ClassDecl {
	c.TypeParams = slices.Clone(c.TypeParams)
	c.Extends = slices.Clone(c.Extends)
	c.Implements = slices.Clone(c.Implements)
	c.Uses = slices.Clone(c.Uses)
	c.Methods = slices.Clone(c.Methods)
	c.Constants = slices.Clone(c.Constants)
	c.Attributes = slices.Clone(c.Attributes)
	return c
}

// Param is a single function parameter.
type Param struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Variadic bool   `json:"variadic,omitempty"`
	Optional bool   `json:"optional,omitempty"`
	Inout    bool   `json:"inout,omitempty"`
}

// FunDecl is the payload for top-level functions.
type FunDecl struct {
	Name       string   `json:"name"`
	Async      bool     `json:"async,omitempty"`
	TypeParams []string `json:"type_params,omitempty"`
	Params     []Param  `json:"params,omitempty"`
	ReturnType string   `json:"return_type,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
	Span       Span     `json:"span"`
}

// Clone returns a deep copy of the declaration.
func (f FunDecl) Clone() FunDecl {
	f.TypeParams = slices.Clone(f.TypeParams)
	f.Params = slices.Clone(f.Params)
	f.Attributes = slices.Clone(f.Attributes)
	return f
}

// TypedefDecl is the payload for `type` and `newtype` aliases.
type TypedefDecl struct {
	Name       string   `json:"name"`
	Opaque     bool     `json:"opaque,omitempty"` // newtype
	TypeParams []string `json:"type_params,omitempty"`
	Constraint string   `json:"constraint,omitempty"`
	Type       string   `json:"type"`
	Attributes []string `json:"attributes,omitempty"`
	Span       Span     `json:"span"`
}

// Clone returns a deep copy of the declaration.
func (t TypedefDecl) Clone() TypedefDecl {
	t.TypeParams = slices.Clone(t.TypeParams)
	t.Attributes = slices.Clone(t.Attributes)
	return t
}

// ConstDecl is the payload for top-level constants.
type ConstDecl struct {
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Value string `json:"value"`
	Span  Span   `json:"span"`
}

// Clone returns a copy of the declaration.
func (c ConstDecl) Clone() ConstDecl {
	return c
}

// RawDecl is a (name, payload) pair as emitted by a Scanner.
type RawDecl[T any] struct {
	Name string
	Decl T
}

// Kind names one of the four declaration tables.
type Kind string

const (
	KindClass   Kind = "class"
	KindFun     Kind = "fun"
	KindTypedef Kind = "typedef"
	KindConst   Kind = "const"
)

// Kinds lists every declaration kind in table order.
var Kinds = []Kind{KindClass, KindFun, KindTypedef, KindConst}

// ParseKind maps a user-supplied string to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "class", "classes":
		return KindClass, true
	case "fun", "funs", "function", "functions":
		return KindFun, true
	case "typedef", "typedefs", "type":
		return KindTypedef, true
	case "const", "consts", "constant", "constants":
		return KindConst, true
	}
	return "", false
}
