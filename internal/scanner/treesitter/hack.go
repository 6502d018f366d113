package treesitter

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	hackgrammar "github.com/alexaandru/go-sitter-forest/hack"
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/hackdecl/internal/decl"
)

// HackScanner parses with the tree-sitter Hack grammar. Like Scanner it is
// safe for concurrent use.
type HackScanner struct {
	language *sitter.Language
}

// NewHack creates a tree-sitter scanner for Hack.
func NewHack() *HackScanner {
	return &HackScanner{language: sitter.NewLanguage(hackgrammar.GetLanguage())}
}

// Scan implements decl.Scanner.
func (s *HackScanner) Scan(src decl.SourceText, env decl.ParserEnv) (*decl.ScanOutput, error) {
	if !utf8.Valid(src.Text) {
		return nil, fmt.Errorf("invalid UTF-8 in %s", src.Path)
	}

	source := blankShebang(src.Text)

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(s.language); err != nil {
		return nil, fmt.Errorf("failed to load hack grammar: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter produced no tree for %s", src.Path)
	}
	defer tree.Close()

	root := tree.RootNode()
	w := &hackWalker{walker: &walker{
		source: source,
		env:    env,
		out: &decl.ScanOutput{
			Root: &decl.Root{Kind: root.Kind()},
		},
	}}
	w.out.Root.Span = w.span(root)

	w.statements(root)
	w.diagnose(root)

	return w.out, nil
}

// blankShebang overwrites a leading `#!` line with spaces. Offsets, lines
// and columns stay where they were.
func blankShebang(text []byte) []byte {
	if !bytes.HasPrefix(text, []byte("#!")) {
		return text
	}
	end := bytes.IndexByte(text, '\n')
	if end < 0 {
		end = len(text)
	}
	out := bytes.Clone(text)
	for i := range end {
		out[i] = ' '
	}
	return out
}

// hackWalker reads declarations out of a tree-sitter-hack tree. Positions,
// qualification and diagnostics come from the shared walker.
type hackWalker struct {
	*walker
}

func (w *hackWalker) text(n *sitter.Node) string {
	return extractNodeText(n, w.source)
}

// nameOf returns the node's name field, or its first identifier child when
// the grammar leaves the name unlabeled.
func (w *hackWalker) nameOf(n *sitter.Node) *sitter.Node {
	if name := n.ChildByFieldName("name"); name != nil {
		return name
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		switch c := n.NamedChild(i); c.Kind() {
		case "identifier", "qualified_identifier":
			return c
		}
	}
	return nil
}

// typeName returns the leading name of a type, without type arguments.
func (w *hackWalker) typeName(n *sitter.Node) string {
	var name string
	walkTree(n, func(c *sitter.Node) bool {
		if name != "" {
			return false
		}
		switch c.Kind() {
		case "identifier", "qualified_identifier":
			name = w.text(c)
			return false
		}
		return true
	})
	return name
}

func (w *hackWalker) typeNames(clause *sitter.Node) []string {
	var out []string
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		if name := w.typeName(clause.NamedChild(i)); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// declSpan starts at the declaration keyword, after any attributes.
func (w *hackWalker) declSpan(n *sitter.Node) decl.Span {
	first := n
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c.Kind() != "attribute_modifier" && c.Kind() != "comment" {
			first = c
			break
		}
	}
	return w.spanBetween(first, n)
}

func (w *hackWalker) statements(parent *sitter.Node) {
	for i := uint(0); i < parent.NamedChildCount(); i++ {
		n := parent.NamedChild(i)
		switch n.Kind() {
		case "namespace_declaration":
			w.namespace(n)
		case "class_declaration":
			w.class(n, decl.ClassKindClass)
		case "interface_declaration":
			w.class(n, decl.ClassKindInterface)
		case "trait_declaration":
			w.class(n, decl.ClassKindTrait)
		case "enum_declaration":
			w.class(n, decl.ClassKindEnum)
		case "enum_class_declaration":
			w.class(n, decl.ClassKindEnumClass)
		case "function_declaration":
			w.function(n)
		case "alias_declaration":
			w.typedef(n)
		case "const_declaration":
			w.constants(n)
		}
	}
}

func (w *hackWalker) namespace(n *sitter.Node) {
	name := ""
	if nameNode := w.nameOf(n); nameNode != nil {
		name = strings.TrimPrefix(w.text(nameNode), "\\")
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		body = findChildByType(n, "compound_statement")
	}
	if body == nil {
		w.ns = name
		return
	}

	saved := w.ns
	w.ns = name
	w.statements(body)
	w.ns = saved
}

func (w *hackWalker) class(n *sitter.Node, kind decl.ClassKind) {
	nameNode := w.nameOf(n)
	if nameNode == nil {
		return
	}

	if kind == decl.ClassKindEnum && findChildByType(n, "class") != nil {
		kind = decl.ClassKindEnumClass
	}
	if kind == decl.ClassKindEnumClass && !w.env.ExperimentalMode {
		w.diag(n, "enum class declarations require experimental mode")
		return
	}

	d := decl.ClassDecl{
		Name: w.qualify(w.text(nameNode)),
		Kind: kind,
		Span: w.declSpan(n),
	}

	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		switch child.Kind() {
		case "abstract_modifier", "abstract":
			d.Abstract = true
		case "final_modifier", "final":
			d.Final = true
		case "attribute_modifier":
			d.Attributes = append(d.Attributes, w.attributes(child)...)
		case "type_parameters":
			d.TypeParams = w.typeParams(child)
		case "extends_clause":
			d.Extends = append(d.Extends, w.typeNames(child)...)
		case "implements_clause":
			d.Implements = append(d.Implements, w.typeNames(child)...)
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		body = findChildByType(n, "member_declarations")
	}
	if body == nil {
		body = n
	}
	w.members(body, &d)

	w.out.Classes = append(w.out.Classes, decl.RawDecl[decl.ClassDecl]{Name: d.Name, Decl: d})
}

func (w *hackWalker) members(body *sitter.Node, d *decl.ClassDecl) {
	for i := uint(0); i < body.NamedChildCount(); i++ {
		m := body.NamedChild(i)
		switch m.Kind() {
		case "method_declaration":
			if name := w.nameOf(m); name != nil {
				d.Methods = append(d.Methods, w.text(name))
			}
		case "trait_use_clause":
			d.Uses = append(d.Uses, w.typeNames(m)...)
		case "const_declaration":
			for j := uint(0); j < m.NamedChildCount(); j++ {
				if el := m.NamedChild(j); el.Kind() == "const_declarator" {
					if name := w.nameOf(el); name != nil {
						d.Constants = append(d.Constants, w.text(name))
					}
				}
			}
		case "type_const_declaration", "enumerator":
			if name := w.nameOf(m); name != nil {
				d.Constants = append(d.Constants, w.text(name))
			}
		}
	}
}

// attributes lists the attribute names in `<<A, B(1)>>`, dropping arguments.
func (w *hackWalker) attributes(mod *sitter.Node) []string {
	var out []string
	for i := uint(0); i < mod.NamedChildCount(); i++ {
		c := mod.NamedChild(i)
		switch c.Kind() {
		case "identifier", "qualified_identifier":
			out = append(out, w.text(c))
		case "arguments", "comment":
		default:
			if name := w.typeName(c); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func (w *hackWalker) typeParams(list *sitter.Node) []string {
	var out []string
	for i := uint(0); i < list.NamedChildCount(); i++ {
		tp := list.NamedChild(i)
		if tp.Kind() != "type_parameter" {
			continue
		}
		if name := w.nameOf(tp); name != nil {
			out = append(out, w.text(name))
		}
	}
	return out
}

func (w *hackWalker) function(n *sitter.Node) {
	nameNode := w.nameOf(n)
	if nameNode == nil {
		return
	}

	f := decl.FunDecl{
		Name: w.qualify(w.text(nameNode)),
		Span: w.declSpan(n),
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		switch child.Kind() {
		case "async_modifier", "async":
			f.Async = true
		case "attribute_modifier":
			f.Attributes = append(f.Attributes, w.attributes(child)...)
		case "type_parameters":
			f.TypeParams = w.typeParams(child)
		case "parameters":
			f.Params = w.params(child)
		}
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		f.ReturnType = collapse(w.text(ret))
	}

	w.out.Funs = append(w.out.Funs, decl.RawDecl[decl.FunDecl]{Name: f.Name, Decl: f})
}

func (w *hackWalker) params(list *sitter.Node) []decl.Param {
	var out []decl.Param
	for i := uint(0); i < list.NamedChildCount(); i++ {
		n := list.NamedChild(i)
		switch n.Kind() {
		case "parameter", "variadic_parameter":
		default:
			continue
		}

		p := decl.Param{Variadic: n.Kind() == "variadic_parameter"}
		name := n.ChildByFieldName("name")
		if name == nil {
			name = findChildByType(n, "variable")
		}
		p.Name = w.text(name)
		if typ := n.ChildByFieldName("type"); typ != nil {
			p.Type = collapse(w.text(typ))
		}
		for j := uint(0); j < n.ChildCount(); j++ {
			switch n.Child(j).Kind() {
			case "variadic_modifier", "...":
				p.Variadic = true
			case "inout_modifier", "inout":
				p.Inout = true
			case "=":
				p.Optional = true
			}
		}
		if n.ChildByFieldName("default_value") != nil {
			p.Optional = true
		}
		out = append(out, p)
	}
	return out
}

// typedef handles `type` and `newtype`: the named node after `as` is the
// constraint and the one after `=` the aliased type.
func (w *hackWalker) typedef(n *sitter.Node) {
	nameNode := w.nameOf(n)
	if nameNode == nil {
		return
	}

	td := decl.TypedefDecl{
		Name: w.qualify(w.text(nameNode)),
		Span: w.declSpan(n),
	}

	after := ""
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		switch c.Kind() {
		case "newtype":
			td.Opaque = true
			continue
		case "attribute_modifier":
			td.Attributes = append(td.Attributes, w.attributes(c)...)
			continue
		case "type_parameters":
			td.TypeParams = w.typeParams(c)
			continue
		case "as", "=":
			after = c.Kind()
			continue
		case "comment":
			continue
		}
		if !c.IsNamed() || after == "" {
			continue
		}
		if after == "as" {
			td.Constraint = collapse(w.text(c))
		} else {
			td.Type = collapse(w.text(c))
		}
		after = ""
	}
	if td.Type == "" {
		if typ := n.ChildByFieldName("type"); typ != nil {
			td.Type = collapse(w.text(typ))
		}
	}

	w.out.Typedefs = append(w.out.Typedefs, decl.RawDecl[decl.TypedefDecl]{Name: td.Name, Decl: td})
}

func (w *hackWalker) constants(n *sitter.Node) {
	typ := ""
	first := true
	for i := uint(0); i < n.NamedChildCount(); i++ {
		el := n.NamedChild(i)
		switch el.Kind() {
		case "const_declarator":
		case "comment":
			continue
		default:
			if first && typ == "" {
				typ = collapse(w.text(el))
			}
			continue
		}

		nameNode := w.nameOf(el)
		if nameNode == nil {
			continue
		}

		c := decl.ConstDecl{Name: w.qualify(w.text(nameNode)), Type: typ}
		if v := el.ChildByFieldName("value"); v != nil {
			c.Value = collapse(w.text(v))
		} else if k := el.NamedChildCount(); k > 1 {
			c.Value = collapse(w.text(el.NamedChild(k - 1)))
		}
		if first {
			c.Span = w.spanBetween(n, el)
			first = false
		} else {
			c.Span = w.span(el)
		}
		w.out.Consts = append(w.out.Consts, decl.RawDecl[decl.ConstDecl]{Name: c.Name, Decl: c})
	}
}
