// Package treesitter implements decl.Scanner on top of tree-sitter grammars.
// Scanner uses the PHP grammar and covers plain PHP and the PHP-compatible
// subset of Hack; type aliases, generics and other Hack-only syntax surface
// as syntax errors there. HackScanner uses the Hack grammar.
package treesitter

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"

	"github.com/mvp-joe/hackdecl/internal/decl"
)

// Scanner parses with tree-sitter-php. A Scanner is safe for concurrent use;
// each Scan creates its own parser.
type Scanner struct {
	language *sitter.Language
}

// New creates a tree-sitter scanner for PHP.
func New() *Scanner {
	return &Scanner{language: sitter.NewLanguage(php.LanguagePHP())}
}

// Scan implements decl.Scanner.
func (s *Scanner) Scan(src decl.SourceText, env decl.ParserEnv) (*decl.ScanOutput, error) {
	if !utf8.Valid(src.Text) {
		return nil, fmt.Errorf("invalid UTF-8 in %s", src.Path)
	}

	source, shift := rewriteHackTag(src.Text)

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(s.language); err != nil {
		return nil, fmt.Errorf("failed to load php grammar: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter produced no tree for %s", src.Path)
	}
	defer tree.Close()

	root := tree.RootNode()
	w := &walker{
		source: source,
		env:    env,
		shift:  shift,
		out: &decl.ScanOutput{
			Root: &decl.Root{Kind: root.Kind()},
		},
	}
	w.out.Root.Span = w.span(root)

	w.statements(root)
	w.diagnose(root)

	return w.out, nil
}

// tagShift records where `<?hh` was widened to `<?php` so positions on that
// line can be mapped back to the original text.
type tagShift struct {
	active bool
	row    uint
	col    uint
}

// rewriteHackTag replaces a leading `<?hh` open tag (after an optional
// shebang line) with `<?php`, which is what the grammar recognizes.
func rewriteHackTag(text []byte) ([]byte, tagShift) {
	at := 0
	var row uint
	if bytes.HasPrefix(text, []byte("#!")) {
		nl := bytes.IndexByte(text, '\n')
		if nl < 0 {
			return text, tagShift{}
		}
		at = nl + 1
		row = 1
	}

	rest := text[at:]
	if !bytes.HasPrefix(rest, []byte("<?hh")) {
		return text, tagShift{}
	}
	if len(rest) > 4 && isWordByte(rest[4]) {
		return text, tagShift{}
	}

	out := make([]byte, 0, len(text)+1)
	out = append(out, text[:at]...)
	out = append(out, "<?php"...)
	out = append(out, rest[4:]...)
	return out, tagShift{active: true, row: row, col: 5}
}

func isWordByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

type walker struct {
	source []byte
	env    decl.ParserEnv
	shift  tagShift
	ns     string
	out    *decl.ScanOutput
}

func (w *walker) pos(p sitter.Point) decl.Pos {
	col := p.Column
	if w.shift.active && p.Row == w.shift.row && col >= w.shift.col {
		col--
	}
	return decl.Pos{Line: int(p.Row) + 1, Column: int(col) + 1}
}

func (w *walker) span(n *sitter.Node) decl.Span {
	return decl.Span{Start: w.pos(n.StartPosition()), End: w.pos(n.EndPosition())}
}

func (w *walker) spanBetween(first, last *sitter.Node) decl.Span {
	return decl.Span{Start: w.pos(first.StartPosition()), End: w.pos(last.EndPosition())}
}

func (w *walker) qualify(name string) string {
	if strings.HasPrefix(name, "\\") {
		return name
	}
	if w.ns == "" {
		return "\\" + name
	}
	return "\\" + w.ns + "\\" + name
}

// statements visits the direct children of a program or namespace body.
// Declarations nested inside functions, methods or control flow are not
// top-level and are never visited.
func (w *walker) statements(parent *sitter.Node) {
	for i := uint(0); i < parent.ChildCount(); i++ {
		n := parent.Child(i)
		switch n.Kind() {
		case "namespace_definition":
			w.namespace(n)
		case "class_declaration":
			w.class(n, decl.ClassKindClass)
		case "interface_declaration":
			w.class(n, decl.ClassKindInterface)
		case "trait_declaration":
			w.class(n, decl.ClassKindTrait)
		case "enum_declaration":
			w.class(n, decl.ClassKindEnum)
		case "function_definition":
			w.function(n)
		case "const_declaration":
			w.constants(n)
		}
	}
}

func (w *walker) namespace(n *sitter.Node) {
	name := ""
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = strings.TrimPrefix(extractNodeText(nameNode, w.source), "\\")
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		w.ns = name
		return
	}

	saved := w.ns
	w.ns = name
	w.statements(body)
	w.ns = saved
}

func (w *walker) class(n *sitter.Node, kind decl.ClassKind) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	d := decl.ClassDecl{
		Name: w.qualify(extractNodeText(nameNode, w.source)),
		Kind: kind,
		Span: w.span(n),
	}

	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		switch child.Kind() {
		case "abstract_modifier":
			d.Abstract = true
		case "final_modifier":
			d.Final = true
		case "attribute_list":
			d.Attributes = append(d.Attributes, w.attributes(child)...)
		case "base_clause":
			d.Extends = append(d.Extends, w.names(child)...)
		case "class_interface_clause":
			d.Implements = append(d.Implements, w.names(child)...)
		}
	}

	if body := n.ChildByFieldName("body"); body != nil {
		w.members(body, &d)
	}

	w.out.Classes = append(w.out.Classes, decl.RawDecl[decl.ClassDecl]{Name: d.Name, Decl: d})
}

// names returns the text of every name or qualified_name directly under n.
func (w *walker) names(n *sitter.Node) []string {
	var out []string
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		switch child.Kind() {
		case "name", "qualified_name":
			out = append(out, extractNodeText(child, w.source))
		}
	}
	return out
}

func (w *walker) attributes(list *sitter.Node) []string {
	var out []string
	walkTree(list, func(n *sitter.Node) bool {
		if n.Kind() != "attribute" {
			return true
		}
		if n.NamedChildCount() > 0 {
			out = append(out, extractNodeText(n.NamedChild(0), w.source))
		}
		return false
	})
	return out
}

func (w *walker) members(body *sitter.Node, d *decl.ClassDecl) {
	for i := uint(0); i < body.NamedChildCount(); i++ {
		m := body.NamedChild(i)
		switch m.Kind() {
		case "method_declaration":
			if name := m.ChildByFieldName("name"); name != nil {
				d.Methods = append(d.Methods, extractNodeText(name, w.source))
			}
		case "use_declaration":
			d.Uses = append(d.Uses, w.names(m)...)
		case "const_declaration":
			for j := uint(0); j < m.NamedChildCount(); j++ {
				if el := m.NamedChild(j); el.Kind() == "const_element" {
					if name := findChildByType(el, "name"); name != nil {
						d.Constants = append(d.Constants, extractNodeText(name, w.source))
					}
				}
			}
		case "enum_case":
			name := m.ChildByFieldName("name")
			if name == nil {
				name = findChildByType(m, "name")
			}
			if name != nil {
				d.Constants = append(d.Constants, extractNodeText(name, w.source))
			}
		}
	}
}

func (w *walker) function(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	f := decl.FunDecl{
		Name: w.qualify(extractNodeText(nameNode, w.source)),
		Span: w.span(n),
	}
	if attrs := findChildByType(n, "attribute_list"); attrs != nil {
		f.Attributes = w.attributes(attrs)
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		f.Params = w.params(params)
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		f.ReturnType = strings.TrimSpace(strings.TrimPrefix(extractNodeText(ret, w.source), ":"))
	}

	w.out.Funs = append(w.out.Funs, decl.RawDecl[decl.FunDecl]{Name: f.Name, Decl: f})
}

func (w *walker) params(list *sitter.Node) []decl.Param {
	var out []decl.Param
	for i := uint(0); i < list.NamedChildCount(); i++ {
		n := list.NamedChild(i)
		switch n.Kind() {
		case "simple_parameter", "variadic_parameter", "property_promotion_parameter":
		default:
			continue
		}

		p := decl.Param{Variadic: n.Kind() == "variadic_parameter"}
		if name := n.ChildByFieldName("name"); name != nil {
			p.Name = extractNodeText(name, w.source)
		}
		if typ := n.ChildByFieldName("type"); typ != nil {
			p.Type = collapse(extractNodeText(typ, w.source))
		}
		p.Optional = n.ChildByFieldName("default_value") != nil
		out = append(out, p)
	}
	return out
}

func (w *walker) constants(n *sitter.Node) {
	first := true
	for i := uint(0); i < n.NamedChildCount(); i++ {
		el := n.NamedChild(i)
		if el.Kind() != "const_element" {
			continue
		}
		nameNode := findChildByType(el, "name")
		if nameNode == nil {
			continue
		}

		c := decl.ConstDecl{Name: w.qualify(extractNodeText(nameNode, w.source))}
		if k := el.NamedChildCount(); k > 1 {
			c.Value = collapse(extractNodeText(el.NamedChild(k-1), w.source))
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

// diagnose records syntax errors and, when the environment forbids them,
// hash comments.
func (w *walker) diagnose(root *sitter.Node) {
	walkTree(root, func(n *sitter.Node) bool {
		switch {
		case n.IsMissing():
			w.diag(n, fmt.Sprintf("missing %s", n.Kind()))
			return false
		case n.IsError():
			w.diag(n, "syntax error")
			return false
		case n.Kind() == "comment" && w.env.DisallowHashComments:
			if text := extractNodeText(n, w.source); strings.HasPrefix(text, "#") && !strings.HasPrefix(text, "#[") {
				w.diag(n, "hash comments are not allowed")
			}
		}
		return n.HasError() || w.env.DisallowHashComments
	})
}

func (w *walker) diag(n *sitter.Node, msg string) {
	w.out.Diagnostics = append(w.out.Diagnostics, decl.Diagnostic{Pos: w.pos(n.StartPosition()), Message: msg})
}
