package hack

import (
	"strings"

	"github.com/mvp-joe/hackdecl/internal/decl"
)

var memberModifiers = map[string]bool{
	"public":    true,
	"private":   true,
	"protected": true,
	"static":    true,
	"abstract":  true,
	"final":     true,
	"readonly":  true,
	"async":     true,
	"internal":  true,
}

// parseClassLike handles class, interface, trait, enum and enum class
// declarations, including leading abstract/final/xhp modifiers.
func (p *parser) parseClassLike() {
	start := p.cur()
	d := decl.ClassDecl{}

modifiers:
	for p.cur().kind == tokName {
		switch strings.ToLower(p.cur().text) {
		case "abstract":
			d.Abstract = true
		case "final":
			d.Final = true
		case "xhp":
		default:
			break modifiers
		}
		p.next()
	}

	kw := p.cur()
	switch {
	case isName(kw, "class"):
		d.Kind = decl.ClassKindClass
	case isName(kw, "interface"):
		d.Kind = decl.ClassKindInterface
	case isName(kw, "trait"):
		d.Kind = decl.ClassKindTrait
	case isName(kw, "enum") && isName(p.peek(1), "class"):
		if !p.env.ExperimentalMode {
			p.errorf(kw, "enum class declarations require experimental mode")
			p.attrs = nil
			p.skipDeclaration()
			return
		}
		d.Kind = decl.ClassKindEnumClass
		p.next()
	case isName(kw, "enum"):
		d.Kind = decl.ClassKindEnum
	default:
		p.errorf(kw, "expected class, interface, trait or enum")
		p.attrs = nil
		if kw.start == start.start {
			p.next()
		}
		return
	}
	p.next()

	nameTok := p.cur()
	if nameTok.kind != tokName {
		p.errorf(nameTok, "missing name in %s declaration", d.Kind)
		p.attrs = nil
		p.skipDeclaration()
		return
	}
	p.next()
	d.Name = p.qualify(nameTok.text)

	if p.isPunct("<") {
		d.TypeParams = p.parseTypeParams()
	}

	for !p.atEOF() && !p.isPunct("{") && !p.isPunct(";") {
		t := p.cur()
		switch {
		case isName(t, "extends"):
			p.next()
			d.Extends = append(d.Extends, p.parseNameList()...)
		case isName(t, "implements"):
			p.next()
			d.Implements = append(d.Implements, p.parseNameList()...)
		default:
			p.next()
		}
	}

	if p.isPunct("{") {
		if !p.parseClassBody(&d) {
			p.errorf(start, "unterminated body of %s %s", d.Kind, d.Name)
		}
	} else {
		p.errorf(p.cur(), "expected { in declaration of %s", d.Name)
		if p.isPunct(";") {
			p.next()
		}
	}

	d.Attributes = p.takeAttrs()
	d.Span = p.span(start, p.prev())
	p.out.Classes = append(p.out.Classes, decl.RawDecl[decl.ClassDecl]{Name: d.Name, Decl: d})
}

// skipDeclaration consumes a declaration the scanner declines to record:
// everything up to and including its body or terminating semicolon.
func (p *parser) skipDeclaration() {
	p.collect(func(t token) bool { return isPunct(t, "{") || isPunct(t, ";") })
	switch {
	case p.isPunct("{"):
		p.skipBlock()
	case p.isPunct(";"):
		p.next()
	}
}

// parseClassBody consumes `{ ... }` and records member names on d.
func (p *parser) parseClassBody(d *decl.ClassDecl) bool {
	p.next()
	depth := 1
	var stmt []token

	for !p.atEOF() {
		t := p.cur()
		if t.kind == tokPunct {
			switch t.text {
			case "{":
				if depth == 1 {
					p.member(d, stmt)
					stmt = nil
				}
				depth++
				p.next()
				continue
			case "}":
				depth--
				p.next()
				if depth == 0 {
					p.member(d, stmt)
					return true
				}
				continue
			case ";":
				if depth == 1 {
					p.member(d, stmt)
					stmt = nil
					p.next()
					continue
				}
			}
		}
		if depth == 1 {
			stmt = append(stmt, t)
		}
		p.next()
	}
	return false
}

// member classifies one class-body statement.
func (p *parser) member(d *decl.ClassDecl, toks []token) {
	toks = stripAttributes(toks)
	if len(toks) == 0 {
		return
	}

	for i, t := range toks {
		if isName(t, "function") && i+1 < len(toks) && toks[i+1].kind == tokName {
			d.Methods = append(d.Methods, toks[i+1].text)
			return
		}
	}

	head := 0
	for head < len(toks) && toks[head].kind == tokName && memberModifiers[strings.ToLower(toks[head].text)] {
		head++
	}
	if head == len(toks) {
		return
	}

	switch first := toks[head]; {
	case isName(first, "use"):
		for _, seg := range splitTopLevel(toks[head+1:]) {
			if len(seg) > 0 && seg[0].kind == tokName {
				d.Uses = append(d.Uses, seg[0].text)
			}
		}
	case isName(first, "const"):
		for _, seg := range splitTopLevel(toks[head+1:]) {
			if name := constName(seg); name != "" {
				d.Constants = append(d.Constants, name)
			}
		}
	case isName(first, "require"):
	case d.Kind == decl.ClassKindEnum || d.Kind == decl.ClassKindEnumClass:
		if name := constName(toks[head:]); name != "" {
			d.Constants = append(d.Constants, name)
		}
	}
}

// constName returns the name in `[type] NAME [= value]`.
func constName(seg []token) string {
	head := seg
	if eq := indexOfPunct(seg, "="); eq >= 0 {
		head = seg[:eq]
	}
	if i := lastName(head); i >= 0 {
		return head[i].text
	}
	return ""
}

// parseFunction handles `[async] function [&] name<T>(params): ret { ... }`.
// It reports false, consuming nothing, for a closure.
func (p *parser) parseFunction() bool {
	start := p.cur()
	async := false

	nameAt := 1
	if isName(start, "async") {
		async = true
		nameAt = 2
	}
	if isPunct(p.peek(nameAt), "&") {
		nameAt++
	}
	nameTok := p.peek(nameAt)
	if nameTok.kind != tokName {
		return false
	}
	for range nameAt + 1 {
		p.next()
	}

	f := decl.FunDecl{Name: p.qualify(nameTok.text), Async: async}
	if p.isPunct("<") {
		f.TypeParams = p.parseTypeParams()
	}

	if !p.isPunct("(") {
		p.errorf(p.cur(), "expected ( after function name %s", nameTok.text)
		p.attrs = nil
		p.skipDeclaration()
		return true
	}
	f.Params = p.parseParams()

	if p.isPunct(":") {
		p.next()
		ret := p.collect(func(t token) bool {
			return isPunct(t, "{") || isPunct(t, ";") || isName(t, "where")
		})
		f.ReturnType = p.textOf(ret)
	}
	if isName(p.cur(), "where") {
		p.collect(func(t token) bool { return isPunct(t, "{") || isPunct(t, ";") })
	}

	switch {
	case p.isPunct("{"):
		if !p.skipBlock() {
			p.errorf(start, "unterminated body of function %s", f.Name)
		}
	case p.isPunct(";"):
		p.next()
	default:
		p.errorf(p.cur(), "expected function body for %s", f.Name)
	}

	f.Attributes = p.takeAttrs()
	f.Span = p.span(start, p.prev())
	p.out.Funs = append(p.out.Funs, decl.RawDecl[decl.FunDecl]{Name: f.Name, Decl: f})
	return true
}

// parseParams consumes `( ... )` and returns the parameters.
func (p *parser) parseParams() []decl.Param {
	open := p.cur()
	p.next()

	toks := p.collect(func(t token) bool { return isPunct(t, ")") })
	if p.isPunct(")") {
		p.next()
	} else {
		p.errorf(open, "unterminated parameter list")
	}

	var params []decl.Param
	for _, seg := range splitTopLevel(toks) {
		if param, ok := p.param(stripAttributes(seg)); ok {
			params = append(params, param)
		}
	}
	return params
}

func (p *parser) param(seg []token) (decl.Param, bool) {
	v := -1
	for i, t := range seg {
		if t.kind == tokVariable {
			v = i
			break
		}
		if isPunct(t, "=") {
			break
		}
	}
	if v < 0 {
		return decl.Param{}, false
	}

	param := decl.Param{Name: seg[v].text}
	typ := seg[:v]

modifiers:
	for len(typ) > 0 && typ[0].kind == tokName {
		switch strings.ToLower(typ[0].text) {
		case "inout":
			param.Inout = true
		case "public", "private", "protected", "readonly":
		default:
			break modifiers
		}
		typ = typ[1:]
	}
	if n := len(typ); n > 0 && isPunct(typ[n-1], "...") {
		param.Variadic = true
		typ = typ[:n-1]
	}
	param.Type = p.textOf(typ)
	param.Optional = indexOfPunct(seg[v+1:], "=") >= 0
	return param, true
}

// parseTypedef handles `type` and `newtype` aliases.
func (p *parser) parseTypedef() {
	start := p.cur()
	p.next()
	nameTok := p.cur()
	p.next()

	td := decl.TypedefDecl{
		Name:   p.qualify(nameTok.text),
		Opaque: isName(start, "newtype"),
	}
	if p.isPunct("<") {
		td.TypeParams = p.parseTypeParams()
	}
	if isName(p.cur(), "as") {
		p.next()
		c := p.collect(func(t token) bool {
			return isPunct(t, "=") || isPunct(t, ";") || isName(t, "super")
		})
		td.Constraint = p.textOf(c)
	}
	p.collect(func(t token) bool { return isPunct(t, "=") || isPunct(t, ";") })

	if !p.isPunct("=") {
		p.errorf(nameTok, "expected = in type alias %s", nameTok.text)
		p.attrs = nil
		if p.isPunct(";") {
			p.next()
		}
		return
	}
	p.next()

	ty := p.collect(func(t token) bool { return isPunct(t, ";") })
	td.Type = p.textOf(ty)
	if p.isPunct(";") {
		p.next()
	} else {
		p.errorf(nameTok, "missing ; after type alias %s", nameTok.text)
	}

	td.Attributes = p.takeAttrs()
	td.Span = p.span(start, p.prev())
	p.out.Typedefs = append(p.out.Typedefs, decl.RawDecl[decl.TypedefDecl]{Name: td.Name, Decl: td})
}

// parseConst handles `const [type] A = v1, B = v2;`.
func (p *parser) parseConst() {
	start := p.cur()
	p.next()
	p.attrs = nil

	toks := p.collect(func(t token) bool { return isPunct(t, ";") })
	if p.isPunct(";") {
		p.next()
	} else {
		p.errorf(start, "missing ; after constant declaration")
	}

	typ := ""
	for i, seg := range splitTopLevel(toks) {
		head, value := seg, []token(nil)
		if eq := indexOfPunct(seg, "="); eq >= 0 {
			head, value = seg[:eq], seg[eq+1:]
		}
		n := lastName(head)
		if n < 0 {
			p.errorf(start, "missing constant name")
			continue
		}
		if i == 0 && n > 0 {
			typ = p.textOf(head[:n])
		}

		first := seg[0]
		if i == 0 {
			first = start
		}
		c := decl.ConstDecl{
			Name:  p.qualify(head[n].text),
			Type:  typ,
			Value: p.textOf(value),
			Span:  p.span(first, seg[len(seg)-1]),
		}
		p.out.Consts = append(p.out.Consts, decl.RawDecl[decl.ConstDecl]{Name: c.Name, Decl: c})
	}
}
