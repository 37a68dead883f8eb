package parser

import (
	"strings"

	"fort2hip/internal/diag"
	"fort2hip/internal/directive"
	"fort2hip/internal/index"
	"fort2hip/internal/linemap"
	"fort2hip/internal/token"
)

// Header is a program-unit opening statement.
type Header struct {
	Kind       index.Kind
	Name       string
	Attributes []string // global, device, host, pure, elemental, recursive, ...
	DummyArgs  []string
	ResultName string
	// ResultType and ResultKind are set for typed function prefixes such
	// as "real(8) function f(x)".
	ResultType string
	ResultKind string
}

var procPrefixes = map[string]bool{
	"pure": true, "impure": true, "elemental": true, "recursive": true,
	"non_recursive": true, "module": true,
}

// ParseHeader parses a module, program, procedure or derived-type header.
// ok is false when body is some other statement.
func ParseHeader(body string) (Header, bool, error) {
	c, err := newCursor(body)
	if err != nil {
		return Header{}, false, err
	}
	if !c.at(token.Ident) {
		return Header{}, false, nil
	}
	if k := c.peekAt(1).Kind; k == token.Assign || k == token.Percent {
		return Header{}, false, nil
	}
	var h Header
	switch c.peek().Text {
	case "program":
		c.next()
		h.Kind = index.KindProgram
		if h.Name, err = c.expectIdent(); err != nil {
			return h, true, err
		}
		return h, true, trailing(c)
	case "module":
		if c.peekAt(1).Kind == token.Ident && c.peekAt(2).Kind == token.EOF && !c.peekAt(1).Is("procedure") {
			c.next()
			h.Kind = index.KindModule
			h.Name = c.next().Text
			return h, true, nil
		}
	case "type":
		return typeHeader(c)
	}

	for {
		switch {
		case c.atWord("attributes") && c.peekAt(1).Kind == token.LParen:
			c.next()
			text, err := c.groupText()
			if err != nil {
				return h, false, err
			}
			for _, a := range splitTopLevel(strings.ToLower(text)) {
				h.Attributes = append(h.Attributes, strings.TrimSpace(a))
			}
			continue
		case c.at(token.Ident) && procPrefixes[c.peek().Text] && c.peekAt(1).Kind == token.Ident:
			h.Attributes = append(h.Attributes, c.next().Text)
			continue
		case c.atTypeSpec():
			save := c.pos
			ts, err := c.typeSpec()
			if err != nil || !c.atWord("function") && !procPrefixes[c.peek().Text] {
				c.pos = save
				return Header{}, false, nil
			}
			h.ResultType, h.ResultKind = ts.base, ts.kind
			continue
		}
		break
	}
	switch {
	case c.atWord("subroutine"):
		h.Kind = index.KindSubroutine
	case c.atWord("function"):
		h.Kind = index.KindFunction
	default:
		return Header{}, false, nil
	}
	c.next()
	if h.Name, err = c.expectIdent(); err != nil {
		return h, true, declErr(err)
	}
	if c.at(token.LParen) {
		text, err := c.groupText()
		if err != nil {
			return h, true, declErr(err)
		}
		for _, a := range splitTopLevel(strings.ToLower(text)) {
			if a != "" {
				h.DummyArgs = append(h.DummyArgs, a)
			}
		}
	}
	for !c.eof() {
		switch {
		case c.acceptWord("result"):
			text, err := c.groupText()
			if err != nil {
				return h, true, declErr(err)
			}
			h.ResultName = strings.ToLower(strings.TrimSpace(text))
		case c.acceptWord("bind"):
			if _, err := c.groupText(); err != nil {
				return h, true, declErr(err)
			}
			h.Attributes = append(h.Attributes, "bind(c)")
		default:
			return h, true, declErr(c.errorf("unexpected %s in procedure header", c.peek()))
		}
	}
	if h.Kind == index.KindFunction && h.ResultName == "" {
		h.ResultName = h.Name
	}
	return h, true, nil
}

// typeHeader parses "type [, attrs ::] name[(params)]". "type(t) :: x" is
// a declaration and "type is (...)" a select-type guard.
func typeHeader(c *cursor) (Header, bool, error) {
	c.next()
	if c.at(token.LParen) || c.atWord("is") && c.peekAt(1).Kind == token.LParen {
		return Header{}, false, nil
	}
	h := Header{Kind: index.KindType}
	if c.accept(token.Comma) {
		for !c.eof() && !c.at(token.DoubleColon) {
			q, _, err := c.attribute()
			if err != nil {
				return h, true, declErr(err)
			}
			h.Attributes = append(h.Attributes, q)
			c.accept(token.Comma)
		}
	}
	c.accept(token.DoubleColon)
	var err error
	if h.Name, err = c.expectIdent(); err != nil {
		return h, true, declErr(err)
	}
	if c.at(token.LParen) {
		if err := c.skipGroup(); err != nil {
			return h, true, declErr(err)
		}
	}
	return h, true, trailing(c)
}

func trailing(c *cursor) error {
	if !c.eof() {
		return declErr(c.errorf("unexpected %s", c.peek()))
	}
	return nil
}

// Unit is one program unit with its own statements; contained procedures
// and derived types are children.
type Unit struct {
	Header
	Tag      string
	File     string
	Line     int
	Stmts    []linemap.Statement
	Children []*Unit
}

// Walk visits u and its descendants depth-first.
func (u *Unit) Walk(fn func(*Unit)) {
	fn(u)
	for _, ch := range u.Children {
		ch.Walk(fn)
	}
}

var unitEnds = []string{"module", "program", "subroutine", "function", "type"}

// Units splits a statement stream into program units. Interface blocks are
// skipped; "contains" is dropped.
func Units(stmts []linemap.Statement) ([]*Unit, error) {
	var (
		roots      []*Unit
		open       []*Unit
		ifaceDepth int
	)
	for _, s := range stmts {
		if !s.Active {
			continue
		}
		if directive.IsDirective(s.Body) {
			if len(open) > 0 && ifaceDepth == 0 {
				top := open[len(open)-1]
				top.Stmts = append(top.Stmts, s)
			}
			continue
		}
		c, err := newCursor(s.Body)
		if err != nil {
			// host code the lexer does not cover; never a unit boundary
			if len(open) == 0 {
				return nil, diag.Locate(err, s.Loc())
			}
			if ifaceDepth == 0 {
				top := open[len(open)-1]
				top.Stmts = append(top.Stmts, s)
			}
			continue
		}
		l := &line{stmt: s, c: c}
		switch {
		case isInterfaceStart(c):
			ifaceDepth++
			continue
		case l.isEnd("interface"):
			if ifaceDepth == 0 {
				return nil, diag.Errorf(diag.KindSyntax, diag.SynUnbalancedBlock, "end interface without interface").At(s.Loc())
			}
			ifaceDepth--
			continue
		case ifaceDepth > 0:
			continue
		case c.atWord("contains") && c.peekAt(1).Kind == token.EOF:
			continue
		}

		if isUnitEnd(l, open) {
			u := open[len(open)-1]
			open = open[:len(open)-1]
			if len(open) == 0 {
				roots = append(roots, u)
			} else {
				parent := open[len(open)-1]
				parent.Children = append(parent.Children, u)
			}
			continue
		}

		h, ok, err := ParseHeader(s.Body)
		if err != nil {
			return nil, diag.Locate(err, s.Loc())
		}
		if ok {
			u := &Unit{Header: h, File: s.File, Line: s.Line, Tag: h.Name}
			if len(open) > 0 {
				u.Tag = open[len(open)-1].Tag + ":" + h.Name
			}
			open = append(open, u)
			continue
		}
		if len(open) == 0 {
			return nil, diag.Errorf(diag.KindSyntax, diag.SynBadStatement, "statement outside of a program unit").At(s.Loc())
		}
		top := open[len(open)-1]
		top.Stmts = append(top.Stmts, s)
	}
	if len(open) > 0 {
		u := open[len(open)-1]
		return nil, diag.Errorf(diag.KindSyntax, diag.SynUnbalancedBlock, "%s %s is never closed", u.Kind, u.Name).
			At(diag.Location{File: u.File, Line: u.Line})
	}
	return roots, nil
}

func isInterfaceStart(c *cursor) bool {
	if c.atWord("abstract") {
		return c.peekAt(1).Is("interface")
	}
	return c.atWord("interface") && c.peekAt(1).Kind != token.Assign
}

// isUnitEnd matches the end statement of the innermost open unit. A bare
// "end" closes anything except a derived type.
func isUnitEnd(l *line, open []*Unit) bool {
	if len(open) == 0 {
		return false
	}
	top := open[len(open)-1]
	if top.Kind == index.KindType {
		return l.isEnd("type")
	}
	if l.c.atWord("end") && l.c.peekAt(1).Kind == token.EOF {
		return true
	}
	return l.isEnd(unitEnds...) && !l.isEnd("type")
}
