package parser

import (
	"fort2hip/internal/ast"
	"fort2hip/internal/diag"
	"fort2hip/internal/directive"
	"fort2hip/internal/linemap"
	"fort2hip/internal/token"
)

// line is one active statement with its label and construct name split off.
type line struct {
	stmt  linemap.Statement
	label string
	name  string
	c     *cursor
	dir   *directive.Directive
}

func (l *line) loc() diag.Location { return l.stmt.Loc() }

// prepare lexes the active statements. With tolerant set, statements the
// lexer rejects are kept as opaque lines instead of failing.
func prepare(stmts []linemap.Statement, tolerant bool) ([]*line, error) {
	out := make([]*line, 0, len(stmts))
	for _, s := range stmts {
		if !s.Active {
			continue
		}
		l := &line{stmt: s}
		if directive.IsDirective(s.Body) {
			d, err := directive.Parse(s.Body)
			if err != nil {
				return nil, diag.Locate(err, s.Loc())
			}
			l.dir = d
			out = append(out, l)
			continue
		}
		c, err := newCursor(s.Body)
		if err != nil {
			if tolerant {
				out = append(out, l)
				continue
			}
			return nil, diag.Locate(err, s.Loc())
		}
		if c.at(token.IntLit) && c.peekAt(1).Kind != token.EOF {
			l.label = c.next().Text
		}
		if c.at(token.Ident) && c.peekAt(1).Kind == token.Colon {
			l.name = c.next().Text
			c.next()
		}
		l.c = c
		out = append(out, l)
	}
	return out, nil
}

// isEnd matches "end <what>", "end<what>" and, for what == "", a bare "end".
func (l *line) isEnd(what ...string) bool {
	if l.c == nil {
		return false
	}
	t0 := l.c.peek()
	if t0.Kind != token.Ident {
		return false
	}
	for _, w := range what {
		if t0.Text == "end"+w && l.c.peekAt(1).Kind != token.Assign {
			return true
		}
		if t0.Text == "end" && l.c.peekAt(1).Is(w) {
			return true
		}
	}
	return false
}

func (l *line) first() string {
	if l.c == nil || !l.c.at(token.Ident) {
		return ""
	}
	// "if = 1" and friends are assignments
	if k := l.c.peekAt(1).Kind; k == token.Assign || k == token.Percent {
		return ""
	}
	if l.c.peekAt(1).Kind == token.LParen && isAssignment(l.c) {
		return ""
	}
	return l.c.peek().Text
}

// isAssignment reports "name(...) = ..." and "name(...)%x = ...".
func isAssignment(c *cursor) bool {
	depth := 0
	for i := c.pos + 1; i < len(c.toks); i++ {
		switch c.toks[i].Kind {
		case token.LParen:
			depth++
		case token.RParen:
			depth--
			if depth == 0 {
				next := c.toks[min(i+1, len(c.toks)-1)].Kind
				return next == token.Assign || next == token.Percent || next == token.LParen
			}
		case token.EOF:
			return false
		}
	}
	return false
}

// bodyParser builds the executable statement tree of a kernel or
// procedure body.
type bodyParser struct {
	lines  []*line
	pos    int
	region *directive.Directive // open "!$acc parallel" or "kernels" region
	loop   *directive.Directive // directive waiting for the next do loop
	labels []string             // terminal labels of open labeled do loops
}

// ParseStatements parses an executable statement stream. Declarations are
// skipped; directives attach to the do loop that follows them.
func ParseStatements(stmts []linemap.Statement) ([]ast.Stmt, error) {
	lines, err := prepare(stmts, false)
	if err != nil {
		return nil, err
	}
	p := &bodyParser{lines: lines}
	body, stop, err := p.block(func(*line) bool { return false })
	if err != nil {
		return nil, err
	}
	if stop != nil {
		return nil, diag.Errorf(diag.KindSyntax, diag.SynUnbalancedBlock, "unexpected %q", stop.stmt.Body).At(stop.loc())
	}
	return body, nil
}

// block parses statements until stop matches; the stopping line is
// consumed and returned. A nil line means end of input or a labeled do
// termination.
func (p *bodyParser) block(stop func(*line) bool) ([]ast.Stmt, *line, error) {
	var out []ast.Stmt
	for p.pos < len(p.lines) {
		l := p.lines[p.pos]
		if l.c != nil && stop(l) {
			p.pos++
			return out, l, nil
		}
		p.pos++
		if l.dir != nil {
			p.directive(l.dir)
			continue
		}
		if l.label != "" {
			out = append(out, &ast.Label{Name: l.label})
		}
		s, err := p.stmt(l)
		if err != nil {
			return nil, nil, diag.Locate(err, l.loc())
		}
		if s != nil {
			out = append(out, s)
		}
		if n := len(p.labels); n > 0 && l.label == p.labels[n-1] {
			return out, nil, nil
		}
		if d, ok := s.(*ast.DoLoop); ok && d.Label != "" {
			if n := len(p.labels); n > 0 && d.Label == p.labels[n-1] {
				// shared termination: the inner loop consumed our label
				return out, nil, nil
			}
		}
	}
	return out, nil, nil
}

func (p *bodyParser) directive(d *directive.Directive) {
	switch {
	case d.IsEnd():
		if d.Construct == "end parallel" || d.Construct == "end kernels" || d.Construct == "end serial" {
			p.region = nil
		}
	case d.IsLoop():
		p.loop = directive.Merge(p.region, d)
	case d.IsCompute():
		p.region = d
	}
}

var declarationWords = map[string]bool{
	"integer": true, "real": true, "logical": true, "complex": true, "character": true,
	"doubleprecision": true, "double": true, "type": true, "class": true, "implicit": true,
	"use": true, "dimension": true, "parameter": true, "allocatable": true, "save": true,
	"intent": true, "external": true, "intrinsic": true, "data": true, "common": true,
	"equivalence": true, "target": true, "pointer": true, "device": true, "shared": true,
	"constant": true, "value": true, "optional": true, "format": true,
}

func (p *bodyParser) stmt(l *line) (ast.Stmt, error) {
	c := l.c
	switch word := l.first(); word {
	case "if":
		return p.ifStmt(l)
	case "select", "selectcase":
		return p.selectStmt(l)
	case "do", "dowhile":
		return p.doStmt(l)
	case "go", "goto":
		c.next()
		if word == "go" && !c.acceptWord("to") {
			return nil, c.errorf("expected 'to'")
		}
		t, err := c.expect(token.IntLit)
		if err != nil {
			return nil, err
		}
		return &ast.GoTo{Label: t.Text}, nil
	case "exit", "cycle":
		c.next()
		name := ""
		if c.at(token.Ident) {
			name = c.next().Text
		}
		if word == "exit" {
			return &ast.Exit{Construct: name}, nil
		}
		return &ast.Cycle{Construct: name}, nil
	case "return":
		return &ast.Return{}, nil
	case "continue":
		return &ast.Continue{}, nil
	case "call":
		c.next()
		name, err := c.expectIdent()
		if err != nil {
			return nil, err
		}
		call := &ast.Call{Name: name}
		if c.at(token.LParen) {
			if call.Args, err = c.argList(); err != nil {
				return nil, err
			}
		}
		return call, nil
	case "else", "elseif", "case", "end", "enddo", "endif", "endselect":
		return nil, diag.Errorf(diag.KindSyntax, diag.SynUnbalancedBlock, "unexpected %q", l.stmt.Body)
	}
	if w := l.first(); declarationWords[w] {
		return nil, nil
	}
	return assignment(c)
}

func assignment(c *cursor) (ast.Stmt, error) {
	lhs, err := c.designator()
	if err != nil {
		return nil, err
	}
	if c.at(token.Arrow) {
		return nil, c.errorf("pointer assignment is not supported")
	}
	if _, err := c.expect(token.Assign); err != nil {
		return nil, err
	}
	rhs, err := c.expr()
	if err != nil {
		return nil, err
	}
	if !c.eof() {
		return nil, c.errorf("unexpected %s", c.peek())
	}
	return &ast.Assignment{LHS: lhs, RHS: rhs}, nil
}

func (p *bodyParser) parenExpr(c *cursor) (ast.Expr, error) {
	if _, err := c.expect(token.LParen); err != nil {
		return nil, err
	}
	e, err := c.expr()
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(token.RParen); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *bodyParser) ifStmt(l *line) (ast.Stmt, error) {
	c := l.c
	c.next()
	cond, err := p.parenExpr(c)
	if err != nil {
		return nil, err
	}
	if !c.acceptWord("then") {
		// logical if: the rest is a single statement
		inner, err := newCursor(c.rest())
		if err != nil {
			return nil, err
		}
		s, err := p.stmt(&line{stmt: l.stmt, c: inner})
		if err != nil {
			return nil, err
		}
		return &ast.IfBlock{Inline: true, Branches: []*ast.Branch{{Cond: cond, Body: []ast.Stmt{s}}}}, nil
	}
	blk := &ast.IfBlock{Name: l.name}
	branch := &ast.Branch{Cond: cond}
	stop := func(x *line) bool {
		w := x.first()
		return w == "else" || w == "elseif" || x.isEnd("if")
	}
	for {
		body, end, err := p.block(stop)
		if err != nil {
			return nil, err
		}
		branch.Body = body
		blk.Branches = append(blk.Branches, branch)
		if end == nil {
			return nil, diag.Errorf(diag.KindSyntax, diag.SynUnbalancedBlock, "missing 'end if'")
		}
		if end.isEnd("if") {
			return blk, nil
		}
		ec := end.c
		word := ec.next().Text
		if word == "elseif" || ec.acceptWord("if") {
			cond, err := p.parenExpr(ec)
			if err != nil {
				return nil, diag.Locate(err, end.loc())
			}
			if !ec.acceptWord("then") {
				return nil, diag.Errorf(diag.KindSyntax, diag.SynBadStatement, "expected 'then'").At(end.loc())
			}
			branch = &ast.Branch{Cond: cond}
			continue
		}
		branch = &ast.Branch{}
	}
}

func (p *bodyParser) selectStmt(l *line) (ast.Stmt, error) {
	c := l.c
	if c.next().Text == "select" && !c.acceptWord("case") {
		return nil, c.errorf("expected 'case'")
	}
	sel, err := p.parenExpr(c)
	if err != nil {
		return nil, err
	}
	sc := &ast.SelectCase{Name: l.name, Selector: sel}
	stop := func(x *line) bool { return x.first() == "case" || x.isEnd("select") }

	// statements before the first case are not allowed; skip to it
	if _, end, err := p.block(stop); err != nil {
		return nil, err
	} else if end == nil {
		return nil, diag.Errorf(diag.KindSyntax, diag.SynUnbalancedBlock, "missing 'end select'")
	} else if end.isEnd("select") {
		return sc, nil
	} else {
		l = end
	}
	for {
		cs := &ast.Case{}
		lc := l.c
		lc.next()
		if !lc.acceptWord("default") {
			args, err := lc.argList()
			if err != nil {
				return nil, diag.Locate(err, l.loc())
			}
			cs.Values = args.Values()
		}
		body, end, err := p.block(stop)
		if err != nil {
			return nil, err
		}
		cs.Body = body
		sc.Cases = append(sc.Cases, cs)
		if end == nil {
			return nil, diag.Errorf(diag.KindSyntax, diag.SynUnbalancedBlock, "missing 'end select'")
		}
		if end.isEnd("select") {
			return sc, nil
		}
		l = end
	}
}

func (p *bodyParser) doStmt(l *line) (ast.Stmt, error) {
	c := l.c
	dir := p.loop
	p.loop = nil
	word := c.next().Text
	label := ""
	if c.at(token.IntLit) {
		label = c.next().Text
	}
	c.accept(token.Comma)

	var loop ast.Stmt
	var setBody func([]ast.Stmt)
	switch {
	case word == "dowhile" || c.acceptWord("while"):
		cond, err := p.parenExpr(c)
		if err != nil {
			return nil, err
		}
		w := &ast.DoWhile{Name: l.name, Label: label, Cond: cond}
		loop, setBody = w, func(b []ast.Stmt) { w.Body = b }
	case c.eof():
		f := &ast.DoForever{Name: l.name, Label: label}
		loop, setBody = f, func(b []ast.Stmt) { f.Body = b }
	default:
		d, err := p.doHeader(c)
		if err != nil {
			return nil, err
		}
		d.Name, d.Label, d.Directive = l.name, label, dir
		loop, setBody = d, func(b []ast.Stmt) { d.Body = b }
	}

	if label != "" {
		p.labels = append(p.labels, label)
		body, _, err := p.block(func(x *line) bool { return x.isEnd("do") && x.label == label })
		p.labels = p.labels[:len(p.labels)-1]
		if err != nil {
			return nil, err
		}
		setBody(body)
		return loop, nil
	}
	body, end, err := p.block(func(x *line) bool { return x.isEnd("do") })
	if err != nil {
		return nil, err
	}
	if end == nil {
		return nil, diag.Errorf(diag.KindSyntax, diag.SynUnbalancedBlock, "missing 'end do'")
	}
	setBody(body)
	return loop, nil
}

// doHeader parses "i = first, last[, step]".
func (p *bodyParser) doHeader(c *cursor) (*ast.DoLoop, error) {
	name, err := c.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(token.Assign); err != nil {
		return nil, err
	}
	d := &ast.DoLoop{Index: ast.NewIdent(name)}
	if d.First, err = c.expr(); err != nil {
		return nil, err
	}
	if _, err := c.expect(token.Comma); err != nil {
		return nil, err
	}
	if d.Last, err = c.expr(); err != nil {
		return nil, err
	}
	if c.accept(token.Comma) {
		if d.Step, err = c.expr(); err != nil {
			return nil, err
		}
	}
	if !c.eof() {
		return nil, c.errorf("unexpected %s in do header", c.peek())
	}
	return d, nil
}
