package ast

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FortranStyle controls the normalized Fortran rendering.
type FortranStyle struct {
	KeywordCase string // lower, upper or camel
	Indent      string
}

// DefaultFortranStyle is lower-case keywords and two-space indent.
var DefaultFortranStyle = FortranStyle{KeywordCase: "lower", Indent: "  "}

func (st FortranStyle) caser() cases.Caser {
	switch st.KeywordCase {
	case "upper":
		return cases.Upper(language.Und)
	case "camel":
		return cases.Title(language.Und)
	default:
		return cases.Lower(language.Und)
	}
}

// Fortran renders n as normalized Fortran with the default style.
func Fortran(n Node) string {
	return FortranWith(n, DefaultFortranStyle)
}

// FortranWith renders n with the given style. Statements end with a newline.
func FortranWith(n Node, st FortranStyle) string {
	if st.Indent == "" {
		st.Indent = DefaultFortranStyle.Indent
	}
	p := &fortranPrinter{style: st, caser: st.caser()}
	if s, ok := n.(Stmt); ok {
		p.stmt(s)
	} else if e, ok := n.(Expr); ok {
		p.out.WriteString(p.expr(e))
	}
	return p.out.String()
}

// FortranStmts renders a statement list.
func FortranStmts(body []Stmt, st FortranStyle) string {
	var sb strings.Builder
	for _, s := range body {
		sb.WriteString(FortranWith(s, st))
	}
	return sb.String()
}

type fortranPrinter struct {
	out    strings.Builder
	style  FortranStyle
	caser  cases.Caser
	indent int
}

func (p *fortranPrinter) kw(s string) string { return p.caser.String(s) }

func (p *fortranPrinter) line(parts ...string) {
	p.out.WriteString(strings.Repeat(p.style.Indent, p.indent))
	for _, s := range parts {
		p.out.WriteString(s)
	}
	p.out.WriteByte('\n')
}

func (p *fortranPrinter) body(stmts []Stmt) {
	p.indent++
	for _, s := range stmts {
		p.stmt(s)
	}
	p.indent--
}

func (p *fortranPrinter) named(name string) string {
	if name == "" {
		return ""
	}
	return name + ": "
}

func (p *fortranPrinter) suffix(name string) string {
	if name == "" {
		return ""
	}
	return " " + name
}

func (p *fortranPrinter) stmt(s Stmt) {
	switch x := s.(type) {
	case *Assignment:
		p.line(p.expr(x.LHS), " = ", p.expr(x.RHS))
	case *IfBlock:
		if x.Inline && len(x.Branches) == 1 && len(x.Branches[0].Body) == 1 {
			inner := strings.TrimSpace(FortranWith(x.Branches[0].Body[0], p.style))
			p.line(p.kw("if"), " (", p.expr(x.Branches[0].Cond), ") ", inner)
			return
		}
		for i, b := range x.Branches {
			switch {
			case i == 0:
				p.line(p.named(x.Name), p.kw("if"), " (", p.expr(b.Cond), ") ", p.kw("then"))
			case b.Cond != nil:
				p.line(p.kw("else if"), " (", p.expr(b.Cond), ") ", p.kw("then"))
			default:
				p.line(p.kw("else"))
			}
			p.body(b.Body)
		}
		p.line(p.kw("end if"), p.suffix(x.Name))
	case *SelectCase:
		p.line(p.named(x.Name), p.kw("select case"), " (", p.expr(x.Selector), ")")
		for _, c := range x.Cases {
			if c.Values == nil {
				p.line(p.kw("case default"))
			} else {
				p.line(p.kw("case"), " (", p.exprList(c.Values), ")")
			}
			p.body(c.Body)
		}
		p.line(p.kw("end select"), p.suffix(x.Name))
	case *DoLoop:
		head := p.expr(x.Index) + " = " + p.expr(x.First) + ", " + p.expr(x.Last)
		if x.Step != nil {
			head += ", " + p.expr(x.Step)
		}
		p.line(p.named(x.Name), p.kw("do"), " ", head)
		p.body(x.Body)
		p.line(p.kw("end do"), p.suffix(x.Name))
	case *DoWhile:
		p.line(p.named(x.Name), p.kw("do while"), " (", p.expr(x.Cond), ")")
		p.body(x.Body)
		p.line(p.kw("end do"), p.suffix(x.Name))
	case *DoForever:
		p.line(p.named(x.Name), p.kw("do"))
		p.body(x.Body)
		p.line(p.kw("end do"), p.suffix(x.Name))
	case *GoTo:
		p.line(p.kw("go to"), " ", x.Label)
	case *Label:
		p.line(x.Name, " ", p.kw("continue"))
	case *Exit:
		p.line(p.kw("exit"), p.suffix(x.Construct))
	case *Cycle:
		p.line(p.kw("cycle"), p.suffix(x.Construct))
	case *Return:
		p.line(p.kw("return"))
	case *Continue:
		p.line(p.kw("continue"))
	case *Call:
		args := ""
		if x.Args != nil {
			args = p.expr(x.Args)
		}
		p.line(p.kw("call"), " ", x.Name, args)
	}
}

func (p *fortranPrinter) exprList(list []Expr) string {
	parts := make([]string, len(list))
	for i, e := range list {
		parts[i] = p.expr(e)
	}
	return strings.Join(parts, ", ")
}

func (p *fortranPrinter) expr(e Expr) string {
	switch x := e.(type) {
	case nil:
		return ""
	case *Literal:
		switch x.Type {
		case LitCharacter:
			return "'" + strings.ReplaceAll(x.Text, "'", "''") + "'"
		case LitLogical:
			return p.kw(x.Text)
		}
		return x.Text
	case *Ident:
		return x.Name
	case *Member:
		return p.expr(x.Base) + "%" + p.expr(x.Field)
	case *Eval:
		args := "()"
		if x.Args != nil {
			args = p.expr(x.Args)
		}
		return x.Name + args
	case *Unary:
		op := x.Op
		if op == ".not." {
			op = p.kw(op) + " "
		}
		return op + p.operand(x.X)
	case *OpChain:
		var sb strings.Builder
		sb.WriteString(p.operand(x.Operands[0]))
		for i, op := range x.Ops {
			if strings.HasPrefix(op, ".") {
				op = " " + p.kw(op) + " "
			}
			sb.WriteString(op)
			sb.WriteString(p.operand(x.Operands[i+1]))
		}
		return sb.String()
	case *ArgList:
		parts := make([]string, len(x.Args))
		for i, a := range x.Args {
			parts[i] = p.expr(a.Value)
			if a.Keyword != "" {
				parts[i] = a.Keyword + "=" + parts[i]
			}
		}
		return "(" + strings.Join(parts, ",") + ")"
	case *Slice:
		s := p.expr(x.Lo) + ":" + p.expr(x.Hi)
		if x.Stride != nil {
			s += ":" + p.expr(x.Stride)
		}
		return s
	}
	return ""
}

// operand parenthesizes unary and chained operands.
func (p *fortranPrinter) operand(e Expr) string {
	switch e.(type) {
	case *Unary, *OpChain:
		return "(" + p.expr(e) + ")"
	}
	return p.expr(e)
}
