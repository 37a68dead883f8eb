package ast

import (
	"fmt"
	"strconv"
	"strings"

	"fort2hip/internal/diag"
)

// HIPOptions controls the C++ rendering.
type HIPOptions struct {
	// FortranStyleTensors emits array accesses as a(i,j) for array classes
	// with an overloaded call operator instead of a[_idx_a(i,j)].
	FortranStyleTensors bool
	Indent              string
}

// DefaultHIPOptions uses Fortran-style tensor access and two-space indent.
var DefaultHIPOptions = HIPOptions{FortranStyleTensors: true, Indent: "  "}

// HIP renders n as HIP C++ with the default options.
func HIP(n Node) (string, error) {
	return HIPWith(n, DefaultHIPOptions)
}

// HIPWith renders n. The first failure stops the rendering and is returned.
func HIPWith(n Node, opts HIPOptions) (string, error) {
	p := newHIPPrinter(opts, 0)
	p.node(n)
	return p.result()
}

// HIPStmts renders a statement list at the given indent level.
func HIPStmts(body []Stmt, opts HIPOptions, indent int) (string, error) {
	p := newHIPPrinter(opts, indent)
	for _, s := range body {
		p.stmt(s)
	}
	return p.result()
}

type hipPrinter struct {
	out    strings.Builder
	opts   HIPOptions
	indent int
	err    error
	open   []*construct // enclosing loops and switches, innermost last
	exits  int
}

// construct is an enclosing loop or switch. Unnamed loops left from
// inside a switch get a numeric exit label, which no Fortran name can
// produce.
type construct struct {
	loop      bool
	name      string
	synthetic string
}

func (c *construct) exitName() string {
	if c.name != "" {
		return c.name
	}
	return c.synthetic
}

func newHIPPrinter(opts HIPOptions, indent int) *hipPrinter {
	if opts.Indent == "" {
		opts.Indent = DefaultHIPOptions.Indent
	}
	return &hipPrinter{opts: opts, indent: indent}
}

func (p *hipPrinter) result() (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.out.String(), nil
}

// fail records the first error only.
func (p *hipPrinter) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *hipPrinter) writeLine(format string, args ...any) {
	p.out.WriteString(strings.Repeat(p.opts.Indent, p.indent))
	if len(args) == 0 {
		p.out.WriteString(format)
	} else {
		fmt.Fprintf(&p.out, format, args...)
	}
	p.out.WriteByte('\n')
}

func (p *hipPrinter) node(n Node) {
	switch x := n.(type) {
	case Stmt:
		p.stmt(x)
	case Expr:
		p.out.WriteString(p.expr(x))
	}
}

func (p *hipPrinter) block(body []Stmt) {
	p.indent++
	for _, s := range body {
		p.stmt(s)
	}
	p.indent--
}

func (p *hipPrinter) stmt(s Stmt) {
	if p.err != nil {
		return
	}
	switch x := s.(type) {
	case *Assignment:
		p.writeLine("%s = %s;", p.expr(x.LHS), p.expr(x.RHS))
	case *IfBlock:
		for i, b := range x.Branches {
			switch {
			case i == 0:
				p.writeLine("if (%s) {", p.expr(b.Cond))
			case b.Cond != nil:
				p.writeLine("} else if (%s) {", p.expr(b.Cond))
			default:
				p.writeLine("} else {")
			}
			p.block(b.Body)
		}
		p.writeLine("}")
	case *SelectCase:
		p.writeLine("switch (%s) {", p.expr(x.Selector))
		p.open = append(p.open, &construct{})
		for _, c := range x.Cases {
			if c.Values == nil {
				p.writeLine("default:")
			}
			for _, v := range c.Values {
				p.writeLine("case %s:", p.caseValue(v))
			}
			p.block(c.Body)
			p.indent++
			p.writeLine("break;")
			p.indent--
		}
		p.close()
		p.writeLine("}")
	case *DoLoop:
		idx := p.expr(x.Index)
		if x.Step == nil {
			p.writeLine("for (%s = %s; %s <= %s; %s++) {", idx, p.expr(x.First), idx, p.expr(x.Last), idx)
		} else {
			step := p.expr(x.Step)
			p.writeLine("for (%s = %s; gpufort::loop_cond(%s,%s,%s); %s += %s) {",
				idx, p.expr(x.First), idx, p.expr(x.Last), step, idx, step)
		}
		p.loopBody(x.Name, x.Body)
	case *DoWhile:
		p.writeLine("while (%s) {", p.expr(x.Cond))
		p.loopBody(x.Name, x.Body)
	case *DoForever:
		p.writeLine("while (true) {")
		p.loopBody(x.Name, x.Body)
	case *GoTo:
		p.writeLine("goto _%s;", x.Label)
	case *Label:
		p.writeLine("_%s: ;", x.Name)
	case *Exit:
		if x.Construct != "" {
			p.writeLine("goto __%s;", x.Construct)
		} else {
			p.writeLine("%s", p.exit())
		}
	case *Cycle:
		if x.Construct != "" {
			p.writeLine("goto _%s;", x.Construct)
		} else {
			p.writeLine("continue;")
		}
	case *Return:
		p.writeLine("return;")
	case *Continue:
		p.writeLine(";")
	case *Call:
		p.writeLine("%s%s;", hipName(x.Name), p.callArgs(x.Args))
	default:
		p.fail(diag.Errorf(diag.KindUnsupportedKind, diag.KindUnsupportedType, "no HIP rendering for %T", s))
	}
}

func (p *hipPrinter) close() { p.open = p.open[:len(p.open)-1] }

// exit leaves the innermost loop. break would only leave a switch, so an
// exit from inside one jumps to the loop's exit label instead.
func (p *hipPrinter) exit() string {
	inSwitch := false
	for i := len(p.open) - 1; i >= 0; i-- {
		c := p.open[i]
		if !c.loop {
			inSwitch = true
			continue
		}
		if !inSwitch {
			return "break;"
		}
		if c.exitName() == "" {
			p.exits++
			c.synthetic = strconv.Itoa(p.exits)
		}
		return "goto __" + c.exitName() + ";"
	}
	return "break;"
}

// loopBody closes a loop; named loops get cycle and exit labels.
func (p *hipPrinter) loopBody(name string, body []Stmt) {
	c := &construct{loop: true, name: name}
	p.open = append(p.open, c)
	p.block(body)
	p.close()
	if name != "" {
		p.indent++
		p.writeLine("_%s: ;", name)
		p.indent--
	}
	p.writeLine("}")
	if exit := c.exitName(); exit != "" {
		p.writeLine("__%s: ;", exit)
	}
}

// caseValue renders a case selector; ranges use the clang case range
// extension.
func (p *hipPrinter) caseValue(v Expr) string {
	sl, ok := v.(*Slice)
	if !ok {
		return p.expr(v)
	}
	if sl.Lo == nil || sl.Hi == nil || sl.Stride != nil {
		p.fail(diag.Errorf(diag.KindUnsupportedKind, diag.KindUnsupportedType,
			"open case range %q has no HIP equivalent", Fortran(sl)))
		return ""
	}
	return p.expr(sl.Lo) + " ... " + p.expr(sl.Hi)
}

var hipOps = map[string]string{
	"+": "+", "-": "-", "*": "*", "/": "/",
	"==": "==", "/=": "!=", "<": "<", "<=": "<=", ">": ">", ">=": ">=",
	".and.": " && ", ".or.": " || ", ".eqv.": " == ", ".neqv.": " != ",
}

func (p *hipPrinter) expr(e Expr) string {
	if p.err != nil {
		return ""
	}
	switch x := e.(type) {
	case nil:
		return ""
	case *Literal:
		s, err := literalHIP(x)
		if err != nil {
			p.fail(err)
		}
		return s
	case *Ident:
		if c, ok := hipSymbols[x.Name]; ok {
			return c
		}
		if x.ReductionIndex != "" {
			if p.opts.FortranStyleTensors {
				return x.Name + "(" + x.ReductionIndex + ")"
			}
			return x.Name + "[" + x.ReductionIndex + "]"
		}
		return x.Name
	case *Member:
		if c, ok := hipSymbols[strings.ReplaceAll(x.Path(), "%", ".")]; ok {
			return c
		}
		return p.expr(x.Base) + "." + p.expr(x.Field)
	case *Eval:
		return p.eval(x)
	case *Unary:
		switch x.Op {
		case ".not.":
			return "!" + p.operand(x.X)
		case "-", "+":
			return x.Op + p.operand(x.X)
		}
		p.fail(diag.Errorf(diag.KindSyntax, diag.SynBadExpression, "unknown unary operator %q", x.Op))
	case *OpChain:
		return p.chain(x)
	case *ArgList:
		return p.callArgs(x)
	case *Slice:
		p.fail(diag.Errorf(diag.KindUnsupportedKind, diag.KindUnsupportedType,
			"array section %q has no HIP equivalent", Fortran(x)))
	}
	return ""
}

func (p *hipPrinter) chain(x *OpChain) string {
	if len(x.Operands) != len(x.Ops)+1 {
		p.fail(diag.Errorf(diag.KindSyntax, diag.SynBadExpression, "malformed operator chain"))
		return ""
	}
	if x.Ops[0] == "**" {
		// right-nested: a**b**c = a**(b**c)
		acc := p.expr(x.Operands[len(x.Operands)-1])
		for i := len(x.Operands) - 2; i >= 0; i-- {
			acc = "pow(" + p.expr(x.Operands[i]) + "," + acc + ")"
		}
		return acc
	}
	var sb strings.Builder
	sb.WriteString(p.operand(x.Operands[0]))
	for i, op := range x.Ops {
		c, ok := hipOps[op]
		if !ok {
			p.fail(diag.Errorf(diag.KindUnsupportedKind, diag.KindUnsupportedType,
				"operator %q has no HIP equivalent", op))
			return ""
		}
		sb.WriteString(c)
		sb.WriteString(p.operand(x.Operands[i+1]))
	}
	return sb.String()
}

func (p *hipPrinter) operand(e Expr) string {
	switch e.(type) {
	case *Unary, *OpChain:
		return "(" + p.expr(e) + ")"
	}
	return p.expr(e)
}

func (p *hipPrinter) eval(x *Eval) string {
	if x.IsArrayAccess() && x.Args != nil {
		for _, a := range x.Args.Args {
			if _, ok := a.Value.(*Slice); ok {
				p.fail(diag.Errorf(diag.KindUnsupportedKind, diag.KindUnsupportedType,
					"array section of %q has no HIP equivalent", x.Name))
				return ""
			}
		}
		args := strings.TrimSuffix(strings.TrimPrefix(p.callArgs(x.Args), "("), ")")
		if p.opts.FortranStyleTensors {
			return x.Name + "(" + args + ")"
		}
		return x.Name + "[_idx_" + x.Name + "(" + args + ")]"
	}
	if c, ok := casts[x.Name]; ok && len(x.Args.Values()) >= 1 {
		return "((" + c + ")" + p.operand(x.Args.Args[0].Value) + ")"
	}
	if x.Name == "mod" && len(x.Args.Values()) == 2 && isIntegerExpr(x.Args.Args[0].Value) {
		return "(" + p.operand(x.Args.Args[0].Value) + " % " + p.operand(x.Args.Args[1].Value) + ")"
	}
	name := hipName(x.Name)
	if x.Name == "mod" {
		name = "fmod"
	}
	return name + p.callArgs(x.Args)
}

func (p *hipPrinter) callArgs(l *ArgList) string {
	if l == nil {
		return "()"
	}
	parts := make([]string, len(l.Args))
	for i, a := range l.Args {
		if a.Keyword != "" {
			p.fail(diag.Errorf(diag.KindUnsupportedKind, diag.KindUnsupportedType,
				"keyword argument %q has no HIP equivalent", a.Keyword))
			return ""
		}
		parts[i] = p.expr(a.Value)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func hipName(name string) string {
	if c, ok := hipSymbols[name]; ok {
		return c
	}
	return name
}

// isIntegerExpr reports expressions known to be integer valued.
func isIntegerExpr(e Expr) bool {
	switch x := e.(type) {
	case *Literal:
		return x.Type == LitInteger
	case *Ident:
		return x.Meta != nil && x.Meta.BaseType == "integer"
	case *Eval:
		return x.Meta != nil && x.Meta.BaseType == "integer"
	case *Member:
		return x.Meta != nil && x.Meta.BaseType == "integer"
	case *Unary:
		return isIntegerExpr(x.X)
	case *OpChain:
		for _, o := range x.Operands {
			if !isIntegerExpr(o) {
				return false
			}
		}
		return true
	}
	return false
}
